package dup

import "weld/internal/metadata"

// Map memoizes source node → target node. Entries are never overwritten:
// a second Seed for the same source is refused.
type Map struct {
	types   map[metadata.TypeID]metadata.TypeID
	members map[metadata.MemberID]metadata.MemberID
}

// NewMap creates an empty DuplicateMap.
func NewMap() *Map {
	return &Map{
		types:   make(map[metadata.TypeID]metadata.TypeID),
		members: make(map[metadata.MemberID]metadata.MemberID),
	}
}

// Type returns the target counterpart of a source type.
func (m *Map) Type(src metadata.TypeID) (metadata.TypeID, bool) {
	dst, ok := m.types[src]
	return dst, ok
}

// Member returns the target counterpart of a source member.
func (m *Map) Member(src metadata.MemberID) (metadata.MemberID, bool) {
	dst, ok := m.members[src]
	return dst, ok
}

// SeedType records src → dst. It reports false and leaves the existing
// entry untouched when src is already mapped.
func (m *Map) SeedType(src, dst metadata.TypeID) bool {
	if _, taken := m.types[src]; taken {
		return false
	}
	m.types[src] = dst
	return true
}

// SeedMember records src → dst unless src is already mapped.
func (m *Map) SeedMember(src, dst metadata.MemberID) bool {
	if _, taken := m.members[src]; taken {
		return false
	}
	m.members[src] = dst
	return true
}

// ResolveType maps src through the table, falling back to src itself.
func (m *Map) ResolveType(src metadata.TypeID) metadata.TypeID {
	if dst, ok := m.types[src]; ok {
		return dst
	}
	return src
}

// ResolveMember maps src through the table, falling back to src itself.
func (m *Map) ResolveMember(src metadata.MemberID) metadata.MemberID {
	if dst, ok := m.members[src]; ok {
		return dst
	}
	return src
}

// Len reports the number of entries of both tables.
func (m *Map) Len() (types, members int) { return len(m.types), len(m.members) }
