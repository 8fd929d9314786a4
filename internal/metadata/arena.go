package metadata

import (
	"fmt"

	"fortio.org/safecast"
)

type typeKey struct {
	namespace string
	name      string
}

// Hints provide optional capacity suggestions for the arena.
type Hints struct{ Modules, Types, Members uint }

// Arena owns every module, type and member of one merge session. Handles
// stay valid for the arena's lifetime; pointers returned by the getters are
// invalidated by the next allocation of the same kind.
type Arena struct {
	modules []Module
	types   []Type
	members []Member
	byName  map[ModuleID]map[typeKey]TypeID
	keys    int
}

// NewArena creates an empty arena with optional capacity hints.
func NewArena(h Hints) *Arena {
	if h.Modules == 0 {
		h.Modules = 8
	}
	if h.Types == 0 {
		h.Types = 64
	}
	if h.Members == 0 {
		h.Members = 256
	}
	return &Arena{
		modules: make([]Module, 1, h.Modules+1), // index 0 reserved for NoModuleID
		types:   make([]Type, 1, h.Types+1),
		members: make([]Member, 1, h.Members+1),
		byName:  make(map[ModuleID]map[typeKey]TypeID, h.Modules),
	}
}

// NewModule allocates a module with its global members container.
func (a *Arena) NewModule(id Identity) ModuleID {
	value, err := safecast.Conv[uint32](len(a.modules))
	if err != nil {
		panic(fmt.Errorf("modules arena overflow: %w", err))
	}
	mid := ModuleID(value)
	a.keys++
	a.modules = append(a.modules, Module{Identity: id, UniqueKey: a.keys})
	a.byName[mid] = make(map[typeKey]TypeID)
	global := a.NewType(Type{Module: mid, Name: GlobalTypeName})
	mod := a.Module(mid)
	mod.Types = append(mod.Types, global)
	return mid
}

// Module returns the module pointer or nil if ID is invalid.
func (a *Arena) Module(id ModuleID) *Module {
	if !id.IsValid() || int(id) >= len(a.modules) {
		return nil
	}
	return &a.modules[id]
}

// Modules lists every allocated module in allocation order.
func (a *Arena) Modules() []ModuleID {
	out := make([]ModuleID, 0, len(a.modules)-1)
	for id := ModuleID(1); int(id) < len(a.modules); id++ {
		out = append(out, id)
	}
	return out
}

// FindModule finds a loaded module by simple name.
func (a *Arena) FindModule(name string) ModuleID {
	probe := Identity{Name: name}
	for id := ModuleID(1); int(id) < len(a.modules); id++ {
		if a.modules[id].Identity.SameName(probe) {
			return id
		}
	}
	return NoModuleID
}

// NewType allocates a detached type node. Use AddTopLevel or AddNested to
// link it into a module.
func (a *Arena) NewType(t Type) TypeID {
	value, err := safecast.Conv[uint32](len(a.types))
	if err != nil {
		panic(fmt.Errorf("types arena overflow: %w", err))
	}
	a.types = append(a.types, t)
	return TypeID(value)
}

// Type returns the type pointer or nil if ID is invalid.
func (a *Arena) Type(id TypeID) *Type {
	if !id.IsValid() || int(id) >= len(a.types) {
		return nil
	}
	return &a.types[id]
}

// NewMember allocates a detached member node.
func (a *Arena) NewMember(m Member) MemberID {
	if m.Body == nil {
		panic("metadata.NewMember: nil body")
	}
	value, err := safecast.Conv[uint32](len(a.members))
	if err != nil {
		panic(fmt.Errorf("members arena overflow: %w", err))
	}
	a.members = append(a.members, m)
	return MemberID(value)
}

// Member returns the member pointer or nil if ID is invalid.
func (a *Arena) Member(id MemberID) *Member {
	if !id.IsValid() || int(id) >= len(a.members) {
		return nil
	}
	return &a.members[id]
}

// AddTopLevel appends a type to the module's type list and name index.
func (a *Arena) AddTopLevel(mod ModuleID, tid TypeID) {
	m := a.Module(mod)
	t := a.Type(tid)
	if m == nil || t == nil {
		panic(fmt.Errorf("metadata.AddTopLevel: bad handles module=%d type=%d", mod, tid))
	}
	t.Module = mod
	t.DeclaringType = NoTypeID
	m.Types = append(m.Types, tid)
	key := typeKey{t.Namespace, t.Name}
	if _, taken := a.byName[mod][key]; !taken {
		a.byName[mod][key] = tid
	}
}

// AddMember appends a member to the type's ordered member list. Nested
// types get their declaring back-reference set.
func (a *Arena) AddMember(owner TypeID, mid MemberID) {
	t := a.Type(owner)
	m := a.Member(mid)
	if t == nil || m == nil {
		panic(fmt.Errorf("metadata.AddMember: bad handles type=%d member=%d", owner, mid))
	}
	m.DeclaringType = owner
	m.Module = t.Module
	t.Members = append(t.Members, mid)
	if nested := m.Nested(); nested.IsValid() {
		nt := a.Type(nested)
		nt.DeclaringType = owner
		nt.Module = t.Module
	}
}

// FindType looks up a top-level type of a module by namespace and name.
func (a *Arena) FindType(mod ModuleID, namespace, name string) TypeID {
	idx, ok := a.byName[mod]
	if !ok {
		return NoTypeID
	}
	return idx[typeKey{namespace, name}]
}

// RenameType changes a type's name and keeps the module index in sync.
func (a *Arena) RenameType(tid TypeID, name string) {
	t := a.Type(tid)
	if t == nil {
		return
	}
	if !t.IsNested() {
		idx := a.byName[t.Module]
		old := typeKey{t.Namespace, t.Name}
		if idx != nil && idx[old] == tid {
			delete(idx, old)
		}
		if idx != nil {
			if _, taken := idx[typeKey{t.Namespace, name}]; !taken {
				idx[typeKey{t.Namespace, name}] = tid
			}
		}
	}
	t.Name = name
}

// MembersNamed returns the declared members of a type with the given name.
func (a *Arena) MembersNamed(tid TypeID, name string) []MemberID {
	t := a.Type(tid)
	if t == nil {
		return nil
	}
	var out []MemberID
	for _, mid := range t.Members {
		if a.members[mid].Name == name {
			out = append(out, mid)
		}
	}
	return out
}

// NestedTypes returns the nested types declared directly in a type.
func (a *Arena) NestedTypes(tid TypeID) []TypeID {
	t := a.Type(tid)
	if t == nil {
		return nil
	}
	var out []TypeID
	for _, mid := range t.Members {
		if nested := a.members[mid].Nested(); nested.IsValid() {
			out = append(out, nested)
		}
	}
	return out
}
