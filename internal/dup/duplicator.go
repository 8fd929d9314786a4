// Package dup deep-copies type graphs from source modules into the merge
// target. Every copy goes through a Map, so one source node yields at most
// one target node and aliasing in the source survives in the target.
package dup

import (
	"fmt"
	"slices"

	"weld/internal/metadata"
)

// Duplicator copies nodes into one target module.
type Duplicator struct {
	arena   *metadata.Arena
	target  metadata.ModuleID
	Map     *Map
	types   []metadata.TypeID
	members []metadata.MemberID
}

// New creates a Duplicator writing into target. A nil map gets a fresh one.
func New(a *metadata.Arena, target metadata.ModuleID, m *Map) *Duplicator {
	if m == nil {
		m = NewMap()
	}
	return &Duplicator{arena: a, target: target, Map: m}
}

// Target returns the module copies are written into.
func (d *Duplicator) Target() metadata.ModuleID { return d.target }

// Type returns the target counterpart of src, copying it with all of its
// members when no entry exists yet. declaring is the target type the copy
// is nested in; NoTypeID appends the copy to the target's top-level list.
func (d *Duplicator) Type(src, declaring metadata.TypeID) metadata.TypeID {
	if dst, ok := d.Map.Type(src); ok {
		return dst
	}
	st := d.arena.Type(src)
	if st == nil {
		panic(fmt.Errorf("dup.Type: unknown source type %d", src))
	}
	dst := d.arena.NewType(metadata.Type{
		Namespace:     st.Namespace,
		Name:          st.Name,
		Flags:         st.Flags,
		BaseType:      st.BaseType,
		DeclaringType: declaring,
		Attributes:    metadata.CloneAttributes(st.Attributes),
		Module:        d.target,
	})
	// сначала запоминаем, потом копируем члены: вложенные типы могут сослаться обратно
	d.Map.SeedType(src, dst)
	d.types = append(d.types, dst)
	if !declaring.IsValid() {
		d.arena.AddTopLevel(d.target, dst)
	}
	members := slices.Clone(d.arena.Type(src).Members)
	for _, mid := range members {
		d.Member(mid, dst)
	}
	return dst
}

// Member returns the target counterpart of src, copying it into the target
// type into when no entry exists yet.
func (d *Duplicator) Member(src metadata.MemberID, into metadata.TypeID) metadata.MemberID {
	if dst, ok := d.Map.Member(src); ok {
		return dst
	}
	sm := d.arena.Member(src)
	if sm == nil {
		panic(fmt.Errorf("dup.Member: unknown source member %d", src))
	}
	name := sm.Name
	attrs := metadata.CloneAttributes(sm.Attributes)
	body := metadata.CloneBody(sm.Body)
	if nested, ok := body.(*metadata.NestedType); ok {
		nested.Type = d.Type(nested.Type, into)
		name = d.arena.Type(nested.Type).Name
	}
	dst := d.arena.NewMember(metadata.Member{Name: name, Attributes: attrs, Body: body})
	d.Map.SeedMember(src, dst)
	d.members = append(d.members, dst)
	d.arena.AddMember(into, dst)
	return dst
}

// Fixup redirects handles inside copied nodes that still point at source
// nodes: base types, override targets and accessor links. Handles with no
// map entry keep pointing outside the target (external references).
func (d *Duplicator) Fixup() {
	for _, tid := range d.types {
		t := d.arena.Type(tid)
		t.BaseType = d.Map.ResolveType(t.BaseType)
	}
	for _, mid := range d.members {
		switch b := d.arena.Member(mid).Body.(type) {
		case *metadata.Method:
			b.Overrides = d.resolveMember(b.Overrides)
		case *metadata.Property:
			b.Getter = d.resolveMember(b.Getter)
			b.Setter = d.resolveMember(b.Setter)
		case *metadata.Event:
			b.Add = d.resolveMember(b.Add)
			b.Remove = d.resolveMember(b.Remove)
		case *metadata.Field, *metadata.NestedType:
		default:
			panic(fmt.Errorf("dup.Fixup: unexpected member body %T", b))
		}
	}
}

func (d *Duplicator) resolveMember(id metadata.MemberID) metadata.MemberID {
	if !id.IsValid() {
		return id
	}
	return d.Map.ResolveMember(id)
}

// Copied lists the target types created by this duplicator in creation order.
func (d *Duplicator) Copied() []metadata.TypeID { return d.types }
