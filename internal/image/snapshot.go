package image

import (
	"fmt"

	"fortio.org/safecast"

	"weld/internal/metadata"
)

// snapshot flattens one module of the arena into records. Types are
// ordered as the module lists them, followed by nested types breadth-first.
func snapshot(a *metadata.Arena, id metadata.ModuleID) (*moduleRecord, error) {
	mod := a.Module(id)
	if mod == nil {
		return nil, fmt.Errorf("image: unknown module %d", id)
	}
	order := append([]metadata.TypeID(nil), mod.Types...)
	for i := 0; i < len(order); i++ {
		order = append(order, a.NestedTypes(order[i])...)
	}
	typeIdx := make(map[metadata.TypeID]int32, len(order))
	for i, tid := range order {
		idx, err := safecast.Conv[int32](i)
		if err != nil {
			return nil, fmt.Errorf("image: too many types: %w", err)
		}
		typeIdx[tid] = idx
	}
	var members []metadata.MemberID
	memberIdx := make(map[metadata.MemberID]int32)
	for _, tid := range order {
		for _, mid := range a.Type(tid).Members {
			idx, err := safecast.Conv[int32](len(members))
			if err != nil {
				return nil, fmt.Errorf("image: too many members: %w", err)
			}
			memberIdx[mid] = idx
			members = append(members, mid)
		}
	}

	s := &snapshotter{arena: a, types: typeIdx, members: memberIdx}
	rec := &moduleRecord{
		Identity:         identityOf(mod.Identity),
		MVID:             mod.MVID,
		Kind:             uint8(mod.Kind),
		PEKind:           uint8(mod.PEKind),
		Types:            make([]typeRecord, 0, len(order)),
		Members:          make([]memberRecord, 0, len(members)),
		Resources:        make([]resourceRecord, 0, len(mod.Resources)),
		Attributes:       attrsOf(mod.Attributes),
		ModuleAttributes: attrsOf(mod.ModuleAttributes),
		EntryPoint:       s.localMember(mod.EntryPoint),
		Signing: signingRecord{
			Source:    uint8(mod.Signing.Source),
			KeyFile:   mod.Signing.KeyFile,
			Container: mod.Signing.Container,
			Delay:     mod.Signing.Delay,
		},
	}
	for _, sa := range mod.Security {
		rec.Security = append(rec.Security, securityRecord{Action: uint8(sa.Action), Permissions: attrsOf(sa.Permissions)})
	}
	for _, ref := range mod.References {
		rec.References = append(rec.References, identityOf(ref.Identity))
	}
	for _, res := range mod.Resources {
		rec.Resources = append(rec.Resources, resourceRecord{Name: res.Name, Data: res.Data, Public: res.Public})
	}
	for _, tid := range order {
		rec.Types = append(rec.Types, s.typeRecord(a.Type(tid)))
	}
	for _, mid := range members {
		rec.Members = append(rec.Members, s.memberRecord(a.Member(mid)))
	}
	return rec, nil
}

type snapshotter struct {
	arena   *metadata.Arena
	types   map[metadata.TypeID]int32
	members map[metadata.MemberID]int32
}

func (s *snapshotter) typeRecord(t *metadata.Type) typeRecord {
	tr := typeRecord{
		Namespace:  t.Namespace,
		Name:       t.Name,
		Flags:      uint16(t.Flags),
		Base:       s.typeLink(t.BaseType),
		Declaring:  s.localType(t.DeclaringType),
		Attributes: attrsOf(t.Attributes),
	}
	for _, mid := range t.Members {
		tr.Members = append(tr.Members, s.members[mid])
	}
	return tr
}

func (s *snapshotter) memberRecord(m *metadata.Member) memberRecord {
	mr := memberRecord{
		Name:       m.Name,
		Kind:       uint8(m.Kind()),
		Attributes: attrsOf(m.Attributes),
		Overrides:  memberLink{Local: -1},
		Getter:     -1,
		Setter:     -1,
		Add:        -1,
		Remove:     -1,
		Nested:     -1,
	}
	switch b := m.Body.(type) {
	case *metadata.Method:
		mr.Params = refsOf(b.Params)
		mr.Return = refOf(b.Return)
		mr.Access = uint8(b.Access)
		mr.Flags = uint8(b.Flags)
		mr.Overrides = s.memberLink(b.Overrides)
	case *metadata.Field:
		mr.Type = refOf(b.Type)
		mr.Access = uint8(b.Access)
		mr.Static = b.Static
	case *metadata.Property:
		mr.Type = refOf(b.Type)
		mr.Params = refsOf(b.Params)
		mr.Getter = s.localMember(b.Getter)
		mr.Setter = s.localMember(b.Setter)
	case *metadata.Event:
		mr.Handler = refOf(b.Handler)
		mr.Add = s.localMember(b.Add)
		mr.Remove = s.localMember(b.Remove)
	case *metadata.NestedType:
		mr.Nested = s.localType(b.Type)
	}
	return mr
}

func (s *snapshotter) localType(tid metadata.TypeID) int32 {
	if idx, ok := s.types[tid]; ok {
		return idx
	}
	return -1
}

func (s *snapshotter) localMember(mid metadata.MemberID) int32 {
	if idx, ok := s.members[mid]; ok {
		return idx
	}
	return -1
}

func (s *snapshotter) typeLink(tid metadata.TypeID) typeLink {
	if !tid.IsValid() {
		return typeLink{Local: -1}
	}
	if idx, ok := s.types[tid]; ok {
		return typeLink{Local: idx}
	}
	t := s.arena.Type(tid)
	link := typeLink{Local: -1, FullName: typePath(s.arena, tid)}
	if mod := s.arena.Module(t.Module); mod != nil {
		link.Assembly = mod.Identity.Name
	}
	return link
}

func (s *snapshotter) memberLink(mid metadata.MemberID) memberLink {
	if !mid.IsValid() {
		return memberLink{Local: -1}
	}
	if idx, ok := s.members[mid]; ok {
		return memberLink{Local: idx}
	}
	m := s.arena.Member(mid)
	link := memberLink{Local: -1, Name: m.Name, Signature: metadata.SignatureID(m)}
	if m.DeclaringType.IsValid() {
		link.Type = typePath(s.arena, m.DeclaringType)
	}
	if mod := s.arena.Module(m.Module); mod != nil {
		link.Assembly = mod.Identity.Name
	}
	return link
}

// typePath names a type across assemblies: "Ns.Outer/Inner".
func typePath(a *metadata.Arena, tid metadata.TypeID) string {
	t := a.Type(tid)
	if t.IsNested() {
		return typePath(a, t.DeclaringType) + "/" + t.Name
	}
	return t.FullName()
}

func identityOf(id metadata.Identity) identityRecord {
	return identityRecord{Name: id.Name, Version: id.Version, Culture: id.Culture, PublicKeyToken: id.PublicKeyToken}
}

func refOf(r metadata.TypeRef) refRecord { return refRecord{Namespace: r.Namespace, Name: r.Name} }

func refsOf(refs []metadata.TypeRef) []refRecord {
	if len(refs) == 0 {
		return nil
	}
	out := make([]refRecord, len(refs))
	for i, r := range refs {
		out[i] = refOf(r)
	}
	return out
}

func attrsOf(list []metadata.Attribute) []attrRecord {
	if len(list) == 0 {
		return nil
	}
	out := make([]attrRecord, len(list))
	for i, a := range list {
		out[i] = attrRecord{Type: refOf(a.Type), Args: a.Args, Multiple: a.AllowMultiple}
	}
	return out
}
