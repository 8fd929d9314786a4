package image

import (
	"strings"

	"weld/internal/diag"
	"weld/internal/metadata"
)

// LinkKind says what a pending link points at.
type LinkKind uint8

const (
	LinkBaseType LinkKind = iota
	LinkOverride
)

// Link is a reference into another assembly that registration could not
// bind yet. Resolve binds it once every assembly is in the arena.
type Link struct {
	Kind     LinkKind
	Type     metadata.TypeID   // LinkBaseType: the derived type
	Member   metadata.MemberID // LinkOverride: the overriding method
	Assembly string
	Target   string // full type name
	Name     string
	Sig      string
}

// Register allocates the image's module, types and members in the arena.
// Local links are bound immediately; links into other assemblies are
// returned for Resolve.
func (img *Image) Register(a *metadata.Arena) (metadata.ModuleID, []Link) {
	rec := img.rec
	mid := a.NewModule(img.Identity())
	mod := a.Module(mid)
	mod.MVID = rec.MVID
	mod.Kind = metadata.ModuleKind(rec.Kind)
	mod.PEKind = metadata.PEKind(rec.PEKind)
	mod.Attributes = attrsFrom(rec.Attributes)
	mod.ModuleAttributes = attrsFrom(rec.ModuleAttributes)
	mod.Signing = metadata.Signing{
		Source:    metadata.SigningSource(rec.Signing.Source),
		KeyFile:   rec.Signing.KeyFile,
		Container: rec.Signing.Container,
		Delay:     rec.Signing.Delay,
	}
	for _, s := range rec.Security {
		mod.Security = append(mod.Security, metadata.SecurityAttribute{
			Action:      metadata.SecurityAction(s.Action),
			Permissions: attrsFrom(s.Permissions),
		})
	}
	for _, r := range rec.References {
		mod.References = append(mod.References, metadata.Reference{Identity: identityFrom(r)})
	}
	for _, r := range rec.Resources {
		mod.Resources = append(mod.Resources, metadata.Resource{Name: r.Name, Data: r.Data, Public: r.Public})
	}

	types := make([]metadata.TypeID, len(rec.Types))
	types[0] = mod.GlobalType()
	a.Type(types[0]).Attributes = attrsFrom(rec.Types[0].Attributes)
	for i := 1; i < len(rec.Types); i++ {
		tr := &rec.Types[i]
		types[i] = a.NewType(metadata.Type{
			Namespace:  tr.Namespace,
			Name:       tr.Name,
			Flags:      metadata.TypeFlags(tr.Flags),
			Attributes: attrsFrom(tr.Attributes),
		})
		if tr.Declaring == -1 {
			a.AddTopLevel(mid, types[i])
		}
	}

	members := make([]metadata.MemberID, len(rec.Members))
	for i := range rec.Members {
		mr := &rec.Members[i]
		members[i] = a.NewMember(metadata.Member{
			Name:       mr.Name,
			Attributes: attrsFrom(mr.Attributes),
			Body:       bodyFrom(mr, types),
		})
	}
	local := func(idx int32) metadata.MemberID {
		if idx < 0 {
			return metadata.NoMemberID
		}
		return members[idx]
	}

	var links []Link
	for i := range rec.Members {
		mr := &rec.Members[i]
		switch b := a.Member(members[i]).Body.(type) {
		case *metadata.Method:
			switch {
			case mr.Overrides.Local >= 0:
				b.Overrides = members[mr.Overrides.Local]
			case mr.Overrides.Signature != "":
				links = append(links, Link{
					Kind:     LinkOverride,
					Member:   members[i],
					Assembly: mr.Overrides.Assembly,
					Target:   mr.Overrides.Type,
					Name:     mr.Overrides.Name,
					Sig:      mr.Overrides.Signature,
				})
			}
		case *metadata.Property:
			b.Getter, b.Setter = local(mr.Getter), local(mr.Setter)
		case *metadata.Event:
			b.Add, b.Remove = local(mr.Add), local(mr.Remove)
		}
	}

	// declaring types precede their nested types, so Module is always set
	// on the owner before AddMember copies it down
	for i := range rec.Types {
		tr := &rec.Types[i]
		for _, m := range tr.Members {
			a.AddMember(types[i], members[m])
		}
		switch {
		case tr.Base.Local >= 0:
			a.Type(types[i]).BaseType = types[tr.Base.Local]
		case tr.Base.FullName != "":
			links = append(links, Link{
				Kind:     LinkBaseType,
				Type:     types[i],
				Assembly: tr.Base.Assembly,
				Target:   tr.Base.FullName,
			})
		}
	}
	a.Module(mid).EntryPoint = local(rec.EntryPoint)
	return mid, links
}

// Resolve binds pending links against the modules now in the arena and
// returns how many stayed unbound. Unbound base types are reported; an
// unbound override only loses the accessibility check for that method.
func Resolve(a *metadata.Arena, links []Link, r diag.Reporter) int {
	unbound := 0
	for _, l := range links {
		target := findType(a, l.Assembly, l.Target)
		switch l.Kind {
		case LinkBaseType:
			if !target.IsValid() {
				unbound++
				t := a.Type(l.Type)
				diag.ReportWarning(r, diag.AnmUnresolvedBaseType, t.FullName(),
					"base type ["+l.Assembly+"]"+l.Target+" is not loaded").Emit()
				continue
			}
			a.Type(l.Type).BaseType = target
		case LinkOverride:
			found := metadata.NoMemberID
			if target.IsValid() {
				for _, cand := range a.MembersNamed(target, l.Name) {
					if metadata.SignatureID(a.Member(cand)) == l.Sig {
						found = cand
						break
					}
				}
			}
			if !found.IsValid() {
				unbound++
				continue
			}
			a.Member(l.Member).Method().Overrides = found
		}
	}
	return unbound
}

// findType looks up "Outer/Inner" style paths as well as top-level names.
func findType(a *metadata.Arena, assembly, full string) metadata.TypeID {
	mod := a.FindModule(assembly)
	if !mod.IsValid() || full == "" {
		return metadata.NoTypeID
	}
	parts := strings.Split(full, "/")
	ref := metadata.Ref(parts[0])
	tid := a.FindType(mod, ref.Namespace, ref.Name)
	for _, name := range parts[1:] {
		next := metadata.NoTypeID
		for _, nt := range a.NestedTypes(tid) {
			if a.Type(nt).Name == name {
				next = nt
				break
			}
		}
		tid = next
	}
	return tid
}

func bodyFrom(mr *memberRecord, types []metadata.TypeID) metadata.Body {
	switch metadata.MemberKind(mr.Kind) {
	case metadata.MemberField:
		return &metadata.Field{Type: refFrom(mr.Type), Access: metadata.Access(mr.Access), Static: mr.Static}
	case metadata.MemberProperty:
		return &metadata.Property{Type: refFrom(mr.Type), Params: refsFrom(mr.Params)}
	case metadata.MemberEvent:
		return &metadata.Event{Handler: refFrom(mr.Handler)}
	case metadata.MemberNestedType:
		return &metadata.NestedType{Type: types[mr.Nested]}
	default:
		return &metadata.Method{
			Params: refsFrom(mr.Params),
			Return: refFrom(mr.Return),
			Access: metadata.Access(mr.Access),
			Flags:  metadata.MethodFlags(mr.Flags),
		}
	}
}

func identityFrom(r identityRecord) metadata.Identity {
	return metadata.Identity{Name: r.Name, Version: r.Version, Culture: r.Culture, PublicKeyToken: r.PublicKeyToken}
}

func refFrom(r refRecord) metadata.TypeRef {
	return metadata.TypeRef{Namespace: r.Namespace, Name: r.Name}
}

func refsFrom(list []refRecord) []metadata.TypeRef {
	if len(list) == 0 {
		return nil
	}
	out := make([]metadata.TypeRef, len(list))
	for i, r := range list {
		out[i] = refFrom(r)
	}
	return out
}

func attrsFrom(list []attrRecord) []metadata.Attribute {
	if len(list) == 0 {
		return nil
	}
	out := make([]metadata.Attribute, len(list))
	for i, r := range list {
		out[i] = metadata.Attribute{Type: refFrom(r.Type), Args: r.Args, AllowMultiple: r.Multiple}
	}
	return out
}
