package metadata

import (
	"fmt"
	"slices"
	"strings"
)

// SignatureID encodes kind, name and the types that make a member distinct.
// It is stable across assemblies because it never looks at handles.
func SignatureID(m *Member) string {
	var sb strings.Builder
	switch b := m.Body.(type) {
	case *Method:
		sb.WriteString("M:")
		sb.WriteString(m.Name)
		writeRefList(&sb, b.Params)
		sb.WriteString(b.Return.String())
	case *Field:
		sb.WriteString("F:")
		sb.WriteString(m.Name)
		sb.WriteByte(':')
		sb.WriteString(b.Type.String())
	case *Property:
		sb.WriteString("P:")
		sb.WriteString(m.Name)
		writeRefList(&sb, b.Params)
		sb.WriteByte(':')
		sb.WriteString(b.Type.String())
	case *Event:
		sb.WriteString("E:")
		sb.WriteString(m.Name)
		sb.WriteByte(':')
		sb.WriteString(b.Handler.String())
	case *NestedType:
		sb.WriteString("T:")
		sb.WriteString(m.Name)
	default:
		panic(fmt.Errorf("metadata: unexpected member body %T", m.Body))
	}
	return sb.String()
}

func writeRefList(sb *strings.Builder, refs []TypeRef) {
	sb.WriteByte('(')
	for i, r := range refs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(r.String())
	}
	sb.WriteByte(')')
}

// StructurallyEqual is the fuzzy member match used by union merging: same
// kind, same name, and parameter/field/handler/property types equal by
// namespace and name.
func StructurallyEqual(a, b *Member) bool {
	if a.Kind() != b.Kind() || a.Name != b.Name {
		return false
	}
	switch x := a.Body.(type) {
	case *Method:
		y := b.Body.(*Method)
		return refsEqual(x.Params, y.Params) && x.Return.FuzzyEqual(y.Return)
	case *Field:
		return x.Type.FuzzyEqual(b.Body.(*Field).Type)
	case *Property:
		y := b.Body.(*Property)
		return x.Type.FuzzyEqual(y.Type) && refsEqual(x.Params, y.Params)
	case *Event:
		return x.Handler.FuzzyEqual(b.Body.(*Event).Handler)
	case *NestedType:
		return true
	default:
		panic(fmt.Errorf("metadata: unexpected member body %T", a.Body))
	}
}

func refsEqual(a, b []TypeRef) bool {
	return slices.EqualFunc(a, b, TypeRef.FuzzyEqual)
}

// OverrideSignature is the part of a method signature an override has to
// repeat: name, parameters and return type, without the declaring type.
func OverrideSignature(m *Member) string {
	if m.Kind() != MemberMethod {
		return ""
	}
	return SignatureID(m)
}
