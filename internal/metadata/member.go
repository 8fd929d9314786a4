package metadata

import "fmt"

// MemberKind classifies a member.
type MemberKind uint8

const (
	MemberInvalid MemberKind = iota
	MemberMethod
	MemberField
	MemberProperty
	MemberEvent
	MemberNestedType
)

func (k MemberKind) String() string {
	switch k {
	case MemberMethod:
		return "method"
	case MemberField:
		return "field"
	case MemberProperty:
		return "property"
	case MemberEvent:
		return "event"
	case MemberNestedType:
		return "type"
	default:
		return "invalid"
	}
}

// Body is the kind-specific part of a member. The set of implementations is
// closed: *Method, *Field, *Property, *Event and *NestedType.
type Body interface {
	kind() MemberKind
	clone() Body
}

// Access is member accessibility in metadata order.
type Access uint8

const (
	AccessPrivate Access = iota + 1
	AccessFamANDAssem
	AccessAssembly
	AccessFamily
	AccessFamORAssem
	AccessPublic
)

func (a Access) String() string {
	switch a {
	case AccessPrivate:
		return "private"
	case AccessFamANDAssem:
		return "private protected"
	case AccessAssembly:
		return "internal"
	case AccessFamily:
		return "protected"
	case AccessFamORAssem:
		return "protected internal"
	case AccessPublic:
		return "public"
	default:
		return "compilercontrolled"
	}
}

// Covers reports whether a grants at least every access b grants.
// Family and Assembly are incomparable.
func (a Access) Covers(b Access) bool {
	if a == b {
		return true
	}
	switch a {
	case AccessPublic:
		return true
	case AccessFamORAssem:
		return b != AccessPublic
	case AccessFamily, AccessAssembly:
		return b == AccessFamANDAssem || b == AccessPrivate
	case AccessFamANDAssem:
		return b == AccessPrivate
	}
	return false
}

// MethodFlags encode method attributes.
type MethodFlags uint8

const (
	MethodVirtual MethodFlags = 1 << iota
	MethodNewSlot
	MethodStatic
	MethodAbstract
)

// Method payload.
type Method struct {
	Params    []TypeRef
	Return    TypeRef
	Access    Access
	Flags     MethodFlags
	Overrides MemberID
}

func (*Method) kind() MemberKind { return MemberMethod }
func (m *Method) clone() Body {
	out := *m
	out.Params = append([]TypeRef(nil), m.Params...)
	return &out
}

// IsVirtual reports the virtual flag.
func (m *Method) IsVirtual() bool { return m.Flags&MethodVirtual != 0 }

// IsNewSlot reports the new-slot flag.
func (m *Method) IsNewSlot() bool { return m.Flags&MethodNewSlot != 0 }

// Field payload.
type Field struct {
	Type   TypeRef
	Access Access
	Static bool
}

func (*Field) kind() MemberKind { return MemberField }
func (f *Field) clone() Body {
	out := *f
	return &out
}

// Property payload.
type Property struct {
	Type   TypeRef
	Params []TypeRef
	Getter MemberID
	Setter MemberID
}

func (*Property) kind() MemberKind { return MemberProperty }
func (p *Property) clone() Body {
	out := *p
	out.Params = append([]TypeRef(nil), p.Params...)
	return &out
}

// Event payload.
type Event struct {
	Handler TypeRef
	Add     MemberID
	Remove  MemberID
}

func (*Event) kind() MemberKind { return MemberEvent }
func (e *Event) clone() Body {
	out := *e
	return &out
}

// NestedType links a member slot to the nested type node.
type NestedType struct {
	Type TypeID
}

func (*NestedType) kind() MemberKind { return MemberNestedType }
func (n *NestedType) clone() Body {
	out := *n
	return &out
}

// Member is one entry of a type's ordered member list.
type Member struct {
	Name          string
	DeclaringType TypeID
	Module        ModuleID
	Attributes    []Attribute
	Body          Body
}

// Kind returns the member kind.
func (m *Member) Kind() MemberKind {
	if m == nil || m.Body == nil {
		return MemberInvalid
	}
	return m.Body.kind()
}

// Method returns the method payload or nil.
func (m *Member) Method() *Method {
	b, _ := m.Body.(*Method)
	return b
}

// Nested returns the nested type handle or NoTypeID.
func (m *Member) Nested() TypeID {
	if b, ok := m.Body.(*NestedType); ok {
		return b.Type
	}
	return NoTypeID
}

// CloneBody returns a deep copy of the payload.
func CloneBody(b Body) Body {
	if b == nil {
		panic(fmt.Errorf("metadata: nil member body"))
	}
	return b.clone()
}
