package metadata

import "slices"

// Well-known attribute types the merge engine treats specially.
var (
	ComVisibleAttribute                   = TypeRef{Namespace: "System.Runtime.InteropServices", Name: "ComVisibleAttribute"}
	CompilerGeneratedAttribute            = TypeRef{Namespace: "System.Runtime.CompilerServices", Name: "CompilerGeneratedAttribute"}
	AllowPartiallyTrustedCallersAttribute = TypeRef{Namespace: "System.Security", Name: "AllowPartiallyTrustedCallersAttribute"}
	SecurityCriticalAttribute             = TypeRef{Namespace: "System.Security", Name: "SecurityCriticalAttribute"}
	SecurityTransparentAttribute          = TypeRef{Namespace: "System.Security", Name: "SecurityTransparentAttribute"}
	SecurityRulesAttribute                = TypeRef{Namespace: "System.Security", Name: "SecurityRulesAttribute"}
)

// Attribute is a custom attribute instance. Args holds the stringified
// constructor argument expressions.
type Attribute struct {
	Type          TypeRef
	Args          []string
	AllowMultiple bool // the declared attribute type permits multiple instances
}

// Clone returns an independent copy.
func (a Attribute) Clone() Attribute {
	a.Args = slices.Clone(a.Args)
	return a
}

// Is reports whether the attribute has the given declared type.
func (a Attribute) Is(ref TypeRef) bool { return a.Type.FuzzyEqual(ref) }

// HasAttribute reports whether any attribute in list has the declared type.
func HasAttribute(list []Attribute, ref TypeRef) bool {
	return slices.ContainsFunc(list, func(a Attribute) bool { return a.Is(ref) })
}

// CloneAttributes deep-copies an attribute list.
func CloneAttributes(list []Attribute) []Attribute {
	if len(list) == 0 {
		return nil
	}
	out := make([]Attribute, len(list))
	for i, a := range list {
		out[i] = a.Clone()
	}
	return out
}

// SecurityAction is the declarative security action of a permission set.
type SecurityAction uint8

const (
	ActionRequest SecurityAction = iota + 1
	ActionDemand
	ActionAssert
	ActionDeny
	ActionPermitOnly
	ActionLinkDemand
	ActionInheritanceDemand
	ActionRequestMinimum
	ActionRequestOptional
	ActionRequestRefuse
)

func (a SecurityAction) String() string {
	switch a {
	case ActionRequest:
		return "Request"
	case ActionDemand:
		return "Demand"
	case ActionAssert:
		return "Assert"
	case ActionDeny:
		return "Deny"
	case ActionPermitOnly:
		return "PermitOnly"
	case ActionLinkDemand:
		return "LinkDemand"
	case ActionInheritanceDemand:
		return "InheritanceDemand"
	case ActionRequestMinimum:
		return "RequestMinimum"
	case ActionRequestOptional:
		return "RequestOptional"
	case ActionRequestRefuse:
		return "RequestRefuse"
	default:
		return "Unknown"
	}
}

// SecurityAttribute groups permission attributes under one action.
type SecurityAttribute struct {
	Action      SecurityAction
	Permissions []Attribute
}
