package metadata

// TypeRef names a type inside a signature. Matching across assemblies only
// ever looks at the namespace and the name.
type TypeRef struct {
	Namespace string
	Name      string
}

// Ref builds a TypeRef from a dotted full name ("System.Int32").
func Ref(full string) TypeRef {
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == '.' {
			return TypeRef{Namespace: full[:i], Name: full[i+1:]}
		}
	}
	return TypeRef{Name: full}
}

// IsZero reports an empty reference (e.g. no return type recorded).
func (r TypeRef) IsZero() bool { return r.Namespace == "" && r.Name == "" }

func (r TypeRef) String() string { return FullName(r.Namespace, r.Name) }

// FuzzyEqual compares two references by namespace and name only.
func (r TypeRef) FuzzyEqual(other TypeRef) bool {
	return r.Namespace == other.Namespace && r.Name == other.Name
}

// FullName joins namespace and name with a dot.
func FullName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// TypeFlags encode misc type attributes for quick checks.
type TypeFlags uint16

const (
	TypeFlagPublic TypeFlags = 1 << iota
	TypeFlagCompilerGenerated
	TypeFlagInterface
	TypeFlagSealed
	TypeFlagAbstract
)

// Strings returns a slice of textual flag labels.
func (f TypeFlags) Strings() []string {
	if f == 0 {
		return nil
	}
	labels := make([]string, 0, 5)
	if f&TypeFlagPublic != 0 {
		labels = append(labels, "public")
	}
	if f&TypeFlagCompilerGenerated != 0 {
		labels = append(labels, "compiler-generated")
	}
	if f&TypeFlagInterface != 0 {
		labels = append(labels, "interface")
	}
	if f&TypeFlagSealed != 0 {
		labels = append(labels, "sealed")
	}
	if f&TypeFlagAbstract != 0 {
		labels = append(labels, "abstract")
	}
	return labels
}

// Type is a type node. DeclaringType is a lookup back-reference only.
type Type struct {
	Module        ModuleID
	Namespace     string
	Name          string
	Flags         TypeFlags
	BaseType      TypeID
	DeclaringType TypeID
	Members       []MemberID
	Attributes    []Attribute
}

// FullName returns "Namespace.Name".
func (t *Type) FullName() string { return FullName(t.Namespace, t.Name) }

// Ref returns a signature reference to the type.
func (t *Type) Ref() TypeRef { return TypeRef{Namespace: t.Namespace, Name: t.Name} }

// IsPublic reports public visibility.
func (t *Type) IsPublic() bool { return t.Flags&TypeFlagPublic != 0 }

// IsNested reports whether the type is declared inside another type.
func (t *Type) IsNested() bool { return t.DeclaringType.IsValid() }

// IsCompilerGenerated reports the flag or a CompilerGenerated attribute.
func (t *Type) IsCompilerGenerated() bool {
	if t.Flags&TypeFlagCompilerGenerated != 0 {
		return true
	}
	return HasAttribute(t.Attributes, CompilerGeneratedAttribute)
}
