package metadata

import (
	"strings"

	"golang.org/x/text/cases"
)

// Identity is the strong identity of an assembly. Two identities are the
// same assembly exactly when the structs compare equal.
type Identity struct {
	Name           string
	Version        string
	Culture        string
	PublicKeyToken string // hex, empty when not strong-named
}

// String renders the identity in display-name form.
func (id Identity) String() string {
	var sb strings.Builder
	sb.WriteString(id.Name)
	if id.Version != "" {
		sb.WriteString(", Version=")
		sb.WriteString(id.Version)
	}
	culture := id.Culture
	if culture == "" {
		culture = "neutral"
	}
	sb.WriteString(", Culture=")
	sb.WriteString(culture)
	token := id.PublicKeyToken
	if token == "" {
		token = "null"
	}
	sb.WriteString(", PublicKeyToken=")
	sb.WriteString(token)
	return sb.String()
}

// SameName compares simple names the way the loader resolves references.
func (id Identity) SameName(other Identity) bool {
	return FoldName(id.Name) == FoldName(other.Name)
}

var nameFolder = cases.Fold()

// FoldName is the case-insensitive key of an assembly simple name, used
// for map keys where EqualFold cannot be.
func FoldName(name string) string {
	return nameFolder.String(name)
}

// ModuleKind classifies the output form of a module.
type ModuleKind uint8

const (
	KindLibrary ModuleKind = iota
	KindConsole
	KindWindows
)

func (k ModuleKind) String() string {
	switch k {
	case KindLibrary:
		return "library"
	case KindConsole:
		return "exe"
	case KindWindows:
		return "winexe"
	default:
		return "unknown"
	}
}

// IsExecutable reports whether the kind needs an entry point.
func (k ModuleKind) IsExecutable() bool { return k == KindConsole || k == KindWindows }

// PEKind mirrors the portable-executable kind flags of a module.
type PEKind uint8

const (
	PEILOnly PEKind = 1 << iota
	PERequired32Bit
	PE32Plus
	PEUnmanaged32Bit
)

// PEMachineMask selects the machine-specific bits.
const PEMachineMask = PERequired32Bit | PE32Plus | PEUnmanaged32Bit

// Strings returns textual flag labels.
func (k PEKind) Strings() []string {
	if k == 0 {
		return nil
	}
	labels := make([]string, 0, 4)
	if k&PEILOnly != 0 {
		labels = append(labels, "ilonly")
	}
	if k&PERequired32Bit != 0 {
		labels = append(labels, "32bit-required")
	}
	if k&PE32Plus != 0 {
		labels = append(labels, "pe32+")
	}
	if k&PEUnmanaged32Bit != 0 {
		labels = append(labels, "unmanaged-32bit")
	}
	return labels
}

// Resource is a named blob embedded in a module.
type Resource struct {
	Name   string
	Data   []byte
	Public bool
}

// Reference points at another assembly by identity. Module is set when the
// loader found and loaded the referenced assembly.
type Reference struct {
	Identity Identity
	Module   ModuleID
}

// SigningSource says where the strong-name key of a module comes from.
type SigningSource uint8

const (
	SignNone SigningSource = iota
	SignKeyFile
	SignKeyContainer
)

// Signing records what the writer has to do to strong-name the module.
type Signing struct {
	Source    SigningSource
	KeyFile   string
	Container string
	Delay     bool
}

// Module is one loaded assembly or the merge target.
type Module struct {
	Identity         Identity
	UniqueKey        int
	MVID             string
	Kind             ModuleKind
	PEKind           PEKind
	Types            []TypeID // Types[0] is the global members container
	Resources        []Resource
	Attributes       []Attribute
	ModuleAttributes []Attribute
	Security         []SecurityAttribute
	References       []Reference
	EntryPoint       MemberID
	Signing          Signing
}

// GlobalType returns the global members container, if any.
func (m *Module) GlobalType() TypeID {
	if m == nil || len(m.Types) == 0 {
		return NoTypeID
	}
	return m.Types[0]
}

// TopLevel returns namespace types, skipping the global container.
func (m *Module) TopLevel() []TypeID {
	if m == nil || len(m.Types) <= 1 {
		return nil
	}
	return m.Types[1:]
}

// ResourceIndex finds a resource by exact name.
func (m *Module) ResourceIndex(name string) int {
	for i := range m.Resources {
		if m.Resources[i].Name == name {
			return i
		}
	}
	return -1
}

// GlobalTypeName is the name of the global members container.
const GlobalTypeName = "<Module>"
