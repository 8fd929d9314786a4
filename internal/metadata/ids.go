package metadata

// ModuleID identifies a module (assembly) inside the arena.
type ModuleID uint32

// TypeID identifies a type node inside the arena.
type TypeID uint32

// MemberID identifies a member node inside the arena.
type MemberID uint32

const (
	// NoModuleID marks the absence of a module reference.
	NoModuleID ModuleID = 0
	// NoTypeID marks the absence of a type reference.
	NoTypeID TypeID = 0
	// NoMemberID marks the absence of a member reference.
	NoMemberID MemberID = 0
)

// IsValid reports whether the module ID refers to an allocated module.
func (id ModuleID) IsValid() bool { return id != NoModuleID }

// IsValid reports whether the type ID refers to an allocated type.
func (id TypeID) IsValid() bool { return id != NoTypeID }

// IsValid reports whether the member ID refers to an allocated member.
func (id MemberID) IsValid() bool { return id != NoMemberID }
