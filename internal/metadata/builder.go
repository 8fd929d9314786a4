package metadata

// Builder assembles a module node by node. The loader uses it to
// materialise images and tests use it to write fixtures.
type Builder struct {
	Arena *Arena
	Mod   ModuleID
}

// NewBuilder allocates a new module in the arena.
func NewBuilder(a *Arena, id Identity) *Builder {
	return &Builder{Arena: a, Mod: a.NewModule(id)}
}

// Module returns the module being built.
func (b *Builder) Module() *Module { return b.Arena.Module(b.Mod) }

// Type adds a top-level type.
func (b *Builder) Type(namespace, name string, flags TypeFlags) TypeID {
	tid := b.Arena.NewType(Type{Namespace: namespace, Name: name, Flags: flags})
	b.Arena.AddTopLevel(b.Mod, tid)
	return tid
}

// Nested adds a nested type inside owner.
func (b *Builder) Nested(owner TypeID, name string, flags TypeFlags) TypeID {
	tid := b.Arena.NewType(Type{Name: name, Flags: flags})
	mid := b.Arena.NewMember(Member{Name: name, Body: &NestedType{Type: tid}})
	b.Arena.AddMember(owner, mid)
	return tid
}

// Extends sets the base type.
func (b *Builder) Extends(tid, base TypeID) { b.Arena.Type(tid).BaseType = base }

// Method adds a method to owner.
func (b *Builder) Method(owner TypeID, name string, m Method) MemberID {
	if m.Access == 0 {
		m.Access = AccessPublic
	}
	return b.add(owner, name, &m)
}

// Global adds a method to the global members container.
func (b *Builder) Global(name string, m Method) MemberID {
	if m.Flags&MethodStatic == 0 {
		m.Flags |= MethodStatic
	}
	return b.Method(b.Module().GlobalType(), name, m)
}

// Field adds a field to owner.
func (b *Builder) Field(owner TypeID, name string, f Field) MemberID {
	if f.Access == 0 {
		f.Access = AccessPrivate
	}
	return b.add(owner, name, &f)
}

// Property adds a property to owner.
func (b *Builder) Property(owner TypeID, name string, p Property) MemberID {
	return b.add(owner, name, &p)
}

// Event adds an event to owner.
func (b *Builder) Event(owner TypeID, name string, e Event) MemberID {
	return b.add(owner, name, &e)
}

func (b *Builder) add(owner TypeID, name string, body Body) MemberID {
	mid := b.Arena.NewMember(Member{Name: name, Body: body})
	b.Arena.AddMember(owner, mid)
	return mid
}

// Annotate appends attributes to a type.
func (b *Builder) Annotate(tid TypeID, attrs ...Attribute) {
	t := b.Arena.Type(tid)
	t.Attributes = append(t.Attributes, attrs...)
}

// Resource appends an embedded resource.
func (b *Builder) Resource(name string, data []byte) {
	m := b.Module()
	m.Resources = append(m.Resources, Resource{Name: name, Data: data, Public: true})
}

// References records references to other loaded modules.
func (b *Builder) References(targets ...ModuleID) {
	for _, target := range targets {
		ref := Reference{Identity: b.Arena.Module(target).Identity, Module: target}
		m := b.Module()
		m.References = append(m.References, ref)
	}
}

// ReferenceExternal records a reference to an assembly that is not loaded.
func (b *Builder) ReferenceExternal(id Identity) {
	m := b.Module()
	m.References = append(m.References, Reference{Identity: id})
}
