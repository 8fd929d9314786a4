package union

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weld/internal/diag"
	"weld/internal/dup"
	"weld/internal/metadata"
)

var (
	void = metadata.Ref("System.Void")
	i32  = metadata.Ref("System.Int32")
)

type fixture struct {
	arena  *metadata.Arena
	inputs []*metadata.Builder
	target metadata.ModuleID
	dup    *dup.Duplicator
	bag    *diag.Bag
}

func newFixture(names ...string) *fixture {
	a := metadata.NewArena(metadata.Hints{})
	f := &fixture{arena: a, bag: diag.NewBag(50)}
	for _, n := range names {
		f.inputs = append(f.inputs, metadata.NewBuilder(a, metadata.Identity{Name: n}))
	}
	f.target = a.NewModule(metadata.Identity{Name: "Out"})
	f.dup = dup.New(a, f.target, nil)
	return f
}

func (f *fixture) run() *Engine {
	ids := make([]metadata.ModuleID, len(f.inputs))
	for i, b := range f.inputs {
		ids[i] = b.Mod
	}
	e := New(f.arena, f.dup, ids, diag.BagReporter{Bag: f.bag}, nil, 0)
	for _, id := range ids {
		e.Merge(id)
	}
	f.dup.Fixup()
	return e
}

func (f *fixture) targetType(ns, name string) *metadata.Type {
	return f.arena.Type(f.arena.FindType(f.target, ns, name))
}

func (f *fixture) memberNames(t *metadata.Type) []string {
	out := make([]string, 0, len(t.Members))
	for _, mid := range t.Members {
		out = append(out, f.arena.Member(mid).Name)
	}
	return out
}

func TestSameTypeMembersAreCombined(t *testing.T) {
	f := newFixture("Asm1", "Asm2")
	c1 := f.inputs[0].Type("N", "C", metadata.TypeFlagPublic)
	f.inputs[0].Method(c1, "F", metadata.Method{Return: void})
	c2 := f.inputs[1].Type("N", "C", metadata.TypeFlagPublic)
	f.inputs[1].Method(c2, "G", metadata.Method{Return: void})
	f.run()

	require.Len(t, f.arena.Module(f.target).TopLevel(), 1)
	assert.Equal(t, []string{"F", "G"}, f.memberNames(f.targetType("N", "C")))
}

func TestNoLossNoDuplication(t *testing.T) {
	f := newFixture("Asm1", "Asm2", "Asm3")
	for i, b := range f.inputs {
		c := b.Type("N", "C", metadata.TypeFlagPublic)
		b.Method(c, "Shared", metadata.Method{Return: void})
		b.Field(c, "count", metadata.Field{Type: i32})
		params := make([]metadata.TypeRef, 0, i)
		for range i {
			params = append(params, i32)
		}
		b.Method(c, "Only", metadata.Method{Params: params, Return: void})
		if i == 1 {
			b.Property(c, "Size", metadata.Property{Type: i32})
		}
		b.Type("N", "Extra"+string(rune('A'+i)), 0)
	}
	f.run()

	counts := map[string]int{}
	for _, tid := range f.arena.Module(f.target).TopLevel() {
		for _, mid := range f.arena.Type(tid).Members {
			counts[f.arena.Type(tid).FullName()+"/"+metadata.SignatureID(f.arena.Member(mid))]++
		}
	}
	for _, b := range f.inputs {
		for _, tid := range b.Module().TopLevel() {
			for _, mid := range f.arena.Type(tid).Members {
				key := f.arena.Type(tid).FullName() + "/" + metadata.SignatureID(f.arena.Member(mid))
				assert.Equal(t, 1, counts[key], "member %s", key)
			}
		}
	}
	assert.Len(t, f.arena.Module(f.target).TopLevel(), 4)
}

func TestGlobalContainerIsMergedNotCopied(t *testing.T) {
	f := newFixture("Asm1", "Asm2")
	f.inputs[0].Global("Init", metadata.Method{Return: void})
	f.inputs[1].Global("Init", metadata.Method{Return: void})
	f.inputs[1].Global("Setup", metadata.Method{Return: void})
	f.run()

	mod := f.arena.Module(f.target)
	global := f.arena.Type(mod.GlobalType())
	assert.Equal(t, []string{"Init", "Setup"}, f.memberNames(global))
	for _, tid := range mod.TopLevel() {
		assert.NotEqual(t, metadata.GlobalTypeName, f.arena.Type(tid).Name)
	}
}

func TestMatchedNestedTypesAreMerged(t *testing.T) {
	f := newFixture("Asm1", "Asm2")
	o1 := f.inputs[0].Type("N", "Outer", metadata.TypeFlagPublic)
	n1 := f.inputs[0].Nested(o1, "Inner", metadata.TypeFlagPublic)
	f.inputs[0].Method(n1, "A", metadata.Method{Return: void})
	o2 := f.inputs[1].Type("N", "Outer", metadata.TypeFlagPublic)
	n2 := f.inputs[1].Nested(o2, "Inner", metadata.TypeFlagPublic)
	f.inputs[1].Method(n2, "B", metadata.Method{Return: void})
	f.run()

	outer := f.arena.FindType(f.target, "N", "Outer")
	nested := f.arena.NestedTypes(outer)
	require.Len(t, nested, 1)
	assert.Equal(t, []string{"A", "B"}, f.memberNames(f.arena.Type(nested[0])))
}

func TestForwardedTypesRedirectReferences(t *testing.T) {
	f := newFixture("Asm1", "Asm2")
	base1 := f.inputs[0].Type("N", "Base", metadata.TypeFlagPublic)
	base2 := f.inputs[1].Type("N", "Base", metadata.TypeFlagPublic)
	d2 := f.inputs[1].Type("N", "Derived", metadata.TypeFlagPublic)
	f.inputs[1].Extends(d2, base2)
	f.run()

	tb, _ := f.dup.Map.Type(base1)
	assert.Equal(t, tb, f.targetType("N", "Derived").BaseType)
}

func TestResourcesFirstWins(t *testing.T) {
	f := newFixture("Asm1", "Asm2")
	f.inputs[0].Resource("Strings.resources", []byte("one"))
	f.inputs[1].Resource("Strings.resources", []byte("two"))
	f.inputs[1].Resource("Icons.resources", []byte("three"))
	f.run()

	res := f.arena.Module(f.target).Resources
	require.Len(t, res, 2)
	assert.Equal(t, "Strings.resources", res[0].Name)
	assert.Equal(t, []byte("one"), res[0].Data)
	assert.Equal(t, "Icons.resources", res[1].Name)
	assert.Len(t, f.bag.ByCode(diag.PolResourceDropped), 1)
}

func TestExternalReferencesAreUnified(t *testing.T) {
	a := metadata.NewArena(metadata.Hints{})
	lib1 := metadata.NewBuilder(a, metadata.Identity{Name: "Lib", Version: "1.0.0.0"})
	lt1 := lib1.Type("L", "Widget", metadata.TypeFlagPublic)
	lib2 := metadata.NewBuilder(a, metadata.Identity{Name: "Lib", Version: "2.0.0.0"})
	lt2 := lib2.Type("L", "Widget", metadata.TypeFlagPublic)

	asm1 := metadata.NewBuilder(a, metadata.Identity{Name: "Asm1"})
	asm1.References(lib1.Mod)
	c1 := asm1.Type("N", "A", metadata.TypeFlagPublic)
	asm1.Extends(c1, lt1)
	asm2 := metadata.NewBuilder(a, metadata.Identity{Name: "Asm2"})
	asm2.References(lib2.Mod, asm1.Mod)
	c2 := asm2.Type("N", "B", metadata.TypeFlagPublic)
	asm2.Extends(c2, lt2)

	target := a.NewModule(metadata.Identity{Name: "Out"})
	d := dup.New(a, target, nil)
	e := New(a, d, []metadata.ModuleID{asm1.Mod, asm2.Mod}, nil, nil, 0)
	e.Merge(asm1.Mod)
	e.Merge(asm2.Mod)
	d.Fixup()

	refs := e.References()
	require.Len(t, refs, 1, "merged inputs are never tracked")
	assert.Equal(t, lib1.Mod, refs[0].Module)
	// оба наследника смотрят на один и тот же внешний тип
	assert.Equal(t, lt1, a.Type(a.FindType(target, "N", "B")).BaseType)
	assert.Equal(t, lt1, a.Type(a.FindType(target, "N", "A")).BaseType)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(false, false))

	err := Validate(true, false)
	f, ok := diag.AsFatal(err)
	require.True(t, ok)
	assert.Equal(t, diag.CfgUnionWithAllowDup, f.Code)

	f, ok = diag.AsFatal(Validate(false, true))
	require.True(t, ok)
	assert.Equal(t, diag.CfgUnionWithInternalize, f.Code)
}
