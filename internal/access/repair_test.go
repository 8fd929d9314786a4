package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weld/internal/dup"
	"weld/internal/metadata"
)

type chain struct {
	arena  *metadata.Arena
	target metadata.ModuleID
	dup    *dup.Duplicator
}

// merged builds Lib with Base.Run (baseAccess) and App with Derived.Run
// (overrideAccess) overriding it, then copies both into one target.
func merged(t *testing.T, baseAccess, overrideAccess metadata.Access, overrideFlags metadata.MethodFlags) (chain, metadata.MemberID) {
	t.Helper()
	a := metadata.NewArena(metadata.Hints{})
	lib := metadata.NewBuilder(a, metadata.Identity{Name: "Lib"})
	base := lib.Type("L", "Base", metadata.TypeFlagPublic)
	vm := lib.Method(base, "Run", metadata.Method{Access: baseAccess, Flags: metadata.MethodVirtual | metadata.MethodNewSlot})

	app := metadata.NewBuilder(a, metadata.Identity{Name: "App"})
	derived := app.Type("A", "Derived", metadata.TypeFlagPublic)
	app.Extends(derived, base)
	ov := app.Method(derived, "Run", metadata.Method{Access: overrideAccess, Flags: metadata.MethodVirtual | overrideFlags, Overrides: vm})

	target := a.NewModule(metadata.Identity{Name: "Out"})
	d := dup.New(a, target, nil)
	d.Type(base, metadata.NoTypeID)
	d.Type(derived, metadata.NoTypeID)
	d.Fixup()

	copied, ok := d.Map.Member(ov)
	require.True(t, ok)
	return chain{arena: a, target: target, dup: d}, copied
}

func TestFamilyOverrideOfFamORAssemIsWidened(t *testing.T) {
	c, ov := merged(t, metadata.AccessFamORAssem, metadata.AccessFamily, 0)

	widened := Repair(c.arena, c.target, c.dup.Map.Member)
	assert.Equal(t, []metadata.MemberID{ov}, widened)
	assert.Equal(t, metadata.AccessFamORAssem, c.arena.Member(ov).Method().Access)
}

func TestNewSlotIsLeftAlone(t *testing.T) {
	c, ov := merged(t, metadata.AccessFamORAssem, metadata.AccessFamily, metadata.MethodNewSlot)

	assert.Empty(t, Repair(c.arena, c.target, c.dup.Map.Member))
	assert.Equal(t, metadata.AccessFamily, c.arena.Member(ov).Method().Access)
}

func TestFamilyBaseNeedsNothing(t *testing.T) {
	c, ov := merged(t, metadata.AccessFamily, metadata.AccessFamily, 0)

	assert.Empty(t, Repair(c.arena, c.target, c.dup.Map.Member))
	assert.Equal(t, metadata.AccessFamily, c.arena.Member(ov).Method().Access)
}

func TestExternalBaseIsNotWidened(t *testing.T) {
	a := metadata.NewArena(metadata.Hints{})
	lib := metadata.NewBuilder(a, metadata.Identity{Name: "Lib"})
	base := lib.Type("L", "Base", metadata.TypeFlagPublic)
	lib.Method(base, "Run", metadata.Method{Access: metadata.AccessFamORAssem, Flags: metadata.MethodVirtual})

	app := metadata.NewBuilder(a, metadata.Identity{Name: "App"})
	derived := app.Type("A", "Derived", metadata.TypeFlagPublic)
	app.Extends(derived, base)
	app.Method(derived, "Run", metadata.Method{Access: metadata.AccessFamily, Flags: metadata.MethodVirtual})

	// Lib остаётся внешней сборкой
	target := a.NewModule(metadata.Identity{Name: "Out"})
	d := dup.New(a, target, nil)
	d.Type(derived, metadata.NoTypeID)
	d.Fixup()

	assert.Empty(t, Repair(a, target, d.Map.Member))
}

func TestFirstAncestorDecides(t *testing.T) {
	a := metadata.NewArena(metadata.Hints{})
	b := metadata.NewBuilder(a, metadata.Identity{Name: "Lib"})
	root := b.Type("L", "Root", metadata.TypeFlagPublic)
	b.Method(root, "Run", metadata.Method{Access: metadata.AccessFamORAssem, Flags: metadata.MethodVirtual})
	mid := b.Type("L", "Mid", metadata.TypeFlagPublic)
	b.Extends(mid, root)
	b.Method(mid, "Run", metadata.Method{Access: metadata.AccessFamily, Flags: metadata.MethodVirtual})
	leaf := b.Type("L", "Leaf", metadata.TypeFlagPublic)
	b.Extends(leaf, mid)
	b.Method(leaf, "Run", metadata.Method{Access: metadata.AccessFamily, Flags: metadata.MethodVirtual})

	target := a.NewModule(metadata.Identity{Name: "Out"})
	d := dup.New(a, target, nil)
	for _, tid := range b.Module().TopLevel() {
		d.Type(tid, metadata.NoTypeID)
	}
	d.Fixup()

	widened := Repair(a, target, d.Map.Member)
	// Leaf видит Mid первым, а Mid расширяется до FamORAssem
	require.Len(t, widened, 2)
	assert.Equal(t, "Mid", a.Type(a.Member(widened[0]).DeclaringType).Name)
	assert.Equal(t, "Leaf", a.Type(a.Member(widened[1]).DeclaringType).Name)
}

func TestOrderDoesNotMatter(t *testing.T) {
	a := metadata.NewArena(metadata.Hints{})
	b := metadata.NewBuilder(a, metadata.Identity{Name: "Lib"})
	leaf := b.Type("L", "Leaf", metadata.TypeFlagPublic)
	mid := b.Type("L", "Mid", metadata.TypeFlagPublic)
	root := b.Type("L", "Root", metadata.TypeFlagPublic)
	b.Extends(leaf, mid)
	b.Extends(mid, root)
	b.Method(root, "Run", metadata.Method{Access: metadata.AccessFamORAssem, Flags: metadata.MethodVirtual})
	b.Method(mid, "Run", metadata.Method{Access: metadata.AccessFamily, Flags: metadata.MethodVirtual})
	b.Method(leaf, "Run", metadata.Method{Access: metadata.AccessFamily, Flags: metadata.MethodVirtual})

	target := a.NewModule(metadata.Identity{Name: "Out"})
	d := dup.New(a, target, nil)
	for _, tid := range b.Module().TopLevel() {
		d.Type(tid, metadata.NoTypeID)
	}
	d.Fixup()

	assert.Len(t, Repair(a, target, d.Map.Member), 2)
}

func TestNestedTypesAreVisited(t *testing.T) {
	a := metadata.NewArena(metadata.Hints{})
	b := metadata.NewBuilder(a, metadata.Identity{Name: "Lib"})
	base := b.Type("L", "Base", metadata.TypeFlagPublic)
	b.Method(base, "Run", metadata.Method{Access: metadata.AccessFamORAssem, Flags: metadata.MethodVirtual})
	outer := b.Type("L", "Outer", metadata.TypeFlagPublic)
	inner := b.Nested(outer, "Impl", 0)
	b.Extends(inner, base)
	b.Method(inner, "Run", metadata.Method{Access: metadata.AccessFamily, Flags: metadata.MethodVirtual})

	target := a.NewModule(metadata.Identity{Name: "Out"})
	d := dup.New(a, target, nil)
	for _, tid := range b.Module().TopLevel() {
		d.Type(tid, metadata.NoTypeID)
	}
	d.Fixup()

	assert.Len(t, Repair(a, target, d.Map.Member), 1)
}

func TestUnmergedAncestorIsSkipped(t *testing.T) {
	a := metadata.NewArena(metadata.Hints{})
	core := metadata.NewBuilder(a, metadata.Identity{Name: "Core"})
	root := core.Type("C", "Root", metadata.TypeFlagPublic)
	core.Method(root, "Run", metadata.Method{Access: metadata.AccessFamORAssem, Flags: metadata.MethodVirtual | metadata.MethodNewSlot})

	ext := metadata.NewBuilder(a, metadata.Identity{Name: "Ext"})
	mid := ext.Type("E", "Mid", metadata.TypeFlagPublic)
	ext.Extends(mid, root)
	ext.Method(mid, "Run", metadata.Method{Access: metadata.AccessFamily, Flags: metadata.MethodVirtual})

	app := metadata.NewBuilder(a, metadata.Identity{Name: "App"})
	leaf := app.Type("A", "Leaf", metadata.TypeFlagPublic)
	app.Extends(leaf, mid)
	run := app.Method(leaf, "Run", metadata.Method{Access: metadata.AccessFamily, Flags: metadata.MethodVirtual})

	// Ext не сливается: Leaf наследует Mid снаружи, Root уже в target
	target := a.NewModule(metadata.Identity{Name: "Out"})
	d := dup.New(a, target, nil)
	d.Type(root, metadata.NoTypeID)
	d.Type(leaf, metadata.NoTypeID)
	d.Fixup()

	copied, ok := d.Map.Member(run)
	require.True(t, ok)
	assert.Equal(t, []metadata.MemberID{copied}, Repair(a, target, d.Map.Member))
	assert.Equal(t, metadata.AccessFamORAssem, a.Member(copied).Method().Access)
	assert.Equal(t, metadata.AccessFamily, a.Member(a.MembersNamed(mid, "Run")[0]).Method().Access)

	// без таблицы копий внешний Root не засчитывается
	a.Member(copied).Method().Access = metadata.AccessFamily
	assert.Empty(t, Repair(a, target, nil))
}

func TestNestingCycleVisitsEachTypeOnce(t *testing.T) {
	a := metadata.NewArena(metadata.Hints{})
	b := metadata.NewBuilder(a, metadata.Identity{Name: "Out"})
	base := b.Type("L", "Base", metadata.TypeFlagPublic)
	b.Method(base, "Run", metadata.Method{Access: metadata.AccessFamORAssem, Flags: metadata.MethodVirtual | metadata.MethodNewSlot})
	outer := b.Type("L", "Outer", metadata.TypeFlagPublic)
	inner := b.Nested(outer, "Inner", 0)
	b.Extends(inner, base)
	b.Method(inner, "Run", metadata.Method{Access: metadata.AccessFamily, Flags: metadata.MethodVirtual})
	back := a.NewMember(metadata.Member{Name: "Outer", Body: &metadata.NestedType{Type: outer}})
	a.AddMember(inner, back)

	done := make(chan []metadata.MemberID, 1)
	go func() { done <- Repair(a, b.Mod, nil) }()
	select {
	case widened := <-done:
		assert.Len(t, widened, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("repair did not finish on a nesting cycle")
	}
}

// Ни один переопределяющий метод не уже того, что он переопределяет.
func TestOverridesNeverNarrowerAfterRepair(t *testing.T) {
	accesses := []metadata.Access{metadata.AccessFamily, metadata.AccessFamORAssem, metadata.AccessPublic}
	for _, baseAccess := range accesses {
		for _, ovAccess := range accesses {
			if !ovAccess.Covers(baseAccess) && !(ovAccess == metadata.AccessFamily && baseAccess == metadata.AccessFamORAssem) {
				continue // такие пары не компилируются и во входе не встречаются
			}
			c, ov := merged(t, baseAccess, ovAccess, 0)
			Repair(c.arena, c.target, c.dup.Map.Member)
			got := c.arena.Member(ov).Method().Access
			assert.True(t, got.Covers(baseAccess), "base=%s override=%s got=%s", baseAccess, ovAccess, got)
		}
	}
}
