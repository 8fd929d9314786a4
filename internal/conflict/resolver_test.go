package conflict

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weld/internal/diag"
	"weld/internal/dup"
	"weld/internal/metadata"
)

type fixture struct {
	arena  *metadata.Arena
	asm1   *metadata.Builder
	asm2   *metadata.Builder
	target metadata.ModuleID
	dup    *dup.Duplicator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	a := metadata.NewArena(metadata.Hints{})
	f := &fixture{
		arena: a,
		asm1:  metadata.NewBuilder(a, metadata.Identity{Name: "Asm1"}),
		asm2:  metadata.NewBuilder(a, metadata.Identity{Name: "Asm2"}),
	}
	f.target = a.NewModule(metadata.Identity{Name: "Out"})
	f.dup = dup.New(a, f.target, nil)
	return f
}

// copyAll duplicates every top-level type of a module into the target.
func (f *fixture) copyAll(b *metadata.Builder) {
	for _, tid := range b.Module().TopLevel() {
		f.dup.Type(tid, metadata.NoTypeID)
	}
}

func TestPublicDuplicateIsFatal(t *testing.T) {
	f := newFixture(t)
	f.asm1.Type("N", "T", metadata.TypeFlagPublic)
	f.asm2.Type("N", "T", metadata.TypeFlagPublic)
	f.copyAll(f.asm1)

	r := NewResolver(f.arena, f.dup, Options{}, nil, nil, 0)
	err := r.Resolve(f.asm2.Mod)
	require.Error(t, err)

	var fatal *diag.Fatal
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, diag.MrgDuplicateType, fatal.Code)
	assert.Contains(t, err.Error(), "N.T")
	assert.Contains(t, err.Error(), "Asm2")
}

func TestAllowAllRenamesWithUniqueKey(t *testing.T) {
	f := newFixture(t)
	f.asm1.Type("N", "T", metadata.TypeFlagPublic)
	t2 := f.asm2.Type("N", "T", metadata.TypeFlagPublic)
	f.copyAll(f.asm1)

	bag := diag.NewBag(10)
	r := NewResolver(f.arena, f.dup, Options{AllowAll: true}, diag.BagReporter{Bag: bag}, nil, 0)
	require.NoError(t, r.Resolve(f.asm2.Mod))
	f.copyAll(f.asm2)

	want := fmt.Sprintf("Asm2%d.T", f.asm2.Module().UniqueKey)
	assert.Equal(t, want, f.arena.Type(t2).Name)
	require.Len(t, r.Renamed, 1)
	assert.Equal(t, "N.T", r.Renamed[0].Old)
	assert.Equal(t, "N."+want, r.Renamed[0].New)
	renamed := bag.ByCode(diag.PolTypeRenamed)
	require.Len(t, renamed, 1)
	assert.Equal(t, "Asm2!N.T", renamed[0].Subject)
	require.Len(t, renamed[0].Notes, 1)
	assert.Equal(t, "keeps the original name", renamed[0].Notes[0].Msg)
	assert.Equal(t, "Out!N.T", renamed[0].Notes[0].Subject)

	names := map[string]struct{}{}
	for _, tid := range f.arena.Module(f.target).TopLevel() {
		full := f.arena.Type(tid).FullName()
		_, dupName := names[full]
		assert.False(t, dupName, "duplicate top-level name %s", full)
		names[full] = struct{}{}
	}
	assert.Len(t, names, 2)
}

func TestNonPublicCollisionIsRenamed(t *testing.T) {
	f := newFixture(t)
	f.asm1.Type("N", "Helper", metadata.TypeFlagPublic)
	h := f.asm2.Type("N", "Helper", 0)
	f.copyAll(f.asm1)

	r := NewResolver(f.arena, f.dup, Options{}, nil, nil, 0)
	require.NoError(t, r.Resolve(f.asm2.Mod))
	assert.NotEqual(t, "Helper", f.arena.Type(h).Name)
}

func TestCompilerGeneratedRenameOmitsKey(t *testing.T) {
	f := newFixture(t)
	f.asm1.Type("", "<PrivateImplementationDetails>", metadata.TypeFlagCompilerGenerated)
	g := f.asm2.Type("", "<PrivateImplementationDetails>", metadata.TypeFlagCompilerGenerated)
	f.copyAll(f.asm1)

	r := NewResolver(f.arena, f.dup, Options{}, nil, nil, 0)
	require.NoError(t, r.Resolve(f.asm2.Mod))
	assert.Equal(t, "Asm2.<PrivateImplementationDetails>", f.arena.Type(g).Name)
}

func TestAllowListBySimpleName(t *testing.T) {
	f := newFixture(t)
	f.asm1.Type("N", "T", metadata.TypeFlagPublic)
	f.asm1.Type("N", "U", metadata.TypeFlagPublic)
	f.asm2.Type("N", "T", metadata.TypeFlagPublic)
	f.asm2.Type("N", "U", metadata.TypeFlagPublic)
	f.copyAll(f.asm1)

	r := NewResolver(f.arena, f.dup, Options{AllowNames: []string{"T"}}, nil, nil, 0)
	err := r.Resolve(f.asm2.Mod)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "N.U")
	require.Len(t, r.Renamed, 1)
	assert.Equal(t, "N.T", r.Renamed[0].Old)
}

func TestRenameMovesResource(t *testing.T) {
	f := newFixture(t)
	f.asm1.Type("N", "Form", 0)
	f.asm2.Type("N", "Form", 0)
	f.asm2.Resource("N.Form.resources", []byte("x"))
	f.asm2.Resource("Other.resources", []byte("y"))
	f.copyAll(f.asm1)

	bag := diag.NewBag(10)
	r := NewResolver(f.arena, f.dup, Options{}, diag.BagReporter{Bag: bag}, nil, 0)
	require.NoError(t, r.Resolve(f.asm2.Mod))

	res := f.asm2.Module().Resources
	want := fmt.Sprintf("N.Asm2%d.Form.resources", f.asm2.Module().UniqueKey)
	assert.Equal(t, want, res[0].Name)
	assert.Equal(t, "Other.resources", res[1].Name)
	assert.Empty(t, bag.ByCode(diag.AnmResourceNotFound))
}

func TestRenameWithoutResourceWarns(t *testing.T) {
	f := newFixture(t)
	f.asm1.Type("N", "Form", 0)
	f.asm2.Type("N", "Form", 0)
	f.asm2.Resource("Other.resources", []byte("y"))
	f.copyAll(f.asm1)

	bag := diag.NewBag(10)
	r := NewResolver(f.arena, f.dup, Options{}, diag.BagReporter{Bag: bag}, nil, 0)
	require.NoError(t, r.Resolve(f.asm2.Mod))

	require.Len(t, r.Renamed, 1)
	missing := bag.ByCode(diag.AnmResourceNotFound)
	require.Len(t, missing, 1)
	assert.Equal(t, diag.SevWarning, missing[0].Severity)
	assert.Equal(t, "Asm2!N.Form", missing[0].Subject)
	assert.Equal(t, "Other.resources", f.asm2.Module().Resources[0].Name)
}

func TestRenameAfterCopyTouchesTargetNode(t *testing.T) {
	f := newFixture(t)
	f.asm1.Type("N", "T", 0)
	t2 := f.asm2.Type("N", "T", 0)
	f.copyAll(f.asm1)
	// тип уже скопирован до разрешения конфликта
	copied := f.dup.Type(t2, metadata.NoTypeID)

	r := NewResolver(f.arena, f.dup, Options{}, nil, nil, 0)
	require.NoError(t, r.Resolve(f.asm2.Mod))
	assert.NotEqual(t, "T", f.arena.Type(copied).Name)
	assert.Equal(t, "T", f.arena.Type(t2).Name)
}

func TestInternalizeHonoursExemptions(t *testing.T) {
	f := newFixture(t)
	keep := f.asm2.Type("N.Api", "Client", metadata.TypeFlagPublic)
	hide := f.asm2.Type("N.Impl", "Worker", metadata.TypeFlagPublic)
	qualified := f.asm2.Type("N.Impl", "Exported", metadata.TypeFlagPublic)

	ex, err := ParseExemptions([]string{"# api surface", `^N\.Api\.`, "", `^\[Asm2\]N\.Impl\.Exported$`})
	require.NoError(t, err)
	assert.Equal(t, 2, ex.Len())

	bag := diag.NewBag(10)
	n := Internalize(f.arena, f.asm2.Mod, ex, diag.BagReporter{Bag: bag})
	assert.Equal(t, 1, n)
	assert.True(t, f.arena.Type(keep).IsPublic())
	assert.False(t, f.arena.Type(hide).IsPublic())
	assert.True(t, f.arena.Type(qualified).IsPublic())
	assert.Len(t, bag.ByCode(diag.PolTypeInternalized), 1)
}

func TestBadExemptionPattern(t *testing.T) {
	_, err := ParseExemptions([]string{"ok", "(unclosed"})
	require.Error(t, err)
	fatal, ok := diag.AsFatal(err)
	require.True(t, ok)
	assert.Equal(t, diag.CfgBadExemptionPattern, fatal.Code)
	assert.Equal(t, "line 2", fatal.Subject)
}

func TestLoadExemptions(t *testing.T) {
	path := t.TempDir() + "/exclude.txt"
	require.NoError(t, writeFile(path, "^Foo\\.\n\n^Bar$\n"))
	ex, err := LoadExemptions(path)
	require.NoError(t, err)
	assert.True(t, ex.Exempt("A", "Foo.X"))
	assert.True(t, ex.Exempt("A", "Bar"))
	assert.False(t, ex.Exempt("A", "Baz"))

	_, err = LoadExemptions(path + ".missing")
	assert.Error(t, err)
}
