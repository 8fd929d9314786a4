package loader

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weld/internal/diag"
	"weld/internal/image"
	"weld/internal/metadata"
	"weld/internal/progress"
)

// writeWorld stores App (input) referencing Lib, which references Core;
// both live in the returned search directory. App also references an
// assembly that exists nowhere.
func writeWorld(t *testing.T) (inputs []string, search string) {
	t.Helper()
	a := metadata.NewArena(metadata.Hints{})
	core := metadata.NewBuilder(a, metadata.Identity{Name: "Core"})
	object := core.Type("C", "Object", metadata.TypeFlagPublic)

	lib := metadata.NewBuilder(a, metadata.Identity{Name: "Lib"})
	base := lib.Type("L", "Base", metadata.TypeFlagPublic)
	lib.Extends(base, object)
	lib.References(core.Mod)

	app := metadata.NewBuilder(a, metadata.Identity{Name: "App"})
	derived := app.Type("A", "Derived", metadata.TypeFlagPublic)
	app.Extends(derived, base)
	app.References(lib.Mod)
	app.ReferenceExternal(metadata.Identity{Name: "Missing"})

	tool := metadata.NewBuilder(a, metadata.Identity{Name: "Tool"})
	tool.Type("T", "Helper", 0)
	tool.References(lib.Mod)

	search = t.TempDir()
	in := t.TempDir()
	require.NoError(t, image.WriteFile(filepath.Join(search, "Core"+image.Ext), a, core.Mod))
	require.NoError(t, image.WriteFile(filepath.Join(search, "Lib"+image.Ext), a, lib.Mod))
	inputs = []string{
		filepath.Join(in, "App"+image.Ext),
		filepath.Join(in, "Tool"+image.Ext),
	}
	require.NoError(t, image.WriteFile(inputs[0], a, app.Mod))
	require.NoError(t, image.WriteFile(inputs[1], a, tool.Mod))
	return inputs, search
}

func TestLoadFollowsReferences(t *testing.T) {
	inputs, search := writeWorld(t)
	a := metadata.NewArena(metadata.Hints{})
	bag := diag.NewBag(10)

	res, err := Load(context.Background(), a, inputs, Options{Search: []string{t.TempDir(), search}}, diag.BagReporter{Bag: bag})
	require.NoError(t, err)

	require.Len(t, res.Inputs, 2)
	assert.Equal(t, "App", a.Module(res.Inputs[0]).Identity.Name)
	assert.Equal(t, "Tool", a.Module(res.Inputs[1]).Identity.Name)
	var refs []string
	for _, mid := range res.References {
		refs = append(refs, a.Module(mid).Identity.Name)
	}
	assert.Equal(t, []string{"Lib", "Core"}, refs)
	assert.Equal(t, []string{"Missing"}, res.Unresolved)
	assert.Zero(t, res.Unbound)

	warnings := bag.ByCode(diag.AnmUnresolvedReference)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Missing", warnings[0].Subject)

	app := a.Module(res.Inputs[0])
	require.Len(t, app.References, 2)
	assert.Equal(t, a.FindModule("Lib"), app.References[0].Module)
	assert.False(t, app.References[1].Module.IsValid())

	derived := a.Type(a.FindType(res.Inputs[0], "A", "Derived"))
	base := a.Type(derived.BaseType)
	require.NotNil(t, base)
	assert.Equal(t, "L.Base", base.FullName())
	assert.Equal(t, "C.Object", a.Type(base.BaseType).FullName())
}

func TestLoadIsDeterministicAcrossJobs(t *testing.T) {
	inputs, search := writeWorld(t)
	handles := func(jobs int) []metadata.TypeID {
		a := metadata.NewArena(metadata.Hints{})
		res, err := Load(context.Background(), a, inputs, Options{Search: []string{search}, Jobs: jobs}, diag.NopReporter{})
		require.NoError(t, err)
		var out []metadata.TypeID
		for _, mid := range append(res.Inputs, res.References...) {
			out = append(out, a.Module(mid).Types...)
		}
		return out
	}
	assert.Equal(t, handles(1), handles(8))
}

func TestLoadReportsBadInput(t *testing.T) {
	_, err := Load(context.Background(), metadata.NewArena(metadata.Hints{}),
		[]string{filepath.Join(t.TempDir(), "nope"+image.Ext)}, Options{}, diag.NopReporter{})
	fatal, ok := diag.AsFatal(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, diag.ImgIO, fatal.Code)
}

func TestLoadHonoursCancellation(t *testing.T) {
	inputs, _ := writeWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, metadata.NewArena(metadata.Hints{}), inputs, Options{}, diag.NopReporter{})
	fatal, ok := diag.AsFatal(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, diag.MrgCancelled, fatal.Code)
}

type syncSink struct {
	mu     sync.Mutex
	events []progress.Event
}

func (s *syncSink) OnEvent(ev progress.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func TestLoadReportsProgress(t *testing.T) {
	inputs, search := writeWorld(t)
	sink := &syncSink{}
	_, err := Load(context.Background(), metadata.NewArena(metadata.Hints{}), inputs,
		Options{Search: []string{search}, Jobs: 2, Progress: sink}, diag.NopReporter{})
	require.NoError(t, err)

	done := map[string]bool{}
	for _, ev := range sink.events {
		assert.Equal(t, progress.StageLoad, ev.Stage)
		if ev.Status == progress.StatusDone {
			done[ev.Assembly] = true
		}
	}
	assert.Equal(t, map[string]bool{"App": true, "Tool": true, "Lib": true, "Core": true}, done)
}

func TestAssemblyName(t *testing.T) {
	assert.Equal(t, "Lib", AssemblyName(filepath.Join("a", "b", "Lib"+image.Ext)))
}
