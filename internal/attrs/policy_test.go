package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weld/internal/metadata"
)

var foo = metadata.Ref("N.FooAttribute")

func attr(ref metadata.TypeRef, args ...string) metadata.Attribute {
	return metadata.Attribute{Type: ref, Args: args}
}

func TestOverwriteLastWins(t *testing.T) {
	m := NewMerger(Options{Policy: OverwriteOrAppend})
	var target []metadata.Attribute
	target = m.MergeList(target, []metadata.Attribute{attr(foo, `"x"`)})
	target = m.MergeList(target, []metadata.Attribute{attr(foo, `"y"`)})

	require.Len(t, target, 1)
	assert.Equal(t, []string{`"y"`}, target[0].Args)
}

func TestOverwriteKeepFirst(t *testing.T) {
	m := NewMerger(Options{Policy: OverwriteOrAppend, KeepFirst: true})
	var target []metadata.Attribute
	target = m.MergeList(target, []metadata.Attribute{attr(foo, `"x"`)})
	target = m.MergeList(target, []metadata.Attribute{attr(foo, `"y"`)})

	require.Len(t, target, 1)
	assert.Equal(t, []string{`"x"`}, target[0].Args)
}

func TestUnionDeduplicatesIgnoringArgOrder(t *testing.T) {
	m := NewMerger(Options{Policy: Union})
	var target []metadata.Attribute
	target = m.MergeList(target, []metadata.Attribute{attr(foo, "1", "2")})
	target = m.MergeList(target, []metadata.Attribute{attr(foo, "2", "1"), attr(foo, "3")})

	require.Len(t, target, 2)
	assert.Equal(t, []string{"3"}, target[1].Args)
}

func TestAllowMultipleAppends(t *testing.T) {
	m := NewMerger(Options{Policy: AllowMultiple})
	multi := metadata.Attribute{Type: foo, Args: []string{"a"}, AllowMultiple: true}
	single := attr(metadata.Ref("N.BarAttribute"), "b")

	var target []metadata.Attribute
	target = m.MergeList(target, []metadata.Attribute{multi, single})
	target = m.MergeList(target, []metadata.Attribute{multi, attr(metadata.Ref("N.BarAttribute"), "c")})

	require.Len(t, target, 3)
	assert.True(t, target[0].Is(foo))
	assert.True(t, target[2].Is(foo))
	assert.Equal(t, []string{"c"}, target[1].Args, "single-use attributes fall back to overwrite")
}

func TestMergedAttributesAreCopies(t *testing.T) {
	m := NewMerger(Options{})
	src := []metadata.Attribute{attr(foo, "x")}
	target := m.MergeList(nil, src)
	target[0].Args[0] = "changed"
	assert.Equal(t, "x", src[0].Args[0])
}

func TestPreFilter(t *testing.T) {
	src := []metadata.Attribute{
		ComVisibleAttr(false),
		attr(metadata.AllowPartiallyTrustedCallersAttribute),
		attr(metadata.SecurityTransparentAttribute),
		attr(foo, "x"),
	}

	lib := NewMerger(Options{}).MergeList(nil, src)
	require.Len(t, lib, 3)
	assert.False(t, metadata.HasAttribute(lib, metadata.ComVisibleAttribute))

	exe := NewMerger(Options{ExecutableTarget: true}).MergeList(nil, src)
	require.Len(t, exe, 1)
	assert.True(t, exe[0].Is(foo))
}

func TestSecurityMergedPerAction(t *testing.T) {
	perm := func(name string) metadata.Attribute { return attr(metadata.Ref("System.Security.Permissions." + name)) }
	m := NewMerger(Options{Policy: Union})

	target := m.MergeSecurity(nil, []metadata.SecurityAttribute{
		{Action: metadata.ActionDemand, Permissions: []metadata.Attribute{perm("FileIOPermission")}},
	})
	target = m.MergeSecurity(target, []metadata.SecurityAttribute{
		{Action: metadata.ActionDemand, Permissions: []metadata.Attribute{perm("FileIOPermission"), perm("UIPermission")}},
		{Action: metadata.ActionAssert, Permissions: []metadata.Attribute{perm("ReflectionPermission")}},
	})

	require.Len(t, target, 2)
	assert.Equal(t, metadata.ActionDemand, target[0].Action)
	assert.Len(t, target[0].Permissions, 2)
	assert.Equal(t, metadata.ActionAssert, target[1].Action)
	assert.Len(t, target[1].Permissions, 1)
}

func TestMergeModule(t *testing.T) {
	a := metadata.NewArena(metadata.Hints{})
	dst := a.Module(a.NewModule(metadata.Identity{Name: "Out"}))
	src := &metadata.Module{
		Attributes:       []metadata.Attribute{attr(foo, "a")},
		ModuleAttributes: []metadata.Attribute{attr(metadata.Ref("N.ModAttribute"))},
		Security:         []metadata.SecurityAttribute{{Action: metadata.ActionRequestMinimum, Permissions: []metadata.Attribute{attr(metadata.Ref("N.Perm"))}}},
	}
	NewMerger(Options{}).MergeModule(dst, src)
	assert.Len(t, dst.Attributes, 1)
	assert.Len(t, dst.ModuleAttributes, 1)
	assert.Len(t, dst.Security, 1)
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{
		"":               OverwriteOrAppend,
		"overwrite":      OverwriteOrAppend,
		"Union":          Union,
		"allow-multiple": AllowMultiple,
	} {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePolicy("merge-all")
	assert.Error(t, err)
}
