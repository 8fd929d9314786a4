package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"weld/internal/metadata"
)

func TestComVisibleDefaultsToTrue(t *testing.T) {
	v, explicit := ComVisible(nil)
	assert.True(t, v)
	assert.False(t, explicit)

	v, explicit = ComVisible([]metadata.Attribute{ComVisibleAttr(false)})
	assert.False(t, v)
	assert.True(t, explicit)
}

func TestStampComVisible(t *testing.T) {
	a := metadata.NewArena(metadata.Hints{})
	b := metadata.NewBuilder(a, metadata.Identity{Name: "Asm1"})
	pub := b.Type("N", "Api", metadata.TypeFlagPublic)
	internal := b.Type("N", "Impl", 0)
	own := b.Type("N", "Own", metadata.TypeFlagPublic)
	b.Annotate(own, ComVisibleAttr(true))
	nested := b.Nested(pub, "Inner", metadata.TypeFlagPublic)
	deep := b.Nested(nested, "Deep", metadata.TypeFlagPublic)
	hidden := b.Nested(internal, "Hidden", metadata.TypeFlagPublic)

	// nested дважды: один раз из списка, один раз через Api
	n := StampComVisible(a, []metadata.TypeID{pub, internal, own, nested}, false)
	assert.Equal(t, 4, n)

	v, explicit := ComVisible(a.Type(pub).Attributes)
	assert.True(t, explicit)
	assert.False(t, v)
	assert.Empty(t, a.Type(internal).Attributes)
	assert.Len(t, a.Type(own).Attributes, 1)
	for _, tid := range []metadata.TypeID{nested, deep, hidden} {
		v, explicit := ComVisible(a.Type(tid).Attributes)
		assert.True(t, explicit, a.Type(tid).Name)
		assert.False(t, v)
		assert.Len(t, a.Type(tid).Attributes, 1)
	}
}
