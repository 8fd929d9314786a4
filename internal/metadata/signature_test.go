package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignatureID(t *testing.T) {
	i32 := Ref("System.Int32")
	void := Ref("System.Void")
	str := Ref("System.String")

	tests := []struct {
		name   string
		member Member
		want   string
	}{
		{"method", Member{Name: "F", Body: &Method{Params: []TypeRef{i32}, Return: void}}, "M:F(System.Int32)System.Void"},
		{"method two params", Member{Name: "F", Body: &Method{Params: []TypeRef{i32, str}, Return: void}}, "M:F(System.Int32,System.String)System.Void"},
		{"field", Member{Name: "count", Body: &Field{Type: i32}}, "F:count:System.Int32"},
		{"property", Member{Name: "Item", Body: &Property{Type: str, Params: []TypeRef{i32}}}, "P:Item(System.Int32):System.String"},
		{"event", Member{Name: "Changed", Body: &Event{Handler: Ref("System.EventHandler")}}, "E:Changed:System.EventHandler"},
		{"nested", Member{Name: "Inner", Body: &NestedType{}}, "T:Inner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SignatureID(&tt.member))
		})
	}
}

func TestStructurallyEqual(t *testing.T) {
	a := &Member{Name: "F", Body: &Method{Params: []TypeRef{Ref("N.A")}, Return: Ref("System.Void")}}
	b := &Member{Name: "F", Body: &Method{Params: []TypeRef{Ref("N.A")}, Return: Ref("System.Void")}}
	c := &Member{Name: "F", Body: &Method{Params: []TypeRef{Ref("N.B")}, Return: Ref("System.Void")}}
	d := &Member{Name: "F", Body: &Field{Type: Ref("N.A")}}

	assert.True(t, StructurallyEqual(a, b))
	assert.False(t, StructurallyEqual(a, c))
	assert.False(t, StructurallyEqual(a, d))
}

func TestRefSplitsNamespace(t *testing.T) {
	assert.Equal(t, TypeRef{Namespace: "System.Collections", Name: "List"}, Ref("System.Collections.List"))
	assert.Equal(t, TypeRef{Name: "Plain"}, Ref("Plain"))
	assert.True(t, Ref("A.B").FuzzyEqual(TypeRef{Namespace: "A", Name: "B"}))
}

func TestAccessCovers(t *testing.T) {
	assert.True(t, AccessFamORAssem.Covers(AccessFamily))
	assert.True(t, AccessFamORAssem.Covers(AccessAssembly))
	assert.False(t, AccessFamily.Covers(AccessFamORAssem))
	assert.False(t, AccessFamily.Covers(AccessAssembly))
	assert.True(t, AccessPublic.Covers(AccessFamORAssem))
}
