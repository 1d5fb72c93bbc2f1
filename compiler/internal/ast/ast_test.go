package ast

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mainClassJSON = `{
  "kind": "Program",
  "children": [
    {"kind": "ImportDeclaration", "attributes": [{"name": "name", "value": "io"}, {"name": "line", "value": "1"}]},
    {"kind": "ClassDeclaration",
     "attributes": [{"name": "name", "value": "Main"}, {"name": "line", "value": "2"}, {"name": "origin", "value": "Main.jmm"}],
     "children": [
       {"kind": "MainMethod", "attributes": [{"name": "name", "value": "a"}],
        "children": [
          {"kind": "VarDeclaration", "attributes": [{"name": "name", "value": "x"}, {"name": "type", "value": "int"}, {"name": "line", "value": "3"}, {"name": "col", "value": "9"}]}
        ]}
     ]}
  ]
}`

func checkParents(t *testing.T, n *Node) {
	for _, child := range n.Children {
		assert.Same(t, n, child.Parent)
		count := 0
		for _, c := range n.Children {
			if c == child {
				count++
			}
		}
		assert.Equal(t, 1, count)
		checkParents(t, child)
	}
}

func TestDecodeJSON(t *testing.T) {
	root, err := DecodeJSON(strings.NewReader(mainClassJSON))
	require.NoError(t, err)
	assert.Nil(t, root.Parent)
	assert.Equal(t, ProgramKind, root.Kind)
	checkParents(t, root)

	class := root.Child(1)
	assert.Equal(t, ClassDeclarationKind, class.Kind)
	assert.Equal(t, "Main", class.Name)
	assert.False(t, class.HasSuper)
	origin, ok := class.Attr("origin")
	assert.True(t, ok)
	assert.Equal(t, "Main.jmm", origin)

	decl := class.Child(0).Child(0)
	assert.Equal(t, VarDeclarationKind, decl.Kind)
	assert.Equal(t, Int, decl.Type)
	assert.Equal(t, 3, decl.Line)
	assert.Equal(t, 9, decl.Col)
	assert.Equal(t, NoFold, decl.Folded)
	assert.Same(t, class, decl.Ancestor(ClassDeclarationKind))
}

func TestDecodeJSON_errors(t *testing.T) {
	testData := []string{
		`{"kind": "Lambda"}`,
		`{"kind": "Program", "children": [{"kind": "IntegerLiteral", "attributes": [{"name": "line", "value": "x"}]}]}`,
		`{"kind": `,
		`{"kind": "Program", "children": [null]}`,
		`{"kind": "Program", "children": [{"kind": "Block", "children": [{"kind": "Block"}, null]}]}`,
	}
	for _, d := range testData {
		_, err := DecodeJSON(strings.NewReader(d))
		assert.Error(t, err, d)
	}
}

func TestCBOR(t *testing.T) {
	root, err := DecodeJSON(strings.NewReader(mainClassJSON))
	require.NoError(t, err)
	data, err := EncodeCBOR(root)
	require.NoError(t, err)
	again, err := EncodeCBOR(root)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	decoded, err := DecodeCBOR(data)
	require.NoError(t, err)
	checkParents(t, decoded)
	var want, got bytes.Buffer
	require.NoError(t, EncodeJSON(&want, root))
	require.NoError(t, EncodeJSON(&got, decoded))
	assert.Equal(t, want.String(), got.String())
}

func TestNode_builders(t *testing.T) {
	lit := NewNode(IntegerLiteralKind).WithValue("5").At(1, 2)
	op := NewNode(BinaryOperationKind, lit, NewNode(IntegerLiteralKind).WithValue("0")).WithOp("/")
	assert.Same(t, op, lit.Parent)
	assert.Nil(t, op.Child(2))
	v, ok := op.Attr("op")
	assert.True(t, ok)
	assert.Equal(t, "/", v)
	_, ok = op.Attr("missing")
	assert.False(t, ok)

	var kinds []Kind
	Walk(op, func(n *Node) bool {
		kinds = append(kinds, n.Kind)
		return true
	})
	assert.Equal(t, []Kind{BinaryOperationKind, IntegerLiteralKind, IntegerLiteralKind}, kinds)
}

func TestKind(t *testing.T) {
	for k := ProgramKind; k < kindCount; k++ {
		parsed, ok := ParseKind(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, parsed)
	}
	assert.True(t, BinaryOperationKind.IsExpression())
	assert.False(t, WhileKind.IsExpression())
}

func TestType(t *testing.T) {
	assert.True(t, IntArray.Equal(Type{Name: "int", IsArray: true}))
	assert.False(t, IntArray.Equal(Int))
	assert.True(t, Any.AssignableTo(Boolean))
	assert.False(t, Int.AssignableTo(Boolean))
	assert.Equal(t, "int[]", IntArray.String())
	assert.True(t, String.IsPrimitive())
	assert.False(t, ClassType("Foo").IsPrimitive())
}
