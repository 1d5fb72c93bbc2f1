package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xiaobogaga/jmm/compiler/internal/ast"
	"github.com/xiaobogaga/jmm/compiler/internal/report"
)

func importNode(name string, continuations ...string) *ast.Node {
	n := ast.NewNode(ast.ImportDeclarationKind).Named(name)
	for _, c := range continuations {
		n.AddChild(ast.NewNode(ast.ImportContinuationKind).WithValue(c))
	}
	return n
}

func varDecl(name string, t ast.Type) *ast.Node {
	return ast.NewNode(ast.VarDeclarationKind).Named(name).Typed(t)
}

func TestBuild_importMerge(t *testing.T) {
	testData := []struct {
		imports []*ast.Node
		expect  []string
	}{
		{imports: []*ast.Node{importNode("a", "b")}, expect: []string{"a.b"}},
		{imports: []*ast.Node{importNode("a", "b", "c"), importNode("io")}, expect: []string{"a.b.c", "io"}},
		{imports: []*ast.Node{importNode("a"), importNode("a", "b")}, expect: []string{"a", "a.b"}},
		{
			imports: []*ast.Node{importNode("a"), ast.NewNode(ast.ImportContinuationKind).WithValue("x")},
			expect:  []string{"a.x"},
		},
	}
	for _, d := range testData {
		root := ast.NewNode(ast.ProgramKind, d.imports...)
		root.AddChild(ast.NewNode(ast.ClassDeclarationKind).Named("Main"))
		table, reports := Build(root)
		assert.Empty(t, reports)
		assert.Equal(t, d.expect, table.Imports)
	}
}

func TestBuild_importContinuationWithoutPrefix(t *testing.T) {
	orphan := ast.NewNode(ast.ImportContinuationKind).WithValue("b")
	orphan.Prefix = "nothing"
	root := ast.NewNode(ast.ProgramKind, importNode("a"), orphan)

	table, reports := Build(root)
	assert.Equal(t, []string{"a"}, table.Imports)
	assert.Empty(t, reports)

	table, reports = Build(root, Strict(true))
	assert.Equal(t, []string{"a"}, table.Imports)
	assert.Len(t, reports, 1)
	assert.Equal(t, report.WarningKind, reports[0].Kind)
}

func TestBuild_class(t *testing.T) {
	method := ast.NewNode(ast.ClassMethodKind,
		ast.NewNode(ast.ParamKind).Named("n").Typed(ast.Int),
		ast.NewNode(ast.ParamKind).Named("flags").Typed(ast.IntArray),
		ast.NewNode(ast.BlockKind, varDecl("acc", ast.Int), varDecl("ok", ast.Boolean)),
	).Named("sum").Typed(ast.Int)
	class := ast.NewNode(ast.ClassDeclarationKind,
		varDecl("total", ast.Int),
		method,
		ast.NewNode(ast.MainMethodKind, varDecl("x", ast.Int)).Named("a"),
	).Named("Main").Extends("Base")
	table, reports := Build(ast.NewNode(ast.ProgramKind, class))
	assert.Empty(t, reports)

	assert.Equal(t, "Main", table.ClassName)
	assert.True(t, table.HasSuperClass)
	assert.Equal(t, "Base", table.SuperClassName)
	assert.Equal(t, []Symbol{{Name: "total", Type: ast.Int}}, table.Fields)

	sum := table.LookUpMethod("sum", []ast.Type{ast.Int, ast.IntArray}, ast.Int)
	if assert.NotNil(t, sum) {
		assert.Equal(t, []ast.Type{ast.Int, ast.IntArray}, sum.ParamTypes())
		assert.Len(t, sum.Locals, 2)
		assert.Equal(t, "acc", sum.LocalsInOrder()[0].Name)
		assert.False(t, sum.IsStatic)
	}
	assert.Nil(t, table.LookUpMethod("sum", []ast.Type{ast.Int}, ast.Int))
	assert.Nil(t, table.LookUpMethod("sum", []ast.Type{ast.Int, ast.IntArray}, ast.Boolean))

	main := table.LookUpMethod("main", []ast.Type{ast.StringArray}, ast.Void)
	if assert.NotNil(t, main) {
		assert.True(t, main.IsStatic)
		assert.Equal(t, "a", main.Parameters[0].Name)
		_, ok := main.LookUpLocal("x")
		assert.True(t, ok)
	}
	assert.Len(t, table.Methods(), 2)
	assert.Contains(t, table.String(), "class Main extends Base")
}

func TestBuild_noSuperClass(t *testing.T) {
	table, _ := Build(ast.NewNode(ast.ClassDeclarationKind).Named("Main"))
	assert.False(t, table.HasSuperClass)
	assert.Equal(t, "", table.SuperClassName)
}

func TestBuild_methodRedefinition(t *testing.T) {
	first := ast.NewNode(ast.ClassMethodKind).Named("f").Typed(ast.Int)
	second := ast.NewNode(ast.ClassMethodKind, ast.NewNode(ast.ParamKind).Named("b").Typed(ast.Boolean)).
		Named("f").Typed(ast.Boolean)
	class := ast.NewNode(ast.ClassDeclarationKind, first, second).Named("Main")

	table, reports := Build(class)
	assert.Empty(t, reports)
	assert.Len(t, table.Methods(), 1)
	assert.Equal(t, ast.Boolean, table.LookUpMethodByName("f").ReturnType)

	_, reports = Build(class, Strict(true))
	assert.Len(t, reports, 1)
}

func TestBuild_malformed(t *testing.T) {
	testData := []struct {
		class  *ast.Node
		errors int
	}{
		{class: ast.NewNode(ast.ClassDeclarationKind, varDecl("", ast.Int)).Named("Main"), errors: 1},
		{class: ast.NewNode(ast.ClassDeclarationKind, varDecl("2x", ast.Int)).Named("Main"), errors: 1},
		{class: ast.NewNode(ast.ClassDeclarationKind, varDecl("a", ast.Int), varDecl("a", ast.Boolean)).Named("Main"), errors: 1},
		{
			class: ast.NewNode(ast.ClassDeclarationKind, ast.NewNode(ast.ClassMethodKind,
				ast.NewNode(ast.ParamKind).Named("a").Typed(ast.Int),
				varDecl("a", ast.Int),
			).Named("f").Typed(ast.Int)).Named("Main"),
			errors: 1,
		},
		{class: ast.NewNode(ast.ClassDeclarationKind, ast.NewNode(ast.ClassMethodKind).Named("f")).Named("Main"), errors: 1},
	}
	for _, d := range testData {
		_, reports := Build(d.class)
		assert.Len(t, report.Errors(reports), d.errors)
	}
}

func TestSymbolTable_IsImported(t *testing.T) {
	table := New()
	table.Imports = []string{"io", "java.util.List"}
	assert.True(t, table.IsImported("io"))
	assert.True(t, table.IsImported("List"))
	assert.False(t, table.IsImported("util"))
}
