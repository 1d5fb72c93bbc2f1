package jasmin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xiaobogaga/jmm/compiler/internal/ast"
	"github.com/xiaobogaga/jmm/compiler/internal/ollir"
	"github.com/xiaobogaga/jmm/compiler/internal/report"
)

func operand(name string, t ast.Type) *ollir.Operand {
	return &ollir.Operand{Name: name, T: t}
}

func literal(v string) *ollir.Literal {
	return &ollir.Literal{Value: v, T: ast.Int}
}

func constructor() *ollir.Method {
	m := ollir.NewMethod("Main", false, ast.Void)
	m.IsConstruct = true
	m.Emit(&ollir.Call{Kind: ollir.InvokeSpecial, Receiver: operand(ollir.This, ast.ClassType("Main")), Method: "<init>", ReturnType: ast.Void})
	m.BuildVarTable()
	return m
}

// instanceMethod builds an instance method of class Main with the given parameters and body.
func instanceMethod(ret ast.Type, params []ollir.Param, body ...ollir.Instruction) *ollir.Method {
	m := ollir.NewMethod("f", false, ret)
	m.Params = params
	m.Emit(body...)
	m.BuildVarTable()
	return m
}

func generate(methods ...*ollir.Method) (string, []report.Report) {
	unit := &ollir.ClassUnit{Name: "Main", Imports: []string{"io"}, Fields: []ollir.Field{{Name: "f", T: ast.Int}}}
	unit.Methods = append([]*ollir.Method{constructor()}, methods...)
	return Generate(unit)
}

func TestGenerate_class(t *testing.T) {
	main := ollir.NewMethod("main", true, ast.Void)
	main.Params = []ollir.Param{{Name: "args", T: ast.StringArray}}
	main.Emit(&ollir.Assign{Dest: operand("x", ast.Int), T: ast.Int, Value: &ollir.SingleOp{Operand: literal("0")}})
	main.Emit(&ollir.Return{})
	main.BuildVarTable()
	unit := &ollir.ClassUnit{Name: "Main", Methods: []*ollir.Method{constructor(), main}}
	text, reports := Generate(unit)
	expect := `.class public Main
.super java/lang/Object

.method public <init>()V
  aload_0
  invokespecial java/lang/Object/<init>()V
  return
.end method

.method public static main([Ljava/lang/String;)V
  .limit stack 99
  .limit locals 2
  iconst_0
  istore_1
  return
.end method
`
	assert.Equal(t, expect, text)
	assert.Empty(t, reports)
}

func TestGenerate_superClassAndFields(t *testing.T) {
	unit := &ollir.ClassUnit{Name: "Main", Super: "Base", Imports: []string{"lib.Base"},
		Fields: []ollir.Field{{Name: "a", T: ast.IntArray}, {Name: "o", T: ast.ClassType("Main")}},
		Methods: []*ollir.Method{constructor()}}
	text, _ := Generate(unit, StackLimit(10))
	assert.Contains(t, text, ".super lib/Base\n")
	assert.Contains(t, text, ".field private a [I\n.field private o LMain;\n")
	assert.Contains(t, text, "invokespecial lib/Base/<init>()V")
}

func TestRegister(t *testing.T) {
	testData := []struct {
		register int
		expect   string
	}{
		{register: 0, expect: "_0"},
		{register: 3, expect: "_3"},
		{register: 4, expect: " 4"},
		{register: 12, expect: " 12"},
	}
	for _, d := range testData {
		assert.Equal(t, d.expect, register(d.register))
	}
}

func TestGenerate_return(t *testing.T) {
	testData := []struct {
		t      ast.Type
		expect string
	}{
		{t: ast.Int, expect: "  iload_1\n  ireturn\n"},
		{t: ast.Boolean, expect: "  iload_1\n  ireturn\n"},
		{t: ast.IntArray, expect: "  aload_1\n  areturn\n"},
		{t: ast.ClassType("Main"), expect: "  aload_1\n  areturn\n"},
	}
	for _, d := range testData {
		m := instanceMethod(d.t, []ollir.Param{{Name: "x", T: d.t}}, &ollir.Return{Value: operand("x", d.t), T: d.t})
		text, reports := generate(m)
		assert.Empty(t, reports)
		assert.Contains(t, text, d.expect)
		if d.t.Equal(ast.Int) {
			assert.NotContains(t, text, "areturn")
		}
	}
}

func TestGenerate_registersAboveThree(t *testing.T) {
	params := []ollir.Param{{Name: "a", T: ast.Int}, {Name: "b", T: ast.Int}, {Name: "c", T: ast.Int}, {Name: "d", T: ast.Int}}
	m := instanceMethod(ast.Int, params, &ollir.Return{Value: operand("d", ast.Int), T: ast.Int})
	text, _ := generate(m)
	assert.Contains(t, text, "  .limit locals 5\n  iload 4\n  ireturn\n")
}

func TestGenerate_arithmetic(t *testing.T) {
	testData := []struct {
		op     string
		expect string
	}{
		{op: ollir.Add, expect: "iadd"},
		{op: ollir.Sub, expect: "isub"},
		{op: ollir.Mul, expect: "imul"},
		{op: ollir.Div, expect: "idiv"},
	}
	for _, d := range testData {
		x := operand("x", ast.Int)
		m := instanceMethod(ast.Void, []ollir.Param{{Name: "x", T: ast.Int}},
			&ollir.Assign{Dest: x, T: ast.Int, Value: &ollir.BinaryOp{Op: d.op, Left: x, Right: literal("200"), T: ast.Int}})
		text, _ := generate(m)
		assert.Contains(t, text, "  iload_1\n  sipush 200\n  "+d.expect+"\n  istore_1\n  return\n")
	}
}

func TestGenerate_constants(t *testing.T) {
	testData := []struct {
		value  string
		expect string
	}{
		{value: "-1", expect: "iconst_m1"},
		{value: "5", expect: "iconst_5"},
		{value: "-128", expect: "bipush -128"},
		{value: "32767", expect: "sipush 32767"},
		{value: "100000", expect: "ldc 100000"},
	}
	for _, d := range testData {
		m := instanceMethod(ast.Int, nil, &ollir.Return{Value: literal(d.value), T: ast.Int})
		text, _ := generate(m)
		assert.Contains(t, text, "  "+d.expect+"\n  ireturn\n")
	}
}

func TestGenerate_booleanValue(t *testing.T) {
	x, b := operand("x", ast.Int), operand("b", ast.Boolean)
	params := []ollir.Param{{Name: "x", T: ast.Int}, {Name: "b", T: ast.Boolean}}
	testData := []struct {
		op     *ollir.BinaryOp
		expect string
	}{
		{
			op: &ollir.BinaryOp{Op: ollir.Lt, Left: x, Right: literal("3"), T: ast.Boolean},
			expect: `  iload_1
  iconst_3
  if_icmplt true_0
  iconst_0
  goto end_0
true_0:
  iconst_1
end_0:
  istore_2
`,
		},
		{
			op: &ollir.BinaryOp{Op: ollir.And, Left: b, Right: b, T: ast.Boolean},
			expect: `  iload_2
  ifeq skip_0
  iload_2
  ifne true_0
skip_0:
  iconst_0
  goto end_0
true_0:
  iconst_1
end_0:
  istore_2
`,
		},
		{
			op: &ollir.BinaryOp{Op: ollir.Not, Left: b, Right: b, T: ast.Boolean},
			expect: `  iload_2
  ifeq true_0
  iconst_0
  goto end_0
true_0:
  iconst_1
end_0:
  istore_2
`,
		},
	}
	for _, d := range testData {
		m := instanceMethod(ast.Void, params, &ollir.Assign{Dest: b, T: ast.Boolean, Value: d.op})
		text, reports := generate(m)
		assert.Empty(t, reports)
		assert.Contains(t, text, d.expect)
		assert.Empty(t, CheckLabels(text))
	}
}

func TestGenerate_branch(t *testing.T) {
	x := operand("x", ast.Int)
	m := instanceMethod(ast.Void, []ollir.Param{{Name: "x", T: ast.Int}},
		&ollir.CondBranch{Cond: &ollir.BinaryOp{Op: ollir.Ge, Left: x, Right: literal("0"), T: ast.Boolean}, Label: "ifbody_0"},
		&ollir.Goto{Label: "endif_0"},
	)
	m.AddLabel("ifbody_0")
	m.Emit(&ollir.Assign{Dest: x, T: ast.Int, Value: &ollir.SingleOp{Operand: literal("1")}})
	m.AddLabel("endif_0")
	m.Emit(&ollir.Return{})
	text, reports := generate(m)
	assert.Empty(t, reports)
	expect := `  iload_1
  iconst_0
  if_icmpge ifbody_0
  goto endif_0
ifbody_0:
  iconst_1
  istore_1
endif_0:
  return
.end method
`
	assert.Contains(t, text, expect)
	assert.NotContains(t, text, "true_")
	assert.Empty(t, CheckLabels(text))
}

func TestGenerate_labelsUniquePerMethod(t *testing.T) {
	x, b := operand("x", ast.Int), operand("b", ast.Boolean)
	lt := &ollir.BinaryOp{Op: ollir.Lt, Left: x, Right: x, T: ast.Boolean}
	m := instanceMethod(ast.Void, []ollir.Param{{Name: "x", T: ast.Int}, {Name: "b", T: ast.Boolean}},
		&ollir.Assign{Dest: b, T: ast.Boolean, Value: lt},
		&ollir.CondBranch{Cond: lt, Label: "target"},
		&ollir.Assign{Dest: b, T: ast.Boolean, Value: lt},
	)
	m.AddLabel("target")
	other := instanceMethod(ast.Void, []ollir.Param{{Name: "x", T: ast.Int}, {Name: "b", T: ast.Boolean}},
		&ollir.Assign{Dest: b, T: ast.Boolean, Value: lt})
	other.Name = "g"
	text, _ := generate(m, other)
	assert.Contains(t, text, "true_0:")
	assert.Contains(t, text, "true_2:")
	assert.NotContains(t, text, "true_1:")
	assert.Equal(t, 2, strings.Count(text, "true_0:"))
	assert.Empty(t, CheckLabels(text))
}

func TestGenerate_calls(t *testing.T) {
	main := ast.ClassType("Main")
	t0, t1, a := operand("t0", main), operand("t1", ast.Int), operand("a", ast.IntArray)
	m := instanceMethod(ast.Void, []ollir.Param{{Name: "a", T: ast.IntArray}},
		&ollir.Assign{Dest: t0, T: main, Value: &ollir.Call{Kind: ollir.New, Class: "Main", ReturnType: main}},
		&ollir.Call{Kind: ollir.InvokeSpecial, Receiver: t0, Method: "<init>", ReturnType: ast.Void},
		&ollir.Call{Kind: ollir.InvokeVirtual, Receiver: t0, Method: "get", Args: []ollir.Element{literal("1"), a}, ReturnType: ast.Int},
		&ollir.Assign{Dest: t1, T: ast.Int, Value: &ollir.Call{Kind: ollir.ArrayLength, Receiver: a, ReturnType: ast.Int}},
		&ollir.Call{Kind: ollir.InvokeStatic, Class: "io", Method: "println", Args: []ollir.Element{t1}, ReturnType: ast.Void},
		&ollir.Assign{Dest: a, T: ast.IntArray, Value: &ollir.Call{Kind: ollir.New, Args: []ollir.Element{t1}, ReturnType: ast.IntArray}},
	)
	text, reports := generate(m)
	assert.Empty(t, reports)
	expect := `  new Main
  dup
  astore_2
  invokespecial Main/<init>()V
  aload_2
  iconst_1
  aload_1
  invokevirtual Main/get(I[I)I
  pop
  aload_1
  arraylength
  istore_3
  iload_3
  invokestatic io/println(I)V
  iload_3
  newarray int
  astore_1
  return
`
	assert.Contains(t, text, expect)
}

func TestGenerate_fields(t *testing.T) {
	this, x := operand(ollir.This, ast.ClassType("Main")), operand("x", ast.Int)
	field := operand("f", ast.Int)
	m := instanceMethod(ast.Void, []ollir.Param{{Name: "x", T: ast.Int}},
		&ollir.PutField{Object: this, Field: field, Value: literal("2")},
		&ollir.Assign{Dest: x, T: ast.Int, Value: &ollir.GetField{Object: this, Field: field}},
	)
	text, _ := generate(m)
	assert.Contains(t, text, "  aload_0\n  iconst_2\n  putfield Main/f I\n  aload_0\n  getfield Main/f I\n  istore_1\n")
}

func TestGenerate_arrays(t *testing.T) {
	x := operand("x", ast.Int)
	m := instanceMethod(ast.Void, []ollir.Param{{Name: "a", T: ast.IntArray}, {Name: "x", T: ast.Int}},
		&ollir.Assign{Dest: &ollir.ArrayOperand{Name: "a", Index: literal("0"), T: ast.Int}, T: ast.Int, Value: &ollir.SingleOp{Operand: x}},
		&ollir.Assign{Dest: x, T: ast.Int, Value: &ollir.SingleOp{Operand: &ollir.ArrayOperand{Name: "a", Index: x, T: ast.Int}}},
	)
	text, _ := generate(m)
	assert.Contains(t, text, "  aload_1\n  iconst_0\n  iload_2\n  iastore\n  aload_1\n  iload_2\n  iaload\n  istore_2\n")
}

func TestGenerate_unhandled(t *testing.T) {
	m := instanceMethod(ast.Void, nil,
		&ollir.Assign{Dest: operand("s", ast.String), T: ast.String, Value: &ollir.SingleOp{Operand: &ollir.Literal{Value: "hi", T: ast.String}}})
	text, reports := generate(m)
	assert.Contains(t, text, "; <<UNHANDLED literal of type String>>")
	if assert.Len(t, reports, 1) {
		assert.Equal(t, report.JasminStage, reports[0].Stage)
		assert.Equal(t, report.ErrorKind, reports[0].Kind)
	}
}

func TestCheckLabels(t *testing.T) {
	listing := `.method public f()V
  goto a
a:
a:
  ifne b
  return
.end method
.method public g()V
b:
  goto a
.end method
`
	reports := CheckLabels(listing)
	if assert.Len(t, reports, 3) {
		assert.Contains(t, reports[0].Message, "label a defined more than once in method f()V")
		assert.Contains(t, reports[1].Message, "method f()V jumps to undefined label b")
		assert.Contains(t, reports[2].Message, "method g()V jumps to undefined label a")
	}
}

func TestCheckLabels_malformed(t *testing.T) {
	reports := CheckLabels(".method public f()V\nbad-label:\n  return\n.end method\n")
	if assert.Len(t, reports, 1) {
		assert.Equal(t, 2, reports[0].Line)
		assert.Contains(t, reports[0].Message, `malformed label "bad-label"`)
	}
}
