package jasmin

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/xiaobogaga/jmm/compiler/internal/ast"
	"github.com/xiaobogaga/jmm/compiler/internal/ollir"
	"github.com/xiaobogaga/jmm/compiler/internal/report"
)

// Translates a class unit to jasmin assembler text.
//
// Every ollir instruction is lowered on its own, values travel through the operand stack and end up in the
// register the variable table assigns. Boolean operations are lowered either to a value (0 or 1 pushed on the
// stack) or to a branch to a label when they are the condition of a CondBranch.

var log = commonlog.GetLogger("jmm.jasmin")

const DefaultStackLimit = 99

// objectTag is used when the class of a reference is unknown.
const objectTag = "Ljava/lang/Object;"

type Option func(*Generator)

func StackLimit(limit int) Option {
	return func(g *Generator) {
		if limit > 0 {
			g.stackLimit = limit
		}
	}
}

type Generator struct {
	unit       *ollir.ClassUnit
	stackLimit int
	output     bytes.Buffer
	reports    []report.Report
	// per method state.
	method  *ollir.Method
	counter int
}

func NewGenerator(unit *ollir.ClassUnit, opts ...Option) *Generator {
	g := &Generator{unit: unit, stackLimit: DefaultStackLimit}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the jasmin text of unit. Lowering never fails, combinations it cannot handle are marked in
// the output and reported.
func Generate(unit *ollir.ClassUnit, opts ...Option) (string, []report.Report) {
	g := NewGenerator(unit, opts...)
	g.generateClass()
	return g.output.String(), g.reports
}

func (g *Generator) writeOutput(format string, args ...interface{}) {
	g.output.WriteString(fmt.Sprintf(format, args...))
	g.output.WriteByte('\n')
}

func (g *Generator) writeCode(format string, args ...interface{}) {
	g.output.WriteString("  ")
	g.writeOutput(format, args...)
}

// unhandled leaves a visible mark where lowering was not possible.
func (g *Generator) unhandled(format string, args ...interface{}) {
	desc := fmt.Sprintf(format, args...)
	g.writeCode("; <<UNHANDLED %s>>", desc)
	where := "class " + g.unit.Name
	if g.method != nil {
		where = "method " + g.method.Name
	}
	g.reports = append(g.reports, report.NewError(report.JasminStage, report.NoPosition, report.NoPosition,
		"cannot lower %s in %s", desc, where))
}

func (g *Generator) superClass() string {
	if g.unit.Super == "" {
		return "java/lang/Object"
	}
	return g.className(g.unit.Super)
}

// className resolves a class name against the imports, giving its internal form, e.g. java/util/List.
func (g *Generator) className(name string) string {
	if name == g.unit.Name {
		return name
	}
	for _, imp := range g.unit.Imports {
		if imp == name || strings.HasSuffix(imp, "."+name) {
			return strings.ReplaceAll(imp, ".", "/")
		}
	}
	return name
}

// typeTag is the descriptor of t: I, Z, [I, V, or a class reference.
func (g *Generator) typeTag(t ast.Type) string {
	var tag string
	switch t.Name {
	case ast.IntName:
		tag = "I"
	case ast.BooleanName:
		tag = "Z"
	case ast.VoidName:
		tag = "V"
	case ast.StringName:
		tag = "Ljava/lang/String;"
	case "", ast.AnyName, ast.ErrorName, ollir.This:
		tag = objectTag
	default:
		tag = "L" + g.className(t.Name) + ";"
	}
	if t.IsArray {
		return "[" + tag
	}
	return tag
}

func (g *Generator) generateClass() {
	g.writeOutput(".class public %s", g.unit.Name)
	g.writeOutput(".super %s", g.superClass())
	if len(g.unit.Fields) > 0 {
		g.writeOutput("")
	}
	for _, f := range g.unit.Fields {
		g.writeOutput(".field private %s %s", f.Name, g.typeTag(f.T))
	}
	for _, m := range g.unit.Methods {
		g.writeOutput("")
		g.generateMethod(m)
	}
	log.Debugf("generated jasmin for class %s", g.unit.Name)
}

func (g *Generator) methodDescriptor(params []ollir.Param, ret ast.Type) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range params {
		b.WriteString(g.typeTag(p.T))
	}
	b.WriteByte(')')
	b.WriteString(g.typeTag(ret))
	return b.String()
}

func (g *Generator) generateMethod(m *ollir.Method) {
	g.method, g.counter = m, 0
	defer func() { g.method = nil }()
	if m.IsConstruct {
		g.writeOutput(".method public <init>()V")
		g.writeCode("aload_0")
		g.writeCode("invokespecial %s/<init>()V", g.superClass())
		g.writeCode("return")
		g.writeOutput(".end method")
		return
	}
	static := ""
	if m.IsStatic {
		static = "static "
	}
	g.writeOutput(".method public %s%s%s", static, m.Name, g.methodDescriptor(m.Params, m.ReturnType))
	g.writeCode(".limit stack %d", g.stackLimit)
	g.writeCode(".limit locals %d", len(m.VarTable))
	for i, inst := range m.Instructions {
		for _, l := range m.LabelsAt(i) {
			g.writeOutput("%s:", l)
		}
		g.generateInstruction(inst)
	}
	for _, l := range m.LabelsAt(len(m.Instructions)) {
		g.writeOutput("%s:", l)
	}
	if m.ReturnType.Equal(ast.Void) {
		if _, ok := lastInstruction(m).(*ollir.Return); !ok || len(m.LabelsAt(len(m.Instructions))) > 0 {
			g.writeCode("return")
		}
	}
	g.writeOutput(".end method")
}

func lastInstruction(m *ollir.Method) ollir.Instruction {
	if len(m.Instructions) == 0 {
		return nil
	}
	return m.Instructions[len(m.Instructions)-1]
}

func (g *Generator) generateInstruction(inst ollir.Instruction) {
	switch inst := inst.(type) {
	case *ollir.Assign:
		g.generateAssign(inst)
	case *ollir.SingleOp:
		g.load(inst.Operand)
		g.writeCode("pop")
	case *ollir.BinaryOp:
		g.generateValue(inst)
		g.writeCode("pop")
	case *ollir.Call:
		g.generateCall(inst)
		if !inst.ReturnType.Equal(ast.Void) {
			g.writeCode("pop")
		}
	case *ollir.CondBranch:
		g.generateCondBranch(inst)
	case *ollir.Goto:
		g.writeCode("goto %s", inst.Label)
	case *ollir.PutField:
		g.load(inst.Object)
		g.load(inst.Value)
		g.writeCode("putfield %s/%s %s", g.unit.Name, inst.Field.Name, g.typeTag(inst.Field.T))
	case *ollir.GetField:
		g.generateValue(inst)
		g.writeCode("pop")
	case *ollir.Return:
		g.generateReturn(inst)
	default:
		g.unhandled("instruction %T", inst)
	}
}

func (g *Generator) generateAssign(inst *ollir.Assign) {
	switch dest := inst.Dest.(type) {
	case *ollir.ArrayOperand:
		g.loadVariable(dest.Name, ast.IntArray)
		g.load(dest.Index)
		g.generateValue(inst.Value)
		g.writeCode("iastore")
	case *ollir.Operand:
		g.generateValue(inst.Value)
		g.store(dest)
	default:
		g.unhandled("assignment to %T", inst.Dest)
	}
}

// generateValue leaves the value of a right hand side on the stack.
func (g *Generator) generateValue(inst ollir.Instruction) {
	switch inst := inst.(type) {
	case *ollir.SingleOp:
		g.load(inst.Operand)
	case *ollir.BinaryOp:
		if inst.T.Equal(ast.Boolean) {
			g.generateBoolean(inst, "")
			return
		}
		g.load(inst.Left)
		g.load(inst.Right)
		switch inst.Op {
		case ollir.Add:
			g.writeCode("iadd")
		case ollir.Sub:
			g.writeCode("isub")
		case ollir.Mul:
			g.writeCode("imul")
		case ollir.Div:
			g.writeCode("idiv")
		default:
			g.unhandled("operator %s", inst.Op)
		}
	case *ollir.Call:
		g.generateCall(inst)
	case *ollir.GetField:
		g.load(inst.Object)
		g.writeCode("getfield %s/%s %s", g.unit.Name, inst.Field.Name, g.typeTag(inst.Field.T))
	default:
		g.unhandled("value %T", inst)
	}
}

func (g *Generator) generateReturn(inst *ollir.Return) {
	if inst.Value == nil {
		g.writeCode("return")
		return
	}
	g.load(inst.Value)
	switch {
	case inst.T.IsArray:
		g.writeCode("areturn")
	case inst.T.Name == ast.IntName || inst.T.Name == ast.BooleanName:
		g.writeCode("ireturn")
	case inst.T.Name == ast.VoidName:
		g.unhandled("return of a value from a void method")
	default:
		g.writeCode("areturn")
	}
}
