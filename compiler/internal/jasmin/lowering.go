package jasmin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xiaobogaga/jmm/compiler/internal/ast"
	"github.com/xiaobogaga/jmm/compiler/internal/ollir"
)

// register renders a register index the way load and store instructions take it: _N for the compact forms
// (N <= 3), " N" otherwise.
func register(n int) string {
	if n <= 3 {
		return "_" + strconv.Itoa(n)
	}
	return " " + strconv.Itoa(n)
}

func isIntLike(t ast.Type) bool {
	return !t.IsArray && (t.Name == ast.IntName || t.Name == ast.BooleanName)
}

// pushConstant emits the shortest instruction pushing v.
func (g *Generator) pushConstant(value string) {
	v, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		g.unhandled("literal %q", value)
		return
	}
	switch {
	case v == -1:
		g.writeCode("iconst_m1")
	case v >= 0 && v <= 5:
		g.writeCode("iconst_%d", v)
	case v >= -128 && v <= 127:
		g.writeCode("bipush %d", v)
	case v >= -32768 && v <= 32767:
		g.writeCode("sipush %d", v)
	default:
		g.writeCode("ldc %d", v)
	}
}

// load pushes the value of e.
func (g *Generator) load(e ollir.Element) {
	switch e := e.(type) {
	case *ollir.Literal:
		if !isIntLike(e.T) {
			g.unhandled("literal of type %s", e.T)
			return
		}
		g.pushConstant(e.Value)
	case *ollir.Operand:
		if e.Name == ollir.This {
			g.writeCode("aload_0")
			return
		}
		g.loadVariable(e.Name, e.T)
	case *ollir.ArrayOperand:
		g.loadVariable(e.Name, ast.IntArray)
		g.load(e.Index)
		g.writeCode("iaload")
	default:
		g.unhandled("element %T", e)
	}
}

func (g *Generator) loadVariable(name string, t ast.Type) {
	d, ok := g.method.VarTable[name]
	if !ok {
		g.unhandled("load of unknown variable %s", name)
		return
	}
	if isIntLike(t) {
		g.writeCode("iload%s", register(d.Register))
		return
	}
	g.writeCode("aload%s", register(d.Register))
}

func (g *Generator) store(o *ollir.Operand) {
	d, ok := g.method.VarTable[o.Name]
	if !ok || o.Name == ollir.This {
		g.unhandled("store to %s", o.Name)
		return
	}
	if isIntLike(o.T) {
		g.writeCode("istore%s", register(d.Register))
		return
	}
	g.writeCode("astore%s", register(d.Register))
}

func (g *Generator) argumentDescriptor(args []ollir.Element, ret ast.Type) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, arg := range args {
		b.WriteString(g.typeTag(arg.Type()))
	}
	b.WriteByte(')')
	b.WriteString(g.typeTag(ret))
	return b.String()
}

// receiverClass is the class a virtual call is dispatched on.
func (g *Generator) receiverClass(e ollir.Element) string {
	if o, ok := e.(*ollir.Operand); ok && o.Name == ollir.This {
		return g.unit.Name
	}
	t := e.Type()
	switch t.Name {
	case "", ast.AnyName, ast.ErrorName, ollir.This:
		return "java/lang/Object"
	}
	return g.className(t.Name)
}

func (g *Generator) generateCall(c *ollir.Call) {
	switch c.Kind {
	case ollir.InvokeStatic:
		for _, arg := range c.Args {
			g.load(arg)
		}
		g.writeCode("invokestatic %s/%s%s", g.className(c.Class), c.Method, g.argumentDescriptor(c.Args, c.ReturnType))
	case ollir.InvokeVirtual:
		if c.Receiver == nil {
			g.unhandled("invokevirtual of %s without a receiver", c.Method)
			return
		}
		g.load(c.Receiver)
		for _, arg := range c.Args {
			g.load(arg)
		}
		g.writeCode("invokevirtual %s/%s%s", g.receiverClass(c.Receiver), c.Method, g.argumentDescriptor(c.Args, c.ReturnType))
	case ollir.InvokeSpecial:
		g.generateInvokeSpecial(c)
	case ollir.New:
		if c.IsArrayAllocation() {
			if len(c.Args) != 1 {
				g.unhandled("array allocation with %d sizes", len(c.Args))
				return
			}
			g.load(c.Args[0])
			g.writeCode("newarray int")
			return
		}
		g.writeCode("new %s", g.className(c.Class))
		g.writeCode("dup")
	case ollir.ArrayLength:
		if c.Receiver == nil {
			g.unhandled("arraylength without an array")
			return
		}
		g.load(c.Receiver)
		g.writeCode("arraylength")
	default:
		g.unhandled("call kind %s", c.Kind)
	}
}

// generateInvokeSpecial calls a constructor. On anything but this the reference is the duplicate the
// allocation left on the stack, so it is not loaded again.
func (g *Generator) generateInvokeSpecial(c *ollir.Call) {
	class := g.superClass()
	if o, ok := c.Receiver.(*ollir.Operand); !ok || o.Name != ollir.This {
		if c.Receiver == nil {
			g.unhandled("invokespecial without a receiver")
			return
		}
		class = g.receiverClass(c.Receiver)
	} else {
		g.writeCode("aload_0")
	}
	for _, arg := range c.Args {
		g.load(arg)
	}
	g.writeCode("invokespecial %s/%s%s", class, c.Method, g.argumentDescriptor(c.Args, ast.Void))
}

func (g *Generator) generateCondBranch(c *ollir.CondBranch) {
	switch cond := c.Cond.(type) {
	case *ollir.BinaryOp:
		if !cond.T.Equal(ast.Boolean) {
			g.unhandled("branch on %s operation", cond.T)
			return
		}
		g.generateBoolean(cond, c.Label)
	case *ollir.SingleOp:
		g.load(cond.Operand)
		g.writeCode("ifne %s", c.Label)
	default:
		g.unhandled("branch condition %T", c.Cond)
	}
}

var relationalBranch = map[string]string{
	ollir.Lt: "if_icmplt",
	ollir.Le: "if_icmple",
	ollir.Gt: "if_icmpgt",
	ollir.Ge: "if_icmpge",
}

// generateBoolean lowers a relational or logical operation. With a target label it jumps there when the
// operation is true and falls through otherwise. Without one it pushes 0 or 1, using a fresh true/end label
// pair. The counter advances once per operation, whatever its form.
func (g *Generator) generateBoolean(op *ollir.BinaryOp, target string) {
	id := g.counter
	g.counter++
	if target == "" {
		trueLabel, endLabel := fmt.Sprintf("true_%d", id), fmt.Sprintf("end_%d", id)
		g.branch(op, trueLabel, id)
		g.writeCode("iconst_0")
		g.writeCode("goto %s", endLabel)
		g.writeOutput("%s:", trueLabel)
		g.writeCode("iconst_1")
		g.writeOutput("%s:", endLabel)
		return
	}
	g.branch(op, target, id)
}

func (g *Generator) branch(op *ollir.BinaryOp, target string, id int) {
	if instruction, ok := relationalBranch[op.Op]; ok {
		g.load(op.Left)
		g.load(op.Right)
		g.writeCode("%s %s", instruction, target)
		return
	}
	switch op.Op {
	case ollir.And:
		skip := fmt.Sprintf("skip_%d", id)
		g.load(op.Left)
		g.writeCode("ifeq %s", skip)
		g.load(op.Right)
		g.writeCode("ifne %s", target)
		g.writeOutput("%s:", skip)
	case ollir.Not:
		g.load(op.Right)
		g.writeCode("ifeq %s", target)
	default:
		g.unhandled("boolean operator %s", op.Op)
	}
}
