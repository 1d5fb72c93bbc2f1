package gen

import (
	"fmt"

	"github.com/xiaobogaga/jmm/compiler/internal/ast"
	"github.com/xiaobogaga/jmm/compiler/internal/ollir"
)

// lowerExpr lowers n to a single element, spilling anything that is not already one into a temporary.
func (g *generator) lowerExpr(n *ast.Node, f *fragment, sc scope, want ast.Type) ollir.Element {
	v := g.lowerValue(n, f, sc, want)
	if s, ok := v.(*ollir.SingleOp); ok {
		return s.Operand
	}
	t := g.temp(sc, valueType(v, want))
	f.emit(&ollir.Assign{Dest: t, T: t.T, Value: v})
	return t
}

func valueType(v ollir.Instruction, want ast.Type) ast.Type {
	switch v := v.(type) {
	case *ollir.BinaryOp:
		return v.T
	case *ollir.Call:
		return v.ReturnType
	case *ollir.GetField:
		return v.Field.T
	}
	return want
}

// lowerValue lowers n to the right hand side of an assignment. want is the type the context expects, used for
// calls whose return type is unknown.
func (g *generator) lowerValue(n *ast.Node, f *fragment, sc scope, want ast.Type) ollir.Instruction {
	if n == nil {
		g.errorAt(sc.node, "missing expression in method %s", sc.method.Name)
		return &ollir.SingleOp{Operand: placeholder(want)}
	}
	if lit := constant(n); lit != nil {
		return &ollir.SingleOp{Operand: lit}
	}
	switch n.Kind {
	case ast.ParenthesisKind:
		return g.lowerValue(n.Child(0), f, sc, want)
	case ast.VariableKind:
		t, local := g.variable(n.Name, sc)
		if local {
			return &ollir.SingleOp{Operand: &ollir.Operand{Name: n.Name, T: t}}
		}
		return &ollir.GetField{Object: g.this(), Field: &ollir.Operand{Name: n.Name, T: t}}
	case ast.ThisKind:
		return &ollir.SingleOp{Operand: g.this()}
	case ast.BinaryOperationKind:
		operand := ast.Int
		if n.Op == ollir.And {
			operand = ast.Boolean
		}
		left := g.lowerExpr(n.Child(0), f, sc, operand)
		right := g.lowerExpr(n.Child(1), f, sc, operand)
		t := ast.Int
		if ollir.IsRelational(n.Op) || n.Op == ollir.And {
			t = ast.Boolean
		}
		return &ollir.BinaryOp{Op: n.Op, Left: left, Right: right, T: t}
	case ast.NotKind:
		operand := g.lowerExpr(n.Child(0), f, sc, ast.Boolean)
		return &ollir.BinaryOp{Op: ollir.Not, Left: operand, Right: operand, T: ast.Boolean}
	case ast.NewObjectKind:
		class := ast.ClassType(n.Name)
		t := g.temp(sc, class)
		f.emit(&ollir.Assign{Dest: t, T: class, Value: &ollir.Call{Kind: ollir.New, Class: n.Name, ReturnType: class}})
		f.emit(&ollir.Call{Kind: ollir.InvokeSpecial, Receiver: t, Method: "<init>", ReturnType: ast.Void})
		return &ollir.SingleOp{Operand: t}
	case ast.NewIntArrayKind:
		size := g.lowerExpr(n.Child(0), f, sc, ast.Int)
		return &ollir.Call{Kind: ollir.New, Args: []ollir.Element{size}, ReturnType: ast.IntArray}
	case ast.ArrayAccessKind:
		array := g.arrayElement(n.Child(0), f, sc)
		index := g.lowerExpr(n.Child(1), f, sc, ast.Int)
		return &ollir.SingleOp{Operand: &ollir.ArrayOperand{Name: array, Index: index, T: ast.Int}}
	case ast.ArrayLengthKind:
		array := g.lowerExpr(n.Child(0), f, sc, ast.IntArray)
		return &ollir.Call{Kind: ollir.ArrayLength, Receiver: array, ReturnType: ast.Int}
	case ast.MethodCallKind:
		return g.call(n, f, sc, want, false)
	}
	g.errorAt(n, "cannot lower %s to an expression", n.Kind)
	return &ollir.SingleOp{Operand: placeholder(want)}
}

// placeholder stands in for an expression that could not be lowered, so that the unit stays well formed.
func placeholder(want ast.Type) *ollir.Literal {
	if want.Equal(ast.Boolean) {
		return &ollir.Literal{Value: "0", T: ast.Boolean}
	}
	return &ollir.Literal{Value: "0", T: ast.Int}
}

// constant returns the literal for a folded or literal int or boolean expression, nil otherwise.
func constant(n *ast.Node) *ollir.Literal {
	value := n.Folded
	if value == ast.NoFold || value == "" {
		switch n.Kind {
		case ast.IntegerLiteralKind, ast.BooleanLiteralKind:
			value = n.Value
		default:
			return nil
		}
	}
	switch value {
	case "true":
		return &ollir.Literal{Value: "1", T: ast.Boolean}
	case "false":
		return &ollir.Literal{Value: "0", T: ast.Boolean}
	}
	return &ollir.Literal{Value: value, T: ast.Int}
}

// call lowers a method call. standalone calls keep their value unused, an unknown return type is void for them.
func (g *generator) call(n *ast.Node, f *fragment, sc scope, want ast.Type, standalone bool) ollir.Instruction {
	receiver := n.Child(0)
	if receiver == nil {
		g.errorAt(n, "call of %s without a receiver", n.Name)
		return &ollir.SingleOp{Operand: placeholder(want)}
	}
	args := n.Children[1:]
	ret := n.Inferred
	var params []ast.Type
	if m := g.table.LookUpMethodByName(n.Name); m != nil && receiver.Inferred.Name == g.table.ClassName {
		ret = m.ReturnType
		params = m.ParamTypes()
	}
	if ret.Name == ast.AnyName || ret.Name == "" {
		switch {
		case want.Name != ast.AnyName && want.Name != "":
			ret = want
		case standalone:
			ret = ast.Void
		default:
			ret = ast.Int
		}
	}
	c := &ollir.Call{Method: n.Name, ReturnType: ret}
	if g.isClassReference(receiver, sc) {
		c.Kind, c.Class = ollir.InvokeStatic, receiver.Name
	} else {
		c.Kind, c.Receiver = ollir.InvokeVirtual, g.lowerExpr(receiver, f, sc, ast.Any)
	}
	for i, arg := range args {
		argType := ast.Int
		if i < len(params) {
			argType = params[i]
		}
		c.Args = append(c.Args, g.lowerExpr(arg, f, sc, argType))
	}
	return c
}

func (g *generator) isClassReference(n *ast.Node, sc scope) bool {
	if n.Kind != ast.VariableKind {
		return false
	}
	if _, ok := sc.method.LookUpLocal(n.Name); ok {
		return false
	}
	if _, _, ok := sc.method.LookUpParam(n.Name); ok {
		return false
	}
	if _, ok := g.table.LookUpField(n.Name); ok {
		return false
	}
	return g.table.IsImported(n.Name)
}

// variable resolves name like the analyzer does. local is false for fields.
func (g *generator) variable(name string, sc scope) (ast.Type, bool) {
	if s, ok := sc.method.LookUpLocal(name); ok {
		return s.Type, true
	}
	if s, _, ok := sc.method.LookUpParam(name); ok {
		return s.Type, true
	}
	if s, ok := g.table.LookUpField(name); ok {
		return s.Type, false
	}
	return ast.Int, true
}

// arrayName returns a variable holding the array called name, loading it first when it is a field.
func (g *generator) arrayName(name string, f *fragment, sc scope) string {
	t, local := g.variable(name, sc)
	if local {
		return name
	}
	tmp := g.temp(sc, t)
	f.emit(&ollir.Assign{Dest: tmp, T: t, Value: &ollir.GetField{Object: g.this(), Field: &ollir.Operand{Name: name, T: t}}})
	return tmp.Name
}

func (g *generator) arrayElement(n *ast.Node, f *fragment, sc scope) string {
	if n != nil && n.Kind == ast.VariableKind {
		return g.arrayName(n.Name, f, sc)
	}
	e := g.lowerExpr(n, f, sc, ast.IntArray)
	if o, ok := e.(*ollir.Operand); ok {
		return o.Name
	}
	t := g.temp(sc, ast.IntArray)
	f.emit(&ollir.Assign{Dest: t, T: ast.IntArray, Value: &ollir.SingleOp{Operand: e}})
	return t.Name
}

func (g *generator) this() *ollir.Operand {
	return &ollir.Operand{Name: ollir.This, T: ast.ClassType(g.table.ClassName)}
}

// temp returns a fresh temporary, skipping names the program already uses.
func (g *generator) temp(sc scope, t ast.Type) *ollir.Operand {
	for {
		name := fmt.Sprintf("t%d", *sc.temps)
		*sc.temps++
		if _, ok := sc.method.LookUpLocal(name); ok {
			continue
		}
		if _, _, ok := sc.method.LookUpParam(name); ok {
			continue
		}
		if _, ok := g.table.LookUpField(name); ok {
			continue
		}
		return &ollir.Operand{Name: name, T: t}
	}
}
