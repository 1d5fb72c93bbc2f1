package semantic

import (
	"strconv"

	"github.com/xiaobogaga/jmm/compiler/internal/ast"
)

// result is what the typing traversal computes for an expression. reported is set once an error inside the
// expression has been reported, so that ancestors observing the error type do not report it again.
type result struct {
	t        ast.Type
	value    string
	reported bool
}

func typed(t ast.Type) result {
	return result{t: t, value: ast.NoFold}
}

var (
	unresolved = result{t: ast.Error, value: ast.NoFold}
	failed     = result{t: ast.Error, value: ast.NoFold, reported: true}
)

// use types an expression whose value is consumed. An error nobody reported yet, an unresolved variable, is
// reported here, at the node it originates from. n must not be nil, see useChild.
func (a *Analyzer) use(n *ast.Node, sc scope) result {
	res := a.typeOf(n, sc)
	if res.t.IsError() && !res.reported {
		a.reportUnresolved(n)
		res.reported = true
	}
	return res
}

// useChild uses the i-th child of parent, reporting at parent when the tree lacks it.
func (a *Analyzer) useChild(parent *ast.Node, i int, sc scope) result {
	child := parent.Child(i)
	if child == nil {
		a.missing(parent)
		return failed
	}
	return a.use(child, sc)
}

func (a *Analyzer) missing(parent *ast.Node) {
	a.errorAt(parent, TypeMismatch, "missing operand of %s", parent.Kind)
}

func (a *Analyzer) reportUnresolved(n *ast.Node) {
	for n.Kind == ast.ParenthesisKind && n.Child(0) != nil {
		n = n.Child(0)
	}
	if n.Kind == ast.VariableKind {
		a.errorAt(n, UnresolvedVariable, "cannot find variable %s", n.Name)
		return
	}
	a.errorAt(n, UnresolvedVariable, "cannot resolve %s", n.Kind)
}

// typeOf computes the (type, folded value) pair of n and annotates the node with it.
func (a *Analyzer) typeOf(n *ast.Node, sc scope) result {
	res := a.typeOf0(n, sc)
	n.Inferred, n.Folded = res.t, res.value
	return res
}

func (a *Analyzer) typeOf0(n *ast.Node, sc scope) result {
	switch n.Kind {
	case ast.IntegerLiteralKind:
		v, err := strconv.ParseInt(n.Value, 10, 32)
		if err != nil {
			a.errorAt(n, TypeMismatch, "invalid integer literal %q", n.Value)
			return failed
		}
		return result{t: ast.Int, value: strconv.FormatInt(v, 10)}
	case ast.BooleanLiteralKind:
		if n.Value != "true" && n.Value != "false" {
			a.errorAt(n, TypeMismatch, "invalid boolean literal %q", n.Value)
			return failed
		}
		return result{t: ast.Boolean, value: n.Value}
	case ast.ParenthesisKind:
		if n.Child(0) == nil {
			a.missing(n)
			return failed
		}
		return a.typeOf(n.Child(0), sc)
	case ast.VariableKind:
		t, found, static := a.lookUpVariable(n.Name, sc)
		if static {
			a.errorAt(n, UnresolvedVariable, "cannot use field %s in static method %s", n.Name, sc.method.Name)
			return failed
		}
		if !found {
			return unresolved
		}
		return typed(t)
	case ast.ThisKind:
		if sc.method != nil && sc.method.IsStatic {
			a.errorAt(n, TypeMismatch, "cannot use this in static method %s", sc.method.Name)
			return failed
		}
		return typed(ast.ClassType(a.table.ClassName))
	case ast.BinaryOperationKind:
		return a.typeBinary(n, sc)
	case ast.NotKind:
		operand := a.useChild(n, 0, sc)
		if operand.t.IsError() {
			return failed
		}
		if !operand.t.AssignableTo(ast.Boolean) {
			a.errorAt(n.Child(0), TypeMismatch, "operand of ! must be boolean but is %s", operand.t)
			return failed
		}
		return typed(ast.Boolean)
	case ast.NewObjectKind:
		if n.Name == "" {
			a.errorAt(n, TypeMismatch, "new without a class name")
			return failed
		}
		return typed(ast.ClassType(n.Name))
	case ast.NewIntArrayKind:
		if !a.checkIndex(n, 0, sc, "size") {
			return failed
		}
		return typed(ast.IntArray)
	case ast.ArrayAccessKind:
		array := a.checkArrayOperand(n, sc)
		index := a.checkIndex(n, 1, sc, "index")
		if array.t.IsError() || !index {
			return failed
		}
		return typed(ast.Int)
	case ast.ArrayLengthKind:
		array := a.useChild(n, 0, sc)
		if array.t.IsError() {
			return failed
		}
		if !array.t.IsArray && array.t.Name != ast.AnyName {
			a.errorAt(n.Child(0), TypeMismatch, "%s is not an array", array.t)
			return failed
		}
		return typed(ast.Int)
	case ast.MethodCallKind:
		return a.typeCall(n, sc)
	}
	a.errorAt(n, TypeMismatch, "%s is not an expression", n.Kind)
	return failed
}

func (a *Analyzer) typeBinary(n *ast.Node, sc scope) result {
	var operand ast.Type
	var ret ast.Type
	switch n.Op {
	case "+", "-", "*", "/":
		operand, ret = ast.Int, ast.Int
	case "<", "<=", ">", ">=":
		operand, ret = ast.Int, ast.Boolean
	case "&&":
		operand, ret = ast.Boolean, ast.Boolean
	default:
		// The operands are still typed so that errors inside them surface.
		for i := range n.Children {
			a.useChild(n, i, sc)
		}
		a.errorAt(n, UnsupportedOperation, "unsupported operator %q", n.Op)
		return failed
	}
	if len(n.Children) != 2 || n.Child(0) == nil || n.Child(1) == nil {
		a.errorAt(n, TypeMismatch, "operator %s expects two operands", n.Op)
		return failed
	}
	left, right := a.typeOf(n.Child(0), sc), a.typeOf(n.Child(1), sc)
	ok := a.checkOperand(n, n.Child(0), left, operand)
	ok = a.checkOperand(n, n.Child(1), right, operand) && ok
	if !ok {
		return failed
	}
	if ret.Equal(ast.Int) {
		return a.fold(n, left, right)
	}
	return typed(ret)
}

// checkOperand reports at the operand itself, and only when the error has not been reported further down.
func (a *Analyzer) checkOperand(op, child *ast.Node, res result, expected ast.Type) bool {
	if res.t.Equal(expected) || (res.t.Name == ast.AnyName && !res.reported) {
		return true
	}
	if res.reported {
		return false
	}
	if res.t.IsError() {
		a.reportUnresolved(child)
		return false
	}
	a.errorAt(child, TypeMismatch, "operand of %s must be %s but is %s", op.Op, expected, res.t)
	return false
}

// fold evaluates an integer operation with 32 bit wrap around, as the target machine does. The right operand is
// checked for zero before any division happens.
func (a *Analyzer) fold(n *ast.Node, left, right result) result {
	if n.Op == "/" && right.value == "0" {
		a.errorAt(n, DivisionByZero, "division by zero")
		return failed
	}
	if left.value == ast.NoFold || right.value == ast.NoFold {
		return typed(ast.Int)
	}
	l, errL := strconv.ParseInt(left.value, 10, 32)
	r, errR := strconv.ParseInt(right.value, 10, 32)
	if errL != nil || errR != nil {
		return typed(ast.Int)
	}
	x, y := int32(l), int32(r)
	var v int32
	switch n.Op {
	case "+":
		v = x + y
	case "-":
		v = x - y
	case "*":
		v = x * y
	case "/":
		v = x / y
	}
	return result{t: ast.Int, value: strconv.FormatInt(int64(v), 10)}
}

// checkIndex validates the i-th child of parent as an array index or size expression: it must be an integer
// literal or a well typed int binary operation. Anything else is reported at the expression.
func (a *Analyzer) checkIndex(parent *ast.Node, i int, sc scope, what string) bool {
	n := parent.Child(i)
	if n == nil {
		a.errorAt(parent, InvalidIndex, "missing %s of %s", what, parent.Kind)
		return false
	}
	res := a.typeOf(n, sc)
	if res.reported {
		return false
	}
	inner := n
	for inner.Kind == ast.ParenthesisKind && inner.Child(0) != nil {
		inner = inner.Child(0)
	}
	switch {
	case inner.Kind == ast.IntegerLiteralKind && res.t.Equal(ast.Int):
		return true
	case inner.Kind == ast.BinaryOperationKind && res.t.Equal(ast.Int):
		return true
	}
	a.errorAt(n, InvalidIndex, "%s is not an integer", what)
	return false
}

// checkArrayOperand types the array an element is read from, which must be an int array.
func (a *Analyzer) checkArrayOperand(parent *ast.Node, sc scope) result {
	res := a.useChild(parent, 0, sc)
	if res.t.IsError() {
		return res
	}
	if !res.t.Equal(ast.IntArray) && res.t.Name != ast.AnyName {
		a.errorAt(parent.Child(0), TypeMismatch, "%s is not an int array", res.t)
		return failed
	}
	return res
}

func (a *Analyzer) typeCall(n *ast.Node, sc scope) result {
	receiver := n.Child(0)
	if receiver == nil {
		a.errorAt(n, MethodNotFound, "call of %s without a receiver", n.Name)
		return failed
	}
	// A call on an imported class, e.g. io.println(x).
	if receiver.Kind == ast.VariableKind {
		if _, found, _ := a.lookUpVariable(receiver.Name, sc); !found && a.table.IsImported(receiver.Name) {
			receiver.Inferred, receiver.Folded = ast.ClassType(receiver.Name), ast.NoFold
			a.typeArgs(n, sc)
			return typed(ast.Any)
		}
	}
	recv := a.use(receiver, sc)
	if recv.t.IsError() {
		a.typeArgs(n, sc)
		return failed
	}
	if recv.t.Name != a.table.ClassName || recv.t.IsArray {
		if recv.t.IsPrimitive() || recv.t.IsArray {
			a.typeArgs(n, sc)
			a.errorAt(n, MethodNotFound, "cannot call %s on a value of type %s", n.Name, recv.t)
			return failed
		}
		// Methods of other classes are not known here.
		a.typeArgs(n, sc)
		return typed(ast.Any)
	}
	m := a.table.LookUpMethodByName(n.Name)
	if m == nil {
		a.typeArgs(n, sc)
		if a.table.HasSuperClass {
			return typed(ast.Any)
		}
		a.errorAt(n, MethodNotFound, "cannot find method %s in class %s", n.Name, a.table.ClassName)
		return failed
	}
	args := n.Children[1:]
	if len(args) != len(m.Parameters) {
		a.typeArgs(n, sc)
		a.errorAt(n, TypeMismatch, "method %s expects %d arguments but got %d", m.Name, len(m.Parameters), len(args))
		return failed
	}
	ok := true
	for i, arg := range args {
		res := a.useChild(n, i+1, sc)
		if res.t.IsError() {
			ok = false
			continue
		}
		if !res.t.AssignableTo(m.Parameters[i].Type) {
			a.errorAt(arg, TypeMismatch, "argument %d of %s must be %s but is %s", i+1, m.Name, m.Parameters[i].Type, res.t)
			ok = false
		}
	}
	if !ok {
		return failed
	}
	return typed(m.ReturnType)
}

// typeArgs types the arguments of a call whose parameters are unknown.
func (a *Analyzer) typeArgs(call *ast.Node, sc scope) {
	for i := 1; i < len(call.Children); i++ {
		a.useChild(call, i, sc)
	}
}
