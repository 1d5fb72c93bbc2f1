package ollir

import (
	"fmt"
	"strings"

	"github.com/xiaobogaga/jmm/compiler/internal/ast"
)

// TypeSuffix renders t the way OLLIR annotates values: i32, bool, V, String, array.i32 or a class name.
func TypeSuffix(t ast.Type) string {
	var name string
	switch t.Name {
	case ast.IntName:
		name = "i32"
	case ast.BooleanName:
		name = "bool"
	case ast.VoidName:
		name = "V"
	default:
		name = t.Name
	}
	if t.IsArray {
		return "array." + name
	}
	return name
}

// Element is a value an instruction reads or writes.
type Element interface {
	Type() ast.Type
	String() string
	isElement()
}

type Literal struct {
	Value string
	T     ast.Type
}

func (l *Literal) Type() ast.Type { return l.T }
func (l *Literal) String() string { return l.Value + "." + TypeSuffix(l.T) }
func (*Literal) isElement()       {}

// Operand is a named variable, a temporary or this.
type Operand struct {
	Name string
	T    ast.Type
}

func (o *Operand) Type() ast.Type { return o.T }

func (o *Operand) String() string {
	if o.Name == This {
		return This
	}
	return o.Name + "." + TypeSuffix(o.T)
}

func (*Operand) isElement() {}

// ArrayOperand is an element of an int array. T is the element type.
type ArrayOperand struct {
	Name  string
	Index Element
	T     ast.Type
}

func (a *ArrayOperand) Type() ast.Type { return a.T }

func (a *ArrayOperand) String() string {
	return fmt.Sprintf("%s[%s].%s", a.Name, a.Index, TypeSuffix(a.T))
}

func (*ArrayOperand) isElement() {}

const This = "this"

// Instruction is one three address instruction. Its rendering omits the terminating semicolon, which the
// method adds for instructions that are statements.
type Instruction interface {
	String() string
	isInstruction()
}

// Assign stores the result of Value, a SingleOp, BinaryOp, Call or GetField, into Dest.
type Assign struct {
	Dest  Element
	T     ast.Type
	Value Instruction
}

func (a *Assign) String() string {
	return fmt.Sprintf("%s :=.%s %s", a.Dest, TypeSuffix(a.T), a.Value)
}

func (*Assign) isInstruction() {}

type SingleOp struct {
	Operand Element
}

func (s *SingleOp) String() string { return s.Operand.String() }
func (*SingleOp) isInstruction()   {}

// Operators.
const (
	Add = "+"
	Sub = "-"
	Mul = "*"
	Div = "/"
	Lt  = "<"
	Le  = "<="
	Gt  = ">"
	Ge  = ">="
	And = "&&"
	Not = "!"
)

// BinaryOp applies Op to Left and Right. Not is a BinaryOp whose operands are the same element.
type BinaryOp struct {
	Op    string
	Left  Element
	Right Element
	T     ast.Type
}

func (b *BinaryOp) String() string {
	if b.Op == Not {
		return fmt.Sprintf("!.%s %s", TypeSuffix(b.T), b.Right)
	}
	return fmt.Sprintf("%s %s.%s %s", b.Left, b.Op, TypeSuffix(b.T), b.Right)
}

func (*BinaryOp) isInstruction() {}

// IsRelational reports whether op compares two ints.
func IsRelational(op string) bool {
	switch op {
	case Lt, Le, Gt, Ge:
		return true
	}
	return false
}

type CallKind int

const (
	InvokeStatic CallKind = iota
	InvokeSpecial
	InvokeVirtual
	New
	ArrayLength
)

func (k CallKind) String() string {
	switch k {
	case InvokeStatic:
		return "invokestatic"
	case InvokeSpecial:
		return "invokespecial"
	case InvokeVirtual:
		return "invokevirtual"
	case New:
		return "new"
	case ArrayLength:
		return "arraylength"
	}
	return "unknown"
}

// Call covers method invocations and object or array allocation. Class names the target of invokestatic and
// NEW, Receiver is set for every other kind. A NEW with an empty Class allocates an int array whose size is
// the only argument.
type Call struct {
	Kind       CallKind
	Receiver   Element
	Class      string
	Method     string
	Args       []Element
	ReturnType ast.Type
}

func (c *Call) String() string {
	var parts []string
	switch c.Kind {
	case InvokeStatic:
		parts = append(parts, c.Class, fmt.Sprintf("%q", c.Method))
	case New:
		if c.Class == "" {
			parts = append(parts, "array")
		} else {
			parts = append(parts, c.Class)
		}
	case ArrayLength:
		parts = append(parts, c.Receiver.String())
	default:
		parts = append(parts, c.Receiver.String(), fmt.Sprintf("%q", c.Method))
	}
	for _, arg := range c.Args {
		parts = append(parts, arg.String())
	}
	return fmt.Sprintf("%s(%s).%s", c.Kind, strings.Join(parts, ", "), TypeSuffix(c.ReturnType))
}

func (*Call) isInstruction() {}

// IsArrayAllocation reports whether c is new int[n].
func (c *Call) IsArrayAllocation() bool {
	return c.Kind == New && c.Class == ""
}

// CondBranch jumps to Label when Cond, a BinaryOp or SingleOp, is true.
type CondBranch struct {
	Cond  Instruction
	Label string
}

func (c *CondBranch) String() string { return fmt.Sprintf("if (%s) goto %s", c.Cond, c.Label) }
func (*CondBranch) isInstruction()   {}

type Goto struct {
	Label string
}

func (g *Goto) String() string { return "goto " + g.Label }
func (*Goto) isInstruction()   {}

type PutField struct {
	Object Element
	Field  *Operand
	Value  Element
}

func (p *PutField) String() string {
	return fmt.Sprintf("putfield(%s, %s, %s).V", p.Object, p.Field, p.Value)
}

func (*PutField) isInstruction() {}

type GetField struct {
	Object Element
	Field  *Operand
}

func (g *GetField) String() string {
	return fmt.Sprintf("getfield(%s, %s).%s", g.Object, g.Field, TypeSuffix(g.Field.T))
}

func (*GetField) isInstruction() {}

// Return leaves the method. Value is nil for void methods.
type Return struct {
	Value Element
	T     ast.Type
}

func (r *Return) String() string {
	if r.Value == nil {
		return "ret.V"
	}
	return fmt.Sprintf("ret.%s %s", TypeSuffix(r.T), r.Value)
}

func (*Return) isInstruction() {}
