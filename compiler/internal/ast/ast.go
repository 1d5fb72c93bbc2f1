package ast

import (
	"strconv"
)

// In this file, we defined the attributed tree the compiler back half works on. The tree is produced by an external
// parser, every node is parent linked and carries line/column information for diagnostics. Instead of a string
// keyed attribute bag each node carries typed fields, the string view only exists at the interchange boundary
// (see Attr and decode.go).

type Kind int

const (
	ProgramKind Kind = iota
	ImportDeclarationKind
	// A dotted path suffix attached to the previous import, e.g. the `b` of `import a.b;`.
	ImportContinuationKind
	ClassDeclarationKind
	VarDeclarationKind
	MainMethodKind
	ClassMethodKind
	ParamKind

	// Statements.
	BlockKind
	IfElseKind
	WhileKind
	ExprStatementKind
	AssignmentKind
	ArrayAssignmentKind
	ReturnKind

	// Expressions.
	BinaryOperationKind
	NotKind
	IntegerLiteralKind
	BooleanLiteralKind
	VariableKind
	ThisKind
	NewObjectKind
	NewIntArrayKind
	ArrayAccessKind
	ArrayLengthKind
	MethodCallKind
	ParenthesisKind

	kindCount
)

var kindNames = [...]string{
	ProgramKind:            "Program",
	ImportDeclarationKind:  "ImportDeclaration",
	ImportContinuationKind: "ImportContinuation",
	ClassDeclarationKind:   "ClassDeclaration",
	VarDeclarationKind:     "VarDeclaration",
	MainMethodKind:         "MainMethod",
	ClassMethodKind:        "ClassMethod",
	ParamKind:              "Param",
	BlockKind:              "Block",
	IfElseKind:             "IfElse",
	WhileKind:              "While",
	ExprStatementKind:      "ExprStatement",
	AssignmentKind:         "Assignment",
	ArrayAssignmentKind:    "ArrayAssignment",
	ReturnKind:             "Return",
	BinaryOperationKind:    "BinaryOperation",
	NotKind:                "Not",
	IntegerLiteralKind:     "IntegerLiteral",
	BooleanLiteralKind:     "BooleanLiteral",
	VariableKind:           "Variable",
	ThisKind:               "This",
	NewObjectKind:          "NewObject",
	NewIntArrayKind:        "NewIntArray",
	ArrayAccessKind:        "ArrayAccess",
	ArrayLengthKind:        "ArrayLength",
	MethodCallKind:         "MethodCall",
	ParenthesisKind:        "Parenthesis",
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// ParseKind maps the interchange name of a node kind back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// IsExpression reports whether nodes of this kind produce a value.
func (k Kind) IsExpression() bool {
	return k >= BinaryOperationKind && k < kindCount
}

type Attribute struct {
	Name  string `json:"name" cbor:"1,keyasint"`
	Value string `json:"value" cbor:"2,keyasint"`
}

// NoFold is the folded value of an expression that is not a compile time constant.
const NoFold = "null"

// Node is a single node of the tree. Which fields are meaningful depends on Kind:
//   * ImportDeclaration: Name is the imported path.
//   * ImportContinuation: Value is the suffix, Prefix (optional) the entry it extends.
//   * ClassDeclaration: Name, Super/HasSuper.
//   * VarDeclaration, Param: Name and Type.
//   * MainMethod: Name is the argument name. ClassMethod: Name, Type (return type), Static.
//   * BinaryOperation: Op. IntegerLiteral, BooleanLiteral: Value.
//   * Variable: Name. NewObject: Name (class). MethodCall: Name (method), first child is the receiver.
type Node struct {
	Kind     Kind
	Children []*Node
	Parent   *Node

	Line int
	Col  int

	Name     string
	Value    string
	Op       string
	Type     Type
	Super    string
	HasSuper bool
	Prefix   string
	Static   bool

	// Attributes the interchange carried that have no typed field, in the order they arrived.
	Extra []Attribute

	// Annotations written by the semantic analyzer.
	Inferred Type
	Folded   string
}

func NewNode(kind Kind, children ...*Node) *Node {
	n := &Node{Kind: kind, Line: -1, Col: -1, Folded: NoFold}
	for _, child := range children {
		n.AddChild(child)
	}
	return n
}

// AddChild appends child and links it back to n.
func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

func (n *Node) At(line, col int) *Node {
	n.Line, n.Col = line, col
	return n
}

func (n *Node) Named(name string) *Node {
	n.Name = name
	return n
}

func (n *Node) WithValue(value string) *Node {
	n.Value = value
	return n
}

func (n *Node) WithOp(op string) *Node {
	n.Op = op
	return n
}

func (n *Node) Typed(t Type) *Node {
	n.Type = t
	return n
}

func (n *Node) Extends(super string) *Node {
	n.Super, n.HasSuper = super, true
	return n
}

func (n *Node) AsStatic() *Node {
	n.Static = true
	return n
}

// Child returns the i-th child or nil.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Attr is the string view of the typed fields, used at the interchange boundary and for debugging.
func (n *Node) Attr(name string) (string, bool) {
	switch name {
	case "line":
		return strconv.Itoa(n.Line), n.Line >= 0
	case "col":
		return strconv.Itoa(n.Col), n.Col >= 0
	case "name":
		return n.Name, n.Name != ""
	case "value":
		return n.Value, n.Value != ""
	case "op":
		return n.Op, n.Op != ""
	case "type":
		return n.Type.Name, n.Type.Name != ""
	case "array":
		return strconv.FormatBool(n.Type.IsArray), n.Type.Name != ""
	case "super":
		return n.Super, n.HasSuper
	case "prefix":
		return n.Prefix, n.Prefix != ""
	case "static":
		return strconv.FormatBool(n.Static), true
	}
	for _, a := range n.Extra {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Ancestor returns the closest ancestor of one of the given kinds, or nil.
func (n *Node) Ancestor(kinds ...Kind) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		for _, k := range kinds {
			if p.Kind == k {
				return p
			}
		}
	}
	return nil
}

// Walk visits the tree in preorder, left to right. Children are skipped when visit returns false.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for _, child := range n.Children {
		Walk(child, visit)
	}
}
