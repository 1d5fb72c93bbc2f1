package semantic

import (
	"github.com/tliron/commonlog"

	"github.com/xiaobogaga/jmm/compiler/internal/ast"
	"github.com/xiaobogaga/jmm/compiler/internal/report"
	"github.com/xiaobogaga/jmm/compiler/internal/symtab"
)

var log = commonlog.GetLogger("jmm.semantic")

// Error conditions, used as message prefixes so tools can match on them.
const (
	DivisionByZero       = "DIVISION_BY_ZERO"
	UnsupportedOperation = "UNSUPPORTED_OPERATION"
	MethodNotFound       = "METHOD_NOT_FOUND"
	UnresolvedVariable   = "UNRESOLVED_VARIABLE"
	TypeMismatch         = "TYPE_MISMATCH"
	InvalidIndex         = "INVALID_INDEX"
)

type scopeKind int

const (
	classScope scopeKind = iota
	methodScope
)

// scope is threaded through both traversals by value. method is nil in class scope and when the enclosing
// method could not be found in the symbol table.
type scope struct {
	kind   scopeKind
	method *symtab.Method
}

type Analyzer struct {
	table   *symtab.SymbolTable
	reports []report.Report
}

func NewAnalyzer(table *symtab.SymbolTable) *Analyzer {
	return &Analyzer{table: table}
}

// Analyze type checks the tree and folds integer constants. Every node reachable from a method body is
// annotated with its inferred type and folded value. It never stops at the first error, all reports are returned.
func Analyze(root *ast.Node, table *symtab.SymbolTable) []report.Report {
	a := NewAnalyzer(table)
	a.Run(root)
	return a.Reports()
}

func (a *Analyzer) Run(root *ast.Node) {
	a.visit(root, scope{kind: classScope})
	log.Debugf("analyzed class %s: %d reports", a.table.ClassName, len(a.reports))
}

func (a *Analyzer) Reports() []report.Report {
	return a.reports
}

func (a *Analyzer) errorAt(n *ast.Node, condition string, format string, args ...interface{}) {
	a.reports = append(a.reports, report.NewError(report.SemanticStage, n.Line, n.Col, condition+": "+format, args...))
}

// visit is the structural traversal: it tracks the scope and hands expressions over to the typing traversal.
func (a *Analyzer) visit(n *ast.Node, sc scope) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.ClassDeclarationKind:
		sc = scope{kind: classScope}
	case ast.MainMethodKind:
		sc = a.enterMethod(n, "main", []ast.Type{ast.StringArray}, ast.Void)
	case ast.ClassMethodKind:
		var params []ast.Type
		for _, child := range n.Children {
			if child.Kind == ast.ParamKind {
				params = append(params, child.Type)
			}
		}
		sc = a.enterMethod(n, n.Name, params, n.Type)
	case ast.ImportDeclarationKind, ast.ImportContinuationKind, ast.VarDeclarationKind, ast.ParamKind:
		return
	case ast.IfElseKind, ast.WhileKind:
		a.checkCondition(n, sc)
		for i := 1; i < len(n.Children); i++ {
			a.visit(n.Children[i], sc)
		}
		return
	case ast.ExprStatementKind:
		a.useChild(n, 0, sc)
		return
	case ast.AssignmentKind:
		a.checkAssignment(n, sc)
		return
	case ast.ArrayAssignmentKind:
		a.checkArrayAssignment(n, sc)
		return
	case ast.ReturnKind:
		a.checkReturn(n, sc)
		return
	default:
		if n.Kind.IsExpression() {
			a.use(n, sc)
			return
		}
	}
	for _, child := range n.Children {
		a.visit(child, sc)
	}
}

func (a *Analyzer) enterMethod(n *ast.Node, name string, params []ast.Type, returnType ast.Type) scope {
	m := a.table.LookUpMethod(name, params, returnType)
	if m == nil {
		a.errorAt(n, MethodNotFound, "cannot find method %s in class %s", name, a.table.ClassName)
	}
	return scope{kind: methodScope, method: m}
}

func (a *Analyzer) checkCondition(statement *ast.Node, sc scope) {
	cond := statement.Child(0)
	if cond == nil {
		a.errorAt(statement, TypeMismatch, "missing condition of %s", statement.Kind)
		return
	}
	res := a.use(cond, sc)
	if res.t.IsError() || res.t.AssignableTo(ast.Boolean) {
		return
	}
	a.errorAt(cond, TypeMismatch, "condition must be boolean but is %s", res.t)
}

func (a *Analyzer) checkAssignment(n *ast.Node, sc scope) {
	target, ok := a.lookUpTarget(n, sc)
	res := a.useChild(n, 0, sc)
	if !ok || res.t.IsError() {
		return
	}
	if !res.t.AssignableTo(target) {
		a.errorAt(n.Child(0), TypeMismatch, "cannot assign %s to %s of type %s", res.t, n.Name, target)
	}
}

func (a *Analyzer) checkArrayAssignment(n *ast.Node, sc scope) {
	target, ok := a.lookUpTarget(n, sc)
	if ok && !target.Equal(ast.IntArray) {
		a.errorAt(n, TypeMismatch, "%s of type %s is not an int array", n.Name, target)
	}
	a.checkIndex(n, 0, sc, "index")
	res := a.useChild(n, 1, sc)
	if !res.t.IsError() && !res.t.AssignableTo(ast.Int) {
		a.errorAt(n.Child(1), TypeMismatch, "cannot store %s in an int array", res.t)
	}
}

// lookUpTarget resolves the variable an assignment writes, reporting at the statement when it does not exist.
func (a *Analyzer) lookUpTarget(n *ast.Node, sc scope) (ast.Type, bool) {
	t, found, static := a.lookUpVariable(n.Name, sc)
	switch {
	case static:
		a.errorAt(n, UnresolvedVariable, "cannot use field %s in static method %s", n.Name, sc.method.Name)
		return ast.Error, false
	case !found:
		a.errorAt(n, UnresolvedVariable, "cannot find variable %s", n.Name)
		return ast.Error, false
	}
	return t, true
}

func (a *Analyzer) checkReturn(n *ast.Node, sc scope) {
	value := n.Child(0)
	var res result
	if value != nil {
		res = a.use(value, sc)
	}
	if sc.method == nil {
		return
	}
	expected := sc.method.ReturnType
	switch {
	case value == nil && !expected.Equal(ast.Void):
		a.errorAt(n, TypeMismatch, "method %s must return a value of type %s", sc.method.Name, expected)
	case value != nil && !res.t.IsError() && !res.t.AssignableTo(expected):
		a.errorAt(value, TypeMismatch, "method %s returns %s but the value is %s", sc.method.Name, expected, res.t)
	}
}

// lookUpVariable resolves name against the current scope: locals and parameters, then fields. static is set
// when name is a field used from a static method.
func (a *Analyzer) lookUpVariable(name string, sc scope) (t ast.Type, found bool, static bool) {
	if sc.kind == methodScope {
		if sc.method == nil {
			return ast.Error, false, false
		}
		if s, ok := sc.method.LookUpLocal(name); ok {
			return s.Type, true, false
		}
		if s, _, ok := sc.method.LookUpParam(name); ok {
			return s.Type, true, false
		}
	}
	if f, ok := a.table.LookUpField(name); ok {
		if sc.method != nil && sc.method.IsStatic {
			return f.Type, false, true
		}
		return f.Type, true, false
	}
	return ast.Error, false, false
}
