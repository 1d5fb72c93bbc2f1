package symtab

import (
	"github.com/tliron/commonlog"

	"github.com/xiaobogaga/jmm/compiler/internal/ast"
	"github.com/xiaobogaga/jmm/compiler/internal/report"
	"github.com/xiaobogaga/jmm/util"
)

var log = commonlog.GetLogger("jmm.symtab")

type Option func(*builder)

// Strict makes the builder warn about import continuations without a matching prefix and about methods that
// replace an earlier method with the same name. Both are silently accepted otherwise.
func Strict(strict bool) Option {
	return func(b *builder) {
		b.strict = strict
	}
}

type builder struct {
	table   *SymbolTable
	reports []report.Report
	strict  bool
	// The import entry the next continuation extends, when it does not name its prefix.
	lastImport string
	method     *Method
}

// Build walks the tree once, preorder and left to right, and collects imports, the class header, fields and the
// method registry.
func Build(root *ast.Node, opts ...Option) (*SymbolTable, []report.Report) {
	b := &builder{table: New()}
	for _, opt := range opts {
		opt(b)
	}
	b.visit(root)
	log.Debugf("built symbol table for class %s: %d imports, %d fields, %d methods", b.table.ClassName,
		len(b.table.Imports), len(b.table.Fields), len(b.table.methodOrder))
	return b.table, b.reports
}

func (b *builder) visit(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.ImportDeclarationKind:
		b.table.Imports = append(b.table.Imports, n.Name)
		b.lastImport = n.Name
	case ast.ImportContinuationKind:
		b.mergeImport(n)
	case ast.ClassDeclarationKind:
		b.table.ClassName = n.Name
		b.table.SuperClassName, b.table.HasSuperClass = n.Super, n.HasSuper
	case ast.VarDeclarationKind:
		b.declareVariable(n)
	case ast.MainMethodKind:
		argName := n.Name
		if argName == "" {
			argName = "args"
		}
		m := newMethod("main", ast.Void, true)
		m.Parameters = append(m.Parameters, Symbol{Name: argName, Type: ast.StringArray})
		b.enterMethod(n, m)
		return
	case ast.ClassMethodKind:
		if !util.IsIdentifier(n.Name) || n.Type.Name == "" {
			b.errorAt(n, "malformed method declaration %q: bad name or missing return type", n.Name)
			return
		}
		b.enterMethod(n, newMethod(n.Name, n.Type, n.Static))
		return
	case ast.ParamKind:
		b.declareParam(n)
	}
	for _, child := range n.Children {
		b.visit(child)
	}
}

func (b *builder) mergeImport(n *ast.Node) {
	prefix := n.Prefix
	if prefix == "" {
		prefix = b.lastImport
	}
	// With duplicated prefixes the most recent entry wins.
	for i := len(b.table.Imports) - 1; i >= 0; i-- {
		if b.table.Imports[i] == prefix {
			b.table.Imports[i] += "." + n.Value
			b.lastImport = b.table.Imports[i]
			return
		}
	}
	if b.strict {
		b.reports = append(b.reports, report.NewWarning(report.SemanticStage, n.Line, n.Col,
			"import continuation %q has no matching import %q", n.Value, prefix))
	}
}

func (b *builder) enterMethod(n *ast.Node, m *Method) {
	if !b.table.registerMethod(m) && b.strict {
		b.reports = append(b.reports, report.NewWarning(report.SemanticStage, n.Line, n.Col,
			"method %s redefined, the earlier definition is replaced", m.Name))
	}
	outer := b.method
	b.method = m
	for _, child := range n.Children {
		b.visit(child)
	}
	b.method = outer
}

func (b *builder) declareParam(n *ast.Node) {
	if b.method == nil {
		b.errorAt(n, "parameter %s declared outside of a method", n.Name)
		return
	}
	if !util.IsIdentifier(n.Name) || n.Type.Name == "" {
		b.errorAt(n, "malformed parameter declaration %q in method %s", n.Name, b.method.Name)
		return
	}
	if _, _, ok := b.method.LookUpParam(n.Name); ok {
		b.errorAt(n, "duplicate parameter %s in method %s", n.Name, b.method.Name)
		return
	}
	b.method.Parameters = append(b.method.Parameters, Symbol{Name: n.Name, Type: n.Type})
}

func (b *builder) declareVariable(n *ast.Node) {
	if !util.IsIdentifier(n.Name) || n.Type.Name == "" {
		b.errorAt(n, "malformed variable declaration %q: bad name or missing type", n.Name)
		return
	}
	symbol := Symbol{Name: n.Name, Type: n.Type}
	if n.Parent != nil && n.Parent.Kind == ast.ClassDeclarationKind {
		if _, ok := b.table.LookUpField(n.Name); ok {
			b.errorAt(n, "duplicate field %s in class %s", n.Name, b.table.ClassName)
			return
		}
		b.table.Fields = append(b.table.Fields, symbol)
		return
	}
	if b.method == nil {
		b.errorAt(n, "variable %s declared outside of a class or method", n.Name)
		return
	}
	if _, _, ok := b.method.LookUpParam(n.Name); ok {
		b.errorAt(n, "duplicate var %s in method %s, it is already a parameter", n.Name, b.method.Name)
		return
	}
	if !b.method.addLocal(symbol) {
		b.errorAt(n, "duplicate var %s in method %s", n.Name, b.method.Name)
	}
}

func (b *builder) errorAt(n *ast.Node, format string, args ...interface{}) {
	b.reports = append(b.reports, report.NewError(report.SemanticStage, n.Line, n.Col, format, args...))
}
