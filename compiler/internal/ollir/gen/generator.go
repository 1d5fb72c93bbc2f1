package gen

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/xiaobogaga/jmm/compiler/internal/ast"
	"github.com/xiaobogaga/jmm/compiler/internal/ollir"
	"github.com/xiaobogaga/jmm/compiler/internal/report"
	"github.com/xiaobogaga/jmm/compiler/internal/symtab"
)

var log = commonlog.GetLogger("jmm.ollir")

type item struct {
	label string
	inst  ollir.Instruction
}

// fragment is the code a subtree lowers to: instructions interleaved with the labels preceding them.
type fragment struct {
	items []item
}

// noEmission is what a visit returns when the node produces no code. It is dropped by reduce and never
// reaches a method body.
var noEmission = &fragment{}

func (f *fragment) emit(inst ollir.Instruction) {
	f.items = append(f.items, item{inst: inst})
}

func (f *fragment) label(name string) {
	f.items = append(f.items, item{label: name})
}

func (f *fragment) append(other *fragment) {
	f.items = append(f.items, other.items...)
}

func (f *fragment) empty() bool {
	return len(f.items) == 0
}

// scope is the method being lowered.
type scope struct {
	node   *ast.Node
	method *symtab.Method
	temps  *int
}

type generator struct {
	table   *symtab.SymbolTable
	reports []report.Report
	labels  int
}

// Generate lowers an analyzed tree to its class unit. The tree is expected to be free of semantic errors.
func Generate(root *ast.Node, table *symtab.SymbolTable) (*ollir.ClassUnit, []report.Report) {
	g := &generator{table: table}
	unit := &ollir.ClassUnit{Name: table.ClassName, Imports: table.Imports}
	if table.HasSuperClass {
		unit.Super = table.SuperClassName
	}
	for _, f := range table.Fields {
		unit.Fields = append(unit.Fields, ollir.Field{Name: f.Name, T: f.Type})
	}
	unit.Methods = append(unit.Methods, constructor(table.ClassName))
	for _, n := range g.methodNodes(root) {
		if m := g.method(n); m != nil {
			unit.Methods = append(unit.Methods, m)
		}
	}
	log.Debugf("generated %d methods for class %s", len(unit.Methods), unit.Name)
	return unit, g.reports
}

func constructor(className string) *ollir.Method {
	m := ollir.NewMethod(className, false, ast.Void)
	m.IsConstruct = true
	m.Emit(&ollir.Call{Kind: ollir.InvokeSpecial, Receiver: &ollir.Operand{Name: ollir.This, T: ast.ClassType(className)},
		Method: "<init>", ReturnType: ast.Void})
	m.BuildVarTable()
	return m
}

// methodNodes returns the method declarations in order. A redefinition replaces the earlier declaration, like
// it does in the symbol table.
func (g *generator) methodNodes(root *ast.Node) []*ast.Node {
	var ret []*ast.Node
	index := map[string]int{}
	ast.Walk(root, func(n *ast.Node) bool {
		switch n.Kind {
		case ast.MainMethodKind, ast.ClassMethodKind:
			name := n.Name
			if n.Kind == ast.MainMethodKind {
				name = "main"
			}
			if i, ok := index[name]; ok {
				ret[i] = n
			} else {
				index[name] = len(ret)
				ret = append(ret, n)
			}
			return false
		}
		return true
	})
	return ret
}

func (g *generator) method(n *ast.Node) *ollir.Method {
	name := n.Name
	if n.Kind == ast.MainMethodKind {
		name = "main"
	}
	sym := g.table.LookUpMethodByName(name)
	if sym == nil {
		g.errorAt(n, "no symbol for method %s", name)
		return nil
	}
	m := ollir.NewMethod(sym.Name, sym.IsStatic, sym.ReturnType)
	for _, p := range sym.Parameters {
		m.Params = append(m.Params, ollir.Param{Name: p.Name, T: p.Type})
	}
	sc := scope{node: n, method: sym, temps: new(int)}
	body := g.reduce(noEmission, n.Children, sc)
	trailingLabel := false
	for _, it := range body.items {
		if it.inst == nil {
			m.AddLabel(it.label)
			trailingLabel = true
			continue
		}
		m.Emit(it.inst)
		trailingLabel = false
	}
	if sym.ReturnType.Equal(ast.Void) {
		if _, ok := last(m.Instructions).(*ollir.Return); !ok || trailingLabel {
			m.Emit(&ollir.Return{})
		}
	}
	m.BuildVarTable()
	return m
}

func last(instructions []ollir.Instruction) ollir.Instruction {
	if len(instructions) == 0 {
		return nil
	}
	return instructions[len(instructions)-1]
}

// reduce concatenates the node's own fragment and the non empty fragments of its children, left to right.
func (g *generator) reduce(own *fragment, children []*ast.Node, sc scope) *fragment {
	ret := &fragment{}
	if own != noEmission {
		ret.append(own)
	}
	for _, child := range children {
		f := g.visit(child, sc)
		if f == noEmission || f.empty() {
			continue
		}
		ret.append(f)
	}
	if ret.empty() {
		return noEmission
	}
	return ret
}

// visit lowers a statement.
func (g *generator) visit(n *ast.Node, sc scope) *fragment {
	if n == nil {
		return noEmission
	}
	switch n.Kind {
	case ast.BlockKind:
		return g.reduce(noEmission, n.Children, sc)
	case ast.VarDeclarationKind:
		return g.declareLocal(n, sc)
	case ast.AssignmentKind:
		return g.assignment(n, sc)
	case ast.ArrayAssignmentKind:
		return g.arrayAssignment(n, sc)
	case ast.ExprStatementKind:
		f := &fragment{}
		if e := n.Child(0); e != nil && e.Kind == ast.MethodCallKind {
			f.emit(g.call(e, f, sc, ast.Any, true))
		} else if e != nil {
			g.lowerExpr(e, f, sc, ast.Any)
		}
		return f
	case ast.ReturnKind:
		f := &fragment{}
		if n.Child(0) == nil {
			f.emit(&ollir.Return{})
			return f
		}
		v := g.lowerExpr(n.Child(0), f, sc, sc.method.ReturnType)
		f.emit(&ollir.Return{Value: v, T: sc.method.ReturnType})
		return f
	case ast.IfElseKind:
		return g.ifElse(n, sc)
	case ast.WhileKind:
		return g.while(n, sc)
	}
	return noEmission
}

// declareLocal realizes a zero initialized int or boolean local, only when the declaration belongs to the
// method being lowered.
func (g *generator) declareLocal(n *ast.Node, sc scope) *fragment {
	if n.Ancestor(ast.MainMethodKind, ast.ClassMethodKind, ast.ClassDeclarationKind) != sc.node {
		return noEmission
	}
	if n.Type.IsArray || (n.Type.Name != ast.IntName && n.Type.Name != ast.BooleanName) {
		return noEmission
	}
	f := &fragment{}
	f.emit(&ollir.Assign{
		Dest:  &ollir.Operand{Name: n.Name, T: n.Type},
		T:     n.Type,
		Value: &ollir.SingleOp{Operand: &ollir.Literal{Value: "0", T: n.Type}},
	})
	return f
}

func (g *generator) assignment(n *ast.Node, sc scope) *fragment {
	f := &fragment{}
	t, local := g.variable(n.Name, sc)
	if n.Child(0) == nil {
		return noEmission
	}
	if !local {
		v := g.lowerExpr(n.Child(0), f, sc, t)
		f.emit(&ollir.PutField{Object: g.this(), Field: &ollir.Operand{Name: n.Name, T: t}, Value: v})
		return f
	}
	value := g.lowerValue(n.Child(0), f, sc, t)
	f.emit(&ollir.Assign{Dest: &ollir.Operand{Name: n.Name, T: t}, T: t, Value: value})
	return f
}

func (g *generator) arrayAssignment(n *ast.Node, sc scope) *fragment {
	f := &fragment{}
	array := g.arrayName(n.Name, f, sc)
	index := g.lowerExpr(n.Child(0), f, sc, ast.Int)
	value := g.lowerExpr(n.Child(1), f, sc, ast.Int)
	f.emit(&ollir.Assign{
		Dest:  &ollir.ArrayOperand{Name: array, Index: index, T: ast.Int},
		T:     ast.Int,
		Value: &ollir.SingleOp{Operand: value},
	})
	return f
}

func (g *generator) ifElse(n *ast.Node, sc scope) *fragment {
	id := g.labels
	g.labels++
	body, end := fmt.Sprintf("ifbody_%d", id), fmt.Sprintf("endif_%d", id)
	f := &fragment{}
	f.emit(&ollir.CondBranch{Cond: g.condition(n.Child(0), f, sc), Label: body})
	if elseBranch := g.visit(n.Child(2), sc); elseBranch != noEmission {
		f.append(elseBranch)
	}
	f.emit(&ollir.Goto{Label: end})
	f.label(body)
	if thenBranch := g.visit(n.Child(1), sc); thenBranch != noEmission {
		f.append(thenBranch)
	}
	f.label(end)
	return f
}

func (g *generator) while(n *ast.Node, sc scope) *fragment {
	id := g.labels
	g.labels++
	cond, body, end := fmt.Sprintf("whilecond_%d", id), fmt.Sprintf("whilebody_%d", id), fmt.Sprintf("endwhile_%d", id)
	f := &fragment{}
	f.label(cond)
	f.emit(&ollir.CondBranch{Cond: g.condition(n.Child(0), f, sc), Label: body})
	f.emit(&ollir.Goto{Label: end})
	f.label(body)
	if loop := g.visit(n.Child(1), sc); loop != noEmission {
		f.append(loop)
	}
	f.emit(&ollir.Goto{Label: cond})
	f.label(end)
	return f
}

// condition lowers a branch condition to a BinaryOp or SingleOp.
func (g *generator) condition(n *ast.Node, f *fragment, sc scope) ollir.Instruction {
	v := g.lowerValue(n, f, sc, ast.Boolean)
	switch v.(type) {
	case *ollir.BinaryOp, *ollir.SingleOp:
		return v
	}
	t := g.temp(sc, ast.Boolean)
	f.emit(&ollir.Assign{Dest: t, T: ast.Boolean, Value: v})
	return &ollir.SingleOp{Operand: t}
}

func (g *generator) errorAt(n *ast.Node, format string, args ...interface{}) {
	g.reports = append(g.reports, report.NewError(report.OllirStage, n.Line, n.Col, format, args...))
}
