package ollir

import (
	"sort"
	"strings"

	"github.com/xiaobogaga/jmm/compiler/internal/ast"
)

type Field struct {
	Name string
	T    ast.Type
}

type Param struct {
	Name string
	T    ast.Type
}

// Descriptor is the virtual register a variable lives in.
type Descriptor struct {
	Register int
	T        ast.Type
}

type label struct {
	name string
	// index of the instruction the label precedes, len(Instructions) for a label at the end of the method.
	index int
}

type Method struct {
	Name         string
	IsStatic     bool
	IsConstruct  bool
	ReturnType   ast.Type
	Params       []Param
	Instructions []Instruction
	labels       []label
	VarTable     map[string]Descriptor
}

func NewMethod(name string, static bool, returnType ast.Type) *Method {
	return &Method{Name: name, IsStatic: static, ReturnType: returnType, VarTable: map[string]Descriptor{}}
}

func (m *Method) Emit(instructions ...Instruction) {
	m.Instructions = append(m.Instructions, instructions...)
}

// AddLabel attaches name to the next instruction emitted.
func (m *Method) AddLabel(name string) {
	m.labels = append(m.labels, label{name: name, index: len(m.Instructions)})
}

// LabelsAt returns the labels preceding instruction i, in the order they were added.
func (m *Method) LabelsAt(i int) []string {
	var ret []string
	for _, l := range m.labels {
		if l.index == i {
			ret = append(ret, l.name)
		}
	}
	return ret
}

// Labels maps every label to the index of the instruction it precedes.
func (m *Method) Labels() map[string]int {
	ret := make(map[string]int, len(m.labels))
	for _, l := range m.labels {
		ret[l.name] = l.index
	}
	return ret
}

// BuildVarTable assigns registers: this gets 0 in instance methods, then the parameters, then every other
// variable in the order it first appears.
func (m *Method) BuildVarTable() {
	m.VarTable = map[string]Descriptor{}
	next := 0
	declare := func(name string, t ast.Type) {
		if name == This {
			return
		}
		if _, ok := m.VarTable[name]; ok {
			return
		}
		m.VarTable[name] = Descriptor{Register: next, T: t}
		next++
	}
	if !m.IsStatic {
		m.VarTable[This] = Descriptor{Register: 0, T: ast.ClassType(This)}
		next++
	}
	for _, p := range m.Params {
		declare(p.Name, p.T)
	}
	var visitElement func(e Element)
	visitElement = func(e Element) {
		switch e := e.(type) {
		case *Operand:
			declare(e.Name, e.T)
		case *ArrayOperand:
			declare(e.Name, ast.IntArray)
			visitElement(e.Index)
		}
	}
	var visit func(inst Instruction)
	visit = func(inst Instruction) {
		switch inst := inst.(type) {
		case *Assign:
			visitElement(inst.Dest)
			visit(inst.Value)
		case *SingleOp:
			visitElement(inst.Operand)
		case *BinaryOp:
			visitElement(inst.Left)
			visitElement(inst.Right)
		case *Call:
			if inst.Receiver != nil {
				visitElement(inst.Receiver)
			}
			for _, arg := range inst.Args {
				visitElement(arg)
			}
		case *CondBranch:
			visit(inst.Cond)
		case *PutField:
			visitElement(inst.Object)
			visitElement(inst.Value)
		case *GetField:
			visitElement(inst.Object)
		case *Return:
			if inst.Value != nil {
				visitElement(inst.Value)
			}
		}
	}
	for _, inst := range m.Instructions {
		visit(inst)
	}
}

// VarTableInOrder returns the variable names sorted by register.
func (m *Method) VarTableInOrder() []string {
	names := make([]string, 0, len(m.VarTable))
	for name := range m.VarTable {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return m.VarTable[names[i]].Register < m.VarTable[names[j]].Register
	})
	return names
}

func (m *Method) String() string {
	var b strings.Builder
	if m.IsConstruct {
		b.WriteString(".construct " + m.Name + "(")
	} else {
		b.WriteString(".method public ")
		if m.IsStatic {
			b.WriteString("static ")
		}
		b.WriteString(m.Name + "(")
	}
	for i, p := range m.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name + "." + TypeSuffix(p.T))
	}
	b.WriteString(")." + TypeSuffix(m.ReturnType) + " {\n")
	for i, inst := range m.Instructions {
		for _, l := range m.LabelsAt(i) {
			b.WriteString(l + ":\n")
		}
		b.WriteString(inst.String() + ";\n")
	}
	for _, l := range m.LabelsAt(len(m.Instructions)) {
		b.WriteString(l + ":\n")
	}
	b.WriteString("}\n")
	return b.String()
}

// ClassUnit is the IR of one compiled class.
type ClassUnit struct {
	Name    string
	Super   string
	Imports []string
	Fields  []Field
	Methods []*Method
}

// SuperName is the superclass the constructor chains to.
func (c *ClassUnit) SuperName() string {
	if c.Super == "" {
		return "Object"
	}
	return c.Super
}

func (c *ClassUnit) String() string {
	var b strings.Builder
	for _, imp := range c.Imports {
		b.WriteString("import " + imp + ";\n")
	}
	if len(c.Imports) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(c.Name)
	if c.Super != "" {
		b.WriteString(" extends " + c.Super)
	}
	b.WriteString(" {\n")
	for _, f := range c.Fields {
		b.WriteString(".field private " + f.Name + "." + TypeSuffix(f.T) + ";\n")
	}
	for _, m := range c.Methods {
		b.WriteString("\n")
		b.WriteString(m.String())
	}
	b.WriteString("}\n")
	return b.String()
}
