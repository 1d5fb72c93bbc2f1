package symtab

import (
	"strings"

	"github.com/xiaobogaga/jmm/compiler/internal/ast"
)

type Symbol struct {
	Name string
	Type ast.Type
}

type Method struct {
	Name       string
	ReturnType ast.Type
	// Parameter order is part of the method signature.
	Parameters []Symbol
	// Locals is a set keyed by name. localOrder only keeps IR emission deterministic.
	Locals     map[string]Symbol
	localOrder []string
	IsStatic   bool
}

func newMethod(name string, returnType ast.Type, static bool) *Method {
	return &Method{Name: name, ReturnType: returnType, Locals: map[string]Symbol{}, IsStatic: static}
}

// ParamTypes returns the parameter types in declaration order.
func (m *Method) ParamTypes() []ast.Type {
	ret := make([]ast.Type, 0, len(m.Parameters))
	for _, p := range m.Parameters {
		ret = append(ret, p.Type)
	}
	return ret
}

func (m *Method) LookUpParam(name string) (Symbol, int, bool) {
	for i, p := range m.Parameters {
		if p.Name == name {
			return p, i, true
		}
	}
	return Symbol{}, -1, false
}

func (m *Method) LookUpLocal(name string) (Symbol, bool) {
	s, ok := m.Locals[name]
	return s, ok
}

// LocalsInOrder returns the locals in declaration order.
func (m *Method) LocalsInOrder() []Symbol {
	ret := make([]Symbol, 0, len(m.localOrder))
	for _, name := range m.localOrder {
		ret = append(ret, m.Locals[name])
	}
	return ret
}

func (m *Method) addLocal(s Symbol) bool {
	if _, exists := m.Locals[s.Name]; exists {
		return false
	}
	m.localOrder = append(m.localOrder, s.Name)
	m.Locals[s.Name] = s
	return true
}

type SymbolTable struct {
	Imports        []string
	ClassName      string
	SuperClassName string
	HasSuperClass  bool
	Fields         []Symbol
	methods        map[string]*Method
	methodOrder    []string
}

func New() *SymbolTable {
	return &SymbolTable{methods: map[string]*Method{}}
}

// Methods returns the registered methods in the order they were first declared.
func (table *SymbolTable) Methods() []*Method {
	ret := make([]*Method, 0, len(table.methodOrder))
	for _, name := range table.methodOrder {
		ret = append(ret, table.methods[name])
	}
	return ret
}

func (table *SymbolTable) LookUpMethodByName(name string) *Method {
	return table.methods[name]
}

// LookUpMethod finds a method by its full signature: name, parameter types and return type.
func (table *SymbolTable) LookUpMethod(name string, params []ast.Type, returnType ast.Type) *Method {
	m := table.methods[name]
	if m == nil || !m.ReturnType.Equal(returnType) || len(m.Parameters) != len(params) {
		return nil
	}
	for i, p := range m.Parameters {
		if !p.Type.Equal(params[i]) {
			return nil
		}
	}
	return m
}

func (table *SymbolTable) LookUpField(name string) (Symbol, bool) {
	for _, f := range table.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Symbol{}, false
}

// IsImported reports whether name is the last segment of an imported path, i.e. can be used as a class name.
func (table *SymbolTable) IsImported(name string) bool {
	for _, imp := range table.Imports {
		if imp == name || strings.HasSuffix(imp, "."+name) {
			return true
		}
	}
	return false
}

// registerMethod stores m under its name, replacing a previous method with the same name. It returns false when
// a method was replaced.
func (table *SymbolTable) registerMethod(m *Method) bool {
	_, exists := table.methods[m.Name]
	if !exists {
		table.methodOrder = append(table.methodOrder, m.Name)
	}
	table.methods[m.Name] = m
	return !exists
}

func (table *SymbolTable) String() string {
	var b strings.Builder
	for _, imp := range table.Imports {
		b.WriteString("import " + imp + ";\n")
	}
	b.WriteString("class " + table.ClassName)
	if table.HasSuperClass {
		b.WriteString(" extends " + table.SuperClassName)
	}
	b.WriteString("\n")
	for _, f := range table.Fields {
		b.WriteString("  field " + f.Type.String() + " " + f.Name + "\n")
	}
	for _, m := range table.Methods() {
		b.WriteString("  method " + m.ReturnType.String() + " " + m.Name + "(")
		for i, p := range m.Parameters {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Type.String() + " " + p.Name)
		}
		b.WriteString(")\n")
		for _, l := range m.LocalsInOrder() {
			b.WriteString("    local " + l.Type.String() + " " + l.Name + "\n")
		}
	}
	return b.String()
}
