package ast

// Type is a JMM type: a primitive (int, boolean, void, String) or a class name, optionally an array of it.
// Types are values, two types are equal iff name and array flag match.
type Type struct {
	Name    string `json:"name" cbor:"1,keyasint"`
	IsArray bool   `json:"array,omitempty" cbor:"2,keyasint,omitempty"`
}

const (
	IntName     = "int"
	BooleanName = "boolean"
	VoidName    = "void"
	StringName  = "String"
	// ErrorName types an expression whose type could not be computed.
	ErrorName = "error"
	// AnyName types values coming from outside the compiled class (imported classes), it matches every type.
	AnyName = "any"
)

var (
	Int         = Type{Name: IntName}
	IntArray    = Type{Name: IntName, IsArray: true}
	Boolean     = Type{Name: BooleanName}
	Void        = Type{Name: VoidName}
	String      = Type{Name: StringName}
	StringArray = Type{Name: StringName, IsArray: true}
	Error       = Type{Name: ErrorName}
	Any         = Type{Name: AnyName}
)

func ClassType(name string) Type {
	return Type{Name: name}
}

func (t Type) Equal(o Type) bool {
	return t.Name == o.Name && t.IsArray == o.IsArray
}

// IsPrimitive reports whether t is one of int, boolean, void or String (arrays excluded).
func (t Type) IsPrimitive() bool {
	if t.IsArray {
		return false
	}
	switch t.Name {
	case IntName, BooleanName, VoidName, StringName:
		return true
	}
	return false
}

func (t Type) IsError() bool {
	return t.Name == ErrorName
}

// AssignableTo reports whether a value of type t can be stored in a slot of type target.
func (t Type) AssignableTo(target Type) bool {
	if t.Name == AnyName || target.Name == AnyName {
		return true
	}
	return t.Equal(target)
}

func (t Type) String() string {
	if t.IsArray {
		return t.Name + "[]"
	}
	return t.Name
}
