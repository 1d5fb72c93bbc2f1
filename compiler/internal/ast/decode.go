package ast

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fxamacker/cbor/v2"
)

// wireNode is the generic shape the external parser hands over: a kind tag, ordered attributes and children.
type wireNode struct {
	Kind       string      `json:"kind" cbor:"kind"`
	Attributes []Attribute `json:"attributes,omitempty" cbor:"attributes,omitempty"`
	Children   []*wireNode `json:"children,omitempty" cbor:"children,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("ast: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// DecodeJSON reads a tree in the JSON interchange form.
func DecodeJSON(r io.Reader) (*Node, error) {
	var w wireNode
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("ast: decode json: %w", err)
	}
	return fromWire(&w, nil)
}

// DecodeCBOR reads a tree in the CBOR interchange form.
func DecodeCBOR(data []byte) (*Node, error) {
	var w wireNode
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("ast: decode cbor: %w", err)
	}
	return fromWire(&w, nil)
}

// EncodeCBOR writes n in canonical CBOR form, the same tree always yields the same bytes.
func EncodeCBOR(n *Node) ([]byte, error) {
	return cborEncMode.Marshal(toWire(n))
}

// EncodeJSON writes n in the JSON interchange form.
func EncodeJSON(w io.Writer, n *Node) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(toWire(n))
}

func fromWire(w *wireNode, parent *Node) (*Node, error) {
	kind, ok := ParseKind(w.Kind)
	if !ok {
		return nil, fmt.Errorf("ast: unknown node kind %q", w.Kind)
	}
	n := NewNode(kind)
	n.Parent = parent
	for _, attr := range w.Attributes {
		if err := n.setAttr(attr); err != nil {
			return nil, fmt.Errorf("ast: %s: %w", w.Kind, err)
		}
	}
	for _, c := range w.Children {
		if c == nil {
			return nil, fmt.Errorf("ast: %s: null child", w.Kind)
		}
		child, err := fromWire(c, n)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func (n *Node) setAttr(attr Attribute) (err error) {
	switch attr.Name {
	case "line":
		n.Line, err = strconv.Atoi(attr.Value)
	case "col":
		n.Col, err = strconv.Atoi(attr.Value)
	case "name":
		n.Name = attr.Value
	case "value":
		n.Value = attr.Value
	case "op":
		n.Op = attr.Value
	case "type":
		n.Type.Name = attr.Value
	case "array":
		n.Type.IsArray, err = strconv.ParseBool(attr.Value)
	case "super":
		n.Super, n.HasSuper = attr.Value, attr.Value != ""
	case "prefix":
		n.Prefix = attr.Value
	case "static":
		n.Static, err = strconv.ParseBool(attr.Value)
	default:
		n.Extra = append(n.Extra, attr)
	}
	if err != nil {
		return fmt.Errorf("bad %s attribute %q: %w", attr.Name, attr.Value, err)
	}
	return nil
}

func toWire(n *Node) *wireNode {
	w := &wireNode{Kind: n.Kind.String()}
	add := func(name, value string) {
		w.Attributes = append(w.Attributes, Attribute{Name: name, Value: value})
	}
	if n.Line >= 0 {
		add("line", strconv.Itoa(n.Line))
	}
	if n.Col >= 0 {
		add("col", strconv.Itoa(n.Col))
	}
	for _, name := range []string{"name", "value", "op", "type", "prefix"} {
		if v, ok := n.Attr(name); ok {
			add(name, v)
		}
	}
	if n.Type.IsArray {
		add("array", "true")
	}
	if n.HasSuper {
		add("super", n.Super)
	}
	if n.Static {
		add("static", "true")
	}
	w.Attributes = append(w.Attributes, n.Extra...)
	for _, c := range n.Children {
		w.Children = append(w.Children, toWire(c))
	}
	return w
}
