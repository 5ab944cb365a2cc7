// Package vnode converts parsed markup into the node tree a client runtime
// hydrates from. The tree carries expression source, not values; a host
// evaluates each Expr node and prop before handing the tree to the client.
package vnode

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/sambeau/beam/pkg/beam/ast"
	"github.com/sambeau/beam/pkg/beam/escape"
	"github.com/sambeau/beam/pkg/beam/lower"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind is the type of a VNode.
type Kind string

const (
	Tag       Kind = "tag"
	Text      Kind = "text"
	Fragment  Kind = "fragment"
	Component Kind = "component"
	Expr      Kind = "expr"
)

// Prop is one attribute or component prop. Exactly one of Value and Expr is set.
type Prop struct {
	Name  string `json:"name"`
	Value any    `json:"value,omitempty"`
	Expr  string `json:"expr,omitempty"`
	Event bool   `json:"event,omitempty"`
}

// VNode is one node of the hydration tree.
type VNode struct {
	Kind     Kind    `json:"kind"`
	Tag      string  `json:"tag,omitempty"`
	Props    []Prop  `json:"props,omitempty"`
	Children []VNode `json:"children,omitempty"`
	Text     string  `json:"text,omitempty"`
	Expr     string  `json:"expr,omitempty"`
	Unsafe   bool    `json:"unsafe,omitempty"`

	Pos ast.Position `json:"-"`
}

// Build converts nodes to VNodes. Doctype nodes are dropped. Static text is
// escaped unless it was written as a raw string.
func Build(nodes []ast.Markup) []VNode {
	out := make([]VNode, 0, len(nodes))
	for _, n := range nodes {
		if v, ok := build(n); ok {
			out = append(out, v)
		}
	}
	return out
}

// BuildTemplate builds the nodes of a parsed template.
func BuildTemplate(t *ast.Template) []VNode {
	if t == nil {
		return nil
	}
	return Build(t.Nodes)
}

// Marshal encodes vnodes as indented JSON.
func Marshal(vnodes []VNode) ([]byte, error) {
	if vnodes == nil {
		vnodes = []VNode{}
	}
	return json.MarshalIndent(vnodes, "", "  ")
}

// Unmarshal decodes JSON produced by Marshal.
func Unmarshal(data []byte) ([]VNode, error) {
	var vnodes []VNode
	if err := json.Unmarshal(data, &vnodes); err != nil {
		return nil, err
	}
	return vnodes, nil
}

func build(n ast.Markup) (VNode, bool) {
	switch n := n.(type) {
	case *ast.Doctype:
		return VNode{}, false

	case *ast.EnclosingTag:
		return VNode{
			Kind:     Tag,
			Tag:      n.Name.String(),
			Props:    props(n.Attributes, true),
			Children: Build(n.Children),
			Pos:      n.Pos(),
		}, true

	case *ast.SelfClosingTag:
		return VNode{
			Kind:  Tag,
			Tag:   n.Name.String(),
			Props: props(n.Attributes, true),
			Pos:   n.Pos(),
		}, true

	case *ast.ComponentReference:
		return VNode{
			Kind:     Component,
			Tag:      n.Name,
			Props:    props(n.Attributes, false),
			Children: Build(n.Children),
			Pos:      n.Pos(),
		}, true

	case *ast.TextNode:
		return VNode{Kind: Fragment, Children: textChildren(n.Pieces), Pos: n.Pos()}, true
	}
	return VNode{}, false
}

func textChildren(pieces []ast.TextPiece) []VNode {
	out := make([]VNode, 0, len(pieces))
	for _, p := range pieces {
		switch p := p.(type) {
		case *ast.StringLiteral:
			text := p.Value
			if !p.Raw {
				text = escape.HTML(text)
			}
			out = append(out, VNode{Kind: Text, Text: text, Pos: p.Pos()})
		case *ast.Interpolation:
			out = append(out, VNode{Kind: Expr, Expr: p.Expr.Source, Unsafe: p.Unsafe, Pos: p.Pos()})
		}
	}
	return out
}

// props converts attributes. On HTML tags, on<event>={handler} becomes an
// event prop named the way the client expects, such as onClick.
func props(attrs []*ast.Attribute, html bool) []Prop {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]Prop, 0, len(attrs))
	for _, a := range attrs {
		name := a.Name.String()
		switch v := a.Value.(type) {
		case nil:
			out = append(out, Prop{Name: name, Value: true})
		case *ast.IntegerLiteral:
			out = append(out, Prop{Name: name, Value: v.Value})
		case *ast.StringLiteral:
			out = append(out, Prop{Name: name, Value: escape.HTML(v.Value)})
		case *ast.Expression:
			if s, ok := v.StringValue(); ok {
				out = append(out, Prop{Name: name, Value: escape.HTML(s)})
				continue
			}
			if html && strings.HasPrefix(name, "on") {
				if prop, ok := lower.EventProp(name); ok {
					out = append(out, Prop{Name: prop, Expr: v.Source, Event: true})
					continue
				}
			}
			out = append(out, Prop{Name: name, Expr: v.Source})
		}
	}
	return out
}
