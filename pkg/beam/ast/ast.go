package ast

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sambeau/beam/pkg/beam/lexer"
)

// Position is a 1-based source location.
type Position struct {
	Line   int
	Column int
}

// Node represents any node in the AST
type Node interface {
	TokenLiteral() string
	String() string
	Pos() Position
}

// Markup is a node that can appear in a template body or inside an element:
// Doctype, EnclosingTag, SelfClosingTag, TextNode or ComponentReference.
type Markup interface {
	Node
	markupNode()
}

// TextPiece is one piece of a TextNode: a StringLiteral or an Interpolation.
type TextPiece interface {
	Node
	textPiece()
}

// AttributeValue is a StringLiteral, IntegerLiteral or Expression.
// A nil AttributeValue is the bare boolean form.
type AttributeValue interface {
	Node
	attributeValue()
}

func tokenPos(tok lexer.Token) Position {
	return Position{Line: tok.Line, Column: tok.Column}
}

// Template is a parsed markup body: optional directives followed by nodes.
type Template struct {
	Directives []*Directive
	Nodes      []Markup
}

func (t *Template) TokenLiteral() string {
	if len(t.Nodes) > 0 {
		return t.Nodes[0].TokenLiteral()
	}
	return ""
}

func (t *Template) Pos() Position {
	if len(t.Directives) > 0 {
		return t.Directives[0].Pos()
	}
	if len(t.Nodes) > 0 {
		return t.Nodes[0].Pos()
	}
	return Position{Line: 1, Column: 1}
}

func (t *Template) String() string {
	var out bytes.Buffer
	for _, d := range t.Directives {
		out.WriteString(d.String())
		out.WriteString("\n")
	}
	for _, n := range t.Nodes {
		out.WriteString(n.String())
	}
	return out.String()
}

// HasDirective reports whether the template declares @name;
func (t *Template) HasDirective(name string) bool {
	for _, d := range t.Directives {
		if d.Name == name {
			return true
		}
	}
	return false
}

// Directive is a leading @name; line.
type Directive struct {
	Token lexer.Token // the '@' token
	Name  string
}

func (d *Directive) TokenLiteral() string { return d.Token.Literal }
func (d *Directive) Pos() Position        { return tokenPos(d.Token) }
func (d *Directive) String() string       { return "@" + d.Name + ";" }

// HTMLIdent is a tag or attribute name made of identifiers joined by hyphens.
type HTMLIdent struct {
	Token lexer.Token // first part
	Parts []string
}

func (h HTMLIdent) TokenLiteral() string { return h.Token.Literal }
func (h HTMLIdent) Pos() Position        { return tokenPos(h.Token) }
func (h HTMLIdent) String() string       { return strings.Join(h.Parts, "-") }

// Equal compares names part by part.
func (h HTMLIdent) Equal(other HTMLIdent) bool {
	if len(h.Parts) != len(other.Parts) {
		return false
	}
	for i := range h.Parts {
		if h.Parts[i] != other.Parts[i] {
			return false
		}
	}
	return true
}

// IsComponentName reports whether the name refers to a component: a single
// identifier starting with an uppercase ASCII letter.
func (h HTMLIdent) IsComponentName() bool {
	return len(h.Parts) == 1 && h.Parts[0] != "" && h.Parts[0][0] >= 'A' && h.Parts[0][0] <= 'Z'
}

// Attribute is name, name="text", name=123 or name={expr}.
type Attribute struct {
	Name  HTMLIdent
	Value AttributeValue // nil for the bare form
}

func (a *Attribute) TokenLiteral() string { return a.Name.TokenLiteral() }
func (a *Attribute) Pos() Position        { return a.Name.Pos() }
func (a *Attribute) String() string {
	if a.Value == nil {
		return a.Name.String()
	}
	return a.Name.String() + "=" + a.Value.String()
}

// StringLiteral is a quoted string. Raw literals are emitted without escaping.
type StringLiteral struct {
	Token lexer.Token
	Value string
	Raw   bool
}

func (sl *StringLiteral) attributeValue()      {}
func (sl *StringLiteral) textPiece()           {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) Pos() Position        { return tokenPos(sl.Token) }
func (sl *StringLiteral) String() string {
	if !sl.Raw {
		return quote(sl.Value)
	}
	if !strings.Contains(sl.Value, "`") {
		return "`" + sl.Value + "`"
	}
	hashes := "#"
	for strings.Contains(sl.Value, `"`+hashes) {
		hashes += "#"
	}
	return hashes + `"` + sl.Value + `"` + hashes
}

// quote writes s as a double-quoted literal using only the escapes the lexer
// reads back.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		case utf8.RuneError:
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				b.WriteByte(s[i])
				continue
			}
			b.WriteRune(r)
		default:
			if strconv.IsPrint(r) {
				b.WriteRune(r)
			} else {
				fmt.Fprintf(&b, `\u{%x}`, r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// IntegerLiteral is an unquoted integer attribute value. Digits keeps the source text.
type IntegerLiteral struct {
	Token  lexer.Token
	Digits string
	Value  int64
}

func (il *IntegerLiteral) attributeValue()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Literal }
func (il *IntegerLiteral) Pos() Position        { return tokenPos(il.Token) }
func (il *IntegerLiteral) String() string       { return il.Digits }

// Expression is opaque host-language source between braces.
type Expression struct {
	Token  lexer.Token
	Source string // trimmed inner source
}

func (e *Expression) attributeValue()      {}
func (e *Expression) TokenLiteral() string { return e.Token.Literal }
func (e *Expression) Pos() Position        { return tokenPos(e.Token) }
func (e *Expression) String() string       { return "{" + e.Source + "}" }

// StringValue returns the value of an expression that is nothing but a string
// literal, such as {"text"} or {`text`}.
func (e *Expression) StringValue() (string, bool) {
	src := e.Source
	if len(src) < 2 {
		return "", false
	}
	switch {
	case src[0] == '"' && src[len(src)-1] == '"', src[0] == '`' && src[len(src)-1] == '`':
		v, err := strconv.Unquote(src)
		if err != nil {
			return "", false
		}
		return v, true
	}
	return "", false
}

// Interpolation is {expr} or unsafe {expr} in text content.
type Interpolation struct {
	Token  lexer.Token // the EXPR or UNSAFE token
	Expr   *Expression
	Unsafe bool
}

func (i *Interpolation) textPiece()           {}
func (i *Interpolation) TokenLiteral() string { return i.Token.Literal }
func (i *Interpolation) Pos() Position        { return tokenPos(i.Token) }
func (i *Interpolation) String() string {
	if i.Unsafe {
		return "unsafe " + i.Expr.String()
	}
	return i.Expr.String()
}

// Doctype is <!DOCTYPE html>.
type Doctype struct {
	Token lexer.Token // the '<' token
}

func (d *Doctype) markupNode()          {}
func (d *Doctype) TokenLiteral() string { return d.Token.Literal }
func (d *Doctype) Pos() Position        { return tokenPos(d.Token) }
func (d *Doctype) String() string       { return "<!DOCTYPE html>" }

// EnclosingTag is <name ...>children</name>.
type EnclosingTag struct {
	Token      lexer.Token // the '<' token
	Name       HTMLIdent
	Attributes []*Attribute
	Children   []Markup
}

func (et *EnclosingTag) markupNode()          {}
func (et *EnclosingTag) TokenLiteral() string { return et.Token.Literal }
func (et *EnclosingTag) Pos() Position        { return tokenPos(et.Token) }
func (et *EnclosingTag) String() string {
	var out bytes.Buffer
	writeOpen(&out, et.Name, et.Attributes)
	out.WriteString(">")
	for _, c := range et.Children {
		out.WriteString(c.String())
	}
	out.WriteString("</" + et.Name.String() + ">")
	return out.String()
}

// SelfClosingTag is <name ... /> or a void tag written without the slash.
type SelfClosingTag struct {
	Token      lexer.Token
	Name       HTMLIdent
	Attributes []*Attribute
}

func (st *SelfClosingTag) markupNode()          {}
func (st *SelfClosingTag) TokenLiteral() string { return st.Token.Literal }
func (st *SelfClosingTag) Pos() Position        { return tokenPos(st.Token) }
func (st *SelfClosingTag) String() string {
	var out bytes.Buffer
	writeOpen(&out, st.Name, st.Attributes)
	out.WriteString("/>")
	return out.String()
}

// TextNode is a run of string literals and interpolations.
type TextNode struct {
	Pieces []TextPiece
}

func (tn *TextNode) markupNode() {}
func (tn *TextNode) TokenLiteral() string {
	if len(tn.Pieces) > 0 {
		return tn.Pieces[0].TokenLiteral()
	}
	return ""
}
func (tn *TextNode) Pos() Position {
	if len(tn.Pieces) > 0 {
		return tn.Pieces[0].Pos()
	}
	return Position{}
}
func (tn *TextNode) String() string {
	var out bytes.Buffer
	for _, p := range tn.Pieces {
		out.WriteString(p.String())
	}
	return out.String()
}

// ComponentReference is <Name .../> or <Name ...>children</Name>.
type ComponentReference struct {
	Token      lexer.Token
	Name       string
	Attributes []*Attribute
	Children   []Markup
	HasBody    bool // written with an opening and closing tag, even if empty
}

func (cr *ComponentReference) markupNode()          {}
func (cr *ComponentReference) TokenLiteral() string { return cr.Token.Literal }
func (cr *ComponentReference) Pos() Position        { return tokenPos(cr.Token) }
func (cr *ComponentReference) String() string {
	var out bytes.Buffer
	out.WriteString("<" + cr.Name)
	for _, a := range cr.Attributes {
		out.WriteString(" " + a.String())
	}
	if !cr.HasBody {
		out.WriteString("/>")
		return out.String()
	}
	out.WriteString(">")
	for _, c := range cr.Children {
		out.WriteString(c.String())
	}
	out.WriteString("</" + cr.Name + ">")
	return out.String()
}

func writeOpen(out *bytes.Buffer, name HTMLIdent, attrs []*Attribute) {
	out.WriteString("<" + name.String())
	for _, a := range attrs {
		out.WriteString(" " + a.String())
	}
}

// Walk visits node and its descendants depth-first, in source order.
// Returning false from fn skips the node's children.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *Template:
		for _, c := range n.Nodes {
			Walk(c, fn)
		}
	case *EnclosingTag:
		walkAttrs(n.Attributes, fn)
		for _, c := range n.Children {
			Walk(c, fn)
		}
	case *SelfClosingTag:
		walkAttrs(n.Attributes, fn)
	case *ComponentReference:
		walkAttrs(n.Attributes, fn)
		for _, c := range n.Children {
			Walk(c, fn)
		}
	case *TextNode:
		for _, p := range n.Pieces {
			Walk(p, fn)
		}
	case *Interpolation:
		Walk(n.Expr, fn)
	case *Attribute:
		if n.Value != nil {
			Walk(n.Value, fn)
		}
	}
}

func walkAttrs(attrs []*Attribute, fn func(Node) bool) {
	for _, a := range attrs {
		Walk(a, fn)
	}
}
