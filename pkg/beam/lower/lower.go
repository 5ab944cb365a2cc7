// Package lower turns a parsed template into literal segments and interpolation slots.
//
// Lowering walks nodes depth-first, left to right, writing static markup into a
// segment builder. Each dynamic value commits the builder as a segment and records a
// slot, so a result with N slots always has N+1 segments. Segments preceding an
// attribute slot end in '='.
package lower

import (
	"fmt"
	"strings"

	"github.com/sambeau/beam/pkg/beam/ast"
	berrors "github.com/sambeau/beam/pkg/beam/errors"
	"github.com/sambeau/beam/pkg/beam/escape"
)

// Doctype is fused into the first segment of every <html> root.
const Doctype = "<!DOCTYPE html>"

// SlotKind is the way a resolved value is written into the output.
type SlotKind int

const (
	SlotAttribute         SlotKind = iota // quoted text, integer, or boolean presence
	SlotChildren                          // rendered UI, or text that gets escaped
	SlotUnescapedChildren                 // text written verbatim
)

func (k SlotKind) String() string {
	switch k {
	case SlotAttribute:
		return "attribute"
	case SlotChildren:
		return "children"
	case SlotUnescapedChildren:
		return "unescaped"
	}
	return fmt.Sprintf("SlotKind(%d)", int(k))
}

// Slot is one interpolation point. Exactly one of Expr and Call is set.
type Slot struct {
	Kind      SlotKind
	Expr      *ast.Expression
	Call      *ComponentCall
	Attribute string // attribute name for SlotAttribute
	Pos       ast.Position
}

// Prop is one attribute passed to a component.
type Prop struct {
	Name  string             // as written in markup
	Field string             // field resolved by the component, empty without a resolver
	Value ast.AttributeValue // nil means true
	Pos   ast.Position
}

// ComponentCall renders a component and splices its output as children.
type ComponentCall struct {
	Name   string
	Props  []Prop
	Body   *Compiled // nil when the component was written self-closing
	Island bool
	Pos    ast.Position
}

// Compiled is the lowered form of one node: len(Pieces) == len(Slots)+1, or no
// slots and at most one piece.
type Compiled struct {
	Pieces []string
	Slots  []Slot
}

// Static returns the template's text when it has no slots.
func (c *Compiled) Static() (string, bool) {
	if len(c.Slots) > 0 {
		return "", false
	}
	if len(c.Pieces) == 0 {
		return "", true
	}
	return c.Pieces[0], true
}

// Validate checks the segment/slot alternation.
func (c *Compiled) Validate() error {
	if len(c.Slots) == 0 {
		if len(c.Pieces) > 1 {
			return fmt.Errorf("%d pieces for 0 slots", len(c.Pieces))
		}
		return nil
	}
	if len(c.Pieces) != len(c.Slots)+1 {
		return fmt.Errorf("%d pieces for %d slots", len(c.Pieces), len(c.Slots))
	}
	for i, slot := range c.Slots {
		if slot.Kind == SlotAttribute && !strings.HasSuffix(c.Pieces[i], "=") {
			return fmt.Errorf("piece %d before attribute slot %q does not end in '='", i, slot.Attribute)
		}
		if (slot.Expr == nil) == (slot.Call == nil) {
			return fmt.Errorf("slot %d must have exactly one of an expression or a component call", i)
		}
		if slot.Call != nil && slot.Call.Body != nil {
			if err := slot.Call.Body.Validate(); err != nil {
				return fmt.Errorf("body of <%s>: %w", slot.Call.Name, err)
			}
		}
	}
	return nil
}

// String dumps pieces and slots for inspection.
func (c *Compiled) String() string {
	var out strings.Builder
	for i, p := range c.Pieces {
		fmt.Fprintf(&out, "piece %d: %q\n", i, p)
		if i < len(c.Slots) {
			s := c.Slots[i]
			switch {
			case s.Call != nil:
				fmt.Fprintf(&out, "slot  %d: %s <%s>", i, s.Kind, s.Call.Name)
				for _, p := range s.Call.Props {
					if p.Value == nil {
						fmt.Fprintf(&out, " %s", p.Name)
					} else {
						fmt.Fprintf(&out, " %s=%s", p.Name, p.Value)
					}
				}
				out.WriteString("\n")
			case s.Kind == SlotAttribute:
				fmt.Fprintf(&out, "slot  %d: %s %s=%s\n", i, s.Kind, s.Attribute, s.Expr)
			default:
				fmt.Fprintf(&out, "slot  %d: %s %s\n", i, s.Kind, s.Expr)
			}
		}
	}
	return out.String()
}

// ComponentInfo describes what a component accepts.
type ComponentInfo interface {
	// Field maps an attribute name to the props field it sets.
	Field(attr string) (string, bool)
	// PropNames lists accepted attribute names, for suggestions.
	PropNames() []string
	AcceptsChildren() bool
	IsIsland() bool
}

// Resolver looks up components referenced by uppercase tags.
type Resolver interface {
	LookupComponent(name string) (ComponentInfo, bool)
	ComponentNames() []string
}

// Options configures lowering.
type Options struct {
	// Components resolves component references. When nil, props and children
	// are passed through unchecked and left for the Go compiler to verify.
	Components Resolver
	// Client treats on<event> attributes on HTML tags as event bindings, as the
	// @client; directive does.
	Client bool
}

// Lower lowers every top-level node of tmpl. Doctype nodes produce nothing;
// each <html> root receives a leading <!DOCTYPE html> instead.
func Lower(tmpl *ast.Template, opts Options) ([]*Compiled, error) {
	if tmpl.HasDirective("client") {
		opts.Client = true
	}

	var out []*Compiled
	for _, node := range tmpl.Nodes {
		if _, ok := node.(*ast.Doctype); ok {
			continue
		}
		c, err := LowerNode(node, opts)
		if err != nil {
			return nil, err
		}
		if isHTMLRoot(node) {
			c.Pieces[0] = Doctype + c.Pieces[0]
		}
		out = append(out, c)
	}
	return out, nil
}

// LowerNode lowers a single node.
func LowerNode(node ast.Markup, opts Options) (*Compiled, error) {
	return LowerNodes([]ast.Markup{node}, opts)
}

// LowerNodes lowers a sequence of sibling nodes into one Compiled, as for a
// component body.
func LowerNodes(nodes []ast.Markup, opts Options) (*Compiled, error) {
	b := &builder{opts: opts}
	for _, n := range nodes {
		if err := b.node(n); err != nil {
			return nil, err
		}
	}
	return b.finish(), nil
}

func isHTMLRoot(node ast.Markup) bool {
	tag, ok := node.(*ast.EnclosingTag)
	return ok && len(tag.Name.Parts) == 1 && strings.EqualFold(tag.Name.Parts[0], "html")
}

type builder struct {
	opts   Options
	pieces []string
	slots  []Slot
	cur    strings.Builder
}

func (b *builder) write(s string) {
	b.cur.WriteString(s)
}

// push commits the pending segment, even when empty, and records slot.
func (b *builder) push(slot Slot) {
	b.pieces = append(b.pieces, b.cur.String())
	b.cur.Reset()
	b.slots = append(b.slots, slot)
}

func (b *builder) finish() *Compiled {
	last := b.cur.String()
	if len(b.slots) == 0 && last == "" {
		return &Compiled{}
	}
	return &Compiled{Pieces: append(b.pieces, last), Slots: b.slots}
}

func (b *builder) node(n ast.Markup) error {
	switch n := n.(type) {
	case *ast.Doctype:
		return nil

	case *ast.EnclosingTag:
		if err := b.openTag(n.Name, n.Attributes); err != nil {
			return err
		}
		b.write(">")
		for _, c := range n.Children {
			if err := b.node(c); err != nil {
				return err
			}
		}
		b.write("</" + n.Name.String() + ">")
		return nil

	case *ast.SelfClosingTag:
		if err := b.openTag(n.Name, n.Attributes); err != nil {
			return err
		}
		b.write("/>")
		return nil

	case *ast.TextNode:
		for _, p := range n.Pieces {
			b.text(p)
		}
		return nil

	case *ast.ComponentReference:
		return b.component(n)
	}

	return fmt.Errorf("lower: unexpected node %T", n)
}

func (b *builder) openTag(name ast.HTMLIdent, attrs []*ast.Attribute) error {
	if err := checkDuplicates(name.String(), attrs); err != nil {
		return err
	}

	b.write("<" + name.String())
	for _, attr := range attrs {
		attrName := attr.Name.String()

		if b.opts.Client && isEventAttribute(attr.Name) {
			if err := checkEventBinding(attr); err != nil {
				return err
			}
			continue
		}

		switch v := attr.Value.(type) {
		case nil:
			b.write(" " + attrName)
		case *ast.StringLiteral:
			b.write(" " + attrName + `="` + escape.HTML(v.Value) + `"`)
		case *ast.IntegerLiteral:
			b.write(" " + attrName + `="` + v.Digits + `"`)
		case *ast.Expression:
			b.write(" " + attrName + "=")
			b.push(Slot{Kind: SlotAttribute, Expr: v, Attribute: attrName, Pos: v.Pos()})
		}
	}
	return nil
}

func (b *builder) text(piece ast.TextPiece) {
	switch p := piece.(type) {
	case *ast.StringLiteral:
		if p.Raw {
			b.write(p.Value)
		} else {
			b.write(escape.HTML(p.Value))
		}

	case *ast.Interpolation:
		if lit, ok := p.Expr.StringValue(); ok {
			if p.Unsafe {
				b.write(lit)
			} else {
				b.write(escape.HTML(lit))
			}
			return
		}
		kind := SlotChildren
		if p.Unsafe {
			kind = SlotUnescapedChildren
		}
		b.push(Slot{Kind: kind, Expr: p.Expr, Pos: p.Expr.Pos()})
	}
}

func (b *builder) component(ref *ast.ComponentReference) error {
	if err := checkDuplicates(ref.Name, ref.Attributes); err != nil {
		return err
	}

	call := &ComponentCall{Name: ref.Name, Pos: ref.Pos()}

	var info ComponentInfo
	if b.opts.Components != nil {
		var ok bool
		info, ok = b.opts.Components.LookupComponent(ref.Name)
		if !ok {
			pos := ref.Pos()
			return berrors.NewWithPosition("COMP-0001", pos.Line, pos.Column, map[string]any{"Name": ref.Name}).
				WithSuggestion(ref.Name, b.opts.Components.ComponentNames())
		}
		call.Island = info.IsIsland()
	}

	for _, attr := range ref.Attributes {
		prop := Prop{Name: attr.Name.String(), Value: attr.Value, Pos: attr.Pos()}
		if info != nil {
			field, ok := info.Field(prop.Name)
			if !ok {
				return berrors.NewWithPosition("COMP-0002", prop.Pos.Line, prop.Pos.Column, map[string]any{
					"Prop": prop.Name,
					"Name": ref.Name,
				}).WithSuggestion(prop.Name, info.PropNames())
			}
			prop.Field = field
		}
		call.Props = append(call.Props, prop)
	}

	if ref.HasBody {
		if info != nil && info.IsIsland() {
			pos := ref.Pos()
			return berrors.NewWithPosition("COMP-0006", pos.Line, pos.Column, map[string]any{"Name": ref.Name})
		}
		if info != nil && !info.AcceptsChildren() {
			pos := ref.Pos()
			return berrors.NewWithPosition("COMP-0003", pos.Line, pos.Column, map[string]any{"Name": ref.Name})
		}
		body, err := LowerNodes(ref.Children, b.opts)
		if err != nil {
			return err
		}
		call.Body = body
	}

	b.push(Slot{Kind: SlotChildren, Call: call, Pos: call.Pos})
	return nil
}

func checkDuplicates(tag string, attrs []*ast.Attribute) error {
	if len(attrs) < 2 {
		return nil
	}
	seen := make(map[string]bool, len(attrs))
	for _, attr := range attrs {
		name := attr.Name.String()
		if seen[name] {
			pos := attr.Pos()
			return berrors.NewWithPosition("LOWER-0001", pos.Line, pos.Column, map[string]any{"Name": name, "Tag": tag})
		}
		seen[name] = true
	}
	return nil
}
