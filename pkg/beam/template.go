package beam

import (
	"errors"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/sambeau/beam/pkg/beam/ast"
	berrors "github.com/sambeau/beam/pkg/beam/errors"
	"github.com/sambeau/beam/pkg/beam/expr"
	"github.com/sambeau/beam/pkg/beam/lower"
	"github.com/sambeau/beam/pkg/beam/parser"
)

// Scope supplies the values expressions refer to.
type Scope = expr.Scope

// Vars is a Scope backed by a map.
type Vars = expr.Vars

// Self binds v as `self`, so templates can write {self.Title}.
func Self(v any) Scope {
	return Vars{"self": v}
}

// Option configures compilation.
type Option func(*config)

type config struct {
	registry *Registry
	filename string
}

// WithRegistry resolves components from r instead of DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(c *config) { c.registry = r }
}

// WithFilename sets the file name reported in errors.
func WithFilename(name string) Option {
	return func(c *config) { c.filename = name }
}

func newConfig(opts []Option) *config {
	c := &config{registry: DefaultRegistry}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Template is a compiled template. It is immutable and safe for concurrent use.
type Template struct {
	name     string
	filename string
	params   []ast.Param
	body     *ast.Template
	compiled []*lower.Compiled
	programs []*program
}

// Compile compiles a single template body. Compile once and keep the result;
// Execute does no parsing.
func Compile(name, src string, opts ...Option) (*Template, error) {
	cfg := newConfig(opts)
	if cfg.filename == "" {
		cfg.filename = name
	}
	body, err := parser.ParseTemplate(src, cfg.filename)
	if err != nil {
		return nil, err
	}
	t := &Template{name: name, filename: cfg.filename, body: body}
	if err := t.build(resolver{registry: cfg.registry}); err != nil {
		return nil, err
	}
	return t, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(name, src string, opts ...Option) *Template {
	t, err := Compile(name, src, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) Name() string { return t.name }

// Params returns the declared parameters; templates compiled with Compile have none.
func (t *Template) Params() []ast.Param { return t.params }

// Compiled returns the lowered form, one entry per top-level node.
func (t *Template) Compiled() []*lower.Compiled { return t.compiled }

// Execute renders the template. Every declared parameter must be bound in scope.
func (t *Template) Execute(scope Scope) (UI, error) {
	if scope == nil {
		scope = Vars{}
	}
	for _, p := range t.params {
		if _, ok := scope.Lookup(p.Name); !ok {
			return UI{}, t.positioned(berrors.New("BIND-0004", map[string]any{"Name": p.Name}), t.body.Pos())
		}
	}
	return t.execute(scope)
}

// MustExecute is like Execute but panics on error.
func (t *Template) MustExecute(scope Scope) UI {
	ui, err := t.Execute(scope)
	if err != nil {
		panic(err)
	}
	return ui
}

func (t *Template) execute(scope Scope) (UI, error) {
	if len(t.programs) == 1 {
		return t.programs[0].render(t, scope)
	}
	parts := make([]UI, len(t.programs))
	for i, p := range t.programs {
		ui, err := p.render(t, scope)
		if err != nil {
			return UI{}, err
		}
		parts[i] = ui
	}
	return Concat(parts...), nil
}

func (t *Template) build(res resolver) error {
	compiled, err := lower.Lower(t.body, lower.Options{Components: res})
	if err != nil {
		return t.withFile(err)
	}
	t.compiled = compiled
	t.programs = make([]*program, len(compiled))
	for i, c := range compiled {
		if t.programs[i], err = t.compileProgram(c, res); err != nil {
			return err
		}
	}
	return nil
}

func (t *Template) withFile(err error) error {
	var be *berrors.BeamError
	if errors.As(err, &be) && be.File == "" {
		return be.WithFile(t.filename)
	}
	return err
}

// positioned attaches pos to errors that do not carry a line yet.
func (t *Template) positioned(err error, pos ast.Position) error {
	var be *berrors.BeamError
	if !errors.As(err, &be) {
		return err
	}
	if be.Line == 0 {
		be = be.WithPosition(pos.Line, pos.Column)
	}
	if be.File == "" {
		be = be.WithFile(t.filename)
	}
	return be
}

// program is a Compiled with its expressions and component calls prepared.
type program struct {
	pieces []string
	slots  []slotProgram
}

type slotProgram struct {
	kind lower.SlotKind
	attr string
	eval *expr.Expr
	call *callProgram
	pos  ast.Position
}

type exprProp struct {
	attr  string
	field string
	eval  *expr.Expr
	pos   ast.Position
}

type callProgram struct {
	name      string
	template  *Template
	component *componentType
	proto     reflect.Value  // literal props, for components
	literals  map[string]any // literal props, for templates
	exprs     []exprProp
	body      *program
	pos       ast.Position
}

func (t *Template) compileProgram(c *lower.Compiled, res resolver) (*program, error) {
	p := &program{pieces: c.Pieces, slots: make([]slotProgram, len(c.Slots))}
	for i, s := range c.Slots {
		sp := slotProgram{kind: s.Kind, attr: s.Attribute, pos: s.Pos}
		if s.Call != nil {
			call, err := t.compileCall(s.Call, res)
			if err != nil {
				return nil, err
			}
			sp.call = call
		} else {
			e, err := expr.Compile(s.Expr.Source)
			if err != nil {
				return nil, t.positioned(err, s.Pos)
			}
			sp.eval = e
		}
		p.slots[i] = sp
	}
	return p, nil
}

func (t *Template) compileCall(call *lower.ComponentCall, res resolver) (*callProgram, error) {
	cp := &callProgram{name: call.Name, pos: call.Pos}
	if tmpl, ok := res.template(call.Name); ok {
		cp.template = tmpl
		cp.literals = map[string]any{}
	} else if ct, ok := res.registry.lookup(call.Name); ok {
		cp.component = ct
		cp.proto = reflect.New(ct.typ).Elem()
	} else {
		return nil, t.positioned(berrors.New("COMP-0001", map[string]any{"Name": call.Name}), call.Pos)
	}

	for _, prop := range call.Props {
		var literal any
		switch v := prop.Value.(type) {
		case nil:
			literal = true
		case *ast.StringLiteral:
			literal = v.Value
		case *ast.IntegerLiteral:
			literal = int(v.Value)
		case *ast.Expression:
			if s, ok := v.StringValue(); ok {
				literal = s
				break
			}
			e, err := expr.Compile(v.Source)
			if err != nil {
				return nil, t.positioned(err, v.Pos())
			}
			cp.exprs = append(cp.exprs, exprProp{attr: prop.Name, field: prop.Field, eval: e, pos: v.Pos()})
			continue
		}

		if cp.template != nil {
			cp.literals[prop.Field] = literalParam(literal, cp.template.paramType(prop.Field))
			continue
		}
		if err := cp.component.set(cp.proto, prop.Name, literal, true); err != nil {
			return nil, t.positioned(err, prop.Pos)
		}
	}

	if call.Body != nil {
		body, err := t.compileProgram(call.Body, res)
		if err != nil {
			return nil, err
		}
		cp.body = body
	}
	return cp, nil
}

func (p *program) render(t *Template, scope Scope) (UI, error) {
	values := make([]Interpolator, len(p.slots))
	for i := range p.slots {
		s := &p.slots[i]
		if s.call != nil {
			ui, err := s.call.render(t, scope)
			if err != nil {
				return UI{}, err
			}
			values[i] = Interpolator{kind: interpChildren, html: ui.html}
			continue
		}

		v, err := s.eval.Eval(scope)
		if err != nil {
			return UI{}, t.positioned(err, s.pos)
		}
		switch s.kind {
		case lower.SlotAttribute:
			av, err := attributeValueFor(s.attr, v)
			if err != nil {
				return UI{}, t.positioned(err, s.pos)
			}
			values[i] = AttributeInterpolator(av)
		case lower.SlotUnescapedChildren:
			values[i] = Unsafe(v)
		default:
			values[i] = Children(v)
		}
	}
	return Assemble(p.pieces, values), nil
}

func (c *callProgram) render(t *Template, scope Scope) (UI, error) {
	var children UI
	if c.body != nil {
		var err error
		if children, err = c.body.render(t, scope); err != nil {
			return UI{}, err
		}
	}

	if c.template != nil {
		vars := make(Vars, len(c.template.params))
		for _, p := range c.template.params {
			vars[p.Name] = nil
		}
		for name, v := range c.literals {
			vars[name] = v
		}
		for _, ep := range c.exprs {
			v, err := ep.eval.Eval(scope)
			if err != nil {
				return UI{}, t.positioned(err, ep.pos)
			}
			vars[ep.field] = v
		}
		if c.body != nil {
			vars["children"] = children
		}
		return c.template.execute(vars)
	}

	props := reflect.New(c.component.typ).Elem()
	props.Set(c.proto)
	for _, ep := range c.exprs {
		v, err := ep.eval.Eval(scope)
		if err != nil {
			return UI{}, t.positioned(err, ep.pos)
		}
		if err := c.component.set(props, ep.attr, v, false); err != nil {
			return UI{}, t.positioned(err, ep.pos)
		}
	}
	c.component.setChildren(props, children)
	return c.component.render(props), nil
}

func (t *Template) paramType(name string) string {
	for _, p := range t.params {
		if p.Name == name {
			return p.Type
		}
	}
	return ""
}

// literalParam converts a literal attribute to the declared parameter type
// where the conversion is obvious.
func literalParam(v any, typ string) any {
	switch typ {
	case "string":
		switch v := v.(type) {
		case int:
			return strconv.Itoa(v)
		case bool:
			return strconv.FormatBool(v)
		}
	case "int", "int64", "int32", "uint", "uint64", "uint32":
		if s, ok := v.(string); ok {
			if i, err := strconv.Atoi(s); err == nil {
				return i
			}
		}
	case "bool":
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(s); err == nil {
				return b
			}
		}
	case "beam.UI", "UI":
		if s, ok := v.(string); ok {
			return Text(s)
		}
	}
	return v
}

// templateInfo describes a template used as a component.
type templateInfo struct {
	t *Template
}

func (ti templateInfo) Field(attr string) (string, bool) {
	for _, name := range []string{attr, strcase.ToLowerCamel(attr)} {
		if name == "children" {
			continue
		}
		for _, p := range ti.t.params {
			if p.Name == name {
				return p.Name, true
			}
		}
	}
	return "", false
}

func (ti templateInfo) PropNames() []string {
	var names []string
	for _, p := range ti.t.params {
		if p.Name != "children" {
			names = append(names, strcase.ToKebab(p.Name))
		}
	}
	return names
}

func (ti templateInfo) AcceptsChildren() bool {
	_, ok := ti.t.paramIndex("children")
	return ok
}

func (ti templateInfo) IsIsland() bool { return false }

func (t *Template) paramIndex(name string) (int, bool) {
	for i, p := range t.params {
		if p.Name == name {
			return i, true
		}
	}
	return -1, false
}

// resolver finds components among a set's templates, then in a registry.
type resolver struct {
	set      *Set
	registry *Registry
}

func (r resolver) template(name string) (*Template, bool) {
	if r.set == nil {
		return nil, false
	}
	t, ok := r.set.templates[name]
	return t, ok
}

func (r resolver) LookupComponent(name string) (lower.ComponentInfo, bool) {
	if t, ok := r.template(name); ok {
		return templateInfo{t}, true
	}
	return r.registry.LookupComponent(name)
}

func (r resolver) ComponentNames() []string {
	var names []string
	if r.set != nil {
		names = append(names, r.set.order...)
	}
	if r.registry != nil {
		names = append(names, r.registry.Names()...)
	}
	return names
}

// Set is the compiled templates of one .beam file. Templates in a set can use
// each other as components.
type Set struct {
	filename  string
	pkg       string
	templates map[string]*Template
	order     []string
}

// CompileFile compiles every template definition in a .beam file. A file of
// plain markup yields one template named after the file, so cards.beam gives
// "Cards".
func CompileFile(filename string, src []byte, opts ...Option) (*Set, error) {
	cfg := newConfig(opts)
	if cfg.filename == "" {
		cfg.filename = filename
	}
	file, err := parser.ParseFile(string(src), cfg.filename)
	if err != nil {
		return nil, err
	}

	set := &Set{filename: cfg.filename, pkg: file.Package, templates: map[string]*Template{}}
	for _, def := range file.Definitions {
		name := def.Name
		if name == "" {
			name = NameFromFile(filename)
		}
		set.templates[name] = &Template{name: name, filename: cfg.filename, params: def.Params, body: def.Body}
		set.order = append(set.order, name)
	}

	res := resolver{set: set, registry: cfg.registry}
	for _, name := range set.order {
		if err := set.templates[name].build(res); err != nil {
			return nil, err
		}
	}
	if err := set.checkCycles(); err != nil {
		return nil, err
	}
	return set, nil
}

// NameFromFile derives a template name from a file name: "user-card.beam"
// becomes "UserCard".
func NameFromFile(filename string) string {
	base := filepath.Base(filename)
	return strcase.ToCamel(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Lookup returns the named template, or nil.
func (s *Set) Lookup(name string) *Template {
	return s.templates[name]
}

// Templates returns the templates in definition order.
func (s *Set) Templates() []*Template {
	out := make([]*Template, len(s.order))
	for i, name := range s.order {
		out[i] = s.templates[name]
	}
	return out
}

// Package returns the file's package clause, if any.
func (s *Set) Package() string { return s.pkg }

// checkCycles rejects templates that include themselves. Markup has no
// conditionals, so such a template could never finish rendering.
func (s *Set) checkCycles() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := map[*Template]int{}
	var path []string

	var visit func(t *Template) error
	visit = func(t *Template) error {
		switch state[t] {
		case visiting:
			return t.positioned(berrors.New("COMP-0007", map[string]any{
				"Name": t.name,
				"Path": strings.Join(append(path, t.name), " -> "),
			}), t.body.Pos())
		case done:
			return nil
		}
		state[t] = visiting
		path = append(path, t.name)
		for _, callee := range t.callees() {
			if err := visit(callee); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[t] = done
		return nil
	}

	for _, name := range s.order {
		if err := visit(s.templates[name]); err != nil {
			return err
		}
	}
	return nil
}

func (t *Template) callees() []*Template {
	var out []*Template
	var walk func(p *program)
	walk = func(p *program) {
		for _, s := range p.slots {
			if s.call == nil {
				continue
			}
			if s.call.template != nil {
				out = append(out, s.call.template)
			}
			if s.call.body != nil {
				walk(s.call.body)
			}
		}
	}
	for _, p := range t.programs {
		walk(p)
	}
	return out
}
