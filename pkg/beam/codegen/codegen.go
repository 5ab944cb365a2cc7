// Package codegen compiles .beam files to Go source ahead of time.
//
// Each template definition becomes a function returning beam.UI. Its literal
// segments are package-level arrays and its slots are Go expressions, so the
// Go compiler type-checks every interpolation.
//
// Components are the file's own templates, or props structs declared in the Go
// files of the package the output joins. Struct fields bind to attributes by
// the same rules beam.Registry uses, and islands are marked with a blank
// field tagged `beam:"island"`.
package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/natefinch/atomic"

	"github.com/sambeau/beam/pkg/beam"
	"github.com/sambeau/beam/pkg/beam/ast"
	berrors "github.com/sambeau/beam/pkg/beam/errors"
	"github.com/sambeau/beam/pkg/beam/lower"
	"github.com/sambeau/beam/pkg/beam/parser"
)

// ImportPath is the runtime package generated code imports.
const ImportPath = "github.com/sambeau/beam/pkg/beam"

// Options configures generation.
type Options struct {
	// Package overrides the file's package clause. One of them must be set.
	Package string
	// Suffix is appended to the source path to name the output, ".go" by default.
	Suffix string
	// Dir is the directory of the Go package the output joins, searched for
	// struct components. GenerateFile defaults it to the source's directory.
	Dir string
}

func (o Options) suffix() string {
	if o.Suffix == "" {
		return ".go"
	}
	return o.Suffix
}

// OutputPath returns the file GenerateFile writes for path.
func OutputPath(path string, opts Options) string {
	return path + opts.suffix()
}

// GenerateFile parses and generates path, writing the result atomically next to
// it. It returns the output path.
func GenerateFile(path string, opts Options) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	file, err := parser.ParseFile(string(src), path)
	if err != nil {
		return "", err
	}
	if opts.Dir == "" {
		opts.Dir = filepath.Dir(path)
	}
	out, err := Generate(file, opts)
	if err != nil {
		return "", err
	}

	dest := OutputPath(path, opts)
	if err := atomic.WriteFile(dest, bytes.NewReader(out)); err != nil {
		return "", berrors.New("GEN-0002", map[string]any{"Path": dest, "GoError": err.Error()})
	}
	return dest, nil
}

// Generate returns gofmt'd Go source for file.
func Generate(file *ast.File, opts Options) ([]byte, error) {
	pkg := opts.Package
	if pkg == "" {
		pkg = file.Package
	}
	if pkg == "" {
		return nil, berrors.New("GEN-0001", map[string]any{
			"File":    file.Name,
			"GoError": "no package clause and no package option",
		}).WithFile(file.Name)
	}

	g := &generator{file: file, defs: map[string]*ast.Definition{}}
	for _, def := range file.Definitions {
		g.defs[g.funcName(def)] = def
	}
	if opts.Dir != "" {
		structs, err := loadStructs(opts.Dir)
		if err != nil {
			return nil, withFile(err, file.Name)
		}
		g.structs = structs
	}

	fmt.Fprintf(&g.head, "// Code generated by beam from %s. DO NOT EDIT.\n\n", filepath.Base(file.Name))
	fmt.Fprintf(&g.head, "package %s\n\n", pkg)
	g.writeImports()

	for _, def := range file.Definitions {
		if err := g.definition(def); err != nil {
			return nil, withFile(err, file.Name)
		}
	}

	src := append(g.head.Bytes(), g.vars.Bytes()...)
	src = append(src, g.funcs.Bytes()...)
	formatted, err := format.Source(src)
	if err != nil {
		return nil, berrors.New("GEN-0001", map[string]any{"File": file.Name, "GoError": err.Error()}).WithFile(file.Name)
	}
	return formatted, nil
}

func withFile(err error, name string) error {
	var be *berrors.BeamError
	if errors.As(err, &be) && be.File == "" {
		return be.WithFile(name)
	}
	return err
}

type generator struct {
	file    *ast.File
	defs    map[string]*ast.Definition
	structs map[string]*structType
	head    bytes.Buffer
	vars    bytes.Buffer
	funcs   bytes.Buffer

	prefix string // pieces variable prefix for the current definition
	count  int
}

func (g *generator) funcName(def *ast.Definition) string {
	if def.Name != "" {
		return def.Name
	}
	return beam.NameFromFile(g.file.Name)
}

func (g *generator) writeImports() {
	g.head.WriteString("import (\n")
	fmt.Fprintf(&g.head, "\t%q\n", ImportPath)
	for _, imp := range g.file.Imports {
		if imp.Path == ImportPath && imp.Alias == "" {
			continue
		}
		if imp.Alias != "" {
			fmt.Fprintf(&g.head, "\t%s %q\n", imp.Alias, imp.Path)
		} else {
			fmt.Fprintf(&g.head, "\t%q\n", imp.Path)
		}
	}
	g.head.WriteString(")\n\n")
}

func (g *generator) definition(def *ast.Definition) error {
	name := g.funcName(def)
	g.prefix = strcase.ToLowerCamel(name) + "Pieces"
	g.count = 0

	compiled, err := lower.Lower(def.Body, lower.Options{Components: fileResolver{g}, Client: def.Body.HasDirective("client")})
	if err != nil {
		return err
	}

	params := make([]string, len(def.Params))
	for i, p := range def.Params {
		params[i] = p.Name + " " + p.Type
	}

	bodies := make([]string, len(compiled))
	for i, c := range compiled {
		if bodies[i], err = g.compiled(c); err != nil {
			return err
		}
	}

	fmt.Fprintf(&g.funcs, "func %s(%s) beam.UI {\n", name, strings.Join(params, ", "))
	switch len(bodies) {
	case 0:
		g.funcs.WriteString("\treturn beam.UI{}\n")
	case 1:
		fmt.Fprintf(&g.funcs, "\treturn %s\n", bodies[0])
	default:
		fmt.Fprintf(&g.funcs, "\treturn beam.Concat(\n\t\t%s,\n\t)\n", strings.Join(bodies, ",\n\t\t"))
	}
	g.funcs.WriteString("}\n\n")
	return nil
}

// compiled returns a Go expression that renders c.
func (g *generator) compiled(c *lower.Compiled) (string, error) {
	if s, ok := c.Static(); ok {
		if s == "" {
			return "beam.UI{}", nil
		}
		return "beam.Raw(" + strconv.Quote(s) + ")", nil
	}

	v := g.prefix + strconv.Itoa(g.count)
	g.count++
	fmt.Fprintf(&g.vars, "var %s = [...]string{\n", v)
	for _, p := range c.Pieces {
		fmt.Fprintf(&g.vars, "\t%s,\n", strconv.Quote(p))
	}
	g.vars.WriteString("}\n\n")

	values := make([]string, len(c.Slots))
	for i, s := range c.Slots {
		var err error
		if values[i], err = g.slot(s); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("beam.Assemble(%s[:], []beam.Interpolator{\n%s,\n})", v, strings.Join(values, ",\n")), nil
}

func (g *generator) slot(s lower.Slot) (string, error) {
	if s.Call != nil {
		return g.call(s.Call)
	}
	switch s.Kind {
	case lower.SlotAttribute:
		return "beam.Attr(" + s.Expr.Source + ")", nil
	case lower.SlotUnescapedChildren:
		return "beam.Unsafe(" + s.Expr.Source + ")", nil
	default:
		return "beam.Children(" + s.Expr.Source + ")", nil
	}
}

// call renders a component call. Templates from the same file are called as
// functions with positional arguments; structs are built as composite
// literals and rendered, or handed to beam.RenderIsland.
func (g *generator) call(call *lower.ComponentCall) (string, error) {
	var body string
	if call.Body != nil {
		var err error
		if body, err = g.compiled(call.Body); err != nil {
			return "", err
		}
	}

	if def, ok := g.defs[call.Name]; ok {
		args := make([]string, len(def.Params))
		for i, p := range def.Params {
			args[i] = "*new(" + p.Type + ")"
			if p.Name == "children" && body != "" {
				args[i] = body
			}
		}
		for _, prop := range call.Props {
			for i, p := range def.Params {
				if p.Name != prop.Field {
					continue
				}
				v, err := propValue(call, prop, p.Type, false)
				if err != nil {
					return "", err
				}
				args[i] = v
			}
		}
		return "beam.Children(" + call.Name + "(" + strings.Join(args, ", ") + "))", nil
	}

	st := g.structs[call.Name]
	if st.problem != "" {
		return "", berrors.NewWithPosition("COMP-0004", call.Pos.Line, call.Pos.Column, map[string]any{
			"Name":   call.Name,
			"Reason": st.problem,
		})
	}
	fields := make([]string, 0, len(call.Props)+1)
	for _, prop := range call.Props {
		v, err := propValue(call, prop, st.fields[prop.Field], true)
		if err != nil {
			return "", err
		}
		fields = append(fields, prop.Field+": "+v)
	}
	if body != "" {
		fields = append(fields, st.children+": "+body)
	}
	lit := call.Name + "{" + strings.Join(fields, ", ") + "}"
	if st.island {
		return "beam.Children(beam.RenderIsland(" + strconv.Quote(call.Name) + ", " + lit + "))", nil
	}
	return "beam.Children((&" + lit + ").Render())", nil
}

// propValue converts a prop's value to the type of the parameter or field it
// sets.
func propValue(call *lower.ComponentCall, prop lower.Prop, typ string, weak bool) (string, error) {
	v, err := literal(prop.Value, typ, weak)
	if err != nil {
		return "", berrors.NewWithPosition("COMP-0005", prop.Pos.Line, prop.Pos.Column, map[string]any{
			"Prop":    prop.Name,
			"Name":    call.Name,
			"GoError": err.Error(),
		})
	}
	return v, nil
}

// fileResolver resolves components for generated code: templates in the file
// first, then props structs in the package.
type fileResolver struct {
	g *generator
}

func (r fileResolver) LookupComponent(name string) (lower.ComponentInfo, bool) {
	if def, ok := r.g.defs[name]; ok {
		return paramInfo{def}, true
	}
	if st, ok := r.g.structs[name]; ok {
		return st, true
	}
	return nil, false
}

func (r fileResolver) ComponentNames() []string {
	names := make([]string, 0, len(r.g.defs)+len(r.g.structs))
	for name := range r.g.defs {
		names = append(names, name)
	}
	for name := range r.g.structs {
		if _, ok := r.g.defs[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

type paramInfo struct {
	def *ast.Definition
}

func (pi paramInfo) Field(attr string) (string, bool) {
	for _, name := range []string{attr, strcase.ToLowerCamel(attr)} {
		if name == "children" {
			continue
		}
		for _, p := range pi.def.Params {
			if p.Name == name {
				return name, true
			}
		}
	}
	return "", false
}

func (pi paramInfo) PropNames() []string {
	var names []string
	for _, p := range pi.def.Params {
		if p.Name != "children" {
			names = append(names, strcase.ToKebab(p.Name))
		}
	}
	return names
}

func (pi paramInfo) AcceptsChildren() bool {
	for _, p := range pi.def.Params {
		if p.Name == "children" {
			return true
		}
	}
	return false
}

func (paramInfo) IsIsland() bool { return false }
