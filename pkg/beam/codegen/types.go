package codegen

import (
	"go/ast"
	goparser "go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/sambeau/beam/pkg/beam"
	berrors "github.com/sambeau/beam/pkg/beam/errors"
)

// structType is a props struct declared in the package generated code joins.
// Its attributes bind the way beam.Registry binds them at runtime.
type structType struct {
	name     string
	fields   map[string]string // Go field name to type, with the beam import spelled beam
	props    map[string]string // attribute to Go field name
	attrs    []string
	children string
	island   bool
	problem  string // why the type cannot be used as a component
}

func (st *structType) Field(attr string) (string, bool) {
	for _, key := range beam.PropKeys(attr) {
		if f, ok := st.props[key]; ok {
			return f, true
		}
	}
	return "", false
}

func (st *structType) PropNames() []string  { return st.attrs }
func (st *structType) AcceptsChildren() bool { return st.children != "" }
func (st *structType) IsIsland() bool        { return st.island }

// loadStructs parses the non-test Go files in dir and returns its struct
// types by name.
func loadStructs(dir string) (map[string]*structType, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, loadError(dir, err)
	}
	fset := token.NewFileSet()
	out := map[string]*structType{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := goparser.ParseFile(fset, filepath.Join(dir, name), nil, goparser.SkipObjectResolution)
		if err != nil {
			return nil, loadError(dir, err)
		}
		collectStructs(f, out)
	}
	return out, nil
}

func loadError(dir string, err error) error {
	return berrors.New("GEN-0003", map[string]any{"Dir": dir, "GoError": err.Error()})
}

// beamName returns the name f imports the runtime package under, or "".
func beamName(f *ast.File) string {
	for _, imp := range f.Imports {
		if path, _ := strconv.Unquote(imp.Path.Value); path != ImportPath {
			continue
		}
		if imp.Name != nil {
			return imp.Name.Name
		}
		return "beam"
	}
	return ""
}

func collectStructs(f *ast.File, out map[string]*structType) {
	local := beamName(f)
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			st, ok := ts.Type.(*ast.StructType)
			if !ok || ts.TypeParams != nil || !token.IsExported(ts.Name.Name) {
				continue
			}
			out[ts.Name.Name] = newStructType(ts.Name.Name, st, local)
		}
	}
}

func newStructType(name string, st *ast.StructType, local string) *structType {
	t := &structType{name: name, fields: map[string]string{}, props: map[string]string{}}
	for _, field := range st.Fields.List {
		typ := types.ExprString(field.Type)
		if local != "" && local != "beam" && strings.HasPrefix(typ, local+".") {
			typ = "beam." + strings.TrimPrefix(typ, local+".")
		}
		var tag string
		if field.Tag != nil {
			raw, _ := strconv.Unquote(field.Tag.Value)
			tag = reflect.StructTag(raw).Get("beam")
		}
		// embedded fields are not props
		for _, id := range field.Names {
			attr, role := beam.PropBinding(id.Name, tag)
			switch role {
			case beam.PropSkip:
				continue
			case beam.PropIsland:
				t.island = true
				continue
			case beam.PropChildren:
				if typ != "beam.UI" {
					t.problem = "children field " + id.Name + " must be a beam.UI"
				}
				t.children = id.Name
				t.fields[id.Name] = typ
				continue
			}
			if _, dup := t.props[attr]; dup {
				t.problem = "two fields use attribute " + attr
			}
			t.props[attr] = id.Name
			t.fields[id.Name] = typ
			t.attrs = append(t.attrs, attr)
		}
	}
	if t.island && t.children != "" {
		t.problem = "an island cannot take children"
	}
	sort.Strings(t.attrs)
	return t
}
