package ast

import (
	"bytes"
	"strconv"

	"github.com/sambeau/beam/pkg/beam/lexer"
)

// File is a .beam source file: a package clause, imports and named templates.
type File struct {
	Name        string // file name used in diagnostics
	Package     string
	Imports     []*Import
	Definitions []*Definition
}

func (f *File) TokenLiteral() string { return "package" }
func (f *File) Pos() Position        { return Position{Line: 1, Column: 1} }
func (f *File) String() string {
	var out bytes.Buffer
	if f.Package != "" {
		out.WriteString("package " + f.Package + "\n\n")
	}
	for _, imp := range f.Imports {
		out.WriteString(imp.String() + "\n")
	}
	for _, def := range f.Definitions {
		out.WriteString("\n" + def.String() + "\n")
	}
	return out.String()
}

// Lookup returns the definition with the given name.
func (f *File) Lookup(name string) *Definition {
	for _, def := range f.Definitions {
		if def.Name == name {
			return def
		}
	}
	return nil
}

// Import is an import line carried through to generated Go code.
type Import struct {
	Token lexer.Token
	Alias string
	Path  string
}

func (i *Import) TokenLiteral() string { return i.Token.Literal }
func (i *Import) Pos() Position        { return tokenPos(i.Token) }
func (i *Import) String() string {
	if i.Alias != "" {
		return "import " + i.Alias + " " + strconv.Quote(i.Path)
	}
	return "import " + strconv.Quote(i.Path)
}

// Param is one declared template parameter. Type is Go type source.
type Param struct {
	Name string
	Type string
}

// Definition is template Name(params) { body }.
type Definition struct {
	Token  lexer.Token // the 'template' token
	Name   string
	Params []Param
	Body   *Template
}

func (d *Definition) TokenLiteral() string { return d.Token.Literal }
func (d *Definition) Pos() Position        { return tokenPos(d.Token) }
func (d *Definition) String() string {
	var out bytes.Buffer
	out.WriteString("template " + d.Name + "(")
	for i, p := range d.Params {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(p.Name + " " + p.Type)
	}
	out.WriteString(") {\n")
	if d.Body != nil {
		out.WriteString(d.Body.String())
	}
	out.WriteString("\n}")
	return out.String()
}

// Param returns the named parameter.
func (d *Definition) Param(name string) (Param, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}
