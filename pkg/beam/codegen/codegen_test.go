package codegen

import (
	"errors"
	"fmt"
	goast "go/ast"
	goparser "go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/sambeau/beam/pkg/beam/errors"
	"github.com/sambeau/beam/pkg/beam/parser"
)

const viewsSrc = `package views

import "strconv"

template Card(title string, children beam.UI) {
	<section class="card">
		<h2>{title}</h2>
		{children}
	</section>
}

template Page(user User, n int) {
	<html>
		<body data-n={strconv.Itoa(n)} hidden={n == 0}>
			<Card title={user.Name}>
				<p>"Hello"</p>
				unsafe {user.Bio}
			</Card>
			<Card title="empty"/>
			<Avatar src={user.Photo} size=64/>
		</body>
	</html>
}

template Footer() {
	<footer>"(c)"</footer>
}
`

const viewsGo = `package views

import "github.com/sambeau/beam/pkg/beam"

type User struct {
	Name, Bio, Photo string
}

type Avatar struct {
	Src  string
	Size int
}

func (a Avatar) Render() beam.UI { return beam.Raw(a.Src) }
`

// packageDir writes Go files into a temporary package directory.
func packageDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	return dir
}

func generate(t *testing.T, src string, opts Options) string {
	t.Helper()
	file, err := parser.ParseFile(src, "views.beam")
	require.NoError(t, err)
	out, err := Generate(file, opts)
	require.NoError(t, err)

	_, err = goparser.ParseFile(token.NewFileSet(), "views.beam.go", out, goparser.AllErrors)
	require.NoError(t, err, "generated code does not parse:\n%s", out)
	return string(out)
}

// lines returns the trimmed non-empty lines of src.
func lines(src string) []string {
	var out []string
	for _, l := range strings.Split(src, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func TestGenerate(t *testing.T) {
	dir := packageDir(t, map[string]string{"views.go": viewsGo})
	out := generate(t, viewsSrc, Options{Dir: dir})
	got := lines(out)

	assert.Equal(t, "// Code generated by beam from views.beam. DO NOT EDIT.", got[0])
	assert.Equal(t, "package views", got[1])
	assert.Contains(t, out, `"github.com/sambeau/beam/pkg/beam"`)
	assert.Contains(t, out, `"strconv"`)

	for _, want := range []string{
		"func Card(title string, children beam.UI) beam.UI {",
		"var cardPieces0 = [...]string{",
		`"<section class=\"card\"><h2>",`,
		`"</h2>",`,
		`"</section>",`,
		"return beam.Assemble(cardPieces0[:], []beam.Interpolator{",
		"beam.Children(title),",
		"beam.Children(children),",

		"func Page(user User, n int) beam.UI {",
		`"<!DOCTYPE html><html><body data-n=",`,
		`" hidden=",`,
		"beam.Attr(strconv.Itoa(n)),",
		"beam.Attr(n == 0),",
		"beam.Unsafe(user.Bio),",
		`beam.Children((&Avatar{Src: user.Photo, Size: 64}).Render()),`,

		"func Footer() beam.UI {",
		`return beam.Raw("<footer>(c)</footer>")`,
	} {
		assert.Contains(t, got, want)
	}

	// the body of the first Card has a slot, so it is assembled from its own pieces
	assert.Contains(t, out, "beam.Children(Card(user.Name, beam.Assemble(pagePieces")
	assert.Contains(t, out, `beam.Children(Card("empty", *new(beam.UI))),`)
}

func TestGeneratePackageOverride(t *testing.T) {
	out := generate(t, "template A() {<p/>}", Options{Package: "other"})
	assert.Contains(t, lines(out), "package other")
	assert.Contains(t, lines(out), `return beam.Raw("<p/>")`)
}

func TestGeneratePlainMarkup(t *testing.T) {
	file, err := parser.ParseFile(`<div>{name}</div>`, "user-card.beam")
	require.NoError(t, err)
	out, err := Generate(file, Options{Package: "views"})
	require.NoError(t, err)
	assert.Contains(t, lines(string(out)), "func UserCard() beam.UI {")
}

func TestGenerateErrors(t *testing.T) {
	dir := packageDir(t, map[string]string{"components.go": componentsGo})
	pkg := Options{Dir: dir}
	tests := []struct {
		name string
		src  string
		opts Options
		code string
	}{
		{"no package", "template A() {<p/>}", Options{}, "GEN-0001"},
		{"unknown template param", "package v\ntemplate A(x int) {<p/>}\ntemplate B() {<A y=1/>}", Options{}, "COMP-0002"},
		{"children not accepted", "package v\ntemplate A() {<p/>}\ntemplate B() {<A>\"x\"</A>}", Options{}, "COMP-0003"},
		{"duplicate attribute", "package v\ntemplate A() {<p id=\"a\" id=\"b\"/>}", Options{}, "LOWER-0001"},
		{"unknown component", "package v\ntemplate A() {<Avatar/>}", pkg, "COMP-0001"},
		{"no type information", "package v\ntemplate A() {<Badge/>}", Options{}, "COMP-0001"},
		{"unknown field", "package v\ntemplate A() {<Badge colour=\"red\"/>}", pkg, "COMP-0002"},
		{"struct without children field", "package v\ntemplate A() {<Badge>\"x\"</Badge>}", pkg, "COMP-0003"},
		{"island with children", "package v\ntemplate A() {<Counter>\"x\"</Counter>}", pkg, "COMP-0006"},
		{"bad children field", "package v\ntemplate A() {<Broken/>}", pkg, "COMP-0004"},
		{"literal not a number", "package v\ntemplate A() {<Badge count=\"many\"/>}", pkg, "COMP-0005"},
		{"bare attribute on int param", "package v\ntemplate A(n int) {<p/>}\ntemplate B() {<A n/>}", Options{}, "COMP-0005"},
		{"integer on bool param", "package v\ntemplate A(on bool) {<p/>}\ntemplate B() {<A on=1/>}", Options{}, "COMP-0005"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := parser.ParseFile(tt.src, "v.beam")
			require.NoError(t, err)
			_, err = Generate(file, tt.opts)
			var be *berrors.BeamError
			require.True(t, errors.As(err, &be), "got %v", err)
			assert.Equal(t, tt.code, be.Code, be.Message)
			assert.Equal(t, "v.beam", be.File)
		})
	}
}

func TestGenerateFile(t *testing.T) {
	dir := packageDir(t, map[string]string{"views.go": viewsGo})
	path := filepath.Join(dir, "views.beam")
	require.NoError(t, os.WriteFile(path, []byte(viewsSrc), 0o644))

	dest, err := GenerateFile(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, path+".go", dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "func Footer() beam.UI {")

	dest, err = GenerateFile(path, Options{Suffix: "_beam.go"})
	require.NoError(t, err)
	assert.Equal(t, path+"_beam.go", dest)

	_, err = GenerateFile(filepath.Join(dir, "missing.beam"), Options{})
	assert.Error(t, err)
}

func TestGenerateFileReadsPackageTypes(t *testing.T) {
	dir := packageDir(t, map[string]string{
		"components.go":      componentsGo,
		"components_test.go": "package views\n\ntype Hidden struct{ X int }\n",
	})
	path := filepath.Join(dir, "page.beam")
	require.NoError(t, os.WriteFile(path, []byte("package views\ntemplate Page() {<Badge label=\"x\"/>}\n"), 0o644))

	dest, err := GenerateFile(path, Options{})
	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), `(&Badge{Label: "x"}).Render()`)

	// the generated file now sits in the package and is read back harmlessly
	_, err = GenerateFile(path, Options{})
	require.NoError(t, err)

	// test files are not part of the package
	require.NoError(t, os.WriteFile(path, []byte("package views\ntemplate Page() {<Hidden x=1/>}\n"), 0o644))
	_, err = GenerateFile(path, Options{})
	var be *berrors.BeamError
	require.True(t, errors.As(err, &be), "got %v", err)
	assert.Equal(t, "COMP-0001", be.Code)
}

func TestGenerateBadPackage(t *testing.T) {
	dir := packageDir(t, map[string]string{"broken.go": "package views\n\ntype {"})
	file, err := parser.ParseFile("package views\ntemplate A() {<p/>}", "a.beam")
	require.NoError(t, err)
	_, err = Generate(file, Options{Dir: dir})
	var be *berrors.BeamError
	require.True(t, errors.As(err, &be), "got %v", err)
	assert.Equal(t, "GEN-0003", be.Code)
	assert.Equal(t, "a.beam", be.File)
}

const componentsGo = `package views

import b "github.com/sambeau/beam/pkg/beam"

type Markdown struct {
	Source     string
	HeadingIDs bool ` + "`beam:\"heading-ids\"`" + `
	AllowHTML  bool
}

func (m Markdown) Render() b.UI { return b.Raw(m.Source) }

type Panel struct {
	Heading string
	Body    b.UI ` + "`beam:\"children\"`" + `
	secret  int
}

func (p *Panel) Render() b.UI { return b.Concat(b.Text(p.Heading), p.Body) }

type Badge struct {
	Label string
	Count int
	Wide  bool
	Ratio float64
	Note  string ` + "`beam:\"-\"`" + `
}

func (x Badge) Render() b.UI { return b.Text(x.Label) }

type Counter struct {
	_     struct{} ` + "`beam:\"island\"`" + `
	Start int
}

func (c Counter) Render() b.UI { return b.UI{} }

type Broken struct {
	Children string
}

func (Broken) Render() b.UI { return b.UI{} }
`

const pageSrc = `package views

template Counted(count int, label string) {
	<span data-count={count}>{label}</span>
}

template Page(title string) {
	<main>
		<Markdown source="# hi" heading-ids/>
		<Panel heading={title}><p>"body"</p></Panel>
		<Badge label=3 count="0x10" wide ratio="1.5"/>
		<Counted count="3" label=4/>
		<Counter start="2"/>
	</main>
}
`

func TestGenerateStructComponents(t *testing.T) {
	dir := packageDir(t, map[string]string{"components.go": componentsGo})
	out := generate(t, pageSrc, Options{Dir: dir})
	got := lines(out)

	for _, want := range []string{
		`beam.Children((&Markdown{Source: "# hi", HeadingIDs: true}).Render()),`,
		`beam.Children((&Panel{Heading: title, Body: beam.Raw("<p>body</p>")}).Render()),`,
		`beam.Children((&Badge{Label: "3", Count: 16, Wide: true, Ratio: 1.5}).Render()),`,
		`beam.Children(Counted(3, "4")),`,
		`beam.Children(beam.RenderIsland("Counter", Counter{Start: 2})),`,
	} {
		assert.Contains(t, got, want)
	}

	typeCheck(t, dir, out)
}

// runtimeAPI declares the exported surface of the runtime package that
// generated code calls, so output can be type-checked without compiling it.
const runtimeAPI = `package beam

type UI struct{ html string }

type Interpolator struct{ html string }

type AttributeType interface {
	~string | ~bool | ~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32
}

func Assemble(pieces []string, values []Interpolator) UI { return UI{} }
func Attr[T AttributeType](v T) Interpolator          { return Interpolator{} }
func Children(v any) Interpolator                     { return Interpolator{} }
func Unsafe(v any) Interpolator                       { return Interpolator{} }
func Raw(html string) UI                              { return UI{html} }
func Text(s string) UI                                { return UI{s} }
func Concat(uis ...UI) UI                             { return UI{} }
func RenderIsland(name string, props any) UI          { return UI{} }
`

type runtimeImporter struct {
	fset *token.FileSet
	pkg  *types.Package
}

func (ri *runtimeImporter) Import(path string) (*types.Package, error) {
	if path != ImportPath {
		return nil, fmt.Errorf("unexpected import %q", path)
	}
	if ri.pkg != nil {
		return ri.pkg, nil
	}
	f, err := goparser.ParseFile(ri.fset, "beam.go", runtimeAPI, 0)
	if err != nil {
		return nil, err
	}
	ri.pkg, err = (&types.Config{}).Check(ImportPath, ri.fset, []*goast.File{f}, nil)
	return ri.pkg, err
}

// typeCheck checks generated against the Go files of the package in dir.
func typeCheck(t *testing.T, dir, generated string) {
	t.Helper()
	fset := token.NewFileSet()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var files []*goast.File
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".go" {
			continue
		}
		f, err := goparser.ParseFile(fset, filepath.Join(dir, e.Name()), nil, 0)
		require.NoError(t, err)
		files = append(files, f)
	}
	gen, err := goparser.ParseFile(fset, "generated.go", generated, 0)
	require.NoError(t, err)
	files = append(files, gen)

	conf := types.Config{Importer: &runtimeImporter{fset: fset}}
	_, err = conf.Check("views", fset, files, nil)
	require.NoError(t, err, "generated code does not type-check:\n%s", generated)
}
