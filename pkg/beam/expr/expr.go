// Package expr evaluates Go expressions embedded in templates.
//
// Expressions are parsed once with go/parser and evaluated by walking the
// syntax tree against a Scope using reflection. Only the side-effect free subset
// useful in markup is supported: literals, identifiers, selectors, indexing,
// unary and binary operators, and calls.
package expr

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	berrors "github.com/sambeau/beam/pkg/beam/errors"
)

// Expr is a compiled expression, safe for concurrent use.
type Expr struct {
	src  string
	root ast.Expr
}

// Compile parses src as a Go expression and checks that every form in it can
// be evaluated.
func Compile(src string) (*Expr, error) {
	root, err := parser.ParseExpr(src)
	if err != nil {
		return nil, berrors.New("EXPR-0001", map[string]any{"Source": src, "GoError": firstLine(err)})
	}
	if err := check(root); err != nil {
		return nil, err
	}
	return &Expr{src: src, root: root}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// Source returns the expression text.
func (e *Expr) Source() string { return e.src }

func (e *Expr) String() string { return e.src }

// Eval evaluates the expression in scope.
func (e *Expr) Eval(scope Scope) (any, error) {
	if scope == nil {
		scope = Vars{}
	}
	ev := &evaluator{scope: scope, src: e.src}
	return ev.eval(e.root)
}

// Identifiers returns the free identifiers the expression reads, in order of
// first use.
func (e *Expr) Identifiers() []string {
	var names []string
	seen := map[string]bool{}
	var visit func(n ast.Node) bool
	visit = func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.SelectorExpr:
			ast.Inspect(n.X, visit)
			return false
		case *ast.Ident:
			if !seen[n.Name] && !isPredeclared(n.Name) {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		}
		return true
	}
	ast.Inspect(e.root, visit)
	return names
}

func isPredeclared(name string) bool {
	switch name {
	case "true", "false", "nil", "len":
		return true
	}
	return false
}

// check rejects forms the evaluator does not support.
func check(root ast.Expr) error {
	var err error
	ast.Inspect(root, func(n ast.Node) bool {
		if err != nil || n == nil {
			return false
		}
		switch n := n.(type) {
		case *ast.BasicLit, *ast.Ident, *ast.ParenExpr, *ast.SelectorExpr, *ast.IndexExpr:
		case *ast.UnaryExpr:
			switch n.Op {
			case token.SUB, token.ADD, token.NOT:
			default:
				err = berrors.New("EXPR-0003", map[string]any{"Op": n.Op.String()})
			}
		case *ast.BinaryExpr:
			if _, ok := binaryOps[n.Op]; !ok {
				err = berrors.New("EXPR-0003", map[string]any{"Op": n.Op.String()})
			}
		case *ast.CallExpr:
			if n.Ellipsis != token.NoPos {
				err = berrors.New("EXPR-0002", map[string]any{"Kind": "variadic call"})
			}
		default:
			err = berrors.New("EXPR-0002", map[string]any{"Kind": describeNode(n)})
		}
		return err == nil
	})
	return err
}

var binaryOps = map[token.Token]bool{
	token.ADD: true, token.SUB: true, token.MUL: true, token.QUO: true, token.REM: true,
	token.EQL: true, token.NEQ: true, token.LSS: true, token.LEQ: true, token.GTR: true, token.GEQ: true,
	token.LAND: true, token.LOR: true,
}

func describeNode(n ast.Node) string {
	switch n.(type) {
	case *ast.FuncLit:
		return "function literal"
	case *ast.CompositeLit:
		return "composite literal"
	case *ast.TypeAssertExpr:
		return "type assertion"
	case *ast.SliceExpr:
		return "slice expression"
	case *ast.StarExpr:
		return "pointer dereference"
	case *ast.KeyValueExpr:
		return "key-value pair"
	case *ast.IndexListExpr:
		return "generic instantiation"
	}
	return fmt.Sprintf("%T", n)
}

func firstLine(err error) string {
	line, _, _ := strings.Cut(err.Error(), "\n")
	return line
}
