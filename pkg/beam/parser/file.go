package parser

import (
	"errors"
	"go/parser"
	"go/token"
	"go/types"
	"strconv"

	goast "go/ast"

	"github.com/sambeau/beam/pkg/beam/ast"
	"github.com/sambeau/beam/pkg/beam/lexer"
)

// ParseFile parses a .beam file. A file made of package, import and template
// definitions yields one Definition per template. Any other file is parsed as a
// single markup body and returned as one unnamed Definition.
func ParseFile(src, filename string) (*ast.File, error) {
	p := New(lexer.NewWithFilename(src, filename))
	file := p.ParseFile()
	if err := p.Err(); err != nil {
		return nil, err
	}
	file.Name = filename
	return file, nil
}

// isDefinitionFile reports whether the current token opens a package, import
// or template clause.
func (p *Parser) isDefinitionFile() bool {
	if !p.curTokenIs(lexer.IDENT) {
		return false
	}
	switch p.curToken.Literal {
	case "package", "import", "template":
		return true
	}
	return false
}

// ParseFile parses the whole input as a .beam file.
func (p *Parser) ParseFile() *ast.File {
	file := &ast.File{}

	if !p.isDefinitionFile() {
		body := p.ParseTemplate()
		if p.failed() {
			return nil
		}
		file.Definitions = []*ast.Definition{{Token: lexer.Token{Line: 1, Column: 1}, Body: body}}
		return file
	}

	if p.curTokenIs(lexer.IDENT) && p.curToken.Literal == "package" {
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		file.Package = p.curToken.Literal
		p.nextToken()
	}

	for p.curTokenIs(lexer.IDENT) && p.curToken.Literal == "import" && !p.failed() {
		file.Imports = append(file.Imports, p.parseImport()...)
		p.nextToken()
	}

	seen := map[string]bool{}
	for !p.curTokenIs(lexer.EOF) && !p.failed() {
		if !p.curTokenIs(lexer.IDENT) || p.curToken.Literal != "template" {
			p.addTokenError(p.curToken, "PARSE-0001", map[string]any{"Expected": "'template'", "Got": describe(p.curToken)})
			break
		}
		def := p.parseDefinition()
		if def == nil {
			break
		}
		if seen[def.Name] {
			p.addStructuredError("PARSE-0017", def.Token.Line, def.Token.Column, map[string]any{"Name": def.Name})
			break
		}
		seen[def.Name] = true
		file.Definitions = append(file.Definitions, def)
		p.nextToken()
	}

	if p.failed() {
		return nil
	}
	return file
}

// parseImport parses import "path", import name "path" or import ( ... ),
// leaving the last token of the clause as the current token.
func (p *Parser) parseImport() []*ast.Import {
	tok := p.curToken
	switch {
	case p.peekTokenIs(lexer.STRING):
		p.nextToken()
		return []*ast.Import{{Token: tok, Path: p.curToken.Literal}}

	case p.peekTokenIs(lexer.IDENT):
		p.nextToken()
		alias := p.curToken.Literal
		if !p.expectPeek(lexer.STRING) {
			return nil
		}
		return []*ast.Import{{Token: tok, Alias: alias, Path: p.curToken.Literal}}

	case p.peekTokenIs(lexer.PARAMS):
		p.nextToken()
		f, err := parser.ParseFile(token.NewFileSet(), "", "package p\nimport ("+p.curToken.Literal+")", parser.ImportsOnly)
		if err != nil {
			p.addStructuredError("PARSE-0001", p.curToken.Line, p.curToken.Column, map[string]any{"Expected": "import paths", "Got": describe(p.curToken)})
			return nil
		}
		var imports []*ast.Import
		for _, spec := range f.Imports {
			path, _ := strconv.Unquote(spec.Path.Value)
			imp := &ast.Import{Token: tok, Path: path}
			if spec.Name != nil {
				imp.Alias = spec.Name.Name
			}
			imports = append(imports, imp)
		}
		return imports
	}

	p.peekError("an import path")
	return nil
}

// parseDefinition parses template Name(params) { body }, leaving the body
// token as the current token.
func (p *Parser) parseDefinition() *ast.Definition {
	def := &ast.Definition{Token: p.curToken}
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	def.Name = p.curToken.Literal

	if !p.expectPeek(lexer.PARAMS) {
		return nil
	}
	params, err := parseParams(p.curToken.Literal)
	if err != nil {
		p.addStructuredError("PARSE-0019", p.curToken.Line, p.curToken.Column, map[string]any{"Name": def.Name, "GoError": err.Error()})
		return nil
	}
	def.Params = params

	if !p.expectPeek(lexer.EXPR) {
		return nil
	}
	body := p.curToken
	sub := New(lexer.NewAt(body.Literal, p.l.Filename(), body.Line, body.Column))
	def.Body = sub.ParseTemplate()
	if sub.failed() {
		p.structuredErrors = append(p.structuredErrors, sub.structuredErrors[0])
		return nil
	}
	return def
}

// parseParams parses a Go parameter list such as "title string, n int".
func parseParams(src string) ([]ast.Param, error) {
	expr, err := parser.ParseExpr("func(" + src + ")")
	if err != nil {
		return nil, err
	}
	fn, ok := expr.(*goast.FuncType)
	if !ok || fn.Params == nil {
		return nil, nil
	}

	var params []ast.Param
	for _, field := range fn.Params.List {
		typ := types.ExprString(field.Type)
		if len(field.Names) == 0 {
			return nil, errors.New("parameters must be named")
		}
		for _, name := range field.Names {
			params = append(params, ast.Param{Name: name.Name, Type: typ})
		}
	}
	return params, nil
}
