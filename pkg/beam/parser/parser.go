package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sambeau/beam/pkg/beam/ast"
	berrors "github.com/sambeau/beam/pkg/beam/errors"
	"github.com/sambeau/beam/pkg/beam/lexer"
)

// KnownDirectives lists the directives a template may declare.
var KnownDirectives = []string{"client"}

// voidElements may be written without the self-closing slash.
var voidElements = map[string]bool{
	"br":   true,
	"meta": true,
	"link": true,
	"hr":   true,
}

// Parser represents the parser
type Parser struct {
	l *lexer.Lexer

	structuredErrors []*berrors.BeamError

	prevToken lexer.Token
	curToken  lexer.Token
	peekToken lexer.Token
}

// New creates a new parser instance
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// ParseTemplate parses markup source into a Template. The first error, if any,
// is returned with the file name attached.
func ParseTemplate(src, filename string) (*ast.Template, error) {
	p := New(lexer.NewWithFilename(src, filename))
	tmpl := p.ParseTemplate()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// Errors returns the error messages as "line L, column C: message" strings.
func (p *Parser) Errors() []string {
	result := make([]string, len(p.structuredErrors))
	for i, err := range p.structuredErrors {
		if err.Line > 0 {
			result[i] = fmt.Sprintf("line %d, column %d: %s", err.Line, err.Column, err.Message)
		} else {
			result[i] = err.Message
		}
	}
	return result
}

// StructuredErrors returns the structured errors.
func (p *Parser) StructuredErrors() []*berrors.BeamError {
	return p.structuredErrors
}

// Err returns the first error with the file name set, or nil.
func (p *Parser) Err() error {
	if len(p.structuredErrors) == 0 {
		return nil
	}
	err := p.structuredErrors[0]
	if err.File == "" && p.l.Filename() != "<input>" {
		err = err.WithFile(p.l.Filename())
	}
	return err
}

func (p *Parser) failed() bool {
	return len(p.structuredErrors) > 0
}

// addStructuredError records an error from the catalog. Only the first error is kept.
func (p *Parser) addStructuredError(code string, line, column int, data map[string]any) *berrors.BeamError {
	if p.failed() {
		return nil
	}
	err := berrors.NewWithPosition(code, line, column, data)
	p.structuredErrors = append(p.structuredErrors, err)
	return err
}

// addTokenError reports tok as unexpected. ILLEGAL tokens carry their own error.
func (p *Parser) addTokenError(tok lexer.Token, code string, data map[string]any) {
	if tok.Type == lexer.ILLEGAL {
		p.addIllegalError(tok)
		return
	}
	p.addStructuredError(code, tok.Line, tok.Column, data)
}

func (p *Parser) addIllegalError(tok lexer.Token) {
	code := tok.Code
	if code == "" {
		code = "PARSE-0016"
	}
	err := p.addStructuredError(code, tok.Line, tok.Column, map[string]any{"Char": tok.Literal})
	if err != nil && code != "PARSE-0016" && code != "PARSE-0021" {
		err.Hints = append(err.Hints, tok.Literal)
	}
}

func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

// expectPeek advances if the next token has type t, and records an error otherwise.
func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(tokenName(t))
	return false
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.IDENT:
		return "a name"
	case lexer.EXPR:
		return "{expression}"
	case lexer.PARAMS:
		return "a parameter list"
	case lexer.STRING:
		return "a string"
	}
	return "'" + t.String() + "'"
}

func (p *Parser) peekError(expected string) {
	p.addTokenError(p.peekToken, "PARSE-0001", map[string]any{
		"Expected": expected,
		"Got":      describe(p.peekToken),
	})
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.EOF:
		return "end of input"
	case lexer.STRING:
		return strconv.Quote(tok.Literal)
	case lexer.EXPR:
		return "{" + tok.Literal + "}"
	case lexer.PARAMS:
		return "(" + tok.Literal + ")"
	}
	return tok.Literal
}

// ParseTemplate parses leading directives and then nodes until end of input.
func (p *Parser) ParseTemplate() *ast.Template {
	tmpl := &ast.Template{}

	for p.curTokenIs(lexer.AT) && !p.failed() {
		if d := p.parseDirective(); d != nil {
			tmpl.Directives = append(tmpl.Directives, d)
		}
		p.nextToken()
	}

	tmpl.Nodes = p.parseContent(nil, true)
	if p.failed() {
		return nil
	}
	return tmpl
}

// parseDirective parses @name; leaving the semicolon as the current token.
func (p *Parser) parseDirective() *ast.Directive {
	d := &ast.Directive{Token: p.curToken}
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	d.Name = p.curToken.Literal

	known := false
	for _, k := range KnownDirectives {
		if k == d.Name {
			known = true
		}
	}
	if !known {
		if err := p.addStructuredError("PARSE-0014", p.curToken.Line, p.curToken.Column, map[string]any{"Name": d.Name}); err != nil {
			err.WithSuggestion(d.Name, KnownDirectives)
		}
		return nil
	}

	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	return d
}

// parseContent parses nodes up to the closing tag of parent, or to end of input
// when parent is nil. On return for a parent, the current token is the '<' of
// the closing tag.
func (p *Parser) parseContent(parent *ast.HTMLIdent, topLevel bool) []ast.Markup {
	var nodes []ast.Markup
	var text *ast.TextNode

	addPiece := func(piece ast.TextPiece) {
		if text == nil {
			text = &ast.TextNode{}
			nodes = append(nodes, text)
		}
		text.Pieces = append(text.Pieces, piece)
	}

	for !p.failed() {
		switch p.curToken.Type {
		case lexer.EOF:
			if parent != nil {
				p.addStructuredError("PARSE-0006", p.curToken.Line, p.curToken.Column, map[string]any{"Tag": parent.String()})
			}
			return nodes

		case lexer.LT:
			if p.peekTokenIs(lexer.SLASH) {
				if parent != nil {
					return nodes
				}
				p.straySlashError()
				return nodes
			}
			text = nil
			if p.peekTokenIs(lexer.BANG) {
				if !topLevel || len(nodes) > 0 {
					p.addStructuredError("PARSE-0011", p.curToken.Line, p.curToken.Column, nil)
					return nodes
				}
				if d := p.parseDoctype(); d != nil {
					nodes = append(nodes, d)
				}
			} else if node := p.parseElement(); node != nil {
				nodes = append(nodes, node)
			}

		case lexer.STRING, lexer.RAW_STRING:
			addPiece(&ast.StringLiteral{
				Token: p.curToken,
				Value: p.curToken.Literal,
				Raw:   p.curTokenIs(lexer.RAW_STRING),
			})

		case lexer.EXPR:
			if expr := p.parseExpression(); expr != nil {
				addPiece(&ast.Interpolation{Token: p.curToken, Expr: expr})
			}

		case lexer.UNSAFE:
			tok := p.curToken
			if !p.expectPeek(lexer.EXPR) {
				return nodes
			}
			if expr := p.parseExpression(); expr != nil {
				addPiece(&ast.Interpolation{Token: tok, Expr: expr, Unsafe: true})
			}

		default:
			p.addTokenError(p.curToken, "PARSE-0002", map[string]any{"Token": describe(p.curToken)})
			return nodes
		}

		p.nextToken()
	}

	return nodes
}

func (p *Parser) straySlashError() {
	tok := p.curToken
	p.nextToken()
	name := ""
	if p.peekToken.Type.IsNamePart() {
		p.nextToken()
		name = p.parseHTMLIdent().String()
	}
	p.addStructuredError("PARSE-0013", tok.Line, tok.Column, map[string]any{"Tag": name})
}

// parseDoctype parses <!DOCTYPE html>, leaving '>' as the current token.
func (p *Parser) parseDoctype() *ast.Doctype {
	d := &ast.Doctype{Token: p.curToken}
	p.nextToken() // '!'

	for _, want := range []string{"doctype", "html"} {
		if !p.peekTokenIs(lexer.IDENT) || !strings.EqualFold(p.peekToken.Literal, want) {
			p.addTokenError(p.peekToken, "PARSE-0020", map[string]any{"Got": describe(p.peekToken)})
			return nil
		}
		p.nextToken()
	}

	if !p.expectPeek(lexer.GT) {
		return nil
	}
	return d
}

// parseHTMLIdent reads name parts joined by '-', starting at the current token.
// The last part is left as the current token.
func (p *Parser) parseHTMLIdent() ast.HTMLIdent {
	name := ast.HTMLIdent{Token: p.curToken, Parts: []string{p.curToken.Literal}}
	for p.peekTokenIs(lexer.MINUS) {
		p.nextToken()
		if !p.peekToken.Type.IsNamePart() && !p.peekTokenIs(lexer.INT) {
			p.peekError("a name after '-'")
			return name
		}
		p.nextToken()
		name.Parts = append(name.Parts, p.curToken.Literal)
	}
	return name
}

// parseElement parses a tag or component reference starting at '<', leaving
// the final '>' as the current token.
func (p *Parser) parseElement() ast.Markup {
	start := p.curToken

	if !p.peekToken.Type.IsNamePart() {
		p.addTokenError(p.peekToken, "PARSE-0008", map[string]any{"Got": describe(p.peekToken)})
		return nil
	}
	p.nextToken()
	name := p.parseHTMLIdent()
	if p.failed() {
		return nil
	}

	attrs := p.parseAttributes()
	if p.failed() {
		return nil
	}

	isComponent := name.IsComponentName()

	switch {
	case p.peekTokenIs(lexer.SLASH):
		p.nextToken()
		if !p.peekTokenIs(lexer.GT) {
			p.addTokenError(p.peekToken, "PARSE-0007", map[string]any{"Tag": name.String(), "Got": describe(p.peekToken)})
			return nil
		}
		p.nextToken()
		if isComponent {
			return &ast.ComponentReference{Token: start, Name: name.String(), Attributes: attrs}
		}
		return &ast.SelfClosingTag{Token: start, Name: name, Attributes: attrs}

	case p.peekTokenIs(lexer.GT):
		p.nextToken()
		if !isComponent && voidElements[name.String()] {
			return &ast.SelfClosingTag{Token: start, Name: name, Attributes: attrs}
		}
		p.nextToken()
		children := p.parseContent(&name, false)
		if p.failed() || !p.parseClosingTag(name) {
			return nil
		}
		if isComponent {
			return &ast.ComponentReference{Token: start, Name: name.String(), Attributes: attrs, Children: children, HasBody: true}
		}
		return &ast.EnclosingTag{Token: start, Name: name, Attributes: attrs, Children: children}

	default:
		p.addTokenError(p.peekToken, "PARSE-0007", map[string]any{"Tag": name.String(), "Got": describe(p.peekToken)})
		return nil
	}
}

// parseClosingTag parses </name> starting at '<'.
func (p *Parser) parseClosingTag(open ast.HTMLIdent) bool {
	p.nextToken() // '/'
	if !p.peekToken.Type.IsNamePart() {
		p.peekError("closing tag name </" + open.String() + ">")
		return false
	}
	p.nextToken()
	closeName := p.parseHTMLIdent()
	if p.failed() {
		return false
	}
	if !closeName.Equal(open) {
		p.addStructuredError("PARSE-0005", closeName.Token.Line, closeName.Token.Column, map[string]any{
			"Open":  open.String(),
			"Close": closeName.String(),
		})
		return false
	}
	return p.expectPeek(lexer.GT)
}

// parseAttributes parses attributes while the next token starts a name. The last
// token of the last attribute is left as the current token.
func (p *Parser) parseAttributes() []*ast.Attribute {
	var attrs []*ast.Attribute
	for p.peekToken.Type.IsNamePart() && !p.failed() {
		p.nextToken()
		attr := &ast.Attribute{Name: p.parseHTMLIdent()}
		if p.failed() {
			return nil
		}
		if p.peekTokenIs(lexer.ASSIGN) {
			p.nextToken()
			p.nextToken()
			attr.Value = p.parseAttributeValue(attr.Name)
			if attr.Value == nil {
				return nil
			}
		}
		attrs = append(attrs, attr)
	}
	return attrs
}

func (p *Parser) parseAttributeValue(name ast.HTMLIdent) ast.AttributeValue {
	tok := p.curToken
	switch tok.Type {
	case lexer.STRING, lexer.RAW_STRING:
		return &ast.StringLiteral{Token: tok, Value: tok.Literal, Raw: tok.Type == lexer.RAW_STRING}
	case lexer.INT:
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.addStructuredError("PARSE-0010", tok.Line, tok.Column, map[string]any{"Name": name.String(), "Got": tok.Literal})
			return nil
		}
		return &ast.IntegerLiteral{Token: tok, Digits: tok.Literal, Value: v}
	case lexer.EXPR:
		if expr := p.parseExpression(); expr != nil {
			return expr
		}
		return nil
	case lexer.UNSAFE:
		p.addStructuredError("PARSE-0009", tok.Line, tok.Column, map[string]any{"Name": name.String()})
		return nil
	default:
		p.addTokenError(tok, "PARSE-0010", map[string]any{"Name": name.String(), "Got": describe(tok)})
		return nil
	}
}

// parseExpression wraps the current EXPR token.
func (p *Parser) parseExpression() *ast.Expression {
	src := strings.TrimSpace(p.curToken.Literal)
	if src == "" {
		p.addStructuredError("PARSE-0012", p.curToken.Line, p.curToken.Column, nil)
		return nil
	}
	return &ast.Expression{Token: p.curToken, Source: src}
}
