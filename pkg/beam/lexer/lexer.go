// Package lexer tokenizes Beam markup.
//
// Whitespace between tokens is insignificant: text content is always written as
// string literals, so the token stream never has to switch into a text mode.
// Brace-delimited host expressions are captured whole as a single EXPR token.
package lexer

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Identifiers and literals
	IDENT      // div, class, Card, data
	INT        // 42
	STRING     // "text"
	RAW_STRING // `text` or #"text"#
	EXPR       // {expression}, literal holds the inner source
	PARAMS     // (name string, n int), literal holds the inner source

	// Delimiters
	LT        // <
	GT        // >
	SLASH     // /
	ASSIGN    // =
	MINUS     // -
	BANG      // !
	AT        // @
	SEMICOLON // ;

	// Keywords
	UNSAFE // unsafe
)

var keywords = map[string]TokenType{
	"unsafe": UNSAFE,
}

// Token represents a single token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
	// Code is the error catalog code for ILLEGAL tokens.
	Code string
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %s, Line: %d, Column: %d}",
		t.Type.String(), t.Literal, t.Line, t.Column)
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	switch tt {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case IDENT:
		return "IDENT"
	case INT:
		return "INT"
	case STRING:
		return "STRING"
	case RAW_STRING:
		return "RAW_STRING"
	case EXPR:
		return "EXPR"
	case PARAMS:
		return "PARAMS"
	case LT:
		return "<"
	case GT:
		return ">"
	case SLASH:
		return "/"
	case ASSIGN:
		return "="
	case MINUS:
		return "-"
	case BANG:
		return "!"
	case AT:
		return "@"
	case SEMICOLON:
		return ";"
	case UNSAFE:
		return "unsafe"
	default:
		return fmt.Sprintf("TokenType(%d)", int(tt))
	}
}

// IsNamePart reports whether a token can appear in a hyphen-joined tag or attribute name.
func (tt TokenType) IsNamePart() bool {
	return tt == IDENT || tt == UNSAFE
}

// LookupIdent returns the keyword token type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Lexer represents the lexical analyzer
type Lexer struct {
	filename     string
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	chRune       rune // current character as a rune
	chSize       int  // byte size of current character
	line         int
	column       int
	eof          bool // the position just past the last character has been reached
}

// New creates a new lexer instance
func New(input string) *Lexer {
	return NewAt(input, "<input>", 1, 0)
}

// NewWithFilename creates a new lexer instance with a specific filename
func NewWithFilename(input string, filename string) *Lexer {
	return NewAt(input, filename, 1, 0)
}

// NewAt creates a lexer whose positions start at line and column, for lexing a
// fragment cut out of a larger file. column is the column of the character just
// before the fragment.
func NewAt(input, filename string, line, column int) *Lexer {
	l := &Lexer{
		filename: filename,
		input:    input,
		line:     line,
		column:   column,
	}
	l.readChar()
	return l
}

// Filename returns the name used in diagnostics.
func (l *Lexer) Filename() string {
	return l.filename
}

// LexerState holds the state of a lexer for save/restore
type LexerState struct {
	position     int
	readPosition int
	ch           byte
	chRune       rune
	chSize       int
	line         int
	column       int
	eof          bool
}

// SaveState saves the current lexer state for potential restoration
func (l *Lexer) SaveState() LexerState {
	return LexerState{
		position:     l.position,
		readPosition: l.readPosition,
		ch:           l.ch,
		chRune:       l.chRune,
		chSize:       l.chSize,
		line:         l.line,
		column:       l.column,
		eof:          l.eof,
	}
}

// RestoreState restores the lexer to a previously saved state
func (l *Lexer) RestoreState(state LexerState) {
	l.position = state.position
	l.readPosition = state.readPosition
	l.ch = state.ch
	l.chRune = state.chRune
	l.chSize = state.chSize
	l.line = state.line
	l.column = state.column
	l.eof = state.eof
}

// PeekToken returns the next token without consuming it
func (l *Lexer) PeekToken() Token {
	state := l.SaveState()
	tok := l.NextToken()
	l.RestoreState(state)
	return tok
}

// readChar reads the next character and advances position.
// ASCII takes a fast path; other bytes are decoded as UTF-8.
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		if !l.eof {
			l.eof = true
			l.column++
		}
		l.ch = 0
		l.chRune = 0
		l.chSize = 0
		l.position = l.readPosition
		return
	}

	b := l.input[l.readPosition]

	if b < utf8.RuneSelf {
		l.ch = b
		l.chRune = rune(b)
		l.chSize = 1
		l.position = l.readPosition
		l.readPosition++

		if l.ch == '\n' {
			l.line++
			l.column = 0
		} else {
			l.column++
		}
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = b
	l.chRune = r
	l.chSize = size
	l.position = l.readPosition
	l.readPosition += size
	l.column++
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) atEOF() bool {
	return l.position >= len(l.input)
}

// NextToken scans the input and returns the next token
func (l *Lexer) NextToken() Token {
	if tok, ok := l.skipTrivia(); !ok {
		return tok
	}

	line, column := l.line, l.column

	var tok Token
	switch l.ch {
	case '<':
		tok = newToken(LT, l.ch, line, column)
	case '>':
		tok = newToken(GT, l.ch, line, column)
	case '/':
		tok = newToken(SLASH, l.ch, line, column)
	case '=':
		tok = newToken(ASSIGN, l.ch, line, column)
	case '-':
		tok = newToken(MINUS, l.ch, line, column)
	case '!':
		tok = newToken(BANG, l.ch, line, column)
	case '@':
		tok = newToken(AT, l.ch, line, column)
	case ';':
		tok = newToken(SEMICOLON, l.ch, line, column)
	case '"':
		str, terminated, bad := l.readString()
		if !terminated {
			return illegal("PARSE-0003", fmt.Sprintf("Unterminated string starting with \"%s\"", truncate(str, 20)), line, column)
		}
		if bad != nil {
			l.readChar()
			return illegal("PARSE-0021", bad.seq, bad.line, bad.column)
		}
		tok = Token{Type: STRING, Literal: str, Line: line, Column: column}
	case '`':
		str, terminated := l.readBacktickString()
		if !terminated {
			return illegal("PARSE-0003", fmt.Sprintf("Unterminated raw string starting with `%s", truncate(str, 20)), line, column)
		}
		tok = Token{Type: RAW_STRING, Literal: str, Line: line, Column: column}
	case '#':
		str, ok, terminated := l.readHashString()
		if !ok {
			return illegal("PARSE-0016", "#", line, column)
		}
		if !terminated {
			return illegal("PARSE-0003", fmt.Sprintf("Unterminated raw string starting with #\"%s", truncate(str, 20)), line, column)
		}
		return Token{Type: RAW_STRING, Literal: str, Line: line, Column: column}
	case '{':
		src, terminated := l.readBalanced('{', '}')
		if !terminated {
			return illegal("PARSE-0004", fmt.Sprintf("Unterminated expression starting with {%s", truncate(src, 20)), line, column)
		}
		tok = Token{Type: EXPR, Literal: src, Line: line, Column: column}
	case '(':
		src, terminated := l.readBalanced('(', ')')
		if !terminated {
			return illegal("PARSE-0018", fmt.Sprintf("Unterminated parameter list starting with (%s", truncate(src, 20)), line, column)
		}
		tok = Token{Type: PARAMS, Literal: src, Line: line, Column: column}
	case 0:
		if l.atEOF() {
			return Token{Type: EOF, Literal: "", Line: line, Column: column}
		}
		tok = newToken(ILLEGAL, l.ch, line, column)
		tok.Code = "PARSE-0016"
	default:
		if isLetterRune(l.chRune) {
			ident := l.readIdentifier()
			return Token{Type: LookupIdent(ident), Literal: ident, Line: line, Column: column}
		}
		if isDigit(l.ch) {
			return Token{Type: INT, Literal: l.readNumber(), Line: line, Column: column}
		}
		lit := l.input[l.position : l.position+max(l.chSize, 1)]
		l.readChar()
		return Token{Type: ILLEGAL, Literal: lit, Line: line, Column: column, Code: "PARSE-0016"}
	}

	l.readChar()
	return tok
}

// skipTrivia skips whitespace and comments. It returns an ILLEGAL token and
// false when a block comment is left open.
func (l *Lexer) skipTrivia() (Token, bool) {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			line, column := l.line, l.column
			if !l.skipBlockComment() {
				return illegal("PARSE-0015", "Unterminated comment", line, column), false
			}
		default:
			return Token{}, true
		}
	}
}

func (l *Lexer) skipBlockComment() bool {
	l.readChar() // '/'
	l.readChar() // '*'
	for !l.atEOF() {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return true
		}
		l.readChar()
	}
	return false
}

// newToken creates a new token with the given parameters
func newToken(tokenType TokenType, ch byte, line, column int) Token {
	return Token{Type: tokenType, Literal: string(ch), Line: line, Column: column}
}

func illegal(code, msg string, line, column int) Token {
	return Token{Type: ILLEGAL, Literal: msg, Line: line, Column: column, Code: code}
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetterRune(l.chRune) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// badEscape is an escape sequence a string literal cannot contain.
type badEscape struct {
	seq          string
	line, column int
}

// readString reads a double-quoted string literal with escape sequence support.
// Strings may span lines. The closing quote is left as the current char. The
// first invalid escape is reported, and the rest of the literal is still read.
func (l *Lexer) readString() (string, bool, *badEscape) {
	var result []byte
	var bad *badEscape
	l.readChar() // skip opening quote

	for l.ch != '"' && !l.atEOF() {
		if l.ch == '\\' {
			start, line, column := l.position, l.line, l.column
			l.readChar()
			ok := true
			switch l.ch {
			case 'n':
				result = append(result, '\n')
			case 't':
				result = append(result, '\t')
			case 'r':
				result = append(result, '\r')
			case '0':
				result = append(result, 0)
			case '\\':
				result = append(result, '\\')
			case '"':
				result = append(result, '"')
			case '\'':
				result = append(result, '\'')
			case 'x':
				var b byte
				if b, ok = l.readByteEscape(); ok {
					result = append(result, b)
				}
			case 'u':
				var r rune
				if r, ok = l.readUnicodeEscape(); ok {
					result = utf8.AppendRune(result, r)
				}
			default:
				ok = false
			}
			if !ok {
				if bad == nil {
					end := min(l.position+max(l.chSize, 1), len(l.input))
					bad = &badEscape{seq: l.input[start:end], line: line, column: column}
				}
				if l.ch == '"' || l.atEOF() {
					continue
				}
			}
		} else {
			result = l.appendCurrentChar(result)
		}
		l.readChar()
	}

	return string(result), l.ch == '"', bad
}

// readByteEscape reads the two hex digits of a \xHH escape, which must be
// ASCII. On success the second digit is the current char.
func (l *Lexer) readByteEscape() (byte, bool) {
	hi, ok := hexValue(l.peekChar())
	if !ok {
		return 0, false
	}
	l.readChar()
	lo, ok := hexValue(l.peekChar())
	if !ok {
		return 0, false
	}
	l.readChar()
	if v := hi<<4 | lo; v <= 0x7f {
		return byte(v), true
	}
	return 0, false
}

// readUnicodeEscape reads the {XXXX} part of a \u{XXXX} escape: one to six hex
// digits naming a Unicode scalar value. On success the closing brace is the
// current char.
func (l *Lexer) readUnicodeEscape() (rune, bool) {
	if l.peekChar() != '{' {
		return 0, false
	}
	l.readChar() // 'u' -> '{'
	var r rune
	digits := 0
	for {
		d, ok := hexValue(l.peekChar())
		if !ok {
			break
		}
		l.readChar()
		r = r<<4 | d
		digits++
	}
	if l.peekChar() != '}' || digits == 0 || digits > 6 || !utf8.ValidRune(r) {
		return 0, false
	}
	l.readChar()
	return r, true
}

func (l *Lexer) appendCurrentChar(result []byte) []byte {
	if l.chSize <= 1 {
		return append(result, l.ch)
	}
	return append(result, l.input[l.position:l.position+l.chSize]...)
}

// readBacktickString reads a `raw` string; no escapes are processed.
func (l *Lexer) readBacktickString() (string, bool) {
	l.readChar() // skip opening backtick
	start := l.position
	for l.ch != '`' && !l.atEOF() {
		l.readChar()
	}
	return l.input[start:l.position], l.ch == '`'
}

// readHashString reads a #"raw"# string delimited by a matching run of hashes,
// so the body may contain quotes. ok is false when the hashes are not followed
// by a quote.
func (l *Lexer) readHashString() (str string, ok, terminated bool) {
	hashes := 0
	for l.ch == '#' {
		hashes++
		l.readChar()
	}
	if l.ch != '"' {
		return "", false, false
	}
	l.readChar()
	start := l.position
	for !l.atEOF() {
		if l.ch == '"' && l.closesHashString(hashes) {
			str = l.input[start:l.position]
			for i := 0; i <= hashes; i++ {
				l.readChar()
			}
			return str, true, true
		}
		l.readChar()
	}
	return l.input[start:l.position], true, false
}

func (l *Lexer) closesHashString(hashes int) bool {
	end := l.position + 1 + hashes
	if end > len(l.input) {
		return false
	}
	for i := l.position + 1; i < end; i++ {
		if l.input[i] != '#' {
			return false
		}
	}
	return true
}

// readBalanced reads from an opening delimiter to its matching close and returns
// the source between them. Nested delimiters, Go string/rune literals and comments
// inside the region are skipped over so that a brace in a string does not end it.
// The closing delimiter is left as the current char.
func (l *Lexer) readBalanced(open, close byte) (string, bool) {
	l.readChar() // skip opening delimiter
	start := l.position
	depth := 1

	for !l.atEOF() {
		switch {
		case l.ch == open:
			depth++
		case l.ch == close:
			depth--
			if depth == 0 {
				return l.input[start:l.position], true
			}
		case l.ch == '"' || l.ch == '\'':
			if !l.skipQuoted(l.ch) {
				return l.input[start:l.position], false
			}
		case l.ch == '`':
			l.readChar()
			for l.ch != '`' && !l.atEOF() {
				l.readChar()
			}
			if l.atEOF() {
				return l.input[start:l.position], false
			}
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		case l.ch == '/' && l.peekChar() == '*':
			if !l.skipBlockComment() {
				return l.input[start:l.position], false
			}
			continue
		}
		l.readChar()
	}

	return l.input[start:l.position], false
}

// skipQuoted skips a quoted literal with backslash escapes, leaving the closing
// quote as the current char.
func (l *Lexer) skipQuoted(quote byte) bool {
	l.readChar()
	for l.ch != quote {
		if l.atEOF() || l.ch == '\n' {
			return false
		}
		if l.ch == '\\' {
			l.readChar()
		}
		l.readChar()
	}
	return true
}

// Tokenize returns every token up to and including EOF, or up to the first ILLEGAL token.
func Tokenize(input string) []Token {
	l := New(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == EOF || tok.Type == ILLEGAL {
			return tokens
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// isLetterRune checks if a rune is a valid identifier character (letter or underscore).
func isLetterRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= utf8.RuneSelf && unicode.IsLetter(r))
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func hexValue(ch byte) (rune, bool) {
	switch {
	case '0' <= ch && ch <= '9':
		return rune(ch - '0'), true
	case 'a' <= ch && ch <= 'f':
		return rune(ch-'a') + 10, true
	case 'A' <= ch && ch <= 'F':
		return rune(ch-'A') + 10, true
	}
	return 0, false
}
