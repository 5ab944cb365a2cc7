package lexer

import (
	"testing"
)

func TestNextToken(t *testing.T) {
	input := `<div class="hello" data-id=42 style={style}>"Hello "{name}"!"<br/></div>`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{LT, "<"},
		{IDENT, "div"},
		{IDENT, "class"},
		{ASSIGN, "="},
		{STRING, "hello"},
		{IDENT, "data"},
		{MINUS, "-"},
		{IDENT, "id"},
		{ASSIGN, "="},
		{INT, "42"},
		{IDENT, "style"},
		{ASSIGN, "="},
		{EXPR, "style"},
		{GT, ">"},
		{STRING, "Hello "},
		{EXPR, "name"},
		{STRING, "!"},
		{LT, "<"},
		{IDENT, "br"},
		{SLASH, "/"},
		{GT, ">"},
		{LT, "<"},
		{SLASH, "/"},
		{IDENT, "div"},
		{GT, ">"},
		{EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestDirectivesAndDoctype(t *testing.T) {
	tokens := Tokenize("@client;\n<!DOCTYPE html>")
	want := []TokenType{AT, IDENT, SEMICOLON, LT, BANG, IDENT, IDENT, GT, EOF}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i, tt := range want {
		if tokens[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, tokens[i].Type, tt)
		}
	}
}

func TestUnsafeKeyword(t *testing.T) {
	tokens := Tokenize(`unsafe {html}`)
	if tokens[0].Type != UNSAFE || tokens[1].Type != EXPR || tokens[1].Literal != "html" {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
	if !UNSAFE.IsNamePart() || !IDENT.IsNamePart() || EXPR.IsNamePart() {
		t.Errorf("IsNamePart mismatch")
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"plain"`, "plain"},
		{`"line\nbreak"`, "line\nbreak"},
		{`"tab\there"`, "tab\there"},
		{`"quote\"inside"`, `quote"inside`},
		{`"back\\slash"`, `back\slash`},
		{`"it\'s"`, "it's"},
		{`"snow\u{2603}man"`, "snow☃man"},
		{`"max\u{10FFFF}"`, "max\U0010FFFF"},
		{`"nul\0"`, "nul\x00"},
		{`"\x41\x7f"`, "A\x7f"},
		{"\"multi\nline\"", "multi\nline"},
		{`"日本語"`, "日本語"},
	}

	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != STRING {
			t.Fatalf("%s: expected STRING, got %s (%q)", tt.input, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.input, tt.expected, tok.Literal)
		}
	}
}

func TestRawStrings(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"`<b>bold</b>`", "<b>bold</b>"},
		{"`no \\n escapes`", `no \n escapes`},
		{`#"say "hi""#`, `say "hi"`},
		{`##"a "# b"##`, `a "# b`},
	}

	for _, tt := range tests {
		tokens := Tokenize(tt.input)
		if tokens[0].Type != RAW_STRING {
			t.Fatalf("%s: expected RAW_STRING, got %s (%q)", tt.input, tokens[0].Type, tokens[0].Literal)
		}
		if tokens[0].Literal != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.input, tt.expected, tokens[0].Literal)
		}
		if tokens[1].Type != EOF {
			t.Errorf("%s: expected EOF after raw string, got %s", tt.input, tokens[1].Type)
		}
	}
}

func TestBalancedExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`{a}`, "a"},
		{`{ user.Name }`, " user.Name "},
		{`{map[string]int{"a": 1}["a"]}`, `map[string]int{"a": 1}["a"]`},
		{`{"}"}`, `"}"`},
		{"{`}`}", "`}`"},
		{`{'}'}`, `'}'`},
		{`{"\"}"}`, `"\"}"`},
		{"{x // }\n}", "x // }\n"},
		{`{x /* } */}`, `x /* } */`},
	}

	for _, tt := range tests {
		tokens := Tokenize(tt.input)
		if tokens[0].Type != EXPR {
			t.Fatalf("%s: expected EXPR, got %s (%q)", tt.input, tokens[0].Type, tokens[0].Literal)
		}
		if tokens[0].Literal != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.input, tt.expected, tokens[0].Literal)
		}
	}
}

func TestParams(t *testing.T) {
	tokens := Tokenize(`template Card(title string, f func(int) string) {}`)
	if tokens[2].Type != PARAMS || tokens[2].Literal != "title string, f func(int) string" {
		t.Fatalf("unexpected params token: %v", tokens[2])
	}
}

func TestComments(t *testing.T) {
	tokens := Tokenize("// leading\n<p /* inline */ >/* x */</p>")
	want := []TokenType{LT, IDENT, GT, LT, SLASH, IDENT, GT, EOF}
	if len(tokens) != len(want) {
		t.Fatalf("got %v", tokens)
	}
	for i, tt := range want {
		if tokens[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, tokens[i].Type, tt)
		}
	}
}

func TestIllegalTokens(t *testing.T) {
	tests := []struct {
		input string
		code  string
	}{
		{`"never closed`, "PARSE-0003"},
		{"`never closed", "PARSE-0003"},
		{`{open`, "PARSE-0004"},
		{`{"}`, "PARSE-0004"},
		{`(a, b`, "PARSE-0018"},
		{`/* open`, "PARSE-0015"},
		{`$`, "PARSE-0016"},
		{`#x`, "PARSE-0016"},
		{`"keep\q"`, "PARSE-0021"},
		{`"bad\u{zz}"`, "PARSE-0021"},
		{`"\u2603"`, "PARSE-0021"},
		{`"\u{}"`, "PARSE-0021"},
		{`"\u{1234567}"`, "PARSE-0021"},
		{`"\u{110000}"`, "PARSE-0021"},
		{`"\u{D800}"`, "PARSE-0021"},
		{`"\x80"`, "PARSE-0021"},
		{`"\x4"`, "PARSE-0021"},
		{`"ends\`, "PARSE-0003"},
	}

	for _, tt := range tests {
		tokens := Tokenize(tt.input)
		last := tokens[len(tokens)-1]
		if last.Type != ILLEGAL {
			t.Fatalf("%s: expected ILLEGAL, got %v", tt.input, tokens)
		}
		if last.Code != tt.code {
			t.Errorf("%s: expected code %s, got %s", tt.input, tt.code, last.Code)
		}
	}
}

func TestInvalidEscapePosition(t *testing.T) {
	l := New("\"ok\n  \\q and \\z\" <p>")
	tok := l.NextToken()
	if tok.Type != ILLEGAL || tok.Code != "PARSE-0021" {
		t.Fatalf("expected PARSE-0021, got %s %s (%q)", tok.Type, tok.Code, tok.Literal)
	}
	if tok.Literal != `\q` {
		t.Errorf("expected the first bad escape, got %q", tok.Literal)
	}
	if tok.Line != 2 || tok.Column != 3 {
		t.Errorf("expected line 2, column 3, got line %d, column %d", tok.Line, tok.Column)
	}
	if next := l.NextToken(); next.Type != LT {
		t.Errorf("expected lexing to resume after the string, got %s (%q)", next.Type, next.Literal)
	}
}

func TestPositions(t *testing.T) {
	l := New("<p>\n  \"hi\"\n</p>")
	expected := []struct {
		line, col int
	}{
		{1, 1}, {1, 2}, {1, 3}, // < p >
		{2, 3},                 // "hi"
		{3, 1}, {3, 2}, {3, 3}, {3, 4}, // < / p >
	}
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Line != want.line || tok.Column != want.col {
			t.Errorf("token %d (%q): got %d:%d, want %d:%d", i, tok.Literal, tok.Line, tok.Column, want.line, want.col)
		}
	}
}

func TestNewAtOffsetsPositions(t *testing.T) {
	l := NewAt(`<b/>`, "page.beam", 7, 10)
	tok := l.NextToken()
	if tok.Line != 7 || tok.Column != 11 {
		t.Fatalf("got %d:%d, want 7:11", tok.Line, tok.Column)
	}
	if l.Filename() != "page.beam" {
		t.Errorf("Filename() = %q", l.Filename())
	}
}

func TestPeekToken(t *testing.T) {
	l := New(`<a>`)
	l.NextToken()
	peeked := l.PeekToken()
	next := l.NextToken()
	if peeked != next {
		t.Fatalf("PeekToken %v != NextToken %v", peeked, next)
	}
}

func TestUnicodeIdentifiers(t *testing.T) {
	tok := New("über-cool").NextToken()
	if tok.Type != IDENT || tok.Literal != "über" {
		t.Fatalf("got %v", tok)
	}
}
