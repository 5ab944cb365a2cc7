package errors

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestBeamError_String(t *testing.T) {
	tests := []struct {
		name     string
		err      *BeamError
		expected string
	}{
		{
			name:     "message only",
			err:      &BeamError{Message: "something went wrong"},
			expected: "something went wrong",
		},
		{
			name: "with line and column",
			err: &BeamError{
				Message: "unexpected token",
				Line:    5,
				Column:  10,
			},
			expected: "line 5, column 10: unexpected token",
		},
		{
			name: "with file",
			err: &BeamError{
				Message: "unterminated string",
				File:    "page.beam",
				Line:    3,
				Column:  1,
			},
			expected: "page.beam: line 3, column 1: unterminated string",
		},
		{
			name: "with hints",
			err: &BeamError{
				Message: "unknown property 'titel' on component Card",
				Line:    1,
				Column:  7,
				Hints:   []string{"Did you mean `title`?"},
			},
			expected: "line 1, column 7: unknown property 'titel' on component Card\n  Did you mean `title`?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestBeamError_PrettyString(t *testing.T) {
	err := NewWithPosition("PARSE-0005", 2, 4, map[string]any{"Open": "div", "Close": "span"}).WithFile("index.beam")
	got := err.PrettyString()

	for _, want := range []string{
		"Parse error:",
		"in: index.beam",
		"at: line 2, column 4",
		"mismatched tags: opening <div> but closing </span>",
		"close it with </div>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("PrettyString() missing %q in:\n%s", want, got)
		}
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		code      string
		data      map[string]any
		wantClass ErrorClass
		wantMsg   string
		wantHints int
	}{
		{"PARSE-0001", map[string]any{"Expected": "'>'", "Got": "/"}, ClassParse, "expected '>', got '/'", 0},
		{"PARSE-0006", map[string]any{"Tag": "p"}, ClassParse, "expected closing tag </p>", 1},
		{"LOWER-0001", map[string]any{"Name": "id", "Tag": "div"}, ClassLower, "duplicate attribute 'id' on <div>", 0},
		{"COMP-0003", map[string]any{"Name": "Badge"}, ClassComponent, "component Badge does not accept children", 2},
		{"BIND-0002", map[string]any{"Name": "href", "Type": "[]int"}, ClassBind, "attribute 'href' needs a text, integer or boolean value, got []int", 0},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, tt.data)
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
			if err.Class != tt.wantClass {
				t.Errorf("Class = %q, want %q", err.Class, tt.wantClass)
			}
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if len(err.Hints) != tt.wantHints {
				t.Errorf("got %d hints, want %d: %v", len(err.Hints), tt.wantHints, err.Hints)
			}
		})
	}
}

func TestNew_UnknownCode(t *testing.T) {
	err := New("NOPE-9999", map[string]any{"message": "custom"})
	if err.Message != "custom" {
		t.Errorf("Message = %q, want %q", err.Message, "custom")
	}
	if err.Code != "NOPE-9999" {
		t.Errorf("Code = %q", err.Code)
	}
}

func TestWithFileAndPositionCopy(t *testing.T) {
	orig := NewSimple(ClassParse, "boom")
	moved := orig.WithFile("a.beam").WithPosition(3, 9)

	if orig.File != "" || orig.Line != 0 {
		t.Fatalf("original error was modified: %+v", orig)
	}
	if moved.File != "a.beam" || moved.Line != 3 || moved.Column != 9 {
		t.Fatalf("unexpected copy: %+v", moved)
	}
}

func TestToJSON(t *testing.T) {
	err := NewWithPosition("PARSE-0012", 1, 5, nil)
	b, jerr := err.ToJSON()
	if jerr != nil {
		t.Fatalf("ToJSON: %v", jerr)
	}

	var decoded map[string]any
	if jerr := json.Unmarshal(b, &decoded); jerr != nil {
		t.Fatalf("invalid JSON: %v", jerr)
	}
	if decoded["code"] != "PARSE-0012" || decoded["class"] != "parse" {
		t.Errorf("unexpected JSON: %s", b)
	}
}

func TestFindClosestMatch(t *testing.T) {
	candidates := []string{"title", "subtitle", "href", "children"}

	tests := []struct {
		input string
		want  string
	}{
		{"titel", "title"},
		{"hrf", "href"},
		{"childern", "children"},
		{"title", ""}, // exact match gives no suggestion
		{"zzzzzzzz", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := FindClosestMatch(tt.input, candidates); got != tt.want {
			t.Errorf("FindClosestMatch(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFindTopMatches(t *testing.T) {
	got := FindTopMatches("clik", []string{"click", "dblclick", "input", "clock"}, 2)
	if len(got) != 2 || got[0] != "click" {
		t.Fatalf("FindTopMatches = %v", got)
	}
}

func TestWithSuggestion(t *testing.T) {
	err := New("LOWER-0002", map[string]any{"Event": "clik"}).WithSuggestion("clik", []string{"click", "input"})
	if len(err.Hints) != 1 || err.Hints[0] != "Did you mean `click`?" {
		t.Fatalf("hints = %v", err.Hints)
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
	}
	for _, tt := range tests {
		if got := levenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
