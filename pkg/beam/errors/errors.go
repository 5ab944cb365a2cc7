// Package errors provides structured error types for the Beam template compiler.
//
// BeamError is the single error type produced by parsing, lowering, component
// resolution and binding. Errors carry a stable code, a rendered message, optional
// hints, and a source position so tools can display or serialize them.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and display.
type ErrorClass string

const (
	ClassParse     ErrorClass = "parse"     // Markup syntax errors
	ClassLower     ErrorClass = "lower"     // Node tree to segment/slot errors
	ClassComponent ErrorClass = "component" // Component registration and resolution
	ClassExpr      ErrorClass = "expr"      // Host expression compile errors
	ClassBind      ErrorClass = "bind"      // Render-time binding failures
	ClassGenerate  ErrorClass = "generate"  // Go code generation
)

// BeamError represents any error from compiling or rendering a template.
type BeamError struct {
	Class   ErrorClass     `json:"class"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hints   []string       `json:"hints,omitempty"`
	Line    int            `json:"line"`   // 1-based line (0 if unknown)
	Column  int            `json:"column"` // 1-based column (0 if unknown)
	File    string         `json:"file,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *BeamError) Error() string {
	return e.String()
}

// String returns a single-line location prefix followed by the message and
// one indented line per hint.
func (e *BeamError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for terminal display.
func (e *BeamError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassParse:
		sb.WriteString("Parse error")
	case ClassBind:
		sb.WriteString("Render error")
	case ClassGenerate:
		sb.WriteString("Generate error")
	default:
		sb.WriteString("Compile error")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *BeamError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *BeamError) WithFile(file string) *BeamError {
	copy := *e
	copy.File = file
	return &copy
}

// WithPosition returns a copy of the error with line and column set.
func (e *BeamError) WithPosition(line, column int) *BeamError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// IsCompileError reports whether the error was raised before any rendering happened.
func (e *BeamError) IsCompileError() bool {
	return e.Class != ClassBind
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass
	Template string   // Message template with {{.placeholders}}
	Hints    []string // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Parse errors (PARSE-0xxx)
	// ========================================
	"PARSE-0001": {
		Class:    ClassParse,
		Template: "expected {{.Expected}}, got '{{.Got}}'",
	},
	"PARSE-0002": {
		Class:    ClassParse,
		Template: "unexpected token '{{.Token}}'",
	},
	"PARSE-0003": {
		Class:    ClassParse,
		Template: "unterminated string",
	},
	"PARSE-0004": {
		Class:    ClassParse,
		Template: "unterminated expression: missing '}'",
	},
	"PARSE-0005": {
		Class:    ClassParse,
		Template: "mismatched tags: opening <{{.Open}}> but closing </{{.Close}}>",
		Hints:    []string{"close it with </{{.Open}}>"},
	},
	"PARSE-0006": {
		Class:    ClassParse,
		Template: "expected closing tag </{{.Tag}}>",
		Hints:    []string{"<{{.Tag}} /> if the element has no content"},
	},
	"PARSE-0007": {
		Class:    ClassParse,
		Template: "expected '>' or '/>' at the end of tag <{{.Tag}}>, got '{{.Got}}'",
	},
	"PARSE-0008": {
		Class:    ClassParse,
		Template: "expected a tag name after '<', got '{{.Got}}'",
	},
	"PARSE-0009": {
		Class:    ClassParse,
		Template: "`unsafe` is not allowed in attribute values",
		Hints:    []string{"{{.Name}}={expression}"},
	},
	"PARSE-0010": {
		Class:    ClassParse,
		Template: "invalid value for attribute '{{.Name}}': expected a string, an integer or {expression}, got '{{.Got}}'",
	},
	"PARSE-0011": {
		Class:    ClassParse,
		Template: "<!DOCTYPE html> is only allowed as the first node",
	},
	"PARSE-0012": {
		Class:    ClassParse,
		Template: "empty expression '{}'",
	},
	"PARSE-0013": {
		Class:    ClassParse,
		Template: "unexpected closing tag </{{.Tag}}>",
	},
	"PARSE-0014": {
		Class:    ClassParse,
		Template: "unknown directive @{{.Name}}",
	},
	"PARSE-0015": {
		Class:    ClassParse,
		Template: "unterminated comment",
	},
	"PARSE-0016": {
		Class:    ClassParse,
		Template: "unexpected character '{{.Char}}'",
	},
	"PARSE-0017": {
		Class:    ClassParse,
		Template: "duplicate template definition '{{.Name}}'",
	},
	"PARSE-0018": {
		Class:    ClassParse,
		Template: "unterminated parameter list: missing ')'",
	},
	"PARSE-0019": {
		Class:    ClassParse,
		Template: "invalid parameter list for template '{{.Name}}': {{.GoError}}",
	},
	"PARSE-0020": {
		Class:    ClassParse,
		Template: "expected <!DOCTYPE html>, got '<!{{.Got}}'",
	},
	"PARSE-0021": {
		Class:    ClassParse,
		Template: "invalid escape sequence '{{.Char}}' in string",
		Hints:    []string{`valid escapes are \n \r \t \0 \\ \" \' \xHH (up to 7F) and \u{HHHHHH}`},
	},

	// ========================================
	// Lowering errors (LOWER-0xxx)
	// ========================================
	"LOWER-0001": {
		Class:    ClassLower,
		Template: "duplicate attribute '{{.Name}}' on <{{.Tag}}>",
	},
	"LOWER-0002": {
		Class:    ClassLower,
		Template: "handler for unknown event '{{.Event}}'",
		// Hint "Did you mean `X`?" added dynamically by fuzzy matching
	},
	"LOWER-0003": {
		Class:    ClassLower,
		Template: "event handler '{{.Name}}' must be an {expression}",
	},

	// ========================================
	// Component errors (COMP-0xxx)
	// ========================================
	"COMP-0001": {
		Class:    ClassComponent,
		Template: "undefined component: {{.Name}}",
	},
	"COMP-0002": {
		Class:    ClassComponent,
		Template: "unknown property '{{.Prop}}' on component {{.Name}}",
	},
	"COMP-0003": {
		Class:    ClassComponent,
		Template: "component {{.Name}} does not accept children",
		Hints:    []string{"add a field `Children beam.UI` to {{.Name}}", "<{{.Name}} /> if it takes no content"},
	},
	"COMP-0004": {
		Class:    ClassComponent,
		Template: "cannot register component {{.Name}}: {{.Reason}}",
	},
	"COMP-0005": {
		Class:    ClassComponent,
		Template: "invalid value for property '{{.Prop}}' of {{.Name}}: {{.GoError}}",
	},
	"COMP-0006": {
		Class:    ClassComponent,
		Template: "island {{.Name}} cannot take children",
	},
	"COMP-0007": {
		Class:    ClassComponent,
		Template: "template {{.Name}} includes itself: {{.Path}}",
	},

	// ========================================
	// Expression errors (EXPR-0xxx)
	// ========================================
	"EXPR-0001": {
		Class:    ClassExpr,
		Template: "invalid expression `{{.Source}}`: {{.GoError}}",
	},
	"EXPR-0002": {
		Class:    ClassExpr,
		Template: "unsupported expression form: {{.Kind}}",
	},
	"EXPR-0003": {
		Class:    ClassExpr,
		Template: "unsupported operator {{.Op}}",
	},

	// ========================================
	// Binding errors (BIND-0xxx)
	// ========================================
	"BIND-0001": {
		Class:    ClassBind,
		Template: "identifier not found: {{.Name}}",
	},
	"BIND-0002": {
		Class:    ClassBind,
		Template: "attribute '{{.Name}}' needs a text, integer or boolean value, got {{.Type}}",
	},
	"BIND-0003": {
		Class:    ClassBind,
		Template: "cannot evaluate `{{.Expr}}`: {{.Reason}}",
	},
	"BIND-0004": {
		Class:    ClassBind,
		Template: "missing value for parameter '{{.Name}}'",
	},
	"BIND-0005": {
		Class:    ClassBind,
		Template: "unknown field or method '{{.Name}}' on {{.Type}}",
	},
	"BIND-0006": {
		Class:    ClassBind,
		Template: "operator {{.Op}} not supported for {{.Left}} and {{.Right}}",
	},
	"BIND-0007": {
		Class:    ClassBind,
		Template: "cannot index {{.Type}} with {{.IndexType}}",
	},
	"BIND-0008": {
		Class:    ClassBind,
		Template: "cannot call {{.Type}}",
	},
	"BIND-0009": {
		Class:    ClassBind,
		Template: "wrong number of arguments to `{{.Function}}`. got={{.Got}}, want={{.Want}}",
	},
	"BIND-0010": {
		Class:    ClassBind,
		Template: "division by zero",
	},

	// ========================================
	// Generate errors (GEN-0xxx)
	// ========================================
	"GEN-0001": {
		Class:    ClassGenerate,
		Template: "generated code for {{.File}} is not valid Go: {{.GoError}}",
	},
	"GEN-0002": {
		Class:    ClassGenerate,
		Template: "cannot write '{{.Path}}': {{.GoError}}",
	},
	"GEN-0003": {
		Class:    ClassGenerate,
		Template: "cannot load Go types from {{.Dir}}: {{.GoError}}",
		Hints:    []string{"struct components are read from the .go files next to the template"},
	},
}

// New creates a BeamError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *BeamError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &BeamError{
			Class:   ClassLower,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &BeamError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates a BeamError with position information.
func NewWithPosition(code string, line, column int, data map[string]any) *BeamError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// NewSimple creates an error without using the catalog.
func NewSimple(class ErrorClass, message string) *BeamError {
	return &BeamError{
		Class:   class,
		Message: message,
	}
}

// WithSuggestion appends a "Did you mean" hint when name is close to one of candidates.
func (e *BeamError) WithSuggestion(name string, candidates []string) *BeamError {
	if suggestion := FindClosestMatch(name, candidates); suggestion != "" {
		e.Hints = append(e.Hints, "Did you mean `"+suggestion+"`?")
	}
	return e
}

func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// matchThreshold allows 1 edit for short names, 2 for medium, 3 for long ones.
func matchThreshold(input string) int {
	switch {
	case len(input) >= 7:
		return 3
	case len(input) >= 4:
		return 2
	default:
		return 1
	}
}

// FindClosestMatch finds the closest match to the given string from candidates.
// Returns the best match if the distance is within the threshold, otherwise empty string.
func FindClosestMatch(input string, candidates []string) string {
	matches := FindTopMatches(input, candidates, 1)
	if len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// FindTopMatches returns up to n candidates within the edit threshold, closest first.
// Exact matches are excluded.
func FindTopMatches(input string, candidates []string, n int) []string {
	if len(input) == 0 || len(candidates) == 0 || n <= 0 {
		return nil
	}

	type fuzzyMatch struct {
		value    string
		distance int
	}

	inputLower := strings.ToLower(input)
	threshold := matchThreshold(input)

	var matches []fuzzyMatch
	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if dist > 0 && dist <= threshold {
			matches = append(matches, fuzzyMatch{value: candidate, distance: dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	var result []string
	for i := 0; i < len(matches) && i < n; i++ {
		result = append(result, matches[i].value)
	}
	return result
}
