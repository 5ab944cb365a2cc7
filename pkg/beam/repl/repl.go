// Package repl is an interactive prompt for trying beam markup: each complete
// input is compiled as a template and rendered against the session's variables.
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/peterh/liner"
	"github.com/sambeau/beam/pkg/beam"
	berrors "github.com/sambeau/beam/pkg/beam/errors"
	"github.com/sambeau/beam/pkg/beam/expr"
	"github.com/sambeau/beam/pkg/beam/parser"
	"github.com/sambeau/beam/pkg/beam/vnode"
)

const (
	prompt             = ">> "
	continuationPrompt = ".. "
)

// Mode selects what the session prints for each input.
type Mode int

const (
	ModeRender Mode = iota // rendered HTML
	ModePieces             // lowered pieces and slots
	ModeVNode              // vnode JSON
)

var completionWords = []string{
	":help", ":set", ":unset", ":vars", ":clear", ":pieces", ":vnode",
	"unsafe", "true", "false", "nil", "len",
	"html", "head", "body", "main", "section", "article", "div", "span", "p",
	"a", "ul", "ol", "li", "h1", "h2", "h3", "button", "input", "form", "label",
	"img", "br", "hr", "meta", "link", "title", "script", "style",
}

var setRe = regexp.MustCompile(`^:set\s+([A-Za-z_][A-Za-z0-9_]*)\s*=?\s*(.+)$`)

// Session holds the state of one REPL run.
type Session struct {
	registry *beam.Registry
	vars     beam.Vars
	mode     Mode
}

// NewSession creates a session resolving components from registry.
func NewSession(registry *beam.Registry) *Session {
	if registry == nil {
		registry = beam.NewRegistry()
	}
	return &Session{registry: registry, vars: beam.Vars{}}
}

// Vars returns the session's bindings.
func (s *Session) Vars() beam.Vars { return s.vars }

// Mode returns the current output mode.
func (s *Session) Mode() Mode { return s.mode }

// Start runs the REPL on the terminal until Ctrl+D or exit.
func Start(out io.Writer, version string, registry *beam.Registry) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(filterCompletions)

	historyFile := filepath.Join(os.TempDir(), ".beam_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(out, "beam %s\n", version)
	fmt.Fprintln(out, "Type markup to render it, ':help' for commands, Ctrl+D to quit")
	fmt.Fprintln(out)

	session := NewSession(registry)
	var buf strings.Builder
	for {
		p := prompt
		if buf.Len() > 0 {
			p = continuationPrompt
		}
		input, err := line.Prompt(p)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(out, "^C")
				buf.Reset()
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if buf.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			fmt.Fprintln(out, "Goodbye!")
			return
		}
		if buf.Len() == 0 && trimmed == "" {
			continue
		}

		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(input)
		full := buf.String()
		if !strings.HasPrefix(trimmed, ":") && needsMoreInput(full) {
			continue
		}

		line.AppendHistory(full)
		session.Handle(out, full)
		buf.Reset()
	}
}

// Handle runs one complete input: a ':' command or markup.
func (s *Session) Handle(out io.Writer, input string) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return
	}
	if strings.HasPrefix(trimmed, ":") {
		s.command(out, trimmed)
		return
	}

	tmpl, err := beam.Compile("repl", input, beam.WithRegistry(s.registry))
	if err != nil {
		printError(out, err)
		return
	}

	switch s.mode {
	case ModePieces:
		for i, c := range tmpl.Compiled() {
			if len(tmpl.Compiled()) > 1 {
				fmt.Fprintf(out, "-- root %d\n", i)
			}
			io.WriteString(out, c.String())
		}
	case ModeVNode:
		t, err := parser.ParseTemplate(input, "repl")
		if err != nil {
			printError(out, err)
			return
		}
		data, err := vnode.Marshal(vnode.BuildTemplate(t))
		if err != nil {
			printError(out, err)
			return
		}
		fmt.Fprintf(out, "%s\n", data)
	default:
		ui, err := tmpl.Execute(s.vars)
		if err != nil {
			printError(out, err)
			return
		}
		fmt.Fprintln(out, ui.String())
	}
}

func (s *Session) command(out io.Writer, cmd string) {
	name, _, _ := strings.Cut(cmd, " ")
	switch name {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  :set NAME = EXPR  Bind NAME to the value of a Go expression")
		fmt.Fprintln(out, "  :unset NAME       Remove a binding")
		fmt.Fprintln(out, "  :vars             Show bindings")
		fmt.Fprintln(out, "  :clear            Remove all bindings")
		fmt.Fprintln(out, "  :pieces           Toggle showing lowered pieces and slots")
		fmt.Fprintln(out, "  :vnode            Toggle showing the vnode tree as JSON")
		fmt.Fprintln(out, "  exit, quit        Leave")
		fmt.Fprintln(out, "Components:", strings.Join(s.registry.Names(), ", "))

	case ":set":
		m := setRe.FindStringSubmatch(cmd)
		if m == nil {
			fmt.Fprintln(out, "usage: :set NAME = EXPR")
			return
		}
		e, err := expr.Compile(m[2])
		if err != nil {
			printError(out, err)
			return
		}
		v, err := e.Eval(s.vars)
		if err != nil {
			printError(out, err)
			return
		}
		s.vars[m[1]] = v
		fmt.Fprintf(out, "%s = %s\n", m[1], describe(v))

	case ":unset":
		for _, n := range strings.Fields(strings.TrimPrefix(cmd, ":unset")) {
			delete(s.vars, n)
		}

	case ":vars":
		printVars(out, s.vars)

	case ":clear":
		s.vars = beam.Vars{}
		fmt.Fprintln(out, "Bindings cleared")

	case ":pieces":
		s.toggle(out, ModePieces, "pieces")

	case ":vnode":
		s.toggle(out, ModeVNode, "vnode")

	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

func (s *Session) toggle(out io.Writer, m Mode, name string) {
	if s.mode == m {
		s.mode = ModeRender
		fmt.Fprintln(out, "Showing rendered HTML")
		return
	}
	s.mode = m
	fmt.Fprintf(out, "Showing %s\n", name)
}

func printVars(out io.Writer, vars beam.Vars) {
	names := vars.Names()
	if len(names) == 0 {
		fmt.Fprintln(out, "(no bindings)")
		return
	}
	for _, name := range names {
		fmt.Fprintf(out, "  %s = %s\n", name, describe(vars[name]))
	}
}

// describe formats a value with its type, truncated to one short line.
func describe(v any) string {
	if v == nil {
		return "nil"
	}
	s := fmt.Sprintf("%#v", v)
	switch v.(type) {
	case string, bool, int, int64, float64:
		s = fmt.Sprintf("%#v (%T)", v, v)
	}
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}

func printError(out io.Writer, err error) {
	var be *berrors.BeamError
	if errors.As(err, &be) {
		io.WriteString(out, be.PrettyString())
		io.WriteString(out, "\n")
		return
	}
	fmt.Fprintf(out, "Error: %v\n", err)
}

func filterCompletions(line string) []string {
	if strings.TrimSpace(line) == "" || strings.HasSuffix(line, " ") || strings.HasSuffix(line, "\t") {
		return nil
	}
	i := strings.LastIndexAny(line, " \t<{(")
	prefix, word := line[:i+1], line[i+1:]
	if word == "" {
		return nil
	}

	var matches []string
	for _, w := range completionWords {
		if strings.HasPrefix(w, word) {
			matches = append(matches, prefix+w)
		}
	}
	return matches
}

// needsMoreInput reports whether input has unclosed braces, parentheses or
// tags, so the prompt should keep reading lines.
func needsMoreInput(input string) bool {
	braces, parens, tags := 0, 0, 0
	inString := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if inString {
			if ch == '\\' {
				i++
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			braces++
		case '}':
			braces--
		case '(':
			parens++
		case ')':
			parens--
		case '<':
			if braces > 0 || i+1 >= len(input) {
				continue
			}
			next := input[i+1]
			switch {
			case next == '/':
				tags--
			case isTagNameStart(next):
				end := findTagEnd(input, i)
				if end < 0 {
					return true
				}
				if input[end-1] != '/' && !isVoid(input[i+1:end]) {
					tags++
				}
			}
		}
	}
	return inString || braces > 0 || parens > 0 || tags > 0
}

func isTagNameStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isVoid(tag string) bool {
	name, _, _ := strings.Cut(strings.TrimSpace(tag), " ")
	switch name {
	case "br", "meta", "link", "hr":
		return true
	}
	return false
}

func findTagEnd(input string, pos int) int {
	inQuote := false
	depth := 0
	for i := pos + 1; i < len(input); i++ {
		ch := input[i]
		switch {
		case inQuote:
			if ch == '"' {
				inQuote = false
			}
		case ch == '"':
			inQuote = true
		case ch == '{':
			depth++
		case ch == '}':
			depth--
		case ch == '>' && depth == 0:
			return i
		}
	}
	return -1
}
