package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sambeau/beam/pkg/beam"
	"github.com/sambeau/beam/pkg/beam/components"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(s *Session, inputs ...string) string {
	var out bytes.Buffer
	for _, in := range inputs {
		s.Handle(&out, in)
	}
	return out.String()
}

func TestRender(t *testing.T) {
	s := NewSession(nil)

	out := run(s, `:set name = "<Ada>"`)
	assert.Equal(t, "name = \"<Ada>\" (string)\n", out)

	out = run(s, `<p class="greeting">{"Hello, " + name}</p>`)
	assert.Equal(t, "<p class=\"greeting\">Hello, &lt;Ada&gt;</p>\n", out)
}

func TestSetUsesBindings(t *testing.T) {
	s := NewSession(nil)
	run(s, ":set n = 2 + 3", ":set m n * 2")
	assert.Equal(t, 5, s.Vars()["n"])
	assert.Equal(t, 10, s.Vars()["m"])

	assert.Equal(t, "<input value=\"10\"/>\n", run(s, "<input value={m}/>"))
}

func TestCommands(t *testing.T) {
	s := NewSession(nil)

	assert.Equal(t, "(no bindings)\n", run(s, ":vars"))

	run(s, ":set b = true", `:set a = "x"`)
	assert.Equal(t, "  a = \"x\" (string)\n  b = true (bool)\n", run(s, ":vars"))

	run(s, ":unset b")
	assert.NotContains(t, s.Vars(), "b")

	assert.Equal(t, "Bindings cleared\n", run(s, ":clear"))
	assert.Empty(t, s.Vars())

	assert.Contains(t, run(s, ":set"), "usage: :set NAME = EXPR")
	assert.Contains(t, run(s, ":bogus"), "Unknown command: :bogus")
	assert.Contains(t, run(s, ":help"), ":pieces")
}

func TestModes(t *testing.T) {
	s := NewSession(nil)

	assert.Equal(t, "Showing pieces\n", run(s, ":pieces"))
	assert.Equal(t, ModePieces, s.Mode())
	out := run(s, `<p class={c}>"x"</p>`)
	assert.Contains(t, out, "piece 0:")
	assert.Contains(t, out, "slot  0: attribute class=")

	assert.Equal(t, "Showing vnode\n", run(s, ":vnode"))
	out = run(s, `<p class={c}>"x"</p>`)
	assert.Contains(t, out, `"kind": "tag"`)
	assert.Contains(t, out, `"tag": "p"`)

	assert.Equal(t, "Showing rendered HTML\n", run(s, ":vnode"))
	assert.Equal(t, ModeRender, s.Mode())
}

func TestErrors(t *testing.T) {
	s := NewSession(nil)

	out := run(s, "<p>{missing}</p>")
	assert.Contains(t, out, "Render error")
	assert.Contains(t, out, "identifier not found: missing")

	out = run(s, "<p></div>")
	assert.Contains(t, out, "Parse error")

	out = run(s, ":set x = nope")
	assert.Contains(t, out, "identifier not found: nope")
	assert.NotContains(t, s.Vars(), "x")
}

func TestComponents(t *testing.T) {
	reg := beam.NewRegistry()
	require.NoError(t, components.Register(reg))
	s := NewSession(reg)

	out := run(s, `<Markdown source="# Hi"/>`)
	assert.Equal(t, "<h1>Hi</h1>\n\n", out)
	assert.Contains(t, run(s, ":help"), "Components: Markdown")
}

func TestNeedsMoreInput(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`<p>"x"</p>`, false},
		{`<div>`, true},
		{"<div>\n  <p>\"x\"</p>", true},
		{"<div>\n  <p>\"x\"</p>\n</div>", false},
		{`<br>`, false},
		{`<img src="a"/>`, false},
		{`<p class={a > b ? "x" : "y"}`, true},
		{`<p>{len(items)`, true},
		{`<p>"unclosed`, true},
		{`<p>"a < b"</p>`, false},
		{`<Card title="x">`, true},
		{`:set x = "<p>"`, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, needsMoreInput(tt.input), tt.input)
	}
}

func TestFilterCompletions(t *testing.T) {
	assert.Equal(t, []string{"<section", "<span", "<script", "<style"}, filterCompletions("<s"))
	assert.Equal(t, []string{":pieces"}, filterCompletions(":pi"))
	assert.Nil(t, filterCompletions("<p "))
	assert.Nil(t, filterCompletions(""))

	for _, c := range filterCompletions("<div><l") {
		assert.True(t, strings.HasPrefix(c, "<div><l"), c)
	}
}
