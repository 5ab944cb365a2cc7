package vnode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambeau/beam/pkg/beam/parser"
)

func buildVNodes(t *testing.T, src string) []VNode {
	t.Helper()
	tmpl, err := parser.ParseTemplate(src, "test.beam")
	require.NoError(t, err)
	return BuildTemplate(tmpl)
}

func TestBuild(t *testing.T) {
	got := buildVNodes(t, `<!DOCTYPE html><div class="a&b" hidden tabindex=2 id={id}>"x<y"`+"`<i>raw</i>`"+`{name}unsafe {html}<br/></div>`)
	require.Len(t, got, 1, "doctype is dropped")

	div := got[0]
	assert.Equal(t, Tag, div.Kind)
	assert.Equal(t, "div", div.Tag)
	assert.Equal(t, []Prop{
		{Name: "class", Value: "a&amp;b"},
		{Name: "hidden", Value: true},
		{Name: "tabindex", Value: int64(2)},
		{Name: "id", Expr: "id"},
	}, div.Props)

	require.Len(t, div.Children, 2)
	text := div.Children[0]
	assert.Equal(t, Fragment, text.Kind)
	require.Len(t, text.Children, 4)
	assert.Equal(t, VNode{Kind: Text, Text: "x&lt;y"}, stripPos(text.Children[0]))
	assert.Equal(t, VNode{Kind: Text, Text: "<i>raw</i>"}, stripPos(text.Children[1]))
	assert.Equal(t, VNode{Kind: Expr, Expr: "name"}, stripPos(text.Children[2]))
	assert.Equal(t, VNode{Kind: Expr, Expr: "html", Unsafe: true}, stripPos(text.Children[3]))

	br := div.Children[1]
	assert.Equal(t, Tag, br.Kind)
	assert.Equal(t, "br", br.Tag)
	assert.Empty(t, br.Children)
}

func TestBuildEvents(t *testing.T) {
	got := buildVNodes(t, `<button onclick={inc} onmouseover={hover} onfoo={x} data-on="y"/>`)
	require.Len(t, got, 1)
	assert.Equal(t, []Prop{
		{Name: "onClick", Expr: "inc", Event: true},
		{Name: "onMouseOver", Expr: "hover", Event: true},
		{Name: "onfoo", Expr: "x"},
		{Name: "data-on", Value: "y"},
	}, got[0].Props)
}

func TestBuildComponent(t *testing.T) {
	got := buildVNodes(t, `<Counter start=1 onclick={f}><p>"hi"</p></Counter>`)
	require.Len(t, got, 1)
	c := got[0]
	assert.Equal(t, Component, c.Kind)
	assert.Equal(t, "Counter", c.Tag)
	assert.Equal(t, []Prop{
		{Name: "start", Value: int64(1)},
		{Name: "onclick", Expr: "f"},
	}, c.Props, "component props are passed through as written")
	require.Len(t, c.Children, 1)
	assert.Equal(t, "p", c.Children[0].Tag)
	assert.Equal(t, 1, c.Pos.Line)
}

func TestMarshal(t *testing.T) {
	data, err := Marshal(buildVNodes(t, `<a href={url}>"go"</a>`))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"kind": "tag", "tag": "a",
		 "props": [{"name": "href", "expr": "url"}],
		 "children": [{"kind": "fragment", "children": [{"kind": "text", "text": "go"}]}]}
	]`, string(data))

	back, err := Unmarshal(data)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, "url", back[0].Props[0].Expr)

	empty, err := Marshal(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func stripPos(v VNode) VNode {
	v.Pos.Line, v.Pos.Column = 0, 0
	return v
}
