// Package components holds stock components.
package components

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/sambeau/beam/pkg/beam"
)

// Markdown renders GitHub-flavoured Markdown.
//
//	<Markdown source={post.Body} heading-ids/>
type Markdown struct {
	Source     string
	HeadingIDs bool `beam:"heading-ids"`
	// AllowHTML keeps raw HTML in the source instead of replacing it with a comment.
	AllowHTML bool
}

func (m Markdown) Render() beam.UI {
	var parserOptions []parser.Option
	if m.HeadingIDs {
		parserOptions = append(parserOptions, parser.WithAutoHeadingID())
	}
	var rendererOptions []renderer.Option
	if m.AllowHTML {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parserOptions...),
		goldmark.WithRendererOptions(rendererOptions...),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(m.Source), &buf); err != nil {
		panic(fmt.Sprintf("markdown: %v", err))
	}
	return beam.Raw(buf.String())
}

// Register adds the stock components to r.
func Register(r *beam.Registry) error {
	return r.Register("Markdown", Markdown{})
}
