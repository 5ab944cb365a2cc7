// Package beam assembles compiled templates into HTML at render time.
//
// A template is lowered once into literal pieces and interpolation slots (see
// package lower). Rendering resolves each slot to an Interpolator and passes
// both to Assemble, which escapes values and joins everything into one UI.
package beam

import (
	"io"
	"strings"

	"github.com/sambeau/beam/pkg/beam/escape"
)

// UI is rendered HTML. The zero value is empty.
type UI struct {
	html string
}

// Raw wraps trusted HTML without escaping it.
func Raw(html string) UI {
	return UI{html: html}
}

// Text escapes s and returns it as UI.
func Text(s string) UI {
	return UI{html: escape.HTML(s)}
}

func (u UI) String() string { return u.html }

// Len returns the length of the HTML in bytes.
func (u UI) Len() int { return len(u.html) }

func (u UI) IsEmpty() bool { return u.html == "" }

// WriteTo writes the HTML to w.
func (u UI) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, u.html)
	return int64(n), err
}

// MarshalText lets UI be embedded in JSON and YAML as a plain string.
func (u UI) MarshalText() ([]byte, error) {
	return []byte(u.html), nil
}

// Concat joins UIs in order.
func Concat(uis ...UI) UI {
	switch len(uis) {
	case 0:
		return UI{}
	case 1:
		return uis[0]
	}

	size := 0
	for _, u := range uis {
		size += len(u.html)
	}
	var b strings.Builder
	b.Grow(size)
	for _, u := range uis {
		b.WriteString(u.html)
	}
	return UI{html: b.String()}
}
