package beam

import (
	"strconv"
	"strings"

	"github.com/sambeau/beam/pkg/beam/escape"
)

// Assemble joins literal pieces with resolved values: pieces[0], values[0],
// pieces[1], and so on. len(pieces) must be len(values)+1, except that a
// template without values may have no pieces at all.
//
// Attribute values follow a piece ending in '='. Text is quoted and escaped,
// integers are quoted, true leaves the bare attribute name, and false removes
// the attribute back to the whitespace before its name.
func Assemble(pieces []string, values []Interpolator) UI {
	checkAssemble(pieces, values)

	switch len(pieces) {
	case 0:
		return UI{}
	case 1:
		return UI{html: pieces[0]}
	}

	size := 0
	for _, p := range pieces {
		size += len(p)
	}
	for _, v := range values {
		size += v.sizeHint()
	}

	var b strings.Builder
	b.Grow(size)
	var num [20]byte

	for i, v := range values {
		piece := pieces[i]
		if v.kind == interpChildren {
			b.WriteString(piece)
			b.WriteString(v.html)
			continue
		}

		switch v.attr.kind {
		case KindText:
			b.WriteString(piece)
			b.WriteByte('"')
			escape.WriteHTML(&b, v.attr.text)
			b.WriteByte('"')
		case KindInteger:
			b.WriteString(piece)
			b.WriteByte('"')
			b.Write(strconv.AppendInt(num[:0], v.attr.integer, 10))
			b.WriteByte('"')
		case KindBoolean:
			if v.attr.boolean {
				b.WriteString(piece[:len(piece)-1])
			} else {
				b.WriteString(piece[:elideFrom(piece)])
			}
		}
	}
	b.WriteString(pieces[len(pieces)-1])

	return UI{html: b.String()}
}

// elideFrom returns where the trailing ` name=` of piece starts: the last
// ASCII whitespace before the '='.
func elideFrom(piece string) int {
	end := len(piece) - 1
	if i := strings.LastIndexAny(piece[:end], " \t\n\r\f"); i >= 0 {
		return i
	}
	return end
}

func checkAssemble(pieces []string, values []Interpolator) {
	if len(values) == 0 && len(pieces) <= 1 {
		return
	}
	if len(pieces) != len(values)+1 {
		panic("beam: Assemble called with " + strconv.Itoa(len(pieces)) + " pieces for " + strconv.Itoa(len(values)) + " values")
	}
	if debug {
		for i, v := range values {
			if v.kind == interpAttribute && !strings.HasSuffix(pieces[i], "=") {
				panic("beam: piece before attribute value " + strconv.Itoa(i) + " does not end in '=': " + strconv.Quote(pieces[i]))
			}
		}
	}
}
