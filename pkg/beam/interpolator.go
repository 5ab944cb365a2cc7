package beam

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/sambeau/beam/pkg/beam/escape"
)

type interpKind uint8

const (
	interpAttribute interpKind = iota
	interpChildren
)

// Interpolator is a resolved slot value, ready for Assemble.
type Interpolator struct {
	kind interpKind
	attr AttributeValue
	html string
}

// AttributeInterpolator wraps an already converted attribute value.
func AttributeInterpolator(v AttributeValue) Interpolator {
	return Interpolator{kind: interpAttribute, attr: v}
}

// Children converts v to content, escaping text.
func Children(v any) Interpolator {
	return Interpolator{kind: interpChildren, html: ToChildren(v, true).html}
}

// Unsafe converts v to content without escaping text.
func Unsafe(v any) Interpolator {
	return Interpolator{kind: interpChildren, html: ToChildren(v, false).html}
}

// IsAttribute reports whether the interpolation fills an attribute slot.
func (i Interpolator) IsAttribute() bool { return i.kind == interpAttribute }

// sizeHint estimates the bytes the value adds to the output.
func (i Interpolator) sizeHint() int {
	if i.kind == interpChildren {
		return len(i.html)
	}
	switch i.attr.kind {
	case KindText:
		return len(i.attr.text) + 2
	case KindInteger:
		return 6
	}
	return 0
}

// ToChildren renders v as content. UI and components are never escaped again;
// text from strings, fmt.Stringer and error values is escaped when esc is set.
// Slices render each element in order and nil renders nothing.
func ToChildren(v any, esc bool) UI {
	text := func(s string) UI {
		if esc {
			return UI{html: escape.HTML(s)}
		}
		return UI{html: s}
	}

	switch v := v.(type) {
	case nil:
		return UI{}
	case UI:
		return v
	case *UI:
		if v == nil {
			return UI{}
		}
		return *v
	case []UI:
		return Concat(v...)
	case Component:
		return renderComponent(v)
	case string:
		return text(v)
	case []byte:
		return text(string(v))
	case fmt.Stringer:
		return text(v.String())
	case error:
		return text(v.Error())
	case bool:
		return UI{html: strconv.FormatBool(v)}
	case int:
		return UI{html: strconv.Itoa(v)}
	case int64:
		return UI{html: strconv.FormatInt(v, 10)}
	case float64:
		return UI{html: strconv.FormatFloat(v, 'g', -1, 64)}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return UI{}
		}
		return ToChildren(rv.Elem().Interface(), esc)
	case reflect.Slice, reflect.Array:
		parts := make([]UI, rv.Len())
		for i := range parts {
			parts[i] = ToChildren(rv.Index(i).Interface(), esc)
		}
		return Concat(parts...)
	case reflect.String:
		return text(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return UI{html: strconv.FormatInt(rv.Int(), 10)}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return UI{html: strconv.FormatUint(rv.Uint(), 10)}
	case reflect.Float32:
		return UI{html: strconv.FormatFloat(rv.Float(), 'g', -1, 32)}
	case reflect.Float64:
		return UI{html: strconv.FormatFloat(rv.Float(), 'g', -1, 64)}
	}
	return text(fmt.Sprint(v))
}
