package beam

import (
	"math"
	"reflect"
	"strconv"

	berrors "github.com/sambeau/beam/pkg/beam/errors"
)

// AttributeKind identifies the variant held by an AttributeValue.
type AttributeKind uint8

const (
	KindText AttributeKind = iota
	KindInteger
	KindBoolean
)

func (k AttributeKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	}
	return "unknown"
}

// AttributeValue is the value of a dynamic attribute: text, an integer, or a
// boolean that decides whether the attribute is present at all.
type AttributeValue struct {
	kind    AttributeKind
	text    string
	integer int64
	boolean bool
}

func TextValue(s string) AttributeValue   { return AttributeValue{kind: KindText, text: s} }
func IntegerValue(i int64) AttributeValue { return AttributeValue{kind: KindInteger, integer: i} }
func BooleanValue(b bool) AttributeValue  { return AttributeValue{kind: KindBoolean, boolean: b} }

func (a AttributeValue) Kind() AttributeKind { return a.kind }

// Text returns the text value, if the attribute holds one.
func (a AttributeValue) Text() (string, bool) { return a.text, a.kind == KindText }

func (a AttributeValue) Integer() (int64, bool) { return a.integer, a.kind == KindInteger }

func (a AttributeValue) Boolean() (bool, bool) { return a.boolean, a.kind == KindBoolean }

// String renders the value as it appears between quotes, unescaped.
func (a AttributeValue) String() string {
	switch a.kind {
	case KindInteger:
		return strconv.FormatInt(a.integer, 10)
	case KindBoolean:
		return strconv.FormatBool(a.boolean)
	}
	return a.text
}

// AttributeType lists the Go types accepted by Attr.
type AttributeType interface {
	~string | ~bool |
		~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32
}

// Attr converts v to an attribute interpolation.
func Attr[T AttributeType](v T) Interpolator {
	av, err := AttributeValueOf(v)
	if err != nil {
		panic(err)
	}
	return Interpolator{kind: interpAttribute, attr: av}
}

// AttributeValueOf converts a dynamically typed value to an AttributeValue.
// Strings become text, integers integers and booleans booleans; anything else
// is a binding error.
func AttributeValueOf(v any) (AttributeValue, error) {
	return attributeValueFor("", v)
}

// attributeValueFor is AttributeValueOf with the attribute name used in errors.
func attributeValueFor(name string, v any) (AttributeValue, error) {
	switch v := v.(type) {
	case AttributeValue:
		return v, nil
	case string:
		return TextValue(v), nil
	case bool:
		return BooleanValue(v), nil
	case int:
		return IntegerValue(int64(v)), nil
	case int64:
		return IntegerValue(v), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return TextValue(rv.String()), nil
	case reflect.Bool:
		return BooleanValue(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IntegerValue(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return IntegerValue(int64(u)), nil
		}
	}

	typ := "nil"
	if v != nil {
		typ = rv.Type().String()
	}
	if name == "" {
		name = "value"
	}
	return AttributeValue{}, berrors.New("BIND-0002", map[string]any{"Name": name, "Type": typ})
}
