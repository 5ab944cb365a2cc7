package codegen

import (
	"fmt"
	"strconv"

	"github.com/sambeau/beam/pkg/beam/ast"
)

// typeClass groups the Go types literal attributes convert to. Other types
// take the literal as written and are left to the Go compiler.
func typeClass(typ string) string {
	switch typ {
	case "string":
		return "string"
	case "int", "int8", "int16", "int32", "int64":
		return "int"
	case "uint", "uint8", "uint16", "uint32", "uint64", "uintptr":
		return "uint"
	case "float32", "float64":
		return "float"
	case "bool":
		return "bool"
	case "beam.UI":
		return "ui"
	}
	return ""
}

// literal returns Go source assigning v to a value of type typ. Weak
// conversion follows props decoding for struct components: "" is zero, and
// true is 1 or "1". Otherwise it follows template parameter binding.
// Expressions are returned as written.
func literal(v ast.AttributeValue, typ string, weak bool) (string, error) {
	switch v := v.(type) {
	case *ast.Expression:
		return v.Source, nil
	case *ast.StringLiteral:
		return stringLiteral(v.Value, typ, weak)
	case *ast.IntegerLiteral:
		return intLiteral(v.Digits, typ, weak)
	case nil:
		return trueLiteral(typ, weak)
	}
	return "", fmt.Errorf("unsupported attribute value %T", v)
}

func stringLiteral(s, typ string, weak bool) (string, error) {
	if weak && s == "" {
		switch typeClass(typ) {
		case "int", "uint", "float":
			return "0", nil
		case "bool":
			return "false", nil
		}
	}
	switch typeClass(typ) {
	case "int":
		base := 10
		if weak {
			base = 0
		}
		i, err := strconv.ParseInt(s, base, 64)
		if err != nil {
			return "", cannotConvert(strconv.Quote(s), typ)
		}
		return strconv.FormatInt(i, 10), nil
	case "uint":
		u, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return "", cannotConvert(strconv.Quote(s), typ)
		}
		return strconv.FormatUint(u, 10), nil
	case "float":
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", cannotConvert(strconv.Quote(s), typ)
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case "bool":
		b, err := strconv.ParseBool(s)
		if err != nil {
			return "", cannotConvert(strconv.Quote(s), typ)
		}
		return strconv.FormatBool(b), nil
	case "ui":
		return "beam.Text(" + strconv.Quote(s) + ")", nil
	}
	return strconv.Quote(s), nil
}

func intLiteral(digits, typ string, weak bool) (string, error) {
	switch typeClass(typ) {
	case "string":
		return strconv.Quote(digits), nil
	case "bool":
		if !weak {
			return "", cannotConvert(digits, typ)
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return "", cannotConvert(digits, typ)
		}
		return strconv.FormatBool(n != 0), nil
	case "ui":
		return "beam.Text(" + strconv.Quote(digits) + ")", nil
	}
	return digits, nil
}

func trueLiteral(typ string, weak bool) (string, error) {
	switch typeClass(typ) {
	case "string":
		if weak {
			return `"1"`, nil
		}
		return `"true"`, nil
	case "int", "uint", "float":
		if !weak {
			return "", cannotConvert("true", typ)
		}
		return "1", nil
	case "ui":
		return `beam.Text("true")`, nil
	}
	return "true", nil
}

func cannotConvert(value, typ string) error {
	return fmt.Errorf("cannot use %s as %s", value, typ)
}
