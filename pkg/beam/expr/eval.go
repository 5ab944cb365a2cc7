package expr

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"math"
	"reflect"
	"strconv"
	"sync"

	berrors "github.com/sambeau/beam/pkg/beam/errors"
)

type evaluator struct {
	scope Scope
	src   string
}

func (ev *evaluator) eval(n ast.Expr) (any, error) {
	switch n := n.(type) {
	case *ast.BasicLit:
		return basicLit(n)

	case *ast.Ident:
		return ev.ident(n)

	case *ast.ParenExpr:
		return ev.eval(n.X)

	case *ast.SelectorExpr:
		x, err := ev.eval(n.X)
		if err != nil {
			return nil, err
		}
		return selector(x, n.Sel.Name)

	case *ast.IndexExpr:
		x, err := ev.eval(n.X)
		if err != nil {
			return nil, err
		}
		idx, err := ev.eval(n.Index)
		if err != nil {
			return nil, err
		}
		return index(x, idx, types.ExprString(n))

	case *ast.UnaryExpr:
		x, err := ev.eval(n.X)
		if err != nil {
			return nil, err
		}
		return unary(n.Op, x)

	case *ast.BinaryExpr:
		return ev.binary(n)

	case *ast.CallExpr:
		return ev.call(n)
	}

	return nil, berrors.New("EXPR-0002", map[string]any{"Kind": describeNode(n)})
}

func basicLit(n *ast.BasicLit) (any, error) {
	switch n.Kind {
	case token.INT:
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, berrors.New("BIND-0003", map[string]any{"Expr": n.Value, "Reason": "integer out of range"})
		}
		if i >= math.MinInt && i <= math.MaxInt {
			return int(i), nil
		}
		return i, nil
	case token.FLOAT:
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, berrors.New("BIND-0003", map[string]any{"Expr": n.Value, "Reason": err.Error()})
		}
		return f, nil
	case token.CHAR:
		r, _, _, err := strconv.UnquoteChar(n.Value[1:len(n.Value)-1], '\'')
		if err != nil {
			return nil, berrors.New("BIND-0003", map[string]any{"Expr": n.Value, "Reason": err.Error()})
		}
		return r, nil
	case token.STRING:
		s, err := strconv.Unquote(n.Value)
		if err != nil {
			return nil, berrors.New("BIND-0003", map[string]any{"Expr": n.Value, "Reason": err.Error()})
		}
		return s, nil
	}
	return nil, berrors.New("EXPR-0002", map[string]any{"Kind": "imaginary literal"})
}

func (ev *evaluator) ident(n *ast.Ident) (any, error) {
	if v, ok := ev.scope.Lookup(n.Name); ok {
		return v, nil
	}
	switch n.Name {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "nil":
		return nil, nil
	}
	return nil, berrors.New("BIND-0001", map[string]any{"Name": n.Name}).
		WithSuggestion(n.Name, scopeNames(ev.scope))
}

type fieldKey struct {
	t    reflect.Type
	name string
}

// fieldCache maps (struct type, name) to the exported field's index path, or
// nil when there is no such field.
var fieldCache sync.Map

func fieldIndex(t reflect.Type, name string) []int {
	key := fieldKey{t, name}
	if idx, ok := fieldCache.Load(key); ok {
		return idx.([]int)
	}
	var idx []int
	if sf, ok := t.FieldByName(name); ok && sf.IsExported() {
		idx = sf.Index
	}
	fieldCache.Store(key, idx)
	return idx
}

func exportedNames(t reflect.Type) []string {
	var names []string
	for i := 0; i < t.NumMethod(); i++ {
		names = append(names, t.Method(i).Name)
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		for _, sf := range reflect.VisibleFields(t) {
			if sf.IsExported() {
				names = append(names, sf.Name)
			}
		}
	}
	return names
}

// selector resolves x.name as a method value, struct field or string map key.
func selector(x any, name string) (any, error) {
	if x == nil {
		return nil, berrors.New("BIND-0005", map[string]any{"Name": name, "Type": "nil"})
	}
	orig := reflect.ValueOf(x)
	rv := orig
	for {
		if m := rv.MethodByName(name); m.IsValid() {
			return m.Interface(), nil
		}
		if rv.Kind() != reflect.Pointer && rv.Kind() != reflect.Interface {
			break
		}
		if rv.IsNil() {
			return nil, berrors.New("BIND-0003", map[string]any{"Expr": "." + name, "Reason": "nil " + rv.Type().String()})
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		if idx := fieldIndex(rv.Type(), name); idx != nil {
			f, err := rv.FieldByIndexErr(idx)
			if err != nil {
				return nil, berrors.New("BIND-0003", map[string]any{"Expr": "." + name, "Reason": err.Error()})
			}
			return f.Interface(), nil
		}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if !v.IsValid() {
				return reflect.Zero(rv.Type().Elem()).Interface(), nil
			}
			return v.Interface(), nil
		}
	}

	return nil, berrors.New("BIND-0005", map[string]any{"Name": name, "Type": orig.Type().String()}).
		WithSuggestion(name, exportedNames(orig.Type()))
}

func index(x, idx any, src string) (any, error) {
	rv := indirect(reflect.ValueOf(x))
	if !rv.IsValid() {
		return nil, berrors.New("BIND-0007", map[string]any{"Type": "nil", "IndexType": typeName(idx)})
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		i, ok := toInt64(idx)
		if !ok {
			return nil, berrors.New("BIND-0007", map[string]any{"Type": rv.Type().String(), "IndexType": typeName(idx)})
		}
		if i < 0 || i >= int64(rv.Len()) {
			return nil, berrors.New("BIND-0003", map[string]any{
				"Expr":   src,
				"Reason": fmt.Sprintf("index %d out of range [0:%d]", i, rv.Len()),
			})
		}
		return rv.Index(int(i)).Interface(), nil

	case reflect.Map:
		keyType := rv.Type().Key()
		k, ok := convertTo(idx, keyType)
		if !ok {
			return nil, berrors.New("BIND-0007", map[string]any{"Type": rv.Type().String(), "IndexType": typeName(idx)})
		}
		v := rv.MapIndex(k)
		if !v.IsValid() {
			return reflect.Zero(rv.Type().Elem()).Interface(), nil
		}
		return v.Interface(), nil
	}

	return nil, berrors.New("BIND-0007", map[string]any{"Type": rv.Type().String(), "IndexType": typeName(idx)})
}

func unary(op token.Token, x any) (any, error) {
	switch op {
	case token.NOT:
		if b, ok := x.(bool); ok {
			return !b, nil
		}
	case token.ADD:
		if isNumber(x) {
			return x, nil
		}
	case token.SUB:
		if i, ok := toInt64(x); ok && isInteger(x) {
			return intResult(-i), nil
		}
		if f, ok := toFloat64(x); ok {
			return -f, nil
		}
	}
	return nil, berrors.New("BIND-0006", map[string]any{"Op": op.String(), "Left": typeName(x), "Right": "nothing"})
}

func (ev *evaluator) binary(n *ast.BinaryExpr) (any, error) {
	left, err := ev.eval(n.X)
	if err != nil {
		return nil, err
	}

	if n.Op == token.LAND || n.Op == token.LOR {
		l, ok := left.(bool)
		if !ok {
			return nil, berrors.New("BIND-0006", map[string]any{"Op": n.Op.String(), "Left": typeName(left), "Right": "bool"})
		}
		if (n.Op == token.LAND && !l) || (n.Op == token.LOR && l) {
			return l, nil
		}
		right, err := ev.eval(n.Y)
		if err != nil {
			return nil, err
		}
		r, ok := right.(bool)
		if !ok {
			return nil, berrors.New("BIND-0006", map[string]any{"Op": n.Op.String(), "Left": "bool", "Right": typeName(right)})
		}
		return r, nil
	}

	right, err := ev.eval(n.Y)
	if err != nil {
		return nil, err
	}
	return binaryOp(n.Op, left, right)
}

func binaryOp(op token.Token, left, right any) (any, error) {
	switch op {
	case token.EQL:
		return equal(left, right), nil
	case token.NEQ:
		return !equal(left, right), nil
	}

	if ls, ok := toString(left); ok {
		if rs, ok := toString(right); ok {
			switch op {
			case token.ADD:
				return ls + rs, nil
			case token.LSS:
				return ls < rs, nil
			case token.LEQ:
				return ls <= rs, nil
			case token.GTR:
				return ls > rs, nil
			case token.GEQ:
				return ls >= rs, nil
			}
		}
	}

	if isInteger(left) && isInteger(right) {
		l, _ := toInt64(left)
		r, _ := toInt64(right)
		switch op {
		case token.ADD:
			return intResult(l + r), nil
		case token.SUB:
			return intResult(l - r), nil
		case token.MUL:
			return intResult(l * r), nil
		case token.QUO, token.REM:
			if r == 0 {
				return nil, berrors.New("BIND-0010", nil)
			}
			if op == token.QUO {
				return intResult(l / r), nil
			}
			return intResult(l % r), nil
		case token.LSS:
			return l < r, nil
		case token.LEQ:
			return l <= r, nil
		case token.GTR:
			return l > r, nil
		case token.GEQ:
			return l >= r, nil
		}
	}

	if isNumber(left) && isNumber(right) {
		l, _ := toFloat64(left)
		r, _ := toFloat64(right)
		switch op {
		case token.ADD:
			return l + r, nil
		case token.SUB:
			return l - r, nil
		case token.MUL:
			return l * r, nil
		case token.QUO:
			if r == 0 {
				return nil, berrors.New("BIND-0010", nil)
			}
			return l / r, nil
		case token.LSS:
			return l < r, nil
		case token.LEQ:
			return l <= r, nil
		case token.GTR:
			return l > r, nil
		case token.GEQ:
			return l >= r, nil
		}
	}

	return nil, berrors.New("BIND-0006", map[string]any{"Op": op.String(), "Left": typeName(left), "Right": typeName(right)})
}

func (ev *evaluator) call(n *ast.CallExpr) (any, error) {
	name := types.ExprString(n.Fun)

	var fn any
	if id, ok := n.Fun.(*ast.Ident); ok && id.Name == "len" {
		if v, bound := ev.scope.Lookup("len"); bound {
			fn = v
		} else {
			fn = builtinLen
		}
	} else {
		var err error
		if fn, err = ev.eval(n.Fun); err != nil {
			return nil, err
		}
	}

	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return callValue(fn, args, name)
}

func builtinLen(v any) (int, error) {
	rv := indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return rv.Len(), nil
	case reflect.Invalid:
		return 0, nil
	}
	return 0, fmt.Errorf("invalid argument for len: %s", typeName(v))
}

var errorType = reflect.TypeFor[error]()

func callValue(fn any, args []any, name string) (any, error) {
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func {
		return nil, berrors.New("BIND-0008", map[string]any{"Type": typeName(fn)})
	}
	if rv.IsNil() {
		return nil, berrors.New("BIND-0008", map[string]any{"Type": "nil " + rv.Type().String()})
	}

	t := rv.Type()
	want := t.NumIn()
	if (t.IsVariadic() && len(args) < want-1) || (!t.IsVariadic() && len(args) != want) {
		wantStr := strconv.Itoa(want)
		if t.IsVariadic() {
			wantStr = strconv.Itoa(want-1) + "+"
		}
		return nil, berrors.New("BIND-0009", map[string]any{"Function": name, "Got": len(args), "Want": wantStr})
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		pt := paramType(t, i)
		v, ok := convertTo(a, pt)
		if !ok {
			return nil, berrors.New("BIND-0003", map[string]any{
				"Expr":   name,
				"Reason": fmt.Sprintf("cannot use %s as %s in argument %d", typeName(a), pt, i+1),
			})
		}
		in[i] = v
	}

	out := rv.Call(in)
	if n := len(out); n > 0 && t.Out(n-1) == errorType {
		if err, _ := out[n-1].Interface().(error); err != nil {
			return nil, berrors.New("BIND-0003", map[string]any{"Expr": name, "Reason": err.Error()})
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}
	return nil, berrors.New("BIND-0003", map[string]any{"Expr": name, "Reason": "call returns more than one value"})
}

func paramType(t reflect.Type, i int) reflect.Type {
	if t.IsVariadic() && i >= t.NumIn()-1 {
		return t.In(t.NumIn() - 1).Elem()
	}
	return t.In(i)
}

// convertTo converts v to t where Go would allow it implicitly, or between
// numeric and string kinds.
func convertTo(v any, t reflect.Type) (reflect.Value, bool) {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), true
		}
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, true
	}
	if isNumericKind(rv.Kind()) && isNumericKind(t.Kind()) {
		return rv.Convert(t), true
	}
	if rv.Kind() == reflect.String && t.Kind() == reflect.String {
		return rv.Convert(t), true
	}
	return reflect.Value{}, false
}

func equal(left, right any) bool {
	if left == nil || right == nil {
		return isNil(left) && isNil(right)
	}
	if isNumber(left) && isNumber(right) {
		if isInteger(left) && isInteger(right) {
			l, _ := toInt64(left)
			r, _ := toInt64(right)
			return l == r
		}
		l, _ := toFloat64(left)
		r, _ := toFloat64(right)
		return l == r
	}
	if ls, ok := toString(left); ok {
		rs, ok := toString(right)
		return ok && ls == rs
	}
	lt, rt := reflect.TypeOf(left), reflect.TypeOf(right)
	if lt == rt && lt.Comparable() {
		return left == right
	}
	return reflect.DeepEqual(left, right)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func isNumericKind(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uint64) || k == reflect.Float32 || k == reflect.Float64
}

func isInteger(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k >= reflect.Int && k <= reflect.Uint64
}

func isNumber(v any) bool {
	return v != nil && isNumericKind(reflect.TypeOf(v).Kind())
}

func toInt64(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func toString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func intResult(i int64) any {
	if i >= math.MinInt && i <= math.MaxInt {
		return int(i)
	}
	return i
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
