package beam

import (
	"reflect"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"

	"github.com/sambeau/beam/pkg/beam/ast"
	berrors "github.com/sambeau/beam/pkg/beam/errors"
	"github.com/sambeau/beam/pkg/beam/lower"
)

// Component is a reusable piece of markup. The value holds the props; Render
// must be deterministic and panics on failure.
type Component interface {
	Render() UI
}

func renderComponent(c Component) UI {
	return c.Render()
}

var uiType = reflect.TypeFor[UI]()

// RegisterOption configures a registered component.
type RegisterOption func(*componentType)

// Island renders the component as a hydration boundary: an empty container
// carrying the component name and its props as JSON, for a client runtime to
// take over.
func Island() RegisterOption {
	return func(ct *componentType) { ct.island = true }
}

// Registry holds the components available to runtime-compiled templates.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*componentType
}

func NewRegistry() *Registry {
	return &Registry{types: map[string]*componentType{}}
}

// DefaultRegistry is used by templates compiled without WithRegistry.
var DefaultRegistry = NewRegistry()

// Register adds a component to DefaultRegistry.
func Register(name string, proto Component, opts ...RegisterOption) error {
	return DefaultRegistry.Register(name, proto, opts...)
}

// Register adds a component under name, which must start with an uppercase
// letter. proto is a struct, or a pointer to one, whose exported fields are the
// props. An attribute sets the field named by its `beam:"name"` tag, or the
// field whose kebab-case name matches. A UI field named Children, or tagged
// `beam:"children"`, receives the element's content. A blank field tagged
// `beam:"island"` has the same effect as the Island option.
func (r *Registry) Register(name string, proto Component, opts ...RegisterOption) error {
	ct, err := newComponentType(name, proto)
	if err != nil {
		return err
	}
	for _, opt := range opts {
		opt(ct)
	}
	if ct.island && ct.children != nil {
		return registerError(name, "an island cannot take children")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[name]; exists {
		return registerError(name, "already registered")
	}
	r.types[name] = ct
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, proto Component, opts ...RegisterOption) {
	if err := r.Register(name, proto, opts...); err != nil {
		panic(err)
	}
}

// Names returns the registered component names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ComponentNames() []string { return r.Names() }

func (r *Registry) LookupComponent(name string) (lower.ComponentInfo, bool) {
	ct, ok := r.lookup(name)
	if !ok {
		return nil, false
	}
	return ct, true
}

func (r *Registry) lookup(name string) (*componentType, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.types[name]
	return ct, ok
}

func registerError(name, reason string) error {
	return berrors.New("COMP-0004", map[string]any{"Name": name, "Reason": reason})
}

type propField struct {
	field string
	index []int
	typ   reflect.Type
}

// componentType is the reflected shape of a registered component.
type componentType struct {
	name     string
	typ      reflect.Type
	ptr      bool // Render has a pointer receiver
	props    map[string]propField
	attrs    []string
	children []int
	island   bool
}

func newComponentType(name string, proto Component) (*componentType, error) {
	if !(ast.HTMLIdent{Parts: []string{name}}).IsComponentName() {
		return nil, registerError(name, "name must start with an uppercase letter")
	}
	if proto == nil {
		return nil, registerError(name, "nil prototype")
	}

	t := reflect.TypeOf(proto)
	ptr := false
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		ptr = !t.Implements(reflect.TypeFor[Component]())
	}
	if t.Kind() != reflect.Struct {
		return nil, registerError(name, "props must be a struct, got "+t.String())
	}

	ct := &componentType{name: name, typ: t, ptr: ptr, props: map[string]propField{}}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous {
			continue
		}
		attr, role := PropBinding(sf.Name, sf.Tag.Get("beam"))
		switch role {
		case PropSkip:
			continue
		case PropIsland:
			ct.island = true
			continue
		case PropChildren:
			if sf.Type != uiType {
				return nil, registerError(name, "children field "+sf.Name+" must be a beam.UI")
			}
			ct.children = sf.Index
			continue
		}
		if _, dup := ct.props[attr]; dup {
			return nil, registerError(name, "two fields use attribute "+attr)
		}
		ct.props[attr] = propField{field: sf.Name, index: sf.Index, typ: sf.Type}
		ct.attrs = append(ct.attrs, attr)
	}
	sort.Strings(ct.attrs)
	return ct, nil
}

func (ct *componentType) prop(attr string) (propField, bool) {
	for _, key := range PropKeys(attr) {
		if p, ok := ct.props[key]; ok {
			return p, true
		}
	}
	return propField{}, false
}

// Field implements lower.ComponentInfo.
func (ct *componentType) Field(attr string) (string, bool) {
	p, ok := ct.prop(attr)
	return p.field, ok
}

func (ct *componentType) PropNames() []string  { return ct.attrs }
func (ct *componentType) AcceptsChildren() bool { return ct.children != nil }
func (ct *componentType) IsIsland() bool        { return ct.island }

// set converts v to the prop's type and stores it in target. Literal values
// are converted weakly, so "3" fills an int and 3 fills a string.
func (ct *componentType) set(target reflect.Value, attr string, v any, weak bool) error {
	p, ok := ct.prop(attr)
	if !ok {
		return berrors.New("COMP-0002", map[string]any{"Prop": attr, "Name": ct.name}).
			WithSuggestion(attr, ct.attrs)
	}
	rv, err := convertProp(v, p.typ, weak)
	if err != nil {
		return berrors.New("COMP-0005", map[string]any{"Prop": attr, "Name": ct.name, "GoError": err.Error()})
	}
	target.FieldByIndex(p.index).Set(rv)
	return nil
}

func (ct *componentType) setChildren(target reflect.Value, children UI) {
	if ct.children != nil {
		target.FieldByIndex(ct.children).Set(reflect.ValueOf(children))
	}
}

// render invokes the component on a props value of type ct.typ.
func (ct *componentType) render(props reflect.Value) UI {
	if ct.island {
		return islandUI(ct.name, props.Interface())
	}
	if ct.ptr {
		p := reflect.New(ct.typ)
		p.Elem().Set(props)
		return p.Interface().(Component).Render()
	}
	return props.Interface().(Component).Render()
}

// uiDecodeHook turns text and components into UI when a prop is a UI.
func uiDecodeHook(from, to reflect.Type, data any) (any, error) {
	if to != uiType || from == uiType {
		return data, nil
	}
	return ToChildren(data, true), nil
}

func convertProp(v any, t reflect.Type, weak bool) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if t == uiType {
		return reflect.ValueOf(ToChildren(v, true)), nil
	}

	out := reflect.New(t)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out.Interface(),
		WeaklyTypedInput: weak,
		DecodeHook:       uiDecodeHook,
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := dec.Decode(v); err != nil {
		return reflect.Value{}, err
	}
	return out.Elem(), nil
}
