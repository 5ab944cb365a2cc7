package expr

import "sort"

// Scope resolves identifiers during evaluation.
type Scope interface {
	Lookup(name string) (any, bool)
}

// Vars is a Scope backed by a map.
type Vars map[string]any

func (v Vars) Lookup(name string) (any, bool) {
	val, ok := v[name]
	return val, ok
}

// Names returns the bound names, sorted. Used for "did you mean" hints.
func (v Vars) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type chain []Scope

// Chain looks names up in each scope in turn.
func Chain(scopes ...Scope) Scope {
	return chain(scopes)
}

func (c chain) Lookup(name string) (any, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

func (c chain) Names() []string {
	seen := map[string]bool{}
	var names []string
	for _, s := range c {
		n, ok := s.(interface{ Names() []string })
		if !ok {
			continue
		}
		for _, name := range n.Names() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func scopeNames(s Scope) []string {
	if n, ok := s.(interface{ Names() []string }); ok {
		return n.Names()
	}
	return nil
}
