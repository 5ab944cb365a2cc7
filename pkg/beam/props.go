package beam

import (
	"go/token"

	"github.com/iancoleman/strcase"
)

// PropRole says what a struct field of a component's props is for.
type PropRole int

const (
	PropSkip     PropRole = iota // not settable from markup
	PropAttr                     // set by the attribute PropBinding returns
	PropChildren                 // receives the element's content, must be a UI
	PropIsland                   // a blank field tagged `beam:"island"` marks the component as an island
)

// PropBinding maps a direct field of a props struct, by its Go name and `beam`
// tag, to the role it plays. Runtime registration and generated code both bind
// attributes through it.
func PropBinding(name, tag string) (string, PropRole) {
	if name == "_" && tag == "island" {
		return "", PropIsland
	}
	if !token.IsExported(name) || tag == "-" {
		return "", PropSkip
	}
	if tag == "children" || (tag == "" && name == "Children") {
		return "", PropChildren
	}
	if tag != "" {
		return tag, PropAttr
	}
	return strcase.ToKebab(name), PropAttr
}

// PropKeys returns the keys an attribute name is looked up under, in order:
// as written, then kebab-cased, so headingIds finds heading-ids.
func PropKeys(attr string) []string {
	if kebab := strcase.ToKebab(attr); kebab != attr {
		return []string{attr, kebab}
	}
	return []string{attr}
}

// RenderIsland renders the hydration container for an island component. It is
// what generated code calls in place of the component's Render.
func RenderIsland(name string, props any) UI {
	return islandUI(name, props)
}
