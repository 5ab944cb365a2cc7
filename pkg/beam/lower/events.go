package lower

import (
	"sort"
	"strings"

	"github.com/sambeau/beam/pkg/beam/ast"
	berrors "github.com/sambeau/beam/pkg/beam/errors"
)

// eventProps maps a DOM event name to the handler prop the client runtime binds.
var eventProps = map[string]string{
	// window and document
	"afterprint":       "onAfterPrint",
	"beforeprint":      "onBeforePrint",
	"beforeunload":     "onBeforeUnload",
	"beforematch":      "onBeforeMatch",
	"change":           "onChange",
	"fullscreenchange": "onFullScreenChange",
	"fullscreenerror":  "onFullScreenError",
	"load":             "onLoad",
	"scroll":           "onScroll",
	"scrollend":        "onScrollEnd",
	"offline":          "onOffline",
	"online":           "onOnline",
	"resize":           "onResize",

	"animationcancel":    "onAnimationCancel",
	"animationend":       "onAnimationEnd",
	"animationiteration": "onAnimationIteration",
	"animationstart":     "onAnimationStart",

	"copy":  "onCopy",
	"cut":   "onCut",
	"paste": "onPaste",

	"compositionend":    "onCompositionEnd",
	"compositionstart":  "onCompositionStart",
	"compositionupdate": "onCompositionUpdate",

	"blur":     "onBlur",
	"focus":    "onFocus",
	"focusin":  "onFocusIn",
	"focusout": "onFocusOut",

	"input":       "onInput",
	"beforeinput": "onBeforeInput",
	"keydown":     "onKeyDown",
	"keyup":       "onKeyUp",

	// mouse
	"auxclick":    "onAuxClick",
	"click":       "onClick",
	"contextmenu": "onContextMenu",
	"dblclick":    "onDblClick",
	"mousedown":   "onMouseDown",
	"mouseenter":  "onMouseEnter",
	"mouseleave":  "onMouseLeave",
	"mousemove":   "onMouseMove",
	"mouseout":    "onMouseOut",
	"mouseover":   "onMouseOver",
	"mouseup":     "onMouseUp",
	"wheel":       "onWheel",

	// pointer
	"gotpointercapture":  "onGotPointerCapture",
	"lostpointercapture": "onLostPointerCapture",
	"pointercancel":      "onPointerCancel",
	"pointerdown":        "onPointerDown",
	"pointerenter":       "onPointerEnter",
	"pointerleave":       "onPointerLeave",
	"pointermove":        "onPointerMove",
	"pointerout":         "onPointerOut",
	"pointerover":        "onPointerOver",
	"pointerrawupdate":   "onPointerRawUpdate",
	"pointerup":          "onPointerUp",

	"touchcancel": "onTouchCancel",
	"touchend":    "onTouchEnd",
	"touchmove":   "onTouchMove",
	"touchstart":  "onTouchStart",

	"transitioncancel": "onTransitionCancel",
	"transitionend":    "onTransitionEnd",
	"transitionrun":    "onTransitionRun",
	"transitionstart":  "onTransitionStart",
}

// EventProp returns the handler prop for an attribute such as onclick or
// onKeyDown. The "on" prefix is optional and case is ignored.
func EventProp(attr string) (string, bool) {
	event := strings.ToLower(attr)
	event = strings.TrimPrefix(event, "on")
	prop, ok := eventProps[event]
	return prop, ok
}

// KnownEvents returns the supported event names, sorted.
func KnownEvents() []string {
	names := make([]string, 0, len(eventProps))
	for name := range eventProps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isEventAttribute(name ast.HTMLIdent) bool {
	return len(name.Parts) == 1 && len(name.Parts[0]) > 2 && strings.HasPrefix(name.Parts[0], "on")
}

func checkEventBinding(attr *ast.Attribute) error {
	pos := attr.Pos()
	name := attr.Name.String()
	if _, ok := attr.Value.(*ast.Expression); !ok {
		return berrors.NewWithPosition("LOWER-0003", pos.Line, pos.Column, map[string]any{"Name": name})
	}
	event := strings.ToLower(strings.TrimPrefix(name, "on"))
	if _, ok := eventProps[event]; !ok {
		return berrors.NewWithPosition("LOWER-0002", pos.Line, pos.Column, map[string]any{"Event": event}).
			WithSuggestion(event, KnownEvents())
	}
	return nil
}
