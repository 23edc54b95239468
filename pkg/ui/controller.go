package ui

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-wolf/pkg/dom"
)

// Handler reacts to an event raised on el.
type Handler func(el *Element, evt *dom.Event) error

// Controller supplies event handlers for a subtree. Event listeners look the
// controller up when the event fires, so replacing a controller takes effect
// immediately.
type Controller interface {
	Method(name string) (Handler, bool)
}

// Initializer is implemented by controllers that want a hook once the
// element they control is ready.
type Initializer interface {
	Init(el *Element) error
}

// Methods is a Controller backed by a map of handlers.
type Methods map[string]Handler

// Method returns the named handler.
func (m Methods) Method(name string) (Handler, bool) {
	h, ok := m[name]
	return h, ok && h != nil
}

// Names lists the handler names in sorted order.
func (m Methods) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ControllerFunc adapts a lookup function into a Controller.
type ControllerFunc func(name string) (Handler, bool)

// Method calls the wrapped function.
func (fn ControllerFunc) Method(name string) (Handler, bool) {
	return fn(name)
}

// invoke runs the named method of the controller active for el.
func invoke(el *Element, method string, evt *dom.Event) error {
	ctrl := el.Controller()
	if ctrl == nil {
		return fmt.Errorf("%w: event %q on <%s> has no controller", ErrControllerNotFound, evtType(evt), el.node.Tag)
	}
	h, ok := ctrl.Method(method)
	if !ok {
		return fmt.Errorf("%w: event %q method %q", ErrMethodNotFound, evtType(evt), method)
	}
	return h(el, evt)
}

func evtType(evt *dom.Event) string {
	if evt == nil {
		return ""
	}
	return evt.Type
}
