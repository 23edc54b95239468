package template

import (
	"fmt"

	"github.com/goliatone/go-wolf/pkg/data"
)

// PseudoPrefix marks element and attribute names handled by the engine
// instead of being rendered verbatim.
const PseudoPrefix = "wolf:"

// Kind classifies a Template node.
type Kind int

const (
	// KindText is a text node; Value holds its literal or binding.
	KindText Kind = iota
	// KindElement is a plain markup element.
	KindElement
	// KindPseudo is an engine element resolved through the element registry.
	KindPseudo
	// KindApp is the root boundary of an application.
	KindApp
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindElement:
		return "element"
	case KindPseudo:
		return "pseudo"
	case KindApp:
		return "app"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is either a literal string or a compiled binding.
type Value struct {
	Literal string
	Binding *data.Binding
}

// Literal wraps a plain string.
func Literal(text string) Value { return Value{Literal: text} }

// Bound wraps a compiled binding.
func Bound(b *data.Binding) Value { return Value{Binding: b} }

// IsBinding reports whether the value is bound.
func (v Value) IsBinding() bool { return v.Binding != nil }

// String returns the literal text or the binding source.
func (v Value) String() string {
	if v.Binding != nil {
		return v.Binding.Source()
	}
	return v.Literal
}

// Attribute is a named Value. Attribute order follows the markup.
type Attribute struct {
	Name  string
	Value Value
}

// Event maps a DOM event name to the controller method handling it.
type Event struct {
	Name    string
	Handler string
}

// Template describes one markup node prior to instantiation. Templates are
// built by the Reader and treated as read-only afterwards; only element init
// hooks and global attribute rewrites touch them, and only while reading.
type Template struct {
	Kind Kind
	// Name is the lowercased tag for elements and the unprefixed name for
	// pseudo elements.
	Name          string
	Attributes    []Attribute
	Reserved      []Attribute
	Events        []Event
	Children      []*Template
	Value         Value
	ControllerRef string
	// Extra carries element-specific data attached by init hooks.
	Extra map[string]any
}

// Text builds a text Template.
func Text(v Value) *Template {
	return &Template{Kind: KindText, Value: v}
}

// Element builds a plain element Template.
func Element(name string, children ...*Template) *Template {
	return &Template{Kind: KindElement, Name: name, Children: children}
}

// Pseudo builds a pseudo element Template.
func Pseudo(name string, children ...*Template) *Template {
	return &Template{Kind: KindPseudo, Name: name, Children: children}
}

// Tag returns the markup tag of the template, including the pseudo prefix.
func (t *Template) Tag() string {
	switch t.Kind {
	case KindText:
		return "#text"
	case KindApp:
		return "#app"
	case KindPseudo:
		return PseudoPrefix + t.Name
	default:
		return t.Name
	}
}

// Attr returns a plain attribute by name.
func (t *Template) Attr(name string) (Value, bool) {
	return lookup(t.Attributes, name)
}

// SetAttr sets a plain attribute, keeping its position when it exists.
func (t *Template) SetAttr(name string, v Value) {
	t.Attributes = upsert(t.Attributes, name, v)
}

// ReservedAttr returns a `wolf:` attribute (or a pseudo element attribute) by
// name, without the prefix.
func (t *Template) ReservedAttr(name string) (Value, bool) {
	return lookup(t.Reserved, name)
}

// SetReserved sets a reserved attribute.
func (t *Template) SetReserved(name string, v Value) {
	t.Reserved = upsert(t.Reserved, name, v)
}

// DeleteReserved drops a reserved attribute.
func (t *Template) DeleteReserved(name string) {
	for i, attr := range t.Reserved {
		if attr.Name == name {
			t.Reserved = append(t.Reserved[:i:i], t.Reserved[i+1:]...)
			return
		}
	}
}

// SetExtra attaches element-specific data.
func (t *Template) SetExtra(key string, value any) {
	if t.Extra == nil {
		t.Extra = make(map[string]any)
	}
	t.Extra[key] = value
}

// Clone deep copies the template tree. Bindings are immutable and shared
// between the copies; Extra values are copied shallowly.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	out := *t
	out.Attributes = append([]Attribute(nil), t.Attributes...)
	out.Reserved = append([]Attribute(nil), t.Reserved...)
	out.Events = append([]Event(nil), t.Events...)
	if t.Children != nil {
		out.Children = make([]*Template, len(t.Children))
		for i, child := range t.Children {
			out.Children[i] = child.Clone()
		}
	}
	if t.Extra != nil {
		out.Extra = make(map[string]any, len(t.Extra))
		for k, v := range t.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}

// CloneAll clones every template of a list.
func CloneAll(list []*Template) []*Template {
	if list == nil {
		return nil
	}
	out := make([]*Template, len(list))
	for i, t := range list {
		out[i] = t.Clone()
	}
	return out
}

// Walk visits t and its descendants depth-first.
func (t *Template) Walk(fn func(*Template)) {
	if t == nil {
		return
	}
	fn(t)
	for _, child := range t.Children {
		child.Walk(fn)
	}
}

func lookup(attrs []Attribute, name string) (Value, bool) {
	for _, attr := range attrs {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return Value{}, false
}

func upsert(attrs []Attribute, name string, v Value) []Attribute {
	for i, attr := range attrs {
		if attr.Name == name {
			attrs[i].Value = v
			return attrs
		}
	}
	return append(attrs, Attribute{Name: name, Value: v})
}
