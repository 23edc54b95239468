package data

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-wolf/pkg/dom"
)

// Part is one segment of a binding: either literal text or a bound path.
type Part struct {
	Bound bool
	Text  string
	path  Path
}

// Path returns the compiled path of a bound part.
func (p Part) Path() Path { return p.path }

// Binding is a compiled expression of literal text interleaved with `{path}`
// segments. Bindings are immutable and may be shared between templates.
type Binding struct {
	source string
	parts  []Part
}

// ParseBinding compiles text. Unbalanced braces fail with
// ErrUnterminatedBinding; empty `{}` segments are ignored.
func ParseBinding(text string) (*Binding, error) {
	var (
		parts  []Part
		buf    strings.Builder
		inside bool
		opened int
	)
	flushLiteral := func() {
		if buf.Len() > 0 {
			parts = append(parts, Part{Text: buf.String()})
			buf.Reset()
		}
	}

	for i, ch := range text {
		switch {
		case inside && ch == '}':
			inside = false
			if raw := buf.String(); raw != "" {
				path, err := CompilePath(raw)
				if err != nil {
					return nil, fmt.Errorf("data: binding %q: %w", text, err)
				}
				parts = append(parts, Part{Bound: true, Text: raw, path: path})
			}
			buf.Reset()
		case inside && ch == '{':
			return nil, fmt.Errorf("%w: nested '{' at offset %d in %q", ErrUnterminatedBinding, i, text)
		case !inside && ch == '{':
			flushLiteral()
			inside = true
			opened = i
		case !inside && ch == '}':
			return nil, fmt.Errorf("%w: unexpected '}' at offset %d in %q", ErrUnterminatedBinding, i, text)
		default:
			buf.WriteRune(ch)
		}
	}
	if inside {
		return nil, fmt.Errorf("%w: '{' at offset %d in %q is never closed", ErrUnterminatedBinding, opened, text)
	}
	flushLiteral()
	return &Binding{source: text, parts: parts}, nil
}

// MustParseBinding panics when text does not compile.
func MustParseBinding(text string) *Binding {
	b, err := ParseBinding(text)
	if err != nil {
		panic(err)
	}
	return b
}

// Source returns the original text.
func (b *Binding) Source() string { return b.source }

// String implements fmt.Stringer.
func (b *Binding) String() string { return b.source }

// Parts returns a copy of the compiled parts.
func (b *Binding) Parts() []Part {
	return append([]Part(nil), b.parts...)
}

// Single reports whether the binding is exactly one bound path with no
// literal text around it.
func (b *Binding) Single() bool {
	return len(b.parts) == 1 && b.parts[0].Bound
}

// Read evaluates the binding. Bound parts are resolved against the node's
// context path; literal and resolved parts are concatenated as strings. Nil
// parts contribute nothing, and a binding whose parts are all nil reads as
// nil. A single bound part returns its raw value.
func (b *Binding) Read(m *Model, ctx Context) (any, error) {
	var value any
	for _, part := range b.parts {
		var v any
		if part.Bound {
			path, err := ctx.resolve(part.Text)
			if err != nil {
				return nil, err
			}
			v, err = m.GetProperty(path, ctx)
			if err != nil {
				return nil, err
			}
		} else {
			v = part.Text
		}
		switch {
		case value == nil:
			value = v
		case v != nil:
			value = Stringify(value) + Stringify(v)
		}
	}
	return value, nil
}

// ReadString evaluates the binding and coerces nil to an empty string.
func (b *Binding) ReadString(m *Model, ctx Context) (string, error) {
	value, err := b.Read(m, ctx)
	if err != nil {
		return "", err
	}
	return Stringify(value), nil
}

// RegistrationPaths lists the model paths the executor is registered under:
// one per bound part, resolved against the context and cut before the first
// processor so refreshing a collection refreshes views computed over it.
func (b *Binding) RegistrationPaths(ctx Context) ([]string, error) {
	var paths []string
	for _, part := range b.parts {
		if !part.Bound {
			continue
		}
		path, err := ctx.resolve(part.path.Prefix())
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Register adds exec under every registration path and fires it once.
func (b *Binding) Register(m *Model, ctx Context, exec *Executor) error {
	paths, err := b.RegistrationPaths(ctx)
	if err != nil {
		return err
	}
	for _, path := range paths {
		m.AddExecutor(path, exec)
	}
	if exec.Write == nil {
		return nil
	}
	return exec.Write()
}

// ReadFunc evaluates a binding for the node it is attached to.
type ReadFunc func() (any, error)

// BindText keeps the text content of node in sync with the binding.
func (b *Binding) BindText(m *Model, scope Scope, node *dom.Node) (*Executor, error) {
	ctx := Context{Node: node, Model: m, Scope: scope}
	exec := &Executor{
		Node: node,
		Write: func() error {
			text, err := b.ReadString(m, ctx)
			if err != nil {
				return err
			}
			node.SetNodeValue(text)
			return nil
		},
	}
	return exec, b.Register(m, ctx, exec)
}

// BindAttribute keeps an attribute in sync with the binding. Nil and false
// remove the attribute; true renders it empty-valued.
func (b *Binding) BindAttribute(m *Model, scope Scope, node *dom.Node, attr string) (*Executor, error) {
	ctx := Context{Node: node, Model: m, Scope: scope}
	exec := &Executor{
		Node: node,
		Write: func() error {
			value, err := b.Read(m, ctx)
			if err != nil {
				return err
			}
			ApplyAttribute(node, attr, value)
			return nil
		},
		Read: func() (any, error) {
			value, ok := node.GetAttribute(attr)
			if !ok {
				return nil, nil
			}
			return value, nil
		},
	}
	return exec, b.Register(m, ctx, exec)
}

// ApplyAttribute writes a resolved binding value onto an attribute.
func ApplyAttribute(node *dom.Node, attr string, value any) {
	switch v := value.(type) {
	case nil:
		node.RemoveAttribute(attr)
	case bool:
		if v {
			node.SetAttribute(attr, "")
		} else {
			node.RemoveAttribute(attr)
		}
	default:
		node.SetAttribute(attr, Stringify(v))
	}
}

// BindExecutor attaches host-defined behaviour. write receives a ReadFunc
// evaluating the binding for node; read is the optional write-back hook.
func (b *Binding) BindExecutor(m *Model, scope Scope, node *dom.Node, write func(read ReadFunc) error, read func() (any, error)) (*Executor, error) {
	ctx := Context{Node: node, Model: m, Scope: scope}
	readFn := func() (any, error) { return b.Read(m, ctx) }
	exec := &Executor{Node: node, Read: read}
	if write != nil {
		exec.Write = func() error { return write(readFn) }
	}
	return exec, b.Register(m, ctx, exec)
}

// WriteBack stores value at the binding's path. Only single bound paths
// accept write-back.
func (b *Binding) WriteBack(m *Model, scope Scope, node *dom.Node, value any) error {
	if !b.Single() {
		return fmt.Errorf("data: binding %q does not support write-back", b.source)
	}
	ctx := Context{Node: node, Model: m, Scope: scope}
	path, err := ctx.resolve(b.parts[0].Text)
	if err != nil {
		return err
	}
	return m.SetProperty(path, value, ctx)
}

// RepeatFunc instantiates one repetition for the collection entry addressed
// by contextPath and returns the produced nodes.
type RepeatFunc func(parent *dom.Node, contextPath string) ([]*dom.Node, error)

// BindRepeater mounts one repetition per collection entry between the anchor
// sibling's previous position and sibling itself. Every write removes all
// previously inserted nodes and rebuilds the span from scratch; there is no
// keyed reconciliation, so large collections pay a full rebuild per change.
func (b *Binding) BindRepeater(m *Model, scope Scope, parent, sibling *dom.Node, fill RepeatFunc) (*Executor, error) {
	if !b.Single() || b.parts[0].path.HasProcessor() {
		return nil, fmt.Errorf("%w: %q", ErrComposedRepeater, b.source)
	}
	if parent == nil {
		return nil, fmt.Errorf("data: repeater %q has no parent node", b.source)
	}
	if fill == nil {
		return nil, fmt.Errorf("data: repeater %q has no fill function", b.source)
	}

	base := b.parts[0].Text
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	ctx := Context{Node: parent, Model: m, Scope: scope, Mode: "repeater"}

	var items []*dom.Node
	removeItems := func() {
		for _, item := range items {
			if item.Parent == parent {
				parent.RemoveChild(item)
			}
			DisposeNode(item)
		}
		items = nil
	}
	populate := func(collection any) error {
		removeItems()

		anchor := sibling
		if anchor != nil && anchor.Parent != parent {
			anchor = nil
		}
		_, err := Each(collection, func(key string, _ any) error {
			nodes, err := fill(parent, base+key)
			if err != nil {
				return err
			}
			for _, node := range nodes {
				items = append(items, node)
				parent.InsertBefore(node, anchor)
			}
			return nil
		})
		return err
	}

	exec := &Executor{
		Node: parent,
		Write: func() error {
			collection, err := b.Read(m, ctx)
			if err != nil {
				return err
			}
			return populate(collection)
		},
		cleanup: removeItems,
	}
	return exec, b.Register(m, ctx, exec)
}
