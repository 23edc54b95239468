package ui

import (
	"fmt"

	"github.com/goliatone/go-wolf/pkg/data"
	"github.com/goliatone/go-wolf/pkg/dom"
	"github.com/goliatone/go-wolf/pkg/template"
)

// Ext carries the per-instantiation extensions of a root template. Children
// are instantiated with a cleared Ext holding only their parent.
type Ext struct {
	// Parent is the node the result will be appended to. Context resolution
	// uses it until the nodes are attached.
	Parent      *dom.Node
	ContextPath string
	Controller  Controller
	Model       *data.Model
	// OnInit runs once the element API is attached, before children exist.
	OnInit func(el *Element) error
	// OnRender runs after the subtree is complete.
	OnRender func(el *Element, nodes []*dom.Node) error
}

// ConstructHook is stored in a template's Extra under ExtraConstruct and runs
// after the element's children were instantiated.
type ConstructHook func(el *Element) error

// ExtraConstruct is the Extra key of a template construct hook.
const ExtraConstruct = "construct"

// Instantiate builds the live nodes for t. The same template may be
// instantiated any number of times; every call produces an independent
// subtree.
func (e *Engine) Instantiate(t *template.Template, ext Ext) ([]*dom.Node, error) {
	if e.initErr != nil {
		return nil, e.initErr
	}
	if t == nil {
		return nil, nil
	}
	switch t.Kind {
	case template.KindText:
		node, err := e.instantiateText(t, ext)
		if err != nil {
			return nil, err
		}
		return []*dom.Node{node}, nil
	case template.KindPseudo:
		desc, ok := e.registry.Descriptor(t.Name)
		if !ok {
			return nil, template.Errorf(t.Tag(), "", template.ErrUnknownElement, "")
		}
		return desc.Construct(e, t, ext)
	case template.KindElement, template.KindApp:
		node, err := e.instantiateElement(t, ext)
		if err != nil {
			return nil, err
		}
		return []*dom.Node{node}, nil
	default:
		return nil, fmt.Errorf("ui: unsupported template kind %s", t.Kind)
	}
}

// InstantiateAll instantiates a template list with the same extensions.
func (e *Engine) InstantiateAll(list []*template.Template, ext Ext) ([]*dom.Node, error) {
	var out []*dom.Node
	for _, t := range list {
		nodes, err := e.Instantiate(t, ext)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

// Mount instantiates t, appends the result to parent and drains the task
// queue so deferred setup such as repeaters completes.
func (e *Engine) Mount(parent *dom.Node, t *template.Template, ext Ext) ([]*dom.Node, error) {
	if parent == nil {
		return nil, fmt.Errorf("ui: mount requires a parent node")
	}
	ext.Parent = parent
	nodes, err := e.Instantiate(t, ext)
	if err != nil {
		return nil, err
	}
	for _, node := range nodes {
		parent.AppendChild(node)
	}
	return nodes, e.Drain()
}

// MountAll mounts every template of a list.
func (e *Engine) MountAll(parent *dom.Node, list []*template.Template, ext Ext) ([]*dom.Node, error) {
	var out []*dom.Node
	for _, t := range list {
		nodes, err := e.Mount(parent, t, ext)
		if err != nil {
			return out, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

func (e *Engine) instantiateText(t *template.Template, ext Ext) (*dom.Node, error) {
	node := dom.CreateText("")
	el := e.attach(node, t, ext)
	if ext.OnInit != nil {
		if err := ext.OnInit(el); err != nil {
			return nil, err
		}
	}
	if t.Value.IsBinding() {
		if _, err := t.Value.Binding.BindText(el.Model(), e, node); err != nil {
			return nil, fmt.Errorf("ui: bind text %q: %w", t.Value.String(), err)
		}
	} else {
		node.SetNodeValue(t.Value.Literal)
	}
	if ext.OnRender != nil {
		if err := ext.OnRender(el, []*dom.Node{node}); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (e *Engine) instantiateElement(t *template.Template, ext Ext) (*dom.Node, error) {
	tag := t.Name
	if t.Kind == template.KindApp && tag == "" {
		tag = "div"
	}
	node := dom.CreateElement(tag)
	el := e.attach(node, t, ext)

	switch {
	case ext.Controller != nil:
		el.controller = ext.Controller
	case t.ControllerRef != "":
		ctrl, err := e.registry.Controller(t.ControllerRef)
		if err != nil {
			return nil, err
		}
		el.controller = ctrl
	}

	// Global attributes run first so a context path applies to the
	// element's own bindings.
	for _, attr := range t.Reserved {
		global, ok := e.registry.Attribute(attr.Name)
		if !ok {
			return nil, template.Errorf(tag, template.PseudoPrefix+attr.Name, template.ErrUnknownAttribute, "")
		}
		if global.Apply == nil {
			continue
		}
		if err := global.Apply(el, attr.Value); err != nil {
			return nil, fmt.Errorf("ui: <%s> attribute %q: %w", tag, template.PseudoPrefix+attr.Name, err)
		}
	}

	model := el.Model()
	for _, attr := range t.Attributes {
		if !attr.Value.IsBinding() {
			node.SetAttribute(attr.Name, attr.Value.Literal)
			continue
		}
		if _, err := attr.Value.Binding.BindAttribute(model, e, node, attr.Name); err != nil {
			return nil, fmt.Errorf("ui: bind <%s> attribute %q: %w", tag, attr.Name, err)
		}
		if writesBack(tag, attr.Name) && attr.Value.Binding.Single() {
			e.listenWriteBack(el, attr.Name, attr.Value.Binding)
		}
	}

	for _, evt := range t.Events {
		method := evt.Handler
		node.AddEventListener(evt.Name, func(ev *dom.Event) error {
			return invoke(el, method, ev)
		})
	}

	if ext.OnInit != nil {
		if err := ext.OnInit(el); err != nil {
			return nil, err
		}
	}

	for _, child := range t.Children {
		nodes, err := e.Instantiate(child, Ext{Parent: node})
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			node.AppendChild(n)
		}
	}

	if hook := constructHook(t); hook != nil {
		if err := hook(el); err != nil {
			return nil, err
		}
	}
	if ext.OnRender != nil {
		if err := ext.OnRender(el, []*dom.Node{node}); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func constructHook(t *template.Template) ConstructHook {
	switch hook := t.Extra[ExtraConstruct].(type) {
	case ConstructHook:
		return hook
	case func(*Element) error:
		return hook
	}
	return nil
}

func writesBack(tag, attr string) bool {
	switch tag {
	case "input", "textarea", "select":
		return attr == "value" || attr == "checked"
	}
	return false
}

// listenWriteBack stores form values into the model when the node raises
// "change". The event detail wins over the node attribute.
func (e *Engine) listenWriteBack(el *Element, attr string, b *data.Binding) {
	node := el.node
	node.AddEventListener("change", func(ev *dom.Event) error {
		if ev.Target != node {
			return nil
		}
		value := ev.Detail
		if value == nil {
			if attr == "checked" {
				value = node.HasAttribute("checked")
			} else {
				value = node.Attr(attr)
			}
		}
		return b.WriteBack(el.Model(), e, node, value)
	})
}
