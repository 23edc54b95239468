package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-wolf/pkg/data"
	"github.com/goliatone/go-wolf/pkg/dom"
	"github.com/goliatone/go-wolf/pkg/template"
)

const eventAttrPrefix = "event:"

var reservedControlNames = map[string]struct{}{
	"init":      {},
	"postinit":  {},
	"ctor":      {},
	"construct": {},
	"ui":        {},
}

// Behavior is the Go side of a control: event methods, an optional render
// override and an init hook run once the control is on the page.
type Behavior struct {
	Methods Methods
	Render  func(api *ControlAPI) ([]*template.Template, error)
	Init    func(api *ControlAPI) error
}

// BehaviorFactory builds the behaviour of one control instance.
type BehaviorFactory func(api *ControlAPI) (*Behavior, error)

type controlAttr struct {
	name      string
	bindable  bool
	mandatory bool
	def       string
}

type hookSite struct {
	name string
	attr string
}

// controlDef is a parsed `<wolf:control>` definition.
type controlDef struct {
	id       string
	attrs    []controlAttr
	events   map[string]struct{}
	ui       map[string][]*template.Template
	behavior string
	hooks    map[*template.Template][]hookSite
}

// defineControl parses a control definition and registers the element it
// declares.
func (e *Engine) defineControl(t *template.Template) error {
	idValue, _ := t.ReservedAttr("id")
	id := strings.ToLower(strings.TrimSpace(idValue.Literal))
	if id == "" {
		return template.Errorf(t.Tag(), "id", ErrInvalidControl, "id is required")
	}
	if _, builtin := builtinElements[id]; builtin {
		return template.Errorf(t.Tag(), "id", ErrReservedName, "%q", id)
	}

	def := &controlDef{
		id:     id,
		events: make(map[string]struct{}),
		ui:     make(map[string][]*template.Template),
		hooks:  make(map[*template.Template][]hookSite),
	}
	invalid := func(format string, args ...any) error {
		return template.Errorf(t.Tag(), "", ErrInvalidControl, "control %q: "+format, append([]any{id}, args...)...)
	}
	declared := make(map[string]struct{})

	for _, c := range t.Children {
		if c.Kind == template.KindText {
			if strings.TrimSpace(c.Value.String()) == "" {
				continue
			}
			return invalid("unexpected text %q", c.Value.String())
		}
		if c.Kind != template.KindElement {
			return invalid("%s not allowed here", c.Tag())
		}
		switch c.Name {
		case "attr":
			name, ok := soleText(c)
			if !ok {
				return invalid("attribute name missing or malformed")
			}
			if _, reserved := reservedControlNames[strings.ToLower(name)]; reserved {
				return invalid("attribute %q is reserved", name)
			}
			if strings.Contains(name, ":") {
				return invalid("attribute %q can not have a namespace", name)
			}
			if _, dup := declared[name]; dup {
				return invalid("attribute %q already defined", name)
			}
			declared[name] = struct{}{}
			attr := controlAttr{name: name, bindable: true}
			if v, ok := c.Attr("bindable"); ok {
				attr.bindable = v.String() != "false"
			}
			if v, ok := c.Attr("mandatory"); ok {
				attr.mandatory = v.String() == "true"
			}
			if v, ok := c.Attr("default"); ok {
				attr.def = v.String()
			}
			def.attrs = append(def.attrs, attr)
		case "event":
			name, ok := soleText(c)
			if !ok {
				return invalid("event name missing or malformed")
			}
			if _, dup := def.events[name]; dup {
				return invalid("event %q already defined", name)
			}
			def.events[name] = struct{}{}
		case "ui":
			uid := ""
			if v, ok := c.Attr("id"); ok {
				uid = v.String()
			}
			if _, dup := def.ui[uid]; dup {
				return invalid("ui %q already defined", uid)
			}
			def.ui[uid] = c.Children
		case "script":
			name, _ := soleText(c)
			if name == "" {
				return invalid("script must name a behavior")
			}
			def.behavior = name
		default:
			return invalid("<%s> not allowed here", c.Name)
		}
	}

	for _, list := range def.ui {
		for _, root := range list {
			root.Walk(def.scanHooks)
		}
	}

	attrs := make(map[string]template.AttributeSpec, len(def.attrs)+len(def.events))
	for _, a := range def.attrs {
		attrs[a.name] = template.AttributeSpec{Bindable: a.bindable, Mandatory: a.mandatory, Default: a.def}
	}
	for name := range def.events {
		attrs[eventAttrPrefix+name] = template.AttributeSpec{}
	}
	e.registry.defineElement(id, ElementDescriptor{
		Attributes: attrs,
		Construct:  def.construct,
	})
	e.logger.Debug("control defined", "control", template.PseudoPrefix+id, "attributes", len(def.attrs), "events", len(def.events))
	return nil
}

func (d *controlDef) scanHooks(t *template.Template) {
	if t.Kind == template.KindText && !t.Value.IsBinding() {
		if name, ok := hookName(t.Value.Literal); ok {
			d.hooks[t] = append(d.hooks[t], hookSite{name: name})
		}
		return
	}
	for _, attr := range t.Attributes {
		if attr.Value.IsBinding() {
			continue
		}
		if name, ok := hookName(attr.Value.Literal); ok {
			d.hooks[t] = append(d.hooks[t], hookSite{name: name, attr: attr.Name})
		}
	}
}

func hookName(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || text[0] != '$' {
		return "", false
	}
	return text[1:], true
}

func (d *controlDef) declares(name string) bool {
	for _, a := range d.attrs {
		if a.name == name {
			return true
		}
	}
	return false
}

// defaultUI returns the unnamed ui section, or the first named one.
func (d *controlDef) defaultUI() []*template.Template {
	if list, ok := d.ui[""]; ok {
		return list
	}
	names := sortedKeys(d.ui)
	if len(names) == 0 {
		return nil
	}
	return d.ui[names[0]]
}

// controlInstance is one placement of a control on the page.
type controlInstance struct {
	def    *controlDef
	engine *Engine
	caller *template.Template
	ext    Ext
	values map[string]template.Value
	roots  []*dom.Node
	root   *Element
}

func (d *controlDef) construct(e *Engine, t *template.Template, ext Ext) ([]*dom.Node, error) {
	inst := &controlInstance{
		def:    d,
		engine: e,
		caller: t,
		ext:    ext,
		values: make(map[string]template.Value),
	}
	for _, a := range d.attrs {
		if a.def != "" {
			inst.values[a.name] = template.Literal(a.def)
		}
	}
	for _, attr := range t.Reserved {
		if strings.HasPrefix(attr.Name, eventAttrPrefix) {
			continue
		}
		inst.values[attr.Name] = attr.Value
	}

	api := &ControlAPI{inst: inst}
	behavior := &Behavior{}
	if d.behavior != "" {
		factory, err := e.registry.Behavior(d.behavior)
		if err != nil {
			return nil, fmt.Errorf("ui: control %q: %w", d.id, err)
		}
		if behavior, err = factory(api); err != nil {
			return nil, fmt.Errorf("ui: control %q: %w", d.id, err)
		}
		if behavior == nil {
			behavior = &Behavior{}
		}
	}

	var (
		rendered []*template.Template
		err      error
	)
	if behavior.Render != nil {
		rendered, err = behavior.Render(api)
		if err != nil {
			return nil, fmt.Errorf("ui: control %q render: %w", d.id, err)
		}
	} else {
		rendered = d.defaultUI()
	}

	proxy := ControllerFunc(func(name string) (Handler, bool) {
		if h, ok := behavior.Methods.Method(name); ok {
			return h, true
		}
		if _, ok := d.events[name]; ok {
			return func(_ *Element, evt *dom.Event) error {
				return inst.forward(name, evt)
			}, true
		}
		return nil, false
	})

	child := Ext{
		Parent:      ext.Parent,
		ContextPath: ext.ContextPath,
		Model:       ext.Model,
		Controller:  proxy,
		OnInit: func(el *Element) error {
			el.control = inst
			if inst.root == nil {
				inst.root = el
			}
			if ext.OnInit != nil {
				return ext.OnInit(el)
			}
			return nil
		},
		OnRender: ext.OnRender,
	}
	nodes, err := e.InstantiateAll(rendered, child)
	if err != nil {
		return nil, err
	}
	inst.roots = nodes

	for _, node := range nodes {
		var walkErr error
		node.Walk(func(n *dom.Node) bool {
			if walkErr != nil {
				return false
			}
			walkErr = inst.applyHooks(n)
			return walkErr == nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}

	if behavior.Init != nil {
		if err := behavior.Init(api); err != nil {
			return nil, fmt.Errorf("ui: control %q init: %w", d.id, err)
		}
	}
	return nodes, nil
}

// applyHooks fills the `$name` placeholders of node with the control values.
func (inst *controlInstance) applyHooks(node *dom.Node) error {
	el := Of(node)
	if el == nil || el.template == nil {
		return nil
	}
	for _, site := range inst.def.hooks[el.template] {
		value, ok := inst.values[site.name]
		if !ok {
			if !inst.def.declares(site.name) {
				continue
			}
			value = template.Literal("")
		}
		if !value.IsBinding() {
			if site.attr != "" {
				node.SetAttribute(site.attr, value.Literal)
			} else {
				node.SetNodeValue(value.Literal)
			}
			continue
		}

		attr := site.attr
		write := func(read data.ReadFunc) error {
			v, err := read()
			if err != nil {
				return err
			}
			if attr != "" {
				data.ApplyAttribute(node, attr, v)
			} else {
				node.SetNodeValue(data.Stringify(v))
			}
			return nil
		}
		if _, err := value.Binding.BindExecutor(inst.callerModel(), inst.callerScope(), node, write, nil); err != nil {
			return fmt.Errorf("ui: control %q value %q: %w", inst.def.id, site.name, err)
		}
	}
	return nil
}

// callerModel is the model of the context the control was placed in.
func (inst *controlInstance) callerModel() *data.Model {
	if inst.ext.Model != nil {
		return inst.ext.Model
	}
	if owner := nearestElement(inst.ext.Parent); owner != nil {
		return owner.Model()
	}
	return inst.engine.Model()
}

// callerScope resolves relative paths against the caller's context rather
// than the node that consumes the value.
func (inst *controlInstance) callerScope() data.Scope {
	e, anchor, base := inst.engine, inst.ext.Parent, inst.ext.ContextPath
	return data.ScopeFunc(func(_ *dom.Node, path string) (string, error) {
		return e.ResolvePath(anchor, joinPath(base, path))
	})
}

// outerController resolves the controller of the context the control was
// placed in.
func (inst *controlInstance) outerController() Controller {
	if inst.ext.Controller != nil {
		return inst.ext.Controller
	}
	var start *Element
	if inst.root != nil {
		start = inst.root.parentElement()
	} else {
		start = nearestElement(inst.ext.Parent)
	}
	if start == nil {
		return nil
	}
	return start.Controller()
}

// forward delivers a declared control event to the handler the caller named
// in its `event:` attribute. Events the caller did not subscribe to are
// dropped.
func (inst *controlInstance) forward(event string, evt *dom.Event) error {
	ref, ok := inst.caller.ReservedAttr(eventAttrPrefix + event)
	if !ok || ref.Literal == "" {
		return nil
	}
	ctrl := inst.outerController()
	if ctrl == nil {
		return fmt.Errorf("%w: control %q event %q", ErrControllerNotFound, inst.def.id, event)
	}
	h, ok := ctrl.Method(ref.Literal)
	if !ok {
		return fmt.Errorf("%w: control %q event %q method %q", ErrMethodNotFound, inst.def.id, event, ref.Literal)
	}
	return h(inst.root, evt)
}

// outerMethods resolves methods against the caller's controller at call time.
func (inst *controlInstance) outerMethods() Controller {
	return ControllerFunc(func(name string) (Handler, bool) {
		ctrl := inst.outerController()
		if ctrl == nil {
			return nil, false
		}
		return ctrl.Method(name)
	})
}

// ControlAPI is handed to behaviours. It exposes the values the control was
// called with and the nodes it rendered.
type ControlAPI struct {
	inst *controlInstance
}

// ID returns the control name.
func (a *ControlAPI) ID() string { return a.inst.def.id }

// Engine returns the owning engine.
func (a *ControlAPI) Engine() *Engine { return a.inst.engine }

// Value returns the raw value of a control attribute, after defaults.
func (a *ControlAPI) Value(name string) (template.Value, bool) {
	v, ok := a.inst.values[name]
	return v, ok
}

// Attr resolves a control attribute. Bindings are read in the context the
// control was placed in.
func (a *ControlAPI) Attr(name string) (any, error) {
	v, ok := a.inst.values[name]
	if !ok {
		return nil, nil
	}
	if !v.IsBinding() {
		return v.Literal, nil
	}
	model := a.inst.callerModel()
	return v.Binding.Read(model, data.Context{Node: a.inst.ext.Parent, Model: model, Scope: a.inst.callerScope()})
}

// Names lists the declared attribute names.
func (a *ControlAPI) Names() []string {
	names := make([]string, 0, len(a.inst.def.attrs))
	for _, attr := range a.inst.def.attrs {
		names = append(names, attr.name)
	}
	sort.Strings(names)
	return names
}

// UI returns a ui section of the definition. Only the shared templates carry
// `$name` placeholders; clones are for behaviours that edit the tree.
func (a *ControlAPI) UI(name string, clone bool) []*template.Template {
	list := a.inst.def.ui[name]
	if clone {
		return template.CloneAll(list)
	}
	return list
}

// Children returns the templates the control was called with.
func (a *ControlAPI) Children() []*template.Template {
	return a.inst.caller.Children
}

// Nodes returns the rendered root nodes. Empty until rendering finished.
func (a *ControlAPI) Nodes() []*dom.Node {
	return a.inst.roots
}

// Node returns the first rendered root element, or nil.
func (a *ControlAPI) Node() *dom.Node {
	if a.inst.root == nil {
		return nil
	}
	return a.inst.root.node
}

// Emit raises a declared event towards the caller's controller.
func (a *ControlAPI) Emit(event string, detail any) error {
	if _, ok := a.inst.def.events[event]; !ok {
		return fmt.Errorf("ui: control %q does not declare event %q", a.inst.def.id, event)
	}
	return a.inst.forward(event, dom.NewEvent(event, detail))
}

func soleText(t *template.Template) (string, bool) {
	if len(t.Children) != 1 || t.Children[0].Kind != template.KindText || t.Children[0].Value.IsBinding() {
		return "", false
	}
	name := strings.TrimSpace(t.Children[0].Value.Literal)
	return name, name != ""
}
