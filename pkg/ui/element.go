package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-wolf/pkg/data"
	"github.com/goliatone/go-wolf/pkg/dom"
	"github.com/goliatone/go-wolf/pkg/template"
)

// Element is the per-node API attached to every node the engine creates.
// Context paths are recomputed on demand from the parent chain, so moving or
// re-parenting a subtree needs no bookkeeping.
type Element struct {
	engine      *Engine
	node        *dom.Node
	template    *template.Template
	extParent   *dom.Node
	contextPath string
	model       *data.Model

	controller         Controller
	fragmentController bool

	control *controlInstance
}

// Of returns the Element attached to node, or nil.
func Of(node *dom.Node) *Element {
	if node == nil {
		return nil
	}
	el, _ := node.Ext().(*Element)
	return el
}

func (e *Engine) attach(node *dom.Node, t *template.Template, ext Ext) *Element {
	el := &Element{
		engine:      e,
		node:        node,
		template:    t,
		extParent:   ext.Parent,
		contextPath: ext.ContextPath,
		model:       ext.Model,
	}
	node.SetExt(el)
	return el
}

// Node returns the live node.
func (el *Element) Node() *dom.Node { return el.node }

// Engine returns the owning engine.
func (el *Element) Engine() *Engine { return el.engine }

// Template returns the template the node was instantiated from. Adopted
// nodes have no template.
func (el *Element) Template() *template.Template { return el.template }

func (el *Element) isApp() bool {
	return el.template != nil && el.template.Kind == template.KindApp
}

// Model returns the nearest model override in the parent chain, falling back
// to the engine default model.
func (el *Element) Model() *data.Model {
	var found *data.Model
	el.walkUp(func(cur *Element) bool {
		if cur.model != nil {
			found = cur.model
			return false
		}
		return true
	})
	if found == nil {
		return el.engine.Model()
	}
	return found
}

// SetModel overrides the model used by this subtree.
func (el *Element) SetModel(m *data.Model) {
	el.model = m
}

// Controller returns the controller of the nearest ancestor that has one.
func (el *Element) Controller() Controller {
	if node := el.ControllerNode(); node != nil {
		return Of(node).controller
	}
	return nil
}

// ControllerNode returns the node owning the active controller.
func (el *Element) ControllerNode() *dom.Node {
	var found *dom.Node
	el.walkUp(func(cur *Element) bool {
		if cur.controller != nil {
			found = cur.node
			return false
		}
		return true
	})
	return found
}

// SetController installs ctrl on this node.
func (el *Element) SetController(ctrl Controller) {
	el.controller = ctrl
	el.fragmentController = false
}

// Application returns the application root element owning this node.
func (el *Element) Application() *Element {
	var app *Element
	el.walkUp(func(cur *Element) bool {
		if cur.isApp() {
			app = cur
			return false
		}
		return true
	})
	return app
}

// ApplicationController returns the application controller, if any.
func (el *Element) ApplicationController() Controller {
	if app := el.Application(); app != nil {
		return app.controller
	}
	return nil
}

// Parent finds the closest ancestor matching selector: `#id`, `.class`, or a
// bare id. An empty selector returns the direct parent element. The search
// stops at the application root.
func (el *Element) Parent(selector string) *Element {
	selector = strings.TrimSpace(selector)
	var found *Element
	first := true
	el.walkUp(func(cur *Element) bool {
		if first {
			first = false
			return true
		}
		if matches(cur.node, selector) {
			found = cur
			return false
		}
		return !cur.isApp()
	})
	return found
}

func matches(node *dom.Node, selector string) bool {
	switch {
	case selector == "":
		return true
	case strings.HasPrefix(selector, "#"):
		return node.ID() == selector[1:]
	case strings.HasPrefix(selector, "."):
		return node.HasClass(selector[1:])
	default:
		return node.ID() == selector
	}
}

// OwnContextPath returns the context path set on this node, unresolved.
func (el *Element) OwnContextPath() string {
	return el.contextPath
}

// SetContextPath changes the node context path and refreshes every binding in
// the subtree.
func (el *Element) SetContextPath(path string) error {
	el.contextPath = strings.TrimSpace(path)
	return el.Model().RefreshElement(el.node)
}

// ContextPath resolves rel against the node's effective context path. The
// effective path joins the context paths of the parent chain up to the
// application root; an absolute context path resets the inherited one.
func (el *Element) ContextPath(rel string) (string, error) {
	if isAbsolute(rel) {
		return rel, nil
	}
	var chain []*Element
	seen := make(map[*Element]struct{})
	for cur := el; cur != nil; cur = cur.parentElement() {
		if _, loop := seen[cur]; loop {
			return "", fmt.Errorf("%w: cycle at <%s>", ErrDetachedNode, cur.node.Tag)
		}
		seen[cur] = struct{}{}
		chain = append(chain, cur)
		if cur.isApp() {
			break
		}
	}

	base := ""
	for i := len(chain) - 1; i >= 0; i-- {
		own := chain[i].contextPath
		switch {
		case own == "":
		case isAbsolute(own):
			base = own
		default:
			base = joinPath(base, own)
		}
	}
	return joinPath(base, rel), nil
}

// Get reads rel from the node's model, resolved against its context path.
func (el *Element) Get(rel string) (any, error) {
	path, err := el.ContextPath(rel)
	if err != nil {
		return nil, err
	}
	return el.Model().GetProperty(path, data.Context{Node: el.node, Scope: el.engine})
}

// Set writes rel in the node's model, refreshes the affected bindings and
// drains the task queue.
func (el *Element) Set(rel string, value any) error {
	path, err := el.ContextPath(rel)
	if err != nil {
		return err
	}
	if err := el.Model().SetProperty(path, value, data.Context{Node: el.node, Scope: el.engine}); err != nil {
		return err
	}
	return el.engine.Drain()
}

// ByID finds an element by id within the application, or within the whole
// tree when the node is outside any application.
func (el *Element) ByID(id string) *dom.Node {
	root := el.node.Root()
	if app := el.Application(); app != nil {
		root = app.node
	}
	var found *dom.Node
	root.Walk(func(n *dom.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == dom.ElementNode && n.ID() == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Dispatch raises an event on the node.
func (el *Element) Dispatch(eventType string, detail any) error {
	return el.node.Dispatch(dom.NewEvent(eventType, detail))
}

// Include loads the fragment at url into this node asynchronously. done, when
// set, runs on the loop once the fragment is installed or the load failed.
func (el *Element) Include(ctx context.Context, url string, done func(error)) {
	e := el.engine
	if ctx == nil {
		ctx = e.ctx
	}
	e.Go(func() func() error {
		frag, err := e.LoadFragment(ctx, url)
		return func() error {
			if err == nil {
				err = e.InsertTo(el.node, frag)
			}
			if done != nil {
				done(err)
				return nil
			}
			if err != nil {
				return fmt.Errorf("ui: include %q: %w", url, err)
			}
			return nil
		}
	})
}

// walkUp visits el and its ancestors until fn returns false. Cyclic chains
// stop at the first repeated element.
func (el *Element) walkUp(fn func(*Element) bool) {
	seen := make(map[*Element]struct{})
	for cur := el; cur != nil; cur = cur.parentElement() {
		if _, loop := seen[cur]; loop {
			return
		}
		seen[cur] = struct{}{}
		if !fn(cur) {
			return
		}
	}
}

// parentElement returns the closest ancestor carrying an Element. Nodes not
// yet attached fall back to the parent given at instantiation.
func (el *Element) parentElement() *Element {
	parent := el.node.Parent
	if parent == nil {
		parent = el.extParent
	}
	return nearestElement(parent)
}

func nearestElement(node *dom.Node) *Element {
	for n := node; n != nil; {
		if el := Of(n); el != nil {
			return el
		}
		if n.Parent == nil {
			return nil
		}
		n = n.Parent
	}
	return nil
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "/")
}

func joinPath(base, rel string) string {
	switch {
	case isAbsolute(rel) || base == "":
		return rel
	case rel == "":
		return base
	default:
		return strings.TrimRight(base, "/") + "/" + rel
	}
}
