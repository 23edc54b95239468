package ui

import (
	"fmt"

	"github.com/goliatone/go-wolf/pkg/data"
	"github.com/goliatone/go-wolf/pkg/dom"
	"github.com/goliatone/go-wolf/pkg/template"
)

func (e *Engine) registerBuiltins() {
	e.registry.registerBuiltin(ElementFragment, ElementDescriptor{
		Attributes: map[string]template.AttributeSpec{
			"id":         {},
			"controller": {},
		},
		Init:      e.initFragment,
		Construct: constructFragment,
	})
	e.registry.registerBuiltin(ElementRepeat, ElementDescriptor{
		Attributes: map[string]template.AttributeSpec{
			"items": {Bindable: true, Mandatory: true, RequireBinding: true},
		},
		Init:      initRepeat,
		Construct: constructRepeat,
	})
	e.registry.registerBuiltin(ElementChildren, ElementDescriptor{
		Construct: constructChildren,
	})
	e.registry.registerBuiltin(ElementControl, ElementDescriptor{
		Attributes: map[string]template.AttributeSpec{
			"id": {Mandatory: true},
		},
		Init:      e.defineControl,
		Construct: constructNothing,
	})

	e.registry.attributes["include"] = GlobalAttribute{
		Apply: func(el *Element, v template.Value) error {
			el.Include(el.engine.ctx, v.Literal, nil)
			return nil
		},
	}
	e.registry.attributes["context"] = GlobalAttribute{
		Apply: func(el *Element, v template.Value) error {
			el.contextPath = joinPath(el.contextPath, v.Literal)
			return nil
		},
	}
	e.registry.attributes["repeat"] = GlobalAttribute{
		Spec: template.AttributeSpec{
			Bindable:       true,
			RequireBinding: true,
			Rewrite:        rewriteRepeat,
		},
	}
}

// initFragment moves the controller reference onto the template and
// publishes named fragments.
func (e *Engine) initFragment(t *template.Template) error {
	if ref, ok := t.ReservedAttr("controller"); ok {
		t.ControllerRef = ref.Literal
		t.DeleteReserved("controller")
	}
	if id, ok := t.ReservedAttr("id"); ok && id.Literal != "" {
		e.storeFragment("#"+id.Literal, t)
	}
	return nil
}

func constructFragment(e *Engine, t *template.Template, ext Ext) ([]*dom.Node, error) {
	if ext.Controller == nil && t.ControllerRef != "" {
		ctrl, err := e.registry.Controller(t.ControllerRef)
		if err != nil {
			return nil, err
		}
		ext.Controller = ctrl
	}
	return e.InstantiateAll(t.Children, ext)
}

func initRepeat(t *template.Template) error {
	if len(t.Children) != 1 {
		return template.Errorf(t.Tag(), "", template.ErrInvalidChildren, "expected exactly one child, got %d", len(t.Children))
	}
	return nil
}

// constructRepeat returns a placeholder and defers the repeater setup to the
// task queue, once the placeholder sits in its final parent.
func constructRepeat(e *Engine, t *template.Template, ext Ext) ([]*dom.Node, error) {
	items, _ := t.ReservedAttr("items")
	child := t.Children[0]
	hook := dom.CreateComment(t.Tag())

	e.Post(func() error {
		parent := hook.Parent
		if parent == nil {
			e.logger.Warn("repeat placeholder was never attached", "items", items.String())
			return nil
		}
		sibling := hook.NextSibling
		parent.RemoveChild(hook)

		model := ext.Model
		if model == nil {
			if owner := nearestElement(parent); owner != nil {
				model = owner.Model()
			} else {
				model = e.Model()
			}
		}
		var scope data.Scope = e
		if ext.ContextPath != "" {
			scope = data.ScopeFunc(func(node *dom.Node, path string) (string, error) {
				return e.ResolvePath(node, joinPath(ext.ContextPath, path))
			})
		}
		fill := func(p *dom.Node, contextPath string) ([]*dom.Node, error) {
			return e.Instantiate(child, Ext{
				Parent:      p,
				ContextPath: joinPath(ext.ContextPath, contextPath),
				Model:       ext.Model,
			})
		}
		exec, err := items.Binding.BindRepeater(model, scope, parent, sibling, fill)
		if err != nil {
			return fmt.Errorf("ui: repeat %s: %w", items.String(), err)
		}
		// An enclosing repeater that drops the placeholder also drops this one.
		hook.SetExt(exec)
		return nil
	})
	return []*dom.Node{hook}, nil
}

func rewriteRepeat(t *template.Template) (*template.Template, error) {
	items, _ := t.ReservedAttr("repeat")
	t.DeleteReserved("repeat")
	wrapper := template.Pseudo(ElementRepeat, t)
	wrapper.SetReserved("items", items)
	return wrapper, nil
}

// constructChildren fills a control slot with the children the control was
// called with. Their events resolve against the caller's controller.
func constructChildren(e *Engine, _ *template.Template, ext Ext) ([]*dom.Node, error) {
	inst := enclosingControl(ext.Parent)
	if inst == nil {
		e.logger.Warn("children slot used outside of a control")
		return nil, nil
	}
	return e.InstantiateAll(inst.caller.Children, Ext{
		Parent:     ext.Parent,
		Model:      inst.ext.Model,
		Controller: inst.outerMethods(),
	})
}

func constructNothing(*Engine, *template.Template, Ext) ([]*dom.Node, error) {
	return nil, nil
}

func enclosingControl(node *dom.Node) *controlInstance {
	el := nearestElement(node)
	if el == nil {
		return nil
	}
	var inst *controlInstance
	el.walkUp(func(cur *Element) bool {
		if cur.control != nil {
			inst = cur.control
			return false
		}
		return true
	})
	return inst
}
