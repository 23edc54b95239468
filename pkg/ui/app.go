package ui

import (
	"context"
	"fmt"

	"github.com/goliatone/go-wolf/pkg/dom"
	"github.com/goliatone/go-wolf/pkg/template"
)

// InitApp turns node into an application root. The existing children are
// read as templates and re-instantiated under the named controller; the
// controller's Init runs once they are mounted. InitApp returns after all
// deferred work, including fragment includes, has settled or ctx is done.
func (e *Engine) InitApp(ctx context.Context, node *dom.Node, controllerName string) (*Element, error) {
	if e.initErr != nil {
		return nil, e.initErr
	}
	if node == nil {
		return nil, fmt.Errorf("ui: application requires a node")
	}
	var ctrl Controller
	if controllerName != "" {
		var err error
		if ctrl, err = e.registry.Controller(controllerName); err != nil {
			return nil, err
		}
	}
	children, err := e.reader.ReadChildren(node)
	if err != nil {
		return nil, err
	}

	app := &template.Template{Kind: template.KindApp, Name: node.Tag, Children: children, ControllerRef: controllerName}
	el := e.attach(node, app, Ext{})
	el.controller = ctrl

	node.RemoveChildren()
	for _, child := range children {
		nodes, err := e.Instantiate(child, Ext{Parent: node})
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			node.AppendChild(n)
		}
	}
	if err := e.Drain(); err != nil {
		return el, err
	}
	if init, ok := ctrl.(Initializer); ok {
		if err := init.Init(el); err != nil {
			return el, fmt.Errorf("ui: application %q init: %w", controllerName, err)
		}
	}
	e.logger.Debug("application initialised", "controller", controllerName, "children", len(children))
	return el, e.Wait(ctx)
}
