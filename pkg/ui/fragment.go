package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-wolf/pkg/dom"
	"github.com/goliatone/go-wolf/pkg/resource"
	"github.com/goliatone/go-wolf/pkg/template"
)

// LoadFragment returns the fragment template for url. Loaded fragments are
// cached; concurrent loads of the same url share one fetch. Urls starting
// with `#` name fragments declared with an id and are never fetched.
func (e *Engine) LoadFragment(ctx context.Context, url string) (*template.Template, error) {
	if e.initErr != nil {
		return nil, e.initErr
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("ui: fragment url is required")
	}
	if frag, ok := e.fragment(url); ok {
		return frag, nil
	}
	if strings.HasPrefix(url, "#") {
		return nil, fmt.Errorf("%w: %q", ErrFragmentNotFound, url)
	}
	if ctx == nil {
		ctx = e.ctx
	}

	v, err, shared := e.loads.Do(url, func() (any, error) {
		if frag, ok := e.fragment(url); ok {
			return frag, nil
		}
		text, err := e.loader.FetchText(ctx, url)
		if err != nil {
			return nil, resource.NewError(url, resource.StageNet, err)
		}
		frag, err := e.parseFragment(text)
		if err != nil {
			return nil, resource.NewError(url, resource.StageProcess, err)
		}
		e.storeFragment(url, frag)
		e.logger.Debug("fragment loaded", "url", url)
		return frag, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		e.logger.Debug("fragment load shared", "url", url)
	}
	return v.(*template.Template), nil
}

// LoadFragmentTo loads url and installs it into parent.
func (e *Engine) LoadFragmentTo(ctx context.Context, url string, parent *dom.Node) error {
	frag, err := e.LoadFragment(ctx, url)
	if err != nil {
		return err
	}
	return e.InsertTo(parent, frag)
}

// LoadLibrary reads a fragment for its side effects: control definitions and
// named fragments it declares become available.
func (e *Engine) LoadLibrary(ctx context.Context, url string) error {
	_, err := e.LoadFragment(ctx, url)
	return err
}

// InsertTo replaces the content of parent with a new instance of frag. The
// fragment controller is installed on parent unless parent already owns a
// controller that did not come from a fragment; that controller is kept.
func (e *Engine) InsertTo(parent *dom.Node, frag *template.Template) error {
	if parent == nil || frag == nil {
		return fmt.Errorf("ui: insert requires a parent node and a fragment")
	}
	var (
		nodes []*dom.Node
		err   error
	)
	if frag.Kind == template.KindPseudo && frag.Name == ElementFragment {
		nodes, err = e.InstantiateAll(frag.Children, Ext{Parent: parent})
	} else {
		nodes, err = e.Instantiate(frag, Ext{Parent: parent})
	}
	if err != nil {
		return err
	}

	parent.RemoveChildren()
	for _, node := range nodes {
		parent.AppendChild(node)
	}

	el := Of(parent)
	if el == nil {
		el = e.attach(parent, nil, Ext{})
	}
	if frag.ControllerRef != "" {
		ctrl, err := e.registry.Controller(frag.ControllerRef)
		if err != nil {
			return err
		}
		if el.controller == nil || el.fragmentController {
			el.controller = ctrl
			el.fragmentController = true
			if init, ok := ctrl.(Initializer); ok {
				if err := init.Init(el); err != nil {
					return fmt.Errorf("ui: controller %q init: %w", frag.ControllerRef, err)
				}
			}
		} else {
			e.logger.Warn("fragment controller ignored, node already has a controller",
				"controller", frag.ControllerRef, "node", parent.Tag)
		}
	}
	return e.Drain()
}

func (e *Engine) parseFragment(markup string) (*template.Template, error) {
	list, err := e.reader.ReadString(markup)
	if err != nil {
		return nil, err
	}
	if len(list) == 1 && list[0].Kind == template.KindPseudo && list[0].Name == ElementFragment {
		return list[0], nil
	}
	return template.Pseudo(ElementFragment, list...), nil
}

func (e *Engine) fragment(key string) (*template.Template, bool) {
	e.fmu.Lock()
	defer e.fmu.Unlock()
	frag, ok := e.fragments[key]
	return frag, ok
}

func (e *Engine) storeFragment(key string, frag *template.Template) {
	e.fmu.Lock()
	defer e.fmu.Unlock()
	e.fragments[key] = frag
}
