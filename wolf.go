// Package wolf binds HTML templates to data models. The root package wires an
// engine with the stock processors and controls; pkg/ui holds the engine
// itself.
//
//	html, err := wolf.RenderString(ctx, `<p>{user/name/^upper}</p>`, data)
package wolf

import (
	"context"
	"fmt"

	"github.com/goliatone/go-wolf/pkg/data"
	"github.com/goliatone/go-wolf/pkg/dom"
	"github.com/goliatone/go-wolf/pkg/processors"
	"github.com/goliatone/go-wolf/pkg/ui"
)

// Engine aliases ui.Engine for callers that only import the root package.
type Engine = ui.Engine

// Option configures New.
type Option func(*settings)

type settings struct {
	engine     []ui.Option
	processors []processors.Option
	stock      bool
}

// WithEngineOptions forwards options to ui.New.
func WithEngineOptions(opts ...ui.Option) Option {
	return func(s *settings) {
		s.engine = append(s.engine, opts...)
	}
}

// WithProcessorOptions configures the stock processors, e.g. tpl templates.
func WithProcessorOptions(opts ...processors.Option) Option {
	return func(s *settings) {
		s.processors = append(s.processors, opts...)
	}
}

// WithStockTemplates serves the bundled templates to the tpl processor.
func WithStockTemplates() Option {
	return WithProcessorOptions(processors.WithTemplateFS(TemplatesFS()))
}

// WithStockControls defines the bundled control library on the new engine.
func WithStockControls() Option {
	return func(s *settings) {
		s.stock = true
	}
}

// New builds an engine whose models use a private processor registry holding
// the stock processors.
func New(options ...Option) (*Engine, error) {
	s := settings{}
	for _, opt := range options {
		if opt != nil {
			opt(&s)
		}
	}

	reg := data.NewProcessors()
	if err := processors.Register(reg, s.processors...); err != nil {
		return nil, fmt.Errorf("wolf: %w", err)
	}
	engineOpts := append([]ui.Option{ui.WithProcessors(reg)}, s.engine...)
	e := ui.New(engineOpts...)
	if err := e.Err(); err != nil {
		return nil, err
	}
	if s.stock {
		if err := LoadStockControls(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Mount reads markup, instantiates it into a fresh document body and waits
// for pending loads. The body stays bound to the engine's models.
func Mount(ctx context.Context, e *Engine, markup string) (*dom.Node, error) {
	if e == nil {
		return nil, fmt.Errorf("wolf: engine is nil")
	}
	list, err := e.Read(markup)
	if err != nil {
		return nil, err
	}
	body := dom.NewDocument().Body()
	if _, err := e.MountAll(body, list, ui.Ext{}); err != nil {
		return nil, err
	}
	if err := e.Wait(ctx); err != nil {
		return nil, err
	}
	return body, nil
}

// RenderString renders markup against root and returns the resulting HTML.
func RenderString(ctx context.Context, markup string, root any, options ...Option) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts := append([]Option{WithEngineOptions(ui.WithData(root), ui.WithContext(ctx))}, options...)
	e, err := New(opts...)
	if err != nil {
		return "", err
	}
	body, err := Mount(ctx, e, markup)
	if err != nil {
		return "", err
	}
	return dom.InnerHTML(body), nil
}
