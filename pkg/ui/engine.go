// Package ui instantiates templates into live DOM subtrees, keeps them bound
// to models, and hosts the element, controller and behaviour registries.
//
// An Engine is confined to a single loop: instantiation, model writes, event
// dispatch and queued tasks all run on the goroutine that drives Drain or
// Wait. Fetches run on their own goroutines and post their continuations back
// onto the queue.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-wolf/internal/loader"
	"github.com/goliatone/go-wolf/pkg/config"
	"github.com/goliatone/go-wolf/pkg/data"
	"github.com/goliatone/go-wolf/pkg/dom"
	"github.com/goliatone/go-wolf/pkg/resource"
	"github.com/goliatone/go-wolf/pkg/template"
)

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLoader injects the resource loader used for fragments and fetches.
func WithLoader(l resource.Loader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithLoaderOptions configures the built-in loader. Ignored when WithLoader
// supplies one.
func WithLoaderOptions(opts resource.Options) Option {
	return func(e *Engine) {
		e.loaderOpts = opts
	}
}

// WithModel replaces the default model.
func WithModel(m *data.Model) Option {
	return func(e *Engine) {
		e.model = m
	}
}

// WithData seeds the default model with root.
func WithData(root any) Option {
	return func(e *Engine) {
		e.seed = root
	}
}

// WithProcessors selects the processor registry for engine-created models.
func WithProcessors(p *data.Processors) Option {
	return func(e *Engine) {
		e.processors = p
	}
}

// WithReaderOptions configures the template reader.
func WithReaderOptions(opts template.Options) Option {
	return func(e *Engine) {
		e.readerOpts = opts
	}
}

// WithLiveness replaces the node liveness check of engine-created models.
func WithLiveness(fn data.Liveness) Option {
	return func(e *Engine) {
		e.liveness = fn
	}
}

// WithContext sets the base context for asynchronous work.
func WithContext(ctx context.Context) Option {
	return func(e *Engine) {
		e.ctx = ctx
	}
}

// WithConfig applies file settings: reader options, loader options and named
// model seeds.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		if err := cfg.Validate(); err != nil {
			e.initErr = err
			return
		}
		e.readerOpts = cfg.ReaderOptions()
		e.loaderOpts = resource.Options{
			BaseURL:        cfg.BaseURL,
			BaseDir:        cfg.BaseDir,
			AllowHTTP:      cfg.AllowHTTP,
			RequestTimeout: cfg.RequestTimeout,
		}
		e.namedSeeds = cfg.Models
	}
}

// Engine is the explicit engine context: registries, models, reader, loader,
// task queue and fragment cache.
type Engine struct {
	registry   *Registry
	processors *data.Processors
	model      *data.Model
	models     *data.Models
	seed       any
	namedSeeds map[string]map[string]any
	liveness   data.Liveness
	loader     resource.Loader
	loaderOpts resource.Options
	readerOpts template.Options
	reader     *template.Reader
	logger     *slog.Logger
	ctx        context.Context
	initErr    error

	qmu      sync.Mutex
	queue    []func() error
	wake     chan struct{}
	inflight atomic.Int64

	fmu       sync.Mutex
	fragments map[string]*template.Template
	loads     singleflight.Group
}

var _ data.Scope = (*Engine)(nil)

// New constructs an Engine applying any provided options. Missing
// dependencies are initialised with the built-in implementations;
// initialisation failures surface from Err and from the first operation that
// needs them.
func New(options ...Option) *Engine {
	e := &Engine{
		readerOpts: template.DefaultOptions(),
		wake:       make(chan struct{}, 1),
		fragments:  make(map[string]*template.Template),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	e.applyDefaults()
	return e
}

func (e *Engine) applyDefaults() {
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.ctx == nil {
		e.ctx = context.Background()
	}
	if e.processors == nil {
		e.processors = data.DefaultProcessors
	}
	e.registry = NewRegistry(e.logger)
	e.registerBuiltins()
	e.reader = template.NewReader(e.registry, e.readerOpts)

	if e.model == nil {
		e.model = e.NewModel(e.seed)
	} else if e.seed != nil {
		if err := e.model.SetData(e.seed); err != nil && e.initErr == nil {
			e.initErr = fmt.Errorf("ui: seed default model: %w", err)
		}
	}
	e.models = data.NewModels(e.model)
	for _, id := range sortedKeys(e.namedSeeds) {
		if err := e.models.Register(id, e.NewModel(e.namedSeeds[id])); err != nil && e.initErr == nil {
			e.initErr = fmt.Errorf("ui: model %q: %w", id, err)
		}
	}

	if e.loader == nil {
		l, err := loader.New(e.loaderOpts)
		if err != nil {
			if e.initErr == nil {
				e.initErr = fmt.Errorf("ui: default loader: %w", err)
			}
		} else {
			e.loader = l
		}
	}
}

// Err reports an initialisation failure.
func (e *Engine) Err() error {
	return e.initErr
}

// NewModel creates a model sharing the engine's processors, liveness check
// and logger.
func (e *Engine) NewModel(root any) *data.Model {
	return data.NewModel(root,
		data.WithProcessors(e.processors),
		data.WithLiveness(e.liveness),
		data.WithLogger(e.logger),
	)
}

// Registry exposes the element, attribute, controller and behaviour tables.
func (e *Engine) Registry() *Registry { return e.registry }

// Model returns the default model.
func (e *Engine) Model() *data.Model { return e.models.Default() }

// Models returns the model table.
func (e *Engine) Models() *data.Models { return e.models }

// Processors returns the processor registry used by engine-created models.
func (e *Engine) Processors() *data.Processors { return e.processors }

// Reader returns the template reader bound to the registry.
func (e *Engine) Reader() *template.Reader { return e.reader }

// Loader returns the resource loader.
func (e *Engine) Loader() resource.Loader { return e.loader }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Context returns the base context for asynchronous work.
func (e *Engine) Context() context.Context { return e.ctx }

// RegisterController registers a named controller.
func (e *Engine) RegisterController(name string, ctrl Controller) error {
	return e.registry.RegisterController(name, ctrl)
}

// RegisterElement registers a pseudo element.
func (e *Engine) RegisterElement(name string, desc ElementDescriptor) error {
	return e.registry.RegisterElement(name, desc)
}

// RegisterAttribute registers a global attribute.
func (e *Engine) RegisterAttribute(name string, attr GlobalAttribute) error {
	return e.registry.RegisterAttribute(name, attr)
}

// RegisterBehavior registers a control behaviour.
func (e *Engine) RegisterBehavior(name string, factory BehaviorFactory) error {
	return e.registry.RegisterBehavior(name, factory)
}

// Read parses markup into templates using the engine registry.
func (e *Engine) Read(markup string) ([]*template.Template, error) {
	if e.initErr != nil {
		return nil, e.initErr
	}
	return e.reader.ReadString(markup)
}

// ResolvePath implements data.Scope: relative paths resolve against the
// context path of the nearest element owning node.
func (e *Engine) ResolvePath(node *dom.Node, path string) (string, error) {
	if isAbsolute(path) {
		return path, nil
	}
	el := nearestElement(node)
	if el == nil {
		return path, nil
	}
	return el.ContextPath(path)
}

// GetProperty reads a path of the default model.
func (e *Engine) GetProperty(path string) (any, error) {
	return e.Model().GetProperty(path, data.Context{Scope: e})
}

// SetProperty writes a path of the default model, refreshes the bindings
// under it and drains the task queue.
func (e *Engine) SetProperty(path string, value any) error {
	if err := e.Model().SetProperty(path, value, data.Context{Scope: e}); err != nil {
		return err
	}
	return e.Drain()
}

// Post queues task to run on the loop.
func (e *Engine) Post(task func() error) {
	if task == nil {
		return
	}
	e.qmu.Lock()
	e.queue = append(e.queue, task)
	e.qmu.Unlock()
	e.signal()
}

// Pending reports the queued task count.
func (e *Engine) Pending() int {
	e.qmu.Lock()
	defer e.qmu.Unlock()
	return len(e.queue)
}

// Drain runs queued tasks, including tasks queued while draining, until the
// queue is empty. Task failures are logged and joined.
func (e *Engine) Drain() error {
	var errs []error
	for {
		task, ok := e.next()
		if !ok {
			break
		}
		if err := task(); err != nil {
			e.logger.Error("deferred task failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Go runs work off the loop. The continuation it returns is posted back to
// the queue.
func (e *Engine) Go(work func() func() error) {
	if work == nil {
		return
	}
	e.inflight.Add(1)
	go func() {
		defer func() {
			e.inflight.Add(-1)
			e.signal()
		}()
		if next := work(); next != nil {
			e.Post(next)
		}
	}()
}

// Wait drains the queue until no background work remains or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = e.ctx
	}
	var errs []error
	for {
		if err := e.Drain(); err != nil {
			errs = append(errs, err)
		}
		if e.inflight.Load() == 0 && e.Pending() == 0 {
			return errors.Join(errs...)
		}
		select {
		case <-ctx.Done():
			return errors.Join(append(errs, ctx.Err())...)
		case <-e.wake:
		}
	}
}

func (e *Engine) next() (func() error, bool) {
	e.qmu.Lock()
	defer e.qmu.Unlock()
	if len(e.queue) == 0 {
		return nil, false
	}
	task := e.queue[0]
	e.queue[0] = nil
	e.queue = e.queue[1:]
	return task, true
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}
