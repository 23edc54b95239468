package data

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/goliatone/go-wolf/pkg/dom"
)

// Executor is the live link between one node and one binding. Write pushes
// the current binding value into the node; Read, when present, pulls the node
// value back for write-back bindings.
type Executor struct {
	Node  *dom.Node
	Write func() error
	Read  func() (any, error)

	disposed bool
	cleanup  func()
}

// Dispose retires the executor. It no longer fires and is pruned on the next
// refresh; a repeater also removes the nodes it inserted.
func (x *Executor) Dispose() {
	if x == nil || x.disposed {
		return
	}
	x.disposed = true
	if x.cleanup != nil {
		x.cleanup()
	}
}

// Disposed reports whether Dispose was called.
func (x *Executor) Disposed() bool {
	return x != nil && x.disposed
}

// Disposer is implemented by node extensions that own live bindings.
type Disposer interface {
	Dispose()
}

// DisposeNode disposes the extension attached to n, if it is a Disposer.
func DisposeNode(n *dom.Node) {
	if n == nil {
		return
	}
	if d, ok := n.Ext().(Disposer); ok {
		d.Dispose()
	}
}

// Liveness reports whether an executor's node still belongs to the live
// document. Executors failing the check are pruned on the next refresh.
type Liveness func(node *dom.Node) bool

// ModelOption customises a Model.
type ModelOption func(*Model)

// WithProcessors selects the processor registry used for navigation.
func WithProcessors(processors *Processors) ModelOption {
	return func(m *Model) {
		if processors != nil {
			m.nav = NewNavigator(processors)
		}
	}
}

// WithLiveness replaces the default document-connectivity check, allowing
// headless hosts to decide which nodes are live.
func WithLiveness(fn Liveness) ModelOption {
	return func(m *Model) {
		if fn != nil {
			m.alive = fn
		}
	}
}

// WithLogger sets the logger used for refresh diagnostics.
func WithLogger(logger *slog.Logger) ModelOption {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Model owns a data root and the table of executors keyed by normalised path.
// It is confined to the UI loop and performs no locking.
type Model struct {
	data     any
	bindings map[string][]*Executor
	// order lists binding paths by first registration.
	order    []string
	nav      *Navigator
	alive    Liveness
	logger   *slog.Logger
}

// NewModel creates a model over root. A nil root starts as an empty map.
func NewModel(root any, opts ...ModelOption) *Model {
	if root == nil {
		root = map[string]any{}
	}
	m := &Model{
		data:     root,
		bindings: make(map[string][]*Executor),
		nav:      NewNavigator(nil),
		alive:    defaultLiveness,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(m)
	}
	return m
}

func defaultLiveness(node *dom.Node) bool {
	return node == nil || node.IsConnected()
}

// Data returns the data root.
func (m *Model) Data() any {
	return m.data
}

// Navigator exposes the navigator used by the model.
func (m *Model) Navigator() *Navigator {
	return m.nav
}

// SetData replaces the data root and refreshes every binding.
func (m *Model) SetData(root any) error {
	if root == nil {
		root = map[string]any{}
	}
	m.data = root
	return m.Refresh("")
}

// GetProperty reads the value at path.
func (m *Model) GetProperty(path string, ctx Context) (any, error) {
	ctx.Model = m
	return m.nav.Get(m.data, path, ctx)
}

// SetProperty writes value at path and refreshes the bindings under it.
func (m *Model) SetProperty(path string, value any, ctx Context) error {
	ctx.Model = m
	if err := m.nav.Set(m.data, path, value, ctx); err != nil {
		return err
	}
	return m.Refresh(path)
}

// AddExecutor registers exec at path without firing it.
func (m *Model) AddExecutor(path string, exec *Executor) {
	if exec == nil {
		return
	}
	key := normalizePath(path)
	if _, ok := m.bindings[key]; !ok {
		m.order = append(m.order, key)
	}
	m.bindings[key] = append(m.bindings[key], exec)
}

// RegisterExecutor registers exec at path and fires its write once, so the
// initial paint happens before the call returns.
func (m *Model) RegisterExecutor(path string, exec *Executor) error {
	if exec == nil {
		return fmt.Errorf("data: executor is required")
	}
	m.AddExecutor(path, exec)
	if exec.Write == nil {
		return nil
	}
	return exec.Write()
}

// ExecutorCount reports how many executors are registered at path.
func (m *Model) ExecutorCount(path string) int {
	return len(m.bindings[normalizePath(path)])
}

// Paths lists the registered binding paths in first-registration order.
func (m *Model) Paths() []string {
	return append([]string(nil), m.order...)
}

type pendingWrite struct {
	path string
	exec *Executor
}

// Refresh fires every executor registered at path or below it on a `/`
// boundary. An empty path or `/` refreshes everything. Executors whose node is
// no longer live are removed. The table is snapshotted up front so writes may
// re-enter the model; an executor registered under several matching paths
// fires once per pass. The first write error aborts the pass.
func (m *Model) Refresh(path string) error {
	target := normalizePath(path)
	if target == "/" {
		target = ""
	}

	var batch []pendingWrite
	for _, key := range m.Paths() {
		if !pathMatches(key, target) {
			continue
		}
		for _, exec := range m.bindings[key] {
			batch = append(batch, pendingWrite{path: key, exec: exec})
		}
	}

	fired := make(map[*Executor]struct{}, len(batch))
	for _, item := range batch {
		if item.exec.disposed || !m.alive(item.exec.Node) {
			m.prune(item.path, item.exec)
			continue
		}
		if _, done := fired[item.exec]; done {
			continue
		}
		fired[item.exec] = struct{}{}
		if item.exec.Write == nil {
			continue
		}
		if err := item.exec.Write(); err != nil {
			return err
		}
	}
	return nil
}

// RefreshElement fires every executor whose node lies inside the subtree
// rooted at node. Used after a subtree's context path changes.
func (m *Model) RefreshElement(node *dom.Node) error {
	if node == nil {
		return nil
	}
	var batch []*Executor
	for _, key := range m.Paths() {
		for _, exec := range m.bindings[key] {
			if exec.Node != nil && node.Contains(exec.Node) {
				batch = append(batch, exec)
			}
		}
	}
	fired := make(map[*Executor]struct{}, len(batch))
	for _, exec := range batch {
		if exec.disposed {
			continue
		}
		if _, done := fired[exec]; done {
			continue
		}
		fired[exec] = struct{}{}
		if exec.Write == nil {
			continue
		}
		if err := exec.Write(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) prune(path string, exec *Executor) {
	list := m.bindings[path]
	for i, candidate := range list {
		if candidate != exec {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		break
	}
	if len(list) == 0 {
		delete(m.bindings, path)
		for i, key := range m.order {
			if key == path {
				m.order = append(m.order[:i:i], m.order[i+1:]...)
				break
			}
		}
	} else {
		m.bindings[path] = list
	}
	m.logger.Debug("pruned detached binding executor", "path", path)
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path == "/" {
		return "/"
	}
	if path[0] != '/' {
		path = "/" + path
	}
	if trimmed := strings.TrimRight(path, "/"); trimmed != "" {
		path = trimmed
	}
	return path
}

func pathMatches(registered, target string) bool {
	if target == "" {
		return true
	}
	if registered == target {
		return true
	}
	return len(registered) > len(target) &&
		strings.HasPrefix(registered, target) &&
		registered[len(target)] == '/'
}

// Models holds the default model and named secondary models.
type Models struct {
	mu    sync.RWMutex
	def   *Model
	named map[string]*Model
}

// NewModels builds a table around the default model.
func NewModels(def *Model) *Models {
	if def == nil {
		def = NewModel(nil)
	}
	return &Models{def: def, named: make(map[string]*Model)}
}

// Default returns the default model.
func (r *Models) Default() *Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def
}

// Register adds a named model. Duplicate ids return ErrModelExists.
func (r *Models) Register(id string, m *Model) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("data: model id is required")
	}
	if m == nil {
		return fmt.Errorf("data: model %q is nil", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.named[id]; exists {
		return fmt.Errorf("%w: %q", ErrModelExists, id)
	}
	r.named[id] = m
	return nil
}

// Lookup returns a named model. An empty id resolves to the default model.
func (r *Models) Lookup(id string) (*Model, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return r.Default(), true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.named[id]
	return m, ok
}
