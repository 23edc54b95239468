package data

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Processor transforms values mid-path. Get receives the current object and
// returns the new current object. Set receives the object that precedes a
// trailing processor segment together with the value being assigned. Either
// hook may be nil.
type Processor struct {
	Get func(current any, ctx Context) (any, error)
	Set func(current, value any, ctx Context) error
}

// ProcessorFunc builds a read-only processor.
func ProcessorFunc(fn func(current any, ctx Context) (any, error)) Processor {
	return Processor{Get: fn}
}

// Processors maps processor names to implementations. Registration is
// expected at setup time; lookups happen on every navigation.
type Processors struct {
	mu      sync.RWMutex
	entries map[string]Processor
}

// DefaultProcessors is the process-wide registry used when no explicit
// registry is supplied.
var DefaultProcessors = NewProcessors()

// NewProcessors creates an empty registry.
func NewProcessors() *Processors {
	return &Processors{entries: make(map[string]Processor)}
}

// Register stores a processor under name, replacing any previous entry.
func (p *Processors) Register(name string, proc Processor) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("data: processor name is required")
	}
	if strings.ContainsAny(name, "/()^") {
		return fmt.Errorf("data: processor name %q contains reserved characters", name)
	}
	if proc.Get == nil && proc.Set == nil {
		return fmt.Errorf("data: processor %q has no get or set hook", name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[name] = proc
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (p *Processors) MustRegister(name string, proc Processor) {
	if err := p.Register(name, proc); err != nil {
		panic(err)
	}
}

// Lookup retrieves a processor by name.
func (p *Processors) Lookup(name string) (Processor, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	proc, ok := p.entries[name]
	return proc, ok
}

// Names returns the sorted registered names.
func (p *Processors) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.entries))
	for name := range p.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone copies the registry so callers can extend it in isolation.
func (p *Processors) Clone() *Processors {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := NewProcessors()
	for name, proc := range p.entries {
		out.entries[name] = proc
	}
	return out
}
