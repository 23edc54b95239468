package ui

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-wolf/pkg/dom"
	"github.com/goliatone/go-wolf/pkg/template"
)

// Built-in pseudo element names. They can not be registered or overridden.
const (
	ElementFragment = "fragment"
	ElementRepeat   = "repeat"
	ElementControl  = "control"
	ElementChildren = "children"
)

var builtinElements = map[string]struct{}{
	ElementFragment: {},
	ElementRepeat:   {},
	ElementControl:  {},
	ElementChildren: {},
}

// ConstructFunc produces the live nodes for a pseudo element template.
type ConstructFunc func(e *Engine, t *template.Template, ext Ext) ([]*dom.Node, error)

// ElementDescriptor registers a pseudo element: its attribute schema, the
// init hook run once per template while reading, and the construct hook run
// once per instantiation.
type ElementDescriptor struct {
	Attributes map[string]template.AttributeSpec
	Init       func(t *template.Template) error
	Construct  ConstructFunc
}

// GlobalAttribute registers a `wolf:` attribute for plain elements. Apply
// runs during instantiation after plain attributes were set.
type GlobalAttribute struct {
	Spec  template.AttributeSpec
	Apply func(el *Element, value template.Value) error
}

// Registry holds the element, global attribute, controller and behaviour
// tables of an engine. It implements template.Schema.
type Registry struct {
	mu          sync.RWMutex
	elements    map[string]ElementDescriptor
	attributes  map[string]GlobalAttribute
	controllers map[string]Controller
	behaviors   map[string]BehaviorFactory
	logger      *slog.Logger
}

var _ template.Schema = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		elements:    make(map[string]ElementDescriptor),
		attributes:  make(map[string]GlobalAttribute),
		controllers: make(map[string]Controller),
		behaviors:   make(map[string]BehaviorFactory),
		logger:      logger,
	}
}

// RegisterElement adds a pseudo element. Duplicate and built-in names return
// an error.
func (r *Registry) RegisterElement(name string, desc ElementDescriptor) error {
	name, err := normaliseName(name)
	if err != nil {
		return err
	}
	if _, reserved := builtinElements[name]; reserved {
		return fmt.Errorf("%w: %q", ErrReservedName, name)
	}
	if desc.Construct == nil {
		return fmt.Errorf("ui: element %q has no construct hook", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.elements[name]; exists {
		return fmt.Errorf("%w: element %q", ErrAlreadyRegistered, name)
	}
	r.elements[name] = desc
	return nil
}

// defineElement installs desc unconditionally. Control definitions use it so
// reloading a library replaces earlier definitions.
func (r *Registry) defineElement(name string, desc ElementDescriptor) {
	r.mu.Lock()
	_, exists := r.elements[name]
	r.elements[name] = desc
	r.mu.Unlock()
	if exists {
		r.logger.Warn("element definition replaced", "element", template.PseudoPrefix+name)
	}
}

// Descriptor returns the registered element descriptor.
func (r *Registry) Descriptor(name string) (ElementDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.elements[name]
	return desc, ok
}

// Element implements template.Schema.
func (r *Registry) Element(name string) (template.ElementSpec, bool) {
	desc, ok := r.Descriptor(name)
	if !ok {
		return template.ElementSpec{}, false
	}
	return template.ElementSpec{Attributes: desc.Attributes, Init: desc.Init}, true
}

// Elements lists the registered element names.
func (r *Registry) Elements() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.elements)
}

// RegisterAttribute adds a global `wolf:` attribute.
func (r *Registry) RegisterAttribute(name string, attr GlobalAttribute) error {
	name, err := normaliseName(name)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.attributes[name]; exists {
		return fmt.Errorf("%w: attribute %q", ErrAlreadyRegistered, name)
	}
	r.attributes[name] = attr
	return nil
}

// Attribute returns a registered global attribute.
func (r *Registry) Attribute(name string) (GlobalAttribute, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	attr, ok := r.attributes[name]
	return attr, ok
}

// GlobalAttribute implements template.Schema.
func (r *Registry) GlobalAttribute(name string) (template.AttributeSpec, bool) {
	attr, ok := r.Attribute(name)
	return attr.Spec, ok
}

// RegisterController makes a controller available to `controller`
// references and applications.
func (r *Registry) RegisterController(name string, ctrl Controller) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("ui: controller name is required")
	}
	if ctrl == nil {
		return fmt.Errorf("ui: controller %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.controllers[name]; exists {
		return fmt.Errorf("%w: controller %q", ErrAlreadyRegistered, name)
	}
	r.controllers[name] = ctrl
	return nil
}

// Controller resolves a controller by name.
func (r *Registry) Controller(name string) (Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctrl, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrControllerNotFound, name)
	}
	return ctrl, nil
}

// RegisterBehavior makes a control behaviour available to `<script>`
// sections of control definitions.
func (r *Registry) RegisterBehavior(name string, factory BehaviorFactory) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("ui: behavior name is required")
	}
	if factory == nil {
		return fmt.Errorf("ui: behavior %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.behaviors[name]; exists {
		return fmt.Errorf("%w: behavior %q", ErrAlreadyRegistered, name)
	}
	r.behaviors[name] = factory
	return nil
}

// Behavior resolves a behaviour factory by name.
func (r *Registry) Behavior(name string) (BehaviorFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.behaviors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBehaviorNotFound, name)
	}
	return factory, nil
}

func (r *Registry) registerBuiltin(name string, desc ElementDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elements[name] = desc
}

func normaliseName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, template.PseudoPrefix)
	if name == "" {
		return "", fmt.Errorf("ui: name is required")
	}
	if strings.ContainsAny(name, ": \t\n") {
		return "", fmt.Errorf("ui: name %q contains reserved characters", name)
	}
	return name, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
