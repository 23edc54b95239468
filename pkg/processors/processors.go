// Package processors ships the stock path processors: collection helpers,
// string casing, JSON encoding, HTML sanitising and pongo2 templates.
//
//	{items/^count}        number of entries
//	{user/name/^upper}    upper-cased text
//	{bio/^sanitize}       UGC-safe HTML
//	{card/^tpl(summary)}  named pongo2 template rendered with card as context
package processors

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/goccy/go-json"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-wolf/pkg/data"
)

var (
	// ErrTemplateNotFound is returned by tpl when the named template is not
	// registered.
	ErrTemplateNotFound = errors.New("processors: template not found")
	// ErrJSONTarget is returned when a json write does not land on an object.
	ErrJSONTarget = errors.New("processors: json value must decode into an object")
)

// Option configures Register.
type Option func(*options)

type options struct {
	templates map[string]string
	fsys      fs.FS
	policy    *bluemonday.Policy
}

// WithTemplates registers inline pongo2 sources addressable by name from tpl.
func WithTemplates(templates map[string]string) Option {
	return func(o *options) {
		if o.templates == nil {
			o.templates = make(map[string]string, len(templates))
		}
		for name, src := range templates {
			o.templates[name] = src
		}
	}
}

// WithTemplateFS serves tpl names that are not registered inline from fsys.
func WithTemplateFS(fsys fs.FS) Option {
	return func(o *options) {
		o.fsys = fsys
	}
}

// WithSanitizePolicy replaces the UGC policy used by sanitize.
func WithSanitizePolicy(policy *bluemonday.Policy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// Register installs the stock processors into reg. Existing entries with the
// same names are replaced.
func Register(reg *data.Processors, opts ...Option) error {
	if reg == nil {
		return errors.New("processors: registry is nil")
	}
	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	tpl, err := newTemplates(cfg)
	if err != nil {
		return err
	}
	policy := cfg.policy
	if policy == nil {
		policy = ugcPolicy()
	}

	entries := map[string]data.Processor{
		"count":    data.ProcessorFunc(count),
		"keys":     data.ProcessorFunc(keys),
		"upper":    data.ProcessorFunc(mapString(strings.ToUpper)),
		"lower":    data.ProcessorFunc(mapString(strings.ToLower)),
		"trim":     data.ProcessorFunc(mapString(strings.TrimSpace)),
		"default":  data.ProcessorFunc(fallback),
		"join":     data.ProcessorFunc(join),
		"not":      data.ProcessorFunc(not),
		"json":     {Get: encodeJSON, Set: decodeJSON},
		"sanitize": data.ProcessorFunc(sanitizer(policy)),
		"tpl":      data.ProcessorFunc(tpl.render),
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := reg.Register(name, entries[name]); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister panics when Register fails.
func MustRegister(reg *data.Processors, opts ...Option) {
	if err := Register(reg, opts...); err != nil {
		panic(err)
	}
}

func count(current any, _ data.Context) (any, error) {
	switch v := current.(type) {
	case nil:
		return 0, nil
	case string:
		return len([]rune(v)), nil
	}
	n := 0
	ok, err := data.Each(current, func(string, any) error {
		n++
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("processors: count: %T is not a collection", current)
	}
	return n, nil
}

func keys(current any, _ data.Context) (any, error) {
	if current == nil {
		return []any{}, nil
	}
	out := []any{}
	ok, err := data.Each(current, func(key string, _ any) error {
		out = append(out, key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("processors: keys: %T is not a collection", current)
	}
	return out, nil
}

func mapString(fn func(string) string) func(any, data.Context) (any, error) {
	return func(current any, _ data.Context) (any, error) {
		if current == nil {
			return nil, nil
		}
		return fn(data.Stringify(current)), nil
	}
}

func fallback(current any, ctx data.Context) (any, error) {
	if current == nil {
		return ctx.Args, nil
	}
	if s, ok := current.(string); ok && s == "" {
		return ctx.Args, nil
	}
	return current, nil
}

func join(current any, ctx data.Context) (any, error) {
	if current == nil {
		return nil, nil
	}
	sep := ctx.Args
	if sep == "" {
		sep = ","
	}
	var parts []string
	ok, err := data.Each(current, func(_ string, item any) error {
		parts = append(parts, data.Stringify(item))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return data.Stringify(current), nil
	}
	return strings.Join(parts, sep), nil
}

func not(current any, _ data.Context) (any, error) {
	return !truthy(current), nil
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func encodeJSON(current any, ctx data.Context) (any, error) {
	var (
		out []byte
		err error
	)
	if ctx.Args == "pretty" {
		out, err = json.MarshalIndent(current, "", "  ")
	} else {
		out, err = json.Marshal(current)
	}
	if err != nil {
		return nil, fmt.Errorf("processors: json encode: %w", err)
	}
	return string(out), nil
}

// decodeJSON merges a JSON object into the map that precedes the processor.
func decodeJSON(current, value any, _ data.Context) error {
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("processors: json decode: expected text, got %T", value)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrJSONTarget, err)
	}
	target, ok := current.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: cannot merge into %T", ErrJSONTarget, current)
	}
	for key, val := range decoded {
		target[key] = val
	}
	return nil
}

var (
	ugcOnce sync.Once
	ugc     *bluemonday.Policy
)

func ugcPolicy() *bluemonday.Policy {
	ugcOnce.Do(func() {
		ugc = bluemonday.UGCPolicy()
	})
	return ugc
}

func sanitizer(policy *bluemonday.Policy) func(any, data.Context) (any, error) {
	return func(current any, _ data.Context) (any, error) {
		if current == nil {
			return nil, nil
		}
		return strings.TrimSpace(policy.Sanitize(data.Stringify(current))), nil
	}
}

type templates struct {
	mu       sync.Mutex
	set      *pongo2.TemplateSet
	compiled map[string]*pongo2.Template
}

func newTemplates(cfg options) (*templates, error) {
	t := &templates{compiled: make(map[string]*pongo2.Template)}
	if cfg.fsys != nil {
		t.set = pongo2.NewSet("wolf", pongo2.NewFSLoader(cfg.fsys))
	}
	for name, src := range cfg.templates {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.New("processors: template name is required")
		}
		var (
			compiled *pongo2.Template
			err      error
		)
		if t.set != nil {
			compiled, err = t.set.FromString(src)
		} else {
			compiled, err = pongo2.FromString(src)
		}
		if err != nil {
			return nil, fmt.Errorf("processors: compile template %q: %w", name, err)
		}
		t.compiled[name] = compiled
	}
	return t, nil
}

func (t *templates) lookup(name string) (*pongo2.Template, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if compiled, ok := t.compiled[name]; ok {
		return compiled, nil
	}
	if t.set == nil {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	compiled, err := t.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("processors: load template %q: %w", name, err)
	}
	t.compiled[name] = compiled
	return compiled, nil
}

func (t *templates) render(current any, ctx data.Context) (any, error) {
	name := strings.TrimSpace(ctx.Args)
	if name == "" {
		return nil, fmt.Errorf("%w: tpl needs a template name", ErrTemplateNotFound)
	}
	compiled, err := t.lookup(name)
	if err != nil {
		return nil, err
	}
	out, err := compiled.Execute(templateContext(current))
	if err != nil {
		return nil, fmt.Errorf("processors: execute template %q: %w", name, err)
	}
	return out, nil
}

// templateContext exposes map keys directly; any other value is reachable as
// "value".
func templateContext(current any) pongo2.Context {
	if m, ok := current.(map[string]any); ok {
		ctx := make(pongo2.Context, len(m))
		for key, val := range m {
			ctx[key] = val
		}
		return ctx
	}
	return pongo2.Context{"value": current}
}
