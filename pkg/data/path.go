package data

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-wolf/pkg/dom"
)

// ProcessorMarker prefixes a path segment that invokes a processor.
const ProcessorMarker = '^'

// Context travels with every navigation. Node is the originating node when a
// binding triggered the call; Args is filled per processor invocation.
type Context struct {
	Node  *dom.Node
	Model *Model
	Scope Scope
	Mode  string
	Args  string
}

// Scope resolves binding paths relative to a node's context path.
type Scope interface {
	ResolvePath(node *dom.Node, path string) (string, error)
}

// ScopeFunc adapts a function into a Scope.
type ScopeFunc func(node *dom.Node, path string) (string, error)

// ResolvePath delegates to the wrapped function.
func (fn ScopeFunc) ResolvePath(node *dom.Node, path string) (string, error) {
	return fn(node, path)
}

func (c Context) resolve(path string) (string, error) {
	if c.Scope == nil {
		return path, nil
	}
	return c.Scope.ResolvePath(c.Node, path)
}

type segment struct {
	name      string
	processor bool
	args      string
}

func (s segment) String() string {
	if !s.processor {
		return s.name
	}
	if s.args == "" {
		return string(ProcessorMarker) + s.name
	}
	return fmt.Sprintf("%c%s(%s)", ProcessorMarker, s.name, s.args)
}

// Path is a compiled `/`-separated path.
type Path struct {
	raw      string
	segments []segment
}

// CompilePath validates and splits a path. Empty segments are dropped, so
// `a//b/` and `a/b` navigate identically.
func CompilePath(raw string) (Path, error) {
	parts, err := splitSegments(raw)
	if err != nil {
		return Path{}, err
	}
	out := Path{raw: raw}
	for _, part := range parts {
		if part == "" {
			continue
		}
		seg, err := parseSegment(part)
		if err != nil {
			return Path{}, err
		}
		out.segments = append(out.segments, seg)
	}
	return out, nil
}

// String returns the source text of the path.
func (p Path) String() string { return p.raw }

// HasProcessor reports whether any segment invokes a processor.
func (p Path) HasProcessor() bool {
	for _, seg := range p.segments {
		if seg.processor {
			return true
		}
	}
	return false
}

// Prefix returns the source text before the first processor segment with
// trailing separators removed. Paths without processors return themselves.
func (p Path) Prefix() string {
	idx := strings.IndexRune(p.raw, ProcessorMarker)
	if idx < 0 {
		return p.raw
	}
	return strings.TrimRight(p.raw[:idx], "/")
}

func splitSegments(raw string) ([]string, error) {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unexpected ')' in %q", ErrMalformedProcessorCall, raw)
			}
		case '/':
			if depth == 0 {
				parts = append(parts, raw[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: missing ')' in %q", ErrMalformedProcessorCall, raw)
	}
	return append(parts, raw[start:]), nil
}

func parseSegment(raw string) (segment, error) {
	if raw[0] != ProcessorMarker {
		if strings.ContainsAny(raw, "()") {
			return segment{}, fmt.Errorf("%w: parentheses outside processor segment %q", ErrMalformedProcessorCall, raw)
		}
		return segment{name: raw}, nil
	}
	body := raw[1:]
	seg := segment{processor: true, name: body}
	if open := strings.IndexByte(body, '('); open >= 0 {
		if !strings.HasSuffix(body, ")") {
			return segment{}, fmt.Errorf("%w: %q", ErrMalformedProcessorCall, raw)
		}
		seg.name = body[:open]
		seg.args = body[open+1 : len(body)-1]
	}
	seg.name = strings.TrimSpace(seg.name)
	if seg.name == "" {
		return segment{}, fmt.Errorf("%w: empty processor name in %q", ErrMalformedProcessorCall, raw)
	}
	return seg, nil
}

// Navigator resolves paths against nested data, invoking processors from the
// configured registry.
type Navigator struct {
	processors *Processors
}

// NewNavigator builds a navigator over the given registry. A nil registry
// falls back to DefaultProcessors.
func NewNavigator(processors *Processors) *Navigator {
	if processors == nil {
		processors = DefaultProcessors
	}
	return &Navigator{processors: processors}
}

// Processors exposes the registry used by the navigator.
func (n *Navigator) Processors() *Processors {
	return n.processors
}

// Get resolves path against root. An empty path returns root. Missing keys
// resolve to nil.
func (n *Navigator) Get(root any, path string, ctx Context) (any, error) {
	compiled, err := CompilePath(path)
	if err != nil {
		return nil, err
	}
	return n.get(root, compiled, ctx)
}

// GetFirst returns the first path that yields a non-nil value.
func (n *Navigator) GetFirst(root any, paths []string, ctx Context) (any, error) {
	for _, path := range paths {
		value, err := n.Get(root, path, ctx)
		if err != nil {
			return nil, err
		}
		if value != nil {
			return value, nil
		}
	}
	return nil, nil
}

func (n *Navigator) get(root any, path Path, ctx Context) (any, error) {
	current := root
	for _, seg := range path.segments {
		if seg.processor {
			proc, err := n.lookup(seg.name)
			if err != nil {
				return nil, err
			}
			if proc.Get == nil {
				return nil, fmt.Errorf("data: processor %q does not support get", seg.name)
			}
			pctx := ctx
			pctx.Args = seg.args
			current, err = proc.Get(current, pctx)
			if err != nil {
				return nil, fmt.Errorf("data: processor %q: %w", seg.name, err)
			}
			continue
		}
		current = child(current, seg.name)
	}
	return current, nil
}

// Set assigns value at path, creating intermediate maps for missing
// segments. Intermediates are never created through a processor; a trailing
// processor receives the value to assign.
func (n *Navigator) Set(root any, path string, value any, ctx Context) error {
	compiled, err := CompilePath(path)
	if err != nil {
		return err
	}
	if len(compiled.segments) == 0 || strings.HasSuffix(strings.TrimSpace(path), "/") {
		return fmt.Errorf("%w: %q is missing its terminal segment", ErrMalformedPath, path)
	}

	current := root
	last := len(compiled.segments) - 1
	for _, seg := range compiled.segments[:last] {
		if seg.processor {
			proc, err := n.lookup(seg.name)
			if err != nil {
				return err
			}
			if proc.Get == nil {
				return fmt.Errorf("data: processor %q does not support get", seg.name)
			}
			pctx := ctx
			pctx.Args = seg.args
			current, err = proc.Get(current, pctx)
			if err != nil {
				return fmt.Errorf("data: processor %q: %w", seg.name, err)
			}
			if current == nil {
				return fmt.Errorf("%w: processor %q broke the navigation of %q", ErrNotSettable, seg.name, path)
			}
			continue
		}
		next := child(current, seg.name)
		if next == nil {
			created := map[string]any{}
			if err := assign(current, seg.name, created); err != nil {
				return err
			}
			next = created
		}
		current = next
	}

	seg := compiled.segments[last]
	if seg.processor {
		proc, err := n.lookup(seg.name)
		if err != nil {
			return err
		}
		if proc.Set == nil {
			return fmt.Errorf("%w: %q", ErrProcessorReadOnly, seg.name)
		}
		pctx := ctx
		pctx.Args = seg.args
		if err := proc.Set(current, value, pctx); err != nil {
			return fmt.Errorf("data: processor %q: %w", seg.name, err)
		}
		return nil
	}
	return assign(current, seg.name, value)
}

func (n *Navigator) lookup(name string) (Processor, error) {
	proc, ok := n.processors.Lookup(name)
	if !ok {
		return Processor{}, fmt.Errorf("%w: %q", ErrProcessorNotFound, name)
	}
	return proc, nil
}

var defaultNavigator = NewNavigator(nil)

// Get resolves path against root using DefaultProcessors.
func Get(root any, path string, ctx Context) (any, error) {
	return defaultNavigator.Get(root, path, ctx)
}

// GetFirst resolves the first defined path using DefaultProcessors.
func GetFirst(root any, paths []string, ctx Context) (any, error) {
	return defaultNavigator.GetFirst(root, paths, ctx)
}

// Set assigns value at path using DefaultProcessors.
func Set(root any, path string, value any, ctx Context) error {
	return defaultNavigator.Set(root, path, value, ctx)
}

func child(current any, key string) any {
	switch v := current.(type) {
	case nil:
		return nil
	case map[string]any:
		return v[key]
	case []any:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(v) {
			return nil
		}
		return v[idx]
	}

	rv := indirect(reflect.ValueOf(current))
	if !rv.IsValid() {
		return nil
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		val := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil
		}
		return val.Interface()
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil
		}
		return rv.Index(idx).Interface()
	case reflect.Struct:
		field, ok := structField(rv, key)
		if !ok || !field.CanInterface() {
			return nil
		}
		return field.Interface()
	}
	return nil
}

func assign(container any, key string, value any) error {
	switch v := container.(type) {
	case nil:
		return fmt.Errorf("%w: cannot set %q on nil", ErrNotSettable, key)
	case map[string]any:
		v[key] = value
		return nil
	case []any:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(v) {
			return fmt.Errorf("%w: index %q out of range", ErrNotSettable, key)
		}
		v[idx] = value
		return nil
	}

	rv := reflect.ValueOf(container)
	for rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("%w: cannot set %q on %T", ErrNotSettable, key, container)
		}
		val, err := convertValue(value, rv.Type().Elem())
		if err != nil {
			return err
		}
		rv.SetMapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()), val)
		return nil
	case reflect.Ptr:
		elem := rv.Elem()
		switch elem.Kind() {
		case reflect.Struct:
			field, ok := structField(elem, key)
			if !ok || !field.CanSet() {
				return fmt.Errorf("%w: field %q on %T", ErrNotSettable, key, container)
			}
			val, err := convertValue(value, field.Type())
			if err != nil {
				return err
			}
			field.Set(val)
			return nil
		case reflect.Slice:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= elem.Len() {
				return fmt.Errorf("%w: index %q out of range", ErrNotSettable, key)
			}
			val, err := convertValue(value, elem.Type().Elem())
			if err != nil {
				return err
			}
			elem.Index(idx).Set(val)
			return nil
		}
	case reflect.Slice:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return fmt.Errorf("%w: index %q out of range", ErrNotSettable, key)
		}
		val, err := convertValue(value, rv.Type().Elem())
		if err != nil {
			return err
		}
		rv.Index(idx).Set(val)
		return nil
	}
	return fmt.Errorf("%w: cannot set %q on %T", ErrNotSettable, key, container)
}

func convertValue(value any, target reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(target), nil
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(target) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(target) {
		return rv.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %T is not assignable to %s", ErrNotSettable, value, target)
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func structField(rv reflect.Value, key string) (reflect.Value, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			if tagName := strings.Split(tag, ",")[0]; tagName != "" && tagName != "-" {
				name = tagName
			}
		}
		if name == key || field.Name == key {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// Each iterates a collection: slices and arrays in index order, string-keyed
// maps in sorted key order. It reports false when value is not a collection.
func Each(value any, fn func(key string, item any) error) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case []any:
		for i, item := range v {
			if err := fn(strconv.Itoa(i), item); err != nil {
				return true, err
			}
		}
		return true, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := fn(key, v[key]); err != nil {
				return true, err
			}
		}
		return true, nil
	}

	rv := indirect(reflect.ValueOf(value))
	if !rv.IsValid() {
		return false, nil
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := fn(strconv.Itoa(i), rv.Index(i).Interface()); err != nil {
				return true, err
			}
		}
		return true, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return false, nil
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, key := range keys {
			if err := fn(key.String(), rv.MapIndex(key).Interface()); err != nil {
				return true, err
			}
		}
		return true, nil
	}
	return false, nil
}

// Stringify renders a resolved value the way text and attribute bindings
// display it. Nil renders as an empty string.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
