package template

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/goliatone/go-wolf/pkg/data"
	"github.com/goliatone/go-wolf/pkg/dom"
)

const (
	eventPrefix = "event:"
	bindPrefix  = "bind:"
	asciiSpace  = " \t\n\r\f"
)

// DefaultMaxBindingLength caps the length of text considered for binding
// detection. Longer strings are kept literal.
const DefaultMaxBindingLength = 512

// reservedAttributes can not be declared on pseudo elements; they name the
// element hooks.
var reservedAttributes = map[string]struct{}{
	"init":      {},
	"ctor":      {},
	"construct": {},
}

// AttributeSpec declares how an attribute of a pseudo element, or a `wolf:`
// global attribute, may be written.
type AttributeSpec struct {
	Bindable       bool
	Mandatory      bool
	RequireBinding bool
	Default        string
	// Rewrite runs after the element and its children were read and may
	// replace the template outright. Only honoured for global attributes.
	Rewrite func(t *Template) (*Template, error)
}

// ElementSpec is the schema of a pseudo element.
type ElementSpec struct {
	Attributes map[string]AttributeSpec
	// Init validates or decorates the template once it was fully read.
	Init func(t *Template) error
}

// Schema resolves pseudo elements and global attributes during reading.
type Schema interface {
	Element(name string) (ElementSpec, bool)
	GlobalAttribute(name string) (AttributeSpec, bool)
}

// WhitespaceMode selects how text nodes are normalised.
type WhitespaceMode int

const (
	// WhitespaceTrim drops whitespace-only text and collapses whitespace runs
	// to a single space.
	WhitespaceTrim WhitespaceMode = iota
	// WhitespacePreserve keeps text verbatim.
	WhitespacePreserve
)

// ParseWhitespaceMode maps "trim" and "preserve" to a mode.
func ParseWhitespaceMode(value string) (WhitespaceMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "trim":
		return WhitespaceTrim, nil
	case "preserve":
		return WhitespacePreserve, nil
	default:
		return WhitespaceTrim, fmt.Errorf("template: unknown whitespace mode %q", value)
	}
}

func (m WhitespaceMode) String() string {
	if m == WhitespacePreserve {
		return "preserve"
	}
	return "trim"
}

// Options tune the Reader.
type Options struct {
	Whitespace       WhitespaceMode
	MaxBindingLength int
}

// DefaultOptions returns the reader defaults.
func DefaultOptions() Options {
	return Options{Whitespace: WhitespaceTrim, MaxBindingLength: DefaultMaxBindingLength}
}

// Reader turns markup into Templates, validating pseudo elements and global
// attributes against a Schema.
type Reader struct {
	schema Schema
	opts   Options
}

// NewReader builds a Reader. A nil schema knows no pseudo elements and no
// global attributes.
func NewReader(schema Schema, opts Options) *Reader {
	if schema == nil {
		schema = emptySchema{}
	}
	if opts.MaxBindingLength == 0 {
		opts.MaxBindingLength = DefaultMaxBindingLength
	}
	return &Reader{schema: schema, opts: opts}
}

// Options returns the reader configuration.
func (r *Reader) Options() Options {
	return r.opts
}

type readState struct {
	raw      bool
	preserve bool
}

// Read converts node into a Template. Comments and dropped whitespace return
// a nil Template and no error.
func (r *Reader) Read(node *dom.Node) (*Template, error) {
	return r.read(node, readState{})
}

// ReadAll reads a list of nodes, skipping those that produce no template.
func (r *Reader) ReadAll(nodes []*dom.Node) ([]*Template, error) {
	return r.readList(nodes, readState{})
}

// ReadChildren reads the child nodes of node.
func (r *Reader) ReadChildren(node *dom.Node) ([]*Template, error) {
	if node == nil {
		return nil, nil
	}
	return r.readList(node.ChildNodes(), stateFor(readState{}, node.Tag))
}

// ReadHTML reads a node parsed by golang.org/x/net/html.
func (r *Reader) ReadHTML(node *html.Node) (*Template, error) {
	if node == nil {
		return nil, nil
	}
	return r.Read(dom.FromHTML(node))
}

// ReadString parses markup as a body fragment and reads its top-level nodes.
func (r *Reader) ReadString(markup string) ([]*Template, error) {
	nodes, err := dom.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("template: parse markup: %w", err)
	}
	return r.ReadAll(nodes)
}

func (r *Reader) readList(nodes []*dom.Node, st readState) ([]*Template, error) {
	var out []*Template
	for _, node := range nodes {
		t, err := r.read(node, st)
		if err != nil {
			return nil, err
		}
		if t != nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *Reader) read(node *dom.Node, st readState) (*Template, error) {
	if node == nil {
		return nil, nil
	}
	switch node.Type {
	case dom.CommentNode:
		return nil, nil
	case dom.TextNode:
		return r.readText(node.Data, st)
	case dom.ElementNode:
		tag := strings.ToLower(node.Tag)
		if strings.HasPrefix(tag, PseudoPrefix) {
			return r.readPseudo(node, tag, st)
		}
		return r.readElement(node, tag, st)
	default:
		return nil, &ParseError{Tag: node.Type.String(), Err: errors.New("only element, text and comment nodes can be read")}
	}
}

func (r *Reader) readText(text string, st readState) (*Template, error) {
	if !st.preserve && r.opts.Whitespace == WhitespaceTrim {
		if strings.Trim(text, asciiSpace) == "" {
			return nil, nil
		}
		text = collapseWhitespace(text)
	}
	if st.raw || !r.detectBinding(text) {
		return Text(Literal(text)), nil
	}
	b, err := data.ParseBinding(text)
	if err != nil {
		return nil, parseError("#text", "", err)
	}
	return Text(Bound(b)), nil
}

func (r *Reader) readPseudo(node *dom.Node, tag string, st readState) (*Template, error) {
	name := strings.TrimPrefix(tag, PseudoPrefix)
	spec, ok := r.schema.Element(name)
	if !ok {
		return nil, &ParseError{Tag: tag, Err: ErrUnknownElement}
	}

	t := Pseudo(name)
	for _, attr := range node.Attributes() {
		if _, reserved := reservedAttributes[attr.Name]; reserved {
			return nil, &ParseError{Tag: tag, Attribute: attr.Name, Err: ErrReservedAttribute}
		}
		aspec, ok := spec.Attributes[attr.Name]
		if !ok {
			return nil, &ParseError{Tag: tag, Attribute: attr.Name, Err: ErrUnknownAttribute}
		}
		value, err := strictValue(attr.Value)
		if err != nil {
			return nil, parseError(tag, attr.Name, err)
		}
		if err := checkBinding(aspec, value); err != nil {
			return nil, &ParseError{Tag: tag, Attribute: attr.Name, Err: err}
		}
		t.Reserved = append(t.Reserved, Attribute{Name: attr.Name, Value: value})
	}
	if err := checkMandatory(tag, spec, t); err != nil {
		return nil, err
	}

	children, err := r.readList(node.ChildNodes(), st)
	if err != nil {
		return nil, err
	}
	t.Children = children

	if spec.Init != nil {
		if err := spec.Init(t); err != nil {
			return nil, parseError(tag, "", err)
		}
	}
	return t, nil
}

func (r *Reader) readElement(node *dom.Node, tag string, st readState) (*Template, error) {
	t := Element(tag)
	var rewrites []func(*Template) (*Template, error)

	for _, attr := range node.Attributes() {
		switch {
		case attr.Name == "":
			continue
		case strings.HasPrefix(attr.Name, eventPrefix):
			name := strings.TrimPrefix(attr.Name, eventPrefix)
			if strings.ContainsRune(attr.Value, '{') {
				return nil, &ParseError{Tag: tag, Attribute: attr.Name, Err: ErrBoundEvent}
			}
			t.Events = append(t.Events, Event{Name: name, Handler: strings.TrimSpace(attr.Value)})
		case strings.HasPrefix(attr.Name, PseudoPrefix):
			name := strings.TrimPrefix(attr.Name, PseudoPrefix)
			aspec, ok := r.schema.GlobalAttribute(name)
			if !ok {
				return nil, &ParseError{Tag: tag, Attribute: attr.Name, Err: ErrUnknownAttribute}
			}
			value, err := strictValue(attr.Value)
			if err != nil {
				return nil, parseError(tag, attr.Name, err)
			}
			if err := checkBinding(aspec, value); err != nil {
				return nil, &ParseError{Tag: tag, Attribute: attr.Name, Err: err}
			}
			t.Reserved = append(t.Reserved, Attribute{Name: name, Value: value})
			if aspec.Rewrite != nil {
				rewrites = append(rewrites, aspec.Rewrite)
			}
		case strings.HasPrefix(attr.Name, bindPrefix):
			name := strings.TrimPrefix(attr.Name, bindPrefix)
			if !strings.ContainsRune(attr.Value, '{') {
				return nil, &ParseError{Tag: tag, Attribute: attr.Name, Err: ErrBindingRequired}
			}
			b, err := data.ParseBinding(attr.Value)
			if err != nil {
				return nil, parseError(tag, attr.Name, err)
			}
			t.SetAttr(name, Bound(b))
		default:
			value := Literal(attr.Value)
			if r.detectBinding(attr.Value) {
				b, err := data.ParseBinding(attr.Value)
				if err != nil {
					return nil, parseError(tag, attr.Name, err)
				}
				value = Bound(b)
			}
			t.SetAttr(attr.Name, value)
		}
	}

	children, err := r.readList(node.ChildNodes(), stateFor(st, tag))
	if err != nil {
		return nil, err
	}
	t.Children = children

	for _, rewrite := range rewrites {
		next, err := rewrite(t)
		if err != nil {
			return nil, parseError(tag, "", err)
		}
		if next != nil {
			t = next
		}
	}
	return t, nil
}

func stateFor(parent readState, tag string) readState {
	st := parent
	switch tag {
	case "script", "style":
		st.raw = true
	case "textarea":
		st.raw = true
		st.preserve = true
	case "pre":
		st.preserve = true
	}
	return st
}

// detectBinding decides whether literal text is a binding. Text that reads
// like code (statements or blocks) and over-long strings stay literal.
func (r *Reader) detectBinding(text string) bool {
	if !strings.ContainsRune(text, '{') {
		return false
	}
	if r.opts.MaxBindingLength > 0 && len(text) > r.opts.MaxBindingLength {
		return false
	}
	if strings.ContainsRune(text, ';') {
		return false
	}
	for i := 0; i < len(text)-1; i++ {
		if text[i] != '{' {
			continue
		}
		next := text[i+1]
		if next == '{' || strings.IndexByte(asciiSpace, next) >= 0 {
			return false
		}
	}
	return true
}

func strictValue(text string) (Value, error) {
	if !strings.ContainsRune(text, '{') {
		return Literal(text), nil
	}
	b, err := data.ParseBinding(text)
	if err != nil {
		return Value{}, err
	}
	return Bound(b), nil
}

func checkBinding(spec AttributeSpec, value Value) error {
	if value.IsBinding() && !spec.Bindable {
		return ErrNotBindable
	}
	if spec.RequireBinding && !value.IsBinding() {
		return ErrBindingRequired
	}
	return nil
}

func checkMandatory(tag string, spec ElementSpec, t *Template) error {
	names := make([]string, 0, len(spec.Attributes))
	for name, attr := range spec.Attributes {
		if attr.Mandatory {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := t.ReservedAttr(name); !ok {
			return &ParseError{Tag: tag, Attribute: name, Err: ErrMissingAttribute}
		}
	}
	return nil
}

func collapseWhitespace(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for i := 0; i < len(text); i++ {
		if strings.IndexByte(asciiSpace, text[i]) >= 0 {
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		space = false
		b.WriteByte(text[i])
	}
	return b.String()
}

type emptySchema struct{}

func (emptySchema) Element(string) (ElementSpec, bool)           { return ElementSpec{}, false }
func (emptySchema) GlobalAttribute(string) (AttributeSpec, bool) { return AttributeSpec{}, false }
