package template

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownElement flags a pseudo element missing from the registry.
	ErrUnknownElement = errors.New("template: unknown element")
	// ErrUnknownAttribute flags an attribute the element schema does not declare.
	ErrUnknownAttribute = errors.New("template: unknown attribute")
	// ErrNotBindable flags a binding given to a non-bindable attribute.
	ErrNotBindable = errors.New("template: attribute does not accept bindings")
	// ErrBindingRequired flags a literal given where only bindings are allowed.
	ErrBindingRequired = errors.New("template: attribute requires a binding")
	// ErrMissingAttribute flags a mandatory attribute that was not supplied.
	ErrMissingAttribute = errors.New("template: missing mandatory attribute")
	// ErrReservedAttribute flags attribute names reserved for hooks.
	ErrReservedAttribute = errors.New("template: reserved attribute name")
	// ErrBoundEvent flags an event handler given as a binding.
	ErrBoundEvent = errors.New("template: events can not be bound")
	// ErrInvalidChildren flags an element whose children violate its schema.
	ErrInvalidChildren = errors.New("template: invalid children")
)

// ParseError reports a template that can not be read, identifying the
// offending tag and attribute.
type ParseError struct {
	Tag       string
	Attribute string
	Err       error
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Tag != "" && e.Attribute != "":
		return fmt.Sprintf("template: <%s> attribute %q: %v", e.Tag, e.Attribute, e.Err)
	case e.Tag != "":
		return fmt.Sprintf("template: <%s>: %v", e.Tag, e.Err)
	default:
		return fmt.Sprintf("template: %v", e.Err)
	}
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func parseError(tag, attr string, err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	return &ParseError{Tag: tag, Attribute: attr, Err: err}
}

// Errorf builds a ParseError for a tag, wrapping a formatted cause. Element
// init hooks use it to report schema violations.
func Errorf(tag, attr string, err error, format string, args ...any) error {
	if format == "" {
		return &ParseError{Tag: tag, Attribute: attr, Err: err}
	}
	return &ParseError{Tag: tag, Attribute: attr, Err: fmt.Errorf("%w: "+format, append([]any{err}, args...)...)}
}
