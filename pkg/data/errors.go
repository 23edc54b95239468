package data

import "errors"

var (
	// ErrProcessorNotFound is returned when a path references an unregistered
	// processor.
	ErrProcessorNotFound = errors.New("data: processor not found")
	// ErrProcessorReadOnly is returned when a set operation ends in a processor
	// that does not accept writes.
	ErrProcessorReadOnly = errors.New("data: processor does not support set")
	// ErrMalformedPath is returned when a path is empty where a terminal
	// segment is required.
	ErrMalformedPath = errors.New("data: malformed path")
	// ErrMalformedProcessorCall flags a processor segment with invalid syntax
	// such as a missing closing parenthesis or an empty name.
	ErrMalformedProcessorCall = errors.New("data: malformed processor call")
	// ErrUnterminatedBinding flags unbalanced binding braces.
	ErrUnterminatedBinding = errors.New("data: unterminated binding")
	// ErrComposedRepeater is returned when a repeater binding is not a single,
	// unprocessed path.
	ErrComposedRepeater = errors.New("data: repeater requires a single unprocessed binding")
	// ErrNotSettable is returned when a value cannot be assigned at a path.
	ErrNotSettable = errors.New("data: value is not settable")
	// ErrModelExists is returned when a named model is registered twice.
	ErrModelExists = errors.New("data: model already registered")
)
