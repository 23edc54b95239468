package ui

import "errors"

var (
	// ErrControllerNotFound is returned when a controller name is not registered
	// or an event fires outside of any controller.
	ErrControllerNotFound = errors.New("ui: controller not found")
	// ErrMethodNotFound is returned when a controller lacks an event method.
	ErrMethodNotFound = errors.New("ui: controller method not found")
	// ErrDetachedNode is returned when context resolution walks a cyclic
	// parent chain.
	ErrDetachedNode = errors.New("ui: node is detached from its parent chain")
	// ErrFragmentNotFound is returned for named fragments that were never loaded.
	ErrFragmentNotFound = errors.New("ui: fragment not found")
	// ErrBehaviorNotFound is returned when a control script names an
	// unregistered behaviour.
	ErrBehaviorNotFound = errors.New("ui: behavior not found")
	// ErrInvalidControl flags a malformed control definition.
	ErrInvalidControl = errors.New("ui: invalid control definition")
	// ErrAlreadyRegistered is returned for duplicate registry entries.
	ErrAlreadyRegistered = errors.New("ui: already registered")
	// ErrReservedName is returned when registering over a built-in element.
	ErrReservedName = errors.New("ui: reserved element name")
)
