package script

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/vk/logicrouter/internal/config"
)

var (
	// ErrNoEntryPoint is reported when a script defines no callable.
	ErrNoEntryPoint = errors.New("no callable entry point")
	// ErrAmbiguousEntryPoint is reported when a script defines several
	// callables and none is named after the definition.
	ErrAmbiguousEntryPoint = errors.New("ambiguous entry point")
)

// ResolutionError reports that a definition could not be bound to a handler.
type ResolutionError struct {
	Name   string
	Source string
	Err    error
}

func newResolutionError(def *config.LogicDefinition, err error) *ResolutionError {
	return &ResolutionError{Name: def.Name, Source: def.Source, Err: err}
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve handler for '%s' (%s): %v", e.Name, e.Source, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
