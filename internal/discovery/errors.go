package discovery

import (
	"fmt"

	"github.com/vk/logicrouter/internal/config"
)

// Error reports that the definitions of a source could not be enumerated.
// It is always fatal to startup.
type Error struct {
	Kind   config.SourceKind
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s discovery failed for %s: %v", e.Kind, e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
