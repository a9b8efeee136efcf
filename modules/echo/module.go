package echo

import (
	"context"

	"github.com/vk/logicrouter/internal/registry"
)

// Name is the route the module is served on.
const Name = "echo"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Echo returns its input unchanged.
func Echo(_ context.Context, input any) (any, error) {
	return input, nil
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler(Name, registry.HandlerFunc(Echo))
}
