package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/vk/logicrouter/internal/ctxlog"
	"github.com/vk/logicrouter/internal/registry"
)

// Name is the route the module is served on.
const Name = "print"

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed payloads. Defaults to os.Stdout.
	Out io.Writer
}

// Print writes the input to out, one key per line for objects, and returns
// it unchanged.
func Print(ctx context.Context, out io.Writer, input any) (any, error) {
	ctxlog.FromContext(ctx).Info("Printing input")

	obj, ok := input.(map[string]any)
	if !ok {
		if input == nil {
			fmt.Fprintln(out, "      (null)")
		} else {
			fmt.Fprintf(out, "      %v\n", input)
		}
		return input, nil
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(out, "      %s = %v\n", k, obj[k])
	}
	return input, nil
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	r.RegisterHandler(Name, registry.HandlerFunc(func(ctx context.Context, input any) (any, error) {
		return Print(ctx, out, input)
	}))
}
