package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vk/logicrouter/internal/config"
)

// Module is the interface that all compiled-in plugins must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// ReservedNames are route names owned by the router itself.
var ReservedNames = []string{"ping", "metrics"}

// HandlerRef binds one definition to its resolved handler. It is immutable
// once registered.
type HandlerRef struct {
	Definition *config.LogicDefinition
	Handler    Handler
}

// Name returns the route name of the reference.
func (h *HandlerRef) Name() string {
	return h.Definition.Name
}

// ConflictError reports a definition that cannot be given a route.
type ConflictError struct {
	Name     string
	Reason   string
	Existing *config.LogicDefinition
}

func (e *ConflictError) Error() string {
	if e.Existing != nil {
		return fmt.Sprintf("route '/%s' %s (already bound to %s %s)", e.Name, e.Reason, e.Existing.Origin, describe(e.Existing))
	}
	return fmt.Sprintf("route '/%s' %s", e.Name, e.Reason)
}

func describe(def *config.LogicDefinition) string {
	if def.Source != "" {
		return def.Source
	}
	return def.Name
}

// Registry holds the handler of every route for a single application instance.
type Registry struct {
	refs map[string]*HandlerRef
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		refs: make(map[string]*HandlerRef),
	}
}

// Bind registers h as the handler of def. It fails when the name is
// malformed, reserved, or already taken.
func (r *Registry) Bind(def *config.LogicDefinition, h Handler) error {
	if err := ValidateName(def.Name); err != nil {
		return err
	}
	if existing, ok := r.refs[def.Name]; ok {
		return &ConflictError{Name: def.Name, Reason: "is defined more than once", Existing: existing.Definition}
	}
	slog.Debug("Binding handler.", "name", def.Name, "origin", def.Origin)
	r.refs[def.Name] = &HandlerRef{Definition: def, Handler: h}
	return nil
}

// RegisterHandler registers a compiled-in handler under name. A conflict is a
// programmer error, so it panics.
func (r *Registry) RegisterHandler(name string, h Handler) {
	def := &config.LogicDefinition{
		Name:    name,
		Trigger: config.TriggerFor(name),
		Origin:  config.SourceBuiltin,
	}
	if err := r.Bind(def, h); err != nil {
		panic(fmt.Sprintf("builtin handler with name '%s' cannot be registered: %v", name, err))
	}
}

// Lookup returns the reference bound to name.
func (r *Registry) Lookup(name string) (*HandlerRef, bool) {
	ref, ok := r.refs[name]
	return ref, ok
}

// Refs returns every registered reference ordered by name.
func (r *Registry) Refs() []*HandlerRef {
	refs := make([]*HandlerRef, 0, len(r.refs))
	for _, ref := range r.refs {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name() < refs[j].Name() })
	return refs
}

// Len returns the number of registered routes.
func (r *Registry) Len() int {
	return len(r.refs)
}

// IsReserved reports whether name belongs to the router itself.
func IsReserved(name string) bool {
	for _, reserved := range ReservedNames {
		if strings.EqualFold(name, reserved) {
			return true
		}
	}
	return false
}

// ValidateName checks that name can be used as a single path segment.
func ValidateName(name string) error {
	switch {
	case name == "":
		return &ConflictError{Name: name, Reason: "has an empty name"}
	case strings.ContainsAny(name, "/?#%{} \t\n"):
		return &ConflictError{Name: name, Reason: "contains characters not allowed in a path segment"}
	case IsReserved(name):
		return &ConflictError{Name: name, Reason: "is reserved"}
	}
	return nil
}
