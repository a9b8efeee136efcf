package script

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vk/logicrouter/internal/config"
	"github.com/vk/logicrouter/internal/ctxlog"
	"github.com/vk/logicrouter/internal/registry"
)

// Runtime loads scripts written in one language.
type Runtime interface {
	Language() config.Language
	// Load resolves the entry point of def and returns a handler calling it.
	Load(ctx context.Context, def *config.LogicDefinition) (registry.Handler, error)
}

// Options tune the runtimes built by NewRuntimes.
type Options struct {
	// UnrestrictedImports lets Go scripts import any standard library package.
	UnrestrictedImports bool
	// LuaPoolSize bounds the number of idle Lua states kept per script.
	LuaPoolSize int
}

// Runtimes dispatches definitions to the runtime of their language.
type Runtimes map[config.Language]Runtime

// NewRuntimes returns the runtimes of every supported language.
func NewRuntimes(opts Options) Runtimes {
	goRT := NewGoRuntime()
	goRT.UnrestrictedImports = opts.UnrestrictedImports
	luaRT := NewLuaRuntime()
	if opts.LuaPoolSize > 0 {
		luaRT.PoolSize = opts.LuaPoolSize
	}
	return Runtimes{
		config.LanguageGo:  goRT,
		config.LanguageLua: luaRT,
	}
}

// Resolve loads def with the runtime of its language. Every failure is
// returned as a *ResolutionError.
func (rs Runtimes) Resolve(ctx context.Context, def *config.LogicDefinition) (registry.Handler, error) {
	logger := ctxlog.FromContext(ctx)
	rt, ok := rs[def.Language]
	if !ok {
		return nil, newResolutionError(def, errors.Errorf("no runtime for language %q", def.Language))
	}

	logger.Debug("Resolving custom logic entry point.", "name", def.Name, "language", def.Language, "file", def.Source)
	h, err := rt.Load(ctx, def)
	if err != nil {
		var resErr *ResolutionError
		if errors.As(err, &resErr) {
			return nil, err
		}
		return nil, newResolutionError(def, err)
	}
	return h, nil
}
