package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"
	"github.com/vk/logicrouter/internal/config"
	"github.com/vk/logicrouter/internal/ctxlog"
	"github.com/vk/logicrouter/internal/metrics"
	"github.com/vk/logicrouter/internal/registry"
	"github.com/vk/logicrouter/internal/router"
	"github.com/vk/logicrouter/internal/script"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	metrics  *metrics.Metrics
	handler  http.Handler
	closers  []io.Closer
}

// NewApp is the constructor for the main application. It discovers every
// definition through loader, resolves each one to a handler and builds the
// router. Any failure aborts startup; no partially bound App is returned.
//
// A nil loader takes the one selected by cfg. Without modules, the builtins
// named in cfg are registered.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: registry.New(),
		metrics:  metrics.New(cfg.MetricsNamespace),
	}

	if len(modules) == 0 {
		modules = selectModules(cfg.Builtins)
	}
	for _, mod := range modules {
		mod.Register(a.registry)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if loader == nil {
		loader = cfg.Loader()
	}
	if loader != nil {
		if err := a.bind(ctx, loader); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	if a.registry.Len() == 0 {
		logger.Warn("No custom logic found, only /ping will be served.")
	}

	a.handler = router.New(a.registry, router.Options{
		Logger:         logger,
		Metrics:        a.metrics,
		HandlerTimeout: cfg.HandlerTimeout,
	})
	return a, nil
}

// bind loads every definition and binds it to its resolved handler.
func (a *App) bind(ctx context.Context, loader config.Loader) error {
	defs, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("Custom logic discovered.", "mode", loader.Kind(), "count", len(defs))

	runtimes := script.NewRuntimes(script.Options{
		UnrestrictedImports: a.config.UnrestrictedImports,
		LuaPoolSize:         a.config.LuaPoolSize,
	})
	for _, def := range defs {
		h, err := runtimes.Resolve(ctx, def)
		if err != nil {
			return err
		}
		if c, ok := h.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
		if err := a.registry.Bind(def, h); err != nil {
			return errors.Wrapf(err, "could not bind %s", def.Source)
		}
	}
	return nil
}

// Handler returns the HTTP handler serving every route.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Metrics returns the collectors the router records into.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Routes returns the bound references ordered by name.
func (a *App) Routes() []*registry.HandlerRef {
	return a.registry.Refs()
}

// Close releases the resources held by script handlers.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
