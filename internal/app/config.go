package app

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/vk/logicrouter/internal/config"
	"github.com/vk/logicrouter/internal/discovery"
	"github.com/vk/logicrouter/internal/metrics"
)

const (
	defaultPort            = "8080"
	defaultOutputDir       = "customLogic"
	defaultShutdownTimeout = 5 * time.Second
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ListenAddr string

	PluginsDir   string // directory scan mode
	ManifestPath string // manifest mode
	OutputDir    string // where manifest code is written

	LogFormat string
	LogLevel  string

	HandlerTimeout      time.Duration
	ShutdownTimeout     time.Duration
	MetricsNamespace    string
	Builtins            []string
	UnrestrictedImports bool
	LuaPoolSize         int
}

// NewConfig validates cfg and fills in defaults. The listen address falls
// back to the PORT environment variable, then to :8080.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PluginsDir != "" && cfg.ManifestPath != "" {
		return nil, errors.New("a plugins directory and a manifest cannot be used together")
	}
	if cfg.PluginsDir == "" && cfg.ManifestPath == "" && len(cfg.Builtins) == 0 {
		return nil, errors.New("one of a plugins directory, a manifest or a builtin module is required")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, ok := logLevels[cfg.LogLevel]; !ok {
		return nil, errors.Errorf("unknown log level %q", cfg.LogLevel)
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.Errorf("unknown log format %q", cfg.LogFormat)
	}
	if cfg.HandlerTimeout < 0 {
		return nil, errors.Errorf("handler timeout must not be negative, got %s", cfg.HandlerTimeout)
	}
	if cfg.LuaPoolSize < 0 {
		return nil, errors.Errorf("lua pool size must not be negative, got %d", cfg.LuaPoolSize)
	}
	for _, name := range cfg.Builtins {
		if _, ok := builtinModules[name]; !ok {
			return nil, errors.Errorf("unknown builtin module %q", name)
		}
	}

	if cfg.ListenAddr == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = defaultPort
		}
		cfg.ListenAddr = ":" + port
	}
	if cfg.ManifestPath != "" && cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.MetricsNamespace == "" {
		cfg.MetricsNamespace = metrics.DefaultNamespace
	}
	return &cfg, nil
}

// Loader returns the discovery loader selected by the configuration, or nil
// when only builtin modules are served.
func (c *Config) Loader() config.Loader {
	switch {
	case c.PluginsDir != "":
		return discovery.NewDirectoryLoader(c.PluginsDir)
	case c.ManifestPath != "":
		return discovery.NewManifestLoader(c.ManifestPath, c.OutputDir)
	}
	return nil
}
