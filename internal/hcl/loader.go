package hcl

import (
	"context"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"github.com/vk/logicrouter/internal/ctxlog"
)

// Settings holds the values found in a settings file. Nil pointers and empty
// values mean the setting was absent, so callers can layer flags on top.
type Settings struct {
	ListenAddr          string
	LogLevel            string
	LogFormat           string
	HandlerTimeout      *time.Duration
	MetricsNamespace    string
	Builtins            []string
	UnrestrictedImports *bool
	LuaPoolSize         *int

	PluginsDir   string
	ManifestPath string
	OutputDir    string
}

// LoadSettings parses and evaluates the settings file at path.
func LoadSettings(ctx context.Context, path string) (*Settings, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading settings file.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "failed to parse settings file %s", path)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &root); diags.HasErrors() {
		return nil, errors.Wrapf(diags, "failed to decode settings file %s", path)
	}

	s, err := root.settings()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid settings file %s", path)
	}
	logger.Debug("Settings file loaded.", "path", path, "plugins_dir", s.PluginsDir, "manifest", s.ManifestPath)
	return s, nil
}

func (r *fileRoot) settings() (*Settings, error) {
	if r.Directory != nil && r.Manifest != nil {
		return nil, errors.New("only one of the directory and manifest blocks may be set")
	}

	s := &Settings{
		ListenAddr:          deref(r.ListenAddr),
		LogLevel:            deref(r.LogLevel),
		LogFormat:           deref(r.LogFormat),
		MetricsNamespace:    deref(r.MetricsNamespace),
		Builtins:            r.Builtins,
		UnrestrictedImports: r.UnrestrictedImports,
		LuaPoolSize:         r.LuaPoolSize,
	}
	if r.HandlerTimeout != nil {
		d, err := time.ParseDuration(*r.HandlerTimeout)
		if err != nil {
			return nil, errors.Wrap(err, "handler_timeout")
		}
		if d < 0 {
			return nil, errors.Errorf("handler_timeout must not be negative, got %s", d)
		}
		s.HandlerTimeout = &d
	}
	if r.LuaPoolSize != nil && *r.LuaPoolSize < 1 {
		return nil, errors.Errorf("lua_pool_size must be at least 1, got %d", *r.LuaPoolSize)
	}
	switch {
	case r.Directory != nil:
		s.PluginsDir = r.Directory.Path
	case r.Manifest != nil:
		s.ManifestPath = r.Manifest.Path
		s.OutputDir = deref(r.Manifest.OutputDir)
	}
	return s, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
