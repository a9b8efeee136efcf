package cli

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vk/logicrouter/internal/app"
	"github.com/vk/logicrouter/internal/hcl"
)

// sourceOptions select where custom logic comes from and how it runs.
type sourceOptions struct {
	listen         string
	pluginsDir     string
	manifest       string
	outputDir      string
	builtins       []string
	handlerTimeout time.Duration
	unrestricted   bool
	luaPoolSize    int
}

func (s *sourceOptions) bind(fs *pflag.FlagSet) {
	fs.StringVar(&s.pluginsDir, "plugins-dir", "", "Directory scanned for .go and .lua custom logic files.")
	fs.StringVar(&s.manifest, "manifest", "", "customLogic manifest (JSON or YAML) whose code is written to --output-dir.")
	fs.StringVar(&s.outputDir, "output-dir", "", "Directory manifest code is written to. Defaults to ./customLogic.")
	fs.StringSliceVar(&s.builtins, "builtins", nil, "Compiled-in modules to serve. Options: 'echo', 'print'.")
	fs.DurationVar(&s.handlerTimeout, "handler-timeout", 0, "Upper bound for a single custom logic call. 0 disables it.")
	fs.BoolVar(&s.unrestricted, "unrestricted-imports", false, "Allow Go scripts to import any standard library package.")
	fs.IntVar(&s.luaPoolSize, "lua-pool-size", 0, "Idle Lua states kept per script.")
}

// buildConfig layers flags over the settings file, then validates the result.
// Flags win over the file; PORT and the defaults fill in what is left.
func buildConfig(ctx context.Context, cmd *cobra.Command, opts *globalOptions) (*app.Config, error) {
	cfg := app.Config{}

	if opts.configPath != "" {
		s, err := hcl.LoadSettings(ctx, opts.configPath)
		if err != nil {
			return nil, usageError(err)
		}
		applySettings(&cfg, s)
	}

	flags := cmd.Flags()
	changed := flags.Changed
	if changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = strings.ToLower(opts.logLevel)
	}
	if changed("log-format") || cfg.LogFormat == "" {
		cfg.LogFormat = strings.ToLower(opts.logFormat)
	}
	if changed("listen") {
		cfg.ListenAddr = opts.source.listen
	}
	if changed("plugins-dir") {
		cfg.PluginsDir, cfg.ManifestPath = opts.source.pluginsDir, ""
	}
	if changed("manifest") {
		cfg.ManifestPath = opts.source.manifest
		if !changed("plugins-dir") {
			cfg.PluginsDir = ""
		}
	}
	if changed("output-dir") {
		cfg.OutputDir = opts.source.outputDir
	}
	if changed("builtins") {
		cfg.Builtins = opts.source.builtins
	}
	if changed("handler-timeout") {
		cfg.HandlerTimeout = opts.source.handlerTimeout
	}
	if changed("unrestricted-imports") {
		cfg.UnrestrictedImports = opts.source.unrestricted
	}
	if changed("lua-pool-size") {
		cfg.LuaPoolSize = opts.source.luaPoolSize
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	return config, nil
}

func applySettings(cfg *app.Config, s *hcl.Settings) {
	cfg.ListenAddr = s.ListenAddr
	cfg.LogLevel = s.LogLevel
	cfg.LogFormat = s.LogFormat
	cfg.MetricsNamespace = s.MetricsNamespace
	cfg.Builtins = s.Builtins
	cfg.PluginsDir = s.PluginsDir
	cfg.ManifestPath = s.ManifestPath
	cfg.OutputDir = s.OutputDir
	if s.HandlerTimeout != nil {
		cfg.HandlerTimeout = *s.HandlerTimeout
	}
	if s.UnrestrictedImports != nil {
		cfg.UnrestrictedImports = *s.UnrestrictedImports
	}
	if s.LuaPoolSize != nil {
		cfg.LuaPoolSize = *s.LuaPoolSize
	}
}

// newApp builds the App for a command, mapping startup failures to
// ExitError.
func newApp(cmd *cobra.Command, opts *globalOptions, logW io.Writer) (*app.App, error) {
	config, err := buildConfig(cmd.Context(), cmd, opts)
	if err != nil {
		return nil, err
	}
	a, err := app.NewApp(logW, config, nil)
	if err != nil {
		return nil, startupError(err)
	}
	return a, nil
}
