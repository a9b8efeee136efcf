package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/logicrouter/internal/config"
	"github.com/vk/logicrouter/internal/metrics"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := NewConfig(Config{ManifestPath: "/app/customLogic.json"})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, defaultOutputDir, cfg.OutputDir)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, metrics.DefaultNamespace, cfg.MetricsNamespace)
	assert.Equal(t, config.SourceManifest, cfg.Loader().Kind())
}

func TestNewConfig_PortFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")

	cfg, err := NewConfig(Config{PluginsDir: "./customLogic"})
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, config.SourceDirectory, cfg.Loader().Kind())

	cfg, err = NewConfig(Config{PluginsDir: "./customLogic", ListenAddr: "127.0.0.1:1234"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1234", cfg.ListenAddr, "an explicit address beats PORT")
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "no source", cfg: Config{}},
		{name: "both sources", cfg: Config{PluginsDir: "a", ManifestPath: "b"}},
		{name: "bad level", cfg: Config{PluginsDir: "a", LogLevel: "verbose"}},
		{name: "bad format", cfg: Config{PluginsDir: "a", LogFormat: "xml"}},
		{name: "negative timeout", cfg: Config{PluginsDir: "a", HandlerTimeout: -time.Second}},
		{name: "negative lua pool", cfg: Config{PluginsDir: "a", LuaPoolSize: -3}},
		{name: "unknown builtin", cfg: Config{Builtins: []string{"nope"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestConfig_LoaderBuiltinsOnly(t *testing.T) {
	cfg, err := NewConfig(Config{Builtins: []string{"echo"}})
	require.NoError(t, err)
	assert.Nil(t, cfg.Loader())
}
