package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logicrouter.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSettings(t *testing.T) {
	t.Setenv("LOGICROUTER_TEST_PORT", "9090")
	timeout := 1500 * time.Millisecond
	pool := 2
	unrestricted := true

	tests := []struct {
		name    string
		content string
		want    *Settings
	}{
		{
			name:    "empty file",
			content: ``,
			want:    &Settings{},
		},
		{
			name: "directory mode with env lookups",
			content: `
listen_addr       = ":${env("LOGICROUTER_TEST_PORT", "8080")}"
log_level         = lower("DEBUG")
log_format        = "json"
handler_timeout   = "1.5s"
metrics_namespace = env("LOGICROUTER_UNSET_VARIABLE", "custom_logic")
builtins          = ["echo", "print"]
lua_pool_size     = 2
unrestricted_imports = true

directory {
  path = "./customLogic"
}
`,
			want: &Settings{
				ListenAddr:          ":9090",
				LogLevel:            "debug",
				LogFormat:           "json",
				HandlerTimeout:      &timeout,
				MetricsNamespace:    "custom_logic",
				Builtins:            []string{"echo", "print"},
				LuaPoolSize:         &pool,
				UnrestrictedImports: &unrestricted,
				PluginsDir:          "./customLogic",
			},
		},
		{
			name: "manifest mode",
			content: `
manifest {
  path       = "/app/customLogic.json"
  output_dir = "./generated"
}
`,
			want: &Settings{ManifestPath: "/app/customLogic.json", OutputDir: "./generated"},
		},
		{
			name:    "env without default",
			content: `listen_addr = env("LOGICROUTER_UNSET_VARIABLE")`,
			want:    &Settings{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadSettings(context.Background(), writeSettings(t, tt.content))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("settings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadSettings_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{name: "syntax", content: `listen_addr = `, wantMsg: "failed to parse"},
		{name: "unknown attribute", content: `port = 8080`, wantMsg: "failed to decode"},
		{name: "both sources", content: "directory {\n path = \"a\"\n}\nmanifest {\n path = \"b\"\n}\n", wantMsg: "only one of"},
		{name: "bad duration", content: `handler_timeout = "soon"`, wantMsg: "handler_timeout"},
		{name: "negative duration", content: `handler_timeout = "-1s"`, wantMsg: "must not be negative"},
		{name: "bad pool size", content: `lua_pool_size = 0`, wantMsg: "lua_pool_size"},
		{name: "too many env arguments", content: `listen_addr = env("A", "b", "c")`, wantMsg: "at most 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSettings(context.Background(), writeSettings(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadSettings_MissingFile(t *testing.T) {
	_, err := LoadSettings(context.Background(), filepath.Join(t.TempDir(), "absent.hcl"))
	require.Error(t, err)
}
