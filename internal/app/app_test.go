package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/logicrouter/internal/config"
	"github.com/vk/logicrouter/internal/discovery"
	"github.com/vk/logicrouter/internal/registry"
	"github.com/vk/logicrouter/internal/script"
	"github.com/vk/logicrouter/modules/echo"
)

const beforeCreateLua = `
return function(input)
  input.message = "Hello " .. input.name
  return input
end
`

const afterCreateGo = `package customlogic

func AfterCreate(input map[string]interface{}) map[string]interface{} {
	input["message"] = "Bye " + input["name"].(string)
	return input
}
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestApp_DirectoryMode(t *testing.T) {
	// Arrange
	dir := writeFiles(t, map[string]string{
		"beforeCreate.lua": beforeCreateLua,
		"afterCreate.go":   afterCreateGo,
		"README.md":        "not a plugin",
	})
	cfg, err := NewConfig(Config{PluginsDir: dir})
	require.NoError(t, err)

	// Act
	a, logs := SetupAppTest(t, cfg, nil)

	// Assert
	var names []string
	for _, ref := range a.Routes() {
		names = append(names, ref.Name())
	}
	assert.Equal(t, []string{"afterCreate", "beforeCreate"}, names)
	assert.Contains(t, logs.String(), "Route registered.")

	rec := post(t, a.Handler(), "/beforeCreate", `{"name":"Jane"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"Jane","message":"Hello Jane"}`, rec.Body.String())

	rec = post(t, a.Handler(), "/afterCreate", `{"name":"Jane"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"Jane","message":"Bye Jane"}`, rec.Body.String())
}

func TestApp_ManifestMode(t *testing.T) {
	// Arrange
	entries := []map[string]any{
		{"apiID": "1", "operationType": "UPDATE", "beforeSave": "func Ignored(in interface{}) interface{} { return in }"},
		{"apiID": "1", "operationType": "CREATE", "beforeSave": "func First(in interface{}) interface{} { return \"first\" }"},
		{"apiID": "1", "operationType": "CREATE", "language": "lua",
			"beforeSave": "return function(x) return 'second' end",
			"afterSave":  "return function(x) return x end"},
	}
	raw, err := json.Marshal(entries)
	require.NoError(t, err)
	manifest := filepath.Join(t.TempDir(), "customLogic.json")
	require.NoError(t, os.WriteFile(manifest, raw, 0o644))
	outDir := filepath.Join(t.TempDir(), "generated")

	cfg, err := NewConfig(Config{ManifestPath: manifest, OutputDir: outDir})
	require.NoError(t, err)

	// Act
	a, _ := SetupAppTest(t, cfg, nil)

	// Assert
	written, err := filepath.Glob(filepath.Join(outDir, "*"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(outDir, "afterSave.lua"),
		filepath.Join(outDir, "beforeSave.lua"),
	}, written)

	rec := post(t, a.Handler(), "/beforeSave", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"second"`, rec.Body.String())
	assert.Equal(t, 2, a.Registry().Len())
}

func TestApp_StartupFailures(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		builtins []string
		check    func(t *testing.T, err error)
	}{
		{
			name:  "ambiguous script",
			files: map[string]string{"enrich.lua": "function a(x) return x end\nfunction b(x) return x end"},
			check: func(t *testing.T, err error) {
				var resErr *script.ResolutionError
				require.True(t, errors.As(err, &resErr))
				assert.ErrorIs(t, err, script.ErrAmbiguousEntryPoint)
			},
		},
		{
			name:  "script without entry point",
			files: map[string]string{"ok.lua": beforeCreateLua, "empty.go": "package main\n"},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, script.ErrNoEntryPoint)
			},
		},
		{
			name:  "reserved name",
			files: map[string]string{"ping.lua": beforeCreateLua},
			check: func(t *testing.T, err error) {
				var conflict *registry.ConflictError
				require.True(t, errors.As(err, &conflict))
				assert.Equal(t, "ping", conflict.Name)
			},
		},
		{
			name:     "script shadows a builtin",
			files:    map[string]string{"echo.lua": beforeCreateLua},
			builtins: []string{echo.Name},
			check: func(t *testing.T, err error) {
				var conflict *registry.ConflictError
				require.True(t, errors.As(err, &conflict))
				assert.Equal(t, config.SourceBuiltin, conflict.Existing.Origin)
			},
		},
		{
			name:  "route pattern in file name",
			files: map[string]string{"a{b}.lua": beforeCreateLua},
			check: func(t *testing.T, err error) {
				var conflict *registry.ConflictError
				require.True(t, errors.As(err, &conflict))
				assert.Equal(t, "a{b}", conflict.Name)
			},
		},
		{
			name:  "same name in two languages",
			files: map[string]string{"dup.lua": beforeCreateLua, "dup.go": afterCreateGo},
			check: func(t *testing.T, err error) {
				var conflict *registry.ConflictError
				require.True(t, errors.As(err, &conflict))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConfig(Config{PluginsDir: writeFiles(t, tt.files), Builtins: tt.builtins})
			require.NoError(t, err)

			a, err := NewApp(&SafeBuffer{}, cfg, nil)
			require.Error(t, err)
			assert.Nil(t, a)
			tt.check(t, err)
		})
	}
}

func TestApp_MissingDirectory(t *testing.T) {
	cfg, err := NewConfig(Config{PluginsDir: filepath.Join(t.TempDir(), "absent")})
	require.NoError(t, err)

	_, err = NewApp(&SafeBuffer{}, cfg, nil)
	var discErr *discovery.Error
	require.True(t, errors.As(err, &discErr))
	assert.Equal(t, config.SourceDirectory, discErr.Kind)
}

func TestApp_BuiltinsOnly(t *testing.T) {
	cfg, err := NewConfig(Config{Builtins: []string{echo.Name}})
	require.NoError(t, err)
	a, _ := SetupAppTest(t, cfg, nil)

	rec := post(t, a.Handler(), "/echo", `{"a":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"a":1}`, rec.Body.String())
}

func TestApp_ExplicitModulesOverrideBuiltins(t *testing.T) {
	cfg, err := NewConfig(Config{Builtins: []string{"print"}})
	require.NoError(t, err)
	a, _ := SetupAppTest(t, cfg, nil, &echo.Module{})

	_, ok := a.Registry().Lookup("print")
	assert.False(t, ok)
	_, ok = a.Registry().Lookup(echo.Name)
	assert.True(t, ok)
}
