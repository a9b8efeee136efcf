package script

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/logicrouter/internal/config"
	"github.com/vk/logicrouter/internal/registry"
)

// writeScript stores src as <name><ext> in a temp dir and returns its definition.
func writeScript(t *testing.T, name string, lang config.Language, src string) *config.LogicDefinition {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+lang.Extension())
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return config.NewFileDefinition(path, lang, config.SourceDirectory)
}

// call invokes h with the JSON document in and returns the JSON encoding of
// the result.
func call(t *testing.T, h registry.Handler, in string) string {
	t.Helper()
	var input any
	require.NoError(t, json.Unmarshal([]byte(in), &input))
	out, err := h.Handle(context.Background(), input)
	require.NoError(t, err)
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	return string(raw)
}
