package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/logicrouter/internal/config"
)

var identity = HandlerFunc(func(_ context.Context, input any) (any, error) { return input, nil })

func def(name string) *config.LogicDefinition {
	return &config.LogicDefinition{Name: name, Source: name + ".go", Origin: config.SourceDirectory}
}

// testModule registers a fixed set of names.
type testModule struct {
	names []string
}

func (m *testModule) Register(r *Registry) {
	for _, name := range m.names {
		r.RegisterHandler(name, identity)
	}
}

func TestRegistry_BindAndLookup(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Bind(def("beforeSave"), identity))
	require.NoError(t, reg.Bind(def("afterSave"), identity))

	ref, ok := reg.Lookup("beforeSave")
	require.True(t, ok)
	assert.Equal(t, "beforeSave", ref.Name())

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)

	require.Equal(t, 2, reg.Len())
	refs := reg.Refs()
	assert.Equal(t, "afterSave", refs[0].Name())
	assert.Equal(t, "beforeSave", refs[1].Name())
}

func TestRegistry_BindConflicts(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Bind(def("enrich"), identity))

	tests := map[string]*config.LogicDefinition{
		"duplicate":     def("enrich"),
		"ping":          def("ping"),
		"metrics":       def("Metrics"),
		"empty":         def(""),
		"slash":         def("a/b"),
		"query marker":  def("a?b"),
		"route pattern": def("a{b}"),
		"open brace":    def("c{d"),
		"close brace":   def("e}"),
	}
	for name, d := range tests {
		t.Run(name, func(t *testing.T) {
			err := reg.Bind(d, identity)
			require.Error(t, err)
			var conflict *ConflictError
			require.True(t, errors.As(err, &conflict))
		})
	}
	assert.Equal(t, 1, reg.Len(), "failed binds leave the registry untouched")
}

func TestRegistry_RegisterHandlerFromModule(t *testing.T) {
	reg := New()
	(&testModule{names: []string{"echo"}}).Register(reg)

	ref, ok := reg.Lookup("echo")
	require.True(t, ok)
	assert.Equal(t, config.SourceBuiltin, ref.Definition.Origin)

	assert.Panics(t, func() {
		(&testModule{names: []string{"echo"}}).Register(reg)
	})
}
