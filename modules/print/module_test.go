package print

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/logicrouter/internal/registry"
)

func TestPrint(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "object keys sorted", input: map[string]any{"b": "two", "a": json.Number("1")}, want: "      a = 1\n      b = two\n"},
		{name: "null", input: nil, want: "      (null)\n"},
		{name: "scalar", input: "hello", want: "      hello\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := Print(context.Background(), &out, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.input, got)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestModule_Register(t *testing.T) {
	var out bytes.Buffer
	reg := registry.New()
	(&Module{Out: &out}).Register(reg)

	ref, ok := reg.Lookup(Name)
	require.True(t, ok)
	_, err := ref.Handler.Handle(context.Background(), map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, "      k = v\n", out.String())
}
