package script

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/logicrouter/internal/config"
)

func TestGoRuntime_Load(t *testing.T) {
	tests := []struct {
		name   string
		def    string
		src    string
		input  string
		output string
	}{
		{
			name: "single exported function",
			def:  "beforecreate",
			src: `package customlogic

type Input struct {
	Name    string ` + "`json:\"name\"`" + `
	Message string ` + "`json:\"message\"`" + `
}

func Greet(in Input) Input {
	in.Message = "Hello " + in.Name
	return in
}
`,
			input:  `{"name":"Jane"}`,
			output: `{"name":"Jane","message":"Hello Jane"}`,
		},
		{
			name: "named entry point beside helpers",
			def:  "aftercreate",
			src: `package main

import "strings"

func Shout(s string) string { return strings.ToUpper(s) }

func AfterCreate(in map[string]interface{}) (map[string]interface{}, error) {
	in["message"] = "Bye " + in["name"].(string)
	return in, nil
}
`,
			input:  `{"name":"Jane"}`,
			output: `{"name":"Jane","message":"Bye Jane"}`,
		},
		{
			name: "inline code without package clause",
			def:  "beforeSave",
			src: `import "fmt"

func BeforeSave(in map[string]interface{}) map[string]interface{} {
	in["concat"] = fmt.Sprintf("%v %v", in["name"], in["score"])
	return in
}
`,
			input:  `{"name":"Jane","score":3}`,
			output: `{"concat":"Jane 3","name":"Jane","score":3}`,
		},
		{
			name: "context aware",
			def:  "echo",
			src: `package main

import "context"

func unexportedHelper() {}

func Echo(ctx context.Context, in interface{}) (interface{}, error) {
	return in, ctx.Err()
}
`,
			input:  `[1,"two",true,null]`,
			output: `[1,"two",true,null]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := writeScript(t, tt.def, config.LanguageGo, tt.src)

			h, err := NewGoRuntime().Load(context.Background(), def)
			require.NoError(t, err)
			assert.JSONEq(t, tt.output, call(t, h, tt.input))
		})
	}
}

func TestGoRuntime_ResolutionFailures(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{
			name:    "no exported function",
			src:     "package main\n\nfunc helper(in interface{}) interface{} { return in }\n",
			wantErr: ErrNoEntryPoint,
		},
		{
			name:    "two exported functions",
			src:     "package main\n\nfunc A(in interface{}) interface{} { return in }\n\nfunc B(in interface{}) interface{} { return in }\n",
			wantErr: ErrAmbiguousEntryPoint,
		},
		{name: "forbidden import", src: "package main\n\nimport \"os\"\n\nfunc A(in interface{}) interface{} { return os.Args }\n"},
		{name: "syntax error", src: "package main\n\nfunc A(in interface{} interface{} {\n"},
		{name: "bad signature", src: "package main\n\nfunc A() {}\n"},
		{name: "methods are not candidates", src: "package main\n\ntype T struct{}\n\nfunc (T) A(in interface{}) interface{} { return in }\n", wantErr: ErrNoEntryPoint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := writeScript(t, "plugin", config.LanguageGo, tt.src)

			_, err := NewGoRuntime().Load(context.Background(), def)
			require.Error(t, err)

			var resErr *ResolutionError
			require.True(t, errors.As(err, &resErr))
			assert.Equal(t, "plugin", resErr.Name)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestGoRuntime_UnrestrictedImports(t *testing.T) {
	def := writeScript(t, "env", config.LanguageGo, "package main\n\nimport \"os\"\n\nfunc Env(in string) string { return os.Getenv(in) }\n")
	t.Setenv("LOGICROUTER_TEST_VALUE", "visible")

	rt := NewGoRuntime()
	rt.UnrestrictedImports = true
	h, err := rt.Load(context.Background(), def)
	require.NoError(t, err)
	assert.Equal(t, `"visible"`, call(t, h, `"LOGICROUTER_TEST_VALUE"`))
}

func TestGoRuntime_HandlerError(t *testing.T) {
	def := writeScript(t, "validate", config.LanguageGo, `package main

import "errors"

func Validate(in map[string]interface{}) (map[string]interface{}, error) {
	if _, ok := in["name"]; !ok {
		return nil, errors.New("name is required")
	}
	return in, nil
}
`)
	h, err := NewGoRuntime().Load(context.Background(), def)
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), map[string]any{})
	require.EqualError(t, err, "name is required")
}
