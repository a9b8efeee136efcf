// Package testutil provides a harness that runs a complete logicrouter
// server on a loopback port for integration tests.
package testutil

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/logicrouter/internal/app"
)

// Harness is a running server together with the files it was started from.
type Harness struct {
	App     *app.App
	BaseURL string
	Root    string
	Logs    *app.SafeBuffer
	client  *http.Client
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Body   string
}

// StartServer writes files below a temporary root, builds the app from cfg
// and serves it until the test ends. Relative paths in cfg are resolved
// against the root.
func StartServer(t *testing.T, files map[string]string, cfg app.Config) *Harness {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	for _, p := range []*string{&cfg.PluginsDir, &cfg.ManifestPath, &cfg.OutputDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(root, *p)
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}

	config, err := app.NewConfig(cfg)
	require.NoError(t, err)

	logs := &app.SafeBuffer{}
	a, err := app.NewApp(logs, config, nil)
	require.NoError(t, err, "startup failed, logs:\n%s", logs.String())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.ServeListener(ctx, ln) }()

	transport := &http.Transport{DisableKeepAlives: true}
	h := &Harness{
		App:     a,
		BaseURL: "http://" + ln.Addr().String(),
		Root:    root,
		Logs:    logs,
		client:  &http.Client{Transport: transport, Timeout: 10 * time.Second},
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("server did not shut down")
		}
		transport.CloseIdleConnections()
		_ = a.Close()
		if os.Getenv("LOGICROUTER_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return h
}

// Do sends a request with an optional body and returns the read response.
func (h *Harness) Do(t *testing.T, method, path, body string) Response {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.BaseURL+path, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return Response{Status: resp.StatusCode, Body: string(raw)}
}

// Post sends body to path with POST.
func (h *Harness) Post(t *testing.T, path, body string) Response {
	t.Helper()
	return h.Do(t, http.MethodPost, path, body)
}
