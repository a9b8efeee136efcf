package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/vk/logicrouter/internal/ctxlog"
	"github.com/vk/logicrouter/internal/fsutil"
)

// Defaults of the one-shot batch mode.
const (
	DefaultBatchPlugin = "beforeSave"
	DefaultBatchInput  = "input.json"
	DefaultBatchOutput = "output/output.json"
)

// RunBatch reads one JSON document from inputPath, passes it to the plugin
// named plugin and writes the result to outputPath.
func (a *App) RunBatch(ctx context.Context, plugin, inputPath, outputPath string) error {
	ctx = ctxlog.With(ctxlog.WithLogger(ctx, a.logger), "plugin", plugin)
	logger := ctxlog.FromContext(ctx)

	ref, ok := a.registry.Lookup(plugin)
	if !ok {
		return errors.Errorf("no custom logic named %q", plugin)
	}

	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return errors.Wrap(err, "could not read batch input")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var input any
	if err := dec.Decode(&input); err != nil {
		return errors.Wrapf(err, "batch input %s is not valid JSON", inputPath)
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return errors.Errorf("batch input %s holds more than one JSON value", inputPath)
	}

	logger.Debug("Running custom logic in batch mode.", "input", inputPath)
	out, err := callSafely(ctx, ref.Handler.Handle, input)
	if err != nil {
		return errors.Wrapf(err, "custom logic %s failed", plugin)
	}
	body, err := json.Marshal(out)
	if err != nil {
		return errors.Wrap(err, "could not serialize result")
	}

	if err := fsutil.WriteTextFile(outputPath, string(body)); err != nil {
		return err
	}
	logger.Info("Batch output written.", "output", outputPath)
	return nil
}

func callSafely(ctx context.Context, fn func(context.Context, any) (any, error), input any) (out any, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = errors.Errorf("panic: %v", v)
		}
	}()
	return fn(ctx, input)
}
