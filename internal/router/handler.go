package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vk/logicrouter/internal/ctxlog"
	"github.com/vk/logicrouter/internal/metrics"
	"github.com/vk/logicrouter/internal/registry"
)

type errorBody struct {
	Error   string `json:"error"`
	ErrorID string `json:"errorId,omitempty"`
}

// factory builds route handlers. Each handler captures its own HandlerRef.
type factory struct {
	metrics *metrics.Metrics
	timeout time.Duration
	maxBody int64
}

func (f *factory) newLogicHandler(ref *registry.HandlerRef) http.Handler {
	name := ref.Name()
	trigger := ref.Definition.Trigger.String()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.FromContext(r.Context())

		input, err := decodeBody(http.MaxBytesReader(w, r.Body, f.maxBody))
		if err != nil {
			perr := &RequestParseError{Route: name, Err: err}
			logger.Debug("Rejected request body.", "error", perr)
			writeJSON(w, http.StatusBadRequest, errorBody{Error: perr.Error()})
			return
		}

		start := time.Now()
		out, err := f.call(r.Context(), ref, input)
		if err == nil {
			var body []byte
			body, err = json.Marshal(out)
			if err == nil {
				f.observe(name, trigger, "", time.Since(start))
				writeRaw(w, http.StatusOK, body)
				return
			}
			err = errors.Wrap(err, "could not serialize result")
		}

		var inErr *registry.InputError
		if errors.As(err, &inErr) {
			f.observe(name, trigger, "", time.Since(start))
			logger.Debug("Request body rejected by handler.", "error", inErr)
			writeJSON(w, http.StatusBadRequest, errorBody{Error: inErr.Error()})
			return
		}

		herr := &HandlerError{Name: name, ID: uuid.NewString(), Kind: failureKind(err), Err: err}
		f.observe(name, trigger, herr.Kind, time.Since(start))
		logger.Error("Custom logic failed.", "name", name, "errorId", herr.ID, "kind", herr.Kind, "error", err)

		if herr.Kind == metrics.KindTimeout {
			writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: "handler timed out", ErrorID: herr.ID})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", ErrorID: herr.ID})
	})
}

// call runs the handler, converting panics into errors. With a timeout the
// handler runs on its own goroutine and is abandoned once the deadline passes.
func (f *factory) call(ctx context.Context, ref *registry.HandlerRef, input any) (any, error) {
	if f.timeout <= 0 {
		return safeHandle(ctx, ref.Handler, input)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	type result struct {
		out any
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := safeHandle(ctx, ref.Handler, input)
		done <- result{out: out, err: err}
	}()

	select {
	case res := <-done:
		return res.out, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func safeHandle(ctx context.Context, h registry.Handler, input any) (out any, err error) {
	defer func() {
		if v := recover(); v != nil {
			out, err = nil, &panicError{value: v}
		}
	}()
	return h.Handle(ctx, input)
}

func failureKind(err error) string {
	var p *panicError
	switch {
	case errors.As(err, &p):
		return metrics.KindPanic
	case errors.Is(err, context.DeadlineExceeded):
		return metrics.KindTimeout
	default:
		return metrics.KindError
	}
}

func (f *factory) observe(name, trigger, kind string, elapsed time.Duration) {
	if f.metrics != nil {
		f.metrics.ObserveCall(name, trigger, kind, elapsed)
	}
}

// decodeBody parses exactly one JSON value. Numbers are kept as json.Number
// so they are written back exactly as received.
func decodeBody(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty body")
		}
		return nil, err
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after the JSON value")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeRaw(w, code, body)
}

func writeRaw(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
