package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// Handler is a resolved, callable unit of custom logic. Input is the parsed
// JSON request body; the returned value is serialized as the response body.
type Handler interface {
	Handle(ctx context.Context, input any) (any, error)
}

// HandlerFunc is a convenience type for converting functions to Handler.
type HandlerFunc func(ctx context.Context, input any) (any, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, input any) (any, error) {
	return f(ctx, input)
}

// InputError reports that a request body could not be converted to the
// parameter type a handler declares.
type InputError struct {
	Want reflect.Type
	Err  error
}

func (e *InputError) Error() string {
	if e.Want == nil {
		return fmt.Sprintf("input cannot be passed to handler: %v", e.Err)
	}
	return fmt.Sprintf("input does not match handler parameter %s: %v", e.Want, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// funcHandler adapts an arbitrary Go function to Handler using reflection.
type funcHandler struct {
	fn        reflect.Value
	withCtx   bool
	withErr   bool
	paramType reflect.Type
}

// NewFuncHandler wraps fn, which must have one of the shapes
//
//	func(T) R
//	func(T) (R, error)
//	func(context.Context, T) R
//	func(context.Context, T) (R, error)
//
// T may be any type the JSON request body can be decoded into.
func NewFuncHandler(fn any) (Handler, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, errors.Errorf("handler must be a function, got %T", fn)
	}
	if v.IsNil() {
		return nil, errors.New("handler function is nil")
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, errors.Errorf("handler %s must not be variadic", t)
	}

	h := &funcHandler{fn: v}
	switch t.NumIn() {
	case 1:
		h.paramType = t.In(0)
	case 2:
		if t.In(0) != contextType {
			return nil, errors.Errorf("handler %s: first of two parameters must be context.Context", t)
		}
		h.withCtx = true
		h.paramType = t.In(1)
	default:
		return nil, errors.Errorf("handler %s must take exactly one input parameter", t)
	}

	switch t.NumOut() {
	case 1:
		if t.Out(0) == errorType {
			return nil, errors.Errorf("handler %s must return a value, not only an error", t)
		}
	case 2:
		if t.Out(1) != errorType {
			return nil, errors.Errorf("handler %s: second result must be error", t)
		}
		h.withErr = true
	default:
		return nil, errors.Errorf("handler %s must return a value or (value, error)", t)
	}
	return h, nil
}

// Handle implements Handler.
func (h *funcHandler) Handle(ctx context.Context, input any) (any, error) {
	arg, err := h.convert(input)
	if err != nil {
		return nil, err
	}

	args := []reflect.Value{arg}
	if h.withCtx {
		args = []reflect.Value{reflect.ValueOf(ctx), arg}
	}
	results := h.fn.Call(args)

	if h.withErr && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}

// convert turns the generic decoded input into the declared parameter type.
// Values that are already assignable pass through with numbers as float64;
// anything else takes a round trip through JSON.
func (h *funcHandler) convert(input any) (reflect.Value, error) {
	if input == nil {
		return reflect.Zero(h.paramType), nil
	}
	if v := reflect.ValueOf(plainNumbers(input)); v.Type().AssignableTo(h.paramType) {
		return v, nil
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return reflect.Value{}, &InputError{Want: h.paramType, Err: err}
	}
	target := reflect.New(h.paramType)
	if err := json.Unmarshal(raw, target.Interface()); err != nil {
		return reflect.Value{}, &InputError{Want: h.paramType, Err: err}
	}
	return target.Elem(), nil
}

// plainNumbers replaces json.Number values with float64, the representation
// encoding/json produces by default.
func plainNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plainNumbers(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = plainNumbers(item)
		}
		return out
	}
	return v
}
