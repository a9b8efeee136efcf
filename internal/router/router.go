package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/vk/logicrouter/internal/ctxlog"
	"github.com/vk/logicrouter/internal/metrics"
	"github.com/vk/logicrouter/internal/registry"
)

const (
	pingRoute    = "ping"
	metricsRoute = "metrics"

	// DefaultMaxBodyBytes bounds the size of a request body.
	DefaultMaxBodyBytes int64 = 10 << 20
)

// Options configure New.
type Options struct {
	Logger *slog.Logger
	// Metrics enables GET /metrics and request instrumentation when set.
	Metrics *metrics.Metrics
	// HandlerTimeout bounds every custom logic call. Zero disables it.
	HandlerTimeout time.Duration
	MaxBodyBytes   int64
}

// New builds the router serving every reference of reg.
func New(reg *registry.Registry, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	r := mux.NewRouter()
	r.NotFoundHandler = withLogger(opts.Logger, http.HandlerFunc(notFound))
	r.MethodNotAllowedHandler = withLogger(opts.Logger, http.HandlerFunc(methodNotAllowed))
	r.Use(func(next http.Handler) http.Handler { return withLogger(opts.Logger, next) })
	if opts.Metrics != nil {
		r.Use(instrument(opts.Metrics))
	}

	r.HandleFunc("/"+pingRoute, ping).Methods(http.MethodGet).Name(pingRoute)
	if opts.Metrics != nil {
		r.Handle("/"+metricsRoute, opts.Metrics.Handler()).Methods(http.MethodGet).Name(metricsRoute)
	}

	f := &factory{metrics: opts.Metrics, timeout: opts.HandlerTimeout, maxBody: opts.MaxBodyBytes}
	for _, ref := range reg.Refs() {
		r.Handle(ref.Definition.RoutePath(), f.newLogicHandler(ref)).Methods(http.MethodPost).Name(ref.Name())
		opts.Logger.Info("Route registered.", "route", ref.Definition.RoutePath(), "origin", ref.Definition.Origin, "trigger", ref.Definition.Trigger)
	}
	if opts.Metrics != nil {
		opts.Metrics.Routes.Set(float64(reg.Len()))
	}
	return r
}

func ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, "pong")
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
}

// withLogger attaches a request scoped logger to the request context.
func withLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logger.With("method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctxlog.WithLogger(r.Context(), l)))
	})
}
