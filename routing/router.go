package routing

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/container"
	gohttp "github.com/km-arc/go-inject/framework/http"
)

// Router wraps chi.Router and dispatches to handlers resolved from an
// injector.
type Router struct {
	mux chi.Router
	log *zap.Logger
}

// New creates a Router with request IDs, zap access logging, panic recovery
// and real IP detection. A nil logger disables access logs.
func New(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	return &Router{mux: r, log: logger}
}

// ── HTTP verbs ───────────────────────────────────────────────────────────────

func (r *Router) Get(pattern string, h http.HandlerFunc)    { r.mux.Get(pattern, h) }
func (r *Router) Post(pattern string, h http.HandlerFunc)   { r.mux.Post(pattern, h) }
func (r *Router) Put(pattern string, h http.HandlerFunc)    { r.mux.Put(pattern, h) }
func (r *Router) Patch(pattern string, h http.HandlerFunc)  { r.mux.Patch(pattern, h) }
func (r *Router) Delete(pattern string, h http.HandlerFunc) { r.mux.Delete(pattern, h) }

// Handle registers h for every method on pattern.
func (r *Router) Handle(pattern string, h http.Handler) { r.mux.Handle(pattern, h) }

// ── Resolved handlers ────────────────────────────────────────────────────────

// Resolve registers a route whose handler is resolved from inj on every
// request. The request ID labels the resolution; per-request bindings are
// therefore created once per HTTP request. Resolution failures are
// rendered with gohttp.StatusFor.
//
//	r.Resolve(http.MethodGet, "/greet/{lang}", inj, container.KeyOf[*GreetingHandler]())
func (r *Router) Resolve(method, pattern string, inj *container.Injector, k container.Key) {
	r.mux.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := middleware.GetReqID(req.Context())
		ctx := container.ContextWithRequestID(req.Context(), id)

		v, err := inj.ResolveContext(ctx, k)
		if err != nil {
			gohttp.NewResponse(w).ResolutionError(err, id)
			return
		}
		h, ok := v.(http.Handler)
		if !ok {
			r.log.Error("resolved contract is not an http.Handler", zap.Stringer("contract", k))
			gohttp.NewResponse(w).ServerError()
			return
		}
		h.ServeHTTP(w, req.WithContext(ctx))
	}))
}

// Metrics exposes g in the Prometheus text format at path.
func (r *Router) Metrics(path string, g prometheus.Gatherer) {
	r.mux.Method(http.MethodGet, path, promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// ── Groups & Prefixes ────────────────────────────────────────────────────────

// Group creates an inline group sharing middleware.
func (r *Router) Group(fn func(r *Router)) {
	r.mux.Group(func(mx chi.Router) {
		fn(&Router{mux: mx, log: r.log})
	})
}

// Prefix creates a sub-router mounted under pattern.
func (r *Router) Prefix(pattern string, fn func(r *Router)) {
	r.mux.Route(pattern, func(mx chi.Router) {
		fn(&Router{mux: mx, log: r.log})
	})
}

// Middleware adds one or more middleware to the router.
func (r *Router) Middleware(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// ── Middleware ───────────────────────────────────────────────────────────────

// RequestID reuses the client's X-Request-ID or assigns a UUID, stores it
// for middleware.GetReqID and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := gohttp.NewRequest(req).ID()
		w.Header().Set(gohttp.RequestIDHeader, id)
		ctx := context.WithValue(req.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// AccessLog writes one Info entry per request.
func AccessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, req)
			logger.Info("request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(req.Context())),
			)
		})
	}
}

// ── Serve ────────────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
