package apikit

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"
)

// Router installs the routes of one or more registries on an
// http.ServeMux and applies global middleware. It implements http.Handler.
type Router struct {
	mux        *http.ServeMux
	middleware []Middleware
	registries []*Registry
	seen       map[string]struct{}

	title       string
	version     string
	description string

	mu sync.Mutex
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithTitle sets the API title (used in generated documents).
func WithTitle(title string) RouterOption {
	return func(r *Router) {
		r.title = title
	}
}

// WithVersion sets the API version (used in generated documents).
func WithVersion(version string) RouterOption {
	return func(r *Router) {
		r.version = version
	}
}

// WithAPIDescription sets the API description (used in generated documents).
func WithAPIDescription(d string) RouterOption {
	return func(r *Router) {
		r.description = d
	}
}

// NewRouter creates a Router with the given options.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		mux:  http.NewServeMux(),
		seen: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds middleware to the router. Middleware is applied in the order added.
func (r *Router) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// Include mounts every route of regs. A (method, path) pair that another
// included registry already serves, or a pattern the mux rejects, is
// reported as a ConfigurationError and nothing from regs is mounted.
func (r *Router) Include(regs ...*Registry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := mount(r.mux, r.seen, regs); err != nil {
		return err
	}
	r.registries = append(r.registries, regs...)
	return nil
}

// Handle registers a handler on the underlying mux outside of any
// registry, e.g. for a metrics endpoint. Like http.ServeMux.Handle it
// panics on a conflicting pattern.
func (r *Router) Handle(pattern string, h http.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mux.Handle(pattern, h)
	r.seen[pattern] = struct{}{}
}

// Registries returns the included registries in inclusion order.
func (r *Router) Registries() []*Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.registries)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := http.Handler(r.mux)
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}
	handler.ServeHTTP(w, req)
}

// ListenAndServe starts an HTTP server on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (r *Router) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Mount installs the routes of regs on mux. Conflicts among regs leave
// mux untouched; a conflict with a pattern registered on mux beforehand is
// reported after the routes preceding it were installed.
func Mount(mux *http.ServeMux, regs ...*Registry) error {
	return mount(mux, make(map[string]struct{}), regs)
}

func mount(mux *http.ServeMux, seen map[string]struct{}, regs []*Registry) error {
	var routes []Route
	pending := make(map[string]struct{})
	for _, reg := range regs {
		for _, rt := range reg.Routes() {
			key := rt.Pattern()
			if _, ok := seen[key]; ok {
				return &ConfigurationError{Op: "mount", Method: rt.Method, Path: rt.Path, Err: ErrDuplicateEndpoint}
			}
			if _, ok := pending[key]; ok {
				return &ConfigurationError{Op: "mount", Method: rt.Method, Path: rt.Path, Err: ErrDuplicateEndpoint}
			}
			pending[key] = struct{}{}
			routes = append(routes, rt)
		}
	}

	// Dry run on a scratch mux holding every known pattern.
	scratch := http.NewServeMux()
	for pattern := range seen {
		scratch.Handle(pattern, http.NotFoundHandler())
	}
	for _, rt := range routes {
		if err := handle(scratch, rt); err != nil {
			return err
		}
	}

	for _, rt := range routes {
		if err := handle(mux, rt); err != nil {
			return err
		}
		seen[rt.Pattern()] = struct{}{}
	}
	return nil
}

// handle converts http.ServeMux registration panics into errors.
func handle(mux *http.ServeMux, rt Route) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &ConfigurationError{
				Op:     "mount",
				Method: rt.Method,
				Path:   rt.Path,
				Err:    fmt.Errorf("%w: %v", ErrRouteConflict, rec),
			}
		}
	}()
	mux.Handle(rt.Pattern(), rt.Handler)
	return nil
}
