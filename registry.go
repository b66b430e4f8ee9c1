package apikit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/stoewer/go-strcase"
)

// supportedMethods lists the verbs an endpoint may be registered for, in
// the order class-style views are expanded.
var supportedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// Registry accumulates endpoint definitions under a shared prefix. It is
// populated at startup and handed to a Router (or Mount) which installs
// the resolved routes on the host mux. After that it is only read, so no
// registration should happen once traffic is being served.
type Registry struct {
	prefix      string
	name        string
	tags        []string
	description string

	endpoints []Endpoint
	handlers  []http.Handler
	index     map[string]struct{}

	middleware   []Middleware
	endpointMW   []EndpointMiddleware
	errorHandler ErrorHandler
	validator    Validator
	bodyLimit    int64
	logger       *slog.Logger

	mu sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// ErrorHandler writes an error produced while dispatching a request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// EndpointMiddleware builds a middleware for a specific endpoint. It lets
// cross-cutting concerns such as metrics label by endpoint name.
type EndpointMiddleware func(e Endpoint) Middleware

// WithRegistryName sets the registry name used by documentation exporters.
func WithRegistryName(name string) Option {
	return func(r *Registry) {
		r.name = name
	}
}

// WithRegistryTags sets tags inherited by every endpoint of the registry.
func WithRegistryTags(tags ...string) Option {
	return func(r *Registry) {
		r.tags = append(r.tags, tags...)
	}
}

// WithRegistryDescription sets the registry description.
func WithRegistryDescription(d string) Option {
	return func(r *Registry) {
		r.description = d
	}
}

// WithMiddleware wraps every endpoint of the registry.
func WithMiddleware(mw ...Middleware) Option {
	return func(r *Registry) {
		r.middleware = append(r.middleware, mw...)
	}
}

// WithEndpointMiddleware adds endpoint-aware middleware to every endpoint.
func WithEndpointMiddleware(mw ...EndpointMiddleware) Option {
	return func(r *Registry) {
		r.endpointMW = append(r.endpointMW, mw...)
	}
}

// WithErrorHandler replaces the default JSON error writer.
func WithErrorHandler(h ErrorHandler) Option {
	return func(r *Registry) {
		r.errorHandler = h
	}
}

// WithValidator runs v on every typed request after its own constraints
// and SelfValidator checks pass.
func WithValidator(v Validator) Option {
	return func(r *Registry) {
		r.validator = v
	}
}

// WithLogger sets the logger used for registration diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// New creates a registry whose endpoints live under prefix. An empty
// prefix mounts at "/". A non-empty prefix must begin and end with "/".
func New(prefix string, opts ...Option) (*Registry, error) {
	p, err := normalizePrefix(prefix)
	if err != nil {
		return nil, &ConfigurationError{Op: "new registry", Path: prefix, Err: err}
	}

	r := &Registry{
		prefix: p,
		index:  make(map[string]struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.errorHandler == nil {
		r.errorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			WriteError(w, err)
		}
	}
	return r, nil
}

// MustNew is like New but panics on a configuration error.
func MustNew(prefix string, opts ...Option) *Registry {
	r, err := New(prefix, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Prefix returns the normalized prefix.
func (r *Registry) Prefix() string { return r.prefix }

// Name returns the registry name.
func (r *Registry) Name() string { return r.name }

// Tags returns the registry tags.
func (r *Registry) Tags() []string { return slices.Clone(r.tags) }

// Description returns the registry description.
func (r *Registry) Description() string { return r.description }

// Register adds an endpoint for method at path, relative to the prefix.
func (r *Registry) Register(path, method string, h http.Handler, opts ...EndpointOption) error {
	ep, err := r.define(path, method, h, opts)
	if err != nil {
		return err
	}
	return r.add(ep)
}

// RegisterFunc is Register for plain handler functions.
func (r *Registry) RegisterFunc(path, method string, h http.HandlerFunc, opts ...EndpointOption) error {
	return r.Register(path, method, h, opts...)
}

// Describer is implemented by views that document themselves.
type Describer interface {
	Description() string
}

// Getter handles GET requests for a class-style view.
type Getter interface {
	Get(w http.ResponseWriter, r *http.Request)
}

// Poster handles POST requests for a class-style view.
type Poster interface {
	Post(w http.ResponseWriter, r *http.Request)
}

// Putter handles PUT requests for a class-style view.
type Putter interface {
	Put(w http.ResponseWriter, r *http.Request)
}

// Patcher handles PATCH requests for a class-style view.
type Patcher interface {
	Patch(w http.ResponseWriter, r *http.Request)
}

// Deleter handles DELETE requests for a class-style view.
type Deleter interface {
	Delete(w http.ResponseWriter, r *http.Request)
}

// RegisterClass registers one endpoint per HTTP verb implemented by view,
// all at the same path and sharing name and permission. Either every verb
// is registered or none is.
func (r *Registry) RegisterClass(path string, view any, opts ...EndpointOption) error {
	verbs := viewHandlers(view)
	if len(verbs) == 0 {
		return &ConfigurationError{Op: "register class", Path: path, Err: ErrNoHandlers}
	}

	viewName := viewTypeName(view)
	base := []EndpointOption{WithName(strcase.KebabCase(viewName))}
	if d, ok := view.(Describer); ok {
		base = append(base, WithDescription(d.Description()))
	}
	opts = append(base, opts...)

	eps := make([]Endpoint, 0, len(verbs))
	for _, method := range supportedMethods {
		h, ok := verbs[method]
		if !ok {
			continue
		}
		ep, err := r.define(path, method, h, opts)
		if err != nil {
			return err
		}
		ep.View = viewName
		eps = append(eps, ep)
	}
	return r.add(eps...)
}

// Routes returns the resolved routes in registration order. Each call
// returns a fresh slice; the result is stable between calls.
func (r *Registry) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()

	routes := make([]Route, len(r.endpoints))
	for i, ep := range r.endpoints {
		routes[i] = Route{
			Method:   ep.Method,
			Path:     r.prefix + ep.Path,
			Handler:  r.handlers[i],
			Endpoint: ep.clone(),
		}
	}
	return routes
}

// Endpoints returns copies of the registered endpoint definitions.
func (r *Registry) Endpoints() []Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	return lo.Map(r.endpoints, func(ep Endpoint, _ int) Endpoint { return ep.clone() })
}

// define validates the inputs and builds an Endpoint without storing it.
func (r *Registry) define(path, method string, h http.Handler, opts []EndpointOption) (Endpoint, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	if !slices.Contains(supportedMethods, m) {
		return Endpoint{}, &ConfigurationError{Op: "register", Method: method, Path: path, Err: ErrUnsupportedMethod}
	}

	p, err := normalizePath(path)
	if err != nil {
		return Endpoint{}, &ConfigurationError{Op: "register", Method: m, Path: path, Err: err}
	}

	if h == nil || isNilHandler(h) {
		return Endpoint{}, &ConfigurationError{Op: "register", Method: m, Path: path, Err: ErrNilHandler}
	}

	ep := Endpoint{
		Path:    p,
		Method:  m,
		Handler: h,
	}
	for _, opt := range opts {
		opt(&ep)
	}
	ep.Tags = lo.Uniq(append(slices.Clone(r.tags), ep.Tags...))

	return ep, nil
}

// add stores endpoints atomically: a duplicate anywhere rejects them all.
func (r *Registry) add(eps ...Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ep := range eps {
		if _, ok := r.index[r.key(ep)]; ok {
			return &ConfigurationError{Op: "register", Method: ep.Method, Path: r.prefix + ep.Path, Err: ErrDuplicateEndpoint}
		}
	}

	for _, ep := range eps {
		r.index[r.key(ep)] = struct{}{}
		r.endpoints = append(r.endpoints, ep)
		r.handlers = append(r.handlers, r.wrap(ep))
		r.logger.Debug("endpoint registered",
			"method", ep.Method,
			"path", r.prefix+ep.Path,
			"name", ep.Name,
		)
	}
	return nil
}

func (r *Registry) key(ep Endpoint) string {
	return ep.Method + " " + r.prefix + ep.Path
}

// wrap builds the dispatch chain for ep. From the outside in: endpoint
// context, endpoint-aware middleware, registry middleware, endpoint
// middleware, permission check, body limit, handler.
func (r *Registry) wrap(ep Endpoint) http.Handler {
	h := ep.Handler
	if r.bodyLimit > 0 {
		h = BodyLimit(r.bodyLimit)(h)
	}
	h = checkPermission(ep.Permission, h, r.errorHandler)
	for i := len(ep.middleware) - 1; i >= 0; i-- {
		h = ep.middleware[i](h)
	}
	for i := len(r.middleware) - 1; i >= 0; i-- {
		h = r.middleware[i](h)
	}
	for i := len(r.endpointMW) - 1; i >= 0; i-- {
		h = r.endpointMW[i](ep.clone())(h)
	}
	return withEndpoint(ep.clone(), h)
}

type endpointKey struct{}

// endpointSlot lets outer middleware (see Logger) learn which endpoint
// served the request after the handler returns.
type endpointSlot struct {
	ep Endpoint
	ok bool
}

type endpointSlotKey struct{}

func withEndpoint(ep Endpoint, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slot, ok := r.Context().Value(endpointSlotKey{}).(*endpointSlot); ok {
			slot.ep, slot.ok = ep, true
		}
		ctx := context.WithValue(r.Context(), endpointKey{}, ep)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// EndpointFrom returns the endpoint serving the request, if any.
func EndpointFrom(ctx context.Context) (Endpoint, bool) {
	ep, ok := ctx.Value(endpointKey{}).(Endpoint)
	return ep, ok
}

func normalizePrefix(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "/", nil
	}
	if !strings.HasPrefix(prefix, "/") {
		return "", fmt.Errorf("%w: must start with a slash", ErrInvalidPrefix)
	}
	if !strings.HasSuffix(prefix, "/") {
		return "", fmt.Errorf("%w: must end with a slash", ErrInvalidPrefix)
	}
	if err := checkSegments(prefix); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPrefix, err)
	}
	return prefix, nil
}

func normalizePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("%w: must not start with a slash", ErrInvalidPath)
	}
	if err := checkSegments(path); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	return path, nil
}

// checkSegments rejects whitespace, empty segments and malformed
// wildcards. Wildcards follow http.ServeMux syntax: {name}, {name...}, {$}.
func checkSegments(s string) error {
	if strings.ContainsAny(s, " \t\r\n") {
		return fmt.Errorf("contains whitespace")
	}
	if strings.Contains(s, "//") {
		return fmt.Errorf("contains an empty segment")
	}

	depth := 0
	for _, c := range s {
		switch c {
		case '{':
			depth++
		case '}':
			depth--
		}
		if depth < 0 || depth > 1 {
			return fmt.Errorf("unbalanced braces")
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced braces")
	}

	for seg := range strings.SplitSeq(s, "/") {
		if !strings.ContainsAny(seg, "{}") {
			continue
		}
		if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
			return fmt.Errorf("wildcard must be a full segment: %q", seg)
		}
		name := strings.TrimSuffix(strings.TrimSuffix(seg[1:len(seg)-1], "..."), "$")
		if name == "" && seg != "{$}" {
			return fmt.Errorf("empty wildcard name")
		}
	}
	return nil
}

func viewHandlers(view any) map[string]http.Handler {
	if view == nil {
		return nil
	}
	verbs := make(map[string]http.Handler)
	if v, ok := view.(Getter); ok {
		verbs[http.MethodGet] = http.HandlerFunc(v.Get)
	}
	if v, ok := view.(Poster); ok {
		verbs[http.MethodPost] = http.HandlerFunc(v.Post)
	}
	if v, ok := view.(Putter); ok {
		verbs[http.MethodPut] = http.HandlerFunc(v.Put)
	}
	if v, ok := view.(Patcher); ok {
		verbs[http.MethodPatch] = http.HandlerFunc(v.Patch)
	}
	if v, ok := view.(Deleter); ok {
		verbs[http.MethodDelete] = http.HandlerFunc(v.Delete)
	}
	return verbs
}

func viewTypeName(view any) string {
	t := reflect.TypeOf(view)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func isNilHandler(h http.Handler) bool {
	v := reflect.ValueOf(h)
	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
