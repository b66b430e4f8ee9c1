package apikit

import (
	"net/http"
	"reflect"
	"slices"
)

// Endpoint is one (path, method, handler) binding plus its metadata. It is
// created at registration time and never modified afterwards; the values
// returned by Registry accessors are copies.
type Endpoint struct {
	Path        string
	Method      string
	Name        string
	Summary     string
	Description string
	Tags        []string
	Permission  Permission
	Handler     http.Handler

	// View is the name of the class-style view the endpoint was registered
	// from, empty for single-handler registrations.
	View string

	status     int
	reqType    reflect.Type
	respType   reflect.Type
	middleware []Middleware
}

// Status returns the default success status declared for typed handlers,
// or zero when unknown.
func (e Endpoint) Status() int { return e.status }

// RequestType returns the request type of a typed handler, or nil.
func (e Endpoint) RequestType() reflect.Type { return e.reqType }

// ResponseType returns the response type of a typed handler, or nil.
func (e Endpoint) ResponseType() reflect.Type { return e.respType }

func (e Endpoint) clone() Endpoint {
	e.Tags = slices.Clone(e.Tags)
	e.middleware = slices.Clone(e.middleware)
	return e
}

// Route is a resolved endpoint ready for the host router.
type Route struct {
	Method string
	// Path is the registry prefix joined with the endpoint's local path.
	Path     string
	Handler  http.Handler
	Endpoint Endpoint
}

// Pattern returns the route in http.ServeMux form, e.g. "GET /api/v1/users/{id}".
func (r Route) Pattern() string {
	return r.Method + " " + r.Path
}

// EndpointOption configures an endpoint at registration time.
type EndpointOption func(*Endpoint)

// WithName sets the endpoint name used by documentation exporters.
func WithName(name string) EndpointOption {
	return func(e *Endpoint) {
		e.Name = name
	}
}

// WithSummary sets a one-line summary for the endpoint.
func WithSummary(s string) EndpointOption {
	return func(e *Endpoint) {
		e.Summary = s
	}
}

// WithDescription sets the endpoint description.
func WithDescription(d string) EndpointOption {
	return func(e *Endpoint) {
		e.Description = d
	}
}

// WithTags adds tags to the endpoint. Registry tags are prepended.
func WithTags(tags ...string) EndpointOption {
	return func(e *Endpoint) {
		e.Tags = append(e.Tags, tags...)
	}
}

// WithPermission guards the endpoint with p. Endpoints without a
// permission allow every request.
func WithPermission(p Permission) EndpointOption {
	return func(e *Endpoint) {
		e.Permission = p
	}
}

// WithEndpointMiddlewares wraps only this endpoint's handler.
func WithEndpointMiddlewares(mw ...Middleware) EndpointOption {
	return func(e *Endpoint) {
		e.middleware = append(e.middleware, mw...)
	}
}

// WithStatus sets the default success status of a typed handler.
func WithStatus(code int) EndpointOption {
	return func(e *Endpoint) {
		e.status = code
	}
}
