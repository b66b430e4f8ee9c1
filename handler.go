package apikit

import (
	"context"
	"errors"
	"net/http"
	"reflect"
)

// Void is used as a type parameter when a request has no parameters/body
// or a response has no body (results in 204 No Content).
type Void struct{}

// Handler is the typed handler signature. The registry owns decoding,
// validation and encoding; handlers never see the ResponseWriter.
type Handler[Req, Resp any] func(ctx context.Context, req *Req) (*Resp, error)

// Get registers a typed GET handler.
func Get[Req, Resp any](reg *Registry, path string, h Handler[Req, Resp], opts ...EndpointOption) error {
	return register(reg, http.MethodGet, path, h, opts)
}

// Post registers a typed POST handler.
func Post[Req, Resp any](reg *Registry, path string, h Handler[Req, Resp], opts ...EndpointOption) error {
	return register(reg, http.MethodPost, path, h, opts)
}

// Put registers a typed PUT handler.
func Put[Req, Resp any](reg *Registry, path string, h Handler[Req, Resp], opts ...EndpointOption) error {
	return register(reg, http.MethodPut, path, h, opts)
}

// Patch registers a typed PATCH handler.
func Patch[Req, Resp any](reg *Registry, path string, h Handler[Req, Resp], opts ...EndpointOption) error {
	return register(reg, http.MethodPatch, path, h, opts)
}

// Delete registers a typed DELETE handler.
func Delete[Req, Resp any](reg *Registry, path string, h Handler[Req, Resp], opts ...EndpointOption) error {
	return register(reg, http.MethodDelete, path, h, opts)
}

func register[Req, Resp any](reg *Registry, method, path string, h Handler[Req, Resp], opts []EndpointOption) error {
	if h == nil {
		return &ConfigurationError{Op: "register", Method: method, Path: path, Err: ErrNilHandler}
	}

	// The placeholder is replaced once options have settled the status.
	ep, err := reg.define(path, method, http.NotFoundHandler(), opts)
	if err != nil {
		return err
	}

	ep.reqType = reflect.TypeFor[Req]()
	ep.respType = reflect.TypeFor[Resp]()
	if ep.status == 0 {
		if ep.respType == reflect.TypeFor[Void]() {
			ep.status = http.StatusNoContent
		} else {
			ep.status = http.StatusOK
		}
	}
	ep.Handler = buildHandler(h, ep.status, reg.errorHandler, reg.validator)

	return reg.add(ep)
}

// buildHandler wraps a typed Handler into an http.Handler.
func buildHandler[Req, Resp any](h Handler[Req, Resp], status int, onErr ErrorHandler, v Validator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRequest[Req](r)
		if err != nil {
			var he *HTTPError
			if !errors.As(err, &he) {
				err = CodedError(http.StatusBadRequest, CodeInputError, err.Error())
			}
			onErr(w, r, err)
			return
		}

		if err := Validate(req); err != nil {
			onErr(w, r, err)
			return
		}
		if v != nil {
			if err := v.Validate(req); err != nil {
				if ErrorStatus(err) == http.StatusInternalServerError {
					err = InputError(ValidationError{Message: err.Error()})
				}
				onErr(w, r, err)
				return
			}
		}

		resp, err := h(r.Context(), req)
		if err != nil {
			onErr(w, r, err)
			return
		}

		if _, ok := any(resp).(*Void); ok || resp == nil {
			w.WriteHeader(status)
			return
		}

		Respond(w, r, status, resp)
	})
}
