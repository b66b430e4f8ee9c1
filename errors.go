package apikit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors wrapped by ConfigurationError.
var (
	ErrInvalidPrefix     = errors.New("invalid prefix")
	ErrInvalidPath       = errors.New("invalid path")
	ErrUnsupportedMethod = errors.New("unsupported method")
	ErrDuplicateEndpoint = errors.New("duplicate endpoint")
	ErrNilHandler        = errors.New("nil handler")
	ErrNoHandlers        = errors.New("view implements no http verbs")
	ErrRouteConflict     = errors.New("route conflict")
)

// Sentinel errors for request binding.
var (
	ErrBindPath   = errors.New("bind path")
	ErrBindQuery  = errors.New("bind query")
	ErrBindHeader = errors.New("bind header")
	ErrBindBody   = errors.New("bind body")
)

// Error codes carried in error response bodies.
const (
	CodeInputError       = "INPUT_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeBodyTooLarge     = "BODY_TOO_LARGE"
	CodeInternal         = "INTERNAL_ERROR"
)

// ConfigurationError reports a registration-time mistake. It is returned
// while the application is being wired, never while serving traffic.
type ConfigurationError struct {
	Op     string
	Method string
	Path   string
	Err    error
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Method != "" && e.Path != "":
		return fmt.Sprintf("apikit: %s %s %s: %v", e.Op, e.Method, e.Path, e.Err)
	case e.Path != "":
		return fmt.Sprintf("apikit: %s %q: %v", e.Op, e.Path, e.Err)
	default:
		return fmt.Sprintf("apikit: %s: %v", e.Op, e.Err)
	}
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// StatusCoder is implemented by errors or responses that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// ValidationError describes a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// HTTPError is an error with an HTTP status code and a machine readable code.
type HTTPError struct {
	Status  int
	Message string
	Code    string
	Meta    any
}

// Error returns the error message.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Body returns the wire representation of the error.
func (e *HTTPError) Body() ErrorBody {
	return ErrorBody{Error: e.Message, Code: e.Code, Meta: e.Meta}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Meta  any    `json:"meta,omitempty"`
}

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// CodedError returns an error with an explicit error code.
func CodedError(status int, code, message string) error {
	return &HTTPError{Status: status, Message: message, Code: code}
}

// NotFound reports a missing resource.
func NotFound(format string, args ...any) error {
	return &HTTPError{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...), Code: CodeNotFound}
}

// Forbidden reports a permission failure.
func Forbidden(message string) error {
	return &HTTPError{Status: http.StatusForbidden, Message: message, Code: CodePermissionDenied}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// WriteError writes err as a JSON error body. Errors that are not an
// *HTTPError are reported as a generic server error so internals don't leak.
func WriteError(w http.ResponseWriter, err error) {
	var he *HTTPError
	if !errors.As(err, &he) {
		he = &HTTPError{Status: ErrorStatus(err), Message: err.Error()}
		if he.Status == http.StatusInternalServerError {
			he.Message = http.StatusText(he.Status)
			he.Code = CodeInternal
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.Status)
	//nolint:errcheck,errchkjson,gosec // best-effort after WriteHeader
	json.NewEncoder(w).Encode(he.Body())
}
