package apikit

import (
	"errors"
	"net/http"
)

// SelfValidator is implemented by request types that validate themselves.
type SelfValidator interface {
	Validate() error
}

// Validator validates any request. Install one on a registry with
// WithValidator to plug in an external validation library.
type Validator interface {
	Validate(req any) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(req any) error

// Validate calls f(req).
func (f ValidatorFunc) Validate(req any) error { return f(req) }

// InvalidBodyMessage is the message of every input validation error.
const InvalidBodyMessage = "invalid data in body"

// InputError reports invalid input with the given field violations.
func InputError(violations ...ValidationError) error {
	e := &HTTPError{Status: http.StatusBadRequest, Message: InvalidBodyMessage, Code: CodeInputError}
	if len(violations) > 0 {
		e.Meta = violations
	}
	return e
}

// Validate checks the constraint tags of v and then, when v implements
// SelfValidator, its own rules. Failures are returned as a 400 INPUT_ERROR
// whose meta lists the violations.
func Validate(v any) error {
	if errs := constraintViolations(v); len(errs) > 0 {
		return InputError(errs...)
	}

	sv, ok := v.(SelfValidator)
	if !ok {
		return nil
	}
	err := sv.Validate()
	if err == nil {
		return nil
	}

	var he *HTTPError
	if errors.As(err, &he) {
		return err
	}
	var ve ValidationError
	if errors.As(err, &ve) {
		return InputError(ve)
	}
	return InputError(ValidationError{Message: err.Error()})
}

// Error makes a single ValidationError usable as an error.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidateBody is middleware that decodes the JSON request body into a T,
// validates it and stores it for the handler (see ValidatedBody). Invalid
// bodies are answered with a 400 INPUT_ERROR and never reach next.
func ValidateBody[T any](next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := new(T)
		if err := DecodeJSON(r, body); err != nil {
			WriteError(w, err)
			return
		}
		if err := Validate(body); err != nil {
			WriteError(w, err)
			return
		}
		next.ServeHTTP(w, SetValue(r, body))
	})
}

// ValidatedBody returns the body stored by ValidateBody[T].
func ValidatedBody[T any](r *http.Request) (*T, bool) {
	return GetValue[*T](r.Context())
}
