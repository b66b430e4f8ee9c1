package apikit

import (
	"context"
	"net/http"
)

type valueKey[T any] struct{}

// SetValue returns r with val stored under its type. Middleware uses it to
// hand values such as the authenticated user to handlers and permissions.
func SetValue[T any](r *http.Request, val T) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), valueKey[T]{}, val))
}

// GetValue returns the value of type T stored by SetValue.
func GetValue[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(valueKey[T]{}).(T)
	return val, ok
}
