package apikit

import (
	"fmt"
	"net/http"
)

// WithBodyLimit caps the request body of every endpoint of the registry
// at maxBytes. Zero disables the limit.
func WithBodyLimit(maxBytes int64) Option {
	return func(r *Registry) {
		r.bodyLimit = maxBytes
	}
}

// BodyLimit returns middleware that rejects request bodies larger than
// maxBytes with 413. Bodies without a declared length are cut off while
// being read, which decoders report the same way.
func BodyLimit(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				WriteError(w, bodyTooLarge(maxBytes))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bodyTooLarge(limit int64) error {
	return &HTTPError{
		Status:  http.StatusRequestEntityTooLarge,
		Message: fmt.Sprintf("request body exceeds %d bytes", limit),
		Code:    CodeBodyTooLarge,
	}
}
