package apikit

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// DefaultRequestIDHeader carries the request id in both directions.
const DefaultRequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds ids accepted from clients.
const maxRequestIDLen = 128

type requestIDKey struct{}

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	Header    string        // default: DefaultRequestIDHeader
	Generator func() string // default: random UUID
}

// RequestID returns middleware that tags every request with an id. A
// well-formed id sent by the client is kept, otherwise a new one is
// generated. The id is echoed in the response header.
func RequestID(cfg ...RequestIDConfig) Middleware {
	header, generate := DefaultRequestIDHeader, uuid.NewString
	if len(cfg) > 0 {
		if cfg[0].Header != "" {
			header = cfg[0].Header
		}
		if cfg[0].Generator != nil {
			generate = cfg[0].Generator
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(header)
			if !validRequestID(id) {
				id = generate()
			}
			w.Header().Set(header, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// validRequestID accepts short ids made of printable ASCII.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := range len(id) {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// RequestIDFrom returns the id stored by RequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// GetRequestID is RequestIDFrom for a request.
func GetRequestID(r *http.Request) string {
	return RequestIDFrom(r.Context())
}
