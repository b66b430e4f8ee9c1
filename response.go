package apikit

import (
	"net/http"
)

// HeaderSetter is optionally implemented by response types to set response headers.
type HeaderSetter interface {
	SetHeaders(h http.Header)
}

// Respond encodes v with the encoder negotiated from the Accept header.
// A response implementing StatusCoder overrides status.
func Respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if hs, ok := v.(HeaderSetter); ok {
		hs.SetHeaders(w.Header())
	}
	if sc, ok := v.(StatusCoder); ok {
		status = sc.StatusCode()
	}

	enc := negotiate(r.Header.Get("Accept"))
	w.Header().Set("Content-Type", enc.ContentType())
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort after WriteHeader
	enc.Encode(w, v)
}

// WriteJSON writes v as JSON regardless of the Accept header.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", JSON.ContentType())
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort after WriteHeader
	JSON.Encode(w, v)
}
