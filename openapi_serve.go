package apikit

import (
	"encoding/json"
	"io"
	"net/http"
)

// ServeSpec registers a GET handler at path that serves the OpenAPI
// document as JSON.
func (r *Router) ServeSpec(path string) {
	r.Handle("GET "+path, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, r.Spec())
	}))
}

// ServeSpecYAML registers a GET handler at path that serves the OpenAPI
// document as YAML.
func (r *Router) ServeSpecYAML(path string) {
	r.Handle("GET "+path, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", YAML.ContentType())
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck,gosec // best-effort after WriteHeader
		YAML.Encode(w, r.Spec())
	}))
}

// WriteSpec writes the OpenAPI document as indented JSON to w.
func (r *Router) WriteSpec(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Spec())
}

// WriteSpecYAML writes the OpenAPI document as YAML to w.
func (r *Router) WriteSpecYAML(w io.Writer) error {
	return YAML.Encode(w, r.Spec())
}
