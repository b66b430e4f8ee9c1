// Package chiroute mounts apikit registries on a chi router.
package chiroute

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/bjaus/apikit"
)

var (
	catchAll = regexp.MustCompile(`\{([^{}]+)\.\.\.\}$`)
	exact    = regexp.MustCompile(`\{\$\}$`)
)

// Mount installs the routes of regs on r. Path wildcards are copied into
// the request with SetPathValue, so handlers read them with r.PathValue
// exactly as they would behind an http.ServeMux.
func Mount(r chi.Router, regs ...*apikit.Registry) error {
	seen := make(map[string]struct{})
	var routes []apikit.Route
	for _, reg := range regs {
		for _, rt := range reg.Routes() {
			if _, ok := seen[rt.Pattern()]; ok {
				return &apikit.ConfigurationError{Op: "mount", Method: rt.Method, Path: rt.Path, Err: apikit.ErrDuplicateEndpoint}
			}
			seen[rt.Pattern()] = struct{}{}
			routes = append(routes, rt)
		}
	}

	for _, rt := range routes {
		if err := handle(r, rt); err != nil {
			return err
		}
	}
	return nil
}

// Pattern converts a mux path to chi syntax. It returns the name of the
// trailing catch-all wildcard, if any.
func Pattern(path string) (string, string) {
	path = exact.ReplaceAllString(path, "")
	m := catchAll.FindStringSubmatch(path)
	if m == nil {
		return path, ""
	}
	return catchAll.ReplaceAllString(path, "*"), m[1]
}

// handle converts chi registration panics into errors.
func handle(r chi.Router, rt apikit.Route) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &apikit.ConfigurationError{
				Op:     "mount",
				Method: rt.Method,
				Path:   rt.Path,
				Err:    fmt.Errorf("%w: %v", apikit.ErrRouteConflict, rec),
			}
		}
	}()

	pattern, rest := Pattern(rt.Path)
	r.Method(rt.Method, pattern, withPathValues(rest, rt.Handler))
	return nil
}

func withPathValues(rest string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			for i, key := range rctx.URLParams.Keys {
				if key == "*" {
					if rest == "" {
						continue
					}
					key = rest
				}
				r.SetPathValue(key, rctx.URLParams.Values[i])
			}
		}
		next.ServeHTTP(w, r)
	})
}
