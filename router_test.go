package apikit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/apikit"
)

func TestRouter_Include(t *testing.T) {
	t.Parallel()

	users := apikit.MustNew("/api/v1/", apikit.WithRegistryName("users"))
	require.NoError(t, users.RegisterFunc("users/{id}", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		apikit.WriteJSON(w, http.StatusOK, map[string]string{"id": r.PathValue("id")})
	}))
	health := apikit.MustNew("")
	require.NoError(t, health.RegisterFunc("healthz", http.MethodGet, ok))

	r := apikit.NewRouter()
	require.NoError(t, r.Include(users, health))
	assert.Equal(t, []*apikit.Registry{users, health}, r.Registries())

	tests := map[string]struct {
		method string
		target string
		status int
		body   string
	}{
		"path value":      {method: http.MethodGet, target: "/api/v1/users/42", status: http.StatusOK, body: `{"id":"42"}`},
		"root registry":   {method: http.MethodGet, target: "/healthz", status: http.StatusOK},
		"unknown path":    {method: http.MethodGet, target: "/api/v1/nope", status: http.StatusNotFound},
		"wrong method":    {method: http.MethodPost, target: "/healthz", status: http.StatusMethodNotAllowed},
		"prefix required": {method: http.MethodGet, target: "/users/42", status: http.StatusNotFound},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, nil))
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestRouter_Include_duplicate_across_registries(t *testing.T) {
	t.Parallel()

	a := apikit.MustNew("/api/")
	require.NoError(t, a.RegisterFunc("items/", http.MethodGet, ok))
	b := apikit.MustNew("/")
	require.NoError(t, b.RegisterFunc("api/items/", http.MethodGet, ok))

	r := apikit.NewRouter()
	require.NoError(t, r.Include(a))
	err := r.Include(b)
	require.ErrorIs(t, err, apikit.ErrDuplicateEndpoint)
	assert.Len(t, r.Registries(), 1)

	require.ErrorIs(t, apikit.NewRouter().Include(a, b), apikit.ErrDuplicateEndpoint)
}

func TestRouter_Include_conflicting_wildcards(t *testing.T) {
	t.Parallel()

	a := apikit.MustNew("/")
	require.NoError(t, a.RegisterFunc("items/{id}", http.MethodGet, ok))
	b := apikit.MustNew("/")
	require.NoError(t, b.RegisterFunc("items/{name}", http.MethodGet, ok))

	err := apikit.NewRouter().Include(a, b)
	require.ErrorIs(t, err, apikit.ErrRouteConflict)
}

func TestRouter_Include_conflictMountsNothing(t *testing.T) {
	t.Parallel()

	first := apikit.MustNew("/")
	require.NoError(t, first.RegisterFunc("a/{id}/b", http.MethodGet, ok))

	second := apikit.MustNew("/")
	require.NoError(t, second.RegisterFunc("fresh", http.MethodGet, ok))
	require.NoError(t, second.RegisterFunc("{x}/c/b", http.MethodGet, ok))

	r := apikit.NewRouter()
	require.NoError(t, r.Include(first))
	require.ErrorIs(t, r.Include(second), apikit.ErrRouteConflict)
	assert.Equal(t, []*apikit.Registry{first}, r.Registries())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fresh", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "routes preceding the conflict are not installed")

	retry := apikit.MustNew("/")
	require.NoError(t, retry.RegisterFunc("fresh", http.MethodGet, ok))
	require.NoError(t, r.Include(retry))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fresh", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Include_afterHandle(t *testing.T) {
	t.Parallel()

	r := apikit.NewRouter()
	r.Handle("GET /metrics", http.NotFoundHandler())

	reg := apikit.MustNew("/")
	require.NoError(t, reg.RegisterFunc("metrics", http.MethodGet, ok))
	require.ErrorIs(t, r.Include(reg), apikit.ErrDuplicateEndpoint)
	assert.Empty(t, r.Registries())
}

func TestRouter_Use(t *testing.T) {
	t.Parallel()

	reg := apikit.MustNew("/")
	require.NoError(t, reg.RegisterFunc("x", http.MethodGet, ok))

	r := apikit.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Custom", "applied")
			next.ServeHTTP(w, req)
		})
	})
	require.NoError(t, r.Include(reg))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "applied", rec.Header().Get("X-Custom"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, "applied", rec.Header().Get("X-Custom"), "global middleware sees unmatched requests")
}

func TestRouter_Handle(t *testing.T) {
	t.Parallel()

	r := apikit.NewRouter()
	r.Handle("GET /metrics", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMount(t *testing.T) {
	t.Parallel()

	reg := apikit.MustNew("/v1/")
	require.NoError(t, reg.RegisterFunc("ping", http.MethodGet, ok))

	mux := http.NewServeMux()
	require.NoError(t, apikit.Mount(mux, reg))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.ErrorIs(t, apikit.Mount(mux, reg), apikit.ErrRouteConflict)
}

func TestRouter_ListenAndServe_shutdown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- apikit.NewRouter().ListenAndServe(ctx, "127.0.0.1:0", 0)
	}()
	cancel()
	require.NoError(t, <-done)
}
