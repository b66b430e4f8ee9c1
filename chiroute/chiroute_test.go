package chiroute_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/apikit"
	"github.com/bjaus/apikit/chiroute"
)

type getReq struct {
	ID string `path:"id"`
}

type getResp struct {
	ID string `json:"id"`
}

func echo(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.PathValue(name)))
	}
}

func TestMount(t *testing.T) {
	t.Parallel()

	reg := apikit.MustNew("/api/")
	require.NoError(t, reg.RegisterFunc("users/{id}", http.MethodGet, echo("id")))
	require.NoError(t, reg.RegisterFunc("files/{path...}", http.MethodGet, echo("path")))
	require.NoError(t, reg.RegisterFunc("{$}", http.MethodGet, echo("none")))
	require.NoError(t, apikit.Get[getReq, getResp](reg, "posts/{id}", func(_ context.Context, req *getReq) (*getResp, error) {
		return &getResp{ID: req.ID}, nil
	}))

	r := chi.NewRouter()
	require.NoError(t, chiroute.Mount(r, reg))

	tests := map[string]struct {
		method string
		target string
		status int
		body   string
	}{
		"path value":    {method: http.MethodGet, target: "/api/users/42", status: http.StatusOK, body: "42"},
		"catch all":     {method: http.MethodGet, target: "/api/files/a/b.txt", status: http.StatusOK, body: "a/b.txt"},
		"exact root":    {method: http.MethodGet, target: "/api/", status: http.StatusOK, body: ""},
		"typed handler": {method: http.MethodGet, target: "/api/posts/p1", status: http.StatusOK, body: "{\"id\":\"p1\"}\n"},
		"wrong method":  {method: http.MethodPost, target: "/api/users/42", status: http.StatusMethodNotAllowed},
		"unknown path":  {method: http.MethodGet, target: "/api/nope/x/y", status: http.StatusNotFound},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.target, nil))

			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}

func TestMountDuplicate(t *testing.T) {
	t.Parallel()

	a := apikit.MustNew("/api/")
	b := apikit.MustNew("/api/")
	require.NoError(t, a.RegisterFunc("users/", http.MethodGet, echo("x")))
	require.NoError(t, b.RegisterFunc("users/", http.MethodGet, echo("x")))

	err := chiroute.Mount(chi.NewRouter(), a, b)
	assert.ErrorIs(t, err, apikit.ErrDuplicateEndpoint)

	var ce *apikit.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "/api/users/", ce.Path)
}

func TestPattern(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in, pattern, rest string
	}{
		"plain":     {in: "/api/users/", pattern: "/api/users/"},
		"param":     {in: "/api/users/{id}", pattern: "/api/users/{id}"},
		"catch all": {in: "/static/{path...}", pattern: "/static/*", rest: "path"},
		"exact":     {in: "/api/{$}", pattern: "/api/"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			pattern, rest := chiroute.Pattern(tc.in)
			assert.Equal(t, tc.pattern, pattern)
			assert.Equal(t, tc.rest, rest)
		})
	}
}
