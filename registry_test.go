package apikit_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/apikit"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

type exampleView struct{}

func (exampleView) Description() string                         { return "Example resource." }
func (exampleView) Get(w http.ResponseWriter, r *http.Request)  { ok(w, r) }
func (exampleView) Post(w http.ResponseWriter, r *http.Request) { ok(w, r) }

type emptyView struct{}

func TestNew_prefix(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		prefix  string
		want    string
		wantErr bool
	}{
		"empty mounts at root": {prefix: "", want: "/"},
		"root":                 {prefix: "/", want: "/"},
		"versioned":            {prefix: "/api/v1/", want: "/api/v1/"},
		"surrounding spaces":   {prefix: " /api/ ", want: "/api/"},
		"no leading slash":     {prefix: "api/", wantErr: true},
		"no trailing slash":    {prefix: "/api", wantErr: true},
		"empty segment":        {prefix: "/api//v1/", wantErr: true},
		"inner whitespace":     {prefix: "/my api/", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			reg, err := apikit.New(tc.prefix)
			if tc.wantErr {
				require.ErrorIs(t, err, apikit.ErrInvalidPrefix)
				var cerr *apikit.ConfigurationError
				require.ErrorAs(t, err, &cerr)
				assert.Equal(t, "new registry", cerr.Op)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, reg.Prefix())
		})
	}
}

func TestMustNew_panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { apikit.MustNew("nope") })
	assert.NotPanics(t, func() { apikit.MustNew("/ok/") })
}

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		path    string
		method  string
		handler http.Handler
		wantErr error
	}{
		"valid":              {path: "example/", method: http.MethodGet, handler: http.HandlerFunc(ok)},
		"lowercase method":   {path: "example/", method: "post", handler: http.HandlerFunc(ok)},
		"wildcard":           {path: "users/{id}", method: http.MethodGet, handler: http.HandlerFunc(ok)},
		"catch all":          {path: "files/{path...}", method: http.MethodGet, handler: http.HandlerFunc(ok)},
		"exact end":          {path: "{$}", method: http.MethodGet, handler: http.HandlerFunc(ok)},
		"empty path":         {path: "", method: http.MethodGet, handler: http.HandlerFunc(ok)},
		"leading slash":      {path: "/example/", method: http.MethodGet, handler: http.HandlerFunc(ok), wantErr: apikit.ErrInvalidPath},
		"partial wildcard":   {path: "users/id{id}", method: http.MethodGet, handler: http.HandlerFunc(ok), wantErr: apikit.ErrInvalidPath},
		"unbalanced":         {path: "users/{id", method: http.MethodGet, handler: http.HandlerFunc(ok), wantErr: apikit.ErrInvalidPath},
		"empty wildcard":     {path: "users/{}", method: http.MethodGet, handler: http.HandlerFunc(ok), wantErr: apikit.ErrInvalidPath},
		"unsupported method": {path: "example/", method: http.MethodOptions, handler: http.HandlerFunc(ok), wantErr: apikit.ErrUnsupportedMethod},
		"nil handler":        {path: "example/", method: http.MethodGet, handler: nil, wantErr: apikit.ErrNilHandler},
		"nil func handler":   {path: "example/", method: http.MethodGet, handler: http.HandlerFunc(nil), wantErr: apikit.ErrNilHandler},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			reg := apikit.MustNew("/api/v1/")
			err := reg.Register(tc.path, tc.method, tc.handler)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, reg.Endpoints())
				return
			}
			require.NoError(t, err)
			require.Len(t, reg.Routes(), 1)
		})
	}
}

func TestRegistry_Routes_prefix_concatenation(t *testing.T) {
	t.Parallel()

	reg := apikit.MustNew("/api/v1/")
	require.NoError(t, reg.RegisterFunc("example/", http.MethodGet, ok, apikit.WithName("example")))

	routes := reg.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, http.MethodGet, routes[0].Method)
	assert.Equal(t, "/api/v1/example/", routes[0].Path)
	assert.Equal(t, "GET /api/v1/example/", routes[0].Pattern())
	assert.Equal(t, "example", routes[0].Endpoint.Name)
	assert.Equal(t, "example/", routes[0].Endpoint.Path)
}

func TestRegistry_Routes_stable(t *testing.T) {
	t.Parallel()

	reg := apikit.MustNew("/api/")
	require.NoError(t, reg.RegisterFunc("a/", http.MethodGet, ok, apikit.WithName("a")))
	require.NoError(t, reg.RegisterFunc("b/", http.MethodPost, ok, apikit.WithName("b")))
	require.NoError(t, reg.RegisterFunc("a/", http.MethodDelete, ok, apikit.WithName("c")))

	summarize := func(routes []apikit.Route) []string {
		out := make([]string, len(routes))
		for i, rt := range routes {
			out[i] = rt.Pattern() + " " + rt.Endpoint.Name
		}
		return out
	}

	first := summarize(reg.Routes())
	assert.Equal(t, []string{"GET /api/a/ a", "POST /api/b/ b", "DELETE /api/a/ c"}, first)
	assert.Equal(t, first, summarize(reg.Routes()))
}

func TestRegistry_Register_duplicate(t *testing.T) {
	t.Parallel()

	reg := apikit.MustNew("/api/v1/")
	require.NoError(t, reg.RegisterFunc("example/", http.MethodGet, ok))
	require.NoError(t, reg.RegisterFunc("example/", http.MethodPost, ok))

	err := reg.RegisterFunc("example/", "get", ok)
	require.ErrorIs(t, err, apikit.ErrDuplicateEndpoint)
	assert.Contains(t, err.Error(), "GET /api/v1/example/")
	assert.Len(t, reg.Endpoints(), 2)
}

func TestRegistry_RegisterClass(t *testing.T) {
	t.Parallel()

	reg := apikit.MustNew("/api/v1/", apikit.WithRegistryTags("core"))
	require.NoError(t, reg.RegisterClass("example/", exampleView{}, apikit.WithTags("examples")))

	eps := reg.Endpoints()
	require.Len(t, eps, 2)
	assert.Equal(t, http.MethodGet, eps[0].Method)
	assert.Equal(t, http.MethodPost, eps[1].Method)
	for _, ep := range eps {
		assert.Equal(t, "example/", ep.Path)
		assert.Equal(t, "example-view", ep.Name)
		assert.Equal(t, "exampleView", ep.View)
		assert.Equal(t, "Example resource.", ep.Description)
		assert.Equal(t, []string{"core", "examples"}, ep.Tags)
	}
}

func TestRegistry_RegisterClass_errors(t *testing.T) {
	t.Parallel()

	reg := apikit.MustNew("/")
	require.ErrorIs(t, reg.RegisterClass("empty/", emptyView{}), apikit.ErrNoHandlers)
	require.ErrorIs(t, reg.RegisterClass("nil/", nil), apikit.ErrNoHandlers)

	require.NoError(t, reg.RegisterFunc("example/", http.MethodPost, ok))
	err := reg.RegisterClass("example/", exampleView{})
	require.ErrorIs(t, err, apikit.ErrDuplicateEndpoint)
	assert.Len(t, reg.Endpoints(), 1, "a rejected view registers none of its verbs")
}

func TestRegistry_Endpoints_copies(t *testing.T) {
	t.Parallel()

	reg := apikit.MustNew("/", apikit.WithRegistryName("core"), apikit.WithRegistryDescription("Core API"))
	require.NoError(t, reg.RegisterFunc("x/", http.MethodGet, ok, apikit.WithTags("a")))

	eps := reg.Endpoints()
	eps[0].Tags[0] = "changed"
	eps[0].Name = "changed"

	again := reg.Endpoints()
	assert.Equal(t, []string{"a"}, again[0].Tags)
	assert.Empty(t, again[0].Name)
	assert.Equal(t, "core", reg.Name())
	assert.Equal(t, "Core API", reg.Description())
}

func TestRegistry_dispatch_order(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) apikit.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	reg := apikit.MustNew("/",
		apikit.WithMiddleware(mark("registry")),
		apikit.WithEndpointMiddleware(func(ep apikit.Endpoint) apikit.Middleware {
			return mark("endpoint-aware:" + ep.Name)
		}),
	)
	perm := apikit.PermissionFunc(func(*http.Request) error {
		order = append(order, "permission")
		return nil
	})
	require.NoError(t, reg.RegisterFunc("x/", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		ep, found := apikit.EndpointFrom(r.Context())
		require.True(t, found)
		order = append(order, "handler:"+ep.Name)
		ok(w, r)
	}, apikit.WithName("x"), apikit.WithPermission(perm), apikit.WithEndpointMiddlewares(mark("local"))))

	rec := httptest.NewRecorder()
	reg.Routes()[0].Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"endpoint-aware:x", "registry", "local", "permission", "handler:x"}, order)
}

func TestRegistry_WithErrorHandler(t *testing.T) {
	t.Parallel()

	var got error
	reg := apikit.MustNew("/", apikit.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	}))
	require.NoError(t, reg.RegisterFunc("x/", http.MethodGet, ok, apikit.WithPermission(apikit.DenyAll)))

	rec := httptest.NewRecorder()
	reg.Routes()[0].Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	var he *apikit.HTTPError
	require.True(t, errors.As(got, &he))
	assert.Equal(t, http.StatusForbidden, he.Status)
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	p, err := apikit.NormalizePath(" users/{id} ")
	require.NoError(t, err)
	assert.Equal(t, "users/{id}", p)

	p, err = apikit.NormalizePrefix("")
	require.NoError(t, err)
	assert.Equal(t, "/", p)
}
