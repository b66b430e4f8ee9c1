package apikit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/apikit"
)

type listReq struct {
	Page  int    `query:"page" doc:"page number"`
	Token string `header:"X-Token" required:"true"`
}

type widget struct {
	ID      uuid.UUID         `json:"id"`
	Name    string            `json:"name" required:"true" minLength:"1" maxLength:"40" doc:"display name"`
	Kind    string            `json:"kind" enum:"small,large"`
	SKU     string            `json:"sku,omitempty" pattern:"^[A-Z]{3}$"`
	Created time.Time         `json:"created"`
	TTL     time.Duration     `json:"ttl"`
	Labels  map[string]string `json:"labels"`
	Parts   []widget          `json:"parts"`
	Blob    []byte            `json:"blob"`
	Secret  string            `json:"-"`
}

type createWidgetReq struct {
	Shop string `path:"shop"`
	Body widget
}

func docRegistry(t *testing.T) *apikit.Registry {
	t.Helper()

	reg := apikit.MustNew("/api/v1/", apikit.WithRegistryName("widgets"), apikit.WithRegistryDescription("Widget store"))
	require.NoError(t, apikit.Get[listReq, []widget](reg, "shops/{shop}/widgets/", func(context.Context, *listReq) (*[]widget, error) {
		return &[]widget{}, nil
	}, apikit.WithName("widgets"), apikit.WithSummary("List widgets"), apikit.WithTags("widgets")))
	require.NoError(t, apikit.Post[createWidgetReq, widget](reg, "shops/{shop}/widgets/", func(context.Context, *createWidgetReq) (*widget, error) {
		return &widget{}, nil
	}, apikit.WithName("widgets"), apikit.WithStatus(http.StatusCreated), apikit.WithPermission(apikit.AllowAny)))
	require.NoError(t, apikit.Delete[apikit.Void, apikit.Void](reg, "widgets/{id}", func(context.Context, *apikit.Void) (*apikit.Void, error) {
		return nil, nil
	}))
	require.NoError(t, reg.RegisterFunc("files/{path...}", http.MethodGet, ok, apikit.WithDescription("Raw file")))
	require.NoError(t, reg.RegisterFunc("{$}", http.MethodGet, ok))
	return reg
}

func TestSpec(t *testing.T) {
	t.Parallel()

	spec := apikit.Spec(apikit.OpenAPIInfo{Title: "Shop", Version: "2.0.0"}, docRegistry(t))

	assert.Equal(t, "3.1.0", spec.OpenAPI)
	assert.Equal(t, "Shop", spec.Info.Title)
	assert.Equal(t, []apikit.TagObject{{Name: "widgets", Description: "Widget store"}}, spec.Tags)
	assert.ElementsMatch(t, []string{
		"/api/v1/shops/{shop}/widgets/",
		"/api/v1/widgets/{id}",
		"/api/v1/files/{path}",
		"/api/v1/",
	}, keys(spec.Paths))

	list := spec.Paths["/api/v1/shops/{shop}/widgets/"]["get"]
	assert.Equal(t, "widgets:get", list.OperationID)
	assert.Equal(t, "List widgets", list.Summary)
	assert.Equal(t, []string{"widgets"}, list.Tags)
	assert.Nil(t, list.RequestBody)
	require.Len(t, list.Parameters, 3)
	assert.Equal(t, apikit.Parameter{Name: "page", In: "query", Description: "page number", Schema: apikit.JSONSchema{Type: "integer"}}, list.Parameters[0])
	assert.Equal(t, apikit.Parameter{Name: "X-Token", In: "header", Required: true, Schema: apikit.JSONSchema{Type: "string"}}, list.Parameters[1])
	assert.Equal(t, apikit.Parameter{Name: "shop", In: "path", Required: true, Schema: apikit.JSONSchema{Type: "string"}}, list.Parameters[2])
	assert.Contains(t, list.Responses, "200")
	assert.Contains(t, list.Responses, "400")
	assert.Equal(t, "array", list.Responses["200"].Content["application/json"].Schema.Type)
	assert.Contains(t, list.Responses["200"].Content, "application/yaml")

	create := spec.Paths["/api/v1/shops/{shop}/widgets/"]["post"]
	assert.Equal(t, "widgets:post", create.OperationID)
	require.Len(t, create.Parameters, 1)
	assert.Equal(t, "shop", create.Parameters[0].Name)
	require.NotNil(t, create.RequestBody)
	body := create.RequestBody.Content["application/json"].Schema
	assert.Equal(t, []string{"name"}, body.Required)
	assert.Contains(t, create.Responses, "201")
	assert.Contains(t, create.Responses, "403")
	assert.Equal(t, "object", create.Responses["403"].Content["application/json"].Schema.Type)

	del := spec.Paths["/api/v1/widgets/{id}"]["delete"]
	assert.Empty(t, del.OperationID)
	assert.Equal(t, "No content", del.Responses["204"].Description)
	assert.NotContains(t, del.Responses, "400")
	require.Len(t, del.Parameters, 1)
	assert.Equal(t, "id", del.Parameters[0].Name)

	raw := spec.Paths["/api/v1/files/{path}"]["get"]
	assert.Equal(t, "Raw file", raw.Description)
	assert.Equal(t, "Successful response", raw.Responses["200"].Description)
	require.Len(t, raw.Parameters, 1)
	assert.Equal(t, "path", raw.Parameters[0].Name)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestTypeToSchema(t *testing.T) {
	t.Parallel()

	s := apikit.TypeToSchema(reflect.TypeFor[widget]())
	require.Equal(t, "object", s.Type)

	props := s.Properties
	assert.Equal(t, apikit.JSONSchema{Type: "string", Format: "uuid"}, props["id"])
	assert.Equal(t, "display name", props["name"].Description)
	assert.Equal(t, 1, *props["name"].MinLength)
	assert.Equal(t, 40, *props["name"].MaxLength)
	assert.Equal(t, []string{"small", "large"}, props["kind"].Enum)
	assert.Equal(t, "^[A-Z]{3}$", props["sku"].Pattern)
	assert.Equal(t, apikit.JSONSchema{Type: "string", Format: "date-time"}, props["created"])
	assert.Equal(t, apikit.JSONSchema{Type: "string", Format: "duration"}, props["ttl"])
	assert.Equal(t, "string", props["labels"].AdditionalProperties.Type)
	assert.Equal(t, apikit.JSONSchema{Type: "string", Format: "byte"}, props["blob"])
	assert.Equal(t, "array", props["parts"].Type)
	assert.Equal(t, apikit.JSONSchema{Type: "object"}, *props["parts"].Items, "recursion stops at the cycle")
	assert.NotContains(t, props, "Secret")
	assert.NotContains(t, props, "-")
}

func TestTypeToSchema_embedded(t *testing.T) {
	t.Parallel()

	type Base struct {
		ID string `json:"id"`
	}
	type entity struct {
		Base
		Name string `json:"name"`
	}

	s := apikit.TypeToSchema(reflect.TypeFor[*entity]())
	assert.Contains(t, s.Properties, "id")
	assert.Contains(t, s.Properties, "name")
	assert.NotContains(t, s.Properties, "Base")
}

func TestToOpenAPIPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/a/{id}":       "/a/{id}",
		"/files/{p...}": "/files/{p}",
		"/exact/{$}":    "/exact/",
		"/plain/":       "/plain/",
	}
	for in, want := range tests {
		assert.Equal(t, want, apikit.ToOpenAPIPath(in), in)
	}
}

func TestRouter_ServeSpec(t *testing.T) {
	t.Parallel()

	r := apikit.NewRouter(apikit.WithTitle("Shop"), apikit.WithVersion("2.0.0"), apikit.WithAPIDescription("All widgets"))
	require.NoError(t, r.Include(docRegistry(t)))
	r.ServeSpec("/openapi.json")
	r.ServeSpecYAML("/openapi.yaml")
	r.ServeDocs("/docs", "/openapi.json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var spec apikit.OpenAPISpec
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &spec))
	assert.Equal(t, apikit.OpenAPIInfo{Title: "Shop", Version: "2.0.0", Description: "All widgets"}, spec.Info)
	assert.Len(t, spec.Paths, 4)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("openapi: 3.1.0\ninfo:\n  title: Shop\n")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `apiDescriptionUrl="/openapi.json"`)
	assert.Contains(t, rec.Body.String(), "<title>Shop</title>")

	var buf bytes.Buffer
	require.NoError(t, r.WriteSpec(&buf))
	assert.Contains(t, buf.String(), "\n  \"openapi\": \"3.1.0\"")

	buf.Reset()
	require.NoError(t, r.WriteSpecYAML(&buf))
	assert.Contains(t, buf.String(), "openapi: 3.1.0")
}
