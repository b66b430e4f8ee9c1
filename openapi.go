package apikit

import (
	"net/http"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// OpenAPISpec is the top-level OpenAPI 3.1 document.
type OpenAPISpec struct {
	OpenAPI string              `json:"openapi"`
	Info    OpenAPIInfo         `json:"info"`
	Tags    []TagObject         `json:"tags,omitempty"`
	Paths   map[string]PathItem `json:"paths"`
}

// OpenAPIInfo holds API metadata.
type OpenAPIInfo struct {
	Title       string `json:"title"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// TagObject documents a tag. Named registries contribute one each.
type TagObject struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PathItem maps lower-case HTTP methods to operations.
type PathItem map[string]Operation

// Operation describes a single API operation on a path.
type Operation struct {
	Summary     string        `json:"summary,omitempty"`
	Description string        `json:"description,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	OperationID string        `json:"operationId,omitempty"`
	Parameters  []Parameter   `json:"parameters,omitempty"`
	RequestBody *RequestBody  `json:"requestBody,omitempty"`
	Responses   OperationResp `json:"responses"`
}

// Parameter describes a single operation parameter.
type Parameter struct {
	Name        string     `json:"name"`
	In          string     `json:"in"`
	Description string     `json:"description,omitempty"`
	Required    bool       `json:"required,omitempty"`
	Schema      JSONSchema `json:"schema"`
}

// RequestBody describes the request body.
type RequestBody struct {
	Required bool                `json:"required"`
	Content  map[string]MediaObj `json:"content"`
}

// MediaObj is a media type object with an optional schema.
type MediaObj struct {
	Schema *JSONSchema `json:"schema,omitempty"`
}

// OperationResp maps HTTP status codes to response objects.
type OperationResp map[string]ResponseObj

// ResponseObj describes a single response.
type ResponseObj struct {
	Description string              `json:"description"`
	Content     map[string]MediaObj `json:"content,omitempty"`
}

// Spec builds an OpenAPI 3.1 document from the endpoints of regs.
// Endpoints registered with a typed handler get request and response
// schemas; plain http.Handlers only get their path parameters.
func Spec(info OpenAPIInfo, regs ...*Registry) OpenAPISpec {
	spec := OpenAPISpec{
		OpenAPI: "3.1.0",
		Info:    info,
		Paths:   make(map[string]PathItem),
	}

	for _, reg := range regs {
		if reg.Name() != "" && !slices.ContainsFunc(spec.Tags, func(t TagObject) bool { return t.Name == reg.Name() }) {
			spec.Tags = append(spec.Tags, TagObject{Name: reg.Name(), Description: reg.Description()})
		}
		for _, rt := range reg.Routes() {
			path := toOpenAPIPath(rt.Path)
			if spec.Paths[path] == nil {
				spec.Paths[path] = make(PathItem)
			}
			spec.Paths[path][strings.ToLower(rt.Method)] = buildOperation(rt)
		}
	}
	return spec
}

// Spec builds the OpenAPI document of every included registry.
func (r *Router) Spec() OpenAPISpec {
	return Spec(OpenAPIInfo{
		Title:       r.title,
		Version:     r.version,
		Description: r.description,
	}, r.Registries()...)
}

func buildOperation(rt Route) Operation {
	ep := rt.Endpoint
	op := Operation{
		Summary:     ep.Summary,
		Description: ep.Description,
		Tags:        ep.Tags,
		Responses:   make(OperationResp),
	}
	if ep.Name != "" {
		op.OperationID = ep.Name + ":" + strings.ToLower(ep.Method)
	}

	if ep.reqType != nil && ep.reqType != reflect.TypeFor[Void]() {
		op.Parameters = extractParameters(ep.reqType)
		op.RequestBody = extractRequestBody(ep.reqType, ep.Method)
	}
	op.Parameters = addPathParameters(op.Parameters, rt.Path)

	status := ep.status
	switch {
	case ep.respType == nil:
		if status == 0 {
			status = http.StatusOK
		}
		op.Responses[strconv.Itoa(status)] = ResponseObj{Description: "Successful response"}
	case ep.respType == reflect.TypeFor[Void]():
		op.Responses[strconv.Itoa(status)] = ResponseObj{Description: "No content"}
	default:
		schema := typeToSchema(ep.respType, make(map[reflect.Type]bool))
		op.Responses[strconv.Itoa(status)] = ResponseObj{
			Description: "Successful response",
			Content:     mediaTypes(&schema),
		}
	}

	if ep.reqType != nil && ep.reqType != reflect.TypeFor[Void]() {
		op.Responses[strconv.Itoa(http.StatusBadRequest)] = ResponseObj{
			Description: InvalidBodyMessage,
			Content:     mediaTypes(errorSchema()),
		}
	}
	if ep.Permission != nil {
		op.Responses[strconv.Itoa(http.StatusForbidden)] = ResponseObj{
			Description: "Permission denied",
			Content:     mediaTypes(errorSchema()),
		}
	}
	return op
}

func mediaTypes(s *JSONSchema) map[string]MediaObj {
	m := make(map[string]MediaObj, len(encoders))
	for _, enc := range encoders {
		m[enc.ContentType()] = MediaObj{Schema: s}
	}
	return m
}

func errorSchema() *JSONSchema {
	s := typeToSchema(reflect.TypeFor[ErrorBody](), make(map[reflect.Type]bool))
	s.Required = []string{"error"}
	return &s
}

// extractParameters builds OpenAPI parameters from param-tagged fields.
func extractParameters(t reflect.Type) []Parameter {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var params []Parameter
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		for _, src := range paramSources {
			name := f.Tag.Get(src.tag)
			if name == "" {
				continue
			}
			params = append(params, Parameter{
				Name:        name,
				In:          src.tag,
				Description: f.Tag.Get("doc"),
				Required:    src.tag == "path" || f.Tag.Get("required") == "true",
				Schema:      typeToSchema(f.Type, make(map[reflect.Type]bool)),
			})
		}
	}
	return params
}

var wildcard = regexp.MustCompile(`\{([^{}$]+?)(\.\.\.)?\}`)

// addPathParameters documents wildcards of path not already described by
// a typed request.
func addPathParameters(params []Parameter, path string) []Parameter {
	for _, m := range wildcard.FindAllStringSubmatch(path, -1) {
		name := m[1]
		if slices.ContainsFunc(params, func(p Parameter) bool { return p.In == "path" && p.Name == name }) {
			continue
		}
		params = append(params, Parameter{
			Name:     name,
			In:       "path",
			Required: true,
			Schema:   JSONSchema{Type: "string"},
		})
	}
	return params
}

// extractRequestBody builds an OpenAPI RequestBody if the request type has a body.
func extractRequestBody(t reflect.Type, method string) *RequestBody {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	var schema JSONSchema
	switch {
	case t.Kind() != reflect.Struct:
		schema = typeToSchema(t, make(map[reflect.Type]bool))
	case hasBodyField(t):
		f, _ := t.FieldByName("Body")
		schema = typeToSchema(f.Type, make(map[reflect.Type]bool))
	case !hasParamTags(t) && method != http.MethodGet && method != http.MethodDelete:
		schema = typeToSchema(t, make(map[reflect.Type]bool))
	default:
		return nil
	}
	return &RequestBody{
		Required: true,
		Content:  map[string]MediaObj{JSON.ContentType(): {Schema: &schema}},
	}
}

// toOpenAPIPath converts a mux pattern path like "/files/{name...}" to an
// OpenAPI path. The exact-match marker {$} has no OpenAPI equivalent.
func toOpenAPIPath(path string) string {
	path = strings.ReplaceAll(path, "{$}", "")
	return strings.ReplaceAll(path, "...}", "}")
}
