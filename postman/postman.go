// Package postman exports registries as a Postman v2.1 collection.
package postman

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/bjaus/apikit"
)

// SchemaURL identifies the collection format.
const SchemaURL = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"

// BaseURLVar is the variable every request URL starts with.
const BaseURLVar = "BASE_URL"

// ErrTrailingSlash is returned when the base URL ends with a slash.
var ErrTrailingSlash = errors.New("postman: base url must not end with a slash")

// Config describes the collection.
type Config struct {
	Name        string
	Description string
	// BaseURL is the initial value of the BASE_URL variable.
	BaseURL string
	// ID is the collection id; a random one is used when zero.
	ID uuid.UUID
}

// Collection is a Postman v2.1 collection.
type Collection struct {
	Info     Info       `json:"info"`
	Item     []Item     `json:"item"`
	Variable []Variable `json:"variable"`
}

// Info holds the collection metadata.
type Info struct {
	PostmanID   string `json:"_postman_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Schema      string `json:"schema"`
}

// Item is either a folder (Item set) or a request (Request set).
type Item struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Item        []Item   `json:"item,omitempty"`
	Request     *Request `json:"request,omitempty"`
	Response    []any    `json:"response,omitempty"`
}

// Request describes one HTTP request.
type Request struct {
	Method      string   `json:"method"`
	Description string   `json:"description,omitempty"`
	Header      []Header `json:"header"`
	URL         URL      `json:"url"`
	Body        *Body    `json:"body,omitempty"`
}

// Header is a request header.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// URL is a request URL split the way Postman stores it.
type URL struct {
	Raw      string     `json:"raw"`
	Host     []string   `json:"host"`
	Path     []string   `json:"path"`
	Query    []Query    `json:"query,omitempty"`
	Variable []Variable `json:"variable,omitempty"`
}

// Query is a query parameter.
type Query struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Variable is a collection or URL variable.
type Variable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// Body is a raw request body.
type Body struct {
	Mode    string         `json:"mode"`
	Raw     string         `json:"raw"`
	Options map[string]any `json:"options,omitempty"`
}

const placeholder = "<value>"

// Build creates a collection with one folder per registry and one request
// per endpoint. Endpoints of a class-style view that serves more than one
// verb are grouped in a sub-folder.
func Build(cfg Config, regs ...*apikit.Registry) (*Collection, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if strings.HasSuffix(base, "/") {
		return nil, fmt.Errorf("%w: %q", ErrTrailingSlash, base)
	}

	id := cfg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	c := &Collection{
		Info: Info{
			PostmanID:   id.String(),
			Name:        cfg.Name,
			Description: cfg.Description,
			Schema:      SchemaURL,
		},
		Item: make([]Item, 0, len(regs)),
	}
	c.Var(BaseURLVar, base)

	for _, reg := range regs {
		c.Item = append(c.Item, folder(reg))
	}
	return c, nil
}

// Var adds a collection variable.
func (c *Collection) Var(key, value string) {
	c.Variable = append(c.Variable, Variable{Key: key, Value: value, Type: "string"})
}

// Write writes the collection as indented JSON.
func (c *Collection) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// Handler serves the collection as JSON.
func (c *Collection) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apikit.WriteJSON(w, http.StatusOK, c)
	})
}

func folder(reg *apikit.Registry) Item {
	name := reg.Name()
	if name == "" {
		name = "api_" + uuid.NewString()[:8]
	}
	f := Item{Name: name, Description: reg.Description(), Item: []Item{}}

	// Group class-view endpoints by view and path, keeping first-seen order.
	type group struct {
		routes []apikit.Route
	}
	var (
		order  []string
		groups = make(map[string]*group)
	)
	for i, rt := range reg.Routes() {
		key := fmt.Sprintf("#%d", i)
		if rt.Endpoint.View != "" {
			key = rt.Endpoint.View + " " + rt.Path
		}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		g.routes = append(g.routes, rt)
	}

	for _, key := range order {
		routes := groups[key].routes
		if len(routes) == 1 {
			f.Item = append(f.Item, item(itemName(routes[0]), routes[0]))
			continue
		}
		name := itemName(routes[0])
		sub := Item{Name: name, Description: routes[0].Endpoint.Description}
		for _, rt := range routes {
			sub.Item = append(sub.Item, item(name+" "+rt.Method, rt))
		}
		f.Item = append(f.Item, sub)
	}
	return f
}

func itemName(rt apikit.Route) string {
	if rt.Endpoint.Name != "" {
		return rt.Endpoint.Name
	}
	return rt.Method + " " + rt.Path
}

func item(name string, rt apikit.Route) Item {
	ep := rt.Endpoint
	desc := ep.Description
	if desc == "" {
		desc = ep.Summary
	}
	req := &Request{
		Method:      rt.Method,
		Description: desc,
		Header:      []Header{},
		URL:         buildURL(rt.Path),
	}
	describeRequest(req, ep)
	return Item{Name: name, Request: req, Response: []any{}}
}

var wildcard = regexp.MustCompile(`\{([^{}]*?)(\.\.\.)?\}`)

// buildURL converts a mux path like "/api/v1/users/{id}" into the
// Postman form "{{BASE_URL}}/api/v1/users/:id".
func buildURL(path string) URL {
	host := "{{" + BaseURLVar + "}}"

	var vars []Variable
	converted := wildcard.ReplaceAllStringFunc(path, func(m string) string {
		name := wildcard.FindStringSubmatch(m)[1]
		if name == "$" {
			return ""
		}
		vars = append(vars, Variable{Key: name, Value: placeholder})
		return ":" + name
	})

	return URL{
		Raw:      host + converted,
		Host:     []string{host},
		Path:     strings.Split(strings.TrimPrefix(converted, "/"), "/"),
		Variable: vars,
	}
}

// describeRequest adds query parameters, headers and an example body for
// typed handlers.
func describeRequest(req *Request, ep apikit.Endpoint) {
	t := ep.RequestType()
	if t == nil || t == reflect.TypeFor[apikit.Void]() {
		return
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	body := t
	if t.Kind() == reflect.Struct {
		body = nil
		params := false
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if q := f.Tag.Get("query"); q != "" {
				req.URL.Query = append(req.URL.Query, Query{Key: q, Value: placeholder, Description: f.Tag.Get("doc")})
				params = true
			}
			if h := f.Tag.Get("header"); h != "" {
				req.Header = append(req.Header, Header{Key: h, Value: placeholder})
				params = true
			}
			if f.Tag.Get("path") != "" {
				params = true
			}
		}
		if f, ok := t.FieldByName("Body"); ok {
			body = f.Type
		} else if !params && ep.Method != http.MethodGet && ep.Method != http.MethodDelete {
			body = t
		}
	}
	if body == nil {
		return
	}

	raw, err := json.MarshalIndent(reflect.New(body).Interface(), "", "  ")
	if err != nil {
		return
	}
	req.Header = append(req.Header, Header{Key: "Content-Type", Value: "application/json"})
	req.Body = &Body{
		Mode:    "raw",
		Raw:     string(raw),
		Options: map[string]any{"raw": map[string]any{"language": "json"}},
	}
}
