package apikit

import (
	"html/template"
	"net/http"
)

var docsPage = template.Must(template.New("docs").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/@stoplight/elements/styles.min.css">
  <script src="https://unpkg.com/@stoplight/elements/web-components.min.js"></script>
</head>
<body>
  <elements-api apiDescriptionUrl="{{.SpecURL}}" router="hash" layout="sidebar"/>
</body>
</html>`))

// DocsHandler serves an HTML page that renders the OpenAPI document
// found at specURL.
func DocsHandler(title, specURL string) http.Handler {
	data := struct{ Title, SpecURL string }{title, specURL}
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		//nolint:errcheck,gosec // best-effort template render
		docsPage.Execute(w, data)
	})
}

// ServeDocs serves the documentation page at path for the OpenAPI
// document served at specURL (see ServeSpec).
func (r *Router) ServeDocs(path, specURL string) {
	r.Handle("GET "+path, DocsHandler(r.title, specURL))
}
