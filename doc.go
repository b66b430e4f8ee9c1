// Package apikit is a declarative endpoint registry for net/http services.
// Endpoints are collected in a Registry under a shared prefix, each with a
// name, tags and an optional Permission, and the registry produces the
// resolved routes for the host router:
//
//	users := apikit.MustNew("/api/v1/", apikit.WithRegistryName("users"))
//	users.RegisterFunc("users/{id}", http.MethodGet, getUser, apikit.WithName("get-user"))
//	users.RegisterClass("users/", &UsersView{})
//
//	r := apikit.NewRouter(apikit.WithTitle("Blog"))
//	if err := r.Include(users); err != nil {
//	    return err
//	}
//
// Local paths never start with a slash; the prefix always ends with one, so
// "/api/v1/" + "users/{id}" is served at "/api/v1/users/{id}".
//
// Typed handlers remove the ResponseWriter and let the registry bind,
// validate and encode:
//
//	type Handler[Req, Resp any] func(ctx context.Context, req *Req) (*Resp, error)
//
//	apikit.Post[CreateReq, Post](reg, "posts/", createPost, apikit.WithStatus(http.StatusCreated))
//
// Request types use path, query and header tags for parameters, a Body
// field for the JSON payload and constraint tags (required, minLength,
// pattern, enum, ...) checked by Validate. Invalid input is answered with
//
//	{"error": "invalid data in body", "code": "INPUT_ERROR", "meta": [...]}
//
// Registries feed the documentation exporters: Spec builds an OpenAPI 3.1
// document and package postman builds a Postman v2.1 collection.
package apikit
