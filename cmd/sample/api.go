package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/bjaus/apikit"
	"github.com/bjaus/apikit/config"
	"github.com/bjaus/apikit/metrics"
	"github.com/bjaus/apikit/model"
	"github.com/bjaus/apikit/pagination"
	"github.com/bjaus/apikit/serialize"
)

// UserHeader carries the id of the acting user. The sample trusts it
// blindly; a real service would authenticate a token instead.
const UserHeader = "X-User-ID"

// blog wires the store and serializer into registries.
type blog struct {
	store  *store
	ser    *serialize.Serializer
	pages  pagination.Config
	logger *slog.Logger
}

// authenticate loads the user named by UserHeader into the request.
func (b *blog) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(UserHeader); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				if u, err := b.store.user(r.Context(), id); err == nil {
					r = apikit.SetValue(r, u)
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// authenticated admits requests carrying a known user.
var authenticated = apikit.PermissionFunc(func(r *http.Request) error {
	if _, ok := apikit.GetValue[*User](r.Context()); !ok {
		return apikit.CodedError(http.StatusUnauthorized, "NOT_AUTHENTICATED", "authentication required")
	}
	return nil
})

func currentUser(ctx context.Context) *User {
	u, _ := apikit.GetValue[*User](ctx)
	return u
}

// storeError maps store errors onto HTTP errors.
func storeError(err error, what string) error {
	if errors.Is(err, errNotFound) {
		return apikit.NotFound("%s not found", what)
	}
	return err
}

// registries builds the blog API under cfg.API.Prefix.
func (b *blog) registries(cfg *config.Config, m *metrics.Collector) ([]*apikit.Registry, error) {
	// Options shared by the blog and model registries.
	opts := []apikit.Option{
		apikit.WithMiddleware(b.authenticate),
		apikit.WithLogger(b.logger),
		apikit.WithBodyLimit(cfg.API.MaxBodyBytes),
	}
	if m != nil {
		opts = append(opts, apikit.WithEndpointMiddleware(m.Endpoint()))
	}
	if cfg.RateLimit.Enabled() {
		opts = append(opts, apikit.WithEndpointMiddleware(apikit.EndpointRateLimit(apikit.RateLimitConfig{
			Rate:  cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
			OnLimit: func(w http.ResponseWriter, r *http.Request) {
				if m != nil {
					m.RateLimited(r)
				}
				apikit.WriteError(w, apikit.CodedError(http.StatusTooManyRequests, apikit.CodeRateLimited, "slow down"))
			},
		})))
	}

	reg, err := apikit.New(cfg.API.Prefix, append([]apikit.Option{
		apikit.WithRegistryName("blog"),
		apikit.WithRegistryDescription("Users, posts and comments"),
		apikit.WithRegistryTags("blog"),
	}, opts...)...)
	if err != nil {
		return nil, err
	}

	steps := []func() error{
		func() error {
			return reg.RegisterClass("users/", &usersView{blog: b}, apikit.WithName("users"), apikit.WithTags("users"))
		},
		func() error {
			return apikit.Get[userReq, serialize.Object](reg, "users/{id}", b.getUser,
				apikit.WithName("user"), apikit.WithSummary("Fetch a user"), apikit.WithTags("users"))
		},
		func() error {
			return apikit.Get[listPostsReq, listResp](reg, "posts/", b.listPosts,
				apikit.WithName("posts"), apikit.WithSummary("List posts"), apikit.WithTags("posts"))
		},
		func() error {
			return apikit.Post[createPostReq, serialize.Object](reg, "posts/", b.createPost,
				apikit.WithName("create-post"), apikit.WithSummary("Write a post"), apikit.WithTags("posts"),
				apikit.WithPermission(authenticated), apikit.WithStatus(http.StatusCreated))
		},
		func() error {
			return reg.RegisterClass("posts/{id}", &postView{blog: b}, apikit.WithName("post"), apikit.WithTags("posts"))
		},
		func() error {
			return apikit.Post[createCommentReq, serialize.Object](reg, "posts/{id}/comments/", b.createComment,
				apikit.WithName("create-comment"), apikit.WithSummary("Reply to a post"), apikit.WithTags("comments"),
				apikit.WithPermission(authenticated), apikit.WithStatus(http.StatusCreated))
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	models, err := b.userModels(cfg.API.Prefix, opts...)
	if err != nil {
		return nil, err
	}

	health, err := apikit.New("/", apikit.WithRegistryName("health"))
	if err != nil {
		return nil, err
	}
	if err := apikit.Get[apikit.Void, healthResp](health, "healthz", func(context.Context, *apikit.Void) (*healthResp, error) {
		return &healthResp{Status: "ok"}, nil
	}, apikit.WithName("health")); err != nil {
		return nil, err
	}

	return []*apikit.Registry{reg, models, health}, nil
}

type healthResp struct {
	Status string `json:"status"`
}

// usersView serves the user collection.
type usersView struct {
	*blog
}

func (*usersView) Description() string { return "List or create users." }

func (v *usersView) Get(w http.ResponseWriter, r *http.Request) {
	users, err := v.store.users(r.Context())
	if err != nil {
		apikit.WriteError(w, err)
		return
	}
	page := pagination.FromQuery(r.URL.Query(), v.pages)
	objs, err := v.ser.DumpMany(pagination.Paginate(users, page))
	if err != nil {
		apikit.WriteError(w, err)
		return
	}
	apikit.Respond(w, r, http.StatusOK, listResp{Items: objs, Offset: page.Offset, Limit: page.Limit})
}

type createUserBody struct {
	Username string `json:"username" required:"true" minLength:"3" maxLength:"32" pattern:"^[a-z0-9_]+$"`
	Email    string `json:"email" required:"true" pattern:"^[^@\\s]+@[^@\\s]+$"`
}

func (v *usersView) Post(w http.ResponseWriter, r *http.Request) {
	apikit.ValidateBody[createUserBody](http.HandlerFunc(v.create)).ServeHTTP(w, r)
}

func (v *usersView) create(w http.ResponseWriter, r *http.Request) {
	body, _ := apikit.ValidatedBody[createUserBody](r)
	u := &User{Base: model.NewBase(), Username: body.Username, Email: body.Email}
	if err := v.store.createUser(r.Context(), u); err != nil {
		apikit.WriteError(w, apikit.Errorf(http.StatusConflict, "username %q is taken", body.Username))
		return
	}
	obj, err := v.ser.Dump(u)
	if err != nil {
		apikit.WriteError(w, err)
		return
	}
	apikit.Respond(w, r, http.StatusCreated, obj)
}

type listResp struct {
	Items  []serialize.Object `json:"items"`
	Offset int                `json:"offset"`
	Limit  int                `json:"limit"`
}

func (b *blog) getUser(ctx context.Context, req *userReq) (*serialize.Object, error) {
	u, err := b.store.user(ctx, req.id())
	if err != nil {
		return nil, storeError(err, "user")
	}
	obj, err := b.ser.Dump(u)
	return &obj, err
}

// userReq binds the user id as text; uuid.UUID has no reflect kind the
// binder understands.
type userReq struct {
	ID string `path:"id" pattern:"^[0-9a-fA-F-]{36}$"`
}

func (r *userReq) id() uuid.UUID {
	id, _ := uuid.Parse(r.ID)
	return id
}

type listPostsReq struct {
	Offset int    `query:"pagination_offset" minimum:"0" doc:"page index"`
	Limit  int    `query:"pagination_limit" minimum:"0" doc:"page size"`
	View   string `query:"view" enum:"full,summary" default:"summary"`
}

func (b *blog) listPosts(ctx context.Context, req *listPostsReq) (*listResp, error) {
	posts, err := b.store.posts(ctx)
	if err != nil {
		return nil, err
	}

	page := pagination.Params{Offset: req.Offset, Limit: req.Limit}
	page.Normalize(b.pages)

	resp := &listResp{Items: []serialize.Object{}, Offset: page.Offset, Limit: page.Limit}
	for _, p := range pagination.Paginate(posts, page) {
		var obj serialize.Object
		if req.View == "full" {
			obj, err = b.ser.Dump(p)
		} else {
			obj, err = b.ser.DumpAs(p, "summary")
		}
		if err != nil {
			return nil, err
		}
		resp.Items = append(resp.Items, obj)
	}
	return resp, nil
}

type createPostReq struct {
	Body struct {
		Title     string `json:"title" required:"true" minLength:"3" maxLength:"200"`
		Body      string `json:"body" required:"true"`
		Published bool   `json:"published"`
	}
}

func (b *blog) createPost(ctx context.Context, req *createPostReq) (*serialize.Object, error) {
	p := &Post{
		Base:      model.NewBase(),
		Author:    currentUser(ctx),
		Title:     req.Body.Title,
		Body:      req.Body.Body,
		Published: req.Body.Published,
		Comments:  []*Comment{},
	}
	if err := b.store.createPost(ctx, p); err != nil {
		return nil, err
	}
	obj, err := b.ser.Dump(p)
	return &obj, err
}

type createCommentReq struct {
	PostID string `path:"id"`
	Body   struct {
		Body string `json:"body" required:"true" maxLength:"2000"`
	}
}

func (b *blog) createComment(ctx context.Context, req *createCommentReq) (*serialize.Object, error) {
	id, err := uuid.Parse(req.PostID)
	if err != nil {
		return nil, apikit.NotFound("post not found")
	}
	p, err := b.store.post(ctx, id)
	if err != nil {
		return nil, storeError(err, "post")
	}

	c := &Comment{Base: model.NewBase(), Post: p, Author: currentUser(ctx), Body: req.Body.Body, Approved: true}
	if err := b.store.createComment(ctx, c); err != nil {
		return nil, err
	}
	obj, err := b.ser.Dump(c)
	return &obj, err
}

// postView serves a single post. Writes are limited to its author.
type postView struct {
	*blog
}

func (*postView) Description() string { return "Read, edit or remove a post." }

func (v *postView) load(w http.ResponseWriter, r *http.Request) (*Post, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		apikit.WriteError(w, apikit.NotFound("post not found"))
		return nil, false
	}
	p, err := v.store.post(r.Context(), id)
	if err != nil {
		apikit.WriteError(w, storeError(err, "post"))
		return nil, false
	}
	return p, true
}

func (v *postView) owned(w http.ResponseWriter, r *http.Request) (*Post, bool) {
	p, ok := v.load(w, r)
	if !ok {
		return nil, false
	}
	if u := currentUser(r.Context()); u == nil || u.ID != p.Author.ID {
		apikit.WriteError(w, apikit.Forbidden("only the author may change a post"))
		return nil, false
	}
	return p, true
}

func (v *postView) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := v.load(w, r)
	if !ok {
		return
	}
	obj, err := v.ser.Dump(p)
	if err != nil {
		apikit.WriteError(w, err)
		return
	}
	apikit.Respond(w, r, http.StatusOK, obj)
}

type patchPostBody struct {
	Title     *string `json:"title" minLength:"3" maxLength:"200"`
	Body      *string `json:"body"`
	Published *bool   `json:"published"`
}

func (v *postView) Patch(w http.ResponseWriter, r *http.Request) {
	apikit.ValidateBody[patchPostBody](http.HandlerFunc(v.patch)).ServeHTTP(w, r)
}

func (v *postView) patch(w http.ResponseWriter, r *http.Request) {
	p, ok := v.owned(w, r)
	if !ok {
		return
	}
	body, _ := apikit.ValidatedBody[patchPostBody](r)
	if body.Title != nil {
		p.Title = *body.Title
	}
	if body.Body != nil {
		p.Body = *body.Body
	}
	if body.Published != nil {
		p.Published = *body.Published
	}
	if err := v.store.updatePost(r.Context(), p); err != nil {
		apikit.WriteError(w, storeError(err, "post"))
		return
	}
	obj, err := v.ser.Dump(p)
	if err != nil {
		apikit.WriteError(w, err)
		return
	}
	apikit.Respond(w, r, http.StatusOK, obj)
}

func (v *postView) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := v.owned(w, r)
	if !ok {
		return
	}
	if err := v.store.deletePost(r.Context(), p.ID); err != nil {
		apikit.WriteError(w, storeError(err, "post"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func describe(regs []*apikit.Registry) string {
	n := 0
	for _, reg := range regs {
		n += len(reg.Endpoints())
	}
	return fmt.Sprintf("%d registries, %d endpoints", len(regs), n)
}
