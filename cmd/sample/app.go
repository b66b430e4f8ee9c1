package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bjaus/apikit"
	"github.com/bjaus/apikit/chiroute"
	"github.com/bjaus/apikit/config"
	"github.com/bjaus/apikit/metrics"
	"github.com/bjaus/apikit/postman"
	"github.com/bjaus/apikit/serialize"
)

// app is the assembled service.
type app struct {
	cfg        *config.Config
	store      *store
	registries []*apikit.Registry
	handler    http.Handler
}

type appOptions struct {
	dsn        string
	seed       bool
	logger     *slog.Logger
	registerer prometheus.Registerer
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	if opts.logger == nil {
		opts.logger = slog.New(slog.DiscardHandler)
	}
	if opts.dsn == "" {
		opts.dsn = ":memory:"
	}

	st, err := openStore(ctx, opts.dsn)
	if err != nil {
		return nil, err
	}
	if opts.seed {
		if err := st.seed(ctx); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	ser, err := newSerializer(serialize.WithMaxDepth(cfg.Serialization.MaxDepth), serialize.WithLogger(opts.logger))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	var m *metrics.Collector
	if opts.registerer != nil {
		m = metrics.New(opts.registerer, "blog")
	}

	b := &blog{store: st, ser: ser, pages: cfg.Pagination, logger: opts.logger}
	regs, err := b.registries(cfg, m)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a := &app{cfg: cfg, store: st, registries: regs}
	if a.handler, err = a.host(m, opts.logger); err != nil {
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) info() apikit.OpenAPIInfo {
	return apikit.OpenAPIInfo{
		Title:       a.cfg.API.Title,
		Version:     a.cfg.API.Version,
		Description: a.cfg.API.Description,
	}
}

func (a *app) collection() (*postman.Collection, error) {
	return postman.Build(postman.Config{
		Name:        a.cfg.API.Title,
		Description: a.cfg.API.Description,
		BaseURL:     a.cfg.API.BaseURL,
	}, a.registries...)
}

// host mounts the registries on the configured router together with the
// documentation and metrics endpoints.
func (a *app) host(m *metrics.Collector, logger *slog.Logger) (http.Handler, error) {
	coll, err := a.collection()
	if err != nil {
		return nil, err
	}
	global := []apikit.Middleware{
		apikit.RequestID(),
		apikit.Logger(logger),
		apikit.Recovery(),
	}

	switch a.cfg.Server.Router {
	case config.RouterChi:
		r := chi.NewRouter()
		for _, mw := range global {
			r.Use(mw)
		}
		if err := chiroute.Mount(r, a.registries...); err != nil {
			return nil, err
		}
		spec := apikit.Spec(a.info(), a.registries...)
		r.Get("/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
			apikit.WriteJSON(w, http.StatusOK, spec)
		})
		r.Method(http.MethodGet, "/postman.json", coll.Handler())
		r.Method(http.MethodGet, "/docs", apikit.DocsHandler(a.cfg.API.Title, "/openapi.json"))
		if m != nil {
			r.Method(http.MethodGet, "/metrics", m.Handler())
		}
		return r, nil
	default:
		r := apikit.NewRouter(
			apikit.WithTitle(a.cfg.API.Title),
			apikit.WithVersion(a.cfg.API.Version),
			apikit.WithAPIDescription(a.cfg.API.Description),
		)
		r.Use(global...)
		if err := r.Include(a.registries...); err != nil {
			return nil, err
		}
		r.ServeSpec("/openapi.json")
		r.ServeSpecYAML("/openapi.yaml")
		r.ServeDocs("/docs", "/openapi.json")
		r.Handle("GET /postman.json", coll.Handler())
		if m != nil {
			r.Handle("GET /metrics", m.Handler())
		}
		return r, nil
	}
}

func (a *app) Close() error {
	return a.store.Close()
}
