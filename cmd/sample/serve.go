package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/bjaus/apikit/logging"
)

const readHeaderTimeout = 10 * time.Second

var (
	serveDB   string
	serveSeed bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the blog API.

Examples:
  sample serve --seed
  sample serve --db blog.db --config config.toml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveDB, "db", ":memory:", "SQLite database path")
	serveCmd.Flags().BoolVar(&serveSeed, "seed", false, "insert sample rows on start")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging, os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{
		dsn:        serveDB,
		seed:       serveSeed,
		logger:     logger,
		registerer: prometheus.NewRegistry(),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("starting server",
		"addr", cfg.Server.Addr,
		"router", cfg.Server.Router,
		"prefix", cfg.API.Prefix,
		"routes", describe(a.registries),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeoutDuration())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
