// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/scribe/internal/aiclient"
	"github.com/starford/scribe/internal/api"
	"github.com/starford/scribe/internal/documents"
	"github.com/starford/scribe/internal/execution"
	"github.com/starford/scribe/internal/inbox"
	"github.com/starford/scribe/internal/mcpserver"
	"github.com/starford/scribe/internal/notebook"
	"github.com/starford/scribe/internal/sse"
	"github.com/starford/scribe/internal/storage"
	"github.com/starford/scribe/internal/store"
)

// core holds the domain components shared by the HTTP and MCP front ends.
type core struct {
	db     *store.DB
	engine *notebook.Engine
	exec   *execution.Executor
	docs   *documents.Manager
}

// notifier receives cell, status and document changes.
type notifier interface {
	notebook.Notifier
	execution.Notifier
	documents.Notifier
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// build opens the store and wires the engine, executor and document
// manager. n may be nil.
func (a *application) build(logger *slog.Logger, n notifier) (*core, error) {
	cfg := a.config

	if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	client := a.client
	if client == nil {
		client = aiclient.FromConfig(cfg.AI.Client(), aiclient.WithLogger(logger))
	}
	if _, ok := client.(aiclient.Unconfigured); ok {
		logger.Warn("AI api_key is empty, cell runs will fail until it is set")
	}

	var engineOpts []notebook.Option
	execOpts := []execution.Option{
		execution.WithLanguage(cfg.AI.CodeLanguage),
		execution.WithTimeout(cfg.AI.Timeout),
	}
	var docOpts []documents.Option
	if n != nil {
		engineOpts = append(engineOpts, notebook.WithNotifier(n))
		execOpts = append(execOpts, execution.WithNotifier(n))
		docOpts = append(docOpts, documents.WithNotifier(n))
	}

	engine := notebook.New(db, logger, engineOpts...)
	exec := execution.New(engine, db, client, logger, execOpts...)
	docOpts = append(docOpts,
		documents.WithForgetter(exec),
		documents.WithDefaultTitle(cfg.Editor.DefaultTitle),
		documents.WithDefaultSort(documents.Sort(cfg.Editor.DefaultSort)),
	)
	docs := documents.New(db, engine, logger, docOpts...)

	return &core{db: db, engine: engine, exec: exec, docs: docs}, nil
}

func newInbox(cfg InboxConfig, docs *documents.Manager, logger *slog.Logger) (*inbox.Inbox, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("init inbox storage: %w", err)
	}
	return inbox.New(files, files.Root(), cfg.ProcessedDir, docs, logger), nil
}

// close waits for in-flight executions, then closes the store.
func (c *core) close(ctx context.Context, logger *slog.Logger) {
	if err := c.exec.Close(ctx); err != nil {
		logger.Warn("executions still running at shutdown", slog.String("error", err.Error()))
	}
	if err := c.db.Close(); err != nil {
		logger.Error("store close error", slog.String("error", err.Error()))
	}
}

// Run starts the HTTP server and the inbox watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(cfg, os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("inbox_dir", cfg.Inbox.Dir),
		slog.String("ai_model", cfg.AI.Model),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := app.build(logger, broker)
	if err != nil {
		return err
	}

	apiRouter := api.NewRouter(api.Services{
		Documents: c.docs,
		Engine:    c.engine,
		Executor:  c.exec,
		Store:     c.db,
	}, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start inbox watcher.
	if cfg.Inbox.Enabled() {
		box, err := newInbox(cfg.Inbox, c.docs, logger)
		if err != nil {
			c.close(ctx, logger)
			return err
		}
		g.Go(func() error {
			if err := box.Watch(gCtx); err != nil {
				logger.Error("inbox watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		c.close(shutdownCtx, logger)

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they
// do not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)

	c, err := app.build(logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		c.close(closeCtx, logger)
	}()

	logger.Info("MCP server starting", slog.String("sqlite_path", app.config.SQLite.Path))
	return mcpserver.New(c.docs, c.engine, c.exec).ServeStdio()
}
