package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/erazemk/inventura/internal/api"
	"github.com/erazemk/inventura/internal/auth"
	"github.com/erazemk/inventura/internal/config"
	"github.com/erazemk/inventura/internal/db"
	"github.com/erazemk/inventura/internal/importer"
	"github.com/erazemk/inventura/internal/metrics"
	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

func serveCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), a.cfg)
		},
	}

	cmd.Flags().StringP("addr", "a", ":8080", "listen address")
	a.bind("http.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.DB); errors.Is(err, fs.ErrNotExist) {
		if err := initDatabase(ctx, cfg.DB, cfg.Admin); err != nil {
			return err
		}
		printInitResult(cfg.DB, cfg.Admin)
		fmt.Println()
	}

	database, err := db.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "path", cfg.DB)

	// Signing secret is generated on first run and kept in the database.
	secret, err := store.GetTokenSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading token secret: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	handler, err := api.NewRouter(database, api.Options{
		Issuer:         auth.NewTokenIssuer(secret, cfg.Auth.TokenExpiry),
		Importer:       importer.NewReader(cfg.Import),
		Metrics:        m,
		ServeMetrics:   cfg.HTTP.Metrics,
		UserCacheTTL:   cfg.Auth.UserCacheTTL,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
	})
	if err != nil {
		return fmt.Errorf("setting up router: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.HTTP.Addr, "metrics", cfg.HTTP.Metrics)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

func initCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and the admin user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(a.cfg.DB); err == nil {
				return fmt.Errorf("database file %s already exists", a.cfg.DB)
			}
			if err := initDatabase(cmd.Context(), a.cfg.DB, a.cfg.Admin); err != nil {
				return err
			}
			printInitResult(a.cfg.DB, a.cfg.Admin)
			return nil
		},
	}
}

// initDatabase creates a new database, ensures the schema, and creates the
// admin user. The file is removed again if any step fails.
func initDatabase(ctx context.Context, path, adminName string) (err error) {
	database, err := db.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		database.Close()
		if err != nil {
			os.Remove(path)
		}
	}()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	if _, err := store.CreateUser(ctx, database, adminName, model.RoleAdmin); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}
	return nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, adminName string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Printf("Admin user created: %s\n", adminName)
}

// openDatabase opens an existing database and brings its schema up to date.
func openDatabase(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s not found, run init first", path)
	}

	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return database, nil
}
