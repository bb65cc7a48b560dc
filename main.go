// Command listkeeper serves the list-keeper HTTP API and manages its schema.
//
//	listkeeper serve            start the HTTP server (default)
//	listkeeper migrate up|down  apply or revert the PostgreSQL migrations
//
// @title Listkeeper API
// @version 1.0
// @description Per-user lists of items behind double-submit token authentication.
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @BasePath /
// @securityDefinitions.basic BasicAuth
// @securityDefinitions.apikey XSRFToken
// @in header
// @name X-XSRF-TOKEN
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/user/listkeeper-go/clock"
	"github.com/user/listkeeper-go/config"
	"github.com/user/listkeeper-go/db"
	"github.com/user/listkeeper-go/server"
	"github.com/user/listkeeper-go/store"
	"github.com/user/listkeeper-go/store/memory"
	"github.com/user/listkeeper-go/store/mongo"
	"github.com/user/listkeeper-go/store/postgres"
)

func main() {
	// Development convenience; production sets the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	app := &cli.App{
		Name:           "listkeeper",
		Usage:          "per-user lists of items over HTTP",
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP server",
				Action: serve,
			},
			{
				Name:      "migrate",
				Usage:     "apply (up) or revert (down) the PostgreSQL migrations",
				ArgsUsage: "[up|down]",
				Action:    migrate,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("listkeeper failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// setup loads the configuration and installs the default logger.
func setup() (*config.AppConfig, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(cfg *config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json", "":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", cfg.Format)
	}
}

// openStore connects the datastore named by cfg.Driver.
func openStore(ctx context.Context, cfg *config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return postgres.New(pool, cfg.Timeout), nil
	case config.DriverMongo:
		client, err := db.NewMongo(ctx, cfg.Mongo, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		st := mongo.New(client, cfg.Mongo.Database, cfg.Timeout)
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = st.Close(context.Background())
			return nil, err
		}
		return st, nil
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func serve(c *cli.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	st, err := openStore(c.Context, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Warn("error closing store", "error", err)
		}
	}()
	logger.Info("store ready", "driver", cfg.Store.Driver, "transactional", st.Transactional())

	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: server.New(server.Deps{
			Config: cfg,
			Store:  st,
			Clock:  clock.Real(),
			Logger: logger,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-c.Context.Done():
	}

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

func migrate(c *cli.Context) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	if cfg.Store.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations apply to the %s driver only (STORE_DRIVER=%s)", config.DriverPostgres, cfg.Store.Driver)
	}
	dir := db.Up
	if c.NArg() > 0 {
		dir = db.Direction(strings.ToLower(c.Args().First()))
	}
	return db.RunMigrations(cfg.Store.Postgres, cfg.Store.MigrationsPath, dir)
}
