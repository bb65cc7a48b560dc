// Package db opens datastore connections and manages the PostgreSQL schema.
// It establishes the pgx connection pool, the MongoDB client, and runs
// golang-migrate migrations from the db/migrations directory.
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// `golang-migrate` applies versioned SQL files ({version}_{title}.up.sql / .down.sql).
	"github.com/golang-migrate/migrate/v4"
	// The postgres database driver registers the "postgres://" scheme with migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	// The file source driver reads migrations from the local filesystem ("file://").
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	// database/sql driver used by migrate's postgres driver.
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/user/listkeeper-go/apperror"
	"github.com/user/listkeeper-go/config"
)

// NewPool establishes the PostgreSQL connection pool and verifies it with a ping.
func NewPool(ctx context.Context, cfg *config.PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, apperror.NewConfigError(fmt.Sprintf("error parsing DSN for database %s", cfg.DBName), err)
	}

	poolConfig.MaxConns = int32(cfg.MaxSize)
	poolConfig.MaxConnIdleTime = 10 * time.Minute
	poolConfig.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, apperror.NewDatabaseError(fmt.Sprintf("error creating pgxpool for database %s", cfg.DBName), err, false)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, apperror.NewDatabaseError(fmt.Sprintf("error connecting to the database %s", cfg.DBName), err, true)
	}

	return pool, nil
}

// NewMongo connects to MongoDB and verifies the connection with a ping.
func NewMongo(ctx context.Context, cfg *config.MongoConfig, timeout time.Duration) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(cfg.URI).SetTimeout(timeout)
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, apperror.NewDatabaseError("error connecting to MongoDB", err, false)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, apperror.NewDatabaseError("error pinging MongoDB", err, true)
	}
	return client, nil
}

// Direction selects which way RunMigrations moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// RunMigrations applies (Up) or reverts (Down) every migration under migrationsPath.
// migrate.ErrNoChange is not an error.
func RunMigrations(cfg *config.PoolConfig, migrationsPath string, dir Direction) error {
	m, err := migrate.New("file://"+migrationsPath, cfg.DSN())
	if err != nil {
		return apperror.NewDatabaseError("failed to create migrator", err, false)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Warn("error closing migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	switch dir {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return apperror.NewValidationError(fmt.Sprintf("unknown migration direction %q", dir), nil)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return apperror.NewDatabaseError(fmt.Sprintf("failed to run migrations %s", dir), err, false)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return apperror.NewDatabaseError("failed to read migration version", verr, false)
	}
	slog.Info("migrations applied", "direction", string(dir), "version", version, "dirty", dirty)
	return nil
}
