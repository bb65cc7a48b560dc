// Package config provides configuration management for the listkeeper service.
// Values come from environment variables (optionally seeded from a .env file by
// main). Required variables, defaults and parse failures are all checked in one
// pass, and every problem is reported together so a misconfigured deployment
// fails fast with the full list instead of one variable at a time.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// MinSecretLength is the shortest accepted TOKEN_SECRET, in bytes.
const MinSecretLength = 16

// PoolConfig represents configuration for the PostgreSQL connection pool.
type PoolConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
	SSLMode  string
}

// DSN renders the pool settings as a postgres URL, usable by both pgx and golang-migrate.
func (p *PoolConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

// MongoConfig holds the MongoDB connection settings.
type MongoConfig struct {
	URI      string
	Database string
}

// StoreConfig selects and configures the datastore.
type StoreConfig struct {
	Driver  string
	Timeout time.Duration // bound applied to every datastore call
	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string
	Postgres       *PoolConfig
	Mongo          *MongoConfig
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	TokenSecret  string        // HMAC key for signing tokens
	TokenTTL     time.Duration // zero means tokens never expire
	TokenIssuer  string
	BcryptCost   int
	CookieSecure bool // sets Secure on the XSRF-TOKEN cookie
	AllowBearer  bool // accept "Authorization: Bearer" as an alternative to the cookie pair
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port      string
	ClientURL string // allowed CORS origin
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or text
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	Store  *StoreConfig
	Auth   *AuthConfig
	Server *ServerConfig
	Log    *LogConfig
}

// LookupFunc reports the value of an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// env wraps a LookupFunc and accumulates every problem it sees.
type env struct {
	lookup LookupFunc
	errs   *multierror.Error
}

func (e *env) fail(format string, args ...any) {
	e.errs = multierror.Append(e.errs, fmt.Errorf(format, args...))
}

// required returns the variable's value, recording an error if it is unset or blank.
func (e *env) required(key string) string {
	value, ok := e.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		e.fail("missing required environment variable: %s", key)
		return ""
	}
	return value
}

func (e *env) optional(key, defaultValue string) string {
	if value, ok := e.lookup(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func (e *env) optionalInt(key string, defaultValue int) int {
	valueStr, ok := e.lookup(key)
	if !ok || valueStr == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(valueStr)
	if err != nil {
		e.fail("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err)
		return defaultValue
	}
	return v
}

func (e *env) optionalBool(key string, defaultValue bool) bool {
	valueStr, ok := e.lookup(key)
	if !ok || valueStr == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(valueStr)
	if err != nil {
		e.fail("invalid value for %s: expected boolean, got '%s': %v", key, valueStr, err)
		return defaultValue
	}
	return v
}

// optionalDuration parses strings like "15m" or "1h30s". A bare "0" is accepted.
func (e *env) optionalDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, ok := e.lookup(key)
	if !ok || valueStr == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(valueStr)
	if err != nil {
		e.fail("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err)
		return defaultValue
	}
	if v < 0 {
		e.fail("invalid value for %s: duration must not be negative", key)
		return defaultValue
	}
	return v
}

// clampPoolSize keeps the pool size between 1 and 100.
func clampPoolSize(size int) int {
	if size < 1 {
		return 1
	}
	if size > 100 {
		return 100
	}
	return size
}

// LoadConfig reads the process environment.
func LoadConfig() (*AppConfig, error) {
	return Load(os.LookupEnv)
}

// Load creates an AppConfig from lookup, validating every value. All errors
// are returned together as a *multierror.Error.
func Load(lookup LookupFunc) (*AppConfig, error) {
	e := &env{lookup: lookup}

	storeCfg := &StoreConfig{
		Driver:         strings.ToLower(e.optional("STORE_DRIVER", DriverPostgres)),
		Timeout:        e.optionalDuration("DB_TIMEOUT", 5*time.Second),
		MigrationsPath: e.optional("MIGRATIONS_PATH", "db/migrations"),
	}
	if storeCfg.Timeout == 0 {
		e.fail("invalid value for DB_TIMEOUT: must be greater than zero")
	}

	switch storeCfg.Driver {
	case DriverPostgres:
		storeCfg.Postgres = &PoolConfig{
			Host:     e.optional("DB_HOST", "localhost"),
			Port:     e.optionalInt("DB_PORT", 5432),
			User:     e.required("DB_USER"),
			Password: e.required("DB_PASSWORD"),
			DBName:   e.required("DB_NAME"),
			MaxSize:  clampPoolSize(e.optionalInt("DB_POOL_SIZE", 10)),
			SSLMode:  e.optional("DB_SSLMODE", "disable"),
		}
	case DriverMongo:
		storeCfg.Mongo = &MongoConfig{
			URI:      e.required("MONGODB_URI"),
			Database: e.optional("MONGODB_DATABASE", "listkeeper"),
		}
	case DriverMemory:
	default:
		e.fail("invalid value for STORE_DRIVER: %q (want %s, %s or %s)", storeCfg.Driver, DriverPostgres, DriverMongo, DriverMemory)
	}

	authCfg := &AuthConfig{
		TokenSecret:  e.required("TOKEN_SECRET"),
		TokenTTL:     e.optionalDuration("TOKEN_TTL", 24*time.Hour),
		TokenIssuer:  e.optional("TOKEN_ISSUER", "listkeeper"),
		BcryptCost:   e.optionalInt("BCRYPT_COST", 10),
		CookieSecure: e.optionalBool("COOKIE_SECURE", false),
		AllowBearer:  e.optionalBool("AUTH_ALLOW_BEARER", true),
	}
	if authCfg.TokenSecret != "" && len(authCfg.TokenSecret) < MinSecretLength {
		e.fail("TOKEN_SECRET must be at least %d bytes", MinSecretLength)
	}
	// bcrypt accepts 4..31
	if authCfg.BcryptCost < 4 || authCfg.BcryptCost > 31 {
		e.fail("invalid value for BCRYPT_COST: %d is outside 4..31", authCfg.BcryptCost)
	}

	serverCfg := &ServerConfig{
		Port:      e.optional("PORT", "8080"),
		ClientURL: e.optional("CLIENT_URL", "http://localhost:8080"),
	}

	logCfg := &LogConfig{
		Level:  strings.ToLower(e.optional("LOG_LEVEL", "info")),
		Format: strings.ToLower(e.optional("LOG_FORMAT", "json")),
	}
	switch logCfg.Level {
	case "debug", "info", "warn", "error":
	default:
		e.fail("invalid value for LOG_LEVEL: %q", logCfg.Level)
	}
	if logCfg.Format != "json" && logCfg.Format != "text" {
		e.fail("invalid value for LOG_FORMAT: %q (want json or text)", logCfg.Format)
	}

	if err := e.errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("configuration errors: %w", err)
	}

	return &AppConfig{
		Store:  storeCfg,
		Auth:   authCfg,
		Server: serverCfg,
		Log:    logCfg,
	}, nil
}
