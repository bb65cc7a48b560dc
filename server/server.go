// Package server assembles the HTTP application: it builds the services from
// their dependencies, installs the global middleware and mounts every route.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/user/listkeeper-go/apperror"
	"github.com/user/listkeeper-go/auth"
	"github.com/user/listkeeper-go/clock"
	"github.com/user/listkeeper-go/config"
	_ "github.com/user/listkeeper-go/docs" // registers the swagger document
	"github.com/user/listkeeper-go/graph"
	"github.com/user/listkeeper-go/guard"
	"github.com/user/listkeeper-go/httpx"
	"github.com/user/listkeeper-go/lists"
	"github.com/user/listkeeper-go/store"
	"github.com/user/listkeeper-go/users"
)

// Deps is the application context built once in main.
type Deps struct {
	Config *config.AppConfig
	Store  store.Store
	Clock  clock.Clock
	Logger *slog.Logger
}

// New returns the root handler.
func New(d Deps) http.Handler {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	authCfg := d.Config.Auth

	creds := auth.NewCredentialService(d.Store.Users(), d.Clock, authCfg.BcryptCost)
	tokens := auth.NewTokenService([]byte(authCfg.TokenSecret), authCfg.TokenTTL, authCfg.TokenIssuer, d.Clock)
	manager := graph.NewManager(d.Store, d.Clock, d.Logger)
	g := guard.New(creds, tokens, d.Store, authCfg.AllowBearer)

	userHandlers := users.NewUserHandlers(users.NewAccountService(creds, tokens, manager), tokens.TTL(), authCfg.CookieSecure)
	listHandlers := lists.NewListHandlers(manager)

	r := chi.NewRouter()

	// chi requires middleware and the fallback handlers before any route.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.UseLogger(d.Logger))
	r.Use(requestLogger(d.Logger))
	r.Use(recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{d.Config.Server.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.HeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	notFound := func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, r, apperror.NewNotFoundError("no route for "+r.Method+" "+r.URL.Path, nil))
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/health", handleHealth(d.Store))
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Post("/new-account", userHandlers.HandleRegister())
	r.With(g.Basic).Get("/login", userHandlers.HandleLogin())
	r.Post("/logout", userHandlers.HandleLogout())

	r.Route("/users", func(r chi.Router) {
		r.Use(g.Token)
		r.Get("/me", userHandlers.HandleGetMe())
		r.Delete("/me", userHandlers.HandleDeleteMe())
	})

	r.Route("/lists", func(r chi.Router) {
		r.Use(g.Token)
		listHandlers.Routes(r, g)
	})

	return r
}

// handleHealth godoc
// @Summary Datastore health
// @Tags system
// @Success 200
// @Failure 503 {object} apperror.ErrorResponse
// @Router /health [get]
func handleHealth(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			httpx.Error(w, r, apperror.NewDatabaseError("health check ping failed", err, true))
			return
		}
		httpx.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}
}
