package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/keygate/authserver/config"
	"github.com/keygate/authserver/internal/auth"
	"github.com/keygate/authserver/internal/db"
	"github.com/keygate/authserver/internal/handlers"
	"github.com/keygate/authserver/internal/services"
	"github.com/keygate/authserver/internal/store"
)

const generatedKeyBytes = 64

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	secret := []byte(cfg.Auth.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, generatedKeyBytes)
		if _, err := rand.Read(secret); err != nil {
			_ = dbConn.Close()
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		log.Println("JWT_SECRET is not set; using an ephemeral signing key. " +
			"Issued tokens will not survive a restart and cannot be validated by other instances.")
	}

	userRepo := store.NewUserRepository(dbConn)
	tokenCodec := auth.NewTokenCodec(secret, cfg.Auth.TokenTTL)
	authService := services.NewAuthService(userRepo, tokenCodec)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	router.Get("/healthz", handlers.Healthz(dbConn))
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, cfg.Auth.TokenTTL)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
