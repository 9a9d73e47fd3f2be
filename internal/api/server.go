// Package api exposes the bot over HTTP: a public chat endpoint plus a
// token-guarded admin surface for graph editing, session handling, and
// transcripts.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/parley"
)

type Server struct {
	router *chi.Mux
	bot    *parley.Bot
	logger *slog.Logger
	port   int
}

type ServerOption func(*Server)

// WithPort sets the listen port.
func WithPort(port int) ServerOption {
	return func(s *Server) { s.port = port }
}

// WithLogger sets the request-level logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// NewServer builds the router. An empty apiToken leaves the admin
// surface open, which is only sane in development. A nil gatherer
// disables the /metrics endpoint.
func NewServer(bot *parley.Bot, apiToken string, gatherer prometheus.Gatherer, opts ...ServerOption) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		bot:    bot,
		logger: slog.Default(),
		port:   8780,
	}
	for _, opt := range opts {
		opt(s)
	}

	router.Get("/health", s.health)
	if gatherer != nil {
		router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	router.Post("/chat", s.chat)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))

		r.Get("/exchanges", s.listExchanges)
		r.Get("/exchanges/{name}", s.getExchange)
		r.Put("/exchanges/{name}", s.putExchange)
		r.Delete("/exchanges/{name}", s.deleteExchange)

		r.Get("/tangents", s.listTangents)
		r.Post("/tangents", s.postTangent)
		r.Delete("/tangents/{id}", s.deleteTangent)

		r.Get("/sessions", s.listSessions)
		r.Get("/sessions/{id}", s.getSession)
		r.Delete("/sessions/{id}", s.deleteSession)
		r.Post("/sessions/{id}/jump", s.jumpSession)
		r.Get("/sessions/{id}/transcript", s.transcript)
	})

	return s
}

// Handler returns the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("api server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests whose Authorization header does
// not carry the expected bearer token. An empty token disables the check.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
				if got != token {
					writeError(w, http.StatusUnauthorized, "invalid or missing token")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
