package http

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"sketchspy/internal/app"
	"sketchspy/internal/config"
	"sketchspy/internal/storage"
	"sketchspy/internal/transport/ws"
)

// maxUploadBytes caps a drawing request body, multipart overhead included
const maxUploadBytes = storage.DefaultMaxArtifactBytes + 64<<10

// Server represents the HTTP server
type Server struct {
	server    *http.Server
	hub       *app.GameHub
	artifacts *storage.ArtifactStore
	config    *config.Config
	logger    *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, hub *app.GameHub, artifacts *storage.ArtifactStore, logger *slog.Logger) *Server {
	s := &Server{
		hub:       hub,
		artifacts: artifacts,
		config:    cfg,
		logger:    logger,
	}

	s.server = &http.Server{
		Addr:         cfg.GetAddr(),
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(s.logRequests)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)

		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", s.handleCreateRoom)
			r.Get("/{roomCode}", s.handleGetRoom)
			r.Get("/{roomCode}/exists", s.handleRoomExists)
			r.Get("/{roomCode}/state", s.handleRoomState)
			r.Post("/{roomCode}/join", s.handleJoin)
			r.Get("/{roomCode}/drawings", s.handleDrawings)
			r.Get("/{roomCode}/votes", s.handleTally)
			r.Get("/{roomCode}/result", s.handleResult)
			r.Get("/{roomCode}/history", s.handleHistory)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/me", s.handleMe)

			r.Route("/room", func(r chi.Router) {
				r.Post("/leave", s.handleLeave)
				r.Post("/kick", s.handleKick)
				r.Post("/leave-game", s.handleLeaveGame)
				r.Put("/avatar", s.handleUpdateAvatar)
				r.Put("/settings", s.handleUpdateSettings)
				r.Post("/start", s.handleStart)
				r.Get("/prompt", s.handlePrompt)
				r.Post("/drawing", s.handleSubmitDrawing)
				r.Delete("/drawing", s.handleWithdrawDrawing)
				r.Get("/drawing/status", s.handleSubmissionStatus)
				r.Post("/vote", s.handleVote)
				r.Post("/finish", s.handleFinishVoting)
				r.Post("/reset", s.handleReset)
				r.Post("/react", s.handleReact)
			})
		})
	})

	mux.Method(http.MethodGet, "/ws", ws.NewHandler(s.hub, s.config.Server.AllowedOrigins, s.logger))

	files := http.StripPrefix("/static/", http.FileServer(http.Dir(s.artifacts.Dir())))
	mux.Method(http.MethodGet, "/static/*", files)

	return mux
}

// logRequests logs every request with its status and duration
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		if s.config.IsDevelopment() || !isStaticRequest(r.URL.Path) {
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration", time.Since(start),
			)
		}
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}

// responseWriter records the status code written by a handler
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func isStaticRequest(path string) bool {
	return strings.HasPrefix(path, "/static/")
}
