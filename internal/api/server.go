package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/routethat/playsim/internal/config"
	"github.com/routethat/playsim/internal/dispatcher"
	"github.com/routethat/playsim/internal/storage"
	"github.com/routethat/playsim/internal/worker"
)

const requestTimeout = 30 * time.Second

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Dependencies holds everything the HTTP API serves from.
type Dependencies struct {
	Dispatcher *dispatcher.Dispatcher
	Workers    *worker.Manager
	Logger     *slog.Logger
	// Secret guards the ingest stream and play imports when non-empty.
	Secret string
}

// Server is the HTTP API: REST for plays and simulations, websockets for
// live playback.
type Server struct {
	deps   Dependencies
	cfg    config.APIConfig
	log    *slog.Logger
	router chi.Router
	hub    *hub // watchers of ingested runs
	live   *hub
}

// NewServer builds the router.
func NewServer(cfg config.APIConfig, deps Dependencies) *Server {
	s := &Server{
		deps: deps,
		cfg:  cfg,
		log:  deps.Logger,
		hub:  newHub(),
		live: newHub(),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Connections reports open live-play and watch sockets.
func (s *Server) Connections() (live, watchers int) {
	return s.live.count(), s.hub.count()
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.closeAll()
	s.live.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		// Websockets stay open past the request timeout
		r.Get("/live", s.handleLive)
		r.Get("/watch", s.handleWatch)
		r.Get("/ingest", s.handleIngest)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))

			r.Get("/playbook", s.handleBuiltin)

			r.Get("/plays", s.handleListPlays)
			r.Post("/plays", s.handleSavePlay)
			r.Post("/plays/import", s.handleImportPlays)
			r.Put("/plays/{name}", s.handlePutPlay)
			r.Delete("/plays/{name}", s.handleDeletePlay)

			r.Post("/simulate", s.handleSimulate)
			r.Get("/results", s.handleResults)
		})
	})

	return r
}

// dispatch routes a request through the command dispatcher.
func (s *Server) dispatch(ctx context.Context, name string, payload any) (any, error) {
	c, err := dispatcher.NewCommand(name, payload)
	if err != nil {
		return nil, err
	}
	return s.deps.Dispatcher.Dispatch(ctx, c)
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"requestId", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, worker.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrPlayNotFound):
		return http.StatusNotFound
	case errors.Is(err, worker.ErrNoPlayStore), errors.Is(err, storage.ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func parseIntParam(r *http.Request, param string, defaultValue int) int {
	valueStr := r.URL.Query().Get(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("Failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("Request failed", "error", err)
	}
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
		Code:    status,
	})
}
