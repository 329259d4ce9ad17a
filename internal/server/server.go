// Package server is the HTTP API that receives pushed workout sessions and
// serves session history.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/repclock/internal/metrics"
	"github.com/claude/repclock/internal/models"
	"github.com/claude/repclock/internal/storage"
)

// Store is the session history the server reads and writes.
// *storage.DB implements it.
type Store interface {
	UpsertSession(ctx context.Context, u *models.SessionUpload) (models.SessionRow, error)
	QuerySessions(ctx context.Context, start, end time.Time) ([]models.SessionRow, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.SessionDetail, error)
	GetTrainingVolume(ctx context.Context, start, end time.Time, bucket string) ([]models.TrainingVolumeRow, error)
	GetSessionStats(ctx context.Context) (*storage.SessionStats, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       Store
	log      *slog.Logger
	apiKey   string
	router   chi.Router
	feed     *feed
	identity func(http.Handler) http.Handler
}

// New creates a new Server with all routes configured.
func New(db Store, apiKey string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		db:       db,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
		feed:     newFeed(),
		identity: DevIdentity,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.identity(next).ServeHTTP(w, r)
		})
	})

	// Push endpoint (API key required)
	s.router.With(APIKeyAuth(s.apiKey)).Post("/api/v1/sessions", s.handlePushSession)

	// History endpoints (no auth; tsnet handles access)
	s.router.Get("/api/v1/sessions", s.handleQuerySessions)
	s.router.Get("/api/v1/sessions/events", s.handleSessionEvents)
	s.router.Get("/api/v1/sessions/{id}", s.handleGetSession)
	s.router.Get("/api/v1/volume", s.handleTrainingVolume)
	s.router.Get("/api/v1/stats", s.handleStats)
	s.router.Get("/api/v1/me", s.handleMe)

	s.router.Handle("/metrics", metrics.Handler())
}

// SetTailscale resolves request identities through the tailnet.
func (s *Server) SetTailscale(lc WhoIser) {
	s.identity = TailscaleIdentity(lc, s.log)
}

// SetMCP mounts an MCP streamable HTTP handler at /mcp.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Handle("/mcp", h)
	s.router.Handle("/mcp/*", h)
}
