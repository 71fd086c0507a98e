package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coinrank/coinrank-backend/internal/domain"
	"github.com/coinrank/coinrank-backend/internal/usecase/export"
	"github.com/coinrank/coinrank-backend/internal/usecase/ingest"
	"github.com/coinrank/coinrank-backend/internal/usecase/leaderboard"
	"github.com/coinrank/coinrank-backend/internal/usecase/valuation"
)

const (
	leaderboardCacheKey = "leaderboard_latest"
	leaderboardCacheTTL = 30 * time.Second
)

// Server exposes the read/upload surface of the pipeline: batch status
// polling, the latest leaderboard generation, per-user valuations and
// holdings export. All mutation beyond uploads happens through the job
// CLI, not this API.
type Server struct {
	router *chi.Mux

	ingestService      *ingest.Service
	valuationService   *valuation.Service
	leaderboardService *leaderboard.Service
	exportService      *export.Service
	batchRepo          domain.BatchRepository

	responseCache  *cache.Cache
	maxUploadBytes int64
}

// NewServer creates a new API server and mounts all routes
func NewServer(
	ingestService *ingest.Service,
	valuationService *valuation.Service,
	leaderboardService *leaderboard.Service,
	exportService *export.Service,
	batchRepo domain.BatchRepository,
	maxUploadBytes int64,
) *Server {
	s := &Server{
		router:             chi.NewRouter(),
		ingestService:      ingestService,
		valuationService:   valuationService,
		leaderboardService: leaderboardService,
		exportService:      exportService,
		batchRepo:          batchRepo,
		responseCache:      cache.New(leaderboardCacheTTL, 5*time.Minute),
		maxUploadBytes:     maxUploadBytes,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestMetrics)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/users/{userID}/uploads", s.handleUpload)
		r.Get("/users/{userID}/valuation", s.handleValuation)
		r.Get("/users/{userID}/export", s.handleExport)
		r.Get("/batches/{batchID}", s.handleBatchStatus)
		r.Get("/leaderboard", s.handleLeaderboard)
	})
}

// Handler returns the root http.Handler of the API
func (s *Server) Handler() http.Handler {
	return s.router
}
