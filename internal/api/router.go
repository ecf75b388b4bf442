package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sydlexius/trackyear/internal/api/middleware"
	"github.com/sydlexius/trackyear/internal/review"
	"github.com/sydlexius/trackyear/internal/stats"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Runner   *review.Runner
	Runs     *review.Service
	Stats    *stats.Service
	Logger   *slog.Logger
	BasePath string
	Language string

	// AnalysisEvery and AnalysisBurst limit how often one client may start
	// a run. Zero values use one run per 30 seconds with a burst of 3.
	AnalysisEvery time.Duration
	AnalysisBurst int
}

// Router sets up all HTTP routes for the application.
type Router struct {
	runner   *review.Runner
	runs     *review.Service
	stats    *stats.Service
	logger   *slog.Logger
	basePath string
	language string
	limiter  *middleware.ClientRateLimiter
}

// NewRouter creates a new Router with all routes configured. ctx bounds the
// rate limiter's background cleanup.
func NewRouter(ctx context.Context, deps RouterDeps) *Router {
	every, burst := deps.AnalysisEvery, deps.AnalysisBurst
	if every <= 0 {
		every = 30 * time.Second
	}
	if burst <= 0 {
		burst = 3
	}
	lang := deps.Language
	if lang == "" {
		lang = "en"
	}
	return &Router{
		runner:   deps.Runner,
		runs:     deps.Runs,
		stats:    deps.Stats,
		logger:   deps.Logger.With(slog.String("component", "api")),
		basePath: deps.BasePath,
		language: lang,
		limiter:  middleware.NewClientRateLimiter(ctx, every, burst),
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	bp := r.basePath

	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)

	mux.Handle("POST "+bp+"/api/v1/analyses", r.limiter.Middleware(http.HandlerFunc(r.handleCreateAnalysis)))
	mux.HandleFunc("GET "+bp+"/api/v1/analyses", r.handleListAnalyses)
	mux.HandleFunc("GET "+bp+"/api/v1/analyses/{id}", r.handleGetAnalysis)
	mux.HandleFunc("DELETE "+bp+"/api/v1/analyses/{id}", r.handleDeleteAnalysis)
	mux.HandleFunc("POST "+bp+"/api/v1/analyses/{id}/tracks/{trackId}/approve", r.handleApproveTrack)
	mux.HandleFunc("POST "+bp+"/api/v1/analyses/{id}/approve-green", r.handleApproveGreen)
	mux.HandleFunc("GET "+bp+"/api/v1/analyses/{id}/export", r.handleExport)

	mux.HandleFunc("GET "+bp+"/api/v1/stats", r.handleGetStats)

	return middleware.Logging(r.logger)(middleware.SecurityHeaders(mux))
}
