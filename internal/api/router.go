// Package api exposes the quiz functions and the dashboard over HTTP.
package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/enfinlibre/formation/internal/feedback"
	"github.com/enfinlibre/formation/internal/store"
	"github.com/enfinlibre/formation/internal/submission"
)

// Route paths.
const (
	PathSubmitQuiz  = "/functions/v1/submit-quiz"
	PathAnalyzeQuiz = "/functions/v1/analyze-quiz"
	PathSubmissions = "/api/submissions"
	PathHealth      = "/healthz"
	PathMetrics     = "/metrics"
)

// Headers accepted from browser clients.
var allowedHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

// Submitter stores new submissions.
type Submitter interface {
	Submit(ctx context.Context, req submission.Request) (*submission.Result, error)
}

// Analyzer produces analyses of stored or raw answers.
type Analyzer interface {
	Analyze(ctx context.Context, submissionID string) (*feedback.Result, error)
	AnalyzeAnswers(ctx context.Context, answers store.Answers) (*feedback.Result, error)
}

// Deps are the services behind the HTTP handlers.
type Deps struct {
	Submitter   Submitter
	Analyzer    Analyzer
	Submissions store.SubmissionRepo
	Logger      *zap.Logger
}

// Options tune the router.
type Options struct {
	Version        string
	AllowedOrigins []string
}

// Handler serves the HTTP API.
type Handler struct {
	submitter   Submitter
	analyzer    Analyzer
	submissions store.SubmissionRepo
	version     string
	cors        cors.Config
	log         *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps, opts Options) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	h := &Handler{
		submitter:   deps.Submitter,
		analyzer:    deps.Analyzer,
		submissions: deps.Submissions,
		version:     opts.Version,
		cors:        corsConfig(opts.AllowedOrigins),
		log:         logger,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(cors.New(h.cors))

	functions := r.Group("/functions/v1")
	{
		functions.POST("/submit-quiz", h.SubmitQuiz)
		functions.POST("/analyze-quiz", h.AnalyzeQuiz)
		// Preflights carrying CORS headers are answered by the middleware;
		// a bare OPTIONS still gets an empty success.
		functions.OPTIONS("/submit-quiz", h.Preflight)
		functions.OPTIONS("/analyze-quiz", h.Preflight)
	}

	dashboard := r.Group(PathSubmissions)
	{
		dashboard.GET("", h.ListSubmissions)
		dashboard.GET("/:id", h.GetSubmission)
	}

	r.GET(PathHealth, h.Health)
	r.GET(PathMetrics, gin.WrapH(promhttp.Handler()))

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: allowedHeaders,
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
