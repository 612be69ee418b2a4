package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gestaozabele/videorelay/internal/auth"
	"github.com/gestaozabele/videorelay/internal/config"
	httpmiddleware "github.com/gestaozabele/videorelay/internal/http/middleware"
	"github.com/gestaozabele/videorelay/internal/metrics"
	"github.com/gestaozabele/videorelay/internal/progress"
	"github.com/gestaozabele/videorelay/internal/upload"
)

// Check testa uma dependência externa para /ready.
type Check func(ctx context.Context) error

// Deps reúne os serviços usados pelas rotas.
type Deps struct {
	Relay    *upload.Service
	Broker   progress.Broker
	Uploads  upload.Recorder
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	JWT      *auth.JWTManager
	Checks   map[string]Check
	// Done encerra os streams SSE abertos (fechado no shutdown do servidor).
	Done <-chan struct{}
}

type Handler struct {
	relay     *upload.Service
	broker    progress.Broker
	uploads   upload.Recorder
	metrics   *metrics.Metrics
	checks    map[string]Check
	tempDir   string
	heartbeat time.Duration
	limiter   *httpmiddleware.RateLimiter
	done      <-chan struct{}
}

// NewRouter devolve roteador configurado.
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	uploads := deps.Uploads
	if uploads == nil {
		uploads = upload.NopRecorder{}
	}

	h := &Handler{
		relay:     deps.Relay,
		broker:    deps.Broker,
		uploads:   uploads,
		metrics:   deps.Metrics,
		checks:    deps.Checks,
		tempDir:   cfg.Upload.TempDir,
		heartbeat: cfg.Upload.SSEHeartbeat,
		done:      deps.Done,
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		h.limiter = httpmiddleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))
	r.Use(httpmiddleware.Metrics(deps.Metrics))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(up chi.Router) {
		up.Use(httpmiddleware.IPRateLimit(h.limiter))
		up.Use(httpmiddleware.Auth(deps.JWT, auth.ScopeUpload))
		up.Post("/upload", h.Upload)
	})

	r.Get("/progress", h.Progress)
	r.Get("/progress/{uploadID}", h.Progress)
	r.Get("/uploads/{uploadID}", h.GetUpload)

	return r
}
