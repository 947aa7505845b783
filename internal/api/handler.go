package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/filequeue/internal/store"
	"github.com/shaiso/filequeue/internal/telemetry"
	"github.com/shaiso/filequeue/internal/worker"
)

// Handler — HTTP-поверхность mediator'а: приём элементов,
// управление воркерами и служебные маршруты.
type Handler struct {
	registry       *worker.Registry
	store          *store.Store
	router         *Router
	urn            string
	started        time.Time
	metrics        *telemetry.Metrics
	metricsHandler http.Handler
	logger         *slog.Logger
	now            func() time.Time
}

// Config — конфигурация для создания Handler.
type Config struct {
	Registry *worker.Registry
	Store    *store.Store

	// Router (опционально) — маршруты ingestion; nil → новый пустой.
	Router *Router

	// URN mediator'а для ответа ingestion.
	URN string

	// Started — время запуска процесса для /heartbeat (default: сейчас).
	Started time.Time

	Metrics *telemetry.Metrics

	// MetricsHandler (опционально) обслуживает GET /metrics.
	MetricsHandler http.Handler

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := cfg.Router
	if router == nil {
		router = NewRouter()
	}

	started := cfg.Started
	if started.IsZero() {
		started = time.Now()
	}

	return &Handler{
		registry:       cfg.Registry,
		store:          cfg.Store,
		router:         router,
		urn:            cfg.URN,
		started:        started,
		metrics:        cfg.Metrics,
		metricsHandler: cfg.MetricsHandler,
		logger:         logger,
		now:            time.Now,
	}
}

// Router возвращает маршрутизатор ingestion.
func (h *Handler) Router() *Router {
	return h.router
}

// Uptime возвращает время работы процесса.
func (h *Handler) Uptime() time.Duration {
	return h.now().Sub(h.started)
}
