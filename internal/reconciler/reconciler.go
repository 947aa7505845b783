package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shaiso/filequeue/internal/domain"
	"github.com/shaiso/filequeue/internal/openhim"
	"github.com/shaiso/filequeue/internal/telemetry"
	"github.com/shaiso/filequeue/internal/worker"
)

// DefaultStopTimeout — сколько ждать завершения доставок удаляемого endpoint'а.
const DefaultStopTimeout = 10 * time.Second

// Routes — динамические маршруты ingestion (api.Router).
type Routes interface {
	Register(pattern string, handler http.Handler) error
	Unregister(pattern string) bool
}

// ChannelManager создаёт или обновляет канал OpenHIM (openhim.Client).
type ChannelManager interface {
	UpsertChannel(ctx context.Context, desired openhim.Channel) (bool, error)
}

// IngestFactory возвращает обработчик ingestion для endpoint'а по имени.
type IngestFactory func(name string) http.Handler

// Reconciler применяет конфигурацию endpoint'ов.
type Reconciler struct {
	registry *worker.Registry
	routes   Routes
	ingest   IngestFactory
	channels ChannelManager
	route    openhim.RouteHost
	prune    bool
	stopWait time.Duration
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	// mu сериализует ApplyConfig: heartbeat и старт не должны
	// применять конфигурации одновременно.
	mu      sync.Mutex
	paths   map[string]string // имя endpoint'а → зарегистрированный path
	current []domain.Endpoint
}

// Config — конфигурация Reconciler.
type Config struct {
	Registry *worker.Registry
	Routes   Routes
	Ingest   IngestFactory

	// Channels (опционально) — управление каналами OpenHIM.
	// nil → каналы не трогаются.
	Channels ChannelManager

	// Route — адрес mediator'а, который прописывается в маршрут канала.
	Route openhim.RouteHost

	// PruneStale — останавливать endpoint'ы, исчезнувшие из конфигурации.
	PruneStale bool

	// StopTimeout — ожидание доставок удаляемого endpoint'а
	// (по умолчанию DefaultStopTimeout). Незавершённые элементы
	// остаются в working и возвращаются в queue при следующем создании.
	StopTimeout time.Duration

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// New создаёт Reconciler.
func New(cfg Config) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	stopWait := cfg.StopTimeout
	if stopWait <= 0 {
		stopWait = DefaultStopTimeout
	}

	return &Reconciler{
		registry: cfg.Registry,
		routes:   cfg.Routes,
		ingest:   cfg.Ingest,
		channels: cfg.Channels,
		route:    cfg.Route,
		prune:    cfg.PruneStale,
		stopWait: stopWait,
		metrics:  cfg.Metrics,
		logger:   logger,
		paths:    make(map[string]string),
	}
}

// Current возвращает последнюю применённую конфигурацию endpoint'ов.
func (r *Reconciler) Current() []domain.Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Endpoint, len(r.current))
	copy(out, r.current)
	return out
}

// ApplyConfig применяет список endpoint'ов.
//
// Конфигурация без элемента endpoints не применяется: действующая
// остаётся как есть, возвращается ErrEndpointsMissing. Структурно
// некорректный список отклоняется целиком до каких-либо изменений.
// Ошибки отдельных endpoint'ов не прерывают обработку остальных
// и возвращаются через errors.Join. Ошибки управления каналами
// только логируются.
func (r *Reconciler) ApplyConfig(ctx context.Context, cfg *domain.RuntimeConfig) error {
	if cfg == nil || cfg.Endpoints == nil {
		r.logger.Warn("no endpoints in configuration, keeping previous")
		return ErrEndpointsMissing
	}

	if err := validate(cfg.Endpoints); err != nil {
		r.metrics.IncError(telemetry.ErrorKindConfig)
		r.logger.Error("configuration rejected", "error", err)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	seen := make(map[string]struct{}, len(cfg.Endpoints))

	for _, ep := range cfg.Endpoints {
		seen[ep.Name] = struct{}{}

		if err := r.applyEndpoint(ctx, ep); err != nil {
			r.metrics.IncError(telemetry.ErrorKindConfig)
			telemetry.WithEndpoint(r.logger, ep.Name).Error("failed to apply endpoint", "error", err)
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrEndpointSetup, ep.Name, err))
		}
	}

	for _, d := range r.registry.All() {
		if _, ok := seen[d.Name()]; ok {
			continue
		}
		if err := r.stale(ctx, d.Name()); err != nil {
			errs = append(errs, err)
		}
	}

	r.current = append([]domain.Endpoint(nil), cfg.Endpoints...)

	r.logger.Info("configuration applied",
		"endpoints", len(cfg.Endpoints),
		"errors", len(errs),
	)
	return errors.Join(errs...)
}

// applyEndpoint настраивает канал, Dispatcher и маршрут одного endpoint'а.
func (r *Reconciler) applyEndpoint(ctx context.Context, ep domain.Endpoint) error {
	logger := telemetry.WithEndpoint(r.logger, ep.Name)

	if r.channels != nil && !ep.DisableAutoChannelManagement {
		created, err := r.channels.UpsertChannel(ctx, openhim.ChannelForEndpoint(ep, r.route))
		switch {
		case err != nil:
			r.metrics.IncError(telemetry.ErrorKindConfig)
			logger.Error("failed to upsert channel", "error", err)
		case created:
			logger.Info("channel created")
		default:
			logger.Debug("channel updated")
		}
	}

	if _, err := r.registry.Upsert(ep); err != nil {
		return err
	}

	if old, ok := r.paths[ep.Name]; ok && old != ep.Path {
		r.unregister(ep.Name, old)
	}

	if err := r.routes.Register(ep.Path, r.ingest(ep.Name)); err != nil {
		return fmt.Errorf("register route: %w", err)
	}
	r.paths[ep.Name] = ep.Path

	logger.Debug("endpoint applied", "path", ep.Path, "url", ep.URL)
	return nil
}

// stale обрабатывает Dispatcher, которого нет в новой конфигурации.
func (r *Reconciler) stale(ctx context.Context, name string) error {
	logger := telemetry.WithEndpoint(r.logger, name)

	if !r.prune {
		logger.Warn("endpoint missing from configuration, worker keeps running")
		return nil
	}

	if path, ok := r.paths[name]; ok {
		r.unregister(name, path)
		delete(r.paths, name)
	}

	stopCtx, cancel := context.WithTimeout(ctx, r.stopWait)
	defer cancel()

	err := r.registry.Remove(stopCtx, name)
	switch {
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		logger.Warn("stale endpoint removed with deliveries still in flight", "waited", r.stopWait)
		return nil
	case err != nil:
		return fmt.Errorf("%w: remove %s: %w", ErrEndpointSetup, name, err)
	}

	logger.Info("stale endpoint removed")
	return nil
}

// unregister снимает маршрут, если он не занят другим endpoint'ом.
func (r *Reconciler) unregister(name, path string) {
	for other, p := range r.paths {
		if other != name && p == path {
			return
		}
	}
	r.routes.Unregister(path)
}

// validate проверяет список целиком до применения.
func validate(endpoints []domain.Endpoint) error {
	owners := make(map[string]string, len(endpoints))

	for i := range endpoints {
		ep := &endpoints[i]
		if err := ep.Validate(); err != nil {
			return err
		}
		if ep.Path == "" {
			return fmt.Errorf("%w: endpoint %q", ErrPathRequired, ep.Name)
		}
		if owner, ok := owners[ep.Path]; ok && owner != ep.Name {
			return fmt.Errorf("%w: %s (%s, %s)", ErrDuplicatePath, ep.Path, owner, ep.Name)
		}
		owners[ep.Path] = ep.Name
	}
	return nil
}
