package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/filequeue/internal/domain"
	"github.com/shaiso/filequeue/internal/telemetry"
)

// Source — удалённый источник конфигурации (openhim.Client).
type Source interface {
	Heartbeat(ctx context.Context, urn string, uptime time.Duration, forceConfig bool) (*domain.RuntimeConfig, error)
}

// Applier применяет полученную конфигурацию (reconciler.Reconciler).
type Applier interface {
	ApplyConfig(ctx context.Context, cfg *domain.RuntimeConfig) error
}

// Scheduler — периодический heartbeat.
type Scheduler struct {
	source   Source
	applier  Applier
	urn      string
	uptime   func() time.Duration
	schedule cron.Schedule
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// Config — конфигурация Scheduler.
type Config struct {
	Source  Source
	Applier Applier

	// URN mediator'а.
	URN string

	// Uptime возвращает время работы процесса (default: от вызова New).
	Uptime func() time.Duration

	// Schedule — cron-выражение (default: DefaultSchedule).
	Schedule string

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// New создаёт Scheduler.
func New(cfg Config) (*Scheduler, error) {
	schedule, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	uptime := cfg.Uptime
	if uptime == nil {
		started := time.Now()
		uptime = func() time.Duration { return time.Since(started) }
	}

	return &Scheduler{
		source:   cfg.Source,
		applier:  cfg.Applier,
		urn:      cfg.URN,
		uptime:   uptime,
		schedule: schedule,
		metrics:  cfg.Metrics,
		logger:   logger,
	}, nil
}

// Tick отправляет один heartbeat и применяет конфигурацию из ответа.
// Возвращает true, если конфигурация была получена.
func (s *Scheduler) Tick(ctx context.Context, forceConfig bool) (bool, error) {
	cfg, err := s.source.Heartbeat(ctx, s.urn, s.uptime(), forceConfig)
	if err != nil {
		return false, fmt.Errorf("heartbeat: %w", err)
	}
	if cfg == nil {
		return false, nil
	}

	s.logger.Info("received configuration from heartbeat", "endpoints", len(cfg.Endpoints))

	if err := s.applier.ApplyConfig(ctx, cfg); err != nil {
		return true, fmt.Errorf("apply config: %w", err)
	}
	return true, nil
}

// FetchInitial запрашивает конфигурацию принудительно и применяет её.
// Используется при старте: без начальной конфигурации процессу нечего делать.
func (s *Scheduler) FetchInitial(ctx context.Context) error {
	received, err := s.Tick(ctx, true)
	if err != nil {
		return err
	}
	if !received {
		return ErrNoConfig
	}
	return nil
}

// Run выполняет heartbeat по расписанию до отмены ctx.
//
// Тик, не успевший завершиться к следующему срабатыванию,
// не запускается повторно параллельно.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := cronLogger{logger: s.logger}

	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		s.tick(ctx)
	}))

	s.logger.Info("heartbeat scheduler started", "urn", s.urn)
	c.Start()

	<-ctx.Done()

	<-c.Stop().Done()
	s.logger.Info("heartbeat scheduler stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.Tick(ctx, false); err != nil {
		s.metrics.IncError(telemetry.ErrorKindConfig)
		s.logger.Error("heartbeat failed", "error", err)
	}
}
