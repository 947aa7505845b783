// filequeue — mediator, сохраняющий входящие запросы на диск
// и доставляющий их в upstream.
//
// Процесс:
//   - Принимает запросы на path каждого endpoint'а и отвечает 202
//   - Доставляет сохранённые элементы с ограниченной параллельностью
//   - Обновляет транзакции OpenHIM (updateTx)
//   - Получает конфигурацию endpoint'ов через heartbeat (HEARTBEAT=true)
//     или из файла mediator'а
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/filequeue/internal/api"
	"github.com/shaiso/filequeue/internal/config"
	"github.com/shaiso/filequeue/internal/mq"
	"github.com/shaiso/filequeue/internal/openhim"
	"github.com/shaiso/filequeue/internal/reconciler"
	"github.com/shaiso/filequeue/internal/scheduler"
	"github.com/shaiso/filequeue/internal/store"
	"github.com/shaiso/filequeue/internal/telemetry"
	"github.com/shaiso/filequeue/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	started := time.Now()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting filequeue")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = telemetry.ConfigureLogger(cfg.LogLevel, cfg.LogFormat)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(reg)

	// OpenHIM API
	client := openhim.NewClient(openhim.Config{
		APIURL:          cfg.APIURL,
		Username:        cfg.APIUsername,
		Password:        cfg.APIPassword,
		TrustSelfSigned: cfg.TrustSelfSigned,
		Logger:          logger,
	})

	// RabbitMQ (опционально)
	var events worker.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqConn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, item events disabled", "error", err)
		} else {
			defer mqConn.Close()
			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			events = mq.NewPublisher(mqConn, logger)
			logger.Info("RabbitMQ connected", "topology", mq.TopologyInfo())
		}
	}

	st := store.New(cfg.QueueRoot)

	registry := worker.NewRegistry(worker.Config{
		Store:      st,
		HTTPClient: &http.Client{Timeout: cfg.OutboundTimeout},
		Notifier:   openhim.NewNotifier(client, logger),
		Events:     events,
		Metrics:    metrics,
		Logger:     logger,
	})

	handler := api.NewHandler(api.Config{
		Registry:       registry,
		Store:          st,
		URN:            cfg.Mediator.URN,
		Started:        started,
		Metrics:        metrics,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:         logger,
	})

	rec := reconciler.New(reconciler.Config{
		Registry:   registry,
		Routes:     handler.Router(),
		Ingest:     handler.IngestHandler,
		Channels:   client,
		Route:      cfg.RouteHost(),
		PruneStale: cfg.PruneStale,
		Metrics:    metrics,
		Logger:     logger,
	})

	sched, err := scheduler.New(scheduler.Config{
		Source:   client,
		Applier:  rec,
		URN:      cfg.Mediator.URN,
		Uptime:   handler.Uptime,
		Schedule: cfg.HeartbeatSchedule,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("invalid heartbeat schedule", "error", err)
		os.Exit(1)
	}

	if cfg.Register {
		if err := client.RegisterMediator(ctx, cfg.Mediator); err != nil {
			logger.Error("could not register mediator", "urn", cfg.Mediator.URN, "error", err)
			os.Exit(1)
		}
		logger.Info("mediator registered", "urn", cfg.Mediator.URN)
	}

	// Начальная конфигурация: от OpenHIM при heartbeat, иначе из файла
	if cfg.Heartbeat {
		err = sched.FetchInitial(ctx)
	} else {
		err = rec.ApplyConfig(ctx, &cfg.Mediator.Config)
	}
	// Ошибки отдельных endpoint'ов уже залогированы и не мешают старту.
	if err != nil && !errors.Is(err, reconciler.ErrEndpointSetup) {
		logger.Error("failed to apply initial configuration", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Heartbeat {
		g.Go(func() error {
			return sched.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		return errors.Join(
			server.Shutdown(shutdownCtx),
			registry.Shutdown(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		logger.Error("filequeue stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("filequeue stopped")
}
