package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/shaiso/filequeue/internal/domain"
	"github.com/shaiso/filequeue/internal/mq"
	"github.com/shaiso/filequeue/internal/store"
	"github.com/shaiso/filequeue/internal/telemetry"
)

// Notifier сообщает transaction API исход доставки (openhim.Notifier).
type Notifier interface {
	Notify(ctx context.Context, transactionID string, status int, header http.Header, body []byte, envelope bool) error
	NotifyFailure(ctx context.Context, transactionID string, cause error) error
}

// EventPublisher публикует события об исходе обработки (mq.Publisher).
type EventPublisher interface {
	PublishItemEvent(ctx context.Context, payload mq.ItemEventPayload) error
}

// Dispatcher — обработчик очереди одного endpoint'а.
//
// Элементы из стадии queue запускаются в отдельных горутинах,
// одновременно не больше Concurrency() штук. Пауза закрывает запуск
// новых элементов; уже запущенные дорабатывают.
//
// Очередь в памяти — только ускоритель: источник истины — директория queue,
// и Repopulate всегда может восстановить очередь по ней.
type Dispatcher struct {
	name      string
	store     *store.Store
	client    *http.Client
	notifier  Notifier
	events    EventPublisher
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	ctx       context.Context
	cancelCtx context.CancelFunc

	mu      sync.Mutex
	cfg     domain.Endpoint
	pending []string
	queued  map[string]struct{}
	// running: имя файла → нужно ли повторно поставить его в очередь
	// после завершения (файл с тем же именем снова появился в queue).
	running map[string]bool
	stopped bool

	wg sync.WaitGroup
}

// Config — конфигурация Dispatcher.
type Config struct {
	Endpoint domain.Endpoint

	// Store — хранилище стадий (обязательно).
	Store *store.Store

	// HTTPClient для доставки в upstream (default: без таймаута).
	HTTPClient *http.Client

	// Notifier (опционально) — обновление транзакций при updateTx.
	Notifier Notifier

	// Events (опционально) — публикация событий об исходе.
	Events EventPublisher

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Status — состояние Dispatcher'а для интроспекции.
type Status struct {
	domain.Endpoint
	Pending int `json:"pending"`
	Active  int `json:"active"`
}

// New создаёт Dispatcher.
//
// Проверяет name и url, создаёт директории стадий, возвращает
// в queue всё, что осталось в working после падения, и заполняет
// очередь из директории queue.
func New(cfg Config) (*Dispatcher, error) {
	ep := cfg.Endpoint
	if err := ep.Validate(); err != nil {
		return nil, err
	}
	if cfg.Store == nil {
		return nil, ErrStoreRequired
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = telemetry.WithEndpoint(logger, ep.Name)

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		name:      ep.Name,
		store:     cfg.Store,
		client:    client,
		notifier:  cfg.Notifier,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
		cfg:       ep,
		queued:    make(map[string]struct{}),
		running:   make(map[string]bool),
	}

	if err := d.store.EnsureDirs(ep.Name); err != nil {
		cancel()
		return nil, fmt.Errorf("prepare stages for %s: %w", ep.Name, err)
	}

	recovered, err := d.store.RecoverWorking(ep.Name)
	if err != nil {
		logger.Error("failed to recover items from working", "error", err)
	}
	if recovered > 0 {
		logger.Warn("recovered interrupted items", "count", recovered)
	}

	if err := d.Repopulate(); err != nil {
		cancel()
		return nil, err
	}

	logger.Info("dispatcher created",
		"url", ep.URL,
		"parallel", ep.Concurrency(),
		"paused", ep.Paused,
	)
	return d, nil
}

// Name возвращает имя endpoint'а.
func (d *Dispatcher) Name() string {
	return d.name
}

// Snapshot возвращает текущую конфигурацию.
func (d *Dispatcher) Snapshot() domain.Endpoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Status возвращает конфигурацию и размеры очереди.
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{Endpoint: d.cfg, Pending: len(d.pending), Active: len(d.running)}
}

// Pause прекращает запуск новых элементов.
func (d *Dispatcher) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cfg.Paused = true
	d.logger.Info("dispatcher paused")
}

// Resume возобновляет запуск элементов.
func (d *Dispatcher) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cfg.Paused = false
	d.logger.Info("dispatcher resumed")
	d.pumpLocked()
}

// Reconfigure атомарно заменяет url, parallel, флаги и паузу.
// При ошибке состояние не меняется.
func (d *Dispatcher) Reconfigure(cfg *domain.Endpoint) error {
	if cfg == nil {
		return ErrNilConfig
	}
	if cfg.URL == "" {
		return fmt.Errorf("%w: endpoint %q", domain.ErrEndpointURLRequired, d.name)
	}
	if cfg.Name != "" && cfg.Name != d.name {
		return fmt.Errorf("%w: %q is not %q", ErrNameMismatch, cfg.Name, d.name)
	}

	next := *cfg
	next.Name = d.name

	d.mu.Lock()
	defer d.mu.Unlock()

	d.cfg = next
	d.logger.Info("dispatcher reconfigured",
		"url", next.URL,
		"parallel", next.Concurrency(),
		"paused", next.Paused,
	)
	d.pumpLocked()
	return nil
}

// Enqueue ставит файл из стадии queue в очередь обработки.
// Повторная постановка уже ожидающего файла ничего не делает.
func (d *Dispatcher) Enqueue(filename string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrDispatcherStopped
	}

	d.pushLocked(filename)
	d.pumpLocked()
	return nil
}

// Repopulate отбрасывает ещё не запущенные элементы и заново
// ставит в очередь всё содержимое директории queue.
func (d *Dispatcher) Repopulate() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrDispatcherStopped
	}

	dropped := len(d.pending)
	d.pending = nil
	clear(d.queued)

	names, err := d.store.ListPending(d.name)
	if err != nil {
		d.pumpLocked()
		return fmt.Errorf("repopulate %s: %w", d.name, err)
	}

	added := 0
	for _, name := range names {
		if d.pushLocked(name) {
			added++
		}
	}

	d.logger.Info("queue repopulated", "dropped", dropped, "enqueued", added)
	d.pumpLocked()
	return nil
}

// Stop прекращает запуск элементов и ждёт завершения запущенных.
// Ожидающие элементы остаются в директории queue.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.stopped = true
	d.pending = nil
	clear(d.queued)
	d.metrics.SetPending(d.name, 0)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancelCtx()
		d.logger.Info("dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pushLocked добавляет файл в очередь. Возвращает false для дубликата.
func (d *Dispatcher) pushLocked(filename string) bool {
	if _, ok := d.queued[filename]; ok {
		return false
	}
	if _, ok := d.running[filename]; ok {
		d.running[filename] = true
		return false
	}

	d.queued[filename] = struct{}{}
	d.pending = append(d.pending, filename)
	return true
}

// pumpLocked запускает элементы, пока есть свободные слоты.
func (d *Dispatcher) pumpLocked() {
	limit := d.cfg.Concurrency()

	for !d.stopped && !d.cfg.Paused && len(d.running) < limit && len(d.pending) > 0 {
		filename := d.pending[0]
		d.pending[0] = ""
		d.pending = d.pending[1:]
		delete(d.queued, filename)

		d.running[filename] = false
		d.wg.Add(1)
		go d.run(filename)
	}

	d.metrics.SetActive(d.name, len(d.running))
	d.metrics.SetPending(d.name, len(d.pending))
}

// run обрабатывает элемент и освобождает слот.
func (d *Dispatcher) run(filename string) {
	defer d.wg.Done()

	d.process(d.ctx, filename)

	d.mu.Lock()
	defer d.mu.Unlock()

	again := d.running[filename]
	delete(d.running, filename)
	if again && !d.stopped && d.store.Exists(d.name, filename, domain.StageQueue) {
		d.pushLocked(filename)
	}
	d.pumpLocked()
}
