package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "filequeue"

// Исходы обработки элемента (label outcome).
const (
	OutcomeQueued    = "queued"
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
)

// Виды ошибок (label kind).
const (
	ErrorKindIngest       = "ingest"
	ErrorKindStage        = "stage"
	ErrorKindDelivery     = "delivery"
	ErrorKindNotification = "notification"
	ErrorKindConfig       = "config"
	ErrorKindEvent        = "event"
)

// Metrics — Prometheus метрики mediator'а.
//
// Все методы безопасны для nil-получателя: компоненты, созданные
// без метрик (например, в тестах), просто ничего не считают.
type Metrics struct {
	requests     *prometheus.CounterVec
	responseTime prometheus.Histogram
	errors       *prometheus.CounterVec
	items        *prometheus.CounterVec
	active       *prometheus.GaugeVec
	pending      *prometheus.GaugeVec
	delivery     *prometheus.HistogramVec
}

// NewMetrics регистрирует метрики в reg. Если reg == nil, используется
// prometheus.DefaultRegisterer (его отдаёт promhttp.Handler()).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests handled, by response code",
		}, []string{"code"}),
		responseTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_seconds",
			Help:      "HTTP response time",
			Buckets:   prometheus.DefBuckets,
		}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by kind",
		}, []string{"kind"}),
		items: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Queue items by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		active: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items_active",
			Help:      "Items currently being processed",
		}, []string{"endpoint"}),
		pending: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items_pending",
			Help:      "Items waiting in the in-memory dispatch queue",
		}, []string{"endpoint"}),
		delivery: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_seconds",
			Help:      "Upstream delivery duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// ObserveRequest учитывает обработанный HTTP запрос.
func (m *Metrics) ObserveRequest(code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strconv.Itoa(code)).Inc()
	m.responseTime.Observe(d.Seconds())
}

// IncError увеличивает счётчик ошибок вида kind.
func (m *Metrics) IncError(kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(kind).Inc()
}

// IncItem учитывает исход обработки элемента.
func (m *Metrics) IncItem(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(endpoint, outcome).Inc()
}

// SetActive выставляет количество обрабатываемых элементов.
func (m *Metrics) SetActive(endpoint string, n int) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(endpoint).Set(float64(n))
}

// SetPending выставляет длину in-memory очереди.
func (m *Metrics) SetPending(endpoint string, n int) {
	if m == nil {
		return
	}
	m.pending.WithLabelValues(endpoint).Set(float64(n))
}

// ObserveDelivery учитывает длительность доставки в upstream.
func (m *Metrics) ObserveDelivery(endpoint string, d time.Duration) {
	if m == nil {
		return
	}
	m.delivery.WithLabelValues(endpoint).Observe(d.Seconds())
}
