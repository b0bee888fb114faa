// Package metrics собирает метрики сервера для Prometheus
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "livedesk"

// Metrics набор коллекторов сервера в собственном реестре
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	publishedEvents *prometheus.CounterVec
	publishErrors   *prometheus.CounterVec
	droppedEvents   *prometheus.CounterVec
	subscribers     *prometheus.GaugeVec
}

// New создает и регистрирует коллекторы
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "The total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "The latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		publishedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "The total number of record events published to the broker",
		}, []string{"collection", "action"}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "The total number of failed event publications",
		}, []string{"collection"}),
		droppedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "The total number of events not delivered to slow subscribers",
		}, []string{"collection"}),
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_subscribers",
			Help:      "The current number of live collection subscriptions",
		}, []string{"collection"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.publishedEvents,
		m.publishErrors,
		m.droppedEvents,
		m.subscribers,
	)
	return m
}

// Handler отдает метрики в формате Prometheus (GET /metrics)
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry возвращает реестр коллекторов
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest учитывает обработанный HTTP запрос.
// route это шаблон маршрута, а не путь, чтобы не плодить метки.
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// EventPublished учитывает событие, отправленное в брокер
func (m *Metrics) EventPublished(collection, action string) {
	m.publishedEvents.WithLabelValues(collection, action).Inc()
}

// PublishFailed учитывает ошибку публикации события
func (m *Metrics) PublishFailed(collection string) {
	m.publishErrors.WithLabelValues(collection).Inc()
}

// EventDropped учитывает событие, которое не поместилось в очередь подписчика
func (m *Metrics) EventDropped(collection string) {
	m.droppedEvents.WithLabelValues(collection).Inc()
}

// SubscriberAdded увеличивает число живых подписок коллекции
func (m *Metrics) SubscriberAdded(collection string) {
	m.subscribers.WithLabelValues(collection).Inc()
}

// SubscriberRemoved уменьшает число живых подписок коллекции
func (m *Metrics) SubscriberRemoved(collection string) {
	m.subscribers.WithLabelValues(collection).Dec()
}
