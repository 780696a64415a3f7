// Package metrics expone métricas Prometheus del inventario en su propio registro.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
)

var _ ports.Metrics = (*Metrics)(nil)

// Metrics contadores de movimientos de stock, asignaciones fallidas, vencimientos y reintentos.
type Metrics struct {
	registry *prometheus.Registry

	StockUnits          *prometheus.CounterVec
	AllocationFailures  *prometheus.CounterVec
	ExpiredReservations prometheus.Counter
	ConcurrencyRetries  *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
}

// New registra las métricas bajo el namespace dado (ej. "pharmacy").
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		StockUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "stock_units_total",
			Help:      "Unidades movidas en el ledger por operación",
		}, []string{"operation"}),
		AllocationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "allocation",
			Name:      "failures_total",
			Help:      "Asignaciones rechazadas por motivo",
		}, []string{"reason"}),
		ExpiredReservations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "allocation",
			Name:      "reservations_expired_total",
			Help:      "Reservas liberadas por el barrido de vencidas",
		}),
		ConcurrencyRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "concurrency_retries_total",
			Help:      "Reintentos por conflicto de concurrencia, por número de intento",
		}, []string{"attempt"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Eventos de dominio publicados por tipo y resultado",
		}, []string{"type", "status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Peticiones HTTP por método, ruta y código",
		}, []string{"method", "route", "status"}),
	}
	registry.MustRegister(
		m.StockUnits,
		m.AllocationFailures,
		m.ExpiredReservations,
		m.ConcurrencyRetries,
		m.EventsPublished,
		m.HTTPRequests,
	)
	return m
}

func (m *Metrics) StockMoved(operation string, units int64) {
	m.StockUnits.WithLabelValues(operation).Add(float64(units))
}

func (m *Metrics) AllocationFailed(reason string) {
	m.AllocationFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) ReservationsExpired(n int) {
	m.ExpiredReservations.Add(float64(n))
}

func (m *Metrics) ConcurrencyRetry(attempt int) {
	m.ConcurrencyRetries.WithLabelValues(strconv.Itoa(attempt)).Inc()
}

// EventPublished registra el resultado de publicar un evento.
func (m *Metrics) EventPublished(eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, status).Inc()
}

// RecordHTTP registra una petición atendida.
func (m *Metrics) RecordHTTP(method, route string, status int) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler handler HTTP de exposición para /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry registro subyacente (tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
