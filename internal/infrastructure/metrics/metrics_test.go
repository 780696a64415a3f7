package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/pharmacy-inventory/internal/infrastructure/metrics"
)

func TestMetrics_Contadores(t *testing.T) {
	m := metrics.New("pharmacy_test")

	m.StockMoved("DISPENSE", 30)
	m.StockMoved("DISPENSE", 5)
	m.AllocationFailed("insufficient_stock")
	m.ReservationsExpired(3)
	m.ConcurrencyRetry(1)

	assert.Equal(t, float64(35), testutil.ToFloat64(m.StockUnits.WithLabelValues("DISPENSE")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AllocationFailures.WithLabelValues("insufficient_stock")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.ExpiredReservations))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ConcurrencyRetries.WithLabelValues("1")))
}
