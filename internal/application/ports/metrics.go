package ports

// Metrics contadores de negocio; se registran solo después de un commit exitoso.
type Metrics interface {
	StockMoved(operation string, units int64)
	AllocationFailed(reason string)
	ReservationsExpired(n int)
	ConcurrencyRetry(attempt int)
}

// NopMetrics descarta las métricas.
type NopMetrics struct{}

func (NopMetrics) StockMoved(string, int64) {}
func (NopMetrics) AllocationFailed(string) {}
func (NopMetrics) ReservationsExpired(int) {}
func (NopMetrics) ConcurrencyRetry(int) {}
