package entity

import "time"

// Tipos de evento de dominio.
const (
	EventStockLow             = "stock.low"
	EventDispenseCommitted    = "dispense.committed"
	EventGRNApproved          = "grn.approved"
	EventExpiredBatchDispense = "batch.expired_dispensed"
	EventSupplierCredit       = "supplier.credit_recorded"
)

// DomainEvent evento publicado después del commit.
type DomainEvent struct {
	ID            string
	Type          string
	Subject       string // id de la entidad principal
	CorrelationID string
	OccurredAt    time.Time
	Data          map[string]any
}
