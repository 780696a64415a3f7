package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DispenseRecord resultado inmutable de confirmar una reserva.
type DispenseRecord struct {
	ID                 string
	Number             string
	ReservationID      string
	MedicationID       string
	PrescriptionLineID string
	DispensedBy        string
	DispensedAt        time.Time
	Total              decimal.Decimal
	Lines              []DispenseLine
}

// DispenseLine precio de venta congelado al momento del despacho.
type DispenseLine struct {
	DispenseID        string
	Ordinal           int
	BatchID           string
	Quantity          int64
	UnitPrice         decimal.Decimal
	LineTotal         decimal.Decimal
	ExpiredAtDispense bool
}

// QuantityFromBatch unidades despachadas desde un lote.
func (d *DispenseRecord) QuantityFromBatch(batchID string) int64 {
	var n int64
	for _, l := range d.Lines {
		if l.BatchID == batchID {
			n += l.Quantity
		}
	}
	return n
}

// UnitPriceForBatch precio congelado del lote en este despacho.
func (d *DispenseRecord) UnitPriceForBatch(batchID string) decimal.Decimal {
	for _, l := range d.Lines {
		if l.BatchID == batchID {
			return l.UnitPrice
		}
	}
	return decimal.Zero
}
