package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Origen de un lote.
const (
	BatchSourceGRN        = "GRN"
	BatchSourceTransferIn = "TRANSFER_IN"
)

// StockBatch lote recibido de un medicamento en una ubicación, con su vencimiento y precios.
// Invariante: QuantityOnHand >= 0 y 0 <= QuantityReserved <= QuantityOnHand.
type StockBatch struct {
	ID                string
	MedicationID      string
	BatchNumber       string // único por ubicación
	LocationID        string
	QuantityOnHand    int64
	QuantityReserved  int64
	ExpiryDate        time.Time
	ReceivedDate      time.Time
	UnitPurchasePrice decimal.Decimal
	UnitSellingPrice  decimal.Decimal
	SourceType        string // GRN | TRANSFER_IN
	SourceRef         string // id del GRN o de la transferencia
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Available cantidad disponible para nuevas reservas.
func (b *StockBatch) Available() int64 {
	return b.QuantityOnHand - b.QuantityReserved
}

// IsExpired indica si el lote venció respecto a la fecha dada (comparación por día).
func (b *StockBatch) IsExpired(asOf time.Time) bool {
	return b.ExpiryDate.Before(Day(asOf))
}

// Valid verifica las invariantes de cantidades.
func (b *StockBatch) Valid() bool {
	return b.QuantityOnHand >= 0 && b.QuantityReserved >= 0 && b.QuantityReserved <= b.QuantityOnHand
}

// Day trunca a medianoche UTC; fechas de vencimiento y recepción se comparan por día.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
