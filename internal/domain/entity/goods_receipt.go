package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del GRN (nota de recepción).
const (
	GRNStatusDraft           = "DRAFT"
	GRNStatusPendingApproval = "PENDING_APPROVAL"
	GRNStatusApproved        = "APPROVED"
	GRNStatusRejected        = "REJECTED"
)

// GoodsReceiptNote recepción física de ítems de una orden de compra.
// Solo la aprobación crea lotes; antes de aprobarse no afecta el stock.
type GoodsReceiptNote struct {
	ID              string
	Number          string // GRN-YYYYMMDD-NNNN
	PurchaseOrderID string
	LocationID      string
	InvoiceNumber   string // factura del proveedor
	Status          string
	CreatedBy       string
	ApprovedBy      string
	ApprovedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Lines           []GoodsReceiptLine
}

// GoodsReceiptLine línea recibida contra una línea de la orden.
type GoodsReceiptLine struct {
	ID                  string
	GRNID               string
	LineNo              int
	PurchaseOrderLineID string
	MedicationID        string
	Quantity            int64
	ExpiryDate          time.Time
	UnitPurchasePrice   decimal.Decimal
	UnitSellingPrice    decimal.Decimal
	ManufacturerBatch   string
	BatchID             string // lote creado al aprobar
}

// QuantityForPOLine suma lo recibido en este GRN para una línea de la orden.
func (g *GoodsReceiptNote) QuantityForPOLine(poLineID string) int64 {
	var n int64
	for _, l := range g.Lines {
		if l.PurchaseOrderLineID == poLineID {
			n += l.Quantity
		}
	}
	return n
}

// Submit DRAFT -> PENDING_APPROVAL.
func (g *GoodsReceiptNote) Submit(now time.Time) bool {
	if g.Status != GRNStatusDraft {
		return false
	}
	g.Status = GRNStatusPendingApproval
	g.UpdatedAt = now
	return true
}

// Approve PENDING_APPROVAL -> APPROVED.
func (g *GoodsReceiptNote) Approve(approverID string, now time.Time) bool {
	if g.Status != GRNStatusPendingApproval {
		return false
	}
	g.Status = GRNStatusApproved
	g.ApprovedBy = approverID
	g.ApprovedAt = &now
	g.UpdatedAt = now
	return true
}

// Reject DRAFT|PENDING_APPROVAL -> REJECTED. Un borrador rechazado deja de contar contra
// la cantidad ordenada.
func (g *GoodsReceiptNote) Reject(approverID string, now time.Time) bool {
	if g.Status != GRNStatusDraft && g.Status != GRNStatusPendingApproval {
		return false
	}
	g.Status = GRNStatusRejected
	g.ApprovedBy = approverID
	g.UpdatedAt = now
	return true
}
