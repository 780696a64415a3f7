package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la orden de compra.
const (
	POStatusDraft           = "DRAFT"
	POStatusPendingApproval = "PENDING_APPROVAL"
	POStatusApproved        = "APPROVED"
	POStatusRejected        = "REJECTED"
	POStatusClosed          = "CLOSED"
)

// PurchaseOrder orden de compra a un proveedor.
type PurchaseOrder struct {
	ID          string
	Number      string // PO-YYYYMMDD-NNNN
	SupplierID  string
	Status      string
	Notes       string
	CreatedBy   string
	ApprovedBy  string
	ApprovedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Lines       []PurchaseOrderLine
}

// PurchaseOrderLine ítem ordenado.
type PurchaseOrderLine struct {
	ID               string
	PurchaseOrderID  string
	LineNo           int
	MedicationID     string
	OrderedQuantity  int64
	ReceivedQuantity int64 // solo GRN aprobados
	UnitPrice        decimal.Decimal
}

// Pending cantidad aún no recibida.
func (l *PurchaseOrderLine) Pending() int64 {
	return l.OrderedQuantity - l.ReceivedQuantity
}

// Line busca una línea por id.
func (po *PurchaseOrder) Line(id string) *PurchaseOrderLine {
	for i := range po.Lines {
		if po.Lines[i].ID == id {
			return &po.Lines[i]
		}
	}
	return nil
}

// Total valor de la orden (cantidad × precio acordado).
func (po *PurchaseOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range po.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.OrderedQuantity)))
	}
	return total
}

// FullyReceived indica si todas las líneas se recibieron completas.
func (po *PurchaseOrder) FullyReceived() bool {
	for _, l := range po.Lines {
		if l.ReceivedQuantity < l.OrderedQuantity {
			return false
		}
	}
	return len(po.Lines) > 0
}

// Submit DRAFT -> PENDING_APPROVAL.
func (po *PurchaseOrder) Submit(now time.Time) bool {
	if po.Status != POStatusDraft {
		return false
	}
	po.Status = POStatusPendingApproval
	po.UpdatedAt = now
	return true
}

// Approve PENDING_APPROVAL -> APPROVED.
func (po *PurchaseOrder) Approve(approverID string, now time.Time) bool {
	if po.Status != POStatusPendingApproval {
		return false
	}
	po.Status = POStatusApproved
	po.ApprovedBy = approverID
	po.ApprovedAt = &now
	po.UpdatedAt = now
	return true
}

// Reject PENDING_APPROVAL -> REJECTED.
func (po *PurchaseOrder) Reject(approverID string, now time.Time) bool {
	if po.Status != POStatusPendingApproval {
		return false
	}
	po.Status = POStatusRejected
	po.ApprovedBy = approverID
	po.UpdatedAt = now
	return true
}

// IsApproved incluye CLOSED: una orden cerrada ya pasó por aprobación.
func (po *PurchaseOrder) IsApproved() bool {
	return po.Status == POStatusApproved || po.Status == POStatusClosed
}
