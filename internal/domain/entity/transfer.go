package entity

import "time"

// Estados de la transferencia.
const (
	TransferRequested = "REQUESTED"
	TransferApproved  = "APPROVED"
	TransferCompleted = "COMPLETED"
	TransferRejected  = "REJECTED"
)

// StockTransfer movimiento de un lote entre ubicaciones.
type StockTransfer struct {
	ID                 string
	Number             string
	SourceLocationID   string
	DestLocationID     string
	MedicationID       string
	SourceBatchID      string
	DestBatchID        string // se asigna al completar
	Quantity           int64
	Reason             string
	Status             string
	RequestedBy        string
	ApprovedBy         string
	CompletedBy        string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CompletedAt        *time.Time
}

// Approve REQUESTED -> APPROVED.
func (t *StockTransfer) Approve(actor string, now time.Time) bool {
	if t.Status != TransferRequested {
		return false
	}
	t.Status = TransferApproved
	t.ApprovedBy = actor
	t.UpdatedAt = now
	return true
}

// Reject REQUESTED|APPROVED -> REJECTED.
func (t *StockTransfer) Reject(actor string, now time.Time) bool {
	if t.Status != TransferRequested && t.Status != TransferApproved {
		return false
	}
	t.Status = TransferRejected
	t.ApprovedBy = actor
	t.UpdatedAt = now
	return true
}

// Complete APPROVED -> COMPLETED.
func (t *StockTransfer) Complete(actor, destBatchID string, now time.Time) bool {
	if t.Status != TransferApproved {
		return false
	}
	t.Status = TransferCompleted
	t.CompletedBy = actor
	t.DestBatchID = destBatchID
	t.CompletedAt = &now
	t.UpdatedAt = now
	return true
}
