package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// AllocateRequest body para POST /api/reservations.
type AllocateRequest struct {
	MedicationID       string `json:"medication_id" validate:"required"`
	Quantity           int64  `json:"quantity" validate:"gt=0"`
	AsOf               string `json:"as_of,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PrescriptionLineID string `json:"prescription_line_id"`
	LocationID         string `json:"location_id"`
}

// ReservationResponse reserva con sus líneas de asignación.
type ReservationResponse struct {
	ID                 string                   `json:"id"`
	Number             string                   `json:"number"`
	MedicationID       string                   `json:"medication_id"`
	PrescriptionLineID string                   `json:"prescription_line_id,omitempty"`
	LocationID         string                   `json:"location_id,omitempty"`
	Quantity           int64                    `json:"quantity"`
	Status             string                   `json:"status"`
	ExpiresAt          time.Time                `json:"expires_at"`
	Lines              []AllocationLineResponse `json:"lines"`
}

// AllocationLineResponse cantidad retenida en un lote.
type AllocationLineResponse struct {
	BatchID  string `json:"batch_id"`
	Quantity int64  `json:"quantity"`
}

// NewReservationResponse mapea la entidad.
func NewReservationResponse(r *entity.Reservation) ReservationResponse {
	out := ReservationResponse{
		ID:                 r.ID,
		Number:             r.Number,
		MedicationID:       r.MedicationID,
		PrescriptionLineID: r.PrescriptionLineID,
		LocationID:         r.LocationID,
		Quantity:           r.Quantity,
		Status:             r.Status,
		ExpiresAt:          r.ExpiresAt,
		Lines:              make([]AllocationLineResponse, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		out.Lines = append(out.Lines, AllocationLineResponse{BatchID: l.BatchID, Quantity: l.Quantity})
	}
	return out
}

// DispenseResponse registro de despacho con precios congelados.
type DispenseResponse struct {
	ID                 string                 `json:"id"`
	Number             string                 `json:"number"`
	ReservationID      string                 `json:"reservation_id"`
	MedicationID       string                 `json:"medication_id"`
	PrescriptionLineID string                 `json:"prescription_line_id,omitempty"`
	DispensedBy        string                 `json:"dispensed_by"`
	DispensedAt        time.Time              `json:"dispensed_at"`
	Total              decimal.Decimal        `json:"total"`
	Lines              []DispenseLineResponse `json:"lines"`
}

// DispenseLineResponse unidades despachadas de un lote.
type DispenseLineResponse struct {
	BatchID           string          `json:"batch_id"`
	Quantity          int64           `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	LineTotal         decimal.Decimal `json:"line_total"`
	ExpiredAtDispense bool            `json:"expired_at_dispense,omitempty"`
}

// NewDispenseResponse mapea la entidad.
func NewDispenseResponse(d *entity.DispenseRecord) DispenseResponse {
	out := DispenseResponse{
		ID:                 d.ID,
		Number:             d.Number,
		ReservationID:      d.ReservationID,
		MedicationID:       d.MedicationID,
		PrescriptionLineID: d.PrescriptionLineID,
		DispensedBy:        d.DispensedBy,
		DispensedAt:        d.DispensedAt,
		Total:              d.Total,
		Lines:              make([]DispenseLineResponse, 0, len(d.Lines)),
	}
	for _, l := range d.Lines {
		out.Lines = append(out.Lines, DispenseLineResponse{
			BatchID:           l.BatchID,
			Quantity:          l.Quantity,
			UnitPrice:         l.UnitPrice,
			LineTotal:         l.LineTotal,
			ExpiredAtDispense: l.ExpiredAtDispense,
		})
	}
	return out
}

// TransferRequest body para POST /api/transfers.
type TransferRequest struct {
	SourceLocationID string `json:"source_location_id" validate:"required"`
	DestLocationID   string `json:"dest_location_id" validate:"required,nefield=SourceLocationID"`
	BatchID          string `json:"batch_id" validate:"required"`
	Quantity         int64  `json:"quantity" validate:"gt=0"`
	Reason           string `json:"reason" validate:"max=500"`
}

// TransferResponse transferencia entre ubicaciones.
type TransferResponse struct {
	ID               string     `json:"id"`
	Number           string     `json:"number"`
	SourceLocationID string     `json:"source_location_id"`
	DestLocationID   string     `json:"dest_location_id"`
	MedicationID     string     `json:"medication_id"`
	SourceBatchID    string     `json:"source_batch_id"`
	DestBatchID      string     `json:"dest_batch_id,omitempty"`
	Quantity         int64      `json:"quantity"`
	Reason           string     `json:"reason,omitempty"`
	Status           string     `json:"status"`
	RequestedBy      string     `json:"requested_by"`
	ApprovedBy       string     `json:"approved_by,omitempty"`
	CompletedBy      string     `json:"completed_by,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// NewTransferResponse mapea la entidad.
func NewTransferResponse(t *entity.StockTransfer) TransferResponse {
	return TransferResponse{
		ID:               t.ID,
		Number:           t.Number,
		SourceLocationID: t.SourceLocationID,
		DestLocationID:   t.DestLocationID,
		MedicationID:     t.MedicationID,
		SourceBatchID:    t.SourceBatchID,
		DestBatchID:      t.DestBatchID,
		Quantity:         t.Quantity,
		Reason:           t.Reason,
		Status:           t.Status,
		RequestedBy:      t.RequestedBy,
		ApprovedBy:       t.ApprovedBy,
		CompletedBy:      t.CompletedBy,
		CompletedAt:      t.CompletedAt,
	}
}

// ReturnRequest body para POST /api/returns.
type ReturnRequest struct {
	Kind              string `json:"kind" validate:"required,oneof=PATIENT SUPPLIER"`
	BatchID           string `json:"batch_id" validate:"required"`
	Quantity          int64  `json:"quantity" validate:"gt=0"`
	RelatedDispenseID string `json:"related_dispense_id" validate:"required_if=Kind PATIENT"`
	Condition         string `json:"condition,omitempty" validate:"omitempty,oneof=UNOPENED OPENED DAMAGED"`
	Reason            string `json:"reason,omitempty"`
}

// ReturnResponse devolución aplicada y existencias resultantes del lote.
type ReturnResponse struct {
	ID                string          `json:"id"`
	Number            string          `json:"number"`
	Kind              string          `json:"kind"`
	BatchID           string          `json:"batch_id"`
	MedicationID      string          `json:"medication_id"`
	Quantity          int64           `json:"quantity"`
	RelatedDispenseID string          `json:"related_dispense_id,omitempty"`
	Condition         string          `json:"condition,omitempty"`
	Reason            string          `json:"reason,omitempty"`
	Restocked         bool            `json:"restocked"`
	RefundAmount      decimal.Decimal `json:"refund_amount"`
	CreditAmount      decimal.Decimal `json:"credit_amount"`
	AdjustedQuantity  *int64          `json:"adjusted_quantity,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// NewReturnResponse mapea la entidad. adjusted solo viene al crear la devolución.
func NewReturnResponse(r *entity.ReturnRecord, adjusted *int64) ReturnResponse {
	return ReturnResponse{
		ID:                r.ID,
		Number:            r.Number,
		Kind:              r.Kind,
		BatchID:           r.BatchID,
		MedicationID:      r.MedicationID,
		Quantity:          r.Quantity,
		RelatedDispenseID: r.RelatedDispenseID,
		Condition:         r.Condition,
		Reason:            r.Reason,
		Restocked:         r.Restocked,
		RefundAmount:      r.RefundAmount,
		CreditAmount:      r.CreditAmount,
		AdjustedQuantity:  adjusted,
		CreatedAt:         r.CreatedAt,
	}
}

// AuditEntryResponse entrada del log de auditoría.
type AuditEntryResponse struct {
	Seq            int64     `json:"seq"`
	ID             string    `json:"id"`
	SubjectEntity  string    `json:"subject_entity"`
	SubjectID      string    `json:"subject_id"`
	BatchID        string    `json:"batch_id,omitempty"`
	Operation      string    `json:"operation"`
	QuantityBefore int64     `json:"quantity_before"`
	QuantityAfter  int64     `json:"quantity_after"`
	Delta          int64     `json:"delta"`
	Actor          string    `json:"actor"`
	At             time.Time `json:"at"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
	Reason         string    `json:"reason,omitempty"`
}

// NewAuditEntryResponse mapea la entidad.
func NewAuditEntryResponse(e *entity.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		Seq:            e.Seq,
		ID:             e.ID,
		SubjectEntity:  e.SubjectEntity,
		SubjectID:      e.SubjectID,
		BatchID:        e.BatchID,
		Operation:      e.Operation,
		QuantityBefore: e.QuantityBefore,
		QuantityAfter:  e.QuantityAfter,
		Delta:          e.Delta(),
		Actor:          e.Actor,
		At:             e.At,
		CorrelationID:  e.CorrelationID,
		Reason:         e.Reason,
	}
}
