package entity

import "time"

// Entidades sujeto de auditoría.
const (
	SubjectBatch       = "BATCH"
	SubjectReservation = "RESERVATION"
)

// Operaciones auditadas.
const (
	OpReceipt        = "RECEIPT"
	OpReserve        = "RESERVE"
	OpRelease        = "RELEASE"
	OpExpire         = "EXPIRE"
	OpDispense       = "DISPENSE"
	OpTransferOut    = "TRANSFER_OUT"
	OpTransferIn     = "TRANSFER_IN"
	OpPatientReturn  = "PATIENT_RETURN"
	OpSupplierReturn = "SUPPLIER_RETURN"
	OpAdjustment     = "ADJUSTMENT"
)

// AuditEntry registro inmutable de un cambio de cantidad.
// Para BATCH, before/after son existencias; para RESERVATION son cantidades reservadas del lote.
type AuditEntry struct {
	Seq            int64 // orden de inserción
	ID             string
	SubjectEntity  string
	SubjectID      string
	BatchID        string
	Operation      string
	QuantityBefore int64
	QuantityAfter  int64
	Actor          string
	At             time.Time
	CorrelationID  string
	Reason         string
}

// Delta diferencia after - before.
func (a *AuditEntry) Delta() int64 { return a.QuantityAfter - a.QuantityBefore }
