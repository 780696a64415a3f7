package entity

import "time"

// Estados de la reserva.
const (
	ReservationHeld      = "HELD"
	ReservationCommitted = "COMMITTED"
	ReservationReleased  = "RELEASED"
	ReservationExpired   = "EXPIRED"
)

// Reservation retiene cantidad de un medicamento para una línea de prescripción.
type Reservation struct {
	ID                 string
	Number             string
	MedicationID       string
	PrescriptionLineID string // PrescribedMedicineLine del módulo de consultas
	LocationID         string // vacío = cualquier ubicación
	Quantity           int64
	Status             string
	ExpiresAt          time.Time
	CreatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Lines              []AllocationLine
}

// AllocationLine (lote, cantidad) en orden FEFO.
type AllocationLine struct {
	ReservationID string
	Ordinal       int
	BatchID       string
	Quantity      int64
}

// IsHeld indica si la reserva sigue retenida.
func (r *Reservation) IsHeld() bool { return r.Status == ReservationHeld }

// PastTimeout indica si el plazo de retención venció.
func (r *Reservation) PastTimeout(now time.Time) bool {
	return r.IsHeld() && !now.Before(r.ExpiresAt)
}

// Finish mueve HELD a un estado final.
func (r *Reservation) Finish(status string, now time.Time) bool {
	if !r.IsHeld() {
		return false
	}
	r.Status = status
	r.UpdatedAt = now
	return true
}
