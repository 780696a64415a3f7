package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrConflict     = errors.New("conflicto con el estado actual")
	ErrInvalidState = errors.New("transición de estado no permitida")

	ErrInsufficientStock          = errors.New("stock insuficiente")
	ErrOverReceipt                = errors.New("cantidad recibida supera la cantidad ordenada")
	ErrOverReturn                 = errors.New("cantidad devuelta supera la cantidad dispensada")
	ErrDuplicateBatch             = errors.New("número de lote duplicado")
	ErrAlreadyApproved            = errors.New("el documento ya fue aprobado")
	ErrReservationNotHeld         = errors.New("la reserva no está retenida")
	ErrReservationExpired         = errors.New("la reserva expiró")
	ErrConcurrencyConflict        = errors.New("conflicto de concurrencia, reintente la operación")
	ErrTransferAtomicityViolation = errors.New("violación de atomicidad en transferencia")
	ErrMedicationInUse            = errors.New("el medicamento ya está referenciado por lotes")
)

// Violation describe qué invariante se violó y sobre qué entidad.
// Requested y Available solo aplican a errores de cantidad.
type Violation struct {
	Err       error
	Entity    string
	EntityID  string
	Requested int64
	Available int64
	quantity  bool
}

// NewViolation construye una violación sin cantidades.
func NewViolation(err error, entityName, entityID string) *Violation {
	return &Violation{Err: err, Entity: entityName, EntityID: entityID}
}

// NewQuantityViolation construye una violación con cantidad solicitada y disponible.
func NewQuantityViolation(err error, entityName, entityID string, requested, available int64) *Violation {
	return &Violation{
		Err:       err,
		Entity:    entityName,
		EntityID:  entityID,
		Requested: requested,
		Available: available,
		quantity:  true,
	}
}

func (v *Violation) Error() string {
	msg := v.Err.Error()
	if v.EntityID != "" {
		msg = fmt.Sprintf("%s en %s %s", msg, v.Entity, v.EntityID)
	}
	if v.quantity {
		msg = fmt.Sprintf("%s: solicitado %d, disponible %d", msg, v.Requested, v.Available)
	}
	return msg
}

func (v *Violation) Unwrap() error { return v.Err }

// HasQuantities indica si la violación trae solicitado/disponible.
func (v *Violation) HasQuantities() bool { return v.quantity }
