package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/jhoicas/pharmacy-inventory/internal/application/dto"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// Orden importa: se usa el primer error que coincida con errors.Is.
var errorMappings = []errorMapping{
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrOverReceipt, fiber.StatusConflict, "OVER_RECEIPT"},
	{domain.ErrOverReturn, fiber.StatusConflict, "OVER_RETURN"},
	{domain.ErrDuplicateBatch, fiber.StatusConflict, "DUPLICATE_BATCH"},
	{domain.ErrAlreadyApproved, fiber.StatusConflict, "ALREADY_APPROVED"},
	{domain.ErrReservationNotHeld, fiber.StatusConflict, "RESERVATION_NOT_HELD"},
	{domain.ErrReservationExpired, fiber.StatusGone, "RESERVATION_EXPIRED"},
	{domain.ErrInvalidState, fiber.StatusConflict, "INVALID_STATE"},
	{domain.ErrMedicationInUse, fiber.StatusConflict, "MEDICATION_IN_USE"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrConcurrencyConflict, fiber.StatusServiceUnavailable, "CONCURRENCY_CONFLICT"},
	{domain.ErrTransferAtomicityViolation, fiber.StatusInternalServerError, "TRANSFER_ATOMICITY_VIOLATION"},
}

// respondError traduce errores de dominio a respuestas HTTP.
func respondError(c *fiber.Ctx, err error) error {
	var verr *validationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    verr.code,
			Message: verr.msg,
			Fields:  verr.fields,
		})
	}
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return c.Status(ferr.Code).JSON(dto.ErrorResponse{Code: "HTTP_" + strconv.Itoa(ferr.Code), Message: ferr.Message})
	}

	status, code := fiber.StatusInternalServerError, "INTERNAL"
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			status, code = m.status, m.code
			break
		}
	}
	body := dto.ErrorResponse{Code: code, Message: err.Error()}
	var v *domain.Violation
	if errors.As(err, &v) {
		body.Entity = v.Entity
		body.EntityID = v.EntityID
		if v.HasQuantities() {
			req, avail := v.Requested, v.Available
			body.Requested = &req
			body.Available = &avail
		}
	}
	if status == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	return c.Status(status).JSON(body)
}

// ErrorHandler manejador global de Fiber: errores devueltos por handlers y panics
// recuperados por el middleware recover.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if errors.Is(err, domain.ErrTransferAtomicityViolation) {
			log.Error().Err(err).Str("path", c.Path()).Msg("invariante de transferencia violada; transacción revertida")
		} else {
			var ferr *fiber.Error
			if !errors.As(err, &ferr) && !isDomainError(err) {
				log.Error().Err(err).Str("path", c.Path()).Msg("error no controlado")
			}
		}
		return respondError(c, err)
	}
}

func isDomainError(err error) bool {
	var verr *validationError
	if errors.As(err, &verr) {
		return true
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return true
		}
	}
	return false
}
