package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pharmacy-inventory/internal/application/allocation"
	"github.com/jhoicas/pharmacy-inventory/internal/application/dispensing"
	"github.com/jhoicas/pharmacy-inventory/internal/application/dto"
)

// ReservationHandler reservas FEFO y despacho.
type ReservationHandler struct {
	alloc    *allocation.AllocateUseCase
	dispense *dispensing.DispenseUseCase
}

// NewReservationHandler construye el handler.
func NewReservationHandler(alloc *allocation.AllocateUseCase, dispense *dispensing.DispenseUseCase) *ReservationHandler {
	return &ReservationHandler{alloc: alloc, dispense: dispense}
}

// Allocate godoc
// @Summary      Reservar stock por FEFO
// @Description  Retiene la cantidad en los lotes que vencen primero. Sin disponible suficiente no retiene nada (409).
// @Tags         dispensing
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.AllocateRequest  true  "medication_id, quantity, as_of (YYYY-MM-DD)"
// @Success      201   {object}  dto.ReservationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/reservations [post]
func (h *ReservationHandler) Allocate(c *fiber.Ctx) error {
	var in dto.AllocateRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	var asOf time.Time
	if in.AsOf != "" {
		asOf, _ = time.Parse(dto.DateLayout, in.AsOf)
	}
	res, err := h.alloc.Allocate(c.UserContext(), allocation.AllocateInput{
		MedicationID:       in.MedicationID,
		Quantity:           in.Quantity,
		AsOf:               asOf,
		PrescriptionLineID: in.PrescriptionLineID,
		LocationID:         in.LocationID,
		Actor:              GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewReservationResponse(res))
}

// GetReservation godoc
// @Summary      Obtener reserva
// @Tags         dispensing
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la reserva"
// @Success      200  {object}  dto.ReservationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reservations/{id} [get]
func (h *ReservationHandler) GetReservation(c *fiber.Ctx) error {
	res, err := h.alloc.GetReservation(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewReservationResponse(res))
}

// Release godoc
// @Summary      Liberar reserva
// @Tags         dispensing
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la reserva"
// @Success      200  {object}  dto.ReservationResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      410  {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/release [post]
func (h *ReservationHandler) Release(c *fiber.Ctx) error {
	res, err := h.alloc.Release(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewReservationResponse(res))
}

// Dispense godoc
// @Summary      Despachar una reserva
// @Description  Descuenta existencias de los lotes retenidos y congela el precio de venta. 409 si ya fue despachada o liberada, 410 si expiró.
// @Tags         dispensing
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la reserva"
// @Success      201  {object}  dto.DispenseResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      410  {object}  dto.ErrorResponse
// @Router       /api/reservations/{id}/dispense [post]
func (h *ReservationHandler) Dispense(c *fiber.Ctx) error {
	rec, err := h.dispense.DispenseReservation(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewDispenseResponse(rec))
}

// GetDispense godoc
// @Summary      Obtener despacho
// @Tags         dispensing
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del despacho"
// @Success      200  {object}  dto.DispenseResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/dispenses/{id} [get]
func (h *ReservationHandler) GetDispense(c *fiber.Ctx) error {
	rec, err := h.dispense.GetDispense(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewDispenseResponse(rec))
}
