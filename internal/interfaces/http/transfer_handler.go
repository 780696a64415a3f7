package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pharmacy-inventory/internal/application/dto"
	"github.com/jhoicas/pharmacy-inventory/internal/application/transfer"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// TransferHandler transferencias entre ubicaciones y devoluciones.
type TransferHandler struct {
	uc *transfer.TransferUseCase
}

// NewTransferHandler construye el handler.
func NewTransferHandler(uc *transfer.TransferUseCase) *TransferHandler {
	return &TransferHandler{uc: uc}
}

// Request godoc
// @Summary      Solicitar transferencia
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.TransferRequest  true  "origen, destino, lote y cantidad"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) Request(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	t, err := h.uc.RequestTransfer(c.UserContext(), transfer.TransferInput{
		SourceLocationID: in.SourceLocationID,
		DestLocationID:   in.DestLocationID,
		BatchID:          in.BatchID,
		Quantity:         in.Quantity,
		Reason:           in.Reason,
		Actor:            GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTransferResponse(t))
}

// Get godoc
// @Summary      Obtener transferencia
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id} [get]
func (h *TransferHandler) Get(c *fiber.Ctx) error {
	t, err := h.uc.GetTransfer(c.UserContext(), c.Params("id"))
	return transferResult(c, t, err)
}

// Approve godoc
// @Summary      Aprobar transferencia
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/approve [post]
func (h *TransferHandler) Approve(c *fiber.Ctx) error {
	t, err := h.uc.ApproveTransfer(c.UserContext(), c.Params("id"), GetUserID(c))
	return transferResult(c, t, err)
}

// Reject godoc
// @Summary      Rechazar transferencia
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/reject [post]
func (h *TransferHandler) Reject(c *fiber.Ctx) error {
	t, err := h.uc.RejectTransfer(c.UserContext(), c.Params("id"), GetUserID(c))
	return transferResult(c, t, err)
}

// Complete godoc
// @Summary      Completar transferencia
// @Description  Mueve las unidades en una sola transacción: sale del lote de origen y entra a un lote con el mismo número en el destino.
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/complete [post]
func (h *TransferHandler) Complete(c *fiber.Ctx) error {
	t, err := h.uc.CompleteTransfer(c.UserContext(), c.Params("id"), GetUserID(c))
	return transferResult(c, t, err)
}

func transferResult(c *fiber.Ctx, t *entity.StockTransfer, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewTransferResponse(t))
}

// CreateReturn godoc
// @Summary      Registrar devolución
// @Description  PATIENT: vuelve al stock si está UNOPENED, no puede superar lo despachado. SUPPLIER: descuenta existencias y registra crédito.
// @Tags         returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.ReturnRequest  true  "kind, batch_id, quantity, related_dispense_id"
// @Success      201   {object}  dto.ReturnResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/returns [post]
func (h *TransferHandler) CreateReturn(c *fiber.Ctx) error {
	var in dto.ReturnRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	res, err := h.uc.ReturnStock(c.UserContext(), transfer.ReturnInput{
		Kind:              in.Kind,
		BatchID:           in.BatchID,
		Quantity:          in.Quantity,
		RelatedDispenseID: in.RelatedDispenseID,
		Condition:         in.Condition,
		Reason:            in.Reason,
		Actor:             GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	adjusted := res.AdjustedQuantity
	return c.Status(fiber.StatusCreated).JSON(dto.NewReturnResponse(res.Record, &adjusted))
}

// GetReturn godoc
// @Summary      Obtener devolución
// @Tags         returns
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la devolución"
// @Success      200  {object}  dto.ReturnResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/returns/{id} [get]
func (h *TransferHandler) GetReturn(c *fiber.Ctx) error {
	rec, err := h.uc.GetReturn(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewReturnResponse(rec, nil))
}
