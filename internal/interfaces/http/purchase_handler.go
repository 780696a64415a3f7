package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pharmacy-inventory/internal/application/dto"
	"github.com/jhoicas/pharmacy-inventory/internal/application/purchase"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// PurchaseHandler órdenes de compra y notas de recepción.
type PurchaseHandler struct {
	uc              *purchase.PurchaseUseCase
	defaultLocation string
}

// NewPurchaseHandler construye el handler. defaultLocation se usa cuando ni el body ni
// el token indican ubicación de recepción.
func NewPurchaseHandler(uc *purchase.PurchaseUseCase, defaultLocation string) *PurchaseHandler {
	return &PurchaseHandler{uc: uc, defaultLocation: defaultLocation}
}

// CreateOrder godoc
// @Summary      Crear orden de compra (DRAFT)
// @Tags         purchasing
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreatePurchaseOrderRequest  true  "supplier_id y líneas"
// @Success      201   {object}  dto.PurchaseOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/purchase-orders [post]
func (h *PurchaseHandler) CreateOrder(c *fiber.Ctx) error {
	var in dto.CreatePurchaseOrderRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	lines := make([]purchase.OrderLineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, purchase.OrderLineInput{MedicationID: l.MedicationID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	po, err := h.uc.CreatePurchaseOrder(c.UserContext(), in.SupplierID, lines, GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewPurchaseOrderResponse(po))
}

// GetOrder godoc
// @Summary      Obtener orden de compra
// @Tags         purchasing
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id} [get]
func (h *PurchaseHandler) GetOrder(c *fiber.Ctx) error {
	po, err := h.uc.GetPurchaseOrder(c.UserContext(), c.Params("id"))
	return h.orderResult(c, po, err)
}

// SubmitOrder godoc
// @Summary      Enviar orden a aprobación
// @Tags         purchasing
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/submit [post]
func (h *PurchaseHandler) SubmitOrder(c *fiber.Ctx) error {
	po, err := h.uc.SubmitPurchaseOrder(c.UserContext(), c.Params("id"), GetUserID(c))
	return h.orderResult(c, po, err)
}

// ApproveOrder godoc
// @Summary      Aprobar orden de compra
// @Tags         purchasing
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/approve [post]
func (h *PurchaseHandler) ApproveOrder(c *fiber.Ctx) error {
	po, err := h.uc.ApprovePurchaseOrder(c.UserContext(), c.Params("id"), GetUserID(c))
	return h.orderResult(c, po, err)
}

// RejectOrder godoc
// @Summary      Rechazar orden de compra
// @Tags         purchasing
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/reject [post]
func (h *PurchaseHandler) RejectOrder(c *fiber.Ctx) error {
	po, err := h.uc.RejectPurchaseOrder(c.UserContext(), c.Params("id"), GetUserID(c))
	return h.orderResult(c, po, err)
}

func (h *PurchaseHandler) orderResult(c *fiber.Ctx, po *entity.PurchaseOrder, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewPurchaseOrderResponse(po))
}

// CreateGRN godoc
// @Summary      Registrar recepción de mercancía (GRN en DRAFT)
// @Description  No afecta el stock hasta la aprobación. La suma recibida por línea no puede superar lo ordenado.
// @Tags         purchasing
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateGRNRequest  true  "orden, ubicación y líneas recibidas"
// @Success      201   {object}  dto.GRNResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/grns [post]
func (h *PurchaseHandler) CreateGRN(c *fiber.Ctx) error {
	var in dto.CreateGRNRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	location := in.LocationID
	if location == "" {
		location = GetLocationID(c)
	}
	if location == "" {
		location = h.defaultLocation
	}
	lines := make([]purchase.GRNLineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		// El formato ya fue validado por la regla datetime.
		expiry, _ := time.Parse(dto.DateLayout, l.ExpiryDate)
		lines = append(lines, purchase.GRNLineInput{
			PurchaseOrderLineID: l.PurchaseOrderLineID,
			Quantity:            l.Quantity,
			ExpiryDate:          expiry,
			UnitPurchasePrice:   l.UnitPurchasePrice,
			UnitSellingPrice:    l.UnitSellingPrice,
			ManufacturerBatch:   l.ManufacturerBatch,
		})
	}
	g, err := h.uc.CreateGRN(c.UserContext(), purchase.CreateGRNInput{
		PurchaseOrderID: in.PurchaseOrderID,
		LocationID:      location,
		InvoiceNumber:   in.InvoiceNumber,
		Lines:           lines,
		Actor:           GetUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewGRNResponse(g))
}

// GetGRN godoc
// @Summary      Obtener GRN
// @Tags         purchasing
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del GRN"
// @Success      200  {object}  dto.GRNResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/grns/{id} [get]
func (h *PurchaseHandler) GetGRN(c *fiber.Ctx) error {
	g, err := h.uc.GetGRN(c.UserContext(), c.Params("id"))
	return h.grnResult(c, g, err)
}

// SubmitGRN godoc
// @Summary      Enviar GRN a aprobación
// @Tags         purchasing
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del GRN"
// @Success      200  {object}  dto.GRNResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/grns/{id}/submit [post]
func (h *PurchaseHandler) SubmitGRN(c *fiber.Ctx) error {
	g, err := h.uc.SubmitGRN(c.UserContext(), c.Params("id"), GetUserID(c))
	return h.grnResult(c, g, err)
}

// ApproveGRN godoc
// @Summary      Aprobar GRN
// @Description  Crea un lote por línea y registra la entrada en el ledger. Una segunda aprobación responde 409 ALREADY_APPROVED.
// @Tags         purchasing
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del GRN"
// @Success      200  {object}  dto.ApproveGRNResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/grns/{id}/approve [post]
func (h *PurchaseHandler) ApproveGRN(c *fiber.Ctx) error {
	id := c.Params("id")
	batchIDs, err := h.uc.ApproveGRN(c.UserContext(), id, GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ApproveGRNResponse{GRNID: id, BatchIDs: batchIDs})
}

// RejectGRN godoc
// @Summary      Rechazar GRN
// @Tags         purchasing
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del GRN"
// @Success      200  {object}  dto.GRNResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/grns/{id}/reject [post]
func (h *PurchaseHandler) RejectGRN(c *fiber.Ctx) error {
	g, err := h.uc.RejectGRN(c.UserContext(), c.Params("id"), GetUserID(c))
	return h.grnResult(c, g, err)
}

func (h *PurchaseHandler) grnResult(c *fiber.Ctx, g *entity.GoodsReceiptNote, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewGRNResponse(g))
}
