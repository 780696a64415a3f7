package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pharmacy-inventory/internal/application/catalog"
	"github.com/jhoicas/pharmacy-inventory/internal/application/dto"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/inventory"
)

// MedicationHandler catálogo de medicamentos y consulta de lotes.
type MedicationHandler struct {
	uc  *catalog.MedicationUseCase
	now func() time.Time
}

// NewMedicationHandler construye el handler.
func NewMedicationHandler(uc *catalog.MedicationUseCase) *MedicationHandler {
	return &MedicationHandler{uc: uc, now: time.Now}
}

// Create godoc
// @Summary      Crear medicamento
// @Tags         medications
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.MedicationRequest  true  "name, strength, dosage_form, reorder_level"
// @Success      201   {object}  dto.MedicationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/medications [post]
func (h *MedicationHandler) Create(c *fiber.Ctx) error {
	var in dto.MedicationRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	m, err := h.uc.Create(c.UserContext(), medicationInput(in))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewMedicationResponse(m))
}

// List godoc
// @Summary      Listar medicamentos
// @Tags         medications
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "máximo 100"
// @Param        offset  query  int  false  "desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/medications [get]
func (h *MedicationHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := bindQuery(c, &page); err != nil {
		return respondError(c, err)
	}
	page.DefaultPage()
	list, err := h.uc.List(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	items := make([]dto.MedicationResponse, 0, len(list))
	for _, m := range list {
		items = append(items, dto.NewMedicationResponse(m))
	}
	return c.JSON(fiber.Map{
		"items": items,
		"page":  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// Get godoc
// @Summary      Obtener medicamento
// @Tags         medications
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del medicamento"
// @Success      200  {object}  dto.MedicationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/medications/{id} [get]
func (h *MedicationHandler) Get(c *fiber.Ctx) error {
	m, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewMedicationResponse(m))
}

// Update godoc
// @Summary      Actualizar medicamento
// @Description  Nombre, concentración y forma no cambian si el medicamento ya tiene lotes.
// @Tags         medications
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "ID del medicamento"
// @Param        body  body      dto.MedicationRequest  true  "datos"
// @Success      200   {object}  dto.MedicationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/medications/{id} [put]
func (h *MedicationHandler) Update(c *fiber.Ctx) error {
	var in dto.MedicationRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	m, err := h.uc.Update(c.UserContext(), c.Params("id"), medicationInput(in))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewMedicationResponse(m))
}

// ListBatches godoc
// @Summary      Lotes del medicamento
// @Description  Ordenados por vencimiento, con disponible y clasificación (EXPIRED, CRITICAL, WARNING, INFO, VALID).
// @Tags         medications
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del medicamento"
// @Success      200  {array}   dto.BatchResponse
// @Router       /api/medications/{id}/batches [get]
func (h *MedicationHandler) ListBatches(c *fiber.Ctx) error {
	batches, err := h.uc.ListBatches(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	now := h.now()
	out := make([]dto.BatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, batchResponse(b, now))
	}
	return c.JSON(out)
}

// Reprice godoc
// @Summary      Cambiar precio de venta del lote
// @Description  No altera despachos ya registrados.
// @Tags         batches
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string              true  "ID del lote"
// @Param        body  body      dto.RepriceRequest  true  "unit_selling_price"
// @Success      200   {object}  dto.BatchResponse
// @Router       /api/batches/{id}/price [put]
func (h *MedicationHandler) Reprice(c *fiber.Ctx) error {
	var in dto.RepriceRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	b, err := h.uc.RepriceBatch(c.UserContext(), c.Params("id"), in.UnitSellingPrice)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(batchResponse(b, h.now()))
}

func medicationInput(in dto.MedicationRequest) catalog.MedicationInput {
	return catalog.MedicationInput{
		Name:         in.Name,
		Strength:     in.Strength,
		DosageForm:   in.DosageForm,
		Description:  in.Description,
		ReorderLevel: in.ReorderLevel,
	}
}

func batchResponse(b *entity.StockBatch, now time.Time) dto.BatchResponse {
	return dto.BatchResponse{
		ID:                b.ID,
		MedicationID:      b.MedicationID,
		BatchNumber:       b.BatchNumber,
		LocationID:        b.LocationID,
		QuantityOnHand:    b.QuantityOnHand,
		QuantityReserved:  b.QuantityReserved,
		Available:         b.Available(),
		ExpiryDate:        b.ExpiryDate.Format(dto.DateLayout),
		ReceivedDate:      b.ReceivedDate.Format(dto.DateLayout),
		ExpiryStatus:      inventory.ClassifyExpiry(b.ExpiryDate, now),
		DaysToExpiry:      inventory.DaysToExpiry(b.ExpiryDate, now),
		UnitPurchasePrice: b.UnitPurchasePrice,
		UnitSellingPrice:  b.UnitSellingPrice,
		SourceType:        b.SourceType,
		SourceRef:         b.SourceRef,
	}
}
