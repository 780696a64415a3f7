package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pharmacy-inventory/internal/application/dto"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ledger"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/repository"
)

// AuditHandler consulta del log de auditoría (solo lectura).
type AuditHandler struct {
	q *ledger.AuditQuery
}

// NewAuditHandler construye el handler.
func NewAuditHandler(q *ledger.AuditQuery) *AuditHandler {
	return &AuditHandler{q: q}
}

type auditQueryParams struct {
	SubjectID     string `query:"subject_id"`
	CorrelationID string `query:"correlation_id"`
	From          string `query:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To            string `query:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Limit         int    `query:"limit" validate:"min=0,max=1000"`
}

// Query godoc
// @Summary      Consultar auditoría
// @Description  Filtra por sujeto, correlación y rango [from, to] (RFC 3339). Orden de inserción.
// @Tags         audit
// @Security     Bearer
// @Produce      json
// @Param        subject_id      query  string  false  "lote o reserva"
// @Param        correlation_id  query  string  false  "despacho, GRN, transferencia..."
// @Param        from            query  string  false  "desde (RFC 3339)"
// @Param        to              query  string  false  "hasta (RFC 3339)"
// @Param        limit           query  int     false  "máximo 1000"
// @Success      200  {array}   dto.AuditEntryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/audit [get]
func (h *AuditHandler) Query(c *fiber.Ctx) error {
	var p auditQueryParams
	if err := bindQuery(c, &p); err != nil {
		return respondError(c, err)
	}
	f := repository.AuditFilter{
		SubjectID:     p.SubjectID,
		CorrelationID: p.CorrelationID,
		From:          parseRFC3339(p.From),
		To:            parseRFC3339(p.To),
		Limit:         p.Limit,
	}
	list, err := h.q.Query(c.UserContext(), f)
	return auditResult(c, list, err)
}

// BatchTrail godoc
// @Summary      Historial de un lote
// @Tags         audit
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del lote"
// @Success      200  {array}   dto.AuditEntryResponse
// @Router       /api/batches/{id}/audit [get]
func (h *AuditHandler) BatchTrail(c *fiber.Ctx) error {
	list, err := h.q.QueryAuditTrail(c.UserContext(), c.Params("id"), nil, nil)
	return auditResult(c, list, err)
}

func auditResult(c *fiber.Ctx, list []*entity.AuditEntry, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.AuditEntryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, dto.NewAuditEntryResponse(e))
	}
	return c.JSON(out)
}

func parseRFC3339(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
