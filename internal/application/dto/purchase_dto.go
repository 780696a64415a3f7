package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// CreatePurchaseOrderRequest body para POST /api/purchase-orders.
type CreatePurchaseOrderRequest struct {
	SupplierID string                  `json:"supplier_id" validate:"required"`
	Lines      []PurchaseOrderLineItem `json:"lines" validate:"required,min=1,dive"`
}

// PurchaseOrderLineItem ítem de la orden.
type PurchaseOrderLineItem struct {
	MedicationID string          `json:"medication_id" validate:"required"`
	Quantity     int64           `json:"quantity" validate:"gt=0"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// PurchaseOrderResponse orden con sus líneas.
type PurchaseOrderResponse struct {
	ID         string                      `json:"id"`
	Number     string                      `json:"number"`
	SupplierID string                      `json:"supplier_id"`
	Status     string                      `json:"status"`
	CreatedBy  string                      `json:"created_by"`
	ApprovedBy string                      `json:"approved_by,omitempty"`
	ApprovedAt *time.Time                  `json:"approved_at,omitempty"`
	Total      decimal.Decimal             `json:"total"`
	CreatedAt  time.Time                   `json:"created_at"`
	Lines      []PurchaseOrderLineResponse `json:"lines"`
}

// PurchaseOrderLineResponse línea con lo pendiente por recibir.
type PurchaseOrderLineResponse struct {
	ID               string          `json:"id"`
	LineNo           int             `json:"line_no"`
	MedicationID     string          `json:"medication_id"`
	OrderedQuantity  int64           `json:"ordered_quantity"`
	ReceivedQuantity int64           `json:"received_quantity"`
	Pending          int64           `json:"pending"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

// NewPurchaseOrderResponse mapea la entidad.
func NewPurchaseOrderResponse(po *entity.PurchaseOrder) PurchaseOrderResponse {
	out := PurchaseOrderResponse{
		ID:         po.ID,
		Number:     po.Number,
		SupplierID: po.SupplierID,
		Status:     po.Status,
		CreatedBy:  po.CreatedBy,
		ApprovedBy: po.ApprovedBy,
		ApprovedAt: po.ApprovedAt,
		Total:      po.Total(),
		CreatedAt:  po.CreatedAt,
		Lines:      make([]PurchaseOrderLineResponse, 0, len(po.Lines)),
	}
	for i := range po.Lines {
		l := &po.Lines[i]
		out.Lines = append(out.Lines, PurchaseOrderLineResponse{
			ID:               l.ID,
			LineNo:           l.LineNo,
			MedicationID:     l.MedicationID,
			OrderedQuantity:  l.OrderedQuantity,
			ReceivedQuantity: l.ReceivedQuantity,
			Pending:          l.Pending(),
			UnitPrice:        l.UnitPrice,
		})
	}
	return out
}

// CreateGRNRequest body para POST /api/grns.
type CreateGRNRequest struct {
	PurchaseOrderID string        `json:"purchase_order_id" validate:"required"`
	LocationID      string        `json:"location_id"`
	InvoiceNumber   string        `json:"invoice_number" validate:"max=100"`
	Lines           []GRNLineItem `json:"lines" validate:"required,min=1,dive"`
}

// GRNLineItem línea recibida. ExpiryDate en formato YYYY-MM-DD.
type GRNLineItem struct {
	PurchaseOrderLineID string           `json:"purchase_order_line_id" validate:"required"`
	Quantity            int64            `json:"quantity" validate:"gt=0"`
	ExpiryDate          string           `json:"expiry_date" validate:"required,datetime=2006-01-02"`
	UnitPurchasePrice   *decimal.Decimal `json:"unit_purchase_price,omitempty"`
	UnitSellingPrice    decimal.Decimal  `json:"unit_selling_price"`
	ManufacturerBatch   string           `json:"manufacturer_batch" validate:"max=100"`
}

// GRNResponse nota de recepción.
type GRNResponse struct {
	ID              string            `json:"id"`
	Number          string            `json:"number"`
	PurchaseOrderID string            `json:"purchase_order_id"`
	LocationID      string            `json:"location_id"`
	InvoiceNumber   string            `json:"invoice_number,omitempty"`
	Status          string            `json:"status"`
	CreatedBy       string            `json:"created_by"`
	ApprovedBy      string            `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty"`
	Lines           []GRNLineResponse `json:"lines"`
}

// GRNLineResponse línea recibida y el lote creado al aprobar.
type GRNLineResponse struct {
	ID                  string          `json:"id"`
	LineNo              int             `json:"line_no"`
	PurchaseOrderLineID string          `json:"purchase_order_line_id"`
	MedicationID        string          `json:"medication_id"`
	Quantity            int64           `json:"quantity"`
	ExpiryDate          string          `json:"expiry_date"`
	UnitPurchasePrice   decimal.Decimal `json:"unit_purchase_price"`
	UnitSellingPrice    decimal.Decimal `json:"unit_selling_price"`
	ManufacturerBatch   string          `json:"manufacturer_batch,omitempty"`
	BatchID             string          `json:"batch_id,omitempty"`
}

// NewGRNResponse mapea la entidad.
func NewGRNResponse(g *entity.GoodsReceiptNote) GRNResponse {
	out := GRNResponse{
		ID:              g.ID,
		Number:          g.Number,
		PurchaseOrderID: g.PurchaseOrderID,
		LocationID:      g.LocationID,
		InvoiceNumber:   g.InvoiceNumber,
		Status:          g.Status,
		CreatedBy:       g.CreatedBy,
		ApprovedBy:      g.ApprovedBy,
		ApprovedAt:      g.ApprovedAt,
		Lines:           make([]GRNLineResponse, 0, len(g.Lines)),
	}
	for _, l := range g.Lines {
		out.Lines = append(out.Lines, GRNLineResponse{
			ID:                  l.ID,
			LineNo:              l.LineNo,
			PurchaseOrderLineID: l.PurchaseOrderLineID,
			MedicationID:        l.MedicationID,
			Quantity:            l.Quantity,
			ExpiryDate:          l.ExpiryDate.Format(DateLayout),
			UnitPurchasePrice:   l.UnitPurchasePrice,
			UnitSellingPrice:    l.UnitSellingPrice,
			ManufacturerBatch:   l.ManufacturerBatch,
			BatchID:             l.BatchID,
		})
	}
	return out
}

// ApproveGRNResponse lotes creados al aprobar.
type ApproveGRNResponse struct {
	GRNID    string   `json:"grn_id"`
	BatchIDs []string `json:"batch_ids"`
}
