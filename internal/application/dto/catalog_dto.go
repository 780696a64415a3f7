package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// MedicationRequest body para POST/PUT /api/medications.
type MedicationRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Strength     string `json:"strength" validate:"max=50"`
	DosageForm   string `json:"dosage_form" validate:"max=50"`
	Description  string `json:"description" validate:"max=1000"`
	ReorderLevel *int64 `json:"reorder_level,omitempty" validate:"omitempty,min=0"`
}

// MedicationResponse medicamento del catálogo.
type MedicationResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Strength     string    `json:"strength"`
	DosageForm   string    `json:"dosage_form"`
	Description  string    `json:"description,omitempty"`
	ReorderLevel int64     `json:"reorder_level"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewMedicationResponse mapea la entidad.
func NewMedicationResponse(m *entity.Medication) MedicationResponse {
	return MedicationResponse{
		ID:           m.ID,
		Name:         m.Name,
		Strength:     m.Strength,
		DosageForm:   m.DosageForm,
		Description:  m.Description,
		ReorderLevel: m.ReorderLevel,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// BatchResponse lote con su disponible y clasificación de vencimiento.
type BatchResponse struct {
	ID                string          `json:"id"`
	MedicationID      string          `json:"medication_id"`
	BatchNumber       string          `json:"batch_number"`
	LocationID        string          `json:"location_id"`
	QuantityOnHand    int64           `json:"quantity_on_hand"`
	QuantityReserved  int64           `json:"quantity_reserved"`
	Available         int64           `json:"available"`
	ExpiryDate        string          `json:"expiry_date"`
	ReceivedDate      string          `json:"received_date"`
	ExpiryStatus      string          `json:"expiry_status"`
	DaysToExpiry      int             `json:"days_to_expiry"`
	UnitPurchasePrice decimal.Decimal `json:"unit_purchase_price"`
	UnitSellingPrice  decimal.Decimal `json:"unit_selling_price"`
	SourceType        string          `json:"source_type"`
	SourceRef         string          `json:"source_ref"`
}

// RepriceRequest body para PUT /api/batches/:id/price.
type RepriceRequest struct {
	UnitSellingPrice decimal.Decimal `json:"unit_selling_price"`
}

// DateLayout formato de fechas sin hora (vencimiento, recepción).
const DateLayout = "2006-01-02"
