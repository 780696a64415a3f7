package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de devolución.
const (
	ReturnPatient  = "PATIENT"
	ReturnSupplier = "SUPPLIER"
)

// Condición del ítem devuelto por el paciente. Solo UNOPENED vuelve al stock.
const (
	ConditionUnopened = "UNOPENED"
	ConditionOpened   = "OPENED"
	ConditionDamaged  = "DAMAGED"
)

// Motivos de devolución al proveedor.
const (
	ReasonDamaged      = "DAMAGED"
	ReasonExpired      = "EXPIRED"
	ReasonWrongItem    = "WRONG_ITEM"
	ReasonExcessStock  = "EXCESS_STOCK"
	ReasonNearExpiry   = "NEAR_EXPIRY"
	ReasonQualityIssue = "QUALITY_ISSUE"
	ReasonOther        = "OTHER"
)

// ReturnRecord devolución de paciente o a proveedor, aplicada al crearse.
type ReturnRecord struct {
	ID                 string
	Number             string // PRET-… (paciente) | SRN-… (proveedor)
	Kind               string
	BatchID            string
	MedicationID       string
	Quantity           int64
	RelatedDispenseID  string
	PrescriptionLineID string
	Condition          string
	Reason             string
	Restocked          bool
	RefundAmount       decimal.Decimal // paciente: cantidad × precio despachado
	CreditAmount       decimal.Decimal // proveedor: cantidad × precio de compra
	CreatedBy          string
	CreatedAt          time.Time
}

// ValidSupplierReason verifica el motivo de devolución al proveedor.
func ValidSupplierReason(r string) bool {
	switch r {
	case ReasonDamaged, ReasonExpired, ReasonWrongItem, ReasonExcessStock,
		ReasonNearExpiry, ReasonQualityIssue, ReasonOther:
		return true
	}
	return false
}

// ValidCondition verifica la condición del ítem devuelto.
func ValidCondition(c string) bool {
	return c == ConditionUnopened || c == ConditionOpened || c == ConditionDamaged
}
