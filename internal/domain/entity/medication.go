package entity

import "time"

// DefaultReorderLevel nivel de reorden por defecto cuando no se configura uno.
const DefaultReorderLevel int64 = 50

// Medication identidad de un medicamento (nombre, concentración, forma farmacéutica).
// Los campos de identidad no cambian una vez que algún lote lo referencia.
type Medication struct {
	ID           string
	Name         string
	Strength     string // ej. "500 mg"
	DosageForm   string // TABLET, SYRUP, INJECTION...
	Description  string
	ReorderLevel int64 // umbral de stock bajo (unidades disponibles)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SameIdentity compara nombre, concentración y forma farmacéutica.
func (m *Medication) SameIdentity(other *Medication) bool {
	return m.Name == other.Name && m.Strength == other.Strength && m.DosageForm == other.DosageForm
}
