package inventory

import (
	"time"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// Niveles de alerta de vencimiento.
const (
	ExpiryExpired  = "EXPIRED"
	ExpiryCritical = "CRITICAL" // <= 30 días
	ExpiryWarning  = "WARNING"  // <= 90 días
	ExpiryInfo     = "INFO"     // <= 180 días
	ExpiryValid    = "VALID"
)

// DaysToExpiry días calendario entre asOf y el vencimiento (negativo si ya venció).
func DaysToExpiry(expiry, asOf time.Time) int {
	return int(entity.Day(expiry).Sub(entity.Day(asOf)).Hours() / 24)
}

// ClassifyExpiry clasifica un vencimiento respecto a asOf.
func ClassifyExpiry(expiry, asOf time.Time) string {
	days := DaysToExpiry(expiry, asOf)
	switch {
	case days < 0:
		return ExpiryExpired
	case days <= 30:
		return ExpiryCritical
	case days <= 90:
		return ExpiryWarning
	case days <= 180:
		return ExpiryInfo
	default:
		return ExpiryValid
	}
}
