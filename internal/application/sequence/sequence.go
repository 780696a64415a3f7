// Package sequence genera números de negocio con prefijo (PO-20250101-0001) de forma explícita,
// antes de construir la entidad. El contador es monótono por prefijo; la fecha es la del alta.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/repository"
)

// Prefijos por entidad.
const (
	PurchaseOrder  = "PO"
	GoodsReceipt   = "GRN"
	Reservation    = "RSV"
	Dispense       = "DSP"
	Transfer       = "TRF"
	PatientReturn  = "PRET"
	SupplierReturn = "SRN"
)

// Next devuelve PREFIX-YYYYMMDD-NNNN.
func Next(ctx context.Context, seqs repository.SequenceRepository, prefix string, now time.Time) (string, error) {
	day := now.UTC().Format("20060102")
	n, err := seqs.Next(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("siguiente secuencia %s: %w", prefix, err)
	}
	return Format(prefix, day, n), nil
}

// Format arma el número con relleno de ceros a 4 dígitos como mínimo.
func Format(prefix, day string, n int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day, n)
}
