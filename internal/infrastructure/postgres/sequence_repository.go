package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// sequenceNames secuencias PostgreSQL por prefijo (ver schema.sql).
var sequenceNames = map[string]string{
	"PO":   "seq_purchase_order",
	"GRN":  "seq_goods_receipt",
	"RSV":  "seq_reservation",
	"DSP":  "seq_dispense",
	"TRF":  "seq_transfer",
	"PRET": "seq_patient_return",
	"SRN":  "seq_supplier_return",
}

// SequenceRepo contadores por prefijo sobre SEQUENCE. nextval no participa de la
// transacción: no bloquea filas ni genera conflictos de serialización, y un rollback
// deja un hueco en la numeración.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

func (r *SequenceRepo) Next(ctx context.Context, prefix string) (int64, error) {
	name, ok := sequenceNames[prefix]
	if !ok {
		return 0, domain.NewViolation(domain.ErrInvalidInput, "secuencia", prefix)
	}
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT nextval($1::regclass)`, name).Scan(&n); err != nil {
		return 0, mapError(fmt.Errorf("next sequence %s: %w", prefix, err))
	}
	return n, nil
}
