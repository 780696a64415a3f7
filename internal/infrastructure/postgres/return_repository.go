package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/repository"
)

var _ repository.ReturnRepository = (*ReturnRepo)(nil)

// ReturnRepo devoluciones de paciente y a proveedor sobre PostgreSQL.
type ReturnRepo struct {
	q Querier
}

// NewReturnRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReturnRepository(q Querier) *ReturnRepo {
	return &ReturnRepo{q: q}
}

const returnColumns = `id, number, kind, batch_id, medication_id, quantity, related_dispense_id, prescription_line_id,
	condition, reason, restocked, refund_amount, credit_amount, created_by, created_at`

func (r *ReturnRepo) Create(ctx context.Context, rec *entity.ReturnRecord) error {
	query := `INSERT INTO return_records (` + returnColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.Number, rec.Kind, rec.BatchID, rec.MedicationID, rec.Quantity, rec.RelatedDispenseID,
		rec.PrescriptionLineID, rec.Condition, rec.Reason, rec.Restocked, rec.RefundAmount, rec.CreditAmount,
		rec.CreatedBy, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert return: %w", err)
	}
	return nil
}

func (r *ReturnRepo) GetByID(ctx context.Context, id string) (*entity.ReturnRecord, error) {
	var rec entity.ReturnRecord
	err := r.q.QueryRow(ctx, `SELECT `+returnColumns+` FROM return_records WHERE id = $1`, id).Scan(
		&rec.ID, &rec.Number, &rec.Kind, &rec.BatchID, &rec.MedicationID, &rec.Quantity, &rec.RelatedDispenseID,
		&rec.PrescriptionLineID, &rec.Condition, &rec.Reason, &rec.Restocked, &rec.RefundAmount, &rec.CreditAmount,
		&rec.CreatedBy, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get return: %w", err)
	}
	return &rec, nil
}

func (r *ReturnRepo) SumPatientReturned(ctx context.Context, prescriptionLineID, dispenseID, batchID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM return_records
		WHERE kind = $1 AND batch_id = $2
		  AND (($3 <> '' AND prescription_line_id = $3) OR ($3 = '' AND related_dispense_id = $4))`
	var n int64
	if err := r.q.QueryRow(ctx, query, entity.ReturnPatient, batchID, prescriptionLineID, dispenseID).Scan(&n); err != nil {
		return 0, fmt.Errorf("sum patient returns: %w", err)
	}
	return n, nil
}
