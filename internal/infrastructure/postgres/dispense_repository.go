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

var _ repository.DispenseRepository = (*DispenseRepo)(nil)

// DispenseRepo registros de despacho sobre PostgreSQL. No tienen Update.
type DispenseRepo struct {
	q Querier
}

// NewDispenseRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDispenseRepository(q Querier) *DispenseRepo {
	return &DispenseRepo{q: q}
}

func (r *DispenseRepo) Create(ctx context.Context, d *entity.DispenseRecord) error {
	query := `
		INSERT INTO dispenses (id, number, reservation_id, medication_id, prescription_line_id, dispensed_by, dispensed_at, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		d.ID, d.Number, d.ReservationID, d.MedicationID, d.PrescriptionLineID, d.DispensedBy, d.DispensedAt, d.Total,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// reservation_id es único: una reserva se despacha una sola vez.
			return domain.NewViolation(domain.ErrReservationNotHeld, "reserva", d.ReservationID)
		}
		return fmt.Errorf("insert dispense: %w", err)
	}
	lineQuery := `
		INSERT INTO dispense_lines (dispense_id, ordinal, batch_id, quantity, unit_price, line_total, expired_at_dispense)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, l := range d.Lines {
		if _, err := r.q.Exec(ctx, lineQuery,
			d.ID, l.Ordinal, l.BatchID, l.Quantity, l.UnitPrice, l.LineTotal, l.ExpiredAtDispense,
		); err != nil {
			return fmt.Errorf("insert dispense line: %w", err)
		}
	}
	return nil
}

func (r *DispenseRepo) GetByID(ctx context.Context, id string) (*entity.DispenseRecord, error) {
	var d entity.DispenseRecord
	err := r.q.QueryRow(ctx, `
		SELECT id, number, reservation_id, medication_id, prescription_line_id, dispensed_by, dispensed_at, total
		FROM dispenses WHERE id = $1`, id).Scan(
		&d.ID, &d.Number, &d.ReservationID, &d.MedicationID, &d.PrescriptionLineID, &d.DispensedBy, &d.DispensedAt, &d.Total,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dispense: %w", err)
	}
	rows, err := r.q.Query(ctx, `
		SELECT dispense_id, ordinal, batch_id, quantity, unit_price, line_total, expired_at_dispense
		FROM dispense_lines WHERE dispense_id = $1 ORDER BY ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("get dispense lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.DispenseLine
		if err := rows.Scan(&l.DispenseID, &l.Ordinal, &l.BatchID, &l.Quantity, &l.UnitPrice, &l.LineTotal, &l.ExpiredAtDispense); err != nil {
			return nil, fmt.Errorf("scan dispense line: %w", err)
		}
		d.Lines = append(d.Lines, l)
	}
	return &d, rows.Err()
}

func (r *DispenseRepo) SumDispensed(ctx context.Context, prescriptionLineID, batchID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(l.quantity), 0)
		FROM dispense_lines l
		JOIN dispenses d ON d.id = l.dispense_id
		WHERE d.prescription_line_id = $1 AND l.batch_id = $2`
	var n int64
	if err := r.q.QueryRow(ctx, query, prescriptionLineID, batchID).Scan(&n); err != nil {
		return 0, fmt.Errorf("sum dispensed: %w", err)
	}
	return n, nil
}
