package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo reservas y líneas de asignación sobre PostgreSQL.
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

const reservationColumns = `id, number, medication_id, prescription_line_id, location_id, quantity, status,
	expires_at, created_by, created_at, updated_at`

func (r *ReservationRepo) Create(ctx context.Context, res *entity.Reservation) error {
	query := `INSERT INTO reservations (` + reservationColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		res.ID, res.Number, res.MedicationID, res.PrescriptionLineID, res.LocationID, res.Quantity, res.Status,
		res.ExpiresAt, res.CreatedBy, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	for _, l := range res.Lines {
		if _, err := r.q.Exec(ctx,
			`INSERT INTO allocation_lines (reservation_id, ordinal, batch_id, quantity) VALUES ($1, $2, $3, $4)`,
			res.ID, l.Ordinal, l.BatchID, l.Quantity,
		); err != nil {
			return fmt.Errorf("insert allocation line: %w", err)
		}
	}
	return nil
}

func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*entity.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila de la reserva. Despacho y barrido compiten por este bloqueo.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
}

func (r *ReservationRepo) UpdateStatus(ctx context.Context, res *entity.Reservation) error {
	tag, err := r.q.Exec(ctx, `UPDATE reservations SET status = $2, updated_at = $3 WHERE id = $1`,
		res.ID, res.Status, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ReservationRepo) ListExpiredHeld(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.q.Query(ctx, `
		SELECT id FROM reservations
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at, id
		LIMIT $3`, entity.ReservationHeld, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reservation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ReservationRepo) get(ctx context.Context, query, id string) (*entity.Reservation, error) {
	var res entity.Reservation
	err := r.q.QueryRow(ctx, query, id).Scan(
		&res.ID, &res.Number, &res.MedicationID, &res.PrescriptionLineID, &res.LocationID, &res.Quantity, &res.Status,
		&res.ExpiresAt, &res.CreatedBy, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(fmt.Errorf("get reservation: %w", err))
	}
	rows, err := r.q.Query(ctx, `
		SELECT reservation_id, ordinal, batch_id, quantity
		FROM allocation_lines WHERE reservation_id = $1 ORDER BY ordinal`, id)
	if err != nil {
		return nil, fmt.Errorf("get allocation lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.AllocationLine
		if err := rows.Scan(&l.ReservationID, &l.Ordinal, &l.BatchID, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan allocation line: %w", err)
		}
		res.Lines = append(res.Lines, l)
	}
	return &res, rows.Err()
}
