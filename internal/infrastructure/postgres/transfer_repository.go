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

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo transferencias entre ubicaciones sobre PostgreSQL.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

const transferColumns = `id, number, source_location_id, dest_location_id, medication_id, source_batch_id,
	dest_batch_id, quantity, reason, status, requested_by, approved_by, completed_by, created_at, updated_at, completed_at`

func (r *TransferRepo) Create(ctx context.Context, t *entity.StockTransfer) error {
	query := `INSERT INTO stock_transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.Number, t.SourceLocationID, t.DestLocationID, t.MedicationID, t.SourceBatchID,
		t.DestBatchID, t.Quantity, t.Reason, t.Status, t.RequestedBy, t.ApprovedBy, t.CompletedBy,
		t.CreatedAt, t.UpdatedAt, t.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return mapError(fmt.Errorf("insert transfer: %w", err))
	}
	return nil
}

func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.get(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1`, id)
}

func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.get(ctx, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1 FOR UPDATE`, id)
}

func (r *TransferRepo) Update(ctx context.Context, t *entity.StockTransfer) error {
	query := `
		UPDATE stock_transfers
		SET dest_batch_id = $2, status = $3, approved_by = $4, completed_by = $5, updated_at = $6, completed_at = $7
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, t.ID, t.DestBatchID, t.Status, t.ApprovedBy, t.CompletedBy, t.UpdatedAt, t.CompletedAt)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *TransferRepo) get(ctx context.Context, query, id string) (*entity.StockTransfer, error) {
	var t entity.StockTransfer
	err := r.q.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Number, &t.SourceLocationID, &t.DestLocationID, &t.MedicationID, &t.SourceBatchID,
		&t.DestBatchID, &t.Quantity, &t.Reason, &t.Status, &t.RequestedBy, &t.ApprovedBy, &t.CompletedBy,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(fmt.Errorf("get transfer: %w", err))
	}
	return &t, nil
}
