package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo implementación de BatchRepository sobre PostgreSQL (usable con pool o tx).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador de lotes. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

const batchColumns = `id, medication_id, batch_number, location_id, quantity_on_hand, quantity_reserved,
	expiry_date, received_date, unit_purchase_price, unit_selling_price, source_type, source_ref,
	created_at, updated_at`

// Create inserta un lote. (batch_number, location_id) es único.
func (r *BatchRepo) Create(ctx context.Context, b *entity.StockBatch) error {
	query := `
		INSERT INTO stock_batches (` + batchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		b.ID, b.MedicationID, b.BatchNumber, b.LocationID, b.QuantityOnHand, b.QuantityReserved,
		b.ExpiryDate, b.ReceivedDate, b.UnitPurchasePrice, b.UnitSellingPrice, b.SourceType, b.SourceRef,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewViolation(domain.ErrDuplicateBatch, "lote", b.BatchNumber)
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID.
func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.StockBatch, error) {
	return r.getOne(ctx, `SELECT `+batchColumns+` FROM stock_batches WHERE id = $1`, id)
}

// GetForUpdate obtiene el lote y bloquea la fila (SELECT FOR UPDATE).
func (r *BatchRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockBatch, error) {
	return r.getOne(ctx, `SELECT `+batchColumns+` FROM stock_batches WHERE id = $1 FOR UPDATE`, id)
}

// FindByNumberAndLocation busca el lote por su número en una ubicación.
func (r *BatchRepo) FindByNumberAndLocation(ctx context.Context, batchNumber, locationID string) (*entity.StockBatch, error) {
	return r.getOne(ctx,
		`SELECT `+batchColumns+` FROM stock_batches WHERE batch_number = $1 AND location_id = $2`,
		batchNumber, locationID)
}

// ListAllocatableForUpdate bloquea en orden de id los lotes asignables del medicamento.
func (r *BatchRepo) ListAllocatableForUpdate(ctx context.Context, medicationID, locationID string, asOf time.Time) ([]*entity.StockBatch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM stock_batches
		WHERE medication_id = $1
		  AND ($2 = '' OR location_id = $2)
		  AND expiry_date >= $3
		  AND quantity_on_hand - quantity_reserved > 0
		ORDER BY id
		FOR UPDATE`
	return r.list(ctx, query, medicationID, locationID, entity.Day(asOf))
}

// ListByMedication lista todos los lotes del medicamento por vencimiento.
func (r *BatchRepo) ListByMedication(ctx context.Context, medicationID string) ([]*entity.StockBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM stock_batches WHERE medication_id = $1 ORDER BY expiry_date, id`
	return r.list(ctx, query, medicationID)
}

// UpdateQuantities escribe existencias y reservado. Los CHECK de la tabla rechazan negativos.
func (r *BatchRepo) UpdateQuantities(ctx context.Context, id string, onHand, reserved int64) error {
	query := `
		UPDATE stock_batches
		SET quantity_on_hand = $2, quantity_reserved = $3, updated_at = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, onHand, reserved)
	if err != nil {
		return mapError(fmt.Errorf("update batch quantities: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateSellingPrice cambia el precio de venta del lote.
func (r *BatchRepo) UpdateSellingPrice(ctx context.Context, id string, price decimal.Decimal) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE stock_batches SET unit_selling_price = $2, updated_at = now() WHERE id = $1`, id, price)
	if err != nil {
		return fmt.Errorf("update selling price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BatchRepo) CountByMedication(ctx context.Context, medicationID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM stock_batches WHERE medication_id = $1`, medicationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count batches: %w", err)
	}
	return n, nil
}

func (r *BatchRepo) AvailableByMedication(ctx context.Context, medicationID string, asOf time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(quantity_on_hand - quantity_reserved), 0)
		FROM stock_batches
		WHERE medication_id = $1 AND expiry_date >= $2`
	var n int64
	if err := r.q.QueryRow(ctx, query, medicationID, entity.Day(asOf)).Scan(&n); err != nil {
		return 0, fmt.Errorf("available by medication: %w", err)
	}
	return n, nil
}

func (r *BatchRepo) getOne(ctx context.Context, query string, args ...any) (*entity.StockBatch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(fmt.Errorf("get batch: %w", err))
	}
	return b, nil
}

func (r *BatchRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockBatch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(fmt.Errorf("list batches: %w", err))
	}
	defer rows.Close()
	var list []*entity.StockBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, mapError(fmt.Errorf("scan batch: %w", err))
		}
		list = append(list, b)
	}
	return list, mapError(rows.Err())
}

func scanBatch(row pgx.Row) (*entity.StockBatch, error) {
	var b entity.StockBatch
	err := row.Scan(
		&b.ID, &b.MedicationID, &b.BatchNumber, &b.LocationID, &b.QuantityOnHand, &b.QuantityReserved,
		&b.ExpiryDate, &b.ReceivedDate, &b.UnitPurchasePrice, &b.UnitSellingPrice, &b.SourceType, &b.SourceRef,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
