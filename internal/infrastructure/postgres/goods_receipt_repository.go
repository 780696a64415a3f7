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

var _ repository.GoodsReceiptRepository = (*GoodsReceiptRepo)(nil)

// GoodsReceiptRepo notas de recepción (GRN) sobre PostgreSQL.
type GoodsReceiptRepo struct {
	q Querier
}

// NewGoodsReceiptRepository construye el adaptador. Pasar pool o tx (Querier).
func NewGoodsReceiptRepository(q Querier) *GoodsReceiptRepo {
	return &GoodsReceiptRepo{q: q}
}

const receiptColumns = `id, number, purchase_order_id, location_id, invoice_number, status, created_by,
	approved_by, approved_at, created_at, updated_at`

func (r *GoodsReceiptRepo) Create(ctx context.Context, g *entity.GoodsReceiptNote) error {
	query := `INSERT INTO goods_receipts (` + receiptColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		g.ID, g.Number, g.PurchaseOrderID, g.LocationID, g.InvoiceNumber, g.Status, g.CreatedBy,
		g.ApprovedBy, g.ApprovedAt, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert goods receipt: %w", err)
	}
	lineQuery := `
		INSERT INTO goods_receipt_lines (id, grn_id, line_no, purchase_order_line_id, medication_id, quantity,
			expiry_date, unit_purchase_price, unit_selling_price, manufacturer_batch, batch_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for _, l := range g.Lines {
		if _, err := r.q.Exec(ctx, lineQuery,
			l.ID, g.ID, l.LineNo, l.PurchaseOrderLineID, l.MedicationID, l.Quantity,
			l.ExpiryDate, l.UnitPurchasePrice, l.UnitSellingPrice, l.ManufacturerBatch, l.BatchID,
		); err != nil {
			return fmt.Errorf("insert goods receipt line: %w", err)
		}
	}
	return nil
}

func (r *GoodsReceiptRepo) GetByID(ctx context.Context, id string) (*entity.GoodsReceiptNote, error) {
	return r.get(ctx, `SELECT `+receiptColumns+` FROM goods_receipts WHERE id = $1`, id)
}

func (r *GoodsReceiptRepo) GetForUpdate(ctx context.Context, id string) (*entity.GoodsReceiptNote, error) {
	return r.get(ctx, `SELECT `+receiptColumns+` FROM goods_receipts WHERE id = $1 FOR UPDATE`, id)
}

// Update persiste estado, aprobador y el lote creado por cada línea.
func (r *GoodsReceiptRepo) Update(ctx context.Context, g *entity.GoodsReceiptNote) error {
	query := `
		UPDATE goods_receipts SET status = $2, approved_by = $3, approved_at = $4, updated_at = $5
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, g.ID, g.Status, g.ApprovedBy, g.ApprovedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update goods receipt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	for _, l := range g.Lines {
		if _, err := r.q.Exec(ctx, `UPDATE goods_receipt_lines SET batch_id = $2 WHERE id = $1`, l.ID, l.BatchID); err != nil {
			return fmt.Errorf("update goods receipt line: %w", err)
		}
	}
	return nil
}

func (r *GoodsReceiptRepo) SumQuantityForPOLine(ctx context.Context, poLineID string, statuses []string, excludeID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(l.quantity), 0)
		FROM goods_receipt_lines l
		JOIN goods_receipts g ON g.id = l.grn_id
		WHERE l.purchase_order_line_id = $1 AND g.status = ANY($2) AND g.id <> $3`
	var n int64
	if err := r.q.QueryRow(ctx, query, poLineID, statuses, excludeID).Scan(&n); err != nil {
		return 0, fmt.Errorf("sum received for po line: %w", err)
	}
	return n, nil
}

func (r *GoodsReceiptRepo) get(ctx context.Context, query, id string) (*entity.GoodsReceiptNote, error) {
	var g entity.GoodsReceiptNote
	err := r.q.QueryRow(ctx, query, id).Scan(
		&g.ID, &g.Number, &g.PurchaseOrderID, &g.LocationID, &g.InvoiceNumber, &g.Status, &g.CreatedBy,
		&g.ApprovedBy, &g.ApprovedAt, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(fmt.Errorf("get goods receipt: %w", err))
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, grn_id, line_no, purchase_order_line_id, medication_id, quantity, expiry_date,
			unit_purchase_price, unit_selling_price, manufacturer_batch, batch_id
		FROM goods_receipt_lines WHERE grn_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return nil, fmt.Errorf("get goods receipt lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.GoodsReceiptLine
		if err := rows.Scan(
			&l.ID, &l.GRNID, &l.LineNo, &l.PurchaseOrderLineID, &l.MedicationID, &l.Quantity, &l.ExpiryDate,
			&l.UnitPurchasePrice, &l.UnitSellingPrice, &l.ManufacturerBatch, &l.BatchID,
		); err != nil {
			return nil, fmt.Errorf("scan goods receipt line: %w", err)
		}
		g.Lines = append(g.Lines, l)
	}
	return &g, rows.Err()
}
