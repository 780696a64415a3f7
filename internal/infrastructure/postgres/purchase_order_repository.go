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

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo órdenes de compra y sus líneas sobre PostgreSQL.
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

const orderColumns = `id, number, supplier_id, status, notes, created_by, approved_by, approved_at, created_at, updated_at`

// Create inserta cabecera y líneas. Debe ejecutarse dentro de una tx.
func (r *PurchaseOrderRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	query := `INSERT INTO purchase_orders (` + orderColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		po.ID, po.Number, po.SupplierID, po.Status, po.Notes, po.CreatedBy, po.ApprovedBy, po.ApprovedAt,
		po.CreatedAt, po.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert purchase order: %w", err)
	}
	lineQuery := `
		INSERT INTO purchase_order_lines (id, purchase_order_id, line_no, medication_id, ordered_quantity, received_quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, l := range po.Lines {
		if _, err := r.q.Exec(ctx, lineQuery,
			l.ID, po.ID, l.LineNo, l.MedicationID, l.OrderedQuantity, l.ReceivedQuantity, l.UnitPrice,
		); err != nil {
			return fmt.Errorf("insert purchase order line: %w", err)
		}
	}
	return nil
}

// GetByID obtiene la orden con sus líneas.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1`, id)
}

// GetForUpdate bloquea la cabecera de la orden.
func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *PurchaseOrderRepo) UpdateStatus(ctx context.Context, po *entity.PurchaseOrder) error {
	query := `
		UPDATE purchase_orders SET status = $2, approved_by = $3, approved_at = $4, updated_at = $5
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, po.ID, po.Status, po.ApprovedBy, po.ApprovedAt, po.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update purchase order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PurchaseOrderRepo) UpdateLineReceived(ctx context.Context, lineID string, received int64) error {
	tag, err := r.q.Exec(ctx, `UPDATE purchase_order_lines SET received_quantity = $2 WHERE id = $1`, lineID, received)
	if err != nil {
		return mapError(fmt.Errorf("update purchase order line: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PurchaseOrderRepo) get(ctx context.Context, query, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.q.QueryRow(ctx, query, id).Scan(
		&po.ID, &po.Number, &po.SupplierID, &po.Status, &po.Notes, &po.CreatedBy, &po.ApprovedBy, &po.ApprovedAt,
		&po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(fmt.Errorf("get purchase order: %w", err))
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, purchase_order_id, line_no, medication_id, ordered_quantity, received_quantity, unit_price
		FROM purchase_order_lines WHERE purchase_order_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return nil, fmt.Errorf("get purchase order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.PurchaseOrderLine
		if err := rows.Scan(&l.ID, &l.PurchaseOrderID, &l.LineNo, &l.MedicationID, &l.OrderedQuantity, &l.ReceivedQuantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan purchase order line: %w", err)
		}
		po.Lines = append(po.Lines, l)
	}
	return &po, rows.Err()
}
