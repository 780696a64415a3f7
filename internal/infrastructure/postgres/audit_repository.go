package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo log de auditoría append-only sobre PostgreSQL.
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Append inserta la entrada y devuelve el seq asignado por la secuencia de la tabla.
func (r *AuditRepo) Append(ctx context.Context, e *entity.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (id, subject_entity, subject_id, batch_id, operation, quantity_before,
			quantity_after, actor, at, correlation_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		e.ID, e.SubjectEntity, e.SubjectID, e.BatchID, e.Operation, e.QuantityBefore,
		e.QuantityAfter, e.Actor, e.At, e.CorrelationID, e.Reason,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Query filtra por sujeto, correlación y rango de fechas, en orden de inserción.
func (r *AuditRepo) Query(ctx context.Context, f repository.AuditFilter) ([]*entity.AuditEntry, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.SubjectID != "" {
		add("subject_id = $%d", f.SubjectID)
	}
	if f.CorrelationID != "" {
		add("correlation_id = $%d", f.CorrelationID)
	}
	if f.From != nil {
		add("at >= $%d", *f.From)
	}
	if f.To != nil {
		add("at <= $%d", *f.To)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT seq, id, subject_entity, subject_id, batch_id, operation, quantity_before,
		quantity_after, actor, at, correlation_id, reason FROM audit_entries`)
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY seq")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := r.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()
	var list []*entity.AuditEntry
	for rows.Next() {
		var e entity.AuditEntry
		if err := rows.Scan(
			&e.Seq, &e.ID, &e.SubjectEntity, &e.SubjectID, &e.BatchID, &e.Operation, &e.QuantityBefore,
			&e.QuantityAfter, &e.Actor, &e.At, &e.CorrelationID, &e.Reason,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
