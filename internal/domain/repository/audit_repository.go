package repository

import (
	"context"
	"time"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// AuditFilter filtro de consulta del log de auditoría. Campos vacíos no filtran.
type AuditFilter struct {
	SubjectID     string
	CorrelationID string
	From          *time.Time
	To            *time.Time
	Limit         int
}

// AuditRepository log append-only: no hay Update ni Delete.
type AuditRepository interface {
	// Append asigna Seq y persiste la entrada.
	Append(ctx context.Context, e *entity.AuditEntry) error
	// Query devuelve entradas en orden de inserción.
	Query(ctx context.Context, f AuditFilter) ([]*entity.AuditEntry, error)
}
