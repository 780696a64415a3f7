package ledger

import (
	"context"
	"time"

	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/repository"
)

const maxAuditRows = 1000

// AuditQuery lectura del log de auditoría para conciliación y reportes.
type AuditQuery struct {
	txRunner ports.TxRunner
}

// NewAuditQuery construye el caso de uso.
func NewAuditQuery(txRunner ports.TxRunner) *AuditQuery {
	return &AuditQuery{txRunner: txRunner}
}

// QueryAuditTrail devuelve las entradas del sujeto en el rango [from, to], en orden de inserción.
func (q *AuditQuery) QueryAuditTrail(ctx context.Context, subjectID string, from, to *time.Time) ([]*entity.AuditEntry, error) {
	return q.Query(ctx, repository.AuditFilter{SubjectID: subjectID, From: from, To: to})
}

// Query consulta con filtro libre.
func (q *AuditQuery) Query(ctx context.Context, f repository.AuditFilter) ([]*entity.AuditEntry, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, domain.ErrInvalidInput
	}
	if f.Limit <= 0 || f.Limit > maxAuditRows {
		f.Limit = maxAuditRows
	}
	var out []*entity.AuditEntry
	err := q.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		out, err = repos.Audit.Query(ctx, f)
		return err
	})
	return out, err
}
