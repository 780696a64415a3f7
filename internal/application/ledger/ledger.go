// Package ledger es la fuente de verdad de las cantidades por lote. Cada mutación escribe
// exactamente una entrada de auditoría por lote afectado en la misma transacción; si la
// auditoría falla, la transacción completa hace Rollback.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// Mutation datos comunes de una mutación: quién, cuándo y a qué operación de negocio pertenece.
type Mutation struct {
	Actor         string
	CorrelationID string
	Reason        string
	At            time.Time
}

// Ledger opera siempre sobre repositorios atados a la transacción del llamador.
type Ledger struct{}

// New construye el ledger.
func New() *Ledger {
	return &Ledger{}
}

// PostReceipt crea un lote con existencias iniciales. Nunca sobrescribe un lote existente.
func (l *Ledger) PostReceipt(ctx context.Context, repos ports.Repos, b *entity.StockBatch, m Mutation) (string, error) {
	if b.MedicationID == "" || b.BatchNumber == "" || b.LocationID == "" || b.QuantityOnHand <= 0 {
		return "", domain.ErrInvalidInput
	}
	existing, err := repos.Batches.FindByNumberAndLocation(ctx, b.BatchNumber, b.LocationID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", domain.NewViolation(domain.ErrDuplicateBatch, "lote", b.BatchNumber)
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	b.QuantityReserved = 0
	b.ReceivedDate = entity.Day(b.ReceivedDate)
	b.ExpiryDate = entity.Day(b.ExpiryDate)
	b.CreatedAt = m.At
	b.UpdatedAt = m.At
	if err := repos.Batches.Create(ctx, b); err != nil {
		return "", err
	}
	op := entity.OpReceipt
	if b.SourceType == entity.BatchSourceTransferIn {
		op = entity.OpTransferIn
	}
	if err := l.audit(ctx, repos, entity.SubjectBatch, b.ID, b.ID, op, 0, b.QuantityOnHand, m); err != nil {
		return "", err
	}
	return b.ID, nil
}

// Reserve retiene qty del lote para la reserva. Falla con ErrInsufficientStock si qty supera
// on_hand - reserved.
func (l *Ledger) Reserve(ctx context.Context, repos ports.Repos, reservationID, batchID string, qty int64, m Mutation) error {
	if qty <= 0 {
		return domain.ErrInvalidInput
	}
	b, err := lockBatch(ctx, repos, batchID)
	if err != nil {
		return err
	}
	if qty > b.Available() {
		return domain.NewQuantityViolation(domain.ErrInsufficientStock, "lote", b.ID, qty, b.Available())
	}
	before := b.QuantityReserved
	if err := repos.Batches.UpdateQuantities(ctx, b.ID, b.QuantityOnHand, before+qty); err != nil {
		return err
	}
	return l.audit(ctx, repos, entity.SubjectReservation, reservationID, b.ID, entity.OpReserve, before, before+qty, m)
}

// CommitReservation descuenta on_hand y reserved de cada línea de asignación.
// Devuelve los lotes tal como quedaron, indexados por id.
func (l *Ledger) CommitReservation(ctx context.Context, repos ports.Repos, r *entity.Reservation, m Mutation) (map[string]*entity.StockBatch, error) {
	out := make(map[string]*entity.StockBatch, len(r.Lines))
	for _, line := range linesByBatch(r.Lines) {
		b, ok := out[line.BatchID]
		if !ok {
			var err error
			if b, err = lockBatch(ctx, repos, line.BatchID); err != nil {
				return nil, err
			}
			out[b.ID] = b
		}
		if line.Quantity > b.QuantityReserved || line.Quantity > b.QuantityOnHand {
			return nil, domain.NewQuantityViolation(domain.ErrInsufficientStock, "lote", b.ID, line.Quantity, b.QuantityReserved)
		}
		before := b.QuantityOnHand
		b.QuantityOnHand -= line.Quantity
		b.QuantityReserved -= line.Quantity
		if err := repos.Batches.UpdateQuantities(ctx, b.ID, b.QuantityOnHand, b.QuantityReserved); err != nil {
			return nil, err
		}
		if err := l.audit(ctx, repos, entity.SubjectBatch, b.ID, b.ID, entity.OpDispense, before, b.QuantityOnHand, m); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Release devuelve al disponible lo retenido por la reserva. op es RELEASE o EXPIRE.
// Una línea mayor que lo reservado en el lote falla con ErrInsufficientStock.
func (l *Ledger) Release(ctx context.Context, repos ports.Repos, r *entity.Reservation, op string, m Mutation) error {
	for _, line := range linesByBatch(r.Lines) {
		b, err := lockBatch(ctx, repos, line.BatchID)
		if err != nil {
			return err
		}
		if line.Quantity > b.QuantityReserved {
			return domain.NewQuantityViolation(domain.ErrInsufficientStock, "lote", b.ID, line.Quantity, b.QuantityReserved)
		}
		before := b.QuantityReserved
		after := before - line.Quantity
		if err := repos.Batches.UpdateQuantities(ctx, b.ID, b.QuantityOnHand, after); err != nil {
			return err
		}
		if err := l.audit(ctx, repos, entity.SubjectReservation, r.ID, b.ID, op, before, after, m); err != nil {
			return err
		}
	}
	return nil
}

// Adjust suma delta a on_hand (transferencias y devoluciones). No puede dejar on_hand
// por debajo de lo reservado.
func (l *Ledger) Adjust(ctx context.Context, repos ports.Repos, batchID string, delta int64, op string, m Mutation) (*entity.StockBatch, error) {
	if delta == 0 {
		return nil, domain.ErrInvalidInput
	}
	b, err := lockBatch(ctx, repos, batchID)
	if err != nil {
		return nil, err
	}
	after := b.QuantityOnHand + delta
	if after < b.QuantityReserved {
		return nil, domain.NewQuantityViolation(domain.ErrInsufficientStock, "lote", b.ID, -delta, b.Available())
	}
	before := b.QuantityOnHand
	if err := repos.Batches.UpdateQuantities(ctx, b.ID, after, b.QuantityReserved); err != nil {
		return nil, err
	}
	if err := l.audit(ctx, repos, entity.SubjectBatch, b.ID, b.ID, op, before, after, m); err != nil {
		return nil, err
	}
	b.QuantityOnHand = after
	b.UpdatedAt = m.At
	return b, nil
}

func (l *Ledger) audit(ctx context.Context, repos ports.Repos, subject, subjectID, batchID, op string, before, after int64, m Mutation) error {
	e := &entity.AuditEntry{
		ID:             uuid.New().String(),
		SubjectEntity:  subject,
		SubjectID:      subjectID,
		BatchID:        batchID,
		Operation:      op,
		QuantityBefore: before,
		QuantityAfter:  after,
		Actor:          m.Actor,
		At:             m.At,
		CorrelationID:  m.CorrelationID,
		Reason:         m.Reason,
	}
	if err := repos.Audit.Append(ctx, e); err != nil {
		return fmt.Errorf("registrar auditoría %s: %w", op, err)
	}
	return nil
}

// lockBatch bloquea la fila del lote; no encontrado es ErrNotFound con el id.
func lockBatch(ctx context.Context, repos ports.Repos, id string) (*entity.StockBatch, error) {
	b, err := repos.Batches.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.NewViolation(domain.ErrNotFound, "lote", id)
	}
	return b, nil
}

// linesByBatch copia las líneas en orden ascendente de lote (orden global de bloqueo).
func linesByBatch(lines []entity.AllocationLine) []entity.AllocationLine {
	out := append([]entity.AllocationLine(nil), lines...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].BatchID < out[j].BatchID })
	return out
}

// LowStockEvent devuelve el evento stock.low si el disponible cruzó hacia abajo el nivel de reorden.
func LowStockEvent(m *entity.Medication, before, after int64, at time.Time) *entity.DomainEvent {
	level := m.ReorderLevel
	if level <= 0 {
		level = entity.DefaultReorderLevel
	}
	if before < level || after >= level {
		return nil
	}
	return &entity.DomainEvent{
		ID:         uuid.New().String(),
		Type:       entity.EventStockLow,
		Subject:    m.ID,
		OccurredAt: at,
		Data: map[string]any{
			"medication_id":   m.ID,
			"medication_name": m.Name,
			"available":       after,
			"reorder_level":   level,
		},
	}
}
