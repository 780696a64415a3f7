// Package memory implementa los repositorios en memoria. Cada transacción trabaja sobre una
// copia del estado que solo reemplaza al original si fn termina sin error.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

var _ ports.TxRunner = (*Store)(nil)

type state struct {
	medications  map[string]*entity.Medication
	batches      map[string]*entity.StockBatch
	orders       map[string]*entity.PurchaseOrder
	receipts     map[string]*entity.GoodsReceiptNote
	reservations map[string]*entity.Reservation
	dispenses    map[string]*entity.DispenseRecord
	returns      map[string]*entity.ReturnRecord
	transfers    map[string]*entity.StockTransfer
	audit        []*entity.AuditEntry
	sequences    map[string]int64
}

func newState() *state {
	return &state{
		medications:  map[string]*entity.Medication{},
		batches:      map[string]*entity.StockBatch{},
		orders:       map[string]*entity.PurchaseOrder{},
		receipts:     map[string]*entity.GoodsReceiptNote{},
		reservations: map[string]*entity.Reservation{},
		dispenses:    map[string]*entity.DispenseRecord{},
		returns:      map[string]*entity.ReturnRecord{},
		transfers:    map[string]*entity.StockTransfer{},
		sequences:    map[string]int64{},
	}
}

// Store serializa las transacciones con un único candado de espera acotada.
type Store struct {
	sem         chan struct{}
	lockTimeout time.Duration

	mu       sync.Mutex // protege st y auditErr para lecturas fuera de Run
	st       *state
	auditErr error
}

// NewStore construye un store vacío. lockTimeout <= 0 usa 5s.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &Store{
		sem:         make(chan struct{}, 1),
		lockTimeout: lockTimeout,
		st:          newState(),
	}
}

// FailAuditWith hace que Append devuelva err (nil lo desactiva).
func (s *Store) FailAuditWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditErr = err
}

// Run adquiere el candado con espera acotada; si no lo obtiene a tiempo devuelve
// domain.ErrConcurrencyConflict.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos ports.Repos) error) error {
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()
	select {
	case s.sem <- struct{}{}:
	case <-timer.C:
		return domain.ErrConcurrencyConflict
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()

	s.mu.Lock()
	work := s.st.clone()
	auditErr := s.auditErr
	s.mu.Unlock()

	if err := fn(ctx, newRepos(work, auditErr)); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = work
	s.mu.Unlock()
	return nil
}

func newRepos(st *state, auditErr error) ports.Repos {
	return ports.Repos{
		Medications:    &medicationRepo{st: st},
		Batches:        &batchRepo{st: st},
		PurchaseOrders: &orderRepo{st: st},
		GoodsReceipts:  &receiptRepo{st: st},
		Reservations:   &reservationRepo{st: st},
		Dispenses:      &dispenseRepo{st: st},
		Returns:        &returnRepo{st: st},
		Transfers:      &transferRepo{st: st},
		Audit:          &auditRepo{st: st, failWith: auditErr},
		Sequences:      &sequenceRepo{st: st},
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.medications {
		m := *v
		c.medications[k] = &m
	}
	for k, v := range st.batches {
		c.batches[k] = copyBatch(v)
	}
	for k, v := range st.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range st.receipts {
		c.receipts[k] = copyReceipt(v)
	}
	for k, v := range st.reservations {
		c.reservations[k] = copyReservation(v)
	}
	for k, v := range st.dispenses {
		c.dispenses[k] = copyDispense(v)
	}
	for k, v := range st.returns {
		r := *v
		c.returns[k] = &r
	}
	for k, v := range st.transfers {
		t := *v
		c.transfers[k] = &t
	}
	// Las entradas de auditoría nunca se modifican: basta copiar el slice.
	c.audit = append(make([]*entity.AuditEntry, 0, len(st.audit)+8), st.audit...)
	for k, v := range st.sequences {
		c.sequences[k] = v
	}
	return c
}

func copyBatch(b *entity.StockBatch) *entity.StockBatch {
	c := *b
	return &c
}

func copyOrder(po *entity.PurchaseOrder) *entity.PurchaseOrder {
	c := *po
	c.Lines = append([]entity.PurchaseOrderLine(nil), po.Lines...)
	return &c
}

func copyReceipt(g *entity.GoodsReceiptNote) *entity.GoodsReceiptNote {
	c := *g
	c.Lines = append([]entity.GoodsReceiptLine(nil), g.Lines...)
	return &c
}

func copyReservation(r *entity.Reservation) *entity.Reservation {
	c := *r
	c.Lines = append([]entity.AllocationLine(nil), r.Lines...)
	return &c
}

func copyDispense(d *entity.DispenseRecord) *entity.DispenseRecord {
	c := *d
	c.Lines = append([]entity.DispenseLine(nil), d.Lines...)
	return &c
}
