// Package apptest arma los casos de uso sobre el store en memoria para las pruebas de la
// capa de aplicación, con reloj controlable y publicador que registra los eventos.
package apptest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/jhoicas/pharmacy-inventory/internal/application/allocation"
	"github.com/jhoicas/pharmacy-inventory/internal/application/catalog"
	"github.com/jhoicas/pharmacy-inventory/internal/application/dispensing"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ledger"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/application/purchase"
	"github.com/jhoicas/pharmacy-inventory/internal/application/transfer"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
	"github.com/jhoicas/pharmacy-inventory/internal/infrastructure/memory"
	"github.com/jhoicas/pharmacy-inventory/internal/infrastructure/retry"
)

// Actores usados por los helpers.
const (
	Storekeeper = "storekeeper-1"
	Approver    = "approver-1"
	Pharmacist  = "pharmacist-1"
	Location    = "MAIN"
)

// HoldTimeout plazo de retención de las reservas creadas por Env.
const HoldTimeout = 15 * time.Minute

// Clock reloj manual.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock reloj detenido en t.
func NewClock(t time.Time) *Clock { return &Clock{t: t} }

// Now hora actual del reloj.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance adelanta el reloj d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Today fecha del reloj a las 00:00 UTC.
func (c *Clock) Today() time.Time { return entity.Day(c.Now()) }

// RecordingPublisher guarda los eventos publicados.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []entity.DomainEvent
}

func (p *RecordingPublisher) Publish(_ context.Context, events ...entity.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

// OfType eventos publicados del tipo dado, en orden.
func (p *RecordingPublisher) OfType(eventType string) []entity.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []entity.DomainEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Env casos de uso compartiendo store, ledger, reloj y publicador.
type Env struct {
	Store    *memory.Store
	Tx       ports.TxRunner
	Ledger   *ledger.Ledger
	Clock    *Clock
	Events   *RecordingPublisher
	Catalog  *catalog.MedicationUseCase
	Purchase *purchase.PurchaseUseCase
	Allocate *allocation.AllocateUseCase
	Dispense *dispensing.DispenseUseCase
	Transfer *transfer.TransferUseCase
	Audit    *ledger.AuditQuery
}

// New construye un Env con el reloj en el 10 de marzo de 2026, 10:00 UTC.
func New(t testing.TB) *Env {
	t.Helper()
	store := memory.NewStore(2 * time.Second)
	tx := retry.NewRunner(store, retry.Config{MaxRetries: 5, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}, nil, zerolog.Nop())
	clock := NewClock(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC))
	events := &RecordingPublisher{}
	l := ledger.New()
	log := zerolog.Nop()
	return &Env{
		Store:    store,
		Tx:       tx,
		Ledger:   l,
		Clock:    clock,
		Events:   events,
		Catalog:  catalog.NewMedicationUseCase(tx),
		Purchase: purchase.NewPurchaseUseCase(tx, l, events, log).WithClock(clock.Now),
		Allocate: allocation.NewAllocateUseCase(tx, l, events, nil, log, HoldTimeout).WithClock(clock.Now),
		Dispense: dispensing.NewDispenseUseCase(tx, l, events, nil, log).WithClock(clock.Now),
		Transfer: transfer.NewTransferUseCase(tx, l, events, nil, log).WithClock(clock.Now),
		Audit:    ledger.NewAuditQuery(tx),
	}
}

// Medication registra un medicamento con el nivel de reorden dado.
func (e *Env) Medication(t testing.TB, name string, reorderLevel int64) *entity.Medication {
	t.Helper()
	m, err := e.Catalog.Create(context.Background(), catalog.MedicationInput{
		Name:         name,
		Strength:     "500 mg",
		DosageForm:   "TABLET",
		ReorderLevel: &reorderLevel,
	})
	require.NoError(t, err)
	return m
}

// ApprovedOrder crea, envía y aprueba una orden de compra de una línea.
func (e *Env) ApprovedOrder(t testing.TB, medicationID string, qty int64) *entity.PurchaseOrder {
	t.Helper()
	ctx := context.Background()
	po, err := e.Purchase.CreatePurchaseOrder(ctx, "SUP-1", []purchase.OrderLineInput{
		{MedicationID: medicationID, Quantity: qty, UnitPrice: decimal.RequireFromString("2.00")},
	}, Storekeeper)
	require.NoError(t, err)
	_, err = e.Purchase.SubmitPurchaseOrder(ctx, po.ID, Storekeeper)
	require.NoError(t, err)
	po, err = e.Purchase.ApprovePurchaseOrder(ctx, po.ID, Approver)
	require.NoError(t, err)
	return po
}

// PendingGRN crea y envía un GRN de una línea contra la orden.
func (e *Env) PendingGRN(t testing.TB, po *entity.PurchaseOrder, location string, qty int64, expiry time.Time, sellingPrice string) *entity.GoodsReceiptNote {
	t.Helper()
	ctx := context.Background()
	g, err := e.Purchase.CreateGRN(ctx, purchase.CreateGRNInput{
		PurchaseOrderID: po.ID,
		LocationID:      location,
		InvoiceNumber:   "FAC-" + po.Number,
		Lines: []purchase.GRNLineInput{{
			PurchaseOrderLineID: po.Lines[0].ID,
			Quantity:            qty,
			ExpiryDate:          expiry,
			UnitSellingPrice:    decimal.RequireFromString(sellingPrice),
		}},
		Actor: Storekeeper,
	})
	require.NoError(t, err)
	g, err = e.Purchase.SubmitGRN(ctx, g.ID, Storekeeper)
	require.NoError(t, err)
	return g
}

// Receive ingresa qty unidades por el flujo completo de compras y devuelve el id del lote.
func (e *Env) Receive(t testing.TB, medicationID, location string, qty int64, expiry time.Time, sellingPrice string) string {
	t.Helper()
	po := e.ApprovedOrder(t, medicationID, qty)
	g := e.PendingGRN(t, po, location, qty, expiry, sellingPrice)
	ids, err := e.Purchase.ApproveGRN(context.Background(), g.ID, Approver)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	return ids[0]
}

// Batch lee el lote directamente del store.
func (e *Env) Batch(t testing.TB, id string) *entity.StockBatch {
	t.Helper()
	var b *entity.StockBatch
	err := e.Tx.Run(context.Background(), func(ctx context.Context, repos ports.Repos) error {
		var err error
		b, err = repos.Batches.GetByID(ctx, id)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}

// Reserve reserva qty del medicamento en cualquier ubicación.
func (e *Env) Reserve(t testing.TB, medicationID string, qty int64) *entity.Reservation {
	t.Helper()
	res, err := e.Allocate.Allocate(context.Background(), allocation.AllocateInput{
		MedicationID:       medicationID,
		Quantity:           qty,
		PrescriptionLineID: "RX-" + medicationID,
		Actor:              Pharmacist,
	})
	require.NoError(t, err)
	return res
}

// OnHandFromAudit suma los deltas de las entradas BATCH del lote: debe igualar on_hand.
func (e *Env) OnHandFromAudit(t testing.TB, batchID string) int64 {
	t.Helper()
	entries, err := e.Audit.QueryAuditTrail(context.Background(), batchID, nil, nil)
	require.NoError(t, err)
	var sum int64
	for _, a := range entries {
		if a.SubjectEntity == entity.SubjectBatch {
			sum += a.Delta()
		}
	}
	return sum
}
