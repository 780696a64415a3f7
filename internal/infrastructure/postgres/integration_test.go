//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/pharmacy-inventory/internal/application/allocation"
	"github.com/jhoicas/pharmacy-inventory/internal/application/catalog"
	"github.com/jhoicas/pharmacy-inventory/internal/application/dispensing"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ledger"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/application/purchase"
	"github.com/jhoicas/pharmacy-inventory/internal/application/transfer"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
	"github.com/jhoicas/pharmacy-inventory/internal/infrastructure/postgres"
	"github.com/jhoicas/pharmacy-inventory/internal/infrastructure/retry"
	"github.com/jhoicas/pharmacy-inventory/pkg/config"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const holdTimeout = time.Minute

type InventoryIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	tx        ports.TxRunner
	ledger    *ledger.Ledger
	log       zerolog.Logger

	catalog  *catalog.MedicationUseCase
	purchase *purchase.PurchaseUseCase
	allocate *allocation.AllocateUseCase
	dispense *dispensing.DispenseUseCase
	transfer *transfer.TransferUseCase
	audit    *ledger.AuditQuery
}

func TestInventoryIntegration(t *testing.T) {
	suite.Run(t, new(InventoryIntegrationSuite))
}

func (s *InventoryIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := tcpostgres.Run(s.ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("pharmacy_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.pool, err = postgres.NewPool(s.ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 20}, 2*time.Second)
	s.Require().NoError(err)

	// Dos veces: el esquema es idempotente.
	s.Require().NoError(postgres.Migrate(s.ctx, s.pool))
	s.Require().NoError(postgres.Migrate(s.ctx, s.pool))

	s.log = zerolog.Nop()
	s.tx = retry.NewRunner(postgres.NewTxRunner(s.pool), retry.Config{
		MaxRetries: 10,
		BaseDelay:  5 * time.Millisecond,
		MaxDelay:   100 * time.Millisecond,
	}, nil, s.log)
	s.ledger = ledger.New()
	s.catalog = catalog.NewMedicationUseCase(s.tx)
	s.purchase = purchase.NewPurchaseUseCase(s.tx, s.ledger, nil, s.log)
	s.allocate = allocation.NewAllocateUseCase(s.tx, s.ledger, nil, nil, s.log, holdTimeout)
	s.dispense = dispensing.NewDispenseUseCase(s.tx, s.ledger, nil, nil, s.log)
	s.transfer = transfer.NewTransferUseCase(s.tx, s.ledger, nil, nil, s.log)
	s.audit = ledger.NewAuditQuery(s.tx)
}

func (s *InventoryIntegrationSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		s.Require().NoError(s.container.Terminate(s.ctx))
	}
}

// pendingGRN registra un medicamento, aprueba una orden por qty y deja un GRN en
// PENDING_APPROVAL en MAIN. Devuelve medicamento, orden y GRN.
func (s *InventoryIntegrationSuite) pendingGRN(name string, qty int64) (string, string, string) {
	m, err := s.catalog.Create(s.ctx, catalog.MedicationInput{Name: name, Strength: "500 mg", DosageForm: "TABLET"})
	s.Require().NoError(err)

	po, err := s.purchase.CreatePurchaseOrder(s.ctx, "SUP-1", []purchase.OrderLineInput{
		{MedicationID: m.ID, Quantity: qty, UnitPrice: decimal.RequireFromString("2.50")},
	}, "storekeeper")
	s.Require().NoError(err)
	_, err = s.purchase.SubmitPurchaseOrder(s.ctx, po.ID, "storekeeper")
	s.Require().NoError(err)
	_, err = s.purchase.ApprovePurchaseOrder(s.ctx, po.ID, "approver")
	s.Require().NoError(err)

	g, err := s.purchase.CreateGRN(s.ctx, purchase.CreateGRNInput{
		PurchaseOrderID: po.ID,
		LocationID:      "MAIN",
		Lines: []purchase.GRNLineInput{{
			PurchaseOrderLineID: po.Lines[0].ID,
			Quantity:            qty,
			ExpiryDate:          time.Now().AddDate(1, 0, 0),
			UnitSellingPrice:    decimal.RequireFromString("4.00"),
		}},
		Actor: "storekeeper",
	})
	s.Require().NoError(err)
	_, err = s.purchase.SubmitGRN(s.ctx, g.ID, "storekeeper")
	s.Require().NoError(err)
	return m.ID, po.ID, g.ID
}

// receive ingresa qty unidades en MAIN; devuelve medicamento y lote.
func (s *InventoryIntegrationSuite) receive(name string, qty int64) (string, string) {
	medID, _, grnID := s.pendingGRN(name, qty)
	ids, err := s.purchase.ApproveGRN(s.ctx, grnID, "approver")
	s.Require().NoError(err)
	s.Require().Len(ids, 1)
	return medID, ids[0]
}

func (s *InventoryIntegrationSuite) batch(id string) *entity.StockBatch {
	var b *entity.StockBatch
	err := s.tx.Run(s.ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		b, err = repos.Batches.GetByID(ctx, id)
		return err
	})
	s.Require().NoError(err)
	s.Require().NotNil(b)
	return b
}

// runConcurrently ejecuta fns a la vez y devuelve sus errores en el mismo orden.
func runConcurrently(fns ...func() error) []error {
	errs := make([]error, len(fns))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Add(1)
		go func(i int, fn func() error) {
			defer wg.Done()
			<-start
			errs[i] = fn()
		}(i, fn)
	}
	close(start)
	wg.Wait()
	return errs
}

func (s *InventoryIntegrationSuite) TestFlujoCompleto() {
	medID, batchID := s.receive("Amoxicilina", 100)

	res, err := s.allocate.Allocate(s.ctx, allocation.AllocateInput{MedicationID: medID, Quantity: 30, Actor: "pharmacist"})
	s.Require().NoError(err)
	s.Require().Len(res.Lines, 1)
	s.Equal(batchID, res.Lines[0].BatchID)

	rec, err := s.dispense.DispenseReservation(s.ctx, res.ID, "pharmacist")
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("120").Equal(rec.Total))

	_, err = s.dispense.DispenseReservation(s.ctx, res.ID, "pharmacist")
	s.ErrorIs(err, domain.ErrReservationNotHeld)

	b := s.batch(batchID)
	s.Equal(int64(70), b.QuantityOnHand)
	s.Equal(int64(0), b.QuantityReserved)

	trail, err := s.audit.QueryAuditTrail(s.ctx, batchID, nil, nil)
	s.Require().NoError(err)
	s.Require().Len(trail, 2)
	s.Equal(int64(100), trail[0].Delta())
	s.Equal(int64(-30), trail[1].Delta())

	got, err := s.dispense.GetDispense(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Len(got.Lines, 1)
}

func (s *InventoryIntegrationSuite) TestRestriccionesDeLaTabla() {
	medID, batchID := s.receive("Omeprazol", 10)
	b := s.batch(batchID)

	err := s.tx.Run(s.ctx, func(ctx context.Context, repos ports.Repos) error {
		return repos.Batches.UpdateQuantities(ctx, batchID, 5, 8)
	})
	s.ErrorIs(err, domain.ErrInsufficientStock)

	err = s.tx.Run(s.ctx, func(ctx context.Context, repos ports.Repos) error {
		_, err := s.ledger.PostReceipt(ctx, repos, &entity.StockBatch{
			MedicationID:   medID,
			BatchNumber:    b.BatchNumber,
			LocationID:     b.LocationID,
			QuantityOnHand: 1,
			ExpiryDate:     b.ExpiryDate,
			ReceivedDate:   time.Now(),
			SourceType:     entity.BatchSourceGRN,
		}, ledger.Mutation{Actor: "storekeeper", At: time.Now()})
		return err
	})
	s.ErrorIs(err, domain.ErrDuplicateBatch)

	_, err = s.catalog.Update(s.ctx, medID, catalog.MedicationInput{Name: "Omeprazol", Strength: "20 mg", DosageForm: "CAPSULE"})
	s.ErrorIs(err, domain.ErrMedicationInUse)
}

func (s *InventoryIntegrationSuite) TestReservasConcurrentes() {
	medID, batchID := s.receive("Paracetamol", 20)

	const workers = 10
	fns := make([]func() error, workers)
	for i := range fns {
		fns[i] = func() error {
			_, err := s.allocate.Allocate(s.ctx, allocation.AllocateInput{MedicationID: medID, Quantity: 3, Actor: "pharmacist"})
			return err
		}
	}

	var ok, insufficient int
	for _, err := range runConcurrently(fns...) {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		default:
			s.Failf("error inesperado", "%v", err)
		}
	}

	s.Equal(6, ok, "20 unidades alcanzan para 6 reservas de 3")
	s.Equal(4, insufficient)
	b := s.batch(batchID)
	s.Equal(int64(18), b.QuantityReserved)
	s.Equal(int64(20), b.QuantityOnHand)
}

func (s *InventoryIntegrationSuite) TestAprobacionesConcurrentesDelGRN() {
	medID, poID, grnID := s.pendingGRN("Cetirizina", 40)

	var mu sync.Mutex
	var created []string
	approve := func() error {
		ids, err := s.purchase.ApproveGRN(s.ctx, grnID, "approver")
		if err == nil {
			mu.Lock()
			created = append(created, ids...)
			mu.Unlock()
		}
		return err
	}
	errs := runConcurrently(approve, approve)

	var ok, already int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrAlreadyApproved):
			already++
		default:
			s.Failf("error inesperado", "%v", err)
		}
	}
	s.Equal(1, ok)
	s.Equal(1, already)
	s.Require().Len(created, 1)

	batches, err := s.catalog.ListBatches(s.ctx, medID)
	s.Require().NoError(err)
	s.Require().Len(batches, 1)
	s.Equal(int64(40), batches[0].QuantityOnHand)

	trail, err := s.audit.QueryAuditTrail(s.ctx, created[0], nil, nil)
	s.Require().NoError(err)
	s.Len(trail, 1)

	po, err := s.purchase.GetPurchaseOrder(s.ctx, poID)
	s.Require().NoError(err)
	s.Equal(int64(40), po.Lines[0].ReceivedQuantity)
	s.Equal(entity.POStatusClosed, po.Status)
}

func (s *InventoryIntegrationSuite) TestTransferenciasOpuestasSinBloqueoMutuo() {
	_, mainID := s.receive("Salbutamol", 50)

	seed := s.approvedTransfer("MAIN", "WARD", mainID, 20)
	done, err := s.transfer.CompleteTransfer(s.ctx, seed.ID, "storekeeper")
	s.Require().NoError(err)
	wardID := done.DestBatchID

	// Con ambos lotes existentes, cada transferencia bloquea los dos en orden de id.
	forward := s.approvedTransfer("MAIN", "WARD", mainID, 5)
	backward := s.approvedTransfer("WARD", "MAIN", wardID, 5)
	errs := runConcurrently(
		func() error { _, err := s.transfer.CompleteTransfer(s.ctx, forward.ID, "storekeeper"); return err },
		func() error { _, err := s.transfer.CompleteTransfer(s.ctx, backward.ID, "storekeeper"); return err },
	)
	s.NoError(errs[0])
	s.NoError(errs[1])

	mainBatch, wardBatch := s.batch(mainID), s.batch(wardID)
	s.Equal(int64(30), mainBatch.QuantityOnHand)
	s.Equal(int64(20), wardBatch.QuantityOnHand)
	s.Equal(mainBatch.BatchNumber, wardBatch.BatchNumber)

	for _, id := range []string{mainID, wardID} {
		trail, err := s.audit.QueryAuditTrail(s.ctx, id, nil, nil)
		s.Require().NoError(err)
		var sum int64
		for _, e := range trail {
			sum += e.Delta()
		}
		s.Equal(s.batch(id).QuantityOnHand, sum, "la auditoría reconstruye las existencias de %s", id)
	}
}

func (s *InventoryIntegrationSuite) approvedTransfer(from, to, batchID string, qty int64) *entity.StockTransfer {
	t, err := s.transfer.RequestTransfer(s.ctx, transfer.TransferInput{
		SourceLocationID: from,
		DestLocationID:   to,
		BatchID:          batchID,
		Quantity:         qty,
		Actor:            "storekeeper",
	})
	s.Require().NoError(err)
	t, err = s.transfer.ApproveTransfer(s.ctx, t.ID, "approver")
	s.Require().NoError(err)
	return t
}

func (s *InventoryIntegrationSuite) TestDespachoCompiteConBarrido() {
	medID, batchID := s.receive("Diclofenaco", 30)
	res, err := s.allocate.Allocate(s.ctx, allocation.AllocateInput{MedicationID: medID, Quantity: 10, Actor: "pharmacist"})
	s.Require().NoError(err)

	late := time.Now().Add(2 * holdTimeout)
	sweeper := allocation.NewAllocateUseCase(s.tx, s.ledger, nil, nil, s.log, holdTimeout).
		WithClock(func() time.Time { return late })

	errs := runConcurrently(
		func() error { _, err := s.dispense.DispenseReservation(s.ctx, res.ID, "pharmacist"); return err },
		func() error { _, err := sweeper.SweepExpired(s.ctx); return err },
	)
	s.Require().NoError(errs[1])

	got, err := s.allocate.GetReservation(s.ctx, res.ID)
	s.Require().NoError(err)
	b := s.batch(batchID)
	s.Equal(int64(0), b.QuantityReserved)

	// Exactamente uno de los dos gana.
	if errs[0] == nil {
		s.Equal(entity.ReservationCommitted, got.Status)
		s.Equal(int64(20), b.QuantityOnHand)
	} else {
		s.ErrorIs(errs[0], domain.ErrReservationExpired)
		s.Equal(entity.ReservationExpired, got.Status)
		s.Equal(int64(30), b.QuantityOnHand)
	}
}

func (s *InventoryIntegrationSuite) TestNumeracionNoSerializaTransacciones() {
	begin := func() pgx.Tx {
		tx, err := s.pool.BeginTx(s.ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		s.Require().NoError(err)
		return tx
	}
	t1, t2 := begin(), begin()
	defer func() { _ = t1.Rollback(s.ctx) }()
	defer func() { _ = t2.Rollback(s.ctx) }()

	ctx, cancel := context.WithTimeout(s.ctx, 3*time.Second)
	defer cancel()
	n1, err := postgres.NewSequenceRepository(t1).Next(ctx, "RSV")
	s.Require().NoError(err)
	n2, err := postgres.NewSequenceRepository(t2).Next(ctx, "RSV")
	s.Require().NoError(err, "la segunda transacción no espera a la primera")

	s.Require().NoError(t1.Commit(s.ctx))
	s.Require().NoError(t2.Commit(s.ctx))
	s.Greater(n2, n1)

	_, err = postgres.NewSequenceRepository(s.pool).Next(s.ctx, "XYZ")
	s.ErrorIs(err, domain.ErrInvalidInput)
}
