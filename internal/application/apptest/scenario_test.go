package apptest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/jhoicas/pharmacy-inventory/internal/application/allocation"
	"github.com/jhoicas/pharmacy-inventory/internal/application/apptest"
	"github.com/jhoicas/pharmacy-inventory/internal/application/transfer"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/repository"
)

func auditCount(t *testing.T, env *apptest.Env) int {
	t.Helper()
	all, err := env.Audit.Query(context.Background(), repository.AuditFilter{})
	require.NoError(t, err)
	return len(all)
}

func TestEscenario_CompraReservaDespacho(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Amoxicilina", 10)

	batchID := env.Receive(t, med.ID, apptest.Location, 100, env.Clock.Today().AddDate(1, 0, 0), "4.00")
	assert.Equal(t, int64(100), env.Batch(t, batchID).QuantityOnHand)

	res := env.Reserve(t, med.ID, 30)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, entity.AllocationLine{ReservationID: res.ID, Ordinal: 1, BatchID: batchID, Quantity: 30}, res.Lines[0])

	_, err := env.Dispense.DispenseReservation(ctx, res.ID, apptest.Pharmacist)
	require.NoError(t, err)
	assert.Equal(t, int64(70), env.Batch(t, batchID).QuantityOnHand)

	trail, err := env.Audit.QueryAuditTrail(ctx, batchID, nil, nil)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, int64(100), trail[0].Delta())
	assert.Equal(t, int64(-30), trail[1].Delta())
}

func TestEscenario_AgotarExactoYUnoMas(t *testing.T) {
	env := apptest.New(t)
	med := env.Medication(t, "Ranitidina", 1)
	b1 := env.Receive(t, med.ID, apptest.Location, 5, env.Clock.Today().AddDate(0, 1, 0), "1.00")
	b2 := env.Receive(t, med.ID, "WARD-A", 10, env.Clock.Today().AddDate(0, 4, 0), "1.00")

	env.Reserve(t, med.ID, 15)
	assert.Zero(t, env.Batch(t, b1).Available())
	assert.Zero(t, env.Batch(t, b2).Available())

	_, err := env.Allocate.Allocate(context.Background(), allocation.AllocateInput{MedicationID: med.ID, Quantity: 1, Actor: apptest.Pharmacist})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestEscenario_DespachoYDevolucionRestauran(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Levotiroxina", 1)
	batchID := env.Receive(t, med.ID, apptest.Location, 60, env.Clock.Today().AddDate(1, 0, 0), "2.00")
	before := env.Batch(t, batchID).QuantityOnHand

	res := env.Reserve(t, med.ID, 25)
	rec, err := env.Dispense.DispenseReservation(ctx, res.ID, apptest.Pharmacist)
	require.NoError(t, err)
	out, err := env.Transfer.ReturnStock(ctx, transfer.ReturnInput{
		Kind: entity.ReturnPatient, BatchID: batchID, Quantity: 25, RelatedDispenseID: rec.ID, Actor: apptest.Pharmacist,
	})
	require.NoError(t, err)
	assert.Equal(t, before, out.AdjustedQuantity)
	assert.Equal(t, before, env.Batch(t, batchID).QuantityOnHand)

	linked, err := env.Audit.Query(ctx, repository.AuditFilter{CorrelationID: rec.ID})
	require.NoError(t, err)
	require.Len(t, linked, 2)
	assert.Equal(t, -linked[0].Delta(), linked[1].Delta())
}

func TestEscenario_SegundaAprobacionSinAuditoriaNueva(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Fluconazol", 1)
	po := env.ApprovedOrder(t, med.ID, 12)
	g := env.PendingGRN(t, po, apptest.Location, 12, env.Clock.Today().AddDate(1, 0, 0), "6.00")

	ids, err := env.Purchase.ApproveGRN(ctx, g.ID, apptest.Approver)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	entries := auditCount(t, env)

	_, err = env.Purchase.ApproveGRN(ctx, g.ID, apptest.Approver)
	require.ErrorIs(t, err, domain.ErrAlreadyApproved)
	assert.Equal(t, entries, auditCount(t, env))
}
