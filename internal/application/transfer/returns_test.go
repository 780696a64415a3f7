package transfer_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/jhoicas/pharmacy-inventory/internal/application/apptest"
	"github.com/jhoicas/pharmacy-inventory/internal/application/transfer"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/repository"
)

func auditByCorrelation(id string) repository.AuditFilter {
	return repository.AuditFilter{CorrelationID: id}
}

// dispensed deja un despacho de qty unidades desde un lote de 100.
func dispensed(t *testing.T, env *apptest.Env, qty int64) (batchID string, rec *entity.DispenseRecord) {
	t.Helper()
	med := env.Medication(t, "Amoxicilina", 1)
	batchID = env.Receive(t, med.ID, apptest.Location, 100, env.Clock.Today().AddDate(1, 0, 0), "4.00")
	res := env.Reserve(t, med.ID, qty)
	rec, err := env.Dispense.DispenseReservation(context.Background(), res.ID, apptest.Pharmacist)
	require.NoError(t, err)
	return batchID, rec
}

// ──────────────────────────────────────────────────────────────────────────────
// Devoluciones de paciente
// ──────────────────────────────────────────────────────────────────────────────

func TestPatientReturn_SinAbrirVuelveAlStock(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	batchID, rec := dispensed(t, env, 30)

	out, err := env.Transfer.ReturnStock(ctx, transfer.ReturnInput{
		Kind:              entity.ReturnPatient,
		BatchID:           batchID,
		Quantity:          10,
		RelatedDispenseID: rec.ID,
		Actor:             apptest.Pharmacist,
	})
	require.NoError(t, err)
	assert.True(t, out.Record.Restocked)
	assert.Equal(t, entity.ConditionUnopened, out.Record.Condition)
	assert.Equal(t, int64(80), out.AdjustedQuantity)
	assert.True(t, decimal.RequireFromString("40").Equal(out.Record.RefundAmount))

	// La devolución queda correlacionada con el despacho original.
	byDispense, err := env.Audit.Query(ctx, auditByCorrelation(rec.ID))
	require.NoError(t, err)
	require.Len(t, byDispense, 2)
	assert.Equal(t, entity.OpDispense, byDispense[0].Operation)
	assert.Equal(t, entity.OpPatientReturn, byDispense[1].Operation)
	assert.Equal(t, int64(10), byDispense[1].Delta())

	assert.Equal(t, int64(80), env.OnHandFromAudit(t, batchID))
}

func TestPatientReturn_AbiertoNoVuelveAlStock(t *testing.T) {
	env := apptest.New(t)
	batchID, rec := dispensed(t, env, 30)

	out, err := env.Transfer.ReturnStock(context.Background(), transfer.ReturnInput{
		Kind:              entity.ReturnPatient,
		BatchID:           batchID,
		Quantity:          5,
		RelatedDispenseID: rec.ID,
		Condition:         entity.ConditionOpened,
		Actor:             apptest.Pharmacist,
	})
	require.NoError(t, err)
	assert.False(t, out.Record.Restocked)
	assert.Equal(t, int64(70), out.AdjustedQuantity)
	assert.Equal(t, int64(70), env.Batch(t, batchID).QuantityOnHand)

	got, err := env.Transfer.GetReturn(context.Background(), out.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.RelatedDispenseID)
}

func TestPatientReturn_NoSuperaLoDespachado(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	batchID, rec := dispensed(t, env, 30)
	in := transfer.ReturnInput{Kind: entity.ReturnPatient, BatchID: batchID, RelatedDispenseID: rec.ID, Actor: apptest.Pharmacist}

	in.Quantity = 20
	_, err := env.Transfer.ReturnStock(ctx, in)
	require.NoError(t, err)

	in.Quantity = 11
	_, err = env.Transfer.ReturnStock(ctx, in)
	require.ErrorIs(t, err, domain.ErrOverReturn)
	var v *domain.Violation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, int64(11), v.Requested)
	assert.Equal(t, int64(10), v.Available)

	in.Quantity = 10
	in.Condition = entity.ConditionDamaged
	_, err = env.Transfer.ReturnStock(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(90), env.Batch(t, batchID).QuantityOnHand)
}

func TestPatientReturn_Validaciones(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	batchID, rec := dispensed(t, env, 5)

	_, err := env.Transfer.ReturnStock(ctx, transfer.ReturnInput{Kind: entity.ReturnPatient, BatchID: batchID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.Transfer.ReturnStock(ctx, transfer.ReturnInput{Kind: entity.ReturnPatient, BatchID: batchID, Quantity: 1, RelatedDispenseID: rec.ID, Condition: "ROTO"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.Transfer.ReturnStock(ctx, transfer.ReturnInput{Kind: entity.ReturnPatient, BatchID: batchID, Quantity: 1, RelatedDispenseID: "no-existe"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.Transfer.ReturnStock(ctx, transfer.ReturnInput{Kind: "OTRO", BatchID: batchID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Devoluciones a proveedor
// ──────────────────────────────────────────────────────────────────────────────

func TestSupplierReturn_DescuentaYRegistraCredito(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Dipirona", 10)
	batchID := env.Receive(t, med.ID, apptest.Location, 15, env.Clock.Today().AddDate(0, 2, 0), "1.00")

	out, err := env.Transfer.ReturnStock(ctx, transfer.ReturnInput{
		Kind:     entity.ReturnSupplier,
		BatchID:  batchID,
		Quantity: 6,
		Reason:   entity.ReasonNearExpiry,
		Actor:    apptest.Storekeeper,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), out.AdjustedQuantity)
	// Precio de compra de la orden: 2.00 por unidad.
	assert.True(t, decimal.RequireFromString("12").Equal(out.Record.CreditAmount))

	credit := env.Events.OfType(entity.EventSupplierCredit)
	require.Len(t, credit, 1)
	assert.Equal(t, out.Record.ID, credit[0].CorrelationID)
	assert.Len(t, env.Events.OfType(entity.EventStockLow), 1)

	trail, err := env.Audit.Query(ctx, auditByCorrelation(out.Record.ID))
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, entity.OpSupplierReturn, trail[0].Operation)
	assert.Equal(t, int64(-6), trail[0].Delta())
}

func TestSupplierReturn_NoTocaLoReservado(t *testing.T) {
	env := apptest.New(t)
	med := env.Medication(t, "Tramadol", 1)
	batchID := env.Receive(t, med.ID, apptest.Location, 10, env.Clock.Today().AddDate(0, 6, 0), "1.00")
	env.Reserve(t, med.ID, 7)

	_, err := env.Transfer.ReturnStock(context.Background(), transfer.ReturnInput{
		Kind: entity.ReturnSupplier, BatchID: batchID, Quantity: 4, Reason: entity.ReasonDamaged, Actor: apptest.Storekeeper,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(10), env.Batch(t, batchID).QuantityOnHand)
	assert.Empty(t, env.Events.OfType(entity.EventSupplierCredit))

	_, err = env.Transfer.ReturnStock(context.Background(), transfer.ReturnInput{
		Kind: entity.ReturnSupplier, BatchID: batchID, Quantity: 1, Reason: "CAPRICHO",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
