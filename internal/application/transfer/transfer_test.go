package transfer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/jhoicas/pharmacy-inventory/internal/application/apptest"
	"github.com/jhoicas/pharmacy-inventory/internal/application/transfer"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Transferencias
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_CicloCompleto(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Ceftriaxona", 1)
	srcID := env.Receive(t, med.ID, apptest.Location, 50, env.Clock.Today().AddDate(0, 10, 0), "12.00")

	tr, err := env.Transfer.RequestTransfer(ctx, transfer.TransferInput{
		SourceLocationID: apptest.Location,
		DestLocationID:   "WARD-A",
		BatchID:          srcID,
		Quantity:         20,
		Reason:           "reposición de piso",
		Actor:            apptest.Storekeeper,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.TransferRequested, tr.Status)
	assert.Equal(t, int64(50), env.Batch(t, srcID).QuantityOnHand)

	_, err = env.Transfer.CompleteTransfer(ctx, tr.ID, apptest.Storekeeper)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = env.Transfer.ApproveTransfer(ctx, tr.ID, apptest.Approver)
	require.NoError(t, err)
	done, err := env.Transfer.CompleteTransfer(ctx, tr.ID, apptest.Storekeeper)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCompleted, done.Status)
	require.NotEmpty(t, done.DestBatchID)

	src := env.Batch(t, srcID)
	dst := env.Batch(t, done.DestBatchID)
	assert.Equal(t, int64(30), src.QuantityOnHand)
	assert.Equal(t, int64(20), dst.QuantityOnHand)
	assert.Equal(t, src.BatchNumber, dst.BatchNumber)
	assert.Equal(t, "WARD-A", dst.LocationID)
	assert.True(t, src.ExpiryDate.Equal(dst.ExpiryDate))
	assert.Equal(t, entity.BatchSourceTransferIn, dst.SourceType)

	byTransfer, err := env.Audit.Query(ctx, auditByCorrelation(tr.ID))
	require.NoError(t, err)
	require.Len(t, byTransfer, 2)
	assert.Equal(t, entity.OpTransferOut, byTransfer[0].Operation)
	assert.Equal(t, entity.OpTransferIn, byTransfer[1].Operation)

	_, err = env.Transfer.CompleteTransfer(ctx, tr.ID, apptest.Storekeeper)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestTransfer_SegundaTransferenciaIncrementaElLoteDestino(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Heparina", 1)
	srcID := env.Receive(t, med.ID, apptest.Location, 40, env.Clock.Today().AddDate(0, 10, 0), "7.00")

	move := func(qty int64) *entity.StockTransfer {
		tr, err := env.Transfer.RequestTransfer(ctx, transfer.TransferInput{
			SourceLocationID: apptest.Location, DestLocationID: "WARD-B", BatchID: srcID, Quantity: qty, Actor: apptest.Storekeeper,
		})
		require.NoError(t, err)
		_, err = env.Transfer.ApproveTransfer(ctx, tr.ID, apptest.Approver)
		require.NoError(t, err)
		tr, err = env.Transfer.CompleteTransfer(ctx, tr.ID, apptest.Storekeeper)
		require.NoError(t, err)
		return tr
	}
	first := move(10)
	second := move(5)

	assert.Equal(t, first.DestBatchID, second.DestBatchID)
	assert.Equal(t, int64(15), env.Batch(t, first.DestBatchID).QuantityOnHand)
	assert.Equal(t, int64(25), env.Batch(t, srcID).QuantityOnHand)
}

func TestTransfer_StockReservadoNoSeTransfiere(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Morfina", 1)
	srcID := env.Receive(t, med.ID, apptest.Location, 10, env.Clock.Today().AddDate(0, 10, 0), "30.00")

	tr, err := env.Transfer.RequestTransfer(ctx, transfer.TransferInput{
		SourceLocationID: apptest.Location, DestLocationID: "WARD-A", BatchID: srcID, Quantity: 8, Actor: apptest.Storekeeper,
	})
	require.NoError(t, err)
	_, err = env.Transfer.ApproveTransfer(ctx, tr.ID, apptest.Approver)
	require.NoError(t, err)

	// La reserva posterior deja solo 4 disponibles.
	env.Reserve(t, med.ID, 6)
	_, err = env.Transfer.CompleteTransfer(ctx, tr.ID, apptest.Storekeeper)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := env.Transfer.GetTransfer(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferApproved, got.Status)
	assert.Equal(t, int64(10), env.Batch(t, srcID).QuantityOnHand)

	_, err = env.Transfer.RequestTransfer(ctx, transfer.TransferInput{
		SourceLocationID: apptest.Location, DestLocationID: "WARD-A", BatchID: srcID, Quantity: 5, Actor: apptest.Storekeeper,
	})
	var v *domain.Violation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, domain.ErrInsufficientStock, v.Err)
	assert.Equal(t, int64(4), v.Available)
}

func TestTransfer_Validaciones(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Warfarina", 1)
	srcID := env.Receive(t, med.ID, apptest.Location, 10, env.Clock.Today().AddDate(0, 10, 0), "2.00")

	_, err := env.Transfer.RequestTransfer(ctx, transfer.TransferInput{
		SourceLocationID: apptest.Location, DestLocationID: apptest.Location, BatchID: srcID, Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.Transfer.RequestTransfer(ctx, transfer.TransferInput{
		SourceLocationID: "WARD-A", DestLocationID: "WARD-B", BatchID: srcID, Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	tr, err := env.Transfer.RequestTransfer(ctx, transfer.TransferInput{
		SourceLocationID: apptest.Location, DestLocationID: "WARD-B", BatchID: srcID, Quantity: 1,
	})
	require.NoError(t, err)
	rejected, err := env.Transfer.RejectTransfer(ctx, tr.ID, apptest.Approver)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferRejected, rejected.Status)
	_, err = env.Transfer.ApproveTransfer(ctx, tr.ID, apptest.Approver)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = env.Transfer.GetTransfer(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
