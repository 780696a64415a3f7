package purchase_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/jhoicas/pharmacy-inventory/internal/application/apptest"
	"github.com/jhoicas/pharmacy-inventory/internal/application/purchase"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Orden de compra
// ──────────────────────────────────────────────────────────────────────────────

func TestPurchaseOrder_Transiciones(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Amoxicilina", 1)

	po, err := env.Purchase.CreatePurchaseOrder(ctx, "SUP-9", []purchase.OrderLineInput{
		{MedicationID: med.ID, Quantity: 10, UnitPrice: decimal.RequireFromString("1.10")},
		{MedicationID: med.ID, Quantity: 5, UnitPrice: decimal.RequireFromString("2.00")},
	}, apptest.Storekeeper)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusDraft, po.Status)
	assert.True(t, strings.HasPrefix(po.Number, "PO-20260310-"))
	assert.True(t, decimal.RequireFromString("21").Equal(po.Total()))

	_, err = env.Purchase.ApprovePurchaseOrder(ctx, po.ID, apptest.Approver)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = env.Purchase.SubmitPurchaseOrder(ctx, po.ID, apptest.Storekeeper)
	require.NoError(t, err)
	approved, err := env.Purchase.ApprovePurchaseOrder(ctx, po.ID, apptest.Approver)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusApproved, approved.Status)
	assert.Equal(t, apptest.Approver, approved.ApprovedBy)

	_, err = env.Purchase.ApprovePurchaseOrder(ctx, po.ID, apptest.Approver)
	assert.ErrorIs(t, err, domain.ErrAlreadyApproved)
	_, err = env.Purchase.RejectPurchaseOrder(ctx, po.ID, apptest.Approver)
	assert.ErrorIs(t, err, domain.ErrAlreadyApproved)
}

func TestPurchaseOrder_Validaciones(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()

	_, err := env.Purchase.CreatePurchaseOrder(ctx, "", nil, apptest.Storekeeper)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.Purchase.CreatePurchaseOrder(ctx, "SUP-1", []purchase.OrderLineInput{{MedicationID: "no-existe", Quantity: 1}}, apptest.Storekeeper)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.Purchase.GetPurchaseOrder(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// GRN
// ──────────────────────────────────────────────────────────────────────────────

func TestGRN_RecepcionParcialYCierre(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Omeprazol", 1)
	po := env.ApprovedOrder(t, med.ID, 100)
	expiry := env.Clock.Today().AddDate(1, 0, 0)

	first := env.PendingGRN(t, po, apptest.Location, 60, expiry, "3.00")
	ids, err := env.Purchase.ApproveGRN(ctx, first.ID, apptest.Approver)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	b := env.Batch(t, ids[0])
	assert.Equal(t, first.Number+"-01", b.BatchNumber)
	assert.Equal(t, int64(60), b.QuantityOnHand)
	assert.True(t, decimal.RequireFromString("2.00").Equal(b.UnitPurchasePrice))
	assert.True(t, expiry.Equal(b.ExpiryDate))
	assert.Equal(t, first.ID, b.SourceRef)

	mid, err := env.Purchase.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusApproved, mid.Status)
	assert.Equal(t, int64(60), mid.Lines[0].ReceivedQuantity)

	second := env.PendingGRN(t, po, apptest.Location, 40, expiry, "3.00")
	_, err = env.Purchase.ApproveGRN(ctx, second.ID, apptest.Approver)
	require.NoError(t, err)

	closed, err := env.Purchase.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusClosed, closed.Status)
	assert.Len(t, env.Events.OfType(entity.EventGRNApproved), 2)
}

func TestGRN_AprobacionIdempotente(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Losartán", 1)
	po := env.ApprovedOrder(t, med.ID, 20)
	g := env.PendingGRN(t, po, apptest.Location, 20, env.Clock.Today().AddDate(1, 0, 0), "1.00")

	_, err := env.Purchase.ApproveGRN(ctx, g.ID, apptest.Approver)
	require.NoError(t, err)
	_, err = env.Purchase.ApproveGRN(ctx, g.ID, apptest.Approver)
	assert.ErrorIs(t, err, domain.ErrAlreadyApproved)

	batches, err := env.Catalog.ListBatches(ctx, med.ID)
	require.NoError(t, err)
	assert.Len(t, batches, 1)
	assert.Len(t, env.Events.OfType(entity.EventGRNApproved), 1)

	_, err = env.Purchase.RejectGRN(ctx, g.ID, apptest.Approver)
	assert.ErrorIs(t, err, domain.ErrAlreadyApproved)
}

func TestGRN_SobreRecepcion(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Metformina", 1)
	po := env.ApprovedOrder(t, med.ID, 50)
	expiry := env.Clock.Today().AddDate(1, 0, 0)
	env.PendingGRN(t, po, apptest.Location, 40, expiry, "1.00")

	_, err := env.Purchase.CreateGRN(ctx, purchase.CreateGRNInput{
		PurchaseOrderID: po.ID,
		LocationID:      apptest.Location,
		Lines: []purchase.GRNLineInput{{
			PurchaseOrderLineID: po.Lines[0].ID,
			Quantity:            20,
			ExpiryDate:          expiry,
		}},
		Actor: apptest.Storekeeper,
	})
	require.ErrorIs(t, err, domain.ErrOverReceipt)
	var v *domain.Violation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, int64(20), v.Requested)
	assert.Equal(t, int64(10), v.Available)
}

func TestGRN_RechazadoLiberaCantidadOrdenada(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Atenolol", 1)
	po := env.ApprovedOrder(t, med.ID, 30)
	expiry := env.Clock.Today().AddDate(1, 0, 0)

	g := env.PendingGRN(t, po, apptest.Location, 30, expiry, "1.00")
	rejected, err := env.Purchase.RejectGRN(ctx, g.ID, apptest.Approver)
	require.NoError(t, err)
	assert.Equal(t, entity.GRNStatusRejected, rejected.Status)

	_, err = env.Purchase.ApproveGRN(ctx, g.ID, apptest.Approver)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	again := env.PendingGRN(t, po, apptest.Location, 30, expiry, "1.00")
	_, err = env.Purchase.ApproveGRN(ctx, again.ID, apptest.Approver)
	assert.NoError(t, err)
}

func TestGRN_BorradorRechazadoLiberaCantidadOrdenada(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Losartán", 1)
	po := env.ApprovedOrder(t, med.ID, 30)
	lines := []purchase.GRNLineInput{{
		PurchaseOrderLineID: po.Lines[0].ID,
		Quantity:            30,
		ExpiryDate:          env.Clock.Today().AddDate(1, 0, 0),
		UnitSellingPrice:    decimal.RequireFromString("1.00"),
	}}

	draft, err := env.Purchase.CreateGRN(ctx, purchase.CreateGRNInput{PurchaseOrderID: po.ID, LocationID: apptest.Location, Lines: lines, Actor: apptest.Storekeeper})
	require.NoError(t, err)
	_, err = env.Purchase.CreateGRN(ctx, purchase.CreateGRNInput{PurchaseOrderID: po.ID, LocationID: apptest.Location, Lines: lines, Actor: apptest.Storekeeper})
	require.ErrorIs(t, err, domain.ErrOverReceipt)

	rejected, err := env.Purchase.RejectGRN(ctx, draft.ID, apptest.Approver)
	require.NoError(t, err)
	assert.Equal(t, entity.GRNStatusRejected, rejected.Status)

	_, err = env.Purchase.CreateGRN(ctx, purchase.CreateGRNInput{PurchaseOrderID: po.ID, LocationID: apptest.Location, Lines: lines, Actor: apptest.Storekeeper})
	assert.NoError(t, err)
}

func TestGRN_Validaciones(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Captopril", 1)
	line := func(poLineID string) []purchase.GRNLineInput {
		return []purchase.GRNLineInput{{PurchaseOrderLineID: poLineID, Quantity: 1, ExpiryDate: env.Clock.Today().AddDate(0, 1, 0)}}
	}

	draft, err := env.Purchase.CreatePurchaseOrder(ctx, "SUP-1", []purchase.OrderLineInput{{MedicationID: med.ID, Quantity: 5}}, apptest.Storekeeper)
	require.NoError(t, err)
	_, err = env.Purchase.CreateGRN(ctx, purchase.CreateGRNInput{PurchaseOrderID: draft.ID, LocationID: apptest.Location, Lines: line(draft.Lines[0].ID)})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	po := env.ApprovedOrder(t, med.ID, 5)
	_, err = env.Purchase.CreateGRN(ctx, purchase.CreateGRNInput{PurchaseOrderID: po.ID, LocationID: apptest.Location, Lines: line("otra-linea")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	past := []purchase.GRNLineInput{{PurchaseOrderLineID: po.Lines[0].ID, Quantity: 1, ExpiryDate: env.Clock.Today().AddDate(0, 0, -1)}}
	_, err = env.Purchase.CreateGRN(ctx, purchase.CreateGRNInput{PurchaseOrderID: po.ID, LocationID: apptest.Location, Lines: past})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	g, err := env.Purchase.CreateGRN(ctx, purchase.CreateGRNInput{PurchaseOrderID: po.ID, LocationID: apptest.Location, Lines: line(po.Lines[0].ID)})
	require.NoError(t, err)
	_, err = env.Purchase.ApproveGRN(ctx, g.ID, apptest.Approver)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = env.Purchase.GetGRN(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
