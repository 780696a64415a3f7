package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

func TestPurchaseOrder_Transiciones(t *testing.T) {
	now := time.Now()
	po := &entity.PurchaseOrder{Status: entity.POStatusDraft}

	assert.False(t, po.Approve("u1", now), "no se aprueba un borrador")
	assert.True(t, po.Submit(now))
	assert.False(t, po.Submit(now))
	assert.True(t, po.Approve("u1", now))
	assert.Equal(t, entity.POStatusApproved, po.Status)
	assert.False(t, po.Reject("u1", now), "sin auto-transición desde APPROVED")
	assert.True(t, po.IsApproved())
}

func TestPurchaseOrder_FullyReceived(t *testing.T) {
	po := &entity.PurchaseOrder{Lines: []entity.PurchaseOrderLine{
		{ID: "l1", OrderedQuantity: 10, ReceivedQuantity: 10},
		{ID: "l2", OrderedQuantity: 5, ReceivedQuantity: 4},
	}}
	assert.False(t, po.FullyReceived())
	po.Line("l2").ReceivedQuantity = 5
	assert.True(t, po.FullyReceived())
}

func TestGoodsReceiptNote_Transiciones(t *testing.T) {
	now := time.Now()
	g := &entity.GoodsReceiptNote{Status: entity.GRNStatusDraft}
	assert.True(t, g.Submit(now))
	assert.True(t, g.Approve("u2", now))
	assert.False(t, g.Approve("u2", now))
	assert.False(t, g.Reject("u2", now))

	draft := &entity.GoodsReceiptNote{Status: entity.GRNStatusDraft}
	assert.True(t, draft.Reject("u2", now))
	assert.Equal(t, entity.GRNStatusRejected, draft.Status)
	assert.False(t, draft.Submit(now))
}

func TestReservation_PastTimeout(t *testing.T) {
	now := time.Now()
	r := &entity.Reservation{Status: entity.ReservationHeld, ExpiresAt: now.Add(time.Minute)}
	assert.False(t, r.PastTimeout(now))
	assert.True(t, r.PastTimeout(now.Add(time.Minute)))

	assert.True(t, r.Finish(entity.ReservationCommitted, now))
	assert.False(t, r.PastTimeout(now.Add(time.Hour)), "una reserva confirmada no vence")
	assert.False(t, r.Finish(entity.ReservationReleased, now))
}

func TestStockTransfer_Transiciones(t *testing.T) {
	now := time.Now()
	tr := &entity.StockTransfer{Status: entity.TransferRequested}
	assert.False(t, tr.Complete("u", "b2", now), "requiere aprobación")
	assert.True(t, tr.Approve("u", now))
	assert.True(t, tr.Complete("u", "b2", now))
	assert.Equal(t, "b2", tr.DestBatchID)
	assert.False(t, tr.Reject("u", now))
}

func TestStockBatch_Invariantes(t *testing.T) {
	b := &entity.StockBatch{
		QuantityOnHand:   10,
		QuantityReserved: 4,
		ExpiryDate:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, int64(6), b.Available())
	assert.True(t, b.Valid())
	assert.False(t, b.IsExpired(time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC)), "vence al final del día")
	assert.True(t, b.IsExpired(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)))

	b.QuantityReserved = 11
	assert.False(t, b.Valid())
}
