package inventory

import (
	"sort"
	"time"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// Pick cantidad a tomar de un lote.
type Pick struct {
	BatchID  string
	Quantity int64
}

// RankFEFO ordena lotes elegibles (no vencidos a asOf y con disponible > 0):
// vencimiento ascendente, luego fecha de recepción, luego id.
func RankFEFO(batches []*entity.StockBatch, asOf time.Time) []*entity.StockBatch {
	eligible := make([]*entity.StockBatch, 0, len(batches))
	for _, b := range batches {
		if b.IsExpired(asOf) || b.Available() <= 0 {
			continue
		}
		eligible = append(eligible, b)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return lessFEFO(eligible[i], eligible[j])
	})
	return eligible
}

func lessFEFO(a, b *entity.StockBatch) bool {
	if !a.ExpiryDate.Equal(b.ExpiryDate) {
		return a.ExpiryDate.Before(b.ExpiryDate)
	}
	if !a.ReceivedDate.Equal(b.ReceivedDate) {
		return a.ReceivedDate.Before(b.ReceivedDate)
	}
	return a.ID < b.ID
}

// SelectBatches consume desde la cabeza del orden FEFO hasta cubrir qty.
// Devuelve el total disponible; si no alcanza, picks es nil.
func SelectBatches(batches []*entity.StockBatch, qty int64, asOf time.Time) (picks []Pick, available int64) {
	ranked := RankFEFO(batches, asOf)
	for _, b := range ranked {
		available += b.Available()
	}
	if qty <= 0 || available < qty {
		return nil, available
	}
	remaining := qty
	for _, b := range ranked {
		if remaining == 0 {
			break
		}
		take := b.Available()
		if take > remaining {
			take = remaining
		}
		picks = append(picks, Pick{BatchID: b.ID, Quantity: take})
		remaining -= take
	}
	return picks, available
}
