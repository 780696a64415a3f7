package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/repository"
)

var (
	_ repository.MedicationRepository    = (*medicationRepo)(nil)
	_ repository.BatchRepository         = (*batchRepo)(nil)
	_ repository.PurchaseOrderRepository = (*orderRepo)(nil)
	_ repository.GoodsReceiptRepository  = (*receiptRepo)(nil)
	_ repository.ReservationRepository   = (*reservationRepo)(nil)
	_ repository.DispenseRepository      = (*dispenseRepo)(nil)
	_ repository.ReturnRepository        = (*returnRepo)(nil)
	_ repository.TransferRepository      = (*transferRepo)(nil)
	_ repository.AuditRepository         = (*auditRepo)(nil)
	_ repository.SequenceRepository      = (*sequenceRepo)(nil)
)

// ── Medications ──────────────────────────────────────────────────────────────

type medicationRepo struct{ st *state }

func (r *medicationRepo) Create(_ context.Context, m *entity.Medication) error {
	if _, ok := r.st.medications[m.ID]; ok {
		return domain.ErrConflict
	}
	c := *m
	r.st.medications[m.ID] = &c
	return nil
}

func (r *medicationRepo) GetByID(_ context.Context, id string) (*entity.Medication, error) {
	m, ok := r.st.medications[id]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (r *medicationRepo) Update(_ context.Context, m *entity.Medication) error {
	if _, ok := r.st.medications[m.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *m
	r.st.medications[m.ID] = &c
	return nil
}

func (r *medicationRepo) List(_ context.Context, limit, offset int) ([]*entity.Medication, error) {
	all := make([]*entity.Medication, 0, len(r.st.medications))
	for _, m := range r.st.medications {
		c := *m
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})
	return page(all, limit, offset), nil
}

// ── Batches ──────────────────────────────────────────────────────────────────

type batchRepo struct{ st *state }

func (r *batchRepo) Create(_ context.Context, b *entity.StockBatch) error {
	for _, ex := range r.st.batches {
		if ex.BatchNumber == b.BatchNumber && ex.LocationID == b.LocationID {
			return domain.NewViolation(domain.ErrDuplicateBatch, "lote", b.BatchNumber)
		}
	}
	r.st.batches[b.ID] = copyBatch(b)
	return nil
}

func (r *batchRepo) GetByID(_ context.Context, id string) (*entity.StockBatch, error) {
	b, ok := r.st.batches[id]
	if !ok {
		return nil, nil
	}
	return copyBatch(b), nil
}

func (r *batchRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockBatch, error) {
	return r.GetByID(ctx, id)
}

func (r *batchRepo) FindByNumberAndLocation(_ context.Context, batchNumber, locationID string) (*entity.StockBatch, error) {
	for _, b := range r.st.batches {
		if b.BatchNumber == batchNumber && b.LocationID == locationID {
			return copyBatch(b), nil
		}
	}
	return nil, nil
}

func (r *batchRepo) ListAllocatableForUpdate(_ context.Context, medicationID, locationID string, asOf time.Time) ([]*entity.StockBatch, error) {
	var out []*entity.StockBatch
	for _, b := range r.st.batches {
		if b.MedicationID != medicationID || (locationID != "" && b.LocationID != locationID) {
			continue
		}
		if b.IsExpired(asOf) || b.Available() <= 0 {
			continue
		}
		out = append(out, copyBatch(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *batchRepo) ListByMedication(_ context.Context, medicationID string) ([]*entity.StockBatch, error) {
	var out []*entity.StockBatch
	for _, b := range r.st.batches {
		if b.MedicationID == medicationID {
			out = append(out, copyBatch(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *batchRepo) UpdateQuantities(_ context.Context, id string, onHand, reserved int64) error {
	b, ok := r.st.batches[id]
	if !ok {
		return domain.ErrNotFound
	}
	// Mismos CHECK que la tabla en PostgreSQL.
	if onHand < 0 || reserved < 0 || reserved > onHand {
		return domain.NewQuantityViolation(domain.ErrInsufficientStock, "lote", id, reserved, onHand)
	}
	b.QuantityOnHand = onHand
	b.QuantityReserved = reserved
	b.UpdatedAt = time.Now()
	return nil
}

func (r *batchRepo) UpdateSellingPrice(_ context.Context, id string, price decimal.Decimal) error {
	b, ok := r.st.batches[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.UnitSellingPrice = price
	b.UpdatedAt = time.Now()
	return nil
}

func (r *batchRepo) CountByMedication(_ context.Context, medicationID string) (int, error) {
	n := 0
	for _, b := range r.st.batches {
		if b.MedicationID == medicationID {
			n++
		}
	}
	return n, nil
}

func (r *batchRepo) AvailableByMedication(_ context.Context, medicationID string, asOf time.Time) (int64, error) {
	var n int64
	for _, b := range r.st.batches {
		if b.MedicationID == medicationID && !b.IsExpired(asOf) {
			n += b.Available()
		}
	}
	return n, nil
}

// ── Purchase orders ──────────────────────────────────────────────────────────

type orderRepo struct{ st *state }

func (r *orderRepo) Create(_ context.Context, po *entity.PurchaseOrder) error {
	if _, ok := r.st.orders[po.ID]; ok {
		return domain.ErrConflict
	}
	r.st.orders[po.ID] = copyOrder(po)
	return nil
}

func (r *orderRepo) GetByID(_ context.Context, id string) (*entity.PurchaseOrder, error) {
	po, ok := r.st.orders[id]
	if !ok {
		return nil, nil
	}
	return copyOrder(po), nil
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.GetByID(ctx, id)
}

func (r *orderRepo) UpdateStatus(_ context.Context, po *entity.PurchaseOrder) error {
	cur, ok := r.st.orders[po.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Status = po.Status
	cur.ApprovedBy = po.ApprovedBy
	cur.ApprovedAt = po.ApprovedAt
	cur.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *orderRepo) UpdateLineReceived(_ context.Context, lineID string, received int64) error {
	for _, po := range r.st.orders {
		if l := po.Line(lineID); l != nil {
			l.ReceivedQuantity = received
			return nil
		}
	}
	return domain.ErrNotFound
}

// ── Goods receipts ───────────────────────────────────────────────────────────

type receiptRepo struct{ st *state }

func (r *receiptRepo) Create(_ context.Context, g *entity.GoodsReceiptNote) error {
	if _, ok := r.st.receipts[g.ID]; ok {
		return domain.ErrConflict
	}
	r.st.receipts[g.ID] = copyReceipt(g)
	return nil
}

func (r *receiptRepo) GetByID(_ context.Context, id string) (*entity.GoodsReceiptNote, error) {
	g, ok := r.st.receipts[id]
	if !ok {
		return nil, nil
	}
	return copyReceipt(g), nil
}

func (r *receiptRepo) GetForUpdate(ctx context.Context, id string) (*entity.GoodsReceiptNote, error) {
	return r.GetByID(ctx, id)
}

func (r *receiptRepo) Update(_ context.Context, g *entity.GoodsReceiptNote) error {
	if _, ok := r.st.receipts[g.ID]; !ok {
		return domain.ErrNotFound
	}
	r.st.receipts[g.ID] = copyReceipt(g)
	return nil
}

func (r *receiptRepo) SumQuantityForPOLine(_ context.Context, poLineID string, statuses []string, excludeID string) (int64, error) {
	var n int64
	for _, g := range r.st.receipts {
		if g.ID == excludeID || !contains(statuses, g.Status) {
			continue
		}
		n += g.QuantityForPOLine(poLineID)
	}
	return n, nil
}

// ── Reservations ─────────────────────────────────────────────────────────────

type reservationRepo struct{ st *state }

func (r *reservationRepo) Create(_ context.Context, res *entity.Reservation) error {
	if _, ok := r.st.reservations[res.ID]; ok {
		return domain.ErrConflict
	}
	r.st.reservations[res.ID] = copyReservation(res)
	return nil
}

func (r *reservationRepo) GetByID(_ context.Context, id string) (*entity.Reservation, error) {
	res, ok := r.st.reservations[id]
	if !ok {
		return nil, nil
	}
	return copyReservation(res), nil
}

func (r *reservationRepo) GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r *reservationRepo) UpdateStatus(_ context.Context, res *entity.Reservation) error {
	cur, ok := r.st.reservations[res.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Status = res.Status
	cur.UpdatedAt = res.UpdatedAt
	return nil
}

func (r *reservationRepo) ListExpiredHeld(_ context.Context, now time.Time, limit int) ([]string, error) {
	var held []*entity.Reservation
	for _, res := range r.st.reservations {
		if res.PastTimeout(now) {
			held = append(held, res)
		}
	}
	sort.Slice(held, func(i, j int) bool {
		if !held[i].ExpiresAt.Equal(held[j].ExpiresAt) {
			return held[i].ExpiresAt.Before(held[j].ExpiresAt)
		}
		return held[i].ID < held[j].ID
	})
	ids := make([]string, 0, len(held))
	for _, res := range held {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, res.ID)
	}
	return ids, nil
}

// ── Dispenses ────────────────────────────────────────────────────────────────

type dispenseRepo struct{ st *state }

func (r *dispenseRepo) Create(_ context.Context, d *entity.DispenseRecord) error {
	if _, ok := r.st.dispenses[d.ID]; ok {
		return domain.ErrConflict
	}
	r.st.dispenses[d.ID] = copyDispense(d)
	return nil
}

func (r *dispenseRepo) GetByID(_ context.Context, id string) (*entity.DispenseRecord, error) {
	d, ok := r.st.dispenses[id]
	if !ok {
		return nil, nil
	}
	return copyDispense(d), nil
}

func (r *dispenseRepo) SumDispensed(_ context.Context, prescriptionLineID, batchID string) (int64, error) {
	var n int64
	for _, d := range r.st.dispenses {
		if d.PrescriptionLineID == prescriptionLineID {
			n += d.QuantityFromBatch(batchID)
		}
	}
	return n, nil
}

// ── Returns ──────────────────────────────────────────────────────────────────

type returnRepo struct{ st *state }

func (r *returnRepo) Create(_ context.Context, rec *entity.ReturnRecord) error {
	if _, ok := r.st.returns[rec.ID]; ok {
		return domain.ErrConflict
	}
	c := *rec
	r.st.returns[rec.ID] = &c
	return nil
}

func (r *returnRepo) GetByID(_ context.Context, id string) (*entity.ReturnRecord, error) {
	rec, ok := r.st.returns[id]
	if !ok {
		return nil, nil
	}
	c := *rec
	return &c, nil
}

func (r *returnRepo) SumPatientReturned(_ context.Context, prescriptionLineID, dispenseID, batchID string) (int64, error) {
	var n int64
	for _, rec := range r.st.returns {
		if rec.Kind != entity.ReturnPatient || rec.BatchID != batchID {
			continue
		}
		if prescriptionLineID != "" && rec.PrescriptionLineID != prescriptionLineID {
			continue
		}
		if prescriptionLineID == "" && rec.RelatedDispenseID != dispenseID {
			continue
		}
		n += rec.Quantity
	}
	return n, nil
}

// ── Transfers ────────────────────────────────────────────────────────────────

type transferRepo struct{ st *state }

func (r *transferRepo) Create(_ context.Context, t *entity.StockTransfer) error {
	if _, ok := r.st.transfers[t.ID]; ok {
		return domain.ErrConflict
	}
	c := *t
	r.st.transfers[t.ID] = &c
	return nil
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*entity.StockTransfer, error) {
	t, ok := r.st.transfers[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (r *transferRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.GetByID(ctx, id)
}

func (r *transferRepo) Update(_ context.Context, t *entity.StockTransfer) error {
	if _, ok := r.st.transfers[t.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *t
	r.st.transfers[t.ID] = &c
	return nil
}

// ── Audit ────────────────────────────────────────────────────────────────────

type auditRepo struct {
	st       *state
	failWith error
}

func (r *auditRepo) Append(_ context.Context, e *entity.AuditEntry) error {
	if r.failWith != nil {
		return r.failWith
	}
	var last int64
	if n := len(r.st.audit); n > 0 {
		last = r.st.audit[n-1].Seq
	}
	c := *e
	c.Seq = last + 1
	e.Seq = c.Seq
	r.st.audit = append(r.st.audit, &c)
	return nil
}

func (r *auditRepo) Query(_ context.Context, f repository.AuditFilter) ([]*entity.AuditEntry, error) {
	var out []*entity.AuditEntry
	for _, e := range r.st.audit {
		if f.SubjectID != "" && e.SubjectID != f.SubjectID {
			continue
		}
		if f.CorrelationID != "" && e.CorrelationID != f.CorrelationID {
			continue
		}
		if f.From != nil && e.At.Before(*f.From) {
			continue
		}
		if f.To != nil && e.At.After(*f.To) {
			continue
		}
		c := *e
		out = append(out, &c)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// ── Sequences ────────────────────────────────────────────────────────────────

type sequenceRepo struct{ st *state }

func (r *sequenceRepo) Next(_ context.Context, prefix string) (int64, error) {
	r.st.sequences[prefix]++
	return r.st.sequences[prefix], nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
