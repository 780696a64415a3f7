package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ledger"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/application/sequence"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// Estados de GRN que cuentan contra la cantidad ordenada al crear un GRN nuevo.
var openReceiptStatuses = []string{entity.GRNStatusDraft, entity.GRNStatusPendingApproval, entity.GRNStatusApproved}

// GRNLineInput línea recibida. UnitPurchasePrice nil toma el precio acordado en la orden.
type GRNLineInput struct {
	PurchaseOrderLineID string
	Quantity            int64
	ExpiryDate          time.Time
	UnitPurchasePrice   *decimal.Decimal
	UnitSellingPrice    decimal.Decimal
	ManufacturerBatch   string
}

// CreateGRNInput entrada de CreateGRN.
type CreateGRNInput struct {
	PurchaseOrderID string
	LocationID      string
	InvoiceNumber   string
	Lines           []GRNLineInput
	Actor           string
}

// CreateGRN registra la recepción en DRAFT. No afecta el stock.
func (uc *PurchaseUseCase) CreateGRN(ctx context.Context, in CreateGRNInput) (*entity.GoodsReceiptNote, error) {
	if in.PurchaseOrderID == "" || in.LocationID == "" || len(in.Lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	now := uc.now()
	for _, l := range in.Lines {
		if l.PurchaseOrderLineID == "" || l.Quantity <= 0 || l.ExpiryDate.IsZero() || l.UnitSellingPrice.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		if l.UnitPurchasePrice != nil && l.UnitPurchasePrice.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		if entity.Day(l.ExpiryDate).Before(entity.Day(now)) {
			return nil, domain.NewViolation(domain.ErrInvalidInput, "línea de orden", l.PurchaseOrderLineID)
		}
	}

	var g *entity.GoodsReceiptNote
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		po, err := repos.PurchaseOrders.GetForUpdate(ctx, in.PurchaseOrderID)
		if err != nil {
			return err
		}
		if po == nil {
			return domain.NewViolation(domain.ErrNotFound, "orden de compra", in.PurchaseOrderID)
		}
		if po.Status != entity.POStatusApproved {
			return domain.NewViolation(domain.ErrInvalidState, "orden de compra", po.ID)
		}

		requested := map[string]int64{}
		for _, l := range in.Lines {
			if po.Line(l.PurchaseOrderLineID) == nil {
				return domain.NewViolation(domain.ErrNotFound, "línea de orden", l.PurchaseOrderLineID)
			}
			requested[l.PurchaseOrderLineID] += l.Quantity
		}
		for lineID, qty := range requested {
			prior, err := repos.GoodsReceipts.SumQuantityForPOLine(ctx, lineID, openReceiptStatuses, "")
			if err != nil {
				return err
			}
			ordered := po.Line(lineID).OrderedQuantity
			if prior+qty > ordered {
				return domain.NewQuantityViolation(domain.ErrOverReceipt, "línea de orden", lineID, qty, ordered-prior)
			}
		}

		number, err := sequence.Next(ctx, repos.Sequences, sequence.GoodsReceipt, now)
		if err != nil {
			return err
		}
		g = &entity.GoodsReceiptNote{
			ID:              uuid.New().String(),
			Number:          number,
			PurchaseOrderID: po.ID,
			LocationID:      in.LocationID,
			InvoiceNumber:   in.InvoiceNumber,
			Status:          entity.GRNStatusDraft,
			CreatedBy:       in.Actor,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		for i, l := range in.Lines {
			poLine := po.Line(l.PurchaseOrderLineID)
			price := poLine.UnitPrice
			if l.UnitPurchasePrice != nil {
				price = *l.UnitPurchasePrice
			}
			g.Lines = append(g.Lines, entity.GoodsReceiptLine{
				ID:                  uuid.New().String(),
				GRNID:               g.ID,
				LineNo:              i + 1,
				PurchaseOrderLineID: poLine.ID,
				MedicationID:        poLine.MedicationID,
				Quantity:            l.Quantity,
				ExpiryDate:          entity.Day(l.ExpiryDate),
				UnitPurchasePrice:   price,
				UnitSellingPrice:    l.UnitSellingPrice,
				ManufacturerBatch:   l.ManufacturerBatch,
			})
		}
		return repos.GoodsReceipts.Create(ctx, g)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// SubmitGRN DRAFT -> PENDING_APPROVAL.
func (uc *PurchaseUseCase) SubmitGRN(ctx context.Context, id, actor string) (*entity.GoodsReceiptNote, error) {
	return uc.transitionGRN(ctx, id, func(g *entity.GoodsReceiptNote, now time.Time) error {
		if !g.Submit(now) {
			return domain.NewViolation(domain.ErrInvalidState, "GRN", g.ID)
		}
		return nil
	})
}

// RejectGRN DRAFT|PENDING_APPROVAL -> REJECTED.
func (uc *PurchaseUseCase) RejectGRN(ctx context.Context, id, approverID string) (*entity.GoodsReceiptNote, error) {
	return uc.transitionGRN(ctx, id, func(g *entity.GoodsReceiptNote, now time.Time) error {
		if g.Status == entity.GRNStatusApproved {
			return domain.NewViolation(domain.ErrAlreadyApproved, "GRN", g.ID)
		}
		if !g.Reject(approverID, now) {
			return domain.NewViolation(domain.ErrInvalidState, "GRN", g.ID)
		}
		return nil
	})
}

// ApproveGRN aprueba el GRN y crea un lote por línea (número <GRN>-<línea>).
// Un GRN ya aprobado falla con ErrAlreadyApproved sin tocar el ledger.
func (uc *PurchaseUseCase) ApproveGRN(ctx context.Context, grnID, approverID string) ([]string, error) {
	if grnID == "" {
		return nil, domain.ErrInvalidInput
	}
	now := uc.now()
	var (
		g        *entity.GoodsReceiptNote
		batchIDs []string
		closed   bool
	)
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		batchIDs = nil
		var err error
		g, err = repos.GoodsReceipts.GetForUpdate(ctx, grnID)
		if err != nil {
			return err
		}
		if g == nil {
			return domain.NewViolation(domain.ErrNotFound, "GRN", grnID)
		}
		if g.Status == entity.GRNStatusApproved {
			return domain.NewViolation(domain.ErrAlreadyApproved, "GRN", g.ID)
		}
		if g.Status != entity.GRNStatusPendingApproval {
			return domain.NewViolation(domain.ErrInvalidState, "GRN", g.ID)
		}
		po, err := repos.PurchaseOrders.GetForUpdate(ctx, g.PurchaseOrderID)
		if err != nil {
			return err
		}
		if po == nil {
			return domain.NewViolation(domain.ErrNotFound, "orden de compra", g.PurchaseOrderID)
		}

		// Re-verificación contra lo ya aprobado, con la orden bloqueada.
		received := map[string]int64{}
		for _, l := range g.Lines {
			if _, seen := received[l.PurchaseOrderLineID]; seen {
				continue
			}
			approved, err := repos.GoodsReceipts.SumQuantityForPOLine(ctx, l.PurchaseOrderLineID, []string{entity.GRNStatusApproved}, g.ID)
			if err != nil {
				return err
			}
			poLine := po.Line(l.PurchaseOrderLineID)
			if poLine == nil {
				return domain.NewViolation(domain.ErrNotFound, "línea de orden", l.PurchaseOrderLineID)
			}
			qty := g.QuantityForPOLine(l.PurchaseOrderLineID)
			if approved+qty > poLine.OrderedQuantity {
				return domain.NewQuantityViolation(domain.ErrOverReceipt, "línea de orden", poLine.ID, qty, poLine.OrderedQuantity-approved)
			}
			received[l.PurchaseOrderLineID] = approved + qty
		}

		m := ledger.Mutation{Actor: approverID, CorrelationID: g.ID, Reason: g.Number, At: now}
		for i := range g.Lines {
			line := &g.Lines[i]
			id, err := uc.ledger.PostReceipt(ctx, repos, &entity.StockBatch{
				MedicationID:      line.MedicationID,
				BatchNumber:       fmt.Sprintf("%s-%02d", g.Number, line.LineNo),
				LocationID:        g.LocationID,
				QuantityOnHand:    line.Quantity,
				ExpiryDate:        line.ExpiryDate,
				ReceivedDate:      now,
				UnitPurchasePrice: line.UnitPurchasePrice,
				UnitSellingPrice:  line.UnitSellingPrice,
				SourceType:        entity.BatchSourceGRN,
				SourceRef:         g.ID,
			}, m)
			if err != nil {
				return err
			}
			line.BatchID = id
			batchIDs = append(batchIDs, id)
		}
		for lineID, qty := range received {
			if err := repos.PurchaseOrders.UpdateLineReceived(ctx, lineID, qty); err != nil {
				return err
			}
			po.Line(lineID).ReceivedQuantity = qty
		}
		g.Approve(approverID, now)
		if err := repos.GoodsReceipts.Update(ctx, g); err != nil {
			return err
		}
		closed = po.FullyReceived()
		if closed {
			po.Status = entity.POStatusClosed
			po.UpdatedAt = now
			return repos.PurchaseOrders.UpdateStatus(ctx, po)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("grn", g.Number).
		Int("batches", len(batchIDs)).
		Bool("po_closed", closed).
		Msg("GRN aprobado")
	uc.publish(ctx, entity.DomainEvent{
		ID:            uuid.New().String(),
		Type:          entity.EventGRNApproved,
		Subject:       g.ID,
		CorrelationID: g.ID,
		OccurredAt:    now,
		Data: map[string]any{
			"grn_number":        g.Number,
			"purchase_order_id": g.PurchaseOrderID,
			"batch_ids":         batchIDs,
			"approved_by":       approverID,
		},
	})
	return batchIDs, nil
}

// GetGRN obtiene el GRN con sus líneas.
func (uc *PurchaseUseCase) GetGRN(ctx context.Context, id string) (*entity.GoodsReceiptNote, error) {
	var g *entity.GoodsReceiptNote
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		g, err = repos.GoodsReceipts.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, domain.NewViolation(domain.ErrNotFound, "GRN", id)
	}
	return g, nil
}

func (uc *PurchaseUseCase) transitionGRN(ctx context.Context, id string, apply func(*entity.GoodsReceiptNote, time.Time) error) (*entity.GoodsReceiptNote, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	now := uc.now()
	var g *entity.GoodsReceiptNote
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		g, err = repos.GoodsReceipts.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if g == nil {
			return domain.NewViolation(domain.ErrNotFound, "GRN", id)
		}
		if err := apply(g, now); err != nil {
			return err
		}
		return repos.GoodsReceipts.Update(ctx, g)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (uc *PurchaseUseCase) publish(ctx context.Context, events ...entity.DomainEvent) {
	if err := uc.publisher.Publish(ctx, events...); err != nil {
		uc.log.Warn().Err(err).Msg("publicar eventos de compras")
	}
}
