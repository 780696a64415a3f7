package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// MedicationUseCase catálogo de medicamentos y consulta/reprecio de lotes.
type MedicationUseCase struct {
	txRunner ports.TxRunner
	now      func() time.Time
}

// NewMedicationUseCase construye el caso de uso.
func NewMedicationUseCase(txRunner ports.TxRunner) *MedicationUseCase {
	return &MedicationUseCase{txRunner: txRunner, now: time.Now}
}

// MedicationInput datos editables de un medicamento.
type MedicationInput struct {
	Name         string
	Strength     string
	DosageForm   string
	Description  string
	ReorderLevel *int64
}

func (in MedicationInput) normalize() (MedicationInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Strength = strings.TrimSpace(in.Strength)
	in.DosageForm = strings.ToUpper(strings.TrimSpace(in.DosageForm))
	if in.Name == "" || in.DosageForm == "" {
		return in, domain.ErrInvalidInput
	}
	if in.ReorderLevel != nil && *in.ReorderLevel < 0 {
		return in, domain.ErrInvalidInput
	}
	return in, nil
}

// Create registra un medicamento.
func (uc *MedicationUseCase) Create(ctx context.Context, in MedicationInput) (*entity.Medication, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	now := uc.now()
	m := &entity.Medication{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Strength:     in.Strength,
		DosageForm:   in.DosageForm,
		Description:  in.Description,
		ReorderLevel: entity.DefaultReorderLevel,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.ReorderLevel != nil {
		m.ReorderLevel = *in.ReorderLevel
	}
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		return repos.Medications.Create(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Get obtiene un medicamento.
func (uc *MedicationUseCase) Get(ctx context.Context, id string) (*entity.Medication, error) {
	var m *entity.Medication
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		m, err = repos.Medications.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.NewViolation(domain.ErrNotFound, "medicamento", id)
	}
	return m, nil
}

// List lista medicamentos por nombre.
func (uc *MedicationUseCase) List(ctx context.Context, limit, offset int) ([]*entity.Medication, error) {
	var list []*entity.Medication
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		list, err = repos.Medications.List(ctx, limit, offset)
		return err
	})
	return list, err
}

// Update modifica un medicamento. Cambiar nombre, concentración o forma de un medicamento
// con lotes falla con ErrMedicationInUse; descripción y nivel de reorden siempre se pueden editar.
func (uc *MedicationUseCase) Update(ctx context.Context, id string, in MedicationInput) (*entity.Medication, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	var m *entity.Medication
	err = uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		m, err = repos.Medications.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.NewViolation(domain.ErrNotFound, "medicamento", id)
		}
		next := *m
		next.Name, next.Strength, next.DosageForm = in.Name, in.Strength, in.DosageForm
		if !m.SameIdentity(&next) {
			n, err := repos.Batches.CountByMedication(ctx, id)
			if err != nil {
				return err
			}
			if n > 0 {
				return domain.NewViolation(domain.ErrMedicationInUse, "medicamento", id)
			}
		}
		next.Description = in.Description
		if in.ReorderLevel != nil {
			next.ReorderLevel = *in.ReorderLevel
		}
		next.UpdatedAt = uc.now()
		m = &next
		return repos.Medications.Update(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListBatches lotes de un medicamento (todas las ubicaciones).
func (uc *MedicationUseCase) ListBatches(ctx context.Context, medicationID string) ([]*entity.StockBatch, error) {
	var list []*entity.StockBatch
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		list, err = repos.Batches.ListByMedication(ctx, medicationID)
		return err
	})
	return list, err
}

// RepriceBatch cambia el precio de venta del lote. Los despachos confirmados conservan el
// precio congelado en sus líneas.
func (uc *MedicationUseCase) RepriceBatch(ctx context.Context, batchID string, price decimal.Decimal) (*entity.StockBatch, error) {
	if batchID == "" || price.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	var b *entity.StockBatch
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		b, err = repos.Batches.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if b == nil {
			return domain.NewViolation(domain.ErrNotFound, "lote", batchID)
		}
		b.UnitSellingPrice = price
		return repos.Batches.UpdateSellingPrice(ctx, batchID, price)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}
