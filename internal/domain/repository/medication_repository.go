package repository

import (
	"context"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// MedicationRepository define el puerto de persistencia para Medication (DIP).
type MedicationRepository interface {
	Create(ctx context.Context, m *entity.Medication) error
	GetByID(ctx context.Context, id string) (*entity.Medication, error)
	Update(ctx context.Context, m *entity.Medication) error
	List(ctx context.Context, limit, offset int) ([]*entity.Medication, error)
}
