package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/repository"
)

var _ repository.MedicationRepository = (*MedicationRepo)(nil)

// MedicationRepo implementación del puerto MedicationRepository sobre PostgreSQL (usable con pool o tx).
type MedicationRepo struct {
	q Querier
}

// NewMedicationRepository construye el adaptador del catálogo. Pasar pool o tx (Querier).
func NewMedicationRepository(q Querier) *MedicationRepo {
	return &MedicationRepo{q: q}
}

const medicationColumns = `id, name, strength, dosage_form, description, reorder_level, created_at, updated_at`

// Create persiste un nuevo medicamento.
func (r *MedicationRepo) Create(ctx context.Context, m *entity.Medication) error {
	query := `
		INSERT INTO medications (` + medicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.Name, m.Strength, m.DosageForm, m.Description, m.ReorderLevel, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert medication: %w", err)
	}
	return nil
}

// GetByID obtiene un medicamento por ID.
func (r *MedicationRepo) GetByID(ctx context.Context, id string) (*entity.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE id = $1`
	m, err := scanMedication(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get medication: %w", err)
	}
	return m, nil
}

// Update actualiza los datos descriptivos del medicamento.
func (r *MedicationRepo) Update(ctx context.Context, m *entity.Medication) error {
	query := `
		UPDATE medications
		SET name = $2, strength = $3, dosage_form = $4, description = $5, reorder_level = $6, updated_at = $7
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, m.ID, m.Name, m.Strength, m.DosageForm, m.Description, m.ReorderLevel, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update medication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List devuelve medicamentos ordenados por nombre.
func (r *MedicationRepo) List(ctx context.Context, limit, offset int) ([]*entity.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications ORDER BY name, id LIMIT $1 OFFSET $2`
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()
	var list []*entity.Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan medication: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMedication(row pgx.Row) (*entity.Medication, error) {
	var m entity.Medication
	err := row.Scan(&m.ID, &m.Name, &m.Strength, &m.DosageForm, &m.Description, &m.ReorderLevel, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
