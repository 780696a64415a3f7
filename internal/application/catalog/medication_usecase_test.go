package catalog_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/jhoicas/pharmacy-inventory/internal/application/apptest"
	"github.com/jhoicas/pharmacy-inventory/internal/application/catalog"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

func TestMedication_CrearYListar(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()

	m, err := env.Catalog.Create(ctx, catalog.MedicationInput{Name: "  Ibuprofeno ", Strength: "400 mg", DosageForm: "tablet"})
	require.NoError(t, err)
	assert.Equal(t, "Ibuprofeno", m.Name)
	assert.Equal(t, "TABLET", m.DosageForm)
	assert.Equal(t, entity.DefaultReorderLevel, m.ReorderLevel)

	_, err = env.Catalog.Create(ctx, catalog.MedicationInput{Name: "", DosageForm: "TABLET"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	list, err := env.Catalog.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = env.Catalog.Get(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMedication_IdentidadBloqueadaConLotes(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Amoxicilina", 5)

	// Sin lotes se puede corregir todo.
	renamed, err := env.Catalog.Update(ctx, med.ID, catalog.MedicationInput{Name: "Amoxicilina", Strength: "250 mg", DosageForm: "TABLET"})
	require.NoError(t, err)
	assert.Equal(t, "250 mg", renamed.Strength)

	env.Receive(t, med.ID, apptest.Location, 10, env.Clock.Today().AddDate(1, 0, 0), "1.00")

	_, err = env.Catalog.Update(ctx, med.ID, catalog.MedicationInput{Name: "Amoxicilina", Strength: "500 mg", DosageForm: "TABLET"})
	assert.ErrorIs(t, err, domain.ErrMedicationInUse)

	level := int64(25)
	updated, err := env.Catalog.Update(ctx, med.ID, catalog.MedicationInput{
		Name: "Amoxicilina", Strength: "250 mg", DosageForm: "TABLET", Description: "Antibiótico", ReorderLevel: &level,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(25), updated.ReorderLevel)
	assert.Equal(t, "Antibiótico", updated.Description)
}

func TestRepriceBatch(t *testing.T) {
	env := apptest.New(t)
	ctx := context.Background()
	med := env.Medication(t, "Naproxeno", 1)
	batchID := env.Receive(t, med.ID, apptest.Location, 10, env.Clock.Today().AddDate(1, 0, 0), "1.00")

	b, err := env.Catalog.RepriceBatch(ctx, batchID, decimal.RequireFromString("1.25"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.25").Equal(b.UnitSellingPrice))

	_, err = env.Catalog.RepriceBatch(ctx, batchID, decimal.RequireFromString("-1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = env.Catalog.RepriceBatch(ctx, "no-existe", decimal.RequireFromString("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
