package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/minlab-go-api/internal/models"
	"github.com/noah-isme/minlab-go-api/internal/repository"
)

func setupCatalogDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.EquipmentItem{}, &models.Mineral{}, &models.SafetyOption{}))
	return db
}

func TestReferenceRepository_EnsureSeededIsIdempotent(t *testing.T) {
	db := setupCatalogDB(t)
	repo := repository.NewReferenceRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.EnsureSeeded(ctx))
	require.NoError(t, repo.EnsureSeeded(ctx))

	equipment, err := repo.ListEquipment(ctx)
	require.NoError(t, err)
	require.Len(t, equipment, 8)

	minerals, err := repo.ListMinerals(ctx)
	require.NoError(t, err)
	require.Len(t, minerals, 4)

	options, err := repo.ListSafetyOptions(ctx)
	require.NoError(t, err)
	require.Len(t, options, 4)
}

func TestReferenceRepository_RequiredEquipment(t *testing.T) {
	db := setupCatalogDB(t)
	repo := repository.NewReferenceRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureSeeded(ctx))

	names, err := repo.RequiredEquipment(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Balanza", "Probeta", "Agua", "Muestra de Mena"}, names)
}

func TestReferenceRepository_ExpectedMineral(t *testing.T) {
	db := setupCatalogDB(t)
	repo := repository.NewReferenceRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Where("1 = 1").Delete(&models.Mineral{}).Error)
	_, err := repo.ExpectedMineral(ctx)
	require.ErrorIs(t, err, repository.ErrNoExpectedMineral)

	require.NoError(t, repo.EnsureSeeded(ctx))

	name, err := repo.ExpectedMineral(ctx)
	require.NoError(t, err)
	require.Equal(t, "Calcopirita (Mena de Cobre)", name)
}

func TestReferenceRepository_CorrectSafetyKey(t *testing.T) {
	db := setupCatalogDB(t)
	repo := repository.NewReferenceRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureSeeded(ctx))

	key, err := repo.CorrectSafetyKey(ctx)
	require.NoError(t, err)
	require.Equal(t, "gafas", key)
}
