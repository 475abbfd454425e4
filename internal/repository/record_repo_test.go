package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/minlab-go-api/internal/models"
	"github.com/noah-isme/minlab-go-api/internal/repository"
)

func setupRecordDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.LabRecord{}))
	return db
}

func archivedRecord(t *testing.T, sessionID string, score int, completedAt time.Time) models.LabRecord {
	t.Helper()

	record := models.LabRecord{
		SessionID:   sessionID,
		StudentName: "Valentina Rojas",
		Course:      "Metalurgia I",
		Score:       score,
		CompletedAt: completedAt,
	}
	require.NoError(t, record.SetRecord(models.ProgressRecord{
		SessionID: sessionID,
		Name:      "Valentina Rojas",
		Course:    "Metalurgia I",
		Score:     score,
		Completed: true,
		LabelInfo: models.LabelInfo{SampleID: "MN-CO-OX-0042"},
	}))
	return record
}

func TestRecordRepository_CreateAndGet(t *testing.T) {
	db := setupRecordDB(t)
	repo := repository.NewRecordRepository(db)
	ctx := context.Background()

	record := archivedRecord(t, "session-1", 85, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, &record))

	stored, err := repo.GetBySessionID(ctx, "session-1")
	require.NoError(t, err)
	require.Equal(t, 85, stored.Score)
	require.Equal(t, "Valentina Rojas", stored.StudentName)

	payload, err := stored.Record()
	require.NoError(t, err)
	require.Equal(t, "MN-CO-OX-0042", payload.LabelInfo.SampleID)
	require.True(t, payload.Completed)
}

func TestRecordRepository_GetMissing(t *testing.T) {
	db := setupRecordDB(t)
	repo := repository.NewRecordRepository(db)

	_, err := repo.GetBySessionID(context.Background(), "absent")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRecordRepository_ListNewestFirst(t *testing.T) {
	db := setupRecordDB(t)
	repo := repository.NewRecordRepository(db)
	ctx := context.Background()

	older := archivedRecord(t, "session-old", 70, time.Now().UTC().Add(-time.Hour))
	newer := archivedRecord(t, "session-new", 95, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, &older))
	require.NoError(t, repo.Create(ctx, &newer))

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "session-new", records[0].SessionID)
}
