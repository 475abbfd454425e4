package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/minlab-go-api/internal/models"
)

// RecordRepository archives frozen progress records.
type RecordRepository interface {
	Create(ctx context.Context, record *models.LabRecord) error
	GetBySessionID(ctx context.Context, sessionID string) (models.LabRecord, error)
	List(ctx context.Context) ([]models.LabRecord, error)
}

type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository constructs a lab record archive repository.
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) Create(ctx context.Context, record *models.LabRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *recordRepository) GetBySessionID(ctx context.Context, sessionID string) (models.LabRecord, error) {
	var record models.LabRecord
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&record).Error; err != nil {
		return models.LabRecord{}, err
	}
	return record, nil
}

func (r *recordRepository) List(ctx context.Context) ([]models.LabRecord, error) {
	var records []models.LabRecord
	if err := r.db.WithContext(ctx).Order("completed_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
