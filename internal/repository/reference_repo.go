package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/minlab-go-api/internal/models"
)

// ErrNoExpectedMineral indicates the mineral table carries no designated
// correct answer for the seeded scenario.
var ErrNoExpectedMineral = errors.New("no expected mineral configured")

// ReferenceRepository provides access to the seeded lab catalog: equipment
// inventory, mineral density table, and the PPE safety question.
type ReferenceRepository interface {
	ListEquipment(ctx context.Context) ([]models.EquipmentItem, error)
	RequiredEquipment(ctx context.Context) ([]string, error)
	ListMinerals(ctx context.Context) ([]models.Mineral, error)
	ExpectedMineral(ctx context.Context) (string, error)
	ListSafetyOptions(ctx context.Context) ([]models.SafetyOption, error)
	CorrectSafetyKey(ctx context.Context) (string, error)
	EnsureSeeded(ctx context.Context) error
}

type referenceRepository struct {
	db *gorm.DB
}

// NewReferenceRepository constructs a reference catalog repository.
func NewReferenceRepository(db *gorm.DB) ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) ListEquipment(ctx context.Context) ([]models.EquipmentItem, error) {
	var items []models.EquipmentItem
	if err := r.db.WithContext(ctx).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *referenceRepository) RequiredEquipment(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.EquipmentItem{}).
		Where("required = ?", true).
		Order("id").
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *referenceRepository) ListMinerals(ctx context.Context) ([]models.Mineral, error) {
	var minerals []models.Mineral
	if err := r.db.WithContext(ctx).Order("id").Find(&minerals).Error; err != nil {
		return nil, err
	}
	return minerals, nil
}

func (r *referenceRepository) ExpectedMineral(ctx context.Context) (string, error) {
	var mineral models.Mineral
	err := r.db.WithContext(ctx).Where("expected = ?", true).First(&mineral).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNoExpectedMineral
		}
		return "", err
	}
	return mineral.Name, nil
}

func (r *referenceRepository) ListSafetyOptions(ctx context.Context) ([]models.SafetyOption, error) {
	var options []models.SafetyOption
	if err := r.db.WithContext(ctx).Order("id").Find(&options).Error; err != nil {
		return nil, err
	}
	return options, nil
}

func (r *referenceRepository) CorrectSafetyKey(ctx context.Context) (string, error) {
	var option models.SafetyOption
	err := r.db.WithContext(ctx).Where("correct = ?", true).First(&option).Error
	if err != nil {
		return "", err
	}
	return option.Key, nil
}

// EnsureSeeded populates the catalog tables with the default lab scenario
// when they are empty. Existing rows are left untouched.
func (r *referenceRepository) EnsureSeeded(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var equipmentCount int64
		if err := tx.Model(&models.EquipmentItem{}).Count(&equipmentCount).Error; err != nil {
			return err
		}
		if equipmentCount == 0 {
			items := models.DefaultEquipment()
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}

		var mineralCount int64
		if err := tx.Model(&models.Mineral{}).Count(&mineralCount).Error; err != nil {
			return err
		}
		if mineralCount == 0 {
			minerals := models.DefaultMinerals()
			if err := tx.Create(&minerals).Error; err != nil {
				return err
			}
		}

		var safetyCount int64
		if err := tx.Model(&models.SafetyOption{}).Count(&safetyCount).Error; err != nil {
			return err
		}
		if safetyCount == 0 {
			options := models.DefaultSafetyOptions()
			if err := tx.Create(&options).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
