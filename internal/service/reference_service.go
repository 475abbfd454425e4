package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/minlab-go-api/internal/dto"
	"github.com/noah-isme/minlab-go-api/internal/repository"
)

// ReferenceService serves the seeded lab catalog to the presentation layer.
type ReferenceService interface {
	ListEquipment(ctx context.Context) ([]dto.EquipmentItemResponse, error)
	ListMinerals(ctx context.Context) ([]dto.MineralResponse, error)
	ListSafetyOptions(ctx context.Context) ([]dto.SafetyOptionResponse, error)
	Seed(ctx context.Context) error
}

type referenceService struct {
	catalog repository.ReferenceRepository
	logger  zerolog.Logger
}

// NewReferenceService constructs the catalog service.
func NewReferenceService(catalog repository.ReferenceRepository, logger zerolog.Logger) ReferenceService {
	return &referenceService{
		catalog: catalog,
		logger:  logger.With().Str("component", "reference_service").Logger(),
	}
}

func (s *referenceService) ListEquipment(ctx context.Context) ([]dto.EquipmentItemResponse, error) {
	items, err := s.catalog.ListEquipment(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewEquipmentResponseSlice(items), nil
}

func (s *referenceService) ListMinerals(ctx context.Context) ([]dto.MineralResponse, error) {
	minerals, err := s.catalog.ListMinerals(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewMineralResponseSlice(minerals), nil
}

func (s *referenceService) ListSafetyOptions(ctx context.Context) ([]dto.SafetyOptionResponse, error) {
	options, err := s.catalog.ListSafetyOptions(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewSafetyOptionResponseSlice(options), nil
}

// Seed populates the catalog with the default scenario when empty.
func (s *referenceService) Seed(ctx context.Context) error {
	if err := s.catalog.EnsureSeeded(ctx); err != nil {
		return err
	}
	s.logger.Info().Msg("reference catalog seeded")
	return nil
}
