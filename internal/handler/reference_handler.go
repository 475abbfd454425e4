package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/minlab-go-api/internal/service"
	"github.com/noah-isme/minlab-go-api/internal/utils"
)

// ReferenceHandler serves the seeded lab catalog.
type ReferenceHandler struct {
	service service.ReferenceService
	logger  zerolog.Logger
}

// NewReferenceHandler builds a reference catalog handler.
func NewReferenceHandler(service service.ReferenceService, logger zerolog.Logger) *ReferenceHandler {
	return &ReferenceHandler{
		service: service,
		logger:  logger.With().Str("component", "reference_handler").Logger(),
	}
}

// Register wires the routes below /api/v1/reference.
func (h *ReferenceHandler) Register(router fiber.Router) {
	router.Get("/equipment", h.listEquipment)
	router.Get("/minerals", h.listMinerals)
	router.Get("/safety", h.listSafetyOptions)
}

func (h *ReferenceHandler) listEquipment(c *fiber.Ctx) error {
	items, err := h.service.ListEquipment(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "equipment retrieved", items)
}

func (h *ReferenceHandler) listMinerals(c *fiber.Ctx) error {
	minerals, err := h.service.ListMinerals(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "minerals retrieved", minerals)
}

func (h *ReferenceHandler) listSafetyOptions(c *fiber.Ctx) error {
	options, err := h.service.ListSafetyOptions(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "safety options retrieved", options)
}

func (h *ReferenceHandler) handleError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
