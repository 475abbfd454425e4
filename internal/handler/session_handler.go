package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/minlab-go-api/internal/dto"
	"github.com/noah-isme/minlab-go-api/internal/middleware"
	"github.com/noah-isme/minlab-go-api/internal/models"
	"github.com/noah-isme/minlab-go-api/internal/service"
	"github.com/noah-isme/minlab-go-api/internal/utils"
	"github.com/noah-isme/minlab-go-api/pkg/report"
)

// SessionHandler exposes the lab activity session endpoints.
type SessionHandler struct {
	service  service.ActivityService
	exporter *report.Exporter
	logger   zerolog.Logger
}

// NewSessionHandler builds a session handler instance.
func NewSessionHandler(service service.ActivityService, exporter *report.Exporter, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		service:  service,
		exporter: exporter,
		logger:   logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register wires the routes below /api/v1/sessions.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Post("", middleware.RateLimit("session_start", 10, time.Minute), h.startSession)
	router.Get("/:id", h.getSession)
	router.Post("/:id/stages/:stage", middleware.RateLimit("stage_submit", 60, time.Minute), h.submitStage)
	router.Post("/:id/measurements", h.requestMeasurement)
	router.Post("/:id/finalize", h.finalize)
	router.Get("/:id/report.pdf", h.exportReport)
}

func (h *SessionHandler) startSession(c *fiber.Ctx) error {
	var payload dto.StartSessionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.StartSession(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session started", response)
}

func (h *SessionHandler) getSession(c *fiber.Ctx) error {
	response, err := h.service.GetSession(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session retrieved", response)
}

func (h *SessionHandler) submitStage(c *fiber.Ctx) error {
	stageParam, err := strconv.Atoi(c.Params("stage"))
	if err != nil || stageParam < 1 || stageParam > models.TotalStages {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid stage number")
	}

	var payload dto.StageSubmission
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	result, err := h.service.SubmitStage(c.Context(), c.Params("id"), models.Stage(stageParam), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	message := "stage accepted"
	if !result.Accepted {
		message = "stage rejected"
	}
	return utils.SendSuccess(c, message, result)
}

func (h *SessionHandler) requestMeasurement(c *fiber.Ctx) error {
	var payload dto.MeasurementRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.RequestMeasurement(c.Context(), c.Params("id"), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "measurement provided", response)
}

func (h *SessionHandler) finalize(c *fiber.Ctx) error {
	response, err := h.service.Finalize(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session finalized", response)
}

func (h *SessionHandler) exportReport(c *fiber.Ctx) error {
	session, err := h.service.GetSession(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	if !session.Completed {
		return utils.SendError(c, fiber.StatusConflict, "activity is not completed yet")
	}

	record := session.Progress
	document, err := h.exporter.Render(report.Data{
		Name:            record.Name,
		Course:          record.Course,
		Score:           record.Score,
		CompletedAt:     record.CompletionTimestamp,
		SampleID:        record.LabelInfo.SampleID,
		ApparentDensity: record.LabData.ApparentDensity,
		Mineral:         record.MineralIdentification,
		Justification:   record.ConclusionJustification,
		SafetyCorrect:   record.SafetyCheck.Correct,
		Procedure:       record.ProposedProcedure,
		LabReport:       record.LabReport,
	})
	if err != nil {
		// Export failure never mutates session state; the action is
		// retryable.
		h.logger.Error().Err(err).Str("session_id", record.SessionID).Msg("report export failed")
		return utils.SendError(c, fiber.StatusBadGateway, "no se pudo generar el informe PDF")
	}

	filename := fmt.Sprintf("Informe_%s.pdf", strings.ReplaceAll(record.Name, " ", "_"))
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(document)
}

func (h *SessionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrSessionCompleted):
		return utils.SendError(c, fiber.StatusConflict, "session already completed")
	case errors.Is(err, service.ErrFeedbackPending):
		return utils.SendError(c, fiber.StatusConflict, "feedback request already in flight")
	case errors.Is(err, service.ErrStageMismatch):
		return utils.SendError(c, fiber.StatusConflict, "stage does not match current progress")
	case errors.Is(err, service.ErrAvatarNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, "avatar is not part of the allowed set")
	case errors.Is(err, service.ErrUnknownMeasurement):
		return utils.SendError(c, fiber.StatusBadRequest, "unknown measurement key")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
