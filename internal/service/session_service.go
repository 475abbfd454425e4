package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/minlab-go-api/internal/dto"
	"github.com/noah-isme/minlab-go-api/internal/models"
	"github.com/noah-isme/minlab-go-api/internal/observability"
	"github.com/noah-isme/minlab-go-api/internal/repository"
	"github.com/noah-isme/minlab-go-api/internal/store"
	"github.com/noah-isme/minlab-go-api/pkg/ai"
)

var (
	// ErrSessionNotFound indicates the session does not exist in memory or
	// durable storage.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCompleted indicates the record is frozen and accepts no input.
	ErrSessionCompleted = errors.New("session already completed")
	// ErrStageMismatch indicates the submitted stage is not the current one.
	ErrStageMismatch = errors.New("submitted stage does not match current progress")
	// ErrFeedbackPending rejects duplicate submissions while a feedback
	// request is in flight.
	ErrFeedbackPending = errors.New("a feedback request is already in flight")
	// ErrAvatarNotAllowed indicates the avatar is outside the fixed set.
	ErrAvatarNotAllowed = errors.New("avatar is not part of the allowed set")
	// ErrUnknownMeasurement indicates an unrecognised measurement key.
	ErrUnknownMeasurement = errors.New("unknown measurement key")
)

// ActivityService drives a student through the ten-stage lab activity:
// validators gate each transition, the feedback provider is consulted on the
// two free-text stages, and finalization assembles and freezes the record.
type ActivityService interface {
	StartSession(ctx context.Context, req dto.StartSessionRequest) (dto.SessionResponse, error)
	CurrentStage(ctx context.Context, sessionID string) (models.Stage, error)
	SubmitStage(ctx context.Context, sessionID string, stage models.Stage, input dto.StageSubmission) (dto.StageResult, error)
	RequestMeasurement(ctx context.Context, sessionID string, req dto.MeasurementRequest) (dto.MeasurementResponse, error)
	Finalize(ctx context.Context, sessionID string) (dto.SessionResponse, error)
	GetSession(ctx context.Context, sessionID string) (dto.SessionResponse, error)
}

type session struct {
	mu        sync.Mutex
	record    models.ProgressRecord
	stage     models.Stage
	pending   bool
	breakdown []dto.StageScore
}

type activityService struct {
	mu       sync.RWMutex
	sessions map[string]*session

	reference repository.ReferenceRepository
	records   repository.RecordRepository
	store     *store.SessionStore
	provider  ai.FeedbackProvider
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	truth     GroundTruth
	logger    zerolog.Logger
	now       func() time.Time
}

// NewActivityService constructs the activity orchestrator.
func NewActivityService(
	referenceRepo repository.ReferenceRepository,
	recordRepo repository.RecordRepository,
	sessionStore *store.SessionStore,
	provider ai.FeedbackProvider,
	validate *validator.Validate,
	truth GroundTruth,
	logger zerolog.Logger,
) ActivityService {
	return &activityService{
		sessions:  make(map[string]*session),
		reference: referenceRepo,
		records:   recordRepo,
		store:     sessionStore,
		provider:  provider,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		truth:     truth,
		logger:    logger.With().Str("component", "activity_service").Logger(),
		now:       time.Now,
	}
}

func (s *activityService) StartSession(ctx context.Context, req dto.StartSessionRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SessionResponse{}, err
	}

	allowed := false
	for _, avatar := range models.Avatars {
		if avatar == req.Avatar {
			allowed = true
			break
		}
	}
	if !allowed {
		return dto.SessionResponse{}, ErrAvatarNotAllowed
	}

	startedAt := s.now()
	record := models.ProgressRecord{
		SessionID:             uuid.NewString(),
		Name:                  strings.TrimSpace(req.Name),
		Course:                strings.TrimSpace(req.Course),
		Avatar:                req.Avatar,
		RequestedMeasurements: []string{},
		LabData: models.LabData{
			Mass:          s.truth.Mass,
			InitialVolume: s.truth.InitialVolume,
			FinalVolume:   s.truth.FinalVolume,
		},
		LabelInfo: models.LabelInfo{
			SampleID: models.NewSampleID(startedAt),
			Date:     startedAt.Format("02/01/2006"),
			Material: models.SampleMaterial,
		},
	}

	sess := &session{record: record, stage: models.StageEquipment}

	s.mu.Lock()
	s.sessions[record.SessionID] = sess
	s.mu.Unlock()

	observability.SessionsStarted().Inc()
	s.logger.Info().
		Str("session_id", record.SessionID).
		Str("sample_id", record.LabelInfo.SampleID).
		Msg("activity session started")

	return dto.SessionResponse{
		SessionID:    record.SessionID,
		CurrentStage: int(models.StageEquipment),
		Progress:     record,
	}, nil
}

func (s *activityService) CurrentStage(ctx context.Context, sessionID string) (models.Stage, error) {
	response, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return models.Stage(response.CurrentStage), nil
}

func (s *activityService) SubmitStage(ctx context.Context, sessionID string, stage models.Stage, input dto.StageSubmission) (dto.StageResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return dto.StageResult{}, err
	}

	sess.mu.Lock()
	if sess.record.Completed {
		sess.mu.Unlock()
		return dto.StageResult{}, ErrSessionCompleted
	}
	if sess.pending {
		sess.mu.Unlock()
		return dto.StageResult{}, ErrFeedbackPending
	}
	if stage != sess.stage {
		sess.mu.Unlock()
		return dto.StageResult{}, ErrStageMismatch
	}

	switch stage {
	case models.StageEquipment:
		required, err := s.reference.RequiredEquipment(ctx)
		if err != nil {
			sess.mu.Unlock()
			return dto.StageResult{}, fmt.Errorf("load required equipment: %w", err)
		}
		if decision := ValidateEquipment(input.Equipment, required); !decision.Accepted {
			return s.rejectLocked(sess, decision), nil
		}
		sess.record.SelectedEquipment = append([]string(nil), input.Equipment...)
		sess.stage = models.StageProcedure
		return s.acceptLocked(sess), nil

	case models.StageProcedure:
		// Sanitize before the gate so the text that passes it is the text
		// the record keeps. Markup-only input trims to empty and is rejected.
		procedure := strings.TrimSpace(s.sanitizer.Sanitize(input.Procedure))
		if decision := ValidateProcedure(procedure); !decision.Accepted {
			return s.rejectLocked(sess, decision), nil
		}
		return s.submitProcedure(ctx, sess, procedure), nil

	case models.StageFeedback:
		// Acknowledgement only, nothing to validate.
		sess.stage = models.StageSafety
		return s.acceptLocked(sess), nil

	case models.StageSafety:
		correctKey, err := s.reference.CorrectSafetyKey(ctx)
		if err != nil {
			sess.mu.Unlock()
			return dto.StageResult{}, fmt.Errorf("load safety answer: %w", err)
		}
		sess.record.SafetyCheck = EvaluateSafety(strings.TrimSpace(input.SafetyAnswer), correctKey)
		sess.stage = models.StageDataRequest
		return s.acceptLocked(sess), nil

	case models.StageDataRequest:
		if decision := ValidateMeasurements(sess.record.RequestedMeasurements); !decision.Accepted {
			return s.rejectLocked(sess, decision), nil
		}
		sess.stage = models.StageDensity
		return s.acceptLocked(sess), nil

	case models.StageDensity:
		value, decision := ValidateDensityGuess(input.Density, s.truth)
		if !decision.Accepted {
			return s.rejectLocked(sess, decision), nil
		}
		sess.record.UserCalculatedDensity = value
		sess.stage = models.StageMineral
		return s.acceptLocked(sess), nil

	case models.StageMineral:
		if decision := ValidateMineralChoice(input.Mineral); !decision.Accepted {
			return s.rejectLocked(sess, decision), nil
		}
		sess.record.MineralIdentification = strings.TrimSpace(input.Mineral)
		sess.stage = models.StageJustification
		return s.acceptLocked(sess), nil

	case models.StageJustification:
		justification := strings.TrimSpace(s.sanitizer.Sanitize(input.Justification))
		if decision := ValidateJustification(justification); !decision.Accepted {
			return s.rejectLocked(sess, decision), nil
		}
		sess.record.ConclusionJustification = justification
		sess.stage = models.StageLabeling
		return s.acceptLocked(sess), nil

	case models.StageLabeling:
		return s.finalizeLocked(ctx, sess)

	default:
		sess.mu.Unlock()
		return dto.StageResult{}, ErrStageMismatch
	}
}

// submitProcedure handles the first asynchronous boundary: the triggering
// action stays disabled (pending) until the feedback request settles.
func (s *activityService) submitProcedure(ctx context.Context, sess *session, procedure string) dto.StageResult {
	sess.pending = true
	sess.mu.Unlock()

	feedback := s.provider.EvaluateProcedure(ctx, procedure)

	sess.mu.Lock()
	sess.pending = false
	sess.record.ProposedProcedure = procedure
	sess.record.AIFeedback = feedback
	sess.stage = models.StageFeedback
	result := dto.StageResult{
		Accepted:     true,
		CurrentStage: int(sess.stage),
		Feedback:     feedback,
	}
	sess.mu.Unlock()

	return result
}

// finalizeLocked is the result assembler. It derives the apparent density,
// requests the summary narrative, computes the score, stamps the completion
// timestamp, and freezes the record. Runs at most once per session.
func (s *activityService) finalizeLocked(ctx context.Context, sess *session) (dto.StageResult, error) {
	required, err := s.reference.RequiredEquipment(ctx)
	if err != nil {
		sess.mu.Unlock()
		return dto.StageResult{}, fmt.Errorf("load required equipment: %w", err)
	}
	expected, err := s.reference.ExpectedMineral(ctx)
	if err != nil {
		sess.mu.Unlock()
		return dto.StageResult{}, fmt.Errorf("load expected mineral: %w", err)
	}

	sess.record.LabData.ApparentDensity = sess.record.LabData.Density()
	summaryInput := ai.SummaryInput{
		SampleID:        sess.record.LabelInfo.SampleID,
		Date:            sess.record.LabelInfo.Date,
		Material:        sess.record.LabelInfo.Material,
		Mass:            sess.record.LabData.Mass,
		InitialVolume:   sess.record.LabData.InitialVolume,
		FinalVolume:     sess.record.LabData.FinalVolume,
		ApparentDensity: sess.record.LabData.ApparentDensity,
	}
	sess.pending = true
	sess.mu.Unlock()

	report := s.provider.GenerateSummary(ctx, summaryInput)

	sess.mu.Lock()
	sess.pending = false
	if sess.record.Completed {
		result := dto.StageResult{Accepted: true, CurrentStage: int(sess.stage), Completed: true}
		sess.mu.Unlock()
		return result, nil
	}

	sess.record.LabReport = report
	score, breakdown := ComputeScore(sess.record, ScoringContext{
		Truth:             s.truth,
		RequiredEquipment: required,
		ExpectedMineral:   expected,
	})
	sess.record.Score = score
	sess.record.CompletionTimestamp = s.now().UTC()
	sess.record.Completed = true
	sess.stage = models.StageReport
	sess.breakdown = mapBreakdown(breakdown)
	frozen := sess.record
	sess.mu.Unlock()

	s.persist(ctx, frozen)

	observability.SessionsCompleted().Inc()
	observability.SessionScore().Observe(float64(score))
	s.logger.Info().
		Str("session_id", frozen.SessionID).
		Int("score", score).
		Msg("activity session finalized")

	return dto.StageResult{
		Accepted:     true,
		CurrentStage: int(models.StageReport),
		Feedback:     report,
		Completed:    true,
	}, nil
}

// persist writes the frozen record to durable storage and the archive. Both
// writes are best effort: failures are logged and never roll back completion.
func (s *activityService) persist(ctx context.Context, frozen models.ProgressRecord) {
	if s.store != nil {
		if err := s.store.Save(ctx, frozen); err != nil {
			s.logger.Warn().Err(err).Str("session_id", frozen.SessionID).Msg("failed to persist frozen record")
		}
	}

	if s.records != nil {
		archived := models.LabRecord{
			SessionID:   frozen.SessionID,
			StudentName: frozen.Name,
			Course:      frozen.Course,
			Score:       frozen.Score,
			CompletedAt: frozen.CompletionTimestamp,
		}
		if err := archived.SetRecord(frozen); err != nil {
			s.logger.Warn().Err(err).Str("session_id", frozen.SessionID).Msg("failed to encode archive payload")
			return
		}
		if err := s.records.Create(ctx, &archived); err != nil {
			s.logger.Warn().Err(err).Str("session_id", frozen.SessionID).Msg("failed to archive frozen record")
		}
	}
}

func (s *activityService) RequestMeasurement(ctx context.Context, sessionID string, req dto.MeasurementRequest) (dto.MeasurementResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return dto.MeasurementResponse{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.record.Completed {
		return dto.MeasurementResponse{}, ErrSessionCompleted
	}
	if sess.stage != models.StageDataRequest {
		return dto.MeasurementResponse{}, ErrStageMismatch
	}

	var value float64
	var unit string
	switch req.Key {
	case models.MeasurementMass:
		value, unit = s.truth.Mass, "g"
	case models.MeasurementInitialVolume:
		value, unit = s.truth.InitialVolume, "mL"
	case models.MeasurementFinalVolume:
		value, unit = s.truth.FinalVolume, "mL"
	default:
		return dto.MeasurementResponse{}, ErrUnknownMeasurement
	}

	if !sess.record.HasRequested(req.Key) {
		sess.record.RequestedMeasurements = append(sess.record.RequestedMeasurements, req.Key)
	}

	return dto.MeasurementResponse{
		Key:       req.Key,
		Value:     value,
		Unit:      unit,
		Requested: append([]string(nil), sess.record.RequestedMeasurements...),
		Complete:  ValidateMeasurements(sess.record.RequestedMeasurements).Accepted,
	}, nil
}

func (s *activityService) Finalize(ctx context.Context, sessionID string) (dto.SessionResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		// A frozen record loaded from storage is already final.
		if errors.Is(err, ErrSessionNotFound) {
			return s.GetSession(ctx, sessionID)
		}
		return dto.SessionResponse{}, err
	}

	sess.mu.Lock()
	if sess.record.Completed {
		response := s.responseLocked(sess)
		sess.mu.Unlock()
		return response, nil
	}
	if sess.pending {
		sess.mu.Unlock()
		return dto.SessionResponse{}, ErrFeedbackPending
	}
	if sess.stage != models.StageLabeling {
		sess.mu.Unlock()
		return dto.SessionResponse{}, ErrStageMismatch
	}

	if _, err := s.finalizeLocked(ctx, sess); err != nil {
		return dto.SessionResponse{}, err
	}

	sess.mu.Lock()
	response := s.responseLocked(sess)
	sess.mu.Unlock()
	return response, nil
}

func (s *activityService) GetSession(ctx context.Context, sessionID string) (dto.SessionResponse, error) {
	if sess, err := s.session(sessionID); err == nil {
		sess.mu.Lock()
		response := s.responseLocked(sess)
		sess.mu.Unlock()
		return response, nil
	}

	if s.store != nil {
		if record, ok := s.store.Load(ctx, sessionID); ok {
			return dto.SessionResponse{
				SessionID:    record.SessionID,
				CurrentStage: int(models.StageReport),
				Completed:    true,
				Progress:     record,
			}, nil
		}
	}

	return dto.SessionResponse{}, ErrSessionNotFound
}

func (s *activityService) session(sessionID string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *activityService) responseLocked(sess *session) dto.SessionResponse {
	return dto.SessionResponse{
		SessionID:      sess.record.SessionID,
		CurrentStage:   int(sess.stage),
		Completed:      sess.record.Completed,
		Progress:       sess.record,
		ScoreBreakdown: append([]dto.StageScore(nil), sess.breakdown...),
	}
}

func (s *activityService) acceptLocked(sess *session) dto.StageResult {
	result := dto.StageResult{Accepted: true, CurrentStage: int(sess.stage)}
	sess.mu.Unlock()
	return result
}

func (s *activityService) rejectLocked(sess *session, decision StageDecision) dto.StageResult {
	stage := sess.stage
	result := dto.StageResult{
		Accepted:     false,
		Reason:       decision.Reason,
		CurrentStage: int(stage),
	}
	sess.mu.Unlock()

	observability.StageRejections().WithLabelValues(fmt.Sprintf("%d", stage)).Inc()
	return result
}

func mapBreakdown(breakdown []StageScore) []dto.StageScore {
	mapped := make([]dto.StageScore, 0, len(breakdown))
	for _, entry := range breakdown {
		mapped = append(mapped, dto.StageScore{
			Stage:   int(entry.Stage),
			Label:   entry.Label,
			Points:  entry.Points,
			Awarded: entry.Awarded,
		})
	}
	return mapped
}
