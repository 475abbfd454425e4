package service_test

import (
	"context"
	"io"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/minlab-go-api/internal/dto"
	"github.com/noah-isme/minlab-go-api/internal/models"
	"github.com/noah-isme/minlab-go-api/internal/repository"
	"github.com/noah-isme/minlab-go-api/internal/service"
	"github.com/noah-isme/minlab-go-api/internal/store"
	"github.com/noah-isme/minlab-go-api/pkg/ai"
)

type fakeProvider struct {
	feedback string
	summary  string

	// When set, EvaluateProcedure signals started and then blocks until
	// release is closed.
	started chan struct{}
	release chan struct{}
}

func (p *fakeProvider) EvaluateProcedure(ctx context.Context, procedure string) string {
	if p.started != nil {
		p.started <- struct{}{}
		<-p.release
	}
	return p.feedback
}

func (p *fakeProvider) GenerateSummary(ctx context.Context, input ai.SummaryInput) string {
	return p.summary
}

type activityFixture struct {
	service   service.ActivityService
	store     *store.SessionStore
	records   repository.RecordRepository
	reference repository.ReferenceRepository
	provider  *fakeProvider
	redis     *redis.Client
}

func setupActivity(t *testing.T) activityFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.EquipmentItem{}, &models.Mineral{}, &models.SafetyOption{}, &models.LabRecord{}))

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := zerolog.New(io.Discard)

	referenceRepo := repository.NewReferenceRepository(db)
	require.NoError(t, referenceRepo.EnsureSeeded(context.Background()))

	recordRepo := repository.NewRecordRepository(db)
	sessionStore := store.NewSessionStore(client, time.Hour, logger)

	provider := &fakeProvider{
		feedback: "Considera verificar la calibración de la balanza.",
		summary:  "Se determinó la densidad aparente de la muestra.",
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := service.NewActivityService(referenceRepo, recordRepo, sessionStore, provider, validate, testTruth, logger)

	return activityFixture{
		service:   svc,
		store:     sessionStore,
		records:   recordRepo,
		reference: referenceRepo,
		provider:  provider,
		redis:     client,
	}
}

func startSession(t *testing.T, svc service.ActivityService) string {
	t.Helper()

	response, err := svc.StartSession(context.Background(), dto.StartSessionRequest{
		Name:   "Valentina Rojas",
		Course: "Metalurgia I",
		Avatar: models.Avatars[0],
	})
	require.NoError(t, err)
	require.Equal(t, 1, response.CurrentStage)
	require.NotEmpty(t, response.SessionID)
	return response.SessionID
}

// walkToStage drives a fresh session through accepted submissions up to, but
// not including, the target stage.
func walkToStage(t *testing.T, fx activityFixture, sessionID string, target models.Stage) {
	t.Helper()
	ctx := context.Background()

	steps := []struct {
		stage  models.Stage
		before func()
		input  dto.StageSubmission
	}{
		{stage: models.StageEquipment, input: dto.StageSubmission{Equipment: requiredEquipment}},
		{stage: models.StageProcedure, input: dto.StageSubmission{Procedure: "Pesar la muestra, sumergirla en la probeta y medir el volumen desplazado."}},
		{stage: models.StageFeedback},
		{stage: models.StageSafety, input: dto.StageSubmission{SafetyAnswer: "gafas"}},
		{
			stage: models.StageDataRequest,
			before: func() {
				for _, key := range models.AllMeasurements {
					_, err := fx.service.RequestMeasurement(ctx, sessionID, dto.MeasurementRequest{Key: key})
					require.NoError(t, err)
				}
			},
		},
		{stage: models.StageDensity, input: dto.StageSubmission{Density: "3.50"}},
		{stage: models.StageMineral, input: dto.StageSubmission{Mineral: expectedMineral}},
		{stage: models.StageJustification, input: dto.StageSubmission{Justification: "La densidad de 3.50 g/cm³ coincide con el rango de la calcopirita."}},
	}

	for _, step := range steps {
		if step.stage >= target {
			return
		}
		if step.before != nil {
			step.before()
		}
		result, err := fx.service.SubmitStage(ctx, sessionID, step.stage, step.input)
		require.NoError(t, err)
		require.True(t, result.Accepted, "stage %d should advance", step.stage)
	}
}

func TestActivityService_FullWalkthrough(t *testing.T) {
	fx := setupActivity(t)
	ctx := context.Background()

	sessionID := startSession(t, fx.service)
	walkToStage(t, fx, sessionID, models.StageLabeling)

	result, err := fx.service.SubmitStage(ctx, sessionID, models.StageLabeling, dto.StageSubmission{})
	require.NoError(t, err)
	require.True(t, result.Accepted)
	require.True(t, result.Completed)
	require.Equal(t, int(models.StageReport), result.CurrentStage)
	require.Equal(t, fx.provider.summary, result.Feedback)

	response, err := fx.service.GetSession(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, response.Completed)
	require.Equal(t, 100, response.Progress.Score)
	require.Len(t, response.ScoreBreakdown, 10)
	require.InDelta(t, 3.50, response.Progress.LabData.ApparentDensity, 1e-9)
	require.False(t, response.Progress.CompletionTimestamp.IsZero())
	require.Contains(t, response.Progress.LabelInfo.SampleID, "MN-CO-OX-")
	require.Equal(t, models.SampleMaterial, response.Progress.LabelInfo.Material)
}

func TestActivityService_PersistsFrozenRecord(t *testing.T) {
	fx := setupActivity(t)
	ctx := context.Background()

	sessionID := startSession(t, fx.service)
	walkToStage(t, fx, sessionID, models.StageLabeling)

	_, err := fx.service.SubmitStage(ctx, sessionID, models.StageLabeling, dto.StageSubmission{})
	require.NoError(t, err)

	stored, ok := fx.store.Load(ctx, sessionID)
	require.True(t, ok)
	require.True(t, stored.Completed)
	require.Equal(t, 100, stored.Score)
	require.Equal(t, "Valentina Rojas", stored.Name)

	archived, err := fx.records.GetBySessionID(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, 100, archived.Score)
	require.Equal(t, "Metalurgia I", archived.Course)

	payload, err := archived.Record()
	require.NoError(t, err)
	require.Equal(t, stored.LabelInfo.SampleID, payload.LabelInfo.SampleID)
}

func TestActivityService_StoreFallbackAfterRestart(t *testing.T) {
	fx := setupActivity(t)
	ctx := context.Background()

	sessionID := startSession(t, fx.service)
	walkToStage(t, fx, sessionID, models.StageLabeling)
	_, err := fx.service.SubmitStage(ctx, sessionID, models.StageLabeling, dto.StageSubmission{})
	require.NoError(t, err)

	// A fresh service instance has no in-memory session but shares the store.
	validate := validator.New(validator.WithRequiredStructEnabled())
	restarted := service.NewActivityService(fx.reference, fx.records, fx.store, fx.provider, validate, testTruth, zerolog.New(io.Discard))

	response, err := restarted.GetSession(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, response.Completed)
	require.Equal(t, int(models.StageReport), response.CurrentStage)
	require.Equal(t, 100, response.Progress.Score)
}

func TestActivityService_EquipmentRejectionKeepsStage(t *testing.T) {
	fx := setupActivity(t)
	ctx := context.Background()
	sessionID := startSession(t, fx.service)

	result, err := fx.service.SubmitStage(ctx, sessionID, models.StageEquipment, dto.StageSubmission{
		Equipment: []string{"Balanza", "Termómetro"},
	})
	require.NoError(t, err)
	require.False(t, result.Accepted)
	require.Contains(t, result.Reason, "exactamente 4 elementos")
	require.Equal(t, 1, result.CurrentStage)

	stage, err := fx.service.CurrentStage(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, models.StageEquipment, stage)
}

func TestActivityService_DensityRejectionNamesCorrectValue(t *testing.T) {
	fx := setupActivity(t)
	ctx := context.Background()

	sessionID := startSession(t, fx.service)
	walkToStage(t, fx, sessionID, models.StageDensity)

	result, err := fx.service.SubmitStage(ctx, sessionID, models.StageDensity, dto.StageSubmission{Density: "3.6"})
	require.NoError(t, err)
	require.False(t, result.Accepted)
	require.Contains(t, result.Reason, "3.50")
	require.Equal(t, int(models.StageDensity), result.CurrentStage)
}

func TestActivityService_OutOfOrderSubmission(t *testing.T) {
	fx := setupActivity(t)
	ctx := context.Background()
	sessionID := startSession(t, fx.service)

	_, err := fx.service.SubmitStage(ctx, sessionID, models.StageDensity, dto.StageSubmission{Density: "3.50"})
	require.ErrorIs(t, err, service.ErrStageMismatch)
}

func TestActivityService_UnknownSession(t *testing.T) {
	fx := setupActivity(t)

	_, err := fx.service.GetSession(context.Background(), "missing")
	require.ErrorIs(t, err, service.ErrSessionNotFound)

	_, err = fx.service.SubmitStage(context.Background(), "missing", models.StageEquipment, dto.StageSubmission{})
	require.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestActivityService_RejectsInvalidAvatar(t *testing.T) {
	fx := setupActivity(t)

	_, err := fx.service.StartSession(context.Background(), dto.StartSessionRequest{
		Name:   "Valentina Rojas",
		Course: "Metalurgia I",
		Avatar: "https://example.com/not-in-the-set.png",
	})
	require.ErrorIs(t, err, service.ErrAvatarNotAllowed)
}

func TestActivityService_MeasurementFlow(t *testing.T) {
	fx := setupActivity(t)
	ctx := context.Background()

	sessionID := startSession(t, fx.service)
	walkToStage(t, fx, sessionID, models.StageDataRequest)

	// Advancing before all three measurements are pulled is rejected.
	result, err := fx.service.SubmitStage(ctx, sessionID, models.StageDataRequest, dto.StageSubmission{})
	require.NoError(t, err)
	require.False(t, result.Accepted)

	response, err := fx.service.RequestMeasurement(ctx, sessionID, dto.MeasurementRequest{Key: models.MeasurementMass})
	require.NoError(t, err)
	require.InDelta(t, 157.5, response.Value, 1e-9)
	require.Equal(t, "g", response.Unit)
	require.False(t, response.Complete)

	// Requesting the same measurement twice does not duplicate it.
	response, err = fx.service.RequestMeasurement(ctx, sessionID, dto.MeasurementRequest{Key: models.MeasurementMass})
	require.NoError(t, err)
	require.Len(t, response.Requested, 1)

	_, err = fx.service.RequestMeasurement(ctx, sessionID, dto.MeasurementRequest{Key: models.MeasurementInitialVolume})
	require.NoError(t, err)
	response, err = fx.service.RequestMeasurement(ctx, sessionID, dto.MeasurementRequest{Key: models.MeasurementFinalVolume})
	require.NoError(t, err)
	require.True(t, response.Complete)

	result, err = fx.service.SubmitStage(ctx, sessionID, models.StageDataRequest, dto.StageSubmission{})
	require.NoError(t, err)
	require.True(t, result.Accepted)
}

func TestActivityService_UnknownMeasurementKey(t *testing.T) {
	fx := setupActivity(t)
	ctx := context.Background()

	sessionID := startSession(t, fx.service)
	walkToStage(t, fx, sessionID, models.StageDataRequest)

	for _, key := range []string{"temperature", "", "MASS"} {
		_, err := fx.service.RequestMeasurement(ctx, sessionID, dto.MeasurementRequest{Key: key})
		require.ErrorIs(t, err, service.ErrUnknownMeasurement, "key %q", key)
	}
}

func TestActivityService_FeedbackPendingBlocksConcurrentSubmit(t *testing.T) {
	fx := setupActivity(t)
	ctx := context.Background()

	sessionID := startSession(t, fx.service)
	_, err := fx.service.SubmitStage(ctx, sessionID, models.StageEquipment, dto.StageSubmission{Equipment: requiredEquipment})
	require.NoError(t, err)

	fx.provider.started = make(chan struct{})
	fx.provider.release = make(chan struct{})

	type submitOutcome struct {
		result dto.StageResult
		err    error
	}
	done := make(chan submitOutcome, 1)
	go func() {
		result, submitErr := fx.service.SubmitStage(ctx, sessionID, models.StageProcedure, dto.StageSubmission{
			Procedure: "Pesar la muestra y medir el volumen desplazado.",
		})
		done <- submitOutcome{result: result, err: submitErr}
	}()

	<-fx.provider.started

	_, err = fx.service.SubmitStage(ctx, sessionID, models.StageProcedure, dto.StageSubmission{Procedure: "otro intento"})
	require.ErrorIs(t, err, service.ErrFeedbackPending)

	close(fx.provider.release)
	outcome := <-done
	require.NoError(t, outcome.err)
	result := outcome.result
	require.True(t, result.Accepted)
	require.Equal(t, int(models.StageFeedback), result.CurrentStage)
	require.Equal(t, fx.provider.feedback, result.Feedback)
}

func TestActivityService_CompletedSessionIsFrozen(t *testing.T) {
	fx := setupActivity(t)
	ctx := context.Background()

	sessionID := startSession(t, fx.service)
	walkToStage(t, fx, sessionID, models.StageLabeling)
	_, err := fx.service.SubmitStage(ctx, sessionID, models.StageLabeling, dto.StageSubmission{})
	require.NoError(t, err)

	_, err = fx.service.SubmitStage(ctx, sessionID, models.StageLabeling, dto.StageSubmission{})
	require.ErrorIs(t, err, service.ErrSessionCompleted)

	_, err = fx.service.RequestMeasurement(ctx, sessionID, dto.MeasurementRequest{Key: models.MeasurementMass})
	require.ErrorIs(t, err, service.ErrSessionCompleted)
}

func TestActivityService_FinalizeIsIdempotent(t *testing.T) {
	fx := setupActivity(t)
	ctx := context.Background()

	sessionID := startSession(t, fx.service)
	walkToStage(t, fx, sessionID, models.StageLabeling)

	first, err := fx.service.Finalize(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, first.Completed)
	require.Equal(t, 100, first.Progress.Score)

	second, err := fx.service.Finalize(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, first.Progress.Score, second.Progress.Score)
	require.Equal(t, first.Progress.CompletionTimestamp, second.Progress.CompletionTimestamp)
	require.Equal(t, first.Progress.LabReport, second.Progress.LabReport)
}

func TestActivityService_FinalizeRequiresLabelingStage(t *testing.T) {
	fx := setupActivity(t)
	ctx := context.Background()

	sessionID := startSession(t, fx.service)
	_, err := fx.service.Finalize(ctx, sessionID)
	require.ErrorIs(t, err, service.ErrStageMismatch)
}

func TestActivityService_MarkupOnlyProcedureIsRejected(t *testing.T) {
	fx := setupActivity(t)
	ctx := context.Background()

	sessionID := startSession(t, fx.service)
	_, err := fx.service.SubmitStage(ctx, sessionID, models.StageEquipment, dto.StageSubmission{Equipment: requiredEquipment})
	require.NoError(t, err)

	// Sanitizing strips the markup to nothing, so the gate must reject and
	// the stage must not advance.
	result, err := fx.service.SubmitStage(ctx, sessionID, models.StageProcedure, dto.StageSubmission{
		Procedure: "<script>alert('x')</script>",
	})
	require.NoError(t, err)
	require.False(t, result.Accepted)
	require.Equal(t, int(models.StageProcedure), result.CurrentStage)

	response, err := fx.service.GetSession(ctx, sessionID)
	require.NoError(t, err)
	require.Empty(t, response.Progress.ProposedProcedure)
	require.Equal(t, int(models.StageProcedure), response.CurrentStage)
}

func TestActivityService_MarkupOnlyJustificationIsRejected(t *testing.T) {
	fx := setupActivity(t)
	ctx := context.Background()

	sessionID := startSession(t, fx.service)
	walkToStage(t, fx, sessionID, models.StageJustification)

	result, err := fx.service.SubmitStage(ctx, sessionID, models.StageJustification, dto.StageSubmission{
		Justification: "<b></b><script>var x = 1;</script>",
	})
	require.NoError(t, err)
	require.False(t, result.Accepted)
	require.Equal(t, int(models.StageJustification), result.CurrentStage)

	response, err := fx.service.GetSession(ctx, sessionID)
	require.NoError(t, err)
	require.Empty(t, response.Progress.ConclusionJustification)
}

func TestActivityService_JustificationIsSanitized(t *testing.T) {
	fx := setupActivity(t)
	ctx := context.Background()

	sessionID := startSession(t, fx.service)
	walkToStage(t, fx, sessionID, models.StageJustification)

	result, err := fx.service.SubmitStage(ctx, sessionID, models.StageJustification, dto.StageSubmission{
		Justification: "<script>alert('x')</script>La densidad coincide con la calcopirita.",
	})
	require.NoError(t, err)
	require.True(t, result.Accepted)

	response, err := fx.service.GetSession(ctx, sessionID)
	require.NoError(t, err)
	require.NotContains(t, response.Progress.ConclusionJustification, "<script>")
	require.Contains(t, response.Progress.ConclusionJustification, "La densidad coincide")
}
