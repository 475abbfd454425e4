package dto

import (
	"github.com/noah-isme/minlab-go-api/internal/models"
)

// StartSessionRequest registers a student and opens a new activity session.
type StartSessionRequest struct {
	Name   string `json:"name" validate:"required"`
	Course string `json:"course" validate:"required"`
	Avatar string `json:"avatar" validate:"required,url"`
}

// StageSubmission carries the raw input for one stage. Only the field
// matching the submitted stage is read.
type StageSubmission struct {
	Equipment     []string `json:"equipment,omitempty"`
	Procedure     string   `json:"procedure,omitempty"`
	SafetyAnswer  string   `json:"safetyAnswer,omitempty"`
	Density       string   `json:"density,omitempty"`
	Mineral       string   `json:"mineral,omitempty"`
	Justification string   `json:"justification,omitempty"`
}

// StageScore is one of the ten independent score contributions, reported in
// the completed-session summary.
type StageScore struct {
	Stage   int    `json:"stage"`
	Label   string `json:"label"`
	Points  int    `json:"points"`
	Awarded int    `json:"awarded"`
}

// StageResult reports the outcome of a stage submission. A rejected
// submission carries the blocking reason and leaves the stage unchanged.
type StageResult struct {
	Accepted     bool   `json:"accepted"`
	Reason       string `json:"reason,omitempty"`
	CurrentStage int    `json:"currentStage"`
	Feedback     string `json:"feedback,omitempty"`
	Completed    bool   `json:"completed"`
}

// MeasurementRequest pulls one ground-truth measurement during the data
// request stage. Unknown keys are rejected by the service.
type MeasurementRequest struct {
	Key string `json:"key"`
}

// MeasurementResponse returns the requested value and the acquisition state.
type MeasurementResponse struct {
	Key       string   `json:"key"`
	Value     float64  `json:"value"`
	Unit      string   `json:"unit"`
	Requested []string `json:"requested"`
	Complete  bool     `json:"complete"`
}

// SessionResponse is the full view of an activity session.
type SessionResponse struct {
	SessionID      string                `json:"sessionId"`
	CurrentStage   int                   `json:"currentStage"`
	Completed      bool                  `json:"completed"`
	Progress       models.ProgressRecord `json:"progress"`
	ScoreBreakdown []StageScore          `json:"scoreBreakdown,omitempty"`
}
