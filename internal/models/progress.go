package models

import (
	"fmt"
	"time"
)

// Stage identifies one of the ten ordered steps of the guided lab activity.
type Stage int

const (
	// StageEquipment asks the student to plan the lab inventory.
	StageEquipment Stage = 1
	// StageProcedure collects the student's proposed measurement procedure.
	StageProcedure Stage = 2
	// StageFeedback presents the AI review of the proposed procedure.
	StageFeedback Stage = 3
	// StageSafety is the personal protective equipment check.
	StageSafety Stage = 4
	// StageDataRequest is where the student pulls the lab measurements.
	StageDataRequest Stage = 5
	// StageDensity asks for the calculated apparent density.
	StageDensity Stage = 6
	// StageMineral asks the student to identify the mineral.
	StageMineral Stage = 7
	// StageJustification collects the written conclusion.
	StageJustification Stage = 8
	// StageLabeling confirms the sample label data.
	StageLabeling Stage = 9
	// StageReport presents the generated lab report summary.
	StageReport Stage = 10
)

// TotalStages is the number of steps in the activity.
const TotalStages = 10

// Measurement keys the student can request during StageDataRequest.
const (
	MeasurementMass          = "mass"
	MeasurementInitialVolume = "initialVolume"
	MeasurementFinalVolume   = "finalVolume"
)

// AllMeasurements lists every measurement that must be requested before the
// density calculation unlocks.
var AllMeasurements = []string{MeasurementMass, MeasurementInitialVolume, MeasurementFinalVolume}

// SampleMaterial is the material printed on the sample label.
const SampleMaterial = "Mena de Cobre Oxidado"

// Avatars is the fixed set of avatar references a student may register with.
var Avatars = []string{
	"https://picsum.photos/seed/avatar1/100",
	"https://picsum.photos/seed/avatar2/100",
	"https://picsum.photos/seed/avatar3/100",
	"https://picsum.photos/seed/avatar4/100",
	"https://picsum.photos/seed/avatar5/100",
	"https://picsum.photos/seed/avatar6/100",
}

// SafetyCheck records the student's PPE answer and whether it was correct.
type SafetyCheck struct {
	Answer  string `json:"answer"`
	Correct bool   `json:"correct"`
}

// LabData holds the seeded ground-truth measurements and the derived density.
type LabData struct {
	Mass            float64 `json:"mass"`
	InitialVolume   float64 `json:"initialVolume"`
	FinalVolume     float64 `json:"finalVolume"`
	ApparentDensity float64 `json:"apparentDensity"`
}

// Density computes mass over displaced volume. This is the single source of
// truth for the apparent density formula.
func (d LabData) Density() float64 {
	return d.Mass / (d.FinalVolume - d.InitialVolume)
}

// LabelInfo carries the sample label fields confirmed at StageLabeling.
type LabelInfo struct {
	SampleID string `json:"sampleId"`
	Date     string `json:"date"`
	Material string `json:"material"`
}

// NewSampleID derives the sample identifier from the session start time. It is
// generated once per session and never regenerated.
func NewSampleID(startedAt time.Time) string {
	return fmt.Sprintf("MN-CO-OX-%04d", startedAt.UnixMilli()%10000)
}

// ProgressRecord is the single aggregate for one student session. It is
// created at registration, filled in one stage at a time, and frozen once
// Completed is set.
type ProgressRecord struct {
	SessionID               string      `json:"sessionId"`
	Name                    string      `json:"name"`
	Course                  string      `json:"course"`
	Avatar                  string      `json:"avatar"`
	SelectedEquipment       []string    `json:"selectedEquipment"`
	ProposedProcedure       string      `json:"proposedProcedure"`
	AIFeedback              string      `json:"aiFeedback"`
	SafetyCheck             SafetyCheck `json:"safetyCheck"`
	RequestedMeasurements   []string    `json:"requestedMeasurements"`
	LabData                 LabData     `json:"labData"`
	UserCalculatedDensity   float64     `json:"userCalculatedDensity"`
	MineralIdentification   string      `json:"mineralIdentification"`
	ConclusionJustification string      `json:"conclusionJustification"`
	LabelInfo               LabelInfo   `json:"labelInfo"`
	LabReport               string      `json:"labReport"`
	Score                   int         `json:"score"`
	Completed               bool        `json:"completed"`
	CompletionTimestamp     time.Time   `json:"completionTimestamp"`
}

// HasRequested reports whether the given measurement was already pulled.
func (r ProgressRecord) HasRequested(key string) bool {
	for _, requested := range r.RequestedMeasurements {
		if requested == key {
			return true
		}
	}
	return false
}
