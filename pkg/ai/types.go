package ai

import "context"

// SummaryInput contains the lab session data the report summary is written
// from.
type SummaryInput struct {
	SampleID        string
	Date            string
	Material        string
	Mass            float64
	InitialVolume   float64
	FinalVolume     float64
	ApparentDensity float64
}

// FeedbackProvider supplies natural-language guidance for the lab activity.
//
// Both methods always return usable text: on any internal failure (missing
// credential, network error, empty completion) they substitute a user-facing
// explanatory string instead of surfacing an error. Callers must treat every
// returned string as valid feedback content.
type FeedbackProvider interface {
	EvaluateProcedure(ctx context.Context, procedure string) string
	GenerateSummary(ctx context.Context, input SummaryInput) string
}
