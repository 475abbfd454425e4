package service

import (
	"math"
	"strings"

	"github.com/noah-isme/minlab-go-api/internal/models"
)

// ScoringContext carries the seeded reference data the score is computed
// against. The rules read nothing else besides the finalized record.
type ScoringContext struct {
	Truth             GroundTruth
	RequiredEquipment []string
	ExpectedMineral   string
}

// StageScore is one of the ten independent score contributions.
type StageScore struct {
	Stage   models.Stage `json:"stage"`
	Label   string       `json:"label"`
	Points  int          `json:"points"`
	Awarded int          `json:"awarded"`
}

type scoreRule struct {
	stage     models.Stage
	label     string
	points    int
	satisfied func(record models.ProgressRecord, sctx ScoringContext) bool
}

// Each rule is evaluated independently; there is no partial credit and no
// interaction between rules. The weights sum to exactly 100.
var scoreRules = []scoreRule{
	{
		stage:  models.StageEquipment,
		label:  "Inventario exacto",
		points: 10,
		satisfied: func(record models.ProgressRecord, sctx ScoringContext) bool {
			return ValidateEquipment(record.SelectedEquipment, sctx.RequiredEquipment).Accepted
		},
	},
	{
		stage:  models.StageProcedure,
		label:  "Procedimiento propuesto",
		points: 10,
		satisfied: func(record models.ProgressRecord, _ ScoringContext) bool {
			return strings.TrimSpace(record.ProposedProcedure) != ""
		},
	},
	{
		stage:  models.StageFeedback,
		label:  "Retroalimentación obtenida",
		points: 5,
		satisfied: func(record models.ProgressRecord, _ ScoringContext) bool {
			return record.AIFeedback != ""
		},
	},
	{
		stage:  models.StageSafety,
		label:  "Respuesta de seguridad",
		points: 10,
		satisfied: func(record models.ProgressRecord, _ ScoringContext) bool {
			return record.SafetyCheck.Correct
		},
	},
	{
		stage:  models.StageDataRequest,
		label:  "Solicitud de datos",
		points: 5,
		satisfied: func(models.ProgressRecord, ScoringContext) bool {
			// Always true by the time finalization runs: the stage hard-gates
			// on completeness.
			return true
		},
	},
	{
		stage:  models.StageDensity,
		label:  "Cálculo de densidad",
		points: 15,
		satisfied: func(record models.ProgressRecord, sctx ScoringContext) bool {
			return math.Abs(record.UserCalculatedDensity-sctx.Truth.ApparentDensity()) <= sctx.Truth.Tolerance
		},
	},
	{
		stage:  models.StageMineral,
		label:  "Identificación del mineral",
		points: 15,
		satisfied: func(record models.ProgressRecord, sctx ScoringContext) bool {
			return record.MineralIdentification == sctx.ExpectedMineral
		},
	},
	{
		stage:  models.StageJustification,
		label:  "Justificación de la conclusión",
		points: 10,
		satisfied: func(record models.ProgressRecord, _ ScoringContext) bool {
			return strings.TrimSpace(record.ConclusionJustification) != ""
		},
	},
	{
		stage:  models.StageLabeling,
		label:  "Etiquetado de la muestra",
		points: 5,
		satisfied: func(models.ProgressRecord, ScoringContext) bool {
			return true
		},
	},
	{
		stage:  models.StageReport,
		label:  "Resumen del informe",
		points: 15,
		satisfied: func(record models.ProgressRecord, _ ScoringContext) bool {
			return record.LabReport != ""
		},
	},
}

// ComputeScore evaluates the ten fixed-weight contributions over the fully
// assembled record. It runs exactly once, at finalization.
func ComputeScore(record models.ProgressRecord, sctx ScoringContext) (int, []StageScore) {
	total := 0
	breakdown := make([]StageScore, 0, len(scoreRules))

	for _, rule := range scoreRules {
		awarded := 0
		if rule.satisfied(record, sctx) {
			awarded = rule.points
		}
		total += awarded
		breakdown = append(breakdown, StageScore{
			Stage:   rule.stage,
			Label:   rule.label,
			Points:  rule.points,
			Awarded: awarded,
		})
	}

	return total, breakdown
}
