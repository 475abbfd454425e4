package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/minlab-go-api/internal/models"
)

// GroundTruth holds the seeded lab constants the session is validated against.
type GroundTruth struct {
	Mass          float64
	InitialVolume float64
	FinalVolume   float64
	Tolerance     float64
}

// ApparentDensity derives the reference density from the seeded constants.
func (g GroundTruth) ApparentDensity() float64 {
	return models.LabData{Mass: g.Mass, InitialVolume: g.InitialVolume, FinalVolume: g.FinalVolume}.Density()
}

// StageDecision is the outcome of a stage validator. Validators never error:
// a rejection carries a user-facing reason and causes no state change.
type StageDecision struct {
	Accepted bool
	Reason   string
}

func accept() StageDecision {
	return StageDecision{Accepted: true}
}

func reject(reason string) StageDecision {
	return StageDecision{Accepted: false, Reason: reason}
}

// ValidateEquipment accepts only when the selected set exactly matches the
// required set, both in cardinality and membership.
func ValidateEquipment(selected, required []string) StageDecision {
	if len(selected) != len(required) {
		return reject(equipmentRejection(len(required)))
	}

	chosen := make(map[string]bool, len(selected))
	for _, name := range selected {
		chosen[name] = true
	}
	if len(chosen) != len(required) {
		return reject(equipmentRejection(len(required)))
	}
	for _, name := range required {
		if !chosen[name] {
			return reject(equipmentRejection(len(required)))
		}
	}

	return accept()
}

func equipmentRejection(count int) string {
	return fmt.Sprintf("Selección incorrecta. Revisa tu inventario. Pista: necesitas exactamente %d elementos para medir masa y volumen por desplazamiento.", count)
}

// ValidateProcedure requires a non-blank procedure description.
func ValidateProcedure(text string) StageDecision {
	if strings.TrimSpace(text) == "" {
		return reject("Por favor, describe tu procedimiento.")
	}
	return accept()
}

// EvaluateSafety records the PPE answer. The stage is soft-gated: the student
// advances regardless, correctness only affects the final score.
func EvaluateSafety(answer, correctKey string) models.SafetyCheck {
	return models.SafetyCheck{
		Answer:  answer,
		Correct: answer != "" && answer == correctKey,
	}
}

// ValidateMeasurements gates the density calculation until every measurement
// has been requested at least once. Order of acquisition is irrelevant.
func ValidateMeasurements(requested []string) StageDecision {
	pulled := make(map[string]bool, len(requested))
	for _, key := range requested {
		pulled[key] = true
	}
	for _, key := range models.AllMeasurements {
		if !pulled[key] {
			return reject("Solicita las tres mediciones a tu asistente antes de calcular la densidad.")
		}
	}
	return accept()
}

// ValidateDensityGuess parses the student's density answer and accepts it when
// it lies within the tolerance of the derived ground-truth density.
func ValidateDensityGuess(raw string, truth GroundTruth) (float64, StageDecision) {
	correct := truth.ApparentDensity()
	rejection := fmt.Sprintf("Cálculo incorrecto. Revisa la fórmula: Densidad = Masa / Volumen. La respuesta correcta es %.2f g/cm³.", correct)

	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, reject(rejection)
	}
	if math.Abs(value-correct) > truth.Tolerance {
		return value, reject(rejection)
	}

	return value, accept()
}

// ValidateMineralChoice permits any non-empty selection; correctness is scored
// at finalization, not gated here.
func ValidateMineralChoice(choice string) StageDecision {
	if strings.TrimSpace(choice) == "" {
		return reject("Selecciona un mineral de la tabla de referencia.")
	}
	return accept()
}

// ValidateJustification requires a non-blank written conclusion.
func ValidateJustification(text string) StageDecision {
	if strings.TrimSpace(text) == "" {
		return reject("Explica en una frase por qué llegaste a esa conclusión.")
	}
	return accept()
}
