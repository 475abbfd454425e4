package ai

import (
	"context"
	"fmt"
	"strings"
)

// StaticProvider serves canned guidance when no hosted model is configured.
// It keeps the activity fully functional offline and in tests.
type StaticProvider struct{}

// NewStaticProvider constructs the offline provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{}
}

// EvaluateProcedure returns deterministic guiding questions covering the
// standard displacement method.
func (p *StaticProvider) EvaluateProcedure(_ context.Context, procedure string) string {
	builder := strings.Builder{}
	builder.WriteString("Gracias por describir tu procedimiento. Algunas preguntas para refinarlo:\n")
	builder.WriteString("- ¿Qué instrumento necesitas para medir la masa de la muestra?\n")
	builder.WriteString("- ¿Cómo determinarás el volumen de una muestra irregular usando agua y una probeta?\n")
	builder.WriteString("- ¿En qué orden tomarás las lecturas de volumen para no perder el valor inicial?\n")
	if !strings.Contains(strings.ToLower(procedure), "balanza") {
		builder.WriteString("- Pista: revisa si tu plan incluye pesar la muestra antes de sumergirla.\n")
	}
	return builder.String()
}

// GenerateSummary renders a fixed-template report paragraph from the session
// data.
func (p *StaticProvider) GenerateSummary(_ context.Context, input SummaryInput) string {
	return fmt.Sprintf(
		"Se determinó la densidad aparente de la muestra %s (%s). La masa medida fue de %g g y el volumen desplazado de %g mL "+
			"(de %g mL a %g mL), lo que arroja una densidad aparente de %.2f g/cm³. El método de desplazamiento de agua resultó "+
			"adecuado para una muestra irregular y el valor obtenido es consistente con una mena de cobre oxidado.",
		input.SampleID, input.Material, input.Mass,
		input.FinalVolume-input.InitialVolume, input.InitialVolume, input.FinalVolume,
		input.ApparentDensity,
	)
}
