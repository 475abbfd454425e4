package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	feedbackDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "minlab",
		Subsystem: "ai",
		Name:      "feedback_duration_seconds",
		Help:      "Duration of AI feedback requests",
	}, []string{"model", "operation"})

	feedbackFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "minlab",
		Subsystem: "ai",
		Name:      "feedback_failures_total",
		Help:      "Number of AI feedback requests that fell back to the failure text",
	}, []string{"model", "operation"})
)

// Failure texts substituted when the completion cannot be obtained. The
// provider contract guarantees a string result, never an error.
const (
	evaluateFallback = "Hubo un error al contactar a la IA. Por favor, inténtalo de nuevo más tarde y verifica que el servicio esté configurado correctamente."
	summaryFallback  = "No se pudo generar el resumen del informe de laboratorio debido a un error con la IA."
)

// OpenAIConfig defines configuration options for the OpenAI feedback provider.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIProvider implements FeedbackProvider against the OpenAI chat
// completion API.
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIProvider builds a provider using the supplied configuration.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	tracer := otel.Tracer("github.com/noah-isme/minlab-go-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	client := openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey))

	return &OpenAIProvider{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger.With().Str("component", "openai_provider").Logger(),
	}, nil
}

// EvaluateProcedure reviews the proposed procedure and returns guiding
// feedback text.
func (p *OpenAIProvider) EvaluateProcedure(ctx context.Context, procedure string) string {
	return p.complete(ctx, "evaluate_procedure", instructorSystemPrompt(), buildProcedurePrompt(procedure), evaluateFallback)
}

// GenerateSummary writes the report summary paragraph for the completed
// session.
func (p *OpenAIProvider) GenerateSummary(ctx context.Context, input SummaryInput) string {
	return p.complete(ctx, "generate_summary", writerSystemPrompt(), buildSummaryPrompt(input), summaryFallback)
}

func (p *OpenAIProvider) complete(parent context.Context, operation, system, user, fallback string) string {
	ctx, span := p.tracer.Start(parent, "openai."+operation, trace.WithAttributes(
		attribute.String("model", p.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, request)
	feedbackDuration.WithLabelValues(p.cfg.Model, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		feedbackFailures.WithLabelValues(p.cfg.Model, operation).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error().Err(err).Str("operation", operation).Msg("ai feedback request failed")
		return fallback
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		feedbackFailures.WithLabelValues(p.cfg.Model, operation).Inc()
		span.SetStatus(codes.Error, "empty completion")
		p.logger.Error().Str("operation", operation).Msg("ai feedback returned no content")
		return fallback
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

func instructorSystemPrompt() string {
	return "Eres un instructor de laboratorio de química experimentado y servicial. Evalúas procedimientos propuestos por estudiantes de metalurgia " +
		"en cuanto a corrección, seguridad y claridad. En lugar de dar la respuesta directamente, haces preguntas que guían al estudiante " +
		"hacia el procedimiento correcto. Mantienes un tono alentador y educativo y estructuras tu respuesta en puntos claros."
}

func buildProcedurePrompt(procedure string) string {
	builder := strings.Builder{}
	builder.WriteString("Un estudiante ha propuesto el siguiente procedimiento para medir la densidad aparente de una muestra de mena de cobre oxidado.\n\n")
	builder.WriteString("Procedimiento del estudiante:\n\"")
	builder.WriteString(procedure)
	builder.WriteString("\"\n\n")
	builder.WriteString("Proporciona retroalimentación constructiva. Por ejemplo, si omiten el uso de una balanza, podrías preguntar: ")
	builder.WriteString("\"¿Qué instrumento necesitas para medir la masa de la muestra?\". ")
	builder.WriteString("Si el procedimiento es inseguro, resalta el riesgo y pregunta por una alternativa más segura.")
	return builder.String()
}

func writerSystemPrompt() string {
	return "Eres un redactor científico. Redactas resúmenes concisos, claros y creativos para informes de laboratorio, comunicando " +
		"eficazmente el objetivo, el método, los resultados y una breve conclusión."
}

func buildSummaryPrompt(input SummaryInput) string {
	builder := strings.Builder{}
	builder.WriteString("Objetivo: Determinar la densidad aparente de una muestra de mena de cobre oxidado.\n\n")
	builder.WriteString("Datos Recopilados:\n")
	builder.WriteString(fmt.Sprintf("- ID de la Muestra: %s\n", input.SampleID))
	builder.WriteString(fmt.Sprintf("- Fecha: %s\n", input.Date))
	builder.WriteString(fmt.Sprintf("- Material: %s\n", input.Material))
	builder.WriteString(fmt.Sprintf("- Masa de la muestra: %g g\n", input.Mass))
	builder.WriteString(fmt.Sprintf("- Volumen inicial del agua: %g ml\n", input.InitialVolume))
	builder.WriteString(fmt.Sprintf("- Volumen final (agua + muestra): %g ml\n", input.FinalVolume))
	builder.WriteString(fmt.Sprintf("- Densidad aparente calculada: %.2f g/cm³\n\n", input.ApparentDensity))
	builder.WriteString("Procedimiento Seguido: Se midió la masa de la muestra con una balanza. Luego, se determinó el volumen de la muestra ")
	builder.WriteString("por el método de desplazamiento de agua en una probeta. La densidad se calculó dividiendo la masa por el volumen desplazado.\n\n")
	builder.WriteString("Genera un párrafo de resumen del informe.")
	return builder.String()
}
