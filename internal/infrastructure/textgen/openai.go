package textgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
	"go.uber.org/zap"

	"github.com/marmoleria/backend/internal/infrastructure/config"
)

const maxActions = 5

// OpenAIGenerator calls the OpenAI Responses API with a strict JSON schema
// derived from the output struct
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger *zap.Logger

	suggestionSchema map[string]any
	campaignSchema   map[string]any
}

// NewOpenAIGenerator creates a generator from config. Extra options are
// appended after the configured ones.
func NewOpenAIGenerator(cfg config.TextGenConfig, logger *zap.Logger, opts ...option.RequestOption) (*OpenAIGenerator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		base = append(base, option.WithRequestTimeout(cfg.Timeout))
	}
	client := openai.NewClient(append(base, opts...)...)

	suggestion, err := schemaFor(Suggestion{})
	if err != nil {
		return nil, err
	}
	campaign, err := schemaFor(CampaignMessage{})
	if err != nil {
		return nil, err
	}

	return &OpenAIGenerator{
		client:           &client,
		model:            cfg.Model,
		logger:           logger,
		suggestionSchema: suggestion,
		campaignSchema:   campaign,
	}, nil
}

// SuggestForAdvisor implements Generator
func (g *OpenAIGenerator) SuggestForAdvisor(ctx context.Context, req SuggestionRequest) (*Suggestion, error) {
	series, err := json.Marshal(req.Series)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(`Eres coordinador comercial de una marmolería.
Analiza las ventas mensuales del asesor y propone acciones concretas.
Reglas:
1. Usa solo las cifras entregadas, no inventes montos.
2. Máximo %d acciones, cada una en una frase.
3. Responde en español.

Asesor: %s
Ventas (periodo, monto, moneda): %s
Notas: %s`, maxActions, req.Advisor, series, req.Notes)

	var out Suggestion
	if err := g.generate(ctx, prompt, "advisor_suggestion", g.suggestionSchema, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Headline) == "" {
		return nil, fmt.Errorf("text generation returned an empty headline")
	}
	if len(out.Actions) > maxActions {
		out.Actions = out.Actions[:maxActions]
	}
	return &out, nil
}

// CampaignMessage implements Generator
func (g *OpenAIGenerator) CampaignMessage(ctx context.Context, req CampaignRequest) (*CampaignMessage, error) {
	products, err := json.Marshal(req.Products)
	if err != nil {
		return nil, err
	}
	tone := req.Tone
	if tone == "" {
		tone = "cercano y profesional"
	}
	prompt := fmt.Sprintf(`Redacta un mensaje de campaña para una marmolería.
Canal: %s
Público: %s
Tono: %s
Productos (usa exactamente estos precios): %s`, req.Channel, req.Audience, tone, products)

	var out CampaignMessage
	if err := g.generate(ctx, prompt, "campaign_message", g.campaignSchema, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Body) == "" {
		return nil, fmt.Errorf("text generation returned an empty body")
	}
	return &out, nil
}

func (g *OpenAIGenerator) generate(ctx context.Context, prompt, name string, schema map[string]any, out any) error {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(g.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:   constant.JSONSchema("json_schema"),
					Name:   name,
					Strict: param.NewOpt(true),
					Schema: schema,
				},
			},
		},
	}

	resp, err := g.client.Responses.New(ctx, params)
	if err != nil {
		g.logger.Warn("Text generation request failed", zap.String("kind", name), zap.Error(err))
		return fmt.Errorf("text generation: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return fmt.Errorf("text generation returned no content")
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func schemaFor(v any) (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	return schema, nil
}
