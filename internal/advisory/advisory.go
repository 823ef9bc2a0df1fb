// Package advisory asks an OpenAI compatible model for a risk assessment of a
// request note. It always answers: any failure yields Fallback.
package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"floodrescue/backend/internal/metrics"
	"floodrescue/backend/internal/models"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Fallback is the conservative assessment used when the model is unavailable.
func Fallback() models.RiskAssessment {
	return models.RiskAssessment{
		RiskLevel:       "Unknown",
		RecommendedGear: []string{"Standard Rescue Kit"},
		Hazards:         []string{"Proceed with caution"},
	}
}

const systemPrompt = `You assess flood rescue requests for responders.
Reply with a single JSON object and nothing else:
{"riskLevel": "Low|Medium|High|Extreme", "recommendedGear": [string], "hazards": [string]}
recommendedGear lists equipment such as "Boat", "Rope", "First Aid", "Flashlight".
hazards lists dangers such as "Hypothermia", "Electrocution", "Dehydration".`

// Completer is the part of the OpenAI client the advisor uses.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Advisor struct {
	client  Completer
	model   string
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewClient builds the OpenAI client. An empty baseURL means api.openai.com.
func NewClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// New returns an Advisor. A nil client makes every call return Fallback.
func New(client Completer, model string, m *metrics.Metrics, logger *zap.Logger) *Advisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{client: client, model: model, metrics: m, logger: logger}
}

// Assess returns the model's assessment of note, or Fallback.
func (a *Advisor) Assess(ctx context.Context, note string, severity models.Severity) models.RiskAssessment {
	ra, err := a.assess(ctx, note, severity)
	if err != nil {
		a.logger.Warn("Risk advisory failed, using fallback", zap.Error(err))
		a.metrics.Fallback("advisory")
		return Fallback()
	}
	return ra
}

func (a *Advisor) assess(ctx context.Context, note string, severity models.Severity) (models.RiskAssessment, error) {
	if a.client == nil {
		return models.RiskAssessment{}, errors.New("advisory client not configured")
	}
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Emergency SOS note: %q. Severity reported: %s.", note, severity)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.2,
	})
	if err != nil {
		return models.RiskAssessment{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.RiskAssessment{}, errors.New("no choices in response")
	}
	return parse(resp.Choices[0].Message.Content)
}

func parse(content string) (models.RiskAssessment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.RiskAssessment{}, errors.New("empty response")
	}
	var ra models.RiskAssessment
	if err := json.Unmarshal([]byte(content), &ra); err != nil {
		return models.RiskAssessment{}, fmt.Errorf("decode assessment: %w", err)
	}
	if strings.TrimSpace(ra.RiskLevel) == "" {
		return models.RiskAssessment{}, errors.New("assessment has no risk level")
	}
	if ra.RecommendedGear == nil {
		ra.RecommendedGear = []string{}
	}
	if ra.Hazards == nil {
		ra.Hazards = []string{}
	}
	return ra, nil
}
