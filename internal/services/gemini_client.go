package services

import (
	"context"
	"fmt"
	"strings"

	"wayfarer/internal/logger"
	"wayfarer/pkg/traveltypes"

	"google.golang.org/genai"
)

// DefaultGeminiPlannerModel is used when no planner model is configured.
const DefaultGeminiPlannerModel = "gemini-2.0-flash"

// GeminiPlanner implements traveltypes.Planner with Google Gemini.
type GeminiPlanner struct {
	apiKey  string
	model   string
	baseURL string
	prompt  PlannerPrompt
	client  *genai.Client
}

// NewGeminiPlanner creates a Gemini-backed planner with lazy client setup.
func NewGeminiPlanner(apiKey, model string) *GeminiPlanner {
	if model == "" {
		model = DefaultGeminiPlannerModel
	}
	return &GeminiPlanner{
		apiKey: apiKey,
		model:  model,
		prompt: DefaultPlannerPrompt(),
	}
}

// SetBaseURL overrides the API endpoint.
func (p *GeminiPlanner) SetBaseURL(url string) {
	p.baseURL = url
	p.client = nil
}

// Backend returns "gemini".
func (p *GeminiPlanner) Backend() string {
	return "gemini"
}

// IsConfigured returns true if the planner has an API key.
func (p *GeminiPlanner) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *GeminiPlanner) initializeClientIfNeeded(ctx context.Context) error {
	if p.client != nil {
		return nil
	}
	if p.apiKey == "" {
		return fmt.Errorf("google API key not configured")
	}

	config := &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if p.baseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}
	p.client = client
	logger.Debug("Gemini planner client initialized", "model", p.model)
	return nil
}

// Plan asks Gemini for an itinerary, with the planner prompt as system instruction.
func (p *GeminiPlanner) Plan(ctx context.Context, req traveltypes.PlanRequest) (*traveltypes.PlanResponse, error) {
	if err := p.initializeClientIfNeeded(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", traveltypes.ErrPlanningService, err)
	}

	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: p.prompt.UserMessage(req)}},
	}}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.prompt.System, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}

	logger.Debug("Sending Gemini plan request", "model", p.model)
	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		logger.Error("Gemini request failed", "error", err)
		return nil, fmt.Errorf("%w: gemini request failed: %v", traveltypes.ErrPlanningService, err)
	}

	return planFromCompletion(p.Backend(), geminiText(result))
}

// geminiText joins the answer parts, skipping thought parts.
func geminiText(result *genai.GenerateContentResponse) string {
	if result == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text == "" || part.Thought {
				continue
			}
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
