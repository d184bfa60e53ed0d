package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"wayfarer/internal/logger"
	"wayfarer/pkg/traveltypes"
)

// DefaultAnthropicPlannerModel is used when no planner model is configured.
const DefaultAnthropicPlannerModel = "claude-3-5-haiku-latest"

// AnthropicPlanner implements traveltypes.Planner with the Anthropic
// messages API.
type AnthropicPlanner struct {
	apiKey  string
	model   string
	baseURL string
	prompt  PlannerPrompt
	client  *anthropic.Client
}

// NewAnthropicPlanner creates an Anthropic-backed planner with lazy client setup.
func NewAnthropicPlanner(apiKey, model string) *AnthropicPlanner {
	if model == "" {
		model = DefaultAnthropicPlannerModel
	}
	return &AnthropicPlanner{
		apiKey: apiKey,
		model:  model,
		prompt: DefaultPlannerPrompt(),
	}
}

// SetBaseURL overrides the API endpoint.
func (p *AnthropicPlanner) SetBaseURL(url string) {
	p.baseURL = url
	p.client = nil
}

// Backend returns "anthropic".
func (p *AnthropicPlanner) Backend() string {
	return "anthropic"
}

// IsConfigured returns true if the planner has an API key.
func (p *AnthropicPlanner) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *AnthropicPlanner) initializeClientIfNeeded() error {
	if p.client != nil {
		return nil
	}
	if p.apiKey == "" {
		return fmt.Errorf("anthropic API key not configured")
	}

	options := []option.RequestOption{option.WithAPIKey(p.apiKey)}
	if p.baseURL != "" {
		options = append(options, option.WithBaseURL(p.baseURL))
	}
	client := anthropic.NewClient(options...)
	p.client = &client

	logger.Debug("Anthropic planner client initialized", "model", p.model)
	return nil
}

// Plan sends the request as a single user message with the planner system prompt.
func (p *AnthropicPlanner) Plan(ctx context.Context, req traveltypes.PlanRequest) (*traveltypes.PlanResponse, error) {
	if err := p.initializeClientIfNeeded(); err != nil {
		return nil, fmt.Errorf("%w: %v", traveltypes.ErrPlanningService, err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.prompt.UserMessage(req))),
		},
		System: []anthropic.TextBlockParam{{Text: p.prompt.System}},
	}

	logger.Debug("Sending Anthropic plan request", "model", p.model)
	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		logger.Error("Anthropic request failed", "error", err)
		return nil, fmt.Errorf("%w: anthropic request failed: %v", traveltypes.ErrPlanningService, err)
	}

	var content strings.Builder
	for _, block := range message.Content {
		content.WriteString(block.Text)
	}
	return planFromCompletion(p.Backend(), content.String())
}
