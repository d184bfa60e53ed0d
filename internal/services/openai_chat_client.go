package services

import (
	"context"
	"fmt"
	"net/http"

	"wayfarer/internal/logger"
	"wayfarer/pkg/traveltypes"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIPlannerModel is used when no planner model is configured.
const DefaultOpenAIPlannerModel = "gpt-4o-mini"

// OpenAIPlanner implements traveltypes.Planner on top of OpenAI chat
// completions. The client is created lazily on the first request.
type OpenAIPlanner struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	prompt     PlannerPrompt
	client     *openai.Client
}

// NewOpenAIPlanner creates an OpenAI-backed planner. An empty model selects
// DefaultOpenAIPlannerModel.
func NewOpenAIPlanner(apiKey, model string) *OpenAIPlanner {
	if model == "" {
		model = DefaultOpenAIPlannerModel
	}
	return &OpenAIPlanner{
		apiKey: apiKey,
		model:  model,
		prompt: DefaultPlannerPrompt(),
	}
}

// SetBaseURL points the client at an OpenAI-compatible endpoint.
func (p *OpenAIPlanner) SetBaseURL(url string) {
	p.baseURL = url
	p.client = nil
}

// SetHTTPClient replaces the HTTP client used for requests.
func (p *OpenAIPlanner) SetHTTPClient(client *http.Client) {
	p.httpClient = client
	p.client = nil
}

// Backend returns "openai".
func (p *OpenAIPlanner) Backend() string {
	return "openai"
}

// IsConfigured returns true if the planner has an API key.
func (p *OpenAIPlanner) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *OpenAIPlanner) initializeClientIfNeeded() error {
	if p.client != nil {
		return nil
	}
	if p.apiKey == "" {
		return fmt.Errorf("OpenAI API key not configured")
	}

	options := []option.RequestOption{option.WithAPIKey(p.apiKey)}
	if p.baseURL != "" {
		options = append(options, option.WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		options = append(options, option.WithHTTPClient(p.httpClient))
	}

	client := openai.NewClient(options...)
	p.client = &client
	logger.Debug("OpenAI planner client initialized", "model", p.model)
	return nil
}

// Plan asks the model for an itinerary in the planning service's JSON shape.
func (p *OpenAIPlanner) Plan(ctx context.Context, req traveltypes.PlanRequest) (*traveltypes.PlanResponse, error) {
	if err := p.initializeClientIfNeeded(); err != nil {
		return nil, fmt.Errorf("%w: %v", traveltypes.ErrPlanningService, err)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.prompt.System),
			openai.UserMessage(p.prompt.UserMessage(req)),
		},
	}

	logger.Debug("Sending OpenAI plan request", "model", p.model)
	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Error("OpenAI request failed", "error", err)
		return nil, fmt.Errorf("%w: openai request failed: %v", traveltypes.ErrPlanningService, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: no response choices returned", traveltypes.ErrPlanningService)
	}

	return planFromCompletion(p.Backend(), completion.Choices[0].Message.Content)
}
