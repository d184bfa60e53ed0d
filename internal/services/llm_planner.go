package services

import (
	"fmt"
	"sync"

	"wayfarer/internal/data/embedded"
	"wayfarer/internal/logger"
	"wayfarer/pkg/traveltypes"

	"gopkg.in/yaml.v3"
)

// PlannerPrompt holds the instructions that make a language model behave
// like the planning service.
type PlannerPrompt struct {
	System          string `yaml:"system"`
	UniformTemplate string `yaml:"uniform_template"`
}

// LoadPlannerPrompt parses a planner prompt from YAML.
func LoadPlannerPrompt(data []byte) (PlannerPrompt, error) {
	var prompt PlannerPrompt
	if err := yaml.Unmarshal(data, &prompt); err != nil {
		return PlannerPrompt{}, fmt.Errorf("failed to parse planner prompt: %w", err)
	}
	if prompt.System == "" {
		return PlannerPrompt{}, fmt.Errorf("planner prompt has no system text")
	}
	if prompt.UniformTemplate == "" {
		prompt.UniformTemplate = "Give me a route from %s to %s using only %s."
	}
	return prompt, nil
}

var defaultPlannerPrompt = sync.OnceValue(func() PlannerPrompt {
	prompt, err := LoadPlannerPrompt(embedded.PlannerPromptData)
	if err != nil {
		logger.Error("Failed to load embedded planner prompt", "error", err)
		return PlannerPrompt{
			System:          "Answer with a JSON object containing response.route1 and response.route1Info.",
			UniformTemplate: "Give me a route from %s to %s using only %s.",
		}
	}
	return prompt
})

// DefaultPlannerPrompt returns the prompt compiled into the binary.
func DefaultPlannerPrompt() PlannerPrompt {
	return defaultPlannerPrompt()
}

// UserMessage renders a plan request as the model's user turn.
func (p PlannerPrompt) UserMessage(req traveltypes.PlanRequest) string {
	if req.IsFreeText() {
		return req.FreeText
	}
	return fmt.Sprintf(p.UniformTemplate, req.Origin, req.Destination, traveltypes.ParseMode(string(req.Mode)))
}

// planFromCompletion parses a model answer, tagging failures with the backend.
func planFromCompletion(backend, content string) (*traveltypes.PlanResponse, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: %s returned empty content", traveltypes.ErrPlanningService, backend)
	}
	plan, err := ParsePlanResponse([]byte(content))
	if err != nil {
		logger.Debug("Unparseable planner answer", "backend", backend, "content_length", len(content))
		return nil, fmt.Errorf("%s: %w", backend, err)
	}
	return plan, nil
}
