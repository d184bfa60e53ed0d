package services

import (
	"fmt"
	"strings"
	"sync"

	"wayfarer/internal/logger"
	"wayfarer/pkg/traveltypes"
)

// Planner backends.
const (
	PlannerBackendHTTP      = "http"
	PlannerBackendOpenAI    = "openai"
	PlannerBackendAnthropic = "anthropic"
	PlannerBackendGemini    = "gemini"
)

// PlannerFactoryService creates and caches planners for the configured backends.
type PlannerFactoryService struct {
	initialized bool
	config      *ConfigurationService
	http        *HTTPRequestService
	planners    map[string]traveltypes.Planner
	mutex       sync.RWMutex
}

// NewPlannerFactoryService creates a factory reading credentials from config
// and sending HTTP planner requests through http.
func NewPlannerFactoryService(config *ConfigurationService, http *HTTPRequestService) *PlannerFactoryService {
	return &PlannerFactoryService{
		config:   config,
		http:     http,
		planners: make(map[string]traveltypes.Planner),
	}
}

// Name returns the service name "planner_factory" for registration.
func (f *PlannerFactoryService) Name() string {
	return "planner_factory"
}

// Initialize sets up the PlannerFactoryService for operation.
func (f *PlannerFactoryService) Initialize() error {
	logger.ServiceOperation("planner_factory", "initialize", "starting")
	if f.config == nil || f.http == nil {
		return fmt.Errorf("planner factory requires configuration and http services")
	}
	f.initialized = true
	logger.ServiceOperation("planner_factory", "initialize", "completed")
	return nil
}

// Default returns the planner for the configured backend.
func (f *PlannerFactoryService) Default() (traveltypes.Planner, error) {
	if !f.initialized {
		return nil, fmt.Errorf("planner factory service not initialized")
	}
	return f.Planner(f.config.PlannerBackend())
}

// Planner returns the planner for backend, creating it on first use.
func (f *PlannerFactoryService) Planner(backend string) (traveltypes.Planner, error) {
	if !f.initialized {
		return nil, fmt.Errorf("planner factory service not initialized")
	}
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend == "" {
		backend = PlannerBackendHTTP
	}

	f.mutex.RLock()
	if planner, exists := f.planners[backend]; exists {
		f.mutex.RUnlock()
		return planner, nil
	}
	f.mutex.RUnlock()

	f.mutex.Lock()
	defer f.mutex.Unlock()
	if planner, exists := f.planners[backend]; exists {
		return planner, nil
	}

	planner, err := f.create(backend)
	if err != nil {
		return nil, err
	}
	f.planners[backend] = planner
	logger.Debug("Planner created", "backend", backend)
	return planner, nil
}

func (f *PlannerFactoryService) create(backend string) (traveltypes.Planner, error) {
	model := f.config.PlannerModel()
	switch backend {
	case PlannerBackendHTTP:
		return NewHTTPPlanner(f.config.PlannerURL(), f.http), nil
	case PlannerBackendOpenAI:
		key, err := f.config.GetAPIKey(KeyOpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		return NewOpenAIPlanner(key, model), nil
	case PlannerBackendAnthropic:
		key, err := f.config.GetAPIKey(KeyAnthropicAPIKey)
		if err != nil {
			return nil, err
		}
		return NewAnthropicPlanner(key, model), nil
	case PlannerBackendGemini:
		key, err := f.config.GetAPIKey(KeyGoogleAPIKey)
		if err != nil {
			return nil, err
		}
		return NewGeminiPlanner(key, model), nil
	default:
		return nil, fmt.Errorf("unsupported planner backend: %s (supported: http, openai, anthropic, gemini)", backend)
	}
}
