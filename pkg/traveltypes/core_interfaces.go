// Package traveltypes defines core architectural interfaces for Wayfarer.
// This file contains the contracts of the external collaborators (planning
// service, directions provider, transcription service, persisted storage) and
// the service lifecycle interface.
package traveltypes

import "context"

// Service defines the interface for Wayfarer services.
// Services are registered at startup and initialized once before use.
type Service interface {
	Name() string
	Initialize() error
}

// ServiceRegistry manages the registration and retrieval of services.
type ServiceRegistry interface {
	GetService(name string) (Service, error)
	RegisterService(service Service) error
}

// Planner converts a plan request into an ordered leg sequence plus metrics.
// Implementations treat the service as an opaque request/response function.
type Planner interface {
	Plan(ctx context.Context, req PlanRequest) (*PlanResponse, error)
	// Backend returns a short identifier such as "http" or "openai".
	Backend() string
}

// DirectionsProvider resolves one leg into a concrete navigable path.
// A non-success provider status is reported as an error wrapping
// ErrLegResolution.
type DirectionsProvider interface {
	Route(ctx context.Context, req RouteRequest) (*Route, error)
}

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
}

// KV is a durable key-value store. Get returns an error wrapping ErrNotFound
// when the key has never been written.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}
