package testutils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wayfarer/pkg/traveltypes"
)

// MockPlanner is a scripted traveltypes.Planner.
type MockPlanner struct {
	mu       sync.Mutex
	Response *traveltypes.PlanResponse
	Err      error
	// Gate, when set, blocks Plan until it is closed.
	Gate     chan struct{}
	requests []traveltypes.PlanRequest
}

// NewMockPlanner returns a planner that answers every request with resp.
func NewMockPlanner(resp *traveltypes.PlanResponse) *MockPlanner {
	return &MockPlanner{Response: resp}
}

func (m *MockPlanner) Plan(ctx context.Context, req traveltypes.PlanRequest) (*traveltypes.PlanResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	gate := m.Gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Response == nil {
		return nil, fmt.Errorf("%w: no scripted response", traveltypes.ErrPlanningService)
	}
	return m.Response, nil
}

func (m *MockPlanner) Backend() string { return "mock" }

// Requests returns every request Plan received.
func (m *MockPlanner) Requests() []traveltypes.PlanRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]traveltypes.PlanRequest(nil), m.requests...)
}

// MockDirections is a scripted traveltypes.DirectionsProvider keyed by
// origin and destination.
type MockDirections struct {
	mu     sync.Mutex
	routes map[string]*traveltypes.Route
	fails  map[string]error
	Delay  func(req traveltypes.RouteRequest) time.Duration
	calls  []traveltypes.RouteRequest
}

// NewMockDirections returns a provider with no scripted legs. Unscripted
// legs fail with ErrLegResolution.
func NewMockDirections() *MockDirections {
	return &MockDirections{
		routes: make(map[string]*traveltypes.Route),
		fails:  make(map[string]error),
	}
}

func legKey(origin, destination string) string {
	return origin + "\x00" + destination
}

// AddRoute scripts the route for origin to destination.
func (m *MockDirections) AddRoute(origin, destination string, route *traveltypes.Route) *MockDirections {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[legKey(origin, destination)] = route
	return m
}

// AddFailure scripts a failure for origin to destination.
func (m *MockDirections) AddFailure(origin, destination string, err error) *MockDirections {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fails[legKey(origin, destination)] = err
	return m
}

func (m *MockDirections) Route(ctx context.Context, req traveltypes.RouteRequest) (*traveltypes.Route, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	delay := m.Delay
	m.mu.Unlock()

	if delay != nil {
		select {
		case <-time.After(delay(req)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := legKey(req.Origin, req.Destination)
	if err, ok := m.fails[key]; ok {
		return nil, err
	}
	if route, ok := m.routes[key]; ok {
		copied := *route
		return &copied, nil
	}
	return nil, fmt.Errorf("%w: NOT_FOUND %s -> %s", traveltypes.ErrLegResolution, req.Origin, req.Destination)
}

// Calls returns every request Route received, in arrival order.
func (m *MockDirections) Calls() []traveltypes.RouteRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]traveltypes.RouteRequest(nil), m.calls...)
}

// MockTranscriber is a scripted traveltypes.Transcriber.
type MockTranscriber struct {
	Text string
	Err  error
}

func (m *MockTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

// StraightRoute builds a two-point route between a and b.
func StraightRoute(a, b traveltypes.LatLng, duration time.Duration) *traveltypes.Route {
	return &traveltypes.Route{
		Points:   []traveltypes.LatLng{a, b},
		Duration: duration,
	}
}
