package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"wayfarer/internal/logger"
	"wayfarer/pkg/traveltypes"

	"github.com/charmbracelet/log"
)

// ApologyText is the reply appended when the planning service fails.
const ApologyText = "Sorry, an error occurred while processing your request."

// ErrSendInFlight is returned by SendAsync while a previous send is pending.
var ErrSendInFlight = errors.New("a request is already in progress")

// StepsFollowUp is the reply appended after an itinerary that leaves the
// user short of their daily step goal.
func StepsFollowUp(steps int) string {
	return fmt.Sprintf("Looks like you still need %d steps to meet your daily goal. Would you like to get some steps in on your way?", steps)
}

// PartialFailureText describes legs that could not be shown on the map.
func PartialFailureText(failed, total int) string {
	if failed >= total {
		return "None of the legs of this route could be found on the map."
	}
	return fmt.Sprintf("%d of %d legs could not be found on the map and are not shown.", failed, total)
}

// TripResult describes what a send appended and to which session.
type TripResult struct {
	SessionID string
	Turns     []traveltypes.Turn
	Itinerary *traveltypes.Itinerary
	// PlanErr is the planning failure answered with the apology, if any.
	PlanErr error
}

// Pending is an in-flight SendAsync. Its result always belongs to the
// session that was active when it was dispatched.
type Pending struct {
	sessionID string
	done      chan struct{}
	result    *TripResult
	err       error
}

// SessionID returns the session captured at dispatch.
func (p *Pending) SessionID() string { return p.sessionID }

// Done is closed when the request completes.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the request completes.
func (p *Pending) Wait() (*TripResult, error) {
	<-p.done
	return p.result, p.err
}

// TripOption configures a TripService.
type TripOption func(*TripService)

// WithPartialFailureNotice appends a notice turn after itineraries with unresolved legs.
func WithPartialFailureNotice(enabled bool) TripOption {
	return func(t *TripService) { t.partialNotice = enabled }
}

// WithTranscriber sets the speech-to-text provider used by Transcribe.
func WithTranscriber(transcriber traveltypes.Transcriber) TripOption {
	return func(t *TripService) { t.transcriber = transcriber }
}

// TripService runs a user action through the planner and resolver and
// records the outcome in the session store.
type TripService struct {
	initialized   bool
	store         *SessionStoreService
	planner       traveltypes.Planner
	resolver      *ItineraryResolverService
	transcriber   traveltypes.Transcriber
	partialNotice bool
	logger        *log.Logger

	mu       sync.Mutex
	viewport *traveltypes.Bounds
	pending  *Pending
}

// NewTripService wires the orchestrator to its collaborators.
func NewTripService(store *SessionStoreService, planner traveltypes.Planner, resolver *ItineraryResolverService, opts ...TripOption) *TripService {
	t := &TripService{
		store:    store,
		planner:  planner,
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the service name "trip" for registration.
func (t *TripService) Name() string {
	return "trip"
}

// Initialize checks the collaborators.
func (t *TripService) Initialize() error {
	if t.store == nil || t.planner == nil || t.resolver == nil {
		return fmt.Errorf("trip service requires a session store, planner and resolver")
	}
	t.logger = logger.NewStyledLogger("Trip")
	t.initialized = true
	return nil
}

// Viewport returns the map extent of the last resolved itinerary.
func (t *TripService) Viewport() *traveltypes.Bounds {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewport
}

// Send records text as a user turn in the active session, asks the planner
// for a route and appends the resulting turns to that same session, even if
// another session became active in the meantime. Planning failures produce
// the apology reply instead of an error.
func (t *TripService) Send(ctx context.Context, text string) (*TripResult, error) {
	if !t.initialized {
		return nil, fmt.Errorf("trip service not initialized")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("message is empty")
	}
	return t.send(ctx, t.store.ActiveID(), text)
}

// SendAsync dispatches Send in the background. Only one send may be in
// flight; a second call before the first completes returns ErrSendInFlight.
func (t *TripService) SendAsync(ctx context.Context, text string) (*Pending, error) {
	if !t.initialized {
		return nil, fmt.Errorf("trip service not initialized")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("message is empty")
	}

	t.mu.Lock()
	if t.pending != nil {
		select {
		case <-t.pending.done:
		default:
			t.mu.Unlock()
			return nil, ErrSendInFlight
		}
	}
	pending := &Pending{sessionID: t.store.ActiveID(), done: make(chan struct{})}
	t.pending = pending
	t.mu.Unlock()

	go func() {
		defer close(pending.done)
		pending.result, pending.err = t.send(ctx, pending.sessionID, text)
	}()
	return pending, nil
}

func (t *TripService) send(ctx context.Context, sessionID, text string) (*TripResult, error) {
	result := &TripResult{SessionID: sessionID}

	user := traveltypes.UserText{Text: text}
	if err := t.store.Append(ctx, sessionID, user); err != nil {
		return nil, err
	}
	result.Turns = append(result.Turns, user)

	plan, err := t.planner.Plan(ctx, traveltypes.PlanRequest{FreeText: text})
	if err != nil {
		t.logger.Error("Planning failed", "session", sessionID, "backend", t.planner.Backend(), "error", err)
		result.PlanErr = err
		apology := traveltypes.BotText{Text: ApologyText}
		if err := t.store.Append(ctx, sessionID, apology); err != nil {
			return nil, err
		}
		result.Turns = append(result.Turns, apology)
		return result, nil
	}

	itinerary, resolution := t.resolvePlan(ctx, plan)
	result.Itinerary = itinerary

	replies := []traveltypes.Turn{traveltypes.BotItinerary{Itinerary: *itinerary}}
	if t.partialNotice && resolution.Failed > 0 {
		replies = append(replies, traveltypes.BotText{Text: PartialFailureText(resolution.Failed, len(plan.Legs))})
	}
	if plan.StepsNeeded > 0 {
		replies = append(replies, traveltypes.BotText{Text: StepsFollowUp(plan.StepsNeeded)})
	}

	if err := t.store.Append(ctx, sessionID, replies...); err != nil {
		return nil, err
	}
	result.Turns = append(result.Turns, replies...)
	t.logger.Debug("Trip planned", "session", sessionID, "leg", len(itinerary.Legs), "failed", resolution.Failed)
	return result, nil
}

func (t *TripService) resolvePlan(ctx context.Context, plan *traveltypes.PlanResponse) (*traveltypes.Itinerary, Resolution) {
	resolution := t.resolver.Resolve(ctx, plan.Legs, t.Viewport())

	t.mu.Lock()
	t.viewport = resolution.Viewport
	t.mu.Unlock()

	return &traveltypes.Itinerary{
		Legs:          resolution.Legs,
		TotalTime:     plan.TotalTime,
		TotalDistance: plan.Distance,
		Efficiency:    plan.Efficiency,
		Health:        plan.Health,
		Effectiveness: plan.Effectiveness,
		Description:   plan.Description,
		StepsNeeded:   plan.StepsNeeded,
		Viewport:      resolution.Viewport,
	}, resolution
}

// PlanRoute answers the route form. AI mode asks the planner for a
// multi-modal trip; any other mode resolves one leg directly. The result is
// shown on the map only and is not recorded in a session. Missing endpoints
// are rejected before any request is made.
func (t *TripService) PlanRoute(ctx context.Context, origin, destination string, mode traveltypes.TravelMode, opts ...SelectOption) (*traveltypes.Itinerary, error) {
	if !t.initialized {
		return nil, fmt.Errorf("trip service not initialized")
	}
	req := SelectMode(origin, destination, mode, opts...)
	if strings.TrimSpace(origin) == "" || strings.TrimSpace(destination) == "" {
		return nil, fmt.Errorf("origin and destination are required")
	}

	if !req.IsFreeText() {
		itinerary, err := t.resolver.ResolveSingle(ctx, req.Origin, req.Destination, req.Mode)
		if err != nil {
			return nil, err
		}
		if itinerary.Viewport != nil {
			t.mu.Lock()
			t.viewport = itinerary.Viewport
			t.mu.Unlock()
		}
		return itinerary, nil
	}

	plan, err := t.planner.Plan(ctx, req)
	if err != nil {
		t.logger.Error("Planning failed", "backend", t.planner.Backend(), "error", err)
		return nil, err
	}
	itinerary, _ := t.resolvePlan(ctx, plan)
	return itinerary, nil
}

// Transcribe converts recorded audio to text and sends it. A failed or empty
// transcription changes nothing and returns a nil result.
func (t *TripService) Transcribe(ctx context.Context, audio []byte, contentType string) (*TripResult, error) {
	if !t.initialized {
		return nil, fmt.Errorf("trip service not initialized")
	}
	if t.transcriber == nil {
		return nil, fmt.Errorf("%w: no transcriber configured", traveltypes.ErrTranscription)
	}

	text, err := t.transcriber.Transcribe(ctx, audio, contentType)
	if err != nil {
		t.logger.Warn("Transcription failed", "error", err)
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		t.logger.Info("Transcription was empty")
		return nil, nil
	}
	return t.Send(ctx, text)
}
