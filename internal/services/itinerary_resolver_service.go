package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"wayfarer/internal/logger"
	"wayfarer/pkg/traveltypes"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// FailurePolicy decides what happens to legs the directions provider could
// not resolve.
type FailurePolicy string

const (
	// DropFailedLegs removes failed legs; the itinerary shows the rest in order.
	DropFailedLegs FailurePolicy = "drop"
	// MarkFailedLegs keeps a placeholder for each failed leg so indexes stay aligned.
	MarkFailedLegs FailurePolicy = "mark"
)

// ParseFailurePolicy parses a policy name; empty means DropFailedLegs.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DropFailedLegs:
		return DropFailedLegs, nil
	case MarkFailedLegs:
		return MarkFailedLegs, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (expected drop or mark)", s)
	}
}

// Resolution is the outcome of resolving a planner's legs.
type Resolution struct {
	Legs     []traveltypes.ResolvedLeg
	Viewport *traveltypes.Bounds
	// Failed counts legs the provider could not resolve, whatever the policy.
	Failed int
}

// Resolved returns the number of legs that have a route.
func (r Resolution) Resolved() int {
	n := 0
	for _, leg := range r.Legs {
		if !leg.Failed {
			n++
		}
	}
	return n
}

// ResolverOption configures an ItineraryResolverService.
type ResolverOption func(*ItineraryResolverService)

// WithFailurePolicy sets the leg failure policy.
func WithFailurePolicy(policy FailurePolicy) ResolverOption {
	return func(r *ItineraryResolverService) { r.policy = policy }
}

// WithConcurrency bounds the number of directions requests in flight.
func WithConcurrency(n int) ResolverOption {
	return func(r *ItineraryResolverService) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithRateLimit caps directions requests per second. qps <= 0 disables the limit.
func WithRateLimit(qps float64, burst int) ResolverOption {
	return func(r *ItineraryResolverService) {
		if qps <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(qps), burst)
	}
}

// ItineraryResolverService turns abstract legs into concrete routes using a
// directions provider.
type ItineraryResolverService struct {
	initialized bool
	directions  traveltypes.DirectionsProvider
	policy      FailurePolicy
	concurrency int
	limiter     *rate.Limiter
	logger      *log.Logger
}

// NewItineraryResolverService creates a resolver. Defaults: DropFailedLegs,
// four concurrent requests, no rate limit.
func NewItineraryResolverService(directions traveltypes.DirectionsProvider, opts ...ResolverOption) *ItineraryResolverService {
	r := &ItineraryResolverService{
		directions:  directions,
		policy:      DropFailedLegs,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the service name "itinerary_resolver" for registration.
func (r *ItineraryResolverService) Name() string {
	return "itinerary_resolver"
}

// Initialize sets up the resolver for operation.
func (r *ItineraryResolverService) Initialize() error {
	if r.directions == nil {
		return fmt.Errorf("itinerary resolver requires a directions provider")
	}
	r.logger = logger.NewStyledLogger("Resolver")
	r.initialized = true
	return nil
}

// Policy returns the configured failure policy.
func (r *ItineraryResolverService) Policy() FailurePolicy {
	return r.policy
}

// Resolve requests a route for every leg concurrently and returns them in
// input order. Failed legs are logged and dropped or marked according to the
// policy; they are never retried. The viewport covers every point of every
// resolved route, and is current when nothing resolved.
func (r *ItineraryResolverService) Resolve(ctx context.Context, legs []traveltypes.Leg, current *traveltypes.Bounds) Resolution {
	if !r.initialized {
		r.logger = logger.NewStyledLogger("Resolver")
		r.logger.Error("itinerary resolver service not initialized")
		return Resolution{Viewport: current, Failed: len(legs)}
	}

	results := make([]traveltypes.ResolvedLeg, len(legs))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, leg := range legs {
		g.Go(func() error {
			results[i] = r.resolveLeg(ctx, i, leg)
			return nil
		})
	}
	_ = g.Wait()

	resolution := Resolution{Legs: make([]traveltypes.ResolvedLeg, 0, len(legs))}
	var bounds *traveltypes.Bounds
	for _, result := range results {
		if result.Failed {
			resolution.Failed++
			if r.policy == MarkFailedLegs {
				resolution.Legs = append(resolution.Legs, result)
			}
			continue
		}
		resolution.Legs = append(resolution.Legs, result)
		bounds = extendBounds(bounds, result.Route.Points)
	}

	if bounds == nil {
		resolution.Viewport = current
	} else {
		resolution.Viewport = bounds
	}

	r.logger.Debug("Legs resolved", "leg", len(legs), "failed", resolution.Failed, "policy", r.policy)
	return resolution
}

func (r *ItineraryResolverService) resolveLeg(ctx context.Context, index int, leg traveltypes.Leg) traveltypes.ResolvedLeg {
	leg.Mode = traveltypes.ParseMode(string(leg.Mode))
	result := traveltypes.ResolvedLeg{Index: index, Leg: leg}

	fail := func(err error) traveltypes.ResolvedLeg {
		r.logger.Warn("Leg could not be resolved", "leg", index, "mode", leg.Mode, "error", err)
		result.Failed = true
		result.Reason = err.Error()
		return result
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return fail(err)
		}
	}

	route, err := r.directions.Route(ctx, traveltypes.RouteRequest{
		Origin:      leg.Start,
		Destination: leg.End,
		Mode:        leg.Mode,
	})
	if err != nil {
		return fail(err)
	}
	if route == nil {
		return fail(fmt.Errorf("%w: empty route", traveltypes.ErrLegResolution))
	}
	result.Route = route
	return result
}

// ResolveSingle resolves origin to destination as one leg in a single mode.
// Driving requests ask for a traffic-aware duration; when it exceeds the base
// duration it is reported and IsTraffic is set.
func (r *ItineraryResolverService) ResolveSingle(ctx context.Context, origin, destination string, mode traveltypes.Mode) (*traveltypes.Itinerary, error) {
	if !r.initialized {
		return nil, fmt.Errorf("itinerary resolver service not initialized")
	}
	mode = traveltypes.ParseMode(string(mode))

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	route, err := r.directions.Route(ctx, traveltypes.RouteRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        mode,
		DepartNow:   mode == traveltypes.ModeDriving,
	})
	if err != nil {
		r.logger.Warn("Route could not be resolved", "mode", mode, "error", err)
		return nil, err
	}
	if route == nil {
		return nil, fmt.Errorf("%w: empty route", traveltypes.ErrLegResolution)
	}

	duration := route.Duration
	isTraffic := false
	if mode == traveltypes.ModeDriving && route.DurationInTraffic != nil && *route.DurationInTraffic > route.Duration {
		duration = *route.DurationInTraffic
		isTraffic = true
	}
	timeTaken := FormatDuration(duration)

	return &traveltypes.Itinerary{
		Legs: []traveltypes.ResolvedLeg{{
			Index: 0,
			Leg: traveltypes.Leg{
				Start:     origin,
				End:       destination,
				Mode:      mode,
				TimeTaken: timeTaken,
				Distance:  route.DistanceText,
			},
			Route: route,
		}},
		TotalTime:     timeTaken,
		TotalDistance: route.DistanceText,
		Viewport:      extendBounds(nil, route.Points),
		IsTraffic:     isTraffic,
	}, nil
}

func extendBounds(bounds *traveltypes.Bounds, points []traveltypes.LatLng) *traveltypes.Bounds {
	for _, p := range points {
		if bounds == nil {
			b := traveltypes.NewBounds(p)
			bounds = &b
			continue
		}
		bounds.Extend(p)
	}
	return bounds
}

// FormatDuration renders a duration the way directions providers do:
// "1 min", "12 mins", "1 hour 5 mins", "2 days 3 hours".
func FormatDuration(d time.Duration) string {
	minutes := int(math.Round(d.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	days, hours, mins := minutes/(24*60), (minutes/60)%24, minutes%60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
		if hours > 0 {
			parts = append(parts, plural(hours, "hour"))
		}
		return strings.Join(parts, " ")
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if mins > 0 {
		parts = append(parts, plural(mins, "min"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
