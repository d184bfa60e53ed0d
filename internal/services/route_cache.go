package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"wayfarer/internal/logger"
	"wayfarer/pkg/traveltypes"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// CachingDirections memoizes directions lookups. Requests that ask for
// live traffic always reach the provider. Failures are never cached.
type CachingDirections struct {
	next   traveltypes.DirectionsProvider
	routes *expirable.LRU[string, traveltypes.Route]
	flight singleflight.Group
}

// NewCachingDirections wraps next with an LRU cache of size entries that
// expire after ttl.
func NewCachingDirections(next traveltypes.DirectionsProvider, size int, ttl time.Duration) *CachingDirections {
	return &CachingDirections{
		next:   next,
		routes: expirable.NewLRU[string, traveltypes.Route](size, nil, ttl),
	}
}

func routeKey(req traveltypes.RouteRequest) string {
	return strings.Join([]string{
		string(req.Mode),
		strings.ToLower(strings.TrimSpace(req.Origin)),
		strings.ToLower(strings.TrimSpace(req.Destination)),
	}, "\x00")
}

// Route returns the cached route for req or asks the wrapped provider.
// Concurrent lookups of the same leg share one provider call.
func (c *CachingDirections) Route(ctx context.Context, req traveltypes.RouteRequest) (*traveltypes.Route, error) {
	if req.DepartNow {
		return c.next.Route(ctx, req)
	}

	key := routeKey(req)
	if route, ok := c.routes.Get(key); ok {
		logger.Debug("Route cache hit", "origin", req.Origin, "destination", req.Destination, "mode", req.Mode)
		return cloneRoute(route), nil
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		route, err := c.next.Route(ctx, req)
		if err != nil {
			return nil, err
		}
		c.routes.Add(key, *route)
		return *route, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneRoute(v.(traveltypes.Route)), nil
}

// Len returns the number of cached routes.
func (c *CachingDirections) Len() int {
	return c.routes.Len()
}

func cloneRoute(route traveltypes.Route) *traveltypes.Route {
	route.Points = slices.Clone(route.Points)
	if route.DurationInTraffic != nil {
		d := *route.DurationInTraffic
		route.DurationInTraffic = &d
	}
	return &route
}
