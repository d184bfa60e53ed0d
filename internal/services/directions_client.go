package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"wayfarer/internal/logger"
	"wayfarer/pkg/traveltypes"

	"github.com/tidwall/gjson"
)

// GoogleDirectionsClient implements traveltypes.DirectionsProvider over the
// Google Directions JSON API.
type GoogleDirectionsClient struct {
	apiKey  string
	baseURL string
	http    *HTTPRequestService
}

// NewGoogleDirectionsClient creates a directions client for baseURL.
func NewGoogleDirectionsClient(apiKey, baseURL string, http *HTTPRequestService) *GoogleDirectionsClient {
	return &GoogleDirectionsClient{apiKey: apiKey, baseURL: baseURL, http: http}
}

// Route requests one leg. Any status other than OK is an ErrLegResolution.
func (c *GoogleDirectionsClient) Route(ctx context.Context, req traveltypes.RouteRequest) (*traveltypes.Route, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: %s not configured", traveltypes.ErrLegResolution, KeyGoogleMapsAPIKey)
	}

	mode := traveltypes.ParseMode(string(req.Mode))
	query := url.Values{}
	query.Set("origin", req.Origin)
	query.Set("destination", req.Destination)
	query.Set("mode", string(mode))
	query.Set("key", c.apiKey)
	if req.DepartNow && mode == traveltypes.ModeDriving {
		query.Set("departure_time", "now")
		query.Set("traffic_model", "best_guess")
	}

	resp, err := c.http.Get(ctx, c.baseURL, query, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", traveltypes.ErrLegResolution, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: directions returned %s", traveltypes.ErrLegResolution, resp.Status)
	}
	return parseDirections(resp.Body)
}

func parseDirections(body []byte) (*traveltypes.Route, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid directions response", traveltypes.ErrLegResolution)
	}
	doc := gjson.ParseBytes(body)

	status := doc.Get("status").String()
	if status != "OK" {
		if message := doc.Get("error_message").String(); message != "" {
			return nil, fmt.Errorf("%w: %s: %s", traveltypes.ErrLegResolution, status, message)
		}
		return nil, fmt.Errorf("%w: %s", traveltypes.ErrLegResolution, status)
	}

	first := doc.Get("routes.0")
	leg := first.Get("legs.0")
	if !leg.Exists() {
		return nil, fmt.Errorf("%w: ZERO_RESULTS", traveltypes.ErrLegResolution)
	}

	route := &traveltypes.Route{
		Distance:     int(leg.Get("distance.value").Int()),
		DistanceText: leg.Get("distance.text").String(),
		Duration:     time.Duration(leg.Get("duration.value").Int()) * time.Second,
		Summary:      first.Get("summary").String(),
	}
	if traffic := leg.Get("duration_in_traffic.value"); traffic.Exists() {
		d := time.Duration(traffic.Int()) * time.Second
		route.DurationInTraffic = &d
	}

	points, err := DecodePolyline(first.Get("overview_polyline.points").String())
	if err != nil {
		logger.Warn("Discarding malformed overview polyline", "error", err)
		points = nil
	}
	if len(points) == 0 {
		for _, key := range []string{"start_location", "end_location"} {
			if loc := leg.Get(key); loc.Exists() {
				points = append(points, traveltypes.LatLng{Lat: loc.Get("lat").Float(), Lng: loc.Get("lng").Float()})
			}
		}
	}
	route.Points = points
	return route, nil
}
