package traveltypes

import (
	"encoding/json"
	"strings"
	"time"
)

// Mode is a transport mode a single leg is travelled in.
type Mode string

// Transport modes understood by the directions provider.
const (
	ModeWalking   Mode = "walking"
	ModeTransit   Mode = "transit"
	ModeBicycling Mode = "bicycling"
	ModeDriving   Mode = "driving"
)

// AllModes lists the uniform transport modes in display order.
var AllModes = []Mode{ModeDriving, ModeWalking, ModeBicycling, ModeTransit}

// ParseMode normalizes a mode string. Matching is case-insensitive and any
// unrecognized value falls back to driving.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeWalking:
		return ModeWalking
	case ModeTransit:
		return ModeTransit
	case ModeBicycling:
		return ModeBicycling
	default:
		return ModeDriving
	}
}

// UnmarshalJSON normalizes the mode while decoding.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*m = ParseMode(s)
	return nil
}

// TravelMode is what the user picks in the route form: one of the uniform
// modes or the AI multi-modal planner.
type TravelMode string

// TravelModeAI asks the planning service for a multi-modal trip.
const TravelModeAI TravelMode = "ai"

// ParseTravelMode parses a user supplied travel mode. "ai" selects the
// multi-modal planner; everything else is normalized with ParseMode.
func ParseTravelMode(s string) TravelMode {
	if strings.EqualFold(strings.TrimSpace(s), string(TravelModeAI)) {
		return TravelModeAI
	}
	return TravelMode(ParseMode(s))
}

// IsAI reports whether the travel mode is the multi-modal planner.
func (t TravelMode) IsAI() bool {
	return t == TravelModeAI
}

// Mode returns the uniform transport mode. It is driving for the AI mode.
func (t TravelMode) Mode() Mode {
	return ParseMode(string(t))
}

// Leg is one mode-homogeneous segment of a trip as proposed by the planner.
type Leg struct {
	Start         string  `json:"start"`
	End           string  `json:"end"`
	Mode          Mode    `json:"modeOfTransport"`
	TimeTaken     string  `json:"timeTaken,omitempty"`
	Distance      string  `json:"distance,omitempty"`
	TransportName string  `json:"nameOfTransport,omitempty"`
	Cost          *string `json:"totalCost,omitempty"`
	Calories      *string `json:"calories,omitempty"`
}

// LatLng is a geographic point.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is a rectangular geographic extent.
type Bounds struct {
	SouthWest LatLng `json:"southwest"`
	NorthEast LatLng `json:"northeast"`
}

// NewBounds returns bounds that cover exactly p.
func NewBounds(p LatLng) Bounds {
	return Bounds{SouthWest: p, NorthEast: p}
}

// Extend grows b to include p.
func (b *Bounds) Extend(p LatLng) {
	if p.Lat < b.SouthWest.Lat {
		b.SouthWest.Lat = p.Lat
	}
	if p.Lng < b.SouthWest.Lng {
		b.SouthWest.Lng = p.Lng
	}
	if p.Lat > b.NorthEast.Lat {
		b.NorthEast.Lat = p.Lat
	}
	if p.Lng > b.NorthEast.Lng {
		b.NorthEast.Lng = p.Lng
	}
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
}

// Center returns the midpoint of b.
func (b Bounds) Center() LatLng {
	return LatLng{
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
		Lng: (b.SouthWest.Lng + b.NorthEast.Lng) / 2,
	}
}

// Route is a concrete navigable path returned by the directions provider.
type Route struct {
	Points            []LatLng       `json:"points"`
	Distance          int            `json:"distance_m"`
	DistanceText      string         `json:"distance_text,omitempty"`
	Duration          time.Duration  `json:"duration"`
	DurationInTraffic *time.Duration `json:"duration_in_traffic,omitempty"`
	Summary           string         `json:"summary,omitempty"`
}

// RouteRequest asks the directions provider for a single leg.
type RouteRequest struct {
	Origin      string
	Destination string
	Mode        Mode
	// DepartNow requests traffic-aware durations; only meaningful when driving.
	DepartNow bool
}

// ResolvedLeg pairs a planner leg with its concrete path. Index is the position
// of the leg in the planner response. Failed legs carry no route.
type ResolvedLeg struct {
	Index  int    `json:"index"`
	Leg    Leg    `json:"leg"`
	Route  *Route `json:"route,omitempty"`
	Failed bool   `json:"failed,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Itinerary is an ordered sequence of resolved legs plus aggregate metrics.
type Itinerary struct {
	Legs          []ResolvedLeg `json:"legs"`
	TotalTime     string        `json:"totalTime"`
	TotalDistance string        `json:"distance"`
	Efficiency    *string       `json:"efficiency,omitempty"`
	Health        *string       `json:"health,omitempty"`
	Effectiveness *string       `json:"effectiveness,omitempty"`
	Description   string        `json:"description,omitempty"`
	StepsNeeded   int           `json:"stepsNeeded"`
	Viewport      *Bounds       `json:"viewport,omitempty"`
	IsTraffic     bool          `json:"isTraffic"`
}

// Modes returns the transport mode of every leg in order.
func (it Itinerary) Modes() []Mode {
	modes := make([]Mode, 0, len(it.Legs))
	for _, leg := range it.Legs {
		modes = append(modes, leg.Leg.Mode)
	}
	return modes
}

// Expression renders the mode sequence the way the planner reports it,
// e.g. "walking | transit".
func (it Itinerary) Expression() string {
	parts := make([]string, 0, len(it.Legs))
	for _, m := range it.Modes() {
		parts = append(parts, string(m))
	}
	return strings.Join(parts, " | ")
}

// PlanRequest is the outgoing request to the planning service. Either
// FreeText is set (multi-modal) or Origin/Destination/Mode are (uniform).
type PlanRequest struct {
	FreeText    string `json:"text,omitempty"`
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
	Mode        Mode   `json:"mode,omitempty"`
}

// IsFreeText reports whether the request carries a free-text prompt.
func (r PlanRequest) IsFreeText() bool {
	return r.FreeText != ""
}

// PlanResponse is the planning service's answer: ordered legs plus metrics.
type PlanResponse struct {
	Legs          []Leg   `json:"route1"`
	TotalTime     string  `json:"totalTime"`
	Distance      string  `json:"distance"`
	Efficiency    *string `json:"efficiency,omitempty"`
	Health        *string `json:"health,omitempty"`
	Effectiveness *string `json:"effectiveness,omitempty"`
	Description   string  `json:"description,omitempty"`
	StepsNeeded   int     `json:"stepsNeeded"`
}
