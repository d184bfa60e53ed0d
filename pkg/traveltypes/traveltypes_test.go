package traveltypes

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParseMode(t *testing.T) {
	tests := []struct {
		input    string
		expected Mode
	}{
		{"walking", ModeWalking},
		{"WALKING", ModeWalking},
		{" transit ", ModeTransit},
		{"bicycling", ModeBicycling},
		{"driving", ModeDriving},
		{"hovercraft", ModeDriving},
		{"", ModeDriving},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseMode(tt.input))
		})
	}
}

func TestParseTravelMode(t *testing.T) {
	assert.True(t, ParseTravelMode("AI").IsAI())
	assert.Equal(t, TravelMode(ModeTransit), ParseTravelMode("Transit"))
	assert.Equal(t, ModeDriving, ParseTravelMode("teleport").Mode())
	assert.False(t, ParseTravelMode("walking").IsAI())
}

func TestLegModeDecoding(t *testing.T) {
	var leg Leg
	err := json.Unmarshal([]byte(`{"start":"A","end":"B","modeOfTransport":"Transit","timeTaken":"12 min"}`), &leg)
	require.NoError(t, err)
	assert.Equal(t, ModeTransit, leg.Mode)
	assert.Equal(t, "12 min", leg.TimeTaken)

	err = json.Unmarshal([]byte(`{"start":"A","end":"B","modeOfTransport":"ferry"}`), &leg)
	require.NoError(t, err)
	assert.Equal(t, ModeDriving, leg.Mode)
}

func TestBounds(t *testing.T) {
	b := NewBounds(LatLng{Lat: 43.7, Lng: -79.4})
	b.Extend(LatLng{Lat: 43.8, Lng: -79.2})
	b.Extend(LatLng{Lat: 43.6, Lng: -79.3})

	assert.Equal(t, LatLng{Lat: 43.6, Lng: -79.4}, b.SouthWest)
	assert.Equal(t, LatLng{Lat: 43.8, Lng: -79.2}, b.NorthEast)
	assert.True(t, b.Contains(LatLng{Lat: 43.7, Lng: -79.3}))
	assert.False(t, b.Contains(LatLng{Lat: 44.0, Lng: -79.3}))
	assert.InDelta(t, 43.7, b.Center().Lat, 1e-9)
}

func TestItineraryExpression(t *testing.T) {
	it := Itinerary{Legs: []ResolvedLeg{
		{Index: 0, Leg: Leg{Start: "A", End: "C", Mode: ModeWalking}},
		{Index: 1, Leg: Leg{Start: "C", End: "B", Mode: ModeTransit}},
	}}
	assert.Equal(t, "walking | transit", it.Expression())
	assert.Equal(t, []Mode{ModeWalking, ModeTransit}, it.Modes())
}

func TestSessionJSONRoundTripKeepsVariants(t *testing.T) {
	created := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	session := Session{
		ID:        "1/1/2025, 9:30:00 AM",
		CreatedAt: created,
		Turns: []Turn{
			UserText{Text: "Union Station to the airport"},
			BotItinerary{Itinerary: Itinerary{
				TotalTime:     "45",
				TotalDistance: "27 km",
				Health:        strPtr("120 kcal"),
				StepsNeeded:   1500,
				Legs: []ResolvedLeg{{
					Index: 0,
					Leg:   Leg{Start: "Union Station", End: "Pearson", Mode: ModeTransit, Cost: strPtr("12.35")},
					Route: &Route{Points: []LatLng{{Lat: 43.64, Lng: -79.38}}, Duration: 25 * time.Minute},
				}},
			}},
			BotText{Text: "Looks like you still need 1500 steps"},
		},
	}

	data, err := json.Marshal(session)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"bot_itinerary"`)

	var decoded Session
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Turns, 3)

	switch turn := decoded.Turns[1].(type) {
	case BotItinerary:
		assert.Equal(t, 1500, turn.Itinerary.StepsNeeded)
		require.Len(t, turn.Itinerary.Legs, 1)
		assert.Equal(t, "12.35", *turn.Itinerary.Legs[0].Leg.Cost)
		assert.Equal(t, 25*time.Minute, turn.Itinerary.Legs[0].Route.Duration)
	default:
		t.Fatalf("expected BotItinerary, got %T", turn)
	}
	assert.Equal(t, UserText{Text: "Union Station to the airport"}, decoded.Turns[0])
	assert.Equal(t, created, decoded.CreatedAt)
}

func TestSessionUnmarshalRejectsUnknownKind(t *testing.T) {
	var s Session
	err := json.Unmarshal([]byte(`{"id":"x","turns":[{"kind":"component"}]}`), &s)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown turn kind")
}

func TestSessionClone(t *testing.T) {
	s := &Session{ID: "a", Turns: []Turn{UserText{Text: "hi"}}}
	c := s.Clone()
	c.Turns = append(c.Turns, BotText{Text: "hello"})
	c.Turns[0] = BotText{Text: "changed"}

	assert.Len(t, s.Turns, 1)
	assert.Equal(t, UserText{Text: "hi"}, s.Turns[0])
	assert.Nil(t, (*Session)(nil).Clone())
}
