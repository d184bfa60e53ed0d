package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wayfarer/pkg/traveltypes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePolyline(t *testing.T) {
	points, err := DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.InDelta(t, 38.5, points[0].Lat, 1e-9)
	assert.InDelta(t, -120.2, points[0].Lng, 1e-9)
	assert.InDelta(t, 40.7, points[1].Lat, 1e-9)
	assert.InDelta(t, -120.95, points[1].Lng, 1e-9)
	assert.InDelta(t, 43.252, points[2].Lat, 1e-9)
	assert.InDelta(t, -126.453, points[2].Lng, 1e-9)

	points, err = DecodePolyline("")
	require.NoError(t, err)
	assert.Empty(t, points)

	_, err = DecodePolyline("_p~iF~ps|")
	assert.Error(t, err)
	_, err = DecodePolyline("_p~iF\x01")
	assert.Error(t, err)
}

const directionsOK = `{
  "status": "OK",
  "routes": [{
    "summary": "Gardiner Expy",
    "overview_polyline": {"points": "_p~iF~ps|U_ulLnnqC"},
    "legs": [{
      "distance": {"text": "5.2 km", "value": 5200},
      "duration": {"text": "10 mins", "value": 600},
      "duration_in_traffic": {"text": "12 mins", "value": 720},
      "start_location": {"lat": 1, "lng": 2},
      "end_location": {"lat": 3, "lng": 4}
    }]
  }]
}`

func TestGoogleDirectionsClient(t *testing.T) {
	var query map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{}
		for key := range r.URL.Query() {
			query[key] = r.URL.Query().Get(key)
		}
		_, _ = w.Write([]byte(directionsOK))
	}))
	defer server.Close()

	client := NewGoogleDirectionsClient("maps-key", server.URL, newTestHTTPService(t))

	route, err := client.Route(context.Background(), traveltypes.RouteRequest{
		Origin: "Union Station", Destination: "CN Tower", Mode: traveltypes.ModeDriving, DepartNow: true,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"origin":         "Union Station",
		"destination":    "CN Tower",
		"mode":           "driving",
		"key":            "maps-key",
		"departure_time": "now",
		"traffic_model":  "best_guess",
	}, query)

	assert.Equal(t, 5200, route.Distance)
	assert.Equal(t, "5.2 km", route.DistanceText)
	assert.Equal(t, 10*time.Minute, route.Duration)
	require.NotNil(t, route.DurationInTraffic)
	assert.Equal(t, 12*time.Minute, *route.DurationInTraffic)
	assert.Equal(t, "Gardiner Expy", route.Summary)
	assert.Len(t, route.Points, 2)

	_, err = client.Route(context.Background(), traveltypes.RouteRequest{
		Origin: "A", Destination: "B", Mode: traveltypes.ModeWalking, DepartNow: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "walking", query["mode"])
	assert.NotContains(t, query, "departure_time")
}

func TestParseDirections(t *testing.T) {
	t.Run("non OK status", func(t *testing.T) {
		_, err := parseDirections([]byte(`{"status": "ZERO_RESULTS", "routes": []}`))
		assert.True(t, errors.Is(err, traveltypes.ErrLegResolution))
		assert.Contains(t, err.Error(), "ZERO_RESULTS")

		_, err = parseDirections([]byte(`{"status": "REQUEST_DENIED", "error_message": "bad key"}`))
		assert.Contains(t, err.Error(), "bad key")
	})

	t.Run("no polyline uses leg endpoints", func(t *testing.T) {
		route, err := parseDirections([]byte(`{"status": "OK", "routes": [{"legs": [{
			"duration": {"value": 60}, "start_location": {"lat": 1, "lng": 2}, "end_location": {"lat": 3, "lng": 4}}]}]}`))
		require.NoError(t, err)
		assert.Equal(t, []traveltypes.LatLng{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}}, route.Points)
		assert.Nil(t, route.DurationInTraffic)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := parseDirections([]byte(`<html>`))
		assert.True(t, errors.Is(err, traveltypes.ErrLegResolution))
	})
}

func TestGoogleDirectionsClient_Errors(t *testing.T) {
	_, err := NewGoogleDirectionsClient("", "http://unused", newTestHTTPService(t)).
		Route(context.Background(), traveltypes.RouteRequest{Origin: "A", Destination: "B"})
	assert.True(t, errors.Is(err, traveltypes.ErrLegResolution))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()
	_, err = NewGoogleDirectionsClient("k", server.URL, newTestHTTPService(t)).
		Route(context.Background(), traveltypes.RouteRequest{Origin: "A", Destination: "B"})
	assert.True(t, errors.Is(err, traveltypes.ErrLegResolution))
}

func TestDeepgramTranscriber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Token dg-key", r.Header.Get("Authorization"))
		assert.Equal(t, "audio/wav", r.Header.Get("Content-Type"))
		assert.Equal(t, "nova-2", r.URL.Query().Get("model"))
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		assert.Equal(t, "true", r.URL.Query().Get("smart_format"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte("RIFF"), body)
		_, _ = w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":" Route from A to B. ","confidence":0.98}]}]}}`))
	}))
	defer server.Close()

	transcriber := NewDeepgramTranscriber("dg-key", server.URL, newTestHTTPService(t))
	text, err := transcriber.Transcribe(context.Background(), []byte("RIFF"), "audio/wav")
	require.NoError(t, err)
	assert.Equal(t, "Route from A to B.", text)
}

func TestDeepgramTranscriber_Errors(t *testing.T) {
	_, err := NewDeepgramTranscriber("", "http://unused", newTestHTTPService(t)).
		Transcribe(context.Background(), []byte("x"), "")
	assert.True(t, errors.Is(err, traveltypes.ErrTranscription))

	_, err = NewDeepgramTranscriber("k", "http://unused", newTestHTTPService(t)).
		Transcribe(context.Background(), nil, "")
	assert.True(t, errors.Is(err, traveltypes.ErrTranscription))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()
	_, err = NewDeepgramTranscriber("k", server.URL, newTestHTTPService(t)).
		Transcribe(context.Background(), []byte("x"), "")
	assert.True(t, errors.Is(err, traveltypes.ErrTranscription))
}

func TestAudioContentType(t *testing.T) {
	assert.Equal(t, "audio/wav", AudioContentType("/tmp/clip.WAV"))
	assert.Equal(t, "audio/mpeg", AudioContentType("note.mp3"))
	assert.Equal(t, "application/octet-stream", AudioContentType("noext"))
}
