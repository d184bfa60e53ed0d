package services

import (
	"strings"
	"testing"

	"wayfarer/pkg/traveltypes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlainRenderer(t *testing.T) *RenderService {
	t.Helper()
	themes := NewThemeService()
	require.NoError(t, themes.Initialize())
	r := NewRenderService(themes, "plain")
	require.NoError(t, r.Initialize())
	require.True(t, r.IsPlain())
	return r
}

func strPtr(s string) *string { return &s }

func TestThemeService(t *testing.T) {
	themes := NewThemeService()
	assert.Equal(t, "theme", themes.Name())
	assert.Empty(t, themes.GetAvailableThemes())
	assert.Equal(t, "plain", themes.GetThemeByName("default").Name)

	require.NoError(t, themes.Initialize())
	assert.Equal(t, []string{"default", "plain"}, themes.GetAvailableThemes())
	assert.Equal(t, "default", themes.GetThemeByName(" Default ").Name)
	assert.Equal(t, "plain", themes.GetThemeByName("neon").Name)

	theme := themes.GetThemeByName("default")
	assert.True(t, theme.Title.GetBold())
	assert.True(t, theme.Failed.GetItalic())
	assert.NotEqual(t, theme.Mode(traveltypes.ModeWalking).GetForeground(), theme.Mode(traveltypes.ModeDriving).GetForeground())
}

func TestLoadTheme(t *testing.T) {
	theme, err := LoadTheme([]byte(`
name: custom
styles:
  walking:
    foreground: {light: "22", dark: "46"}
  card:
    border: double
    padding: [1]
`))
	require.NoError(t, err)
	assert.Equal(t, "custom", theme.Name)
	assert.Equal(t, 1, theme.Card.GetPaddingTop())

	_, err = LoadTheme([]byte("styles: {}"))
	assert.Error(t, err)
	_, err = LoadTheme([]byte("name: ["))
	assert.Error(t, err)
}

func TestRenderService_Initialize(t *testing.T) {
	assert.Error(t, NewRenderService(nil, "plain").Initialize())
	assert.Equal(t, "render", NewRenderService(nil, "").Name())
}

func TestRenderService_Turns(t *testing.T) {
	r := newPlainRenderer(t)

	assert.Equal(t, "you  route home", r.RenderTurn(traveltypes.UserText{Text: "route home"}))
	assert.Equal(t, ApologyText, r.RenderTurn(traveltypes.BotText{Text: ApologyText}))
}

func TestRenderService_Itinerary(t *testing.T) {
	r := newPlainRenderer(t)
	it := traveltypes.Itinerary{
		Legs: []traveltypes.ResolvedLeg{
			{Index: 0, Leg: traveltypes.Leg{Start: "Home", End: "Station", Mode: traveltypes.ModeWalking, TimeTaken: "10 min", Calories: strPtr("45")}},
			{Index: 1, Leg: traveltypes.Leg{Start: "Station", End: "Office", Mode: traveltypes.ModeTransit, TransportName: "Line 1", Cost: strPtr("3.35")}, Failed: true},
		},
		TotalTime:     "35 mins",
		TotalDistance: "9 km",
		Description:   "Walk then subway",
		Efficiency:    strPtr("high"),
		Health:        strPtr("45 kcal"),
	}

	out := r.RenderItinerary(it)
	expected := strings.Join([]string{
		"35 mins  9 km",
		"walking → transit",
		"",
		"Walk then subway",
		"",
		"Efficiency: high   45 kcal burned",
		"",
		"1. walking  Home → Station  (10 min, 45 cal)",
		"2. transit  Station → Office  (Line 1, cost 3.35)  not found on map",
	}, "\n")
	assert.Equal(t, expected, out)
}

func TestRenderService_EmptyItinerary(t *testing.T) {
	r := newPlainRenderer(t)
	out := r.RenderTurn(traveltypes.BotItinerary{Itinerary: traveltypes.Itinerary{TotalTime: "12 mins", IsTraffic: true}})
	assert.Equal(t, "12 mins  heavy traffic\nNo route could be shown on the map.", out)
}

func TestRenderService_StyledOutputStripsToPlain(t *testing.T) {
	themes := NewThemeService()
	require.NoError(t, themes.Initialize())
	r := NewRenderService(themes, "default")
	require.NoError(t, r.Initialize())
	r.SetPlain(false)

	out := r.RenderTurn(traveltypes.UserText{Text: "hello"})
	assert.Contains(t, Strip(out), "you  hello")
}

func TestRenderService_SessionsAndSummary(t *testing.T) {
	r := newPlainRenderer(t)
	sessions := []*traveltypes.Session{
		{ID: "first", Turns: []traveltypes.Turn{traveltypes.UserText{Text: "hi"}}},
		{ID: "second"},
	}
	assert.Equal(t, "  1. first  (1 message)\n* 2. second  (0 messages)", r.RenderSessionList(sessions, "second"))
	assert.Equal(t, "No sessions.", r.RenderSessionList(nil, ""))

	assert.Equal(t, "(no messages yet)", r.RenderSession(sessions[1]))
	assert.Equal(t, "you  hi", r.RenderSession(sessions[0]))

	assert.Equal(t, "a long…", r.Summary(traveltypes.BotText{Text: "a   long\nmessage"}, 7))
	assert.Equal(t, "walking route, 5 mins", r.Summary(traveltypes.BotItinerary{Itinerary: traveltypes.Itinerary{
		Legs:      []traveltypes.ResolvedLeg{{Leg: traveltypes.Leg{Mode: traveltypes.ModeWalking}}},
		TotalTime: "5 mins",
	}}, 0))
}
