package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wayfarer/internal/services"
	"wayfarer/internal/storage"
	"wayfarer/internal/testutils"
	"wayfarer/pkg/traveltypes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shellFixture struct {
	app         *App
	planner     *testutils.MockPlanner
	directions  *testutils.MockDirections
	transcriber *testutils.MockTranscriber
	out         *bytes.Buffer
	handler     *Handler
}

func newShellFixture(t *testing.T, kv traveltypes.KV) *shellFixture {
	t.Helper()
	f := &shellFixture{
		planner:     testutils.NewMockPlanner(samplePlan()),
		directions:  testutils.NewMockDirections(),
		transcriber: &testutils.MockTranscriber{},
		out:         &bytes.Buffer{},
	}
	f.directions.AddRoute("Home", "Station", testutils.StraightRoute(
		traveltypes.LatLng{Lat: 43.64, Lng: -79.38}, traveltypes.LatLng{Lat: 43.65, Lng: -79.38}, 5*time.Minute))

	app, err := NewApp(context.Background(), Options{
		TestMode:   true,
		ConfigDir:  t.TempDir(),
		WorkingDir: t.TempDir(),
		FlagValues: map[string]string{
			services.KeyTheme:                "plain",
			services.KeyPartialFailureNotice: "true",
		},
		KV:          kv,
		Planner:     f.planner,
		Directions:  f.directions,
		Transcriber: f.transcriber,
	})
	require.NoError(t, err)
	t.Cleanup(app.Close)

	f.app = app
	f.handler = NewHandler(app, f.out)
	return f
}

func samplePlan() *traveltypes.PlanResponse {
	return &traveltypes.PlanResponse{
		Legs: []traveltypes.Leg{
			{Start: "Home", End: "Station", Mode: traveltypes.ModeWalking, TimeTaken: "5 mins"},
			{Start: "Station", End: "Office", Mode: traveltypes.ModeTransit},
		},
		TotalTime:   "30 mins",
		Distance:    "8 km",
		StepsNeeded: 1200,
	}
}

func (f *shellFixture) run(t *testing.T, input string) string {
	t.Helper()
	f.out.Reset()
	require.NoError(t, f.handler.Handle(context.Background(), input))
	return f.out.String()
}

func TestNewApp_WiresServices(t *testing.T) {
	f := newShellFixture(t, storage.NewMemoryKV())

	names := f.app.Registry.ServiceNames()
	for _, name := range []string{"configuration", "http_request", "queue", "session_store", "planner_factory", "theme", "render", "itinerary_resolver", "trip"} {
		assert.Contains(t, names, name)
	}
	assert.Equal(t, "mock", f.app.Planner.Backend())
	assert.Len(t, f.app.Store.Sessions(), 1)
	assert.NotEmpty(t, f.app.Store.ActiveID())
	assert.True(t, f.app.Render.IsPlain())
}

func TestNewApp_InvalidConfig(t *testing.T) {
	_, err := NewApp(context.Background(), Options{
		TestMode:   true,
		ConfigDir:  t.TempDir(),
		WorkingDir: t.TempDir(),
		FlagValues: map[string]string{services.KeyResolverFailurePolicy: "explode"},
		KV:         storage.NewMemoryKV(),
	})
	assert.Error(t, err)
}

func TestNewApp_UnavailableStorageFallsBackToMemory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	app, err := NewApp(context.Background(), Options{
		TestMode:   true,
		ConfigDir:  t.TempDir(),
		WorkingDir: t.TempDir(),
		FlagValues: map[string]string{
			services.KeyTheme:        "plain",
			services.KeyStoreBackend: storage.BackendFile,
			services.KeyStorePath:    filepath.Join(blocker, "sessions"),
		},
		Planner:     testutils.NewMockPlanner(samplePlan()),
		Directions:  testutils.NewMockDirections(),
		Transcriber: &testutils.MockTranscriber{},
	})
	require.NoError(t, err)
	t.Cleanup(app.Close)

	session, err := app.Store.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.ID, app.Store.ActiveID())
	assert.Len(t, app.Store.Sessions(), 2)
}

func TestNewApp_UnknownStorageBackend(t *testing.T) {
	_, err := NewApp(context.Background(), Options{
		TestMode:   true,
		ConfigDir:  t.TempDir(),
		WorkingDir: t.TempDir(),
		FlagValues: map[string]string{services.KeyStoreBackend: "etcd"},
	})
	assert.Error(t, err)
}

func TestHandle_SendMessage(t *testing.T) {
	f := newShellFixture(t, storage.NewMemoryKV())

	out := f.run(t, "from home to the office please")
	assert.Contains(t, out, "30 mins  8 km")
	assert.Contains(t, out, "1. walking  Home → Station  (5 mins)")
	assert.NotContains(t, out, "Station → Office")
	assert.Contains(t, out, services.PartialFailureText(1, 2))
	assert.Contains(t, out, services.StepsFollowUp(1200))
	assert.NotContains(t, out, "you  from home")

	session, err := f.app.Store.Active()
	require.NoError(t, err)
	require.Len(t, session.Turns, 4)
	assert.Equal(t, traveltypes.UserText{Text: "from home to the office please"}, session.Turns[0])

	requests := f.planner.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "from home to the office please", requests[0].FreeText)
}

func TestHandle_PlanningFailure(t *testing.T) {
	f := newShellFixture(t, storage.NewMemoryKV())
	f.planner.Err = errors.New("connection refused")

	out := f.run(t, "anywhere")
	assert.Equal(t, services.ApologyText+"\n", out)
}

func TestHandle_SessionCommands(t *testing.T) {
	f := newShellFixture(t, storage.NewMemoryKV())
	first := f.app.Store.ActiveID()

	f.run(t, "hello")
	out := f.run(t, "\\new")
	assert.Contains(t, out, "Started session ")
	second := f.app.Store.ActiveID()
	assert.NotEqual(t, first, second)
	assert.Equal(t, "wayfarer [", f.handler.Prompt()[:10])

	out = f.run(t, "\\sessions")
	assert.Contains(t, out, "  1. "+first+"  (4 messages)")
	assert.Contains(t, out, "* 2. "+second+"  (0 messages)")

	out = f.run(t, "\\use 1")
	assert.Contains(t, out, "Switched to session "+first)
	assert.Contains(t, out, "you  hello")
	assert.Equal(t, first, f.app.Store.ActiveID())

	f.run(t, "\\rename Lisbon weekend")
	assert.Equal(t, "Lisbon weekend", f.app.Store.ActiveID())

	out = f.run(t, "\\history")
	assert.Contains(t, out, "you  hello")

	out = f.run(t, "\\delete "+second)
	assert.Contains(t, out, "Deleted session "+second)
	assert.Len(t, f.app.Store.Sessions(), 1)
	assert.Equal(t, "wayfarer> ", f.handler.Prompt())
}

func TestHandle_Route(t *testing.T) {
	f := newShellFixture(t, storage.NewMemoryKV())
	traffic := 12 * time.Minute
	route := testutils.StraightRoute(traveltypes.LatLng{Lat: 1, Lng: 1}, traveltypes.LatLng{Lat: 2, Lng: 2}, 10*time.Minute)
	route.DurationInTraffic = &traffic
	route.DistanceText = "4.1 km"
	f.directions.AddRoute("Union Station", "CN Tower", route)

	out := f.run(t, "\\route[from=Union Station, to=CN Tower, mode=driving]")
	assert.Contains(t, out, "12 mins  4.1 km  heavy traffic")
	assert.Contains(t, out, "1. driving  Union Station → CN Tower")

	calls := f.directions.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].DepartNow)

	session, err := f.app.Store.Active()
	require.NoError(t, err)
	assert.Empty(t, session.Turns)
	assert.NotNil(t, f.app.Trip.Viewport())
}

func TestHandle_RouteAI(t *testing.T) {
	f := newShellFixture(t, storage.NewMemoryKV())

	out := f.run(t, "\\route[from=Home, to=Office, mode=ai, pref=2]")
	assert.Contains(t, out, "30 mins  8 km")

	requests := f.planner.Requests()
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].FreeText, "Home")
	assert.Contains(t, requests[0].FreeText, "Office")
}

func TestHandle_RouteErrors(t *testing.T) {
	f := newShellFixture(t, storage.NewMemoryKV())

	out := f.run(t, "\\route[to=CN Tower]")
	assert.Contains(t, out, "error: origin and destination are required")
	assert.Empty(t, f.directions.Calls())

	err := f.handler.Handle(context.Background(), "\\route[from=A, to=B, pref=many]")
	assert.Error(t, err)
}

func TestHandle_Voice(t *testing.T) {
	f := newShellFixture(t, storage.NewMemoryKV())
	audio := filepath.Join(t.TempDir(), "trip.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF"), 0o644))

	f.transcriber.Text = "  "
	out := f.run(t, "\\voice "+audio)
	assert.Equal(t, "No speech was recognized.\n", out)

	f.transcriber.Text = "take me to the office"
	out = f.run(t, "\\voice "+audio)
	assert.Contains(t, out, "you  take me to the office")
	assert.Contains(t, out, "30 mins  8 km")

	err := f.handler.Handle(context.Background(), "\\voice "+filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestHandle_MiscCommands(t *testing.T) {
	f := newShellFixture(t, storage.NewMemoryKV())

	assert.Contains(t, f.run(t, "\\help"), "\\route[from=A, to=B, mode=M, pref=N]")
	assert.Contains(t, f.run(t, "\\config"), services.KeyTheme+"=plain")
	assert.Empty(t, f.run(t, "   "))
	assert.Empty(t, f.run(t, "%% a comment"))

	assert.ErrorIs(t, f.handler.Handle(context.Background(), "\\exit"), ErrExit)
	assert.Error(t, f.handler.Handle(context.Background(), "\\teleport"))
	assert.Error(t, f.handler.Handle(context.Background(), "\\use"))
	assert.Error(t, f.handler.Handle(context.Background(), "\\rename"))
}

func TestApp_SessionsSurviveRestart(t *testing.T) {
	dir := t.TempDir()

	kv, err := storage.NewFileKV(dir)
	require.NoError(t, err)
	f := newShellFixture(t, kv)
	f.run(t, "hello")
	f.run(t, "\\rename Commute")
	f.app.Close()

	kv, err = storage.NewFileKV(dir)
	require.NoError(t, err)
	restarted := newShellFixture(t, kv)
	assert.Equal(t, "Commute", restarted.app.Store.ActiveID())

	session, err := restarted.app.Store.Active()
	require.NoError(t, err)
	assert.Len(t, session.Turns, 4)
}
