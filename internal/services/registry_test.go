package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingService struct {
	name    string
	initErr error
	log     *[]string
}

func (s *recordingService) Name() string { return s.name }

func (s *recordingService) Initialize() error {
	*s.log = append(*s.log, s.name)
	return s.initErr
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	var calls []string
	r := NewRegistry()
	require.NoError(t, r.RegisterService(&recordingService{name: "b", log: &calls}))
	require.NoError(t, r.RegisterService(&recordingService{name: "a", log: &calls}))

	err := r.RegisterService(&recordingService{name: "a", log: &calls})
	assert.EqualError(t, err, "service a already registered")

	svc, err := r.GetService("b")
	require.NoError(t, err)
	assert.Equal(t, "b", svc.Name())

	_, err = r.GetService("missing")
	assert.EqualError(t, err, "service missing not found")
	assert.Equal(t, []string{"a", "b"}, r.ServiceNames())
}

func TestRegistry_InitializeAllInOrder(t *testing.T) {
	var calls []string
	r := NewRegistry()
	for _, name := range []string{"configuration", "http_request", "trip"} {
		require.NoError(t, r.RegisterService(&recordingService{name: name, log: &calls}))
	}
	require.NoError(t, r.InitializeAll())
	assert.Equal(t, []string{"configuration", "http_request", "trip"}, calls)
}

func TestRegistry_InitializeAllStopsOnError(t *testing.T) {
	var calls []string
	r := NewRegistry()
	require.NoError(t, r.RegisterService(&recordingService{name: "first", log: &calls, initErr: errors.New("boom")}))
	require.NoError(t, r.RegisterService(&recordingService{name: "second", log: &calls}))

	err := r.InitializeAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize service first")
	assert.Equal(t, []string{"first"}, calls)
}

func TestLookup(t *testing.T) {
	var calls []string
	r := NewRegistry()
	require.NoError(t, r.RegisterService(&recordingService{name: "x", log: &calls}))

	svc, err := Lookup[*recordingService](r, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", svc.name)

	_, err = Lookup[*HTTPRequestService](r, "x")
	assert.Error(t, err)
}
