package testutils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type modeFlag bool

func (m modeFlag) IsTestMode() bool { return bool(m) }

func TestGenerateUUID(t *testing.T) {
	ResetTestCounters()

	assert.Equal(t, "00000001-0000-4000-8000-000000000001", GenerateUUID(modeFlag(true)))
	assert.Equal(t, "00000002-0000-4000-8000-000000000002", GenerateUUID(modeFlag(true)))

	_, err := uuid.Parse(GenerateUUID(modeFlag(true)))
	assert.NoError(t, err)

	random := GenerateUUID(modeFlag(false))
	parsed, err := uuid.Parse(random)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestGetCurrentTime(t *testing.T) {
	ResetTestCounters()

	first := GetCurrentTime(modeFlag(true))
	second := GetCurrentTime(modeFlag(true))
	assert.Equal(t, BaseTime.Add(1e9), first)
	assert.True(t, second.After(first))
	assert.False(t, GetCurrentTime(nil).IsZero())
}
