// Package testutils provides deterministic generators and test doubles for Wayfarer tests.
// Generated values keep their production format so tests exercise real parsing paths.
package testutils

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TestModeProvider is satisfied by the Wayfarer context.
type TestModeProvider interface {
	IsTestMode() bool
}

var (
	idCounter uint64
	idMutex   sync.Mutex

	timeCounter int64
	timeMutex   sync.Mutex
)

// BaseTime is the first instant handed out by GetCurrentTime in test mode.
var BaseTime = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

// GenerateUUID returns a random UUID, or a deterministic one in test mode:
// 00000001-0000-4000-8000-000000000001, 00000002-0000-4000-8000-000000000002, ...
func GenerateUUID(ctx TestModeProvider) string {
	if ctx != nil && ctx.IsTestMode() {
		return getDeterministicUUID()
	}
	return uuid.New().String()
}

// GetCurrentTime returns time.Now(), or in test mode an incrementing clock
// that starts one second after BaseTime.
func GetCurrentTime(ctx TestModeProvider) time.Time {
	if ctx != nil && ctx.IsTestMode() {
		return getDeterministicTime()
	}
	return time.Now()
}

func getDeterministicUUID() string {
	idMutex.Lock()
	defer idMutex.Unlock()

	idCounter++
	return fmt.Sprintf("%08x-0000-4000-8000-%012x", idCounter, idCounter)
}

func getDeterministicTime() time.Time {
	timeMutex.Lock()
	defer timeMutex.Unlock()

	timeCounter++
	return BaseTime.Add(time.Duration(timeCounter) * time.Second)
}

// ResetTestCounters resets the deterministic counters.
// Only call this from test code.
func ResetTestCounters() {
	idMutex.Lock()
	timeMutex.Lock()
	defer idMutex.Unlock()
	defer timeMutex.Unlock()

	idCounter = 0
	timeCounter = 0
}
