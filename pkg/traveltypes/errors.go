package traveltypes

import "errors"

// Error classes shared across Wayfarer. Concrete errors wrap one of these with
// fmt.Errorf("...: %w", ...) so callers can branch with errors.Is.
var (
	ErrPlanningService = errors.New("planning service error")
	ErrLegResolution   = errors.New("leg resolution failed")
	ErrTranscription   = errors.New("transcription failed")
	ErrStorage         = errors.New("storage error")
	ErrNotFound        = errors.New("not found")
	ErrSessionNotFound = errors.New("session not found")
)
