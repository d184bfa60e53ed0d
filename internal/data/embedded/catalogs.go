// Package embedded provides access to data files compiled into the binary.
package embedded

import _ "embed"

// PreferencesData contains the route preference clauses used when asking the
// planner for a multi-modal trip.
//
//go:embed preferences.yaml
var PreferencesData []byte

// PlannerPromptData contains the system prompt given to LLM-backed planners.
//
//go:embed planner_prompt.yaml
var PlannerPromptData []byte
