package services

import (
	"fmt"
	"strings"
	"sync"

	"wayfarer/internal/data/embedded"
	"wayfarer/internal/logger"
	"wayfarer/pkg/traveltypes"

	"gopkg.in/yaml.v3"
)

// Preference is one route preference the user can pick for AI routes.
type Preference struct {
	Index  int    `yaml:"index"`
	Name   string `yaml:"name"`
	Clause string `yaml:"clause"`
}

// PreferenceCatalog maps preference indexes to prompt clauses.
type PreferenceCatalog struct {
	DefaultIndex int          `yaml:"default_index"`
	Preferences  []Preference `yaml:"preferences"`
	Fallback     Preference   `yaml:"fallback"`
}

const balancedClause = "find a balanced route with no specific preference."

// LoadPreferenceCatalog parses a preference catalog from YAML.
func LoadPreferenceCatalog(data []byte) (*PreferenceCatalog, error) {
	var catalog PreferenceCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse preference catalog: %w", err)
	}
	if catalog.Fallback.Clause == "" {
		catalog.Fallback = Preference{Index: -1, Name: "balanced", Clause: balancedClause}
	}
	return &catalog, nil
}

var defaultCatalog = sync.OnceValue(func() *PreferenceCatalog {
	catalog, err := LoadPreferenceCatalog(embedded.PreferencesData)
	if err != nil {
		logger.Error("Failed to load embedded preferences", "error", err)
		return &PreferenceCatalog{
			DefaultIndex: 1,
			Fallback:     Preference{Index: -1, Name: "balanced", Clause: balancedClause},
		}
	}
	return catalog
})

// DefaultPreferenceCatalog returns the catalog compiled into the binary.
func DefaultPreferenceCatalog() *PreferenceCatalog {
	return defaultCatalog()
}

// Lookup returns the preference for index, or the fallback for unknown indexes.
func (c *PreferenceCatalog) Lookup(index int) Preference {
	for _, p := range c.Preferences {
		if p.Index == index {
			return p
		}
	}
	return c.Fallback
}

// Clause returns the prompt clause for index.
func (c *PreferenceCatalog) Clause(index int) string {
	return c.Lookup(index).Clause
}

// SelectOption tunes SelectMode.
type SelectOption func(*selectOptions)

type selectOptions struct {
	preference    int
	hasPreference bool
	catalog       *PreferenceCatalog
}

// WithPreference picks the route preference for AI mode. Without it the
// catalog default (cheapest) applies.
func WithPreference(index int) SelectOption {
	return func(o *selectOptions) {
		o.preference = index
		o.hasPreference = true
	}
}

// WithCatalog replaces the embedded preference catalog.
func WithCatalog(catalog *PreferenceCatalog) SelectOption {
	return func(o *selectOptions) {
		o.catalog = catalog
	}
}

// RoutePrompt builds the free-text request sent for AI routes.
func RoutePrompt(origin, destination, clause string) string {
	return fmt.Sprintf("Give me a route from %s to %s. %s", origin, destination, clause)
}

// SelectMode builds the outgoing plan request for a route form submission.
// Uniform modes produce a structured request; AI mode produces a free-text
// prompt carrying the preference clause. It has no side effects.
func SelectMode(origin, destination string, mode traveltypes.TravelMode, opts ...SelectOption) traveltypes.PlanRequest {
	o := selectOptions{catalog: DefaultPreferenceCatalog()}
	for _, opt := range opts {
		opt(&o)
	}

	origin = strings.TrimSpace(origin)
	destination = strings.TrimSpace(destination)

	if !mode.IsAI() {
		return traveltypes.PlanRequest{
			Origin:      origin,
			Destination: destination,
			Mode:        mode.Mode(),
		}
	}

	index := o.catalog.DefaultIndex
	if o.hasPreference {
		index = o.preference
	}
	return traveltypes.PlanRequest{
		FreeText: RoutePrompt(origin, destination, o.catalog.Clause(index)),
	}
}
