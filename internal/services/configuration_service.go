package services

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	wayfarercontext "wayfarer/internal/context"
	"wayfarer/internal/storage"

	"github.com/spf13/cast"
)

// Configuration keys. Nested config.yaml keys map onto them with
// ConfigKeyFromPath, e.g. trip.partial_failure_notice becomes
// WAYFARER_TRIP_PARTIAL_FAILURE_NOTICE.
const (
	KeyPlannerBackend        = "WAYFARER_PLANNER_BACKEND"
	KeyPlannerURL            = "WAYFARER_PLANNER_URL"
	KeyPlannerModel          = "WAYFARER_PLANNER_MODEL"
	KeyStoreBackend          = "WAYFARER_STORE_BACKEND"
	KeyStorePath             = "WAYFARER_STORE_PATH"
	KeyStoreRedisURL         = "WAYFARER_STORE_REDIS_URL"
	KeyDirectionsURL         = "WAYFARER_DIRECTIONS_URL"
	KeyTranscriptionURL      = "WAYFARER_TRANSCRIPTION_URL"
	KeyHTTPTimeout           = "WAYFARER_HTTP_TIMEOUT"
	KeyResolverConcurrency   = "WAYFARER_RESOLVER_CONCURRENCY"
	KeyResolverQPS           = "WAYFARER_RESOLVER_QPS"
	KeyResolverFailurePolicy = "WAYFARER_RESOLVER_FAILURE_POLICY"
	KeyResolverCacheSize     = "WAYFARER_RESOLVER_CACHE_SIZE"
	KeyResolverCacheTTL      = "WAYFARER_RESOLVER_CACHE_TTL"
	KeyPartialFailureNotice  = "WAYFARER_TRIP_PARTIAL_FAILURE_NOTICE"
	KeyTripPreference        = "WAYFARER_TRIP_PREFERENCE"
	KeyTheme                 = "WAYFARER_THEME"
)

// Provider credential keys.
const (
	KeyGoogleMapsAPIKey = "GOOGLE_MAPS_API_KEY"
	KeyDeepgramAPIKey   = "DEEPGRAM_API_KEY"
	KeyOpenAIAPIKey     = "OPENAI_API_KEY"
	KeyAnthropicAPIKey  = "ANTHROPIC_API_KEY"
	KeyGoogleAPIKey     = "GOOGLE_API_KEY"
)

// DefaultConfig holds the lowest-priority configuration layer.
var DefaultConfig = map[string]string{
	KeyPlannerBackend:        "http",
	KeyPlannerURL:            "http://localhost:5000/post/route",
	KeyStoreBackend:          storage.BackendFile,
	KeyStoreRedisURL:         "redis://localhost:6379/0",
	KeyDirectionsURL:         "https://maps.googleapis.com/maps/api/directions/json",
	KeyTranscriptionURL:      "https://api.deepgram.com/v1/listen",
	KeyHTTPTimeout:           "30s",
	KeyResolverConcurrency:   "4",
	KeyResolverQPS:           "10",
	KeyResolverFailurePolicy: string(DropFailedLegs),
	KeyResolverCacheSize:     "256",
	KeyResolverCacheTTL:      "30m",
	KeyPartialFailureNotice:  "false",
	KeyTripPreference:        "1",
	KeyTheme:                 "default",
}

// ConfigKeyFromPath converts a dotted config.yaml path to a configuration key.
func ConfigKeyFromPath(path string) string {
	key := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(path))
	if strings.HasPrefix(key, wayfarercontext.EnvPrefix) {
		return key
	}
	return wayfarercontext.EnvPrefix + key
}

// ConfigurationService resolves typed settings from the context's layered
// configuration map. Priority, lowest to highest: defaults, config.yaml,
// ~/.config/wayfarer/.env, ./.env, environment, command-line flags.
type ConfigurationService struct {
	initialized bool
	ctx         *wayfarercontext.TravelContext
	fileValues  map[string]string
	flagValues  map[string]string
}

// NewConfigurationService creates a new ConfigurationService instance.
func NewConfigurationService(ctx *wayfarercontext.TravelContext) *ConfigurationService {
	return &ConfigurationService{ctx: ctx}
}

// Name returns the service name "configuration" for registration.
func (c *ConfigurationService) Name() string {
	return "configuration"
}

// SetFileValues provides values read from config.yaml. Call before Initialize.
func (c *ConfigurationService) SetFileValues(values map[string]string) {
	c.fileValues = values
}

// SetFlagValues provides values from explicitly set command-line flags. Call before Initialize.
func (c *ConfigurationService) SetFlagValues(values map[string]string) {
	c.flagValues = values
}

// Initialize loads every configuration layer in priority order.
func (c *ConfigurationService) Initialize() error {
	if c.initialized {
		return nil
	}

	cfg := c.ctx.Config()
	cfg.LoadDefaults(DefaultConfig)
	cfg.MergeConfigValues(c.fileValues)

	if err := cfg.LoadConfigDotEnv(); err != nil {
		return fmt.Errorf("failed to load config .env: %w", err)
	}
	if err := cfg.LoadLocalDotEnv(); err != nil {
		return fmt.Errorf("failed to load local .env: %w", err)
	}
	if err := cfg.LoadEnvironmentVariables(); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg.MergeConfigValues(c.flagValues)

	if err := c.validate(); err != nil {
		return err
	}

	c.initialized = true
	return nil
}

func (c *ConfigurationService) validate() error {
	if _, err := ParseFailurePolicy(c.value(KeyResolverFailurePolicy)); err != nil {
		return err
	}
	if _, err := cast.ToDurationE(c.value(KeyHTTPTimeout)); err != nil {
		return fmt.Errorf("invalid %s: %w", KeyHTTPTimeout, err)
	}
	if _, err := cast.ToIntE(c.value(KeyResolverConcurrency)); err != nil {
		return fmt.Errorf("invalid %s: %w", KeyResolverConcurrency, err)
	}
	if _, err := cast.ToFloat64E(c.value(KeyResolverQPS)); err != nil {
		return fmt.Errorf("invalid %s: %w", KeyResolverQPS, err)
	}
	if _, err := cast.ToIntE(c.value(KeyResolverCacheSize)); err != nil {
		return fmt.Errorf("invalid %s: %w", KeyResolverCacheSize, err)
	}
	if _, err := cast.ToDurationE(c.value(KeyResolverCacheTTL)); err != nil {
		return fmt.Errorf("invalid %s: %w", KeyResolverCacheTTL, err)
	}
	if _, err := cast.ToBoolE(c.value(KeyPartialFailureNotice)); err != nil {
		return fmt.Errorf("invalid %s: %w", KeyPartialFailureNotice, err)
	}
	return nil
}

func (c *ConfigurationService) value(key string) string {
	value, _ := c.ctx.Config().GetConfigValue(key)
	return strings.TrimSpace(value)
}

// GetConfigValue returns a raw configuration value; missing keys yield "".
func (c *ConfigurationService) GetConfigValue(key string) (string, error) {
	if !c.initialized {
		return "", fmt.Errorf("configuration service not initialized")
	}
	return c.value(key), nil
}

// SetConfigValue sets a configuration value at runtime.
func (c *ConfigurationService) SetConfigValue(key, value string) error {
	if !c.initialized {
		return fmt.Errorf("configuration service not initialized")
	}
	c.ctx.Config().SetConfigValue(key, value)
	return nil
}

// GetAPIKey returns the credential stored under key, or an error naming the
// variable to set.
func (c *ConfigurationService) GetAPIKey(key string) (string, error) {
	if !c.initialized {
		return "", fmt.Errorf("configuration service not initialized")
	}
	if value := c.value(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("API key not configured (expected %s)", key)
}

// PlannerBackend returns the planner backend name (http, openai, anthropic, gemini).
func (c *ConfigurationService) PlannerBackend() string {
	return strings.ToLower(c.value(KeyPlannerBackend))
}

func (c *ConfigurationService) PlannerURL() string   { return c.value(KeyPlannerURL) }
func (c *ConfigurationService) PlannerModel() string { return c.value(KeyPlannerModel) }

func (c *ConfigurationService) DirectionsURL() string    { return c.value(KeyDirectionsURL) }
func (c *ConfigurationService) TranscriptionURL() string { return c.value(KeyTranscriptionURL) }

// HTTPTimeout returns the per-request timeout for provider clients.
func (c *ConfigurationService) HTTPTimeout() time.Duration {
	return cast.ToDuration(c.value(KeyHTTPTimeout))
}

// ResolverConcurrency returns the bound on concurrent directions requests, at least 1.
func (c *ConfigurationService) ResolverConcurrency() int {
	n := cast.ToInt(c.value(KeyResolverConcurrency))
	if n < 1 {
		return 1
	}
	return n
}

// ResolverQPS returns the directions request rate; zero or less disables limiting.
func (c *ConfigurationService) ResolverQPS() float64 {
	return cast.ToFloat64(c.value(KeyResolverQPS))
}

// ResolverCache returns the route cache capacity and entry lifetime. A
// capacity of zero disables caching.
func (c *ConfigurationService) ResolverCache() (int, time.Duration) {
	return cast.ToInt(c.value(KeyResolverCacheSize)), cast.ToDuration(c.value(KeyResolverCacheTTL))
}

// FailurePolicy returns the configured leg failure policy.
func (c *ConfigurationService) FailurePolicy() FailurePolicy {
	policy, err := ParseFailurePolicy(c.value(KeyResolverFailurePolicy))
	if err != nil {
		return DropFailedLegs
	}
	return policy
}

// PartialFailureNotice reports whether a notice turn follows itineraries with dropped legs.
func (c *ConfigurationService) PartialFailureNotice() bool {
	return cast.ToBool(c.value(KeyPartialFailureNotice))
}

// TripPreference returns the default preference index for AI routes.
func (c *ConfigurationService) TripPreference() int {
	return cast.ToInt(c.value(KeyTripPreference))
}

func (c *ConfigurationService) Theme() string { return c.value(KeyTheme) }

// StorageOptions returns the storage backend selection. Paths default to the
// user config directory.
func (c *ConfigurationService) StorageOptions() (storage.Options, error) {
	opts := storage.Options{
		Backend:  strings.ToLower(c.value(KeyStoreBackend)),
		Path:     c.value(KeyStorePath),
		RedisURL: c.value(KeyStoreRedisURL),
	}
	if opts.Path != "" || opts.Backend == storage.BackendRedis || opts.Backend == storage.BackendMemory {
		return opts, nil
	}

	configDir, err := c.ctx.Config().GetUserConfigDir()
	if err != nil {
		return opts, err
	}
	if opts.Backend == storage.BackendSQLite {
		opts.Path = filepath.Join(configDir, "wayfarer.db")
	} else {
		opts.Path = filepath.Join(configDir, "sessions")
	}
	return opts, nil
}

// AllValues returns every configuration value with credentials masked, sorted by key.
func (c *ConfigurationService) AllValues() []ConfigEntry {
	values := c.ctx.Config().GetConfigMap()
	entries := make([]ConfigEntry, 0, len(values))
	for key, value := range values {
		if strings.HasSuffix(key, "_API_KEY") {
			value = maskSecret(value)
		}
		entries = append(entries, ConfigEntry{Key: key, Value: value})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// ConfigEntry is one key/value pair for display.
type ConfigEntry struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

func maskSecret(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}
