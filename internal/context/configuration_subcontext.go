package context

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// EnvPrefix marks process environment variables that belong to Wayfarer.
const EnvPrefix = "WAYFARER_"

// CredentialKeys are unprefixed environment variables picked up alongside the
// WAYFARER_ ones, named the way each provider documents them.
var CredentialKeys = []string{
	"GOOGLE_MAPS_API_KEY",
	"DEEPGRAM_API_KEY",
	"OPENAI_API_KEY",
	"ANTHROPIC_API_KEY",
	"GOOGLE_API_KEY",
}

// ConfigurationSubcontext manages the layered configuration map and the
// environment/file access behind it.
type ConfigurationSubcontext interface {
	GetConfigMap() map[string]string
	GetConfigValue(key string) (string, bool)
	SetConfigValue(key, value string)
	MergeConfigValues(values map[string]string)

	LoadDefaults(defaults map[string]string)
	LoadConfigDotEnv() error
	LoadLocalDotEnv() error
	LoadEnvironmentVariables() error

	GetEnv(key string) string
	SetTestEnvOverride(key, value string)
	ClearAllTestEnvOverrides()
	SetTestWorkingDir(path string)
	SetTestConfigDir(path string)

	SetParentContext(parent TestModeProvider)

	GetUserConfigDir() (string, error)
	GetWorkingDir() (string, error)
	FileExists(path string) bool
}

// TestModeProvider lets the subcontext ask its parent for test mode.
type TestModeProvider interface {
	IsTestMode() bool
}

type configurationSubcontext struct {
	configMap   map[string]string
	configMutex sync.RWMutex

	parentContext    TestModeProvider
	testEnvOverrides map[string]string
	testWorkingDir   string
	testConfigDir    string
	testMutex        sync.RWMutex
}

// NewConfigurationSubcontext creates a new ConfigurationSubcontext instance.
func NewConfigurationSubcontext() ConfigurationSubcontext {
	return &configurationSubcontext{
		configMap:        make(map[string]string),
		testEnvOverrides: make(map[string]string),
	}
}

func (c *configurationSubcontext) isTestMode() bool {
	c.testMutex.RLock()
	parent := c.parentContext
	c.testMutex.RUnlock()
	return parent != nil && parent.IsTestMode()
}

// GetConfigMap returns a copy of the configuration map.
func (c *configurationSubcontext) GetConfigMap() map[string]string {
	c.configMutex.RLock()
	defer c.configMutex.RUnlock()

	result := make(map[string]string, len(c.configMap))
	for key, value := range c.configMap {
		result[key] = value
	}
	return result
}

func (c *configurationSubcontext) GetConfigValue(key string) (string, bool) {
	c.configMutex.RLock()
	defer c.configMutex.RUnlock()

	value, exists := c.configMap[key]
	return value, exists
}

func (c *configurationSubcontext) SetConfigValue(key, value string) {
	c.configMutex.Lock()
	defer c.configMutex.Unlock()

	c.configMap[key] = value
}

// MergeConfigValues overlays values on top of the current map.
func (c *configurationSubcontext) MergeConfigValues(values map[string]string) {
	c.configMutex.Lock()
	defer c.configMutex.Unlock()

	for key, value := range values {
		c.configMap[key] = value
	}
}

// LoadDefaults seeds keys that are not yet set.
func (c *configurationSubcontext) LoadDefaults(defaults map[string]string) {
	c.configMutex.Lock()
	defer c.configMutex.Unlock()

	for key, value := range defaults {
		if _, exists := c.configMap[key]; !exists {
			c.configMap[key] = value
		}
	}
}

// LoadConfigDotEnv loads .env from the user's config directory (~/.config/wayfarer/.env).
func (c *configurationSubcontext) LoadConfigDotEnv() error {
	configDir, err := c.GetUserConfigDir()
	if err != nil {
		// Config directory access failure is not fatal
		return nil
	}
	return c.loadDotEnvFile(filepath.Join(configDir, ".env"))
}

// LoadLocalDotEnv loads .env from the current working directory.
func (c *configurationSubcontext) LoadLocalDotEnv() error {
	workDir, err := c.GetWorkingDir()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	return c.loadDotEnvFile(filepath.Join(workDir, ".env"))
}

// LoadEnvironmentVariables copies WAYFARER_ variables and provider credentials
// from the environment. In test mode only test overrides are consulted.
func (c *configurationSubcontext) LoadEnvironmentVariables() error {
	if c.isTestMode() {
		c.testMutex.RLock()
		defer c.testMutex.RUnlock()
		for key, value := range c.testEnvOverrides {
			if isConfigEnvKey(key) {
				c.SetConfigValue(key, value)
			}
		}
		return nil
	}

	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if ok && isConfigEnvKey(key) {
			c.SetConfigValue(key, value)
		}
	}
	return nil
}

func isConfigEnvKey(key string) bool {
	if strings.HasPrefix(key, EnvPrefix) {
		return true
	}
	for _, credential := range CredentialKeys {
		if key == credential {
			return true
		}
	}
	return false
}

// loadDotEnvFile parses a .env file with godotenv and stores every value.
// A missing file is not an error.
func (c *configurationSubcontext) loadDotEnvFile(envPath string) error {
	if !c.FileExists(envPath) {
		return nil
	}

	data, err := os.ReadFile(envPath)
	if err != nil {
		return fmt.Errorf("failed to read .env file %s: %w", envPath, err)
	}

	envMap, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return fmt.Errorf("failed to parse .env file %s: %w", envPath, err)
	}

	c.MergeConfigValues(envMap)
	return nil
}

// GetEnv returns an environment variable, or the test override in test mode.
func (c *configurationSubcontext) GetEnv(key string) string {
	if c.isTestMode() {
		c.testMutex.RLock()
		defer c.testMutex.RUnlock()
		return c.testEnvOverrides[key]
	}
	return os.Getenv(key)
}

// SetTestEnvOverride sets what GetEnv and LoadEnvironmentVariables see for key in test mode.
func (c *configurationSubcontext) SetTestEnvOverride(key, value string) {
	c.testMutex.Lock()
	defer c.testMutex.Unlock()
	c.testEnvOverrides[key] = value
}

func (c *configurationSubcontext) ClearAllTestEnvOverrides() {
	c.testMutex.Lock()
	defer c.testMutex.Unlock()
	c.testEnvOverrides = make(map[string]string)
}

func (c *configurationSubcontext) SetTestWorkingDir(path string) {
	c.testMutex.Lock()
	defer c.testMutex.Unlock()
	c.testWorkingDir = path
}

func (c *configurationSubcontext) SetTestConfigDir(path string) {
	c.testMutex.Lock()
	defer c.testMutex.Unlock()
	c.testConfigDir = path
}

func (c *configurationSubcontext) SetParentContext(parent TestModeProvider) {
	c.testMutex.Lock()
	defer c.testMutex.Unlock()
	c.parentContext = parent
}

// GetUserConfigDir returns $XDG_CONFIG_HOME/wayfarer or ~/.config/wayfarer.
// In test mode it returns the test override or a fixed temp path.
func (c *configurationSubcontext) GetUserConfigDir() (string, error) {
	if c.isTestMode() {
		c.testMutex.RLock()
		defer c.testMutex.RUnlock()
		if c.testConfigDir != "" {
			return c.testConfigDir, nil
		}
		return filepath.Join(os.TempDir(), "wayfarer-test-config"), nil
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "wayfarer"), nil
}

// GetWorkingDir returns the current working directory, or the test override.
func (c *configurationSubcontext) GetWorkingDir() (string, error) {
	if c.isTestMode() {
		c.testMutex.RLock()
		defer c.testMutex.RUnlock()
		if c.testWorkingDir != "" {
			return c.testWorkingDir, nil
		}
		return filepath.Join(os.TempDir(), "wayfarer-test-workdir"), nil
	}
	return os.Getwd()
}

func (c *configurationSubcontext) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
