package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ModelConfig represents the configuration for one model role
type ModelConfig struct {
	ModelName   string
	MaxTokens   int32
	Temperature float32
}

// Manager provides configuration management functionality
type Manager interface {
	GetString(key string) (string, error)
	GetStringWithDefault(key, defaultValue string) string
	RequireString(key string) string
	GetInt(key string) (int, error)
	GetIntWithDefault(key string, defaultValue int) int
	GetBoolWithDefault(key string, defaultValue bool) bool
	GetFloatWithDefault(key string, defaultValue float64) float64
	GetDurationWithDefault(key string, defaultValue time.Duration) time.Duration
	GetPlannerModel() ModelConfig
	GetSummarizerModel() ModelConfig
}

// DefaultManager implements the Manager interface on top of the process
// environment, optionally seeded from a .env file.
type DefaultManager struct {
}

// NewConfigManager creates a new default config manager
func NewConfigManager() Manager {
	return &DefaultManager{}
}

// LoadDotEnv loads a .env file from the given directory into the process
// environment. Existing variables win. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return godotenv.Load(path)
}

// GetString gets a configuration value by key, returns error if not found
func (m *DefaultManager) GetString(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("configuration key %s not found", key)
	}
	return value, nil
}

// GetStringWithDefault gets a configuration value by key, returns default if not found
func (m *DefaultManager) GetStringWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// RequireString gets a configuration value by key, panics if not found
func (m *DefaultManager) RequireString(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("required configuration key %s not found", key))
	}
	return value
}

// GetInt gets an integer configuration value by key, returns error if not found or invalid
func (m *DefaultManager) GetInt(key string) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, fmt.Errorf("configuration key %s not found", key)
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("configuration key %s has invalid integer value: %s", key, value)
	}
	return intValue, nil
}

// GetIntWithDefault gets an integer configuration value by key, returns default if not found or invalid
func (m *DefaultManager) GetIntWithDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// GetBoolWithDefault gets a boolean configuration value by key, returns default if not found or invalid
func (m *DefaultManager) GetBoolWithDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

// GetFloatWithDefault gets a float configuration value by key, returns default if not found or invalid
func (m *DefaultManager) GetFloatWithDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

// GetDurationWithDefault gets a duration configuration value by key, returns default if not found or invalid
func (m *DefaultManager) GetDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

// GetPlannerModel returns the model configuration for budget planning calls
func (m *DefaultManager) GetPlannerModel() ModelConfig {
	return ModelConfig{
		ModelName:   m.GetStringWithDefault("PROMPTFIT_PLANNER_MODEL", "o3-mini"),
		MaxTokens:   int32(m.GetIntWithDefault("PROMPTFIT_PLANNER_MAX_TOKENS", 8192)),
		Temperature: float32(m.GetFloatWithDefault("PROMPTFIT_PLANNER_TEMPERATURE", 0)),
	}
}

// GetSummarizerModel returns the model configuration for file rendering calls
func (m *DefaultManager) GetSummarizerModel() ModelConfig {
	return ModelConfig{
		ModelName:   m.GetStringWithDefault("PROMPTFIT_SUMMARIZER_MODEL", "gpt-4.1-nano"),
		MaxTokens:   int32(m.GetIntWithDefault("PROMPTFIT_SUMMARIZER_MAX_TOKENS", 8192)),
		Temperature: float32(m.GetFloatWithDefault("PROMPTFIT_SUMMARIZER_TEMPERATURE", 0.2)),
	}
}
