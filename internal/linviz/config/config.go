package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	App       AppConfig       `json:"app" yaml:"app"`
	API       APIConfig       `json:"api" yaml:"api"`
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Memory    MemoryConfig    `json:"memory" yaml:"memory"`
	Services  ServicesConfig  `json:"services" yaml:"services"`
	Probe     ProbeConfig     `json:"probe" yaml:"probe"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
}

// AppConfig represents application configuration
type AppConfig struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Debug       bool   `json:"debug"`
	LogLevel    string `json:"log_level"`
	LogFormat   string `json:"log_format"`
	LogFile     string `json:"log_file"`
	Environment string `json:"environment"`
}

// APIConfig represents API configuration
type APIConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	CORSOrigins    []string `json:"cors_origins"`
	MaxRequestSize int64    `json:"max_request_size"`
	Timeout        int      `json:"timeout"`
}

// Addr returns host:port for the HTTP listener
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LLMConfig represents LLM configuration. Provider "mock" needs no key.
type LLMConfig struct {
	Provider    string  `json:"provider"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxRetries  int     `json:"max_retries"`
}

// MemoryConfig represents session storage configuration
type MemoryConfig struct {
	StoreType     string `json:"store_type"`
	RedisHost     string `json:"redis_host"`
	RedisPort     int    `json:"redis_port"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	RedisURL      string `json:"redis_url"`
	SessionTTL    int    `json:"session_ttl"` // seconds
}

// SessionTTLDuration returns the session TTL as a duration
func (c MemoryConfig) SessionTTLDuration() time.Duration {
	return time.Duration(c.SessionTTL) * time.Second
}

// ServicesConfig represents the external eigen and formalization services.
// An empty URL means the in-process implementation is used.
type ServicesConfig struct {
	EigenURL     string `json:"eigen_url"`
	FormalizeURL string `json:"formalize_url"`
	AuthToken    string `json:"-"`       // Bearer token for both services
	Timeout      int    `json:"timeout"` // seconds
}

// ProbeConfig holds the eigen probe thresholds
type ProbeConfig struct {
	ParallelEpsilon float64 `json:"parallel_epsilon"`
	ZeroEpsilon     float64 `json:"zero_epsilon"`
}

// RateLimitConfig represents request limiting configuration
type RateLimitConfig struct {
	Enabled   bool   `json:"enabled"`
	PerMinute int    `json:"per_minute"`
	Backend   string `json:"backend"` // memory or redis
}

// Load loads configuration from $CONFIG_DIR/app_config.yaml with environment overrides
func Load() *Config {
	configDir := getEnv("CONFIG_DIR", "config")
	return LoadFrom(loadYAMLConfig(configDir))
}

// LoadFrom builds the configuration from an already parsed YAML tree
func LoadFrom(yamlConfig map[string]interface{}) *Config {
	config := &Config{}

	config.App = AppConfig{
		Name:        getEnvWithYAML("APP_NAME", yamlConfig, "app.name", "LinViz Backend"),
		Version:     getEnvWithYAML("APP_VERSION", yamlConfig, "app.version", "1.0.0"),
		Debug:       getEnvBoolWithYAML("DEBUG", yamlConfig, "app.debug", false),
		LogLevel:    getEnvWithYAML("LOG_LEVEL", yamlConfig, "app.log_level", "INFO"),
		LogFormat:   getEnvWithYAML("LOG_FORMAT", yamlConfig, "app.log_format", "text"),
		LogFile:     getEnvWithYAML("LOG_FILE", yamlConfig, "app.log_file", ""),
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	config.API = APIConfig{
		Host:           getEnvWithYAML("API_HOST", yamlConfig, "api.host", "0.0.0.0"),
		Port:           getEnvIntWithYAML("API_PORT", yamlConfig, "api.port", 5000),
		CORSOrigins:    getEnvSliceWithYAML("API_CORS_ORIGINS", yamlConfig, "api.cors_origins", []string{"*"}),
		MaxRequestSize: getEnvInt64WithYAML("MAX_REQUEST_SIZE", yamlConfig, "api.max_request_size", 1048576),
		Timeout:        getEnvIntWithYAML("API_TIMEOUT", yamlConfig, "api.timeout", 60),
	}

	config.LLM = LLMConfig{
		Provider:    getEnvWithYAML("LLM_PROVIDER", yamlConfig, "llm.provider", "gemini"),
		APIKey:      getEnvWithYAML("GEMINI_API_KEY", yamlConfig, "llm.api_key", ""),
		Model:       getEnvWithYAML("GEMINI_MODEL", yamlConfig, "llm.model", "gemini-2.5-flash"),
		Temperature: getEnvFloat64WithYAML("LLM_TEMPERATURE", yamlConfig, "llm.temperature", 0.2),
		MaxRetries:  getEnvIntWithYAML("LLM_MAX_RETRIES", yamlConfig, "llm.max_retries", 3),
	}

	config.Memory = MemoryConfig{
		StoreType:     getEnvWithYAML("MEMORY_STORE_TYPE", yamlConfig, "memory.store_type", "memory"),
		RedisHost:     getEnvWithYAML("REDIS_HOST", yamlConfig, "memory.redis_host", "localhost"),
		RedisPort:     getEnvIntWithYAML("REDIS_PORT", yamlConfig, "memory.redis_port", 6379),
		RedisPassword: getEnvWithYAML("REDIS_PASSWORD", yamlConfig, "memory.redis_password", ""),
		RedisDB:       getEnvIntWithYAML("REDIS_DB", yamlConfig, "memory.redis_db", 0),
		RedisURL:      getEnvWithYAML("REDIS_URL", yamlConfig, "memory.redis_url", ""),
		SessionTTL:    getEnvIntWithYAML("SESSION_TTL", yamlConfig, "memory.session_ttl", 86400),
	}

	config.Services = ServicesConfig{
		EigenURL:     getEnvWithYAML("EIGEN_SERVICE_URL", yamlConfig, "services.eigen_url", ""),
		FormalizeURL: getEnvWithYAML("FORMALIZE_SERVICE_URL", yamlConfig, "services.formalize_url", ""),
		AuthToken:    getEnvWithYAML("SERVICES_AUTH_TOKEN", yamlConfig, "services.auth_token", ""),
		Timeout:      getEnvIntWithYAML("SERVICES_TIMEOUT", yamlConfig, "services.timeout", 10),
	}

	config.Probe = ProbeConfig{
		ParallelEpsilon: getEnvFloat64WithYAML("PROBE_PARALLEL_EPSILON", yamlConfig, "probe.parallel_epsilon", 0.1),
		ZeroEpsilon:     getEnvFloat64WithYAML("PROBE_ZERO_EPSILON", yamlConfig, "probe.zero_epsilon", 0.1),
	}

	config.RateLimit = RateLimitConfig{
		Enabled:   getEnvBoolWithYAML("RATE_LIMIT_ENABLED", yamlConfig, "rate_limit.enabled", true),
		PerMinute: getEnvIntWithYAML("RATE_LIMIT_PER_MINUTE", yamlConfig, "rate_limit.per_minute", 120),
		Backend:   getEnvWithYAML("RATE_LIMIT_BACKEND", yamlConfig, "rate_limit.backend", "memory"),
	}

	return config
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// loadYAMLConfig loads app_config.yaml; a missing or broken file yields an empty tree
func loadYAMLConfig(configDir string) map[string]interface{} {
	yamlConfig := make(map[string]interface{})

	appConfigPath := filepath.Join(configDir, "app_config.yaml")
	if data, err := os.ReadFile(appConfigPath); err == nil {
		var config map[string]interface{}
		if err := yaml.Unmarshal(data, &config); err == nil && config != nil {
			yamlConfig = config
		}
	}

	return yamlConfig
}

// getEnvWithYAML gets environment variable with YAML fallback
func getEnvWithYAML(envKey string, yamlConfig map[string]interface{}, yamlPath, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}

	if yamlValue := getYAMLValue(yamlConfig, yamlPath); yamlValue != "" {
		return yamlValue
	}

	return defaultValue
}

// getEnvIntWithYAML gets integer environment variable with YAML fallback
func getEnvIntWithYAML(envKey string, yamlConfig map[string]interface{}, yamlPath string, defaultValue int) int {
	if value := os.Getenv(envKey); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}

	if yamlValue := getYAMLValue(yamlConfig, yamlPath); yamlValue != "" {
		if intValue, err := strconv.Atoi(yamlValue); err == nil {
			return intValue
		}
	}

	return defaultValue
}

// getEnvInt64WithYAML gets int64 environment variable with YAML fallback
func getEnvInt64WithYAML(envKey string, yamlConfig map[string]interface{}, yamlPath string, defaultValue int64) int64 {
	if value := os.Getenv(envKey); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}

	if yamlValue := getYAMLValue(yamlConfig, yamlPath); yamlValue != "" {
		if intValue, err := strconv.ParseInt(yamlValue, 10, 64); err == nil {
			return intValue
		}
	}

	return defaultValue
}

// getEnvFloat64WithYAML gets float64 environment variable with YAML fallback
func getEnvFloat64WithYAML(envKey string, yamlConfig map[string]interface{}, yamlPath string, defaultValue float64) float64 {
	if value := os.Getenv(envKey); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}

	if yamlValue := getYAMLValue(yamlConfig, yamlPath); yamlValue != "" {
		if floatValue, err := strconv.ParseFloat(yamlValue, 64); err == nil {
			return floatValue
		}
	}

	return defaultValue
}

// getEnvBoolWithYAML gets boolean environment variable with YAML fallback
func getEnvBoolWithYAML(envKey string, yamlConfig map[string]interface{}, yamlPath string, defaultValue bool) bool {
	if value := os.Getenv(envKey); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}

	if yamlValue := getYAMLValue(yamlConfig, yamlPath); yamlValue != "" {
		if boolValue, err := strconv.ParseBool(yamlValue); err == nil {
			return boolValue
		}
	}

	return defaultValue
}

// getEnvSliceWithYAML gets string slice environment variable with YAML fallback
func getEnvSliceWithYAML(envKey string, yamlConfig map[string]interface{}, yamlPath string, defaultValue []string) []string {
	if value := os.Getenv(envKey); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, len(parts))
		for i, part := range parts {
			result[i] = strings.TrimSpace(part)
		}
		return result
	}

	if yamlValue := getYAMLSlice(yamlConfig, yamlPath); yamlValue != nil {
		return yamlValue
	}

	return defaultValue
}

// lookupYAML walks a dot notation path
func lookupYAML(config map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	current := config

	for i, part := range parts {
		value, ok := current[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return value, true
		}
		next, ok := value.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// getYAMLValue gets a scalar from YAML config as string; numbers and bools are formatted
func getYAMLValue(config map[string]interface{}, path string) string {
	value, ok := lookupYAML(config, path)
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case int, int64, float64, bool:
		return fmt.Sprint(v)
	}
	return ""
}

// getYAMLSlice gets string slice from YAML config using dot notation path
func getYAMLSlice(config map[string]interface{}, path string) []string {
	value, ok := lookupYAML(config, path)
	if !ok {
		return nil
	}
	slice, ok := value.([]interface{})
	if !ok {
		return nil
	}
	result := make([]string, 0, len(slice))
	for _, item := range slice {
		if str, ok := item.(string); ok {
			result = append(result, str)
		}
	}
	return result
}
