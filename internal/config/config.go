// Package config loads runtime configuration from the environment,
// optionally overlaid on a YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifies an embedding or LLM backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level"`

	// Embeddings
	EmbedProvider  Provider `yaml:"embed_provider"`
	EmbedModel     string   `yaml:"embed_model"`
	EmbedDimension int      `yaml:"embed_dimension"`

	// Insight extraction model
	LLMProvider Provider `yaml:"llm_provider"`
	LLMModel    string   `yaml:"llm_model"`

	// Provider credentials and endpoints
	OllamaHost      string `yaml:"ollama_host"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	// Memory behavior
	DefaultSTMTTL        time.Duration `yaml:"default_stm_ttl"`
	ConsolidateThreshold int           `yaml:"consolidate_threshold"`
	ForceThreshold       int           `yaml:"force_threshold"`
	LTMThreshold         float64       `yaml:"ltm_threshold"`
	SweepBatchSize       int           `yaml:"sweep_batch_size"`

	// Importance decay
	DecayMaxAge         time.Duration `yaml:"decay_max_age"`
	DecayMinAccessCount int           `yaml:"decay_min_access_count"`
	DecayFactor         float64       `yaml:"decay_factor"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		SurrealDBURL:       "ws://localhost:8000/rpc",
		SurrealDBNamespace: "memora",
		SurrealDBDatabase:  "memory",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",
		SurrealDBAuthLevel: "root",

		EmbedProvider:  ProviderOllama,
		EmbedModel:     "all-minilm:l6-v2",
		EmbedDimension: 384,

		LLMProvider: ProviderOllama,
		LLMModel:    "llama3.2",

		OllamaHost: "http://localhost:11434",

		DefaultSTMTTL:        24 * time.Hour,
		ConsolidateThreshold: 10,
		ForceThreshold:       20,
		LTMThreshold:         0.3,
		SweepBatchSize:       500,

		DecayMaxAge:         30 * 24 * time.Hour,
		DecayMinAccessCount: 3,
		DecayFactor:         0.9,

		LogFile:  "/tmp/memora.log",
		LogLevel: slog.LevelInfo,
	}
}

// Load reads configuration from environment variables over the defaults.
// If MEMORA_CONFIG_FILE points at a YAML file, its values sit between the
// defaults and the environment, so env always wins.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("MEMORA_CONFIG_FILE"); path != "" {
		loaded, err := LoadFile(path, cfg)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}

	cfg.SurrealDBURL = getEnv("SURREALDB_URL", cfg.SurrealDBURL)
	cfg.SurrealDBNamespace = getEnv("SURREALDB_NAMESPACE", cfg.SurrealDBNamespace)
	cfg.SurrealDBDatabase = getEnv("SURREALDB_DATABASE", cfg.SurrealDBDatabase)
	cfg.SurrealDBUser = getEnv("SURREALDB_USER", cfg.SurrealDBUser)
	cfg.SurrealDBPass = getEnv("SURREALDB_PASS", cfg.SurrealDBPass)
	cfg.SurrealDBAuthLevel = getEnv("SURREALDB_AUTH_LEVEL", cfg.SurrealDBAuthLevel)

	cfg.EmbedProvider = Provider(getEnv("MEMORA_EMBED_PROVIDER", string(cfg.EmbedProvider)))
	cfg.EmbedModel = getEnv("MEMORA_EMBED_MODEL", cfg.EmbedModel)
	cfg.EmbedDimension = getEnvInt("MEMORA_EMBED_DIMENSION", cfg.EmbedDimension)

	cfg.LLMProvider = Provider(getEnv("MEMORA_LLM_PROVIDER", string(cfg.LLMProvider)))
	cfg.LLMModel = getEnv("MEMORA_LLM_MODEL", cfg.LLMModel)

	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)

	cfg.DefaultSTMTTL = getEnvDuration("MEMORA_STM_TTL", cfg.DefaultSTMTTL)
	cfg.ConsolidateThreshold = getEnvInt("MEMORA_CONSOLIDATE_THRESHOLD", cfg.ConsolidateThreshold)
	cfg.ForceThreshold = getEnvInt("MEMORA_FORCE_THRESHOLD", cfg.ForceThreshold)
	cfg.LTMThreshold = getEnvFloat("MEMORA_LTM_THRESHOLD", cfg.LTMThreshold)
	cfg.SweepBatchSize = getEnvInt("MEMORA_SWEEP_BATCH_SIZE", cfg.SweepBatchSize)

	cfg.DecayMaxAge = getEnvDuration("MEMORA_DECAY_MAX_AGE", cfg.DecayMaxAge)
	cfg.DecayMinAccessCount = getEnvInt("MEMORA_DECAY_MIN_ACCESS", cfg.DecayMinAccessCount)
	cfg.DecayFactor = getEnvFloat("MEMORA_DECAY_FACTOR", cfg.DecayFactor)

	cfg.LogFile = getEnv("MEMORA_LOG_FILE", cfg.LogFile)
	cfg.LogLevel = parseLogLevel(getEnv("MEMORA_LOG_LEVEL", levelString(cfg.LogLevel)))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays YAML values from path onto base.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	// Log level carries its own string form in YAML.
	var raw struct {
		LogLevel string `yaml:"log_level"`
	}
	if err := yaml.Unmarshal(data, &raw); err == nil && raw.LogLevel != "" {
		cfg.LogLevel = parseLogLevel(raw.LogLevel)
	}

	return cfg, nil
}

// Validate checks values the rest of the system depends on.
func (c Config) Validate() error {
	if c.EmbedDimension <= 0 {
		return fmt.Errorf("embed dimension must be positive, got %d", c.EmbedDimension)
	}
	if c.DefaultSTMTTL <= 0 {
		return fmt.Errorf("STM TTL must be positive, got %s", c.DefaultSTMTTL)
	}
	if c.LTMThreshold < 0 || c.LTMThreshold > 1 {
		return fmt.Errorf("LTM threshold must be in [0, 1], got %g", c.LTMThreshold)
	}
	if c.DecayFactor <= 0 || c.DecayFactor >= 1 {
		return fmt.Errorf("decay factor must be in (0, 1), got %g", c.DecayFactor)
	}
	if c.SweepBatchSize <= 0 {
		return fmt.Errorf("sweep batch size must be positive, got %d", c.SweepBatchSize)
	}
	switch c.EmbedProvider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.EmbedProvider)
	}
	switch c.LLMProvider {
	case ProviderOllama, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLMProvider)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func levelString(l slog.Level) string {
	switch l {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}
