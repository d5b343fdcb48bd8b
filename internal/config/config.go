// Package config provides configuration loading for mealpland.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables. Every field carries a default so the daemon starts with no
// config file at all (external services permitting).
package config

import (
	"errors"
	"fmt"
	"time"
)

// Validation errors.
var (
	ErrInvalidPort     = errors.New("invalid port")
	ErrInvalidProvider = errors.New("invalid vectorstore provider")
	ErrInvalidMeals    = errors.New("minimum meal count must be positive")
)

// Config holds the complete mealpland configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	LLM         LLMConfig         `koanf:"llm"`
	Embedding   EmbeddingConfig   `koanf:"embedding"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	NATS        NATSConfig        `koanf:"nats"`
	Nutrition   NutritionConfig   `koanf:"nutrition"`
	Planner     PlannerConfig     `koanf:"planner"`
	Detection   DetectionConfig   `koanf:"detection"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, console
}

// LLMConfig holds the chat model client configuration.
// The client speaks the OpenAI-compatible API, so BaseURL may point at
// OpenAI itself or any compatible gateway.
type LLMConfig struct {
	BaseURL        string   `koanf:"base_url"`
	Model          string   `koanf:"model"`
	APIKey         Secret   `koanf:"api_key"`
	Timeout        Duration `koanf:"timeout"`
	MaxRetries     int      `koanf:"max_retries"`
	RequestsPerMin float64  `koanf:"requests_per_min"`
}

// EmbeddingConfig holds the embedding service configuration.
type EmbeddingConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// VectorStoreConfig selects and configures the profile memory backend.
type VectorStoreConfig struct {
	Provider string        `koanf:"provider"` // chromem (default), qdrant
	Chromem  ChromemConfig `koanf:"chromem"`
	Qdrant   QdrantConfig  `koanf:"qdrant"`
}

// ChromemConfig configures the embedded chromem-go backend.
type ChromemConfig struct {
	Path       string `koanf:"path"`
	Compress   bool   `koanf:"compress"`
	Collection string `koanf:"collection"`
	VectorSize int    `koanf:"vector_size"`
}

// QdrantConfig configures the Qdrant gRPC backend.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Collection string `koanf:"collection"`
	VectorSize uint64 `koanf:"vector_size"`
	UseTLS     bool   `koanf:"use_tls"`
}

// NATSConfig holds the plan store connection configuration.
type NATSConfig struct {
	URL    string `koanf:"url"`
	Bucket string `koanf:"bucket"`
}

// NutritionConfig holds nutrition lookup API credentials.
type NutritionConfig struct {
	NutritionixAppID  Secret   `koanf:"nutritionix_app_id"`
	NutritionixAPIKey Secret   `koanf:"nutritionix_api_key"`
	USDAAPIKey        Secret   `koanf:"usda_api_key"`
	Timeout           Duration `koanf:"timeout"`
}

// PlannerConfig holds meal planning defaults.
type PlannerConfig struct {
	MinMeals int `koanf:"min_meals"`
}

// DetectionConfig holds the intent detection rule table.
//
// ProfileTriggers is the enumerable list of lowercase terms whose presence
// in user input selects the profiling pipeline. The default list is
// intentionally heuristic and not exhaustive; it is configuration so
// deployments can extend it without a code change.
type DetectionConfig struct {
	ProfileTriggers []string `koanf:"profile_triggers"`
}

// TelemetryConfig holds OTLP export settings. Disabled by default; the
// tracer and meter calls fall back to the global no-op providers.
type TelemetryConfig struct {
	Enabled        bool     `koanf:"enabled"`
	Endpoint       string   `koanf:"endpoint"`
	Insecure       bool     `koanf:"insecure"`
	SamplingRate   float64  `koanf:"sampling_rate"`
	ExportInterval Duration `koanf:"export_interval"`
}

// defaultProfileTriggers is the built-in trigger table for profiling intent.
var defaultProfileTriggers = []string{
	"i'm", "i am", "years old", "kg", "cm", "tall", "weight",
	"diabetic", "diabetes", "vegetarian", "vegan", "allergy", "allergic",
	"prefer", "don't like", "hate", "love",
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = Duration(60 * time.Second)
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = 3
	}
	if c.LLM.RequestsPerMin == 0 {
		c.LLM.RequestsPerMin = 50
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.VectorStore.Provider == "" {
		c.VectorStore.Provider = "chromem"
	}
	if c.VectorStore.Chromem.Path == "" {
		c.VectorStore.Chromem.Path = "~/.local/share/mealpland/memory"
	}
	if c.VectorStore.Chromem.Collection == "" {
		c.VectorStore.Chromem.Collection = "user_profiles"
	}
	if c.VectorStore.Chromem.VectorSize == 0 {
		c.VectorStore.Chromem.VectorSize = 1536
	}
	if c.VectorStore.Qdrant.Host == "" {
		c.VectorStore.Qdrant.Host = "localhost"
	}
	if c.VectorStore.Qdrant.Port == 0 {
		c.VectorStore.Qdrant.Port = 6334
	}
	if c.VectorStore.Qdrant.Collection == "" {
		c.VectorStore.Qdrant.Collection = "user_profiles"
	}
	if c.VectorStore.Qdrant.VectorSize == 0 {
		c.VectorStore.Qdrant.VectorSize = 1536
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://localhost:4222"
	}
	if c.NATS.Bucket == "" {
		c.NATS.Bucket = "meal_plans"
	}
	if c.Nutrition.Timeout == 0 {
		c.Nutrition.Timeout = Duration(15 * time.Second)
	}
	if c.Planner.MinMeals == 0 {
		c.Planner.MinMeals = 5
	}
	if len(c.Detection.ProfileTriggers) == 0 {
		c.Detection.ProfileTriggers = append([]string(nil), defaultProfileTriggers...)
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4317"
	}
	if c.Telemetry.SamplingRate == 0 {
		c.Telemetry.SamplingRate = 1.0
	}
	if c.Telemetry.ExportInterval == 0 {
		c.Telemetry.ExportInterval = Duration(30 * time.Second)
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}
	switch c.VectorStore.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("%w: %q (supported: chromem, qdrant)", ErrInvalidProvider, c.VectorStore.Provider)
	}
	if c.Planner.MinMeals < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMeals, c.Planner.MinMeals)
	}
	return nil
}
