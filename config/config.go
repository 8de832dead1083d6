// Package config loads the settings shared by the server and client binaries.
package config

import (
	"strings"
	"time"
)

// Provider names accepted in backend.provider.
const (
	ProviderFake   = "fake"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// Recorder kinds accepted in recorder.kind.
const (
	RecorderNone     = "none"
	RecorderPostgres = "postgres"
	RecorderMongo    = "mongo"
)

// Config is the root configuration document.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Client    ClientConfig    `yaml:"client"`
	Backend   BackendConfig   `yaml:"backend"`
	Cache     CacheConfig     `yaml:"cache"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the gRPC listener.
type ServerConfig struct {
	Addr        string        `yaml:"addr"`
	StopTimeout time.Duration `yaml:"stop_timeout"`
}

// ClientConfig controls the remote client stub.
type ClientConfig struct {
	Target      string        `yaml:"target"`
	TypePrefix  string        `yaml:"type_prefix"`
	TypeTimeout time.Duration `yaml:"type_timeout"`
}

// BackendConfig selects and parameterizes the served model.
type BackendConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	Temperature float64  `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	Candidates  int      `yaml:"candidates"`
	Serialize   bool     `yaml:"serialize"`
	Responses   []string `yaml:"responses"`
}

// CacheConfig enables the Redis generation cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// RecorderConfig selects where successful exchanges are stored.
type RecorderConfig struct {
	Kind       string `yaml:"kind"`
	DSN        string `yaml:"dsn"`
	Table      string `yaml:"table"`
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Environment string `yaml:"environment"`
}

// MetricsConfig controls the Prometheus endpoint and token counting.
// An empty Addr disables the endpoint.
type MetricsConfig struct {
	Addr        string `yaml:"addr"`
	CountTokens bool   `yaml:"count_tokens"`
	TokenModel  string `yaml:"token_model"`
}

// LogConfig mirrors the REMOTE_LLM_LOG_* variables read by pkg/logging.
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":50051",
			StopTimeout: 10 * time.Second,
		},
		Client: ClientConfig{
			Target:      "localhost:50051",
			TypePrefix:  "remote:",
			TypeTimeout: 30 * time.Second,
		},
		Backend: BackendConfig{
			Provider:    ProviderFake,
			Temperature: 0.7,
			Candidates:  1,
			Responses:   []string{"Hello from the fake backend"},
		},
		Cache: CacheConfig{
			Addr:   "localhost:6379",
			Prefix: "remote-llm:",
			TTL:    time.Hour,
		},
		Recorder: RecorderConfig{
			Kind:       RecorderNone,
			Table:      "llm_exchanges",
			Database:   "remote_llm",
			Collection: "exchanges",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "remote-llm",
		},
		Metrics: MetricsConfig{
			TokenModel: "gpt-4o",
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
	}
}

// Validate checks the settings that the selected components depend on.
func (c *Config) Validate() error {
	v := NewValidator()

	v.ValidateListenAddr("server.addr", c.Server.Addr)
	v.RequirePositiveDuration("server.stop_timeout", c.Server.StopTimeout)
	v.RequireNonEmpty("client.target", c.Client.Target)
	v.RequirePositiveDuration("client.type_timeout", c.Client.TypeTimeout)

	provider := strings.ToLower(c.Backend.Provider)
	v.ValidateOneOf("backend.provider", provider, ProviderFake, ProviderOpenAI, ProviderClaude, ProviderGemini)
	v.RequirePositive("backend.candidates", c.Backend.Candidates)
	v.ValidateOneOf("recorder.kind", c.Recorder.Kind, RecorderNone, RecorderPostgres, RecorderMongo)
	v.ValidateOneOf("log.format", strings.ToLower(c.Log.Format), "json", "text")
	if c.Cache.Enabled {
		v.RequirePositiveDuration("cache.ttl", c.Cache.TTL)
	}
	if c.Metrics.Addr != "" {
		v.ValidateListenAddr("metrics.addr", c.Metrics.Addr)
	}
	if c.Metrics.CountTokens {
		v.RequireNonEmpty("metrics.token_model", c.Metrics.TokenModel)
	}
	if err := v.Error(); err != nil {
		return err
	}

	if provider != ProviderFake {
		if err := ValidateLLMConfig(c.Backend.APIKey, c.Backend.Model, c.Backend.Temperature, c.Backend.MaxTokens); err != nil {
			return err
		}
	}
	if c.Cache.Enabled {
		if err := ValidateRedisConfig(c.Cache.Addr, c.Cache.DB, c.Cache.Prefix); err != nil {
			return err
		}
	}
	switch c.Recorder.Kind {
	case RecorderPostgres:
		return ValidatePostgresRecorder(c.Recorder.DSN, c.Recorder.Table)
	case RecorderMongo:
		return ValidateMongoDBConfig(c.Recorder.URI, c.Recorder.Database, c.Recorder.Collection)
	}
	return nil
}
