package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	errorskg "github.com/sweetpotato0/remote-llm/errors"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "REMOTE_LLM_"
	// EnvConfigPath names the config file when Load is given no path.
	EnvConfigPath = EnvPrefix + "CONFIG"
	// DefaultPath is tried last and may be absent.
	DefaultPath = "remote-llm.yaml"
)

// Load builds the configuration from defaults, then the YAML file, then
// REMOTE_LLM_* environment variables, and validates the result.
//
// An explicit path must exist. Without one, REMOTE_LLM_CONFIG is used, and
// failing that ./remote-llm.yaml if present.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	required := path != ""
	if path == "" {
		if p, ok := lookup(EnvConfigPath); ok && p != "" {
			path, required = p, true
		} else {
			path = DefaultPath
		}
	}
	if err := readFile(cfg, path, required); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	applyProviderKey(cfg, lookup)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(cfg *Config, path string, required bool) error {
	f, err := os.Open(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: parse config %s: %v", errorskg.ErrInvalidInput, path, err)
	}
	return nil
}

// envBindings lists every overridable field by its variable suffix.
func envBindings(cfg *Config) map[string]any {
	return map[string]any{
		"SERVER_ADDR":           &cfg.Server.Addr,
		"SERVER_STOP_TIMEOUT":   &cfg.Server.StopTimeout,
		"CLIENT_TARGET":         &cfg.Client.Target,
		"CLIENT_TYPE_PREFIX":    &cfg.Client.TypePrefix,
		"CLIENT_TYPE_TIMEOUT":   &cfg.Client.TypeTimeout,
		"BACKEND_PROVIDER":      &cfg.Backend.Provider,
		"BACKEND_MODEL":         &cfg.Backend.Model,
		"BACKEND_API_KEY":       &cfg.Backend.APIKey,
		"BACKEND_BASE_URL":      &cfg.Backend.BaseURL,
		"BACKEND_TEMPERATURE":   &cfg.Backend.Temperature,
		"BACKEND_MAX_TOKENS":    &cfg.Backend.MaxTokens,
		"BACKEND_CANDIDATES":    &cfg.Backend.Candidates,
		"BACKEND_SERIALIZE":     &cfg.Backend.Serialize,
		"BACKEND_RESPONSES":     &cfg.Backend.Responses,
		"CACHE_ENABLED":         &cfg.Cache.Enabled,
		"CACHE_ADDR":            &cfg.Cache.Addr,
		"CACHE_PASSWORD":        &cfg.Cache.Password,
		"CACHE_DB":              &cfg.Cache.DB,
		"CACHE_PREFIX":          &cfg.Cache.Prefix,
		"CACHE_TTL":             &cfg.Cache.TTL,
		"RECORDER_KIND":         &cfg.Recorder.Kind,
		"RECORDER_DSN":          &cfg.Recorder.DSN,
		"RECORDER_TABLE":        &cfg.Recorder.Table,
		"RECORDER_URI":          &cfg.Recorder.URI,
		"RECORDER_DATABASE":     &cfg.Recorder.Database,
		"RECORDER_COLLECTION":   &cfg.Recorder.Collection,
		"TELEMETRY_ENABLED":     &cfg.Telemetry.Enabled,
		"TELEMETRY_ENDPOINT":    &cfg.Telemetry.Endpoint,
		"TELEMETRY_SERVICE":     &cfg.Telemetry.ServiceName,
		"TELEMETRY_ENVIRONMENT": &cfg.Telemetry.Environment,
		"METRICS_ADDR":          &cfg.Metrics.Addr,
		"METRICS_COUNT_TOKENS":  &cfg.Metrics.CountTokens,
		"METRICS_TOKEN_MODEL":   &cfg.Metrics.TokenModel,
		"LOG_FORMAT":            &cfg.Log.Format,
		"LOG_LEVEL":             &cfg.Log.Level,
	}
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for suffix, target := range envBindings(cfg) {
		name := EnvPrefix + suffix
		raw, ok := lookup(name)
		if !ok {
			continue
		}
		if err := setValue(target, strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("%w: %s: %v", errorskg.ErrInvalidInput, name, err)
		}
	}
	return nil
}

func setValue(target any, raw string) error {
	switch p := target.(type) {
	case *string:
		*p = raw
	case *int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*p = n
	case *float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*p = f
	case *bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*p = b
	case *time.Duration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		*p = d
	case *[]string:
		var out []string
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*p = out
	default:
		return fmt.Errorf("unsupported field type %T", target)
	}
	return nil
}

// applyProviderKey falls back to the provider's conventional key variable.
func applyProviderKey(cfg *Config, lookup func(string) (string, bool)) {
	if cfg.Backend.APIKey != "" {
		return
	}
	var name string
	switch strings.ToLower(cfg.Backend.Provider) {
	case ProviderOpenAI:
		name = "OPENAI_API_KEY"
	case ProviderClaude:
		name = "ANTHROPIC_API_KEY"
	case ProviderGemini:
		name = "GEMINI_API_KEY"
	default:
		return
	}
	if key, ok := lookup(name); ok {
		cfg.Backend.APIKey = key
	}
}
