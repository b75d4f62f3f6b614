// Package config loads the engine configuration with the usual
// precedence: built-in defaults, then a YAML file, then environment
// variables under the STRUCTRESP prefix.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("structresp.yaml").
//	    Load()
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/structresp/cache"
)

// Config is the complete engine configuration.
type Config struct {
	// Parser bounds and behavior of the fallback chain.
	Parser ParserConfig `yaml:"parser" env:"PARSER"`

	// Cache sizes the result cache and its TTL profiles.
	Cache cache.Config `yaml:"cache" env:"CACHE"`

	// Redis locates the optional second cache level.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Metrics controls the Prometheus export.
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Log configures zap.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry configures the OTel SDK.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ParserConfig bounds the parser.
type ParserConfig struct {
	// Maximum accepted input size in bytes.
	MaxInputBytes int `yaml:"max_input_bytes" env:"MAX_INPUT_BYTES"`
}

// RedisConfig locates the Redis cache level.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	PoolSize int    `yaml:"pool_size" env:"POOL_SIZE"`
}

// MetricsConfig controls the Prometheus sink.
type MetricsConfig struct {
	// Enabled registers the PrometheusSink on the default registry.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Namespace prefixes every exported metric.
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json or console.
	Format string `yaml:"format" env:"FORMAT"`
}

// TelemetryConfig configures OTel SDK initialization.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// DefaultConfig returns the working defaults: local cache only, metrics
// and telemetry off, info-level JSON logs.
func DefaultConfig() *Config {
	return &Config{
		Parser: ParserConfig{
			MaxInputBytes: 1 << 20,
		},
		Cache: cache.DefaultConfig(),
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "structresp",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "structresp",
			SampleRate:   1.0,
		},
	}
}

// Validate sanity-checks the loaded configuration.
func (c *Config) Validate() error {
	var errs []string
	if c.Parser.MaxInputBytes <= 0 {
		errs = append(errs, "parser.max_input_bytes must be positive")
	}
	if c.Cache.Capacity <= 0 {
		errs = append(errs, "cache.capacity must be positive")
	}
	if c.Cache.TTLLive <= 0 || c.Cache.TTLBatch <= 0 {
		errs = append(errs, "cache TTLs must be positive")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be within [0, 1]")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Loader loads configuration with builder-style options.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a loader with the STRUCTRESP env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "STRUCTRESP"}
}

// WithConfigPath sets the YAML file to load. A missing file is not an
// error; defaults and env apply.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves the configuration: defaults, then file, then env.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}
	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// setFieldsFromEnv walks the struct and applies FOO_BAR_BAZ overrides
// derived from the nested env tags.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}
		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	}
	return nil
}
