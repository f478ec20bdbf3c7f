package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. Sections are separated by a
// double underscore, e.g. RISKGATE_DATABASE__MAX_CONNS.
const EnvPrefix = "RISKGATE_"

// DefaultPath is read when no config file is given; it may be absent
const DefaultPath = "configs/riskgate.yaml"

// Policy sources
const (
	PolicySourceFile     = "file"
	PolicySourcePostgres = "postgres"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	Policies   PoliciesConfig   `koanf:"policies"`
	Assessment AssessmentConfig `koanf:"assessment"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxConns        int32         `koanf:"max_conns"`
	MinConns        int32         `koanf:"min_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled     bool          `koanf:"enabled"`
	URL         string        `koanf:"url"`
	Password    string        `koanf:"password"`
	DB          int           `koanf:"db"`
	DialTimeout time.Duration `koanf:"dial_timeout"`
	PolicyTTL   time.Duration `koanf:"policy_ttl"`
}

type PoliciesConfig struct {
	// Source is "file" or "postgres"
	Source string `koanf:"source"`
	File   string `koanf:"file"`
}

type AssessmentConfig struct {
	BatchConcurrency int `koanf:"batch_concurrency"`
}

type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	ServiceName  string  `koanf:"service_name"`
	OTLPEndpoint string  `koanf:"otlp_endpoint"`
	SamplingRate float64 `koanf:"sampling_rate"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        1,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			URL:         "localhost:6379",
			DialTimeout: 5 * time.Second,
			PolicyTTL:   5 * time.Minute,
		},
		Policies: PoliciesConfig{
			Source: PolicySourceFile,
			File:   "configs/policies.yaml",
		},
		Assessment: AssessmentConfig{
			BatchConcurrency: 8,
		},
		Telemetry: TelemetryConfig{
			ServiceName:  "riskgate",
			OTLPEndpoint: "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// Load layers defaults, the YAML file at path and RISKGATE_ environment
// variables. An empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	optional := path == ""
	if optional {
		path = DefaultPath
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !optional || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps RISKGATE_DATABASE__MAX_CONNS to database.max_conns
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate rejects configurations the CLI cannot run with
func (c *Config) Validate() error {
	switch c.Policies.Source {
	case PolicySourceFile:
		if c.Policies.File == "" {
			return fmt.Errorf("policies.file is required when policies.source is %q", PolicySourceFile)
		}
	case PolicySourcePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required when policies.source is %q", PolicySourcePostgres)
		}
	default:
		return fmt.Errorf("unknown policies.source %q", c.Policies.Source)
	}

	if c.Assessment.BatchConcurrency <= 0 {
		return fmt.Errorf("assessment.batch_concurrency must be positive, got %d", c.Assessment.BatchConcurrency)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) exceeds database.max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Redis.Enabled && c.Redis.PolicyTTL <= 0 {
		return fmt.Errorf("redis.policy_ttl must be positive when redis is enabled")
	}
	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		return fmt.Errorf("telemetry.sampling_rate must be within [0,1], got %v", c.Telemetry.SamplingRate)
	}

	return nil
}
