package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/housepredict/core/metrics"
)

// EnvPrefix marks environment overrides, e.g. K_PREDICTOR__BASE_URL.
const EnvPrefix = "K_"

type Config struct {
	Predictor PredictorConfig `json:"predictor"`
	Interval  IntervalConfig  `json:"interval"`
	Metrics   metrics.Config  `json:"metrics"`
	Mock      MockConfig      `json:"mock"`
}

// Load reads path (yaml or json) when it is not empty, then a .env file in the
// working directory if present, then K_ environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
}

// Default returns a configuration with every section defaulted.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Predictor.SetDefaults()
	c.Interval.SetDefaults()
	c.Metrics.SetDefaults()
	c.Mock.SetDefaults()
}

// Validate checks every section and names the failing one.
func (c Config) Validate() error {
	if err := c.Predictor.Validate(); err != nil {
		return fmt.Errorf("predictor: %w", err)
	}
	if err := c.Interval.Validate(); err != nil {
		return fmt.Errorf("interval: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Mock.Validate(); err != nil {
		return fmt.Errorf("mock: %w", err)
	}
	return nil
}
