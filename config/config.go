package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/squadopt/core/metrics"
	"github.com/kilianp07/squadopt/core/milp"
	"github.com/kilianp07/squadopt/infra/history"
	"github.com/kilianp07/squadopt/infra/mqtt"
)

// EnvPrefix marks environment variables that override file settings.
// SQUAD_OPTIMIZER__BUDGET sets optimizer.budget.
const EnvPrefix = "SQUAD_"

type Config struct {
	Optimizer OptimizerConfig `json:"optimizer"`
	Solver    milp.Options    `json:"solver"`
	Input     InputConfig     `json:"input"`
	History   history.Config  `json:"history"`
	Metrics   metrics.Config  `json:"metrics"`
	MQTT      mqtt.Config     `json:"mqtt"`
	Logging   LoggingConfig   `json:"logging"`
}

// Load reads the YAML or JSON file at path, then applies environment
// overrides. An empty path loads the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
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

// SetDefaults fills unset fields of the sections that have defaults. The
// optimizer section has none.
func (c *Config) SetDefaults() {
	c.Solver.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks each section. MQTT settings are only checked when a broker
// is configured.
func (c Config) Validate() error {
	if err := c.Optimizer.Validate(); err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return err
	}
	if c.MQTT.Broker != "" {
		if err := c.MQTT.Validate(); err != nil {
			return err
		}
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
