// Package config loads the process configuration. The config is an
// explicitly constructed value passed by reference to each component;
// there is no package-level global.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration.
type Config struct {
	DB       DB       `yaml:"db"`
	Analysis Analysis `yaml:"analysis"`
}

// DB selects and parameterizes the store connector.
type DB struct {
	// Type is "sqlite" or "cloudsql-postgres".
	Type string `yaml:"type"`
	// Path is the database file path for sqlite.
	Path string `yaml:"path"`
	// InstanceConnectionName, User, Password and Name configure Cloud SQL.
	InstanceConnectionName string `yaml:"instance_connection_name"`
	User                   string `yaml:"user"`
	Password               string `yaml:"password"`
	Name                   string `yaml:"name"`
}

// Analysis holds the scoring policy knobs. The weights are a business
// policy choice, not a derived invariant, so they are configurable.
type Analysis struct {
	// AVWeight and EDRWeight combine the two reduction percentages into
	// the composite score. They should sum to 1.
	AVWeight  float64 `yaml:"av_weight"`
	EDRWeight float64 `yaml:"edr_weight"`
	// AnalystHourlyRate prices saved triage time, in dollars per hour.
	AnalystHourlyRate float64 `yaml:"analyst_hourly_rate"`
	// TriageMinutesPerHighAlert is the assumed analyst triage time per
	// high-severity alert eliminated.
	TriageMinutesPerHighAlert float64 `yaml:"triage_minutes_per_high_alert"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DB: DB{
			Type: "sqlite",
			Path: "data/edr_proof.db",
		},
		Analysis: Analysis{
			AVWeight:                  0.30,
			EDRWeight:                 0.70,
			AnalystHourlyRate:         50,
			TriageMinutesPerHighAlert: 5,
		},
	}
}

// Load reads a YAML config file on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Analysis.AVWeight < 0 || c.Analysis.EDRWeight < 0 {
		return fmt.Errorf("analysis weights cannot be negative")
	}
	if c.Analysis.AVWeight+c.Analysis.EDRWeight == 0 {
		return fmt.Errorf("analysis weights cannot both be zero")
	}
	if c.DB.Type != "sqlite" && c.DB.Type != "cloudsql-postgres" {
		return fmt.Errorf("unknown db type %q", c.DB.Type)
	}
	return nil
}
