package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// simConfig holds the scenario parameters jobsim runs with, overridable
// from the command line or an optional YAML file (--config). Command
// line flags win over the file when both are given a non-zero value.
type simConfig struct {
	Workers      int `yaml:"workers"`
	Jobs         int `yaml:"jobs"`
	RingCapacity int `yaml:"ring_capacity"`
}

func defaultSimConfig() simConfig {
	return simConfig{Workers: 4, Jobs: 1000, RingCapacity: 64}
}

func loadSimConfig(path string) (simConfig, error) {
	cfg := defaultSimConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
