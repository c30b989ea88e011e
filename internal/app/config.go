package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPath string // hcl files: graphs, args and bindings
	Graph     string // graph to run; empty selects "main" or the only graph

	Iterations int
	Workers    int // concurrent graph compilations

	AOTIn   string // load compiled graphs from this file instead of building
	AOTOut  string // save compiled graphs to this file
	DumpOut string // write graph_<name>.txt listings into this directory

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	NotifyURL       string
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GraphPath == "" {
		return nil, errors.New("GraphPath is a required configuration field and cannot be empty")
	}
	if cfg.Iterations < 0 {
		return nil, fmt.Errorf("iterations must not be negative, got %d", cfg.Iterations)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.AOTIn != "" && cfg.AOTIn == cfg.AOTOut {
		return nil, errors.New("aot-in and aot-out must be different files")
	}
	return &cfg, nil
}
