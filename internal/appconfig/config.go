// Package appconfig composes the pipeline's top-level configuration
// struct from pkg/config's sub-structs, the way each of the teacher's
// services layers its own Config type over the shared config package.
package appconfig

import (
	"fmt"

	"macro-stress-pipeline/pkg/config"
)

// Config is the full configuration surface for every cmd/ entry point.
// A given binary only reads the sections it needs.
type Config struct {
	App       config.App       `mapstructure:"app"`
	Logger    config.Logger    `mapstructure:"logger"`
	Database  config.Database  `mapstructure:"database"`
	API       config.API       `mapstructure:"api"`
	Sources   config.Sources   `mapstructure:"sources"`
	Scheduler config.Scheduler `mapstructure:"scheduler"`
}

// Load reads path into a Config.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
