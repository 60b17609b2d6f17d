package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Config drives the headless script host.
type Config struct {
	// ScriptsDir is the root all script resource paths resolve against.
	ScriptsDir string `yaml:"scripts_dir"`
	// PluginDir holds scripts auto-run at startup.
	PluginDir string `yaml:"plugin_dir"`
	// Extension filters which files count as scripts.
	Extension string `yaml:"extension"`
	// TickRate is the simulation frequency in Hz.
	TickRate int `yaml:"tick_rate"`
}

func defaultConfig() Config {
	return Config{
		ScriptsDir: "scripts",
		PluginDir:  "plugins",
		Extension:  ".script",
		TickRate:   60,
	}
}

// loadConfig reads the yaml config at path, falling back to defaults when the
// file does not exist.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	return cfg, nil
}
