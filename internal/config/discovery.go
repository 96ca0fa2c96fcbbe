package config

import (
	"errors"
	"os"
	"path/filepath"
)

const configFilename = "clitask.yaml"

// ErrNoConfig is returned by Discover when no configuration file exists.
var ErrNoConfig = errors.New("no config found (checked: $CLITASK_CONFIG, ./clitask.yaml, ~/.config/clitask/config.yaml)")

// Discover finds the config file by checking standard locations.
// Priority order: $CLITASK_CONFIG, ./clitask.yaml, ~/.config/clitask/config.yaml.
func Discover() (string, error) {
	if p := os.Getenv("CLITASK_CONFIG"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	if _, err := os.Stat(configFilename); err == nil {
		return configFilename, nil
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfig := filepath.Join(homeDir, ".config", "clitask", "config.yaml")
		if _, err := os.Stat(userConfig); err == nil {
			return userConfig, nil
		}
	}

	return "", ErrNoConfig
}

// LoadOrDefault loads configPath, or the discovered config when configPath is
// empty. With nothing to discover it returns Defaults with env overrides.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		discovered, err := Discover()
		if errors.Is(err, ErrNoConfig) {
			return Parse(nil)
		}
		if err != nil {
			return nil, err
		}
		configPath = discovered
	}
	return Load(configPath)
}
