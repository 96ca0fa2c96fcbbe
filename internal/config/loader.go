package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file. A directory is accepted if
// it contains clitask.yaml.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, configFilename)
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but %s not found: %s", configFilename, absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", absPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", absPath, err)
	}
	cfg.SourceFile = absPath

	// Relative paths are anchored at the config file's directory.
	dir := filepath.Dir(absPath)
	if cfg.State.Path != "" && !filepath.IsAbs(cfg.State.Path) {
		cfg.State.Path = filepath.Join(dir, cfg.State.Path)
	}
	if cfg.Workspace.Path != "" && !filepath.IsAbs(cfg.Workspace.Path) {
		cfg.Workspace.Path = filepath.Join(dir, cfg.Workspace.Path)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Defaults, interpolating ${VAR} references and
// applying environment overrides.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	expanded := interpolateEnv(string(data))
	if strings.TrimSpace(expanded) != "" {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}
	applyEnvOverrides(cfg)
	applyConfigDefaults(cfg)
	return cfg, nil
}

func interpolateEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLITASK_WORKSPACE_PATH"); v != "" {
		cfg.Workspace.Path = v
	}
	if v := os.Getenv("CLITASK_LOG_LEVEL"); v != "" {
		cfg.Service.LogLevel = v
	}
}

// applyConfigDefaults fills fields that an explicit empty YAML value cleared.
func applyConfigDefaults(cfg *Config) {
	defaults := Defaults()
	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.CLI.PackageRunner == "" {
		cfg.CLI.PackageRunner = defaults.CLI.PackageRunner
	}
	if cfg.CLI.DryRunFlag == "" {
		cfg.CLI.DryRunFlag = defaults.CLI.DryRunFlag
	}
	if cfg.State.Path == "" {
		cfg.State.Path = defaults.State.Path
	}
	if cfg.Workspace.Path != "" {
		cfg.Workspace.Path = filepath.Clean(cfg.Workspace.Path)
	}
}
