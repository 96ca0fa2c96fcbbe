package config

import "time"

// Config represents the complete clitask configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	CLI       CLIConfig       `yaml:"cli"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	State     StateConfig     `yaml:"state"`
	Engine    EngineConfig    `yaml:"engine"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	API       APIConfig       `yaml:"api,omitempty"`

	// SourceFile is the absolute path the config was loaded from, empty for defaults.
	SourceFile string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// WorkspaceConfig points at the multi-project workspace root.
type WorkspaceConfig struct {
	Path string `yaml:"path"`
}

// CLIConfig controls how workspace CLI invocations are built.
type CLIConfig struct {
	// Program overrides local CLI detection for general commands.
	Program       string `yaml:"program,omitempty"`
	PackageRunner string `yaml:"package_runner"`
	DryRunFlag    string `yaml:"dry_run_flag"`
}

// SchedulerConfig defines dry-run scheduling behaviour.
type SchedulerConfig struct {
	// MatchCompletionHandle ties task-ended events to the active dry-run's
	// execution id. When false, any ended task clears the active dry-run.
	MatchCompletionHandle bool `yaml:"match_completion_handle"`
}

// StateConfig defines state storage settings.
type StateConfig struct {
	Path string `yaml:"path"`
}

// EngineConfig defines subprocess execution settings.
type EngineConfig struct {
	TerminationGrace time.Duration `yaml:"termination_grace"`
}

// TelemetryConfig toggles usage recording.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Enabled bool          `yaml:"enabled"`
	Listen  string        `yaml:"listen"`
	Auth    APIAuthConfig `yaml:"auth"`
}

// APIAuthConfig defines API authentication settings.
type APIAuthConfig struct {
	// APIKey is the legacy single bearer token (admin/full access).
	// Prefer Tokens for scoped access.
	APIKey string     `yaml:"api_key"`
	Tokens []APIToken `yaml:"tokens,omitempty"`
}

// APIToken defines a bearer token and its scopes.
type APIToken struct {
	Token  string   `yaml:"token"`
	Scopes []string `yaml:"scopes"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "clitask",
			LogLevel:  "info",
			LogFormat: "json",
		},
		CLI: CLIConfig{
			PackageRunner: "npx",
			DryRunFlag:    "--dry-run",
		},
		State: StateConfig{
			Path: "./.clitask/state.db",
		},
		Engine: EngineConfig{
			TerminationGrace: 5 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8737",
		},
	}
}
