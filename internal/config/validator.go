package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattjoyce/clitask/internal/log"
)

// Validate checks semantic constraints that YAML decoding cannot express.
func Validate(cfg *Config) error {
	var errs []error

	if !log.ValidLevel(cfg.Service.LogLevel) {
		errs = append(errs, fmt.Errorf("service.log_level %q must be one of debug, info, warn, error", cfg.Service.LogLevel))
	}
	switch strings.ToLower(cfg.Service.LogFormat) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("service.log_format %q must be json or text", cfg.Service.LogFormat))
	}
	if strings.TrimSpace(cfg.CLI.DryRunFlag) == "" {
		errs = append(errs, errors.New("cli.dry_run_flag must not be empty"))
	}
	if cfg.Engine.TerminationGrace < 0 {
		errs = append(errs, fmt.Errorf("engine.termination_grace must not be negative, got %v", cfg.Engine.TerminationGrace))
	}
	if cfg.API.Enabled {
		if cfg.API.Listen == "" {
			errs = append(errs, errors.New("api.listen is required when api.enabled is true"))
		}
		if cfg.API.Auth.APIKey == "" && len(cfg.API.Auth.Tokens) == 0 {
			errs = append(errs, errors.New("api.auth requires api_key or tokens when api.enabled is true"))
		}
		for i, tok := range cfg.API.Auth.Tokens {
			if tok.Token == "" {
				errs = append(errs, fmt.Errorf("api.auth.tokens[%d].token is empty", i))
			}
		}
	}

	return errors.Join(errs...)
}
