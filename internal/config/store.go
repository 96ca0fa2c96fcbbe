package config

import (
	"fmt"
	"sync"
)

// Provider is the opaque key/value view of configuration the core consumes.
type Provider interface {
	Get(key, def string) string
}

// Keys understood by Store.Get.
const (
	KeyWorkspacePath = "nxWorkspacePath"
	KeyCLIProgram    = "cli.program"
	KeyPackageRunner = "cli.package_runner"
	KeyDryRunFlag    = "cli.dry_run_flag"
)

// Store holds the live configuration and serves Provider lookups. It can be
// reloaded from its source file while readers keep calling Get.
type Store struct {
	mu  sync.RWMutex
	cfg *Config
}

var _ Provider = (*Store)(nil)

// NewStore wraps cfg. A nil cfg means Defaults.
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = Defaults()
	}
	return &Store{cfg: cfg}
}

// Config returns the current configuration. Callers must not mutate it.
func (s *Store) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Get returns the value for key, or def when the key is unknown or empty.
func (s *Store) Get(key, def string) string {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	var v string
	switch key {
	case KeyWorkspacePath, "workspace.path":
		v = cfg.Workspace.Path
	case KeyCLIProgram:
		v = cfg.CLI.Program
	case KeyPackageRunner:
		v = cfg.CLI.PackageRunner
	case KeyDryRunFlag:
		v = cfg.CLI.DryRunFlag
	case "service.name":
		v = cfg.Service.Name
	case "state.path":
		v = cfg.State.Path
	}
	if v == "" {
		return def
	}
	return v
}

// SetWorkspacePath replaces the configured workspace path in memory.
func (s *Store) SetWorkspacePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.cfg
	next.Workspace.Path = path
	s.cfg = &next
}

// Reload re-reads the source file. The previous config stays active on error.
func (s *Store) Reload() error {
	s.mu.RLock()
	src := s.cfg.SourceFile
	s.mu.RUnlock()
	if src == "" {
		return fmt.Errorf("config was not loaded from a file")
	}

	next, err := Load(src)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg = next
	s.mu.Unlock()
	return nil
}
