package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattjoyce/clitask/internal/api"
	"github.com/mattjoyce/clitask/internal/auth"
	"github.com/mattjoyce/clitask/internal/config"
	"github.com/mattjoyce/clitask/internal/log"
)

const shutdownTimeout = 30 * time.Second

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	listen := fs.String("listen", "", "Listen address (overrides api.listen)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	store, err := loadStore(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	cfg := store.Config()
	if !cfg.API.Enabled {
		fmt.Fprintln(os.Stderr, "serve requires api.enabled: true with api.auth configured")
		return 1
	}
	apiCfg := apiConfig(cfg)
	if *listen != "" {
		apiCfg.Listen = *listen
	}

	logger := log.WithComponent("main")
	logger.Info("clitask starting", "version", version, "config", cfg.SourceFile, "workspace", store.Get(config.KeyWorkspacePath, ""))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := openApp(ctx, store)
	if err != nil {
		logger.Error("failed to open session", "error", err)
		return 1
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		a.Close(sctx)
	}()

	server := api.New(apiCfg, a.dispatcher, a.index, a.engine, a.usage, a.hub, log.WithComponent("api"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	logger.Info("clitask running (press Ctrl+C to stop)", "listen", apiCfg.Listen)

	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				reloadStore(store, g.workspace)
				continue
			}
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
			logger.Info("clitask stopped")
			return 0
		case err := <-errCh:
			logger.Error("api failed", "error", err)
			cancel()
			return 1
		}
	}
}

// reloadStore re-reads config on SIGHUP. A --workspace override survives the
// reload. Listen address and auth changes need a restart.
func reloadStore(store *config.Store, workspaceOverride string) {
	logger := log.WithComponent("main")
	if err := store.Reload(); err != nil {
		logger.Error("config reload failed, keeping previous config", "error", err)
		return
	}
	if workspaceOverride != "" {
		if abs, err := filepath.Abs(workspaceOverride); err == nil {
			store.SetWorkspacePath(abs)
		}
	}
	logger.Info("config reloaded", "workspace", store.Get(config.KeyWorkspacePath, ""))
}

func apiConfig(cfg *config.Config) api.Config {
	tokens := make([]auth.TokenConfig, 0, len(cfg.API.Auth.Tokens))
	for _, t := range cfg.API.Auth.Tokens {
		tokens = append(tokens, auth.TokenConfig{
			Token:  t.Token,
			Scopes: t.Scopes,
		})
	}
	return api.Config{
		Listen: cfg.API.Listen,
		APIKey: cfg.API.Auth.APIKey,
		Tokens: tokens,
	}
}
