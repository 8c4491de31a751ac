// Package main is the entry point for the todosync CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"todosync/internal/backend/googletasks"
	"todosync/internal/backend/resttasks"
	"todosync/internal/cache"
	"todosync/internal/cli"
	"todosync/internal/commands"
	"todosync/internal/config"
	"todosync/internal/identity"
	"todosync/internal/service"
	"todosync/internal/syncer"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, buildStack)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

// buildStack wires the production stack: file-backed session, the
// configured gateway backend, file cache store, synchronizer.
func buildStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (identity.Session, *syncer.Synchronizer, error) {
	sess := identity.NewFileSession(cfg, logger)

	var gateway service.Gateway
	var err error
	switch cfg.Settings.Backend {
	case config.BackendGoogle:
		gateway, err = googletasks.New(ctx, sess)
	case config.BackendREST:
		gateway, err = resttasks.New(cfg, sess)
	default:
		err = fmt.Errorf("unknown backend: %s", cfg.Settings.Backend)
	}
	if err != nil {
		return nil, nil, err
	}

	store := cache.NewFileStore(cfg.CachePath())
	return sess, syncer.New(gateway, store, logger), nil
}
