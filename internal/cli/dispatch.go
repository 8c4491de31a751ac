// Package cli handles command-line parsing and dispatch.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"todosync/internal/commands"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/identity"
	"todosync/internal/service"
	"todosync/internal/syncer"
)

// Factory builds the identity session and synchronizer stack from
// config. Used to inject fakes during dispatch tests.
type Factory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (identity.Session, *syncer.Synchronizer, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  Factory
}

// NewDispatcher creates a dispatcher with the given registry and factory.
func NewDispatcher(registry *commands.Registry, factory Factory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	// Create flag set with custom error handling
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	// Register command-specific flags
	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		errStr := err.Error()
		if strings.HasPrefix(errStr, "flag provided but not defined:") {
			flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
			fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
			return exitcode.UserError
		}
		fmt.Fprintf(errOut, "error: %s\n", errStr)
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	var sess identity.Session
	var syn *syncer.Synchronizer
	if cmd.NeedsAuth() {
		sess, syn, err = d.factory(ctx, cfg, logger)
		if err != nil {
			if service.KindOf(err) == service.KindUnauthorized {
				fmt.Fprintf(errOut, "error: auth error: %v\n", err)
				return exitcode.AuthError
			}
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.BackendError
		}
		ident := sess.Current()
		if ident == nil {
			fmt.Fprintln(errOut, "error: not logged in (run: todosync login)")
			return exitcode.AuthError
		}
		// Hydrate from cache before the command touches the network
		// so listings degrade gracefully when the backend is down.
		syn.ActivateIdentity(ident)
	}

	return cmd.Run(ctx, cfg, sess, syn, positionalArgs, out, errOut)
}
