// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/identity"
	"todosync/internal/service"
	"todosync/internal/syncer"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires an authenticated
	// identity and a synchronizer. Commands like help, version, login,
	// logout, ping return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided. sess and syn are nil if NeedsAuth()
	// returns false. args contains positional arguments after flag
	// parsing. Returns exit code.
	Run(ctx context.Context, cfg *config.Config, sess identity.Session, syn *syncer.Synchronizer, args []string, out, errOut io.Writer) int
}

// failure prints a classified error and maps it to an exit code.
func failure(errOut io.Writer, err error) int {
	switch service.KindOf(err) {
	case service.KindValidation:
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case service.KindUnauthorized:
		fmt.Fprintf(errOut, "error: %v (run: todosync login)\n", err)
		return exitcode.AuthError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}
