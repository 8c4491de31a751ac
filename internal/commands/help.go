package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/identity"
	"todosync/internal/syncer"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "todosync help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, sess identity.Session, syn *syncer.Synchronizer, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  todosync                                           List tasks
  todosync list [common flags] [--search <term>] [--done|--pending] [--cached]
  todosync add [common flags] --desc <text> <title...>
  todosync edit [common flags] [--title <text>] [--desc <text>] <n>
  todosync done [common flags] <n>
  todosync undone [common flags] <n>
  todosync rm [common flags] <n>
  todosync login [common flags] [--token <raw>]
  todosync logout [common flags]
  todosync whoami [common flags]
  todosync ping [common flags]
  todosync help
  todosync version

Task references are 1-based positions in the current list (newest first).

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
