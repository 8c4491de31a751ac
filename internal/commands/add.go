package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/identity"
	"todosync/internal/syncer"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	desc string
}

// SetDesc sets the description (for testing).
func (c *AddCmd) SetDesc(desc string) {
	c.desc = desc
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string     { return "todosync add --desc <text> <title...>" }
func (c *AddCmd) NeedsAuth() bool   { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.desc, "desc", "", "")
	fs.StringVar(&c.desc, "d", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, sess identity.Session, syn *syncer.Synchronizer, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}
	title := strings.Join(args, " ")

	created, err := syn.AddTask(ctx, title, c.desc)
	if err != nil {
		return failure(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok %s\n", created.ID)
	}
	return exitcode.Success
}
