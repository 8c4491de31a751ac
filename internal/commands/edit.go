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
	Register(&EditCmd{})
}

// EditCmd implements the edit command.
type EditCmd struct {
	title    string
	desc     string
	titleSet bool
	descSet  bool
}

// SetTitle sets the new title (for testing).
func (c *EditCmd) SetTitle(title string) {
	c.title = title
	c.titleSet = true
}

// SetDesc sets the new description (for testing).
func (c *EditCmd) SetDesc(desc string) {
	c.desc = desc
	c.descSet = true
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Edit a task's title or description" }
func (c *EditCmd) Usage() string     { return "todosync edit [--title <text>] [--desc <text>] <n>" }
func (c *EditCmd) NeedsAuth() bool   { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.Func("title", "", func(v string) error {
		c.title = v
		c.titleSet = true
		return nil
	})
	fs.Func("desc", "", func(v string) error {
		c.desc = v
		c.descSet = true
		return nil
	})
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, sess identity.Session, syn *syncer.Synchronizer, args []string, out, errOut io.Writer) int {
	if !c.titleSet && !c.descSet {
		fmt.Fprintln(errOut, "error: nothing to edit (use --title or --desc)")
		return exitcode.UserError
	}

	num, err := ParseTaskNum(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	task, err := resolveTask(ctx, syn, num, errOut)
	if err != nil {
		return failure(errOut, err)
	}

	// Unspecified fields keep their current value.
	title := task.Title
	if c.titleSet {
		title = c.title
	}
	desc := task.Description
	if c.descSet {
		desc = c.desc
	}

	if _, err := syn.EditTask(ctx, task.ID, title, desc); err != nil {
		return failure(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
