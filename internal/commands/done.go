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
	Register(&DoneCmd{})
	Register(&UndoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return nil }
func (c *DoneCmd) Synopsis() string  { return "Mark a task completed" }
func (c *DoneCmd) Usage() string     { return "todosync done <n>" }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, sess identity.Session, syn *syncer.Synchronizer, args []string, out, errOut io.Writer) int {
	return runSetCompleted(ctx, cfg, syn, args, true, out, errOut)
}

// UndoneCmd implements the undone command.
type UndoneCmd struct{}

func (c *UndoneCmd) Name() string      { return "undone" }
func (c *UndoneCmd) Aliases() []string { return []string{"reopen"} }
func (c *UndoneCmd) Synopsis() string  { return "Mark a task not completed" }
func (c *UndoneCmd) Usage() string     { return "todosync undone <n>" }
func (c *UndoneCmd) NeedsAuth() bool   { return true }

func (c *UndoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UndoneCmd) Run(ctx context.Context, cfg *config.Config, sess identity.Session, syn *syncer.Synchronizer, args []string, out, errOut io.Writer) int {
	return runSetCompleted(ctx, cfg, syn, args, false, out, errOut)
}

// runSetCompleted is the shared implementation for done and undone.
func runSetCompleted(ctx context.Context, cfg *config.Config, syn *syncer.Synchronizer, args []string, completed bool, out, errOut io.Writer) int {
	num, err := ParseTaskNum(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	task, err := resolveTask(ctx, syn, num, errOut)
	if err != nil {
		return failure(errOut, err)
	}

	if _, err := syn.SetCompleted(ctx, task.ID, completed); err != nil {
		return failure(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
