package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/identity"
	"todosync/internal/output"
	"todosync/internal/service"
	"todosync/internal/syncer"
	"todosync/internal/view"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command. Handles both `todosync` (no
// args) and `todosync list`.
type ListCmd struct {
	search  string
	done    bool
	pending bool
	cached  bool
}

// SetSearch sets the search term (for testing).
func (c *ListCmd) SetSearch(term string) {
	c.search = term
}

// SetCached makes the listing skip the remote refresh (for testing).
func (c *ListCmd) SetCached(cached bool) {
	c.cached = cached
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "todosync list [--search <term>] [--done|--pending] [--cached]"
}
func (c *ListCmd) NeedsAuth() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.search, "search", "", "")
	fs.StringVar(&c.search, "s", "", "")
	fs.BoolVar(&c.done, "done", false, "")
	fs.BoolVar(&c.pending, "pending", false, "")
	fs.BoolVar(&c.cached, "cached", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, sess identity.Session, syn *syncer.Synchronizer, args []string, out, errOut io.Writer) int {
	if c.done && c.pending {
		fmt.Fprintln(errOut, "error: cannot use both --done and --pending")
		return exitcode.UserError
	}
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	if !c.cached {
		if err := syn.Refresh(ctx); err != nil {
			// Degrade to the last-known-good collection; only a
			// precondition failure or a truly empty view is fatal.
			if service.KindOf(err) == service.KindValidation {
				return failure(errOut, err)
			}
			if len(syn.Tasks()) == 0 {
				return failure(errOut, err)
			}
			fmt.Fprintf(errOut, "warning: showing cached tasks: %v\n", err)
		}
	}

	projector := view.Projector{Term: c.search}
	if c.done {
		t := true
		projector.Completed = &t
	}
	if c.pending {
		f := false
		projector.Completed = &f
	}

	tasks := projector.Project(syn.Tasks())
	if len(tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}

	for i, task := range tasks {
		output.FormatTask(out, i+1, task)
	}
	return exitcode.Success
}
