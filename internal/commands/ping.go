package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/identity"
	"todosync/internal/syncer"
)

// pingTimeout bounds the reachability probe.
const pingTimeout = 10 * time.Second

func init() {
	Register(&PingCmd{})
}

// PingCmd checks whether the remote task service is reachable. Any
// HTTP response counts, including 401: an unauthorized answer still
// proves the service is up.
type PingCmd struct{}

func (c *PingCmd) Name() string      { return "ping" }
func (c *PingCmd) Aliases() []string { return nil }
func (c *PingCmd) Synopsis() string  { return "Check backend connectivity" }
func (c *PingCmd) Usage() string     { return "todosync ping" }
func (c *PingCmd) NeedsAuth() bool   { return false }

func (c *PingCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *PingCmd) Run(ctx context.Context, cfg *config.Config, sess identity.Session, syn *syncer.Synchronizer, args []string, out, errOut io.Writer) int {
	if cfg.Settings.Backend != config.BackendREST {
		fmt.Fprintf(errOut, "error: ping supports the %s backend only\n", config.BackendREST)
		return exitcode.UserError
	}
	base := cfg.Settings.API.BaseURL
	if base == "" {
		fmt.Fprintf(errOut, "error: api base URL not configured (set api.base_url in %s or TODOSYNC_API_URL)\n", cfg.SettingsPath())
		return exitcode.UserError
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/tasks", nil)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	// Attach the stored token when one exists; absence is fine, the
	// probe only measures reachability.
	fileSess := identity.NewFileSession(cfg, nil)
	if token, err := fileSess.Token(ctx, false); err == nil {
		req.Header.Set("Authorization", token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(errOut, "error: cannot connect to backend: %v\n", err)
		return exitcode.BackendError
	}
	resp.Body.Close()

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok (%s)\n", resp.Status)
	}
	return exitcode.Success
}
