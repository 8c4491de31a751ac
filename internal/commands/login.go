package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/identity"
	"todosync/internal/syncer"
)

const (
	// tasksScope is the OAuth scope for the google backend.
	tasksScope = "https://www.googleapis.com/auth/tasks"

	// OAuth callback timeout
	oauthCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second

	// Starting port for OAuth callback server
	oauthStartPort = 8085

	// Max port attempts
	oauthMaxPortAttempts = 5
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	rawToken string
}

// SetRawToken sets the raw token (for testing).
func (c *LoginCmd) SetRawToken(token string) {
	c.rawToken = token
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Authenticate and store the token" }
func (c *LoginCmd) Usage() string     { return "todosync login [--token <raw>]" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.rawToken, "token", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, sess identity.Session, syn *syncer.Synchronizer, args []string, out, errOut io.Writer) int {
	fileSess := identity.NewFileSession(cfg, nil)

	// A pasted provider token needs no flow.
	if c.rawToken != "" {
		if err := fileSess.SetToken(&oauth2.Token{AccessToken: c.rawToken}); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.AuthError
		}
		if !cfg.Quiet {
			fmt.Fprintln(out, "ok")
		}
		return exitcode.Success
	}

	// Already logged in? Force-refresh to prove the credential still
	// works before skipping the flow.
	if cfg.HasToken() {
		if _, err := fileSess.Token(ctx, true); err == nil {
			if !cfg.Quiet {
				fmt.Fprintln(out, "already logged in")
			}
			return exitcode.Success
		}
	}

	oauthConfig, code := c.providerConfig(cfg, fileSess, errOut)
	if code != exitcode.Success {
		return code
	}

	// Find available port for the loopback callback.
	port, listener, err := findAvailablePort()
	if err != nil {
		fmt.Fprintln(errOut, "error: could not bind to local port for OAuth callback")
		return exitcode.AuthError
	}
	defer listener.Close()

	oauthConfig.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()

	authURL := oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintln(errOut, "Open this URL in your browser:")
	fmt.Fprintln(errOut, authURL)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			errCh <- fmt.Errorf("oauth state mismatch")
			return
		}
		authCode := r.URL.Query().Get("code")
		if authCode == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			errCh <- fmt.Errorf("no code in callback")
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
		codeCh <- authCode
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var authCode string
	select {
	case authCode = <-codeCh:
		// Got code
	case err := <-errCh:
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	case <-time.After(oauthCallbackTimeout):
		fmt.Fprintln(errOut, "error: oauth callback timed out")
		return exitcode.AuthError
	case <-ctx.Done():
		fmt.Fprintln(errOut, "error: cancelled")
		return exitcode.AuthError
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	exchangeCtx, cancelExchange := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancelExchange()

	token, err := oauthConfig.Exchange(exchangeCtx, authCode, oauth2.VerifierOption(verifier))
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to exchange code for token: %v\n", err)
		return exitcode.AuthError
	}

	if err := fileSess.SetToken(token); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// providerConfig resolves the OAuth provider: the configured auth
// section for the rest backend, or oauth_client.json for google.
func (c *LoginCmd) providerConfig(cfg *config.Config, sess *identity.FileSession, errOut io.Writer) (*oauth2.Config, int) {
	if cfg.Settings.Backend == config.BackendGoogle {
		if !cfg.HasOAuthClient() {
			fmt.Fprintf(errOut, "error: %s not found in %s\n", config.OAuthClientFile, cfg.Dir)
			fmt.Fprintln(errOut, "Download OAuth desktop-app credentials from the Google Cloud console and save them there, then run 'todosync login' again.")
			return nil, exitcode.AuthError
		}
		clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
		if err != nil {
			fmt.Fprintf(errOut, "error: failed to read %s: %v\n", config.OAuthClientFile, err)
			return nil, exitcode.AuthError
		}
		oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
		if err != nil {
			fmt.Fprintf(errOut, "error: invalid %s: %v\n", config.OAuthClientFile, err)
			return nil, exitcode.AuthError
		}
		return oauthConfig, exitcode.Success
	}

	oauthConfig := sess.OAuth()
	if oauthConfig == nil {
		fmt.Fprintf(errOut, "error: no auth provider configured (set auth.client_id and auth.token_url in %s, or use --token)\n", cfg.SettingsPath())
		return nil, exitcode.AuthError
	}
	// Copy so the redirect URL mutation stays local to this flow.
	cp := *oauthConfig
	return &cp, exitcode.Success
}

// findAvailablePort tries to find an available port starting from oauthStartPort.
func findAvailablePort() (int, net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		port := oauthStartPort + i
		addr := fmt.Sprintf("localhost:%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			return port, listener, nil
		}
	}
	return 0, nil, fmt.Errorf("no available port found")
}
