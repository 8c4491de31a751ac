package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"todosync/internal/config"
	"todosync/internal/service"
)

// fallbackOwnerID scopes the cache when the provider token carries no
// decodable user claim. Stable for a single-user device.
const fallbackOwnerID = "local"

// FileSession is a Session backed by a token file in the config
// directory. The identity is decoded from the stored token's JWT
// claims; the token itself stays opaque to this client and is verified
// by the backend.
type FileSession struct {
	mu      sync.Mutex
	cfg     *config.Config
	oauth   *oauth2.Config // nil when no provider is configured
	token   *oauth2.Token  // nil when signed out
	current *Identity
	subs    map[int]func(*Identity)
	nextSub int
	logger  *slog.Logger
}

// NewFileSession creates a session from the stored token, if any.
// A missing or unreadable token file means signed out, not an error.
func NewFileSession(cfg *config.Config, logger *slog.Logger) *FileSession {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileSession{
		cfg:    cfg,
		oauth:  oauthConfig(cfg),
		subs:   make(map[int]func(*Identity)),
		logger: logger,
	}

	data, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return s
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		logger.Warn("token_file_invalid", "path", cfg.TokenPath(), "error", err)
		return s
	}
	s.token = &tok
	s.current = identityFromToken(&tok)
	return s
}

// oauthConfig builds the provider config from settings, or nil when
// login must use raw tokens only.
func oauthConfig(cfg *config.Config) *oauth2.Config {
	auth := cfg.Settings.Auth
	if auth.ClientID == "" || auth.TokenURL == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID: auth.ClientID,
		Scopes:   auth.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  auth.AuthURL,
			TokenURL: auth.TokenURL,
		},
	}
}

// OAuth returns the provider config for the login flow, or nil.
func (s *FileSession) OAuth() *oauth2.Config { return s.oauth }

// Current implements Session.
func (s *FileSession) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe implements Session. The callback runs once synchronously
// with the current identity before Subscribe returns.
func (s *FileSession) Subscribe(fn func(*Identity)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	current := s.current
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Token implements Session. When a provider is configured and the
// stored token carries a refresh token, expired access tokens are
// refreshed transparently; forceRefresh discards the cached access
// token first. Otherwise the stored token is returned as-is.
func (s *FileSession) Token(ctx context.Context, forceRefresh bool) (string, error) {
	s.mu.Lock()
	tok := s.token
	oauthCfg := s.oauth
	s.mu.Unlock()

	if tok == nil {
		return "", service.Errf(service.KindUnauthorized, "not logged in")
	}

	if oauthCfg == nil || tok.RefreshToken == "" {
		return tok.AccessToken, nil
	}

	src := *tok
	if forceRefresh {
		src.Expiry = time.Now().Add(-time.Minute)
	}
	fresh, err := oauthCfg.TokenSource(ctx, &src).Token()
	if err != nil {
		return "", service.WrapErr(service.KindUnauthorized, err)
	}
	if fresh.AccessToken != tok.AccessToken {
		if err := s.SetToken(fresh); err != nil {
			// Refreshed token still usable this run even if the
			// persist failed.
			s.logger.Warn("token_persist_failed", "error", err)
		}
	}
	return fresh.AccessToken, nil
}

// SetToken stores a new token (mode 0600), re-derives the identity
// from its claims, and notifies subscribers.
func (s *FileSession) SetToken(tok *oauth2.Token) error {
	if err := s.cfg.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.cfg.TokenPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	s.mu.Lock()
	s.token = tok
	s.current = identityFromToken(tok)
	current := s.current
	subs := snapshotSubs(s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(current)
	}
	return nil
}

// Clear removes the stored token and notifies subscribers with nil.
// Clearing an already signed-out session is a no-op.
func (s *FileSession) Clear() error {
	if err := s.cfg.RemoveToken(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token: %w", err)
	}

	s.mu.Lock()
	wasActive := s.token != nil
	s.token = nil
	s.current = nil
	subs := snapshotSubs(s.subs)
	s.mu.Unlock()

	if wasActive {
		for _, fn := range subs {
			fn(nil)
		}
	}
	return nil
}

func snapshotSubs(subs map[int]func(*Identity)) []func(*Identity) {
	out := make([]func(*Identity), 0, len(subs))
	for _, fn := range subs {
		out = append(out, fn)
	}
	return out
}

// identityFromToken extracts the user identity from the token's JWT
// payload. No signature verification: the token is an opaque
// credential here and the backend is the verifier. Providers issue the
// user id as "user_id" (Firebase style) or standard "sub".
func identityFromToken(tok *oauth2.Token) *Identity {
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(tok.AccessToken, claims)
	if err != nil {
		return &Identity{ID: fallbackOwnerID}
	}

	ident := &Identity{ID: fallbackOwnerID}
	if v, ok := claims["user_id"].(string); ok && v != "" {
		ident.ID = v
	} else if v, ok := claims["sub"].(string); ok && v != "" {
		ident.ID = v
	}
	if v, ok := claims["email"].(string); ok {
		ident.Email = v
	}
	return ident
}
