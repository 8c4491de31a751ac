package identity

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/oauth2"

	"todosync/internal/config"
	"todosync/internal/service"
)

// unsignedJWT builds an unsigned token carrying claims. The session
// never verifies signatures, so an empty signature segment is enough.
func unsignedJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	if err != nil {
		t.Fatal(err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatal(err)
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload) + "."
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{Dir: t.TempDir()}
}

func TestNewFileSession_NoToken(t *testing.T) {
	sess := NewFileSession(testConfig(t), nil)

	if sess.Current() != nil {
		t.Error("expected signed-out session")
	}
	_, err := sess.Token(context.Background(), false)
	if service.KindOf(err) != service.KindUnauthorized {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestNewFileSession_LoadsStoredToken(t *testing.T) {
	cfg := testConfig(t)
	access := unsignedJWT(t, map[string]any{"user_id": "u-42", "email": "u42@example.com"})
	data, err := json.Marshal(oauth2.Token{AccessToken: access})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.TokenPath(), data, 0600); err != nil {
		t.Fatal(err)
	}

	sess := NewFileSession(cfg, nil)

	ident := sess.Current()
	if ident == nil {
		t.Fatal("expected active identity")
	}
	if ident.ID != "u-42" || ident.Email != "u42@example.com" {
		t.Errorf("unexpected identity: %+v", ident)
	}

	tok, err := sess.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("token failed: %v", err)
	}
	if tok != access {
		t.Error("expected the stored access token verbatim")
	}
}

func TestNewFileSession_CorruptTokenFile(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.TokenPath(), []byte("{broken"), 0600); err != nil {
		t.Fatal(err)
	}

	sess := NewFileSession(cfg, nil)
	if sess.Current() != nil {
		t.Error("corrupt token file must mean signed out, not a crash")
	}
}

func TestIdentityClaims(t *testing.T) {
	cases := []struct {
		name   string
		access string
		wantID string
	}{
		{"user_id claim", "", "u-1"},
		{"sub fallback", "", "subject-1"},
		{"opaque token", "not-a-jwt", "local"},
	}
	cases[0].access = unsignedJWT(t, map[string]any{"user_id": "u-1"})
	cases[1].access = unsignedJWT(t, map[string]any{"sub": "subject-1"})

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ident := identityFromToken(&oauth2.Token{AccessToken: tc.access})
			if ident.ID != tc.wantID {
				t.Errorf("expected id %q, got %q", tc.wantID, ident.ID)
			}
		})
	}
}

func TestSetToken(t *testing.T) {
	cfg := testConfig(t)
	sess := NewFileSession(cfg, nil)

	var notified []*Identity
	unsubscribe := sess.Subscribe(func(ident *Identity) {
		notified = append(notified, ident)
	})
	defer unsubscribe()
	if len(notified) != 1 || notified[0] != nil {
		t.Fatalf("expected one nil replay, got %v", notified)
	}

	access := unsignedJWT(t, map[string]any{"user_id": "u-7", "email": "u7@example.com"})
	if err := sess.SetToken(&oauth2.Token{AccessToken: access}); err != nil {
		t.Fatalf("setToken failed: %v", err)
	}

	if len(notified) != 2 || notified[1] == nil || notified[1].ID != "u-7" {
		t.Errorf("expected login notification for u-7, got %v", notified)
	}

	info, err := os.Stat(cfg.TokenPath())
	if err != nil {
		t.Fatalf("token file not written: %v", err)
	}
	if got := info.Mode().Perm(); got != 0600 {
		t.Errorf("expected token file mode 0600, got %v", got)
	}

	// A fresh session picks the token up from disk.
	reloaded := NewFileSession(cfg, nil)
	if ident := reloaded.Current(); ident == nil || ident.ID != "u-7" {
		t.Errorf("expected reloaded identity u-7, got %+v", ident)
	}
}

func TestClear(t *testing.T) {
	cfg := testConfig(t)
	sess := NewFileSession(cfg, nil)
	access := unsignedJWT(t, map[string]any{"user_id": "u-7"})
	if err := sess.SetToken(&oauth2.Token{AccessToken: access}); err != nil {
		t.Fatal(err)
	}

	var notified []*Identity
	defer sess.Subscribe(func(ident *Identity) {
		notified = append(notified, ident)
	})()

	if err := sess.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	if cfg.HasToken() {
		t.Error("expected token file removed")
	}
	if sess.Current() != nil {
		t.Error("expected signed-out session")
	}
	if len(notified) != 2 || notified[1] != nil {
		t.Errorf("expected replay then nil logout notification, got %v", notified)
	}

	// Clearing again is a no-op and must not notify.
	if err := sess.Clear(); err != nil {
		t.Fatalf("second clear failed: %v", err)
	}
	if len(notified) != 2 {
		t.Error("cleared session must not notify again")
	}
}

func TestUnsubscribe(t *testing.T) {
	sess := NewFileSession(testConfig(t), nil)

	calls := 0
	unsubscribe := sess.Subscribe(func(*Identity) { calls++ })
	unsubscribe()

	access := unsignedJWT(t, map[string]any{"user_id": "u-7"})
	if err := sess.SetToken(&oauth2.Token{AccessToken: access}); err != nil {
		t.Fatal(err)
	}

	if calls != 1 {
		t.Errorf("expected only the initial replay, got %d calls", calls)
	}
}

func TestOAuthConfig(t *testing.T) {
	cfg := testConfig(t)
	if got := NewFileSession(cfg, nil).OAuth(); got != nil {
		t.Error("expected no provider config without client_id")
	}

	cfg.Settings.Auth = config.AuthSettings{
		AuthURL:  "https://auth.example.com/authorize",
		TokenURL: "https://auth.example.com/token",
		ClientID: "client-1",
		Scopes:   []string{"tasks"},
	}
	oc := NewFileSession(cfg, nil).OAuth()
	if oc == nil {
		t.Fatal("expected provider config")
	}
	if oc.ClientID != "client-1" || oc.Endpoint.TokenURL != "https://auth.example.com/token" {
		t.Errorf("unexpected provider config: %+v", oc)
	}
}

func TestTokenPathInsideConfigDir(t *testing.T) {
	cfg := testConfig(t)
	if got, want := cfg.TokenPath(), filepath.Join(cfg.Dir, config.TokenFile); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
