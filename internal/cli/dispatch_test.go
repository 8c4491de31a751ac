package cli

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"todosync/internal/commands"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/identity"
	"todosync/internal/syncer"
	"todosync/internal/testutil"
)

// fakeFactory builds a dispatch stack over fakes. A nil ident means
// signed out.
func fakeFactory(gw *testutil.FakeGateway, ident *identity.Identity) Factory {
	return func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (identity.Session, *syncer.Synchronizer, error) {
		sess := testutil.NewFakeSession(ident, "tok")
		return sess, syncer.New(gw, testutil.NewFakeStore(), logger), nil
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	var outBuf, errBuf bytes.Buffer
	d := NewDispatcher(commands.DefaultRegistry, fakeFactory(testutil.NewFakeGateway("alice"), nil))

	code := d.Run(context.Background(), []string{"frobnicate"}, &outBuf, &errBuf)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.Contains(errBuf.String(), "unknown command: frobnicate") {
		t.Errorf("expected unknown command error, got %q", errBuf.String())
	}
}

func TestDispatchFlagBeforeCommand(t *testing.T) {
	var outBuf, errBuf bytes.Buffer
	d := NewDispatcher(commands.DefaultRegistry, fakeFactory(testutil.NewFakeGateway("alice"), nil))

	code := d.Run(context.Background(), []string{"--quiet", "list"}, &outBuf, &errBuf)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.Contains(errBuf.String(), "unknown command") {
		t.Errorf("expected unknown command error, got %q", errBuf.String())
	}
}

func TestDispatchUnknownFlag(t *testing.T) {
	var outBuf, errBuf bytes.Buffer
	d := NewDispatcher(commands.DefaultRegistry, fakeFactory(testutil.NewFakeGateway("alice"), nil))

	code := d.Run(context.Background(), []string{"version", "--bogus"}, &outBuf, &errBuf)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.Contains(errBuf.String(), "unknown flag: -bogus") {
		t.Errorf("expected unknown flag error, got %q", errBuf.String())
	}
}

func TestDispatchNotLoggedIn(t *testing.T) {
	var outBuf, errBuf bytes.Buffer
	d := NewDispatcher(commands.DefaultRegistry, fakeFactory(testutil.NewFakeGateway("alice"), nil))

	code := d.Run(context.Background(), []string{"list", "--config", t.TempDir()}, &outBuf, &errBuf)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.Contains(errBuf.String(), "not logged in") {
		t.Errorf("expected not logged in error, got %q", errBuf.String())
	}
}

func TestDispatchNoArgsRunsList(t *testing.T) {
	gw := testutil.NewFakeGateway("alice")
	gw.SeedTask("1", "the task", "", false)
	ident := &identity.Identity{ID: "alice"}

	var outBuf, errBuf bytes.Buffer
	d := NewDispatcher(commands.DefaultRegistry, fakeFactory(gw, ident))

	// No-arg invocations fall back to the default config dir, which may
	// not exist; point it elsewhere via the environment.
	t.Setenv("TODOSYNC_CONFIG", t.TempDir())
	code := d.Run(context.Background(), nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, errBuf.String())
	}
	if !strings.Contains(outBuf.String(), "the task") {
		t.Errorf("expected listing, got %q", outBuf.String())
	}
}

func TestDispatchAuthCommandFlow(t *testing.T) {
	gw := testutil.NewFakeGateway("alice")
	gw.SeedTask("1", "task one", "", false)
	ident := &identity.Identity{ID: "alice"}

	var outBuf, errBuf bytes.Buffer
	d := NewDispatcher(commands.DefaultRegistry, fakeFactory(gw, ident))

	code := d.Run(context.Background(), []string{"done", "--config", t.TempDir(), "1"}, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, errBuf.String())
	}
	if !gw.Remote()[0].Completed {
		t.Error("expected the task marked completed through dispatch")
	}
}

func TestDispatchNoAuthCommandSkipsFactory(t *testing.T) {
	calls := 0
	factory := func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (identity.Session, *syncer.Synchronizer, error) {
		calls++
		return nil, nil, nil
	}

	var outBuf, errBuf bytes.Buffer
	d := NewDispatcher(commands.DefaultRegistry, factory)

	code := d.Run(context.Background(), []string{"version", "--config", t.TempDir()}, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if calls != 0 {
		t.Errorf("version must not build the auth stack, factory ran %d times", calls)
	}
}
