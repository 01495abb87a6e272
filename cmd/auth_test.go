package cmd

import (
	"bytes"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"coaclient/internal/credstore"
)

func executeAuthCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newAuthCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func freeCallbackPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func registerAcme(t *testing.T, store *credstore.FileStore) {
	t.Helper()
	reg := credstore.Registration{
		Name:         "acme",
		ClientID:     "id123",
		ClientSecret: "secret456",
		Scopes:       credstore.Scopes{credstore.ScopeViewProfile},
	}
	if err := store.Put(reg); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
}

func TestAuthStatus(t *testing.T) {
	store := setupCmdEnv(t)

	output, err := executeAuthCommand(t, "status", "acme")
	if err != nil {
		t.Fatalf("auth status failed: %v", err)
	}
	if strings.TrimSpace(output) != "unregistered" {
		t.Errorf("expected unregistered, got %q", output)
	}

	registerAcme(t, store)
	output, err = executeAuthCommand(t, "status", "acme")
	if err != nil {
		t.Fatalf("auth status failed: %v", err)
	}
	if strings.TrimSpace(output) != "registered" {
		t.Errorf("expected registered, got %q", output)
	}

	tokens := credstore.TokenSet{RefreshToken: "r1", AccessToken: "a1", ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.SaveTokens("acme", tokens); err != nil {
		t.Fatalf("SaveTokens failed: %v", err)
	}
	output, err = executeAuthCommand(t, "status", "acme")
	if err != nil {
		t.Fatalf("auth status failed: %v", err)
	}
	if strings.TrimSpace(output) != "authorized" {
		t.Errorf("expected authorized, got %q", output)
	}
}

func TestAuthToken_NoStoredTokens(t *testing.T) {
	store := setupCmdEnv(t)
	registerAcme(t, store)

	_, err := executeAuthCommand(t, "token", "acme")
	if err == nil {
		t.Fatal("expected missing token to fail")
	}
	if getExitCode(err) != ExitCodeAuthRequired {
		t.Errorf("expected exit code %d, got %d", ExitCodeAuthRequired, getExitCode(err))
	}
}

func TestAuthToken_Fresh(t *testing.T) {
	store := setupCmdEnv(t)
	registerAcme(t, store)

	tokens := credstore.TokenSet{RefreshToken: "r1", AccessToken: "a1", ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.SaveTokens("acme", tokens); err != nil {
		t.Fatalf("SaveTokens failed: %v", err)
	}

	output, err := executeAuthCommand(t, "token", "acme")
	if err != nil {
		t.Fatalf("auth token failed: %v", err)
	}
	if strings.TrimSpace(output) != "a1" {
		t.Errorf("expected bare token on stdout, got %q", output)
	}
}

func TestAuthLogin_NoWait(t *testing.T) {
	port := freeCallbackPort(t)
	store := setupCmdEnv(t, fmt.Sprintf("oauth:\n  callbackPort: %d", port))
	registerAcme(t, store)

	output, err := executeAuthCommand(t, "login", "acme", "--no-wait")
	if err != nil {
		t.Fatalf("auth login --no-wait failed: %v", err)
	}
	if !strings.Contains(output, "https://accounts.coursera.org/oauth2/v1/auth?") {
		t.Errorf("expected authorization URL in output, got %q", output)
	}
	if !strings.Contains(output, "client_id=id123") {
		t.Errorf("expected client id in authorization URL, got %q", output)
	}
}

func TestAuthLogin_UnknownClient(t *testing.T) {
	port := freeCallbackPort(t)
	setupCmdEnv(t, fmt.Sprintf("oauth:\n  callbackPort: %d", port))

	_, err := executeAuthCommand(t, "login", "ghost", "--no-wait")
	if err == nil {
		t.Fatal("expected unknown client to fail")
	}
	if getExitCode(err) != ExitCodeAuthRequired {
		t.Errorf("expected exit code %d, got %d", ExitCodeAuthRequired, getExitCode(err))
	}
}

func TestAuthLogout(t *testing.T) {
	store := setupCmdEnv(t)
	registerAcme(t, store)

	tokens := credstore.TokenSet{RefreshToken: "r1", AccessToken: "a1", ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.SaveTokens("acme", tokens); err != nil {
		t.Fatalf("SaveTokens failed: %v", err)
	}

	if _, err := executeAuthCommand(t, "logout", "acme"); err != nil {
		t.Fatalf("auth logout failed: %v", err)
	}

	if _, ok, _ := store.LoadTokens("acme"); ok {
		t.Error("tokens should be cleared after logout")
	}
	if _, ok, _ := store.Get("acme"); !ok {
		t.Error("registration must survive logout")
	}
}
