package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"coaclient/internal/credstore"
)

// setupCmdEnv points the --config directory at a temp dir whose config.yaml
// redirects credential storage into another temp dir. Globals are restored on
// cleanup so tests stay independent.
func setupCmdEnv(t *testing.T, extraYAML ...string) *credstore.FileStore {
	t.Helper()

	confDir := t.TempDir()
	storageDir := t.TempDir()
	content := "storage:\n  dir: " + storageDir + "\n" + strings.Join(extraYAML, "\n")
	if err := os.WriteFile(filepath.Join(confDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config.yaml: %v", err)
	}

	originalConfigDir := configDir
	originalScopes := clientScopes
	t.Cleanup(func() {
		configDir = originalConfigDir
		clientScopes = originalScopes
	})
	configDir = confDir
	clientScopes = nil

	store, err := credstore.NewFileStore(storageDir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return store
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newClientCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestClientAdd(t *testing.T) {
	store := setupCmdEnv(t)

	output, err := executeCommand(t, "add", "acme", "id123", "secret456")
	if err != nil {
		t.Fatalf("client add failed: %v", err)
	}
	if !strings.Contains(output, "Client acme registered") {
		t.Errorf("unexpected output: %q", output)
	}

	reg, ok, err := store.Get("acme")
	if err != nil || !ok {
		t.Fatalf("registration not persisted: ok=%v err=%v", ok, err)
	}
	if reg.Scopes.String() != "view_profile" {
		t.Errorf("expected default scope, got %q", reg.Scopes.String())
	}
}

func TestClientAdd_BusinessScope(t *testing.T) {
	store := setupCmdEnv(t)

	_, err := executeCommand(t, "add", "acme", "id123", "secret456", "--scope", "access_business_api")
	if err != nil {
		t.Fatalf("client add failed: %v", err)
	}

	reg, _, _ := store.Get("acme")
	if reg.Scopes.String() != "view_profile+access_business_api" {
		t.Errorf("expected combined scope, got %q", reg.Scopes.String())
	}
}

func TestClientAdd_InvalidScope(t *testing.T) {
	setupCmdEnv(t)

	_, err := executeCommand(t, "add", "acme", "id123", "secret456", "--scope", "root_access")
	if err == nil {
		t.Fatal("expected invalid scope to fail")
	}
	if getExitCode(err) != ExitCodeError {
		t.Errorf("expected exit code %d, got %d", ExitCodeError, getExitCode(err))
	}
}

func TestClientRemove(t *testing.T) {
	store := setupCmdEnv(t)

	if _, err := executeCommand(t, "add", "acme", "id123", "secret456"); err != nil {
		t.Fatalf("client add failed: %v", err)
	}
	if _, err := executeCommand(t, "remove", "acme"); err != nil {
		t.Fatalf("client remove failed: %v", err)
	}

	if _, ok, _ := store.Get("acme"); ok {
		t.Error("registration should be gone after remove")
	}
}

func TestClientList_Populated(t *testing.T) {
	setupCmdEnv(t)

	if _, err := executeCommand(t, "add", "acme", "id123", "secret456"); err != nil {
		t.Fatalf("client add failed: %v", err)
	}
	if _, err := executeCommand(t, "add", "globex", "id999", "secret999", "--scope", "access_business_api"); err != nil {
		t.Fatalf("client add failed: %v", err)
	}

	output, err := executeCommand(t, "list")
	if err != nil {
		t.Fatalf("client list failed: %v", err)
	}

	for _, want := range []string{"acme", "id123", "view_profile", "globex", "id999", "view_profile+access_business_api", "registered"} {
		if !strings.Contains(output, want) {
			t.Errorf("list output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "secret456") || strings.Contains(output, "secret999") {
		t.Error("list output must not leak client secrets")
	}
}

func TestClientList_Empty(t *testing.T) {
	setupCmdEnv(t)

	output, err := executeCommand(t, "list")
	if err != nil {
		t.Fatalf("client list failed: %v", err)
	}
	if !strings.Contains(output, "No clients registered") {
		t.Errorf("unexpected output: %q", output)
	}
}
