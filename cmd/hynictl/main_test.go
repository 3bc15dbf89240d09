package main

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("executing %v: %v", args, err)
	}
	return out.String()
}

func TestSchemaList_IncludesBuiltinProviders(t *testing.T) {
	out := runCmd(t, "schema", "list")
	if !strings.Contains(out, "openai") || !strings.Contains(out, "anthropic") {
		t.Errorf("expected builtin providers in output, got %q", out)
	}
}

func TestSchemaValidate_ReportsOpenAI(t *testing.T) {
	out := runCmd(t, "schema", "validate", "openai")
	if !strings.Contains(out, "ok") {
		t.Errorf("expected a trailing ok, got %q", out)
	}
}

func TestSchemaDryRun_PrintsBuiltRequest(t *testing.T) {
	out := runCmd(t, "schema", "dry-run", "openai", "--message", "Hello there")
	if !strings.Contains(out, `"role": "user"`) {
		t.Errorf("expected the built request to contain a user message, got %q", out)
	}
}

func TestVersionCmd_PrintsVersionString(t *testing.T) {
	out := runCmd(t, "version")
	if strings.TrimSpace(out) == "" {
		t.Error("expected a non-empty version string")
	}
}

func TestCredSetAndList_RoundTrip(t *testing.T) {
	dbPath := t.TempDir() + "/creds.db"
	_ = runCmd(t, "cred", "set", "--db", dbPath, "work", "openai", "sk-test-123456")

	out := runCmd(t, "cred", "list", "--db", dbPath)
	if !strings.Contains(out, "work") || !strings.Contains(out, "openai") {
		t.Errorf("expected the saved credential in the listing, got %q", out)
	}
	if strings.Contains(out, "sk-test-123456") {
		t.Error("expected the API key to be masked in the listing")
	}
}

func TestSnapshotImportExportList_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := dir + "/snapshots.db"
	stateFile := dir + "/state.json"
	if err := os.WriteFile(stateFile, []byte(`{"provider":"openai","messages":[]}`), 0o600); err != nil {
		t.Fatalf("writing state file: %v", err)
	}

	_ = runCmd(t, "snapshot", "import", "--db", dbPath, "--provider", "openai", "convo-1", stateFile)

	out := runCmd(t, "snapshot", "list", "--db", dbPath)
	if !strings.Contains(out, "convo-1") {
		t.Errorf("expected convo-1 in snapshot listing, got %q", out)
	}

	outFile := dir + "/roundtrip.json"
	_ = runCmd(t, "snapshot", "export", "--db", dbPath, "convo-1", outFile)
}
