package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rickchristie/dali"
)

func TestDoctorValidConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfigFile(t, dir, validServerConfig())

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	if strings.Contains(output, "✗") {
		t.Fatalf("expected all checks to pass, but found failures in output:\n%s", output)
	}
	for _, want := range []string{
		"Config file readable",
		"Config file parses",
		"connection endpoint (http://localhost:8000/sql)",
		"connection.namespace/database are set (app/prod)",
		"MCP endpoint on :",
		"All regex patterns compile",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q check in output:\n%s", want, output)
		}
	}

	if !strings.Contains(output, "claude mcp add --transport http surrealdb") {
		t.Fatalf("expected 'claude mcp add --transport http surrealdb' command in output:\n%s", output)
	}
	for _, snippet := range []string{"Claude Code", `"mcpServers"`, `"type": "http"`} {
		if !strings.Contains(output, snippet) {
			t.Fatalf("expected %s in snippets:\n%s", snippet, output)
		}
	}
}

func TestDoctorYAMLConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfigFileNamed(t, dir, "config.yaml", validServerConfig())

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()
	if strings.Contains(output, "✗") {
		t.Fatalf("expected YAML config to pass all checks:\n%s", output)
	}
	if !strings.Contains(output, "Agent Connection Snippets") {
		t.Fatalf("expected agent snippets for valid YAML config:\n%s", output)
	}
}

func TestDoctorMissingConfig(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := doctor(&buf, false, "/nonexistent/path/config.json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "✗") {
		t.Fatalf("expected failure mark (✗) for missing config:\n%s", output)
	}
	if strings.Contains(output, "Agent Connection Snippets") {
		t.Fatalf("expected no agent snippets when config is missing:\n%s", output)
	}
}

func TestDoctorInvalidJSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{invalid json}"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "✗ Config file parses") {
		t.Fatalf("expected failed parse check in output:\n%s", output)
	}
	if strings.Contains(output, "Agent Connection Snippets") {
		t.Fatalf("expected no agent snippets when JSON is invalid:\n%s", output)
	}
}

func TestDoctorInvalidEndpoint(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := validServerConfig()
	cfg.Connection.Endpoint = "db.internal:8000/sql"
	path := writeConfigFile(t, dir, cfg)

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "✗ connection.endpoint db.internal:8000/sql") {
		t.Fatalf("expected endpoint failure in output:\n%s", output)
	}
	if !strings.Contains(output, "Fix the issues above") {
		t.Fatalf("expected 'Fix the issues above' message in output:\n%s", output)
	}
}

func TestDoctorDefaultNamespace(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := validServerConfig()
	cfg.Connection.Namespace = ""
	path := writeConfigFile(t, dir, cfg)

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "using defaults (test/test)") {
		t.Fatalf("expected defaults notice in output:\n%s", buf.String())
	}
}

func TestDoctorInvalidRegex(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := validServerConfig()
	cfg.ErrorPrompts = []dali.ErrorPromptRule{
		{Pattern: "[invalid(regex", Message: "test"},
	}
	path := writeConfigFile(t, dir, cfg)

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "error_prompts[0] regex compiles") {
		t.Fatalf("expected 'error_prompts[0] regex compiles' check in output:\n%s", output)
	}
}

func TestDoctorHooksRequireTimeout(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := validServerConfig()
	cfg.ServerHooks.BeforeQuery = []dali.HookEntry{{Pattern: ".*", Command: "/bin/true"}}
	path := writeConfigFile(t, dir, cfg)

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "✗ default_hook_timeout_seconds is > 0") {
		t.Fatalf("expected hook timeout failure in output:\n%s", buf.String())
	}
}

func TestDoctorPortInSnippets(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := validServerConfig()
	cfg.Server.Port = 9999
	path := writeConfigFile(t, dir, cfg)

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Claude Code command + mcpServers JSON
	expectedURL := "http://localhost:9999/mcp"
	if count := strings.Count(buf.String(), expectedURL); count != 2 {
		t.Fatalf("expected %s to appear 2 times in agent snippets, found %d times:\n%s", expectedURL, count, buf.String())
	}
}

func TestDoctorServerSettingsMatchServe(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := validServerConfig()
	cfg.Server.HealthCheckEnabled = true
	cfg.Server.HealthCheckPath = ""
	path := writeConfigFile(t, dir, cfg)

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "✗ " + validateServerSettings(cfg.Server).Error()
	if !strings.Contains(buf.String(), want) {
		t.Fatalf("expected %q in output:\n%s", want, buf.String())
	}
}

func TestDoctorHookRegexChecked(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := validServerConfig()
	cfg.DefaultHookTimeoutSeconds = 5
	cfg.ServerHooks.AfterQuery = []dali.HookEntry{{Pattern: "(unclosed", Command: "/bin/true"}}
	path := writeConfigFile(t, dir, cfg)

	var buf bytes.Buffer
	if err := doctor(&buf, false, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "✗ server_hooks.after_query[0] regex compiles") {
		t.Fatalf("expected hook regex failure in output:\n%s", buf.String())
	}
}
