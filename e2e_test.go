//go:build e2e

package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var causaBin string

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "causa-e2e-*")
	if err != nil {
		panic("failed to create temp dir: " + err.Error())
	}
	defer os.RemoveAll(tmp)

	causaBin = filepath.Join(tmp, "causa")
	build := exec.Command("go", "build", "-ldflags", "-X github.com/msalah0e/causa/cmd.version=1.5.0-test", "-o", causaBin, ".")
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		panic("failed to build causa: " + err.Error())
	}

	os.Exit(m.Run())
}

const incident = `id: inc-7
title: Ladder fall
nodes:
  - id: f
    numero: 1
    fact: Technician falls from ladder
    factType: variacion
    nodeType: final_event
  - id: a
    numero: 2
    fact: Ladder slips
    factType: variacion
    nodeType: intermediate
    parentNodes: [f]
  - id: b
    numero: 3
    fact: Floor is wet
    factType: variacion
    nodeType: root_cause
    parentNodes: [a]
  - id: c
    numero: 4
    fact: No anti-slip feet
    factType: permanente
    nodeType: root_cause
`

// runCausa executes the causa binary with an isolated HOME directory.
func runCausa(t *testing.T, home string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	cmd := exec.Command(causaBin, args...)
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, ".config"),
		"NO_COLOR=1",
	)

	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	exitCode = 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("failed to run causa %v: %v", args, err)
		}
	}
	return outBuf.String(), errBuf.String(), exitCode
}

func writeIncident(t *testing.T) (home, path string) {
	t.Helper()
	home = t.TempDir()
	path = filepath.Join(home, "inc.yaml")
	if err := os.WriteFile(path, []byte(incident), 0o644); err != nil {
		t.Fatal(err)
	}
	return home, path
}

// --- Core CLI ---

func TestE2E_Version(t *testing.T) {
	out, _, code := runCausa(t, t.TempDir(), "--version")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "1.5.0") {
		t.Errorf("expected version output to contain '1.5.0', got %q", out)
	}
}

func TestE2E_Help(t *testing.T) {
	out, _, code := runCausa(t, t.TempDir(), "--help")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "Available Commands") {
		t.Errorf("expected help to contain 'Available Commands', got %q", out)
	}
}

func TestE2E_RequiresSource(t *testing.T) {
	_, stderr, code := runCausa(t, t.TempDir(), "tree", "show")
	if code == 0 {
		t.Fatal("expected non-zero exit without --file or --analysis")
	}
	if !strings.Contains(stderr, "--analysis") {
		t.Errorf("expected hint about --analysis, got %q", stderr)
	}
}

// --- Tree ---

func TestE2E_TreeShow(t *testing.T) {
	home, path := writeIncident(t)
	out, _, code := runCausa(t, home, "--offline", "tree", "show", "--file", path)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, want := range []string{"#1 Technician falls from ladder", "#3 Floor is wet", "Detached from the tree:", "#4 No anti-slip feet"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected tree to contain %q, got:\n%s", want, out)
		}
	}
}

func TestE2E_TreeEligible(t *testing.T) {
	home, path := writeIncident(t)
	out, _, code := runCausa(t, home, "tree", "eligible", "a", "--file", path)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if strings.Contains(out, "Floor is wet") {
		t.Errorf("direct cause b must not be eligible as a parent of a:\n%s", out)
	}
	if !strings.Contains(out, "No anti-slip feet") {
		t.Errorf("expected c to be eligible:\n%s", out)
	}
}

func TestE2E_TreeLink(t *testing.T) {
	home, path := writeIncident(t)
	out, stderr, code := runCausa(t, home, "--offline", "tree", "link", "c", "--file", path, "--add", "a=probable", "--add", "#1")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(out, "conjunctive") {
		t.Errorf("two parents should give a conjunctive relation, got:\n%s", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "parentNodes:") || !strings.Contains(string(data), "- a") {
		t.Errorf("expected file to hold the new parents, got:\n%s", data)
	}

	out, _, code = runCausa(t, home, "log")
	if code != 0 || !strings.Contains(out, "update") {
		t.Errorf("expected the update in the activity log, got (%d):\n%s", code, out)
	}
}

func TestE2E_TreeLinkRejectsCycle(t *testing.T) {
	home, path := writeIncident(t)
	_, stderr, code := runCausa(t, home, "tree", "link", "a", "--file", path, "--add", "b")
	if code == 0 {
		t.Fatal("expected linking a to its own cause to fail")
	}
	if !strings.Contains(stderr, "cycle") {
		t.Errorf("expected cycle error, got %q", stderr)
	}
}

func TestE2E_TreeCheck(t *testing.T) {
	home, path := writeIncident(t)
	out, _, code := runCausa(t, home, "tree", "check", path)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "1 isolated") {
		t.Errorf("expected isolated node warning, got:\n%s", out)
	}

	bad := filepath.Join(home, "bad.yaml")
	os.WriteFile(bad, []byte("id: x\nnodes:\n  - id: a\n    numero: 1\n    fact: A\n    factType: variacion\n    nodeType: intermediate\n"), 0o644)
	_, _, code = runCausa(t, home, "tree", "check", path, bad)
	if code == 0 {
		t.Error("expected check to fail for an analysis without a final event")
	}
}

func TestE2E_ExportDOT(t *testing.T) {
	home, path := writeIncident(t)
	out, _, code := runCausa(t, home, "tree", "export", "--file", path)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.HasPrefix(out, "digraph") || !strings.Contains(out, `"b" -> "a"`) {
		t.Errorf("unexpected DOT output:\n%s", out)
	}
}

// --- Config ---

func TestE2E_ConfigInit(t *testing.T) {
	home := t.TempDir()
	out, _, code := runCausa(t, home, "config", "init")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "config.toml") {
		t.Errorf("expected config path in output, got %q", out)
	}
	if _, err := os.Stat(filepath.Join(home, ".config", "causa", "config.toml")); err != nil {
		t.Errorf("config file not written: %v", err)
	}
}
