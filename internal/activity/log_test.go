package activity

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLogAndRead(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := Log("update", "inc-1", "a", "chain: [f]", "api"); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if err := Log("add", "inc-1", "b", "root_cause", "inc.yaml"); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	entries, err := Read(0)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != "add" {
		t.Errorf("expected newest entry first, got %q", entries[0].Action)
	}

	limited, _ := Read(1)
	if len(limited) != 1 {
		t.Errorf("expected 1 entry with count=1, got %d", len(limited))
	}
}

func TestReadMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	entries, err := Read(10)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if entries != nil {
		t.Errorf("expected no entries, got %v", entries)
	}
}

func TestReadSkipsCorruptLines(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	Log("update", "inc-1", "a", "", "api")

	f, _ := os.OpenFile(filepath.Join(tmp, "causa", "activity.jsonl"), os.O_APPEND|os.O_WRONLY, 0o644)
	f.WriteString("not json\n\n")
	f.Close()

	entries, err := Read(0)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 valid entry, got %d", len(entries))
	}
}

func TestSearch(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	Log("update", "INC-7", "a", "conjunctive", "api")
	Log("update", "inc-8", "b", "chain", "api")

	results, err := Search("inc-7", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].Node != "a" {
		t.Errorf("expected one hit on node a, got %v", results)
	}

	results, _ = Search("UPDATE", 1)
	if len(results) != 1 {
		t.Errorf("expected search to honour count, got %d", len(results))
	}
}

func TestClear(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	Log("update", "inc-1", "a", "", "api")

	if err := Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := Clear(); err != nil {
		t.Fatalf("second Clear should be a no-op, got %v", err)
	}
	entries, _ := Read(0)
	if len(entries) != 0 {
		t.Errorf("expected empty log after clear, got %d", len(entries))
	}
}
