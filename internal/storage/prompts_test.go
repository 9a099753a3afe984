package storage

import (
	"path/filepath"
	"testing"
)

func TestPromptHistoryRecent(t *testing.T) {
	h := NewPromptHistory(filepath.Join(t.TempDir(), "prompt_history"))

	for _, p := range []string{"list files", "count lines", "list files", "disk usage"} {
		if err := h.Add(p); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	got := h.Recent(10)
	want := []string{"disk usage", "list files", "count lines"}
	if len(got) != len(want) {
		t.Fatalf("Recent = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Recent[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPromptHistoryLimit(t *testing.T) {
	h := NewPromptHistory(filepath.Join(t.TempDir(), "prompt_history"))
	for _, p := range []string{"a", "b", "c"} {
		if err := h.Add(p); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	got := h.Recent(2)
	if len(got) != 2 || got[0] != "c" || got[1] != "b" {
		t.Fatalf("Recent(2) = %v", got)
	}
}

func TestPromptHistoryMissingFile(t *testing.T) {
	h := NewPromptHistory(filepath.Join(t.TempDir(), "nope"))
	if got := h.Recent(5); got != nil {
		t.Fatalf("missing file should read as empty, got %v", got)
	}
}

func TestPromptHistorySkipsBlank(t *testing.T) {
	h := NewPromptHistory(filepath.Join(t.TempDir(), "prompt_history"))
	if err := h.Add("   "); err != nil {
		t.Fatalf("Add blank: %v", err)
	}
	if got := h.Recent(5); got != nil {
		t.Fatalf("blank entries should be dropped, got %v", got)
	}
}
