package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"cmdk/internal/dispatch"
)

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestActionMenuShortcutPicks(t *testing.T) {
	m := NewActionMenu("Claude (auto)", "git status")

	out, cmd := m.Update(keyRune('c'))
	menu := out.(ActionMenu)
	if menu.Choice() != dispatch.ActionCopy {
		t.Fatalf("choice = %v, want copy", menu.Choice())
	}
	if cmd == nil {
		t.Fatal("expected quit command after shortcut")
	}
}

func TestActionMenuArrowsAndEnter(t *testing.T) {
	m := NewActionMenu("Codex", "ls -la")

	out, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	out, _ = out.(ActionMenu).Update(tea.KeyMsg{Type: tea.KeyDown})
	out, cmd := out.(ActionMenu).Update(tea.KeyMsg{Type: tea.KeyEnter})
	menu := out.(ActionMenu)
	if menu.Choice() != dispatch.ActionFollowUp {
		t.Fatalf("choice = %v, want follow-up", menu.Choice())
	}
	if cmd == nil {
		t.Fatal("expected quit command after enter")
	}
}

func TestActionMenuDefaultIsInsert(t *testing.T) {
	m := NewActionMenu("Claude", "pwd")
	out, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := out.(ActionMenu).Choice(); got != dispatch.ActionInsert {
		t.Fatalf("choice = %v, want insert", got)
	}
}

func TestActionMenuEscQuits(t *testing.T) {
	m := NewActionMenu("Claude", "pwd")
	out, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if got := out.(ActionMenu).Choice(); got != dispatch.ActionQuit {
		t.Fatalf("choice = %v, want quit", got)
	}
}

func TestActionMenuCursorStaysInRange(t *testing.T) {
	m := NewActionMenu("Claude", "pwd")

	out, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	menu := out.(ActionMenu)
	if menu.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", menu.cursor)
	}

	for i := 0; i < 10; i++ {
		o, _ := menu.Update(tea.KeyMsg{Type: tea.KeyDown})
		menu = o.(ActionMenu)
	}
	if menu.cursor != len(actionEntries)-1 {
		t.Fatalf("cursor = %d, want %d", menu.cursor, len(actionEntries)-1)
	}
}

func TestActionMenuView(t *testing.T) {
	m := NewActionMenu("Claude (auto)", "git status")

	view := m.View()
	if !strings.Contains(view, "Claude (auto)") {
		t.Fatalf("view missing backend name: %q", view)
	}
	if !strings.Contains(view, "Insert into terminal") {
		t.Fatalf("view missing insert row: %q", view)
	}

	// 做出选择后视图清空 / the view clears once a choice is made
	out, _ := m.Update(keyRune('i'))
	if out.(ActionMenu).View() != "" {
		t.Fatal("expected empty view after choice")
	}
}

func TestActionMenuResizeRerendersPreview(t *testing.T) {
	m := NewActionMenu("Mock (test)", "run `make test` twice")

	out, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	menu := out.(ActionMenu)
	if menu.width != 40 {
		t.Fatalf("width = %d, want 40", menu.width)
	}
	if !strings.Contains(menu.preview, "make test") {
		t.Fatalf("preview missing answer text: %q", menu.preview)
	}
}
