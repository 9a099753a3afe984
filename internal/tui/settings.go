package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cmdk/internal/config"
	"cmdk/internal/provider"
)

// backendKinds 设置菜单中后端的轮换顺序
// backendKinds is the cycle order of backends in the settings menu.
var backendKinds = []string{
	provider.KindAuto,
	provider.KindClaude,
	provider.KindCodex,
	provider.KindCustom,
	provider.KindMock,
	provider.KindAPI,
}

// SettingsMenu 编辑上下文隐私开关与后端选择
// SettingsMenu edits the context privacy toggles and the backend
// selection. Nothing is persisted here; the caller writes the result
// back when Saved reports true.
type SettingsMenu struct {
	fields  []config.ContextField
	toggles config.ContextConfig
	backend string

	cursor int
	saved  bool
	done   bool

	width int
	theme Theme
	keys  KeyMap
}

// NewSettingsMenu 以当前配置为初值构造设置菜单
// NewSettingsMenu seeds the menu with the current configuration.
func NewSettingsMenu(toggles config.ContextConfig, backend string) SettingsMenu {
	return SettingsMenu{
		fields:  config.ContextFields(),
		toggles: toggles,
		backend: backend,
		width:   80,
		theme:   DarkTheme(),
		keys:    DefaultKeyMap(),
	}
}

// backendRow 后端行排在所有开关之后 / the backend row sits below the toggles.
func (m SettingsMenu) backendRow() int { return len(m.fields) }

func (m SettingsMenu) Init() tea.Cmd { return nil }

func (m SettingsMenu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Cancel):
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Save):
			m.saved = true
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.cursor < m.backendRow() {
				m.cursor++
			}
			return m, nil
		case key.Matches(msg, m.keys.Left):
			if m.cursor == m.backendRow() {
				m.cycleBackend(-1)
			}
			return m, nil
		case key.Matches(msg, m.keys.Right):
			if m.cursor == m.backendRow() {
				m.cycleBackend(1)
			}
			return m, nil
		case key.Matches(msg, m.keys.Toggle), key.Matches(msg, m.keys.Select):
			if m.cursor == m.backendRow() {
				m.cycleBackend(1)
				return m, nil
			}
			f := m.fields[m.cursor]
			if v, ok := m.toggles.Get(f.Key); ok {
				m.toggles.Set(f.Key, !v)
			}
			return m, nil
		}
		switch msg.String() {
		case "a":
			m.toggles.SetAll(true)
		case "x":
			m.toggles.SetAll(false)
		}
	}
	return m, nil
}

func (m SettingsMenu) View() string {
	if m.done {
		return ""
	}

	title := m.theme.TitleStyle.Render("Context Settings")

	rows := make([]string, 0, len(m.fields)+1)
	for i, f := range m.fields {
		on, _ := m.toggles.Get(f.Key)
		state := m.theme.ToggleOffStyle.Render("[off]")
		if on {
			state = m.theme.ToggleOnStyle.Render("[on ]")
		}
		line := fmt.Sprintf("%s %s", state, f.Label)
		if i == m.cursor {
			rows = append(rows, m.theme.SelectedStyle.Render(" ▸ ")+line)
		} else {
			rows = append(rows, "   "+line)
		}
	}

	backend := fmt.Sprintf("Backend: %s", m.theme.ShortcutStyle.Render(m.backend))
	if m.cursor == m.backendRow() {
		rows = append(rows, m.theme.SelectedStyle.Render(" ▸ ")+backend)
	} else {
		rows = append(rows, "   "+backend)
	}

	hint := m.theme.HintStyle.Render(
		"space toggle · ←/→ backend · a all on · x all off · s save · esc cancel")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		strings.Join(rows, "\n"),
		"",
		hint,
	) + "\n"
}

func (m *SettingsMenu) cycleBackend(step int) {
	idx := 0
	for i, k := range backendKinds {
		if k == m.backend {
			idx = i
			break
		}
	}
	idx = (idx + step + len(backendKinds)) % len(backendKinds)
	m.backend = backendKinds[idx]
}

// Saved 报告用户是否按保存退出 / whether the user saved on exit.
func (m SettingsMenu) Saved() bool { return m.saved }

// Toggles 返回编辑后的开关 / the edited toggles.
func (m SettingsMenu) Toggles() config.ContextConfig { return m.toggles }

// Backend 返回编辑后的后端选择 / the edited backend kind.
func (m SettingsMenu) Backend() string { return m.backend }

// RunSettings 运行设置菜单，返回编辑结果以及用户是否保存
// RunSettings runs the settings menu and reports the edited toggles,
// the backend kind, and whether the user chose to save.
func RunSettings(toggles config.ContextConfig, backend string) (config.ContextConfig, string, bool, error) {
	out, err := tea.NewProgram(NewSettingsMenu(toggles, backend)).Run()
	if err != nil {
		return toggles, backend, false, err
	}
	menu, ok := out.(SettingsMenu)
	if !ok {
		return toggles, backend, false, fmt.Errorf("unexpected model type %T", out)
	}
	return menu.Toggles(), menu.Backend(), menu.Saved(), nil
}
