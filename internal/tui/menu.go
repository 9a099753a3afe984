// Package tui 提供回答落地前的交互菜单：动作选择、设置与最近提示词
// Package tui provides the interactive menus shown around an exchange:
// the action picker, the settings editor, and the recent-prompt picker.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cmdk/internal/dispatch"
)

// actionEntry 动作菜单中的一行 / one row of the action menu.
type actionEntry struct {
	action   dispatch.Action
	shortcut string
	label    string
}

var actionEntries = []actionEntry{
	{dispatch.ActionInsert, "i", "Insert into terminal"},
	{dispatch.ActionCopy, "c", "Copy to clipboard"},
	{dispatch.ActionFollowUp, "f", "Ask a follow-up"},
	{dispatch.ActionNewSession, "n", "Start a new session"},
	{dispatch.ActionQuit, "q", "Quit"},
}

// ActionMenu 展示后端回答并等待用户挑一个动作
// ActionMenu shows the backend answer and waits for the user to pick
// an action. Insert is preselected.
type ActionMenu struct {
	backend string
	answer  string
	preview string

	cursor int
	choice dispatch.Action
	done   bool

	width int
	theme Theme
	keys  KeyMap
}

// NewActionMenu 构造动作菜单。backend 是后端展示名。
// NewActionMenu builds the action picker. backend is the display name.
func NewActionMenu(backend, answer string) ActionMenu {
	m := ActionMenu{
		backend: backend,
		answer:  answer,
		width:   80,
		theme:   DarkTheme(),
		keys:    DefaultKeyMap(),
	}
	m.preview = RenderMarkdown(answer, m.width-4)
	return m
}

func (m ActionMenu) Init() tea.Cmd { return nil }

// Update 处理按键：快捷键直选，方向键加回车同样可用
// Update handles keys: shortcuts pick directly, arrows plus enter work too.
func (m ActionMenu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.preview = RenderMarkdown(m.answer, m.width-4)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Cancel):
			m.choice = dispatch.ActionQuit
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(actionEntries)-1 {
				m.cursor++
			}
			return m, nil
		case key.Matches(msg, m.keys.Select):
			m.choice = actionEntries[m.cursor].action
			m.done = true
			return m, tea.Quit
		}
		for _, e := range actionEntries {
			if msg.String() == e.shortcut {
				m.choice = e.action
				m.done = true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m ActionMenu) View() string {
	if m.done {
		return ""
	}

	title := m.theme.TitleStyle.Render("Response from " + m.backend)
	panel := m.theme.AnswerStyle.Width(m.width - 2).Render(m.preview)

	rows := make([]string, 0, len(actionEntries))
	for i, e := range actionEntries {
		label := fmt.Sprintf("[%s] %s", e.shortcut, e.label)
		if i == m.cursor {
			rows = append(rows, m.theme.SelectedStyle.Render(" ▸ "+label+" "))
		} else {
			rows = append(rows, m.theme.ItemStyle.Render("   "+label))
		}
	}
	menu := strings.Join(rows, "\n")

	hint := m.theme.HintStyle.Render("↑/↓ move · enter select · esc quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		panel,
		"",
		menu,
		"",
		hint,
	) + "\n"
}

// Choice 返回用户最终选择的动作 / the action the user picked.
func (m ActionMenu) Choice() dispatch.Action { return m.choice }

// RunActionMenu 内联运行动作菜单直至用户做出选择
// RunActionMenu runs the picker inline until the user chooses.
func RunActionMenu(backend, answer string) (dispatch.Action, error) {
	out, err := tea.NewProgram(NewActionMenu(backend, answer)).Run()
	if err != nil {
		return dispatch.ActionQuit, err
	}
	menu, ok := out.(ActionMenu)
	if !ok {
		return dispatch.ActionQuit, fmt.Errorf("unexpected model type %T", out)
	}
	return menu.Choice(), nil
}
