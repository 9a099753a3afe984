package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PromptPicker 从最近提示词中挑一条重新提问
// PromptPicker picks one of the recent prompts to ask again. Rows are
// numbered so 1-9 select directly.
type PromptPicker struct {
	prompts []string
	cursor  int
	choice  string
	done    bool

	width int
	theme Theme
	keys  KeyMap
}

// NewPromptPicker 构造最近提示词选择器，prompts 按新到旧排列
// NewPromptPicker builds the picker; prompts are newest first.
func NewPromptPicker(prompts []string) PromptPicker {
	return PromptPicker{
		prompts: prompts,
		width:   80,
		theme:   DarkTheme(),
		keys:    DefaultKeyMap(),
	}
}

func (m PromptPicker) Init() tea.Cmd { return nil }

func (m PromptPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Cancel):
			m.choice = ""
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.prompts)-1 {
				m.cursor++
			}
			return m, nil
		case key.Matches(msg, m.keys.Select):
			if m.cursor < len(m.prompts) {
				m.choice = m.prompts[m.cursor]
			}
			m.done = true
			return m, tea.Quit
		}
		s := msg.String()
		if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			idx := int(s[0] - '1')
			if idx < len(m.prompts) {
				m.choice = m.prompts[idx]
				m.done = true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m PromptPicker) View() string {
	if m.done {
		return ""
	}

	title := m.theme.TitleStyle.Render("Recent Prompts")

	rows := make([]string, 0, len(m.prompts))
	for i, p := range m.prompts {
		line := fmt.Sprintf("%d. %s", i+1, clampLine(p, m.width-8))
		if i == m.cursor {
			rows = append(rows, m.theme.SelectedStyle.Render(" ▸ "+line+" "))
		} else {
			rows = append(rows, m.theme.ItemStyle.Render("   "+line))
		}
	}

	hint := m.theme.HintStyle.Render("↑/↓ move · enter select · 1-9 pick · esc cancel")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		strings.Join(rows, "\n"),
		"",
		hint,
	) + "\n"
}

// Choice 返回选中的提示词，取消时为空串 / the picked prompt, empty on cancel.
func (m PromptPicker) Choice() string { return m.choice }

// RunPromptPicker 内联运行选择器；prompts 为空时直接返回空串
// RunPromptPicker runs the picker inline; an empty prompt list
// returns immediately.
func RunPromptPicker(prompts []string) (string, error) {
	if len(prompts) == 0 {
		return "", nil
	}
	out, err := tea.NewProgram(NewPromptPicker(prompts)).Run()
	if err != nil {
		return "", err
	}
	picker, ok := out.(PromptPicker)
	if !ok {
		return "", fmt.Errorf("unexpected model type %T", out)
	}
	return picker.Choice(), nil
}
