// Package contextmgr 采集终端现场并渲染为上下文文档
// Package contextmgr snapshots the terminal and renders the context
// document quoted into backend queries. Assembly is best effort: a
// section that fails or comes back empty is omitted, never rendered
// as an error, because partial context still beats aborting the
// exchange.
package contextmgr

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"cmdk/internal/config"
	"cmdk/internal/target"
)

// Terminal 提供目标面板的快照操作 / snapshot operations of the target pane.
type Terminal interface {
	Capture(lines int) (string, error)
	CurrentCommand() (string, error)
	Size() (int, int, error)
}

// Assembler 按固定顺序收集各个上下文片段，每个片段受隐私开关控制
// Assembler collects context sections in a fixed order, each gated by
// its privacy toggle. Collaborators are plain fields so tests can
// swap them out.
type Assembler struct {
	Config config.ContextConfig

	// Terminal 为 nil 表示没有可捕获的面板 / nil when no pane is attached.
	Terminal Terminal

	Environ func() []string
	Getenv  func(string) string
	Getwd   func() (string, error)
	Home    func() (string, error)

	// GitInfo 返回渲染好的 git 概要 / returns the rendered git summary.
	GitInfo func(dir string) (string, bool)

	// Recent 返回最近提交过的问题 / recently submitted questions.
	Recent func(limit int) []string
}

// New 构造带默认采集器的 Assembler / New wires the real collectors.
func New(cfg config.ContextConfig, term Terminal) *Assembler {
	return &Assembler{
		Config:   cfg,
		Terminal: term,
		Environ:  os.Environ,
		Getenv:   os.Getenv,
		Getwd:    os.Getwd,
		Home:     os.UserHomeDir,
		GitInfo:  gitStatus,
	}
}

// Assemble 渲染发给后端的 Markdown 上下文文档
// Assemble renders the Markdown context document sent to the backend.
func (a *Assembler) Assemble() string {
	var b strings.Builder
	b.WriteString("## Terminal Context\n\n")

	if a.Config.SendSystemInfo {
		if shell := baseName(a.Getenv("SHELL")); shell != "" {
			fmt.Fprintf(&b, "**Shell:** %s\n", shell)
		}
		fmt.Fprintf(&b, "**OS:** %s\n", runtime.GOOS)
		if a.Terminal != nil {
			if w, h, err := a.Terminal.Size(); err == nil && w > 0 {
				fmt.Fprintf(&b, "**Terminal Size:** %dx%d\n", w, h)
			}
		}
	}

	if a.Config.SendWorkingDir {
		if cwd, err := a.Getwd(); err == nil {
			fmt.Fprintf(&b, "**Working Directory:** %s\n", cwd)
		}
	}

	if a.Config.SendCurrentProcess {
		if proc, ok := a.currentProcess(); ok {
			fmt.Fprintf(&b, "**Current Process:** %s\n", proc)
		}
	}

	if a.Config.SendTerminalContent && a.Terminal != nil {
		if content, err := a.Terminal.Capture(a.Config.CaptureLines); err == nil {
			if c := strings.TrimRight(content, "\n"); strings.TrimSpace(c) != "" {
				fmt.Fprintf(&b, "\n### Terminal Content (last %d lines)\n```\n%s\n```\n",
					a.Config.CaptureLines, c)
			}
		}
	}

	if a.Config.SendCurrentCommand {
		if line, ok := a.currentCommandLine(); ok {
			fmt.Fprintf(&b, "\n**Current Command:** %s\n", line)
		}
	}

	if a.Config.SendShellHistory {
		if hist, ok := a.shellHistory(); ok {
			fmt.Fprintf(&b, "\n### Recent Shell History\n```\n%s\n```\n", hist)
		}
	}

	if a.Config.SendGitStatus {
		if cwd, err := a.Getwd(); err == nil {
			if info, ok := a.GitInfo(cwd); ok {
				b.WriteString("\n### Git Status\n")
				b.WriteString(info)
			}
		}
	}

	if a.Config.SendEnvVarNames {
		if names := envNames(a.Environ()); len(names) > 0 {
			fmt.Fprintf(&b, "\n### Environment Variables (names only)\n```\n%s\n```\n",
				strings.Join(names, " "))
		}
	}

	if a.Config.SendRecentPrompts && a.Recent != nil {
		if prompts := a.Recent(5); len(prompts) > 0 {
			fmt.Fprintf(&b, "\n### Recent Prompts\n```\n%s\n```\n", strings.Join(prompts, "\n"))
		}
	}

	return b.String()
}

// Display 渲染给 /context 看的纯文本预览，不含 Markdown 标记
// Display renders the plain preview shown by /context, without
// Markdown markup.
func (a *Assembler) Display() string {
	var lines []string

	if a.Config.SendSystemInfo {
		if shell := baseName(a.Getenv("SHELL")); shell != "" {
			lines = append(lines, "Shell: "+shell)
		}
		lines = append(lines, "OS: "+runtime.GOOS)
		if a.Terminal != nil {
			if w, h, err := a.Terminal.Size(); err == nil && w > 0 {
				lines = append(lines, fmt.Sprintf("Terminal Size: %dx%d", w, h))
			}
		}
	}
	if a.Config.SendWorkingDir {
		if cwd, err := a.Getwd(); err == nil {
			lines = append(lines, "Working Directory: "+cwd)
		}
	}
	if a.Config.SendCurrentProcess {
		if proc, ok := a.currentProcess(); ok {
			lines = append(lines, "Current Process: "+proc)
		}
	}
	if a.Config.SendTerminalContent && a.Terminal != nil {
		lines = append(lines, fmt.Sprintf("Terminal Content: last %d lines", a.Config.CaptureLines))
	}
	if a.Config.SendCurrentCommand {
		if line, ok := a.currentCommandLine(); ok {
			lines = append(lines, "Current Command: "+line)
		}
	}
	if a.Config.SendShellHistory {
		if _, ok := a.shellHistory(); ok {
			lines = append(lines, fmt.Sprintf("Shell History: last %d commands", a.Config.HistoryLines))
		}
	}
	if a.Config.SendGitStatus {
		if cwd, err := a.Getwd(); err == nil {
			if info, ok := a.GitInfo(cwd); ok {
				lines = append(lines, "", "Git Status:")
				for _, l := range strings.Split(strings.TrimRight(info, "\n"), "\n") {
					lines = append(lines, "  "+l)
				}
			}
		}
	}
	if a.Config.SendEnvVarNames {
		lines = append(lines, fmt.Sprintf("Environment Variables: %d names", len(envNames(a.Environ()))))
	}
	if a.Config.SendRecentPrompts && a.Recent != nil {
		if prompts := a.Recent(5); len(prompts) > 0 {
			lines = append(lines, fmt.Sprintf("Recent Prompts: %d saved", len(prompts)))
		}
	}

	return strings.Join(lines, "\n")
}

// currentProcess 返回面板前台进程名，可分类时附带界面类别
// currentProcess returns the pane's foreground process name, with its
// surface kind attached when the classification table knows it.
func (a *Assembler) currentProcess() (string, bool) {
	if a.Terminal == nil {
		return "", false
	}
	proc, err := a.Terminal.CurrentCommand()
	if err != nil || strings.TrimSpace(proc) == "" {
		return "", false
	}
	if kind := target.Classify(proc); kind != target.Unknown {
		return fmt.Sprintf("%s (%s)", proc, kind), true
	}
	return proc, true
}

// currentCommandLine 仅当前台进程是交互式 shell 时返回正在输入的命令行
// currentCommandLine returns the line being typed, but only when the
// foreground process classifies as an interactive shell. Editors and
// REPLs redraw their screen, so the bottom line means nothing there.
func (a *Assembler) currentCommandLine() (string, bool) {
	if a.Terminal == nil {
		return "", false
	}
	proc, err := a.Terminal.CurrentCommand()
	if err != nil || target.Classify(proc) != target.Shell {
		return "", false
	}
	visible, err := a.Terminal.Capture(0)
	if err != nil {
		return "", false
	}
	lines := strings.Split(strings.TrimRight(visible, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l, true
		}
	}
	return "", false
}

// shellHistory 依次尝试 zsh 与 bash 的历史文件
// shellHistory tries the zsh history first, then bash.
func (a *Assembler) shellHistory() (string, bool) {
	home, err := a.Home()
	if err != nil {
		return "", false
	}
	for _, name := range []string{".zsh_history", ".bash_history"} {
		raw, err := os.ReadFile(filepath.Join(home, name))
		if err != nil {
			continue
		}
		if entries := tailHistory(string(raw), a.Config.HistoryLines); len(entries) > 0 {
			return strings.Join(entries, "\n"), true
		}
	}
	return "", false
}

// tailHistory 取最近 limit 条并剥离 zsh 扩展格式（": ts:0;cmd"）
// tailHistory keeps the last limit entries and strips the zsh
// extended format (": timestamp:0;command").
func tailHistory(content string, limit int) []string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(line, ": ") {
			if _, cmd, ok := strings.Cut(line, ";"); ok {
				line = cmd
			}
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// envNames 只取变量名，值绝不外发 / names only, values never leave the host.
func envNames(environ []string) []string {
	names := make([]string, 0, len(environ))
	for _, kv := range environ {
		if name, _, ok := strings.Cut(kv, "="); ok && name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func baseName(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return filepath.Base(p)
}
