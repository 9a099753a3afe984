package target

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Pane 是一块 tmux 面板的客户端，所有操作经 tmux CLI 完成。
// 字面文本与命名按键都走 send-keys，快照走 capture-pane。
// Pane is the client for one tmux pane; every operation goes through
// the tmux CLI. Literal text and named keys both travel over
// send-keys, snapshots over capture-pane.
type Pane struct {
	id string

	// run 可注入以便测试 / injectable for tests.
	run func(args ...string) (string, error)
}

// NewPane 绑定一个面板句柄（如 "%3"）/ binds one pane handle such as "%3".
func NewPane(id string) *Pane {
	return &Pane{id: id, run: runTmux}
}

// Current 返回本进程所在的 tmux 面板，不在 tmux 里时返回 nil
// Current returns the pane this process runs in, or nil when the
// process is not inside tmux. Not being in tmux is a normal state,
// not an error.
func Current() *Pane {
	if strings.TrimSpace(os.Getenv("TMUX")) == "" {
		return nil
	}
	if id := strings.TrimSpace(os.Getenv("TMUX_PANE")); id != "" {
		return NewPane(id)
	}
	out, err := runTmux("display-message", "-p", "#{pane_id}")
	if err != nil {
		return nil
	}
	if id := strings.TrimSpace(out); id != "" {
		return NewPane(id)
	}
	return nil
}

// ID 返回面板句柄，同时作为会话的目标身份
// ID returns the pane handle, which doubles as the session's target
// identity.
func (p *Pane) ID() string { return p.id }

// SendLiteral 原样注入文本。-l 关闭按键名解释，"--" 防止文本被当作旗标。
// SendLiteral injects text verbatim. -l turns off key-name
// interpretation and "--" keeps leading dashes from parsing as flags.
func (p *Pane) SendLiteral(text string) error {
	if text == "" {
		return nil
	}
	if _, err := p.run("send-keys", "-t", p.id, "-l", "--", text); err != nil {
		return fmt.Errorf("%w: send literal: %v", ErrUnreachable, err)
	}
	return nil
}

// SendKey 注入一个命名按键（tmux send-keys 命名，如 Escape、C-c）
// SendKey injects one named key press (tmux send-keys naming, e.g.
// Escape or C-c).
func (p *Pane) SendKey(name string) error {
	if _, err := p.run("send-keys", "-t", p.id, "--", name); err != nil {
		return fmt.Errorf("%w: send key %s: %v", ErrUnreachable, name, err)
	}
	return nil
}

// Capture 抓取面板可见内容，lines 大于 0 时额外回看这么多行滚动缓冲
// Capture grabs the pane's visible content, reaching lines rows back
// into scrollback when lines is positive.
func (p *Pane) Capture(lines int) (string, error) {
	args := []string{"capture-pane", "-p", "-t", p.id}
	if lines > 0 {
		args = append(args, "-S", fmt.Sprintf("-%d", lines))
	}
	out, err := p.run(args...)
	if err != nil {
		return "", fmt.Errorf("%w: capture pane: %v", ErrUnreachable, err)
	}
	return out, nil
}

// CurrentCommand 返回面板前台进程名 / the pane's foreground process name.
func (p *Pane) CurrentCommand() (string, error) {
	out, err := p.run("display-message", "-p", "-t", p.id, "#{pane_current_command}")
	if err != nil {
		return "", fmt.Errorf("%w: current command: %v", ErrUnreachable, err)
	}
	return strings.TrimSpace(out), nil
}

// Size 返回面板的列数与行数 / the pane's width and height in cells.
func (p *Pane) Size() (int, int, error) {
	out, err := p.run("display-message", "-p", "-t", p.id, "#{pane_width} #{pane_height}")
	if err != nil {
		return 0, 0, fmt.Errorf("%w: pane size: %v", ErrUnreachable, err)
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("%w: unexpected size output %q", ErrUnreachable, out)
	}
	w, werr := strconv.Atoi(fields[0])
	h, herr := strconv.Atoi(fields[1])
	if werr != nil || herr != nil {
		return 0, 0, fmt.Errorf("%w: unexpected size output %q", ErrUnreachable, out)
	}
	return w, h, nil
}

// SetBuffer 写入 tmux 粘贴缓冲区，剪贴板链的 tmux 通道用它
// SetBuffer loads the tmux paste buffer; the clipboard chain's tmux
// mechanism delivers through it.
func (p *Pane) SetBuffer(text string) error {
	if _, err := p.run("set-buffer", "--", text); err != nil {
		return fmt.Errorf("%w: set buffer: %v", ErrUnreachable, err)
	}
	return nil
}

// runTmux 执行一条 tmux 命令并合并输出，失败时输出併入错误
// runTmux runs one tmux command; on failure the combined output rides
// along in the error.
func runTmux(args ...string) (string, error) {
	out, err := exec.Command("tmux", args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return "", fmt.Errorf("tmux %s: %w: %s", args[0], err, msg)
		}
		return "", fmt.Errorf("tmux %s: %w", args[0], err)
	}
	return string(out), nil
}
