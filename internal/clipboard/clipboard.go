// Package clipboard 以多级回退的方式把文本送进系统剪贴板
// Package clipboard delivers text to the system clipboard through an
// ordered list of fallback mechanisms: the first one that works wins.
package clipboard

import (
	"errors"
	"fmt"
	"os"
	"strings"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// ErrUnavailable 表示所有机制都失败了 / every mechanism failed.
var ErrUnavailable = errors.New("clipboard unavailable")

// Mechanism 是单个复制通道 / Mechanism is one copy channel.
type Mechanism interface {
	Name() string
	Copy(text string) error
}

// BufferTarget 能把文本放进多路复用器的粘贴缓冲区
// BufferTarget can place text into the multiplexer's paste buffer.
type BufferTarget interface {
	SetBuffer(text string) error
}

// Chain 依序尝试各机制 / Chain tries each mechanism in order.
type Chain struct {
	mechanisms []Mechanism
}

// NewChain 按配置顺序组装机制。buf 为 nil 时跳过 tmux 通道。
// NewChain assembles mechanisms in the configured order. A nil buf
// skips the tmux channel.
func NewChain(order []string, buf BufferTarget) *Chain {
	c := &Chain{}
	for _, name := range order {
		switch name {
		case "native":
			c.mechanisms = append(c.mechanisms, &nativeMechanism{})
		case "osc52":
			c.mechanisms = append(c.mechanisms, &osc52Mechanism{
				out:  os.Stderr,
				tmux: os.Getenv("TMUX") != "",
			})
		case "tmux":
			if buf != nil {
				c.mechanisms = append(c.mechanisms, &tmuxMechanism{buf: buf})
			}
		}
	}
	return c
}

// NewChainWith 直接给定机制，测试用 / explicit mechanisms, for tests.
func NewChainWith(mechanisms ...Mechanism) *Chain {
	return &Chain{mechanisms: mechanisms}
}

// Copy 返回成功机制的名字；全部失败时返回 ErrUnavailable 并汇总原因
// Copy returns the name of the mechanism that succeeded. When all of
// them fail it returns ErrUnavailable with the collected reasons.
func (c *Chain) Copy(text string) (string, error) {
	if len(c.mechanisms) == 0 {
		return "", fmt.Errorf("%w: no mechanisms configured", ErrUnavailable)
	}
	var reasons []string
	for _, m := range c.mechanisms {
		if err := m.Copy(text); err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: %v", m.Name(), err))
			continue
		}
		return m.Name(), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnavailable, strings.Join(reasons, "; "))
}

// nativeMechanism 调平台剪贴板（pbcopy/xclip/wl-copy 等）
// nativeMechanism drives the platform clipboard (pbcopy, xclip,
// wl-copy and friends).
type nativeMechanism struct{}

func (m *nativeMechanism) Name() string { return "native" }

func (m *nativeMechanism) Copy(text string) error {
	if atotto.Unsupported {
		return errors.New("no native clipboard on this platform")
	}
	return atotto.WriteAll(text)
}

// osc52Mechanism 把 OSC 52 转义序列写到控制终端，远程 ssh 场景也能复制。
// 序列走 stderr，stdout 可能被重定向。
// osc52Mechanism writes the OSC 52 escape sequence to the controlling
// terminal, which also works across ssh. The sequence goes to stderr
// because stdout may be redirected.
type osc52Mechanism struct {
	out  *os.File
	tmux bool
}

func (m *osc52Mechanism) Name() string { return "osc52" }

func (m *osc52Mechanism) Copy(text string) error {
	if !term.IsTerminal(int(m.out.Fd())) {
		return errors.New("stderr is not a terminal")
	}
	seq := osc52.New(text)
	if m.tmux {
		seq = seq.Tmux()
	}
	if _, err := seq.WriteTo(m.out); err != nil {
		return fmt.Errorf("write sequence: %w", err)
	}
	return nil
}

// tmuxMechanism 退而求其次：进 tmux 粘贴缓冲区，prefix+] 可贴出
// tmuxMechanism is the last resort: the tmux paste buffer, recalled
// with prefix+].
type tmuxMechanism struct {
	buf BufferTarget
}

func (m *tmuxMechanism) Name() string { return "tmux" }

func (m *tmuxMechanism) Copy(text string) error {
	return m.buf.SetBuffer(text)
}
