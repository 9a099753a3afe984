// Package dispatch 将后端回答落到动作上：插入目标面板或送进剪贴板
// Package dispatch lands a backend answer on an action: inserting it
// into the target pane or handing it to the clipboard.
package dispatch

import (
	"fmt"

	"cmdk/internal/keys"
	"cmdk/internal/target"
)

// Action 是交换成功后菜单里的选择 / the post-exchange menu choices.
type Action int

const (
	ActionInsert Action = iota
	ActionCopy
	ActionFollowUp
	ActionNewSession
	ActionQuit
)

func (a Action) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionCopy:
		return "copy"
	case ActionFollowUp:
		return "follow-up"
	case ActionNewSession:
		return "new-session"
	case ActionQuit:
		return "quit"
	}
	return "unknown"
}

// Copier 送文本进剪贴板并报告使用的机制
// Copier delivers text to the clipboard and names the mechanism used.
type Copier interface {
	Copy(text string) (string, error)
}

// Dispatcher 握有目标面板与剪贴板链 / holds the pane and the clipboard chain.
type Dispatcher struct {
	surface keys.Sender
	copier  Copier
}

// New 构造 Dispatcher。surface 为 nil 表示当前没有可控面板。
// New builds a Dispatcher. A nil surface means no controllable pane.
func New(surface keys.Sender, copier Copier) *Dispatcher {
	return &Dispatcher{surface: surface, copier: copier}
}

// Insert 把回答送进目标：含已识别键标签时逐段回放，否则一次性字面发送
// Insert sends the answer to the target: replayed tag by tag when it
// carries recognized key tags, otherwise as one literal block.
func (d *Dispatcher) Insert(text string) error {
	if d.surface == nil {
		return fmt.Errorf("%w: no target pane to insert into", target.ErrUnreachable)
	}
	if keys.ContainsSpecialKeys(text) {
		return keys.Replay(keys.Parse(text), d.surface)
	}
	return d.surface.SendLiteral(text)
}

// Copy 交给剪贴板链 / Copy hands the text to the clipboard chain.
func (d *Dispatcher) Copy(text string) (string, error) {
	return d.copier.Copy(text)
}
