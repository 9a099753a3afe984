package target

import (
	"errors"
	"os"

	"golang.org/x/term"
)

// Local 是无 tmux 时的降级终端：只报告尺寸，没有快照也不可注入。
// 它满足上下文组装对终端的只读接口，但不是按键回放的目标。
// Local is the degraded terminal used outside tmux: it reports the
// size but has no snapshot and accepts no injection. It satisfies the
// context assembler's read-only terminal interface without being a
// replay target.
type Local struct{}

// Capture 本地终端没有可回看的内容 / no scrollback to look at.
func (Local) Capture(int) (string, error) {
	return "", errors.New("no pane to capture")
}

// CurrentCommand 本地终端看不到前台进程 / foreground process unknown.
func (Local) CurrentCommand() (string, error) {
	return "", errors.New("no pane to inspect")
}

// Size 读取标准输出所连终端的尺寸 / size of the tty behind stdout.
func (Local) Size() (int, int, error) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}
