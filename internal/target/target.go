// Package target 封装被控终端面板：tmux 客户端、身份派生与前台进程分类
// Package target wraps the controlled terminal surface: the tmux pane
// client, target-identity derivation, and the foreground process
// classification shared by context assembly and the UI.
package target

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrUnreachable 表示对目标面板的一次发送失败。按键注入不可撤销，
// 之前已送达的内容保持生效。
// ErrUnreachable means a send to the target surface failed. Key
// injection cannot be undone, so anything delivered earlier stays in
// effect.
var ErrUnreachable = errors.New("target surface unreachable")

// FallbackIdentity 在没有面板句柄时从工作目录派生稳定身份。
// dir-<md5 前 8 位> 与旧版按目录命名的会话文件保持互通。
// FallbackIdentity derives a stable identity from the working
// directory when no pane handle exists. The dir-<first 8 md5 hex>
// form keeps legacy per-directory transcripts addressable.
func FallbackIdentity(dir string) string {
	sum := md5.Sum([]byte(dir))
	return fmt.Sprintf("dir-%s", hex.EncodeToString(sum[:])[:8])
}
