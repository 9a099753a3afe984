package target

import (
	"path/filepath"
	"strings"
)

// Kind 前台进程的界面类别 / Kind classifies the foreground process.
type Kind int

const (
	Unknown Kind = iota
	Shell
	Editor
	REPL
	Remote
)

func (k Kind) String() string {
	switch k {
	case Shell:
		return "shell"
	case Editor:
		return "editor"
	case REPL:
		return "repl"
	case Remote:
		return "remote"
	}
	return "unknown"
}

// classification 唯一的进程名分类表。上下文组装（当前命令行启发式）
// 与界面提示共用这一张表，不允许各自维护副本。
// classification is the single process-name table. The context
// assembler's current-line heuristic and the UI hints both resolve
// through it; nothing keeps a private copy.
var classification = map[string]Kind{
	"bash": Shell,
	"zsh":  Shell,
	"fish": Shell,
	"sh":   Shell,
	"dash": Shell,
	"ksh":  Shell,
	"tcsh": Shell,

	"vim":   Editor,
	"nvim":  Editor,
	"vi":    Editor,
	"emacs": Editor,
	"nano":  Editor,
	"hx":    Editor,
	"kak":   Editor,
	"micro": Editor,

	"python":  REPL,
	"python3": REPL,
	"ipython": REPL,
	"node":    REPL,
	"irb":     REPL,
	"ghci":    REPL,
	"lua":     REPL,
	"psql":    REPL,
	"mysql":   REPL,
	"sqlite3": REPL,

	"ssh":         Remote,
	"mosh":        Remote,
	"mosh-client": Remote,
	"et":          Remote,
}

// Classify 按进程名查表。接受完整路径，比较不区分大小写。
// Classify looks the process name up in the table. Full paths are
// accepted and the comparison is case-insensitive.
func Classify(proc string) Kind {
	proc = strings.TrimSpace(proc)
	if proc == "" {
		return Unknown
	}
	name := strings.ToLower(filepath.Base(proc))
	if k, ok := classification[name]; ok {
		return k
	}
	return Unknown
}
