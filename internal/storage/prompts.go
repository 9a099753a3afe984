package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PromptHistory 是追加式的问题历史文件，每行一条
// PromptHistory is the append-only question log, one entry per line.
type PromptHistory struct {
	path string
}

// NewPromptHistory 绑定历史文件路径 / bind the history file path.
func NewPromptHistory(path string) *PromptHistory {
	return &PromptHistory{path: path}
}

// Add 追加一条问题 / append one question.
func (h *PromptHistory) Add(prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("%w: create history dir: %v", ErrStorage, err)
	}
	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open history: %v", ErrStorage, err)
	}
	defer f.Close()
	if _, err := f.WriteString(prompt + "\n"); err != nil {
		return fmt.Errorf("%w: append history: %v", ErrStorage, err)
	}
	return nil
}

// Recent 返回去重后的最近问题，最新在前。读取失败按空历史处理。
// Recent returns deduplicated recent questions, newest first. Read
// failures count as an empty history.
func (h *PromptHistory) Recent(limit int) []string {
	raw, err := os.ReadFile(h.path)
	if err != nil {
		return nil
	}
	lines := strings.Split(string(raw), "\n")

	seen := map[string]bool{}
	var prompts []string
	for i := len(lines) - 1; i >= 0; i-- {
		p := strings.TrimSpace(lines[i])
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		prompts = append(prompts, p)
		if limit > 0 && len(prompts) >= limit {
			break
		}
	}
	return prompts
}
