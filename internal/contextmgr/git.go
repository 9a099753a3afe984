package contextmgr

import (
	"fmt"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// maxStatusFiles 限制状态列表长度，避免大 repo 撑爆上下文
// maxStatusFiles caps the status list so a big repo cannot flood the
// context document.
const maxStatusFiles = 10

// gitStatus 用 go-git 概要当前仓库：分支名加改动文件（短格式）
// gitStatus summarizes the repository with go-git: branch name plus
// changed files in short format. ok=false when not inside a repo or
// nothing useful came back.
func gitStatus(dir string) (string, bool) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false
	}

	var b strings.Builder
	if head, err := repo.Head(); err == nil {
		name := head.Name().Short()
		if name == "HEAD" {
			// 游离 HEAD 用短哈希表示 / detached HEAD shows the short hash.
			name = head.Hash().String()[:8]
		}
		fmt.Fprintf(&b, "Branch: %s\n", name)
	}

	if wt, err := repo.Worktree(); err == nil {
		if st, err := wt.Status(); err == nil {
			paths := make([]string, 0, len(st))
			for p, fs := range st {
				if fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified {
					continue
				}
				paths = append(paths, p)
			}
			sort.Strings(paths)
			if len(paths) > maxStatusFiles {
				paths = paths[:maxStatusFiles]
			}
			if len(paths) > 0 {
				b.WriteString("Modified files:\n")
				for _, p := range paths {
					fs := st[p]
					fmt.Fprintf(&b, "%c%c %s\n", fs.Staging, fs.Worktree, p)
				}
			}
		}
	}

	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}
