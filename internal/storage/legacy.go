package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	legacyPrefix = "cli-session-"
	legacySuffix = ".md"
)

// ImportLegacy 将旧版 Markdown 会话文件迁移到 SQLite。文件名形如
// cli-session-<hash>.md，hash 由工作目录派生，迁移后映射为
// dir-<hash> 身份。迁移成功的文件重命名为 .bak。
// ImportLegacy migrates legacy Markdown session files into SQLite.
// File names look like cli-session-<hash>.md where the hash was
// derived from the working directory; they map to the dir-<hash>
// identity. Imported files are renamed to .bak.
func ImportLegacy(dir string, s *Store) (int, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: read legacy dir: %v", ErrStorage, err)
	}

	migrated := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, legacyPrefix) || !strings.HasSuffix(name, legacySuffix) {
			continue
		}
		hash := strings.TrimSuffix(strings.TrimPrefix(name, legacyPrefix), legacySuffix)
		if hash == "" {
			continue
		}
		identity := "dir-" + hash

		// 已有同名会话则跳过 / skip identities that already exist.
		var existing string
		err := s.db.QueryRow(`SELECT identity FROM sessions WHERE identity=?`, identity).Scan(&existing)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return migrated, fmt.Errorf("%w: check session: %v", ErrStorage, err)
		}

		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skip import %s: %v\n", path, err)
			continue
		}

		// 以文件修改时间作为会话时间戳，过期判定保持一致
		// Use the file mtime as the session timestamp so staleness
		// carries over.
		stamp := nowUTC()
		if info, err := e.Info(); err == nil {
			stamp = info.ModTime().UTC().Format(time.RFC3339)
		}

		turns := parseTranscript(string(raw))
		if err := s.importSession(identity, stamp, turns); err != nil {
			fmt.Fprintf(os.Stderr, "import %s failed: %v\n", path, err)
			continue
		}
		if err := os.Rename(path, path+".bak"); err != nil {
			fmt.Fprintf(os.Stderr, "rename %s: %v\n", path, err)
		}
		migrated++
	}
	return migrated, nil
}

func (s *Store) importSession(identity, stamp string, turns []Turn) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT INTO sessions (identity, created_at, updated_at) VALUES (?, ?, ?)`,
		identity, stamp, stamp); err != nil {
		return fmt.Errorf("%w: insert session: %v", ErrStorage, err)
	}
	for i, t := range turns {
		if _, err := tx.Exec(`INSERT INTO turns (identity, seq, question, answer, created_at) VALUES (?, ?, ?, ?, ?)`,
			identity, i, t.Question, t.Answer, stamp); err != nil {
			return fmt.Errorf("%w: insert turn %d: %v", ErrStorage, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

// parseTranscript 从 Markdown 转写还原交换列表
// parseTranscript recovers the exchange list from a Markdown
// transcript written as "## User: ..." / "## Assistant:" blocks.
func parseTranscript(content string) []Turn {
	var turns []Turn
	for _, block := range strings.Split(content, "## User: ") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		idx := strings.Index(block, "\n\n## Assistant:\n")
		if idx < 0 {
			continue
		}
		question := block[:idx]
		answer := block[idx+len("\n\n## Assistant:\n"):]
		answer = strings.TrimSuffix(answer, "\n\n")
		turns = append(turns, Turn{Question: question, Answer: answer})
	}
	return turns
}
