package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// OpenSession 加载或新建 identity 对应的会话。超过过期窗口未更新的
// 旧会话会被整体丢弃，从空会话重新开始。
// OpenSession loads or creates the session for identity. A session
// whose last update is older than the staleness window is discarded
// and the caller starts from an empty one.
func (s *Store) OpenSession(identity string) (SessionInfo, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return SessionInfo{}, fmt.Errorf("%w: identity is empty", ErrStorage)
	}

	var updatedAt string
	err := s.db.QueryRow(`SELECT updated_at FROM sessions WHERE identity=?`, identity).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		now := nowUTC()
		if _, err := s.db.Exec(`INSERT INTO sessions (identity, created_at, updated_at) VALUES (?, ?, ?)`,
			identity, now, now); err != nil {
			return SessionInfo{}, fmt.Errorf("%w: create session: %v", ErrStorage, err)
		}
		return SessionInfo{Identity: identity}, nil
	}
	if err != nil {
		return SessionInfo{}, fmt.Errorf("%w: load session: %v", ErrStorage, err)
	}

	// 严格大于窗口才算过期；无法解析的时间戳按过期处理
	// Strictly older than the window counts as stale; an unparsable
	// timestamp is treated as stale too.
	if t, ok := parseTime(updatedAt); !ok || time.Since(t) > s.staleAfter {
		if err := s.reset(identity); err != nil {
			return SessionInfo{}, err
		}
		return SessionInfo{Identity: identity}, nil
	}

	n, err := s.TurnCount(identity)
	if err != nil {
		return SessionInfo{}, err
	}
	return SessionInfo{Identity: identity, Turns: n, Resumed: n > 0}, nil
}

// reset 丢弃全部交换并刷新时间戳 / drop every turn and refresh timestamps.
func (s *Store) reset(identity string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM turns WHERE identity=?`, identity); err != nil {
		return fmt.Errorf("%w: delete turns: %v", ErrStorage, err)
	}
	now := nowUTC()
	if _, err := tx.Exec(`UPDATE sessions SET created_at=?, updated_at=? WHERE identity=?`,
		now, now, identity); err != nil {
		return fmt.Errorf("%w: refresh session: %v", ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

// AppendTurn 追加一次完整交换并刷新会话时间戳
// AppendTurn appends one complete exchange and refreshes the session
// timestamp. The session row is created on demand.
func (s *Store) AppendTurn(identity, question, answer string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return fmt.Errorf("%w: identity is empty", ErrStorage)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	now := nowUTC()
	if _, err := tx.Exec(`INSERT OR IGNORE INTO sessions (identity, created_at, updated_at) VALUES (?, ?, ?)`,
		identity, now, now); err != nil {
		return fmt.Errorf("%w: ensure session: %v", ErrStorage, err)
	}
	if _, err := tx.Exec(`
		INSERT INTO turns (identity, seq, question, answer, created_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), -1) + 1 FROM turns WHERE identity=?), ?, ?, ?)`,
		identity, identity, question, answer, now); err != nil {
		return fmt.Errorf("%w: insert turn: %v", ErrStorage, err)
	}
	if _, err := tx.Exec(`UPDATE sessions SET updated_at=? WHERE identity=?`, now, identity); err != nil {
		return fmt.Errorf("%w: touch session: %v", ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

// Clear 丢弃 identity 的全部历史，会话行保留
// Clear discards the identity's history. The session row stays so the
// next exchange continues under a fresh timestamp.
func (s *Store) Clear(identity string) error {
	return s.reset(strings.TrimSpace(identity))
}

// TurnCount 返回已存交换数，无会话时为 0
// TurnCount returns the number of stored exchanges, zero when the
// session does not exist.
func (s *Store) TurnCount(identity string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM turns WHERE identity=?`, strings.TrimSpace(identity)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count turns: %v", ErrStorage, err)
	}
	return n, nil
}

// Turns 返回最近 limit 次交换，按时间先后排序；limit<=0 表示全部
// Turns returns the most recent limit exchanges in oldest-first
// order; limit<=0 means all of them.
func (s *Store) Turns(identity string, limit int) ([]Turn, error) {
	q := `SELECT question, answer FROM turns WHERE identity=? ORDER BY seq`
	args := []any{strings.TrimSpace(identity)}
	if limit > 0 {
		q = `SELECT question, answer FROM (
			SELECT seq, question, answer FROM turns WHERE identity=? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq`
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query turns: %v", ErrStorage, err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Question, &t.Answer); err != nil {
			return nil, fmt.Errorf("%w: scan turn: %v", ErrStorage, err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read turns: %v", ErrStorage, err)
	}
	return turns, nil
}

// Render 将最近 maxTurns 次交换渲染为 Markdown 转写，供提示词引用
// Render renders the most recent maxTurns exchanges as the Markdown
// transcript quoted into prompts.
func (s *Store) Render(identity string, maxTurns int) (string, error) {
	turns, err := s.Turns(identity, maxTurns)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "## User: %s\n\n## Assistant:\n%s\n\n", t.Question, t.Answer)
	}
	return b.String(), nil
}

// SweepStale 批量清理过期会话，返回删除数
// SweepStale removes every stale session at once and reports how many
// were dropped. RFC3339 UTC timestamps compare correctly as strings.
func (s *Store) SweepStale() (int, error) {
	cutoff := time.Now().UTC().Add(-s.staleAfter).Format(time.RFC3339)
	res, err := s.db.Exec(`DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: sweep sessions: %v", ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}
