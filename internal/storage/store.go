// Package storage 基于 SQLite (WAL 模式) 持久化会话与回答
// Package storage persists conversation sessions and pending answers
// in SQLite with WAL mode. Every record is keyed by the target
// identity, so each terminal target carries its own history.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store 是会话数据库 / Store is the session database.
type Store struct {
	db   *sql.DB
	path string

	// staleAfter 之内无更新的会话在打开时被丢弃
	// sessions idle for longer than staleAfter are dropped on open.
	staleAfter time.Duration
}

// Open 创建并初始化数据库 / Open creates and initializes the database.
func Open(dbPath string, staleAfter time.Duration) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("%w: db path is empty", ErrStorage)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create db directory: %v", ErrStorage, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", ErrStorage, err)
	}

	// PRAGMA 只作用于执行它的那条连接，收紧连接池确保
	// foreign_keys 与 busy_timeout 覆盖全部查询。
	// A PRAGMA only binds to the connection that ran it; capping the
	// pool at one connection keeps foreign_keys and busy_timeout in
	// force for every query.
	db.SetMaxOpenConns(1)

	// 启用 WAL 模式和优化 PRAGMA / Enable WAL and performance PRAGMAs
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: exec %q: %v", ErrStorage, p, err)
		}
	}

	s := &Store{db: db, path: dbPath, staleAfter: staleAfter}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ensure schema: %v", ErrStorage, err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		identity   TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		identity   TEXT NOT NULL REFERENCES sessions(identity) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		question   TEXT NOT NULL DEFAULT '',
		answer     TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE(identity, seq)
	);

	CREATE TABLE IF NOT EXISTS pending_results (
		identity    TEXT PRIMARY KEY,
		exchange_id TEXT NOT NULL DEFAULT '',
		response    TEXT NOT NULL DEFAULT '',
		updated_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_turns_identity ON turns(identity, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close 关闭数据库连接 / Close the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path 返回数据库文件路径 / Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// parseTime 容忍历史数据中的非法时间戳 / tolerate bad stored timestamps.
func parseTime(v string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
