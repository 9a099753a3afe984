package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNoPending 表示该目标没有待插入的回答
// ErrNoPending means the target has no saved answer waiting.
var ErrNoPending = errors.New("no pending result")

// SavePending 记录目标最近一次回答，旧值被覆盖
// SavePending records the target's latest answer, replacing any
// earlier one.
func (s *Store) SavePending(identity string, r PendingResult) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return fmt.Errorf("%w: identity is empty", ErrStorage)
	}
	_, err := s.db.Exec(`
		INSERT INTO pending_results (identity, exchange_id, response, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			exchange_id=excluded.exchange_id,
			response=excluded.response,
			updated_at=excluded.updated_at`,
		identity, r.ExchangeID, r.Response, nowUTC())
	if err != nil {
		return fmt.Errorf("%w: save pending result: %v", ErrStorage, err)
	}
	return nil
}

// Pending 取回目标最近一次回答 / Pending fetches the target's latest answer.
func (s *Store) Pending(identity string) (PendingResult, error) {
	var r PendingResult
	err := s.db.QueryRow(`SELECT exchange_id, response FROM pending_results WHERE identity=?`,
		strings.TrimSpace(identity)).Scan(&r.ExchangeID, &r.Response)
	if err == sql.ErrNoRows {
		return PendingResult{}, ErrNoPending
	}
	if err != nil {
		return PendingResult{}, fmt.Errorf("%w: load pending result: %v", ErrStorage, err)
	}
	return r, nil
}

// ClearPending 丢弃已消费的回答 / drop an answer after it is consumed.
func (s *Store) ClearPending(identity string) error {
	_, err := s.db.Exec(`DELETE FROM pending_results WHERE identity=?`, strings.TrimSpace(identity))
	if err != nil {
		return fmt.Errorf("%w: clear pending result: %v", ErrStorage, err)
	}
	return nil
}
