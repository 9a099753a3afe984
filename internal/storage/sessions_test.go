package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cmdk.db"), time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// backdate 将会话时间戳改为 age 之前 / move the session timestamp into the past.
func backdate(t *testing.T, s *Store, identity string, age time.Duration) {
	t.Helper()
	stamp := time.Now().UTC().Add(-age).Format(time.RFC3339)
	if _, err := s.db.Exec(`UPDATE sessions SET updated_at=? WHERE identity=?`, stamp, identity); err != nil {
		t.Fatalf("backdate: %v", err)
	}
}

func TestOpenSessionCreates(t *testing.T) {
	s := newTestStore(t)
	info, err := s.OpenSession("%1")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if info.Turns != 0 || info.Resumed {
		t.Fatalf("fresh session: %+v", info)
	}
}

func TestOpenSessionEmptyIdentity(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.OpenSession("  "); !errors.Is(err, ErrStorage) {
		t.Fatalf("want ErrStorage, got %v", err)
	}
}

func TestAppendAndRender(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendTurn("%1", "list files", "ls -la"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if err := s.AppendTurn("%1", "hidden too", "ls -A"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	n, err := s.TurnCount("%1")
	if err != nil || n != 2 {
		t.Fatalf("TurnCount = %d, %v", n, err)
	}

	got, err := s.Render("%1", 20)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "## User: list files\n\n## Assistant:\nls -la\n\n" +
		"## User: hidden too\n\n## Assistant:\nls -A\n\n"
	if got != want {
		t.Fatalf("Render:\n%q\nwant:\n%q", got, want)
	}
}

func TestRenderLimitsTurns(t *testing.T) {
	s := newTestStore(t)
	for _, q := range []string{"one", "two", "three"} {
		if err := s.AppendTurn("%1", q, "ans "+q); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}
	got, err := s.Render("%1", 2)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "## User: two\n\n## Assistant:\nans two\n\n" +
		"## User: three\n\n## Assistant:\nans three\n\n"
	if got != want {
		t.Fatalf("Render limited:\n%q\nwant:\n%q", got, want)
	}
}

func TestSessionsAreIsolatedByIdentity(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendTurn("%1", "q1", "a1"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if err := s.AppendTurn("dir-abcd1234", "q2", "a2"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if n, _ := s.TurnCount("%1"); n != 1 {
		t.Fatalf("pane turns = %d", n)
	}
	if n, _ := s.TurnCount("dir-abcd1234"); n != 1 {
		t.Fatalf("dir turns = %d", n)
	}
}

func TestOpenSessionResumes(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendTurn("%1", "q", "a"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	info, err := s.OpenSession("%1")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if !info.Resumed || info.Turns != 1 {
		t.Fatalf("resume: %+v", info)
	}
}

func TestStaleSessionDroppedOnOpen(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendTurn("%1", "q", "a"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	// 窗口内保留，差一秒也不算过期
	// Inside the window the session survives, even one second short.
	backdate(t, s, "%1", 3599*time.Second)
	info, err := s.OpenSession("%1")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if !info.Resumed {
		t.Fatal("session inside the window was dropped")
	}

	// 超过窗口一秒即丢弃 / one second past the window it is discarded.
	backdate(t, s, "%1", 3601*time.Second)
	info, err = s.OpenSession("%1")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if info.Resumed || info.Turns != 0 {
		t.Fatalf("stale session kept: %+v", info)
	}
	if n, _ := s.TurnCount("%1"); n != 0 {
		t.Fatalf("stale turns survived: %d", n)
	}
}

func TestBadTimestampTreatedAsStale(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendTurn("%1", "q", "a"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE sessions SET updated_at='yesterday' WHERE identity='%1'`); err != nil {
		t.Fatalf("corrupt timestamp: %v", err)
	}
	info, err := s.OpenSession("%1")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if info.Resumed {
		t.Fatal("unparsable timestamp should reset the session")
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendTurn("%1", "q", "a"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if err := s.Clear("%1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := s.TurnCount("%1"); n != 0 {
		t.Fatalf("turns after clear = %d", n)
	}
	if got, _ := s.Render("%1", 20); got != "" {
		t.Fatalf("render after clear = %q", got)
	}
}

func TestTurnCountMissingSession(t *testing.T) {
	s := newTestStore(t)
	n, err := s.TurnCount("%404")
	if err != nil {
		t.Fatalf("TurnCount: %v", err)
	}
	if n != 0 {
		t.Fatalf("missing session turns = %d", n)
	}
}

func TestTurnsReportsCorruptRows(t *testing.T) {
	s := newTestStore(t)

	// 绕过约束写入 NULL，模拟损坏的历史数据
	// Rebuild the table without constraints and sneak in a NULL to
	// simulate corrupted history.
	stmts := []string{
		`DROP TABLE turns`,
		`CREATE TABLE turns (id INTEGER PRIMARY KEY AUTOINCREMENT,
			identity TEXT, seq INTEGER, question TEXT, answer TEXT, created_at TEXT)`,
		`INSERT INTO turns (identity, seq, question, answer, created_at)
			VALUES ('%1', 0, NULL, 'a', '2026-01-01T00:00:00Z')`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}

	if _, err := s.Turns("%1", 0); !errors.Is(err, ErrStorage) {
		t.Fatalf("want ErrStorage for unreadable row, got %v", err)
	}
}

func TestSweepStale(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendTurn("%old", "q", "a"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	if err := s.AppendTurn("%new", "q", "a"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	backdate(t, s, "%old", 2*time.Hour)

	n, err := s.SweepStale()
	if err != nil {
		t.Fatalf("SweepStale: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d sessions, want 1", n)
	}
	if c, _ := s.TurnCount("%old"); c != 0 {
		t.Fatalf("old turns survived sweep: %d", c)
	}
	if c, _ := s.TurnCount("%new"); c != 1 {
		t.Fatalf("new session lost: %d", c)
	}
}

func TestPendingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Pending("%1"); !errors.Is(err, ErrNoPending) {
		t.Fatalf("want ErrNoPending, got %v", err)
	}

	if err := s.SavePending("%1", PendingResult{ExchangeID: "x1", Response: "ls"}); err != nil {
		t.Fatalf("SavePending: %v", err)
	}
	if err := s.SavePending("%1", PendingResult{ExchangeID: "x2", Response: "ls -la"}); err != nil {
		t.Fatalf("SavePending overwrite: %v", err)
	}

	r, err := s.Pending("%1")
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if r.ExchangeID != "x2" || r.Response != "ls -la" {
		t.Fatalf("Pending = %+v", r)
	}

	if err := s.ClearPending("%1"); err != nil {
		t.Fatalf("ClearPending: %v", err)
	}
	if _, err := s.Pending("%1"); !errors.Is(err, ErrNoPending) {
		t.Fatalf("want ErrNoPending after clear, got %v", err)
	}
}
