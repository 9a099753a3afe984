package storage

import "testing"

func TestDeleteSessionCascades(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendTurn("%1", "q", "a"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	// 先跑几次查询再删除，外键约束必须对执行删除的连接依旧生效
	// Run a few reads first; the foreign-key pragma must still hold
	// for whichever connection ends up executing the delete.
	for i := 0; i < 5; i++ {
		if _, err := s.TurnCount("%1"); err != nil {
			t.Fatalf("TurnCount: %v", err)
		}
	}

	if _, err := s.db.Exec(`DELETE FROM sessions WHERE identity='%1'`); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if n, _ := s.TurnCount("%1"); n != 0 {
		t.Fatalf("turns survived the session delete: %d", n)
	}
}
