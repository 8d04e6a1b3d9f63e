package core

import "testing"

func TestLedgerRankWithTies(t *testing.T) {
	l := NewLedger()
	const a, b, c = 1, 2, 3

	l.Credit(a, 30)
	l.Credit(b, 10)
	l.Credit(c, 30)

	want := map[int64]Standing{
		a: {Position: 1, Rank: 1, XP: 30, Tied: true},
		c: {Position: 2, Rank: 1, XP: 30, Tied: true},
		b: {Position: 3, Rank: 3, XP: 10, Tied: false},
	}
	for user, w := range want {
		got, ok := l.Rank(user)
		if !ok {
			t.Fatalf("user %d should be ranked", user)
		}
		if got != w {
			t.Errorf("user %d: got %+v, want %+v", user, got, w)
		}
	}

	if _, ok := l.Rank(99); ok {
		t.Error("user without XP must be unranked")
	}
}

func TestLedgerCreditAccumulates(t *testing.T) {
	l := NewLedger()

	if total := l.Credit(5, FocusXP); total != 10 {
		t.Fatalf("total = %d", total)
	}
	if total := l.Credit(5, FocusXP); total != 20 {
		t.Fatalf("total = %d", total)
	}
	if l.Balance(5) != 20 || l.Balance(6) != 0 {
		t.Errorf("balances = %d, %d", l.Balance(5), l.Balance(6))
	}
	if l.Len() != 1 {
		t.Errorf("len = %d", l.Len())
	}
}

func TestLedgerTopIsStableOnFirstCredit(t *testing.T) {
	l := NewLedger()
	l.Credit(10, 20)
	l.Credit(20, 50)
	l.Credit(30, 20)
	l.Credit(40, 5)

	top := l.Top(3)
	if len(top) != 3 {
		t.Fatalf("len = %d", len(top))
	}
	wantIDs := []int64{20, 10, 30}
	for i, id := range wantIDs {
		if top[i].UserID != id {
			t.Fatalf("top = %+v, want order %v", top, wantIDs)
		}
	}

	if all := l.Top(100); len(all) != 4 {
		t.Errorf("Top beyond size should return all entries, got %d", len(all))
	}
}

func TestLedgerSingleUserIsNotTied(t *testing.T) {
	l := NewLedger()
	l.Credit(1, 10)

	st, ok := l.Rank(1)
	if !ok || st.Rank != 1 || st.Tied {
		t.Errorf("standing = %+v ok=%v", st, ok)
	}
}
