package core

import (
	"sort"
	"sync"
)

// FocusXP is awarded for every completed focus phase
const FocusXP = 10

// Ledger keeps XP per user and ranks users by it.
// Equal scores are ordered by when the user was first credited.
type Ledger struct {
	mu    sync.Mutex
	xp    map[int64]int
	order []int64
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{xp: make(map[int64]int)}
}

// Credit adds amount to the user's score, creating the entry at zero
func (l *Ledger) Credit(userID int64, amount int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.xp[userID]; !ok {
		l.order = append(l.order, userID)
	}
	l.xp[userID] += amount
	return l.xp[userID]
}

// Balance returns the user's score, zero when absent
func (l *Ledger) Balance(userID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.xp[userID]
}

// Len returns how many users have an entry
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// ordered returns all entries, highest first, stable on first-credit order
func (l *Ledger) ordered() []LedgerEntry {
	l.mu.Lock()
	entries := make([]LedgerEntry, 0, len(l.order))
	for _, id := range l.order {
		entries = append(entries, LedgerEntry{UserID: id, XP: l.xp[id]})
	}
	l.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].XP > entries[j].XP
	})
	return entries
}

// Top returns the first n entries of the leaderboard
func (l *Ledger) Top(n int) []LedgerEntry {
	entries := l.ordered()
	if n >= 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

// Rank returns the user's standing, or false when the user is unranked
func (l *Ledger) Rank(userID int64) (Standing, bool) {
	entries := l.ordered()
	for i, e := range entries {
		if e.UserID != userID {
			continue
		}
		st := Standing{Position: i + 1, XP: e.XP, Rank: 1}
		for _, other := range entries {
			if other.XP > e.XP {
				st.Rank++
			}
			if other.UserID != userID && other.XP == e.XP {
				st.Tied = true
			}
		}
		return st, true
	}
	return Standing{}, false
}
