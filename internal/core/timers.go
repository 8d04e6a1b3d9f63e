package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dungeon-keeper/internal/logging"
)

const (
	DefaultFocusMinutes = 25
	DefaultBreakMinutes = 5

	MinFocusMinutes = 1
	MaxFocusMinutes = 120
	MinBreakMinutes = 1
	MaxBreakMinutes = 60
)

// FocusTimers manages one focus/break session per user.
// Phase transitions are scheduler jobs; a job whose session was stopped or
// replaced in the meantime does nothing.
type FocusTimers struct {
	platform Platform
	sched    *Scheduler
	ledger   *Ledger
	log      *slog.Logger

	mu         sync.Mutex
	sessions   map[int64]*FocusSession
	generation uint64
}

// NewFocusTimers creates the timer manager
func NewFocusTimers(platform Platform, sched *Scheduler, ledger *Ledger) *FocusTimers {
	return &FocusTimers{
		platform: platform,
		sched:    sched,
		ledger:   ledger,
		log:      logging.Component("timer"),
		sessions: make(map[int64]*FocusSession),
	}
}

// Start opens a focus session for the user and schedules the end of the focus phase
func (t *FocusTimers) Start(userID int64, focusMinutes, breakMinutes int) (FocusSession, error) {
	if focusMinutes < MinFocusMinutes || focusMinutes > MaxFocusMinutes {
		return FocusSession{}, ErrFocusOutOfRange
	}
	if breakMinutes < MinBreakMinutes || breakMinutes > MaxBreakMinutes {
		return FocusSession{}, ErrBreakOutOfRange
	}

	t.mu.Lock()
	if _, ok := t.sessions[userID]; ok {
		t.mu.Unlock()
		return FocusSession{}, ErrAlreadyActive
	}

	now := t.sched.Now()
	t.generation++
	session := &FocusSession{
		UserID:       userID,
		FocusMinutes: focusMinutes,
		BreakMinutes: breakMinutes,
		Phase:        PhaseFocus,
		StartedAt:    now,
		PhaseEndsAt:  now.Add(minutes(focusMinutes)),
		generation:   t.generation,
	}
	t.sessions[userID] = session
	snapshot := *session
	t.mu.Unlock()

	t.sched.At(snapshot.PhaseEndsAt, "focus-complete", t.completeFocus(userID, snapshot.generation))
	t.log.Info("Focus session started", "user", userID, "focus", focusMinutes, "break", breakMinutes)
	return snapshot, nil
}

// Stop deletes the user's session in whatever phase it is
func (t *FocusTimers) Stop(userID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.sessions[userID]; !ok {
		return ErrNoActiveSession
	}
	delete(t.sessions, userID)
	t.log.Info("Focus session stopped", "user", userID)
	return nil
}

// Session returns a copy of the user's active session
func (t *FocusTimers) Session(userID int64) (FocusSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[userID]
	if !ok {
		return FocusSession{}, false
	}
	return *s, true
}

// Active returns how many sessions are running
func (t *FocusTimers) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// current returns the live session if it still belongs to generation gen
func (t *FocusTimers) current(userID int64, gen uint64, phase Phase) (*FocusSession, bool) {
	s, ok := t.sessions[userID]
	if !ok || s.generation != gen || s.Phase != phase {
		return nil, false
	}
	return s, true
}

func (t *FocusTimers) completeFocus(userID int64, gen uint64) Job {
	return func(ctx context.Context) {
		t.mu.Lock()
		s, ok := t.current(userID, gen, PhaseFocus)
		if !ok {
			t.mu.Unlock()
			return
		}
		total := t.ledger.Credit(userID, FocusXP)
		s.Phase = PhaseBreak
		s.PhaseEndsAt = t.sched.Now().Add(minutes(s.BreakMinutes))
		breakMinutes, endsAt := s.BreakMinutes, s.PhaseEndsAt
		t.mu.Unlock()

		t.sched.At(endsAt, "break-complete", t.completeBreak(userID, gen))

		t.log.Info("Focus phase complete", "user", userID, "xp", total)
		t.notify(ctx, userID, Message{
			Key:  "timer.focus_done",
			Args: []any{breakMinutes, FocusXP, total},
		})
	}
}

func (t *FocusTimers) completeBreak(userID int64, gen uint64) Job {
	return func(ctx context.Context) {
		t.mu.Lock()
		if _, ok := t.current(userID, gen, PhaseBreak); !ok {
			t.mu.Unlock()
			return
		}
		delete(t.sessions, userID)
		t.mu.Unlock()

		t.log.Info("Break phase complete", "user", userID)
		t.notify(ctx, userID, Message{Key: "timer.break_done"})
	}
}

func (t *FocusTimers) notify(ctx context.Context, userID int64, msg Message) {
	if _, err := t.platform.SendDirectMessage(ctx, userID, msg); err != nil {
		t.log.Warn("Failed to deliver timer notification", "user", userID, "error", err)
	}
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
