package core

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"dungeon-keeper/internal/logging"
)

// DefaultSweepInterval is how often due reminders are delivered
const DefaultSweepInterval = time.Minute

const (
	minReminderSeconds = 60
	maxReminderSeconds = 7 * 24 * 60 * 60
)

type reminderUnit struct {
	size     time.Duration
	min, max int
}

// Caps are enforced per unit and again on the total, both independently.
var reminderUnits = map[string]reminderUnit{
	"m": {size: time.Minute, min: 1, max: 10080},
	"h": {size: time.Hour, min: 1, max: 168},
	"d": {size: 24 * time.Hour, min: 1, max: 7},
}

// ParseReminderDuration parses "30m", "2h" or "1d" and checks the reminder bounds
func ParseReminderDuration(spec string) (time.Duration, error) {
	spec = strings.TrimSpace(spec)
	if len(spec) < 2 {
		return 0, ErrInvalidFormat
	}

	unit, ok := reminderUnits[strings.ToLower(spec[len(spec)-1:])]
	if !ok {
		return 0, ErrInvalidFormat
	}
	amount, err := strconv.Atoi(spec[:len(spec)-1])
	if err != nil {
		return 0, ErrInvalidFormat
	}

	if amount < unit.min {
		return 0, ErrReminderTooSoon
	}
	if amount > unit.max {
		return 0, ErrReminderTooFar
	}

	d := time.Duration(amount) * unit.size
	seconds := int64(d / time.Second)
	if seconds < minReminderSeconds {
		return 0, ErrReminderTooSoon
	}
	if seconds > maxReminderSeconds {
		return 0, ErrReminderTooFar
	}
	return d, nil
}

// Reminders keeps each user's queued reminders in insertion order and
// delivers the due ones on a periodic sweep.
type Reminders struct {
	platform Platform
	sched    *Scheduler
	log      *slog.Logger

	mu     sync.Mutex
	byUser map[int64][]*Reminder
	nextID int64
}

// NewReminders creates the reminder scheduler
func NewReminders(platform Platform, sched *Scheduler) *Reminders {
	return &Reminders{
		platform: platform,
		sched:    sched,
		log:      logging.Component("reminder"),
		byUser:   make(map[int64][]*Reminder),
	}
}

// Schedule queues a reminder for the user and returns it with its fire time
func (r *Reminders) Schedule(userID int64, spec, message string) (Reminder, error) {
	d, err := ParseReminderDuration(spec)
	if err != nil {
		return Reminder{}, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return Reminder{}, ErrEmptyMessage
	}

	now := r.sched.Now()

	r.mu.Lock()
	r.nextID++
	rem := &Reminder{
		ID:      r.nextID,
		UserID:  userID,
		Message: message,
		FireAt:  now.Add(d),
		SetAt:   now,
	}
	r.byUser[userID] = append(r.byUser[userID], rem)
	r.mu.Unlock()

	r.log.Info("Reminder scheduled", "user", userID, "id", rem.ID, "fire_at", rem.FireAt.Format(time.RFC3339))
	return *rem, nil
}

// Pending returns a copy of the user's queued reminders
func (r *Reminders) Pending(userID int64) []Reminder {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.byUser[userID]
	out := make([]Reminder, 0, len(list))
	for _, rem := range list {
		out = append(out, *rem)
	}
	return out
}

// Users returns how many users have queued reminders
func (r *Reminders) Users() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}

// Len returns the total number of queued reminders
func (r *Reminders) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, list := range r.byUser {
		n += len(list)
	}
	return n
}

// Start registers the sweep as a recurring scheduler job
func (r *Reminders) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	var sweep Job
	sweep = func(ctx context.Context) {
		// the next sweep is queued first so a failing delivery cannot end the chain
		r.sched.After(interval, "reminder-sweep", sweep)
		r.Sweep(ctx)
	}
	r.sched.After(interval, "reminder-sweep", sweep)
	r.log.Info("Reminder sweep registered", "interval", interval)
}

// Sweep claims every due reminder and delivers it. Claimed reminders are
// removed before delivery, so a reminder is never handed out twice.
func (r *Reminders) Sweep(ctx context.Context) int {
	now := r.sched.Now()

	r.mu.Lock()
	var due []Reminder
	for userID, list := range r.byUser {
		snapshot := append([]*Reminder(nil), list...)
		for _, rem := range snapshot {
			if rem.FireAt.After(now) {
				continue
			}
			due = append(due, *rem)
			r.removeLocked(userID, rem.ID)
		}
	}
	r.mu.Unlock()

	if len(due) == 0 {
		return 0
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].FireAt.Equal(due[j].FireAt) {
			return due[i].ID < due[j].ID
		}
		return due[i].FireAt.Before(due[j].FireAt)
	})

	r.log.Info("Delivering due reminders", "count", len(due))
	for _, rem := range due {
		r.deliver(ctx, rem)
	}
	return len(due)
}

// deliver sends one claimed reminder. A panicking send is logged and skipped.
func (r *Reminders) deliver(ctx context.Context, rem Reminder) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Reminder delivery panicked", "user", rem.UserID, "id", rem.ID, "panic", p)
		}
	}()

	msg := Message{
		Key:  "reminder.fire",
		Args: []any{rem.SetAt},
		Body: rem.Message,
	}
	if _, err := r.platform.SendDirectMessage(ctx, rem.UserID, msg); err != nil {
		r.log.Warn("Failed to deliver reminder", "user", rem.UserID, "id", rem.ID, "error", err)
	}
}

// removeLocked deletes one reminder from the authoritative list. r.mu must be held.
func (r *Reminders) removeLocked(userID, id int64) {
	list := r.byUser[userID]
	for i, rem := range list {
		if rem.ID == id {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.byUser, userID)
		return
	}
	r.byUser[userID] = list
}
