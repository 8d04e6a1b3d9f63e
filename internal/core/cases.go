package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"dungeon-keeper/internal/logging"
)

// Callback actions attached to the onboarding buttons
const (
	ActionSupportStart  = "support:start"
	ActionSupportCancel = "support:cancel"
)

// CaseThreadArchive is how long a quiet case thread stays open on platforms that auto-archive
const CaseThreadArchive = 1440 * time.Minute

// CaseTracker runs the direct-message support flow and owns every case record
type CaseTracker struct {
	platform Platform
	sched    *Scheduler
	journal  Journal
	staffID  int64
	log      *slog.Logger

	mu         sync.Mutex
	cases      map[int64]*Case
	pending    map[int64]bool
	submitting map[int64]bool
	lastID     int64
}

// NewCaseTracker creates a tracker posting new cases to the staff channel
func NewCaseTracker(platform Platform, sched *Scheduler, staffChannelID int64, journal Journal) *CaseTracker {
	if journal == nil {
		journal = nopJournal{}
	}
	return &CaseTracker{
		platform:   platform,
		sched:      sched,
		journal:    journal,
		staffID:    staffChannelID,
		log:        logging.Component("support"),
		cases:      make(map[int64]*Case),
		pending:    make(map[int64]bool),
		submitting: make(map[int64]bool),
	}
}

// StaffChannelID returns the channel new cases are posted to
func (t *CaseTracker) StaffChannelID() int64 {
	return t.staffID
}

// HandleDirectMessage routes a private message: a pending user submits a case,
// anyone else gets the onboarding prompt.
func (t *CaseTracker) HandleDirectMessage(ctx context.Context, user User, body string, attachments []Attachment) error {
	if !t.IsPending(user.ID) {
		return t.BeginFlow(ctx, user.ID)
	}

	_, err := t.SubmitCase(ctx, user, body, attachments)
	if errors.Is(err, ErrNotPending) {
		// another message from this user is being submitted right now
		t.log.Debug("Ignoring message during case submission", "user", user.ID)
		return nil
	}
	if err != nil {
		t.log.Error("Failed to submit case", "user", user.ID, "error", err)
		t.dm(ctx, user.ID, Message{Key: "support.failed"})
	}
	return err
}

// BeginFlow sends the onboarding prompt with start and cancel buttons
func (t *CaseTracker) BeginFlow(ctx context.Context, userID int64) error {
	msg := Message{
		Key:    "support.welcome",
		Fields: []Field{{Label: "support.how_it_works"}},
		Buttons: []Button{
			{Label: "support.button_start", Action: ActionSupportStart},
			{Label: "support.button_cancel", Action: ActionSupportCancel},
		},
	}
	if _, err := t.platform.SendDirectMessage(ctx, userID, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return nil
}

// ConfirmStart marks the user so the next direct message becomes a case body
func (t *CaseTracker) ConfirmStart(ctx context.Context, userID int64) error {
	t.mu.Lock()
	t.pending[userID] = true
	t.mu.Unlock()

	msg := Message{Key: "support.describe", Fields: []Field{{Label: "support.tips"}}}
	if _, err := t.platform.SendDirectMessage(ctx, userID, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return nil
}

// CancelStart acknowledges the cancel button. The pending flag is left as is.
func (t *CaseTracker) CancelStart(ctx context.Context, userID int64) error {
	if _, err := t.platform.SendDirectMessage(ctx, userID, Message{Key: "support.cancelled"}); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return nil
}

// IsPending reports whether the user's next direct message will open a case
func (t *CaseTracker) IsPending(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending[userID]
}

// SubmitCase creates a case from the user's message, notifies staff and opens
// a discussion thread. On failure the pending flag is kept so the user can retry.
func (t *CaseTracker) SubmitCase(ctx context.Context, user User, body string, attachments []Attachment) (Case, error) {
	t.mu.Lock()
	if !t.pending[user.ID] || t.submitting[user.ID] {
		t.mu.Unlock()
		return Case{}, ErrNotPending
	}
	t.submitting[user.ID] = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.submitting, user.ID)
		t.mu.Unlock()
	}()

	if _, ok := t.platform.ResolveChannel(ctx, t.staffID); !ok {
		return Case{}, ErrStaffChannelUnreachable
	}

	t.mu.Lock()
	t.lastID++
	id := t.lastID
	t.mu.Unlock()

	name := user.DisplayName
	if name == "" {
		name = strconv.FormatInt(user.ID, 10)
	}

	staffMsg := Message{
		Key:  "case.new_staff",
		Args: []any{id},
		Body: body,
		Fields: []Field{
			{Label: "case.field_user", Value: name},
			{Label: "case.field_user_id", Value: strconv.FormatInt(user.ID, 10)},
			{Label: "case.field_status", Value: string(CaseOpen)},
		},
		Attachments: attachments,
		MentionAll:  true,
	}
	ref, err := t.platform.SendChannelMessage(ctx, t.staffID, staffMsg)
	if err != nil {
		// the id stays allocated; ids are never reused
		return Case{}, fmt.Errorf("%w: %w", ErrStaffChannelUnreachable, err)
	}

	thread, err := t.platform.CreateThread(ctx, ref, fmt.Sprintf("Case #%d - %s", id, name), CaseThreadArchive)
	if err != nil {
		t.log.Warn("Failed to create case thread", "case", id, "error", err)
		thread = ThreadRef{}
	}

	c := &Case{
		ID:          id,
		UserID:      user.ID,
		UserName:    name,
		Body:        body,
		Attachments: slices.Clone(attachments),
		Thread:      thread,
		Status:      CaseOpen,
		CreatedAt:   t.sched.Now(),
	}

	t.mu.Lock()
	t.cases[id] = c
	delete(t.pending, user.ID)
	snapshot := copyCase(c)
	t.mu.Unlock()

	t.log.Info("Case opened", "case", id, "user", user.ID)
	t.record(ctx, CaseEvent{CaseID: id, Kind: CaseEventOpened, ActorID: user.ID, Body: body, CreatedAt: snapshot.CreatedAt})

	confirm := Message{
		Key:    "case.created",
		Args:   []any{id},
		Fields: []Field{{Label: "case.field_status", Value: string(CaseOpen)}},
	}
	if _, err := t.platform.SendDirectMessage(ctx, user.ID, confirm); err != nil {
		t.log.Warn("Failed to confirm case to user", "case", id, "user", user.ID, "error", err)
	}
	return snapshot, nil
}

// Reply delivers a staff answer to the case owner and logs it into the case thread
func (t *CaseTracker) Reply(ctx context.Context, caseID int64, staff User, text string) error {
	c, ok := t.Case(caseID)
	if !ok {
		return ErrCaseNotFound
	}

	var deliveryErr error
	if _, found := t.platform.ResolveUser(ctx, c.UserID); !found {
		deliveryErr = ErrUserUnreachable
	} else {
		msg := Message{Key: "case.staff_reply", Args: []any{caseID}, Body: text}
		if _, err := t.platform.SendDirectMessage(ctx, c.UserID, msg); err != nil {
			deliveryErr = fmt.Errorf("%w: %w", ErrUserUnreachable, err)
		}
	}

	audit := Message{Key: "case.reply_logged", Args: []any{staff.DisplayName}, Body: text}
	kind := CaseEventReplied
	if deliveryErr != nil {
		audit.Key = "case.reply_undelivered"
		kind = CaseEventUndelivered
	}
	t.threadPost(ctx, c, audit)
	t.record(ctx, CaseEvent{CaseID: caseID, Kind: kind, ActorID: staff.ID, Body: text, CreatedAt: t.sched.Now()})

	if deliveryErr != nil {
		t.log.Warn("Staff reply not delivered", "case", caseID, "error", deliveryErr)
		return deliveryErr
	}
	t.log.Info("Staff reply delivered", "case", caseID, "staff", staff.ID)
	return nil
}

// Close marks the case closed, archives its thread and tells the user
func (t *CaseTracker) Close(ctx context.Context, caseID int64, staff User) (Case, error) {
	now := t.sched.Now()

	t.mu.Lock()
	c, ok := t.cases[caseID]
	if !ok {
		t.mu.Unlock()
		return Case{}, ErrCaseNotFound
	}
	if c.Status == CaseClosed {
		t.mu.Unlock()
		return Case{}, ErrCaseClosed
	}
	closedBy := staff.ID
	c.Status = CaseClosed
	c.ClosedAt = &now
	c.ClosedBy = &closedBy
	snapshot := copyCase(c)
	t.mu.Unlock()

	t.threadPost(ctx, snapshot, Message{Key: "case.closed_by", Args: []any{staff.DisplayName}})
	if !snapshot.Thread.IsZero() {
		if err := t.platform.ArchiveThread(ctx, snapshot.Thread); err != nil {
			t.log.Warn("Failed to archive case thread", "case", caseID, "error", err)
		}
	}

	if _, found := t.platform.ResolveUser(ctx, snapshot.UserID); found {
		msg := Message{Key: "case.closed_user", Args: []any{caseID}}
		if _, err := t.platform.SendDirectMessage(ctx, snapshot.UserID, msg); err != nil {
			t.log.Warn("Failed to notify user about closed case", "case", caseID, "error", err)
		}
	}

	t.record(ctx, CaseEvent{CaseID: caseID, Kind: CaseEventClosed, ActorID: staff.ID, CreatedAt: now})
	t.log.Info("Case closed", "case", caseID, "staff", staff.ID)
	return snapshot, nil
}

// Case returns a copy of one case
func (t *CaseTracker) Case(id int64) (Case, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.cases[id]
	if !ok {
		return Case{}, false
	}
	return copyCase(c), true
}

// Cases returns copies of all cases ordered by id
func (t *CaseTracker) Cases() []Case {
	t.mu.Lock()
	out := make([]Case, 0, len(t.cases))
	for _, c := range t.cases {
		out = append(out, copyCase(c))
	}
	t.mu.Unlock()

	slices.SortFunc(out, func(a, b Case) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// OpenCases returns copies of the cases still open, ordered by id
func (t *CaseTracker) OpenCases() []Case {
	var open []Case
	for _, c := range t.Cases() {
		if c.Status == CaseOpen {
			open = append(open, c)
		}
	}
	return open
}

func (t *CaseTracker) threadPost(ctx context.Context, c Case, msg Message) {
	if c.Thread.IsZero() {
		return
	}
	if err := t.platform.SendThreadMessage(ctx, c.Thread, msg); err != nil {
		t.log.Warn("Failed to post into case thread", "case", c.ID, "error", err)
	}
}

func (t *CaseTracker) record(ctx context.Context, ev CaseEvent) {
	if err := t.journal.Record(ctx, ev); err != nil {
		t.log.Warn("Failed to journal case event", "case", ev.CaseID, "kind", ev.Kind, "error", err)
	}
}

func (t *CaseTracker) dm(ctx context.Context, userID int64, msg Message) {
	if _, err := t.platform.SendDirectMessage(ctx, userID, msg); err != nil {
		t.log.Warn("Failed to send direct message", "user", userID, "error", err)
	}
}

func copyCase(c *Case) Case {
	out := *c
	out.Attachments = slices.Clone(c.Attachments)
	return out
}
