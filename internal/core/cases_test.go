package core

import (
	"context"
	"errors"
	"testing"
)

type caseFixture struct {
	tracker  *CaseTracker
	platform *fakePlatform
	clock    *fakeClock
	journal  *memJournal
}

func newCaseFixture() caseFixture {
	clock := newFakeClock()
	platform := newFakePlatform()
	journal := &memJournal{}
	return caseFixture{
		tracker:  NewCaseTracker(platform, NewScheduler(clock), staffChannel, journal),
		platform: platform,
		clock:    clock,
		journal:  journal,
	}
}

var (
	alice = User{ID: 100, DisplayName: "Alice"}
	bob   = User{ID: 200, DisplayName: "Bob"}
	staff = User{ID: 900, DisplayName: "Mod"}
)

func TestFirstMessageStartsFlowWithoutState(t *testing.T) {
	f := newCaseFixture()
	ctx := context.Background()

	if err := f.tracker.HandleDirectMessage(ctx, alice, "hello?", nil); err != nil {
		t.Fatal(err)
	}
	if f.tracker.IsPending(alice.ID) {
		t.Error("the welcome prompt must not set the pending flag")
	}
	if len(f.tracker.Cases()) != 0 {
		t.Error("no case should exist yet")
	}

	f.platform.mu.Lock()
	welcome := f.platform.dms[0].Msg
	f.platform.mu.Unlock()
	if welcome.Key != "support.welcome" || len(welcome.Buttons) != 2 {
		t.Fatalf("welcome = %+v", welcome)
	}
	if welcome.Buttons[0].Action != ActionSupportStart || welcome.Buttons[1].Action != ActionSupportCancel {
		t.Errorf("buttons = %+v", welcome.Buttons)
	}
}

func TestSupportFlowCreatesCase(t *testing.T) {
	f := newCaseFixture()
	ctx := context.Background()

	if err := f.tracker.ConfirmStart(ctx, alice.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.tracker.ConfirmStart(ctx, alice.ID); err != nil {
		t.Fatal("confirm start is idempotent")
	}

	atts := []Attachment{{Kind: AttachmentPhoto, FileID: "abc"}}
	if err := f.tracker.HandleDirectMessage(ctx, alice, "my game crashes", atts); err != nil {
		t.Fatal(err)
	}

	c, ok := f.tracker.Case(1)
	if !ok {
		t.Fatal("case #1 should exist")
	}
	if c.UserID != alice.ID || c.Status != CaseOpen || c.Thread.IsZero() {
		t.Errorf("case = %+v", c)
	}
	if f.tracker.IsPending(alice.ID) {
		t.Error("pending flag must be cleared once the case exists")
	}

	f.platform.mu.Lock()
	staffPost := f.platform.channel[0]
	title := f.platform.titles[0]
	f.platform.mu.Unlock()

	if staffPost.To != staffChannel || !staffPost.Msg.MentionAll {
		t.Errorf("staff post = %+v", staffPost)
	}
	if staffPost.Msg.Body != "my game crashes" || len(staffPost.Msg.Attachments) != 1 {
		t.Errorf("staff post content = %+v", staffPost.Msg)
	}
	if title != "Case #1 - Alice" {
		t.Errorf("thread title = %q", title)
	}

	keys := f.platform.dmsTo(alice.ID)
	if keys[len(keys)-1] != "case.created" {
		t.Errorf("last DM = %v", keys)
	}
	if kinds := f.journal.kinds(); len(kinds) != 1 || kinds[0] != CaseEventOpened {
		t.Errorf("journal = %v", kinds)
	}

	// next message starts a fresh flow
	f.tracker.HandleDirectMessage(ctx, alice, "thanks", nil)
	if len(f.tracker.Cases()) != 1 {
		t.Error("a message after submission must not open a second case")
	}
}

func TestCaseIDsIncreasePerCase(t *testing.T) {
	f := newCaseFixture()
	ctx := context.Background()
	carol := User{ID: 300, DisplayName: "Carol"}

	for i, u := range []User{alice, bob, carol} {
		f.tracker.ConfirmStart(ctx, u.ID)
		c, err := f.tracker.SubmitCase(ctx, u, "issue", nil)
		if err != nil {
			t.Fatal(err)
		}
		if c.ID != int64(i+1) {
			t.Fatalf("case id = %d, want %d", c.ID, i+1)
		}
	}

	if _, err := f.tracker.Close(ctx, 2, staff); err != nil {
		t.Fatalf("Close(2): %v", err)
	}
	for _, id := range []int64{1, 3} {
		c, ok := f.tracker.Case(id)
		if !ok {
			t.Fatalf("case %d missing", id)
		}
		if c.Status != CaseOpen || c.ClosedAt != nil || c.ClosedBy != nil {
			t.Errorf("case %d = %+v, want untouched and open", id, c)
		}
	}
	if c, _ := f.tracker.Case(2); c.Status != CaseClosed {
		t.Errorf("case 2 status = %s, want closed", c.Status)
	}
}

func TestMessageDuringSubmissionIsIgnored(t *testing.T) {
	f := newCaseFixture()
	ctx := context.Background()

	f.tracker.ConfirmStart(ctx, alice.ID)
	f.tracker.mu.Lock()
	f.tracker.submitting[alice.ID] = true
	f.tracker.mu.Unlock()

	if err := f.tracker.HandleDirectMessage(ctx, alice, "second message", nil); err != nil {
		t.Fatalf("HandleDirectMessage: %v", err)
	}
	for _, key := range f.platform.dmsTo(alice.ID) {
		if key == "support.failed" {
			t.Error("an in-flight submission must not report a failure to the user")
		}
	}
	if len(f.tracker.Cases()) != 0 {
		t.Error("no case may be opened by the second message")
	}
	if !f.tracker.IsPending(alice.ID) {
		t.Error("pending flag must stay for the in-flight submission")
	}
}

func TestSubmitWithoutPending(t *testing.T) {
	f := newCaseFixture()

	if _, err := f.tracker.SubmitCase(context.Background(), alice, "x", nil); !errors.Is(err, ErrNotPending) {
		t.Fatalf("err = %v, want ErrNotPending", err)
	}
}

func TestSubmitStaffChannelMissing(t *testing.T) {
	f := newCaseFixture()
	ctx := context.Background()
	delete(f.platform.channels, staffChannel)

	f.tracker.ConfirmStart(ctx, alice.ID)
	err := f.tracker.HandleDirectMessage(ctx, alice, "help", nil)
	if !errors.Is(err, ErrStaffChannelUnreachable) {
		t.Fatalf("err = %v", err)
	}
	if !f.tracker.IsPending(alice.ID) {
		t.Error("pending flag must survive a failed submission")
	}
	if len(f.tracker.Cases()) != 0 {
		t.Error("no case may exist after a failed submission")
	}
	keys := f.platform.dmsTo(alice.ID)
	if keys[len(keys)-1] != "support.failed" {
		t.Errorf("user should be told the submission failed, got %v", keys)
	}
}

func TestSubmitStaffPostFailureBurnsID(t *testing.T) {
	f := newCaseFixture()
	ctx := context.Background()

	f.platform.channelFail = true
	f.tracker.ConfirmStart(ctx, alice.ID)
	if _, err := f.tracker.SubmitCase(ctx, alice, "help", nil); !errors.Is(err, ErrStaffChannelUnreachable) {
		t.Fatalf("err = %v", err)
	}

	f.platform.channelFail = false
	c, err := f.tracker.SubmitCase(ctx, alice, "help", nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != 2 {
		t.Errorf("case id = %d; ids are never reused", c.ID)
	}
}

func TestSubmitThreadFailureStillCreatesCase(t *testing.T) {
	f := newCaseFixture()
	ctx := context.Background()
	f.platform.threadFail = true

	f.tracker.ConfirmStart(ctx, bob.ID)
	c, err := f.tracker.SubmitCase(ctx, bob, "help", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Thread.IsZero() {
		t.Errorf("thread = %+v, want zero", c.Thread)
	}

	if err := f.tracker.Reply(ctx, c.ID, staff, "hi"); err != nil {
		t.Fatalf("reply without thread: %v", err)
	}
	if len(f.platform.threadKeys()) != 0 {
		t.Error("nothing can be posted into a missing thread")
	}
}

func TestSubmitConfirmationFailureKeepsCase(t *testing.T) {
	f := newCaseFixture()
	ctx := context.Background()

	f.tracker.ConfirmStart(ctx, bob.ID)
	f.platform.dmFail[bob.ID] = true
	if _, err := f.tracker.SubmitCase(ctx, bob, "help", nil); err != nil {
		t.Fatalf("confirmation failure must not fail the submission: %v", err)
	}
	if len(f.tracker.Cases()) != 1 {
		t.Error("case should exist")
	}
}

func TestCancelKeepsPendingFlag(t *testing.T) {
	f := newCaseFixture()
	ctx := context.Background()

	f.tracker.ConfirmStart(ctx, alice.ID)
	if err := f.tracker.CancelStart(ctx, alice.ID); err != nil {
		t.Fatal(err)
	}
	if !f.tracker.IsPending(alice.ID) {
		t.Error("cancel only acknowledges; pending flag stays")
	}
}

func openCase(t *testing.T, f caseFixture, u User) Case {
	t.Helper()
	ctx := context.Background()
	f.tracker.ConfirmStart(ctx, u.ID)
	c, err := f.tracker.SubmitCase(ctx, u, "issue", nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestReply(t *testing.T) {
	f := newCaseFixture()
	ctx := context.Background()
	c := openCase(t, f, alice)

	if err := f.tracker.Reply(ctx, c.ID, staff, "try restarting"); err != nil {
		t.Fatal(err)
	}
	keys := f.platform.dmsTo(alice.ID)
	if keys[len(keys)-1] != "case.staff_reply" {
		t.Errorf("DMs = %v", keys)
	}
	if tk := f.platform.threadKeys(); len(tk) != 1 || tk[0] != "case.reply_logged" {
		t.Errorf("thread posts = %v", tk)
	}

	if err := f.tracker.Reply(ctx, 42, staff, "x"); !errors.Is(err, ErrCaseNotFound) {
		t.Errorf("unknown case: err = %v", err)
	}
}

func TestReplyToUnreachableUser(t *testing.T) {
	f := newCaseFixture()
	ctx := context.Background()
	c := openCase(t, f, alice)

	f.platform.dmFail[alice.ID] = true
	err := f.tracker.Reply(ctx, c.ID, staff, "hello")
	if !errors.Is(err, ErrUserUnreachable) {
		t.Fatalf("err = %v, want ErrUserUnreachable", err)
	}
	if !errors.Is(err, errFake) {
		t.Errorf("delivery error should be wrapped: %v", err)
	}

	f.platform.unreachable[alice.ID] = true
	if err := f.tracker.Reply(ctx, c.ID, staff, "hello"); !errors.Is(err, ErrUserUnreachable) {
		t.Fatalf("unresolved user: err = %v", err)
	}

	tk := f.platform.threadKeys()
	if len(tk) != 2 || tk[0] != "case.reply_undelivered" {
		t.Errorf("thread posts = %v", tk)
	}
	kinds := f.journal.kinds()
	if kinds[len(kinds)-1] != CaseEventUndelivered {
		t.Errorf("journal = %v", kinds)
	}
}

func TestCloseCase(t *testing.T) {
	f := newCaseFixture()
	ctx := context.Background()
	c := openCase(t, f, alice)

	closed, err := f.tracker.Close(ctx, c.ID, staff)
	if err != nil {
		t.Fatal(err)
	}
	if closed.Status != CaseClosed || closed.ClosedAt == nil || closed.ClosedBy == nil || *closed.ClosedBy != staff.ID {
		t.Errorf("closed case = %+v", closed)
	}
	if !closed.ClosedAt.Equal(f.clock.Now()) {
		t.Errorf("closedAt = %v", closed.ClosedAt)
	}

	f.platform.mu.Lock()
	archived := len(f.platform.archived)
	f.platform.mu.Unlock()
	if archived != 1 {
		t.Errorf("thread archive calls = %d", archived)
	}
	if tk := f.platform.threadKeys(); tk[len(tk)-1] != "case.closed_by" {
		t.Errorf("thread posts = %v", tk)
	}
	keys := f.platform.dmsTo(alice.ID)
	if keys[len(keys)-1] != "case.closed_user" {
		t.Errorf("DMs = %v", keys)
	}

	if _, err := f.tracker.Close(ctx, c.ID, staff); !errors.Is(err, ErrCaseClosed) {
		t.Errorf("second close: err = %v", err)
	}
	if _, err := f.tracker.Close(ctx, 77, staff); !errors.Is(err, ErrCaseNotFound) {
		t.Errorf("unknown case: err = %v", err)
	}
	if len(f.tracker.OpenCases()) != 0 {
		t.Error("no open cases should remain")
	}
}

func TestCloseWithUnreachableUserSucceeds(t *testing.T) {
	f := newCaseFixture()
	c := openCase(t, f, bob)
	f.platform.unreachable[bob.ID] = true

	if _, err := f.tracker.Close(context.Background(), c.ID, staff); err != nil {
		t.Fatalf("user notification is best effort: %v", err)
	}
}

func TestJournalFailureDoesNotBreakFlow(t *testing.T) {
	f := newCaseFixture()
	f.journal.fail = true

	c := openCase(t, f, alice)
	if _, err := f.tracker.Close(context.Background(), c.ID, staff); err != nil {
		t.Fatal(err)
	}
}
