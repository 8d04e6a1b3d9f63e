package core

import "time"

// User is a platform user as seen by the bot
type User struct {
	ID          int64
	DisplayName string
	Lang        string
}

// Channel is a resolved platform channel (the staff chat)
type Channel struct {
	ID    int64
	Title string
}

// MessageRef points at a message posted by the bot
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// ThreadRef points at a staff discussion thread. The zero value means no thread.
type ThreadRef struct {
	ChatID   int64
	ThreadID int
}

// IsZero reports whether the ref points nowhere
func (t ThreadRef) IsZero() bool {
	return t.ThreadID == 0
}

// AttachmentKind is the media type of an attachment
type AttachmentKind string

const (
	AttachmentPhoto    AttachmentKind = "photo"
	AttachmentDocument AttachmentKind = "document"
)

// Attachment references a file the user sent alongside a case body
type Attachment struct {
	Kind   AttachmentKind
	FileID string
	Name   string
}

// Field is a labelled line inside a message. Label is a translation key.
type Field struct {
	Label string
	Value string
}

// Button is an inline affordance. Label is a translation key, Action the callback data.
type Button struct {
	Label  string
	Action string
}

// Message is platform-neutral outbound content.
// Key and Args form the translated headline; Body is user text and is never translated.
type Message struct {
	Key         string
	Args        []any
	Body        string
	Fields      []Field
	Buttons     []Button
	Attachments []Attachment
	MentionAll  bool
}

// CaseStatus represents the lifecycle state of a support case
type CaseStatus string

const (
	CaseOpen   CaseStatus = "open"
	CaseClosed CaseStatus = "closed"
)

// Case represents one support request
type Case struct {
	ID          int64
	UserID      int64
	UserName    string
	Body        string
	Attachments []Attachment
	Thread      ThreadRef
	Status      CaseStatus
	CreatedAt   time.Time
	ClosedAt    *time.Time
	ClosedBy    *int64
}

// CaseEventKind names an entry in the case journal
type CaseEventKind string

const (
	CaseEventOpened      CaseEventKind = "opened"
	CaseEventReplied     CaseEventKind = "replied"
	CaseEventUndelivered CaseEventKind = "undelivered"
	CaseEventClosed      CaseEventKind = "closed"
)

// CaseEvent is one audit entry for a case
type CaseEvent struct {
	CaseID    int64
	Kind      CaseEventKind
	ActorID   int64
	Body      string
	CreatedAt time.Time
}

// Phase is the current half of a focus session
type Phase string

const (
	PhaseFocus Phase = "focus"
	PhaseBreak Phase = "break"
)

// FocusSession is a user's active focus/break timer
type FocusSession struct {
	UserID       int64
	FocusMinutes int
	BreakMinutes int
	Phase        Phase
	StartedAt    time.Time
	PhaseEndsAt  time.Time

	generation uint64
}

// Reminder is a one-shot scheduled notification
type Reminder struct {
	ID      int64
	UserID  int64
	Message string
	FireAt  time.Time
	SetAt   time.Time
}

// LedgerEntry is one row of the XP leaderboard
type LedgerEntry struct {
	UserID int64
	XP     int
}

// Standing is a user's place on the leaderboard.
// Position is the index in the ordering, Rank the competition rank shared by equal scores.
type Standing struct {
	Position int
	Rank     int
	XP       int
	Tied     bool
}
