package core

import (
	"context"
	"log/slog"
	"time"

	"dungeon-keeper/internal/logging"
)

// Platform is everything the bot needs from the chat platform.
// Implementations wrap their own errors with %w so callers can inspect them.
type Platform interface {
	SendDirectMessage(ctx context.Context, userID int64, msg Message) (MessageRef, error)
	SendChannelMessage(ctx context.Context, channelID int64, msg Message) (MessageRef, error)
	CreateThread(ctx context.Context, parent MessageRef, title string, autoArchive time.Duration) (ThreadRef, error)
	SendThreadMessage(ctx context.Context, thread ThreadRef, msg Message) error
	ArchiveThread(ctx context.Context, thread ThreadRef) error
	ResolveChannel(ctx context.Context, channelID int64) (Channel, bool)
	ResolveUser(ctx context.Context, userID int64) (User, bool)
}

// Journal receives an audit entry for every case transition
type Journal interface {
	Record(ctx context.Context, ev CaseEvent) error
}

type nopJournal struct{}

func (nopJournal) Record(context.Context, CaseEvent) error { return nil }

// Content supplies random study quotes and conversation topics
type Content interface {
	RandomQuote() string
	RandomTopic() string
}

// ServiceConfig holds the wiring options for NewService
type ServiceConfig struct {
	StaffChannelID int64
	SweepInterval  time.Duration
	Clock          Clock
	Journal        Journal
	Content        Content
}

// Service owns all bot state. Handlers and the dashboard reach it through this struct only.
type Service struct {
	Cases     *CaseTracker
	Timers    *FocusTimers
	Reminders *Reminders
	Ledger    *Ledger
	Scheduler *Scheduler
	Content   Content

	sweepInterval time.Duration
	log           *slog.Logger
}

// NewService creates a new Service instance
func NewService(platform Platform, cfg ServiceConfig) *Service {
	if cfg.Journal == nil {
		cfg.Journal = nopJournal{}
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	sched := NewScheduler(cfg.Clock)
	ledger := NewLedger()

	return &Service{
		Cases:         NewCaseTracker(platform, sched, cfg.StaffChannelID, cfg.Journal),
		Timers:        NewFocusTimers(platform, sched, ledger),
		Reminders:     NewReminders(platform, sched),
		Ledger:        ledger,
		Scheduler:     sched,
		Content:       cfg.Content,
		sweepInterval: cfg.SweepInterval,
		log:           logging.Component("service"),
	}
}

// Run registers the reminder sweep and drives the scheduler until ctx is done
func (s *Service) Run(ctx context.Context) error {
	s.Reminders.Start(s.sweepInterval)
	s.log.Info("Service running", "sweep_interval", s.sweepInterval)
	return s.Scheduler.Run(ctx)
}

// Stats is a point-in-time summary for the dashboard and logs
type Stats struct {
	OpenCases       int
	TotalCases      int
	ActiveTimers    int
	QueuedReminders int
	RankedUsers     int
}

// Stats returns counters across all components
func (s *Service) Stats() Stats {
	all := s.Cases.Cases()
	open := 0
	for _, c := range all {
		if c.Status == CaseOpen {
			open++
		}
	}
	return Stats{
		OpenCases:       open,
		TotalCases:      len(all),
		ActiveTimers:    s.Timers.Active(),
		QueuedReminders: s.Reminders.Len(),
		RankedUsers:     s.Ledger.Len(),
	}
}
