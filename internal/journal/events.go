package journal

import (
	"context"
	"fmt"

	"dungeon-keeper/internal/core"
)

// Entry is a journaled case event together with the run that produced it
type Entry struct {
	ID     int64
	BootID string
	core.CaseEvent
}

// Record appends one case event for the current run
func (s *Store) Record(ctx context.Context, ev core.CaseEvent) error {
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO case_events (boot_id, case_id, kind, actor_id, body, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		s.bootID, ev.CaseID, string(ev.Kind), ev.ActorID, ev.Body, ev.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record case event: %w", err)
	}
	return nil
}

// Transcript returns the events of one case from the current run, oldest first
func (s *Store) Transcript(ctx context.Context, caseID int64) ([]Entry, error) {
	return s.query(ctx,
		"SELECT id, boot_id, case_id, kind, actor_id, COALESCE(body, ''), created_at FROM case_events WHERE boot_id = ? AND case_id = ? ORDER BY id",
		s.bootID, caseID,
	)
}

// Recent returns the newest events across all runs, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.query(ctx,
		"SELECT id, boot_id, case_id, kind, actor_id, COALESCE(body, ''), created_at FROM case_events ORDER BY id DESC LIMIT ?",
		limit,
	)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query case events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.ID, &e.BootID, &e.CaseID, &kind, &e.ActorID, &e.Body, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan case event: %w", err)
		}
		e.Kind = core.CaseEventKind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
