package core

import (
	"errors"
	"fmt"
)

var (
	// Input validation, surfaced to the invoking user.
	ErrInvalidFormat   = errors.New("invalid time format")
	ErrReminderTooSoon = fmt.Errorf("%w: minimum reminder time is 1 minute", ErrInvalidFormat)
	ErrReminderTooFar  = fmt.Errorf("%w: maximum reminder time is 1 week", ErrInvalidFormat)
	ErrEmptyMessage    = errors.New("reminder message cannot be empty")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrFocusOutOfRange = fmt.Errorf("%w: focus time must be between %d and %d minutes", ErrInvalidDuration, MinFocusMinutes, MaxFocusMinutes)
	ErrBreakOutOfRange = fmt.Errorf("%w: break time must be between %d and %d minutes", ErrInvalidDuration, MinBreakMinutes, MaxBreakMinutes)

	// Lookups and state conflicts.
	ErrCaseNotFound    = errors.New("case not found")
	ErrCaseClosed      = errors.New("case already closed")
	ErrNotPending      = errors.New("user has not started a support request")
	ErrAlreadyActive   = errors.New("timer already active")
	ErrNoActiveSession = errors.New("no active timer")

	// Platform faults.
	ErrDeliveryFailed          = errors.New("message delivery failed")
	ErrUserUnreachable         = errors.New("user unreachable")
	ErrStaffChannelUnreachable = errors.New("staff channel unreachable")
)
