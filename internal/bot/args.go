package bot

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"dungeon-keeper/internal/core"
)

var errUsage = errors.New("usage")

// parsePomodoroArgs reads "[focus] [break]" with the default for anything omitted
func parsePomodoroArgs(args []string) (focus, brk int, err error) {
	focus, brk = core.DefaultFocusMinutes, core.DefaultBreakMinutes
	if len(args) > 2 {
		return 0, 0, errUsage
	}
	if len(args) > 0 {
		if focus, err = strconv.Atoi(args[0]); err != nil {
			return 0, 0, errUsage
		}
	}
	if len(args) > 1 {
		if brk, err = strconv.Atoi(args[1]); err != nil {
			return 0, 0, errUsage
		}
	}
	return focus, brk, nil
}

// parseRemindArgs splits "/remindme 30m take a break" into the time spec and the message
func parseRemindArgs(payload string) (spec, message string, err error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", "", errUsage
	}
	spec, message = splitFirst(payload)
	return spec, message, nil
}

// parseCaseArgs reads "<case id> [text]". A leading # on the id is accepted.
func parseCaseArgs(payload string, needText bool) (caseID int64, text string, err error) {
	payload = strings.TrimSpace(payload)
	idPart, rest := splitFirst(payload)
	caseID, err = strconv.ParseInt(strings.TrimPrefix(idPart, "#"), 10, 64)
	if err != nil || caseID <= 0 {
		return 0, "", errUsage
	}
	text = rest
	if needText && text == "" {
		return 0, "", errUsage
	}
	return caseID, text, nil
}

// splitFirst returns the first word of s and the trimmed remainder
func splitFirst(s string) (first, rest string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
