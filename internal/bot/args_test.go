package bot

import (
	"errors"
	"testing"

	"dungeon-keeper/internal/core"
)

func TestParsePomodoroArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantFocus int
		wantBreak int
		wantErr   bool
	}{
		{name: "defaults", args: nil, wantFocus: core.DefaultFocusMinutes, wantBreak: core.DefaultBreakMinutes},
		{name: "focus only", args: []string{"50"}, wantFocus: 50, wantBreak: core.DefaultBreakMinutes},
		{name: "both", args: []string{"45", "15"}, wantFocus: 45, wantBreak: 15},
		{name: "out of range is left to the timer", args: []string{"500"}, wantFocus: 500, wantBreak: core.DefaultBreakMinutes},
		{name: "not a number", args: []string{"long"}, wantErr: true},
		{name: "bad break", args: []string{"25", "x"}, wantErr: true},
		{name: "too many", args: []string{"1", "2", "3"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			focus, brk, err := parsePomodoroArgs(tt.args)
			if tt.wantErr {
				if !errors.Is(err, errUsage) {
					t.Fatalf("err = %v, want errUsage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if focus != tt.wantFocus || brk != tt.wantBreak {
				t.Errorf("got (%d, %d), want (%d, %d)", focus, brk, tt.wantFocus, tt.wantBreak)
			}
		})
	}
}

func TestParseRemindArgs(t *testing.T) {
	tests := []struct {
		payload  string
		wantSpec string
		wantMsg  string
		wantErr  bool
	}{
		{payload: "30m take a break", wantSpec: "30m", wantMsg: "take a break"},
		{payload: "  2h   call mom  ", wantSpec: "2h", wantMsg: "call mom"},
		{payload: "1d", wantSpec: "1d", wantMsg: ""},
		{payload: "   ", wantErr: true},
	}

	for _, tt := range tests {
		spec, msg, err := parseRemindArgs(tt.payload)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseRemindArgs(%q) expected error", tt.payload)
			}
			continue
		}
		if err != nil || spec != tt.wantSpec || msg != tt.wantMsg {
			t.Errorf("parseRemindArgs(%q) = (%q, %q, %v), want (%q, %q)", tt.payload, spec, msg, err, tt.wantSpec, tt.wantMsg)
		}
	}
}

func TestParseCaseArgs(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		needText bool
		wantID   int64
		wantText string
		wantErr  bool
	}{
		{name: "reply", payload: "12 please restart", needText: true, wantID: 12, wantText: "please restart"},
		{name: "hash prefix", payload: "#7 ok", needText: true, wantID: 7, wantText: "ok"},
		{name: "multiline text", payload: "3 line one\nline two", needText: true, wantID: 3, wantText: "line one\nline two"},
		{name: "close", payload: "5", wantID: 5},
		{name: "reply without text", payload: "5", needText: true, wantErr: true},
		{name: "zero id", payload: "0 hi", needText: true, wantErr: true},
		{name: "negative id", payload: "-1", wantErr: true},
		{name: "not a number", payload: "abc hi", needText: true, wantErr: true},
		{name: "empty", payload: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, text, err := parseCaseArgs(tt.payload, tt.needText)
			if tt.wantErr {
				if !errors.Is(err, errUsage) {
					t.Fatalf("err = %v, want errUsage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.wantID || text != tt.wantText {
				t.Errorf("got (%d, %q), want (%d, %q)", id, text, tt.wantID, tt.wantText)
			}
		})
	}
}
