package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"dungeon-keeper/internal/core"
	"dungeon-keeper/internal/i18n"
)

// messageLimit keeps rendered text under Telegram's 4096 character cap
const messageLimit = 4000

// TimeLayout is how times are shown to users
const TimeLayout = "2006-01-02 15:04 MST"

// render turns a platform-neutral message into plain text in lang
func render(tr *i18n.Translator, lang string, msg core.Message) string {
	var parts []string

	if msg.MentionAll {
		parts = append(parts, tr.T(lang, "case.mention_all"))
	}
	if msg.Key != "" {
		parts = append(parts, tr.Tf(lang, msg.Key, formatArgs(msg.Args)...))
	}

	var labelled []string
	for _, f := range msg.Fields {
		label := tr.T(lang, f.Label)
		if f.Value == "" {
			// a field without a value is a standalone block of text
			parts = append(parts, label)
			continue
		}
		labelled = append(labelled, label+": "+f.Value)
	}
	if len(labelled) > 0 {
		parts = append(parts, strings.Join(labelled, "\n"))
	}

	if msg.Body != "" {
		parts = append(parts, msg.Body)
	}
	if n := len(msg.Attachments); n > 0 {
		parts = append(parts, fmt.Sprintf("%s × %d", tr.T(lang, "case.attachment"), n))
	}
	return truncate(strings.Join(parts, "\n\n"), messageLimit)
}

// keyboard builds a one-row inline keyboard, nil when there are no buttons
func keyboard(tr *i18n.Translator, lang string, buttons []core.Button) *tele.ReplyMarkup {
	if len(buttons) == 0 {
		return nil
	}
	row := make([]tele.InlineButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, tele.InlineButton{Text: tr.T(lang, b.Label), Data: b.Action})
	}
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{row}}
}

func formatArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if t, ok := a.(time.Time); ok {
			out[i] = t.UTC().Format(TimeLayout)
			continue
		}
		out[i] = a
	}
	return out
}

// formatRemaining renders a countdown like "12m 05s"
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%dm %02ds", m, s)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(lang)
	if strings.HasPrefix(lang, "ru") {
		return "ru"
	}
	return "en"
}

func displayName(u *tele.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = strconv.FormatInt(u.ID, 10)
	}
	return name
}

func chatDisplayName(c *tele.Chat) string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		name = c.Username
	}
	if name == "" {
		name = c.Title
	}
	if name == "" {
		name = strconv.FormatInt(c.ID, 10)
	}
	return name
}

func coreUser(u *tele.User, lang string) core.User {
	return core.User{ID: u.ID, DisplayName: displayName(u), Lang: lang}
}
