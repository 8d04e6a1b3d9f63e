package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"dungeon-keeper/internal/core"
	"dungeon-keeper/internal/web"
)

// leaderboardSize is how many users /rank lists
const leaderboardSize = 10

// loginLinkTTL is how long a /web link stays valid
const loginLinkTTL = 15 * time.Minute

// handleHelp handles /start and /help
func (b *Bot) handleHelp(c tele.Context) error {
	text := b.t(c, "help")
	if c.Chat() != nil && c.Chat().ID == b.opts.StaffChatID {
		text += "\n\n" + b.t(c, "help.staff")
	}
	return c.Send(text)
}

// handleDirectMessage feeds private text, photos and documents into the support flow
func (b *Bot) handleDirectMessage(c tele.Context) error {
	if !isPrivate(c) {
		return nil
	}
	m := c.Message()
	body := m.Text
	if body == "" {
		body = m.Caption
	}
	if strings.HasPrefix(body, "/") {
		return b.handleHelp(c)
	}

	var attachments []core.Attachment
	if m.Photo != nil {
		attachments = append(attachments, core.Attachment{Kind: core.AttachmentPhoto, FileID: m.Photo.FileID})
	}
	if m.Document != nil {
		attachments = append(attachments, core.Attachment{Kind: core.AttachmentDocument, FileID: m.Document.FileID, Name: m.Document.FileName})
	}

	ctx, cancel := b.updateContext()
	defer cancel()

	user := coreUser(c.Sender(), b.lang(c))
	if err := b.service.Cases.HandleDirectMessage(ctx, user, body, attachments); err != nil {
		b.log.Warn("Direct message not handled", "user", user.ID, "error", err)
	}
	return nil
}

// handleCallback handles all inline button callbacks
func (b *Bot) handleCallback(c tele.Context) error {
	data := strings.TrimSpace(c.Callback().Data)
	ctx, cancel := b.updateContext()
	defer cancel()

	var err error
	switch {
	case data == core.ActionSupportStart:
		err = b.service.Cases.ConfirmStart(ctx, c.Sender().ID)
	case data == core.ActionSupportCancel:
		err = b.service.Cases.CancelStart(ctx, c.Sender().ID)
	case strings.HasPrefix(data, "lang:"):
		return b.handleLanguageSelection(c, strings.TrimPrefix(data, "lang:"))
	default:
		return c.Respond(&tele.CallbackResponse{Text: "❌"})
	}
	if err != nil {
		b.log.Warn("Callback failed", "data", data, "user", c.Sender().ID, "error", err)
	}
	return c.Respond()
}

func (b *Bot) languageKeyboard(lang string) *tele.ReplyMarkup {
	btnEn := tele.InlineButton{Text: b.tr.T(lang, "language.en"), Data: "lang:en"}
	btnRu := tele.InlineButton{Text: b.tr.T(lang, "language.ru"), Data: "lang:ru"}
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{{btnEn, btnRu}}}
}

// handleLanguage handles /language
func (b *Bot) handleLanguage(c tele.Context) error {
	return c.Send(b.t(c, "language.prompt"), b.languageKeyboard(b.lang(c)))
}

func (b *Bot) handleLanguageSelection(c tele.Context, lang string) error {
	b.users.SetLang(c.Sender().ID, lang)
	lang = b.lang(c)
	if err := c.Edit(b.tr.T(lang, "language.set"), b.languageKeyboard(lang)); err != nil {
		b.log.Warn("Failed to edit language message", "error", err)
	}
	return c.Respond()
}

// handlePomodoro handles /pomodoro [focus] [break]
func (b *Bot) handlePomodoro(c tele.Context) error {
	focus, brk, err := parsePomodoroArgs(c.Args())
	if err != nil {
		return c.Send(b.t(c, "timer.usage"))
	}

	_, err = b.service.Timers.Start(c.Sender().ID, focus, brk)
	switch {
	case err == nil:
		return c.Send(b.t(c, "timer.started", focus, brk))
	case errors.Is(err, core.ErrAlreadyActive):
		return c.Send(b.t(c, "timer.already_active"))
	case errors.Is(err, core.ErrFocusOutOfRange):
		return c.Send(b.t(c, "timer.focus_range", core.MinFocusMinutes, core.MaxFocusMinutes))
	case errors.Is(err, core.ErrBreakOutOfRange):
		return c.Send(b.t(c, "timer.break_range", core.MinBreakMinutes, core.MaxBreakMinutes))
	default:
		b.log.Error("Failed to start timer", "user", c.Sender().ID, "error", err)
		return c.Send(b.t(c, "error.generic"))
	}
}

// handleStopTimer handles /stoptimer
func (b *Bot) handleStopTimer(c tele.Context) error {
	if err := b.service.Timers.Stop(c.Sender().ID); err != nil {
		return c.Send(b.t(c, "timer.none"))
	}
	return c.Send(b.t(c, "timer.stopped"))
}

// handleTimer handles /timer
func (b *Bot) handleTimer(c tele.Context) error {
	s, ok := b.service.Timers.Session(c.Sender().ID)
	if !ok {
		return c.Send(b.t(c, "timer.none"))
	}
	left := s.PhaseEndsAt.Sub(b.service.Scheduler.Now())
	phase := b.t(c, "phase."+string(s.Phase))
	return c.Send(b.t(c, "timer.status", phase, formatRemaining(left)))
}

// handleRank handles /rank
func (b *Bot) handleRank(c tele.Context) error {
	return c.Send(b.rankText(b.lang(c), c.Sender().ID))
}

// rankText renders the user's standing followed by the leaderboard
func (b *Bot) rankText(lang string, userID int64) string {
	var msg strings.Builder

	st, ok := b.service.Ledger.Rank(userID)
	if !ok {
		msg.WriteString(b.tr.T(lang, "rank.none"))
	} else {
		msg.WriteString(b.tr.Tf(lang, "rank.show", st.Rank, st.XP))
		if st.Tied {
			msg.WriteString(" " + b.tr.T(lang, "rank.tied"))
		}
	}

	top := b.service.Ledger.Top(leaderboardSize)
	if len(top) > 0 {
		msg.WriteString("\n\n" + b.tr.T(lang, "rank.top_header"))
		for i, e := range top {
			msg.WriteString("\n")
			msg.WriteString(b.tr.Tf(lang, "rank.top_line", i+1, b.users.Name(e.UserID), e.XP))
		}
	}
	return msg.String()
}

// handleRemindMe handles /remindme <time> <message>
func (b *Bot) handleRemindMe(c tele.Context) error {
	spec, message, err := parseRemindArgs(c.Message().Payload)
	if err != nil {
		return c.Send(b.t(c, "reminder.usage"))
	}

	rem, err := b.service.Reminders.Schedule(c.Sender().ID, spec, message)
	switch {
	case err == nil:
		return c.Send(b.t(c, "reminder.set", rem.FireAt.UTC().Format(TimeLayout)))
	case errors.Is(err, core.ErrReminderTooSoon):
		return c.Send(b.t(c, "reminder.too_soon"))
	case errors.Is(err, core.ErrReminderTooFar):
		return c.Send(b.t(c, "reminder.too_far"))
	case errors.Is(err, core.ErrInvalidFormat):
		return c.Send(b.t(c, "reminder.invalid_format"))
	case errors.Is(err, core.ErrEmptyMessage):
		return c.Send(b.t(c, "reminder.empty"))
	default:
		b.log.Error("Failed to schedule reminder", "user", c.Sender().ID, "error", err)
		return c.Send(b.t(c, "error.generic"))
	}
}

// handleReminders handles /reminders
func (b *Bot) handleReminders(c tele.Context) error {
	pending := b.service.Reminders.Pending(c.Sender().ID)
	if len(pending) == 0 {
		return c.Send(b.t(c, "reminders.none"))
	}

	var msg strings.Builder
	msg.WriteString(b.t(c, "reminders.header"))
	for _, r := range pending {
		msg.WriteString("\n")
		msg.WriteString(b.t(c, "reminders.line", r.FireAt.UTC().Format(TimeLayout), r.Message))
	}
	return c.Send(msg.String())
}

// handleTopic handles /topic
func (b *Bot) handleTopic(c tele.Context) error {
	return c.Send(b.t(c, "topic.title") + "\n\n" + b.service.Content.RandomTopic())
}

// handleStudyQuote handles /studyquote
func (b *Bot) handleStudyQuote(c tele.Context) error {
	return c.Send(fmt.Sprintf("%s\n\n\"%s\"", b.t(c, "quote.title"), b.service.Content.RandomQuote()))
}

// handleReply handles /reply <case> <message> in the staff chat
func (b *Bot) handleReply(c tele.Context) error {
	caseID, text, err := parseCaseArgs(c.Message().Payload, true)
	if err != nil {
		return c.Reply(b.t(c, "reply.usage"))
	}

	ctx, cancel := b.updateContext()
	defer cancel()

	staff := coreUser(c.Sender(), b.lang(c))
	err = b.service.Cases.Reply(ctx, caseID, staff, text)
	switch {
	case err == nil:
		return c.Reply(b.t(c, "reply.sent", caseID))
	case errors.Is(err, core.ErrCaseNotFound):
		return c.Reply(b.t(c, "case.not_found"))
	case errors.Is(err, core.ErrUserUnreachable):
		return c.Reply(b.t(c, "reply.unreachable", caseID))
	default:
		b.log.Error("Failed to reply to case", "case", caseID, "error", err)
		return c.Reply(b.t(c, "error.generic"))
	}
}

// handleClose handles /close <case> in the staff chat
func (b *Bot) handleClose(c tele.Context) error {
	caseID, _, err := parseCaseArgs(c.Message().Payload, false)
	if err != nil {
		return c.Reply(b.t(c, "close.usage"))
	}

	ctx, cancel := b.updateContext()
	defer cancel()

	_, err = b.service.Cases.Close(ctx, caseID, coreUser(c.Sender(), b.lang(c)))
	switch {
	case err == nil:
		return c.Reply(b.t(c, "close.done", caseID))
	case errors.Is(err, core.ErrCaseNotFound):
		return c.Reply(b.t(c, "case.not_found"))
	case errors.Is(err, core.ErrCaseClosed):
		return c.Reply(b.t(c, "close.already", caseID))
	default:
		b.log.Error("Failed to close case", "case", caseID, "error", err)
		return c.Reply(b.t(c, "error.generic"))
	}
}

// handleCases handles /cases in the staff chat
func (b *Bot) handleCases(c tele.Context) error {
	open := b.service.Cases.OpenCases()
	if len(open) == 0 {
		return c.Reply(b.t(c, "cases.none"))
	}

	var msg strings.Builder
	msg.WriteString(b.t(c, "cases.header"))
	for _, cs := range open {
		msg.WriteString("\n")
		msg.WriteString(b.t(c, "cases.line", cs.ID, cs.UserName, cs.CreatedAt.UTC().Format(TimeLayout)))
	}
	return c.Reply(msg.String())
}

// handleWeb sends a dashboard login link to the staff member privately
func (b *Bot) handleWeb(c tele.Context) error {
	if !b.opts.Dashboard {
		return c.Reply(b.t(c, "web.disabled"))
	}

	ctx, cancel := b.updateContext()
	defer cancel()

	sender := c.Sender()
	link := web.LoginURL(b.opts.PublicURL, b.opts.SessionSecret, sender.ID, displayName(sender), time.Now().Add(loginLinkTTL))
	msg := core.Message{Key: "web.link", Args: []any{link}}
	if _, err := b.platform.SendDirectMessage(ctx, sender.ID, msg); err != nil {
		b.log.Warn("Failed to send dashboard link", "user", sender.ID, "error", err)
		return c.Reply(b.t(c, "web.dm_failed"))
	}
	return c.Reply(b.t(c, "web.dm_sent"))
}
