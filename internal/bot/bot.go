package bot

import (
	"context"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"

	"dungeon-keeper/internal/core"
	"dungeon-keeper/internal/i18n"
	"dungeon-keeper/internal/logging"
)

// updateTimeout bounds the platform work done for a single update
const updateTimeout = 30 * time.Second

// Options configures the command layer
type Options struct {
	StaffChatID   int64
	PublicURL     string
	SessionSecret string
	Dashboard     bool
}

// Bot represents the Telegram bot
type Bot struct {
	api      *tele.Bot
	service  *core.Service
	platform *Platform
	users    *UserCache
	tr       *i18n.Translator
	opts     Options
	log      *slog.Logger

	ctx context.Context
}

// New wires command handlers onto api
func New(api *tele.Bot, service *core.Service, platform *Platform, users *UserCache, tr *i18n.Translator, opts Options) *Bot {
	b := &Bot{
		api:      api,
		service:  service,
		platform: platform,
		users:    users,
		tr:       tr,
		opts:     opts,
		log:      logging.Component("bot"),
		ctx:      context.Background(),
	}
	b.setupHandlers()
	return b
}

// Start polls for updates until ctx is done. Cancel ctx to stop the bot.
func (b *Bot) Start(ctx context.Context) {
	b.ctx = ctx
	go func() {
		<-ctx.Done()
		b.api.Stop()
	}()
	b.log.Info("Telegram bot is now running...", "username", b.api.Me.Username)
	b.api.Start()
}

// setupHandlers configures all command and callback handlers
func (b *Bot) setupHandlers() {
	b.api.Use(middleware.Recover(func(err error, c tele.Context) {
		b.log.Error("Handler panicked", "error", err)
	}))
	b.api.Use(b.observe)

	b.api.Handle("/start", b.handleHelp)
	b.api.Handle("/help", b.handleHelp)
	b.api.Handle("/language", b.handleLanguage)

	b.api.Handle("/pomodoro", b.handlePomodoro)
	b.api.Handle("/stoptimer", b.handleStopTimer)
	b.api.Handle("/timer", b.handleTimer)
	b.api.Handle("/rank", b.handleRank)
	b.api.Handle("/remindme", b.handleRemindMe)
	b.api.Handle("/reminders", b.handleReminders)
	b.api.Handle("/topic", b.handleTopic)
	b.api.Handle("/studyquote", b.handleStudyQuote)

	staff := b.api.Group()
	staff.Use(b.staffOnly)
	staff.Handle("/reply", b.handleReply)
	staff.Handle("/close", b.handleClose)
	staff.Handle("/cases", b.handleCases)
	staff.Handle("/web", b.handleWeb)

	b.api.Handle(tele.OnText, b.handleDirectMessage)
	b.api.Handle(tele.OnPhoto, b.handleDirectMessage)
	b.api.Handle(tele.OnDocument, b.handleDirectMessage)

	b.api.Handle(tele.OnCallback, b.handleCallback)
}

// observe caches the sender and drops updates that have none
func (b *Bot) observe(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Sender() == nil {
			return nil
		}
		b.users.Observe(c.Sender())
		return next(c)
	}
}

// staffOnly rejects staff commands outside the staff chat
func (b *Bot) staffOnly(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Chat() == nil || c.Chat().ID != b.opts.StaffChatID {
			return c.Send(b.t(c, "staff.only"))
		}
		return next(c)
	}
}

// updateContext derives a bounded context for one update
func (b *Bot) updateContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(b.ctx, updateTimeout)
}

func (b *Bot) lang(c tele.Context) string {
	return b.users.Lang(c.Sender().ID)
}

func (b *Bot) t(c tele.Context, key string, args ...any) string {
	return b.tr.Tf(b.lang(c), key, args...)
}

func isPrivate(c tele.Context) bool {
	return c.Chat() != nil && c.Chat().Type == tele.ChatPrivate
}
