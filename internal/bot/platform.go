package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"

	"dungeon-keeper/internal/core"
	"dungeon-keeper/internal/i18n"
	"dungeon-keeper/internal/logging"
)

// ErrLoginFailure is returned by Dial when Telegram rejects the token
var ErrLoginFailure = errors.New("telegram login failed")

// topicNameLimit is Telegram's maximum forum topic name length
const topicNameLimit = 128

// Dial connects to Telegram and verifies the token with getMe
func Dial(token string, onError func(error, tele.Context)) (*tele.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrLoginFailure)
	}
	pref := tele.Settings{
		Token:   token,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: onError,
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoginFailure, err)
	}
	return b, nil
}

// Platform implements core.Platform on top of the Telegram Bot API.
// The staff channel is a forum supergroup and a case thread is one of its topics.
type Platform struct {
	api     *tele.Bot
	tr      *i18n.Translator
	users   *UserCache
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewPlatform wraps api. Outbound calls are throttled by limiter.
func NewPlatform(api *tele.Bot, tr *i18n.Translator, users *UserCache, limiter *rate.Limiter) *Platform {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Platform{
		api:     api,
		tr:      tr,
		users:   users,
		limiter: limiter,
		log:     logging.Component("telegram"),
	}
}

var _ core.Platform = (*Platform)(nil)

func (p *Platform) wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", core.ErrDeliveryFailed, err)
	}
	return nil
}

// SendDirectMessage sends msg to the user's private chat in the user's language
func (p *Platform) SendDirectMessage(ctx context.Context, userID int64, msg core.Message) (core.MessageRef, error) {
	return p.send(ctx, userID, 0, p.users.Lang(userID), msg)
}

// SendChannelMessage posts msg to a group chat in the default language
func (p *Platform) SendChannelMessage(ctx context.Context, channelID int64, msg core.Message) (core.MessageRef, error) {
	return p.send(ctx, channelID, 0, i18n.DefaultLang, msg)
}

// SendThreadMessage posts msg into a forum topic
func (p *Platform) SendThreadMessage(ctx context.Context, thread core.ThreadRef, msg core.Message) error {
	_, err := p.send(ctx, thread.ChatID, thread.ThreadID, i18n.DefaultLang, msg)
	return err
}

// CreateThread opens a forum topic next to parent and copies the parent message into it.
// Telegram topics do not auto-archive, so autoArchive is ignored.
func (p *Platform) CreateThread(ctx context.Context, parent core.MessageRef, title string, autoArchive time.Duration) (core.ThreadRef, error) {
	if err := p.wait(ctx); err != nil {
		return core.ThreadRef{}, err
	}
	chat := &tele.Chat{ID: parent.ChatID}
	topic, err := p.api.CreateTopic(chat, &tele.Topic{Name: truncate(title, topicNameLimit)})
	if err != nil {
		return core.ThreadRef{}, fmt.Errorf("create topic: %w", err)
	}
	ref := core.ThreadRef{ChatID: parent.ChatID, ThreadID: topic.ThreadID}

	if err := p.wait(ctx); err != nil {
		return ref, nil
	}
	stored := tele.StoredMessage{MessageID: strconv.Itoa(parent.MessageID), ChatID: parent.ChatID}
	if _, err := p.api.Copy(chat, stored, &tele.SendOptions{ThreadID: topic.ThreadID}); err != nil {
		p.log.Warn("Failed to copy case message into topic", "topic", topic.ThreadID, "error", err)
	}
	return ref, nil
}

// ArchiveThread closes the forum topic
func (p *Platform) ArchiveThread(ctx context.Context, thread core.ThreadRef) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	if err := p.api.CloseTopic(&tele.Chat{ID: thread.ChatID}, &tele.Topic{ThreadID: thread.ThreadID}); err != nil {
		return fmt.Errorf("close topic: %w", err)
	}
	return nil
}

// ResolveChannel looks the chat up through getChat
func (p *Platform) ResolveChannel(ctx context.Context, channelID int64) (core.Channel, bool) {
	if err := p.wait(ctx); err != nil {
		return core.Channel{}, false
	}
	chat, err := p.api.ChatByID(channelID)
	if err != nil {
		p.log.Warn("Failed to resolve chat", "chat", channelID, "error", err)
		return core.Channel{}, false
	}
	return core.Channel{ID: chat.ID, Title: chat.Title}, true
}

// ResolveUser looks the user's private chat up. It fails for users who never talked to the bot.
func (p *Platform) ResolveUser(ctx context.Context, userID int64) (core.User, bool) {
	if err := p.wait(ctx); err != nil {
		return core.User{}, false
	}
	chat, err := p.api.ChatByID(userID)
	if err != nil {
		p.log.Debug("Failed to resolve user", "user", userID, "error", err)
		return core.User{}, false
	}
	name := chatDisplayName(chat)
	p.users.RememberName(userID, name)
	return core.User{ID: userID, DisplayName: name, Lang: p.users.Lang(userID)}, true
}

func (p *Platform) send(ctx context.Context, chatID int64, threadID int, lang string, msg core.Message) (core.MessageRef, error) {
	if err := p.wait(ctx); err != nil {
		return core.MessageRef{}, err
	}

	opts := &tele.SendOptions{ThreadID: threadID, ReplyMarkup: keyboard(p.tr, lang, msg.Buttons)}
	to := tele.ChatID(chatID)
	sent, err := p.api.Send(to, render(p.tr, lang, msg), opts)
	if err != nil {
		return core.MessageRef{}, fmt.Errorf("%w: %w", core.ErrDeliveryFailed, err)
	}

	for _, att := range msg.Attachments {
		if err := p.wait(ctx); err != nil {
			break
		}
		if _, err := p.api.Send(to, attachmentMedia(att), &tele.SendOptions{ThreadID: threadID}); err != nil {
			p.log.Warn("Failed to forward attachment", "chat", chatID, "file", att.FileID, "error", err)
		}
	}
	return core.MessageRef{ChatID: chatID, MessageID: sent.ID}, nil
}

func attachmentMedia(att core.Attachment) tele.Sendable {
	file := tele.File{FileID: att.FileID}
	if att.Kind == core.AttachmentPhoto {
		return &tele.Photo{File: file}
	}
	return &tele.Document{File: file, FileName: att.Name}
}
