package bot

import (
	"strconv"
	"sync"

	tele "gopkg.in/telebot.v3"
)

// UserCache remembers display names and language choices of users seen in updates.
// It lives in memory only, like the rest of the bot state.
type UserCache struct {
	mu       sync.RWMutex
	names    map[int64]string
	langs    map[int64]string
	explicit map[int64]bool
}

func NewUserCache() *UserCache {
	return &UserCache{
		names:    make(map[int64]string),
		langs:    make(map[int64]string),
		explicit: make(map[int64]bool),
	}
}

// Observe records the sender's name and, unless the user picked one, their client language
func (c *UserCache) Observe(u *tele.User) string {
	if u == nil {
		return "en"
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.names[u.ID] = displayName(u)
	if !c.explicit[u.ID] && u.LanguageCode != "" {
		c.langs[u.ID] = normalizeLang(u.LanguageCode)
	}
	if lang, ok := c.langs[u.ID]; ok {
		return lang
	}
	return "en"
}

// SetLang stores an explicit /language choice which wins over the client language
func (c *UserCache) SetLang(userID int64, lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.langs[userID] = normalizeLang(lang)
	c.explicit[userID] = true
}

func (c *UserCache) Lang(userID int64) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if lang, ok := c.langs[userID]; ok {
		return lang
	}
	return "en"
}

func (c *UserCache) RememberName(userID int64, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[userID] = name
}

// Name returns the last seen display name, or the id when the user is unknown
func (c *UserCache) Name(userID int64) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if name, ok := c.names[userID]; ok {
		return name
	}
	return strconv.FormatInt(userID, 10)
}
