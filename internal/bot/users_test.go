package bot

import (
	"testing"

	tele "gopkg.in/telebot.v3"
)

func TestUserCacheObserve(t *testing.T) {
	c := NewUserCache()

	if got := c.Lang(1); got != "en" {
		t.Errorf("unknown user lang = %q, want en", got)
	}
	if got := c.Name(1); got != "1" {
		t.Errorf("unknown user name = %q, want id", got)
	}

	lang := c.Observe(&tele.User{ID: 1, FirstName: "Olga", LanguageCode: "ru-RU"})
	if lang != "ru" || c.Lang(1) != "ru" {
		t.Errorf("lang after observe = %q/%q, want ru", lang, c.Lang(1))
	}
	if got := c.Name(1); got != "Olga" {
		t.Errorf("name = %q, want Olga", got)
	}

	if got := c.Observe(nil); got != "en" {
		t.Errorf("Observe(nil) = %q, want en", got)
	}
}

func TestUserCacheExplicitLangWins(t *testing.T) {
	c := NewUserCache()
	c.Observe(&tele.User{ID: 1, LanguageCode: "ru"})
	c.SetLang(1, "en")

	c.Observe(&tele.User{ID: 1, LanguageCode: "ru"})
	if got := c.Lang(1); got != "en" {
		t.Errorf("lang = %q, want the explicit en", got)
	}
}

func TestUserCacheRememberName(t *testing.T) {
	c := NewUserCache()
	c.RememberName(9, "Staffer")
	if got := c.Name(9); got != "Staffer" {
		t.Errorf("name = %q, want Staffer", got)
	}
}
