package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type loginPageData struct {
	basePageData
	Error string
}

// Sign returns the HMAC-SHA256 of a login link's fields
func Sign(secret string, userID int64, name string, expires int64) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strconv.FormatInt(userID, 10) + "|" + name + "|" + strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// LoginURL builds a signed one-click login link valid until expires
func LoginURL(publicURL, secret string, userID int64, name string, expires time.Time) string {
	exp := expires.Unix()
	q := url.Values{}
	q.Set("uid", strconv.FormatInt(userID, 10))
	q.Set("name", name)
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("hash", Sign(secret, userID, name, exp))
	return publicURL + "/auth?" + q.Encode()
}

// handleLoginPage displays the login page
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.getStaff(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, "login.html", loginPageData{basePageData: s.basePage(r)})
}

// handleHashLogin processes a signed login link from the bot
// URL format: /auth?uid=<id>&name=<name>&exp=<unix>&hash=<hmac>
func (s *Server) handleHashLogin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	base := s.basePage(r)

	userID, errID := strconv.ParseInt(q.Get("uid"), 10, 64)
	exp, errExp := strconv.ParseInt(q.Get("exp"), 10, 64)
	name, provided := q.Get("name"), q.Get("hash")
	if errID != nil || errExp != nil || provided == "" {
		s.log.Warn("Malformed login link", "remote", r.RemoteAddr)
		s.renderStatus(w, http.StatusBadRequest, "login.html", loginPageData{basePageData: base, Error: "dash.invalid_link"})
		return
	}

	expected := Sign(s.sessionSecret, userID, name, exp)
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		s.log.Warn("Invalid login hash", "user", userID, "remote", r.RemoteAddr)
		s.renderStatus(w, http.StatusUnauthorized, "login.html", loginPageData{basePageData: base, Error: "dash.invalid_link"})
		return
	}
	if s.now().Unix() > exp {
		s.log.Info("Expired login link", "user", userID)
		s.renderStatus(w, http.StatusUnauthorized, "login.html", loginPageData{basePageData: base, Error: "dash.expired_link"})
		return
	}

	if err := s.setStaff(w, r, userID, name); err != nil {
		s.log.Error("Failed to create session", "error", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	s.log.Info("Staff member logged in", "user", userID, "name", name)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleLogout logs out the user
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.clearSession(w, r); err != nil {
		s.log.Warn("Failed to clear session", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
