// Package web serves the read-only staff dashboard.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"dungeon-keeper/internal/core"
	"dungeon-keeper/internal/i18n"
	"dungeon-keeper/internal/journal"
	"dungeon-keeper/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionName = "dungeonkeeper-session"
const sessionUserIDKey = "user_id"
const sessionUserNameKey = "user_name"
const sessionLocaleKey = "locale"

var pages = []string{"login.html", "dashboard.html", "case.html"}

// Transcripts reads back journaled case events. A nil Transcripts hides transcripts.
type Transcripts interface {
	Transcript(ctx context.Context, caseID int64) ([]journal.Entry, error)
}

// Names maps user ids to display names
type Names interface {
	Name(userID int64) string
}

// Options configures the dashboard
type Options struct {
	SessionSecret string
	PublicURL     string
	Transcripts   Transcripts
	Names         Names
}

// Server represents the HTTP server
type Server struct {
	service       *core.Service
	transcripts   Transcripts
	names         Names
	sessionStore  *sessions.CookieStore
	templates     map[string]*template.Template
	sessionSecret string
	translator    *i18n.Translator
	log           *slog.Logger
	now           func() time.Time
}

// NewServer creates a new Server instance
func NewServer(service *core.Service, translator *i18n.Translator, opts Options) (*Server, error) {
	log := logging.Component("web")

	store := sessions.NewCookieStore([]byte(opts.SessionSecret))
	isHTTPS := strings.HasPrefix(opts.PublicURL, "https")
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400, // 1 day
		HttpOnly: true,
		Secure:   isHTTPS,
		SameSite: http.SameSiteLaxMode,
	}
	if isHTTPS {
		log.Info("Running behind HTTPS - Secure cookie flag enabled")
	} else {
		log.Info("Running on HTTP - Secure cookie flag disabled (local dev)")
	}

	if translator == nil {
		translator = i18n.NewFallback(i18n.DefaultLang)
	}

	s := &Server{
		service:       service,
		transcripts:   opts.Transcripts,
		names:         opts.Names,
		sessionStore:  store,
		templates:     make(map[string]*template.Template),
		sessionSecret: opts.SessionSecret,
		translator:    translator,
		log:           log,
		now:           service.Scheduler.Now,
	}

	// layout.html and each page are parsed together so every page gets its own "content" block
	funcMap := template.FuncMap{
		"t":    s.translator.T,
		"tf":   s.translator.Tf,
		"time": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 MST") },
		"name": s.displayName,
	}
	for _, page := range pages {
		tmpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		s.templates[page] = tmpl
	}

	return s, nil
}

// Router creates and configures the HTTP router
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", s.handleHealth)
	r.Get("/", s.handleHome)
	r.Get("/login", s.handleLoginPage)
	r.Get("/auth", s.handleHashLogin)
	r.Get("/locale", s.handleSetLocale)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/cases/{caseID}", s.handleCaseView)
		r.Get("/api/stats", s.handleStats)
		r.Get("/logout", s.handleLogout)
	})

	return r
}

// requestLogger logs one line per request through slog
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// detectLocale picks locale from session then Accept-Language with fallback to default.
func (s *Server) detectLocale(r *http.Request) string {
	if session, err := s.sessionStore.Get(r, sessionName); err == nil {
		if l, ok := session.Values[sessionLocaleKey].(string); ok && l != "" {
			return l
		}
	}
	al := r.Header.Get("Accept-Language")
	if strings.HasPrefix(strings.ToLower(al), "ru") {
		return "ru"
	}
	return "en"
}

// handleSetLocale stores locale in session and redirects back.
func (s *Server) handleSetLocale(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	if !s.translator.Has(lang) {
		lang = i18n.DefaultLang
	}
	if err := s.setLocale(w, r, lang); err != nil {
		s.log.Warn("Failed to store locale", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// staffSession is the logged-in staff member
type staffSession struct {
	ID   int64
	Name string
}

// getStaff retrieves the staff member from the session
func (s *Server) getStaff(r *http.Request) (staffSession, bool) {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		return staffSession{}, false
	}
	id, ok := session.Values[sessionUserIDKey].(int64)
	if !ok {
		return staffSession{}, false
	}
	name, _ := session.Values[sessionUserNameKey].(string)
	return staffSession{ID: id, Name: name}, true
}

// setStaff stores the staff member in the session
func (s *Server) setStaff(w http.ResponseWriter, r *http.Request, userID int64, name string) error {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil && session == nil {
		return err
	}
	session.Values[sessionUserIDKey] = userID
	session.Values[sessionUserNameKey] = name
	return session.Save(r, w)
}

// setLocale sets the preferred locale in session.
func (s *Server) setLocale(w http.ResponseWriter, r *http.Request, locale string) error {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil && session == nil {
		return err
	}
	session.Values[sessionLocaleKey] = locale
	return session.Save(r, w)
}

// clearSession clears the session
func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) error {
	session, err := s.sessionStore.Get(r, sessionName)
	if err != nil && session == nil {
		return err
	}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// requireAuth is middleware that ensures a staff member is logged in
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.getStaff(r); !ok {
			// Render login page directly to avoid redirect loops when cookies are blocked
			s.renderStatus(w, http.StatusUnauthorized, "login.html", loginPageData{basePageData: s.basePage(r)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// renderTemplate renders a page with status 200
func (s *Server) renderTemplate(w http.ResponseWriter, name string, data any) {
	s.renderStatus(w, http.StatusOK, name, data)
}

// renderStatus executes layout.html with the page's "content" block into a buffer,
// so a template error never leaves a half-written page behind.
func (s *Server) renderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.templates[name]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.log.Error("Failed to render template", "template", name, "error", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) displayName(userID int64) string {
	if s.names == nil {
		return fmt.Sprintf("#%d", userID)
	}
	return s.names.Name(userID)
}

// handleHome shows the dashboard if logged in, otherwise the login page
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.getStaff(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.handleLoginPage(w, r)
}
