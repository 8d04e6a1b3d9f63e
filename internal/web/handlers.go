package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dungeon-keeper/internal/core"
	"dungeon-keeper/internal/journal"
)

// leaderboardSize is how many users the dashboard ranks
const leaderboardSize = 10

type basePageData struct {
	Locale    string
	StaffName string
	LoggedIn  bool
}

type dashboardData struct {
	basePageData
	Stats       core.Stats
	OpenCases   []core.Case
	ClosedCases []core.Case
	Leaderboard []core.LedgerEntry
}

type caseViewData struct {
	basePageData
	Case           core.Case
	Transcript     []journal.Entry
	HasTranscripts bool
	Error          string
}

func (s *Server) basePage(r *http.Request) basePageData {
	data := basePageData{Locale: s.detectLocale(r)}
	if staff, ok := s.getStaff(r); ok {
		data.StaffName = staff.Name
		data.LoggedIn = true
	}
	return data
}

// handleHealth reports liveness and the server time
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   s.now().UTC(),
	})
}

// handleStats returns the service counters as JSON
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Stats())
}

// handleDashboard lists cases and the XP leaderboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := dashboardData{
		basePageData: s.basePage(r),
		Stats:        s.service.Stats(),
		Leaderboard:  s.service.Ledger.Top(leaderboardSize),
	}

	all := s.service.Cases.Cases()
	// newest first
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Status == core.CaseOpen {
			data.OpenCases = append(data.OpenCases, all[i])
		} else {
			data.ClosedCases = append(data.ClosedCases, all[i])
		}
	}

	s.renderTemplate(w, "dashboard.html", data)
}

// handleCaseView shows one case with its journal transcript
func (s *Server) handleCaseView(w http.ResponseWriter, r *http.Request) {
	caseID, err := strconv.ParseInt(chi.URLParam(r, "caseID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid case ID", http.StatusBadRequest)
		return
	}

	c, ok := s.service.Cases.Case(caseID)
	if !ok {
		http.Error(w, "Case not found", http.StatusNotFound)
		return
	}

	data := caseViewData{
		basePageData:   s.basePage(r),
		Case:           c,
		HasTranscripts: s.transcripts != nil,
	}
	if s.transcripts != nil {
		entries, err := s.transcripts.Transcript(r.Context(), caseID)
		if err != nil {
			s.log.Error("Failed to load transcript", "case", caseID, "error", err)
			data.Error = "dash.transcript_failed"
		}
		data.Transcript = entries
	}

	s.renderTemplate(w, "case.html", data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
