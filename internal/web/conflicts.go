package web

import (
	"net/http"
	"time"

	"eventcal/internal/ics"
	"eventcal/internal/interval"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/view"
)

// checkRequest is the body of POST /api/conflicts/check.
type checkRequest struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	ExcludeID string    `json:"excludeId,omitempty"`
}

type conflictsResponse struct {
	Conflicts []model.Event `json:"conflicts"`
}

func (s *Server) handleCheckConflicts(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		writeError(w, http.StatusBadRequest, "startTime and endTime are required")
		return
	}

	conflicts, err := s.svc.CheckConflicts(r.Context(), interval.Interval{Start: req.StartTime, End: req.EndTime}, req.ExcludeID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.metrics.ConflictCheck(len(conflicts))
	writeJSON(w, http.StatusOK, conflictsResponse{Conflicts: nonNil(conflicts)})
}

func (s *Server) handleAllConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts, err := s.svc.AllConflicts(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conflictsResponse{Conflicts: nonNil(conflicts)})
}

type suggestionsResponse struct {
	Suggestions []view.Suggestion `json:"suggestions"`
}

// handleSuggestions powers the search box. GET /api/suggestions?q=team
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	out := view.Suggest(events, r.URL.Query().Get("q"))
	if out == nil {
		out = []view.Suggestion{}
	}
	writeJSON(w, http.StatusOK, suggestionsResponse{Suggestions: out})
}

// handleExport serves every stored event as an ICS feed.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	body, err := ics.Export(events, s.now())
	if err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	_, _ = w.Write([]byte(body))
}

func nonNil(events []model.Event) []model.Event {
	if events == nil {
		return []model.Event{}
	}
	return events
}
