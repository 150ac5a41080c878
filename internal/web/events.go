package web

import (
	"errors"
	"net/http"
	"time"

	"eventcal/internal/calendar"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/recurrence"
	"eventcal/internal/view"
)

// monthLayout is the format of the month query parameter.
const monthLayout = "2006-01"

// eventDTO is an event or occurrence as shown in a month view.
type eventDTO struct {
	model.Event
	Conflict bool `json:"conflict"`
}

// eventsResponse is the JSON shape of GET /api/events.
type eventsResponse struct {
	Month      string     `json:"month"`
	RangeStart time.Time  `json:"rangeStart"`
	RangeEnd   time.Time  `json:"rangeEnd"`
	Timezone   string     `json:"timezone"`
	WeekStart  string     `json:"weekStart"`
	Events     []eventDTO `json:"events"`
	Total      int        `json:"total"`
	Categories []string   `json:"categories"`
}

type projectionKey struct {
	month       string
	search      string
	category    string
	hasCategory bool
}

type projectionCache struct {
	resp      eventsResponse
	updatedAt time.Time
}

// handleListEvents returns the events of a month grid.
//
// GET /api/events?month=2024-01&q=standup&category=work
//   - month:    defaults to the current month in the configured timezone
//   - q:        case-insensitive search on title and description
//   - category: exact category match; an empty value matches uncategorized
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	month := s.now().In(s.loc)
	if v := q.Get("month"); v != "" {
		parsed, err := time.ParseInLocation(monthLayout, v, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		month = parsed
	}

	key := projectionKey{month: month.Format(monthLayout), search: q.Get("q")}
	if q.Has("category") {
		key.category, key.hasCategory = q.Get("category"), true
	}

	s.projMu.RLock()
	pc := s.projCache[key]
	s.projMu.RUnlock()
	if pc != nil && s.now().Sub(pc.updatedAt) < projectionCacheTTL {
		writeJSON(w, http.StatusOK, pc.resp)
		return
	}

	stored, err := s.svc.List(r.Context())
	if err != nil {
		appLog.Error("api events: list failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	for i := range stored {
		stored[i] = stored[i].In(s.loc)
	}

	filter := view.Filter{Search: key.search}
	if key.hasCategory {
		filter.Category = &key.category
	}

	started := time.Now()
	window := recurrence.GridWindow(month, s.weekStart)
	proj := view.Project(stored, window, filter)
	s.metrics.ObserveProjection(time.Since(started), len(proj.Events))

	events := make([]eventDTO, 0, len(proj.Events))
	for _, ev := range proj.Events {
		events = append(events, eventDTO{Event: ev, Conflict: proj.Conflicting[ev.ID]})
	}

	resp := eventsResponse{
		Month:      key.month,
		RangeStart: window.Start,
		RangeEnd:   window.End,
		Timezone:   s.loc.String(),
		WeekStart:  s.weekStart.String(),
		Events:     events,
		Total:      proj.Total,
		Categories: proj.Categories,
	}

	appLog.Debug("api events", "month", key.month, "events", len(events), "total", proj.Total)

	s.cacheProjection(key, resp)

	writeJSON(w, http.StatusOK, resp)
}

// cacheProjection stores resp under key. Expired entries are dropped first;
// if the cache is still full it starts over.
func (s *Server) cacheProjection(key projectionKey, resp eventsResponse) {
	now := s.now()

	s.projMu.Lock()
	defer s.projMu.Unlock()

	for k, pc := range s.projCache {
		if now.Sub(pc.updatedAt) >= projectionCacheTTL {
			delete(s.projCache, k)
		}
	}
	if len(s.projCache) >= maxCachedProjections {
		clear(s.projCache)
	}
	s.projCache[key] = &projectionCache{resp: resp, updatedAt: now}
}

// invalidate drops every cached month view.
func (s *Server) invalidate() {
	s.projMu.Lock()
	clear(s.projCache)
	s.projMu.Unlock()
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in calendar.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.svc.Create(r.Context(), in, forceParam(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.invalidate()
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in calendar.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.svc.Update(r.Context(), r.PathValue("id"), in, forceParam(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.invalidate()
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.invalidate()
	w.WriteHeader(http.StatusNoContent)
}

// moveRequest is the body of POST /api/events/{id}/move. Date is a
// calendar day (YYYY-MM-DD) in the configured timezone.
type moveRequest struct {
	Date string `json:"date"`
}

func (s *Server) handleMoveEvent(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	day, err := time.ParseInLocation(time.DateOnly, req.Date, s.loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD", Field: "date"})
		return
	}

	res, err := s.svc.Move(r.Context(), r.PathValue("id"), day, forceParam(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.invalidate()
	writeJSON(w, http.StatusOK, res)
}

// conflictResponse is the 409 body of a save refused by the block policy.
type conflictResponse struct {
	Error     string        `json:"error"`
	Conflicts []model.Event `json:"conflicts"`
}

// writeServiceError maps calendar errors to HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var ve *calendar.ValidationError
	var ce *calendar.ConflictError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error(), Field: ve.Field})
	case errors.As(err, &ce):
		s.metrics.BlockedSave()
		writeJSON(w, http.StatusConflict, conflictResponse{Error: ce.Error(), Conflicts: ce.Conflicts})
	case calendar.IsNotFound(err):
		writeError(w, http.StatusNotFound, "event not found")
	default:
		appLog.Error("api request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
