package server

import (
	"net/http"
	"time"

	"github.com/cyp0633/calseries/server/series"
)

type createEventBody struct {
	Event    series.EventData `json:"event"`
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
	TimeZone string           `json:"timeZone,omitempty"`
}

type reportBody struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var body createEventBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	loc, err := s.zone(body.TimeZone)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	occ, err := s.service.CreateEvent(r.Context(), owner, body.Event, body.Start.In(loc), body.End.In(loc))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, occ)
}

// handleListEvents lists the events on ?date=YYYY-MM-DD, or the caller's own
// events when no date is given
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	var (
		occs []*series.EventOccurrence
		err  error
	)
	if date := r.URL.Query().Get("date"); date != "" {
		occs, err = s.service.ListEventsOnDate(r.Context(), date)
	} else {
		var owner series.Owner
		owner, err = s.owner(r)
		if err == nil {
			occs, err = s.service.ListOwnerEvents(r.Context(), owner.ID)
		}
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if occs == nil {
		occs = []*series.EventOccurrence{}
	}
	writeJSON(w, http.StatusOK, occs)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	occ, err := s.service.GetOccurrence(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.service.DeleteOccurrence(r.Context(), owner, r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReportEvent(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var body reportBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Reason == "" {
		s.writeError(w, r, badRequest("reason is required"))
		return
	}

	report, err := s.service.ReportEvent(r.Context(), owner, r.PathValue("id"), body.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}
