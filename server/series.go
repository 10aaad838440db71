package server

import (
	"mime"
	"net/http"
	"time"

	"github.com/cyp0633/calseries/server/auth"
	"github.com/cyp0633/calseries/server/recurrence"
	"github.com/cyp0633/calseries/server/series"
)

type createSeriesBody struct {
	Name     string           `json:"name"`
	Rule     recurrence.Rule  `json:"rule"`
	Event    series.EventData `json:"event"`
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
	TimeZone string           `json:"timeZone,omitempty"`
}

type previewBody struct {
	Rule     recurrence.Rule `json:"rule"`
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	TimeZone string          `json:"timeZone,omitempty"`
}

type previewResponse struct {
	Windows   []recurrence.Window   `json:"windows"`
	Reason    recurrence.StopReason `json:"reason"`
	Truncated bool                  `json:"truncated"`
}

func (s *Server) owner(r *http.Request) (series.Owner, error) {
	p := auth.GetPrincipalFromContext(r.Context())
	if p == nil {
		return series.Owner{}, errUnauthenticated
	}
	return series.Owner{ID: p.ID, Handle: p.Handle}, nil
}

// zone resolves an IANA zone name, falling back to the server location
func (s *Server) zone(name string) (*time.Location, error) {
	if name == "" {
		return s.location, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, badRequest("unknown time zone %q", name)
	}
	return loc, nil
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var body previewBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	loc, err := s.zone(body.TimeZone)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.service.Preview(body.Rule, body.Start.In(loc), body.End.In(loc))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{
		Windows:   res.Windows,
		Reason:    res.Reason,
		Truncated: res.Truncated(),
	})
}

func (s *Server) handleCreateSeries(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	req, err := s.readSeriesRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Owner = owner

	res, err := s.service.CreateEventSeries(r.Context(), req)
	if err != nil {
		if res != nil {
			s.logger.Warn("series created with missing occurrences",
				"series_id", res.Series.ID,
				"written", len(res.Occurrences))
		}
		s.writeError(w, r, withPartial(err, res))
		return
	}

	if res.Warning != nil {
		w.Header().Set(headerTruncated, "true")
	}
	writeJSON(w, http.StatusCreated, res)
}

// readSeriesRequest accepts either the JSON body or an iCalendar VEVENT with an RRULE
func (s *Server) readSeriesRequest(r *http.Request) (series.CreateSeriesRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get(headerContentType))
	if mediaType == "text/calendar" {
		return series.DecodeSeriesRequest(r.Body, s.location)
	}

	var body createSeriesBody
	if err := decodeJSON(r, &body); err != nil {
		return series.CreateSeriesRequest{}, err
	}
	if body.Name == "" {
		return series.CreateSeriesRequest{}, badRequest("series name is required")
	}
	loc, err := s.zone(body.TimeZone)
	if err != nil {
		return series.CreateSeriesRequest{}, err
	}
	return series.CreateSeriesRequest{
		Name:  body.Name,
		Rule:  body.Rule,
		Event: body.Event,
		Start: body.Start.In(loc),
		End:   body.End.In(loc),
	}, nil
}

func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	sr, err := s.service.GetSeries(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sr)
}

func (s *Server) handleListOccurrences(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	occs, err := s.service.ListOccurrences(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(occs) == 0 {
		// Distinguish an unknown series from one whose occurrences were all deleted
		if _, err := s.service.GetSeries(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if occs == nil {
		occs = []*series.EventOccurrence{}
	}
	writeJSON(w, http.StatusOK, occs)
}

func (s *Server) handleSeriesCalendar(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sr, err := s.service.GetSeries(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set(headerContentType, mimeTypeCalendar)
	if r.URL.Query().Get("format") == "rrule" {
		if err := series.EncodeSeries(w, sr); err != nil {
			s.logger.Error("failed to encode series", "series_id", id, "error", err)
		}
		return
	}

	occs, err := s.service.ListOccurrences(r.Context(), id)
	if err != nil {
		w.Header().Del(headerContentType)
		s.writeError(w, r, err)
		return
	}
	if err := series.EncodeOccurrences(w, sr.Name, occs); err != nil {
		s.logger.Error("failed to encode occurrences", "series_id", id, "error", err)
	}
}

func (s *Server) handleRematerialize(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")

	sr, err := s.service.GetSeries(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sr.CreatorID != owner.ID {
		s.writeError(w, r, series.ErrNotOwner)
		return
	}

	res, err := s.service.RematerializeSeries(r.Context(), id)
	if err != nil {
		s.writeError(w, r, withPartial(err, res))
		return
	}
	if res.Warning != nil {
		w.Header().Set(headerTruncated, "true")
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteSeries(w http.ResponseWriter, r *http.Request) {
	owner, err := s.owner(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.service.DeleteSeries(r.Context(), owner, r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
