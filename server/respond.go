package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/cyp0633/calseries/server/auth"
	"github.com/cyp0633/calseries/server/recurrence"
	"github.com/cyp0633/calseries/server/series"
)

var (
	// errBadRequest marks malformed request bodies and parameters
	errBadRequest = errors.New("bad request")
	// errUnauthenticated is returned by write routes served without a principal
	errUnauthenticated = errors.New("authentication required")
)

type errorBody struct {
	Error    string          `json:"error"`
	Failures []failureDetail `json:"failures,omitempty"`
	Partial  *partialDetail  `json:"partial,omitempty"`
}

// partialDetail names what a failed create or rematerialize already stored,
// so the caller can retry with POST /series/{id}/rematerialize
type partialDetail struct {
	SeriesID string   `json:"seriesId"`
	Written  []string `json:"written"`
}

type failureDetail struct {
	OccurrenceID string `json:"occurrenceId"`
	Error        string `json:"error"`
}

// partialWriteError carries the stored part of a failed materialization
type partialWriteError struct {
	err    error
	result *series.CreateResult
}

func (e *partialWriteError) Error() string { return e.err.Error() }
func (e *partialWriteError) Unwrap() error { return e.err }

// withPartial attaches res to err when some of the series was stored
func withPartial(err error, res *series.CreateResult) error {
	if res == nil || res.Series == nil || res.Series.ID == "" {
		return err
	}
	return &partialWriteError{err: err, result: res}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(headerContentType, mimeTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	var deleteErr *series.DeleteError
	var storeErr *series.StoreError
	switch {
	case errors.As(err, &deleteErr):
		return http.StatusInternalServerError
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errBadRequest),
		recurrence.IsInvalidRule(err),
		errors.Is(err, recurrence.ErrInvalidWindow),
		errors.Is(err, recurrence.ErrUnsupportedRRule),
		errors.Is(err, series.ErrInvalidEvent),
		errors.Is(err, series.ErrNoRecurringEvent):
		return http.StatusBadRequest
	case series.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, series.ErrNotOwner), auth.IsForbidden(err):
		return http.StatusForbidden
	case errors.As(err, &storeErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var deleteErr *series.DeleteError
	if errors.As(err, &deleteErr) {
		body.Error = fmt.Sprintf("failed to delete %d of %d occurrences of series %s",
			len(deleteErr.Failures), deleteErr.Total, deleteErr.SeriesID)
		for _, f := range deleteErr.Failures {
			body.Failures = append(body.Failures, failureDetail{OccurrenceID: f.OccurrenceID, Error: f.Err.Error()})
		}
	}

	var partial *partialWriteError
	if errors.As(err, &partial) {
		detail := &partialDetail{SeriesID: partial.result.Series.ID, Written: []string{}}
		for _, occ := range partial.result.Occurrences {
			detail.Written = append(detail.Written, occ.ID)
		}
		body.Partial = detail
		w.Header().Set(headerLocation, s.basePath+"/series/"+detail.SeriesID)
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}
