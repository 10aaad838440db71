package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of an error response is read
const maxErrorBody = 64 << 10

// FailureDetail is one entry of a partial-deletion error body
type FailureDetail struct {
	OccurrenceID string `json:"occurrenceId"`
	Error        string `json:"error"`
}

// PartialWrite names the series a failed create left behind and the
// occurrences that were stored before the failure
type PartialWrite struct {
	SeriesID string   `json:"seriesId"`
	Written  []string `json:"written"`
}

// StatusError is returned for responses with an unexpected status code
type StatusError struct {
	StatusCode int
	Message    string
	Failures   []FailureDetail
	// Partial is set when the server stored part of a series before failing
	Partial *PartialWrite
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

func newStatusError(resp *http.Response) *StatusError {
	se := &StatusError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return se
	}

	var body struct {
		Error    string          `json:"error"`
		Failures []FailureDetail `json:"failures"`
		Partial  *PartialWrite   `json:"partial"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		se.Message = body.Error
		se.Failures = body.Failures
		se.Partial = body.Partial
		return se
	}
	se.Message = string(raw)
	return se
}
