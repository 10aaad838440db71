package series

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cyp0633/calseries/server/recurrence"
	"github.com/samber/mo"
)

// DateLayout is the format of EventOccurrence.SelectedDate
const DateLayout = "2006-01-02"

// Visibility controls who may see an event
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// EventData holds the fields every occurrence of a series shares
type EventData struct {
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Location     string     `json:"location,omitempty"`
	Visibility   Visibility `json:"visibility,omitempty"`
	Category     string     `json:"category,omitempty"`
	Color        string     `json:"color,omitempty"`
	Participants []string   `json:"participants,omitempty"`
	AllDay       bool       `json:"allDay,omitempty"`
}

// Owner identifies the user a record belongs to
type Owner struct {
	ID     string `json:"creatorId"`
	Handle string `json:"creatorHandle"`
}

// EventSeries is a recurrence definition plus the template its occurrences copy
type EventSeries struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	CreatorID     string          `json:"creatorId"`
	CreatorHandle string          `json:"creatorHandle"`
	Recurrence    recurrence.Rule `json:"recurrence"`
	BaseEventData EventData       `json:"baseEventData"`
	FirstStart    time.Time       `json:"firstStart"`
	FirstEnd      time.Time       `json:"firstEnd"`
	TimeZone      string          `json:"timeZone,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	// Excluded holds the ids of occurrences deleted on their own; they are
	// not written again when the series is rematerialized
	Excluded map[string]bool `json:"excluded,omitempty"`
}

// Location returns the series' time zone, falling back to the offset
// recorded in FirstStart when the zone name cannot be loaded.
func (s *EventSeries) Location() *time.Location {
	if s.TimeZone != "" {
		if loc, err := time.LoadLocation(s.TimeZone); err == nil {
			return loc
		}
	}
	return s.FirstStart.Location()
}

// EventOccurrence is one concrete dated event, standalone or part of a series
type EventOccurrence struct {
	ID            string
	SeriesID      mo.Option[string]
	Index         int
	CreatorID     string
	CreatorHandle string
	Start         time.Time
	End           time.Time
	SelectedDate  string
	CreatedAt     time.Time
	EventData
}

// IsSeries reports whether the occurrence belongs to a series
func (o *EventOccurrence) IsSeries() bool {
	return o.SeriesID.IsPresent()
}

type occurrenceJSON struct {
	ID            string    `json:"id"`
	SeriesID      *string   `json:"seriesId,omitempty"`
	IsSeries      bool      `json:"isSeries"`
	Index         int       `json:"index,omitempty"`
	CreatorID     string    `json:"creatorId"`
	CreatorHandle string    `json:"creatorHandle"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	SelectedDate  string    `json:"selectedDate"`
	CreatedAt     time.Time `json:"createdAt"`
	EventData
}

func (o EventOccurrence) MarshalJSON() ([]byte, error) {
	w := occurrenceJSON{
		ID:            o.ID,
		IsSeries:      o.IsSeries(),
		Index:         o.Index,
		CreatorID:     o.CreatorID,
		CreatorHandle: o.CreatorHandle,
		Start:         o.Start,
		End:           o.End,
		SelectedDate:  o.SelectedDate,
		CreatedAt:     o.CreatedAt,
		EventData:     o.EventData,
	}
	if id, ok := o.SeriesID.Get(); ok {
		w.SeriesID = &id
	}
	return json.Marshal(w)
}

func (o *EventOccurrence) UnmarshalJSON(data []byte) error {
	var w occurrenceJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = EventOccurrence{
		ID:            w.ID,
		Index:         w.Index,
		CreatorID:     w.CreatorID,
		CreatorHandle: w.CreatorHandle,
		Start:         w.Start,
		End:           w.End,
		SelectedDate:  w.SelectedDate,
		CreatedAt:     w.CreatedAt,
		EventData:     w.EventData,
	}
	if w.SeriesID != nil && *w.SeriesID != "" {
		o.SeriesID = mo.Some(*w.SeriesID)
	}
	return nil
}

// OccurrenceID is the deterministic id of the index-th occurrence of a series
func OccurrenceID(seriesID string, index int) string {
	return fmt.Sprintf("%s_%04d", seriesID, index)
}

// Report is a moderation report attached to an event
type Report struct {
	ID         string    `json:"id"`
	ReporterID string    `json:"reporterId"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}
