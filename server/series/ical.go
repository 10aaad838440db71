package series

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cyp0633/calseries/server/recurrence"
	"github.com/emersion/go-ical"
)

const productID = "-//calseries//NONSGML v1.0//EN"

// ErrNoRecurringEvent is returned when an imported calendar has no VEVENT with an RRULE
var ErrNoRecurringEvent = errors.New("calendar contains no recurring event")

func newCalendar(name string) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropVersion, "2.0")
	if name != "" {
		cal.Props.SetText("X-WR-CALNAME", name)
	}
	return cal
}

func setEventData(event *ical.Event, data EventData) {
	event.Props.SetText(ical.PropSummary, data.Title)
	if data.Description != "" {
		event.Props.SetText(ical.PropDescription, data.Description)
	}
	if data.Location != "" {
		event.Props.SetText(ical.PropLocation, data.Location)
	}
	if data.Category != "" {
		event.Props.SetText(ical.PropCategories, data.Category)
	}
	if data.Color != "" {
		event.Props.SetText(ical.PropColor, data.Color)
	}
	if data.Visibility == VisibilityPrivate {
		event.Props.SetText(ical.PropClass, "PRIVATE")
	}
}

func setWindow(event *ical.Event, start, end time.Time, allDay bool) {
	if allDay {
		event.Props.SetDate(ical.PropDateTimeStart, start)
		event.Props.SetDate(ical.PropDateTimeEnd, end)
		return
	}
	event.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
}

// EncodeOccurrences writes one VEVENT per occurrence
func EncodeOccurrences(w io.Writer, name string, occurrences []*EventOccurrence) error {
	cal := newCalendar(name)
	for _, occ := range occurrences {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, occ.ID)
		event.Props.SetDateTime(ical.PropDateTimeStamp, occ.CreatedAt.UTC())
		setEventData(event, occ.EventData)
		setWindow(event, occ.Start, occ.End, occ.AllDay)
		if id, ok := occ.SeriesID.Get(); ok {
			event.Props.SetText("X-CALSERIES-SERIES-ID", id)
		}
		cal.Children = append(cal.Children, event.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// EncodeSeries writes the series as a single recurring VEVENT carrying the
// template title, so DecodeSeriesRequest reads it back unchanged. Monthly
// rules anchored after day 28 lose their clamping in RRULE form.
func EncodeSeries(w io.Writer, series *EventSeries) error {
	cal := newCalendar(series.Name)

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, series.ID)
	event.Props.SetDateTime(ical.PropDateTimeStamp, series.CreatedAt.UTC())
	setEventData(event, series.BaseEventData)
	setWindow(event, series.FirstStart, series.FirstEnd, series.BaseEventData.AllDay)
	if err := recurrence.SetRuleOnComponent(event.Component, series.Recurrence); err != nil {
		return err
	}
	cal.Children = append(cal.Children, event.Component)

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// DecodeSeriesRequest builds a creation request from the first recurring
// VEVENT in an iCalendar stream. The owner is left for the caller to fill.
// Floating times are read in loc.
func DecodeSeriesRequest(r io.Reader, loc *time.Location) (CreateSeriesRequest, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return CreateSeriesRequest{}, fmt.Errorf("%w: failed to decode calendar: %w", ErrInvalidEvent, err)
	}

	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		rule, ok, err := recurrence.ExtractRuleFromComponent(comp)
		if err != nil {
			return CreateSeriesRequest{}, err
		}
		if !ok {
			continue
		}
		window, ok := recurrence.ExtractWindowFromComponent(comp, loc)
		if !ok {
			return CreateSeriesRequest{}, fmt.Errorf("%w: recurring event has no usable DTSTART", ErrInvalidEvent)
		}

		data := EventData{
			Title:       propText(comp, ical.PropSummary),
			Description: propText(comp, ical.PropDescription),
			Location:    propText(comp, ical.PropLocation),
			Category:    propText(comp, ical.PropCategories),
			Color:       propText(comp, ical.PropColor),
			Visibility:  VisibilityPublic,
		}
		if strings.EqualFold(propText(comp, ical.PropClass), "PRIVATE") {
			data.Visibility = VisibilityPrivate
		}
		if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil && prop.ValueType() == ical.ValueDate {
			data.AllDay = true
		}

		name := propText(cal.Component, "X-WR-CALNAME")
		if name == "" {
			name = data.Title
		}
		return CreateSeriesRequest{
			Name:  name,
			Rule:  rule,
			Event: data,
			Start: window.Start,
			End:   window.End,
		}, nil
	}
	return CreateSeriesRequest{}, ErrNoRecurringEvent
}

func propText(comp *ical.Component, name string) string {
	v, err := comp.Props.Text(name)
	if err != nil {
		return ""
	}
	return v
}
