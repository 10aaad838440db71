package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/calseries/server/recurrence"
	"github.com/cyp0633/calseries/server/series"
	"github.com/samber/mo"
	"github.com/urfave/cli/v2"
)

const localLayout = "2006-01-02T15:04"

var weekdayNames = map[string]time.Weekday{
	"su": time.Sunday, "sun": time.Sunday, "sunday": time.Sunday,
	"mo": time.Monday, "mon": time.Monday, "monday": time.Monday,
	"tu": time.Tuesday, "tue": time.Tuesday, "tuesday": time.Tuesday,
	"we": time.Wednesday, "wed": time.Wednesday, "wednesday": time.Wednesday,
	"th": time.Thursday, "thu": time.Thursday, "thursday": time.Thursday,
	"fr": time.Friday, "fri": time.Friday, "friday": time.Friday,
	"sa": time.Saturday, "sat": time.Saturday, "saturday": time.Saturday,
}

func expandCommand() *cli.Command {
	return &cli.Command{
		Name:  "expand",
		Usage: "Print the occurrences a recurrence rule produces, without storing anything.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Value: "weekly", Usage: "daily, weekly, monthly or yearly."},
			&cli.IntFlag{Name: "interval", Value: 1},
			&cli.StringFlag{Name: "days", Usage: "Weekdays of a weekly rule, e.g. mon,wed,fri."},
			&cli.StringFlag{Name: "month-days", Usage: "Days of a monthly rule, e.g. 1,15,31."},
			&cli.StringFlag{Name: "start", Usage: "First start, RFC 3339 or YYYY-MM-DDTHH:MM in --tz."},
			&cli.StringFlag{Name: "end", Usage: "First end, same formats as --start."},
			&cli.StringFlag{Name: "tz", Value: "UTC", Usage: "Zone for times without an offset."},
			&cli.IntFlag{Name: "count", Usage: "Stop after N occurrences."},
			&cli.StringFlag{Name: "until", Usage: "Stop after this date (inclusive)."},
			&cli.StringFlag{Name: "rrule", Usage: "RFC 5545 RRULE; replaces the rule flags."},
			&cli.StringFlag{Name: "ics", Usage: "iCalendar file with a recurring VEVENT; \"-\" reads stdin."},
			&cli.IntFlag{Name: "max", Value: recurrence.DefaultMaxOccurrences, Usage: "Safety cap."},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of one line per occurrence."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(logLevelFromEnv("warn"))

			loc, err := time.LoadLocation(c.String("tz"))
			if err != nil {
				return fmt.Errorf("invalid --tz: %w", err)
			}

			rule, first, err := ruleFromFlags(c, loc)
			if err != nil {
				return err
			}

			engine := recurrence.NewEngineWithConfig(recurrence.EngineConfig{
				MaxOccurrences: c.Int("max"),
				Logger:         logger,
			})
			defer engine.Close()

			res, err := engine.Generate(rule, first.Start, first.End)
			if err != nil {
				return err
			}
			return printResult(c.App.Writer, res, c.Bool("json"))
		},
	}
}

func ruleFromFlags(c *cli.Context, loc *time.Location) (recurrence.Rule, recurrence.Window, error) {
	if path := c.String("ics"); path != "" {
		return ruleFromICS(path, loc)
	}

	start, err := parseTime(c.String("start"), loc)
	if err != nil {
		return recurrence.Rule{}, recurrence.Window{}, fmt.Errorf("invalid --start: %w", err)
	}
	end := start.Add(time.Hour)
	if v := c.String("end"); v != "" {
		if end, err = parseTime(v, loc); err != nil {
			return recurrence.Rule{}, recurrence.Window{}, fmt.Errorf("invalid --end: %w", err)
		}
	}
	first := recurrence.Window{Start: start, End: end}

	var rule recurrence.Rule
	if v := c.String("rrule"); v != "" {
		rule, err = recurrence.RuleFromRRule(v)
		return rule, first, err
	}

	rule = recurrence.Rule{
		Type:     recurrence.Frequency(strings.ToLower(c.String("type"))),
		Interval: c.Int("interval"),
		EndType:  recurrence.EndNever,
	}
	if rule.DaysOfWeek, err = parseWeekdays(c.String("days")); err != nil {
		return rule, first, err
	}
	if rule.DaysOfMonth, err = parseMonthDays(c.String("month-days")); err != nil {
		return rule, first, err
	}
	switch {
	case c.IsSet("count"):
		rule.EndType = recurrence.EndAfterOccurrences
		rule.OccurrencesCount = mo.Some(c.Int("count"))
	case c.IsSet("until"):
		until, err := parseTime(c.String("until"), loc)
		if err != nil {
			return rule, first, fmt.Errorf("invalid --until: %w", err)
		}
		rule.EndType = recurrence.EndOnDate
		rule.EndDate = mo.Some(until)
	}
	return rule, first, nil
}

func ruleFromICS(path string, loc *time.Location) (recurrence.Rule, recurrence.Window, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return recurrence.Rule{}, recurrence.Window{}, err
		}
		defer f.Close()
		r = f
	}
	req, err := series.DecodeSeriesRequest(r, loc)
	if err != nil {
		return recurrence.Rule{}, recurrence.Window{}, err
	}
	return req.Rule, recurrence.Window{Start: req.Start, End: req.End}, nil
}

// parseTime accepts RFC 3339, a local date-time or a bare date
func parseTime(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("value is required")
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(loc), nil
	}
	if t, err := time.ParseInLocation(localLayout, v, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, v, loc); err == nil {
		// Bare dates bound the whole day
		return t.AddDate(0, 0, 1).Add(-time.Second), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", v)
}

func parseWeekdays(v string) ([]time.Weekday, error) {
	if v == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if d, ok := weekdayNames[part]; ok {
			days = append(days, d)
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q", part)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}

func parseMonthDays(v string) ([]int, error) {
	if v == "" {
		return nil, nil
	}
	var days []int
	for _, part := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid day of month %q", part)
		}
		days = append(days, n)
	}
	return days, nil
}

func printResult(w io.Writer, res recurrence.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"windows":   res.Windows,
			"reason":    res.Reason,
			"truncated": res.Truncated(),
		})
	}
	for i, win := range res.Windows {
		fmt.Fprintf(w, "%4d  %s  %s  %s\n", i,
			win.Start.Format("Mon"), win.Start.Format(time.RFC3339), win.End.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "%d occurrences, stopped: %s\n", len(res.Windows), res.Reason)
	if res.Truncated() {
		fmt.Fprintln(w, "warning: expansion hit the safety cap")
	}
	return nil
}
