// Package calendar builds Google Calendar event-creation URLs from
// extracted events.
package calendar

import (
	"fmt"
	"net/url"
	"time"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/provider"
)

const renderBaseURL = "https://calendar.google.com/calendar/render"

// defaultEventDuration fills in the end time when the model produced none.
const defaultEventDuration = time.Hour

// startLayouts are the timestamp shapes models produce, most specific
// first.
var startLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// EventURL renders an event as a calendar.google.com prefilled-template
// URL. Timed events use local YYYYMMDDTHHMMSS stamps with no timezone
// designator; all-day events use a YYYYMMDD date pair where the end date
// is exclusive.
func EventURL(ev *provider.Event) (string, error) {
	if ev == nil || ev.Title == "" || ev.Start == "" {
		return "", fmt.Errorf("event needs at least a title and a start")
	}

	start, err := parseStamp(ev.Start)
	if err != nil {
		return "", fmt.Errorf("event start %q: %w", ev.Start, err)
	}

	var dates string
	if ev.HasTime {
		end := start.Add(defaultEventDuration)
		if ev.End != "" {
			if parsed, err := parseStamp(ev.End); err == nil && parsed.After(start) {
				end = parsed
			}
		}
		dates = start.Format("20060102T150405") + "/" + end.Format("20060102T150405")
	} else {
		startDay := dayOf(start)
		endDay := startDay.AddDate(0, 0, 1)
		if ev.End != "" {
			if parsed, err := parseStamp(ev.End); err == nil {
				if day := dayOf(parsed); day.After(startDay) {
					endDay = day.AddDate(0, 0, 1)
				}
			}
		}
		dates = startDay.Format("20060102") + "/" + endDay.Format("20060102")
	}

	params := url.Values{}
	params.Set("action", "TEMPLATE")
	params.Set("text", ev.Title)
	params.Set("dates", dates)
	if ev.Location != "" {
		params.Set("location", ev.Location)
	}
	return renderBaseURL + "?" + params.Encode(), nil
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func parseStamp(s string) (time.Time, error) {
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp layout")
}
