// Package stay converts calendar dates into the hotel's check-in and
// check-out instants and builds the half-open windows used for overlap tests.
//
// Guests arrive from 09:00 and leave by 08:00, so a room vacated on a given
// morning can be sold again for the same day without the stays overlapping.
package stay

import (
	"errors"
	"strings"
	"time"
)

const (
	CheckInHour  = 9
	CheckOutHour = 8

	DateLayout = "2006-01-02"
)

type Role int

const (
	RoleCheckIn Role = iota
	RoleCheckOut
)

var (
	ErrEmptyDate   = errors.New("date is required")
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD or RFC 3339")
	ErrEmptyWindow = errors.New("check-out must be after check-in")
)

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether w and o share any instant. Touching endpoints do not overlap.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && w.End.After(o.Start)
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func atHour(date time.Time, hour int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, hour, 0, 0, 0, loc)
}

// NormalizeCheckIn returns 09:00:00.000 on date's calendar day in loc.
func NormalizeCheckIn(date time.Time, loc *time.Location) time.Time {
	return atHour(date, CheckInHour, loc)
}

// NormalizeCheckOut returns 08:00:00.000 on date's calendar day in loc.
func NormalizeCheckOut(date time.Time, loc *time.Location) time.Time {
	return atHour(date, CheckOutHour, loc)
}

func Normalize(date time.Time, role Role, loc *time.Location) time.Time {
	if role == RoleCheckOut {
		return NormalizeCheckOut(date, loc)
	}
	return NormalizeCheckIn(date, loc)
}

// ParseDate reads a bare date or an RFC 3339 timestamp and returns midnight of
// that calendar day in loc. The time of day is discarded.
//
// A bare date is taken as a calendar day in loc. A timestamp keeps the
// calendar day it names in its own offset, so "2024-06-01T23:30:00-05:00"
// is June 1 regardless of loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrEmptyDate
	}

	if t, err := time.ParseInLocation(DateLayout, raw, loc); err == nil {
		return t, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// StayWindow normalizes both ends of a booking and rejects empty or inverted stays.
func StayWindow(checkIn, checkOut time.Time, loc *time.Location) (Window, error) {
	w := Window{
		Start: NormalizeCheckIn(checkIn, loc),
		End:   NormalizeCheckOut(checkOut, loc),
	}
	if !w.Start.Before(w.End) {
		return Window{}, ErrEmptyWindow
	}
	return w, nil
}

// OccupiedDayWindow is [08:00, 23:59:59.999) on day. It answers "which rooms
// have a guest in them at some point today".
func OccupiedDayWindow(day time.Time, loc *time.Location) Window {
	start := atHour(day, CheckOutHour, loc)
	y, m, d := start.Date()
	end := time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), start.Location())
	return Window{Start: start, End: end}
}

// StatsDayWindow is [09:00 day, 08:00 day+1): one night as sold.
func StatsDayWindow(day time.Time, loc *time.Location) Window {
	start := atHour(day, CheckInHour, loc)
	y, m, d := start.Date()
	end := time.Date(y, m, d+1, CheckOutHour, 0, 0, 0, start.Location())
	return Window{Start: start, End: end}
}
