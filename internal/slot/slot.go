// Package slot converts civil date and clock strings into half-open time
// intervals in the club's fixed timezone and answers overlap questions
// about them.
package slot

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Location is the club's civil timezone. Malaysia has no daylight saving,
// so a fixed +08:00 offset is exact.
var Location = time.FixedZone("Asia/Kuala_Lumpur", 8*60*60)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Reason codes reported per slot for malformed input.
const (
	ReasonInvalidDatetime = "invalid_datetime"
	ReasonEndBeforeStart  = "end_before_start"
)

var (
	// ErrInvalidInterval is the parent of every construction failure.
	ErrInvalidInterval = errors.New("invalid interval")
	ErrInvalidDatetime = fmt.Errorf("%w: unparseable date or time", ErrInvalidInterval)
	ErrEndBeforeStart  = fmt.Errorf("%w: end must be after start", ErrInvalidInterval)
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// New builds an interval from two instants.
func New(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, ErrEndBeforeStart
	}
	return Interval{Start: start, End: end}, nil
}

// Parse reads a YYYY-MM-DD date and two HH:mm clock strings in Location.
func Parse(date, start, end string) (Interval, error) {
	s, err := civil(date, start)
	if err != nil {
		return Interval{}, err
	}
	e, err := civil(date, end)
	if err != nil {
		return Interval{}, err
	}
	return New(s, e)
}

// ParseDuration is Parse for callers that give a length instead of an end
// clock. A non-positive duration is reported as end_before_start.
func ParseDuration(date, start string, minutes int) (Interval, error) {
	s, err := civil(date, start)
	if err != nil {
		return Interval{}, err
	}
	return New(s, s.Add(time.Duration(minutes)*time.Minute))
}

func civil(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, ErrInvalidDatetime
	}
	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, date+" "+clock, Location)
	if err != nil {
		return time.Time{}, ErrInvalidDatetime
	}
	return t, nil
}

// Overlaps reports whether the two intervals share any instant.
// Back-to-back intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Date is the civil date of Start.
func (i Interval) Date() string { return i.Start.In(Location).Format(DateLayout) }

// StartClock is the civil HH:mm of Start.
func (i Interval) StartClock() string { return i.Start.In(Location).Format(ClockLayout) }

// EndClock is the civil HH:mm of End.
func (i Interval) EndClock() string { return i.End.In(Location).Format(ClockLayout) }

// Duration of the interval.
func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }

func (i Interval) String() string {
	return fmt.Sprintf("%s %s-%s", i.Date(), i.StartClock(), i.EndClock())
}

// StartOfDay returns civil midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	l := t.In(Location)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, Location)
}

// Reason maps a construction error to its wire reason code, or "" for
// errors this package did not produce.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrEndBeforeStart):
		return ReasonEndBeforeStart
	case errors.Is(err, ErrInvalidDatetime):
		return ReasonInvalidDatetime
	}
	return ""
}
