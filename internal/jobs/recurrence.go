package jobs

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/teambition/rrule-go"

	"github.com/iliyamo/sportsclub/internal/slot"
)

// DefaultResetRule is the weekly reset: Sunday 20:00 club time.
const DefaultResetRule = "FREQ=WEEKLY;BYDAY=SU;BYHOUR=20;BYMINUTE=0;BYSECOND=0"

// ReminderLeadDays is how many civil days before a reset coaches are told.
const ReminderLeadDays = 2

// ResetSchedule is a weekly reset rule. The same value schedules the reset
// job and dates the reminder, so the two cannot drift apart.
type ResetSchedule struct {
	opt rrule.ROption
}

// ParseResetRule accepts an RRULE with FREQ=WEEKLY, at least one BYDAY and
// exactly one BYHOUR. BYMINUTE is optional and defaults to 0.
func ParseResetRule(s string) (ResetSchedule, error) {
	opt, err := rrule.StrToROption(s)
	if err != nil {
		return ResetSchedule{}, fmt.Errorf("parse reset rule: %w", err)
	}
	switch {
	case opt.Freq != rrule.WEEKLY:
		return ResetSchedule{}, fmt.Errorf("reset rule %q: FREQ must be WEEKLY", s)
	case len(opt.Byweekday) == 0:
		return ResetSchedule{}, fmt.Errorf("reset rule %q: BYDAY is required", s)
	case len(opt.Byhour) != 1 || len(opt.Byminute) > 1:
		return ResetSchedule{}, fmt.Errorf("reset rule %q: exactly one BYHOUR and at most one BYMINUTE", s)
	}
	if len(opt.Byminute) == 0 {
		opt.Byminute = []int{0}
	}
	opt.Bysecond = []int{0}
	return ResetSchedule{opt: *opt}, nil
}

// Next returns the first reset strictly after from.
func (r ResetSchedule) Next(from time.Time) (time.Time, error) {
	opt := r.opt
	opt.Dtstart = from.In(slot.Location).Truncate(time.Second)
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return time.Time{}, err
	}
	next := rule.After(from.In(slot.Location), false)
	if next.IsZero() {
		return time.Time{}, errNoOccurrence
	}
	return next, nil
}

// jobDefinition turns the rule into a gocron weekly job. The scheduler runs
// in club time, so hours are civil hours.
func (r ResetSchedule) jobDefinition() gocron.JobDefinition {
	days := r.Weekdays()
	at := gocron.NewAtTime(uint(r.opt.Byhour[0]), uint(r.opt.Byminute[0]), 0)
	return gocron.WeeklyJob(1, gocron.NewWeekdays(days[0], days[1:]...), gocron.NewAtTimes(at))
}

// Weekdays reports the reset days in rule order.
func (r ResetSchedule) Weekdays() []time.Weekday {
	out := make([]time.Weekday, 0, len(r.opt.Byweekday))
	for i := range r.opt.Byweekday {
		// rrule counts from Monday, time.Weekday from Sunday
		out = append(out, time.Weekday((r.opt.Byweekday[i].Day()+1)%7))
	}
	return out
}

// civilDaysBetween counts calendar days in club time from a to b.
func civilDaysBetween(a, b time.Time) int {
	da := slot.StartOfDay(a)
	db := slot.StartOfDay(b)
	return int(db.Sub(da).Hours() / 24)
}
