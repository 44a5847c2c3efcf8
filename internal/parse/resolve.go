package parse

import "time"

// signals collects the at-most-one match per category the detectors
// produced for a single input.
type signals struct {
	weekday  *Match
	relative *Match
	absolute *Match
	monthDay *Match
	clock    *Match // explicit H:MM / Ham/pm / bare hour
	preset   *Match // morning/noon/afternoon/evening/night
	offset   *Match // in N hours/minutes
	recur    *Match
}

func (s *signals) all() []*Match {
	return []*Match{s.weekday, s.relative, s.absolute, s.monthDay, s.clock, s.preset, s.offset, s.recur}
}

// count returns the number of detected scheduling signals.
func (s *signals) count() int {
	n := 0
	for _, m := range s.all() {
		if m != nil {
			n++
		}
	}
	return n
}

// defaultHour is the time applied when no time signal is present.
const defaultHour = 9

// resolveDueDate combines the detected signals into one absolute timestamp.
//
// Base-day precedence: absolute numeric date > month-day > weekday >
// "in N days" offsets > today/tomorrow. With no day signal at all, a
// recurrence defaults the day to one week from now, otherwise today.
//
// Time precedence: explicit clock > preset > offset-from-now > 9:00.
// An "in N hours/minutes" offset combined with a day signal contributes only
// its hour/minute-of-day (computed from the current instant) onto the
// resolved base day, so elapsed time is never double counted when the offset
// crosses midnight.
func resolveDueDate(sig *signals, now time.Time) (time.Time, bool) {
	if sig.count() == 0 {
		return time.Time{}, false
	}

	baseDay, hasDay := resolveBaseDay(sig, now)

	// Pure "in N hours/minutes" with no day signal is an instant, not a
	// calendar day plus time.
	if sig.offset != nil && !hasDay && sig.clock == nil && sig.preset == nil {
		return now.Add(time.Duration(sig.offset.OffsetMinutes) * time.Minute), true
	}

	if !hasDay {
		baseDay = startOfDay(now)
		if sig.recur != nil {
			// A recurrence with no day anchor starts one week out.
			baseDay = baseDay.AddDate(0, 0, 7)
		}
	}

	hour, minute := defaultHour, 0
	switch {
	case sig.clock != nil:
		hour, minute = sig.clock.Hour, sig.clock.Minute
	case sig.preset != nil:
		hour, minute = sig.preset.Hour, sig.preset.Minute
	case sig.offset != nil:
		at := now.Add(time.Duration(sig.offset.OffsetMinutes) * time.Minute)
		hour, minute = at.Hour(), at.Minute()
	}

	due := baseDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)

	// With no explicit day signal, a time that already passed today rolls
	// to tomorrow.
	if !hasDay && sig.recur == nil && due.Before(now) {
		due = due.AddDate(0, 0, 1)
	}
	return due, true
}

// resolveBaseDay picks the calendar day (midnight) from the day-bearing
// signals, or reports hasDay=false when none is present.
func resolveBaseDay(sig *signals, now time.Time) (time.Time, bool) {
	today := startOfDay(now)

	if m := sig.absolute; m != nil {
		return resolveMonthDate(m.Year, m.Month, m.Day, today), true
	}
	if m := sig.monthDay; m != nil {
		if m.Named {
			// "15th of this/next month"
			d := time.Date(today.Year(), today.Month()+time.Month(m.Ahead), m.Day, 0, 0, 0, 0, today.Location())
			return d, true
		}
		return resolveMonthDate(m.Year, m.Month, m.Day, today), true
	}
	if m := sig.weekday; m != nil {
		return resolveWeekday(m, today), true
	}
	if m := sig.relative; m != nil {
		return today.AddDate(0, 0, m.DayOffset), true
	}
	return time.Time{}, false
}

// resolveMonthDate places a month/day on the calendar: the phrase's year if
// it carried one, else the current year, rolling to next year when the date
// has already passed.
func resolveMonthDate(year int, month time.Month, day int, today time.Time) time.Time {
	if year != 0 {
		return time.Date(year, month, day, 0, 0, 0, 0, today.Location())
	}
	d := time.Date(today.Year(), month, day, 0, 0, 0, 0, today.Location())
	if d.Before(today) {
		d = time.Date(today.Year()+1, month, day, 0, 0, 0, 0, today.Location())
	}
	return d
}

// resolveWeekday applies the weekday anchoring rules:
//
//   - bare W: nearest future occurrence, today excluded.
//   - "this W": the current week's occurrence when it has not passed
//     (today included), otherwise it naturally rolls forward.
//   - "next W": one week beyond the nearest future occurrence.
//   - "W in N weeks": nearest future occurrence plus N-1 weeks.
//   - "W in N months": first occurrence on or after today plus N calendar
//     months.
func resolveWeekday(m *Match, today time.Time) time.Time {
	target := m.Weekday
	switch m.Rel {
	case weekdayThis:
		d := int(target-today.Weekday()+7) % 7
		return today.AddDate(0, 0, d)
	case weekdayNext:
		return today.AddDate(0, 0, daysToFuture(today, target)+7)
	case weekdayInWeeks:
		n := m.Ahead
		if n < 1 {
			n = 1
		}
		return today.AddDate(0, 0, daysToFuture(today, target)+7*(n-1))
	case weekdayInMonths:
		start := today.AddDate(0, m.Ahead, 0)
		d := int(target-start.Weekday()+7) % 7
		return start.AddDate(0, 0, d)
	default: // weekdayBare
		return today.AddDate(0, 0, daysToFuture(today, target))
	}
}

// daysToFuture returns the day count to the nearest strictly-future
// occurrence of target (1–7).
func daysToFuture(today time.Time, target time.Weekday) int {
	d := int(target-today.Weekday()+7) % 7
	if d == 0 {
		d = 7
	}
	return d
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
