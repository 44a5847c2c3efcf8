package parse

import (
	"fmt"
	"regexp"
	"strconv"
)

var reRecurrence = regexp.MustCompile(`\bevery (?:(\d{1,3}) )?(day|days|week|weeks|month|months)\b`)

// detectRecurrence finds "every [N] day(s)/week(s)/month(s)". The interval
// defaults to 1 when the phrase uses the bare singular form ("every day").
func detectRecurrence(text string) (Match, bool) {
	loc := reRecurrence.FindStringSubmatchIndex(text)
	if loc == nil {
		return Match{}, false
	}
	interval := 1
	if loc[2] >= 0 {
		interval, _ = strconv.Atoi(text[loc[2]:loc[3]])
	}
	var freq Frequency
	switch text[loc[4]] {
	case 'd':
		freq = FrequencyDaily
	case 'w':
		freq = FrequencyWeekly
	case 'm':
		freq = FrequencyMonthly
	}
	return Match{
		Text:      text[loc[0]:loc[1]],
		Start:     loc[0],
		End:       loc[1],
		Category:  CategoryRecurrence,
		Interval:  interval,
		Frequency: freq,
	}, true
}

// Recurrence is the validated (interval, frequency) pair attached to a
// recurring task.
type Recurrence struct {
	Interval  int
	Frequency Frequency
}

// buildRecurrence converts a recurrence match into a validated Recurrence.
// Interval caps: daily ≤ 365, weekly ≤ 52, monthly ≤ 24.
func buildRecurrence(m Match) (Recurrence, error) {
	if m.Interval < 1 {
		return Recurrence{}, fmt.Errorf("recurrence interval must be at least 1")
	}
	if m.Frequency == "" {
		return Recurrence{}, fmt.Errorf("recurrence is missing a frequency")
	}
	if cap := maxInterval(m.Frequency); m.Interval > cap {
		return Recurrence{}, fmt.Errorf("a %s recurrence can repeat at most every %d %s",
			m.Frequency, cap, unitNoun(m.Frequency))
	}
	return Recurrence{Interval: m.Interval, Frequency: m.Frequency}, nil
}

func unitNoun(f Frequency) string {
	switch f {
	case FrequencyDaily:
		return "days"
	case FrequencyWeekly:
		return "weeks"
	case FrequencyMonthly:
		return "months"
	case FrequencyYearly:
		return "years"
	}
	return "units"
}
