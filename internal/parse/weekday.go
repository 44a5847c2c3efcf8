package parse

import (
	"regexp"
	"strconv"
	"time"
)

// weekdayPattern matches any weekday token, full names before abbreviations
// so the regexp engine prefers the longer form.
const weekdayPattern = `(monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tues|tue|wed|thurs|thur|thu|fri|sat|sun)`

var weekdayTokens = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

// Qualified weekday forms, one regexp per precedence tier. The tiers are
// tried in order so that more specific phrases win over the bare token:
// "in N weeks/months W" and "W in N weeks/months" > "W this week" >
// "this week W" / "W next week" > "next week W" > "this W" > "next W" >
// bare W. Because the first matching tier returns, a bare-token match can
// never steal the weekday out of a longer phrase.
var (
	reWeekdayInUnits = regexp.MustCompile(`\bin (\d{1,2}) (weeks?|months?)(?: on)? ` + weekdayPattern + `\b`)
	reWeekdayUnitsIn = regexp.MustCompile(`\b` + weekdayPattern + ` in (\d{1,2}) (weeks?|months?)\b`)
	reWeekdayThisWk  = regexp.MustCompile(`\b` + weekdayPattern + ` this week\b`)
	reThisWkWeekday  = regexp.MustCompile(`\bthis week(?: on)? ` + weekdayPattern + `\b`)
	reWeekdayNextWk  = regexp.MustCompile(`\b` + weekdayPattern + ` next week\b`)
	reNextWkWeekday  = regexp.MustCompile(`\bnext week(?: on)? ` + weekdayPattern + `\b`)
	reThisWeekday    = regexp.MustCompile(`\bthis ` + weekdayPattern + `\b`)
	reNextWeekday    = regexp.MustCompile(`\bnext ` + weekdayPattern + `\b`)
	reBareWeekday    = regexp.MustCompile(`\b` + weekdayPattern + `\b`)
)

// detectWeekday scans text for a weekday phrase. text must already be
// lowercased. Returns the most specific match per the tier order above.
func detectWeekday(text string) (Match, bool) {
	// Tier 1: "in N weeks/months W".
	if loc := reWeekdayInUnits.FindStringSubmatchIndex(text); loc != nil {
		n, _ := strconv.Atoi(text[loc[2]:loc[3]])
		unit := text[loc[4]:loc[5]]
		m := weekdayMatch(text, loc[0], loc[1], text[loc[6]:loc[7]])
		m.Ahead = n
		m.Rel = weekdayInWeeks
		if unit[0] == 'm' {
			m.Rel = weekdayInMonths
		}
		return m, true
	}
	// Tier 1: "W in N weeks/months".
	if loc := reWeekdayUnitsIn.FindStringSubmatchIndex(text); loc != nil {
		n, _ := strconv.Atoi(text[loc[4]:loc[5]])
		unit := text[loc[6]:loc[7]]
		m := weekdayMatch(text, loc[0], loc[1], text[loc[2]:loc[3]])
		m.Ahead = n
		m.Rel = weekdayInWeeks
		if unit[0] == 'm' {
			m.Rel = weekdayInMonths
		}
		return m, true
	}
	// Tier 2: "W this week".
	if loc := reWeekdayThisWk.FindStringSubmatchIndex(text); loc != nil {
		m := weekdayMatch(text, loc[0], loc[1], text[loc[2]:loc[3]])
		m.Rel = weekdayThis
		return m, true
	}
	// Tier 3: "this week W" and "W next week".
	if loc := reThisWkWeekday.FindStringSubmatchIndex(text); loc != nil {
		m := weekdayMatch(text, loc[0], loc[1], text[loc[2]:loc[3]])
		m.Rel = weekdayThis
		return m, true
	}
	if loc := reWeekdayNextWk.FindStringSubmatchIndex(text); loc != nil {
		m := weekdayMatch(text, loc[0], loc[1], text[loc[2]:loc[3]])
		m.Rel = weekdayNext
		return m, true
	}
	// Tier 4: "next week W".
	if loc := reNextWkWeekday.FindStringSubmatchIndex(text); loc != nil {
		m := weekdayMatch(text, loc[0], loc[1], text[loc[2]:loc[3]])
		m.Rel = weekdayNext
		return m, true
	}
	// Tier 5: "this W".
	if loc := reThisWeekday.FindStringSubmatchIndex(text); loc != nil {
		m := weekdayMatch(text, loc[0], loc[1], text[loc[2]:loc[3]])
		m.Rel = weekdayThis
		return m, true
	}
	// Tier 6: "next W".
	if loc := reNextWeekday.FindStringSubmatchIndex(text); loc != nil {
		m := weekdayMatch(text, loc[0], loc[1], text[loc[2]:loc[3]])
		m.Rel = weekdayNext
		return m, true
	}
	// Tier 7: bare W.
	if loc := reBareWeekday.FindStringSubmatchIndex(text); loc != nil {
		m := weekdayMatch(text, loc[0], loc[1], text[loc[2]:loc[3]])
		m.Rel = weekdayBare
		return m, true
	}
	return Match{}, false
}

func weekdayMatch(text string, start, end int, token string) Match {
	return Match{
		Text:     text[start:end],
		Start:    start,
		End:      end,
		Category: CategoryWeekday,
		Weekday:  weekdayTokens[token],
	}
}
