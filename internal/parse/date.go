package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// monthPattern matches month names, full names before abbreviations.
const monthPattern = `(january|february|march|april|august|september|october|november|december|june|july|may|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)`

var monthTokens = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	reInUnits   = regexp.MustCompile(`\bin (\d{1,3}) (days?|weeks?|months?)\b`)
	reNamedDay  = regexp.MustCompile(`\b(today|tomorrow)\b`)
	reShortDay  = regexp.MustCompile(`\b(td|tm)\b`)
	reNumDate   = regexp.MustCompile(`\b(\d{1,2})[./](\d{1,2})(?:[./](\d{2,4}))?\b`)
	reMonthDay  = regexp.MustCompile(`\b` + monthPattern + ` (\d{1,2})(?:st|nd|rd|th)?(?:,? (\d{4}))?\b`)
	reDayMonth  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)? (?:of )?` + monthPattern + `(?: (\d{4}))?\b`)
	reDayRelMon = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th) of (this|next) month\b`)
)

// detectRelativeDate finds "in N days/weeks/months", "today"/"tomorrow", or
// (when shortcuts are enabled) the two-letter forms "td"/"tm". The offset
// form is tried first since it is the more specific phrase.
func detectRelativeDate(text string, shortcuts bool) (Match, bool) {
	if loc := reInUnits.FindStringSubmatchIndex(text); loc != nil {
		n, _ := strconv.Atoi(text[loc[2]:loc[3]])
		mult, unit := 1, "day"
		switch text[loc[4]] {
		case 'w':
			mult, unit = 7, "week"
		case 'm':
			mult, unit = 30, "month" // months approximate to 30 days for offset math
		}
		return Match{
			Text:      text[loc[0]:loc[1]],
			Start:     loc[0],
			End:       loc[1],
			Category:  CategoryRelativeDate,
			DayOffset: n * mult,
			Unit:      unit,
		}, true
	}
	if loc := reNamedDay.FindStringSubmatchIndex(text); loc != nil {
		off := 0
		if text[loc[2]:loc[3]] == "tomorrow" {
			off = 1
		}
		return Match{
			Text:      text[loc[0]:loc[1]],
			Start:     loc[0],
			End:       loc[1],
			Category:  CategoryRelativeDate,
			DayOffset: off,
			Named:     true,
		}, true
	}
	if shortcuts {
		if loc := reShortDay.FindStringSubmatchIndex(text); loc != nil {
			off := 0
			if text[loc[2]:loc[3]] == "tm" {
				off = 1
			}
			return Match{
				Text:      text[loc[0]:loc[1]],
				Start:     loc[0],
				End:       loc[1],
				Category:  CategoryRelativeDate,
				DayOffset: off,
				Named:     true,
			}, true
		}
	}
	return Match{}, false
}

// detectNumericDate finds "M/D", "D.M", optionally with a year, interpreted
// according to the user's date-format preference. A syntactic match that
// cannot form a valid calendar date returns an error naming the offending
// format; the parser surfaces it as an invalid result rather than ignoring
// the phrase.
func detectNumericDate(text string, dayFirst bool) (Match, bool, error) {
	loc := reNumDate.FindStringSubmatchIndex(text)
	if loc == nil {
		return Match{}, false, nil
	}
	a, _ := strconv.Atoi(text[loc[2]:loc[3]])
	b, _ := strconv.Atoi(text[loc[4]:loc[5]])
	year := 0
	if loc[6] >= 0 {
		year, _ = strconv.Atoi(text[loc[6]:loc[7]])
		if year < 100 {
			year += 2000
		}
	}

	month, day := a, b
	format := "month/day"
	if dayFirst {
		month, day = b, a
		format = "day/month"
	}

	raw := text[loc[0]:loc[1]]
	if month < 1 || month > 12 || day < 1 || day > daysInMonth(time.Month(month), year) {
		return Match{}, false, fmt.Errorf("%q is not a valid %s date", raw, format)
	}

	return Match{
		Text:     raw,
		Start:    loc[0],
		End:      loc[1],
		Category: CategoryAbsoluteDate,
		Month:    time.Month(month),
		Day:      day,
		Year:     year,
	}, true, nil
}

// detectMonthDay finds natural-language month-day phrases: "october 15th",
// "15th of october", "october 15 2026", and "15th of this/next month".
func detectMonthDay(text string) (Match, bool, error) {
	if loc := reMonthDay.FindStringSubmatchIndex(text); loc != nil {
		return monthDayMatch(text, loc, text[loc[2]:loc[3]], text[loc[4]:loc[5]], sub(text, loc, 3))
	}
	if loc := reDayMonth.FindStringSubmatchIndex(text); loc != nil {
		return monthDayMatch(text, loc, text[loc[4]:loc[5]], text[loc[2]:loc[3]], sub(text, loc, 3))
	}
	if loc := reDayRelMon.FindStringSubmatchIndex(text); loc != nil {
		day, _ := strconv.Atoi(text[loc[2]:loc[3]])
		if day < 1 || day > 31 {
			return Match{}, false, fmt.Errorf("%q is not a valid day of month", text[loc[2]:loc[3]])
		}
		ahead := 0
		if text[loc[4]:loc[5]] == "next" {
			ahead = 1
		}
		return Match{
			Text:     text[loc[0]:loc[1]],
			Start:    loc[0],
			End:      loc[1],
			Category: CategoryMonthDay,
			Day:      day,
			Ahead:    ahead,
			Named:    true, // relative to the current month, no month name
		}, true, nil
	}
	return Match{}, false, nil
}

func monthDayMatch(text string, loc []int, monthTok, dayTok, yearTok string) (Match, bool, error) {
	day, _ := strconv.Atoi(dayTok)
	year := 0
	if yearTok != "" {
		year, _ = strconv.Atoi(yearTok)
	}
	month := monthTokens[monthTok]
	if day < 1 || day > daysInMonth(month, year) {
		return Match{}, false, fmt.Errorf("%q does not have a day %d", monthTok, day)
	}
	return Match{
		Text:     text[loc[0]:loc[1]],
		Start:    loc[0],
		End:      loc[1],
		Category: CategoryMonthDay,
		Month:    month,
		Day:      day,
		Year:     year,
	}, true, nil
}

// sub returns submatch group n of loc as a string, or "" when absent.
func sub(text string, loc []int, n int) string {
	if 2*n+1 >= len(loc) || loc[2*n] < 0 {
		return ""
	}
	return text[loc[2*n]:loc[2*n+1]]
}

// daysInMonth returns the day count of month in year. Year 0 (no year in the
// phrase) is treated as a leap year so February 29 stays parseable; the
// resolver picks the actual year.
func daysInMonth(m time.Month, year int) int {
	if m < time.January || m > time.December {
		return 0
	}
	if year == 0 {
		year = 2000
	}
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
