package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reOffset    = regexp.MustCompile(`\bin (\d{1,3}) (hours?|hrs?|minutes?|mins?)\b`)
	reClockFull = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	reClockMer  = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
	reBareNum   = regexp.MustCompile(`\b\d{1,2}\b`)
)

// bareNumberStopWords are tokens that disqualify a bare number from being an
// hour: unit words and meridiems belong to the date and duration detectors.
var bareNumberStopWords = map[string]bool{
	"day": true, "days": true, "week": true, "weeks": true,
	"month": true, "months": true, "year": true, "years": true,
	"hour": true, "hours": true, "hr": true, "hrs": true,
	"minute": true, "minutes": true, "min": true, "mins": true,
	"am": true, "pm": true,
}

// detectTimeOffset finds "in N hours/minutes". The offset is relative to the
// current instant, not the resolved calendar day; composition with a base
// day happens in the resolver.
func detectTimeOffset(text string) (Match, bool) {
	loc := reOffset.FindStringSubmatchIndex(text)
	if loc == nil {
		return Match{}, false
	}
	n, _ := strconv.Atoi(text[loc[2]:loc[3]])
	minutes := n
	if text[loc[4]] == 'h' {
		minutes = n * 60
	}
	return Match{
		Text:          text[loc[0]:loc[1]],
		Start:         loc[0],
		End:           loc[1],
		Category:      CategoryTimeOffset,
		OffsetMinutes: minutes,
	}, true
}

// detectClock finds an explicit time: "H:MM[am|pm]", "H[am|pm]", or a bare
// 1–2 digit number that is not immediately followed by a date separator,
// ordinal suffix, or unit word. When AM/PM is omitted the preferPM
// preference decides. A syntactic time with an impossible hour or minute
// returns an error so the caller can reject the whole input.
func detectClock(text string, preferPM bool) (Match, bool, error) {
	if loc := reClockFull.FindStringSubmatchIndex(text); loc != nil {
		h, _ := strconv.Atoi(text[loc[2]:loc[3]])
		min, _ := strconv.Atoi(text[loc[4]:loc[5]])
		if min > 59 {
			return Match{}, false, fmt.Errorf("%q has minutes outside 0-59", text[loc[0]:loc[1]])
		}
		if h < 1 || h > 24 {
			return Match{}, false, fmt.Errorf("%q has an hour outside 1-24", text[loc[0]:loc[1]])
		}
		mer := sub(text, loc, 3)
		return Match{
			Text:     text[loc[0]:loc[1]],
			Start:    loc[0],
			End:      loc[1],
			Category: CategoryTimeOfDay,
			Hour:     applyMeridiem(h, mer, preferPM),
			Minute:   min,
		}, true, nil
	}
	if loc := reClockMer.FindStringSubmatchIndex(text); loc != nil {
		h, _ := strconv.Atoi(text[loc[2]:loc[3]])
		if h < 1 || h > 24 {
			return Match{}, false, fmt.Errorf("%q has an hour outside 1-24", text[loc[0]:loc[1]])
		}
		mer := text[loc[4]:loc[5]]
		return Match{
			Text:     text[loc[0]:loc[1]],
			Start:    loc[0],
			End:      loc[1],
			Category: CategoryTimeOfDay,
			Hour:     applyMeridiem(h, mer, preferPM),
		}, true, nil
	}
	start, end, ok, err := findBareHour(text)
	if err != nil {
		return Match{}, false, err
	}
	if ok {
		h, _ := strconv.Atoi(text[start:end])
		return Match{
			Text:     text[start:end],
			Start:    start,
			End:      end,
			Category: CategoryTimeOfDay,
			Hour:     applyMeridiem(h%24, "", preferPM),
		}, true, nil
	}
	return Match{}, false, nil
}

// findBareHour scans for the first standalone 1–2 digit number usable as an
// hour. Numbers glued to separators or ordinal suffixes, or followed by a
// unit word or month name, belong to other detectors and are skipped. A
// number outside 1-24 is normally skipped too (it could be a quantity), but
// one anchored by "at" can only be an hour and is rejected.
func findBareHour(text string) (start, end int, ok bool, err error) {
	for _, loc := range reBareNum.FindAllStringIndex(text, -1) {
		s, e := loc[0], loc[1]

		// Immediately following character rules out separators and suffixes.
		if e < len(text) {
			switch text[e] {
			case ':', '.', '/', '-':
				continue
			}
		}
		if hasOrdinalSuffix(text[e:]) {
			continue
		}

		// The next word must not be a unit word or month name.
		next := nextWord(text[e:])
		if bareNumberStopWords[next] {
			continue
		}
		if _, isMonth := monthTokens[next]; isMonth {
			continue
		}

		// Immediately preceding character rules out decimals and dates.
		if s > 0 {
			switch text[s-1] {
			case ':', '.', '/', '-', '$':
				continue
			}
		}

		n, _ := strconv.Atoi(text[s:e])
		if n < 1 || n > 24 {
			if prevWord(text, s) == "at" {
				return 0, 0, false, fmt.Errorf("%q has an hour outside 1-24", text[s:e])
			}
			continue
		}
		return s, e, true, nil
	}
	return 0, 0, false, nil
}

func hasOrdinalSuffix(rest string) bool {
	for _, suf := range [...]string{"st", "nd", "rd", "th"} {
		if strings.HasPrefix(rest, suf) {
			return true
		}
	}
	return false
}

// nextWord returns the first word of rest, skipping leading spaces.
func nextWord(rest string) string {
	rest = strings.TrimLeft(rest, " \t")
	end := 0
	for end < len(rest) {
		c := rest[end]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			break
		}
		end++
	}
	return rest[:end]
}

// prevWord returns the word immediately before position pos in text.
func prevWord(text string, pos int) string {
	end := pos
	for end > 0 && (text[end-1] == ' ' || text[end-1] == '\t') {
		end--
	}
	start := end
	for start > 0 {
		c := text[start-1]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '\'' {
			break
		}
		start--
	}
	return text[start:end]
}

// applyMeridiem converts a 1–24 hour plus optional meridiem into 0–23.
// With no meridiem, hours 1–11 follow the user's AM/PM default.
func applyMeridiem(h int, meridiem string, preferPM bool) int {
	switch meridiem {
	case "pm":
		if h < 12 {
			h += 12
		}
	case "am":
		if h == 12 {
			h = 0
		}
	default:
		if preferPM && h >= 1 && h <= 11 {
			h += 12
		}
		if h == 24 {
			h = 0
		}
	}
	return h
}
