package parse

import "strings"

// Words removed when dangling at the edges of an extracted title.
var edgeFiller = map[string]bool{
	"in": true, "on": true, "at": true, "of": true,
	"the": true, "a": true, "an": true, "to": true,
}

// Prepositions absorbed together with a stripped phrase when they
// immediately precede it ("call mom on friday" → "call mom").
var leadingPreps = map[string]bool{
	"on": true, "at": true, "in": true, "by": true, "to": true,
	"for": true, "until": true, "the": true, "a": true, "an": true, "of": true,
}

// Tokens that count as scheduling vocabulary when deciding whether a
// weekday is followed by descriptive content.
var schedulingTokens = map[string]bool{
	"at": true, "on": true, "every": true, "next": true, "this": true,
	"today": true, "tomorrow": true, "morning": true, "noon": true,
	"afternoon": true, "evening": true, "night": true,
	"am": true, "pm": true, "in": true, "week": true, "weeks": true,
	"day": true, "days": true, "month": true, "months": true,
	"hour": true, "hours": true, "minute": true, "minutes": true,
}

// extractTitle removes the detected scheduling phrases from text and
// normalises what remains. text and lower are the same string in original
// and lowercased form; match spans index into both.
//
// Recurrence, time, time-offset, absolute-date and relative-date phrases are
// always stripped, a redundant second relative phrase included. Weekday and month-day phrases are stripped only in
// clearly temporal context — a weekday opening the sentence as part of a
// noun phrase ("Monday meeting notes") survives, as does a month-day that
// shares the sentence with stronger signals.
func extractTitle(text, lower string, sig *signals, secondRel *Match) string {
	type span struct{ start, end int }
	var remove []span

	for _, m := range []*Match{sig.recur, sig.clock, sig.preset, sig.offset, sig.absolute, sig.relative, secondRel} {
		if m != nil {
			remove = append(remove, span{m.Start, m.End})
		}
	}
	if m := sig.weekday; m != nil && stripWeekday(lower, m, sig) {
		remove = append(remove, span{m.Start, m.End})
	}
	if m := sig.monthDay; m != nil && stripMonthDay(lower, m, sig) {
		remove = append(remove, span{m.Start, m.End})
	}

	// Grow each span over an immediately preceding preposition or article.
	for i := range remove {
		remove[i].start = absorbLeadingPrep(lower, remove[i].start)
	}

	// Rebuild the text without the removed spans.
	cut := make([]bool, len(text))
	for _, sp := range remove {
		for i := sp.start; i < sp.end && i < len(cut); i++ {
			cut[i] = true
		}
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if !cut[i] {
			b.WriteByte(text[i])
		}
	}

	return normalizeTitle(b.String())
}

// stripWeekday decides whether a weekday phrase is temporal enough to
// remove from the title.
func stripWeekday(lower string, m *Match, sig *signals) bool {
	// Qualified forms ("next friday", "friday in 2 weeks") are always
	// temporal.
	if m.Rel != weekdayBare {
		return true
	}
	if prevWord(lower, m.Start) == "on" {
		return true
	}
	// A weekday in the first three words followed by a descriptive noun is
	// task content ("Monday meeting notes").
	next := nextWord(lower[m.End:])
	if wordIndex(lower, m.Start) < 3 && next != "" && !schedulingTokens[next] && !isDigits(next) {
		return false
	}
	// Other scheduling signals elsewhere mark this use as temporal.
	if sig.count() > 1 {
		return true
	}
	// Followed only by scheduling tokens (or nothing): temporal.
	return tailIsScheduling(lower[m.End:])
}

// stripMonthDay decides whether a month-day phrase should leave the title.
func stripMonthDay(lower string, m *Match, sig *signals) bool {
	// "15th of this/next month" carries no month name; always temporal.
	if m.Named {
		return true
	}
	// Sole scheduling signal in the sentence.
	if sig.count() == 1 {
		return true
	}
	// The month name appearing more than once: strip the specific
	// (detected) occurrence, keep the descriptive one.
	name := strings.ToLower(m.Month.String())
	if strings.Count(lower, name) > 1 || strings.Count(lower, name[:3]) > 1 {
		return true
	}
	switch prevWord(lower, m.Start) {
	case "on", "by", "until", "due":
		return true
	}
	return false
}

// absorbLeadingPrep walks left from start over whitespace and one
// preposition or article, returning the widened start offset.
func absorbLeadingPrep(lower string, start int) int {
	end := start
	for end > 0 && lower[end-1] == ' ' {
		end--
	}
	ws := end
	for ws > 0 && lower[ws-1] != ' ' {
		ws--
	}
	if leadingPreps[lower[ws:end]] {
		return ws
	}
	return start
}

// tailIsScheduling reports whether rest contains only scheduling tokens,
// digits, and punctuation.
func tailIsScheduling(rest string) bool {
	for _, w := range strings.Fields(rest) {
		w = strings.Trim(w, ".,!?;:")
		if w == "" {
			continue
		}
		if !schedulingTokens[w] && !isDigits(w) && !isClockToken(w) {
			return false
		}
	}
	return true
}

func isClockToken(w string) bool {
	w = strings.TrimSuffix(strings.TrimSuffix(w, "am"), "pm")
	digits := 0
	for i := 0; i < len(w); i++ {
		c := w[i]
		if c >= '0' && c <= '9' {
			digits++
			continue
		}
		if c != ':' {
			return false
		}
	}
	return digits > 0
}

func isDigits(w string) bool {
	for i := 0; i < len(w); i++ {
		if w[i] < '0' || w[i] > '9' {
			return false
		}
	}
	return len(w) > 0
}

// wordIndex counts whole words before byte offset pos.
func wordIndex(lower string, pos int) int {
	return len(strings.Fields(lower[:pos]))
}

// normalizeTitle collapses repeated whitespace and trims leftover edge
// prepositions, articles, and punctuation.
func normalizeTitle(s string) string {
	words := strings.Fields(s)

	trim := func(w string) string { return strings.Trim(w, ".,;:!- ") }

	for len(words) > 0 {
		w := strings.ToLower(trim(words[0]))
		if w == "" || edgeFiller[w] {
			words = words[1:]
			continue
		}
		break
	}
	for len(words) > 0 {
		w := strings.ToLower(trim(words[len(words)-1]))
		if w == "" || edgeFiller[w] {
			words = words[:len(words)-1]
			continue
		}
		break
	}

	out := strings.Join(words, " ")
	return strings.Trim(out, " .,;:!-")
}
