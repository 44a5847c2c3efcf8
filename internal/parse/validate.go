package parse

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	minInputLen = 3
	maxInputLen = 200
)

// validateInput applies the pre-parse checks: non-empty, within the length
// bounds. Length is counted in characters, not bytes, so that dictated text
// with accented characters is not penalised.
func validateInput(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("task text is empty")
	}
	if utf8.RuneCountInString(trimmed) < minInputLen {
		return fmt.Errorf("task text is too short (minimum %d characters)", minInputLen)
	}
	if utf8.RuneCountInString(text) > maxInputLen {
		return fmt.Errorf("task text is too long (maximum %d characters)", maxInputLen)
	}
	return nil
}

// validateCombos rejects signal combinations that cannot describe a single
// moment: a day-count offset alongside a weekday, or a week/month offset
// alongside a named day or a specific numeric date.
func validateCombos(sig *signals, secondRelative *Match) error {
	rel := sig.relative
	if rel != nil && !rel.Named {
		if rel.Unit == "day" && sig.weekday != nil {
			return fmt.Errorf("%q cannot be combined with a weekday", rel.Text)
		}
		if rel.Unit == "week" || rel.Unit == "month" {
			if sig.absolute != nil {
				return fmt.Errorf("%q cannot be combined with a specific date", rel.Text)
			}
			if secondRelative != nil && secondRelative.Named {
				return fmt.Errorf("%q cannot be combined with %q", rel.Text, secondRelative.Text)
			}
		}
	}
	return nil
}

// validateResult applies the post-parse checks: a usable title and, for
// recurring tasks, interval and frequency present and within bounds.
func validateResult(title string, rec *Recurrence) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("could not extract a task title")
	}
	if rec != nil {
		if rec.Interval < 1 || rec.Frequency == "" {
			return fmt.Errorf("recurrence is missing an interval or frequency")
		}
		if rec.Interval > maxInterval(rec.Frequency) {
			return fmt.Errorf("recurrence interval %d exceeds the %s limit", rec.Interval, rec.Frequency)
		}
	}
	return nil
}
