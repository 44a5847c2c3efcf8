package parse

import "time"

// Category classifies the kind of scheduling signal a detector recognised.
type Category int

const (
	// CategoryNone is the zero value; it never appears on a returned Match.
	CategoryNone Category = iota

	// CategoryWeekday covers weekday tokens and their qualified forms
	// ("friday", "next monday", "wednesday in 2 weeks").
	CategoryWeekday

	// CategoryRelativeDate covers "today", "tomorrow", their shortcuts, and
	// "in N days/weeks/months".
	CategoryRelativeDate

	// CategoryAbsoluteDate covers numeric dates such as "10/15" or "3.7.2026".
	CategoryAbsoluteDate

	// CategoryMonthDay covers natural-language month-day phrases such as
	// "october 15th" or "15th of next month".
	CategoryMonthDay

	// CategoryTimeOfDay covers explicit clock times ("3pm", "14:30", bare
	// hour numbers) and named time-of-day presets ("morning", "evening").
	CategoryTimeOfDay

	// CategoryRecurrence covers "every [N] day/week/month" phrases.
	CategoryRecurrence

	// CategoryTimeOffset covers "in N hours/minutes" phrases, which are
	// relative to the current instant rather than a calendar day.
	CategoryTimeOffset

	// CategoryOther marks matched substrings that carry no scheduling data
	// of their own but still belong to a detected phrase.
	CategoryOther
)

// String returns the category name used in error messages and logs.
func (c Category) String() string {
	switch c {
	case CategoryWeekday:
		return "weekday"
	case CategoryRelativeDate:
		return "relativeDate"
	case CategoryAbsoluteDate:
		return "absoluteDate"
	case CategoryMonthDay:
		return "monthDay"
	case CategoryTimeOfDay:
		return "timeOfDay"
	case CategoryRecurrence:
		return "recurrence"
	case CategoryTimeOffset:
		return "timeOffset"
	case CategoryOther:
		return "other"
	}
	return "none"
}

// weekdayRel qualifies how a weekday token anchors to the calendar.
type weekdayRel int

const (
	// weekdayBare is an unqualified weekday ("friday"): the nearest future
	// occurrence, today excluded.
	weekdayBare weekdayRel = iota

	// weekdayThis is "this friday" / "friday this week": the current week's
	// occurrence when it has not passed yet, otherwise next week's.
	weekdayThis

	// weekdayNext is "next friday" / "friday next week" / "next week friday":
	// one week beyond the nearest future occurrence.
	weekdayNext

	// weekdayInWeeks is "friday in 2 weeks" / "in 2 weeks friday".
	weekdayInWeeks

	// weekdayInMonths is "friday in 2 months" / "in 2 months friday".
	weekdayInMonths
)

// Frequency is the recurrence unit of a parsed task.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"

	// FrequencyYearly exists for the task-creation collaborator; no phrase
	// pattern currently produces it.
	FrequencyYearly Frequency = "yearly"
)

// maxInterval returns the validation cap for a frequency, or 0 when the
// frequency is unknown.
func maxInterval(f Frequency) int {
	switch f {
	case FrequencyDaily:
		return 365
	case FrequencyWeekly:
		return 52
	case FrequencyMonthly:
		return 24
	case FrequencyYearly:
		return 10
	}
	return 0
}

// Match is the tagged result of a single phrase detector. Text and the
// Start/End span always refer to the (phonetically normalised, lowercased)
// input; the remaining fields are populated per Category.
type Match struct {
	// Text is the exact substring the detector claimed.
	Text string

	// Start and End delimit Text within the input ([Start, End) byte span).
	Start, End int

	Category Category

	// Weekday fields.
	Weekday time.Weekday
	Rel     weekdayRel
	Ahead   int // week or month count for weekdayInWeeks/weekdayInMonths

	// Relative-date fields. DayOffset is days from today (weeks ×7,
	// months ×30). Named is true for today/tomorrow style phrases as
	// opposed to "in N ..." offsets. Unit preserves the offset unit word
	// ("day", "week", "month") for combination validation.
	DayOffset int
	Named     bool
	Unit      string

	// Absolute/month-day fields.
	Month time.Month
	Day   int
	Year  int // 0 when the phrase carried no year

	// Time fields. Hour is 0–23 after AM/PM resolution.
	Hour, Minute int

	// Time-offset fields.
	OffsetMinutes int

	// Recurrence fields.
	Interval  int
	Frequency Frequency
}
