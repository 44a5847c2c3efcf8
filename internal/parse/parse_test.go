package parse

import (
	"strings"
	"testing"
	"time"
)

// refNow is Wednesday, 2026-03-04 10:00 UTC. Every test resolves against
// this instant so results are deterministic.
var refNow = time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)

func newTestParser(mut ...func(*Prefs)) *Parser {
	prefs := DefaultPrefs()
	for _, m := range mut {
		m(&prefs)
	}
	return New(prefs)
}

func mustDue(t *testing.T, r Result) time.Time {
	t.Helper()
	if !r.IsValid {
		t.Fatalf("result invalid: %s", r.ErrorMessage)
	}
	if r.DueDate == nil {
		t.Fatalf("expected a due date, got none (title %q)", r.Title)
	}
	return *r.DueDate
}

func TestParse_TomorrowWithClock(t *testing.T) {
	t.Parallel()

	r := newTestParser().ParseAt("call mom tomorrow at 3pm", refNow)

	if r.Title != "call mom" {
		t.Errorf("title = %q, want %q", r.Title, "call mom")
	}
	due := mustDue(t, r)
	want := time.Date(2026, time.March, 5, 15, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("due = %v, want %v", due, want)
	}
	if r.IsRecurring {
		t.Error("IsRecurring = true, want false")
	}
}

func TestParse_WeekdayClockRecurrence(t *testing.T) {
	t.Parallel()

	r := newTestParser().ParseAt("team meeting monday at 10am every 2 weeks", refNow)

	if r.Title != "team meeting" {
		t.Errorf("title = %q, want %q", r.Title, "team meeting")
	}
	due := mustDue(t, r)
	if due.Weekday() != time.Monday {
		t.Errorf("weekday = %v, want Monday", due.Weekday())
	}
	want := time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("due = %v, want %v", due, want)
	}
	if !r.IsRecurring || r.RecurrenceInterval != 2 || r.RecurrenceFrequency != FrequencyWeekly {
		t.Errorf("recurrence = (%v, %d, %s), want (true, 2, weekly)",
			r.IsRecurring, r.RecurrenceInterval, r.RecurrenceFrequency)
	}
}

func TestParse_EveryWeekdayNeverInPast(t *testing.T) {
	t.Parallel()

	weekdays := map[string]time.Weekday{
		"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
		"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
		"sunday": time.Sunday,
	}
	p := newTestParser()
	for token, wd := range weekdays {
		r := p.ParseAt("pick up parcel on "+token, refNow)
		due := mustDue(t, r)
		if due.Weekday() != wd {
			t.Errorf("%q: weekday = %v, want %v", token, due.Weekday(), wd)
		}
		if due.Before(refNow) {
			t.Errorf("%q: due %v is in the past relative to %v", token, due, refNow)
		}
		if r.Title != "pick up parcel" {
			t.Errorf("%q: title = %q, want %q", token, r.Title, "pick up parcel")
		}
	}
}

func TestParse_WeekdayQualifiers(t *testing.T) {
	t.Parallel()

	// Reference day is Wednesday 2026-03-04.
	cases := []struct {
		text string
		want time.Time
	}{
		{"gym friday", time.Date(2026, time.March, 6, 9, 0, 0, 0, time.UTC)},
		{"gym this friday", time.Date(2026, time.March, 6, 9, 0, 0, 0, time.UTC)},
		{"gym this wednesday", time.Date(2026, time.March, 4, 9, 0, 0, 0, time.UTC)},
		{"gym next friday", time.Date(2026, time.March, 13, 9, 0, 0, 0, time.UTC)},
		{"gym wednesday", time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC)},
		{"gym friday next week", time.Date(2026, time.March, 13, 9, 0, 0, 0, time.UTC)},
		{"gym next week friday", time.Date(2026, time.March, 13, 9, 0, 0, 0, time.UTC)},
		{"gym friday this week", time.Date(2026, time.March, 6, 9, 0, 0, 0, time.UTC)},
		{"gym friday in 2 weeks", time.Date(2026, time.March, 13, 9, 0, 0, 0, time.UTC)},
		{"gym in 3 weeks friday", time.Date(2026, time.March, 20, 9, 0, 0, 0, time.UTC)},
	}

	p := newTestParser()
	for _, tc := range cases {
		r := p.ParseAt(tc.text, refNow)
		due := mustDue(t, r)
		if !due.Equal(tc.want) {
			t.Errorf("%q: due = %v, want %v", tc.text, due, tc.want)
		}
		if r.Title != "gym" {
			t.Errorf("%q: title = %q, want %q", tc.text, r.Title, "gym")
		}
	}
}

func TestParse_RecurrenceIntervals(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text     string
		interval int
		freq     Frequency
	}{
		{"water plants every day", 1, FrequencyDaily},
		{"water plants every 3 days", 3, FrequencyDaily},
		{"laundry every week", 1, FrequencyWeekly},
		{"standup every 2 weeks", 2, FrequencyWeekly},
		{"pay rent every month", 1, FrequencyMonthly},
		{"dentist every 6 months", 6, FrequencyMonthly},
		{"archive logs every 365 days", 365, FrequencyDaily},
		{"review every 52 weeks", 52, FrequencyWeekly},
		{"audit every 24 months", 24, FrequencyMonthly},
	}
	p := newTestParser()
	for _, tc := range cases {
		r := p.ParseAt(tc.text, refNow)
		if !r.IsValid {
			t.Errorf("%q: invalid: %s", tc.text, r.ErrorMessage)
			continue
		}
		if !r.IsRecurring || r.RecurrenceInterval != tc.interval || r.RecurrenceFrequency != tc.freq {
			t.Errorf("%q: recurrence = (%v, %d, %s), want (true, %d, %s)",
				tc.text, r.IsRecurring, r.RecurrenceInterval, r.RecurrenceFrequency, tc.interval, tc.freq)
		}
	}
}

func TestParse_RecurrenceCaps(t *testing.T) {
	t.Parallel()

	for _, text := range []string{
		"water plants every 366 days",
		"standup every 53 weeks",
		"dentist every 25 months",
	} {
		r := newTestParser().ParseAt(text, refNow)
		if r.IsValid {
			t.Errorf("%q: expected invalid result", text)
		}
		if r.ErrorMessage == "" {
			t.Errorf("%q: expected a non-empty error message", text)
		}
	}
}

func TestParse_RecurrenceWithoutDayDefaultsOneWeekOut(t *testing.T) {
	t.Parallel()

	r := newTestParser().ParseAt("water plants every 3 days", refNow)
	due := mustDue(t, r)
	want := time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("due = %v, want %v", due, want)
	}
}

func TestParse_ImpossibleNumericDate(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"pay bill 10/35", "meet 13/40", "review 2/30"} {
		r := newTestParser().ParseAt(text, refNow)
		if r.IsValid {
			t.Errorf("%q: expected invalid result", text)
		}
		if r.ErrorMessage == "" {
			t.Errorf("%q: expected non-empty error message", text)
		}
	}
}

func TestParse_NumericDateFormatPreference(t *testing.T) {
	t.Parallel()

	// 13/1 is impossible as month/day but fine as day/month.
	mdy := newTestParser().ParseAt("buy milk 13/1", refNow)
	if mdy.IsValid {
		t.Error("month/day: expected 13/1 to be rejected")
	}

	dmy := newTestParser(func(p *Prefs) { p.DayFirst = true }).ParseAt("buy milk 13/1", refNow)
	due := mustDue(t, dmy)
	// Jan 13 has passed this year; rolls to next.
	want := time.Date(2027, time.January, 13, 9, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("day/month: due = %v, want %v", due, want)
	}
	if dmy.Title != "buy milk" {
		t.Errorf("title = %q, want %q", dmy.Title, "buy milk")
	}
}

func TestParse_MonthDayPhrases(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text  string
		want  time.Time
		title string
	}{
		{"pay rent on the 15th of october", time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC), "pay rent"},
		{"file taxes october 15th", time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC), "file taxes"},
		{"renew passport on january 2", time.Date(2027, time.January, 2, 9, 0, 0, 0, time.UTC), "renew passport"},
		{"invoice due 28th of this month", time.Date(2026, time.March, 28, 9, 0, 0, 0, time.UTC), "invoice due"},
		{"invoice due 2nd of next month", time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC), "invoice due"},
	}
	p := newTestParser()
	for _, tc := range cases {
		r := p.ParseAt(tc.text, refNow)
		due := mustDue(t, r)
		if !due.Equal(tc.want) {
			t.Errorf("%q: due = %v, want %v", tc.text, due, tc.want)
		}
		if r.Title != tc.title {
			t.Errorf("%q: title = %q, want %q", tc.text, r.Title, tc.title)
		}
	}
}

func TestParse_TimeOffsets(t *testing.T) {
	t.Parallel()

	p := newTestParser()

	// Pure offset: an instant, not a day+time.
	r := p.ParseAt("submit report in 2 hours", refNow)
	due := mustDue(t, r)
	want := refNow.Add(2 * time.Hour)
	if !due.Equal(want) {
		t.Errorf("pure offset: due = %v, want %v", due, want)
	}
	if r.Title != "submit report" {
		t.Errorf("title = %q, want %q", r.Title, "submit report")
	}

	// Offset composed with a day signal: only the hour/minute-of-day
	// transfers onto the resolved day.
	r = p.ParseAt("submit report tomorrow in 2 hours", refNow)
	due = mustDue(t, r)
	want = time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("composed offset: due = %v, want %v", due, want)
	}

	r = p.ParseAt("ping ops in 45 minutes", refNow)
	due = mustDue(t, r)
	want = refNow.Add(45 * time.Minute)
	if !due.Equal(want) {
		t.Errorf("minutes offset: due = %v, want %v", due, want)
	}
}

func TestParse_BareHourMeridiemDefault(t *testing.T) {
	t.Parallel()

	pm := newTestParser().ParseAt("meet sam at 7", refNow)
	due := mustDue(t, pm)
	want := time.Date(2026, time.March, 4, 19, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("prefer pm: due = %v, want %v", due, want)
	}

	// With AM preference, 7:00 today has already passed at 10:00 and rolls
	// to tomorrow.
	am := newTestParser(func(p *Prefs) { p.PreferPM = false }).ParseAt("meet sam at 7", refNow)
	due = mustDue(t, am)
	want = time.Date(2026, time.March, 5, 7, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("prefer am: due = %v, want %v", due, want)
	}
}

func TestParse_OutOfRangeHourAfterAt(t *testing.T) {
	t.Parallel()

	p := newTestParser()
	for _, text := range []string{"meet sam at 99", "meet sam at 0"} {
		r := p.ParseAt(text, refNow)
		if r.IsValid {
			t.Errorf("%q: expected invalid result, got title %q", text, r.Title)
		}
		if r.ErrorMessage == "" {
			t.Errorf("%q: expected an error message", text)
		}
	}

	// The same number without the "at" anchor is a quantity, not an hour.
	r := p.ParseAt("buy 99 balloons tomorrow", refNow)
	if !r.IsValid {
		t.Fatalf("invalid: %s", r.ErrorMessage)
	}
	if r.Title != "buy 99 balloons" {
		t.Errorf("title = %q, want %q", r.Title, "buy 99 balloons")
	}
}

func TestParse_SecondRelativePhraseLeavesTitle(t *testing.T) {
	t.Parallel()

	r := newTestParser().ParseAt("ship the build in 3 days in 2 days", refNow)
	due := mustDue(t, r)
	if due.Day() != 7 {
		t.Errorf("due day = %d, want 7 (first phrase wins)", due.Day())
	}
	if r.Title != "ship the build" {
		t.Errorf("title = %q, want %q", r.Title, "ship the build")
	}
}

func TestParse_TimeOfDayPresets(t *testing.T) {
	t.Parallel()

	p := newTestParser()

	r := p.ParseAt("review notes this evening", refNow)
	due := mustDue(t, r)
	want := time.Date(2026, time.March, 4, 18, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("evening: due = %v, want %v", due, want)
	}
	if r.Title != "review notes" {
		t.Errorf("title = %q, want %q", r.Title, "review notes")
	}

	// Descriptive use at the start of the sentence is not a time signal.
	r = p.ParseAt("morning run with lena", refNow)
	if !r.IsValid {
		t.Fatalf("invalid: %s", r.ErrorMessage)
	}
	if r.DueDate != nil {
		t.Errorf("descriptive preset produced a due date: %v", r.DueDate)
	}
	if r.Title != "morning run with lena" {
		t.Errorf("title = %q, want unchanged text", r.Title)
	}

	// Sentence-final preset after another scheduling token is temporal.
	r = p.ParseAt("water plants tomorrow evening", refNow)
	due = mustDue(t, r)
	want = time.Date(2026, time.March, 5, 18, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("final preset: due = %v, want %v", due, want)
	}
}

func TestParse_DayShortcuts(t *testing.T) {
	t.Parallel()

	on := newTestParser().ParseAt("pack bags tm", refNow)
	due := mustDue(t, on)
	if due.Day() != 5 {
		t.Errorf("shortcut tm: day = %d, want 5", due.Day())
	}

	off := newTestParser(func(p *Prefs) { p.Shortcuts = false }).ParseAt("pack bags tm", refNow)
	if off.DueDate != nil {
		t.Errorf("shortcuts disabled: expected no due date, got %v", off.DueDate)
	}
}

func TestParse_NonsensicalCombinations(t *testing.T) {
	t.Parallel()

	for _, text := range []string{
		"leave in 3 days on friday",
		"fly home tomorrow in 2 weeks",
		"book 5/12 in 2 months",
	} {
		r := newTestParser().ParseAt(text, refNow)
		if r.IsValid {
			t.Errorf("%q: expected invalid result", text)
		}
	}
}

func TestParse_InputBoundaries(t *testing.T) {
	t.Parallel()

	p := newTestParser()

	cases := []struct {
		name  string
		text  string
		valid bool
	}{
		{"empty", "", false},
		{"whitespace", "   \t ", false},
		{"two chars", "ab", false},
		{"three chars", "abc", true},
		{"exactly 200", strings.Repeat("a", 200), true},
		{"201 chars", strings.Repeat("a", 201), false},
	}
	for _, tc := range cases {
		r := p.ParseAt(tc.text, refNow)
		if r.IsValid != tc.valid {
			t.Errorf("%s: IsValid = %v, want %v (err %q)", tc.name, r.IsValid, tc.valid, r.ErrorMessage)
		}
		if !tc.valid && r.ErrorMessage == "" {
			t.Errorf("%s: expected an error message", tc.name)
		}
	}
}

func TestParse_CleanTextUnchanged(t *testing.T) {
	t.Parallel()

	p := newTestParser()
	for _, text := range []string{
		"prepare slides for design review",
		"email the landlord about heating",
	} {
		r := p.ParseAt(text, refNow)
		if !r.IsValid {
			t.Fatalf("%q: invalid: %s", text, r.ErrorMessage)
		}
		if r.Title != text {
			t.Errorf("%q: title = %q, want unchanged", text, r.Title)
		}
	}
}

func TestParse_TitleOnlyRecurrenceIsInvalid(t *testing.T) {
	t.Parallel()

	r := newTestParser().ParseAt("every 2 weeks", refNow)
	if r.IsValid {
		t.Error("expected invalid result for text with no title content")
	}
}

func TestParse_PhoneticRepair(t *testing.T) {
	t.Parallel()

	r := newTestParser().ParseAt("call dad on toosday", refNow)
	due := mustDue(t, r)
	if due.Weekday() != time.Tuesday {
		t.Errorf("weekday = %v, want Tuesday", due.Weekday())
	}
	if r.Title != "call dad" {
		t.Errorf("title = %q, want %q", r.Title, "call dad")
	}
	if len(r.Repairs) != 1 || r.Repairs[0].Corrected != "tuesday" {
		t.Errorf("repairs = %+v, want one toosday→tuesday repair", r.Repairs)
	}

	off := newTestParser(func(p *Prefs) { p.PhoneticRepair = false }).ParseAt("call dad on toosday", refNow)
	if off.DueDate != nil {
		t.Errorf("repair disabled: expected no due date, got %v", off.DueDate)
	}
}

func TestParse_DeterministicForFixedClock(t *testing.T) {
	t.Parallel()

	p := newTestParser()
	a := p.ParseAt("dentist friday at 2pm", refNow)
	b := p.ParseAt("dentist friday at 2pm", refNow)
	if a.Title != b.Title || !a.DueDate.Equal(*b.DueDate) {
		t.Errorf("parse not deterministic: %+v vs %+v", a, b)
	}
}
