// Package parse implements the natural-language scheduling parser that turns
// freeform task text ("mv groceries to next week friday at 3pm every 2
// weeks") into a title, an absolute due date, and an optional recurrence.
//
// The parser is a fixed pipeline of independent phrase detectors invoked in
// documented precedence order. Each detector claims the substring belonging
// to its own category; claimed spans are masked out before the next detector
// runs so sibling categories can still match the rest of the sentence. The
// resolver then combines the at-most-one match per category into a single
// timestamp, and the title extractor removes exactly the phrases that were
// detected.
//
// Parsing is a pure function of (text, Prefs, now): no I/O, no global state,
// deterministic for a fixed clock. Errors are returned as data on the
// [Result] — a malformed input never panics and never returns a Go error.
package parse

import "time"

// Prefs is the user configuration consulted during parsing. A Parser holds
// one immutable copy; changing preferences means constructing a new Parser.
type Prefs struct {
	// DayFirst interprets numeric dates as day/month instead of month/day.
	DayFirst bool

	// PreferPM resolves bare hours without an AM/PM marker to the
	// afternoon ("at 3" → 15:00) when true.
	PreferPM bool

	// Shortcuts enables the two-letter day shortcuts "td" and "tm".
	Shortcuts bool

	// TimePeriods enables the named time-of-day preset words.
	TimePeriods bool

	// Presets maps the preset words to clock times.
	Presets Presets

	// PhoneticRepair enables the pre-detection pass that fixes misheard
	// scheduling tokens in dictated text.
	PhoneticRepair bool
}

// DefaultPrefs returns the preference set used when the user has not
// configured anything: month/day dates, PM default, shortcuts and time
// periods on, built-in preset times, phonetic repair on.
func DefaultPrefs() Prefs {
	return Prefs{
		PreferPM:       true,
		Shortcuts:      true,
		TimePeriods:    true,
		Presets:        DefaultPresets(),
		PhoneticRepair: true,
	}
}

// Result is the structured outcome of one parse call. When IsValid is
// false, ErrorMessage describes the problem and every other field must be
// ignored by the caller.
type Result struct {
	Title               string
	DueDate             *time.Time
	IsRecurring         bool
	RecurrenceInterval  int
	RecurrenceFrequency Frequency
	RecurrenceEndDate   *time.Time
	IsValid             bool
	ErrorMessage        string

	// Repairs lists phonetic token substitutions applied before detection.
	Repairs []Repair
}

// Parser converts freeform task text into a [Result]. Safe for concurrent
// use; it is read-only after construction.
type Parser struct {
	prefs Prefs
	now   func() time.Time
}

// New constructs a Parser with the given preferences.
func New(prefs Prefs) *Parser {
	return &Parser{prefs: prefs, now: time.Now}
}

// Parse parses text against the current wall clock.
func (p *Parser) Parse(text string) Result {
	return p.ParseAt(text, p.now())
}

// ParseAt parses text with an explicit reference instant. All relative
// phrases ("tomorrow", "in 2 hours", weekdays) resolve against now.
func (p *Parser) ParseAt(text string, now time.Time) Result {
	if err := validateInput(text); err != nil {
		return invalid(err)
	}

	canonical := collapseSpaces(text)

	var repairs []Repair
	if p.prefs.PhoneticRepair {
		canonical, repairs = repairTokens(canonical)
	}
	lower := lowerASCII(canonical)

	sig, secondRel, err := p.detect(lower)
	if err != nil {
		return invalid(err)
	}
	if err := validateCombos(sig, secondRel); err != nil {
		return invalid(err)
	}

	var rec *Recurrence
	if sig.recur != nil {
		r, err := buildRecurrence(*sig.recur)
		if err != nil {
			return invalid(err)
		}
		rec = &r
	}

	title := extractTitle(canonical, lower, sig, secondRel)
	if err := validateResult(title, rec); err != nil {
		return invalid(err)
	}

	res := Result{
		Title:   title,
		IsValid: true,
		Repairs: repairs,
	}
	if due, ok := resolveDueDate(sig, now); ok {
		res.DueDate = &due
	}
	if rec != nil {
		res.IsRecurring = true
		res.RecurrenceInterval = rec.Interval
		res.RecurrenceFrequency = rec.Frequency
	}
	return res
}

// detect runs every phrase detector in precedence order over lower,
// masking each claimed span before the next detector runs. secondRel
// reports a second relative-date phrase left in the text after the first
// was claimed; it only feeds combination validation.
func (p *Parser) detect(lower string) (*signals, *Match, error) {
	sig := &signals{}
	masked := []byte(lower)

	claim := func(m Match) *Match {
		for i := m.Start; i < m.End && i < len(masked); i++ {
			masked[i] = ' '
		}
		c := m
		return &c
	}

	if m, ok := detectRecurrence(string(masked)); ok {
		sig.recur = claim(m)
	}
	if m, ok := detectWeekday(string(masked)); ok {
		sig.weekday = claim(m)
	}
	if m, ok, err := detectNumericDate(string(masked), p.prefs.DayFirst); err != nil {
		return nil, nil, err
	} else if ok {
		sig.absolute = claim(m)
	}
	if m, ok, err := detectMonthDay(string(masked)); err != nil {
		return nil, nil, err
	} else if ok {
		sig.monthDay = claim(m)
	}
	var secondRel *Match
	if m, ok := detectRelativeDate(string(masked), p.prefs.Shortcuts); ok {
		sig.relative = claim(m)
		// A second relative phrase ("tomorrow in 2 weeks") is nonsense;
		// keep it only for combination validation.
		if m2, ok2 := detectRelativeDate(string(masked), p.prefs.Shortcuts); ok2 {
			secondRel = claim(m2)
		}
	}
	if m, ok := detectTimeOffset(string(masked)); ok {
		sig.offset = claim(m)
	}
	if m, ok, err := detectClock(string(masked), p.prefs.PreferPM); err != nil {
		return nil, nil, err
	} else if ok {
		sig.clock = claim(m)
	}
	if p.prefs.TimePeriods {
		hasOthers := sig.count() > 0
		if m, ok := detectPreset(string(masked), p.prefs.Presets, hasOthers); ok {
			sig.preset = claim(m)
		}
	}
	return sig, secondRel, nil
}

func invalid(err error) Result {
	return Result{IsValid: false, ErrorMessage: err.Error()}
}

// collapseSpaces normalises runs of whitespace to single spaces and trims
// the ends, keeping detector spans aligned with the text titles are built
// from.
func collapseSpaces(s string) string {
	b := make([]byte, 0, len(s))
	space := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			space = len(b) > 0
			continue
		}
		if space {
			b = append(b, ' ')
			space = false
		}
		b = append(b, c)
	}
	return string(b)
}

// lowerASCII lowercases ASCII letters only, preserving byte offsets so that
// match spans index identically into the original text.
func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
