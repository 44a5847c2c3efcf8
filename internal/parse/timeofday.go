package parse

import (
	"regexp"
	"strings"
)

var rePreset = regexp.MustCompile(`\b(morning|noon|afternoon|evening|night)\b`)

// ClockTime is an hour/minute pair used for the user-configurable
// time-of-day presets.
type ClockTime struct {
	Hour   int `yaml:"hour"`
	Minute int `yaml:"minute"`
}

// Presets maps the five time-of-day words to concrete clock times.
type Presets struct {
	Morning   ClockTime `yaml:"morning"`
	Noon      ClockTime `yaml:"noon"`
	Afternoon ClockTime `yaml:"afternoon"`
	Evening   ClockTime `yaml:"evening"`
	Night     ClockTime `yaml:"night"`
}

// DefaultPresets returns the built-in preset times: 8:00, 12:00, 15:00,
// 18:00 and 21:00.
func DefaultPresets() Presets {
	return Presets{
		Morning:   ClockTime{Hour: 8},
		Noon:      ClockTime{Hour: 12},
		Afternoon: ClockTime{Hour: 15},
		Evening:   ClockTime{Hour: 18},
		Night:     ClockTime{Hour: 21},
	}
}

func (p Presets) lookup(word string) (ClockTime, bool) {
	switch word {
	case "morning":
		return p.Morning, true
	case "noon":
		return p.Noon, true
	case "afternoon":
		return p.Afternoon, true
	case "evening":
		return p.Evening, true
	case "night":
		return p.Night, true
	}
	return ClockTime{}, false
}

// temporalAnchors are words that, when immediately preceding a preset word,
// mark it as a time reference rather than a descriptive noun.
var temporalAnchors = map[string]bool{
	"at": true, "this": true, "next": true, "tomorrow": true,
	"every": true, "on": true, "til": true, "until": true, "by": true,
}

// detectPreset finds a time-of-day preset word used in temporal context.
// A preset word counts only when it is adjacent to a temporal preposition
// ("at", "in the", "this", ...) or sits at the end of the sentence while
// other scheduling signals are present; a purely descriptive use such as
// "morning run" at the start of the text is left alone.
func detectPreset(text string, presets Presets, hasOtherSignals bool) (Match, bool) {
	for _, loc := range rePreset.FindAllStringIndex(text, -1) {
		word := text[loc[0]:loc[1]]
		if !temporalContext(text, loc[0], loc[1], hasOtherSignals) {
			continue
		}
		ct, ok := presets.lookup(word)
		if !ok {
			continue
		}
		start := widenOverAnchor(text, loc[0])
		return Match{
			Text:     text[start:loc[1]],
			Start:    start,
			End:      loc[1],
			Category: CategoryTimeOfDay,
			Hour:     ct.Hour,
			Minute:   ct.Minute,
		}, true
	}
	return Match{}, false
}

// widenOverAnchor extends a preset match leftwards over its anchor phrase
// ("this evening", "at noon", "in the morning") so title extraction removes
// the whole temporal phrase.
func widenOverAnchor(text string, start int) int {
	prev := prevWord(text, start)
	switch prev {
	case "this", "next", "at", "on":
		return wordStart(text, start)
	case "the":
		theStart := wordStart(text, start)
		if prevWord(text, theStart) == "in" {
			return wordStart(text, theStart)
		}
		return theStart
	}
	return start
}

// wordStart walks left from pos over spaces and then over the preceding
// word, returning that word's start offset.
func wordStart(text string, pos int) int {
	end := pos
	for end > 0 && text[end-1] == ' ' {
		end--
	}
	start := end
	for start > 0 && text[start-1] != ' ' {
		start--
	}
	return start
}

// temporalContext applies the adjacency heuristic described on detectPreset.
func temporalContext(text string, start, end int, hasOtherSignals bool) bool {
	prev := prevWord(text, start)
	if temporalAnchors[prev] {
		return true
	}
	// "in the morning" — check the word before "the" as well.
	if prev == "the" {
		idx := strings.LastIndex(text[:start], prev)
		if idx >= 0 && prevWord(text, idx) == "in" {
			return true
		}
	}
	// Sentence-final preset following other scheduling tokens.
	if hasOtherSignals && strings.TrimRight(text[end:], " \t.,!?") == "" {
		return true
	}
	return false
}
