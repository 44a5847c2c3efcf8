package parse

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Dictated text frequently arrives with misheard scheduling tokens
// ("toosday", "febuary", "tomorow"). Before detection, repairTokens replaces
// near-miss tokens with their canonical form using Double Metaphone candidate
// filtering ranked by Jaro-Winkler similarity. Only tokens adjacent to a
// temporal anchor word are considered, so ordinary vocabulary is never
// rewritten.

const (
	// phoneticThreshold is the minimum Jaro-Winkler score for a token that
	// shares a metaphone code with a scheduling word.
	phoneticThreshold = 0.78

	// fuzzyThreshold is the minimum Jaro-Winkler score when no metaphone
	// code overlaps (pure spelling similarity).
	fuzzyThreshold = 0.92
)

// schedulingVocab is the canonical token list eligible as repair targets.
var schedulingVocab = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"january", "february", "march", "april", "june", "july", "august",
	"september", "october", "november", "december",
	"today", "tomorrow",
	"morning", "noon", "afternoon", "evening", "night",
	"days", "weeks", "months", "hours", "minutes",
	"day", "week", "month", "hour", "minute",
}

// repairAnchors are the words whose neighbours are eligible for repair.
var repairAnchors = map[string]bool{
	"on": true, "next": true, "this": true, "every": true,
	"at": true, "in": true, "until": true, "by": true,
}

// Repair records one token substitution made before detection.
type Repair struct {
	Original  string
	Corrected string
	Score     float64
}

// repairTokens returns text with misheard scheduling tokens replaced, plus
// the list of substitutions made. Comparison is case-insensitive; the
// replacement is always the lowercase canonical word.
func repairTokens(text string) (string, []Repair) {
	words := strings.Fields(text)
	var repairs []Repair

	vocab := make(map[string]bool, len(schedulingVocab))
	for _, v := range schedulingVocab {
		vocab[v] = true
	}

	for i, w := range words {
		core := strings.Trim(w, ".,!?;:")
		token := strings.ToLower(core)
		if len(token) < 3 || vocab[token] || !alphabetic(token) {
			continue
		}
		if !anchored(words, i) {
			continue
		}
		if corrected, score, ok := bestCandidate(token); ok {
			words[i] = strings.Replace(w, core, corrected, 1)
			repairs = append(repairs, Repair{Original: token, Corrected: corrected, Score: score})
		}
	}

	if len(repairs) == 0 {
		return text, nil
	}
	return strings.Join(words, " "), repairs
}

// anchored reports whether the word at index i sits next to a temporal
// anchor word.
func anchored(words []string, i int) bool {
	if i > 0 && repairAnchors[strings.ToLower(strings.Trim(words[i-1], ".,!?;:"))] {
		return true
	}
	if i+1 < len(words) && repairAnchors[strings.ToLower(strings.Trim(words[i+1], ".,!?;:"))] {
		return true
	}
	return false
}

// bestCandidate finds the scheduling word most similar to token. Candidates
// sharing a Double Metaphone code are ranked first at the lower phonetic
// threshold; pure Jaro-Winkler similarity is only a fallback, at the
// stricter fuzzy threshold, when no phonetic candidate clears.
func bestCandidate(token string) (string, float64, bool) {
	tp, ts := matchr.DoubleMetaphone(token)

	var best, fuzzyBest string
	var bestScore, fuzzyScore float64
	for _, cand := range schedulingVocab {
		cp, cs := matchr.DoubleMetaphone(cand)
		score := matchr.JaroWinkler(token, cand, false)

		if codesOverlap(tp, ts, cp, cs) {
			if score >= phoneticThreshold && score > bestScore {
				best, bestScore = cand, score
			}
		} else if score >= fuzzyThreshold && score > fuzzyScore {
			fuzzyBest, fuzzyScore = cand, score
		}
	}
	if best != "" {
		return best, bestScore, true
	}
	if fuzzyBest != "" {
		return fuzzyBest, fuzzyScore, true
	}
	return token, 0, false
}

func codesOverlap(p1, s1, p2, s2 string) bool {
	for _, a := range [...]string{p1, s1} {
		if a == "" {
			continue
		}
		if a == p2 || (s2 != "" && a == s2) {
			return true
		}
	}
	return false
}

func alphabetic(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}
