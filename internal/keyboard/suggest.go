package keyboard

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/voxkey/voxkey/internal/observe"
	"github.com/voxkey/voxkey/internal/parse"
)

// defaultSuggestCacheSize covers a typing session comfortably; entries are
// small (one parse result each).
const defaultSuggestCacheSize = 256

// Suggester produces scheduling previews while the user edits pending task
// text. Parsing runs on every keystroke, so results are memoized; the cache
// key includes the calendar day because "tomorrow" resolves differently
// after midnight.
type Suggester struct {
	parser  *parse.Parser
	cache   *lru.Cache[suggestKey, parse.Result]
	metrics *observe.Metrics
}

type suggestKey struct {
	text string
	day  string
}

// SuggesterOption configures a [Suggester].
type SuggesterOption func(*Suggester)

// WithSuggestMetrics overrides the default metrics instance.
func WithSuggestMetrics(m *observe.Metrics) SuggesterOption {
	return func(s *Suggester) { s.metrics = m }
}

// NewSuggester wraps parser with an LRU memo of the given size (0 means the
// default).
func NewSuggester(parser *parse.Parser, size int, opts ...SuggesterOption) (*Suggester, error) {
	if size <= 0 {
		size = defaultSuggestCacheSize
	}
	cache, err := lru.New[suggestKey, parse.Result](size)
	if err != nil {
		return nil, err
	}
	s := &Suggester{parser: parser, cache: cache}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s, nil
}

// Suggest parses text for a preview chip, serving repeated queries from the
// cache.
func (s *Suggester) Suggest(text string) parse.Result {
	return s.SuggestAt(text, time.Now())
}

// SuggestAt is Suggest with an injected clock. Cache hits are not counted as
// parser invocations.
func (s *Suggester) SuggestAt(text string, now time.Time) parse.Result {
	key := suggestKey{text: text, day: now.Format(time.DateOnly)}
	if res, ok := s.cache.Get(key); ok {
		return res
	}
	start := time.Now()
	res := s.parser.ParseAt(text, now)
	s.metrics.RecordParse(context.Background(), res.IsValid, time.Since(start).Seconds())
	s.cache.Add(key, res)
	return res
}

// Len reports how many parse results are currently memoized.
func (s *Suggester) Len() int { return s.cache.Len() }
