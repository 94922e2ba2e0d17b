package aggregation

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// Aggregator turns raw survey responses into weekly summaries.
// It holds no mutable state and is safe for concurrent use.
type Aggregator struct {
	loc    *time.Location
	key    SubmissionKeyFunc
	logger *zap.Logger
}

type Option func(*Aggregator)

// WithLocation sets the locale week boundaries are computed in.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithSubmissionKey swaps how responses are grouped into submissions.
func WithSubmissionKey(fn SubmissionKeyFunc) Option {
	return func(a *Aggregator) {
		if fn != nil {
			a.key = fn
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an Aggregator. Defaults: DefaultLocation, ByTimestamp, no-op logger.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		loc:    DefaultLocation,
		key:    ByTimestamp,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Location returns the locale the aggregator buckets in.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// Aggregate groups responses by week, averages every rating question and derives
// week-over-week trends. The result is sorted by week start ascending; the first
// week carries an empty trends map. Empty input yields an empty slice.
func (a *Aggregator) Aggregate(responses []Response, questions []Question) []WeekSummary {
	rating := RatingQuestions(questions)
	if len(responses) == 0 || len(rating) == 0 {
		return []WeekSummary{}
	}

	skipped := 0
	buckets := groupByWeek(responses, a.loc, a.key, func(r Response) {
		skipped++
		a.logger.Debug("skipping response with unparseable timestamp",
			zap.String("question_id", r.QuestionID),
			zap.String("submitted_at", r.SubmittedAt))
	})

	weeks := make([]WeekSummary, 0, len(buckets))
	for _, b := range buckets {
		if b.count() == 0 {
			continue
		}
		weeks = append(weeks, summarize(b, rating))
	}

	sort.SliceStable(weeks, func(i, j int) bool {
		return weeks[i].Date.Before(weeks[j].Date)
	})

	applyTrends(weeks, rating)

	a.logger.Debug("aggregated weekly responses",
		zap.Int("responses", len(responses)),
		zap.Int("skipped", skipped),
		zap.Int("weeks", len(weeks)))

	return weeks
}

// GroupTextResponses collects free-text answers per text question, newest first,
// keeping at most limit entries per question. Every text question appears in the
// result, with an empty slice when it has no answers. A non-positive limit means
// no cap.
func (a *Aggregator) GroupTextResponses(responses []Response, questions []Question, limit int) map[string][]TextEntry {
	text := FilterByType(questions, QuestionTypeText)
	grouped := make(map[string][]TextEntry, len(text))
	for _, q := range text {
		grouped[q.ID] = []TextEntry{}
	}

	for _, r := range responses {
		entries, ok := grouped[r.QuestionID]
		if !ok {
			continue
		}
		t, ok := ParseTimestamp(r.SubmittedAt, a.loc)
		if !ok {
			a.logger.Debug("skipping text response with unparseable timestamp",
				zap.String("question_id", r.QuestionID),
				zap.String("submitted_at", r.SubmittedAt))
			continue
		}
		grouped[r.QuestionID] = append(entries, TextEntry{
			Text:      r.Value,
			CreatedAt: t,
			Label:     CompactWeekLabel(t),
		})
	}

	for id, entries := range grouped {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		})
		if limit > 0 && len(entries) > limit {
			grouped[id] = entries[:limit]
		}
	}
	return grouped
}

// RatingQuestions drops text questions. Questions without a type are treated as rating.
func RatingQuestions(questions []Question) []Question {
	out := make([]Question, 0, len(questions))
	for _, q := range questions {
		if q.Type != QuestionTypeText {
			out = append(out, q)
		}
	}
	return out
}

var defaultAggregator = New()

// Aggregate runs the weekly pipeline with default options.
func Aggregate(responses []Response, questions []Question) []WeekSummary {
	return defaultAggregator.Aggregate(responses, questions)
}

// GroupTextResponses groups free-text answers with default options.
func GroupTextResponses(responses []Response, questions []Question, limit int) map[string][]TextEntry {
	return defaultAggregator.GroupTextResponses(responses, questions, limit)
}
