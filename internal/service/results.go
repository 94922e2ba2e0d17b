package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/godilite/pulse-server/internal/aggregation"
	"github.com/godilite/pulse-server/internal/repository/models"
)

const (
	dbTimeout = 3 * time.Second

	DefaultTextLimit = 50
	MaxTextLimit     = 500

	// maxCalendarSpan bounds GetWeekCalendar to roughly two years of buckets.
	maxCalendarSpan = 2 * 366 * 24 * time.Hour
)

var (
	ErrStorageFailure = errors.New("storage failure")
	ErrInvalidLimit   = errors.New("invalid text response limit")
	ErrInvalidRange   = errors.New("invalid week range")
)

// ResultsService turns stored survey answers into the weekly trend view.
type ResultsService struct {
	storage    SurveyRepository
	aggregator *aggregation.Aggregator
	logger     *zap.Logger
	textLimit  int
}

type Option func(*ResultsService)

// WithAggregator overrides the aggregation pipeline (timezone, submission key).
func WithAggregator(a *aggregation.Aggregator) Option {
	return func(s *ResultsService) {
		if a != nil {
			s.aggregator = a
		}
	}
}

// WithTextLimit sets the per-question cap used when callers pass no limit.
func WithTextLimit(limit int) Option {
	return func(s *ResultsService) {
		if limit > 0 && limit <= MaxTextLimit {
			s.textLimit = limit
		}
	}
}

// NewResultsService creates a new ResultsService instance.
func NewResultsService(storage SurveyRepository, logger *zap.Logger, opts ...Option) *ResultsService {
	if storage == nil {
		panic("storage must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &ResultsService{
		storage:   storage,
		logger:    logger.Named("results-service"),
		textLimit: DefaultTextLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.aggregator == nil {
		s.aggregator = aggregation.New(aggregation.WithLogger(s.logger))
	}
	return s
}

// GetWeeklyTrends returns one summary per week with answers, oldest first.
func (s *ResultsService) GetWeeklyTrends(ctx context.Context) ([]aggregation.WeekSummary, error) {
	questions, err := s.activeQuestions(ctx)
	if err != nil {
		return nil, err
	}

	responses, err := s.ratingResponses(ctx, questions)
	if err != nil {
		return nil, err
	}

	weeks := s.aggregator.Aggregate(responses, questions)
	s.logger.Info("aggregated weekly trends",
		zap.Int("questions", len(questions)),
		zap.Int("responses", len(responses)),
		zap.Int("weeks", len(weeks)))

	return weeks, nil
}

// GetTextResponses returns up to limit newest answers per text question. A zero
// limit uses the configured default.
func (s *ResultsService) GetTextResponses(ctx context.Context, limit int) (TextResponses, error) {
	limit, err := s.resolveLimit(limit)
	if err != nil {
		return nil, err
	}

	questions, err := s.activeQuestions(ctx)
	if err != nil {
		return nil, err
	}

	return s.textResponses(ctx, questions, limit)
}

// GetResults loads questions once, then fetches rating history and text answers
// concurrently.
func (s *ResultsService) GetResults(ctx context.Context) (Results, error) {
	questions, err := s.activeQuestions(ctx)
	if err != nil {
		return Results{}, err
	}

	var (
		weeks []aggregation.WeekSummary
		text  TextResponses
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		responses, err := s.ratingResponses(gctx, questions)
		if err != nil {
			return err
		}
		weeks = s.aggregator.Aggregate(responses, questions)
		return nil
	})
	g.Go(func() error {
		var err error
		text, err = s.textResponses(gctx, questions, s.textLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return Results{}, err
	}

	s.logger.Info("assembled results",
		zap.Int("questions", len(questions)),
		zap.Int("weeks", len(weeks)),
		zap.Int("text_questions", len(text)))

	return Results{
		Questions:     questions,
		Weeks:         weeks,
		TextResponses: text,
	}, nil
}

// GetWeekCalendar lists the week buckets between from and to, inclusive, in the
// service's timezone.
func (s *ResultsService) GetWeekCalendar(from, to time.Time) ([]aggregation.CalendarWeek, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: from and to are required", ErrInvalidRange)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: to must not be before from", ErrInvalidRange)
	}
	if to.Sub(from) > maxCalendarSpan {
		return nil, fmt.Errorf("%w: range exceeds two years", ErrInvalidRange)
	}

	loc := s.aggregator.Location()
	return aggregation.WeeksInRange(from.In(loc), to.In(loc)), nil
}

func (s *ResultsService) resolveLimit(limit int) (int, error) {
	if limit == 0 {
		return s.textLimit, nil
	}
	if limit < 0 || limit > MaxTextLimit {
		return 0, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidLimit, limit, MaxTextLimit)
	}
	return limit, nil
}

func (s *ResultsService) activeQuestions(ctx context.Context) ([]aggregation.Question, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.storage.GetActiveQuestions(dbCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return toQuestions(rows), nil
}

func (s *ResultsService) ratingResponses(ctx context.Context, questions []aggregation.Question) ([]aggregation.Response, error) {
	ids := aggregation.QuestionIDs(aggregation.RatingQuestions(questions))
	if len(ids) == 0 {
		return nil, nil
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.storage.GetResponses(dbCtx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return toResponses(rows), nil
}

func (s *ResultsService) textResponses(ctx context.Context, questions []aggregation.Question, limit int) (TextResponses, error) {
	ids := aggregation.QuestionIDs(aggregation.FilterByType(questions, aggregation.QuestionTypeText))
	if len(ids) == 0 {
		return TextResponses{}, nil
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.storage.GetRecentResponses(dbCtx, ids, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return s.aggregator.GroupTextResponses(toResponses(rows), questions, limit), nil
}

func toQuestions(rows []models.Question) []aggregation.Question {
	out := make([]aggregation.Question, len(rows))
	for i, q := range rows {
		out[i] = aggregation.Question{
			ID:         q.ID,
			Text:       q.QuestionText,
			Type:       aggregation.QuestionType(q.QuestionType),
			OrderIndex: q.OrderIndex,
			Active:     q.IsActive,
		}
	}
	return out
}

// toResponses drops rows without an answer value.
func toResponses(rows []models.Response) []aggregation.Response {
	out := make([]aggregation.Response, 0, len(rows))
	for _, r := range rows {
		if !r.ResponseValue.Valid {
			continue
		}
		out = append(out, aggregation.Response{
			QuestionID:  r.QuestionID,
			Value:       r.ResponseValue.String,
			SubmittedAt: r.SubmittedAt,
			SessionID:   r.SessionID.String,
		})
	}
	return out
}
