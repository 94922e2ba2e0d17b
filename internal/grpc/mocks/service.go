package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/godilite/pulse-server/internal/aggregation"
	"github.com/godilite/pulse-server/internal/service"
)

// MockResultsService is a mock implementation of the results service
// for testing the gRPC and HTTP handler layers.
type MockResultsService struct {
	GetWeeklyTrendsFunc  func(ctx context.Context) ([]aggregation.WeekSummary, error)
	GetTextResponsesFunc func(ctx context.Context, limit int) (service.TextResponses, error)
	GetResultsFunc       func(ctx context.Context) (service.Results, error)
	GetWeekCalendarFunc  func(from, to time.Time) ([]aggregation.CalendarWeek, error)
}

// GetWeeklyTrends implements the results service interface
func (m *MockResultsService) GetWeeklyTrends(ctx context.Context) ([]aggregation.WeekSummary, error) {
	if m.GetWeeklyTrendsFunc != nil {
		return m.GetWeeklyTrendsFunc(ctx)
	}
	return nil, errors.New("GetWeeklyTrendsFunc not implemented")
}

// GetTextResponses implements the results service interface
func (m *MockResultsService) GetTextResponses(ctx context.Context, limit int) (service.TextResponses, error) {
	if m.GetTextResponsesFunc != nil {
		return m.GetTextResponsesFunc(ctx, limit)
	}
	return nil, errors.New("GetTextResponsesFunc not implemented")
}

// GetResults implements the results service interface
func (m *MockResultsService) GetResults(ctx context.Context) (service.Results, error) {
	if m.GetResultsFunc != nil {
		return m.GetResultsFunc(ctx)
	}
	return service.Results{}, errors.New("GetResultsFunc not implemented")
}

// GetWeekCalendar implements the results service interface
func (m *MockResultsService) GetWeekCalendar(from, to time.Time) ([]aggregation.CalendarWeek, error) {
	if m.GetWeekCalendarFunc != nil {
		return m.GetWeekCalendarFunc(from, to)
	}
	return nil, errors.New("GetWeekCalendarFunc not implemented")
}
