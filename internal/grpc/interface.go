package grpc

import (
	"context"
	"time"

	"github.com/godilite/pulse-server/internal/aggregation"
	"github.com/godilite/pulse-server/internal/service"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type ResultsService interface {
	GetWeeklyTrends(ctx context.Context) ([]aggregation.WeekSummary, error)
	GetTextResponses(ctx context.Context, limit int) (service.TextResponses, error)
	GetResults(ctx context.Context) (service.Results, error)
}
