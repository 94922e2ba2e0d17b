package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/godilite/pulse-server/internal/aggregation"
	"github.com/godilite/pulse-server/internal/service"
	"github.com/godilite/pulse-server/pkg/cache"
)

const (
	defaultCacheDuration = 10 * time.Minute
	defaultGRPCTimeout   = 10 * time.Second
)

type CacheKeyType string

const (
	cacheKeyWeeklyTrends  CacheKeyType = "grpc:weekly_trends"
	cacheKeyTextResponses CacheKeyType = "grpc:text_responses"
	cacheKeyResults       CacheKeyType = "grpc:results"
)

type GRPCHandlers struct {
	results ResultsService
	loader  *cache.ReadThrough
	logger  *zap.Logger
}

var _ PulseResultsServer = (*GRPCHandlers)(nil)

// NewGRPCHandlers initializes the gRPC handlers.
func NewGRPCHandlers(results ResultsService, c Cacher, logger *zap.Logger, ttl time.Duration) *GRPCHandlers {
	if results == nil {
		panic("nil ResultsService provided to NewGRPCHandlers")
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	logger = logger.Named("grpc-handler")
	return &GRPCHandlers{
		results: results,
		loader:  cache.NewReadThrough(c, cache.WithTTL(ttl), cache.WithLogger(logger)),
		logger:  logger,
	}
}

func textResponsesKey(limit int) string {
	return fmt.Sprintf("%s:%d", cacheKeyTextResponses, limit)
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, service.ErrInvalidLimit):
		s.logger.Info("invalid argument", zap.String("op", op), zap.Error(err))
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("storage timeout", zap.String("op", op), zap.Error(err))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	case errors.Is(err, service.ErrStorageFailure):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func (s *GRPCHandlers) GetWeeklyTrends(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	weeks, err := cache.Load(ctx, s.loader, string(cacheKeyWeeklyTrends), func(fetchCtx context.Context) ([]aggregation.WeekSummary, error) {
		return s.results.GetWeeklyTrends(fetchCtx)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetWeeklyTrends", err)
	}

	return s.toStruct("GetWeeklyTrends", map[string]any{"weeks": weeks})
}

// GetTextResponses takes an optional per-question limit; zero or absent uses the server default.
func (s *GRPCHandlers) GetTextResponses(ctx context.Context, req *wrapperspb.Int32Value) (*structpb.Struct, error) {
	limit := int(req.GetValue())
	if limit < 0 || limit > service.MaxTextLimit {
		return nil, status.Errorf(codes.InvalidArgument, "limit must be between 1 and %d", service.MaxTextLimit)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	text, err := cache.Load(ctx, s.loader, textResponsesKey(limit), func(fetchCtx context.Context) (service.TextResponses, error) {
		return s.results.GetTextResponses(fetchCtx, limit)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetTextResponses", err)
	}

	return s.toStruct("GetTextResponses", map[string]any{"responses": text})
}

func (s *GRPCHandlers) GetResults(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	results, err := cache.Load(ctx, s.loader, string(cacheKeyResults), func(fetchCtx context.Context) (service.Results, error) {
		return s.results.GetResults(fetchCtx)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetResults", err)
	}

	return s.toStruct("GetResults", results)
}

func (s *GRPCHandlers) toStruct(op string, v any) (*structpb.Struct, error) {
	st, err := toStruct(v)
	if err != nil {
		s.logger.Error("failed to encode response", zap.String("op", op), zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return st, nil
}

// toStruct converts v to a protobuf Struct through its JSON form, so field
// names match the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return structpb.NewStruct(m)
}
