package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/godilite/pulse-server/internal/aggregation"
	"github.com/godilite/pulse-server/internal/grpc/mocks"
	"github.com/godilite/pulse-server/internal/service"
)

func ptr(v float64) *float64 { return &v }

func sampleWeeks() []aggregation.WeekSummary {
	kst := aggregation.DefaultLocation
	return []aggregation.WeekSummary{
		{
			Week:     "2024년 3월 2주차",
			Date:     time.Date(2024, 3, 3, 0, 0, 0, 0, kst),
			Count:    2,
			Averages: map[string]*float64{"q-mood": ptr(4.5), "q-load": nil},
			Trends:   map[string]aggregation.TrendEntry{},
		},
		{
			Week:     "2024년 3월 3주차",
			Date:     time.Date(2024, 3, 10, 0, 0, 0, 0, kst),
			Count:    1,
			Averages: map[string]*float64{"q-mood": ptr(5), "q-load": nil},
			Trends: map[string]aggregation.TrendEntry{
				"q-mood": {Change: "0.50", ChangePercentage: "+11.1%", Direction: aggregation.DirectionUp},
			},
		},
	}
}

// TestNewGRPCHandlers tests the constructor
func TestNewGRPCHandlers(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		mockResults := &mocks.MockResultsService{}
		mockCache := &mocks.MockCacher{}

		handlers := NewGRPCHandlers(mockResults, mockCache, zap.NewNop(), 5*time.Minute)

		assert.NotNil(t, handlers)
		assert.Equal(t, mockResults, handlers.results)
		assert.Equal(t, 5*time.Minute, handlers.loader.TTL())
	})

	t.Run("nil results service panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewGRPCHandlers(nil, &mocks.MockCacher{}, zap.NewNop(), time.Minute)
		})
	})

	t.Run("non-positive TTL uses default", func(t *testing.T) {
		for _, ttl := range []time.Duration{0, -time.Minute} {
			handlers := NewGRPCHandlers(&mocks.MockResultsService{}, &mocks.MockCacher{}, zap.NewNop(), ttl)
			assert.Equal(t, defaultCacheDuration, handlers.loader.TTL())
		}
	})

	t.Run("nil cache still serves", func(t *testing.T) {
		mockResults := &mocks.MockResultsService{
			GetWeeklyTrendsFunc: func(ctx context.Context) ([]aggregation.WeekSummary, error) {
				return sampleWeeks(), nil
			},
		}
		handlers := NewGRPCHandlers(mockResults, nil, zap.NewNop(), time.Minute)

		resp, err := handlers.GetWeeklyTrends(context.Background(), &emptypb.Empty{})

		require.NoError(t, err)
		assert.Len(t, resp.Fields["weeks"].GetListValue().GetValues(), 2)
	})
}

func TestTextResponsesKey(t *testing.T) {
	assert.Equal(t, "grpc:text_responses:0", textResponsesKey(0))
	assert.Equal(t, "grpc:text_responses:25", textResponsesKey(25))
}

// TestHandleError tests error handling and status code mapping
func TestHandleError(t *testing.T) {
	handlers := &GRPCHandlers{logger: zap.NewNop()}

	t.Run("context canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := handlers.handleError(ctx, "test_operation", errors.New("some error"))

		assert.Equal(t, codes.Canceled, status.Code(err))
		assert.Contains(t, err.Error(), "request canceled")
	})

	t.Run("context deadline exceeded", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		time.Sleep(time.Millisecond)

		err := handlers.handleError(ctx, "test_operation", errors.New("some error"))

		assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
		assert.Contains(t, err.Error(), "request timed out")
	})

	t.Run("invalid limit", func(t *testing.T) {
		err := handlers.handleError(context.Background(), "test_operation",
			fmt.Errorf("%w: 900", service.ErrInvalidLimit))

		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("storage timeout", func(t *testing.T) {
		err := handlers.handleError(context.Background(), "test_operation",
			fmt.Errorf("%w: %w", service.ErrStorageFailure, context.DeadlineExceeded))

		assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
	})

	t.Run("wrapped storage failure", func(t *testing.T) {
		err := handlers.handleError(context.Background(), "test_operation",
			fmt.Errorf("%w: connection reset", service.ErrStorageFailure))

		assert.Equal(t, codes.Internal, status.Code(err))
		assert.Contains(t, err.Error(), "database error")
		assert.NotContains(t, err.Error(), "connection reset")
	})

	t.Run("unknown error", func(t *testing.T) {
		err := handlers.handleError(context.Background(), "test_operation", errors.New("database connection lost"))

		assert.Equal(t, codes.Internal, status.Code(err))
		assert.Contains(t, err.Error(), "test_operation failed")
		assert.Contains(t, err.Error(), "database connection lost")
	})
}

func TestToStruct(t *testing.T) {
	t.Run("week summaries keep json field names", func(t *testing.T) {
		st, err := toStruct(map[string]any{"weeks": sampleWeeks()})
		require.NoError(t, err)

		weeks := st.Fields["weeks"].GetListValue().GetValues()
		require.Len(t, weeks, 2)

		second := weeks[1].GetStructValue().GetFields()
		assert.Equal(t, "2024년 3월 3주차", second["week"].GetStringValue())
		assert.Equal(t, float64(1), second["count"].GetNumberValue())
		assert.Equal(t, 5.0, second["averages"].GetStructValue().GetFields()["q-mood"].GetNumberValue())

		trend := second["trends"].GetStructValue().GetFields()["q-mood"].GetStructValue().GetFields()
		assert.Equal(t, "0.50", trend["change"].GetStringValue())
		assert.Equal(t, "+11.1%", trend["changePercentage"].GetStringValue())
		assert.Equal(t, "up", trend["direction"].GetStringValue())
	})

	t.Run("nil averages become null", func(t *testing.T) {
		st, err := toStruct(map[string]any{"weeks": sampleWeeks()})
		require.NoError(t, err)

		first := st.Fields["weeks"].GetListValue().GetValues()[0].GetStructValue().GetFields()
		load := first["averages"].GetStructValue().GetFields()["q-load"]
		require.NotNil(t, load)
		_, isNull := load.GetKind().(*structpb.Value_NullValue)
		assert.True(t, isNull)
	})

	t.Run("non-object payload", func(t *testing.T) {
		_, err := toStruct([]int{1, 2})
		assert.Error(t, err)
	})
}

func TestGetWeeklyTrends(t *testing.T) {
	t.Run("miss fetches and populates cache", func(t *testing.T) {
		var (
			mu     sync.Mutex
			stored []string
		)
		mockResults := &mocks.MockResultsService{
			GetWeeklyTrendsFunc: func(ctx context.Context) ([]aggregation.WeekSummary, error) {
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline)
				return sampleWeeks(), nil
			},
		}
		mockCache := &mocks.MockCacher{
			SetFunc: func(ctx context.Context, key string, value any, expiration time.Duration) error {
				mu.Lock()
				defer mu.Unlock()
				stored = append(stored, key)
				return nil
			},
		}
		handlers := NewGRPCHandlers(mockResults, mockCache, zap.NewNop(), time.Minute)

		resp, err := handlers.GetWeeklyTrends(context.Background(), &emptypb.Empty{})

		require.NoError(t, err)
		assert.Len(t, resp.Fields["weeks"].GetListValue().GetValues(), 2)
		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(stored) == 1 && stored[0] == string(cacheKeyWeeklyTrends)
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("cache hit is served from cache", func(t *testing.T) {
		mockResults := &mocks.MockResultsService{
			GetWeeklyTrendsFunc: func(ctx context.Context) ([]aggregation.WeekSummary, error) {
				return nil, errors.New("refresh only")
			},
		}
		mockCache := &mocks.MockCacher{
			GetFunc: func(ctx context.Context, key string, dest any) error {
				raw, _ := json.Marshal(sampleWeeks()[:1])
				return json.Unmarshal(raw, dest)
			},
		}
		handlers := NewGRPCHandlers(mockResults, mockCache, zap.NewNop(), time.Minute)

		resp, err := handlers.GetWeeklyTrends(context.Background(), &emptypb.Empty{})

		require.NoError(t, err)
		weeks := resp.Fields["weeks"].GetListValue().GetValues()
		require.Len(t, weeks, 1)
		assert.Equal(t, "2024년 3월 2주차", weeks[0].GetStructValue().GetFields()["week"].GetStringValue())
	})

	t.Run("storage failure", func(t *testing.T) {
		mockResults := &mocks.MockResultsService{
			GetWeeklyTrendsFunc: func(ctx context.Context) ([]aggregation.WeekSummary, error) {
				return nil, fmt.Errorf("%w: disk full", service.ErrStorageFailure)
			},
		}
		handlers := NewGRPCHandlers(mockResults, &mocks.MockCacher{}, zap.NewNop(), time.Minute)

		resp, err := handlers.GetWeeklyTrends(context.Background(), &emptypb.Empty{})

		assert.Nil(t, resp)
		assert.Equal(t, codes.Internal, status.Code(err))
		assert.Contains(t, err.Error(), "database error")
	})
}

func TestGetTextResponses(t *testing.T) {
	newHandlers := func(gotLimit *int) *GRPCHandlers {
		mockResults := &mocks.MockResultsService{
			GetTextResponsesFunc: func(ctx context.Context, limit int) (service.TextResponses, error) {
				*gotLimit = limit
				return service.TextResponses{
					"q-note": {{Text: "good week", CreatedAt: time.Date(2024, 3, 4, 10, 0, 0, 0, aggregation.DefaultLocation), Label: "24년 3월 2주차"}},
					"q-idea": {},
				}, nil
			},
		}
		return NewGRPCHandlers(mockResults, &mocks.MockCacher{}, zap.NewNop(), time.Minute)
	}

	t.Run("nil request uses default", func(t *testing.T) {
		limit := -1
		resp, err := newHandlers(&limit).GetTextResponses(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, 0, limit)

		byQuestion := resp.Fields["responses"].GetStructValue().GetFields()
		note := byQuestion["q-note"].GetListValue().GetValues()
		require.Len(t, note, 1)
		assert.Equal(t, "good week", note[0].GetStructValue().GetFields()["response"].GetStringValue())
		assert.Equal(t, "24년 3월 2주차", note[0].GetStructValue().GetFields()["label"].GetStringValue())
		assert.Empty(t, byQuestion["q-idea"].GetListValue().GetValues())
	})

	t.Run("explicit limit is forwarded", func(t *testing.T) {
		var limit int
		_, err := newHandlers(&limit).GetTextResponses(context.Background(), wrapperspb.Int32(10))

		require.NoError(t, err)
		assert.Equal(t, 10, limit)
	})

	t.Run("out of range limit", func(t *testing.T) {
		var limit int
		for _, v := range []int32{-1, service.MaxTextLimit + 1} {
			resp, err := newHandlers(&limit).GetTextResponses(context.Background(), wrapperspb.Int32(v))

			assert.Nil(t, resp)
			assert.Equal(t, codes.InvalidArgument, status.Code(err))
		}
	})
}

func TestGetResults(t *testing.T) {
	mockResults := &mocks.MockResultsService{
		GetResultsFunc: func(ctx context.Context) (service.Results, error) {
			return service.Results{
				Questions: []aggregation.Question{
					{ID: "q-mood", Text: "How was your week?", Type: aggregation.QuestionTypeRating, Active: true},
				},
				Weeks:         sampleWeeks(),
				TextResponses: service.TextResponses{},
			}, nil
		},
	}
	handlers := NewGRPCHandlers(mockResults, &mocks.MockCacher{}, zap.NewNop(), time.Minute)

	resp, err := handlers.GetResults(context.Background(), &emptypb.Empty{})

	require.NoError(t, err)
	questions := resp.Fields["questions"].GetListValue().GetValues()
	require.Len(t, questions, 1)
	assert.Equal(t, "rating", questions[0].GetStructValue().GetFields()["question_type"].GetStringValue())
	assert.Len(t, resp.Fields["weeks"].GetListValue().GetValues(), 2)
	assert.NotNil(t, resp.Fields["text_responses"].GetStructValue())
}

func TestPulseResultsOverBufconn(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	mockResults := &mocks.MockResultsService{
		GetWeeklyTrendsFunc: func(ctx context.Context) ([]aggregation.WeekSummary, error) {
			return sampleWeeks(), nil
		},
		GetTextResponsesFunc: func(ctx context.Context, limit int) (service.TextResponses, error) {
			return nil, fmt.Errorf("%w: %d", service.ErrInvalidLimit, limit)
		},
	}
	RegisterPulseResultsServer(srv, NewGRPCHandlers(mockResults, nil, zap.NewNop(), time.Minute))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	client := NewPulseResultsClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("weekly trends", func(t *testing.T) {
		resp, err := client.GetWeeklyTrends(ctx, &emptypb.Empty{})

		require.NoError(t, err)
		assert.Len(t, resp.Fields["weeks"].GetListValue().GetValues(), 2)
	})

	t.Run("service error maps to status", func(t *testing.T) {
		_, err := client.GetTextResponses(ctx, wrapperspb.Int32(5))

		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("unimplemented method", func(t *testing.T) {
		err := conn.Invoke(ctx, "/"+ServiceName+"/DeleteEverything", &emptypb.Empty{}, &emptypb.Empty{})

		assert.Equal(t, codes.Unimplemented, status.Code(err))
	})
}
