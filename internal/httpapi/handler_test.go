package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/pulse-server/internal/aggregation"
	grpcmocks "github.com/godilite/pulse-server/internal/grpc/mocks"
	"github.com/godilite/pulse-server/internal/service"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   ErrorPayload    `json:"error"`
}

func serve(t *testing.T, h *Handler, method, target string, header http.Header) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	NewRouter(h, zap.NewNop()).ServeHTTP(rec, req)

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func weeksFixture() []aggregation.WeekSummary {
	avg := 4.5
	return []aggregation.WeekSummary{{
		Week:     "2024년 3월 2주차",
		Date:     time.Date(2024, 3, 3, 0, 0, 0, 0, aggregation.DefaultLocation),
		Count:    2,
		Averages: map[string]*float64{"q-mood": &avg},
		Trends:   map[string]aggregation.TrendEntry{},
	}}
}

func TestNewHandler(t *testing.T) {
	t.Run("nil results service panics", func(t *testing.T) {
		assert.Panics(t, func() { NewHandler(nil, zap.NewNop()) })
	})

	t.Run("defaults", func(t *testing.T) {
		h := NewHandler(&grpcmocks.MockResultsService{}, nil)

		assert.Equal(t, aggregation.DefaultLocation, h.loc)
		assert.Equal(t, defaultRequestTimeout, h.timeout)
		assert.NotNil(t, h.loader)
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		rec, body := serve(t, NewHandler(&grpcmocks.MockResultsService{}, nil), http.MethodGet, "/healthz", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "success", body.Status)
		assert.Equal(t, "ok", body.Message)
		assert.NotEmpty(t, rec.Header().Get(headerRequestID))
	})

	t.Run("readyz with failing dependency", func(t *testing.T) {
		h := NewHandler(&grpcmocks.MockResultsService{}, nil, WithReadiness(func(ctx context.Context) error {
			return errors.New("database is locked")
		}))

		rec, body := serve(t, h, http.MethodGet, "/readyz", nil)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "not_ready", body.Error.Code)
	})

	t.Run("readyz", func(t *testing.T) {
		h := NewHandler(&grpcmocks.MockResultsService{}, nil, WithReadiness(func(ctx context.Context) error { return nil }))

		rec, _ := serve(t, h, http.MethodGet, "/readyz", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequestID(t *testing.T) {
	h := NewHandler(&grpcmocks.MockResultsService{
		GetWeeklyTrendsFunc: func(ctx context.Context) ([]aggregation.WeekSummary, error) {
			return nil, fmt.Errorf("%w: disk I/O error", service.ErrStorageFailure)
		},
	}, nil)

	rec, body := serve(t, h, http.MethodGet, "/api/v1/results/weekly", http.Header{headerRequestID: {"req-123"}})

	assert.Equal(t, "req-123", rec.Header().Get(headerRequestID))
	assert.Equal(t, "req-123", body.Error.RequestID)
}

func TestGetWeeklyTrends(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := NewHandler(&grpcmocks.MockResultsService{
			GetWeeklyTrendsFunc: func(ctx context.Context) ([]aggregation.WeekSummary, error) {
				return weeksFixture(), nil
			},
		}, nil)

		rec, body := serve(t, h, http.MethodGet, "/api/v1/results/weekly", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var weeks []map[string]any
		require.NoError(t, json.Unmarshal(body.Data, &weeks))
		require.Len(t, weeks, 1)
		assert.Equal(t, "2024년 3월 2주차", weeks[0]["week"])
		assert.Equal(t, float64(2), weeks[0]["count"])
		assert.Equal(t, 4.5, weeks[0]["averages"].(map[string]any)["q-mood"])
	})

	t.Run("storage failure hides details", func(t *testing.T) {
		h := NewHandler(&grpcmocks.MockResultsService{
			GetWeeklyTrendsFunc: func(ctx context.Context) ([]aggregation.WeekSummary, error) {
				return nil, fmt.Errorf("%w: disk I/O error", service.ErrStorageFailure)
			},
		}, nil)

		rec, body := serve(t, h, http.MethodGet, "/api/v1/results/weekly", nil)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "error", body.Status)
		assert.Equal(t, "storage_failure", body.Error.Code)
		assert.Equal(t, "database error", body.Error.Message)
	})

	t.Run("timeout", func(t *testing.T) {
		h := NewHandler(&grpcmocks.MockResultsService{
			GetWeeklyTrendsFunc: func(ctx context.Context) ([]aggregation.WeekSummary, error) {
				<-ctx.Done()
				return nil, fmt.Errorf("%w: %v", service.ErrStorageFailure, ctx.Err())
			},
		}, nil, WithTimeout(20*time.Millisecond))

		rec, body := serve(t, h, http.MethodGet, "/api/v1/results/weekly", nil)

		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
		assert.Equal(t, "timeout", body.Error.Code)
	})
}

func TestGetTextResponses(t *testing.T) {
	var gotLimit int
	h := NewHandler(&grpcmocks.MockResultsService{
		GetTextResponsesFunc: func(ctx context.Context, limit int) (service.TextResponses, error) {
			gotLimit = limit
			if limit > service.MaxTextLimit || limit < 0 {
				return nil, fmt.Errorf("%w: %d", service.ErrInvalidLimit, limit)
			}
			return service.TextResponses{
				"q-note": {{Text: "좋았어요", CreatedAt: time.Date(2024, 3, 4, 10, 0, 0, 0, aggregation.DefaultLocation), Label: "24년 3월 2주차"}},
			}, nil
		},
	}, nil)

	t.Run("default limit", func(t *testing.T) {
		rec, body := serve(t, h, http.MethodGet, "/api/v1/results/text", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 0, gotLimit)

		var text map[string][]map[string]any
		require.NoError(t, json.Unmarshal(body.Data, &text))
		require.Len(t, text["q-note"], 1)
		assert.Equal(t, "좋았어요", text["q-note"][0]["response"])
		assert.Equal(t, "24년 3월 2주차", text["q-note"][0]["label"])
	})

	t.Run("explicit limit", func(t *testing.T) {
		rec, _ := serve(t, h, http.MethodGet, "/api/v1/results/text?limit=5", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, gotLimit)
	})

	t.Run("non-numeric limit", func(t *testing.T) {
		rec, body := serve(t, h, http.MethodGet, "/api/v1/results/text?limit=all", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_input", body.Error.Code)
	})

	t.Run("limit out of range", func(t *testing.T) {
		rec, body := serve(t, h, http.MethodGet, "/api/v1/results/text?limit=9999", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_input", body.Error.Code)
		assert.Contains(t, body.Error.Message, "invalid text response limit")
	})
}

func TestGetResults(t *testing.T) {
	h := NewHandler(&grpcmocks.MockResultsService{
		GetResultsFunc: func(ctx context.Context) (service.Results, error) {
			return service.Results{
				Questions:     []aggregation.Question{{ID: "q-mood", Type: aggregation.QuestionTypeRating, Active: true}},
				Weeks:         weeksFixture(),
				TextResponses: service.TextResponses{},
			}, nil
		},
	}, nil)

	rec, body := serve(t, h, http.MethodGet, "/api/v1/results", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var results service.Results
	require.NoError(t, json.Unmarshal(body.Data, &results))
	assert.Len(t, results.Questions, 1)
	assert.Len(t, results.Weeks, 1)
	assert.Equal(t, 2, results.Weeks[0].Count)
}

func TestGetWeekCalendar(t *testing.T) {
	var gotFrom, gotTo time.Time
	h := NewHandler(&grpcmocks.MockResultsService{
		GetWeekCalendarFunc: func(from, to time.Time) ([]aggregation.CalendarWeek, error) {
			gotFrom, gotTo = from, to
			if to.Before(from) {
				return nil, fmt.Errorf("%w: to must not be before from", service.ErrInvalidRange)
			}
			return aggregation.WeeksInRange(from, to), nil
		},
	}, nil)

	t.Run("success", func(t *testing.T) {
		rec, body := serve(t, h, http.MethodGet, "/api/v1/weeks?from=2024-02-25&to=2024-03-05", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, time.Date(2024, 2, 25, 0, 0, 0, 0, aggregation.DefaultLocation), gotFrom)
		assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, aggregation.DefaultLocation), gotTo)

		var weeks []map[string]any
		require.NoError(t, json.Unmarshal(body.Data, &weeks))
		require.Len(t, weeks, 3)
		assert.Equal(t, "2024년 2월 5주차", weeks[0]["label"])
		assert.NotContains(t, weeks[0], "Key")
	})

	t.Run("malformed date", func(t *testing.T) {
		rec, body := serve(t, h, http.MethodGet, "/api/v1/weeks?from=03/04/2024&to=2024-03-05", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, body.Error.Message, "from")
	})

	t.Run("missing to", func(t *testing.T) {
		rec, body := serve(t, h, http.MethodGet, "/api/v1/weeks?from=2024-03-04", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, body.Error.Message, "to")
	})

	t.Run("inverted range", func(t *testing.T) {
		rec, body := serve(t, h, http.MethodGet, "/api/v1/weeks?from=2024-03-05&to=2024-03-01", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_input", body.Error.Code)
	})
}

func TestRouterFallbacks(t *testing.T) {
	h := NewHandler(&grpcmocks.MockResultsService{}, nil)

	t.Run("unknown route", func(t *testing.T) {
		rec, body := serve(t, h, http.MethodGet, "/api/v1/nope", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", body.Error.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec, body := serve(t, h, http.MethodPost, "/api/v1/results", nil)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "method_not_allowed", body.Error.Code)
	})

	t.Run("panic is recovered", func(t *testing.T) {
		panicking := NewHandler(&grpcmocks.MockResultsService{
			GetResultsFunc: func(ctx context.Context) (service.Results, error) {
				panic("boom")
			},
		}, nil)

		rec, body := serve(t, panicking, http.MethodGet, "/api/v1/results", nil)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal_error", body.Error.Code)
	})
}

func TestMapServiceError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid limit", service.ErrInvalidLimit, http.StatusBadRequest, "invalid_input"},
		{"invalid range", fmt.Errorf("%w: x", service.ErrInvalidRange), http.StatusBadRequest, "invalid_input"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"canceled", context.Canceled, http.StatusServiceUnavailable, "canceled"},
		{"storage", service.ErrStorageFailure, http.StatusInternalServerError, "storage_failure"},
		{"storage timeout", fmt.Errorf("%w: %w", service.ErrStorageFailure, context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code, _ := mapServiceError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, code)
		})
	}
}
