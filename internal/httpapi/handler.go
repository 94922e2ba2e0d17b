package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/pulse-server/internal/aggregation"
	"github.com/godilite/pulse-server/internal/service"
	"github.com/godilite/pulse-server/pkg/cache"
)

const (
	defaultRequestTimeout = 10 * time.Second
	readinessTimeout      = 2 * time.Second

	cacheKeyWeeklyTrends  = "http:weekly_trends"
	cacheKeyTextResponses = "http:text_responses"
	cacheKeyResults       = "http:results"
)

// ResultsService is the read side the HTTP API exposes.
type ResultsService interface {
	GetWeeklyTrends(ctx context.Context) ([]aggregation.WeekSummary, error)
	GetTextResponses(ctx context.Context, limit int) (service.TextResponses, error)
	GetResults(ctx context.Context) (service.Results, error)
	GetWeekCalendar(from, to time.Time) ([]aggregation.CalendarWeek, error)
}

type Handler struct {
	results ResultsService
	loader  *cache.ReadThrough
	logger  *zap.Logger
	loc     *time.Location
	ready   func(ctx context.Context) error
	timeout time.Duration
}

type Option func(*Handler)

// WithCache fronts the result endpoints with a read-through cache.
func WithCache(loader *cache.ReadThrough) Option {
	return func(h *Handler) {
		if loader != nil {
			h.loader = loader
		}
	}
}

// WithLocation sets the zone used to read from/to query dates.
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) {
		if loc != nil {
			h.loc = loc
		}
	}
}

// WithReadiness sets the check behind /readyz, typically a database ping.
func WithReadiness(check func(ctx context.Context) error) Option {
	return func(h *Handler) {
		h.ready = check
	}
}

func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func NewHandler(results ResultsService, logger *zap.Logger, opts ...Option) *Handler {
	if results == nil {
		panic("nil ResultsService provided to NewHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		results: results,
		logger:  logger.Named("http-handler"),
		loc:     aggregation.DefaultLocation,
		timeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.loader == nil {
		h.loader = cache.NewReadThrough(nil, cache.WithRefreshAhead(false))
	}
	return h
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, "ok", nil)
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "not_ready", "dependencies unavailable", requestIDFromContext(r.Context()))
			return
		}
	}
	writeSuccess(w, http.StatusOK, "ready", nil)
}

func (h *Handler) getResults(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	results, err := cache.Load(ctx, h.loader, cacheKeyResults, func(fetchCtx context.Context) (service.Results, error) {
		return h.results.GetResults(fetchCtx)
	})
	if err != nil {
		h.fail(ctx, w, r, "GetResults", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", results)
}

func (h *Handler) getWeeklyTrends(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	weeks, err := cache.Load(ctx, h.loader, cacheKeyWeeklyTrends, func(fetchCtx context.Context) ([]aggregation.WeekSummary, error) {
		return h.results.GetWeeklyTrends(fetchCtx)
	})
	if err != nil {
		h.fail(ctx, w, r, "GetWeeklyTrends", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", weeks)
}

func (h *Handler) getTextResponses(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "limit must be an integer", requestIDFromContext(r.Context()))
			return
		}
		limit = v
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key := fmt.Sprintf("%s:%d", cacheKeyTextResponses, limit)
	text, err := cache.Load(ctx, h.loader, key, func(fetchCtx context.Context) (service.TextResponses, error) {
		return h.results.GetTextResponses(fetchCtx, limit)
	})
	if err != nil {
		h.fail(ctx, w, r, "GetTextResponses", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", text)
}

func (h *Handler) getWeekCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := time.ParseInLocation(time.DateOnly, q.Get("from"), h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "from must be a YYYY-MM-DD date", requestIDFromContext(r.Context()))
		return
	}
	to, err := time.ParseInLocation(time.DateOnly, q.Get("to"), h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "to must be a YYYY-MM-DD date", requestIDFromContext(r.Context()))
		return
	}

	weeks, err := h.results.GetWeekCalendar(from, to)
	if err != nil {
		h.fail(r.Context(), w, r, "GetWeekCalendar", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", weeks)
}

// fail writes the error envelope. An expired request context wins over the
// service error it caused.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, r *http.Request, op string, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	status, code, message := mapServiceError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	} else {
		h.logger.Info("request rejected", zap.String("op", op), zap.Error(err))
	}
	writeError(w, status, code, message, requestIDFromContext(r.Context()))
}
