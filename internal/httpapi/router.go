package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func NewRouter(handler *Handler, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/results", handler.getResults)
		r.Get("/results/weekly", handler.getWeeklyTrends)
		r.Get("/results/text", handler.getTextResponses)
		r.Get("/weeks", handler.getWeekCalendar)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found", requestIDFromContext(r.Context()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", requestIDFromContext(r.Context()))
	})
	return r
}
