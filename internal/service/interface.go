package service

import (
	"context"

	"github.com/godilite/pulse-server/internal/repository/models"
)

// SurveyRepository defines the storage operations the results service needs.
type SurveyRepository interface {
	GetActiveQuestions(ctx context.Context) ([]models.Question, error)
	GetResponses(ctx context.Context, questionIDs []string) ([]models.Response, error)
	GetRecentResponses(ctx context.Context, questionIDs []string, limit int) ([]models.Response, error)
}
