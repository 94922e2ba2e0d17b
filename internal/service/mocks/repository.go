package mocks

import (
	"context"
	"errors"

	"github.com/godilite/pulse-server/internal/repository/models"
)

// MockSurveyRepository is a mock implementation of the SurveyRepository interface
// for testing the service layer.
type MockSurveyRepository struct {
	GetActiveQuestionsFunc func(ctx context.Context) ([]models.Question, error)
	GetResponsesFunc       func(ctx context.Context, questionIDs []string) ([]models.Response, error)
	GetRecentResponsesFunc func(ctx context.Context, questionIDs []string, limit int) ([]models.Response, error)
}

// GetActiveQuestions implements the SurveyRepository interface
func (m *MockSurveyRepository) GetActiveQuestions(ctx context.Context) ([]models.Question, error) {
	if m.GetActiveQuestionsFunc != nil {
		return m.GetActiveQuestionsFunc(ctx)
	}
	return nil, errors.New("GetActiveQuestionsFunc not implemented")
}

// GetResponses implements the SurveyRepository interface
func (m *MockSurveyRepository) GetResponses(ctx context.Context, questionIDs []string) ([]models.Response, error) {
	if m.GetResponsesFunc != nil {
		return m.GetResponsesFunc(ctx, questionIDs)
	}
	return nil, errors.New("GetResponsesFunc not implemented")
}

// GetRecentResponses implements the SurveyRepository interface
func (m *MockSurveyRepository) GetRecentResponses(ctx context.Context, questionIDs []string, limit int) ([]models.Response, error) {
	if m.GetRecentResponsesFunc != nil {
		return m.GetRecentResponsesFunc(ctx, questionIDs, limit)
	}
	return nil, errors.New("GetRecentResponsesFunc not implemented")
}
