package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/godilite/pulse-server/internal/repository/models"
	dbbuilder "github.com/godilite/pulse-server/pkg/database"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS questions (
	id TEXT PRIMARY KEY,
	question_text TEXT NOT NULL,
	question_type TEXT NOT NULL CHECK (question_type IN ('rating', 'text')),
	order_index INTEGER NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS responses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question_id TEXT NOT NULL REFERENCES questions(id),
	response_value TEXT,
	submitted_at TEXT NOT NULL,
	session_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_responses_question_submitted ON responses (question_id, submitted_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS questions (
	id TEXT PRIMARY KEY,
	question_text TEXT NOT NULL,
	question_type TEXT NOT NULL CHECK (question_type IN ('rating', 'text')),
	order_index INTEGER NOT NULL DEFAULT 0,
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE TABLE IF NOT EXISTS responses (
	id BIGSERIAL PRIMARY KEY,
	question_id TEXT NOT NULL REFERENCES questions(id),
	response_value TEXT,
	submitted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	session_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_responses_question_submitted ON responses (question_id, submitted_at);
`

// Schema returns the DDL for the questions and responses tables in driver's dialect.
func Schema(driver string) string {
	if dbbuilder.IsPostgres(driver) {
		return postgresSchema
	}
	return sqliteSchema
}

type SurveyRepository struct {
	db     *sql.DB
	driver string
}

func NewSurveyRepository(db *sql.DB, driver string) *SurveyRepository {
	return &SurveyRepository{db: db, driver: driver}
}

// GetActiveQuestions returns active questions ordered by order_index.
func (s *SurveyRepository) GetActiveQuestions(ctx context.Context) ([]models.Question, error) {
	query := dbbuilder.Rebind(s.driver, `
		SELECT id, question_text, question_type, order_index, is_active
		FROM questions
		WHERE is_active = ?
		ORDER BY order_index ASC, id ASC
	`)

	rows, err := s.db.QueryContext(ctx, query, true)
	if err != nil {
		return nil, fmt.Errorf("query GetActiveQuestions: %w", err)
	}
	defer rows.Close()

	var results []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.QuestionText, &q.QuestionType, &q.OrderIndex, &q.IsActive); err != nil {
			return nil, fmt.Errorf("scan GetActiveQuestions row: %w", err)
		}
		results = append(results, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate GetActiveQuestions: %w", err)
	}
	return results, nil
}

// GetResponses returns every response to the given questions, newest first.
func (s *SurveyRepository) GetResponses(ctx context.Context, questionIDs []string) ([]models.Response, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}

	query := dbbuilder.Rebind(s.driver, `
		SELECT id, question_id, response_value, submitted_at, session_id
		FROM responses
		WHERE question_id IN (`+dbbuilder.Placeholders(len(questionIDs))+`)
		ORDER BY submitted_at DESC, id DESC
	`)

	return s.queryResponses(ctx, "GetResponses", query, stringArgs(questionIDs)...)
}

// GetRecentResponses returns at most limit responses per question, newest first.
func (s *SurveyRepository) GetRecentResponses(ctx context.Context, questionIDs []string, limit int) ([]models.Response, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}

	query := dbbuilder.Rebind(s.driver, `
		SELECT id, question_id, response_value, submitted_at, session_id
		FROM (
			SELECT
				r.id,
				r.question_id,
				r.response_value,
				r.submitted_at,
				r.session_id,
				ROW_NUMBER() OVER (
					PARTITION BY r.question_id
					ORDER BY r.submitted_at DESC, r.id DESC
				) AS rn
			FROM responses AS r
			WHERE r.question_id IN (`+dbbuilder.Placeholders(len(questionIDs))+`)
		) AS ranked
		WHERE rn <= ?
		ORDER BY submitted_at DESC, id DESC
	`)

	args := append(stringArgs(questionIDs), limit)
	return s.queryResponses(ctx, "GetRecentResponses", query, args...)
}

func (s *SurveyRepository) queryResponses(ctx context.Context, op, query string, args ...any) ([]models.Response, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", op, err)
	}
	defer rows.Close()

	var results []models.Response
	for rows.Next() {
		var r models.Response
		if err := rows.Scan(&r.ID, &r.QuestionID, &r.ResponseValue, &r.SubmittedAt, &r.SessionID); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", op, err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", op, err)
	}
	return results, nil
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
