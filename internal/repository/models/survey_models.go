package models

import "database/sql"

type Question struct {
	ID           string
	QuestionText string
	QuestionType string
	OrderIndex   int
	IsActive     bool
}

type Response struct {
	ID            int64
	QuestionID    string
	ResponseValue sql.NullString
	SubmittedAt   string
	SessionID     sql.NullString
}
