package aggregation

import "time"

type QuestionType string

const (
	QuestionTypeRating QuestionType = "rating"
	QuestionTypeText   QuestionType = "text"
)

// Question is an active survey question. Only ID and Type matter to aggregation.
type Question struct {
	ID         string       `json:"id"`
	Text       string       `json:"question_text"`
	Type       QuestionType `json:"question_type"`
	OrderIndex int          `json:"order_index"`
	Active     bool         `json:"is_active"`
}

// Response is one answer row as stored upstream.
type Response struct {
	QuestionID  string
	Value       string
	SubmittedAt string
	SessionID   string
}

type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
)

type TrendEntry struct {
	Change           string    `json:"change"`
	ChangePercentage string    `json:"changePercentage"`
	Direction        Direction `json:"direction"`
}

// WeekSummary is one row of the weekly trend chart.
type WeekSummary struct {
	Week     string                `json:"week"`
	Date     time.Time             `json:"date"`
	Count    int                   `json:"count"`
	Averages map[string]*float64   `json:"averages"`
	Trends   map[string]TrendEntry `json:"trends"`
}

type TextEntry struct {
	Text      string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
	Label     string    `json:"label"`
}

// FilterByType returns the questions of type t, preserving order.
func FilterByType(questions []Question, t QuestionType) []Question {
	out := make([]Question, 0, len(questions))
	for _, q := range questions {
		if q.Type == t {
			out = append(out, q)
		}
	}
	return out
}

// QuestionIDs returns the ids of questions in order.
func QuestionIDs(questions []Question) []string {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}
