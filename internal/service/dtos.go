package service

import "github.com/godilite/pulse-server/internal/aggregation"

// TextResponses maps a text question id to its newest answers.
type TextResponses map[string][]aggregation.TextEntry

// Results is everything the results page renders, fetched in one call.
type Results struct {
	Questions     []aggregation.Question    `json:"questions"`
	Weeks         []aggregation.WeekSummary `json:"weeks"`
	TextResponses TextResponses             `json:"text_responses"`
}
