package aggregation

import (
	"math"
	"strconv"
	"strings"
)

// parseRating returns the numeric value of a rating answer.
func parseRating(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// roundTo rounds half away from zero to the given number of decimals.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// averageFor returns the mean rating for questionID across the bucket's
// submissions, rounded to one decimal, or nil when nobody gave a usable value.
func averageFor(b *weekBucket, questionID string) *float64 {
	var sum float64
	var n int
	for _, key := range b.order {
		raw, ok := b.slots[key][questionID]
		if !ok {
			continue
		}
		v, ok := parseRating(raw)
		if !ok {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return nil
	}
	avg := roundTo(sum/float64(n), 1)
	return &avg
}

// summarize reduces a bucket to its WeekSummary without trends.
func summarize(b *weekBucket, ratingQuestions []Question) WeekSummary {
	averages := make(map[string]*float64, len(ratingQuestions))
	for _, q := range ratingQuestions {
		averages[q.ID] = averageFor(b, q.ID)
	}
	return WeekSummary{
		Week:     b.label,
		Date:     b.start,
		Count:    b.count(),
		Averages: averages,
	}
}
