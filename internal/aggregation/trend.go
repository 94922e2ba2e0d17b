package aggregation

import "fmt"

// DeadZone is the absolute change at or below which a week is considered stable.
const DeadZone = 0.1

// ClassifyChange maps a week-over-week change to a direction.
func ClassifyChange(change float64) Direction {
	switch {
	case change > DeadZone:
		return DirectionUp
	case change < -DeadZone:
		return DirectionDown
	default:
		return DirectionStable
	}
}

// FormatChangePercentage renders change relative to previous as "+16.7%".
// A zero baseline yields "0.0%".
func FormatChangePercentage(change, previous float64) string {
	if previous == 0 {
		return "0.0%"
	}
	sign := ""
	if change > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.1f%%", sign, change/previous*100)
}

// NewTrendEntry compares two weekly averages. The change is rounded to two
// decimals before it is classified, so Change and Direction always agree.
func NewTrendEntry(current, previous float64) TrendEntry {
	change := roundTo(current-previous, 2)
	if change == 0 {
		change = 0 // drop negative zero
	}
	return TrendEntry{
		Change:           fmt.Sprintf("%.2f", change),
		ChangePercentage: FormatChangePercentage(change, previous),
		Direction:        ClassifyChange(change),
	}
}

// applyTrends fills Trends on a chronologically sorted slice in place.
// Questions missing an average on either side are left out.
func applyTrends(weeks []WeekSummary, ratingQuestions []Question) {
	for i := range weeks {
		weeks[i].Trends = make(map[string]TrendEntry)
		if i == 0 {
			continue
		}
		prev := weeks[i-1]
		for _, q := range ratingQuestions {
			cur, p := weeks[i].Averages[q.ID], prev.Averages[q.ID]
			if cur == nil || p == nil {
				continue
			}
			weeks[i].Trends[q.ID] = NewTrendEntry(*cur, *p)
		}
	}
}
