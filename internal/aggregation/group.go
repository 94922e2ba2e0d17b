package aggregation

import (
	"strings"
	"time"
)

// SubmissionKeyFunc decides which responses belong to one respondent's submission.
type SubmissionKeyFunc func(r Response) string

// ByTimestamp treats responses sharing the exact raw submitted_at string as one
// submission. Two respondents submitting in the same instant are merged.
func ByTimestamp(r Response) string {
	return r.SubmittedAt
}

// BySession groups on the client session id, falling back to the raw timestamp
// for rows written before session ids existed.
func BySession(r Response) string {
	if id := strings.TrimSpace(r.SessionID); id != "" {
		return "session:" + id
	}
	return r.SubmittedAt
}

// submission holds one respondent's answers keyed by question id.
type submission map[string]string

// weekBucket collects the submissions of one month-relative week.
// Slots keep encounter order so averages sum in a reproducible order.
type weekBucket struct {
	label string
	start time.Time
	order []string
	slots map[string]submission
}

func (b *weekBucket) slot(key string) submission {
	s, ok := b.slots[key]
	if !ok {
		s = make(submission)
		b.slots[key] = s
		b.order = append(b.order, key)
	}
	return s
}

func (b *weekBucket) count() int {
	return len(b.order)
}

// groupByWeek partitions responses into week buckets in encounter order.
// Responses with an unparseable timestamp are reported through skip and dropped.
func groupByWeek(responses []Response, loc *time.Location, key SubmissionKeyFunc, skip func(Response)) []*weekBucket {
	index := make(map[string]*weekBucket)
	var buckets []*weekBucket

	for _, r := range responses {
		t, ok := ParseTimestamp(r.SubmittedAt, loc)
		if !ok {
			if skip != nil {
				skip(r)
			}
			continue
		}

		label := WeekLabel(t)
		b, exists := index[label]
		if !exists {
			b = &weekBucket{
				label: label,
				start: WeekStart(t),
				slots: make(map[string]submission),
			}
			index[label] = b
			buckets = append(buckets, b)
		}

		b.slot(key(r))[r.QuestionID] = r.Value
	}
	return buckets
}
