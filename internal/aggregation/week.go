package aggregation

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLocation is the fixed locale all week labels are computed in.
// Korea observes no daylight saving, so a fixed +09:00 zone is exact.
var DefaultLocation = time.FixedZone("KST", 9*60*60)

// WeekKey identifies a month-relative week: weeks start on Sunday and never
// cross a month boundary, so the first week of a month may be short.
type WeekKey struct {
	Year  int
	Month int
	Week  int
}

func (k WeekKey) String() string {
	return fmt.Sprintf("%d년 %d월 %d주차", k.Year, k.Month, k.Week)
}

// CalendarWeek describes one week bucket between Start and End, both inclusive days.
type CalendarWeek struct {
	Key   WeekKey   `json:"-"`
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WeekOf returns the month-relative week of t, evaluated in t's location.
func WeekOf(t time.Time) WeekKey {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	offset := int(first.Weekday())
	return WeekKey{
		Year:  t.Year(),
		Month: int(t.Month()),
		Week:  (t.Day() + offset + 6) / 7,
	}
}

// WeekLabel formats t as "2024년 3월 2주차". The label is the bucket key.
func WeekLabel(t time.Time) string {
	return WeekOf(t).String()
}

// ShortWeekLabel formats t as "3월 2주차".
func ShortWeekLabel(t time.Time) string {
	k := WeekOf(t)
	return fmt.Sprintf("%d월 %d주차", k.Month, k.Week)
}

// CompactWeekLabel formats t as "24년 3월 2주차".
func CompactWeekLabel(t time.Time) string {
	k := WeekOf(t)
	return fmt.Sprintf("%02d년 %d월 %d주차", k.Year%100, k.Month, k.Week)
}

// SameWeek reports whether a and b fall in the same month-relative week.
func SameWeek(a, b time.Time) bool {
	return WeekOf(a) == WeekOf(b)
}

// WeekStart returns midnight of the first day of t's week bucket: the preceding
// Sunday, clamped to the first of the month.
func WeekStart(t time.Time) time.Time {
	day := t.Day() - int(t.Weekday())
	if day < 1 {
		day = 1
	}
	return time.Date(t.Year(), t.Month(), day, 0, 0, 0, 0, t.Location())
}

// WeekEnd returns midnight of the last day of t's week bucket: the following
// Saturday, clamped to the last day of the month.
func WeekEnd(t time.Time) time.Time {
	day := t.Day() + 6 - int(t.Weekday())
	last := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > last {
		day = last
	}
	return time.Date(t.Year(), t.Month(), day, 0, 0, 0, 0, t.Location())
}

// WeeksInRange lists every week bucket touched by [from, to], oldest first.
// to is evaluated in from's location.
func WeeksInRange(from, to time.Time) []CalendarWeek {
	to = to.In(from.Location())
	last := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())

	var weeks []CalendarWeek
	for cur := WeekStart(from); !cur.After(last); {
		end := WeekEnd(cur)
		weeks = append(weeks, CalendarWeek{
			Key:   WeekOf(cur),
			Label: WeekLabel(cur),
			Start: cur,
			End:   end,
		})
		cur = end.AddDate(0, 0, 1)
	}
	return weeks
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02T15:04:05.999999999-07",
	time.RFC1123Z,
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// ParseTimestamp parses a stored submission timestamp and converts it to loc.
// Zone-less inputs are read as wall time in loc. It reports false for empty or
// unparseable input instead of returning an error; callers skip such records.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = DefaultLocation
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
