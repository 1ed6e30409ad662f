package domain

import (
	"fmt"
	"time"
)

// BucketKind selects the granularity of a fetch bucket.
type BucketKind string

const (
	BucketWeek  BucketKind = "week"
	BucketMonth BucketKind = "month"
)

// DateLayout is the calendar-date format used for bucket ranges.
const DateLayout = "2006-01-02"

// Valid reports whether the kind is one of the two supported granularities.
func (k BucketKind) Valid() bool {
	return k == BucketWeek || k == BucketMonth
}

// Key derives the canonical bucket key for a date: "YYYY-WW" (ISO week)
// for week buckets, "YYYY-MM" for month buckets.
func (k BucketKind) Key(t time.Time) string {
	if k == BucketWeek {
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-%02d", year, week)
	}

	return t.Format("2006-01")
}

// KeyForDate derives the bucket key from a "YYYY-MM-DD" date string.
func (k BucketKind) KeyForDate(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}

	return k.Key(t), nil
}

// MonthKey returns the "YYYY-MM" calendar-month key for a timestamp.
// Monthly buckets always use calendar months regardless of the fetch kind.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
