// Package workcal provides the working-day arithmetic every balance
// calculation in the system depends on.
package workcal

import "time"

// CountWorkingDays returns the number of weekdays (Mon-Fri) in the calendar
// range [start, end], both endpoints inclusive. The caller guarantees
// start <= end. A single-day range on a weekday counts as 1, on a weekend
// as 0.
func CountWorkingDays(start, end time.Time) int {
	count := 0
	for d := DateOnly(start); !d.After(DateOnly(end)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

// DateOnly truncates a timestamp to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Clock abstracts "today" so date validation is testable.
type Clock interface {
	Today() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Today() time.Time {
	return DateOnly(time.Now().UTC())
}
