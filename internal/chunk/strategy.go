// Package chunk partitions an import's date range into bounded,
// independently trackable processing windows.
package chunk

import (
	"fmt"
	"time"
)

// DefaultWindowDays is the default chunk window length.
const DefaultWindowDays = 7

// Window is one contiguous date window of import work. Start and End are
// inclusive UTC dates. Windows produced by Plan are ordered by Number,
// non-overlapping, and together cover the planned range exactly.
type Window struct {
	Number         int
	Start          time.Time
	End            time.Time
	EstimatedCount int
}

// Plan splits [minDate, maxDate] into windows of windowDays days and sums
// the per-day movement histogram into each window's estimate.
//
// An empty histogram yields no windows (the caller treats that as a no-op
// import). A range shorter than one window yields a single window covering
// the whole range.
func Plan(minDate, maxDate time.Time, histogram map[time.Time]int, windowDays int) ([]Window, error) {
	if len(histogram) == 0 {
		return nil, nil
	}
	if windowDays < 1 {
		windowDays = DefaultWindowDays
	}

	minDate = truncateToDate(minDate)
	maxDate = truncateToDate(maxDate)
	if maxDate.Before(minDate) {
		return nil, fmt.Errorf("chunk plan: maxDate %s before minDate %s",
			maxDate.Format("2006-01-02"), minDate.Format("2006-01-02"))
	}

	var windows []Window
	start := minDate
	number := 1
	for !start.After(maxDate) {
		end := start.AddDate(0, 0, windowDays-1)
		if end.After(maxDate) {
			end = maxDate
		}
		windows = append(windows, Window{
			Number:         number,
			Start:          start,
			End:            end,
			EstimatedCount: countInWindow(histogram, start, end),
		})
		start = end.AddDate(0, 0, 1)
		number++
	}
	return windows, nil
}

// Contains reports whether the given date falls inside the window.
func (w Window) Contains(d time.Time) bool {
	d = truncateToDate(d)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days returns the number of calendar days the window covers.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

func countInWindow(histogram map[time.Time]int, start, end time.Time) int {
	total := 0
	for d, n := range histogram {
		d = truncateToDate(d)
		if !d.Before(start) && !d.After(end) {
			total += n
		}
	}
	return total
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
