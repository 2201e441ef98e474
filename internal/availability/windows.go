package availability

import (
	"sort"
	"time"
)

// Window is a free [Start, End) interval on a professional's timeline.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether [start, end) lies fully inside the window.
func (w Window) Contains(start, end time.Time) bool {
	return !start.Before(w.Start) && !end.After(w.End)
}

type interval struct {
	start time.Time
	end   time.Time
}

// mergeIntervals unions overlapping or touching intervals. Existing bookings
// should never overlap, but the resolver degrades gracefully instead of
// producing negative gaps when they do.
func mergeIntervals(intervals []interval) []interval {
	if len(intervals) <= 1 {
		return intervals
	}

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].start.Before(intervals[j].start)
	})

	merged := intervals[:1]
	for _, iv := range intervals[1:] {
		last := &merged[len(merged)-1]
		if !iv.start.After(last.end) {
			if iv.end.After(last.end) {
				last.end = iv.end
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// subtractIntervals removes busy intervals from the working window and
// returns the remaining gaps of at least minDuration, in order.
func subtractIntervals(working interval, busy []interval, minDuration time.Duration) []Window {
	busy = mergeIntervals(busy)

	var windows []Window
	cursor := working.start

	for _, b := range busy {
		if !b.end.After(working.start) || !b.start.Before(working.end) {
			continue
		}
		if b.start.After(cursor) {
			gap := Window{Start: cursor, End: b.start}
			if gap.Duration() >= minDuration {
				windows = append(windows, gap)
			}
		}
		if b.end.After(cursor) {
			cursor = b.end
		}
	}

	if working.end.After(cursor) {
		gap := Window{Start: cursor, End: working.end}
		if gap.Duration() >= minDuration {
			windows = append(windows, gap)
		}
	}

	return windows
}

// combineClock anchors a "15:04" wall-clock string onto a calendar date.
func combineClock(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}
