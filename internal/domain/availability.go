package domain

import (
	"errors"
	"sort"
	"time"
)

// ErrInvalidService is returned when a service has no usable duration.
var ErrInvalidService = errors.New("invalid service duration")

// BusyInterval is a committed time range (appointment or blockage). Half-open: [Start, End).
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

type SlotQuery struct {
	// Day is the configuration of the target weekday; nil means nothing is configured.
	Day             *DayConfig
	DurationMinutes int
	Busy            []BusyInterval
	// Date selects the calendar day in Location; its time of day is ignored.
	Date     time.Time
	Location *time.Location
	Now      time.Time
}

// SkippedInterval records a working-hour interval that could not be parsed.
type SkippedInterval struct {
	Index    int
	Interval TimeInterval
	Err      error
}

type SlotResult struct {
	Slots   []time.Time
	Skipped []SkippedInterval
}

// ComputeAvailableSlots enumerates bookable start instants for one day.
//
// Each interval is walked from its start in steps of the service duration. A slot
// survives when it ends within the interval, does not overlap any busy interval, and
// starts strictly after Now. Results are UTC, deduplicated and ascending.
func ComputeAvailableSlots(q SlotQuery) (SlotResult, error) {
	if q.DurationMinutes <= 0 {
		return SlotResult{}, ErrInvalidService
	}
	if q.Day == nil || !q.Day.IsOpen || len(q.Day.Intervals) == 0 {
		return SlotResult{}, nil
	}

	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	duration := time.Duration(q.DurationMinutes) * time.Minute
	day := q.Date.In(loc)

	var res SlotResult
	seen := make(map[int64]struct{})
	for i, iv := range q.Day.Intervals {
		start, end, err := intervalOnDay(day, iv)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedInterval{Index: i, Interval: iv, Err: err})
			continue
		}

		for cur := start; ; cur = cur.Add(duration) {
			slotEnd := cur.Add(duration)
			if slotEnd.After(end) {
				break
			}
			if !cur.After(q.Now) {
				continue
			}
			if overlapsAny(cur, slotEnd, q.Busy) {
				continue
			}
			key := cur.UnixNano()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			res.Slots = append(res.Slots, cur.UTC())
		}
	}

	sort.Slice(res.Slots, func(i, j int) bool {
		return res.Slots[i].Before(res.Slots[j])
	})
	return res, nil
}

// intervalOnDay anchors iv's wall-clock bounds to day's calendar date in day's location.
func intervalOnDay(day time.Time, iv TimeInterval) (time.Time, time.Time, error) {
	sh, sm, err := ParseClock(iv.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	eh, em, err := ParseClock(iv.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	y, m, d := day.Date()
	loc := day.Location()
	return time.Date(y, m, d, sh, sm, 0, 0, loc), time.Date(y, m, d, eh, em, 0, 0, loc), nil
}

func overlapsAny(start, end time.Time, busy []BusyInterval) bool {
	for _, b := range busy {
		if start.Before(b.End) && end.After(b.Start) {
			return true
		}
	}
	return false
}

// DayWindow returns [start of day, start of next day) for date's calendar day in loc.
func DayWindow(date time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
