package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeInterval is an owner-configured open window within a day, as "HH:mm" wall-clock strings.
type TimeInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DayConfig holds the working hours of one weekday.
type DayConfig struct {
	IsOpen    bool           `json:"isOpen"`
	Intervals []TimeInterval `json:"intervals"`
}

// UnmarshalJSON accepts both the current shape and the legacy single-window
// shape {isOpen, start, end}, which becomes a one-element Intervals list.
func (d *DayConfig) UnmarshalJSON(b []byte) error {
	var raw struct {
		IsOpen    bool           `json:"isOpen"`
		Intervals []TimeInterval `json:"intervals"`
		Start     *string        `json:"start"`
		End       *string        `json:"end"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	d.IsOpen = raw.IsOpen
	d.Intervals = raw.Intervals
	if len(d.Intervals) == 0 && (raw.Start != nil || raw.End != nil) {
		iv := TimeInterval{}
		if raw.Start != nil {
			iv.Start = *raw.Start
		}
		if raw.End != nil {
			iv.End = *raw.End
		}
		d.Intervals = []TimeInterval{iv}
	}
	return nil
}

// WorkingHours maps a lowercase English weekday name ("monday") to its configuration.
type WorkingHours map[string]DayConfig

// legacyDayKeys are the keys written by the first version of the settings screen.
var legacyDayKeys = map[string]time.Weekday{
	"domingo": time.Sunday,
	"segunda": time.Monday,
	"terca":   time.Tuesday,
	"terça":   time.Tuesday,
	"quarta":  time.Wednesday,
	"quinta":  time.Thursday,
	"sexta":   time.Friday,
	"sabado":  time.Saturday,
	"sábado":  time.Saturday,
}

func WeekdayKey(wd time.Weekday) string {
	return strings.ToLower(wd.String())
}

func (w *WorkingHours) UnmarshalJSON(b []byte) error {
	var raw map[string]DayConfig
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	out := make(WorkingHours, len(raw))
	legacy := make(map[string]DayConfig)
	for k, v := range raw {
		key := strings.ToLower(strings.TrimSpace(k))
		if _, ok := legacyDayKeys[key]; ok {
			legacy[key] = v
			continue
		}
		out[key] = v
	}
	// Canonical keys win over legacy ones when a document carries both.
	for key, v := range legacy {
		canonical := WeekdayKey(legacyDayKeys[key])
		if _, exists := out[canonical]; exists {
			continue
		}
		out[canonical] = v
	}
	*w = out
	return nil
}

// Value encodes to a JSON string so it binds as jsonb text rather than bytea.
func (w WorkingHours) Value() (driver.Value, error) {
	if w == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]DayConfig(w))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (w *WorkingHours) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*w = WorkingHours{}
		return nil
	case []byte:
		return w.UnmarshalJSON(v)
	case string:
		return w.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("working hours: unsupported scan type %T", src)
	}
}

// ForWeekday returns the configuration for wd, if any was configured.
func (w WorkingHours) ForWeekday(wd time.Weekday) (DayConfig, bool) {
	if w == nil {
		return DayConfig{}, false
	}
	d, ok := w[WeekdayKey(wd)]
	return d, ok
}

// Validate is used when an owner saves new working hours. Reads stay lenient.
func (w WorkingHours) Validate() error {
	for key, day := range w {
		if !isWeekdayKey(key) {
			return fmt.Errorf("unknown weekday %q", key)
		}
		if !day.IsOpen {
			continue
		}
		for i, iv := range day.Intervals {
			sh, sm, err := ParseClock(iv.Start)
			if err != nil {
				return fmt.Errorf("%s interval %d: start: %w", key, i, err)
			}
			eh, em, err := ParseClock(iv.End)
			if err != nil {
				return fmt.Errorf("%s interval %d: end: %w", key, i, err)
			}
			if eh*60+em <= sh*60+sm {
				return fmt.Errorf("%s interval %d: end must be after start", key, i)
			}
		}
	}
	return nil
}

func isWeekdayKey(key string) bool {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if WeekdayKey(wd) == key {
			return true
		}
	}
	return false
}

// DefaultWorkingHours is what a newly provisioned business starts with.
func DefaultWorkingHours() WorkingHours {
	w := make(WorkingHours, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		open := wd != time.Saturday && wd != time.Sunday
		w[WeekdayKey(wd)] = DayConfig{
			IsOpen:    open,
			Intervals: []TimeInterval{{Start: "09:00", End: "18:00"}},
		}
	}
	return w
}

var errInvalidClock = errors.New("invalid time, want HH:mm")

// ParseClock parses "HH:mm" (single-digit hour or minute is tolerated).
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", errInvalidClock, s)
	}
	hour, ok := clockPart(parts[0])
	if !ok || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", errInvalidClock, s)
	}
	minute, ok = clockPart(parts[1])
	if !ok || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", errInvalidClock, s)
	}
	return hour, minute, nil
}

func clockPart(s string) (int, bool) {
	if len(s) == 0 || len(s) > 2 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
