// Package resolution defines the fixed catalog of chart resolutions and the
// bucket-alignment math shared by the cache and the rollup job.
//
// Every resolution except the monthly one maps to a fixed number of seconds.
// A calendar month has no fixed length, so Interval reports ok=false for it
// and Truncate refuses to align against it.
package resolution

import (
	"errors"
	"fmt"
	"time"
)

// Resolution indexes one entry of the catalog.
type Resolution uint8

const (
	Tick Resolution = iota
	OneSecond
	ThreeSeconds
	FiveSeconds
	TenSeconds
	ThirtySeconds
	OneMinute
	ThreeMinutes
	FiveMinutes
	TenMinutes
	FifteenMinutes
	OneHour
	ThreeHours
	FiveHours
	TwelveHours
	OneDay
	ThreeDays
	OneWeek
	OneMonth

	count
)

// Count is the number of catalog entries.
const Count = int(count)

// ErrNoFixedInterval is returned when bucket math is requested for a
// resolution without a fixed-length interval (the monthly resolution).
var ErrNoFixedInterval = errors.New("resolution: no fixed-length interval")

// ErrUnknownResolution marks lookups outside the fixed catalog.
var ErrUnknownResolution = errors.New("resolution: unknown resolution")

type entry struct {
	code     string
	label    string
	interval time.Duration // 0 for calendar-based entries
}

var table = [Count]entry{
	Tick:           {"0x00", "TICK", time.Second},
	OneSecond:      {"0x01", "1s", time.Second},
	ThreeSeconds:   {"0x02", "3s", 3 * time.Second},
	FiveSeconds:    {"0x03", "5s", 5 * time.Second},
	TenSeconds:     {"0x04", "10s", 10 * time.Second},
	ThirtySeconds:  {"0x05", "30s", 30 * time.Second},
	OneMinute:      {"0x06", "1m", time.Minute},
	ThreeMinutes:   {"0x07", "3m", 3 * time.Minute},
	FiveMinutes:    {"0x08", "5m", 5 * time.Minute},
	TenMinutes:     {"0x09", "10m", 10 * time.Minute},
	FifteenMinutes: {"0x0A", "15m", 15 * time.Minute},
	OneHour:        {"0x0B", "1h", time.Hour},
	ThreeHours:     {"0x0C", "3h", 3 * time.Hour},
	FiveHours:      {"0x0D", "5h", 5 * time.Hour},
	TwelveHours:    {"0x0E", "12h", 12 * time.Hour},
	OneDay:         {"0x0F", "1d", 24 * time.Hour},
	ThreeDays:      {"0x10", "3d", 72 * time.Hour},
	OneWeek:        {"0x11", "1w", 7 * 24 * time.Hour},
	OneMonth:       {"0x12", "1M", 0},
}

var (
	byCode  = make(map[string]Resolution, Count)
	byLabel = make(map[string]Resolution, Count)
)

func init() {
	for r := Tick; r < count; r++ {
		byCode[table[r].code] = r
		byLabel[table[r].label] = r
	}
}

// All returns every resolution in catalog order.
func All() []Resolution {
	out := make([]Resolution, 0, Count)
	for r := Tick; r < count; r++ {
		out = append(out, r)
	}
	return out
}

// IsValid reports whether r is a catalog entry.
func (r Resolution) IsValid() bool { return r < count }

// Code returns the stable wire code of the resolution.
func (r Resolution) Code() string {
	if !r.IsValid() {
		return ""
	}
	return table[r].code
}

// Label returns the display label (e.g. "1m").
func (r Resolution) Label() string {
	if !r.IsValid() {
		return ""
	}
	return table[r].label
}

func (r Resolution) String() string { return r.Label() }

// MarshalJSON emits the display label instead of the numeric index.
func (r Resolution) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.Label() + `"`), nil
}

// Interval returns the fixed bucket length. ok is false for the monthly
// resolution, which has no fixed length.
func (r Resolution) Interval() (time.Duration, bool) {
	if !r.IsValid() || table[r].interval == 0 {
		return 0, false
	}
	return table[r].interval, true
}

// IntervalMillis returns the fixed bucket length in milliseconds.
func (r Resolution) IntervalMillis() (int64, bool) {
	d, ok := r.Interval()
	if !ok {
		return 0, false
	}
	return d.Milliseconds(), true
}

// Truncate floor-aligns an epoch-millisecond timestamp to the bucket start of
// the resolution: whole epoch seconds divided by the interval length and
// re-multiplied.
func Truncate(tsMillis int64, r Resolution) (int64, error) {
	d, ok := r.Interval()
	if !ok {
		return 0, fmt.Errorf("truncate %s: %w", r.Label(), ErrNoFixedInterval)
	}
	intervalSec := int64(d / time.Second)
	epochSec := tsMillis / 1000
	return (epochSec / intervalSec) * intervalSec * 1000, nil
}

// Next returns the bucket start that follows startMillis.
func Next(startMillis int64, r Resolution) (int64, error) {
	ms, ok := r.IntervalMillis()
	if !ok {
		return 0, fmt.Errorf("next %s: %w", r.Label(), ErrNoFixedInterval)
	}
	return startMillis + ms, nil
}

// FromCode resolves a wire code to its resolution.
func FromCode(code string) (Resolution, error) {
	if r, ok := byCode[code]; ok {
		return r, nil
	}
	return 0, fmt.Errorf("%w: code %q", ErrUnknownResolution, code)
}

// FromLabel resolves a display label (e.g. "5m") to its resolution.
func FromLabel(label string) (Resolution, error) {
	if r, ok := byLabel[label]; ok {
		return r, nil
	}
	return 0, fmt.Errorf("%w: label %q", ErrUnknownResolution, label)
}
