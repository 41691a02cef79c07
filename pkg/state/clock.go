package state

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultClock is the starting time of a new game.
const DefaultClock = "Day 1, 08:00"

// MinClockStep is the smallest amount a successful turn advances the clock.
const MinClockStep = time.Minute

var (
	dayClockRegex  = regexp.MustCompile(`(?i)^\s*day\s+(\d+)\s*,?\s*(?:at\s+)?(\d{1,2}):(\d{2})\s*(am|pm)?`)
	timeClockRegex = regexp.MustCompile(`(?i)^\s*(\d{1,2}):(\d{2})\s*(am|pm)?`)
)

var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Clock is a parsed clock marker. Day-relative markers ("Day 3, 14:05") and
// calendar timestamps are both supported but are not comparable with each
// other.
type Clock struct {
	absolute bool
	minutes  int64 // minutes since Day 1 00:00, or since the Unix epoch
}

// ParseClock reads a clock marker. Trailing prose after a recognized prefix
// is ignored, so "Day 2, 06:30 (dawn)" parses.
func ParseClock(s string) (Clock, bool) {
	if m := dayClockRegex.FindStringSubmatch(s); m != nil {
		day, _ := strconv.ParseInt(m[1], 10, 64)
		hour, _ := strconv.ParseInt(m[2], 10, 64)
		minute, _ := strconv.ParseInt(m[3], 10, 64)
		if day < 1 {
			return Clock{}, false
		}
		hour, ok := to24Hour(hour, m[4])
		if !ok || minute > 59 {
			return Clock{}, false
		}
		return Clock{minutes: (day-1)*24*60 + hour*60 + minute}, true
	}

	trimmed := strings.TrimSpace(s)
	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return Clock{absolute: true, minutes: t.Unix() / 60}, true
		}
	}

	if m := timeClockRegex.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.ParseInt(m[1], 10, 64)
		minute, _ := strconv.ParseInt(m[2], 10, 64)
		hour, ok := to24Hour(hour, m[3])
		if !ok || minute > 59 {
			return Clock{}, false
		}
		return Clock{minutes: hour*60 + minute}, true
	}
	return Clock{}, false
}

func to24Hour(hour int64, meridiem string) (int64, bool) {
	switch strings.ToLower(meridiem) {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour == 12 {
			return 0, true
		}
		return hour, true
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour == 12 {
			return 12, true
		}
		return hour + 12, true
	}
	if hour > 23 {
		return 0, false
	}
	return hour, true
}

// Comparable reports whether two clocks use the same reference.
func (c Clock) Comparable(o Clock) bool {
	return c.absolute == o.absolute
}

// After reports whether c is strictly later than o. Incomparable clocks are
// never after each other.
func (c Clock) After(o Clock) bool {
	return c.Comparable(o) && c.minutes > o.minutes
}

// Add advances the clock, rounding the step up to whole minutes.
func (c Clock) Add(d time.Duration) Clock {
	step := int64(d / time.Minute)
	if d%time.Minute != 0 {
		step++
	}
	c.minutes += step
	return c
}

// String renders the canonical form.
func (c Clock) String() string {
	if c.absolute {
		return time.Unix(c.minutes*60, 0).UTC().Format("2006-01-02 15:04")
	}
	day := c.minutes/(24*60) + 1
	rem := c.minutes % (24 * 60)
	return fmt.Sprintf("Day %d, %02d:%02d", day, rem/60, rem%60)
}

// AdvanceClock returns the clock value to adopt after a turn. The proposed
// value is kept when it is readable and strictly later than prev; otherwise
// prev is advanced by MinClockStep.
func AdvanceClock(prev, proposed string) string {
	p, prevOK := ParseClock(prev)
	if !prevOK {
		p, _ = ParseClock(DefaultClock)
	}
	if n, ok := ParseClock(proposed); ok && n.After(p) {
		return strings.TrimSpace(proposed)
	}
	return p.Add(MinClockStep).String()
}

// ClockAfter reports whether a is strictly later than b. Unreadable or
// incomparable values are never later.
func ClockAfter(a, b string) bool {
	ca, okA := ParseClock(a)
	cb, okB := ParseClock(b)
	return okA && okB && ca.After(cb)
}
