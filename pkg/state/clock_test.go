package state

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		ok      bool
		canonic string
	}{
		{name: "canonical", in: "Day 1, 08:00", ok: true, canonic: "Day 1, 08:00"},
		{name: "no comma", in: "Day 3 14:05", ok: true, canonic: "Day 3, 14:05"},
		{name: "with at", in: "day 2 at 6:30 pm", ok: true, canonic: "Day 2, 18:30"},
		{name: "trailing prose", in: "Day 2, 06:30 (dawn)", ok: true, canonic: "Day 2, 06:30"},
		{name: "time only", in: "09:15", ok: true, canonic: "Day 1, 09:15"},
		{name: "midnight am", in: "12:00 am", ok: true, canonic: "Day 1, 00:00"},
		{name: "timestamp", in: "2024-05-01 13:45", ok: true, canonic: "2024-05-01 13:45"},
		{name: "rfc3339", in: "2024-05-01T13:45:00Z", ok: true, canonic: "2024-05-01 13:45"},
		{name: "day zero", in: "Day 0, 08:00", ok: false},
		{name: "bad hour", in: "Day 1, 25:00", ok: false},
		{name: "bad minute", in: "10:75", ok: false},
		{name: "prose", in: "late afternoon", ok: false},
		{name: "empty", in: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := ParseClock(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseClock(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && c.String() != tt.canonic {
				t.Errorf("ParseClock(%q) = %q, want %q", tt.in, c.String(), tt.canonic)
			}
		})
	}
}

func TestClock_AddRollsOverDays(t *testing.T) {
	c, ok := ParseClock("Day 1, 23:59")
	if !ok {
		t.Fatal("expected clock to parse")
	}
	if got := c.Add(time.Minute).String(); got != "Day 2, 00:00" {
		t.Errorf("got %q, want Day 2, 00:00", got)
	}
	if got := c.Add(30 * time.Second).String(); got != "Day 2, 00:00" {
		t.Errorf("partial minutes should round up, got %q", got)
	}
}

func TestAdvanceClock(t *testing.T) {
	tests := []struct {
		name     string
		prev     string
		proposed string
		want     string
	}{
		{name: "later proposal kept", prev: "Day 1, 08:00", proposed: "Day 1, 08:20", want: "Day 1, 08:20"},
		{name: "next day kept", prev: "Day 1, 23:50", proposed: "Day 2, 00:10", want: "Day 2, 00:10"},
		{name: "equal proposal bumped", prev: "Day 1, 08:00", proposed: "Day 1, 08:00", want: "Day 1, 08:01"},
		{name: "earlier proposal bumped", prev: "Day 2, 10:00", proposed: "Day 1, 11:00", want: "Day 2, 10:01"},
		{name: "unreadable proposal bumped", prev: "Day 1, 08:00", proposed: "sometime later", want: "Day 1, 08:01"},
		{name: "empty proposal bumped", prev: "Day 1, 08:00", proposed: "", want: "Day 1, 08:01"},
		{name: "unreadable prev uses default", prev: "dawn", proposed: "", want: "Day 1, 08:01"},
		{name: "incomparable proposal bumped", prev: "Day 1, 08:00", proposed: "2024-01-01 09:00", want: "Day 1, 08:01"},
		{name: "timestamps", prev: "2024-01-01 09:00", proposed: "2024-01-01 09:30", want: "2024-01-01 09:30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdvanceClock(tt.prev, tt.proposed)
			if got != tt.want {
				t.Errorf("AdvanceClock(%q, %q) = %q, want %q", tt.prev, tt.proposed, got, tt.want)
			}
			if !ClockAfter(got, tt.prev) && tt.prev != "dawn" {
				t.Errorf("result %q is not after %q", got, tt.prev)
			}
		})
	}
}

func TestClockAfter(t *testing.T) {
	if !ClockAfter("Day 2, 00:00", "Day 1, 23:59") {
		t.Error("expected day 2 to be after day 1")
	}
	if ClockAfter("Day 1, 08:00", "Day 1, 08:00") {
		t.Error("equal clocks are not after each other")
	}
	if ClockAfter("noon", "Day 1, 08:00") {
		t.Error("unreadable clocks are never after")
	}
}
