package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a time of day without a date, as published in the
// distributor's schedule ("HH:MM"). Hour 24 is allowed as a range end
// meaning midnight of the following day.
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseClock parses "HH:MM" or "H:MM" into a ClockTime.
func ParseClock(s string) (ClockTime, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("invalid time format: %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return ClockTime{}, fmt.Errorf("time out of range: %q", s)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// Minutes returns the offset from midnight in minutes.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// On anchors the clock time to the given calendar day, in that day's location.
// time.Date normalizes hour 24 to midnight of the following day.
func (c ClockTime) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// TimeRange is one published low-tariff range within a day. An End before
// Start means the range crosses midnight into the following day. An End equal
// to Start is an empty range, parsing drops those.
type TimeRange struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

// CrossesMidnight reports whether the range ends on the following day.
func (r TimeRange) CrossesMidnight() bool {
	return r.End.Minutes() < r.Start.Minutes()
}

// SignalWindow is one calendar day's published set of low-tariff ranges for
// one grid signal code.
type SignalWindow struct {
	Signal string      `json:"signal"`
	Day    time.Time   `json:"day"`
	Ranges []TimeRange `json:"ranges"`
}

// SignalEntry is one raw record of the distributor's schedule payload.
// Field names follow the published wire format.
type SignalEntry struct {
	Signal  string `json:"signal"`
	DayName string `json:"den"`
	Date    string `json:"datum"`
	Times   string `json:"casy"`
}

// SchedulePayload is the distributor's raw schedule response. A payload may
// carry several signal codes at once; only one applies to a given customer.
type SchedulePayload struct {
	Data struct {
		Signals []SignalEntry `json:"signals"`
	} `json:"data"`
}

// Empty reports whether the payload carries no entries at all.
func (p SchedulePayload) Empty() bool {
	return len(p.Data.Signals) == 0
}

// CachedSchedule is a schedule payload snapshot together with the time it was
// fetched from the distributor.
type CachedSchedule struct {
	FetchedAt time.Time       `json:"fetchedAt"`
	EAN       string          `json:"ean"`
	Payload   SchedulePayload `json:"payload"`
}

// SignalInfo summarizes one signal code found in a payload.
type SignalInfo struct {
	Signal string `json:"signal"`
	Days   int    `json:"days"`
}

// ResolvedSchedule is the subset of windows for one selected signal code,
// restricted to yesterday, today and tomorrow relative to a reference
// instant. A zero Signal means no usable data was found; callers must treat
// that as "no data", not as a fault.
type ResolvedSchedule struct {
	Signal  string         `json:"signal"`
	Windows []SignalWindow `json:"windows"`
	// SpanStart and SpanEnd bound the resolved three-day timeline,
	// [SpanStart, SpanEnd).
	SpanStart time.Time `json:"spanStart"`
	SpanEnd   time.Time `json:"spanEnd"`
}

// Empty reports whether the schedule resolved to no usable windows.
func (r ResolvedSchedule) Empty() bool {
	return r.Signal == "" || len(r.Windows) == 0
}
