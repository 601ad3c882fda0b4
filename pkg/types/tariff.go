package types

import (
	"time"
)

// TariffState is an immutable snapshot of which tariff period is active at a
// reference instant, produced fresh on every evaluation.
//
// When LowActive is true, LowStart/LowEnd/LowDuration describe the currently
// running low window and HighStart is the start of the next high period; its
// end and duration stay nil until it becomes active itself. The high case is
// symmetric. Both flags are false only when no schedule data was available.
type TariffState struct {
	LowActive  bool `json:"lowActive"`
	HighActive bool `json:"highActive"`

	LowStart    *time.Time     `json:"lowStart,omitempty"`
	LowEnd      *time.Time     `json:"lowEnd,omitempty"`
	LowDuration *time.Duration `json:"lowDuration,omitempty"`

	HighStart    *time.Time     `json:"highStart,omitempty"`
	HighEnd      *time.Time     `json:"highEnd,omitempty"`
	HighDuration *time.Duration `json:"highDuration,omitempty"`
}

// Resolved reports whether the state was evaluated against usable schedule
// data. An unresolved state answers false to every countdown query.
func (t TariffState) Resolved() bool {
	return t.LowActive || t.HighActive
}

// SecondsUntilLowEnd returns the whole seconds until the current low period
// ends. It is defined only while low tariff is active; otherwise it returns
// false.
func (t TariffState) SecondsUntilLowEnd(now time.Time) (int64, bool) {
	if !t.LowActive || t.LowEnd == nil {
		return 0, false
	}
	return secondsUntil(*t.LowEnd, now), true
}

// SecondsUntilHighEnd returns the whole seconds until the current high period
// ends. It is defined only while high tariff is active and the end of the
// period is known.
func (t TariffState) SecondsUntilHighEnd(now time.Time) (int64, bool) {
	if !t.HighActive || t.HighEnd == nil {
		return 0, false
	}
	return secondsUntil(*t.HighEnd, now), true
}

// SecondsUntilNextLowStart returns the whole seconds until the next low
// period begins. It is defined only while low tariff is not active and a
// future low window is published.
func (t TariffState) SecondsUntilNextLowStart(now time.Time) (int64, bool) {
	if t.LowActive || !t.Resolved() || t.LowStart == nil {
		return 0, false
	}
	return secondsUntil(*t.LowStart, now), true
}

// SecondsUntilNextHighStart returns the whole seconds until the next high
// period begins. It is defined only while high tariff is not active.
func (t TariffState) SecondsUntilNextHighStart(now time.Time) (int64, bool) {
	if t.HighActive || !t.Resolved() || t.HighStart == nil {
		return 0, false
	}
	return secondsUntil(*t.HighStart, now), true
}

// secondsUntil computes target-now in whole seconds, floored at zero. A
// target at or before now can only happen when the caller evaluates against
// an instant recomputed later than the state snapshot; in that case the
// comparison advances by one calendar day, which keeps daily schedules
// correct across month boundaries unlike naive day arithmetic.
func secondsUntil(target, now time.Time) int64 {
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	secs := int64(target.Sub(now) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}
