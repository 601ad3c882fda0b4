package schedule

import (
	"sort"
	"time"

	"github.com/hdowatch/hdowatch/pkg/types"
)

// interval is one absolute low-tariff span, half-open [start, end).
type interval struct {
	start time.Time
	end   time.Time
}

func (iv interval) contains(t time.Time) bool {
	return !t.Before(iv.start) && t.Before(iv.end)
}

// Evaluate computes the tariff state at the reference instant from a
// resolved schedule. Everything not covered by a published low-tariff
// interval is high tariff: absence of a low window means the conservative
// high rate applies. An instant outside the resolved three-day span, or an
// empty schedule, yields the unresolved zero state.
func Evaluate(resolved types.ResolvedSchedule, ref time.Time) types.TariffState {
	ref = ref.In(czLocation)
	if resolved.Empty() {
		return types.TariffState{}
	}
	if ref.Before(resolved.SpanStart) || !ref.Before(resolved.SpanEnd) {
		return types.TariffState{}
	}

	lows := mergeIntervals(flatten(resolved.Windows))
	if len(lows) == 0 {
		return types.TariffState{}
	}

	for i, iv := range lows {
		if iv.contains(ref) {
			return lowState(lows, i)
		}
	}
	return highState(lows, ref)
}

// flatten anchors every published range to its window's day, expanding
// midnight-crossing ranges into the following day. AddDate keeps the
// expansion correct across month boundaries and DST changes.
func flatten(windows []types.SignalWindow) []interval {
	var ivs []interval
	for _, w := range windows {
		for _, r := range w.Ranges {
			endDay := w.Day
			if r.CrossesMidnight() {
				endDay = w.Day.AddDate(0, 0, 1)
			}
			iv := interval{
				start: r.Start.On(w.Day),
				end:   r.End.On(endDay),
			}
			if !iv.end.After(iv.start) {
				continue
			}
			ivs = append(ivs, iv)
		}
	}
	return ivs
}

// mergeIntervals sorts the intervals and merges any that touch or overlap.
// Published schedules are not guaranteed overlap-free.
func mergeIntervals(ivs []interval) []interval {
	if len(ivs) == 0 {
		return nil
	}
	sort.Slice(ivs, func(i, j int) bool {
		return ivs[i].start.Before(ivs[j].start)
	})

	merged := ivs[:1]
	for _, iv := range ivs[1:] {
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

// lowState builds the state for a reference instant inside lows[i]. The next
// high period begins the moment the low interval ends; its own end stays
// unknown until it becomes active.
func lowState(lows []interval, i int) types.TariffState {
	iv := lows[i]
	duration := iv.end.Sub(iv.start)
	return types.TariffState{
		LowActive:   true,
		LowStart:    &iv.start,
		LowEnd:      &iv.end,
		LowDuration: &duration,
		HighStart:   &iv.end,
	}
}

// highState builds the state for a reference instant between low intervals.
// The high period is bounded by the surrounding low intervals. When the
// payload does not yet carry tomorrow's windows, the next low start is
// projected forward in whole days from the most recent low window, since
// published signal patterns repeat daily. The start of a high period already running
// before the first published low window stays nil.
func highState(lows []interval, ref time.Time) types.TariffState {
	state := types.TariffState{HighActive: true}

	var prev *interval
	for i := len(lows) - 1; i >= 0; i-- {
		if !lows[i].end.After(ref) {
			prev = &lows[i]
			break
		}
	}
	if prev != nil {
		state.HighStart = &prev.end
	}

	var nextLowStart time.Time
	for i := range lows {
		if lows[i].start.After(ref) {
			nextLowStart = lows[i].start
			break
		}
	}
	if nextLowStart.IsZero() && prev != nil {
		// a stale snapshot may put even the projected start in the past,
		// keep advancing until it names a window that has not begun yet
		nextLowStart = prev.start.AddDate(0, 0, 1)
		for !nextLowStart.After(ref) {
			nextLowStart = nextLowStart.AddDate(0, 0, 1)
		}
	}
	if !nextLowStart.IsZero() {
		state.HighEnd = &nextLowStart
		state.LowStart = &nextLowStart
	}

	if state.HighStart != nil && state.HighEnd != nil {
		duration := state.HighEnd.Sub(*state.HighStart)
		state.HighDuration = &duration
	}
	return state
}
