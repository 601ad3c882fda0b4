package schedule

import (
	"sort"
	"time"

	"github.com/hdowatch/hdowatch/pkg/types"
)

// Select picks the applicable signal code and restricts its windows to
// yesterday, today and tomorrow relative to the reference instant. It is a
// pure function of its inputs.
//
// When preferred is non-empty it must occur in the windows; an absent
// preferred code yields an empty schedule, not an error, since "no data" is
// an expected steady state. When preferred is empty the code published for
// the most distinct days wins, ties broken by the lexicographically smallest
// code, so the default choice is deterministic.
func Select(windows []types.SignalWindow, preferred string, ref time.Time) types.ResolvedSchedule {
	ref = ref.In(czLocation)
	dayStart := truncateDay(ref)
	spanStart := dayStart.AddDate(0, 0, -1)
	spanEnd := dayStart.AddDate(0, 0, 2)

	signal := preferred
	if signal != "" {
		if !signalPresent(windows, signal) {
			return types.ResolvedSchedule{SpanStart: spanStart, SpanEnd: spanEnd}
		}
	} else {
		signal = defaultSignal(windows)
		if signal == "" {
			return types.ResolvedSchedule{SpanStart: spanStart, SpanEnd: spanEnd}
		}
	}

	var selected []types.SignalWindow
	for _, w := range windows {
		if w.Signal != signal {
			continue
		}
		if w.Day.Before(spanStart) || !w.Day.Before(spanEnd) {
			continue
		}
		selected = append(selected, w)
	}
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].Day.Before(selected[j].Day)
	})

	return types.ResolvedSchedule{
		Signal:    signal,
		Windows:   selected,
		SpanStart: spanStart,
		SpanEnd:   spanEnd,
	}
}

func signalPresent(windows []types.SignalWindow, signal string) bool {
	for _, w := range windows {
		if w.Signal == signal {
			return true
		}
	}
	return false
}

// defaultSignal returns the code appearing on the most distinct days,
// breaking ties by the smallest code.
func defaultSignal(windows []types.SignalWindow) string {
	var best string
	var bestDays int
	for _, info := range Signals(windows) {
		if info.Days > bestDays {
			best = info.Signal
			bestDays = info.Days
		}
	}
	return best
}
