package schedule

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hdowatch/hdowatch/pkg/log"
	"github.com/hdowatch/hdowatch/pkg/types"
)

// dateLayouts are the day formats seen in distributor payloads. The feed
// normally carries "2.1.2006" style dates but some responses use ISO dates.
var dateLayouts = []string{"2.1.2006", "2006-01-02"}

// Windows parses every entry of a raw payload into signal windows. Entries
// with an unparsable day or time field are skipped with a warning;
// a malformed record never aborts the rest of the payload.
func Windows(ctx context.Context, payload types.SchedulePayload) []types.SignalWindow {
	windows := make([]types.SignalWindow, 0, len(payload.Data.Signals))
	for _, entry := range payload.Data.Signals {
		w, err := parseEntry(entry)
		if err != nil {
			log.Ctx(ctx).WarnContext(
				ctx,
				"skipping malformed schedule entry",
				slog.String("signal", entry.Signal),
				slog.String("date", entry.Date),
				slog.String("times", entry.Times),
				slog.Any("error", err),
			)
			continue
		}
		windows = append(windows, w)
	}
	return windows
}

func parseEntry(entry types.SignalEntry) (types.SignalWindow, error) {
	signal := strings.TrimSpace(entry.Signal)
	if signal == "" {
		return types.SignalWindow{}, errEmptySignal
	}

	day, err := parseDay(entry.Date)
	if err != nil {
		return types.SignalWindow{}, err
	}

	ranges, err := parseRanges(entry.Times)
	if err != nil {
		return types.SignalWindow{}, err
	}

	return types.SignalWindow{
		Signal: signal,
		Day:    day,
		Ranges: ranges,
	}, nil
}

func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if day, err := time.ParseInLocation(layout, s, czLocation); err == nil {
			return truncateDay(day), nil
		}
	}
	return time.Time{}, &parseError{field: "datum", value: s}
}

// parseRanges parses a published times field like "00:00-06:00; 22:00-24:00".
// Ranges are kept in published order; an end before its start denotes a
// midnight crossing and is resolved later when anchored to a day.
func parseRanges(s string) ([]types.TimeRange, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ','
	})

	var ranges []types.TimeRange
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		startStr, endStr, ok := strings.Cut(part, "-")
		if !ok {
			return nil, &parseError{field: "casy", value: part}
		}
		start, err := types.ParseClock(startStr)
		if err != nil {
			return nil, &parseError{field: "casy", value: part}
		}
		end, err := types.ParseClock(endStr)
		if err != nil {
			return nil, &parseError{field: "casy", value: part}
		}
		if end.Minutes() == start.Minutes() {
			// a zero-length range like "08:00-08:00" carries no low time
			continue
		}
		ranges = append(ranges, types.TimeRange{Start: start, End: end})
	}
	if len(ranges) == 0 {
		return nil, &parseError{field: "casy", value: s}
	}
	return ranges, nil
}

// Signals summarizes the signal codes present in the given windows, counting
// the distinct days each code is published for. The result is sorted by
// signal code.
func Signals(windows []types.SignalWindow) []types.SignalInfo {
	days := make(map[string]map[string]struct{})
	for _, w := range windows {
		key := w.Day.Format("2006-01-02")
		if days[w.Signal] == nil {
			days[w.Signal] = make(map[string]struct{})
		}
		days[w.Signal][key] = struct{}{}
	}

	infos := make([]types.SignalInfo, 0, len(days))
	for signal, d := range days {
		infos = append(infos, types.SignalInfo{Signal: signal, Days: len(d)})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Signal < infos[j].Signal
	})
	return infos
}
