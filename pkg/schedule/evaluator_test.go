package schedule

import (
	"testing"
	"time"

	"github.com/hdowatch/hdowatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clock(t *testing.T, s string) types.ClockTime {
	t.Helper()
	c, err := types.ParseClock(s)
	require.NoError(t, err)
	return c
}

func window(t *testing.T, signal string, day time.Time, ranges ...string) types.SignalWindow {
	t.Helper()
	w := types.SignalWindow{Signal: signal, Day: day}
	for _, r := range ranges {
		start, end, ok := cutRange(r)
		require.True(t, ok, "bad test range %q", r)
		w.Ranges = append(w.Ranges, types.TimeRange{
			Start: clock(t, start),
			End:   clock(t, end),
		})
	}
	return w
}

func cutRange(s string) (string, string, bool) {
	for i := range s {
		if s[i] == '-' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func at(day time.Time, hour, minute, second int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, second, 0, day.Location())
}

func TestEvaluateSingleWindow(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, Location())
	windows := []types.SignalWindow{window(t, "A1B4DP6", day, "08:00-20:00")}

	t.Run("low active", func(t *testing.T) {
		ref := at(day, 10, 0, 0)
		state := Evaluate(Select(windows, "", ref), ref)

		require.True(t, state.LowActive)
		assert.False(t, state.HighActive)
		require.NotNil(t, state.LowStart)
		require.NotNil(t, state.LowEnd)
		assert.True(t, state.LowStart.Equal(at(day, 8, 0, 0)))
		assert.True(t, state.LowEnd.Equal(at(day, 20, 0, 0)))
		require.NotNil(t, state.LowDuration)
		assert.Equal(t, 12*time.Hour, *state.LowDuration)
		require.NotNil(t, state.HighStart)
		assert.True(t, state.HighStart.Equal(at(day, 20, 0, 0)))
		assert.Nil(t, state.HighEnd)
		assert.Nil(t, state.HighDuration)

		secs, ok := state.SecondsUntilLowEnd(ref)
		require.True(t, ok)
		assert.Equal(t, int64(36000), secs)

		_, ok = state.SecondsUntilNextLowStart(ref)
		assert.False(t, ok)
	})

	t.Run("high active after low", func(t *testing.T) {
		ref := at(day, 21, 0, 0)
		state := Evaluate(Select(windows, "", ref), ref)

		require.True(t, state.HighActive)
		assert.False(t, state.LowActive)
		require.NotNil(t, state.HighStart)
		assert.True(t, state.HighStart.Equal(at(day, 20, 0, 0)))
		// tomorrow is not published yet, so the daily pattern repeats
		require.NotNil(t, state.LowStart)
		assert.True(t, state.LowStart.Equal(at(day.AddDate(0, 0, 1), 8, 0, 0)))
		require.NotNil(t, state.HighEnd)
		assert.True(t, state.HighEnd.Equal(*state.LowStart))
		require.NotNil(t, state.HighDuration)
		assert.Equal(t, 12*time.Hour, *state.HighDuration)

		secs, ok := state.SecondsUntilNextLowStart(ref)
		require.True(t, ok)
		assert.Equal(t, int64(39600), secs)

		_, ok = state.SecondsUntilLowEnd(ref)
		assert.False(t, ok)
	})

	t.Run("high active before first low", func(t *testing.T) {
		ref := at(day, 6, 0, 0)
		state := Evaluate(Select(windows, "", ref), ref)

		require.True(t, state.HighActive)
		assert.Nil(t, state.HighStart)
		require.NotNil(t, state.LowStart)
		assert.True(t, state.LowStart.Equal(at(day, 8, 0, 0)))
		assert.Nil(t, state.HighDuration)

		secs, ok := state.SecondsUntilNextLowStart(ref)
		require.True(t, ok)
		assert.Equal(t, int64(2*3600), secs)
	})

	t.Run("half-open boundaries", func(t *testing.T) {
		resolved := Select(windows, "", at(day, 12, 0, 0))

		start := Evaluate(resolved, at(day, 8, 0, 0))
		assert.True(t, start.LowActive, "low window start belongs to the window")

		end := Evaluate(resolved, at(day, 20, 0, 0))
		assert.True(t, end.HighActive, "low window end belongs to the next high period")

		lastSecond := Evaluate(resolved, at(day, 19, 59, 59))
		assert.True(t, lastSecond.LowActive)
	})
}

func TestEvaluateMidnightCrossing(t *testing.T) {
	day := time.Date(2024, 1, 31, 0, 0, 0, 0, Location())
	next := day.AddDate(0, 0, 1)
	windows := []types.SignalWindow{window(t, "A1B4DP6", day, "22:00-06:00")}

	before := Evaluate(Select(windows, "", at(day, 23, 59, 59)), at(day, 23, 59, 59))
	after := Evaluate(Select(windows, "", at(next, 5, 59, 59)), at(next, 5, 59, 59))

	require.True(t, before.LowActive)
	require.True(t, after.LowActive)
	// both instants fall into the same low period, month boundary included
	assert.True(t, before.LowStart.Equal(*after.LowStart))
	assert.True(t, before.LowEnd.Equal(*after.LowEnd))
	assert.True(t, before.LowStart.Equal(at(day, 22, 0, 0)))
	assert.True(t, before.LowEnd.Equal(at(next, 6, 0, 0)))

	ended := Evaluate(Select(windows, "", at(next, 6, 0, 0)), at(next, 6, 0, 0))
	assert.True(t, ended.HighActive)
}

func TestEvaluateStaleWindowProjection(t *testing.T) {
	// the only published window is on the previous day and crosses midnight,
	// so a single day of projection still lands before the reference instant
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, Location())
	windows := []types.SignalWindow{window(t, "A1B4DP6", day, "22:00-06:00")}

	ref := at(day.AddDate(0, 0, 1), 23, 0, 0)
	state := Evaluate(Select(windows, "", ref), ref)

	require.True(t, state.HighActive)
	require.NotNil(t, state.HighStart)
	assert.True(t, state.HighStart.Equal(at(day.AddDate(0, 0, 1), 6, 0, 0)))
	require.NotNil(t, state.LowStart)
	assert.True(t, state.LowStart.After(ref), "projected low start must lie ahead of %s", ref)
	assert.True(t, state.LowStart.Equal(at(day.AddDate(0, 0, 2), 22, 0, 0)))
	require.NotNil(t, state.HighEnd)
	assert.True(t, state.HighEnd.Equal(*state.LowStart))

	secs, ok := state.SecondsUntilNextLowStart(ref)
	require.True(t, ok)
	assert.Equal(t, int64(23*3600), secs)
}

func TestEvaluateRangeEndingAtHour24(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, Location())
	windows := []types.SignalWindow{window(t, "A1B4DP6", day, "22:00-24:00")}

	ref := at(day, 23, 0, 0)
	state := Evaluate(Select(windows, "", ref), ref)
	require.True(t, state.LowActive)
	assert.True(t, state.LowEnd.Equal(at(day.AddDate(0, 0, 1), 0, 0, 0)))
}

func TestEvaluateMergesTouchingRanges(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, Location())
	windows := []types.SignalWindow{
		window(t, "A1B4DP6", day, "08:00-12:00", "12:00-20:00"),
	}

	ref := at(day, 12, 0, 0)
	state := Evaluate(Select(windows, "", ref), ref)
	require.True(t, state.LowActive)
	assert.True(t, state.LowStart.Equal(at(day, 8, 0, 0)))
	assert.True(t, state.LowEnd.Equal(at(day, 20, 0, 0)))
	require.NotNil(t, state.LowDuration)
	assert.Equal(t, 12*time.Hour, *state.LowDuration)
}

func TestEvaluateGapBetweenWindows(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, Location())
	next := day.AddDate(0, 0, 1)
	windows := []types.SignalWindow{
		window(t, "A1B4DP6", day, "08:00-20:00"),
		window(t, "A1B4DP6", next, "09:00-21:00"),
	}

	ref := at(day, 22, 0, 0)
	state := Evaluate(Select(windows, "", ref), ref)
	require.True(t, state.HighActive)
	assert.True(t, state.HighStart.Equal(at(day, 20, 0, 0)))
	assert.True(t, state.HighEnd.Equal(at(next, 9, 0, 0)))
	require.NotNil(t, state.HighDuration)
	assert.Equal(t, 13*time.Hour, *state.HighDuration)

	secs, ok := state.SecondsUntilHighEnd(ref)
	require.True(t, ok)
	assert.Equal(t, int64(11*3600), secs)
}

func TestEvaluateUnresolved(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, Location())

	t.Run("empty schedule", func(t *testing.T) {
		state := Evaluate(types.ResolvedSchedule{}, at(day, 10, 0, 0))
		assert.False(t, state.Resolved())

		_, ok := state.SecondsUntilLowEnd(at(day, 10, 0, 0))
		assert.False(t, ok)
		_, ok = state.SecondsUntilNextLowStart(at(day, 10, 0, 0))
		assert.False(t, ok)
		_, ok = state.SecondsUntilHighEnd(at(day, 10, 0, 0))
		assert.False(t, ok)
		_, ok = state.SecondsUntilNextHighStart(at(day, 10, 0, 0))
		assert.False(t, ok)
	})

	t.Run("reference outside resolved span", func(t *testing.T) {
		windows := []types.SignalWindow{window(t, "A1B4DP6", day, "08:00-20:00")}
		resolved := Select(windows, "", at(day, 10, 0, 0))

		state := Evaluate(resolved, resolved.SpanEnd)
		assert.False(t, state.Resolved())

		state = Evaluate(resolved, resolved.SpanStart.Add(-time.Second))
		assert.False(t, state.Resolved())
	})
}

func TestEvaluatePartition(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, Location())
	windows := []types.SignalWindow{
		window(t, "A1B4DP6", day.AddDate(0, 0, -1), "00:00-06:00", "22:00-24:00"),
		window(t, "A1B4DP6", day, "00:00-06:00", "22:00-06:00"),
		window(t, "A1B4DP6", day.AddDate(0, 0, 1), "08:00-20:00"),
	}
	resolved := Select(windows, "", at(day, 12, 0, 0))

	for ref := resolved.SpanStart; ref.Before(resolved.SpanEnd); ref = ref.Add(30 * time.Minute) {
		state := Evaluate(resolved, ref)
		assert.True(t, state.LowActive != state.HighActive,
			"exactly one tariff must be active at %s", ref)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, Location())
	windows := []types.SignalWindow{window(t, "A1B4DP6", day, "08:00-20:00")}
	ref := at(day, 10, 0, 0)
	resolved := Select(windows, "", ref)

	first := Evaluate(resolved, ref)
	second := Evaluate(resolved, ref)
	assert.Equal(t, first, second)
}
