package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c, err := ParseClock("08:30")
		require.NoError(t, err)
		assert.Equal(t, ClockTime{Hour: 8, Minute: 30}, c)
		assert.Equal(t, "08:30", c.String())

		c, err = ParseClock("0:05")
		require.NoError(t, err)
		assert.Equal(t, ClockTime{Hour: 0, Minute: 5}, c)

		c, err = ParseClock(" 22:00 ")
		require.NoError(t, err)
		assert.Equal(t, ClockTime{Hour: 22, Minute: 0}, c)
	})

	t.Run("midnight as 24:00", func(t *testing.T) {
		c, err := ParseClock("24:00")
		require.NoError(t, err)
		assert.Equal(t, 24*60, c.Minutes())

		_, err = ParseClock("24:01")
		assert.Error(t, err)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, s := range []string{"", "8", "8:", ":30", "25:00", "12:60", "ab:cd", "-1:00"} {
			_, err := ParseClock(s)
			assert.Error(t, err, "expected error for %q", s)
		}
	})
}

func TestClockTimeOn(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Prague")
	require.NoError(t, err)
	day := time.Date(2024, 1, 31, 0, 0, 0, 0, loc)

	at := ClockTime{Hour: 22, Minute: 15}.On(day)
	assert.Equal(t, time.Date(2024, 1, 31, 22, 15, 0, 0, loc), at)

	// hour 24 rolls into the next day, across the month boundary
	at = ClockTime{Hour: 24}.On(day)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, loc), at)
}

func TestTimeRangeCrossesMidnight(t *testing.T) {
	r := TimeRange{Start: ClockTime{Hour: 8}, End: ClockTime{Hour: 20}}
	assert.False(t, r.CrossesMidnight())

	r = TimeRange{Start: ClockTime{Hour: 22}, End: ClockTime{Hour: 6}}
	assert.True(t, r.CrossesMidnight())

	// equal start and end is an empty range, not a full day
	r = TimeRange{Start: ClockTime{Hour: 8}, End: ClockTime{Hour: 8}}
	assert.False(t, r.CrossesMidnight())
}

func TestResolvedScheduleEmpty(t *testing.T) {
	assert.True(t, ResolvedSchedule{}.Empty())
	assert.True(t, ResolvedSchedule{Signal: "a1b2"}.Empty())
	assert.False(t, ResolvedSchedule{
		Signal:  "a1b2",
		Windows: []SignalWindow{{Signal: "a1b2"}},
	}.Empty())
}
