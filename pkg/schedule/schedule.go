// Package schedule resolves distributor-published grid signal schedules into
// low/high tariff periods against a reference instant.
package schedule

import (
	"fmt"
	"time"
)

var (
	// CEZ publishes HDO schedules in Czech civil time; every instant is
	// localized here at the boundary and evaluated timezone-naive after that.
	czLocation = func() *time.Location {
		loc, err := time.LoadLocation("Europe/Prague")
		if err != nil {
			panic(fmt.Errorf("failed to load czech time location: %w", err))
		}
		return loc
	}()
)

// Location returns the fixed civil timezone all schedules are evaluated in.
func Location() *time.Location {
	return czLocation
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
