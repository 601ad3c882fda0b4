// Package distributor fetches published grid signal schedules from
// electricity distributors.
package distributor

import (
	"context"

	"github.com/hdowatch/hdowatch/pkg/types"
)

// Client defines the interface for fetching signal schedules.
type Client interface {
	// GetSchedule returns the published signal schedule for the given
	// metering point EAN.
	GetSchedule(ctx context.Context, ean string) (types.SchedulePayload, error)
}

// Configured sets up the distributor clients and returns the one to use.
// CEZ is the only distributor publishing HDO schedules this way today.
func Configured() Client {
	return configuredCEZ()
}
