// Command signals lists the signal codes published for a metering point and
// shows which tariff each code resolves to right now. Useful for figuring
// out which code to pin in settings.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hdowatch/hdowatch/pkg/distributor"
	"github.com/hdowatch/hdowatch/pkg/log"
	"github.com/hdowatch/hdowatch/pkg/schedule"
	"github.com/hdowatch/hdowatch/pkg/types"

	"github.com/levenlabs/go-lflag"
)

func main() {
	d := distributor.Configured()
	ean := lflag.RequiredString("ean", "Metering point EAN to look up")
	lflag.Configure()

	ctx := context.Background()

	payload, err := d.GetSchedule(ctx, *ean)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch schedule", "error", err)
		os.Exit(1)
	}

	windows := schedule.Windows(ctx, payload)
	infos := schedule.Signals(windows)
	if len(infos) == 0 {
		fmt.Println("no signals published for this EAN")
		return
	}

	now := time.Now().In(schedule.Location())
	fmt.Printf("signals for EAN %s as of %s:\n", *ean, now.Format(time.RFC3339))
	for _, info := range infos {
		resolved := schedule.Select(windows, info.Signal, now)
		state := schedule.Evaluate(resolved, now)

		fmt.Printf("  %-12s %d day(s)  tariff=%s", info.Signal, info.Days, tariffName(state))
		if state.LowActive && state.LowEnd != nil {
			fmt.Printf("  low until %s", state.LowEnd.Format("15:04"))
		}
		if state.HighActive && state.HighEnd != nil {
			fmt.Printf("  low again at %s", state.HighEnd.Format("15:04"))
		}
		fmt.Println()
	}
}

func tariffName(state types.TariffState) string {
	switch {
	case state.LowActive:
		return "low"
	case state.HighActive:
		return "high"
	default:
		return "unknown"
	}
}
