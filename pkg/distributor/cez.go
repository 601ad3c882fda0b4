package distributor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hdowatch/hdowatch/pkg/common"
	"github.com/hdowatch/hdowatch/pkg/log"
	"github.com/hdowatch/hdowatch/pkg/schedule"
	"github.com/hdowatch/hdowatch/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// the portal occasionally returns transient 5xx responses shortly after
// midnight when the next day is being published
const fetchAttempts = 2

var retryDelay = 2 * time.Second

// CEZ implements the Client interface for the CEZ Distribuce HDO portal.
// The portal keys schedules on the metering point EAN and publishes at most
// a few days at a time, so responses are cached per calendar day.
type CEZ struct {
	apiURL string
	client *http.Client

	mu     sync.Mutex
	cached map[string]cachedPayload
}

type cachedPayload struct {
	day     time.Time
	payload types.SchedulePayload
}

// configuredCEZ sets up flags for the CEZ portal and returns the instance.
func configuredCEZ() *CEZ {
	c := &CEZ{
		client: common.HTTPClient(10 * time.Second),
		cached: make(map[string]cachedPayload),
	}
	apiURL := lflag.String("cez-api-url", "https://dip.cezdistribuce.cz/irj/portal/anonymous/hdo", "URL for the CEZ Distribuce HDO API")

	lflag.Do(func() {
		c.apiURL = *apiURL
	})

	return c
}

// GetSchedule returns the signal schedule for the given EAN. A payload
// already fetched today is served from memory; the portal only changes its
// response once a day.
func (c *CEZ) GetSchedule(ctx context.Context, ean string) (types.SchedulePayload, error) {
	if ean == "" {
		return types.SchedulePayload{}, fmt.Errorf("ean is required")
	}

	today := truncateDay(time.Now().In(schedule.Location()))

	c.mu.Lock()
	if cached, ok := c.cached[ean]; ok && cached.day.Equal(today) {
		c.mu.Unlock()
		return cached.payload, nil
	}
	c.mu.Unlock()

	var payload types.SchedulePayload
	var err error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		payload, err = c.fetch(ctx, ean)
		if err == nil {
			break
		}
		log.Ctx(ctx).WarnContext(
			ctx,
			"cez schedule fetch failed",
			slog.Int("attempt", attempt),
			slog.String("ean", ean),
			slog.Any("error", err),
		)
		if attempt < fetchAttempts {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return types.SchedulePayload{}, ctx.Err()
			}
		}
	}
	if err != nil {
		return types.SchedulePayload{}, fmt.Errorf("failed to fetch cez schedule: %w", err)
	}

	if payload.Empty() {
		log.Ctx(ctx).WarnContext(ctx, "cez returned no signals", slog.String("ean", ean))
		return payload, nil
	}

	c.mu.Lock()
	c.cached[ean] = cachedPayload{day: today, payload: payload}
	c.mu.Unlock()

	return payload, nil
}

func (c *CEZ) fetch(ctx context.Context, ean string) (types.SchedulePayload, error) {
	log.Ctx(ctx).DebugContext(ctx, "fetching cez schedule", slog.String("ean", ean), slog.String("url", c.apiURL))

	body, err := json.Marshal(map[string]string{"ean": ean})
	if err != nil {
		return types.SchedulePayload{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return types.SchedulePayload{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := c.client.Do(req)
	if err != nil {
		return types.SchedulePayload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return types.SchedulePayload{}, fmt.Errorf("cez api status: %d", resp.StatusCode)
	}

	var payload types.SchedulePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return types.SchedulePayload{}, fmt.Errorf("failed to decode cez response: %w", err)
	}

	log.Ctx(ctx).DebugContext(ctx, "fetched cez schedule", slog.String("ean", ean), slog.Int("signals", len(payload.Data.Signals)))
	return payload, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
