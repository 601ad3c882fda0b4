package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hdowatch/hdowatch/pkg/log"
	"github.com/hdowatch/hdowatch/pkg/schedule"
	"github.com/hdowatch/hdowatch/pkg/storage"
	"github.com/hdowatch/hdowatch/pkg/types"
)

// errNoEAN means the schedule cannot be refreshed until an EAN is saved in
// settings. Callers treat it as a configuration problem, not a fetch failure.
var errNoEAN = errors.New("no ean configured")

// loadSchedule primes the in-memory snapshot. A snapshot already persisted
// today is preferred over a fresh fetch so restarts do not hammer the
// distributor.
func (s *Server) loadSchedule(ctx context.Context) error {
	settings, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if settings.EAN == "" {
		log.Ctx(ctx).InfoContext(ctx, "no ean configured yet, skipping schedule load")
		return nil
	}

	snapshot, err := s.storage.GetCachedSchedule(ctx)
	if err == nil && snapshot.EAN == settings.EAN && fetchedToday(snapshot.FetchedAt) {
		s.setSnapshot(ctx, snapshot)
		return nil
	}
	if err != nil && !errors.Is(err, storage.ErrScheduleNotCached) {
		log.Ctx(ctx).WarnContext(ctx, "failed to read cached schedule", slog.Any("error", err))
	}

	return s.refresh(ctx)
}

// refresh fetches the schedule from the distributor, persists it, and swaps
// the in-memory snapshot.
func (s *Server) refresh(ctx context.Context) error {
	settings, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if settings.EAN == "" {
		return errNoEAN
	}

	payload, err := s.distributor.GetSchedule(ctx, settings.EAN)
	if err != nil {
		return fmt.Errorf("failed to fetch schedule: %w", err)
	}

	snapshot := types.CachedSchedule{
		FetchedAt: time.Now().In(schedule.Location()),
		EAN:       settings.EAN,
		Payload:   payload,
	}
	if err := s.storage.PutCachedSchedule(ctx, snapshot); err != nil {
		// the snapshot is still usable this run, it just won't survive a restart
		log.Ctx(ctx).ErrorContext(ctx, "failed to persist schedule snapshot", slog.Any("error", err))
	}

	s.setSnapshot(ctx, snapshot)
	return nil
}

func (s *Server) setSnapshot(ctx context.Context, snapshot types.CachedSchedule) {
	windows := schedule.Windows(ctx, snapshot.Payload)

	s.mu.Lock()
	s.windows = windows
	s.fetchedAt = snapshot.FetchedAt
	s.snapshotEAN = snapshot.EAN
	s.mu.Unlock()

	log.Ctx(ctx).InfoContext(
		ctx,
		"schedule snapshot updated",
		slog.String("ean", snapshot.EAN),
		slog.Int("windows", len(windows)),
		slog.Time("fetchedAt", snapshot.FetchedAt),
	)
}

func (s *Server) snapshot() ([]types.SignalWindow, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.windows, s.fetchedAt
}

// refreshLoop refetches the schedule once a day at the configured hour.
func (s *Server) refreshLoop(ctx context.Context) {
	for {
		next := s.nextRefresh(ctx, time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		settings, err := s.getSettingsWithMigration(ctx)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to get settings for refresh", slog.Any("error", err))
			continue
		}
		if settings.Pause {
			log.Ctx(ctx).InfoContext(ctx, "schedule refresh paused")
			continue
		}
		if err := s.refresh(ctx); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "daily schedule refresh failed", slog.Any("error", err))
		}
	}
}

// nextRefresh returns the next instant the daily refresh should run, at the
// configured local hour. AddDate keeps this correct across DST changes.
func (s *Server) nextRefresh(ctx context.Context, now time.Time) time.Time {
	hour := 1
	settings, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to get settings for refresh schedule", slog.Any("error", err))
	} else {
		hour = settings.RefreshHour
	}

	now = now.In(schedule.Location())
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func fetchedToday(fetchedAt time.Time) bool {
	now := time.Now().In(schedule.Location())
	fetchedAt = fetchedAt.In(schedule.Location())
	return fetchedAt.Year() == now.Year() && fetchedAt.YearDay() == now.YearDay()
}
