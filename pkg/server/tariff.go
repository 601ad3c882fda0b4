package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hdowatch/hdowatch/pkg/log"
	"github.com/hdowatch/hdowatch/pkg/schedule"
	"github.com/hdowatch/hdowatch/pkg/types"
)

// StateRes is the response type for /api/state. Countdown fields are null
// whenever the underlying period bound is unknown.
type StateRes struct {
	types.TariffState
	Tariff      string    `json:"tariff"`
	Signal      string    `json:"signal"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
	FetchedAt   time.Time `json:"fetchedAt"`

	SecondsUntilLowEnd        *int64 `json:"secondsUntilLowEnd"`
	SecondsUntilHighEnd       *int64 `json:"secondsUntilHighEnd"`
	SecondsUntilNextLowStart  *int64 `json:"secondsUntilNextLowStart"`
	SecondsUntilNextHighStart *int64 `json:"secondsUntilNextHighStart"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	windows, fetchedAt := s.snapshot()
	ref := time.Now().In(schedule.Location())
	resolved := schedule.Select(windows, settings.PreferredSignal, ref)
	state := schedule.Evaluate(resolved, ref)

	res := StateRes{
		TariffState: state,
		Tariff:      tariffName(state),
		Signal:      resolved.Signal,
		EvaluatedAt: ref,
		FetchedAt:   fetchedAt,

		SecondsUntilLowEnd:        optSeconds(state.SecondsUntilLowEnd, ref),
		SecondsUntilHighEnd:       optSeconds(state.SecondsUntilHighEnd, ref),
		SecondsUntilNextLowStart:  optSeconds(state.SecondsUntilNextLowStart, ref),
		SecondsUntilNextHighStart: optSeconds(state.SecondsUntilNextHighStart, ref),
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		panic(http.ErrAbortHandler)
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

func optSeconds(query func(time.Time) (int64, bool), now time.Time) *int64 {
	secs, ok := query(now)
	if !ok {
		return nil
	}
	return &secs
}

// ScheduleRes is the response type for /api/schedule.
type ScheduleRes struct {
	types.ResolvedSchedule
	FetchedAt time.Time `json:"fetchedAt"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	settings, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	windows, fetchedAt := s.snapshot()
	ref := time.Now().In(schedule.Location())

	res := ScheduleRes{
		ResolvedSchedule: schedule.Select(windows, settings.PreferredSignal, ref),
		FetchedAt:        fetchedAt,
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// SignalsRes is the response type for /api/signals.
type SignalsRes struct {
	Signals   []types.SignalInfo `json:"signals"`
	FetchedAt time.Time          `json:"fetchedAt"`
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	windows, fetchedAt := s.snapshot()

	res := SignalsRes{
		Signals:   schedule.Signals(windows),
		FetchedAt: fetchedAt,
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// RefreshRes is the response type for /api/refresh.
type RefreshRes struct {
	FetchedAt time.Time `json:"fetchedAt"`
	Windows   int       `json:"windows"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.refresh(ctx); err != nil {
		if errors.Is(err, errNoEAN) {
			writeJSONError(w, "no ean configured", http.StatusBadRequest)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "schedule refresh failed", slog.Any("error", err))
		writeJSONError(w, "failed to refresh schedule", http.StatusBadGateway)
		return
	}

	windows, fetchedAt := s.snapshot()
	res := RefreshRes{
		FetchedAt: fetchedAt,
		Windows:   len(windows),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		panic(http.ErrAbortHandler)
	}
}
