package types

import (
	"fmt"
)

// CurrentSettingsVersion is the current version of the settings struct.
// Increment this value when adding new fields that require default values.
const CurrentSettingsVersion = 2

// Settings represents the configuration stored in the database.
// These are dynamic settings that can be changed without redeploying.
type Settings struct {
	// Pause the daily schedule refresh
	Pause bool `json:"pause"`

	// EAN is the metering point identifier the distributor keys schedules on.
	EAN string `json:"ean"`

	// PreferredSignal pins the grid signal code to evaluate. When empty, the
	// signal appearing on the most distinct days in the payload is used.
	PreferredSignal string `json:"preferredSignal"`

	// RefreshHour is the local hour of day at which the schedule payload is
	// refetched from the distributor.
	RefreshHour int `json:"refreshHour"`
}

// MigrateSettings migrates the settings to the current version.
// It returns the migrated settings, a boolean indicating if changes were made, and an error if migration failed.
func MigrateSettings(s Settings, currentVersion int) (Settings, bool, error) {
	if currentVersion >= CurrentSettingsVersion {
		return s, false, nil
	}

	migrated := false
	// Loop through versions to apply migrations sequentially
	for version := currentVersion + 1; version <= CurrentSettingsVersion; version++ {
		switch version {
		case 1:
			// version 1: initial
			if s.RefreshHour == 0 {
				// the distributor publishes the next day shortly after
				// midnight, so refresh at 01:00 local
				s.RefreshHour = 1
				migrated = true
			}
		case 2:
			// version 2: add PreferredSignal
			// no default; empty means frequency-based selection
		default:
			return s, false, fmt.Errorf("unknown settings version: %d", version)
		}
	}

	return s, migrated, nil
}
