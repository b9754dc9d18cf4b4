package model

import (
	"strings"
	"time"
)

// MutePreference is a recipient's notification mute policy as read from the
// external record store. The store only supports date columns, so a global
// mute "until day D" is stored as the day after D: a plain storedDate > today
// comparison then yields the correct boolean without a half-day flag.
//
// This type is read-only from the scheduler's perspective; the settings
// surface that writes it lives elsewhere.
type MutePreference struct {
	// MutedUntil is the stored exclusive end date of a global mute, or nil.
	MutedUntil *time.Time

	// MutedJobIDs is the raw comma-separated set of per-job mutes. It is
	// parsed fresh on each check so a mute applied mid-cycle takes effect on
	// the next read.
	MutedJobIDs string
}

// GloballyMuted reports whether the recipient is muted for all jobs as of
// now, using date granularity.
func (m *MutePreference) GloballyMuted(now time.Time) bool {
	if m == nil || m.MutedUntil == nil {
		return false
	}
	stored := dateOnly(*m.MutedUntil)
	return stored.After(dateOnly(now))
}

// JobMuted reports whether the given external job ID appears in the
// per-job mute set. Matching is exact and case-sensitive.
func (m *MutePreference) JobMuted(jobID string) bool {
	if m == nil || jobID == "" || m.MutedJobIDs == "" {
		return false
	}
	for _, id := range strings.Split(m.MutedJobIDs, ",") {
		if strings.TrimSpace(id) == jobID {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
