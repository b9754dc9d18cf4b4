package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEscalationPolicy(t *testing.T) {
	tests := []struct {
		name       string
		thresholds []time.Duration
		wantErr    bool
	}{
		{name: "valid increasing", thresholds: []time.Duration{2 * time.Hour, 6 * time.Hour, 14 * time.Hour}},
		{name: "single level", thresholds: []time.Duration{time.Hour}},
		{name: "empty", thresholds: nil, wantErr: true},
		{name: "not increasing", thresholds: []time.Duration{6 * time.Hour, 2 * time.Hour}, wantErr: true},
		{name: "duplicate", thresholds: []time.Duration{2 * time.Hour, 2 * time.Hour}, wantErr: true},
		{name: "zero threshold", thresholds: []time.Duration{0, time.Hour}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := NewEscalationPolicy(tt.thresholds)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.thresholds), policy.MaxLevel())
		})
	}
}

func TestNextLevelDue(t *testing.T) {
	policy := DefaultEscalationPolicy()

	tests := []struct {
		name         string
		currentLevel int
		elapsed      time.Duration
		want         bool
	}{
		{name: "level 0 before first threshold", currentLevel: 0, elapsed: 90 * time.Minute, want: false},
		{name: "level 0 exactly at threshold", currentLevel: 0, elapsed: 2 * time.Hour, want: true},
		{name: "level 0 past threshold", currentLevel: 0, elapsed: 3 * time.Hour, want: true},
		// No level skipping: a job far past the last threshold still only
		// qualifies for the next level up.
		{name: "level 0 far past all thresholds", currentLevel: 0, elapsed: 48 * time.Hour, want: true},
		{name: "level 1 before second threshold", currentLevel: 1, elapsed: 5 * time.Hour, want: false},
		{name: "level 1 at second threshold", currentLevel: 1, elapsed: 6 * time.Hour, want: true},
		{name: "level 2 at final threshold", currentLevel: 2, elapsed: 14 * time.Hour, want: true},
		{name: "level 3 is terminal", currentLevel: 3, elapsed: 100 * time.Hour, want: false},
		{name: "level beyond policy", currentLevel: 7, elapsed: 100 * time.Hour, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.NextLevelDue(tt.currentLevel, tt.elapsed))
		})
	}
}

func TestThreshold(t *testing.T) {
	policy := DefaultEscalationPolicy()

	th, ok := policy.Threshold(1)
	require.True(t, ok)
	assert.Equal(t, 2*time.Hour, th)

	th, ok = policy.Threshold(3)
	require.True(t, ok)
	assert.Equal(t, 14*time.Hour, th)

	_, ok = policy.Threshold(0)
	assert.False(t, ok)
	_, ok = policy.Threshold(4)
	assert.False(t, ok)
}
