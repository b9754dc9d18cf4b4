package model

import (
	"fmt"
	"time"
)

// EscalationPolicy is the ordered table mapping escalation level to the
// minimum elapsed time since a job's scheduled start. Thresholds[0] is the
// threshold for level 1. The policy is immutable configuration; it is not
// persisted per job.
type EscalationPolicy struct {
	thresholds []time.Duration
}

// NewEscalationPolicy validates and builds a policy from level thresholds.
// Thresholds must be positive and strictly increasing.
func NewEscalationPolicy(thresholds []time.Duration) (EscalationPolicy, error) {
	if len(thresholds) == 0 {
		return EscalationPolicy{}, fmt.Errorf("escalation policy requires at least one threshold")
	}
	prev := time.Duration(0)
	for i, th := range thresholds {
		if th <= prev {
			return EscalationPolicy{}, fmt.Errorf("escalation threshold for level %d must exceed %v, got %v", i+1, prev, th)
		}
		prev = th
	}
	cp := make([]time.Duration, len(thresholds))
	copy(cp, thresholds)
	return EscalationPolicy{thresholds: cp}, nil
}

// DefaultEscalationPolicy returns the production reminder schedule:
// level 1 after 2h, level 2 after 6h, level 3 after 14h.
func DefaultEscalationPolicy() EscalationPolicy {
	policy, err := NewEscalationPolicy([]time.Duration{2 * time.Hour, 6 * time.Hour, 14 * time.Hour})
	if err != nil {
		panic(err) // static thresholds, cannot fail
	}
	return policy
}

// MaxLevel returns the highest escalation level the policy defines.
func (p EscalationPolicy) MaxLevel() int {
	return len(p.thresholds)
}

// Threshold returns the minimum elapsed time required to reach the given
// level (1-based). Levels outside the policy return false.
func (p EscalationPolicy) Threshold(level int) (time.Duration, bool) {
	if level < 1 || level > len(p.thresholds) {
		return 0, false
	}
	return p.thresholds[level-1], true
}

// NextLevelDue reports whether a job at currentLevel has been overdue long
// enough to advance one level. Exactly at the threshold counts as due.
// Levels never skip: the candidate is always currentLevel+1 regardless of
// how many thresholds have elapsed.
func (p EscalationPolicy) NextLevelDue(currentLevel int, elapsed time.Duration) bool {
	threshold, ok := p.Threshold(currentLevel + 1)
	if !ok {
		return false
	}
	return elapsed >= threshold
}
