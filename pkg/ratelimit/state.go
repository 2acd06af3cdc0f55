// Package ratelimit keeps a shared error budget for the node API.
//
// Every server or network failure spends one unit of the budget. The budget
// lives in Redis so that all processes talking to the same node see the same
// state, and it refills when the window key expires. Requests are throttled
// when the budget runs low and blocked when it is nearly spent, which keeps a
// struggling node from being hammered by page renders.
package ratelimit

import (
	"time"
)

// Redis keys for error budget state storage.
const (
	RedisKeyErrorsRemaining = "nrs:error_budget:errors_remaining"
	RedisKeyLastUpdate      = "nrs:error_budget:last_update"
)

// Thresholds for budget decisions.
const (
	// ErrorThresholdCritical blocks requests when errors remaining falls below this value.
	ErrorThresholdCritical = 5

	// ErrorThresholdWarning throttles requests when errors remaining falls below this value.
	ErrorThresholdWarning = 20

	// ErrorThresholdHealthy marks the budget healthy at or above this value.
	ErrorThresholdHealthy = 50
)

// BudgetState is a snapshot of the node error budget.
type BudgetState struct {
	// ErrorsRemaining is how many more failures the window tolerates.
	ErrorsRemaining int `json:"errors_remaining"`

	// ResetAt is when the window expires and the budget refills.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when a failure was last recorded.
	LastUpdate time.Time `json:"last_update"`

	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if no failure has been recorded for maxAge.
func (s *BudgetState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *BudgetState) NeedsCriticalBlock() bool {
	return s.ErrorsRemaining < ErrorThresholdCritical
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *BudgetState) NeedsThrottling() bool {
	return s.ErrorsRemaining < ErrorThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the budget refills, or 0.
func (s *BudgetState) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// UpdateHealth updates IsHealthy from ErrorsRemaining.
func (s *BudgetState) UpdateHealth() {
	s.IsHealthy = s.ErrorsRemaining >= ErrorThresholdHealthy
}
