package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	nodeErrorsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nrs_node_errors_remaining",
		Help: "Node failures tolerated in the current error budget window",
	})

	nodeBudgetBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nrs_node_budget_blocks_total",
		Help: "Total number of requests blocked because the error budget is exhausted",
	})

	nodeBudgetThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nrs_node_budget_throttles_total",
		Help: "Total number of requests throttled because the error budget is low",
	})
)

// Config holds the error budget configuration.
type Config struct {
	// Capacity is the number of failures tolerated per window.
	Capacity int

	// Window is how long a budget lasts before it refills.
	Window time.Duration

	// ThrottleDelay is the pause applied to requests while the budget is low.
	ThrottleDelay time.Duration
}

// DefaultConfig returns the default budget: 100 failures per minute.
func DefaultConfig() Config {
	return Config{
		Capacity:      100,
		Window:        60 * time.Second,
		ThrottleDelay: 1 * time.Second,
	}
}

// Tracker records node failures and gates requests on the remaining budget.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
	config Config
}

// NewTracker creates a new error budget tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger, cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.ThrottleDelay < 0 {
		cfg.ThrottleDelay = 0
	}

	return &Tracker{
		redis:  redisClient,
		logger: logger,
		config: cfg,
	}
}

// GetState retrieves the current budget from Redis.
// A missing key means the window expired and the budget is full.
func (t *Tracker) GetState(ctx context.Context) (*BudgetState, error) {
	pipe := t.redis.Pipeline()
	remainCmd := pipe.Get(ctx, RedisKeyErrorsRemaining)
	ttlCmd := pipe.PTTL(ctx, RedisKeyErrorsRemaining)
	lastCmd := pipe.Get(ctx, RedisKeyLastUpdate)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read error budget: %w", err)
	}

	remaining, err := remainCmd.Int()
	if errors.Is(err, redis.Nil) {
		state := &BudgetState{
			ErrorsRemaining: t.config.Capacity,
			ResetAt:         time.Now(),
		}
		state.UpdateHealth()
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse errors remaining: %w", err)
	}

	state := &BudgetState{
		ErrorsRemaining: remaining,
		ResetAt:         time.Now().Add(max(ttlCmd.Val(), 0)),
	}
	if ms, err := lastCmd.Int64(); err == nil {
		state.LastUpdate = time.UnixMilli(ms)
	}
	state.UpdateHealth()

	return state, nil
}

// RecordFailure spends one unit of the budget, opening a new window if none
// is active, and returns the resulting state.
func (t *Tracker) RecordFailure(ctx context.Context) (*BudgetState, error) {
	now := time.Now()

	pipe := t.redis.TxPipeline()
	pipe.SetNX(ctx, RedisKeyErrorsRemaining, t.config.Capacity, t.config.Window)
	decrCmd := pipe.Decr(ctx, RedisKeyErrorsRemaining)
	ttlCmd := pipe.PTTL(ctx, RedisKeyErrorsRemaining)
	pipe.Set(ctx, RedisKeyLastUpdate, now.UnixMilli(), t.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("record node failure: %w", err)
	}

	state := &BudgetState{
		ErrorsRemaining: int(decrCmd.Val()),
		ResetAt:         now.Add(max(ttlCmd.Val(), 0)),
		LastUpdate:      now,
	}
	state.UpdateHealth()

	nodeErrorsRemaining.Set(float64(state.ErrorsRemaining))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("errors_remaining", state.ErrorsRemaining).
			Time("reset_at", state.ResetAt).
			Msg("Node error budget CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("errors_remaining", state.ErrorsRemaining).
			Time("reset_at", state.ResetAt).
			Msg("Node error budget WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("errors_remaining", state.ErrorsRemaining).
			Msg("Node failure recorded")
	}

	return state, nil
}

// Reset refills the budget immediately.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.redis.Del(ctx, RedisKeyErrorsRemaining, RedisKeyLastUpdate).Err(); err != nil {
		return fmt.Errorf("reset error budget: %w", err)
	}
	nodeErrorsRemaining.Set(float64(t.config.Capacity))
	return nil
}

// ShouldAllowRequest reports whether a node request may be sent.
// It returns false when the budget is critical and pauses for ThrottleDelay
// when the budget is low.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get error budget: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("errors_remaining", state.ErrorsRemaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Node error budget critical - blocking request")

		nodeBudgetBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("errors_remaining", state.ErrorsRemaining).
			Msg("Node error budget low - throttling request")

		nodeBudgetThrottlesTotal.Inc()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.config.ThrottleDelay):
		}
	}

	return true, nil
}
