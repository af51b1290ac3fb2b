// Package health runs periodic consistency checks over the game state and
// repairs what it safely can.
package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ascend-hq/ascend/internal/domain"
)

// DefaultInterval is how often Run repeats the checks.
const DefaultInterval = 60 * time.Second

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	Recovered bool      `json:"recovered,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Store is the persistence the standard checks inspect.
type Store interface {
	Ping() error
	LoadSnapshot() (domain.Snapshot, bool, error)
	SaveSnapshot(s domain.Snapshot) error
}

// Engine exposes the live game state.
type Engine interface {
	Snapshot() domain.Snapshot
}

// Auditor verifies the coin ledger.
type Auditor interface {
	Audit() (domain.LedgerAudit, error)
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	now      func() time.Time
}

// NewChecker creates a checker over the given checks.
func NewChecker(checks ...Check) *Checker {
	return &Checker{
		checks:   checks,
		interval: DefaultInterval,
		now:      time.Now,
	}
}

// SetInterval changes the Run period.
func (c *Checker) SetInterval(d time.Duration) {
	if d > 0 {
		c.interval = d
	}
}

// StandardChecks returns the checks the daemon runs: database reachability,
// ledger balance, engine invariants and snapshot freshness.
func StandardChecks(store Store, eng Engine, ledger Auditor) []Check {
	return []Check{
		{
			Name: "sqlite",
			CheckFn: func(ctx context.Context) error {
				return store.Ping()
			},
		},
		{
			Name: "ledger",
			CheckFn: func(ctx context.Context) error {
				a, err := ledger.Audit()
				if err != nil {
					return err
				}
				if !a.Balanced {
					return fmt.Errorf("ledger unbalanced: debits %d, credits %d", a.Debits, a.Credits)
				}
				return nil
			},
		},
		{
			Name: "engine",
			CheckFn: func(ctx context.Context) error {
				return checkInvariants(eng.Snapshot())
			},
		},
		{
			Name: "snapshot",
			CheckFn: func(ctx context.Context) error {
				return checkSnapshot(store, eng.Snapshot())
			},
			RecoverFn: func(ctx context.Context) error {
				return store.SaveSnapshot(eng.Snapshot())
			},
		},
	}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce executes every check, attempting recovery for failures.
func (c *Checker) RunOnce(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: c.now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Error = err.Error()
			if check.RecoverFn != nil && check.RecoverFn(ctx) == nil {
				s.Recovered = check.CheckFn(ctx) == nil
			}
		} else {
			s.Healthy = true
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if every check passed or was recovered.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy && !s.Recovered {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkInvariants(s domain.Snapshot) error {
	var errs []error
	if s.Coins < 0 {
		errs = append(errs, fmt.Errorf("negative coins %d", s.Coins))
	}
	if s.XP < 0 {
		errs = append(errs, fmt.Errorf("negative xp %d", s.XP))
	}
	if s.Streak.Longest < s.Streak.Current {
		errs = append(errs, fmt.Errorf("longest streak %d below current %d", s.Streak.Longest, s.Streak.Current))
	}
	if s.Level != s.LevelInfo.Level {
		errs = append(errs, fmt.Errorf("level %d disagrees with level info %d", s.Level, s.LevelInfo.Level))
	}
	return errors.Join(errs...)
}

func checkSnapshot(store Store, live domain.Snapshot) error {
	stored, ok, err := store.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return errors.New("no snapshot stored")
	}
	if stored.Coins != live.Coins || stored.XP != live.XP || stored.Streak != live.Streak {
		return fmt.Errorf("stored snapshot is stale: coins %d/%d, xp %d/%d",
			stored.Coins, live.Coins, stored.XP, live.XP)
	}
	return nil
}
