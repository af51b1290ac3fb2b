// Package metrics provides Prometheus metrics for ascend: the game economy,
// streaks, reward boxes, challenges and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ascend-hq/ascend/internal/domain"
)

// Namespace prefixes every ascend metric.
const Namespace = "ascend"

// ─── Economy ────────────────────────────────────────────────────────────────

// CoinsEarned tracks total coins granted.
var CoinsEarned = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: Namespace,
	Name:      "coins_earned_total",
	Help:      "Total coins granted.",
})

// CoinsSpent tracks total coins spent.
var CoinsSpent = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: Namespace,
	Name:      "coins_spent_total",
	Help:      "Total coins spent.",
})

// SpendsDenied tracks spends refused for lack of coins.
var SpendsDenied = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: Namespace,
	Name:      "spends_denied_total",
	Help:      "Coin spends refused by admission control.",
})

// CoinsBalance tracks the current wallet balance.
var CoinsBalance = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: Namespace,
	Name:      "coins_balance",
	Help:      "Current wallet balance.",
})

// ─── Progression ────────────────────────────────────────────────────────────

// XP tracks total experience points.
var XP = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: Namespace,
	Name:      "xp",
	Help:      "Current experience points.",
})

// Level tracks the current level.
var Level = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: Namespace,
	Name:      "level",
	Help:      "Current level.",
})

// LevelUps tracks level-up transitions.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: Namespace,
	Name:      "level_ups_total",
	Help:      "Total level-ups.",
})

// BadgesEarned tracks earned badges by id.
var BadgesEarned = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: Namespace,
	Name:      "badges_earned_total",
	Help:      "Badges earned by id.",
}, []string{"badge"})

// ─── Streaks ────────────────────────────────────────────────────────────────

// StreakCurrent tracks the current streak length in days.
var StreakCurrent = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: Namespace,
	Name:      "streak_current_days",
	Help:      "Current streak length in days.",
})

// StreakTransitions tracks streak state changes by kind.
var StreakTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: Namespace,
	Name:      "streak_transitions_total",
	Help:      "Streak transitions (extended, reset, revived, frozen).",
}, []string{"kind"})

// ─── Rewards ────────────────────────────────────────────────────────────────

// RewardBoxesOpened tracks reward boxes by trigger and rarity.
var RewardBoxesOpened = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: Namespace,
	Name:      "reward_boxes_opened_total",
	Help:      "Reward boxes opened by trigger and rarity.",
}, []string{"trigger", "rarity"})

// DailyClaims tracks daily reward claims by cycle day.
var DailyClaims = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: Namespace,
	Name:      "daily_claims_total",
	Help:      "Daily reward claims.",
}, []string{"special"})

// ChallengesCompleted tracks completed weekly challenges by type.
var ChallengesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: Namespace,
	Name:      "challenges_completed_total",
	Help:      "Completed weekly challenges by type.",
}, []string{"type"})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequestDuration tracks API latency by route pattern and status.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: Namespace,
	Name:      "http_request_duration_seconds",
	Help:      "API request duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
}, []string{"method", "route", "status"})

// ─── Engine listener ────────────────────────────────────────────────────────

// Record updates the game metrics from an engine change. It is registered
// as an engine listener.
func Record(c domain.Change) {
	for _, ev := range c.Events {
		switch ev.Type {
		case domain.EventCoinsAdded:
			CoinsEarned.Add(float64(ev.Amount))
		case domain.EventCoinsSpent:
			CoinsSpent.Add(float64(ev.Amount))
		case domain.EventSpendDenied:
			SpendsDenied.Inc()
		case domain.EventLevelUp:
			LevelUps.Inc()
		case domain.EventBadgeEarned:
			BadgesEarned.WithLabelValues(ev.Ref).Inc()
		case domain.EventStreakExtended:
			StreakTransitions.WithLabelValues("extended").Inc()
		case domain.EventStreakReset:
			StreakTransitions.WithLabelValues("reset").Inc()
		case domain.EventStreakRevived:
			StreakTransitions.WithLabelValues("revived").Inc()
		case domain.EventStreakFrozen:
			if ev.Ref == "used" {
				StreakTransitions.WithLabelValues("frozen").Inc()
			}
		}
	}
	s := c.Snapshot
	CoinsBalance.Set(float64(s.Coins))
	XP.Set(float64(s.XP))
	Level.Set(float64(s.Level))
	StreakCurrent.Set(float64(s.Streak.Current))
}
