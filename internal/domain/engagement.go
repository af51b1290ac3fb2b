// Package domain holds the ascend game types.
// The engagement engine drives leadership habits through coins, XP levels,
// streaks, badges and premium nudges. Types here are pure: no infrastructure.
package domain

import (
	"slices"
	"time"
)

// ─── Tiers ──────────────────────────────────────────────────────────────────

// Tier is the quality classification of a badge.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// XPReward returns the XP granted when a badge of this tier is earned.
func (t Tier) XPReward() int64 {
	switch t {
	case TierBronze:
		return 20
	case TierSilver:
		return 50
	case TierGold:
		return 100
	case TierPlatinum:
		return 200
	}
	return 0
}

// Valid reports whether t is one of the four known tiers.
func (t Tier) Valid() bool {
	return t.XPReward() > 0
}

// ─── Level / XP Types ───────────────────────────────────────────────────────

// LevelInfo is one row of the level table. A user with MinXP <= xp < MaxXP
// holds this level.
type LevelInfo struct {
	Level int    `json:"level" yaml:"level"`
	Title string `json:"title" yaml:"title"`
	MinXP int64  `json:"min_xp" yaml:"min_xp"`
	MaxXP int64  `json:"max_xp" yaml:"max_xp"`
}

// Contains reports whether xp falls inside this level's range.
func (l LevelInfo) Contains(xp int64) bool {
	return xp >= l.MinXP && xp < l.MaxXP
}

// ProgressPct returns progress through this level (0-100).
func (l LevelInfo) ProgressPct(xp int64) float64 {
	span := l.MaxXP - l.MinXP
	if span <= 0 {
		return 100.0
	}
	pct := float64(xp-l.MinXP) / float64(span) * 100.0
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

// ─── Streak Types ───────────────────────────────────────────────────────────

// Streak tracks consecutive calendar days with at least one completed nudge.
// Invariant: Longest >= Current.
type Streak struct {
	Current       int  `json:"current"`
	Longest       int  `json:"longest"`
	LastCompleted Date `json:"last_completed_date"`
	CanRevive     bool `json:"can_revive"`
	FreezePasses  int  `json:"freeze_passes"`
	// Lost is the streak value that was reset at the last break. Revival
	// restores it.
	Lost int `json:"lost,omitempty"`
}

// ─── Badges & Premium ───────────────────────────────────────────────────────

// Badge is a collectible award. Earned is a one-way transition.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Tier        Tier   `json:"tier"`
	Earned      bool   `json:"earned"`
	EarnedDate  Date   `json:"earned_date"`
}

// PremiumNudge is paid content unlocked with coins.
type PremiumNudge struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Cost     int64  `json:"cost"`
	Unlocked bool   `json:"unlocked"`
}

// ─── Snapshot ───────────────────────────────────────────────────────────────

// Snapshot is the read model handed to consumers after every change.
type Snapshot struct {
	Coins             int64          `json:"coins"`
	XP                int64          `json:"xp"`
	Level             int            `json:"level"`
	LevelInfo         LevelInfo      `json:"level_info"`
	Streak            Streak         `json:"streak"`
	Badges            []Badge        `json:"badges"`
	PremiumNudges     []PremiumNudge `json:"premium_nudges"`
	Insights          []string       `json:"insights,omitempty"`
	DoublePointsUntil time.Time      `json:"double_points_until,omitzero"`
	CoinAnimation     bool           `json:"coin_animation"`
}

// Clone returns a deep copy so consumers cannot mutate engine state.
func (s Snapshot) Clone() Snapshot {
	cp := s
	cp.Badges = slices.Clone(s.Badges)
	cp.PremiumNudges = slices.Clone(s.PremiumNudges)
	cp.Insights = slices.Clone(s.Insights)
	return cp
}

// Badge looks up a badge by id.
func (s Snapshot) Badge(id string) (Badge, bool) {
	for _, b := range s.Badges {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// EarnedCount returns how many badges are earned.
func (s Snapshot) EarnedCount() int {
	n := 0
	for _, b := range s.Badges {
		if b.Earned {
			n++
		}
	}
	return n
}

// ─── Outcome ────────────────────────────────────────────────────────────────

// Outcome is the result of an operation that can be refused. It separates
// "nothing to do" from "not allowed" so callers can tell them apart.
type Outcome int

const (
	// OutcomeApplied means state changed.
	OutcomeApplied Outcome = iota
	// OutcomeAlreadySatisfied means the operation was an idempotent no-op.
	OutcomeAlreadySatisfied
	// OutcomeDenied means the operation was refused, usually for lack of coins.
	OutcomeDenied
	// OutcomeUnknown means the referenced badge or content id does not exist.
	OutcomeUnknown
)

// OK reports whether the operation changed state.
func (o Outcome) OK() bool { return o == OutcomeApplied }

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeAlreadySatisfied:
		return "already_satisfied"
	case OutcomeDenied:
		return "denied"
	case OutcomeUnknown:
		return "unknown"
	}
	return "invalid"
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// ─── Events ─────────────────────────────────────────────────────────────────

// EventType categorizes an engine change.
type EventType string

const (
	EventCoinsAdded      EventType = "coins_added"
	EventCoinsSpent      EventType = "coins_spent"
	EventSpendDenied     EventType = "spend_denied"
	EventXPAdded         EventType = "xp_added"
	EventLevelUp         EventType = "level_up"
	EventBadgeEarned     EventType = "badge_earned"
	EventPremiumUnlocked EventType = "premium_unlocked"
	EventStreakExtended  EventType = "streak_extended"
	EventStreakReset     EventType = "streak_reset"
	EventStreakRevived   EventType = "streak_revived"
	EventStreakFrozen    EventType = "streak_frozen"
	EventInsightUnlocked EventType = "insight_unlocked"
	EventDoublePoints    EventType = "double_points"
	EventRewardApplied   EventType = "reward_applied"
)

// Event records one state transition. Amount and Balance are in the unit of
// the event (coins, XP or streak days); Ref names the badge, content or reward.
type Event struct {
	Type    EventType `json:"type"`
	Amount  int64     `json:"amount,omitempty"`
	Ref     string    `json:"ref,omitempty"`
	Balance int64     `json:"balance"`
	At      time.Time `json:"at"`
}

// Change is delivered to engine subscribers after every mutating operation.
type Change struct {
	Snapshot Snapshot `json:"snapshot"`
	Events   []Event  `json:"events"`
}
