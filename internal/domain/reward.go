package domain

import (
	"fmt"
	"time"
)

// ─── Reward Box Types ───────────────────────────────────────────────────────

// Rarity is the reward box tier drawn before a reward is picked.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Rarities lists every rarity from most to least frequent.
var Rarities = []Rarity{RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary}

// Valid reports whether r is a known rarity.
func (r Rarity) Valid() bool {
	for _, known := range Rarities {
		if r == known {
			return true
		}
	}
	return false
}

// Trigger is the context in which a reward box is opened.
type Trigger string

const (
	TriggerStreak    Trigger = "streak"
	TriggerChallenge Trigger = "challenge"
	TriggerMilestone Trigger = "milestone"
	TriggerDaily     Trigger = "daily"
)

// ParseTrigger validates a trigger name.
func ParseTrigger(s string) (Trigger, error) {
	switch t := Trigger(s); t {
	case TriggerStreak, TriggerChallenge, TriggerMilestone, TriggerDaily:
		return t, nil
	}
	return "", fmt.Errorf("%w: trigger %q", ErrInvalidTrigger, s)
}

// Reward is the effect of a reward definition. The set of implementations is
// closed; switch over it with a type switch.
type Reward interface {
	Kind() string
	reward()
}

// CoinsReward grants coins.
type CoinsReward struct{ Amount int64 }

// XPReward grants experience points.
type XPReward struct{ Amount int64 }

// BadgeReward earns a catalog badge.
type BadgeReward struct{ BadgeID string }

// StreakFreezeReward adds streak freeze passes.
type StreakFreezeReward struct{ Count int }

// InsightReward unlocks a leadership insight.
type InsightReward struct{ InsightID string }

// DoublePointsReward doubles nudge XP for a limited time.
type DoublePointsReward struct{ Duration time.Duration }

func (CoinsReward) Kind() string        { return "coins" }
func (XPReward) Kind() string           { return "xp" }
func (BadgeReward) Kind() string        { return "badge" }
func (StreakFreezeReward) Kind() string { return "streak_freeze" }
func (InsightReward) Kind() string      { return "insight" }
func (DoublePointsReward) Kind() string { return "double_points" }

func (CoinsReward) reward()        {}
func (XPReward) reward()           {}
func (BadgeReward) reward()        {}
func (StreakFreezeReward) reward() {}
func (InsightReward) reward()      {}
func (DoublePointsReward) reward() {}

// RewardDef is one entry of the reward box pool.
type RewardDef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rarity Rarity `json:"rarity"`
	Reward Reward `json:"-"`
}

// RewardEvent describes what a reward box granted. It is applied once and
// then discarded.
type RewardEvent struct {
	ID      string    `json:"id"`
	Trigger Trigger   `json:"trigger"`
	Rarity  Rarity    `json:"rarity"`
	Def     RewardDef `json:"reward"`
	Kind    string    `json:"kind"`
	Detail  string    `json:"detail"`
	Level   int       `json:"level"`
	At      time.Time `json:"at"`
	// Outcome is how the engine applied the reward. AlreadySatisfied means
	// nothing was granted, e.g. a badge the user already holds.
	Outcome Outcome   `json:"outcome"`
}

// DescribeReward renders a reward for notifications and listings.
func DescribeReward(r Reward) string {
	switch v := r.(type) {
	case CoinsReward:
		return fmt.Sprintf("+%d coins", v.Amount)
	case XPReward:
		return fmt.Sprintf("+%d XP", v.Amount)
	case BadgeReward:
		return "badge " + v.BadgeID
	case StreakFreezeReward:
		if v.Count == 1 {
			return "1 streak freeze"
		}
		return fmt.Sprintf("%d streak freezes", v.Count)
	case InsightReward:
		return "insight " + v.InsightID
	case DoublePointsReward:
		return "double points for " + v.Duration.String()
	}
	return "nothing"
}
