package gamification

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ascend-hq/ascend/internal/domain"
)

// NudgeResult reports what completing a nudge produced.
type NudgeResult struct {
	XPAwarded int64          `json:"xp_awarded"`
	Doubled   bool           `json:"doubled"`
	Streak    domain.Outcome `json:"streak"`
	Level     int            `json:"level"`
	LeveledUp bool           `json:"leveled_up"`
}

// CompleteNudge grants points XP, doubled while double points are active,
// and records today's streak completion.
func (e *Engine) CompleteNudge(points int64) NudgeResult {
	if !e.begin() {
		return NudgeResult{Streak: domain.OutcomeDenied}
	}
	defer e.commit()

	var res NudgeResult
	if points > 0 {
		if e.doublePointsActive() {
			points = saturatingAdd(points, points)
			res.Doubled = true
		}
		res.XPAwarded = points
		_, res.LeveledUp = e.addXP(points, "nudge")
	}
	before := e.level
	res.Streak = e.incrementStreak()
	res.LeveledUp = res.LeveledUp || e.level > before
	res.Level = e.level
	return res
}

// AddFreezePasses adds streak freeze passes. Non-positive counts are ignored.
func (e *Engine) AddFreezePasses(n int) {
	if !e.begin() {
		return
	}
	defer e.commit()
	e.addFreezePasses(n)
}

// UnlockInsight unlocks a leadership insight. Insights are free; they come
// from reward boxes.
func (e *Engine) UnlockInsight(id string) domain.Outcome {
	if !e.begin() {
		return domain.OutcomeDenied
	}
	defer e.commit()
	return e.unlockInsight(id)
}

// ActivateDoublePoints doubles nudge XP for d. An active window is extended.
func (e *Engine) ActivateDoublePoints(d time.Duration) {
	if !e.begin() {
		return
	}
	defer e.commit()
	e.activateDoublePoints(d)
}

// DoublePointsActive reports whether nudge XP is currently doubled.
func (e *Engine) DoublePointsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doublePointsActive()
}

// ApplyReward applies a reward box draw through the matching operation.
func (e *Engine) ApplyReward(def domain.RewardDef) domain.Outcome {
	if !e.begin() {
		return domain.OutcomeDenied
	}
	defer e.commit()

	out := domain.OutcomeApplied
	switch r := def.Reward.(type) {
	case domain.CoinsReward:
		e.addCoins(r.Amount, "reward:"+def.ID)
	case domain.XPReward:
		e.addXP(r.Amount, "reward:"+def.ID)
	case domain.BadgeReward:
		out = e.earnBadge(r.BadgeID)
	case domain.StreakFreezeReward:
		e.addFreezePasses(r.Count)
	case domain.InsightReward:
		out = e.unlockInsight(r.InsightID)
	case domain.DoublePointsReward:
		e.activateDoublePoints(r.Duration)
	default:
		e.log.Warn("unhandled reward", zap.String("id", def.ID))
		return domain.OutcomeUnknown
	}

	e.emit(domain.EventRewardApplied, 0, def.ID, 0)
	e.notify(domain.NotifyReward, fmt.Sprintf("%s reward!", def.Rarity),
		def.Name+": "+domain.DescribeReward(def.Reward))
	return out
}

func (e *Engine) addFreezePasses(n int) {
	if n <= 0 {
		return
	}
	e.streak.FreezePasses += n
	e.emit(domain.EventStreakFrozen, int64(n), "grant", int64(e.streak.FreezePasses))
}

func (e *Engine) unlockInsight(id string) domain.Outcome {
	in, ok := e.cat.Insight(id)
	if !ok {
		return domain.OutcomeUnknown
	}
	if e.insights[id] {
		return domain.OutcomeAlreadySatisfied
	}
	e.insights[id] = true
	e.emit(domain.EventInsightUnlocked, 0, id, 0)
	e.notify(domain.NotifyReward, "Insight unlocked", in.Title)
	return domain.OutcomeApplied
}

func (e *Engine) activateDoublePoints(d time.Duration) {
	if d <= 0 {
		return
	}
	start := e.now()
	if e.doubleUntil.After(start) {
		start = e.doubleUntil
	}
	e.doubleUntil = start.Add(d)
	e.emit(domain.EventDoublePoints, int64(d/time.Second), "", 0)
}

func (e *Engine) doublePointsActive() bool {
	return e.now().Before(e.doubleUntil)
}
