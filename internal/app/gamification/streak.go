package gamification

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ascend-hq/ascend/internal/domain"
)

// IncrementStreak records a completed nudge for today.
//
// Repeated calls on the same calendar day are AlreadySatisfied. A completion
// the day after the last one extends the streak and grants 10 XP per streak
// day. A gap of one missed day is bridged by a freeze pass when one is held.
// Any longer gap breaks the streak back to 1 and offers a revival.
func (e *Engine) IncrementStreak() domain.Outcome {
	if !e.begin() {
		return domain.OutcomeDenied
	}
	defer e.commit()
	return e.incrementStreak()
}

// ReviveStreak buys back the streak lost at the last break. It is Denied
// unless a revival is on offer and the wallet covers the revival cost.
func (e *Engine) ReviveStreak() domain.Outcome {
	if !e.begin() {
		return domain.OutcomeDenied
	}
	defer e.commit()

	if !e.streak.CanRevive {
		return domain.OutcomeDenied
	}
	if out := e.spendCoins(e.revivalCost, "streak_revival"); !out.OK() {
		return out
	}

	from := e.streak.Lost
	e.streak.Current = e.streak.Lost + 1
	e.streak.Longest = max(e.streak.Longest, e.streak.Current)
	e.streak.LastCompleted = e.today()
	e.streak.CanRevive = false
	e.streak.Lost = 0

	e.emit(domain.EventStreakRevived, int64(e.streak.Current), "", int64(e.streak.Current))
	e.notify(domain.NotifyStreak, "Streak revived",
		fmt.Sprintf("Back to a %d-day streak", e.streak.Current))
	e.awardMilestones(from, e.streak.Current)
	return domain.OutcomeApplied
}

// FreezePasses returns the number of held streak freezes.
func (e *Engine) FreezePasses() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.streak.FreezePasses
}

func (e *Engine) incrementStreak() domain.Outcome {
	today := e.today()
	s := &e.streak

	if s.LastCompleted.IsZero() {
		return e.extendStreak(today)
	}

	gap := today.DaysSince(s.LastCompleted)
	switch {
	case gap <= 0:
		// Same day, or the clock moved backwards.
		return domain.OutcomeAlreadySatisfied
	case gap == 1:
		return e.extendStreak(today)
	case gap == 2 && s.FreezePasses > 0:
		s.FreezePasses--
		e.emit(domain.EventStreakFrozen, 1, "used", int64(s.FreezePasses))
		e.notify(domain.NotifyStreak, "Streak freeze used", "A freeze pass covered your missed day")
		return e.extendStreak(today)
	}

	e.log.Info("streak broken",
		zap.Int("lost", s.Current),
		zap.Int("gap_days", gap))
	s.Lost = s.Current
	s.Current = 1
	s.LastCompleted = today
	s.CanRevive = true
	e.emit(domain.EventStreakReset, int64(s.Lost), "", 1)
	e.notify(domain.NotifyStreak, "Streak reset",
		fmt.Sprintf("Your %d-day streak ended. Revive it for %d coins.", s.Lost, e.revivalCost))
	return domain.OutcomeApplied
}

func (e *Engine) extendStreak(today domain.Date) domain.Outcome {
	s := &e.streak
	from := s.Current
	s.Current++
	s.Longest = max(s.Longest, s.Current)
	s.LastCompleted = today
	s.CanRevive = false
	s.Lost = 0

	e.emit(domain.EventStreakExtended, 1, "", int64(s.Current))
	e.addXP(StreakXPPerDay*int64(s.Current), "streak")
	e.awardMilestones(from, s.Current)
	return domain.OutcomeApplied
}

// awardMilestones earns every streak badge whose threshold lies in (from, to].
func (e *Engine) awardMilestones(from, to int) {
	for days := from + 1; days <= to; days++ {
		if id, ok := e.cat.StreakBadgeFor(days); ok {
			e.earnBadge(id)
		}
	}
}
