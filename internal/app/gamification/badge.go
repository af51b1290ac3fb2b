package gamification

import (
	"go.uber.org/zap"

	"github.com/ascend-hq/ascend/internal/domain"
)

// EarnBadge awards a badge and its tier XP. Earning is one-way: a second
// call is AlreadySatisfied and leaves the earned date untouched.
func (e *Engine) EarnBadge(id string) domain.Outcome {
	if !e.begin() {
		return domain.OutcomeDenied
	}
	defer e.commit()
	return e.earnBadge(id)
}

// Badges returns every badge in catalog order with its earned state.
func (e *Engine) Badges() []domain.Badge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot().Badges
}

func (e *Engine) earnBadge(id string) domain.Outcome {
	b, ok := e.badges[id]
	if !ok {
		e.log.Debug("unknown badge", zap.String("id", id))
		return domain.OutcomeUnknown
	}
	if b.Earned {
		return domain.OutcomeAlreadySatisfied
	}

	b.Earned = true
	b.EarnedDate = e.today()
	e.emit(domain.EventBadgeEarned, b.Tier.XPReward(), id, 0)
	e.addXP(b.Tier.XPReward(), "badge:"+id)
	e.notify(domain.NotifyBadge, "Badge earned!", b.Name)
	return domain.OutcomeApplied
}
