package gamification

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/ascend-hq/ascend/internal/domain"
)

// AddCoins credits the wallet. Non-positive amounts are ignored.
// It raises the transient coin animation cue for the UI layer.
func (e *Engine) AddCoins(amount int64) {
	if !e.begin() {
		return
	}
	defer e.commit()
	e.addCoins(amount, "manual")
}

// SpendCoins debits the wallet if it holds at least amount. It is the only
// admission check for coin-costing operations: Denied means nothing was spent.
func (e *Engine) SpendCoins(amount int64) domain.Outcome {
	if !e.begin() {
		return domain.OutcomeDenied
	}
	defer e.commit()
	return e.spendCoins(amount, "manual")
}

// UnlockPremiumNudge buys premium content. It is AlreadySatisfied for owned
// content, Unknown for an unknown id and Denied when the wallet is short.
func (e *Engine) UnlockPremiumNudge(id string) domain.Outcome {
	if !e.begin() {
		return domain.OutcomeDenied
	}
	defer e.commit()

	p, ok := e.premium[id]
	if !ok {
		e.log.Debug("unknown premium nudge", zap.String("id", id))
		return domain.OutcomeUnknown
	}
	if p.Unlocked {
		return domain.OutcomeAlreadySatisfied
	}
	if out := e.spendCoins(p.Cost, "premium:"+id); !out.OK() {
		return out
	}
	p.Unlocked = true
	e.emit(domain.EventPremiumUnlocked, p.Cost, id, e.coins)
	e.notify(domain.NotifyPremium, "Premium nudge unlocked", p.Title)
	return domain.OutcomeApplied
}

// ClearCoinAnimation lowers the coin animation cue. UI timers call it.
func (e *Engine) ClearCoinAnimation() {
	if !e.begin() {
		return
	}
	defer e.commit()
	e.coinAnimation = false
}

// Coins returns the wallet balance.
func (e *Engine) Coins() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coins
}

func (e *Engine) addCoins(amount int64, reason string) {
	if amount <= 0 {
		e.log.Debug("ignored non-positive coin grant", zap.Int64("amount", amount))
		return
	}
	amount = saturatingAdd(e.coins, amount) - e.coins
	if amount == 0 {
		e.log.Warn("wallet at maximum, coin grant dropped", zap.String("reason", reason))
		return
	}
	e.coins += amount
	e.coinAnimation = true
	e.emit(domain.EventCoinsAdded, amount, reason, e.coins)
	e.notify(domain.NotifyCoins, "Coins earned", fmt.Sprintf("+%d coins", amount))
}

// saturatingAdd returns a+b clamped to MaxInt64. Both operands are
// non-negative.
func saturatingAdd(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}

func (e *Engine) spendCoins(amount int64, reason string) domain.Outcome {
	if amount <= 0 || e.coins < amount {
		e.emit(domain.EventSpendDenied, amount, reason, e.coins)
		return domain.OutcomeDenied
	}
	e.coins -= amount
	e.emit(domain.EventCoinsSpent, amount, reason, e.coins)
	return domain.OutcomeApplied
}
