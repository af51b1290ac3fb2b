package gamification

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ascend-hq/ascend/internal/domain"
)

// AddXP adds experience points and returns (level, leveledUp).
// Crossing into a higher level grants newLevel*50 coins once, whatever the
// number of levels crossed. Level never decreases.
func (e *Engine) AddXP(amount int64) (int, bool) {
	if !e.begin() {
		return 0, false
	}
	defer e.commit()
	return e.addXP(amount, "manual")
}

// Level returns the current level and XP.
func (e *Engine) Level() (domain.LevelInfo, int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cat.LevelFor(e.xp), e.xp
}

// XPToNextLevel returns XP remaining until the next level, 0 at max level.
func (e *Engine) XPToNextLevel() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.level >= e.cat.MaxLevel() {
		return 0
	}
	return max(e.cat.LevelFor(e.xp).MaxXP-e.xp, 0)
}

func (e *Engine) addXP(amount int64, source string) (int, bool) {
	if amount <= 0 {
		e.log.Debug("ignored non-positive xp grant", zap.Int64("amount", amount), zap.String("source", source))
		return e.level, false
	}

	oldLevel := e.level
	amount = saturatingAdd(e.xp, amount) - e.xp
	if amount == 0 {
		e.log.Warn("xp at maximum, grant dropped", zap.String("source", source))
		return e.level, false
	}
	e.xp += amount
	info := e.cat.LevelFor(e.xp)
	if info.Level > e.level {
		e.level = info.Level
	}

	e.emit(domain.EventXPAdded, amount, source, e.xp)
	e.notify(domain.NotifyXP, "XP gained", fmt.Sprintf("+%d XP", amount))

	if e.level <= oldLevel {
		return e.level, false
	}

	e.emit(domain.EventLevelUp, int64(e.level), info.Title, e.xp)
	e.notify(domain.NotifyLevelUp, "Level up!",
		fmt.Sprintf("You reached level %d: %s", e.level, info.Title))
	e.addCoins(int64(e.level)*LevelUpBonusPerLevel, "level_up")
	e.log.Info("level up", zap.Int("from", oldLevel), zap.Int("to", e.level), zap.Int64("xp", e.xp))
	return e.level, true
}
