package domain

import "time"

// ─── Challenge Types ────────────────────────────────────────────────────────

// ChallengeType categorizes the leadership habit a challenge tracks.
type ChallengeType string

const (
	ChallengeNudges      ChallengeType = "nudges"
	ChallengeFeedback    ChallengeType = "feedback"
	ChallengeOneOnOne    ChallengeType = "one_on_one"
	ChallengeRecognition ChallengeType = "recognition"
	ChallengeStreak      ChallengeType = "streak"
)

// Challenge is a weekly goal with progress tracking.
type Challenge struct {
	ID          string        `json:"id"`
	Type        ChallengeType `json:"type"`
	Description string        `json:"description"`
	Target      int           `json:"target"`
	Progress    int           `json:"progress"`
	RewardXP    int64         `json:"reward_xp"`
	RewardCoins int64         `json:"reward_coins"`
	ExpiresAt   time.Time     `json:"expires_at"`
	Completed   bool          `json:"completed"`
}

// IsExpiredAt reports whether the deadline has passed at now.
func (c Challenge) IsExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ProgressPct returns completion percentage (0-100).
func (c Challenge) ProgressPct() float64 {
	if c.Target <= 0 {
		return 100.0
	}
	pct := float64(c.Progress) / float64(c.Target) * 100.0
	if pct > 100.0 {
		pct = 100.0
	}
	return pct
}

// ChallengeTemplate defines the pool of possible challenges.
type ChallengeTemplate struct {
	Type        ChallengeType `json:"type"`
	Target      int           `json:"target"`
	Description string        `json:"description"`
	RewardXP    int64         `json:"reward_xp"`
	RewardCoins int64         `json:"reward_coins"`
}
