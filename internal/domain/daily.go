package domain

// ─── Daily Rewards ──────────────────────────────────────────────────────────

// DailyCycleDays is the length of a daily reward cycle.
const DailyCycleDays = 30

// DailyReward is one day of the 30-day login calendar.
type DailyReward struct {
	Day         int    `json:"day"`
	Coins       int64  `json:"coins"`
	Special     bool   `json:"special"`
	Claimed     bool   `json:"claimed"`
	Description string `json:"description"`
}

// DailyStatus is the widget's read model.
type DailyStatus struct {
	Rewards       []DailyReward `json:"rewards"`
	CurrentDay    int           `json:"current_day"`
	LastClaimDate Date          `json:"last_claim_date"`
	Claimable     bool          `json:"claimable"`
}

// DailyClaim is the result of a successful claim.
type DailyClaim struct {
	Reward DailyReward  `json:"reward"`
	Box    *RewardEvent `json:"box,omitempty"`
}
