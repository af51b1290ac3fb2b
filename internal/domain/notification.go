package domain

import "time"

// ─── Notification Types ─────────────────────────────────────────────────────

// NotificationType categorizes notifications.
type NotificationType string

const (
	NotifyCoins   NotificationType = "coins"
	NotifyXP      NotificationType = "xp"
	NotifyLevelUp NotificationType = "level_up"
	NotifyBadge   NotificationType = "badge"
	NotifyStreak  NotificationType = "streak"
	NotifyPremium NotificationType = "premium"
	NotifyReward  NotificationType = "reward"
	NotifyDaily   NotificationType = "daily"
)

// Notification is a user-facing toast.
type Notification struct {
	ID        int64            `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
	Shown     bool             `json:"shown"`
}

// NotificationPolicy governs how many toasts get stored.
// Zero values disable the corresponding limit.
type NotificationPolicy struct {
	MaxPerDay  int    `json:"max_per_day" toml:"max_per_day"`
	QuietStart string `json:"quiet_start" toml:"quiet_start"` // "22:00"
	QuietEnd   string `json:"quiet_end" toml:"quiet_end"`     // "08:00"
}

// DefaultNotificationPolicy keeps every toast: in-app feedback is the point.
func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{}
}
