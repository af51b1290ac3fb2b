// Package daily implements the 30-day login reward calendar. Claiming on
// consecutive days walks the calendar; a missed day starts it over.
package daily

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ascend-hq/ascend/internal/domain"
)

// Persisted keys.
const (
	KeyLastClaimDate = "daily.last_claim_date"
	KeyRewards       = "daily.rewards"
	KeyCurrentDay    = "daily.current_day"
)

// Store is the key-value persistence the widget needs.
type Store interface {
	GetEngagement(key string) (string, error)
	SetEngagementMany(kv map[string]string) error
}

// Wallet receives the daily coins.
type Wallet interface {
	AddCoins(amount int64)
}

// BoxOpener opens the reward box granted on special days.
type BoxOpener interface {
	Open(ctx context.Context, trigger domain.Trigger) (domain.RewardEvent, error)
}

// Option configures a Widget.
type Option func(*Widget)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Widget) { w.now = now }
}

// WithLocation sets the time zone that defines a calendar day.
func WithLocation(loc *time.Location) Option {
	return func(w *Widget) {
		if loc != nil {
			w.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Widget) { w.log = l }
}

// Widget is the daily rewards calendar.
type Widget struct {
	store  Store
	wallet Wallet
	boxes  BoxOpener
	now    func() time.Time
	loc    *time.Location
	log    *zap.Logger

	mu sync.Mutex
}

// New creates a widget. boxes may be nil, in which case special days pay
// coins only.
func New(store Store, wallet Wallet, boxes BoxOpener, opts ...Option) *Widget {
	w := &Widget{
		store:  store,
		wallet: wallet,
		boxes:  boxes,
		now:    time.Now,
		loc:    time.UTC,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// IsSpecial reports whether day opens a reward box.
func IsSpecial(day int) bool {
	return day%7 == 0 || day == domain.DailyCycleDays
}

// Calendar returns a fresh, unclaimed 30-day calendar.
func Calendar() []domain.DailyReward {
	out := make([]domain.DailyReward, domain.DailyCycleDays)
	for i := range out {
		day := i + 1
		coins := int64(10 + 5*(day-1))
		desc := fmt.Sprintf("%d coins", coins)
		if IsSpecial(day) {
			desc += " + reward box"
		}
		out[i] = domain.DailyReward{
			Day:         day,
			Coins:       coins,
			Special:     IsSpecial(day),
			Description: desc,
		}
	}
	return out
}

// state is the persisted widget state. CurrentDay is the next day to claim.
type state struct {
	LastClaim  domain.Date
	Rewards    []domain.DailyReward
	CurrentDay int
}

// Status returns the calendar as the next claim will see it.
func (w *Widget) Status() (domain.DailyStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	st, err := w.load()
	if err != nil {
		return domain.DailyStatus{}, err
	}
	today := domain.Today(w.now(), w.loc)
	claimable := st.LastClaim != today
	if claimable {
		st = w.advance(st, today)
	}
	return domain.DailyStatus{
		Rewards:       st.Rewards,
		CurrentDay:    st.CurrentDay,
		LastClaimDate: st.LastClaim,
		Claimable:     claimable,
	}, nil
}

// Claim pays today's reward. It returns domain.ErrAlreadyClaimed if today
// was already claimed.
func (w *Widget) Claim(ctx context.Context) (domain.DailyClaim, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	st, err := w.load()
	if err != nil {
		return domain.DailyClaim{}, err
	}
	today := domain.Today(w.now(), w.loc)
	if st.LastClaim == today {
		return domain.DailyClaim{}, domain.ErrAlreadyClaimed
	}

	st = w.advance(st, today)
	day := st.CurrentDay
	st.Rewards[day-1].Claimed = true
	reward := st.Rewards[day-1]

	st.LastClaim = today
	st.CurrentDay = day + 1
	if st.CurrentDay > domain.DailyCycleDays {
		st.CurrentDay = 1
	}
	if err := w.save(st); err != nil {
		return domain.DailyClaim{}, err
	}

	w.wallet.AddCoins(reward.Coins)
	claim := domain.DailyClaim{Reward: reward}
	w.log.Info("daily reward claimed", zap.Int("day", day), zap.Int64("coins", reward.Coins))

	if reward.Special && w.boxes != nil {
		ev, err := w.boxes.Open(ctx, domain.TriggerDaily)
		if err != nil {
			w.log.Warn("daily reward box failed", zap.Int("day", day), zap.Error(err))
		} else {
			claim.Box = &ev
		}
	}
	return claim, nil
}

// advance prepares st for a claim made today. A claim that does not follow
// yesterday's, or that starts a new cycle, gets a fresh calendar at day 1.
func (w *Widget) advance(st state, today domain.Date) state {
	consecutive := !st.LastClaim.IsZero() && today.DaysSince(st.LastClaim) == 1
	if !consecutive || st.CurrentDay == 1 || len(st.Rewards) != domain.DailyCycleDays {
		st.Rewards = Calendar()
		st.CurrentDay = 1
	}
	return st
}

func (w *Widget) load() (state, error) {
	st := state{CurrentDay: 1}

	raw, err := w.store.GetEngagement(KeyLastClaimDate)
	if err != nil {
		return st, fmt.Errorf("load %s: %w", KeyLastClaimDate, err)
	}
	if st.LastClaim, err = domain.ParseDate(raw); err != nil {
		w.log.Warn("discarding corrupt daily claim date", zap.String("value", raw))
		st.LastClaim = domain.Date{}
	}

	raw, err = w.store.GetEngagement(KeyRewards)
	if err != nil {
		return st, fmt.Errorf("load %s: %w", KeyRewards, err)
	}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &st.Rewards); err != nil {
			w.log.Warn("discarding corrupt daily calendar", zap.Error(err))
			st.Rewards = nil
		}
	}
	if len(st.Rewards) != domain.DailyCycleDays {
		st.Rewards = Calendar()
	}

	raw, err = w.store.GetEngagement(KeyCurrentDay)
	if err != nil {
		return st, fmt.Errorf("load %s: %w", KeyCurrentDay, err)
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= domain.DailyCycleDays {
		st.CurrentDay = n
	}
	return st, nil
}

func (w *Widget) save(st state) error {
	rewards, err := json.Marshal(st.Rewards)
	if err != nil {
		return fmt.Errorf("encode daily calendar: %w", err)
	}
	if err := w.store.SetEngagementMany(map[string]string{
		KeyLastClaimDate: st.LastClaim.String(),
		KeyRewards:       string(rewards),
		KeyCurrentDay:    strconv.Itoa(st.CurrentDay),
	}); err != nil {
		return fmt.Errorf("save daily state: %w", err)
	}
	return nil
}
