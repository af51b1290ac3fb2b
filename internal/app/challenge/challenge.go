// Package challenge manages weekly leadership challenges.
// Three challenges are generated per week and expire the following Monday
// 00:00 UTC. Completing one grants XP and coins and opens a reward box.
package challenge

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ascend-hq/ascend/internal/domain"
)

// PerWeek is the number of challenges generated each week.
const PerWeek = 3

// Store is the persistence the service needs.
type Store interface {
	InsertChallenge(c domain.Challenge) error
	GetChallenge(id string) (*domain.Challenge, error)
	ListActiveChallenges(now time.Time) ([]domain.Challenge, error)
	ListChallengesExpiringAfter(t time.Time) ([]domain.Challenge, error)
	UpdateChallengeProgress(id string, delta int) (*domain.Challenge, error)
	CompleteChallenge(id string) (bool, error)
	DeleteExpiredChallenges(before time.Time) (int64, error)
}

// Rewarder pays out completed challenges.
type Rewarder interface {
	AddXP(amount int64) (int, bool)
	AddCoins(amount int64)
}

// BoxOpener opens the reward box granted on completion.
type BoxOpener interface {
	Open(ctx context.Context, trigger domain.Trigger) (domain.RewardEvent, error)
}

// Pool is the set of possible challenge templates.
var Pool = []domain.ChallengeTemplate{
	{Type: domain.ChallengeNudges, Target: 5, Description: "Complete 5 nudges", RewardXP: 100, RewardCoins: 25},
	{Type: domain.ChallengeNudges, Target: 10, Description: "Complete 10 nudges", RewardXP: 200, RewardCoins: 50},
	{Type: domain.ChallengeFeedback, Target: 3, Description: "Give feedback to 3 teammates", RewardXP: 150, RewardCoins: 30},
	{Type: domain.ChallengeOneOnOne, Target: 2, Description: "Hold 2 one-on-ones", RewardXP: 120, RewardCoins: 30},
	{Type: domain.ChallengeOneOnOne, Target: 4, Description: "Hold 4 one-on-ones", RewardXP: 220, RewardCoins: 50},
	{Type: domain.ChallengeRecognition, Target: 3, Description: "Recognize 3 colleagues publicly", RewardXP: 150, RewardCoins: 35},
	{Type: domain.ChallengeStreak, Target: 5, Description: "Keep a 5-day streak", RewardXP: 180, RewardCoins: 40},
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// Service manages weekly challenges.
type Service struct {
	store    Store
	rewarder Rewarder
	boxes    BoxOpener
	now      func() time.Time
	log      *zap.Logger

	mu sync.Mutex
}

// NewService creates a challenge service. boxes may be nil.
func NewService(store Store, rewarder Rewarder, boxes BoxOpener, opts ...Option) *Service {
	s := &Service{
		store:    store,
		rewarder: rewarder,
		boxes:    boxes,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseType validates a challenge type name.
func ParseType(s string) (domain.ChallengeType, error) {
	for _, tmpl := range Pool {
		if string(tmpl.Type) == s {
			return tmpl.Type, nil
		}
	}
	return "", fmt.Errorf("%w: unknown type %q", domain.ErrChallengeNotFound, s)
}

// Weekly returns this week's challenges, generating them on first use.
// Completed challenges are included.
func (s *Service) Weekly() ([]domain.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weekly(s.now())
}

func (s *Service) weekly(now time.Time) ([]domain.Challenge, error) {
	existing, err := s.store.ListChallengesExpiringAfter(now)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}
	return s.generate(now)
}

// generate creates PerWeek challenges expiring next Monday. The selection is
// seeded by the week, so a given week always draws the same templates.
func (s *Service) generate(now time.Time) ([]domain.Challenge, error) {
	expiry := NextMonday(now)
	selected := pickUnique(Pool, PerWeek, uint64(expiry.Unix()))

	out := make([]domain.Challenge, 0, len(selected))
	for i, tmpl := range selected {
		c := domain.Challenge{
			ID:          fmt.Sprintf("challenge-%s-%d-%d", tmpl.Type, expiry.Unix(), i),
			Type:        tmpl.Type,
			Description: tmpl.Description,
			Target:      tmpl.Target,
			RewardXP:    tmpl.RewardXP,
			RewardCoins: tmpl.RewardCoins,
			ExpiresAt:   expiry,
		}
		if err := s.store.InsertChallenge(c); err != nil {
			return nil, fmt.Errorf("insert challenge: %w", err)
		}
		out = append(out, c)
	}
	s.log.Info("weekly challenges generated", zap.Int("count", len(out)), zap.Time("expires", expiry))
	return out, nil
}

// RecordProgress adds delta to every active challenge of type t and pays
// out the ones it completes.
func (s *Service) RecordProgress(ctx context.Context, t domain.ChallengeType, delta int) ([]domain.Challenge, error) {
	if delta <= 0 {
		return nil, fmt.Errorf("%w: progress must be positive, got %d", domain.ErrInvalidAmount, delta)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if _, err := s.weekly(now); err != nil {
		return nil, err
	}
	active, err := s.store.ListActiveChallenges(now)
	if err != nil {
		return nil, err
	}

	var completed []domain.Challenge
	for _, c := range active {
		if c.Type != t {
			continue
		}
		done, err := s.advance(ctx, c.ID, delta)
		if err != nil {
			return nil, err
		}
		if done != nil {
			completed = append(completed, *done)
		}
	}
	return completed, nil
}

// Progress adds delta to one challenge and returns its updated state.
func (s *Service) Progress(ctx context.Context, id string, delta int) (*domain.Challenge, error) {
	if delta <= 0 {
		return nil, fmt.Errorf("%w: progress must be positive, got %d", domain.ErrInvalidAmount, delta)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.GetChallenge(id)
	if err != nil {
		return nil, err
	}
	if c == nil || c.IsExpiredAt(s.now()) {
		return nil, fmt.Errorf("%w: %s", domain.ErrChallengeNotFound, id)
	}
	if c.Completed {
		return c, nil
	}
	if _, err := s.advance(ctx, id, delta); err != nil {
		return nil, err
	}
	return s.store.GetChallenge(id)
}

// advance applies progress and pays out on completion. It returns the
// challenge only when this call completed it.
func (s *Service) advance(ctx context.Context, id string, delta int) (*domain.Challenge, error) {
	updated, err := s.store.UpdateChallengeProgress(id, delta)
	if err != nil {
		return nil, err
	}
	if updated == nil || updated.Progress < updated.Target {
		return nil, nil
	}
	first, err := s.store.CompleteChallenge(id)
	if err != nil || !first {
		return nil, err
	}
	updated.Completed = true

	s.rewarder.AddXP(updated.RewardXP)
	s.rewarder.AddCoins(updated.RewardCoins)
	if s.boxes != nil {
		if _, err := s.boxes.Open(ctx, domain.TriggerChallenge); err != nil {
			s.log.Warn("challenge reward box failed", zap.String("id", id), zap.Error(err))
		}
	}
	s.log.Info("challenge completed", zap.String("id", id), zap.Int64("xp", updated.RewardXP))
	return updated, nil
}

// CleanupExpired removes unfinished challenges that expired before now.
func (s *Service) CleanupExpired() (int64, error) {
	return s.store.DeleteExpiredChallenges(s.now())
}

// NextMonday returns the next Monday at 00:00 UTC after t.
func NextMonday(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	daysUntilMonday := (8 - int(day.Weekday())) % 7
	if daysUntilMonday == 0 {
		daysUntilMonday = 7
	}
	return day.AddDate(0, 0, daysUntilMonday)
}

// pickUnique selects n random templates, preferring unique types.
func pickUnique(pool []domain.ChallengeTemplate, n int, seed uint64) []domain.ChallengeTemplate {
	r := rand.New(rand.NewPCG(seed, seed>>7))

	shuffled := make([]domain.ChallengeTemplate, len(pool))
	copy(shuffled, pool)
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	seen := make(map[domain.ChallengeType]bool)
	picked := make(map[int]bool)
	var result []domain.ChallengeTemplate
	for i, tmpl := range shuffled {
		if len(result) >= n {
			break
		}
		if !seen[tmpl.Type] {
			seen[tmpl.Type] = true
			picked[i] = true
			result = append(result, tmpl)
		}
	}
	// Not enough distinct types: fill with the rest.
	for i, tmpl := range shuffled {
		if len(result) >= n {
			break
		}
		if !picked[i] {
			result = append(result, tmpl)
		}
	}
	return result
}
