// Package gamification implements the ascend game-state engine.
// The engine owns coins, XP, level, streak, badges and premium unlocks, and
// is their only writer. Operations are synchronous and never fail with an
// error: refusals come back as a domain.Outcome.
package gamification

import (
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ascend-hq/ascend/internal/app/catalog"
	"github.com/ascend-hq/ascend/internal/domain"
)

const (
	// DefaultSeedCoins is the wallet balance of a fresh engine.
	DefaultSeedCoins int64 = 100
	// DefaultRevivalCost is the coin price of buying back a broken streak.
	DefaultRevivalCost int64 = 50
	// LevelUpBonusPerLevel is multiplied by the new level on level-up.
	LevelUpBonusPerLevel int64 = 50
	// StreakXPPerDay is multiplied by the streak length on each extension.
	StreakXPPerDay int64 = 10
)

// Notifier is the toast sink. Delivery is fire-and-forget: errors and panics
// are logged and never touch engine state.
type Notifier interface {
	Notify(n domain.Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n domain.Notification) error

// Notify calls f(n).
func (f NotifierFunc) Notify(n domain.Notification) error { return f(n) }

// Listener receives a Change after every mutating operation. Listeners and
// notifiers must not call back into the engine.
type Listener func(domain.Change)

// Option configures an Engine at construction.
type Option func(*Engine)

// WithSeed sets the starting coins and XP.
func WithSeed(coins, xp int64) Option {
	return func(e *Engine) {
		e.coins = max(coins, 0)
		e.xp = max(xp, 0)
	}
}

// WithState restores a previously captured snapshot. Unknown badge and
// content ids in the snapshot are dropped.
func WithState(s domain.Snapshot) Option {
	return func(e *Engine) { e.restore = &s }
}

// WithRevivalCost sets the coin price of ReviveStreak.
func WithRevivalCost(cost int64) Option {
	return func(e *Engine) {
		if cost > 0 {
			e.revivalCost = cost
		}
	}
}

// WithNotifier sets the toast sink.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock overrides the time source. Tests use it to walk across days.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the time zone that defines a calendar day.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// Engine is the single source of truth for one user's game state.
type Engine struct {
	mu         sync.Mutex
	dispatchMu sync.Mutex

	cat         *catalog.Catalog
	now         func() time.Time
	loc         *time.Location
	log         *zap.Logger
	notifier    Notifier
	revivalCost int64
	restore     *domain.Snapshot

	coins         int64
	xp            int64
	level         int
	streak        domain.Streak
	badges        map[string]*domain.Badge
	premium       map[string]*domain.PremiumNudge
	insights      map[string]bool
	doubleUntil   time.Time
	coinAnimation bool

	listeners map[int]Listener
	nextSub   int
	disposed  bool

	// Work produced by the current operation, flushed by commit.
	pendingEvents []domain.Event
	pendingNotes  []domain.Notification
}

// New creates an engine over the given catalog. This is the engine's
// create(); Dispose is its counterpart.
func New(cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		cat:         cat,
		now:         time.Now,
		loc:         time.UTC,
		log:         zap.NewNop(),
		revivalCost: DefaultRevivalCost,
		coins:       DefaultSeedCoins,
		badges:      make(map[string]*domain.Badge),
		premium:     make(map[string]*domain.PremiumNudge),
		insights:    make(map[string]bool),
		listeners:   make(map[int]Listener),
	}
	for _, def := range cat.Badges() {
		e.badges[def.ID] = &domain.Badge{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Tier:        def.Tier,
		}
	}
	for _, def := range cat.Premium() {
		e.premium[def.ID] = &domain.PremiumNudge{ID: def.ID, Title: def.Title, Cost: def.Cost}
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.restore != nil {
		e.applySnapshot(*e.restore)
		e.restore = nil
	}
	e.level = e.cat.LevelFor(e.xp).Level
	return e
}

func (e *Engine) applySnapshot(s domain.Snapshot) {
	e.coins = max(s.Coins, 0)
	e.xp = max(s.XP, 0)
	e.streak = s.Streak
	if e.streak.Longest < e.streak.Current {
		e.streak.Longest = e.streak.Current
	}
	for _, b := range s.Badges {
		if own, ok := e.badges[b.ID]; ok && b.Earned {
			own.Earned = true
			own.EarnedDate = b.EarnedDate
		}
	}
	for _, p := range s.PremiumNudges {
		if own, ok := e.premium[p.ID]; ok && p.Unlocked {
			own.Unlocked = true
		}
	}
	for _, id := range s.Insights {
		if _, ok := e.cat.Insight(id); ok {
			e.insights[id] = true
		}
	}
	e.doubleUntil = s.DoublePointsUntil
}

// Dispose detaches every subscriber and the notifier. All later operations
// are no-ops.
func (e *Engine) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = true
	e.notifier = nil
	clear(e.listeners)
	e.pendingEvents = nil
	e.pendingNotes = nil
}

// Subscribe registers a listener and returns a function that removes it.
func (e *Engine) Subscribe(l Listener) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.listeners[id] = l
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

// Catalog returns the catalog the engine was built with.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// RevivalCost returns the coin price of ReviveStreak.
func (e *Engine) RevivalCost() int64 { return e.revivalCost }

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *Engine) snapshot() domain.Snapshot {
	s := domain.Snapshot{
		Coins:             e.coins,
		XP:                e.xp,
		Level:             e.level,
		LevelInfo:         e.cat.LevelFor(e.xp),
		Streak:            e.streak,
		Badges:            make([]domain.Badge, 0, len(e.badges)),
		PremiumNudges:     make([]domain.PremiumNudge, 0, len(e.premium)),
		DoublePointsUntil: e.doubleUntil,
		CoinAnimation:     e.coinAnimation,
	}
	// Catalog order keeps listings stable.
	for _, def := range e.cat.Badges() {
		s.Badges = append(s.Badges, *e.badges[def.ID])
	}
	for _, def := range e.cat.Premium() {
		s.PremiumNudges = append(s.PremiumNudges, *e.premium[def.ID])
	}
	for _, in := range e.cat.Insights() {
		if e.insights[in.ID] {
			s.Insights = append(s.Insights, in.ID)
		}
	}
	return s
}

// ─── Operation plumbing ─────────────────────────────────────────────────────

// begin locks the engine. It returns false, already unlocked, when the
// engine is disposed.
func (e *Engine) begin() bool {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return false
	}
	return true
}

// commit releases the engine lock and delivers the operation's
// notifications and change set. Delivery is serialized so subscribers see
// changes in call order.
func (e *Engine) commit() {
	events := e.pendingEvents
	notes := e.pendingNotes
	e.pendingEvents = nil
	e.pendingNotes = nil

	if len(events) == 0 && len(notes) == 0 {
		e.mu.Unlock()
		return
	}

	change := domain.Change{Snapshot: e.snapshot(), Events: events}
	listeners := make([]Listener, 0, len(e.listeners))
	for id := 0; id < e.nextSub; id++ {
		if l, ok := e.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	notifier := e.notifier

	e.dispatchMu.Lock()
	e.mu.Unlock()
	defer e.dispatchMu.Unlock()

	if notifier != nil {
		for _, n := range notes {
			e.deliver(notifier, n)
		}
	}
	if len(events) > 0 {
		for _, l := range listeners {
			e.publish(l, change)
		}
	}
}

func (e *Engine) deliver(notifier Notifier, n domain.Notification) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("notifier panicked", zap.Any("panic", r), zap.String("title", n.Title))
		}
	}()
	if err := notifier.Notify(n); err != nil {
		e.log.Warn("notification dropped", zap.Error(err), zap.String("title", n.Title))
	}
}

func (e *Engine) publish(l Listener, c domain.Change) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("listener panicked", zap.Any("panic", r))
		}
	}()
	l(domain.Change{Snapshot: c.Snapshot.Clone(), Events: slices.Clone(c.Events)})
}

func (e *Engine) emit(t domain.EventType, amount int64, ref string, balance int64) {
	e.pendingEvents = append(e.pendingEvents, domain.Event{
		Type:    t,
		Amount:  amount,
		Ref:     ref,
		Balance: balance,
		At:      e.now(),
	})
}

func (e *Engine) notify(t domain.NotificationType, title, body string) {
	e.pendingNotes = append(e.pendingNotes, domain.Notification{
		Type:      t,
		Title:     title,
		Body:      body,
		CreatedAt: e.now(),
	})
}

func (e *Engine) today() domain.Date {
	return domain.Today(e.now(), e.loc)
}
