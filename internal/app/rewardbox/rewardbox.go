// Package rewardbox resolves reward boxes: one weighted draw over rarity,
// one uniform draw within the rarity, then the reward is applied through the
// game engine.
package rewardbox

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ascend-hq/ascend/internal/app/catalog"
	"github.com/ascend-hq/ascend/internal/domain"
)

// Engine is the part of the game engine a reward box needs.
type Engine interface {
	Level() (domain.LevelInfo, int64)
	ApplyReward(def domain.RewardDef) domain.Outcome
}

// Weights returns the rarity weights for a user level. Higher levels shift
// weight from common toward the rarer tiers; every tier is capped.
func Weights(level int) map[domain.Rarity]int {
	l := max(level, 0)
	return map[domain.Rarity]int{
		domain.RarityCommon:    max(70-5*l, 40),
		domain.RarityUncommon:  min(20+2*l, 30),
		domain.RarityRare:      min(8+l, 20),
		domain.RarityEpic:      min(2+l/2, 8),
		domain.RarityLegendary: min(l/5, 2),
	}
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRand sets the random source. Tests pass a seeded source.
func WithRand(r *rand.Rand) Option {
	return func(rs *Resolver) { rs.rng = r }
}

// WithSeed seeds the random source. Zero keeps the time-based default.
func WithSeed(seed uint64) Option {
	return func(rs *Resolver) {
		if seed != 0 {
			rs.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		}
	}
}

// WithTracer sets the tracer used for open spans.
func WithTracer(t trace.Tracer) Option {
	return func(rs *Resolver) { rs.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(rs *Resolver) { rs.log = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(rs *Resolver) { rs.now = now }
}

// Resolver opens reward boxes. Every open is independent.
type Resolver struct {
	cat    *catalog.Catalog
	engine Engine
	tracer trace.Tracer
	log    *zap.Logger
	now    func() time.Time

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// New creates a Resolver drawing from cat and applying rewards to engine.
func New(cat *catalog.Catalog, engine Engine, opts ...Option) *Resolver {
	seed := uint64(time.Now().UnixNano())
	r := &Resolver{
		cat:    cat,
		engine: engine,
		tracer: otel.Tracer("github.com/ascend-hq/ascend/internal/app/rewardbox"),
		log:    zap.NewNop(),
		now:    time.Now,
		rng:    rand.New(rand.NewPCG(seed, seed>>1)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open draws a reward for trigger at the engine's current level and applies
// it. The returned event describes what was granted.
func (r *Resolver) Open(ctx context.Context, trigger domain.Trigger) (domain.RewardEvent, error) {
	_, span := r.tracer.Start(ctx, "rewardbox.open",
		trace.WithAttributes(attribute.String("trigger", string(trigger))),
	)
	defer span.End()

	if _, err := domain.ParseTrigger(string(trigger)); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.RewardEvent{}, err
	}

	info, _ := r.engine.Level()
	rarity, def, err := r.draw(info.Level)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.RewardEvent{}, err
	}

	out := r.engine.ApplyReward(def)
	ev := domain.RewardEvent{
		ID:      uuid.New().String(),
		Trigger: trigger,
		Rarity:  rarity,
		Def:     def,
		Kind:    def.Reward.Kind(),
		Detail:  domain.DescribeReward(def.Reward),
		Level:   info.Level,
		At:      r.now(),
		Outcome: out,
	}

	span.SetAttributes(
		attribute.String("rarity", string(rarity)),
		attribute.String("reward.id", def.ID),
		attribute.Int("level", info.Level),
		attribute.String("outcome", out.String()),
	)
	r.log.Info("reward box opened",
		zap.String("trigger", string(trigger)),
		zap.String("rarity", string(rarity)),
		zap.String("reward", def.ID),
		zap.Stringer("outcome", out),
	)
	return ev, nil
}

// draw picks a rarity by cumulative weight, then a reward uniformly.
func (r *Resolver) draw(level int) (domain.Rarity, domain.RewardDef, error) {
	weights := Weights(level)
	total := 0
	for _, rarity := range domain.Rarities {
		total += weights[rarity]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pick := r.rng.IntN(total)
	rarity := domain.Rarities[len(domain.Rarities)-1]
	for _, candidate := range domain.Rarities {
		w := weights[candidate]
		if pick < w {
			rarity = candidate
			break
		}
		pick -= w
	}

	pool := r.cat.Rewards(rarity)
	if len(pool) == 0 {
		return "", domain.RewardDef{}, fmt.Errorf("%w: %s", domain.ErrEmptyRarity, rarity)
	}
	return rarity, pool[r.rng.IntN(len(pool))], nil
}
