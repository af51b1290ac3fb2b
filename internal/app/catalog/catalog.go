// Package catalog holds the static reward catalog: the level table, badge
// definitions, premium content costs and the reward box pool.
// The catalog is pure data. It is loaded once and never mutated.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ascend-hq/ascend/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// BadgeDef defines a badge. StreakDays > 0 marks a streak badge that is
// earned when the streak first reaches that many days.
type BadgeDef struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Tier        domain.Tier `yaml:"tier"`
	StreakDays  int         `yaml:"streak_days"`
}

// PremiumDef prices a piece of premium content.
type PremiumDef struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Cost  int64  `yaml:"cost"`
}

// Insight is unlockable reading material.
type Insight struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
}

// rawReward is the YAML shape of a reward; it is converted to the closed
// domain.Reward union on load.
type rawReward struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Rarity   domain.Rarity `yaml:"rarity"`
	Kind     string        `yaml:"kind"`
	Amount   int64         `yaml:"amount"`
	Count    int           `yaml:"count"`
	Badge    string        `yaml:"badge"`
	Insight  string        `yaml:"insight"`
	Duration string        `yaml:"duration"`
}

type rawCatalog struct {
	Levels   []domain.LevelInfo `yaml:"levels"`
	Badges   []BadgeDef         `yaml:"badges"`
	Premium  []PremiumDef       `yaml:"premium"`
	Insights []Insight          `yaml:"insights"`
	Rewards  []rawReward        `yaml:"rewards"`
}

// Catalog is the validated, indexed reward catalog.
type Catalog struct {
	levels   []domain.LevelInfo
	badges   []BadgeDef
	premium  []PremiumDef
	insights []Insight
	rewards  map[domain.Rarity][]domain.RewardDef

	badgeByID   map[string]BadgeDef
	premiumByID map[string]PremiumDef
	insightByID map[string]Insight
	streakBadge map[int]string
}

// Default returns the embedded catalog. It panics if the embedded file is
// invalid, which is a build defect.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path. An empty path returns the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML catalog.
func Parse(raw []byte) (*Catalog, error) {
	var rc rawCatalog
	if err := yaml.Unmarshal(raw, &rc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}

	c := &Catalog{
		levels:      rc.Levels,
		badges:      rc.Badges,
		premium:     rc.Premium,
		insights:    rc.Insights,
		rewards:     make(map[domain.Rarity][]domain.RewardDef),
		badgeByID:   make(map[string]BadgeDef, len(rc.Badges)),
		premiumByID: make(map[string]PremiumDef, len(rc.Premium)),
		insightByID: make(map[string]Insight, len(rc.Insights)),
		streakBadge: make(map[int]string),
	}

	if err := c.indexLevels(); err != nil {
		return nil, err
	}
	if err := c.indexBadges(); err != nil {
		return nil, err
	}
	for _, p := range c.premium {
		if p.ID == "" || p.Cost <= 0 {
			return nil, fmt.Errorf("%w: premium %q must have an id and a positive cost", domain.ErrInvalidCatalog, p.ID)
		}
		if _, dup := c.premiumByID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate premium id %q", domain.ErrInvalidCatalog, p.ID)
		}
		c.premiumByID[p.ID] = p
	}
	for _, in := range c.insights {
		if _, dup := c.insightByID[in.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate insight id %q", domain.ErrInvalidCatalog, in.ID)
		}
		c.insightByID[in.ID] = in
	}
	if err := c.indexRewards(rc.Rewards); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) indexLevels() error {
	if len(c.levels) == 0 {
		return fmt.Errorf("%w: level table is empty", domain.ErrInvalidCatalog)
	}
	if c.levels[0].MinXP != 0 {
		return fmt.Errorf("%w: level table must start at 0 XP", domain.ErrInvalidCatalog)
	}
	for i, l := range c.levels {
		if l.Level != i+1 {
			return fmt.Errorf("%w: level %d out of order at index %d", domain.ErrInvalidCatalog, l.Level, i)
		}
		if l.MaxXP <= l.MinXP {
			return fmt.Errorf("%w: level %d has empty XP range", domain.ErrInvalidCatalog, l.Level)
		}
		if i > 0 && c.levels[i-1].MaxXP != l.MinXP {
			return fmt.Errorf("%w: level %d does not start where level %d ends", domain.ErrInvalidCatalog, l.Level, l.Level-1)
		}
	}
	return nil
}

func (c *Catalog) indexBadges() error {
	for _, b := range c.badges {
		if b.ID == "" {
			return fmt.Errorf("%w: badge without id", domain.ErrInvalidCatalog)
		}
		if !b.Tier.Valid() {
			return fmt.Errorf("%w: badge %q has unknown tier %q", domain.ErrInvalidCatalog, b.ID, b.Tier)
		}
		if _, dup := c.badgeByID[b.ID]; dup {
			return fmt.Errorf("%w: duplicate badge id %q", domain.ErrInvalidCatalog, b.ID)
		}
		c.badgeByID[b.ID] = b
		if b.StreakDays > 0 {
			c.streakBadge[b.StreakDays] = b.ID
		}
	}
	for _, days := range StreakMilestones {
		if _, ok := c.streakBadge[days]; !ok {
			return fmt.Errorf("%w: missing %d-day streak badge", domain.ErrInvalidCatalog, days)
		}
	}
	return nil
}

func (c *Catalog) indexRewards(raw []rawReward) error {
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		if r.ID == "" || seen[r.ID] {
			return fmt.Errorf("%w: reward id %q missing or duplicated", domain.ErrInvalidCatalog, r.ID)
		}
		seen[r.ID] = true
		if !r.Rarity.Valid() {
			return fmt.Errorf("%w: reward %q has unknown rarity %q", domain.ErrInvalidCatalog, r.ID, r.Rarity)
		}
		effect, err := c.convertReward(r)
		if err != nil {
			return err
		}
		c.rewards[r.Rarity] = append(c.rewards[r.Rarity], domain.RewardDef{
			ID:     r.ID,
			Name:   r.Name,
			Rarity: r.Rarity,
			Reward: effect,
		})
	}
	for _, rarity := range domain.Rarities {
		if len(c.rewards[rarity]) == 0 {
			return fmt.Errorf("%w: %w %s", domain.ErrInvalidCatalog, domain.ErrEmptyRarity, rarity)
		}
	}
	return nil
}

func (c *Catalog) convertReward(r rawReward) (domain.Reward, error) {
	bad := func(why string) error {
		return fmt.Errorf("%w: reward %q: %s", domain.ErrInvalidCatalog, r.ID, why)
	}
	switch r.Kind {
	case "coins":
		if r.Amount <= 0 {
			return nil, bad("amount must be positive")
		}
		return domain.CoinsReward{Amount: r.Amount}, nil
	case "xp":
		if r.Amount <= 0 {
			return nil, bad("amount must be positive")
		}
		return domain.XPReward{Amount: r.Amount}, nil
	case "badge":
		if _, ok := c.badgeByID[r.Badge]; !ok {
			return nil, bad("unknown badge " + r.Badge)
		}
		return domain.BadgeReward{BadgeID: r.Badge}, nil
	case "streak_freeze":
		if r.Count <= 0 {
			return nil, bad("count must be positive")
		}
		return domain.StreakFreezeReward{Count: r.Count}, nil
	case "insight":
		if _, ok := c.insightByID[r.Insight]; !ok {
			return nil, bad("unknown insight " + r.Insight)
		}
		return domain.InsightReward{InsightID: r.Insight}, nil
	case "double_points":
		d, err := time.ParseDuration(r.Duration)
		if err != nil || d <= 0 {
			return nil, bad("invalid duration " + r.Duration)
		}
		return domain.DoublePointsReward{Duration: d}, nil
	}
	return nil, bad("unknown kind " + r.Kind)
}

// StreakMilestones are the streak lengths that award a badge.
var StreakMilestones = []int{3, 7, 30}

// ─── Level Table ────────────────────────────────────────────────────────────

// Levels returns a copy of the level table.
func (c *Catalog) Levels() []domain.LevelInfo {
	return append([]domain.LevelInfo(nil), c.levels...)
}

// LevelFor returns the level holding xp: the entry with MinXP <= xp < MaxXP,
// or the last entry once xp passes every threshold.
func (c *Catalog) LevelFor(xp int64) domain.LevelInfo {
	for _, l := range c.levels {
		if l.Contains(xp) {
			return l
		}
	}
	if xp < 0 {
		return c.levels[0]
	}
	return c.levels[len(c.levels)-1]
}

// MaxLevel returns the highest level number.
func (c *Catalog) MaxLevel() int {
	return c.levels[len(c.levels)-1].Level
}

// ─── Badges ─────────────────────────────────────────────────────────────────

// Badges returns all badge definitions in catalog order.
func (c *Catalog) Badges() []BadgeDef {
	return append([]BadgeDef(nil), c.badges...)
}

// Badge looks up a badge definition.
func (c *Catalog) Badge(id string) (BadgeDef, bool) {
	b, ok := c.badgeByID[id]
	return b, ok
}

// StreakBadgeFor returns the badge awarded when a streak reaches days.
func (c *Catalog) StreakBadgeFor(days int) (string, bool) {
	id, ok := c.streakBadge[days]
	return id, ok
}

// ─── Premium & Insights ─────────────────────────────────────────────────────

// Premium returns all premium content definitions.
func (c *Catalog) Premium() []PremiumDef {
	return append([]PremiumDef(nil), c.premium...)
}

// PremiumItem looks up premium content by id.
func (c *Catalog) PremiumItem(id string) (PremiumDef, bool) {
	p, ok := c.premiumByID[id]
	return p, ok
}

// Insights returns all insight definitions.
func (c *Catalog) Insights() []Insight {
	return append([]Insight(nil), c.insights...)
}

// Insight looks up an insight by id.
func (c *Catalog) Insight(id string) (Insight, bool) {
	in, ok := c.insightByID[id]
	return in, ok
}

// ─── Reward Box Pool ────────────────────────────────────────────────────────

// Rewards returns the reward definitions tagged with rarity.
func (c *Catalog) Rewards(rarity domain.Rarity) []domain.RewardDef {
	return append([]domain.RewardDef(nil), c.rewards[rarity]...)
}
