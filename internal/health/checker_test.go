package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ascend-hq/ascend/internal/app/catalog"
	"github.com/ascend-hq/ascend/internal/app/gamification"
	"github.com/ascend-hq/ascend/internal/app/ledger"
	"github.com/ascend-hq/ascend/internal/domain"
	"github.com/ascend-hq/ascend/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fixture struct {
	db     *sqlite.DB
	eng    *gamification.Engine
	ledger *ledger.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	eng := gamification.New(catalog.Default())
	t.Cleanup(eng.Dispose)
	led := ledger.NewService(db, nil)
	eng.Subscribe(led.Record)
	return &fixture{db: db, eng: eng, ledger: led}
}

func (f *fixture) checker() *Checker {
	return NewChecker(StandardChecks(f.db, f.eng, f.ledger)...)
}

func statusOf(t *testing.T, c *Checker, name string) Status {
	t.Helper()
	for _, s := range c.Statuses() {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no status for %q", name)
	return Status{}
}

// ─── Checker Tests ──────────────────────────────────────────────────────────

func TestStandardChecks(t *testing.T) {
	f := newFixture(t)
	c := f.checker()
	if len(c.checks) != 4 {
		t.Errorf("checks = %d, want 4", len(c.checks))
	}
}

func TestChecker_IsHealthy_BeforeRun(t *testing.T) {
	c := newFixture(t).checker()
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true before first run (no statuses)")
	}
}

func TestChecker_MissingSnapshotIsRecovered(t *testing.T) {
	f := newFixture(t)
	c := f.checker()
	c.RunOnce(context.Background())

	s := statusOf(t, c, "snapshot")
	if s.Healthy {
		t.Error("snapshot check should fail before anything was saved")
	}
	if !s.Recovered {
		t.Errorf("snapshot should be recovered by saving, got error %q", s.Error)
	}
	if !c.IsHealthy() {
		t.Errorf("IsHealthy() = false, statuses %+v", c.Statuses())
	}

	stored, ok, err := f.db.LoadSnapshot()
	if err != nil || !ok {
		t.Fatalf("LoadSnapshot() = %v, %v", ok, err)
	}
	if stored.Coins != f.eng.Coins() {
		t.Errorf("stored coins = %d, want %d", stored.Coins, f.eng.Coins())
	}

	c.RunOnce(context.Background())
	if s := statusOf(t, c, "snapshot"); !s.Healthy {
		t.Errorf("snapshot should be healthy after recovery, got %q", s.Error)
	}
}

func TestChecker_StaleSnapshotDetected(t *testing.T) {
	f := newFixture(t)
	if err := f.db.SaveSnapshot(f.eng.Snapshot()); err != nil {
		t.Fatal(err)
	}
	f.eng.AddCoins(10) // no persister subscribed

	err := checkSnapshot(f.db, f.eng.Snapshot())
	if err == nil {
		t.Fatal("checkSnapshot() = nil, want stale error")
	}
}

func TestChecker_LedgerBalanced(t *testing.T) {
	f := newFixture(t)
	f.eng.AddCoins(30)
	f.eng.SpendCoins(20)

	c := f.checker()
	c.RunOnce(context.Background())
	if s := statusOf(t, c, "ledger"); !s.Healthy {
		t.Errorf("ledger should be balanced, got %q", s.Error)
	}
}

func TestCheckInvariants(t *testing.T) {
	good := domain.Snapshot{Coins: 5, XP: 120, Level: 2, LevelInfo: domain.LevelInfo{Level: 2}}
	if err := checkInvariants(good); err != nil {
		t.Errorf("checkInvariants(good) = %v", err)
	}

	bad := good
	bad.Coins = -1
	bad.Streak = domain.Streak{Current: 4, Longest: 2}
	err := checkInvariants(bad)
	if err == nil {
		t.Fatal("checkInvariants(bad) = nil, want error")
	}
}

func TestChecker_FailureWithoutRecovery(t *testing.T) {
	boom := errors.New("boom")
	c := NewChecker(Check{
		Name:    "always-fails",
		CheckFn: func(ctx context.Context) error { return boom },
	})
	c.RunOnce(context.Background())

	if c.IsHealthy() {
		t.Error("IsHealthy() should be false")
	}
	if s := statusOf(t, c, "always-fails"); s.Error != "boom" {
		t.Errorf("Error = %q, want boom", s.Error)
	}
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	runs := 0
	c := NewChecker(Check{
		Name:    "count",
		CheckFn: func(ctx context.Context) error { runs++; return nil },
	})
	c.SetInterval(time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	c.Run(ctx)

	if runs < 2 {
		t.Errorf("runs = %d, want at least 2", runs)
	}
}
