package toast_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ascend-hq/ascend/internal/app/catalog"
	"github.com/ascend-hq/ascend/internal/app/gamification"
	"github.com/ascend-hq/ascend/internal/app/toast"
	"github.com/ascend-hq/ascend/internal/domain"
	"github.com/ascend-hq/ascend/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func at(hour, min int) func() time.Time {
	return func() time.Time { return time.Date(2025, 7, 1, hour, min, 0, 0, time.UTC) }
}

// ═══════════════════════════════════════════════════════════════════════════
// Feed
// ═══════════════════════════════════════════════════════════════════════════

func TestFeed_DefaultPolicyKeepsEverything(t *testing.T) {
	db := newTestDB(t)
	feed := toast.NewFeed(db, toast.WithClock(at(23, 30)))

	for range 5 {
		require.NoError(t, feed.Notify(domain.Notification{Type: domain.NotifyCoins, Title: "Coins earned", Body: "+5 coins"}))
	}
	pending, err := feed.Pending(10)
	require.NoError(t, err)
	assert.Len(t, pending, 5)
}

func TestFeed_DailyCap(t *testing.T) {
	db := newTestDB(t)
	feed := toast.NewFeed(db,
		toast.WithClock(at(12, 0)),
		toast.WithPolicy(domain.NotificationPolicy{MaxPerDay: 2}),
	)

	var ids []int64
	for range 4 {
		id, err := feed.Create(domain.Notification{Type: domain.NotifyXP, Title: "XP gained"})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.NotZero(t, ids[0])
	assert.NotZero(t, ids[1])
	assert.Zero(t, ids[2], "third toast should be suppressed")
	assert.Zero(t, ids[3])
}

func TestFeed_QuietHours(t *testing.T) {
	policy := domain.NotificationPolicy{QuietStart: "22:00", QuietEnd: "08:00"}
	tests := []struct {
		hour, min int
		stored    bool
	}{
		{21, 59, true},
		{22, 0, false},
		{3, 0, false},
		{7, 59, false},
		{8, 0, true},
		{14, 0, true},
	}
	for _, tt := range tests {
		db := newTestDB(t)
		feed := toast.NewFeed(db, toast.WithPolicy(policy), toast.WithClock(at(tt.hour, tt.min)))
		id, err := feed.Create(domain.Notification{Type: domain.NotifyBadge, Title: "Badge earned!"})
		require.NoError(t, err)
		assert.Equal(t, tt.stored, id != 0, "%02d:%02d", tt.hour, tt.min)
	}
}

func TestFeed_QuietHoursUseLocation(t *testing.T) {
	db := newTestDB(t)
	// 14:00 UTC is 23:00 in UTC+9.
	feed := toast.NewFeed(db,
		toast.WithPolicy(domain.NotificationPolicy{QuietStart: "22:00", QuietEnd: "08:00"}),
		toast.WithLocation(time.FixedZone("JST", 9*3600)),
		toast.WithClock(at(14, 0)),
	)
	id, err := feed.Create(domain.Notification{Type: domain.NotifyStreak, Title: "Streak reset"})
	require.NoError(t, err)
	assert.Zero(t, id)
}

func TestFeed_MarkShown(t *testing.T) {
	db := newTestDB(t)
	feed := toast.NewFeed(db)

	id, err := feed.Create(domain.Notification{Type: domain.NotifyLevelUp, Title: "Level up!"})
	require.NoError(t, err)
	require.NoError(t, feed.MarkShown(id))

	pending, _ := feed.Pending(10)
	assert.Empty(t, pending)
	recent, _ := feed.Recent(10)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].Shown)

	assert.ErrorIs(t, feed.MarkShown(id+100), sqlite.ErrNotFound)
}

func TestFeed_AsEngineNotifier(t *testing.T) {
	db := newTestDB(t)
	feed := toast.NewFeed(db)
	eng := gamification.New(catalog.Default(), gamification.WithNotifier(feed))
	defer eng.Dispose()

	eng.AddXP(100)

	recent, err := feed.Recent(10)
	require.NoError(t, err)
	types := make([]domain.NotificationType, 0, len(recent))
	for _, n := range recent {
		types = append(types, n.Type)
	}
	// Newest first.
	assert.Equal(t, []domain.NotificationType{domain.NotifyCoins, domain.NotifyLevelUp, domain.NotifyXP}, types)
}

// ═══════════════════════════════════════════════════════════════════════════
// LogSink & Multi
// ═══════════════════════════════════════════════════════════════════════════

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := toast.NewLogSink(zap.New(core))

	require.NoError(t, sink.Notify(domain.Notification{Type: domain.NotifyBadge, Title: "Badge earned!", Body: "Coach"}))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Badge earned!", entries[0].Message)
	assert.Equal(t, "Coach", entries[0].ContextMap()["body"])
}

type errSink struct{ err error }

func (s errSink) Notify(domain.Notification) error { return s.err }

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	m := toast.Multi{errSink{errA}, toast.NewLogSink(zap.New(core)), errSink{errB}}
	err := m.Notify(domain.Notification{Title: "hello"})

	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, 1, logs.Len(), "sink after a failure must still be called")

	assert.NoError(t, toast.Multi{}.Notify(domain.Notification{}))
}
