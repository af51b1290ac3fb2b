package daemon

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ascend-hq/ascend/internal/domain"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Engine.Timezone = "UTC"
	cfg.Rewards.Seed = 42
	return cfg
}

func newTestDaemon(t *testing.T, home string) *Daemon {
	t.Helper()
	d, err := NewWithConfig(testConfig(), home, nil)
	require.NoError(t, err)
	return d
}

func TestDaemon_PersistsSnapshot(t *testing.T) {
	home := t.TempDir()

	d := newTestDaemon(t, home)
	d.Engine.AddCoins(25)
	assert.Equal(t, domain.OutcomeApplied, d.Engine.IncrementStreak())
	d.Close()

	d = newTestDaemon(t, home)
	defer d.Close()
	snap := d.Engine.Snapshot()
	assert.Equal(t, int64(125), snap.Coins)
	assert.Equal(t, 1, snap.Streak.Current)
	assert.Equal(t, int64(10), snap.XP)
}

func TestDaemon_LedgerAndFeedWired(t *testing.T) {
	d := newTestDaemon(t, t.TempDir())
	defer d.Close()

	d.Engine.AddCoins(40)
	d.Engine.SpendCoins(15)

	audit, err := d.Ledger.Audit()
	require.NoError(t, err)
	assert.True(t, audit.Balanced)
	assert.Equal(t, int64(25), audit.Wallet)

	notes, err := d.Feed.Recent(10)
	require.NoError(t, err)
	assert.NotEmpty(t, notes)
}

func TestDaemon_BoxesAndDaily(t *testing.T) {
	d := newTestDaemon(t, t.TempDir())
	defer d.Close()

	ev, err := d.Boxes.Open(context.Background(), domain.TriggerMilestone)
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)

	claim, err := d.Daily.Claim(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, claim.Reward.Day)
}

func TestDaemon_HealthChecksPass(t *testing.T) {
	d := newTestDaemon(t, t.TempDir())
	defer d.Close()

	d.Engine.AddCoins(10)
	d.Health.RunOnce(context.Background())
	assert.True(t, d.Health.IsHealthy(), "statuses: %+v", d.Health.Statuses())
	for _, s := range d.Health.Statuses() {
		assert.True(t, s.Healthy, "%s: %s", s.Name, s.Error)
	}
}

func TestDaemon_ServeListenerShutsDown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d := newTestDaemon(t, t.TempDir())
	defer d.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.ServeListener(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/api/state")
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.EqualValues(t, 100, body["coins"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ServeListener did not return after cancel")
	}
}
