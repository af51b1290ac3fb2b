package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ascend-hq/ascend/internal/domain"
)

// run executes the root command against a fresh flag state.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOutput = false
	verbose = false
	boxTrigger = string(domain.TriggerMilestone)
	notifPending = false
	notifLimit = 20
	ledgerLimit = 50
	configForce = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func setHome(t *testing.T) {
	t.Helper()
	t.Setenv("ASCEND_HOME", t.TempDir())
	t.Setenv("ASCEND_ENGINE_TIMEZONE", "UTC")
}

func status(t *testing.T) domain.Snapshot {
	t.Helper()
	out, err := run(t, "status", "--json")
	require.NoError(t, err)
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap), out)
	return snap
}

func TestCLI_CoinsPersistAcrossCommands(t *testing.T) {
	setHome(t)

	_, err := run(t, "coins", "add", "50")
	require.NoError(t, err)
	assert.Equal(t, int64(150), status(t).Coins)

	_, err = run(t, "coins", "spend", "1000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
	assert.Equal(t, int64(150), status(t).Coins)

	_, err = run(t, "coins", "add", "-3")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCLI_BadgesAndPremium(t *testing.T) {
	setHome(t)

	out, err := run(t, "badge", "earn", "first-nudge")
	require.NoError(t, err)
	assert.Contains(t, out, "done")

	out, err = run(t, "badge", "earn", "first-nudge")
	require.NoError(t, err)
	assert.Contains(t, out, "already done")

	_, err = run(t, "badge", "earn", "nope")
	assert.ErrorIs(t, err, domain.ErrUnknownBadge)

	_, err = run(t, "premium", "unlock", "nope")
	assert.ErrorIs(t, err, domain.ErrUnknownPremium)

	out, err = run(t, "badge", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "First Step")
}

func TestCLI_NudgeAndStreak(t *testing.T) {
	setHome(t)

	out, err := run(t, "nudge", "complete", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "+30 XP")

	out, err = run(t, "streak", "complete")
	require.NoError(t, err)
	assert.Contains(t, out, "already done")

	snap := status(t)
	assert.Equal(t, 1, snap.Streak.Current)
	assert.Equal(t, int64(40), snap.XP)
}

func TestCLI_DailyClaimOncePerDay(t *testing.T) {
	setHome(t)

	out, err := run(t, "daily", "claim")
	require.NoError(t, err)
	assert.Contains(t, out, "Day 1: +10 coins")

	_, err = run(t, "daily", "claim")
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	out, err = run(t, "daily", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "claimed")
}

func TestCLI_BoxTrigger(t *testing.T) {
	setHome(t)

	_, err := run(t, "box", "open", "--trigger", "bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidTrigger)

	out, err := run(t, "box", "open", "--trigger", "streak", "--json")
	require.NoError(t, err)
	var ev domain.RewardEvent
	require.NoError(t, json.Unmarshal([]byte(out), &ev), out)
	assert.Equal(t, domain.TriggerStreak, ev.Trigger)
}

func TestCLI_ChallengesAndLedger(t *testing.T) {
	setHome(t)

	out, err := run(t, "challenges", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "PROGRESS")

	_, err = run(t, "challenges", "progress", "karaoke")
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)

	_, err = run(t, "coins", "add", "5")
	require.NoError(t, err)
	out, err = run(t, "ledger")
	require.NoError(t, err)
	assert.Contains(t, out, "balanced true")

	out, err = run(t, "notifications", "--pending")
	require.NoError(t, err)
	assert.Contains(t, out, "Coins earned")
	out, err = run(t, "notifications", "--pending")
	require.NoError(t, err)
	assert.NotContains(t, out, "Coins earned")
}

func TestCLI_ConfigInit(t *testing.T) {
	setHome(t)

	out, err := run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "config.toml")

	_, err = run(t, "config", "init")
	assert.Error(t, err)

	_, err = run(t, "config", "init", "--force")
	assert.NoError(t, err)
}
