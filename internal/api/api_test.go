package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ascend-hq/ascend/internal/app/catalog"
	"github.com/ascend-hq/ascend/internal/app/challenge"
	"github.com/ascend-hq/ascend/internal/app/daily"
	"github.com/ascend-hq/ascend/internal/app/gamification"
	"github.com/ascend-hq/ascend/internal/app/ledger"
	"github.com/ascend-hq/ascend/internal/app/rewardbox"
	"github.com/ascend-hq/ascend/internal/app/toast"
	"github.com/ascend-hq/ascend/internal/health"
	"github.com/ascend-hq/ascend/internal/infra/sqlite"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T) (*Server, Services) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cat := catalog.Default()
	feed := toast.NewFeed(db)
	eng := gamification.New(cat, gamification.WithNotifier(feed))
	t.Cleanup(eng.Dispose)

	led := ledger.NewService(db, nil)
	eng.Subscribe(led.Record)

	boxes := rewardbox.New(cat, eng, rewardbox.WithSeed(7))
	svc := Services{
		Engine:     eng,
		Boxes:      boxes,
		Daily:      daily.New(db, eng, boxes),
		Challenges: challenge.NewService(db, eng, boxes),
		Feed:       feed,
		Ledger:     led,
		Health:     health.NewChecker(health.StandardChecks(db, eng, led)...),
	}
	return NewServer(svc, nil), svc
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func stateOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	st, ok := body["state"].(map[string]any)
	require.True(t, ok, "response has no state: %v", body)
	return st
}

// ═══════════════════════════════════════════════════════════════════════════
// Basics
// ═══════════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	w, body := do(t, srv.Handler(), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestHealth_ReportsChecks(t *testing.T) {
	srv, svc := newTestServer(t)
	svc.Health.RunOnce(context.Background())

	w, body := do(t, srv.Handler(), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	checks, ok := body["checks"].([]any)
	require.True(t, ok)
	assert.Len(t, checks, 4)
}

func TestHealth_Degraded(t *testing.T) {
	_, svc := newTestServer(t)
	svc.Health = health.NewChecker(health.Check{
		Name:    "broken",
		CheckFn: func(ctx context.Context) error { return errors.New("down") },
	})
	svc.Health.RunOnce(context.Background())

	w, body := do(t, NewServer(svc, nil).Handler(), "GET", "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", body["status"])
}

func TestState_Fresh(t *testing.T) {
	srv, _ := newTestServer(t)
	w, body := do(t, srv.Handler(), "GET", "/api/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 100, body["coins"])
	assert.EqualValues(t, 1, body["level"])
	assert.EqualValues(t, 50, body["revival_cost"])
	assert.EqualValues(t, 100, body["xp_to_next_level"])
}

func TestLevelsAndBadges(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	w, body := do(t, h, "GET", "/api/levels", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["levels"], 8)

	w, body = do(t, h, "GET", "/api/badges", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, body["badges"])
}

// ═══════════════════════════════════════════════════════════════════════════
// Economy
// ═══════════════════════════════════════════════════════════════════════════

func TestCoins_AddAndSpend(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	w, body := do(t, h, "POST", "/api/coins/add", `{"amount": 40}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "applied", body["outcome"])
	assert.EqualValues(t, 140, stateOf(t, body)["coins"])

	_, body = do(t, h, "POST", "/api/coins/spend", `{"amount": 500}`)
	assert.Equal(t, "denied", body["outcome"])
	assert.Equal(t, false, body["ok"])
	assert.EqualValues(t, 140, stateOf(t, body)["coins"])

	_, body = do(t, h, "POST", "/api/coins/spend", `{"amount": 40}`)
	assert.Equal(t, "applied", body["outcome"])
	assert.Equal(t, true, body["ok"])
	assert.EqualValues(t, 100, stateOf(t, body)["coins"])
}

func TestCoins_AddMaxAmountSaturates(t *testing.T) {
	srv, svc := newTestServer(t)
	h := srv.Handler()

	for range 2 {
		w, _ := do(t, h, "POST", "/api/coins/add", `{"amount": 9223372036854775807}`)
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, int64(math.MaxInt64), svc.Engine.Coins())

	audit, err := svc.Ledger.Audit()
	require.NoError(t, err)
	assert.True(t, audit.Balanced)
}

func TestCoins_BadInput(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		name string
		path string
		body string
	}{
		{"zero", "/api/coins/add", `{"amount": 0}`},
		{"negative", "/api/coins/spend", `{"amount": -5}`},
		{"malformed", "/api/coins/add", `{"amount":`},
		{"unknown field", "/api/xp", `{"amount": 5, "bonus": true}`},
		{"missing", "/api/xp", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := do(t, h, "POST", tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestXP_LevelUp(t *testing.T) {
	srv, _ := newTestServer(t)
	w, body := do(t, srv.Handler(), "POST", "/api/xp", `{"amount": 100}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["level"])
	assert.Equal(t, true, body["leveled_up"])
	assert.EqualValues(t, 200, stateOf(t, body)["coins"])
}

func TestBadgeAndPremium(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	_, body := do(t, h, "POST", "/api/badges/first-nudge/earn", "")
	assert.Equal(t, "applied", body["outcome"])
	_, body = do(t, h, "POST", "/api/badges/first-nudge/earn", "")
	assert.Equal(t, "already_satisfied", body["outcome"])
	_, body = do(t, h, "POST", "/api/badges/nope/earn", "")
	assert.Equal(t, "unknown", body["outcome"])

	_, body = do(t, h, "POST", "/api/premium/executive-presence/unlock", "")
	assert.Equal(t, "denied", body["outcome"], "100 coins cannot buy a 150 coin nudge")
}

// ═══════════════════════════════════════════════════════════════════════════
// Streaks and nudges
// ═══════════════════════════════════════════════════════════════════════════

func TestStreak_IncrementIdempotent(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	_, body := do(t, h, "POST", "/api/streak/increment", "")
	assert.Equal(t, "applied", body["outcome"])
	_, body = do(t, h, "POST", "/api/streak/increment", "")
	assert.Equal(t, "already_satisfied", body["outcome"])

	_, body = do(t, h, "POST", "/api/streak/revive", "")
	assert.Equal(t, "denied", body["outcome"], "nothing to revive")
}

func TestNudgeComplete_AdvancesChallenges(t *testing.T) {
	srv, svc := newTestServer(t)
	h := srv.Handler()

	w, body := do(t, h, "POST", "/api/nudges/complete", "")
	require.Equal(t, http.StatusOK, w.Code)
	res := body["result"].(map[string]any)
	assert.EqualValues(t, DefaultNudgePoints, res["xp_awarded"])
	assert.Equal(t, "applied", res["streak"])

	week, err := svc.Challenges.Weekly()
	require.NoError(t, err)
	require.Len(t, week, challenge.PerWeek)
	for _, c := range week {
		if c.Type == "nudges" || c.Type == "streak" {
			assert.Equal(t, 1, c.Progress, c.ID)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Reward boxes, daily rewards, challenges
// ═══════════════════════════════════════════════════════════════════════════

func TestRewardBox_Open(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	w, body := do(t, h, "POST", "/api/rewardbox/open", `{"trigger": "streak"}`)
	require.Equal(t, http.StatusOK, w.Code)
	ev := body["event"].(map[string]any)
	assert.Equal(t, "streak", ev["trigger"])
	assert.NotEmpty(t, ev["rarity"])
	assert.NotEmpty(t, ev["id"])

	w, _ = do(t, h, "POST", "/api/rewardbox/open", `{"trigger": "birthday"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDaily_ClaimOncePerDay(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	_, body := do(t, h, "GET", "/api/daily", "")
	assert.Equal(t, true, body["claimable"])
	assert.EqualValues(t, 1, body["current_day"])

	w, body := do(t, h, "POST", "/api/daily/claim", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 110, stateOf(t, body)["coins"])

	w, _ = do(t, h, "POST", "/api/daily/claim", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestChallenges_Progress(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	w, body := do(t, h, "GET", "/api/challenges", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["challenges"], challenge.PerWeek)

	w, _ = do(t, h, "POST", "/api/challenges/progress", `{"type": "karaoke", "delta": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, h, "POST", "/api/challenges/progress", `{"type": "feedback", "delta": -1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, h, "POST", "/api/challenges/progress", `{"type": "feedback", "delta": 2}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

// ═══════════════════════════════════════════════════════════════════════════
// Notifications, ledger, metrics
// ═══════════════════════════════════════════════════════════════════════════

func TestNotifications(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	do(t, h, "POST", "/api/coins/add", `{"amount": 5}`)

	w, body := do(t, h, "GET", "/api/notifications?pending=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	notes := body["notifications"].([]any)
	require.Len(t, notes, 1)
	id := notes[0].(map[string]any)["id"]

	w, _ = do(t, h, "POST", "/api/notifications/"+jsonNumber(id)+"/shown", "")
	assert.Equal(t, http.StatusOK, w.Code)

	_, body = do(t, h, "GET", "/api/notifications?pending=true", "")
	assert.Empty(t, body["notifications"])

	w, _ = do(t, h, "POST", "/api/notifications/99999/shown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, h, "POST", "/api/notifications/abc/shown", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(t, h, "GET", "/api/notifications?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedger_Balanced(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	do(t, h, "POST", "/api/coins/add", `{"amount": 30}`)
	do(t, h, "POST", "/api/coins/spend", `{"amount": 10}`)

	w, body := do(t, h, "GET", "/api/ledger?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	audit := body["audit"].(map[string]any)
	assert.Equal(t, true, audit["balanced"])
	assert.Len(t, body["entries"], 2)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w, _ := do(t, srv.Handler(), "GET", "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "disabled by default")

	srv.EnableMetrics()
	h := srv.Handler()
	do(t, h, "GET", "/api/state", "")
	w, _ = do(t, h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ascend_http_request_duration_seconds")
	assert.Contains(t, w.Body.String(), `route="/api/state"`)
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.SetCORSOrigins([]string{"https://app.example.com"})
	h := srv.Handler()

	req := httptest.NewRequest("OPTIONS", "/api/state", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/api/state", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func jsonNumber(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
