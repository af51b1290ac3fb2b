package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ascend-hq/ascend/internal/app/challenge"
	"github.com/ascend-hq/ascend/internal/domain"
	"github.com/ascend-hq/ascend/internal/infra/metrics"
	"github.com/ascend-hq/ascend/internal/infra/sqlite"
)

// ─── Read models ────────────────────────────────────────────────────────────

// stateView is the consumer read model returned by GET /api/state and
// attached to every mutation response.
type stateView struct {
	domain.Snapshot
	XPToNextLevel      int64 `json:"xp_to_next_level"`
	FreezePasses       int   `json:"freeze_passes"`
	DoublePointsActive bool  `json:"double_points_active"`
	RevivalCost        int64 `json:"revival_cost"`
}

func (s *Server) state() stateView {
	e := s.svc.Engine
	return stateView{
		Snapshot:           e.Snapshot(),
		XPToNextLevel:      e.XPToNextLevel(),
		FreezePasses:       e.FreezePasses(),
		DoublePointsActive: e.DoublePointsActive(),
		RevivalCost:        e.RevivalCost(),
	}
}

type outcomeResponse struct {
	Outcome domain.Outcome `json:"outcome"`
	OK      bool           `json:"ok"`
	State   stateView      `json:"state"`
}

func (s *Server) writeOutcome(w http.ResponseWriter, o domain.Outcome) {
	writeJSON(w, http.StatusOK, outcomeResponse{Outcome: o, OK: o.OK(), State: s.state()})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	info, xp := s.svc.Engine.Level()
	writeJSON(w, http.StatusOK, map[string]any{
		"levels":  s.svc.Engine.Catalog().Levels(),
		"current": info,
		"xp":      xp,
	})
}

func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"badges": s.svc.Engine.Badges()})
}

func (s *Server) handlePremium(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"premium": s.svc.Engine.Snapshot().PremiumNudges})
}

// ─── Economy ────────────────────────────────────────────────────────────────

type amountRequest struct {
	Amount int64 `json:"amount"`
}

// readAmount decodes {"amount": n} and rejects non-positive values.
func readAmount(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidAmount.Error())
		return 0, false
	}
	return req.Amount, true
}

func (s *Server) handleAddCoins(w http.ResponseWriter, r *http.Request) {
	amount, ok := readAmount(w, r)
	if !ok {
		return
	}
	s.svc.Engine.AddCoins(amount)
	s.writeOutcome(w, domain.OutcomeApplied)
}

func (s *Server) handleSpendCoins(w http.ResponseWriter, r *http.Request) {
	amount, ok := readAmount(w, r)
	if !ok {
		return
	}
	s.writeOutcome(w, s.svc.Engine.SpendCoins(amount))
}

func (s *Server) handleAddXP(w http.ResponseWriter, r *http.Request) {
	amount, ok := readAmount(w, r)
	if !ok {
		return
	}
	level, up := s.svc.Engine.AddXP(amount)
	writeJSON(w, http.StatusOK, map[string]any{
		"level":      level,
		"leveled_up": up,
		"state":      s.state(),
	})
}

// DefaultNudgePoints is the XP a nudge is worth when the request omits it.
const DefaultNudgePoints = 20

type nudgeRequest struct {
	Points int64 `json:"points"`
}

func (s *Server) handleCompleteNudge(w http.ResponseWriter, r *http.Request) {
	req := nudgeRequest{Points: DefaultNudgePoints}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Points <= 0 {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidAmount.Error())
		return
	}
	res := s.svc.Engine.CompleteNudge(req.Points)
	s.recordChallenge(r, domain.ChallengeNudges, 1)
	if res.Streak == domain.OutcomeApplied {
		s.recordChallenge(r, domain.ChallengeStreak, 1)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result": res,
		"state":  s.state(),
	})
}

func (s *Server) handleEarnBadge(w http.ResponseWriter, r *http.Request) {
	s.writeOutcome(w, s.svc.Engine.EarnBadge(chi.URLParam(r, "id")))
}

func (s *Server) handleUnlockPremium(w http.ResponseWriter, r *http.Request) {
	s.writeOutcome(w, s.svc.Engine.UnlockPremiumNudge(chi.URLParam(r, "id")))
}

func (s *Server) handleUnlockInsight(w http.ResponseWriter, r *http.Request) {
	s.writeOutcome(w, s.svc.Engine.UnlockInsight(chi.URLParam(r, "id")))
}

// ─── Streak ─────────────────────────────────────────────────────────────────

func (s *Server) handleIncrementStreak(w http.ResponseWriter, r *http.Request) {
	o := s.svc.Engine.IncrementStreak()
	if o == domain.OutcomeApplied {
		s.recordChallenge(r, domain.ChallengeStreak, 1)
	}
	s.writeOutcome(w, o)
}

func (s *Server) handleReviveStreak(w http.ResponseWriter, r *http.Request) {
	s.writeOutcome(w, s.svc.Engine.ReviveStreak())
}

// ─── Reward boxes ───────────────────────────────────────────────────────────

type openBoxRequest struct {
	Trigger string `json:"trigger"`
}

func (s *Server) handleOpenBox(w http.ResponseWriter, r *http.Request) {
	req := openBoxRequest{Trigger: string(domain.TriggerMilestone)}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trigger, err := domain.ParseTrigger(req.Trigger)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev, err := s.svc.Boxes.Open(r.Context(), trigger)
	if err != nil {
		s.log.Error("open reward box", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event": ev,
		"state": s.state(),
	})
}

// ─── Daily rewards ──────────────────────────────────────────────────────────

func (s *Server) handleDailyStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Daily.Status()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDailyClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := s.svc.Daily.Claim(r.Context())
	if errors.Is(err, domain.ErrAlreadyClaimed) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.DailyClaims.WithLabelValues(strconv.FormatBool(claim.Reward.Special)).Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"claim": claim,
		"state": s.state(),
	})
}

// ─── Challenges ─────────────────────────────────────────────────────────────

func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request) {
	week, err := s.svc.Challenges.Weekly()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"challenges": week})
}

type progressRequest struct {
	Type  string `json:"type"`
	Delta int    `json:"delta"`
}

func (s *Server) handleChallengeProgress(w http.ResponseWriter, r *http.Request) {
	req := progressRequest{Delta: 1}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := challenge.ParseType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	done, err := s.svc.Challenges.RecordProgress(r.Context(), t, req.Delta)
	if errors.Is(err, domain.ErrInvalidAmount) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	countCompleted(done)
	writeJSON(w, http.StatusOK, map[string]any{
		"completed": done,
		"state":     s.state(),
	})
}

// recordChallenge advances challenges as a side effect of another action.
// Failures are logged; the primary action already succeeded.
func (s *Server) recordChallenge(r *http.Request, t domain.ChallengeType, delta int) {
	if s.svc.Challenges == nil {
		return
	}
	done, err := s.svc.Challenges.RecordProgress(r.Context(), t, delta)
	if err != nil {
		s.log.Warn("challenge progress", zap.String("type", string(t)), zap.Error(err))
		return
	}
	countCompleted(done)
}

func countCompleted(done []domain.Challenge) {
	for _, c := range done {
		metrics.ChallengesCompleted.WithLabelValues(string(c.Type)).Inc()
	}
}

// ─── Notifications ──────────────────────────────────────────────────────────

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var notes []domain.Notification
	if r.URL.Query().Get("pending") == "true" {
		notes, err = s.svc.Feed.Pending(limit)
	} else {
		notes, err = s.svc.Feed.Recent(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notes})
}

func (s *Server) handleNotificationShown(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	err = s.svc.Feed.MarkShown(id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := s.svc.Ledger.History(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	audit, err := s.svc.Ledger.Audit()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"audit":   audit,
	})
}

func queryLimit(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}
