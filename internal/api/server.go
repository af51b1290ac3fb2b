// Package api provides the HTTP server for ascend. It exposes the
// gamification engine and its widgets as a JSON API.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ascend-hq/ascend/internal/app/challenge"
	"github.com/ascend-hq/ascend/internal/app/daily"
	"github.com/ascend-hq/ascend/internal/app/gamification"
	"github.com/ascend-hq/ascend/internal/app/ledger"
	"github.com/ascend-hq/ascend/internal/app/toast"
	"github.com/ascend-hq/ascend/internal/domain"
	"github.com/ascend-hq/ascend/internal/health"
	"github.com/ascend-hq/ascend/internal/infra/metrics"
)

// BoxOpener opens reward boxes.
type BoxOpener interface {
	Open(ctx context.Context, trigger domain.Trigger) (domain.RewardEvent, error)
}

// Services are the application services the API exposes. Engine is
// required; a nil widget disables its routes.
type Services struct {
	Engine     *gamification.Engine
	Boxes      BoxOpener
	Daily      *daily.Widget
	Challenges *challenge.Service
	Feed       *toast.Feed
	Ledger     *ledger.Service
	Health     *health.Checker
}

// Server is the ascend HTTP API server.
type Server struct {
	svc            Services
	log            *zap.Logger
	tracer         trace.Tracer
	metricsEnabled bool
	corsOrigins    []string
}

// NewServer creates a new API server.
func NewServer(svc Services, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		svc:         svc,
		log:         log,
		tracer:      otel.Tracer("github.com/ascend-hq/ascend/internal/api"),
		corsOrigins: []string{"*"},
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetCORSOrigins restricts the allowed CORS origins. Empty keeps "*".
func (s *Server) SetCORSOrigins(origins []string) {
	if len(origins) > 0 {
		s.corsOrigins = origins
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.cors)
	r.Use(s.instrument)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/levels", s.handleLevels)
		r.Get("/badges", s.handleBadges)
		r.Get("/premium", s.handlePremium)

		r.Post("/coins/add", s.handleAddCoins)
		r.Post("/coins/spend", s.handleSpendCoins)
		r.Post("/xp", s.handleAddXP)
		r.Post("/nudges/complete", s.handleCompleteNudge)
		r.Post("/badges/{id}/earn", s.handleEarnBadge)
		r.Post("/premium/{id}/unlock", s.handleUnlockPremium)
		r.Post("/insights/{id}/unlock", s.handleUnlockInsight)
		r.Post("/streak/increment", s.handleIncrementStreak)
		r.Post("/streak/revive", s.handleReviveStreak)

		if s.svc.Boxes != nil {
			r.Post("/rewardbox/open", s.handleOpenBox)
		}
		if s.svc.Daily != nil {
			r.Get("/daily", s.handleDailyStatus)
			r.Post("/daily/claim", s.handleDailyClaim)
		}
		if s.svc.Challenges != nil {
			r.Get("/challenges", s.handleChallenges)
			r.Post("/challenges/progress", s.handleChallengeProgress)
		}
		if s.svc.Feed != nil {
			r.Get("/notifications", s.handleNotifications)
			r.Post("/notifications/{id}/shown", s.handleNotificationShown)
		}
		if s.svc.Ledger != nil {
			r.Get("/ledger", s.handleLedger)
		}
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.svc.Health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": s.svc.Health.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// unchanged.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// cors adds CORS headers for the configured origins.
func (s *Server) cors(next http.Handler) http.Handler {
	allowAll := len(s.corsOrigins) == 1 && s.corsOrigins[0] == "*"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && containsFold(s.corsOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// instrument records a span and a latency observation per request, keyed
// by the matched route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := s.tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		span.SetName(r.Method + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.String("request.id", middleware.GetReqID(r.Context())),
		)
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("took", time.Since(start)),
		)
	})
}
