package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/coverquest/coverquest/internal/domain"
)

// ─── Error Mapping ──────────────────────────────────────────────────────────

// writeEngineError maps the engine's typed failures onto HTTP statuses.
// Business-rule rejections carry the UTC reset time so callers can show it.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrChallengeNotFound),
		errors.Is(err, domain.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, domain.ErrDailyChallengeLimit),
		errors.Is(err, domain.ErrDailyPointCap):
		reset := domain.DateOf(time.Now()).AddDate(0, 0, 1)
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error": map[string]any{
				"message":   err.Error(),
				"type":      "daily_limit",
				"resets_at": reset.Format(time.RFC3339),
			},
		})

	case errors.Is(err, domain.ErrChallengeTerminal),
		errors.Is(err, domain.ErrInsufficientPoints):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, domain.ErrStoreConflict):
		writeError(w, http.StatusConflict, "concurrent update, retry")

	case errors.Is(err, domain.ErrAIUnavailable):
		// Invisible to end users in normal flows; only on-demand generation
		// can surface it.
		writeError(w, http.StatusServiceUnavailable, "generation unavailable, try later")

	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// ─── Users ──────────────────────────────────────────────────────────────────

type createUserRequest struct {
	ID             string            `json:"id"`
	FocusAreas     []domain.Category `json:"focus_areas"`
	ActivePolicies []domain.Category `json:"active_policies"`
	Level          int               `json:"level"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	u := &domain.User{
		ID:             req.ID,
		FocusAreas:     req.FocusAreas,
		ActivePolicies: req.ActivePolicies,
		Level:          req.Level,
	}
	if err := s.db.CreateUser(u); err != nil {
		writeEngineError(w, err)
		return
	}
	created, err := s.db.GetUser(req.ID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	u, err := s.db.GetUser(userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	balance, err := s.points.Balance(userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	active, err := s.db.ListUserChallenges(userID, domain.ChallengeActive)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":              u,
		"protection_points": balance,
		"tier":              domain.TierForPoints(balance),
		"active_challenges": active,
	})
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	u, err := s.db.GetUser(chi.URLParam(r, "userID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"current_streak":    u.CurrentStreak,
		"longest_streak":    u.LongestStreak,
		"last_active_date":  u.LastActiveDate,
		"has_streak_freeze": u.HasStreakFreeze,
	})
}

// ─── Points ─────────────────────────────────────────────────────────────────

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	balance, err := s.points.Balance(userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	history, err := s.points.History(userID, 50)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance": balance,
		"tier":    domain.TierForPoints(balance),
		"history": history,
	})
}

type redeemRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	balance, err := s.points.Redeem(userID, req.Amount, req.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.analytics.Redemption(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"balance": balance,
		"tier":    domain.TierForPoints(balance),
	})
}

// ─── Challenges ─────────────────────────────────────────────────────────────

func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	status := domain.ChallengeStatus(r.URL.Query().Get("status"))

	challenges, err := s.db.ListUserChallenges(userID, status)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if challenges == nil {
		challenges = []domain.UserChallenge{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"challenges": challenges})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	u, err := s.db.GetUser(userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	uc, err := s.generator.GenerateDaily(r.Context(), u)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, uc)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	challengeID := chi.URLParam(r, "challengeID")

	res, err := s.engagement.CompleteChallenge(userID, challengeID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	challengeID := chi.URLParam(r, "challengeID")

	if err := s.engagement.AbandonChallenge(userID, challengeID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
}

type progressRequest struct {
	Progress int `json:"progress"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	challengeID := chi.URLParam(r, "challengeID")

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.engagement.SetProgress(userID, challengeID, req.Progress); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// ─── Insights & Sessions ────────────────────────────────────────────────────

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	refresh := r.URL.Query().Get("refresh") == "true"

	ins, err := s.learner.Analyze(r.Context(), userID, refresh)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	rec, err := s.analytics.Record(userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"insights":           ins,
		"engagement_pattern": ins.EngagementPattern,
		"completion_rate":    rec.CompletionRate,
		"weekly_score_trend": rec.WeeklyScoreTrend(),
	})
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	s.analytics.SessionStarted(chi.URLParam(r, "userID"), time.Now())
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type sessionEndRequest struct {
	Minutes float64 `json:"minutes"`
}

func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	var req sessionEndRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.analytics.SessionEnded(chi.URLParam(r, "userID"), req.Minutes)
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// ─── Admin ──────────────────────────────────────────────────────────────────

func (s *Server) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := s.engagement.AdminResetUser(userID); err != nil {
		writeEngineError(w, err)
		return
	}
	if err := s.points.AdminReset(userID, "admin reset"); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleJobRecompute(w http.ResponseWriter, r *http.Request) {
	done, err := s.engagement.RecomputeAll()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recomputed": done})
}

func (s *Server) handleJobGenerate(w http.ResponseWriter, r *http.Request) {
	generated, skipped, err := s.generator.GenerateAll(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"generated": generated, "skipped": skipped})
}

func (s *Server) handleJobAnalyze(w http.ResponseWriter, r *http.Request) {
	done, err := s.learner.AnalyzeAll(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyzed": done})
}
