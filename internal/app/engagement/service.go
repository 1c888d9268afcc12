package engagement

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/coverquest/coverquest/internal/app/points"
	"github.com/coverquest/coverquest/internal/domain"
	"github.com/coverquest/coverquest/internal/infra/metrics"
	"github.com/coverquest/coverquest/internal/infra/sqlite"
)

// Recorder receives behavior events from the engagement loop. Implemented by
// the analytics service; a nil Recorder drops the events.
type Recorder interface {
	ChallengeCompleted(userID string, category domain.Category, startedAt, completedAt time.Time)
	ChallengeAbandoned(userID string)
	ScoreChanged(userID string, score float64, at time.Time)
}

// CompletionResult is everything a caller needs to present after a
// successful challenge completion.
type CompletionResult struct {
	Streak        domain.StreakResult `json:"streak"`
	PointsGranted int                 `json:"points_granted"`
	Balance       int64               `json:"balance"`
	Tier          domain.Tier         `json:"tier"`
	OverallScore  float64             `json:"overall_score"`
	FreezeGranted bool                `json:"freeze_granted"`
}

// Service owns the user's engagement state. The streak fields and the daily
// counters are the only contended state in the system, so every mutation
// goes through a per-user critical section plus the store's optimistic
// version check.
type Service struct {
	db  *sqlite.DB
	pts *points.Service
	rec Recorder

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates an engagement service. rec may be nil.
func NewService(db *sqlite.DB, pts *points.Service, rec Recorder) *Service {
	return &Service{
		db:    db,
		pts:   pts,
		rec:   rec,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.locks[userID]
	if l == nil {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// updateUser loads the user fresh, applies mutate, and writes back. A
// version conflict gets one retry against re-read state, then fails loudly.
// mutate must be safe to run twice.
func (s *Service) updateUser(userID string, mutate func(*domain.User) error) (*domain.User, error) {
	for attempt := 0; ; attempt++ {
		u, err := s.db.GetUser(userID)
		if err != nil {
			return nil, err
		}
		if err := mutate(u); err != nil {
			return nil, err
		}
		err = s.db.UpdateUser(u)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, domain.ErrStoreConflict) || attempt >= 1 {
			return nil, err
		}
	}
}

// ─── Challenge Completion ───────────────────────────────────────────────────

// CompleteChallenge is the single logical unit behind "user finished a
// challenge": streak update, daily-cap check, points grant, challenge
// transition, and score recompute, serialized per user.
//
// Daily-cap rejections leave every piece of state untouched — the challenge
// stays active and can be completed tomorrow.
func (s *Service) CompleteChallenge(userID, challengeID string) (*CompletionResult, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.db.GetUserChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, domain.ErrChallengeNotFound
	}
	if c.IsTerminal() {
		return nil, domain.ErrChallengeTerminal
	}

	now := time.Now()

	var streak domain.StreakResult
	var award domain.AwardResult
	if _, err := s.updateUser(userID, func(u *domain.User) error {
		streak = ApplyStreak(u, now)
		var aerr error
		award, aerr = ApplyAward(u, c.Points, now)
		return aerr
	}); err != nil {
		switch {
		case errors.Is(err, domain.ErrDailyChallengeLimit):
			metrics.LimiterRejections.WithLabelValues("challenge_limit").Inc()
		case errors.Is(err, domain.ErrDailyPointCap):
			metrics.LimiterRejections.WithLabelValues("point_cap").Inc()
		}
		return nil, err
	}
	metrics.StreakEvents.WithLabelValues(string(streak.Tag)).Inc()

	// The daily counters commit first so a cap rejection leaves no trace.
	// A write failure past this point can strand a spent daily slot, but
	// never a ledger entry without one.
	if err := s.db.TransitionChallenge(challengeID, domain.ChallengeCompleted, now); err != nil {
		return nil, err
	}

	oldBal, err := s.pts.Balance(userID)
	if err != nil {
		return nil, err
	}
	_, newBal, err := s.pts.Earn(userID, int64(award.PointsGranted), challengeID,
		fmt.Sprintf("challenge: %s", c.Title))
	if err != nil {
		return nil, err
	}

	// Reaching gold for the first time grants a streak freeze.
	freezeGranted := oldBal < domain.GoldThreshold && newBal >= domain.GoldThreshold

	history, err := s.db.ListUserChallenges(userID, "")
	if err != nil {
		return nil, err
	}
	u, err := s.updateUser(userID, func(u *domain.User) error {
		RecomputeScores(u, history)
		if freezeGranted {
			u.HasStreakFreeze = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ChallengesCompleted.WithLabelValues(string(c.Category)).Inc()

	if s.rec != nil {
		s.rec.ChallengeCompleted(userID, c.Category, c.StartedAt, now)
		s.rec.ScoreChanged(userID, u.OverallScore, now)
	}

	return &CompletionResult{
		Streak:        streak,
		PointsGranted: award.PointsGranted,
		Balance:       newBal,
		Tier:          domain.TierForPoints(newBal),
		OverallScore:  u.OverallScore,
		FreezeGranted: freezeGranted,
	}, nil
}

// AbandonChallenge moves an active challenge to abandoned. Terminal
// challenges reject the transition.
func (s *Service) AbandonChallenge(userID, challengeID string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.db.GetUserChallenge(challengeID)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return domain.ErrChallengeNotFound
	}
	if err := s.db.TransitionChallenge(challengeID, domain.ChallengeAbandoned, time.Now()); err != nil {
		return err
	}
	metrics.ChallengesAbandoned.Inc()
	if s.rec != nil {
		s.rec.ChallengeAbandoned(userID)
	}
	return nil
}

// SetProgress updates progress on an active challenge, clamped to [0, 100).
// Reaching 100 goes through CompleteChallenge so the daily caps apply.
func (s *Service) SetProgress(userID, challengeID string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 99 {
		progress = 99
	}

	c, err := s.db.GetUserChallenge(challengeID)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return domain.ErrChallengeNotFound
	}
	return s.db.SetChallengeProgress(challengeID, progress)
}

// ─── Score Recompute ────────────────────────────────────────────────────────

// RecomputeUser rebuilds one user's Protection Scores from their challenge
// history.
func (s *Service) RecomputeUser(userID string) (*domain.User, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	history, err := s.db.ListUserChallenges(userID, "")
	if err != nil {
		return nil, err
	}
	return s.updateUser(userID, func(u *domain.User) error {
		RecomputeScores(u, history)
		return nil
	})
}

// RecomputeAll runs the score recompute over every user. One user's failure
// is logged and skipped, never fatal to the batch. Returns the number of
// users recomputed.
func (s *Service) RecomputeAll() (int, error) {
	ids, err := s.db.ListUserIDs()
	if err != nil {
		return 0, err
	}
	metrics.UsersTotal.Set(float64(len(ids)))
	done := 0
	for _, id := range ids {
		if _, err := s.RecomputeUser(id); err != nil {
			log.Printf("score recompute: user %s: %v", id, err)
			continue
		}
		done++
	}
	return done, nil
}

// ─── Admin ──────────────────────────────────────────────────────────────────

// AdminResetUser zeroes a user's streak, daily counters, and Protection
// Scores. The explicit admin override is the only path that sets streak
// state outside the streak transition rules; the next recompute rebuilds
// the scores from whatever history remains.
func (s *Service) AdminResetUser(userID string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	_, err := s.updateUser(userID, func(u *domain.User) error {
		u.CurrentStreak = 0
		u.LastActiveDate = time.Time{}
		u.HasStreakFreeze = false
		u.DailyChallengesCompleted = 0
		u.DailyProtectionPoints = 0
		u.LastChallengeDate = time.Time{}
		u.OverallScore = 0
		u.CategoryScores = map[domain.Category]float64{}
		return nil
	})
	return err
}
