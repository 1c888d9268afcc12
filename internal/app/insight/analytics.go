// Package insight tracks behavior analytics and turns them into adaptive
// recommendations. Event counters are append-mostly and tolerate eventual
// consistency — a dropped event is an acceptable loss, a crashed completion
// is not, so event recording never propagates errors to the caller.
package insight

import (
	"log"
	"time"

	"github.com/coverquest/coverquest/internal/domain"
	"github.com/coverquest/coverquest/internal/infra/sqlite"
)

// Service owns the per-user behavior analytics record.
type Service struct {
	db  *sqlite.DB
	now func() time.Time
}

// NewService creates an analytics service.
func NewService(db *sqlite.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Record returns the user's current analytics record. Users with no events
// yet get a fresh zero record.
func (s *Service) Record(userID string) (*domain.AnalyticsRecord, error) {
	return s.db.GetAnalytics(userID)
}

func (s *Service) update(userID string, mutate func(*domain.AnalyticsRecord)) {
	rec, err := s.db.GetAnalytics(userID)
	if err != nil {
		log.Printf("analytics: load %s: %v", userID, err)
		return
	}
	mutate(rec)
	rec.UpdatedAt = s.now()
	if err := s.db.UpsertAnalytics(rec); err != nil {
		log.Printf("analytics: save %s: %v", userID, err)
	}
}

// ─── Events ─────────────────────────────────────────────────────────────────

// SessionStarted records the start of a user session.
func (s *Service) SessionStarted(userID string, at time.Time) {
	s.update(userID, func(r *domain.AnalyticsRecord) {
		r.TotalSessions++
		r.LastSessionAt = at
	})
}

// SessionEnded records a finished session's duration.
func (s *Service) SessionEnded(userID string, minutes float64) {
	s.update(userID, func(r *domain.AnalyticsRecord) {
		n := float64(r.TotalSessions)
		if n < 1 {
			n = 1
		}
		r.AvgSessionMinutes = (r.AvgSessionMinutes*(n-1) + minutes) / n
	})
}

// ChallengeAccepted records a new challenge assignment.
func (s *Service) ChallengeAccepted(userID string, difficulty domain.Difficulty) {
	s.update(userID, func(r *domain.AnalyticsRecord) {
		r.TotalAccepted++
		r.DifficultyPrefs[difficulty]++
	})
}

// ChallengeCompleted records a completion and refreshes the completion rate
// and rolling average completion time.
func (s *Service) ChallengeCompleted(userID string, category domain.Category, startedAt, completedAt time.Time) {
	s.update(userID, func(r *domain.AnalyticsRecord) {
		r.TotalCompleted++
		r.CategoryPrefs[category]++

		hours := completedAt.Sub(startedAt).Hours()
		if hours < 0 {
			hours = 0
		}
		n := float64(r.TotalCompleted)
		r.AvgCompletionHours = (r.AvgCompletionHours*(n-1) + hours) / n

		r.CompletionRate = completionRate(r.TotalCompleted, r.TotalAccepted)
	})
}

// ChallengeAbandoned records an abandonment.
func (s *Service) ChallengeAbandoned(userID string) {
	s.update(userID, func(r *domain.AnalyticsRecord) {
		r.TotalAbandoned++
		r.CompletionRate = completionRate(r.TotalCompleted, r.TotalAccepted)
	})
}

// ScoreChanged appends a Protection Score sample to the rolling history,
// evicting the oldest entry past the cap.
func (s *Service) ScoreChanged(userID string, score float64, at time.Time) {
	s.update(userID, func(r *domain.AnalyticsRecord) {
		r.ScoreHistory = append(r.ScoreHistory, domain.ScoreSample{Score: score, At: at})
		if len(r.ScoreHistory) > domain.ScoreHistoryCap {
			r.ScoreHistory = r.ScoreHistory[len(r.ScoreHistory)-domain.ScoreHistoryCap:]
		}
	})
}

// Redemption records a reward redemption.
func (s *Service) Redemption(userID string) {
	s.update(userID, func(r *domain.AnalyticsRecord) {
		r.Redemptions++
	})
}

// completionRate is completed/accepted as a percentage. Completions recorded
// before their acceptance event (backfills, seeds) can push the raw ratio
// past 100; clamp instead of reporting nonsense.
func completionRate(completed, accepted int) float64 {
	if accepted <= 0 {
		return 0
	}
	rate := float64(completed) / float64(accepted) * 100
	if rate > 100 {
		rate = 100
	}
	return rate
}
