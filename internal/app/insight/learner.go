package insight

import (
	"context"
	"log"
	"time"

	"github.com/coverquest/coverquest/internal/domain"
	"github.com/coverquest/coverquest/internal/infra/sqlite"
)

// analysisGate is the minimum interval between scheduled re-analyses of one
// user. On-demand calls may bypass it.
const analysisGate = 48 * time.Hour

// Recommender asks an AI collaborator for insight recommendations. ok=false
// covers timeout, transport failure, and malformed output alike; the learner
// then uses its deterministic rules.
type Recommender interface {
	Recommend(ctx context.Context, rec domain.AnalyticsRecord) (*domain.Insights, bool)
}

// Learner converts behavior analytics into difficulty/category/tone
// recommendations.
type Learner struct {
	db          *sqlite.DB
	recommender Recommender // nil → rules only
	aiTimeout   time.Duration
	now         func() time.Time
}

// NewLearner creates an adaptive learner. recommender may be nil.
func NewLearner(db *sqlite.DB, recommender Recommender, aiTimeout time.Duration) *Learner {
	return &Learner{db: db, recommender: recommender, aiTimeout: aiTimeout, now: time.Now}
}

// Analyze refreshes one user's insights. When force is false and the last
// analysis is within the gate interval, the stored insights are returned
// untouched.
func (l *Learner) Analyze(ctx context.Context, userID string, force bool) (*domain.Insights, error) {
	rec, err := l.db.GetAnalytics(userID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	if !force && !rec.LastAnalyzedAt.IsZero() && now.Sub(rec.LastAnalyzedAt) < analysisGate {
		return &rec.Insights, nil
	}

	insights := l.recommend(ctx, rec)
	rec.Insights = *insights
	rec.LastAnalyzedAt = now
	rec.UpdatedAt = now
	if err := l.db.UpsertAnalytics(rec); err != nil {
		return nil, err
	}
	return insights, nil
}

func (l *Learner) recommend(ctx context.Context, rec *domain.AnalyticsRecord) *domain.Insights {
	if l.recommender != nil {
		aiCtx, cancel := context.WithTimeout(ctx, l.aiTimeout)
		defer cancel()
		if ins, ok := l.recommender.Recommend(aiCtx, *rec); ok && validInsights(ins) {
			return ins
		}
	}
	return FallbackInsights(rec, l.now())
}

func validInsights(ins *domain.Insights) bool {
	switch ins.RecommendedDifficulty {
	case domain.DiffEasy, domain.DiffMedium, domain.DiffHard, domain.DiffAdvanced:
	default:
		return false
	}
	switch ins.RecommendedTone {
	case domain.ToneStrict, domain.ToneFriendly, domain.ToneBalanced:
	default:
		return false
	}
	return len(ins.RecommendedCategories) > 0
}

// FallbackInsights derives recommendations from fixed rules. Deterministic:
// identical analytics always produce identical output.
func FallbackInsights(rec *domain.AnalyticsRecord, now time.Time) *domain.Insights {
	var difficulty domain.Difficulty
	switch {
	case rec.CompletionRate > 80 && rec.AvgCompletionHours < 24:
		difficulty = domain.DiffHard
	case rec.CompletionRate < 40 || rec.TotalAccepted < 3:
		difficulty = domain.DiffEasy
	default:
		difficulty = domain.DiffMedium
	}

	var tone domain.Tone
	switch {
	case rec.CompletionRate > 75 && rec.AvgSessionMinutes > 15:
		tone = domain.ToneStrict
	case rec.CompletionRate < 50 || rec.AvgSessionMinutes < 5:
		tone = domain.ToneFriendly
	default:
		tone = domain.ToneBalanced
	}

	daysSinceSession := 9999
	if !rec.LastSessionAt.IsZero() {
		daysSinceSession = domain.DaysBetween(rec.LastSessionAt, now)
	}
	var pattern domain.EngagementPattern
	switch {
	case rec.TotalSessions < 5:
		pattern = domain.PatternNew
	case rec.AvgSessionMinutes > 20 && rec.TotalSessions > 15:
		pattern = domain.PatternHighlyEngaged
	case daysSinceSession > 7:
		pattern = domain.PatternDeclining
	default:
		pattern = domain.PatternModerate
	}

	return &domain.Insights{
		RecommendedDifficulty: difficulty,
		RecommendedCategories: rec.TopCategories(3),
		RecommendedTone:       tone,
		EngagementPattern:     pattern,
		Confidence:            0.5, // rules, not a model
	}
}

// AnalyzeAll refreshes every user whose last analysis is past the gate.
// Per-user failures are logged and skipped. Returns the number analyzed.
func (l *Learner) AnalyzeAll(ctx context.Context) (int, error) {
	due, err := l.db.ListAnalyticsDue(l.now().Add(-analysisGate))
	if err != nil {
		return 0, err
	}

	done := 0
	for _, userID := range due {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := l.Analyze(ctx, userID, false); err != nil {
			log.Printf("adaptive learning: user %s: %v", userID, err)
			continue
		}
		done++
	}
	return done, nil
}
