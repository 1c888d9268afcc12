// Package domain — behavior analytics and adaptive-learning types.
package domain

import "time"

// ScoreHistoryCap bounds the rolling Protection Score history per user.
// Oldest entries are dropped first.
const ScoreHistoryCap = 30

// ScoreSample is one point in the score history.
type ScoreSample struct {
	Score float64   `json:"score"`
	At    time.Time `json:"at"`
}

// Tone is the recommended messaging register.
type Tone string

const (
	ToneStrict   Tone = "strict"
	ToneFriendly Tone = "friendly"
	ToneBalanced Tone = "balanced"
)

// EngagementPattern classifies recent behavior.
type EngagementPattern string

const (
	PatternNew           EngagementPattern = "new"
	PatternHighlyEngaged EngagementPattern = "highly-engaged"
	PatternDeclining     EngagementPattern = "declining"
	PatternModerate      EngagementPattern = "moderate"
)

// Insights is the adaptive learner's output. Overwritten wholesale on each
// analysis, never merged.
type Insights struct {
	RecommendedDifficulty Difficulty        `json:"recommended_difficulty"`
	RecommendedCategories []Category        `json:"recommended_categories"`
	RecommendedTone       Tone              `json:"recommended_tone"`
	EngagementPattern     EngagementPattern `json:"engagement_pattern"`
	Notes                 string            `json:"notes,omitempty"`
	Confidence            float64           `json:"confidence"` // 0–1
}

// AnalyticsRecord is the rolling behavior record, one per user. Counters are
// updated incrementally by every tracked event; Insights are replaced by the
// adaptive learner.
type AnalyticsRecord struct {
	UserID string `json:"user_id"`

	TotalAccepted      int     `json:"total_accepted"`
	TotalCompleted     int     `json:"total_completed"`
	TotalAbandoned     int     `json:"total_abandoned"`
	CompletionRate     float64 `json:"completion_rate"` // percent, 0–100
	AvgCompletionHours float64 `json:"avg_completion_hours"`

	TotalSessions     int       `json:"total_sessions"`
	AvgSessionMinutes float64   `json:"avg_session_minutes"`
	LastSessionAt     time.Time `json:"last_session_at"`

	Redemptions int `json:"redemptions"`

	CategoryPrefs   map[Category]int   `json:"category_prefs"`
	DifficultyPrefs map[Difficulty]int `json:"difficulty_prefs"`

	ScoreHistory []ScoreSample `json:"score_history"`

	Insights       Insights  `json:"insights"`
	LastAnalyzedAt time.Time `json:"last_analyzed_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WeeklyScoreTrend returns the average score change per week, computed as a
// linear delta between the oldest and newest retained history entries.
// Returns 0 with fewer than two samples.
func (r *AnalyticsRecord) WeeklyScoreTrend() float64 {
	n := len(r.ScoreHistory)
	if n < 2 {
		return 0
	}
	oldest, newest := r.ScoreHistory[0], r.ScoreHistory[n-1]
	days := newest.At.Sub(oldest.At).Hours() / 24
	if days <= 0 {
		return 0
	}
	return (newest.Score - oldest.Score) / days * 7
}

// TopCategories returns the n most-selected categories by historical
// preference, falling back to the starter set when no history exists.
func (r *AnalyticsRecord) TopCategories(n int) []Category {
	if len(r.CategoryPrefs) == 0 {
		starter := []Category{CatMotor, CatHealth, CatHome}
		if n < len(starter) {
			return starter[:n]
		}
		return starter
	}

	// Deterministic order: count desc, then library order as tiebreak.
	var out []Category
	for _, c := range AllCategories() {
		if r.CategoryPrefs[c] > 0 {
			out = append(out, c)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if r.CategoryPrefs[out[j]] > r.CategoryPrefs[out[i]] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}
