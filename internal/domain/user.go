// Package domain holds the engine's core types.
// The engagement engine drives retention through streaks, Protection Scores,
// daily-capped Protection Points, and AI-personalized challenges.
// Design rule: real value, not dark patterns.
package domain

import "time"

// ─── Insurance Categories ───────────────────────────────────────────────────

// Category is an insurance product line.
type Category string

const (
	CatMotor  Category = "motor"
	CatHealth Category = "health"
	CatTravel Category = "travel"
	CatHome   Category = "home"
	CatLife   Category = "life"
)

// AllCategories lists every product line in library order.
func AllCategories() []Category {
	return []Category{CatMotor, CatHealth, CatTravel, CatHome, CatLife}
}

// ─── User ───────────────────────────────────────────────────────────────────

// Stage classifies where a user sits in the engagement lifecycle.
type Stage string

const (
	StageNew      Stage = "new"
	StageActive   Stage = "active"
	StageLoyal    Stage = "loyal"
	StageInactive Stage = "inactive"
)

// User is the engine-owned user state. Scores, streak, and daily counters
// are mutated only through the engagement services; the Version column backs
// the optimistic-concurrency check on the contended fields.
type User struct {
	ID string `json:"id"`

	// Protection Score: computed 0–100 quality metric, per category and
	// overall. Distinct from the 0–1000 Protection Points ledger — the two
	// scales are never converted into each other.
	CategoryScores map[Category]float64 `json:"category_scores"`
	OverallScore   float64              `json:"overall_score"`

	// Streak state. LastActiveDate is date-normalized UTC, never a timestamp.
	CurrentStreak   int       `json:"current_streak"`
	LongestStreak   int       `json:"longest_streak"`
	LastActiveDate  time.Time `json:"last_active_date"`
	HasStreakFreeze bool      `json:"has_streak_freeze"` // consumed on first missed day

	// Daily earning caps, reset when LastChallengeDate rolls over.
	DailyChallengesCompleted int       `json:"daily_challenges_completed"`
	DailyProtectionPoints    int       `json:"daily_protection_points"`
	LastChallengeDate        time.Time `json:"last_challenge_date"`

	// Profile used by catalog eligibility.
	FocusAreas     []Category `json:"focus_areas"`
	ActivePolicies []Category `json:"active_policies"`
	Level          int        `json:"level"`

	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FocusesOn reports whether the user has restricted their focus areas and,
// if so, whether the category is among them. No focus areas means all
// categories are in play.
func (u *User) FocusesOn(c Category) bool {
	if len(u.FocusAreas) == 0 {
		return true
	}
	for _, f := range u.FocusAreas {
		if f == c {
			return true
		}
	}
	return false
}

// ─── Streak Results ─────────────────────────────────────────────────────────

// StreakTag labels the outcome of a streak update.
type StreakTag string

const (
	StreakStarted     StreakTag = "started"
	StreakUnchanged   StreakTag = "unchanged"
	StreakIncremented StreakTag = "incremented"
	StreakReset       StreakTag = "reset"
)

// StreakResult reports a streak transition. MessageKey is a presentation-layer
// lookup key, never literal copy.
type StreakResult struct {
	Tag            StreakTag `json:"tag"`
	Current        int       `json:"current"`
	Longest        int       `json:"longest"`
	FreezeConsumed bool      `json:"freeze_consumed"`
	MessageKey     string    `json:"message_key"`
}

// ─── Daily Limits ───────────────────────────────────────────────────────────

// Daily earning caps. A user may complete at most ChallengeLimitPerDay
// challenges and earn at most DailyPointsCap Protection Points per UTC
// calendar day.
const (
	ChallengeLimitPerDay = 2
	DailyPointsCap       = 50
)

// AwardResult reports what the daily limiter granted.
type AwardResult struct {
	PointsGranted    int  `json:"points_granted"`
	ChallengeAllowed bool `json:"challenge_allowed"`
}

// ─── Calendar Days ──────────────────────────────────────────────────────────

// DateOf normalizes a time to its UTC calendar day. All daily-reset logic
// (streak and limiter alike) goes through this one helper — mixing timezones
// between the two is a correctness hazard.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b (negative if b is
// earlier). Both are date-normalized first.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)) / (24 * time.Hour))
}

// SameDay reports whether two times fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}
