// Package engagement drives the daily loop: streaks, daily earning caps,
// Protection Score recomputes, and the challenge-completion unit that ties
// them together atomically per user.
package engagement

import (
	"time"

	"github.com/coverquest/coverquest/internal/domain"
)

// ApplyStreak advances the user's streak for a qualifying action at now.
// Pure state transition — the caller persists the user afterwards.
//
// The transition is driven entirely by the calendar-day delta between now
// and LastActiveDate:
//
//	no prior date  → streak = 1          (started)
//	same day       → unchanged           (idempotent re-trigger)
//	next day       → streak + 1          (incremented)
//	2-day gap      → freeze, if held, forgives the single missed day;
//	                 otherwise reset to 1
//	3+ day gap     → reset to 1
func ApplyStreak(u *domain.User, now time.Time) domain.StreakResult {
	today := domain.DateOf(now)

	if u.LastActiveDate.IsZero() {
		u.CurrentStreak = 1
		if u.LongestStreak < 1 {
			u.LongestStreak = 1
		}
		u.LastActiveDate = today
		return domain.StreakResult{
			Tag:        domain.StreakStarted,
			Current:    u.CurrentStreak,
			Longest:    u.LongestStreak,
			MessageKey: "streak.started",
		}
	}

	switch gap := domain.DaysBetween(u.LastActiveDate, today); {
	case gap <= 0:
		// Same day (or clock skew): nothing changes.
		return domain.StreakResult{
			Tag:        domain.StreakUnchanged,
			Current:    u.CurrentStreak,
			Longest:    u.LongestStreak,
			MessageKey: "streak.unchanged",
		}

	case gap == 1:
		u.CurrentStreak++
		if u.CurrentStreak > u.LongestStreak {
			u.LongestStreak = u.CurrentStreak
		}
		u.LastActiveDate = today
		return domain.StreakResult{
			Tag:        domain.StreakIncremented,
			Current:    u.CurrentStreak,
			Longest:    u.LongestStreak,
			MessageKey: "streak.incremented",
		}

	case gap == 2 && u.HasStreakFreeze:
		// Exactly one missed day and a freeze in hand: the freeze
		// auto-consumes, the missed day is forgiven, and the streak
		// continues as if consecutive.
		u.HasStreakFreeze = false
		u.CurrentStreak++
		if u.CurrentStreak > u.LongestStreak {
			u.LongestStreak = u.CurrentStreak
		}
		u.LastActiveDate = today
		return domain.StreakResult{
			Tag:            domain.StreakIncremented,
			Current:        u.CurrentStreak,
			Longest:        u.LongestStreak,
			FreezeConsumed: true,
			MessageKey:     "streak.freeze_used",
		}

	default:
		u.CurrentStreak = 1
		u.LastActiveDate = today
		return domain.StreakResult{
			Tag:        domain.StreakReset,
			Current:    1,
			Longest:    u.LongestStreak,
			MessageKey: "streak.reset",
		}
	}
}
