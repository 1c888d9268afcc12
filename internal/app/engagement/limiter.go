package engagement

import (
	"time"

	"github.com/coverquest/coverquest/internal/domain"
)

// ApplyAward runs the daily-cap check for one challenge completion and, on
// success, mutates the user's daily counters. Pure aside from the mutation —
// the caller persists the user in the same unit of work as the streak update.
//
// If the last recorded challenge day is not today, both counters reset before
// the limits are evaluated. Partial grants are allowed: a user at 48/50
// points asking for 15 is granted 2, not rejected.
func ApplyAward(u *domain.User, pointsRequested int, now time.Time) (domain.AwardResult, error) {
	if !domain.SameDay(u.LastChallengeDate, now) {
		u.DailyChallengesCompleted = 0
		u.DailyProtectionPoints = 0
	}

	if u.DailyChallengesCompleted >= domain.ChallengeLimitPerDay {
		return domain.AwardResult{}, domain.ErrDailyChallengeLimit
	}

	granted := pointsRequested
	if room := domain.DailyPointsCap - u.DailyProtectionPoints; granted > room {
		granted = room
	}
	if granted <= 0 {
		return domain.AwardResult{}, domain.ErrDailyPointCap
	}

	u.DailyChallengesCompleted++
	u.DailyProtectionPoints += granted
	u.LastChallengeDate = domain.DateOf(now)

	return domain.AwardResult{PointsGranted: granted, ChallengeAllowed: true}, nil
}
