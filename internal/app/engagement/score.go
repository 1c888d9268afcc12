package engagement

import (
	"math"

	"github.com/coverquest/coverquest/internal/domain"
)

// CategoryWeights skew the overall score toward the lines that matter most
// for household protection. Unlisted categories fall back to defaultWeight,
// and the overall is renormalized by the weight actually present so a user
// active in two categories isn't punished for ignoring the other three.
var CategoryWeights = map[domain.Category]float64{
	domain.CatMotor:  0.25,
	domain.CatHealth: 0.25,
	domain.CatTravel: 0.15,
	domain.CatHome:   0.20,
	domain.CatLife:   0.15,
}

const defaultWeight = 0.20

// categoryStats is the per-category rollup the score formula consumes.
type categoryStats struct {
	accepted       int
	completed      int
	activeProgress int // sum of progress across active challenges
	active         int
	points         int // engagement points from completed challenges
}

// CategoryScore computes the 0–100 Protection Score for one category:
//
//	40 × completion rate
//	20 × average active-challenge progress
//	20 × engagement points, saturating at 1000
//	20 × streak, saturating at 30 days
func CategoryScore(s categoryStats, streak int) float64 {
	var completionRate float64
	if s.accepted > 0 {
		completionRate = float64(s.completed) / float64(s.accepted)
	}
	var avgProgress float64
	if s.active > 0 {
		avgProgress = float64(s.activeProgress) / float64(s.active)
	}

	score := 40*completionRate +
		20*(avgProgress/100) +
		20*math.Min(float64(s.points)/1000, 1) +
		20*math.Min(float64(streak), 30)/30

	return math.Max(0, math.Min(100, score))
}

// RecomputeScores rebuilds the user's per-category and overall Protection
// Score from their full challenge history. Pure: mutates only the score
// fields on u. Degenerates to all-zero on empty history.
func RecomputeScores(u *domain.User, history []domain.UserChallenge) {
	stats := make(map[domain.Category]*categoryStats)
	for _, c := range history {
		s := stats[c.Category]
		if s == nil {
			s = &categoryStats{}
			stats[c.Category] = s
		}
		s.accepted++
		switch c.Status {
		case domain.ChallengeCompleted:
			s.completed++
			s.points += c.Points
		case domain.ChallengeActive:
			s.active++
			s.activeProgress += c.Progress
		}
	}

	scores := make(map[domain.Category]float64, len(stats))
	var weighted, totalWeight float64
	for cat, s := range stats {
		score := CategoryScore(*s, u.CurrentStreak)
		scores[cat] = score

		w, ok := CategoryWeights[cat]
		if !ok {
			w = defaultWeight
		}
		weighted += score * w
		totalWeight += w
	}

	u.CategoryScores = scores
	if totalWeight > 0 {
		u.OverallScore = weighted / totalWeight
	} else {
		u.OverallScore = 0
	}
}
