// Package challenge holds the challenge content pipeline: a static catalog
// of trigger-conditioned templates and the daily generator that blends
// catalog picks with AI-written variants.
package challenge

import (
	"errors"
	"time"

	"github.com/coverquest/coverquest/internal/domain"
	"github.com/coverquest/coverquest/internal/infra/sqlite"
)

// Library returns the built-in challenge catalog. IDs are stable so catalog
// templates can be seeded idempotently across restarts.
func Library() []domain.ChallengeTemplate {
	return []domain.ChallengeTemplate{
		{
			ID: "cat-motor-renewal-check", Category: domain.CatMotor, Type: domain.ChallengeRenewal,
			Title:       "Review your motor policy before renewal",
			Description: "Your motor policy renews soon. Check the cover still fits how you drive today.",
			Steps:       []string{"Open your motor policy summary", "Check your annual mileage estimate", "Confirm named drivers are current"},
			Points:      15, Difficulty: domain.DiffMedium, EstMinutes: 10,
			Trigger: &domain.Trigger{MaxDaysToRenewal: 30},
		},
		{
			ID: "cat-motor-safety-basics", Category: domain.CatMotor, Type: domain.ChallengeSafety,
			Title:       "Run the five-minute vehicle safety check",
			Description: "Tyres, lights, fluids. The checks that stop small problems becoming claims.",
			Steps:       []string{"Check tyre tread and pressure", "Test all exterior lights", "Top up washer fluid"},
			Points:      10, Difficulty: domain.DiffEasy, EstMinutes: 5,
		},
		{
			ID: "cat-health-profile", Category: domain.CatHealth, Type: domain.ChallengeAwareness,
			Title:       "Complete your health cover profile",
			Description: "A complete profile means faster claims and better-matched cover.",
			Steps:       []string{"Confirm your GP details", "Add any ongoing conditions", "Review your excess level"},
			Points:      10, Difficulty: domain.DiffEasy, EstMinutes: 8,
			Trigger: &domain.Trigger{Stages: []domain.Stage{domain.StageNew, domain.StageActive}},
		},
		{
			ID: "cat-health-wellness-walk", Category: domain.CatHealth, Type: domain.ChallengeSafety,
			Title:       "Log a 30-minute walk",
			Description: "Small daily habits compound. Log one walk today.",
			Steps:       []string{"Take a 30-minute walk", "Log it in the activity tracker"},
			Points:      5, Difficulty: domain.DiffEasy, EstMinutes: 30,
		},
		{
			ID: "cat-travel-docs", Category: domain.CatTravel, Type: domain.ChallengeAwareness,
			Title:       "Check your travel documents are in date",
			Description: "Out-of-date documents void most travel claims. Two minutes now saves a ruined trip.",
			Steps:       []string{"Check passport expiry", "Check EHIC/GHIC validity", "Save your policy number offline"},
			Points:      10, Difficulty: domain.DiffEasy, EstMinutes: 5,
		},
		{
			ID: "cat-travel-gap", Category: domain.CatTravel, Type: domain.ChallengeCrossProduct,
			Title:       "See what travel cover would add",
			Description: "You hold other cover with us but nothing for trips. See what a policy would look like.",
			Steps:       []string{"Open the travel cover explainer", "Get an indicative quote"},
			Points:      10, Difficulty: domain.DiffEasy, EstMinutes: 5,
			Trigger: &domain.Trigger{MissingProducts: []domain.Category{domain.CatTravel}},
		},
		{
			ID: "cat-home-inventory", Category: domain.CatHome, Type: domain.ChallengeEngagement,
			Title:       "Build a photo inventory of one room",
			Description: "A photo inventory turns a contested claim into a settled one.",
			Steps:       []string{"Pick one room", "Photograph valuables and serial numbers", "Upload to your policy vault"},
			Points:      15, Difficulty: domain.DiffMedium, EstMinutes: 20,
		},
		{
			ID: "cat-home-winter-prep", Category: domain.CatHome, Type: domain.ChallengeSeasonal,
			Title:       "Winter-proof your pipes",
			Description: "Burst pipes are the most common winter home claim. Lag yours before the first freeze.",
			Steps:       []string{"Locate your stopcock", "Check pipe lagging in unheated spaces", "Set heating to frost-protect when away"},
			Points:      15, Difficulty: domain.DiffMedium, EstMinutes: 25,
		},
		{
			ID: "cat-home-gap", Category: domain.CatHome, Type: domain.ChallengeCrossProduct,
			Title:       "Protect the place your other policies live",
			Description: "You're covered on the road but not at home. See what home cover adds.",
			Steps:       []string{"Open the home cover explainer", "Get an indicative quote"},
			Points:      10, Difficulty: domain.DiffEasy, EstMinutes: 5,
			Trigger: &domain.Trigger{MissingProducts: []domain.Category{domain.CatHome}},
		},
		{
			ID: "cat-life-beneficiary", Category: domain.CatLife, Type: domain.ChallengeAwareness,
			Title:       "Confirm your life policy beneficiaries",
			Description: "Life changes. Make sure the right people are named on your policy.",
			Steps:       []string{"Open your life policy details", "Review named beneficiaries", "Update if anything changed"},
			Points:      15, Difficulty: domain.DiffMedium, EstMinutes: 10,
			Trigger: &domain.Trigger{Stages: []domain.Stage{domain.StageActive, domain.StageLoyal}},
		},
		{
			ID: "cat-life-gap", Category: domain.CatLife, Type: domain.ChallengeCrossProduct,
			Title:       "Find out what life cover costs",
			Description: "Most people overestimate the cost of life cover by 3x. Get a real number.",
			Steps:       []string{"Answer three quick questions", "Get an indicative quote"},
			Points:      10, Difficulty: domain.DiffEasy, EstMinutes: 5,
			Trigger: &domain.Trigger{MissingProducts: []domain.Category{domain.CatLife}},
		},
		{
			ID: "cat-engagement-comeback", Category: domain.CatHealth, Type: domain.ChallengeEngagement,
			Title:       "Pick up where you left off",
			Description: "It's been a while. One small step restarts your streak.",
			Steps:       []string{"Open your protection summary", "Complete any one pending step"},
			Points:      5, Difficulty: domain.DiffEasy, EstMinutes: 3,
			Trigger: &domain.Trigger{MinInactiveDays: 7},
		},
		{
			ID: "cat-referral-invite", Category: domain.CatMotor, Type: domain.ChallengeReferral,
			Title:       "Invite a friend to check their cover",
			Description: "Share your referral link. You both earn points when they run a cover check.",
			Steps:       []string{"Copy your referral link", "Send it to one person"},
			Points:      10, Difficulty: domain.DiffEasy, EstMinutes: 2,
			Trigger: &domain.Trigger{Stages: []domain.Stage{domain.StageLoyal}},
		},
		{
			ID: "cat-advanced-portfolio", Category: domain.CatLife, Type: domain.ChallengeEngagement,
			Title:       "Run a full protection portfolio review",
			Description: "Walk every policy you hold and score the gaps. The deep version.",
			Steps:       []string{"List every active policy", "Mark cover amounts against current needs", "Flag underinsured areas", "Book a review call if gaps remain"},
			Points:      25, Difficulty: domain.DiffAdvanced, EstMinutes: 45,
			Trigger: &domain.Trigger{Stages: []domain.Stage{domain.StageLoyal}},
		},
	}
}

// SelectEligible filters the catalog for one user context. Pure conjunction:
// every present trigger condition must hold, advanced templates require
// level >= 3, and focus areas (when set) exclude other categories. Order is
// library order; callers shuffle if they need randomness.
func SelectEligible(library []domain.ChallengeTemplate, ctx domain.UserContext) []domain.ChallengeTemplate {
	var out []domain.ChallengeTemplate
	for _, t := range library {
		if t.Difficulty == domain.DiffAdvanced && ctx.Level < 3 {
			continue
		}
		if len(ctx.FocusAreas) > 0 && !containsCategory(ctx.FocusAreas, t.Category) {
			continue
		}
		if !t.Trigger.Matches(ctx) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func containsCategory(cats []domain.Category, c domain.Category) bool {
	for _, x := range cats {
		if x == c {
			return true
		}
	}
	return false
}

// SeedCatalog inserts any missing catalog templates. Safe to run on every
// startup; existing templates are left untouched.
func SeedCatalog(db *sqlite.DB) error {
	for _, t := range Library() {
		_, err := db.GetTemplate(t.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrTemplateNotFound) {
			return err
		}
		t.Source = domain.SourceCatalog
		t.CreatedAt = time.Now()
		if err := db.InsertTemplate(&t); err != nil {
			return err
		}
	}
	return nil
}
