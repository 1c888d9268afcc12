// Package domain — challenge types.
// A challenge is a discrete, steps-based task tied to an insurance category.
// Templates are immutable once created; user challenges move through a small
// lifecycle with immutable terminal states.
package domain

import (
	"strings"
	"time"
)

// ─── Challenge Templates ────────────────────────────────────────────────────

// ChallengeType categorizes the kind of challenge.
type ChallengeType string

const (
	ChallengeRenewal      ChallengeType = "renewal"
	ChallengeAwareness    ChallengeType = "awareness"
	ChallengeEngagement   ChallengeType = "engagement"
	ChallengeSafety       ChallengeType = "safety-wellness"
	ChallengeCrossProduct ChallengeType = "cross-product"
	ChallengeReferral     ChallengeType = "referral"
	ChallengeSeasonal     ChallengeType = "seasonal"
)

// Difficulty grades a challenge. Advanced templates are gated behind user
// level >= 3.
type Difficulty string

const (
	DiffEasy     Difficulty = "easy"
	DiffMedium   Difficulty = "medium"
	DiffHard     Difficulty = "hard"
	DiffAdvanced Difficulty = "advanced"
)

// TemplateSource records where a template came from.
type TemplateSource string

const (
	SourceCatalog TemplateSource = "catalog"
	SourceAI      TemplateSource = "ai"
)

// Trigger is an optional eligibility predicate on a template. All present
// conditions must hold (conjunction); zero values mean "not set".
type Trigger struct {
	Stages           []Stage    `json:"stages,omitempty"`
	MaxDaysToRenewal int        `json:"max_days_to_renewal,omitempty"` // 0 = unset
	MissingProducts  []Category `json:"missing_products,omitempty"`
	MinInactiveDays  int        `json:"min_inactive_days,omitempty"` // 0 = unset
}

// UserContext is the snapshot the catalog filters against.
type UserContext struct {
	Stage          Stage      `json:"stage"`
	ActivePolicies []Category `json:"active_policies"`
	DaysToRenewal  int        `json:"days_to_renewal"` // -1 = unknown
	InactiveDays   int        `json:"inactive_days"`
	FocusAreas     []Category `json:"focus_areas,omitempty"`
	Level          int        `json:"level"`
}

// HasPolicy reports whether the user holds a policy in the category.
func (c UserContext) HasPolicy(cat Category) bool {
	for _, p := range c.ActivePolicies {
		if p == cat {
			return true
		}
	}
	return false
}

// Matches evaluates the trigger against a user context. A nil trigger always
// matches.
func (t *Trigger) Matches(ctx UserContext) bool {
	if t == nil {
		return true
	}
	if len(t.Stages) > 0 {
		ok := false
		for _, s := range t.Stages {
			if s == ctx.Stage {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if t.MaxDaysToRenewal > 0 {
		if ctx.DaysToRenewal < 0 || ctx.DaysToRenewal > t.MaxDaysToRenewal {
			return false
		}
	}
	if len(t.MissingProducts) > 0 {
		// Eligible only if the user lacks at least one of the listed products.
		missing := false
		for _, p := range t.MissingProducts {
			if !ctx.HasPolicy(p) {
				missing = true
				break
			}
		}
		if !missing {
			return false
		}
	}
	if t.MinInactiveDays > 0 && ctx.InactiveDays < t.MinInactiveDays {
		return false
	}
	return true
}

// ChallengeTemplate defines a challenge. Immutable once created — catalog
// templates are seeded at startup, AI-sourced ones are persisted on
// generation.
type ChallengeTemplate struct {
	ID          string         `json:"id"`
	Category    Category       `json:"category"`
	Type        ChallengeType  `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Steps       []string       `json:"steps"`
	Points      int            `json:"points"`
	Difficulty  Difficulty     `json:"difficulty"`
	EstMinutes  int            `json:"est_minutes"`
	Trigger     *Trigger       `json:"trigger,omitempty"`
	Source      TemplateSource `json:"source"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TitleKey returns the case-insensitive dedup key for a title.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// ─── User Challenges ────────────────────────────────────────────────────────

// ChallengeStatus tracks a user challenge's lifecycle.
type ChallengeStatus string

const (
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeAbandoned ChallengeStatus = "abandoned"
)

// UserChallenge is a challenge assigned to a user. Title, category, and
// points are denormalized from the template so dedup and score recomputes
// never need a join.
type UserChallenge struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	TemplateID  string          `json:"template_id"`
	Title       string          `json:"title"`
	Category    Category        `json:"category"`
	Points      int             `json:"points"`
	Status      ChallengeStatus `json:"status"`
	Progress    int             `json:"progress"` // 0–100
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at,omitempty"`
}

// IsTerminal returns true once the challenge has reached a final state.
// Terminal challenges never transition again.
func (c *UserChallenge) IsTerminal() bool {
	return c.Status == ChallengeCompleted || c.Status == ChallengeAbandoned
}
