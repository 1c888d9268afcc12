package domain

import (
	"testing"
	"time"
)

func TestDateOf_NormalizesToUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	ts := time.Date(2026, 3, 10, 2, 30, 0, 0, loc) // 2026-03-09 21:30 UTC
	got := DateOf(ts)
	want := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOf = %v, want %v", got, want)
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)
	b := time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC)
	if d := DaysBetween(a, b); d != 2 {
		t.Errorf("DaysBetween = %d, want 2", d)
	}
	if d := DaysBetween(b, a); d != -2 {
		t.Errorf("reverse DaysBetween = %d, want -2", d)
	}
}

func TestTrigger_Matches(t *testing.T) {
	ctx := UserContext{
		Stage:          StageActive,
		ActivePolicies: []Category{CatMotor},
		DaysToRenewal:  20,
		InactiveDays:   3,
	}

	tests := []struct {
		name    string
		trigger *Trigger
		want    bool
	}{
		{"nil trigger", nil, true},
		{"stage match", &Trigger{Stages: []Stage{StageActive, StageLoyal}}, true},
		{"stage mismatch", &Trigger{Stages: []Stage{StageNew}}, false},
		{"renewal window", &Trigger{MaxDaysToRenewal: 30}, true},
		{"renewal too far", &Trigger{MaxDaysToRenewal: 10}, false},
		{"missing product", &Trigger{MissingProducts: []Category{CatHealth}}, true},
		{"product already held", &Trigger{MissingProducts: []Category{CatMotor}}, false},
		{"inactive gate", &Trigger{MinInactiveDays: 7}, false},
		{"conjunction fails on one", &Trigger{Stages: []Stage{StageActive}, MinInactiveDays: 7}, false},
	}
	for _, tt := range tests {
		if got := tt.trigger.Matches(ctx); got != tt.want {
			t.Errorf("%s: Matches = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTrigger_UnknownRenewal(t *testing.T) {
	trigger := &Trigger{MaxDaysToRenewal: 30}
	ctx := UserContext{Stage: StageActive, DaysToRenewal: -1}
	if trigger.Matches(ctx) {
		t.Error("renewal trigger should not match when days-to-renewal is unknown")
	}
}

func TestTierForPoints(t *testing.T) {
	tests := []struct {
		points int64
		want   Tier
	}{
		{0, TierBronze},
		{249, TierBronze},
		{250, TierSilver},
		{499, TierSilver},
		{500, TierGold},
		{749, TierGold},
		{750, TierPlatinum},
		{1000, TierPlatinum},
	}
	for _, tt := range tests {
		if got := TierForPoints(tt.points); got != tt.want {
			t.Errorf("TierForPoints(%d) = %s, want %s", tt.points, got, tt.want)
		}
	}
}

func TestWeeklyScoreTrend(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := AnalyticsRecord{
		ScoreHistory: []ScoreSample{
			{Score: 10, At: base},
			{Score: 24, At: base.AddDate(0, 0, 14)}, // +14 over 2 weeks
		},
	}
	if got := rec.WeeklyScoreTrend(); got != 7 {
		t.Errorf("WeeklyScoreTrend = %.1f, want 7.0", got)
	}

	empty := AnalyticsRecord{}
	if got := empty.WeeklyScoreTrend(); got != 0 {
		t.Errorf("empty trend = %.1f, want 0", got)
	}
}

func TestTopCategories_StarterSet(t *testing.T) {
	rec := AnalyticsRecord{}
	got := rec.TopCategories(3)
	if len(got) != 3 {
		t.Fatalf("expected 3 starter categories, got %d", len(got))
	}
}

func TestTopCategories_ByPreference(t *testing.T) {
	rec := AnalyticsRecord{CategoryPrefs: map[Category]int{
		CatTravel: 5,
		CatMotor:  2,
		CatLife:   9,
		CatHome:   1,
	}}
	got := rec.TopCategories(3)
	want := []Category{CatLife, CatTravel, CatMotor}
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestUserChallenge_IsTerminal(t *testing.T) {
	active := UserChallenge{Status: ChallengeActive}
	if active.IsTerminal() {
		t.Error("active should not be terminal")
	}
	done := UserChallenge{Status: ChallengeCompleted}
	if !done.IsTerminal() {
		t.Error("completed should be terminal")
	}
	gone := UserChallenge{Status: ChallengeAbandoned}
	if !gone.IsTerminal() {
		t.Error("abandoned should be terminal")
	}
}
