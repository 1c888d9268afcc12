package sqlite

import (
	"errors"
	"testing"
	"time"

	"github.com/coverquest/coverquest/internal/domain"
)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testUser(t *testing.T, db *DB, id string) *domain.User {
	t.Helper()
	u := &domain.User{ID: id, Level: 1, ActivePolicies: []domain.Category{domain.CatMotor}}
	if err := db.CreateUser(u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	got, err := db.GetUser(id)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return got
}

// ═══════════════════════════════════════════════════════════════════════════
// User Repository Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestUser_CreateAndGet(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db, "u1")

	if u.ID != "u1" {
		t.Errorf("expected id u1, got %s", u.ID)
	}
	if u.Level != 1 {
		t.Errorf("expected level 1, got %d", u.Level)
	}
	if u.CategoryScores == nil {
		t.Error("expected non-nil score map")
	}
}

func TestUser_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetUser("missing")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUser_UpdateRoundTrip(t *testing.T) {
	db := testDB(t)
	u := testUser(t, db, "u1")

	u.CurrentStreak = 4
	u.LongestStreak = 9
	u.LastActiveDate = domain.DateOf(time.Now())
	u.CategoryScores = map[domain.Category]float64{domain.CatMotor: 62.5}
	u.OverallScore = 62.5
	u.DailyChallengesCompleted = 1
	u.DailyProtectionPoints = 15

	if err := db.UpdateUser(u); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := db.GetUser("u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CurrentStreak != 4 || got.LongestStreak != 9 {
		t.Errorf("streak round trip failed: %d/%d", got.CurrentStreak, got.LongestStreak)
	}
	if got.CategoryScores[domain.CatMotor] != 62.5 {
		t.Errorf("score round trip failed: %v", got.CategoryScores)
	}
	if got.Version != u.Version {
		t.Errorf("expected version %d, got %d", u.Version, got.Version)
	}
}

func TestUser_VersionConflict(t *testing.T) {
	db := testDB(t)
	testUser(t, db, "u1")

	a, _ := db.GetUser("u1")
	b, _ := db.GetUser("u1")

	a.CurrentStreak = 1
	if err := db.UpdateUser(a); err != nil {
		t.Fatalf("first update: %v", err)
	}

	b.CurrentStreak = 2
	err := db.UpdateUser(b)
	if !errors.Is(err, domain.ErrStoreConflict) {
		t.Errorf("expected ErrStoreConflict, got %v", err)
	}

	// Retry with fresh state succeeds.
	fresh, _ := db.GetUser("u1")
	fresh.CurrentStreak = 2
	if err := db.UpdateUser(fresh); err != nil {
		t.Errorf("retry with fresh state: %v", err)
	}
}

func TestUser_ListIDs(t *testing.T) {
	db := testDB(t)
	testUser(t, db, "u1")
	testUser(t, db, "u2")

	ids, err := db.ListUserIDs()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 ids, got %d", len(ids))
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Challenge Repository Tests
// ═══════════════════════════════════════════════════════════════════════════

func testTemplate(id, title string) *domain.ChallengeTemplate {
	return &domain.ChallengeTemplate{
		ID:         id,
		Category:   domain.CatMotor,
		Type:       domain.ChallengeAwareness,
		Title:      title,
		Steps:      []string{"read", "confirm"},
		Points:     10,
		Difficulty: domain.DiffEasy,
		EstMinutes: 60,
		Source:     domain.SourceCatalog,
		CreatedAt:  time.Now(),
	}
}

func TestTemplate_InsertAndGet(t *testing.T) {
	db := testDB(t)
	tmpl := testTemplate("t1", "Check your tyres")
	tmpl.Trigger = &domain.Trigger{Stages: []domain.Stage{domain.StageActive}}

	if err := db.InsertTemplate(tmpl); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := db.GetTemplate("t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Check your tyres" {
		t.Errorf("title round trip failed: %s", got.Title)
	}
	if got.Trigger == nil || len(got.Trigger.Stages) != 1 {
		t.Errorf("trigger round trip failed: %+v", got.Trigger)
	}
	if len(got.Steps) != 2 {
		t.Errorf("steps round trip failed: %v", got.Steps)
	}
}

func TestTemplate_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetTemplate("missing")
	if !errors.Is(err, domain.ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestUserChallenge_Lifecycle(t *testing.T) {
	db := testDB(t)
	_ = db.InsertTemplate(testTemplate("t1", "Check your tyres"))

	uc := &domain.UserChallenge{
		ID: "c1", UserID: "u1", TemplateID: "t1", Title: "Check your tyres",
		Status: domain.ChallengeActive, StartedAt: time.Now(),
	}
	if err := db.InsertUserChallenge(uc); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := db.SetChallengeProgress("c1", 40); err != nil {
		t.Fatalf("progress: %v", err)
	}

	if err := db.TransitionChallenge("c1", domain.ChallengeCompleted, time.Now()); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, _ := db.GetUserChallenge("c1")
	if got.Status != domain.ChallengeCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.Progress != 100 {
		t.Errorf("completion should force progress 100, got %d", got.Progress)
	}

	// Terminal rows are immutable.
	err := db.TransitionChallenge("c1", domain.ChallengeAbandoned, time.Now())
	if !errors.Is(err, domain.ErrChallengeTerminal) {
		t.Errorf("expected ErrChallengeTerminal, got %v", err)
	}
	err = db.SetChallengeProgress("c1", 10)
	if !errors.Is(err, domain.ErrChallengeTerminal) {
		t.Errorf("expected ErrChallengeTerminal on progress, got %v", err)
	}
}

func TestUserChallenge_TitleKeys(t *testing.T) {
	db := testDB(t)
	_ = db.InsertUserChallenge(&domain.UserChallenge{
		ID: "c1", UserID: "u1", TemplateID: "t1", Title: "Check Your Tyres",
		Status: domain.ChallengeCompleted, StartedAt: time.Now(),
	})

	keys, err := db.UserChallengeTitleKeys("u1")
	if err != nil {
		t.Fatalf("title keys: %v", err)
	}
	if !keys["check your tyres"] {
		t.Error("expected case-insensitive key for assigned title")
	}
}

func TestUserChallenge_ListByStatus(t *testing.T) {
	db := testDB(t)
	_ = db.InsertUserChallenge(&domain.UserChallenge{
		ID: "c1", UserID: "u1", TemplateID: "t1", Title: "A",
		Status: domain.ChallengeActive, StartedAt: time.Now(),
	})
	_ = db.InsertUserChallenge(&domain.UserChallenge{
		ID: "c2", UserID: "u1", TemplateID: "t2", Title: "B",
		Status: domain.ChallengeCompleted, StartedAt: time.Now(),
	})

	active, err := db.ListUserChallenges("u1", domain.ChallengeActive)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].ID != "c1" {
		t.Errorf("expected only c1 active, got %+v", active)
	}

	all, _ := db.ListUserChallenges("u1", "")
	if len(all) != 2 {
		t.Errorf("expected 2 total, got %d", len(all))
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Ledger Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestLedger_BalanceFollowsEntries(t *testing.T) {
	db := testDB(t)
	account := domain.UserAccount("u1")

	_, err := db.InsertLedgerEntry(domain.LedgerEntry{
		Timestamp: time.Now(), Type: domain.TxEarn, EntryType: domain.EntryCredit,
		Account: account, Amount: 15, Balance: 15,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, _ = db.InsertLedgerEntry(domain.LedgerEntry{
		Timestamp: time.Now(), Type: domain.TxEarn, EntryType: domain.EntryCredit,
		Account: account, Amount: 10, Balance: 25,
	})

	bal, err := db.PointsBalance(account)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 25 {
		t.Errorf("expected 25, got %d", bal)
	}
}

func TestLedger_EmptyAccountIsZero(t *testing.T) {
	db := testDB(t)
	bal, err := db.PointsBalance(domain.UserAccount("nobody"))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 0 {
		t.Errorf("expected 0, got %d", bal)
	}
}

func TestLedger_Entries(t *testing.T) {
	db := testDB(t)
	account := domain.UserAccount("u1")
	_, _ = db.InsertLedgerEntry(domain.LedgerEntry{
		Timestamp: time.Now(), Type: domain.TxEarn, EntryType: domain.EntryCredit,
		Account: account, Amount: 15, ChallengeID: "c1", Description: "challenge complete", Balance: 15,
	})

	entries, err := db.LedgerEntries(account, 10)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ChallengeID != "c1" {
		t.Errorf("challenge id round trip failed: %s", entries[0].ChallengeID)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Analytics Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestAnalytics_FreshRecordForUnknownUser(t *testing.T) {
	db := testDB(t)
	rec, err := db.GetAnalytics("u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.UserID != "u1" || rec.TotalAccepted != 0 {
		t.Errorf("expected zero record, got %+v", rec)
	}
	if rec.CategoryPrefs == nil {
		t.Error("expected initialized preference map")
	}
}

func TestAnalytics_UpsertRoundTrip(t *testing.T) {
	db := testDB(t)
	rec := &domain.AnalyticsRecord{
		UserID:         "u1",
		TotalAccepted:  4,
		TotalCompleted: 3,
		CompletionRate: 75,
		CategoryPrefs:  map[domain.Category]int{domain.CatHealth: 3},
		ScoreHistory:   []domain.ScoreSample{{Score: 12, At: time.Now().UTC()}},
	}
	if err := db.UpsertAnalytics(rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetAnalytics("u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalCompleted != 3 || got.CompletionRate != 75 {
		t.Errorf("counter round trip failed: %+v", got)
	}
	if got.CategoryPrefs[domain.CatHealth] != 3 {
		t.Errorf("prefs round trip failed: %v", got.CategoryPrefs)
	}
	if len(got.ScoreHistory) != 1 {
		t.Errorf("history round trip failed: %v", got.ScoreHistory)
	}
}

func TestAnalytics_ListDue(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC()

	stale := &domain.AnalyticsRecord{UserID: "stale", LastAnalyzedAt: now.AddDate(0, 0, -3)}
	fresh := &domain.AnalyticsRecord{UserID: "fresh", LastAnalyzedAt: now.Add(-time.Hour)}
	never := &domain.AnalyticsRecord{UserID: "never"}
	for _, r := range []*domain.AnalyticsRecord{stale, fresh, never} {
		if err := db.UpsertAnalytics(r); err != nil {
			t.Fatalf("upsert %s: %v", r.UserID, err)
		}
	}

	due, err := db.ListAnalyticsDue(now.AddDate(0, 0, -2))
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due, got %d (%v)", len(due), due)
	}
	seen := map[string]bool{}
	for _, id := range due {
		seen[id] = true
	}
	if !seen["stale"] || !seen["never"] {
		t.Errorf("expected stale and never, got %v", due)
	}
}
