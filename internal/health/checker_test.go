package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/coverquest/coverquest/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fakePinger struct {
	enabled bool
	err     error
}

func (f fakePinger) Enabled() bool                { return f.enabled }
func (f fakePinger) Ping(_ context.Context) error { return f.err }

// ─── Checker Tests ──────────────────────────────────────────────────────────

func TestChecker_AllHealthy(t *testing.T) {
	db := newTestDB(t)
	c := NewChecker(db, t.TempDir(), nil)
	c.runAll(context.Background())

	statuses := c.Statuses()
	if len(statuses) != 2 {
		t.Fatalf("Statuses() = %d, want 2 (sqlite + data_dir)", len(statuses))
	}
	for _, s := range statuses {
		if !s.Healthy {
			t.Errorf("check %q should be healthy, got error: %s", s.Name, s.Error)
		}
	}
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true when all checks pass")
	}
}

func TestChecker_IsHealthy_BeforeRun(t *testing.T) {
	c := NewChecker(newTestDB(t), t.TempDir(), nil)
	if !c.IsHealthy() {
		t.Error("IsHealthy() should be true before first run (no statuses)")
	}
}

func TestChecker_DataDirMissing(t *testing.T) {
	db := newTestDB(t)
	c := NewChecker(db, filepath.Join(t.TempDir(), "nonexistent"), nil)
	c.runAll(context.Background())

	if c.IsHealthy() {
		t.Error("missing data dir should mark the engine unhealthy")
	}
}

func TestChecker_DataDirIsFile(t *testing.T) {
	db := newTestDB(t)
	dataDir := filepath.Join(t.TempDir(), "data")
	os.WriteFile(dataDir, []byte("not a dir"), 0644)

	c := NewChecker(db, dataDir, nil)
	c.runAll(context.Background())

	for _, s := range c.Statuses() {
		if s.Name == "data_dir" && s.Healthy {
			t.Error("data_dir should fail when the path is a file")
		}
	}
}

func TestChecker_AIOptional(t *testing.T) {
	db := newTestDB(t)

	// Disabled AI: no check registered at all.
	c := NewChecker(db, t.TempDir(), fakePinger{enabled: false})
	if len(c.checks) != 2 {
		t.Errorf("disabled AI added a check: %d", len(c.checks))
	}

	// Enabled but failing AI: check reports unhealthy, engine stays healthy.
	c = NewChecker(db, t.TempDir(), fakePinger{enabled: true, err: errors.New("down")})
	c.runAll(context.Background())

	found := false
	for _, s := range c.Statuses() {
		if s.Name == "ai_endpoint" {
			found = true
			if s.Healthy {
				t.Error("ai_endpoint should report unhealthy")
			}
			if !s.Optional {
				t.Error("ai_endpoint should be optional")
			}
		}
	}
	if !found {
		t.Fatal("ai_endpoint check not registered")
	}
	if !c.IsHealthy() {
		t.Error("AI failure must not mark the engine unhealthy")
	}
}

func TestChecker_FailingCheck(t *testing.T) {
	c := &Checker{
		checks: []Check{
			{
				Name: "always_fail",
				CheckFn: func(ctx context.Context) error {
					return os.ErrPermission
				},
			},
		},
	}
	c.runAll(context.Background())

	statuses := c.Statuses()
	if statuses[0].Healthy {
		t.Error("always_fail check should not be healthy")
	}
	if statuses[0].Error == "" {
		t.Error("error message should be populated")
	}
}

func TestChecker_StatusesCopy(t *testing.T) {
	c := NewChecker(newTestDB(t), t.TempDir(), nil)
	c.runAll(context.Background())

	s1 := c.Statuses()
	s2 := c.Statuses()
	if len(s1) > 0 {
		s1[0].Healthy = false
		if !s2[0].Healthy {
			t.Error("Statuses() should return a copy, not a reference")
		}
	}
}
