package scheduler

import (
	"context"
	"testing"
	"time"
)

func waitRun(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func assertNoRun(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("job ran when it should not have")
	case <-time.After(50 * time.Millisecond):
	}
}

func at(hour, min int) time.Time {
	return time.Date(2026, 8, 30, hour, min, 0, 0, time.UTC)
}

func TestEvery_RespectsInterval(t *testing.T) {
	s := New()
	ran := make(chan struct{}, 10)
	s.Every("test", 10*time.Minute, func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	})

	ctx := context.Background()
	s.Advance(ctx, at(12, 0)) // never run → due
	waitRun(t, ran)

	s.Advance(ctx, at(12, 5)) // 5m elapsed, interval 10m
	assertNoRun(t, ran)

	s.Advance(ctx, at(12, 10))
	waitRun(t, ran)
}

func TestDailyAt_OncePerDay(t *testing.T) {
	s := New()
	ran := make(chan struct{}, 10)
	s.DailyAt("daily", 3, 0, func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	})

	ctx := context.Background()
	s.Advance(ctx, at(2, 59))
	assertNoRun(t, ran)

	s.Advance(ctx, at(3, 0))
	waitRun(t, ran)

	// Same window again, and later the same day: no re-run.
	s.Advance(ctx, at(3, 0).Add(30*time.Second))
	assertNoRun(t, ran)
	s.Advance(ctx, at(15, 0))
	assertNoRun(t, ran)

	// Next day's window fires again.
	s.Advance(ctx, at(3, 0).AddDate(0, 0, 1))
	waitRun(t, ran)
}

func TestJob_SkipTickWhileRunning(t *testing.T) {
	s := New()
	started := make(chan struct{}, 10)
	release := make(chan struct{})
	s.Every("slow", time.Minute, func(ctx context.Context) error {
		started <- struct{}{}
		<-release
		return nil
	})

	ctx := context.Background()
	s.Advance(ctx, at(12, 0))
	waitRun(t, started)

	// The job is still holding its run lock; the next due tick is skipped.
	s.Advance(ctx, at(12, 5))
	assertNoRun(t, started)

	close(release)
}

func TestJob_PanicIsolated(t *testing.T) {
	s := New()
	okRan := make(chan struct{}, 10)
	s.Every("panics", time.Minute, func(ctx context.Context) error {
		panic("boom")
	})
	s.Every("fine", time.Minute, func(ctx context.Context) error {
		okRan <- struct{}{}
		return nil
	})

	ctx := context.Background()
	s.Advance(ctx, at(12, 0))
	waitRun(t, okRan)

	// The panicking job doesn't poison later ticks for the healthy one.
	s.Advance(ctx, at(12, 1))
	waitRun(t, okRan)
}

func TestJob_LastErrRecorded(t *testing.T) {
	s := New()
	done := make(chan struct{})
	j := s.Every("failing", time.Minute, func(ctx context.Context) error {
		defer close(done)
		return context.DeadlineExceeded
	})

	s.Advance(context.Background(), at(12, 0))
	<-done

	// launch updates lastErr after Run returns; give it a beat.
	deadline := time.Now().Add(time.Second)
	for j.LastErr() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if j.LastErr() == nil {
		t.Error("job error not recorded")
	}
	if j.LastRun().IsZero() {
		t.Error("last run not recorded")
	}
}
