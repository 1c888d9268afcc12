// Package scheduler runs the engine's recurring background jobs: an explicit
// ticker + task registry rather than a cron library, so the skip/overlap
// behavior stays small and testable.
//
// Two schedule kinds cover everything the engine needs: Every (fixed
// interval) and DailyAt (fixed UTC wall-clock time). A job still running
// when its next tick arrives skips that tick — jobs never overlap
// themselves, and one slow job never blocks another.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job is one recurring task.
type Job struct {
	Name string
	Run  func(ctx context.Context) error

	interval time.Duration // Every jobs
	at       time.Duration // DailyAt jobs: offset from UTC midnight, -1 otherwise

	running sync.Mutex // held while Run executes; TryLock enforces skip-on-overlap
	lastErr error
	lastRun time.Time
	mu      sync.Mutex // guards lastErr/lastRun
}

// Scheduler owns a registry of jobs and drives them from a single ticker.
type Scheduler struct {
	mu   sync.Mutex
	jobs []*Job

	tick time.Duration
	now  func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scheduler. The tick resolution bounds how precisely DailyAt
// fires; one minute is plenty for daily and multi-hour jobs.
func New() *Scheduler {
	return &Scheduler{
		tick: time.Minute,
		now:  time.Now,
	}
}

// Every registers a job that runs each time interval elapses since its last
// start.
func (s *Scheduler) Every(name string, interval time.Duration, run func(ctx context.Context) error) *Job {
	j := &Job{Name: name, Run: run, interval: interval, at: -1}
	s.mu.Lock()
	s.jobs = append(s.jobs, j)
	s.mu.Unlock()
	return j
}

// DailyAt registers a job that runs once per UTC calendar day at hh:mm.
func (s *Scheduler) DailyAt(name string, hour, minute int, run func(ctx context.Context) error) *Job {
	at := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute
	j := &Job{Name: name, Run: run, at: at}
	s.mu.Lock()
	s.jobs = append(s.jobs, j)
	s.mu.Unlock()
	return j
}

// Start begins driving the registry. Returns immediately; jobs run on their
// own goroutines until Stop.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Advance(ctx, s.now())
			}
		}
	}()
}

// Stop cancels the run loop and waits for it to exit. In-flight job runs get
// their context canceled but are not waited for.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Advance evaluates every job against now and launches the due ones. Exposed
// so tests can drive the scheduler with a fake clock instead of sleeping.
func (s *Scheduler) Advance(ctx context.Context, now time.Time) {
	s.mu.Lock()
	jobs := make([]*Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.Unlock()

	for _, j := range jobs {
		if j.due(now, s.tick) {
			go j.launch(ctx, now)
		}
	}
}

func (j *Job) due(now time.Time, tick time.Duration) bool {
	j.mu.Lock()
	last := j.lastRun
	j.mu.Unlock()

	if j.at >= 0 {
		// DailyAt: due when now is inside the [at, at+tick) window and the
		// job hasn't run yet today.
		midnight := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
		target := midnight.Add(j.at)
		if now.Before(target) || now.Sub(target) >= tick {
			return false
		}
		return last.Before(target)
	}
	return last.IsZero() || now.Sub(last) >= j.interval
}

func (j *Job) launch(ctx context.Context, now time.Time) {
	if !j.running.TryLock() {
		log.Printf("scheduler: %s still running, tick skipped", j.Name)
		return
	}
	defer j.running.Unlock()

	j.mu.Lock()
	j.lastRun = now
	j.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("scheduler: %s panicked: %v", j.Name, r)
		}
	}()

	err := j.Run(ctx)
	j.mu.Lock()
	j.lastErr = err
	j.mu.Unlock()
	if err != nil {
		log.Printf("scheduler: %s: %v", j.Name, err)
	}
}

// LastRun returns when the job last started, zero if never.
func (j *Job) LastRun() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun
}

// LastErr returns the error from the most recent completed run.
func (j *Job) LastErr() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastErr
}
