package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/anatolykoptev/go_adscore/internal/engine/drive"
)

// ErrUnknownJob is returned by RunNow for names that are not scheduled.
var ErrUnknownJob = errors.New("scheduler: unknown job")

// ErrJobRunning is returned by RunNow while the same job is already running.
var ErrJobRunning = errors.New("scheduler: job already running")

// Job names.
const (
	JobCollect  = "collect"
	JobAnalysis = "analysis"
	JobUpload   = "upload"
	JobHealth   = "health"
)

// Specs are the cron expressions for each job (standard 5-field syntax).
type Specs struct {
	Collect  string
	Analysis string
	Upload   string
	Health   string
}

// DefaultSpecs: collect daily at 02:00, analyze every 30 min, upload every 2h, health every 10 min.
var DefaultSpecs = Specs{
	Collect:  "0 2 * * *",
	Analysis: "*/30 * * * *",
	Upload:   "0 */2 * * *",
	Health:   "*/10 * * * *",
}

// JobStatus describes one scheduled job.
type JobStatus struct {
	Name      string     `json:"name"`
	Spec      string     `json:"spec"`
	Next      *time.Time `json:"next,omitempty"`
	Prev      *time.Time `json:"prev,omitempty"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Runs      int        `json:"runs"`
}

// Status is the scheduler state.
type Status struct {
	Running bool        `json:"running"`
	Jobs    []JobStatus `json:"jobs"`
}

type job struct {
	name string
	spec string
	fn   func(context.Context) error
	busy atomic.Bool // shared by cron fires and RunNow

	mu      sync.Mutex
	id      cron.EntryID
	lastRun time.Time
	lastErr string
	runs    int
}

// Scheduler runs Automation actions on cron schedules.
type Scheduler struct {
	ctx  context.Context
	jobs []*job

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// New binds jobs to a. Empty specs fall back to DefaultSpecs. ctx bounds
// every job run.
func New(ctx context.Context, a *Automation, specs Specs) *Scheduler {
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	s := &Scheduler{ctx: ctx}
	s.jobs = []*job{
		{name: JobCollect, spec: pick(specs.Collect, DefaultSpecs.Collect), fn: func(ctx context.Context) error {
			_, err := a.Collect(ctx, 0)
			return err
		}},
		{name: JobAnalysis, spec: pick(specs.Analysis, DefaultSpecs.Analysis), fn: func(ctx context.Context) error {
			_, err := a.AnalyzePending(ctx)
			return err
		}},
		{name: JobUpload, spec: pick(specs.Upload, DefaultSpecs.Upload), fn: func(ctx context.Context) error {
			_, err := a.UploadLatest(ctx)
			if errors.Is(err, drive.ErrNotConfigured) || errors.Is(err, ErrNothingToUpload) {
				slog.Debug("scheduler: upload skipped", slog.Any("reason", err))
				return nil
			}
			return err
		}},
		{name: JobHealth, spec: pick(specs.Health, DefaultSpecs.Health), fn: func(ctx context.Context) error {
			_, err := a.Health(ctx)
			return err
		}},
	}
	return s
}

// Start registers every job and starts the cron loop. Starting twice is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	logger := slogLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	for _, j := range s.jobs {
		id, err := c.AddFunc(j.spec, func() { s.execute(j) })
		if err != nil {
			return fmt.Errorf("scheduler: job %s spec %q: %w", j.name, j.spec, err)
		}
		j.mu.Lock()
		j.id = id
		j.mu.Unlock()
	}
	c.Start()
	s.cron = c
	s.running = true
	slog.Info("scheduler: started", slog.Int("jobs", len(s.jobs)))
	return nil
}

// Stop halts the cron loop and waits for running jobs or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.running = false
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		slog.Info("scheduler: stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the cron loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status lists jobs with their next and previous fire times.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	c, running := s.cron, s.running
	s.mu.Unlock()

	st := Status{Running: running}
	now := time.Now()
	for _, j := range s.jobs {
		j.mu.Lock()
		js := JobStatus{Name: j.name, Spec: j.spec, LastError: j.lastErr, Runs: j.runs}
		if !j.lastRun.IsZero() {
			t := j.lastRun
			js.LastRun = &t
		}
		id := j.id
		j.mu.Unlock()

		if c != nil {
			e := c.Entry(id)
			next := e.Next
			if next.IsZero() && e.Schedule != nil {
				next = e.Schedule.Next(now)
			}
			if !next.IsZero() {
				js.Next = &next
			}
			if !e.Prev.IsZero() {
				prev := e.Prev
				js.Prev = &prev
			}
		}
		st.Jobs = append(st.Jobs, js)
	}
	return st
}

// RunNow executes a job immediately in the caller's goroutine. It fails with
// ErrJobRunning instead of overlapping a scheduled or manual run of the same job.
func (s *Scheduler) RunNow(name string) error {
	for _, j := range s.jobs {
		if j.name == name {
			return s.execute(j)
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownJob, name)
}

func (s *Scheduler) execute(j *job) error {
	if !j.busy.CompareAndSwap(false, true) {
		slog.Info("scheduler: job still running, skipped", slog.String("job", j.name))
		return fmt.Errorf("%w: %s", ErrJobRunning, j.name)
	}
	defer j.busy.Store(false)

	start := time.Now()
	err := j.fn(s.ctx)
	j.mu.Lock()
	j.runs++
	j.lastRun = start
	j.lastErr = ""
	if err != nil {
		j.lastErr = err.Error()
	}
	j.mu.Unlock()
	if err != nil {
		slog.Error("scheduler: job failed", slog.String("job", j.name), slog.Duration("took", time.Since(start)), slog.Any("error", err))
	} else {
		slog.Info("scheduler: job done", slog.String("job", j.name), slog.Duration("took", time.Since(start)))
	}
	return err
}

// slogLogger adapts cron's logger onto slog.
type slogLogger struct{}

func (slogLogger) Info(msg string, kv ...any) {
	slog.Debug("cron: "+msg, kv...)
}

func (slogLogger) Error(err error, msg string, kv ...any) {
	slog.Error("cron: "+msg, append(kv, "error", err)...)
}
