package compile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/dhamidi/jide/observability"
	"github.com/dhamidi/jide/project"
)

var (
	ErrAborted   = errors.New("compile job aborted")
	ErrNoSuchJob = errors.New("no such compile job")
	ErrClosed    = errors.New("scheduler closed")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
)

// Job compiles the sources of one strongly connected component of invalid
// targets in a single compiler invocation.
type Job struct {
	ID        string
	Targets   []string
	Files     []string
	CreatedAt time.Time

	mu          sync.Mutex
	status      Status
	aborted     bool
	cancel      context.CancelFunc
	diagnostics []Diagnostic
	done        chan struct{}
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Diagnostics returns the diagnostics of a finished job. An aborted job
// has none.
func (j *Job) Diagnostics() []Diagnostic {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Diagnostic(nil), j.diagnostics...)
}

// Done is closed when the job has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes. It returns ErrAborted for an aborted
// job.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if j.Status() == StatusAborted {
		return ErrAborted
	}
	return nil
}

func (j *Job) setStatus(s Status) {
	j.mu.Lock()
	j.status = s
	j.mu.Unlock()
}

func (j *Job) isAborted() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.aborted
}

func (j *Job) finish(s Status, diagnostics []Diagnostic) {
	j.mu.Lock()
	j.status = s
	j.diagnostics = diagnostics
	j.cancel = nil
	j.mu.Unlock()
}

// Config configures a Scheduler.
type Config struct {
	Options
	Observer Observer
	// AutoRate and AutoBurst limit AutoCompile, in compilations per
	// second. A zero rate means no limit.
	AutoRate  float64
	AutoBurst int
}

// Scheduler turns compile requests into jobs and runs them on a single
// worker, in submission order.
type Scheduler struct {
	project  *project.Project
	compiler Compiler
	opts     Options
	observer Observer
	limiter  *rate.Limiter

	mu      sync.Mutex
	cond    *sync.Cond
	jobs    map[string]*Job
	pending []*Job
	closed  bool
	wg      sync.WaitGroup
}

func NewScheduler(p *project.Project, c Compiler, cfg Config) *Scheduler {
	observer := cfg.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	limit := rate.Inf
	if cfg.AutoRate > 0 {
		limit = rate.Limit(cfg.AutoRate)
	}
	burst := cfg.AutoBurst
	if burst < 1 {
		burst = 1
	}

	s := &Scheduler{
		project:  p,
		compiler: c,
		opts:     cfg.Options,
		observer: observer,
		limiter:  rate.NewLimiter(limit, burst),
		jobs:     make(map[string]*Job),
	}
	s.cond = sync.NewCond(&s.mu)
	s.wg.Add(1)
	go s.run()
	return s
}

// Close waits for queued jobs to finish and stops the worker.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
	s.wg.Wait()
}

// CompileAll submits jobs for every invalid target.
func (s *Scheduler) CompileAll(ctx context.Context) ([]*Job, error) {
	return s.schedule(ctx, s.project.Invalid())
}

// CompileTarget submits jobs for a target and for every invalid target it
// depends on, directly or transitively. The target is compiled even if it
// is not invalid; a target already being compiled is left alone.
func (s *Scheduler) CompileTarget(ctx context.Context, name string) ([]*Job, error) {
	t, err := s.project.Target(name)
	if err != nil {
		return nil, err
	}
	if t.State() == project.StateCompiling {
		return nil, nil
	}
	return s.schedule(ctx, []string{name})
}

// AutoCompile is CompileAll for automatic triggers such as saved files.
// Calls beyond the configured rate wait for their turn.
func (s *Scheduler) AutoCompile(ctx context.Context) ([]*Job, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.CompileAll(ctx)
}

// invalidDependencies follows edges to source-backed targets that are
// still invalid.
func (s *Scheduler) invalidDependencies(name string) []string {
	var deps []string
	for _, dep := range s.project.DependsOn(name) {
		t, err := s.project.Target(dep)
		if err == nil && t.State() == project.StateInvalid {
			deps = append(deps, dep)
		}
	}
	return deps
}

type schedulingFailure struct {
	target string
	err    error
}

func (s *Scheduler) schedule(ctx context.Context, roots []string) ([]*Job, error) {
	_, span := observability.Tracer.Start(ctx, "compile.schedule",
		trace.WithAttributes(attribute.Int("roots", len(roots))))
	defer span.End()

	var failures []schedulingFailure
	defer func() {
		for _, f := range failures {
			s.observer.SchedulingFailure(f.target, f.err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	var jobs []*Job
	for _, component := range project.StronglyConnectedComponents(roots, s.invalidDependencies) {
		job := &Job{
			ID:        uuid.New().String(),
			CreatedAt: time.Now(),
			status:    StatusPending,
			done:      make(chan struct{}),
		}
		for _, name := range component {
			t, err := s.project.Target(name)
			if err != nil {
				failures = append(failures, schedulingFailure{name, err})
				continue
			}
			if _, err := os.Stat(t.Path); err != nil {
				log.Warningf("cannot schedule %s: %s", name, err)
				failures = append(failures, schedulingFailure{name, fmt.Errorf("source of %s: %w", name, err)})
				continue
			}
			job.Targets = append(job.Targets, name)
			job.Files = append(job.Files, t.Path)
		}
		if len(job.Targets) == 0 {
			continue
		}
		s.project.BeginCompile(job.ID, job.Targets)
		s.jobs[job.ID] = job
		s.pending = append(s.pending, job)
		jobs = append(jobs, job)
	}

	observability.CompileQueueDepth.Set(float64(len(s.pending)))
	span.SetAttributes(attribute.Int("jobs", len(jobs)))
	if len(jobs) > 0 {
		s.cond.Signal()
	}
	return jobs, nil
}

// Job returns a submitted job.
func (s *Scheduler) Job(id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchJob, id)
	}
	return job, nil
}

// Abort marks a pending or running job aborted. A running compiler is
// cancelled. The job's targets return to invalid and its diagnostics are
// dropped.
func (s *Scheduler) Abort(id string) error {
	job, err := s.Job(id)
	if err != nil {
		return err
	}

	job.mu.Lock()
	defer job.mu.Unlock()
	switch job.status {
	case StatusSucceeded, StatusFailed, StatusAborted:
		return fmt.Errorf("job %s already finished", id)
	}
	job.aborted = true
	if job.cancel != nil {
		job.cancel()
	}
	log.Infof("job %s: abort requested", id)
	return nil
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		job := s.pending[0]
		s.pending = s.pending[1:]
		observability.CompileQueueDepth.Set(float64(len(s.pending)))
		s.mu.Unlock()

		s.execute(job)
	}
}

func (s *Scheduler) compileOptions() Options {
	opts := s.opts
	if opts.OutDir == "" {
		opts.OutDir = s.project.OutDir
	}
	opts.Classpath = append(append([]string(nil), opts.Classpath...), opts.OutDir)
	return opts
}

func (s *Scheduler) execute(job *Job) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx, span := observability.Tracer.Start(ctx, "compile.Job", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.StringSlice("job.targets", job.Targets),
	))
	defer span.End()

	job.mu.Lock()
	aborted := job.aborted
	if !aborted {
		job.cancel = cancel
		job.status = StatusRunning
	}
	job.mu.Unlock()
	if aborted {
		s.abandon(job)
		return
	}

	s.observer.JobStarted(job)
	var diagnostics []Diagnostic
	start := time.Now()
	success, err := s.compiler.Compile(ctx, job.Files, s.compileOptions(), func(d Diagnostic) {
		diagnostics = append(diagnostics, d)
	})
	observability.CompileDuration.Observe(time.Since(start).Seconds())

	if job.isAborted() {
		s.abandon(job)
		return
	}
	if err != nil {
		span.RecordError(err)
		log.Errorf("job %s: %s", job.ID, err)
		s.observer.ProjectMessage(err.Error())
		success = false
	}
	for _, d := range diagnostics {
		if d.Severity == SeverityError {
			success = false
		}
		s.route(d)
	}

	s.project.FinishCompile(job.ID, job.Targets, success)
	status := StatusFailed
	if success {
		status = StatusSucceeded
		for _, name := range job.Targets {
			if err := s.project.WriteContext(name); err != nil {
				log.Errorf("write context of %s: %s", name, err)
			}
		}
	}
	span.SetAttributes(attribute.String("job.status", string(status)))
	s.complete(job, status, diagnostics, success)
}

// abandon finishes an aborted job without applying anything it produced.
func (s *Scheduler) abandon(job *Job) {
	s.project.FinishCompile(job.ID, job.Targets, false)
	s.complete(job, StatusAborted, nil, false)
}

// complete records the outcome and tells the observer before waiters are
// released.
func (s *Scheduler) complete(job *Job, status Status, diagnostics []Diagnostic, success bool) {
	job.finish(status, diagnostics)
	observability.CompileJobs.WithLabelValues(string(status)).Inc()
	log.Infof("job %s: %s", job.ID, status)
	s.observer.JobFinished(job, success)
	close(job.done)
}

// route hands a diagnostic to the target owning its file, or reports it as
// a project message.
func (s *Scheduler) route(d Diagnostic) {
	observability.Diagnostics.WithLabelValues(d.Severity.String()).Inc()
	if d.File != "" {
		if t, ok := s.project.TargetByPath(d.File); ok {
			s.observer.Diagnostic(t.Name, d)
			return
		}
	}
	s.observer.ProjectMessage(d.String())
}
