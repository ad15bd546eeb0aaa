// Package jobrunner wires a ProblemInstance, Evaluator, and driver.Algorithm
// together under a wall-clock deadline and cancellation predicate,
// emitting progress snapshots through an external sender (§5, §6). It also
// provides a Pool for running several jobs concurrently, since
// ProblemInstance and Driver are job-scoped and share no mutable state
// across jobs (§5).
package jobrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"smuggr.xyz/horarium/common/models/input"
	"smuggr.xyz/horarium/common/models/output"
	"smuggr.xyz/horarium/core/driver"
	"smuggr.xyz/horarium/core/evaluate"
	"smuggr.xyz/horarium/core/genotype"
	"smuggr.xyz/horarium/core/problem"
)

// JobRequest is the decoded job envelope handed to a Runner, mirroring
// the intake collaborator's contract (§6).
type JobRequest struct {
	RecruitmentID    string
	Problem          input.RawProblemData
	MaxExecutionTime int
}

// Intake is the job-intake external collaborator (§6): the core does not
// care whether it is filesystem polling or a blocking queue pop.
type Intake interface {
	Receive(ctx context.Context) (JobRequest, error)
	HasMore() bool
	CheckCancellation(jobID string) bool
	CurrentJobID() string
}

// ProgressSender is the progress-emission external collaborator (§6).
type ProgressSender interface {
	SendProgress(ctx context.Context, snapshot output.ProgressSnapshot) error
}

// AlgorithmFactory constructs a fresh driver.Algorithm for one job. A
// Runner is algorithm-agnostic: host code selects Adaptive or Baseline
// (or any other driver.Algorithm) per job.
type AlgorithmFactory func() driver.Algorithm

// Runner drives a single job to completion (§5 suspension points: only
// between run_iteration calls and during intake).
type Runner struct {
	log     hclog.Logger
	newAlgo AlgorithmFactory
}

// New constructs a Runner. newAlgo is called once per RunJob invocation.
func New(log hclog.Logger, newAlgo AlgorithmFactory) *Runner {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Runner{log: log.Named("jobrunner"), newAlgo: newAlgo}
}

// RunJob processes req to completion, emitting one progress snapshot per
// iteration plus a final snapshot (iteration = -1) once the deadline
// passes or ctx is cancelled (§5, §6). An infeasible
// ProblemInstance short-circuits without emitting any progress record
// (§3 invariant 5, §7).
func (r *Runner) RunJob(ctx context.Context, req JobRequest, sender ProgressSender) error {
	log := r.log.With("job_id", req.RecruitmentID)

	p := problem.New(req.Problem, log)
	if !p.Feasible() {
		log.Error("problem instance is infeasible, refusing to run")
		return nil
	}

	schema := genotype.Build(p)
	eval := evaluate.New(log)
	algo := r.newAlgo()

	if err := algo.Init(p, schema, eval, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("driver init failed: %w", err)
	}

	maxExecutionTime := req.MaxExecutionTime
	if maxExecutionTime <= 0 {
		maxExecutionTime = input.DefaultMaxExecutionTime
	}
	deadline := time.Now().Add(time.Duration(maxExecutionTime) * time.Second)

	iteration := 0
	for {
		if ctx.Err() != nil || time.Now().After(deadline) {
			break
		}

		elite := algo.RunIteration(iteration)
		snapshot := r.snapshot(req.RecruitmentID, iteration, &elite, p, schema, eval)
		if err := sender.SendProgress(ctx, snapshot); err != nil {
			return fmt.Errorf("progress emission failed: %w", err)
		}
		iteration++
	}

	algo.Stop()
	best := algo.Best()
	final := r.snapshot(req.RecruitmentID, -1, &best, p, schema, eval)
	if err := sender.SendProgress(context.WithoutCancel(ctx), final); err != nil {
		return fmt.Errorf("final progress emission failed: %w", err)
	}
	return nil
}

// snapshot re-decodes ind (cheap and, per §4.4, deterministic) into the
// full solution payload the emission collaborator requires.
func (r *Runner) snapshot(jobID string, iteration int, ind *genotype.Individual, p *problem.Instance, schema *genotype.Schema, eval *evaluate.Evaluator) output.ProgressSnapshot {
	sol := eval.Evaluate(ind, p, schema)
	return output.ProgressSnapshot{
		JobID:        jobID,
		Iteration:    iteration,
		BestSolution: *sol,
	}
}

// Serve loops receive -> run -> emit-final until the intake collaborator
// reports no more jobs or ctx is cancelled (§6's host process loop).
// Intake/emission failures are fatal to the current job only (§7); Serve
// logs and moves on.
func (r *Runner) Serve(ctx context.Context, intake Intake, sender ProgressSender) error {
	for ctx.Err() == nil && intake.HasMore() {
		req, err := intake.Receive(ctx)
		if err != nil {
			r.log.Error("intake receive failed, skipping job", "error", err)
			continue
		}

		jobCtx, cancel := context.WithCancel(ctx)
		jobID := intake.CurrentJobID()
		stop := r.watchCancellation(jobCtx, cancel, intake, jobID)

		if err := r.RunJob(jobCtx, req, sender); err != nil {
			r.log.Error("job failed", "job_id", jobID, "error", err)
		}
		stop()
		cancel()
	}
	return nil
}

// watchCancellation polls the intake's cancellation predicate at a fixed
// interval and cancels jobCtx when it trips, satisfying §5's "suspension
// points... between run_iteration invocations" contract without requiring
// RunJob itself to know about the intake collaborator.
func (r *Runner) watchCancellation(ctx context.Context, cancel context.CancelFunc, intake Intake, jobID string) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if intake.CheckCancellation(jobID) {
					cancel()
					return
				}
			}
		}
	}()
	return func() { close(done) }
}

// Pool runs multiple jobs concurrently (§5: ProblemInstance MAY be
// shared across parallel optimizers; in practice each job owns its own
// instance, driver, and PRNG, so a Pool is just a concurrency-capped
// fan-out over independent Runner.RunJob calls).
type Pool struct {
	runner      *Runner
	concurrency int
}

// NewPool constructs a Pool bounded to concurrency simultaneous jobs.
func NewPool(runner *Runner, concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pool{runner: runner, concurrency: concurrency}
}

// RunAll runs every request, bounding concurrency, and returns the first
// error encountered (if any) after all jobs complete.
func (pool *Pool) RunAll(ctx context.Context, reqs []JobRequest, sender ProgressSender) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pool.concurrency)

	for _, req := range reqs {
		req := req
		g.Go(func() error {
			return pool.runner.RunJob(ctx, req, sender)
		})
	}
	return g.Wait()
}
