// Package dispatch submits a built job graph to an execution backend in
// wavefront order: every job whose dependencies have succeeded is submitted,
// the wave settles, eligibility is recomputed. Independent siblings of a
// failed job run to completion; transitive dependents of a failure are
// skipped and never submitted.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kushsharma/parallel"
	"github.com/raystack/salt/log"

	"github.com/sourceplane/pipegate/internal/model"
)

const (
	// DefaultJobTimeout bounds a submission when neither the job nor the
	// caller set one. No operation blocks indefinitely.
	DefaultJobTimeout = 15 * time.Minute

	// DefaultBackendRetries is how many times a submission is retried when
	// the backend itself errors. Genuine job failures are never retried.
	DefaultBackendRetries = 3

	retryInitialInterval = 500 * time.Millisecond
)

// Dispatcher executes job graphs against a Backend. One-shot per invocation:
// a graph is dispatched once and discarded.
type Dispatcher struct {
	l              log.Logger
	backend        Backend
	defaultTimeout time.Duration
	retries        uint64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDefaultTimeout sets the per-job timeout used when a job does not
// declare its own.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.defaultTimeout = timeout
		}
	}
}

// WithBackendRetries bounds retries of backend-class submission errors.
func WithBackendRetries(retries uint64) Option {
	return func(d *Dispatcher) {
		d.retries = retries
	}
}

// NewDispatcher creates a Dispatcher for the given backend.
func NewDispatcher(logger log.Logger, backend Backend, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		l:              logger,
		backend:        backend,
		defaultTimeout: DefaultJobTimeout,
		retries:        DefaultBackendRetries,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs the graph to completion and returns one JobResult per
// included job, in the graph's topological order. Cancellation is
// cooperative: it is checked before each new wave, and jobs already
// submitted are left to finish.
func (d *Dispatcher) Dispatch(ctx context.Context, g *model.JobGraph) ([]model.JobResult, error) {
	if g == nil {
		return nil, fmt.Errorf("job graph cannot be nil")
	}

	results := make(map[string]model.JobResult, len(g.Order))

	remaining := make(map[string]bool, len(g.Order))
	for _, id := range g.Order {
		remaining[id] = true
	}

	for len(remaining) > 0 {
		// Cascade first: anything downstream of a failed or skipped job can
		// never become eligible and must not wait forever.
		cascaded := false
		for _, id := range g.Order {
			if !remaining[id] {
				continue
			}
			for _, dep := range g.Nodes[id].DependsOn {
				depResult, done := results[dep]
				if done && depResult.Status != model.StatusSucceeded {
					results[id] = model.JobResult{
						JobID:  id,
						Status: model.StatusSkipped,
						Reason: model.ReasonUpstreamFailure,
					}
					delete(remaining, id)
					cascaded = true
					break
				}
			}
		}

		var wave []string
		for _, id := range g.Order {
			if !remaining[id] {
				continue
			}
			eligible := true
			for _, dep := range g.Nodes[id].DependsOn {
				if depResult, done := results[dep]; !done || depResult.Status != model.StatusSucceeded {
					eligible = false
					break
				}
			}
			if eligible {
				wave = append(wave, id)
			}
		}

		if len(wave) == 0 {
			if cascaded {
				continue
			}
			break
		}

		if err := ctx.Err(); err != nil {
			for _, id := range g.Order {
				if remaining[id] {
					results[id] = model.JobResult{JobID: id, Status: model.StatusSkipped, Reason: model.ReasonCanceled}
					delete(remaining, id)
				}
			}
			break
		}

		d.l.Debug("dispatching wave", "jobs", wave)

		// The whole wave is handed over at once; how much of it actually
		// runs concurrently is the backend's policy, not ours.
		runner := parallel.NewRunner(parallel.WithLimit(len(wave)))
		for _, id := range wave {
			runner.Add(func(node *model.JobNode) func() (interface{}, error) {
				return func() (interface{}, error) {
					return d.submit(ctx, node), nil
				}
			}(g.Nodes[id]))
		}

		for i, state := range runner.Run() {
			result := state.Val.(model.JobResult)
			results[result.JobID] = result
			delete(remaining, wave[i])
		}
	}

	ordered := make([]model.JobResult, 0, len(results))
	for _, id := range g.Order {
		if result, ok := results[id]; ok {
			ordered = append(ordered, result)
		}
	}
	return ordered, nil
}

// submit runs one job against the backend, retrying backend-class errors
// with exponential backoff. The submission carries its own timeout but not
// the invocation's cancellation: a job handed to the backend runs to
// completion even if the invocation is canceled afterwards.
func (d *Dispatcher) submit(ctx context.Context, node *model.JobNode) model.JobResult {
	timeout := node.Timeout
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}

	subCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	started := time.Now()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryInitialInterval

	attempt := 0
	result, err := backoff.RetryWithData(func() (model.JobResult, error) {
		attempt++
		res, err := d.backend.Submit(subCtx, SubmitRequest{
			JobID:   node.ID,
			Command: node.Command,
			Timeout: timeout,
		})
		if err != nil {
			if model.IsBackendError(err) && subCtx.Err() == nil {
				d.l.Warn("backend error, will retry", "job", node.ID, "attempt", attempt, "error", err.Error())
				return model.JobResult{}, err
			}
			return model.JobResult{}, backoff.Permanent(err)
		}
		return res, nil
	}, backoff.WithContext(backoff.WithMaxRetries(policy, d.retries), subCtx))

	duration := time.Since(started)

	if err != nil {
		reason := err.Error()
		if errors.Is(subCtx.Err(), context.DeadlineExceeded) {
			reason = model.ReasonTimeout
		}
		d.l.Error("job failed", "job", node.ID, "reason", reason)
		return model.JobResult{JobID: node.ID, Status: model.StatusFailed, Reason: reason, Duration: duration}
	}

	result.JobID = node.ID
	if result.Status == "" {
		result.Status = model.StatusSucceeded
	}
	if result.Duration == 0 {
		result.Duration = duration
	}
	d.l.Debug("job settled", "job", node.ID, "status", string(result.Status))
	return result
}
