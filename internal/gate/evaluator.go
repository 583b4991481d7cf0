// Package gate converts step results into the invocation's final verdict.
// Gates only apply to jobs that succeeded: a failed job is already a
// failure, and a skipped job never produced the gated metric. A succeeded
// job that did not report a gated metric violated its contract, which is
// surfaced distinctly from an ordinary gate failure.
package gate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sourceplane/pipegate/internal/model"
)

// Evaluate folds job results and gate checks into a Verdict. Jobs are
// reported in template declaration order, condition-excluded jobs included,
// so an audit of the verdict accounts for every job the template declares.
func Evaluate(results []model.JobResult, g *model.JobGraph) *model.Verdict {
	verdict := &model.Verdict{
		Template: g.Template,
		Overall:  model.OutcomePass,
	}

	excluded := make(map[string]string, len(g.Excluded))
	for _, ex := range g.Excluded {
		excluded[ex.ID] = ex.Reason
	}
	byID := make(map[string]model.JobResult, len(results))
	for _, result := range results {
		byID[result.JobID] = result
	}

	for _, id := range g.JobOrder {
		if reason, ok := excluded[id]; ok {
			verdict.Jobs = append(verdict.Jobs, model.JobVerdict{
				JobID:  id,
				Status: model.StatusSkipped,
				Reason: reason,
			})
			continue
		}

		result, ok := byID[id]
		if !ok {
			// An included job the dispatcher never reported on: treat like a
			// cancellation so the verdict stays accountable.
			verdict.Fail(fmt.Sprintf("job %s: no result reported", id))
			verdict.Jobs = append(verdict.Jobs, model.JobVerdict{
				JobID:  id,
				Status: model.StatusSkipped,
				Reason: model.ReasonCanceled,
			})
			continue
		}

		jv := model.JobVerdict{
			JobID:   id,
			Status:  result.Status,
			Reason:  result.Reason,
			Metrics: result.Metrics,
			LogsRef: result.LogsRef,
		}

		switch result.Status {
		case model.StatusFailed:
			verdict.Fail(fmt.Sprintf("job %s: failed (%s)", id, result.Reason))
		case model.StatusSkipped:
			// Skips cascading from a failure are accounted for by the
			// failing job's line; a cancellation skip fails on its own.
			if result.Reason == model.ReasonCanceled {
				verdict.Fail(fmt.Sprintf("job %s: canceled before submission", id))
			}
		case model.StatusSucceeded:
			jv.Gates = evaluateGates(verdict, g, id, result)
		}

		verdict.Jobs = append(verdict.Jobs, jv)
	}

	return verdict
}

func evaluateGates(verdict *model.Verdict, g *model.JobGraph, jobID string, result model.JobResult) []model.GateOutcome {
	node := g.Node(jobID)
	if node == nil || len(node.Gates) == 0 {
		return nil
	}

	outcomes := make([]model.GateOutcome, 0, len(node.Gates))
	for _, spec := range node.Gates {
		outcome := model.GateOutcome{
			Metric:     spec.Metric,
			Comparator: spec.Comparator,
		}

		threshold, err := resolveThreshold(spec, g.Resolved)
		if err != nil {
			outcome.ContractViolation = true
			verdict.Fail(fmt.Sprintf("job %s: gate %s: %s", jobID, spec.Metric, err))
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.Threshold = threshold

		actual, reported := result.Metrics[spec.Metric]
		if !reported {
			outcome.ContractViolation = true
			verdict.Fail(fmt.Sprintf("job %s: %s %q", jobID, model.ErrMissingMetric, spec.Metric))
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.Actual = actual
		outcome.Passed = compare(spec.Comparator, actual, threshold)

		if !outcome.Passed {
			verdict.Fail(fmt.Sprintf("job %s: gate %s expected %s %v, got %v",
				jobID, spec.Metric, spec.Comparator, threshold, actual))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func resolveThreshold(spec model.GateSpec, resolved model.ResolvedConfig) (float64, error) {
	if ref, ok := strings.CutPrefix(spec.Threshold, "inputs."); ok {
		value, present := resolved[ref]
		if !present {
			return 0, fmt.Errorf("threshold input %s has no resolved value", ref)
		}
		switch n := value.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		}
		return 0, fmt.Errorf("threshold input %s is not a number", ref)
	}
	return strconv.ParseFloat(spec.Threshold, 64)
}

func compare(comparator model.Comparator, actual, threshold float64) bool {
	switch comparator {
	case model.CompareGTE:
		return actual >= threshold
	case model.CompareLTE:
		return actual <= threshold
	case model.CompareEQ:
		return actual == threshold
	}
	return false
}
