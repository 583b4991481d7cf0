package model

import "time"

// Status is the terminal state of a job.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Skip reasons recorded on JobResult and surfaced in the Verdict.
const (
	ReasonConditionFalse   = "condition false"
	ReasonUpstreamExcluded = "upstream excluded"
	ReasonUpstreamFailure  = "upstream failure"
	ReasonTimeout          = "timeout"
	ReasonCanceled         = "canceled"
)

// JobResult is what the execution backend (or the dispatcher, for jobs it
// never submits) reports for one job.
type JobResult struct {
	JobID   string             `json:"jobId" yaml:"jobId"`
	Status  Status             `json:"status" yaml:"status"`
	Reason  string             `json:"reason,omitempty" yaml:"reason,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	// LogsRef is an opaque handle into the backend's log store.
	LogsRef  string        `json:"logsRef,omitempty" yaml:"logsRef,omitempty"`
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Outcome is the aggregate pass/fail of one invocation.
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
)

// GateOutcome records one gate comparison against a reported metric.
type GateOutcome struct {
	Metric     string     `json:"metric" yaml:"metric"`
	Comparator Comparator `json:"comparator" yaml:"comparator"`
	Threshold  float64    `json:"threshold" yaml:"threshold"`
	Actual     float64    `json:"actual,omitempty" yaml:"actual,omitempty"`
	Passed     bool       `json:"passed" yaml:"passed"`
	// ContractViolation marks a job that claimed success without reporting
	// the gated metric. Surfaced distinctly from an ordinary gate failure.
	ContractViolation bool `json:"contractViolation,omitempty" yaml:"contractViolation,omitempty"`
}

// JobVerdict is the per-job entry of a Verdict, in template declaration order.
type JobVerdict struct {
	JobID   string             `json:"jobId" yaml:"jobId"`
	Status  Status             `json:"status" yaml:"status"`
	Reason  string             `json:"reason,omitempty" yaml:"reason,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Gates   []GateOutcome      `json:"gates,omitempty" yaml:"gates,omitempty"`
	LogsRef string             `json:"logsRef,omitempty" yaml:"logsRef,omitempty"`
}

// Verdict aggregates all job results and gate evaluations for one invocation.
type Verdict struct {
	Template string       `json:"template" yaml:"template"`
	Overall  Outcome      `json:"overall" yaml:"overall"`
	Jobs     []JobVerdict `json:"jobs" yaml:"jobs"`
	// Failures holds one human-readable line per failing job or gate, in
	// job-definition order.
	Failures []string `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Fail marks the verdict failed and records one human-readable reason.
func (v *Verdict) Fail(reason string) {
	v.Overall = OutcomeFail
	v.Failures = append(v.Failures, reason)
}
