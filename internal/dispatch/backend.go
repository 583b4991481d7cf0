package dispatch

import (
	"context"
	"time"

	"github.com/sourceplane/pipegate/internal/model"
)

// SubmitRequest carries one job to the execution backend. The command is
// fully substituted; the backend never resolves anything.
type SubmitRequest struct {
	JobID   string
	Command string
	Timeout time.Duration
}

// Backend is the external execution collaborator. How a command runs
// (subprocess, container, remote runner) is the backend's business; the
// dispatcher only submits and awaits.
//
// A returned error wrapping model.BackendError means the backend itself
// misbehaved (unreachable, internal fault) and the submission may be
// retried; any other error, and any JobResult with a failed status, is the
// job's own outcome and is final.
type Backend interface {
	Submit(ctx context.Context, req SubmitRequest) (model.JobResult, error)
}
