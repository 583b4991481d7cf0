package dispatch_test

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sourceplane/pipegate/internal/dispatch"
	"github.com/sourceplane/pipegate/internal/model"
)

func TestLocalBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("should run a command and collect printed metrics", func(t *testing.T) {
		logDir := t.TempDir()
		var out bytes.Buffer
		backend := dispatch.NewLocalBackend(t.TempDir(), logDir, &out)

		result, err := backend.Submit(ctx, dispatch.SubmitRequest{
			JobID:   "coverage",
			Command: "echo '::metric coverage-percent=83.4'; echo done",
		})
		assert.Nil(t, err)
		assert.Equal(t, model.StatusSucceeded, result.Status)
		assert.Equal(t, 83.4, result.Metrics["coverage-percent"])
		assert.Contains(t, out.String(), "done")

		logData, err := os.ReadFile(result.LogsRef)
		assert.Nil(t, err)
		assert.Contains(t, string(logData), "::metric coverage-percent=83.4")
	})

	t.Run("should report a failed command as the job's own failure", func(t *testing.T) {
		backend := dispatch.NewLocalBackend(t.TempDir(), "", nil)

		result, err := backend.Submit(ctx, dispatch.SubmitRequest{
			JobID:   "lint",
			Command: "exit 3",
		})
		assert.Nil(t, err)
		assert.Equal(t, model.StatusFailed, result.Status)
		assert.Contains(t, result.Reason, "exit status 3")
	})

	t.Run("should report a timeout when the deadline expires", func(t *testing.T) {
		backend := dispatch.NewLocalBackend(t.TempDir(), "", nil)

		deadlined, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		result, err := backend.Submit(deadlined, dispatch.SubmitRequest{
			JobID:   "slow",
			Command: "sleep 10",
		})
		assert.Nil(t, err)
		assert.Equal(t, model.StatusFailed, result.Status)
		assert.Equal(t, model.ReasonTimeout, result.Reason)
	})

	t.Run("should ignore malformed metric lines", func(t *testing.T) {
		backend := dispatch.NewLocalBackend(t.TempDir(), "", nil)

		result, err := backend.Submit(ctx, dispatch.SubmitRequest{
			JobID:   "odd",
			Command: "echo '::metric nonsense'; echo '::metric count=abc'",
		})
		assert.Nil(t, err)
		assert.Equal(t, model.StatusSucceeded, result.Status)
		assert.Empty(t, result.Metrics)
	})
}
