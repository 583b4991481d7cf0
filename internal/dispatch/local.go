package dispatch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sourceplane/pipegate/internal/model"
)

// metricPrefix marks workflow-command style metric lines a step may print,
// e.g. "::metric coverage-percent=83.4". The local backend collects them
// into JobResult.Metrics.
const metricPrefix = "::metric "

// LocalBackend runs commands through the shell on the local machine. It is
// the default execution backend for the CLI; remote runners implement the
// same Backend interface.
type LocalBackend struct {
	WorkDir string
	LogDir  string
	Stdout  io.Writer
}

// NewLocalBackend creates a LocalBackend rooted at workDir. Job output is
// mirrored to stdout and captured under logDir, one file per job, whose path
// becomes the result's LogsRef.
func NewLocalBackend(workDir, logDir string, stdout io.Writer) *LocalBackend {
	return &LocalBackend{WorkDir: workDir, LogDir: logDir, Stdout: stdout}
}

// Submit implements Backend.
func (b *LocalBackend) Submit(ctx context.Context, req SubmitRequest) (model.JobResult, error) {
	var output bytes.Buffer
	sink := io.Writer(&output)
	if b.Stdout != nil {
		sink = io.MultiWriter(&output, b.Stdout)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", req.Command)
	cmd.Dir = b.WorkDir
	cmd.Stdout = sink
	cmd.Stderr = sink

	runErr := cmd.Run()

	logsRef, logErr := b.writeLog(req.JobID, output.Bytes())
	if logErr != nil {
		// Log capture failing is a backend fault, not the job's.
		return model.JobResult{}, &model.BackendError{Err: logErr}
	}

	result := model.JobResult{
		JobID:   req.JobID,
		Status:  model.StatusSucceeded,
		Metrics: parseMetrics(output.Bytes()),
		LogsRef: logsRef,
	}

	if runErr != nil {
		result.Status = model.StatusFailed
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result.Reason = model.ReasonTimeout
		} else {
			result.Reason = runErr.Error()
		}
	}

	return result, nil
}

func (b *LocalBackend) writeLog(jobID string, output []byte) (string, error) {
	if b.LogDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(b.LogDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(b.LogDir, jobID+".log")
	if err := os.WriteFile(path, output, 0o644); err != nil {
		return "", fmt.Errorf("failed to write job log: %w", err)
	}
	return path, nil
}

func parseMetrics(output []byte) map[string]float64 {
	var metrics map[string]float64

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, metricPrefix) {
			continue
		}
		name, rawValue, found := strings.Cut(strings.TrimPrefix(line, metricPrefix), "=")
		if !found {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(rawValue), 64)
		if err != nil {
			continue
		}
		if metrics == nil {
			metrics = make(map[string]float64)
		}
		metrics[strings.TrimSpace(name)] = value
	}

	return metrics
}
