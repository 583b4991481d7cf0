package render_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourceplane/pipegate/internal/model"
	"github.com/sourceplane/pipegate/internal/render"
)

func sampleVerdict() *model.Verdict {
	return &model.Verdict{
		Template: "rust-ci",
		Overall:  model.OutcomeFail,
		Jobs: []model.JobVerdict{
			{JobID: "setup", Status: model.StatusSucceeded},
			{JobID: "lint", Status: model.StatusSkipped, Reason: model.ReasonConditionFalse},
			{
				JobID:  "coverage",
				Status: model.StatusSucceeded,
				Gates: []model.GateOutcome{
					{Metric: "coverage-percent", Comparator: model.CompareGTE, Threshold: 80, Actual: 75},
				},
			},
		},
		Failures: []string{"job coverage: gate coverage-percent expected >= 80, got 75"},
	}
}

func TestReporter(t *testing.T) {
	reporter := render.NewReporter()

	t.Run("should render verdict as indented json", func(t *testing.T) {
		data, err := reporter.RenderJSON(sampleVerdict())
		require.NoError(t, err)

		var decoded model.Verdict
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "rust-ci", decoded.Template)
		assert.Equal(t, model.OutcomeFail, decoded.Overall)
		assert.Len(t, decoded.Jobs, 3)
	})

	t.Run("should write yaml when path ends in .yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reports", "verdict.yaml")
		require.NoError(t, reporter.WriteReport(sampleVerdict(), path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "template: rust-ci")
		assert.Contains(t, string(data), "overall: fail")
	})

	t.Run("should default to json for unknown extensions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "verdict.out")
		require.NoError(t, reporter.WriteReport(sampleVerdict(), path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var decoded model.Verdict
		assert.NoError(t, json.Unmarshal(data, &decoded))
	})

	t.Run("should summarize jobs gates and failures", func(t *testing.T) {
		summary := reporter.Summary(sampleVerdict())

		assert.Contains(t, summary, "Template: rust-ci")
		assert.Contains(t, summary, "setup")
		assert.Contains(t, summary, "lint (condition false)")
		assert.Contains(t, summary, "gate coverage-percent >= 80: failed (75)")
		assert.Contains(t, summary, "job coverage: gate coverage-percent expected >= 80, got 75")
		assert.Contains(t, summary, "Overall: FAIL")
	})
}

func TestGraphViewer(t *testing.T) {
	g := &model.JobGraph{
		Template: "rust-ci",
		Nodes: map[string]*model.JobNode{
			"setup": {ID: "setup", Command: "rustup default stable"},
			"test":  {ID: "test", Command: "cargo test", DependsOn: []string{"setup"}},
			"coverage": {
				ID: "coverage", Command: "cargo tarpaulin", DependsOn: []string{"test"},
				Timeout: 90 * time.Second,
				Gates:   []model.GateSpec{{Metric: "coverage-percent", Comparator: model.CompareGTE, Threshold: "80"}},
			},
		},
		Order:    []string{"setup", "test", "coverage"},
		Excluded: []model.ExcludedJob{{ID: "lint", Reason: model.ReasonConditionFalse}},
	}
	viewer := render.NewGraphViewer(g)

	t.Run("should render the dag with gates timeout and exclusions", func(t *testing.T) {
		out := viewer.ViewDAG()

		assert.Contains(t, out, "rust-ci")
		assert.Contains(t, out, "setup")
		assert.Contains(t, out, "coverage [1m30s]")
		assert.Contains(t, out, "coverage-percent >= 80")
		assert.Contains(t, out, "lint (condition false)")
		assert.Contains(t, out, "Summary: 3 jobs, 1 excluded")
	})

	t.Run("should list substituted commands in execution order", func(t *testing.T) {
		out := viewer.ViewCommands()

		assert.Contains(t, out, "$ rustup default stable")
		assert.Contains(t, out, "$ cargo tarpaulin")
		assert.Less(t, strings.Index(out, "rustup"), strings.Index(out, "tarpaulin"))
	})
}
