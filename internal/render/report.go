package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourceplane/pipegate/internal/model"
	"gopkg.in/yaml.v3"
)

// Reporter materializes a Verdict into machine- and human-readable forms.
type Reporter struct{}

// NewReporter creates a new reporter
func NewReporter() *Reporter {
	return &Reporter{}
}

// RenderJSON renders the verdict as indented JSON
func (r *Reporter) RenderJSON(verdict *model.Verdict) ([]byte, error) {
	return json.MarshalIndent(verdict, "", "  ")
}

// RenderYAML renders the verdict as YAML
func (r *Reporter) RenderYAML(verdict *model.Verdict) ([]byte, error) {
	return yaml.Marshal(verdict)
}

// WriteReport writes the verdict to file, JSON or YAML based on extension
func (r *Reporter) WriteReport(verdict *model.Verdict, path string) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	var data []byte
	var err error
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = r.RenderYAML(verdict)
	default:
		data, err = r.RenderJSON(verdict)
	}
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// Summary returns a terminal-friendly rundown of the verdict: one line per
// job in definition order, then the failure lines if any.
func (r *Reporter) Summary(verdict *model.Verdict) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Template: %s\n", verdict.Template))
	for _, jv := range verdict.Jobs {
		sb.WriteString(fmt.Sprintf("%s %s", statusGlyph(jv), jv.JobID))
		if jv.Reason != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", jv.Reason))
		}
		sb.WriteString("\n")
		for _, gate := range jv.Gates {
			sb.WriteString(fmt.Sprintf("    gate %s %s %v: %s\n",
				gate.Metric, gate.Comparator, gate.Threshold, gateWord(gate)))
		}
	}

	if len(verdict.Failures) > 0 {
		sb.WriteString("\nFailures:\n")
		for _, failure := range verdict.Failures {
			sb.WriteString(fmt.Sprintf("  - %s\n", failure))
		}
	}

	sb.WriteString(fmt.Sprintf("\nOverall: %s\n", strings.ToUpper(string(verdict.Overall))))
	return sb.String()
}

func statusGlyph(jv model.JobVerdict) string {
	switch jv.Status {
	case model.StatusSucceeded:
		for _, gate := range jv.Gates {
			if !gate.Passed {
				return "✗"
			}
		}
		return "✓"
	case model.StatusFailed:
		return "✗"
	default:
		return "∅"
	}
}

func gateWord(gate model.GateOutcome) string {
	switch {
	case gate.ContractViolation:
		return "metric not reported"
	case gate.Passed:
		return fmt.Sprintf("passed (%v)", gate.Actual)
	default:
		return fmt.Sprintf("failed (%v)", gate.Actual)
	}
}
