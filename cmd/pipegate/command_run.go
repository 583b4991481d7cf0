package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sourceplane/pipegate/internal/dispatch"
	"github.com/sourceplane/pipegate/internal/gate"
	"github.com/sourceplane/pipegate/internal/graph"
	"github.com/sourceplane/pipegate/internal/model"
	"github.com/sourceplane/pipegate/internal/render"
	"github.com/sourceplane/pipegate/internal/resolve"
)

var (
	runTemplate   string
	runInputs     []string
	runSecretRefs []string
	runTimeoutSec int
	runDryRun     bool
	runOutputFile string
	runWorkDir    string
	runLogDir     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a template and evaluate its gates",
	Long:  "Resolve inputs against a catalog template, build the job graph, execute it on the local backend, and report a gated pass/fail verdict.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow()
	},
}

func registerRunCommand(root *cobra.Command) {
	root.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runTemplate, "template", "t", "", "Template name to run")
	runCmd.Flags().StringArrayVarP(&runInputs, "input", "i", nil, "Input value as key=value (repeatable)")
	runCmd.Flags().StringArrayVar(&runSecretRefs, "secret-ref", nil, "Name of an available secret (repeatable)")
	runCmd.Flags().IntVar(&runTimeoutSec, "timeout", 0, "Invocation deadline in seconds (0 means none)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Build and print the graph without executing")
	runCmd.Flags().StringVarP(&runOutputFile, "output", "o", "", "Write the verdict report to this file (json or yaml by extension)")
	runCmd.Flags().StringVar(&runWorkDir, "workdir", ".", "Working directory for job commands")
	runCmd.Flags().StringVar(&runLogDir, "log-dir", ".pipegate/logs", "Directory for per-job log capture")
	runCmd.MarkFlagRequired("template")
}

func runWorkflow() error {
	logger := newLogger()

	cat, err := loadCatalog(logger)
	if err != nil {
		return err
	}

	tpl, err := cat.Get(runTemplate)
	if err != nil {
		return err
	}

	raw, err := parseInputFlags(runInputs)
	if err != nil {
		return err
	}

	resolved, err := resolve.Resolve(tpl, raw, runSecretRefs)
	if err != nil {
		return err
	}

	g, err := graph.NewBuilder().Build(tpl, resolved)
	if err != nil {
		return err
	}

	viewer := render.NewGraphViewer(g)
	if runDryRun {
		fmt.Println(viewer.ViewDAG())
		fmt.Println(viewer.ViewCommands())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if runTimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(runTimeoutSec)*time.Second)
		defer cancel()
	}

	backend := dispatch.NewLocalBackend(runWorkDir, runLogDir, os.Stdout)
	dispatcher := dispatch.NewDispatcher(logger, backend)

	results, err := dispatcher.Dispatch(ctx, g)
	if err != nil {
		return err
	}

	verdict := gate.Evaluate(results, g)

	reporter := render.NewReporter()
	fmt.Println(reporter.Summary(verdict))
	if runOutputFile != "" {
		if err := reporter.WriteReport(verdict, runOutputFile); err != nil {
			return err
		}
		fmt.Printf("✓ Report saved to: %s\n", runOutputFile)
	}

	if verdict.Overall == model.OutcomeFail {
		return errRunFailed
	}
	return nil
}

// parseInputFlags turns repeated key=value flags into the raw input map.
// Values stay strings; the resolver owns coercion to declared kinds.
func parseInputFlags(pairs []string) (map[string]interface{}, error) {
	raw := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, &model.ValidationError{
				Err: fmt.Errorf("invalid --input %q, expected key=value", pair),
			}
		}
		raw[key] = value
	}
	return raw, nil
}
