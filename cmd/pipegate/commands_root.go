package main

import (
	"fmt"

	"github.com/raystack/salt/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sourceplane/pipegate/internal/catalog"
)

var (
	catalogDir string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pipegate",
	Short: "Workflow engine: template + inputs → gated verdict",
	Long:  "pipegate compiles a catalog template and typed inputs into a job DAG, executes it, and folds metrics through quality gates into a pass/fail verdict",
	// Errors carry exit semantics; main prints what matters.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&catalogDir, "catalog-dir", "c", "", "Directory of template YAML files (defaults to the builtin catalog)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	registerRunCommand(rootCmd)
	registerValidateCommand(rootCmd)
	registerTemplatesCommand(rootCmd)
	registerGraphCommand(rootCmd)
}

type plainFormatter int

func (p *plainFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if len(entry.Data) > 0 {
		var data string
		for key, val := range entry.Data {
			data += fmt.Sprintf("%s: %v ", key, val)
		}
		return []byte(fmt.Sprintf("%s %s\n", entry.Message, data)), nil
	}
	return []byte(fmt.Sprintf("%s\n", entry.Message)), nil
}

func newLogger() log.Logger {
	level := "warning"
	if verbose {
		level = "debug"
	}
	return log.NewLogrus(
		log.LogrusWithLevel(level),
		log.LogrusWithFormatter(new(plainFormatter)),
	)
}

// loadCatalog resolves --catalog-dir, falling back to the builtin set.
func loadCatalog(logger log.Logger) (*catalog.Catalog, error) {
	if catalogDir != "" {
		return catalog.LoadDir(logger, catalogDir)
	}
	return catalog.LoadBuiltin(logger)
}
