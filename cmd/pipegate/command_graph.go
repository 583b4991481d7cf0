package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sourceplane/pipegate/internal/graph"
	"github.com/sourceplane/pipegate/internal/render"
	"github.com/sourceplane/pipegate/internal/resolve"
)

var (
	graphTemplate   string
	graphInputs     []string
	graphSecretRefs []string
	graphCommands   bool
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the job graph for a template and inputs",
	Long:  "Resolve inputs and print the condition-filtered, dependency-ordered job graph without executing it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showGraph()
	},
}

func registerGraphCommand(root *cobra.Command) {
	root.AddCommand(graphCmd)

	graphCmd.Flags().StringVarP(&graphTemplate, "template", "t", "", "Template name")
	graphCmd.Flags().StringArrayVarP(&graphInputs, "input", "i", nil, "Input value as key=value (repeatable)")
	graphCmd.Flags().StringArrayVar(&graphSecretRefs, "secret-ref", nil, "Name of an available secret (repeatable)")
	graphCmd.Flags().BoolVar(&graphCommands, "commands", false, "Also list substituted commands in execution order")
	graphCmd.MarkFlagRequired("template")
}

func showGraph() error {
	logger := newLogger()

	cat, err := loadCatalog(logger)
	if err != nil {
		return err
	}

	tpl, err := cat.Get(graphTemplate)
	if err != nil {
		return err
	}

	raw, err := parseInputFlags(graphInputs)
	if err != nil {
		return err
	}

	resolved, err := resolve.Resolve(tpl, raw, graphSecretRefs)
	if err != nil {
		return err
	}

	g, err := graph.NewBuilder().Build(tpl, resolved)
	if err != nil {
		return err
	}

	viewer := render.NewGraphViewer(g)
	fmt.Println(viewer.ViewDAG())
	if graphCommands {
		fmt.Println(viewer.ViewCommands())
	}
	return nil
}
