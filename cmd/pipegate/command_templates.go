package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sourceplane/pipegate/internal/model"
)

var templatesCmd = &cobra.Command{
	Use:     "templates [template]",
	Aliases: []string{"template"},
	Short:   "List catalog templates",
	Long:    "List all catalog templates, or show the inputs, secrets and jobs of one. Use 'pipegate templates <name>' for details.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listTemplates(args)
	},
}

func registerTemplatesCommand(root *cobra.Command) {
	root.AddCommand(templatesCmd)
}

func listTemplates(args []string) error {
	cat, err := loadCatalog(newLogger())
	if err != nil {
		return err
	}

	if len(args) > 0 {
		tpl, err := cat.Get(args[0])
		if err != nil {
			return err
		}
		printTemplateDetails(tpl)
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetBorder(false)
	table.SetHeader([]string{"Name", "Description", "Inputs", "Jobs"})
	for _, name := range cat.Names() {
		tpl, _ := cat.Get(name)
		table.Append([]string{
			tpl.Name,
			tpl.Description,
			fmt.Sprintf("%d", len(tpl.Inputs)),
			fmt.Sprintf("%d", len(tpl.Jobs)),
		})
	}
	table.Render()

	fmt.Println("\nRun 'pipegate templates <name>' for detailed information")
	return nil
}

func printTemplateDetails(tpl *model.Template) {
	fmt.Printf("[Template] %s\n", tpl.Name)
	if tpl.Description != "" {
		fmt.Printf("  %s\n", tpl.Description)
	}

	if len(tpl.Inputs) > 0 {
		fmt.Printf("\nInputs:\n")
		table := tablewriter.NewWriter(os.Stdout)
		table.SetBorder(false)
		table.SetHeader([]string{"Name", "Kind", "Required", "Default", "Allowed"})
		for i := range tpl.Inputs {
			input := &tpl.Inputs[i]
			defaultVal := ""
			if input.Default != nil {
				defaultVal = fmt.Sprintf("%v", input.Default)
			}
			table.Append([]string{
				input.Name,
				string(input.Kind),
				fmt.Sprintf("%v", input.Required),
				defaultVal,
				strings.Join(input.Allowed, ", "),
			})
		}
		table.Render()
	}

	if len(tpl.Secrets) > 0 {
		fmt.Printf("\nSecrets: %s\n", strings.Join(tpl.Secrets, ", "))
	}

	fmt.Printf("\nJobs:\n")
	for i := range tpl.Jobs {
		job := &tpl.Jobs[i]
		fmt.Printf("  %s\n", job.ID)
		if len(job.DependsOn) > 0 {
			fmt.Printf("    depends on: %s\n", strings.Join(job.DependsOn, ", "))
		}
		if job.Condition != "" {
			fmt.Printf("    condition: %s\n", job.Condition)
		}
		for _, gateSpec := range job.Gates {
			fmt.Printf("    gate: %s %s %s\n", gateSpec.Metric, gateSpec.Comparator, gateSpec.Threshold)
		}
	}
}
