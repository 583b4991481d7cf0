package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate catalog template YAML",
	Long:  "Load the catalog (builtin or --catalog-dir) and report every schema or semantic error without running anything.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateCatalog()
	},
}

func registerValidateCommand(root *cobra.Command) {
	root.AddCommand(validateCmd)
}

func validateCatalog() error {
	fmt.Println("□ Loading catalog...")
	cat, err := loadCatalog(newLogger())
	if err != nil {
		return err
	}

	for _, name := range cat.Names() {
		fmt.Printf("  %s\n", name)
	}
	fmt.Printf("✓ %d templates valid\n", cat.Len())
	return nil
}
