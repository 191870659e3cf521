package main

import (
	"fmt"
	"os"

	"github.com/davidpm1021/dungeonsanddumbells/internal/catalog"
	"github.com/spf13/cobra"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <catalog.yaml>",
		Short: "Check a storylet catalog file without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	storylets, err := catalog.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Catalog OK: %d storylets\n", len(storylets))
	for _, sl := range storylets {
		fmt.Fprintf(os.Stdout, "  - %s (%s) %q\n", sl.Key, sl.Type, sl.Title)
	}
	return nil
}
