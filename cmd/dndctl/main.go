package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "dndctl",
		Short: "Operator tooling for the narrative engine",
	}
	root.AddCommand(validateCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(orchestrateCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
