package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "macro-stress-pipeline",
	Short: "A CLI for managing the Macro Stress Score pipeline services",
	Long:  `Macro Stress Score is a daily macroeconomic stress scoring pipeline: fetch, normalize, score, and serve per-country stress data.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI '%s'", err)
		os.Exit(1)
	}
}
