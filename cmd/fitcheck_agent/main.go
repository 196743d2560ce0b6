// Package main provides the entry point for the fit-check agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fitcheck_agent",
	Short: "Job fit evaluation agent",
	Long:  "Evaluates how well a candidate profile fits an employer or job description through a multi-phase research and matching pipeline, streaming progress as it works.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
