package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "activity-insights",
	Short: "Organization activity insights",
	Long: `activity-insights collects contributor activity (issues, merge requests,
commits, reviews) from configured GitHub organizations, keeps it in a local
file ledger bucketed by week or month, and answers free-text questions about
it. The serve subcommand exposes the same operations over HTTP.`,
	SilenceUsage: true,
}
