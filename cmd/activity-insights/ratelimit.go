package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var rateLimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Show the remaining upstream API quota",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		a := newApp()

		svc, err := a.newFetchService(ctx)
		if err != nil {
			return err
		}

		status, err := svc.RateLimitStatus(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("limit: %d, remaining: %d, resets at %s\n",
			status.Limit, status.Remaining, status.ResetAt.Format("2006-01-02 15:04:05 MST"))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(rateLimitCmd)
}
