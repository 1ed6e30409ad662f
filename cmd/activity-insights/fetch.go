package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/macromill/activity-insights/internal/domain"
)

var (
	fetchOrg   string
	fetchKind  string
	fetchStart string
	fetchEnd   string
	fetchForce bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch one organization's activity into a ledger bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		a := newApp()

		svc, err := a.newFetchService(ctx)
		if err != nil {
			return err
		}

		bucket, err := svc.FetchBucket(ctx, fetchOrg, domain.BucketKind(fetchKind), fetchStart, fetchEnd, fetchForce)
		if err != nil {
			return err
		}

		fmt.Printf("fetched bucket %s for %s: %d records\n", bucket.BucketKey, fetchOrg, len(bucket.Records))

		return nil
	},
}

var fetchAllCmd = &cobra.Command{
	Use:   "fetch-all",
	Short: "Fetch every configured organization for the window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		a := newApp()

		svc, err := a.newFetchService(ctx)
		if err != nil {
			return err
		}

		results := svc.FetchAll(ctx, domain.BucketKind(fetchKind), fetchStart, fetchEnd, fetchForce)

		return json.NewEncoder(os.Stdout).Encode(results)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{fetchCmd, fetchAllCmd} {
		cmd.Flags().StringVar(&fetchKind, "kind", "month", "Bucket kind (week, month)")
		cmd.Flags().StringVar(&fetchStart, "from", "", "Range start (YYYY-MM-DD)")
		cmd.Flags().StringVar(&fetchEnd, "to", "", "Range end (YYYY-MM-DD)")
		cmd.Flags().BoolVar(&fetchForce, "force", false, "Replace the bucket if it was fetched before")
		_ = cmd.MarkFlagRequired("from")
		_ = cmd.MarkFlagRequired("to")
	}

	fetchCmd.Flags().StringVar(&fetchOrg, "org", "", "Organization name")
	_ = fetchCmd.MarkFlagRequired("org")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(fetchAllCmd)
}
