package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/macromill/activity-insights/internal/domain"
)

var (
	bucketsOrg  string
	bucketsKind string
	bucketsKey  string
)

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "Inspect and manage ledger buckets",
}

var bucketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fetched buckets for an organization",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()

		buckets, err := a.store.ListFetchedBuckets(context.Background(), bucketsOrg, domain.BucketKind(bucketsKind))
		if err != nil {
			return err
		}

		return json.NewEncoder(os.Stdout).Encode(buckets)
	},
}

var bucketsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete one fetched bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp()

		deleted, err := a.store.DeleteBucket(context.Background(), bucketsOrg, domain.BucketKind(bucketsKind), bucketsKey)
		if err != nil {
			return err
		}

		if !deleted {
			return fmt.Errorf("bucket %q not found for organization %q", bucketsKey, bucketsOrg)
		}

		fmt.Printf("deleted bucket %s for %s\n", bucketsKey, bucketsOrg)

		return nil
	},
}

func init() {
	bucketsCmd.PersistentFlags().StringVar(&bucketsOrg, "org", "", "Organization name")
	bucketsCmd.PersistentFlags().StringVar(&bucketsKind, "kind", "month", "Bucket kind (week, month)")
	_ = bucketsCmd.MarkPersistentFlagRequired("org")

	bucketsDeleteCmd.Flags().StringVar(&bucketsKey, "key", "", "Bucket key (e.g. 2025-01)")
	_ = bucketsDeleteCmd.MarkFlagRequired("key")

	bucketsCmd.AddCommand(bucketsListCmd)
	bucketsCmd.AddCommand(bucketsDeleteCmd)
	rootCmd.AddCommand(bucketsCmd)
}
