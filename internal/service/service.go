// Package service holds the business logic between the HTTP/CLI surfaces
// and the ledger, source and query layers.
package service

import (
	"context"

	"github.com/macromill/activity-insights/internal/domain"
)

// FetchService orchestrates upstream fetches and ledger bookkeeping.
type FetchService interface {
	// FetchBucket retrieves one organization's activity for the window and
	// records it under the bucket key derived from rangeStart. Without force
	// it fails with *apperrors.BucketAlreadyExistsError when the bucket was
	// fetched before, without calling upstream.
	FetchBucket(ctx context.Context, org string, kind domain.BucketKind, rangeStart, rangeEnd string, force bool) (*domain.FetchBucket, error)

	// FetchAll walks every configured organization sequentially, in
	// configured order, and reports per-organization success or failure.
	// One organization failing never aborts its siblings.
	FetchAll(ctx context.Context, kind domain.BucketKind, rangeStart, rangeEnd string, force bool) []domain.OrgFetchResult

	ListBuckets(ctx context.Context, org string, kind domain.BucketKind) ([]domain.BucketInfo, error)

	DeleteBucket(ctx context.Context, org string, kind domain.BucketKind, bucketKey string) (bool, error)

	RateLimitStatus(ctx context.Context) (domain.RateLimitStatus, error)
}

// QueryService answers free-text questions over the stored activity data.
// It never returns an error: failures become a data result with a nil
// payload and the error in the message.
type QueryService interface {
	Run(ctx context.Context, text string) domain.QueryResult
}
