// Package repository defines the interfaces for the data persistence layer.
// These interfaces abstract the underlying storage implementation from the
// service layer.
package repository

import (
	"context"

	"github.com/macromill/activity-insights/internal/domain"
)

// Ledger is the bookkeeping of which time buckets have been fetched per
// organization. One bucket per (organization, kind, bucketKey); re-saving an
// existing key requires the force flag.
//
// The ledger gives no concurrent-writer safety: check-then-write is not
// locked, so it assumes a single writer per bucket at a time.
type Ledger interface {
	// IsBucketFetched reports whether a bucket with that key exists.
	// A missing or unreadable ledger file reads as false, never an error.
	IsBucketFetched(ctx context.Context, org string, kind domain.BucketKind, bucketKey string) bool

	// SaveBucket derives the bucket key from rangeStart and writes the bucket.
	// Without force it returns *apperrors.BucketAlreadyExistsError when the
	// key is already present, leaving storage untouched.
	SaveBucket(ctx context.Context, org string, kind domain.BucketKind, rangeStart, rangeEnd string, records []domain.ActivityRecord, force bool) (*domain.FetchBucket, error)

	// LoadBucket returns the records stored for one bucket key.
	// It returns apperrors.ErrNotFound when the bucket is absent.
	LoadBucket(ctx context.Context, org string, kind domain.BucketKind, bucketKey string) ([]domain.ActivityRecord, error)

	// ListFetchedBuckets returns bucket metadata sorted ascending by rangeStart.
	ListFetchedBuckets(ctx context.Context, org string, kind domain.BucketKind) ([]domain.BucketInfo, error)

	// DeleteBucket removes one bucket and reports whether it existed.
	DeleteBucket(ctx context.Context, org string, kind domain.BucketKind, bucketKey string) (bool, error)
}

// SnapshotStore is the legacy flat-per-organization variant of the ledger:
// a single blob holding the latest whole-organization snapshot.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, org string, records []domain.ActivityRecord) error

	// LoadSnapshot returns apperrors.ErrNotFound when no snapshot exists.
	LoadSnapshot(ctx context.Context, org string) ([]domain.ActivityRecord, error)
}

// ActivityStore combines both ledger variants with the merged read path.
type ActivityStore interface {
	Ledger
	SnapshotStore

	// LoadAllMerged concatenates the stored payloads of every given
	// organization. Bucketed data is preferred; the flat snapshot is used
	// only for organizations that have no buckets at all. kind narrows to
	// one granularity; within keeps only buckets overlapping the range.
	// Organizations with no data are reported with a zero count, not dropped.
	LoadAllMerged(ctx context.Context, orgs []string, kind *domain.BucketKind, within *domain.DateRange) (*domain.MergedData, error)
}
