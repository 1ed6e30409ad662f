// Package source defines the contract for the upstream activity provider.
// Implementations return raw events attributable to a login and a timestamp;
// bucketing into months happens in the fetch service.
package source

import (
	"context"
	"time"

	"github.com/macromill/activity-insights/internal/domain"
)

// Member is one organization member as reported upstream.
type Member struct {
	Login       string
	DisplayName string
	AvatarURL   string
}

// Event is one attributable activity occurrence.
type Event struct {
	Login      string
	OccurredAt time.Time
}

// Client is the upstream activity source. Range bounds are inclusive
// calendar dates. Implementations are expected to retry transient failures
// with backoff and to degrade a single failing repository to zero events
// rather than failing the whole organization.
type Client interface {
	ListMembers(ctx context.Context, org string) ([]Member, error)

	ListIssues(ctx context.Context, org string, start, end time.Time) ([]Event, error)

	// ListMergeRequestsAndReviews returns merge request events and review
	// events for the window in one pass, since reviews hang off the merge
	// requests upstream.
	ListMergeRequestsAndReviews(ctx context.Context, org string, start, end time.Time) (mergeRequests, reviews []Event, err error)

	ListCommits(ctx context.Context, org string, start, end time.Time) ([]Event, error)

	// RateLimit reports the current upstream quota so callers can refuse
	// to start large fetches when remaining capacity is low.
	RateLimit(ctx context.Context) (domain.RateLimitStatus, error)
}
