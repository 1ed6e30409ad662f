package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/macromill/activity-insights/internal/apperrors"
	"github.com/macromill/activity-insights/internal/config"
	"github.com/macromill/activity-insights/internal/domain"
	"github.com/macromill/activity-insights/internal/repository"
	"github.com/macromill/activity-insights/internal/source"
	"github.com/macromill/activity-insights/pkg/logger/sl"
)

type FetchServiceImpl struct {
	src          source.Client
	store        repository.ActivityStore
	orgs         []config.Organization
	minRemaining int
	log          *slog.Logger
}

var _ FetchService = (*FetchServiceImpl)(nil)

func NewFetchService(src source.Client, store repository.ActivityStore, orgs []config.Organization, minRemaining int, log *slog.Logger) *FetchServiceImpl {
	return &FetchServiceImpl{
		src:          src,
		store:        store,
		orgs:         orgs,
		minRemaining: minRemaining,
		log:          log,
	}
}

func (s *FetchServiceImpl) FetchBucket(ctx context.Context, org string, kind domain.BucketKind, rangeStart, rangeEnd string, force bool) (*domain.FetchBucket, error) {
	const op = "internal.service.FetchBucket"

	start, err := time.Parse(domain.DateLayout, rangeStart)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: invalid range start: %s", op, apperrors.ErrInvalidRequest, rangeStart)
	}

	end, err := time.Parse(domain.DateLayout, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: invalid range end: %s", op, apperrors.ErrInvalidRequest, rangeEnd)
	}

	if end.Before(start) {
		return nil, fmt.Errorf("%s: %w: range end before range start", op, apperrors.ErrInvalidRequest)
	}

	bucketKey, err := kind.KeyForDate(rangeStart)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// The guard runs before any upstream call so a redundant fetch costs
	// nothing against the rate limit.
	if !force && s.store.IsBucketFetched(ctx, org, kind, bucketKey) {
		return nil, &apperrors.BucketAlreadyExistsError{
			Organization: org,
			BucketKey:    bucketKey,
			RangeStart:   rangeStart,
			RangeEnd:     rangeEnd,
		}
	}

	if err := s.preflight(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	records, err := s.collect(ctx, org, start, endOfDay(end))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bucket, err := s.store.SaveBucket(ctx, org, kind, rangeStart, rangeEnd, records, force)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("bucket fetched",
		slog.String("org", org),
		slog.String("kind", string(kind)),
		slog.String("bucket", bucket.BucketKey),
		slog.Int("records", len(records)),
	)

	return bucket, nil
}

func (s *FetchServiceImpl) FetchAll(ctx context.Context, kind domain.BucketKind, rangeStart, rangeEnd string, force bool) []domain.OrgFetchResult {
	results := make([]domain.OrgFetchResult, 0, len(s.orgs))

	for _, org := range s.orgs {
		result := domain.OrgFetchResult{Organization: org.Name}

		bucket, err := s.FetchBucket(ctx, org.Name, kind, rangeStart, rangeEnd, force)
		if err != nil {
			result.Error = err.Error()
			s.log.Warn("organization fetch failed", slog.String("org", org.Name), sl.Err(err))
		} else {
			result.Success = true
			result.Count = len(bucket.Records)
		}

		results = append(results, result)
	}

	return results
}

func (s *FetchServiceImpl) ListBuckets(ctx context.Context, org string, kind domain.BucketKind) ([]domain.BucketInfo, error) {
	return s.store.ListFetchedBuckets(ctx, org, kind)
}

func (s *FetchServiceImpl) DeleteBucket(ctx context.Context, org string, kind domain.BucketKind, bucketKey string) (bool, error) {
	return s.store.DeleteBucket(ctx, org, kind, bucketKey)
}

func (s *FetchServiceImpl) RateLimitStatus(ctx context.Context) (domain.RateLimitStatus, error) {
	return s.src.RateLimit(ctx)
}

// preflight refuses to start a fetch when the remaining upstream quota is
// below the configured floor.
func (s *FetchServiceImpl) preflight(ctx context.Context) error {
	status, err := s.src.RateLimit(ctx)
	if err != nil {
		// Quota status being unavailable is not a reason to refuse.
		s.log.Warn("failed to check rate limit, proceeding", sl.Err(err))

		return nil
	}

	if status.Remaining < s.minRemaining {
		return fmt.Errorf("%w: %d remaining, floor is %d",
			apperrors.ErrRateLimited, status.Remaining, s.minRemaining)
	}

	return nil
}

// collect pulls members and all four event kinds for the window and folds
// them into one ActivityRecord per contributor, bucketed by calendar month.
func (s *FetchServiceImpl) collect(ctx context.Context, orgName string, start, end time.Time) ([]domain.ActivityRecord, error) {
	members, err := s.src.ListMembers(ctx, orgName)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	issues, err := s.src.ListIssues(ctx, orgName, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	mergeRequests, reviews, err := s.src.ListMergeRequestsAndReviews(ctx, orgName, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list merge requests: %w", err)
	}

	commits, err := s.src.ListCommits(ctx, orgName, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits: %w", err)
	}

	displayName := orgName
	for _, org := range s.orgs {
		if org.Name == orgName && org.DisplayName != "" {
			displayName = org.DisplayName
		}
	}

	builder := newRecordBuilder(orgName, displayName)

	for _, m := range members {
		builder.addMember(m)
	}

	builder.addEvents(issues, func(c *domain.Counts) { c.Issues++ })
	builder.addEvents(mergeRequests, func(c *domain.Counts) { c.MergeRequests++ })
	builder.addEvents(reviews, func(c *domain.Counts) { c.Reviews++ })
	builder.addEvents(commits, func(c *domain.Counts) { c.Commits++ })

	return builder.records(), nil
}

// recordBuilder accumulates events into per-contributor records. Member
// order, then first-seen event order, decides the output order so repeated
// fetches of the same data produce identical payloads.
type recordBuilder struct {
	org         string
	displayName string
	order       []string
	byLogin     map[string]*domain.ActivityRecord
}

func newRecordBuilder(org, displayName string) *recordBuilder {
	return &recordBuilder{
		org:         org,
		displayName: displayName,
		byLogin:     make(map[string]*domain.ActivityRecord),
	}
}

func (b *recordBuilder) get(login string) *domain.ActivityRecord {
	rec, ok := b.byLogin[login]
	if !ok {
		rec = &domain.ActivityRecord{
			Login:                   login,
			Organization:            b.org,
			OrganizationDisplayName: b.displayName,
			MonthlyBuckets:          make(map[string]domain.Counts),
		}
		b.byLogin[login] = rec
		b.order = append(b.order, login)
	}

	return rec
}

func (b *recordBuilder) addMember(m source.Member) {
	rec := b.get(m.Login)
	rec.DisplayName = m.DisplayName
	rec.AvatarURL = m.AvatarURL
}

func (b *recordBuilder) addEvents(events []source.Event, bump func(*domain.Counts)) {
	for _, ev := range events {
		rec := b.get(ev.Login)

		month := domain.MonthKey(ev.OccurredAt)
		counts := rec.MonthlyBuckets[month]
		bump(&counts)
		rec.MonthlyBuckets[month] = counts
	}
}

func (b *recordBuilder) records() []domain.ActivityRecord {
	records := make([]domain.ActivityRecord, 0, len(b.order))
	for _, login := range b.order {
		records = append(records, *b.byLogin[login])
	}

	return records
}

func endOfDay(t time.Time) time.Time {
	return t.Add(24*time.Hour - time.Nanosecond)
}
