package service

import (
	"context"
	"time"

	"github.com/macromill/activity-insights/internal/domain"
	"github.com/macromill/activity-insights/internal/repository"
	"github.com/macromill/activity-insights/internal/source"
	"github.com/stretchr/testify/mock"
)

type SourceClientMock struct {
	mock.Mock
}

var _ source.Client = (*SourceClientMock)(nil)

func (m *SourceClientMock) ListMembers(ctx context.Context, org string) ([]source.Member, error) {
	args := m.Called(ctx, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]source.Member), args.Error(1)
}

func (m *SourceClientMock) ListIssues(ctx context.Context, org string, start, end time.Time) ([]source.Event, error) {
	args := m.Called(ctx, org, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]source.Event), args.Error(1)
}

func (m *SourceClientMock) ListMergeRequestsAndReviews(ctx context.Context, org string, start, end time.Time) ([]source.Event, []source.Event, error) {
	args := m.Called(ctx, org, start, end)

	var mrs, reviews []source.Event
	if args.Get(0) != nil {
		mrs = args.Get(0).([]source.Event)
	}

	if args.Get(1) != nil {
		reviews = args.Get(1).([]source.Event)
	}

	return mrs, reviews, args.Error(2)
}

func (m *SourceClientMock) ListCommits(ctx context.Context, org string, start, end time.Time) ([]source.Event, error) {
	args := m.Called(ctx, org, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]source.Event), args.Error(1)
}

func (m *SourceClientMock) RateLimit(ctx context.Context) (domain.RateLimitStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.RateLimitStatus), args.Error(1)
}

type ActivityStoreMock struct {
	mock.Mock
}

var _ repository.ActivityStore = (*ActivityStoreMock)(nil)

func (m *ActivityStoreMock) IsBucketFetched(ctx context.Context, org string, kind domain.BucketKind, bucketKey string) bool {
	args := m.Called(ctx, org, kind, bucketKey)
	return args.Bool(0)
}

func (m *ActivityStoreMock) SaveBucket(ctx context.Context, org string, kind domain.BucketKind, rangeStart, rangeEnd string, records []domain.ActivityRecord, force bool) (*domain.FetchBucket, error) {
	args := m.Called(ctx, org, kind, rangeStart, rangeEnd, records, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.FetchBucket), args.Error(1)
}

func (m *ActivityStoreMock) LoadBucket(ctx context.Context, org string, kind domain.BucketKind, bucketKey string) ([]domain.ActivityRecord, error) {
	args := m.Called(ctx, org, kind, bucketKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ActivityRecord), args.Error(1)
}

func (m *ActivityStoreMock) ListFetchedBuckets(ctx context.Context, org string, kind domain.BucketKind) ([]domain.BucketInfo, error) {
	args := m.Called(ctx, org, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.BucketInfo), args.Error(1)
}

func (m *ActivityStoreMock) DeleteBucket(ctx context.Context, org string, kind domain.BucketKind, bucketKey string) (bool, error) {
	args := m.Called(ctx, org, kind, bucketKey)
	return args.Bool(0), args.Error(1)
}

func (m *ActivityStoreMock) SaveSnapshot(ctx context.Context, org string, records []domain.ActivityRecord) error {
	args := m.Called(ctx, org, records)
	return args.Error(0)
}

func (m *ActivityStoreMock) LoadSnapshot(ctx context.Context, org string) ([]domain.ActivityRecord, error) {
	args := m.Called(ctx, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ActivityRecord), args.Error(1)
}

func (m *ActivityStoreMock) LoadAllMerged(ctx context.Context, orgs []string, kind *domain.BucketKind, within *domain.DateRange) (*domain.MergedData, error) {
	args := m.Called(ctx, orgs, kind, within)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.MergedData), args.Error(1)
}
