package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/macromill/activity-insights/internal/domain"
)

type FetchServiceMock struct {
	mock.Mock
}

func (m *FetchServiceMock) FetchBucket(ctx context.Context, org string, kind domain.BucketKind, rangeStart, rangeEnd string, force bool) (*domain.FetchBucket, error) {
	args := m.Called(ctx, org, kind, rangeStart, rangeEnd, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.FetchBucket), args.Error(1)
}

func (m *FetchServiceMock) FetchAll(ctx context.Context, kind domain.BucketKind, rangeStart, rangeEnd string, force bool) []domain.OrgFetchResult {
	args := m.Called(ctx, kind, rangeStart, rangeEnd, force)
	return args.Get(0).([]domain.OrgFetchResult)
}

func (m *FetchServiceMock) ListBuckets(ctx context.Context, org string, kind domain.BucketKind) ([]domain.BucketInfo, error) {
	args := m.Called(ctx, org, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.BucketInfo), args.Error(1)
}

func (m *FetchServiceMock) DeleteBucket(ctx context.Context, org string, kind domain.BucketKind, bucketKey string) (bool, error) {
	args := m.Called(ctx, org, kind, bucketKey)
	return args.Bool(0), args.Error(1)
}

func (m *FetchServiceMock) RateLimitStatus(ctx context.Context) (domain.RateLimitStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.RateLimitStatus), args.Error(1)
}

type QueryServiceMock struct {
	mock.Mock
}

func (m *QueryServiceMock) Run(ctx context.Context, text string) domain.QueryResult {
	args := m.Called(ctx, text)
	return args.Get(0).(domain.QueryResult)
}
