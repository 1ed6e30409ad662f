package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/macromill/activity-insights/internal/apperrors"
	"github.com/macromill/activity-insights/internal/domain"
)

func newTestServer(fsm *FetchServiceMock, qsm *QueryServiceMock) http.Handler {
	server := NewServer(slog.New(slog.NewJSONHandler(os.Stdout, nil)), fsm, qsm)
	return server.Routes()
}

func TestServer_PostQuery(t *testing.T) {
	testCases := []struct {
		name                 string
		requestBody          string
		setupMocks           func(*QueryServiceMock)
		expectedStatusCode   int
		expectedResponseBody string
	}{
		{
			name:        "Success",
			requestBody: `{"query": "show mm-kado's activity"}`,
			setupMocks: func(qsm *QueryServiceMock) {
				qsm.On("Run", mock.Anything, "show mm-kado's activity").
					Return(domain.QueryResult{
						Type:    domain.ResultData,
						Data:    []domain.MemberSummary{{Login: "mm-kado", Total: 50}},
						Message: "1 records found",
						Query:   "show mm-kado's activity",
					}).Once()
			},
			expectedStatusCode:   http.StatusOK,
			expectedResponseBody: `{"type":"data","data":[{"login":"mm-kado","displayName":"","issues":0,"mergeRequests":0,"commits":0,"reviews":0,"total":50}],"message":"1 records found","query":"show mm-kado's activity"}`,
		},
		{
			name:        "Empty query still reaches the service",
			requestBody: `{}`,
			setupMocks: func(qsm *QueryServiceMock) {
				qsm.On("Run", mock.Anything, "").
					Return(domain.QueryResult{
						Type:    domain.ResultData,
						Data:    nil,
						Message: "could not answer the query: query is empty",
					}).Once()
			},
			expectedStatusCode:   http.StatusOK,
			expectedResponseBody: `{"type":"data","data":null,"message":"could not answer the query: query is empty","query":""}`,
		},
		{
			name:               "Invalid JSON Body",
			requestBody:        `{invalid json}`,
			setupMocks:         func(qsm *QueryServiceMock) {},
			expectedStatusCode: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			queryServiceMock := new(QueryServiceMock)
			tc.setupMocks(queryServiceMock)
			router := newTestServer(new(FetchServiceMock), queryServiceMock)

			req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(tc.requestBody))
			req.Header.Set("Content-Type", "application/json")

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			if tc.expectedResponseBody != "" {
				assert.JSONEq(t, tc.expectedResponseBody, rr.Body.String())
			}
			queryServiceMock.AssertExpectations(t)
		})
	}
}

func TestServer_PostFetch(t *testing.T) {
	savedBucket := &domain.FetchBucket{
		BucketKey:  "2025-01",
		Kind:       domain.BucketMonth,
		RangeStart: "2025-01-01",
		RangeEnd:   "2025-01-31",
	}

	testCases := []struct {
		name               string
		requestBody        string
		setupMocks         func(*FetchServiceMock)
		expectedStatusCode int
		expectedInBody     string
	}{
		{
			name:        "Success",
			requestBody: `{"organization": "macromill", "kind": "month", "range_start": "2025-01-01", "range_end": "2025-01-31"}`,
			setupMocks: func(fsm *FetchServiceMock) {
				fsm.On("FetchBucket", mock.Anything, "macromill", domain.BucketMonth, "2025-01-01", "2025-01-31", false).
					Return(savedBucket, nil).Once()
			},
			expectedStatusCode: http.StatusCreated,
			expectedInBody:     `"bucketKey":"2025-01"`,
		},
		{
			name:        "Force flag is forwarded",
			requestBody: `{"organization": "macromill", "kind": "month", "range_start": "2025-01-01", "range_end": "2025-01-31", "force": true}`,
			setupMocks: func(fsm *FetchServiceMock) {
				fsm.On("FetchBucket", mock.Anything, "macromill", domain.BucketMonth, "2025-01-01", "2025-01-31", true).
					Return(savedBucket, nil).Once()
			},
			expectedStatusCode: http.StatusCreated,
		},
		{
			name:               "Validation - unknown kind",
			requestBody:        `{"organization": "macromill", "kind": "quarter", "range_start": "2025-01-01", "range_end": "2025-03-31"}`,
			setupMocks:         func(fsm *FetchServiceMock) {},
			expectedStatusCode: http.StatusBadRequest,
			expectedInBody:     "must be either 'week' or 'month'",
		},
		{
			name:               "Validation - malformed date",
			requestBody:        `{"organization": "macromill", "kind": "month", "range_start": "01/01/2025", "range_end": "2025-01-31"}`,
			setupMocks:         func(fsm *FetchServiceMock) {},
			expectedStatusCode: http.StatusBadRequest,
			expectedInBody:     "YYYY-MM-DD",
		},
		{
			name:        "Conflict - bucket already fetched",
			requestBody: `{"organization": "macromill", "kind": "month", "range_start": "2025-01-01", "range_end": "2025-01-31"}`,
			setupMocks: func(fsm *FetchServiceMock) {
				fsm.On("FetchBucket", mock.Anything, "macromill", domain.BucketMonth, "2025-01-01", "2025-01-31", false).
					Return(nil, &apperrors.BucketAlreadyExistsError{
						Organization: "macromill",
						BucketKey:    "2025-01",
						RangeStart:   "2025-01-01",
						RangeEnd:     "2025-01-31",
					}).Once()
			},
			expectedStatusCode: http.StatusConflict,
			expectedInBody:     "already fetched",
		},
		{
			name:        "Rate limited",
			requestBody: `{"organization": "macromill", "kind": "month", "range_start": "2025-01-01", "range_end": "2025-01-31"}`,
			setupMocks: func(fsm *FetchServiceMock) {
				fsm.On("FetchBucket", mock.Anything, "macromill", domain.BucketMonth, "2025-01-01", "2025-01-31", false).
					Return(nil, fmt.Errorf("fetch: %w", apperrors.ErrRateLimited)).Once()
			},
			expectedStatusCode: http.StatusTooManyRequests,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetchServiceMock := new(FetchServiceMock)
			tc.setupMocks(fetchServiceMock)
			router := newTestServer(fetchServiceMock, new(QueryServiceMock))

			req := httptest.NewRequest(http.MethodPost, "/fetch", strings.NewReader(tc.requestBody))
			req.Header.Set("Content-Type", "application/json")

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			if tc.expectedInBody != "" {
				assert.Contains(t, rr.Body.String(), tc.expectedInBody)
			}
			fetchServiceMock.AssertExpectations(t)
		})
	}
}

func TestServer_PostFetchAll(t *testing.T) {
	fetchServiceMock := new(FetchServiceMock)
	fetchServiceMock.On("FetchAll", mock.Anything, domain.BucketMonth, "2025-01-01", "2025-01-31", false).
		Return([]domain.OrgFetchResult{
			{Organization: "macromill", Success: true, Count: 12},
			{Organization: "macromill-mint", Success: false, Error: "bucket '2025-01' (2025-01-01..2025-01-31) already fetched for organization 'macromill-mint'"},
		}).Once()

	router := newTestServer(fetchServiceMock, new(QueryServiceMock))

	body := `{"kind": "month", "range_start": "2025-01-01", "range_end": "2025-01-31"}`
	req := httptest.NewRequest(http.MethodPost, "/fetch/all", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	// Partial failure is still a 200: the report carries per-org outcomes.
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"organization":"macromill"`)
	assert.Contains(t, rr.Body.String(), `"success":false`)
	fetchServiceMock.AssertExpectations(t)
}

func TestServer_GetBuckets(t *testing.T) {
	testCases := []struct {
		name               string
		targetURL          string
		setupMocks         func(*FetchServiceMock)
		expectedStatusCode int
		expectedInBody     string
	}{
		{
			name:      "Success with explicit kind",
			targetURL: "/buckets?organization=macromill&kind=week",
			setupMocks: func(fsm *FetchServiceMock) {
				fsm.On("ListBuckets", mock.Anything, "macromill", domain.BucketWeek).
					Return([]domain.BucketInfo{
						{BucketKey: "2025-02", RangeStart: "2025-01-06", RangeEnd: "2025-01-12"},
					}, nil).Once()
			},
			expectedStatusCode: http.StatusOK,
			expectedInBody:     `"bucketKey":"2025-02"`,
		},
		{
			name:      "Kind defaults to month",
			targetURL: "/buckets?organization=macromill",
			setupMocks: func(fsm *FetchServiceMock) {
				fsm.On("ListBuckets", mock.Anything, "macromill", domain.BucketMonth).
					Return([]domain.BucketInfo{}, nil).Once()
			},
			expectedStatusCode: http.StatusOK,
			expectedInBody:     `"kind":"month"`,
		},
		{
			name:               "Missing organization",
			targetURL:          "/buckets",
			setupMocks:         func(fsm *FetchServiceMock) {},
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "Unknown kind",
			targetURL:          "/buckets?organization=macromill&kind=quarter",
			setupMocks:         func(fsm *FetchServiceMock) {},
			expectedStatusCode: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetchServiceMock := new(FetchServiceMock)
			tc.setupMocks(fetchServiceMock)
			router := newTestServer(fetchServiceMock, new(QueryServiceMock))

			req := httptest.NewRequest(http.MethodGet, tc.targetURL, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			if tc.expectedInBody != "" {
				assert.Contains(t, rr.Body.String(), tc.expectedInBody)
			}
			fetchServiceMock.AssertExpectations(t)
		})
	}
}

func TestServer_DeleteBuckets(t *testing.T) {
	testCases := []struct {
		name                 string
		requestBody          string
		setupMocks           func(*FetchServiceMock)
		expectedStatusCode   int
		expectedResponseBody string
	}{
		{
			name:        "Success",
			requestBody: `{"organization": "macromill", "kind": "month", "bucket_key": "2025-01"}`,
			setupMocks: func(fsm *FetchServiceMock) {
				fsm.On("DeleteBucket", mock.Anything, "macromill", domain.BucketMonth, "2025-01").
					Return(true, nil).Once()
			},
			expectedStatusCode:   http.StatusOK,
			expectedResponseBody: `{"deleted": true}`,
		},
		{
			name:        "Not Found",
			requestBody: `{"organization": "macromill", "kind": "month", "bucket_key": "2019-12"}`,
			setupMocks: func(fsm *FetchServiceMock) {
				fsm.On("DeleteBucket", mock.Anything, "macromill", domain.BucketMonth, "2019-12").
					Return(false, nil).Once()
			},
			expectedStatusCode:   http.StatusNotFound,
			expectedResponseBody: `{"error": "resource not found"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetchServiceMock := new(FetchServiceMock)
			tc.setupMocks(fetchServiceMock)
			router := newTestServer(fetchServiceMock, new(QueryServiceMock))

			req := httptest.NewRequest(http.MethodDelete, "/buckets", strings.NewReader(tc.requestBody))
			req.Header.Set("Content-Type", "application/json")

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			require.JSONEq(t, tc.expectedResponseBody, rr.Body.String())
			fetchServiceMock.AssertExpectations(t)
		})
	}
}

func TestServer_GetRateLimit(t *testing.T) {
	resetAt := time.Date(2025, 8, 23, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name                 string
		setupMocks           func(*FetchServiceMock)
		expectedStatusCode   int
		expectedResponseBody string
	}{
		{
			name: "Success",
			setupMocks: func(fsm *FetchServiceMock) {
				fsm.On("RateLimitStatus", mock.Anything).
					Return(domain.RateLimitStatus{Limit: 5000, Remaining: 4800, ResetAt: resetAt}, nil).Once()
			},
			expectedStatusCode:   http.StatusOK,
			expectedResponseBody: `{"limit": 5000, "remaining": 4800, "resetAt": "2025-08-23T12:00:00Z"}`,
		},
		{
			name: "Upstream failure",
			setupMocks: func(fsm *FetchServiceMock) {
				fsm.On("RateLimitStatus", mock.Anything).
					Return(domain.RateLimitStatus{}, errors.New("upstream unavailable")).Once()
			},
			expectedStatusCode:   http.StatusInternalServerError,
			expectedResponseBody: `{"error": "internal server error"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetchServiceMock := new(FetchServiceMock)
			tc.setupMocks(fetchServiceMock)
			router := newTestServer(fetchServiceMock, new(QueryServiceMock))

			req := httptest.NewRequest(http.MethodGet, "/ratelimit", nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			assert.JSONEq(t, tc.expectedResponseBody, rr.Body.String())
			fetchServiceMock.AssertExpectations(t)
		})
	}
}
