package aggregate

import (
	"testing"

	"github.com/macromill/activity-insights/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(login, org string, months map[string]domain.Counts) domain.ActivityRecord {
	return domain.ActivityRecord{
		Login:          login,
		Organization:   org,
		MonthlyBuckets: months,
	}
}

func TestMergeAcrossOrganizations(t *testing.T) {
	testCases := []struct {
		name        string
		records     []domain.ActivityRecord
		expectedLen int
		check       func(t *testing.T, merged []domain.ActivityRecord)
	}{
		{
			name: "Same login in two orgs merges into one record with sentinel org",
			records: []domain.ActivityRecord{
				record("mm-kado", "macromill", map[string]domain.Counts{
					"2025-01": {Issues: 10, MergeRequests: 5, Commits: 20, Reviews: 15},
				}),
				record("mm-kado", "macromill-mint", map[string]domain.Counts{
					"2025-01": {Issues: 1, Commits: 2},
					"2025-02": {Reviews: 3},
				}),
			},
			expectedLen: 1,
			check: func(t *testing.T, merged []domain.ActivityRecord) {
				assert.Equal(t, domain.MultipleOrganizations, merged[0].Organization)
				assert.Equal(t, domain.MultipleOrganizations, merged[0].OrganizationDisplayName)
				assert.Equal(t, domain.Counts{Issues: 11, MergeRequests: 5, Commits: 22, Reviews: 15}, merged[0].MonthlyBuckets["2025-01"])
				assert.Equal(t, domain.Counts{Reviews: 3}, merged[0].MonthlyBuckets["2025-02"])
			},
		},
		{
			name: "Single org keeps its identity",
			records: []domain.ActivityRecord{
				record("test-user", "macromill", map[string]domain.Counts{"2025-01": {Commits: 4}}),
			},
			expectedLen: 1,
			check: func(t *testing.T, merged []domain.ActivityRecord) {
				assert.Equal(t, "macromill", merged[0].Organization)
			},
		},
		{
			name: "Display fields come from the first contributing record",
			records: []domain.ActivityRecord{
				{Login: "a", DisplayName: "First", Organization: "x", MonthlyBuckets: map[string]domain.Counts{}},
				{Login: "a", DisplayName: "Second", Organization: "y", MonthlyBuckets: map[string]domain.Counts{}},
			},
			expectedLen: 1,
			check: func(t *testing.T, merged []domain.ActivityRecord) {
				assert.Equal(t, "First", merged[0].DisplayName)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			merged := MergeAcrossOrganizations(tc.records)
			require.Len(t, merged, tc.expectedLen)
			tc.check(t, merged)
		})
	}
}

func TestMergeAcrossOrganizations_TotalsInvariant(t *testing.T) {
	records := []domain.ActivityRecord{
		record("mm-kado", "macromill", map[string]domain.Counts{
			"2025-01": {Issues: 10, MergeRequests: 5, Commits: 20, Reviews: 15},
			"2025-02": {Issues: 3},
		}),
		record("mm-kado", "macromill-mint", map[string]domain.Counts{
			"2025-02": {MergeRequests: 7, Reviews: 1},
		}),
		record("test-user", "macromill-mint", map[string]domain.Counts{
			"2025-01": {Commits: 9},
		}),
	}

	var want domain.Counts
	for _, rec := range records {
		want.Add(Totals(rec))
	}

	var got domain.Counts
	for _, rec := range MergeAcrossOrganizations(records) {
		got.Add(Totals(rec))
	}

	assert.Equal(t, want, got)
}

func TestMergeAcrossOrganizations_DoesNotMutateInput(t *testing.T) {
	records := []domain.ActivityRecord{
		record("a", "x", map[string]domain.Counts{"2025-01": {Issues: 1}}),
		record("a", "y", map[string]domain.Counts{"2025-01": {Issues: 2}}),
	}

	_ = MergeAcrossOrganizations(records)

	assert.Equal(t, domain.Counts{Issues: 1}, records[0].MonthlyBuckets["2025-01"])
	assert.Equal(t, "x", records[0].Organization)
}

func TestMergeByOrganization(t *testing.T) {
	records := []domain.ActivityRecord{
		record("a", "x", map[string]domain.Counts{"2025-01": {Issues: 1}}),
		record("a", "x", map[string]domain.Counts{"2025-01": {Issues: 2}, "2025-02": {Commits: 5}}),
		record("a", "y", map[string]domain.Counts{"2025-01": {Issues: 4}}),
	}

	merged := MergeByOrganization(records)

	require.Len(t, merged, 2)
	assert.Equal(t, domain.Counts{Issues: 3}, merged[0].MonthlyBuckets["2025-01"])
	assert.Equal(t, domain.Counts{Commits: 5}, merged[0].MonthlyBuckets["2025-02"])
	assert.Equal(t, "x", merged[0].Organization)
	assert.Equal(t, "y", merged[1].Organization)
}

func TestTotals(t *testing.T) {
	rec := record("a", "x", map[string]domain.Counts{
		"2025-01": {Issues: 10, MergeRequests: 5, Commits: 20, Reviews: 15},
		"2025-02": {Issues: 1, MergeRequests: 2, Commits: 3, Reviews: 4},
	})

	assert.Equal(t, domain.Counts{Issues: 11, MergeRequests: 7, Commits: 23, Reviews: 19}, Totals(rec))

	assert.Equal(t, domain.Counts{}, Totals(record("b", "x", nil)))
}

func TestSummarize(t *testing.T) {
	t.Run("Empty collection yields zeroes, not NaN", func(t *testing.T) {
		stats := Summarize(nil)

		assert.Equal(t, domain.Counts{}, stats.Sum)
		assert.Equal(t, domain.AverageCounts{}, stats.Average)
	})

	t.Run("Averages equal sum divided by member count", func(t *testing.T) {
		records := []domain.ActivityRecord{
			record("a", "x", map[string]domain.Counts{"2025-01": {Issues: 10, Commits: 4}}),
			record("b", "x", map[string]domain.Counts{"2025-01": {Issues: 2, Reviews: 6}}),
			// Empty record still counts as a member.
			record("c", "x", nil),
		}

		stats := Summarize(records)

		assert.Equal(t, domain.Counts{Issues: 12, Commits: 4, Reviews: 6}, stats.Sum)
		assert.InDelta(t, 4.0, stats.Average.Issues, 1e-9)
		assert.InDelta(t, 4.0/3.0, stats.Average.Commits, 1e-9)
		assert.InDelta(t, 2.0, stats.Average.Reviews, 1e-9)
		assert.InDelta(t, 0.0, stats.Average.MergeRequests, 1e-9)
	})
}

func TestCompareOrganizations(t *testing.T) {
	records := []domain.ActivityRecord{
		record("a", "macromill-mint", map[string]domain.Counts{"2025-01": {Issues: 2}}),
		record("b", "macromill", map[string]domain.Counts{"2025-01": {Commits: 8}}),
		record("c", "macromill", map[string]domain.Counts{"2025-01": {Commits: 2}}),
	}

	result := CompareOrganizations(records, []string{"macromill", "macromill-mint", "ghost-org"})

	require.Len(t, result, 3)

	// Output order follows the requested list, not discovery order.
	assert.Equal(t, "macromill", result[0].Organization)
	assert.Equal(t, 2, result[0].MemberCount)
	assert.Equal(t, domain.Counts{Commits: 10}, result[0].Totals)
	assert.InDelta(t, 5.0, result[0].Averages.Commits, 1e-9)

	assert.Equal(t, "macromill-mint", result[1].Organization)
	assert.Equal(t, 1, result[1].MemberCount)

	// An organization with zero records is reported, not dropped.
	assert.Equal(t, "ghost-org", result[2].Organization)
	assert.Equal(t, 0, result[2].MemberCount)
	assert.Equal(t, domain.AverageCounts{}, result[2].Averages)
}

func TestTimeline(t *testing.T) {
	records := []domain.ActivityRecord{
		record("a", "x", map[string]domain.Counts{
			"2025-02": {Issues: 1},
			"2024-12": {Commits: 3},
		}),
		record("b", "x", map[string]domain.Counts{
			"2025-02": {Reviews: 2},
		}),
	}

	points := Timeline(records)

	require.Len(t, points, 2)
	assert.Equal(t, "2024-12", points[0].Month)
	assert.Equal(t, 3, points[0].Total)
	assert.Equal(t, "2025-02", points[1].Month)
	assert.Equal(t, 1, points[1].Issues)
	assert.Equal(t, 2, points[1].Reviews)
	assert.Equal(t, 3, points[1].Total)
}
