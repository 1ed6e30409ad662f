// Package aggregate contains pure reduction functions over activity records.
// None of them mutate their input; merged records are always new values.
package aggregate

import (
	"sort"

	"github.com/macromill/activity-insights/internal/domain"
)

// MergeAcrossOrganizations groups records by login and sums their monthly
// buckets into one record per contributor. When more than one organization
// contributed, the merged record's organization becomes the "multiple"
// sentinel. Display name and avatar come from the first contributing record,
// so input order decides them.
func MergeAcrossOrganizations(records []domain.ActivityRecord) []domain.ActivityRecord {
	merged := make([]domain.ActivityRecord, 0, len(records))
	index := make(map[string]int, len(records))

	for _, rec := range records {
		i, ok := index[rec.Login]
		if !ok {
			index[rec.Login] = len(merged)
			merged = append(merged, cloneRecord(rec))

			continue
		}

		existing := &merged[i]
		for month, counts := range rec.MonthlyBuckets {
			c := existing.MonthlyBuckets[month]
			c.Add(counts)
			existing.MonthlyBuckets[month] = c
		}

		if rec.Organization != existing.Organization {
			existing.Organization = domain.MultipleOrganizations
			existing.OrganizationDisplayName = domain.MultipleOrganizations
		}
	}

	return merged
}

// MergeByOrganization groups records by (login, organization) and sums their
// monthly buckets. It folds the per-bucket payloads loaded from the ledger
// into one record per contributor per organization; the same pair appearing
// twice afterwards would be a merge bug.
func MergeByOrganization(records []domain.ActivityRecord) []domain.ActivityRecord {
	type key struct{ login, org string }

	merged := make([]domain.ActivityRecord, 0, len(records))
	index := make(map[key]int, len(records))

	for _, rec := range records {
		k := key{login: rec.Login, org: rec.Organization}

		i, ok := index[k]
		if !ok {
			index[k] = len(merged)
			merged = append(merged, cloneRecord(rec))

			continue
		}

		existing := &merged[i]
		for month, counts := range rec.MonthlyBuckets {
			c := existing.MonthlyBuckets[month]
			c.Add(counts)
			existing.MonthlyBuckets[month] = c
		}
	}

	return merged
}

// Totals sums every monthly bucket of a record into one Counts.
func Totals(record domain.ActivityRecord) domain.Counts {
	var total domain.Counts
	for _, counts := range record.MonthlyBuckets {
		total.Add(counts)
	}

	return total
}

// Summarize reduces a collection into a sum and a per-member average.
// An empty collection yields zeroes, never NaN. A record with no monthly
// buckets contributes zero but still counts as a member.
func Summarize(records []domain.ActivityRecord) domain.SummaryStats {
	var stats domain.SummaryStats

	for _, rec := range records {
		stats.Sum.Add(Totals(rec))
	}

	if n := len(records); n > 0 {
		stats.Average = domain.AverageCounts{
			Issues:        float64(stats.Sum.Issues) / float64(n),
			MergeRequests: float64(stats.Sum.MergeRequests) / float64(n),
			Commits:       float64(stats.Sum.Commits) / float64(n),
			Reviews:       float64(stats.Sum.Reviews) / float64(n),
		}
	}

	return stats
}

// CompareOrganizations computes totals, member counts and averages for each
// named organization. Output follows orgList order, not discovery order.
func CompareOrganizations(records []domain.ActivityRecord, orgList []string) []domain.OrgComparison {
	result := make([]domain.OrgComparison, 0, len(orgList))

	for _, org := range orgList {
		var members []domain.ActivityRecord

		displayName := org
		for _, rec := range records {
			if rec.Organization != org {
				continue
			}

			if rec.OrganizationDisplayName != "" && displayName == org {
				displayName = rec.OrganizationDisplayName
			}

			members = append(members, rec)
		}

		stats := Summarize(members)
		result = append(result, domain.OrgComparison{
			Organization: org,
			DisplayName:  displayName,
			MemberCount:  len(members),
			Totals:       stats.Sum,
			Averages:     stats.Average,
		})
	}

	return result
}

// Timeline reduces records into per-month totals sorted ascending by month
// key. Lexicographic sort is correct because "YYYY-MM" keys are zero-padded.
func Timeline(records []domain.ActivityRecord) []domain.TimelinePoint {
	byMonth := make(map[string]domain.Counts)
	for _, rec := range records {
		for month, counts := range rec.MonthlyBuckets {
			c := byMonth[month]
			c.Add(counts)
			byMonth[month] = c
		}
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)

	points := make([]domain.TimelinePoint, 0, len(months))
	for _, month := range months {
		c := byMonth[month]
		points = append(points, domain.TimelinePoint{
			Month:         month,
			Issues:        c.Issues,
			MergeRequests: c.MergeRequests,
			Commits:       c.Commits,
			Reviews:       c.Reviews,
			Total:         c.Total(),
		})
	}

	return points
}

func cloneRecord(rec domain.ActivityRecord) domain.ActivityRecord {
	clone := rec
	clone.MonthlyBuckets = make(map[string]domain.Counts, len(rec.MonthlyBuckets))

	for month, counts := range rec.MonthlyBuckets {
		clone.MonthlyBuckets[month] = counts
	}

	return clone
}
