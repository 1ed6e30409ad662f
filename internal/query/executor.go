package query

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/macromill/activity-insights/internal/aggregate"
	"github.com/macromill/activity-insights/internal/domain"
)

// Executor applies a parsed query to a record collection. It always answers:
// any panic during execution is converted into a data-typed result with a nil
// payload and the error in the message.
type Executor struct {
	log *slog.Logger
}

func NewExecutor(log *slog.Logger) *Executor {
	return &Executor{log: log}
}

// Execute filters the records and dispatches on the query intent.
func (e *Executor) Execute(parsed domain.ParsedQuery, rawQuery string, records []domain.ActivityRecord) (result domain.QueryResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("query execution panicked", slog.Any("panic", r), slog.String("query", rawQuery))

			result = ErrorResult(rawQuery, fmt.Errorf("query execution failed: %v", r))
		}
	}()

	filtered := e.filter(parsed, records)

	switch parsed.Intent {
	case domain.IntentRanking:
		return e.buildData(parsed, rawQuery, filtered, true)
	case domain.IntentComparison:
		return e.buildComparison(parsed, rawQuery, filtered)
	case domain.IntentAnalysis:
		return e.buildAnalysis(parsed, rawQuery, filtered)
	case domain.IntentAggregation:
		return e.buildAggregation(parsed, rawQuery, filtered)
	case domain.IntentTimeline:
		return e.buildTimeline(parsed, rawQuery, filtered)
	default:
		return e.buildData(parsed, rawQuery, filtered, false)
	}
}

// ErrorResult is the always-answer fallback: a data result with no payload
// and the error embedded in the message.
func ErrorResult(rawQuery string, err error) domain.QueryResult {
	return domain.QueryResult{
		Type:    domain.ResultData,
		Data:    nil,
		Message: fmt.Sprintf("could not answer the query: %s", err),
		Query:   rawQuery,
	}
}

// filter applies the fixed pipeline: members, organizations, date range,
// then numeric bounds. Each stage is a pure set restriction, so member and
// organization filters commute.
func (e *Executor) filter(parsed domain.ParsedQuery, records []domain.ActivityRecord) []domain.ActivityRecord {
	filtered := records

	if members := parsed.Entities.Members; len(members) > 0 {
		wanted := make(map[string]bool, len(members))
		for _, m := range members {
			wanted[m] = true
		}

		filtered = keep(filtered, func(rec domain.ActivityRecord) bool {
			return wanted[rec.Login]
		})
	}

	if orgs := parsed.Entities.Organizations; len(orgs) > 0 {
		wanted := make(map[string]bool, len(orgs))
		for _, o := range orgs {
			wanted[o] = true
		}

		filtered = keep(filtered, func(rec domain.ActivityRecord) bool {
			return wanted[rec.Organization]
		})
	}

	if dr := parsed.Entities.DateRange; dr != nil {
		// A record stays when any of its months falls inside the range;
		// the buckets themselves are not trimmed here.
		startMonth := monthOf(dr.Start)
		endMonth := monthOf(dr.End)

		filtered = keep(filtered, func(rec domain.ActivityRecord) bool {
			for month := range rec.MonthlyBuckets {
				if (startMonth == "" || month >= startMonth) && (endMonth == "" || month <= endMonth) {
					return true
				}
			}

			return false
		})
	}

	if parsed.Filters.MinValue != nil || parsed.Filters.MaxValue != nil {
		filtered = keep(filtered, func(rec domain.ActivityRecord) bool {
			value := boundScalar(rec, parsed.Entities.ActivityTypes)

			if parsed.Filters.MinValue != nil && value < *parsed.Filters.MinValue {
				return false
			}

			if parsed.Filters.MaxValue != nil && value > *parsed.Filters.MaxValue {
				return false
			}

			return true
		})
	}

	return filtered
}

// boundScalar is the per-record value the min/max bounds apply to: the single
// detected activity type when exactly one was named, otherwise the grand
// total across all four fields. With several named types it still falls back
// to the grand total rather than their sum; see DESIGN.md.
func boundScalar(rec domain.ActivityRecord, activityTypes []string) int {
	totals := aggregate.Totals(rec)

	if len(activityTypes) == 1 {
		return fieldValue(totals, activityTypes[0])
	}

	return totals.Total()
}

func fieldValue(c domain.Counts, field string) int {
	switch field {
	case domain.TypeIssues:
		return c.Issues
	case domain.TypeMergeRequests:
		return c.MergeRequests
	case domain.TypeCommits:
		return c.Commits
	case domain.TypeReviews:
		return c.Reviews
	default:
		return c.Total()
	}
}

func (e *Executor) buildData(parsed domain.ParsedQuery, rawQuery string, records []domain.ActivityRecord, ranking bool) domain.QueryResult {
	summaries := make([]domain.MemberSummary, 0, len(records))
	for _, rec := range records {
		totals := aggregate.Totals(rec)
		summaries = append(summaries, domain.MemberSummary{
			Login:         rec.Login,
			DisplayName:   rec.Name(),
			Organization:  rec.Organization,
			Issues:        totals.Issues,
			MergeRequests: totals.MergeRequests,
			Commits:       totals.Commits,
			Reviews:       totals.Reviews,
			Total:         totals.Total(),
		})
	}

	sortBy := parsed.Filters.SortBy
	if ranking && sortBy == "" {
		// The one behavioral difference from plain data.
		sortBy = domain.TypeTotal
	}

	if sortBy != "" {
		asc := parsed.Filters.SortOrder == domain.SortAsc

		// Stable sort keeps the original relative order on ties.
		sort.SliceStable(summaries, func(i, j int) bool {
			a := summaryValue(summaries[i], sortBy)
			b := summaryValue(summaries[j], sortBy)

			if asc {
				return a < b
			}

			return a > b
		})
	}

	if limit := parsed.Filters.Limit; limit > 0 && limit < len(summaries) {
		summaries = summaries[:limit]
	}

	filters := parsed.Filters

	return domain.QueryResult{
		Type:    domain.ResultData,
		Data:    summaries,
		Message: fmt.Sprintf("%d records found", len(summaries)),
		Query:   rawQuery,
		Filters: &filters,
	}
}

func summaryValue(s domain.MemberSummary, field string) int {
	switch field {
	case domain.TypeIssues:
		return s.Issues
	case domain.TypeMergeRequests:
		return s.MergeRequests
	case domain.TypeCommits:
		return s.Commits
	case domain.TypeReviews:
		return s.Reviews
	default:
		return s.Total
	}
}

func (e *Executor) buildComparison(parsed domain.ParsedQuery, rawQuery string, records []domain.ActivityRecord) domain.QueryResult {
	orgs := parsed.Entities.Organizations
	if len(orgs) < 2 {
		// Comparison needs at least two sides.
		return e.buildData(parsed, rawQuery, records, false)
	}

	comparisons := aggregate.CompareOrganizations(records, orgs)

	var summary domain.Counts
	for _, comp := range comparisons {
		summary.Add(comp.Totals)
	}

	data := domain.ComparisonResult{
		Organizations: comparisons,
		Summary:       summary,
		Insights:      buildInsights(comparisons),
	}

	return domain.QueryResult{
		Type:    domain.ResultComparison,
		Data:    data,
		Message: fmt.Sprintf("compared %d organizations", len(comparisons)),
		Query:   rawQuery,
	}
}

func (e *Executor) buildAnalysis(_ domain.ParsedQuery, rawQuery string, records []domain.ActivityRecord) domain.QueryResult {
	stats := aggregate.Summarize(records)

	data := domain.AnalysisResult{
		TotalMembers:         len(records),
		TotalIssues:          stats.Sum.Issues,
		TotalMergeRequests:   stats.Sum.MergeRequests,
		TotalCommits:         stats.Sum.Commits,
		TotalReviews:         stats.Sum.Reviews,
		AverageIssues:        stats.Average.Issues,
		AverageMergeRequests: stats.Average.MergeRequests,
		AverageCommits:       stats.Average.Commits,
		AverageReviews:       stats.Average.Reviews,
	}

	return domain.QueryResult{
		Type:    domain.ResultAnalysis,
		Data:    data,
		Message: fmt.Sprintf("analyzed activity of %d members", len(records)),
		Query:   rawQuery,
	}
}

func (e *Executor) buildAggregation(_ domain.ParsedQuery, rawQuery string, records []domain.ActivityRecord) domain.QueryResult {
	stats := aggregate.Summarize(records)

	return domain.QueryResult{
		Type:    domain.ResultSummary,
		Data:    stats,
		Message: fmt.Sprintf("aggregated activity of %d members", len(records)),
		Query:   rawQuery,
	}
}

func (e *Executor) buildTimeline(_ domain.ParsedQuery, rawQuery string, records []domain.ActivityRecord) domain.QueryResult {
	points := aggregate.Timeline(records)

	return domain.QueryResult{
		Type:    domain.ResultTrend,
		Data:    points,
		Message: fmt.Sprintf("timeline over %d months", len(points)),
		Query:   rawQuery,
	}
}

// monthOf truncates a "YYYY-MM-DD" date to its "YYYY-MM" month key.
func monthOf(date string) string {
	if len(date) < 7 {
		return date
	}

	return date[:7]
}

func keep(records []domain.ActivityRecord, pred func(domain.ActivityRecord) bool) []domain.ActivityRecord {
	kept := make([]domain.ActivityRecord, 0, len(records))
	for _, rec := range records {
		if pred(rec) {
			kept = append(kept, rec)
		}
	}

	return kept
}
