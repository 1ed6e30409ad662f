package domain

// Intent is the coarse query category chosen by the parser.
type Intent string

const (
	IntentComparison  Intent = "comparison"
	IntentAnalysis    Intent = "analysis"
	IntentAggregation Intent = "aggregation"
	IntentRanking     Intent = "ranking"
	IntentTimeline    Intent = "timeline"
	IntentData        Intent = "data"
)

// Sort directions used by query filters.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Activity type identifiers used for sort fields and type filters.
const (
	TypeIssues        = "issues"
	TypeMergeRequests = "mergeRequests"
	TypeCommits       = "commits"
	TypeReviews       = "reviews"
	TypeTotal         = "total"
)

// DateRange is an inclusive calendar-date window ("YYYY-MM-DD" bounds).
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Entities are the structured values extracted from free text.
type Entities struct {
	Members       []string   `json:"members"`
	Organizations []string   `json:"organizations"`
	DateRange     *DateRange `json:"dateRange,omitempty"`
	ActivityTypes []string   `json:"activityTypes"`
	Aggregation   string     `json:"aggregation,omitempty"`
}

// Filters carry the numeric and ordering constraints extracted from free text.
type Filters struct {
	MinValue  *int   `json:"minValue,omitempty"`
	MaxValue  *int   `json:"maxValue,omitempty"`
	SortBy    string `json:"sortBy,omitempty"`
	SortOrder string `json:"sortOrder,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// ParsedQuery is the structured form of one free-text query.
// It is ephemeral and never persisted.
type ParsedQuery struct {
	Intent   Intent   `json:"intent"`
	Entities Entities `json:"entities"`
	Filters  Filters  `json:"filters"`
}

// Result types reported by the executor. Ranking reports as ResultData:
// it is a sort+limit variant of plain data, not a distinct presentation type.
const (
	ResultData       = "data"
	ResultComparison = "comparison"
	ResultAnalysis   = "analysis"
	ResultSummary    = "summary"
	ResultTrend      = "trend"
)

// QueryResult is the executor's answer to one query.
type QueryResult struct {
	Type    string   `json:"type"`
	Data    any      `json:"data"`
	Message string   `json:"message"`
	Query   string   `json:"query"`
	Filters *Filters `json:"filters,omitempty"`
}

// MemberSummary is the flat projection of one record used by data and
// ranking results.
type MemberSummary struct {
	Login         string `json:"login"`
	DisplayName   string `json:"displayName"`
	Organization  string `json:"organization,omitempty"`
	Issues        int    `json:"issues"`
	MergeRequests int    `json:"mergeRequests"`
	Commits       int    `json:"commits"`
	Reviews       int    `json:"reviews"`
	Total         int    `json:"total"`
}

// OrgComparison is one organization's side of a comparison result.
type OrgComparison struct {
	Organization string        `json:"organization"`
	DisplayName  string        `json:"displayName"`
	MemberCount  int           `json:"memberCount"`
	Totals       Counts        `json:"totals"`
	Averages     AverageCounts `json:"averages"`
}

// ComparisonResult is the payload of a comparison query.
type ComparisonResult struct {
	Organizations []OrgComparison `json:"organizations"`
	Summary       Counts          `json:"summary"`
	Insights      []string        `json:"insights"`
}

// AnalysisResult is the single aggregate object produced by analysis queries.
type AnalysisResult struct {
	TotalMembers         int     `json:"totalMembers"`
	TotalIssues          int     `json:"totalIssues"`
	TotalMergeRequests   int     `json:"totalMergeRequests"`
	TotalCommits         int     `json:"totalCommits"`
	TotalReviews         int     `json:"totalReviews"`
	AverageIssues        float64 `json:"averageIssues"`
	AverageMergeRequests float64 `json:"averageMergeRequests"`
	AverageCommits       float64 `json:"averageCommits"`
	AverageReviews       float64 `json:"averageReviews"`
}

// SummaryStats is the payload of an aggregation query.
type SummaryStats struct {
	Sum     Counts        `json:"sum"`
	Average AverageCounts `json:"average"`
}

// TimelinePoint is one month of a timeline result, sorted ascending by month.
type TimelinePoint struct {
	Month         string `json:"month"`
	Issues        int    `json:"issues"`
	MergeRequests int    `json:"mergeRequests"`
	Commits       int    `json:"commits"`
	Reviews       int    `json:"reviews"`
	Total         int    `json:"total"`
}
