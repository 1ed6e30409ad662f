package domain

import "time"

// Counts holds the four activity counters tracked per contributor per month.
type Counts struct {
	Issues        int `json:"issues"`
	MergeRequests int `json:"mergeRequests"`
	Commits       int `json:"commits"`
	Reviews       int `json:"reviews"`
}

// Add sums another Counts into the receiver, field by field.
func (c *Counts) Add(other Counts) {
	c.Issues += other.Issues
	c.MergeRequests += other.MergeRequests
	c.Commits += other.Commits
	c.Reviews += other.Reviews
}

// Total returns the sum of all four counters.
func (c Counts) Total() int {
	return c.Issues + c.MergeRequests + c.Commits + c.Reviews
}

// AverageCounts mirrors Counts with fractional values, used for per-member averages.
type AverageCounts struct {
	Issues        float64 `json:"issues"`
	MergeRequests float64 `json:"mergeRequests"`
	Commits       float64 `json:"commits"`
	Reviews       float64 `json:"reviews"`
}

// ActivityRecord is one contributor's monthly activity within one organization.
// MonthlyBuckets is keyed by "YYYY-MM". Records are never mutated in place;
// aggregation always produces new ones.
type ActivityRecord struct {
	Login                   string            `json:"login"`
	DisplayName             string            `json:"displayName,omitempty"`
	AvatarURL               string            `json:"avatarUrl,omitempty"`
	Organization            string            `json:"organization,omitempty"`
	OrganizationDisplayName string            `json:"organizationDisplayName,omitempty"`
	MonthlyBuckets          map[string]Counts `json:"monthlyBuckets"`
}

// Name returns the display name, falling back to the login when absent.
func (r ActivityRecord) Name() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}

	return r.Login
}

// MultipleOrganizations is the sentinel organization assigned to a record
// merged from more than one organization.
const MultipleOrganizations = "multiple"

// FetchBucket is the metadata and payload of one retrieval unit (an ISO week
// or a calendar month).
type FetchBucket struct {
	BucketKey     string           `json:"bucketKey"`
	Kind          BucketKind       `json:"kind"`
	RangeStart    string           `json:"rangeStart"`
	RangeEnd      string           `json:"rangeEnd"`
	LastFetchedAt time.Time        `json:"lastFetchedAt"`
	Records       []ActivityRecord `json:"records"`
}

// BucketInfo describes one fetched bucket without its payload.
type BucketInfo struct {
	BucketKey     string    `json:"bucketKey"`
	RangeStart    string    `json:"rangeStart"`
	RangeEnd      string    `json:"rangeEnd"`
	LastFetchedAt time.Time `json:"lastFetchedAt"`
}

// OrgStats summarizes what the ledger holds for one organization.
// An organization with no data reports Count 0, it is never dropped.
type OrgStats struct {
	Count             int       `json:"count"`
	LastUpdated       time.Time `json:"lastUpdated"`
	FetchedBucketKeys []string  `json:"fetchedBucketKeys"`
}

// MergedData is the result of loading every configured organization's data.
type MergedData struct {
	Records []ActivityRecord    `json:"records"`
	PerOrg  map[string]OrgStats `json:"perOrgStats"`
}

// OrgFetchResult is one organization's slice of a fetch-all report.
// Organizations are processed sequentially so the report order is deterministic.
type OrgFetchResult struct {
	Organization string `json:"organization"`
	Success      bool   `json:"success"`
	Count        int    `json:"count"`
	Error        string `json:"error,omitempty"`
}

// RateLimitStatus reports the upstream API quota.
type RateLimitStatus struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}
