package query

// Vocabulary is the immutable keyword configuration the parser classifies
// against. It is injected at construction so locale swaps are testable in
// isolation; the parser never mutates it.
type Vocabulary struct {
	// Intent markers, in detection precedence order: comparison beats
	// analysis beats aggregation beats ranking beats timeline.
	Comparison  []string
	Analysis    []string
	Aggregation []string
	Ranking     []string
	Timeline    []string

	// Entity phrases.
	AllMembers       []string
	AllOrganizations []string

	// Activity type synonyms.
	Issues        []string
	MergeRequests []string
	Commits       []string
	Reviews       []string

	// Sort direction and sort field keywords.
	Descending []string
	Ascending  []string
	Total      []string

	// Aggregation kind keywords.
	Average []string
}

// DefaultVocabulary returns the built-in English keyword set.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Comparison:  []string{"compare", "comparison", "versus", "vs", "against"},
		Analysis:    []string{"analyze", "analysis", "trend", "pattern", "insight"},
		Aggregation: []string{"total", "sum", "average", "aggregate", "overall"},
		Ranking:     []string{"top", "most", "highest", "best", "least", "lowest", "bottom"},
		Timeline:    []string{"period", "when", "timeline", "over time", "history"},

		AllMembers:       []string{"everyone", "everybody", "all members"},
		AllOrganizations: []string{"all organizations", "all orgs", "both organizations"},

		Issues:        []string{"issues", "issue", "tickets", "ticket", "bugs", "bug"},
		MergeRequests: []string{"merge requests", "merge request", "pull requests", "pull request", "mrs", "mr", "prs", "pr"},
		Commits:       []string{"commits", "commit", "pushes", "push"},
		Reviews:       []string{"reviews", "review"},

		Descending: []string{"most", "top", "highest", "best"},
		Ascending:  []string{"least", "bottom", "lowest", "fewest"},
		Total:      []string{"total", "overall"},

		Average: []string{"average", "mean", "per member"},
	}
}
