// Package query turns free-text questions about contributor activity into
// structured queries and executes them over in-memory records.
//
// The parser is a deterministic, single-pass keyword classifier: first
// matching rule in a fixed precedence order wins per field. It never fails;
// unrecognized input only under-specifies the query.
package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/macromill/activity-insights/internal/domain"
)

// OrgToken is one recognizable organization: its canonical name plus the
// extra tokens (display name, aliases) the parser accepts for it.
type OrgToken struct {
	Name        string
	DisplayName string
	Aliases     []string
}

// Parser classifies free-text queries against an immutable vocabulary and
// a fixed set of configured organizations.
type Parser struct {
	vocab Vocabulary
	orgs  []OrgToken
	now   func() time.Time

	reMin       *regexp.Regexp
	reMax       *regexp.Regexp
	reTop       *regexp.Regexp
	reLimit     *regexp.Regexp
	reLastWeeks *regexp.Regexp
	reLastMonth *regexp.Regexp
}

// ParserOption customizes a Parser.
type ParserOption func(*Parser)

// WithClock replaces the time source used for relative date phrases.
func WithClock(now func() time.Time) ParserOption {
	return func(p *Parser) { p.now = now }
}

func NewParser(vocab Vocabulary, orgs []OrgToken, opts ...ParserOption) *Parser {
	p := &Parser{
		vocab: vocab,
		orgs:  orgs,
		now:   time.Now,

		reMin:       regexp.MustCompile(`(\d+)\s*(?:or more|and more|\+)`),
		reMax:       regexp.MustCompile(`(\d+)\s*or (?:fewer|less)`),
		reTop:       regexp.MustCompile(`top\s+(\d+)`),
		reLimit:     regexp.MustCompile(`(\d+)\s+(?:people|members|users|contributors)`),
		reLastWeeks: regexp.MustCompile(`last\s+(\d+)\s+weeks?`),
		reLastMonth: regexp.MustCompile(`last\s+(\d+)\s+months?`),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Parse classifies one query. Member extraction is data dependent: only
// logins present in the given records can be recognized.
func (p *Parser) Parse(text string, records []domain.ActivityRecord) domain.ParsedQuery {
	q := strings.ToLower(text)

	parsed := domain.ParsedQuery{
		Intent: p.detectIntent(q),
	}

	parsed.Entities.Members = p.extractMembers(q, records)
	parsed.Entities.Organizations = p.extractOrganizations(q, parsed.Intent)
	parsed.Entities.DateRange = p.extractDateRange(q)
	parsed.Entities.ActivityTypes = p.extractActivityTypes(q)
	parsed.Entities.Aggregation = p.extractAggregationKind(q, parsed.Intent)
	parsed.Filters = p.extractFilters(q, parsed.Entities.ActivityTypes)

	return parsed
}

// detectIntent applies the fixed precedence order. Swapping it would change
// classification on ambiguous inputs ("compare the top 5" is a comparison).
func (p *Parser) detectIntent(q string) domain.Intent {
	switch {
	case containsAny(q, p.vocab.Comparison):
		return domain.IntentComparison
	case containsAny(q, p.vocab.Analysis):
		return domain.IntentAnalysis
	case containsAny(q, p.vocab.Aggregation):
		return domain.IntentAggregation
	case containsAny(q, p.vocab.Ranking):
		return domain.IntentRanking
	case containsAny(q, p.vocab.Timeline):
		return domain.IntentTimeline
	default:
		return domain.IntentData
	}
}

func (p *Parser) extractMembers(q string, records []domain.ActivityRecord) []string {
	seen := make(map[string]bool)

	var members []string

	add := func(login string) {
		if !seen[login] {
			seen[login] = true
			members = append(members, login)
		}
	}

	if containsAny(q, p.vocab.AllMembers) {
		for _, rec := range records {
			add(rec.Login)
		}

		return members
	}

	for _, rec := range records {
		login := strings.ToLower(rec.Login)
		spaced := strings.ReplaceAll(login, "-", " ")

		if strings.Contains(q, login) || strings.Contains(q, spaced) {
			add(rec.Login)
		}
	}

	return members
}

func (p *Parser) extractOrganizations(q string, intent domain.Intent) []string {
	all := func() []string {
		names := make([]string, len(p.orgs))
		for i, org := range p.orgs {
			names[i] = org.Name
		}

		return names
	}

	// An explicit "all organizations" phrase always wins.
	if containsAny(q, p.vocab.AllOrganizations) {
		return all()
	}

	var matched []string

	for _, org := range p.orgs {
		tokens := append([]string{org.Name, org.DisplayName}, org.Aliases...)

		for _, token := range tokens {
			if token == "" {
				continue
			}

			if strings.Contains(q, strings.ToLower(token)) {
				matched = append(matched, org.Name)
				break
			}
		}
	}

	// A comparison needs at least two sides, so with no explicit token it
	// defaults to every configured organization.
	if len(matched) == 0 && intent == domain.IntentComparison {
		return all()
	}

	return matched
}

// relative date phrases, checked in order; the numbered forms go first since
// they are the more specific patterns.
func (p *Parser) extractDateRange(q string) *domain.DateRange {
	now := p.now()

	if m := p.reLastWeeks.FindStringSubmatch(q); m != nil {
		n, _ := strconv.Atoi(m[1])
		return rangeOf(now.AddDate(0, 0, -7*n), now)
	}

	if m := p.reLastMonth.FindStringSubmatch(q); m != nil {
		n, _ := strconv.Atoi(m[1])
		return rangeOf(now.AddDate(0, -n, 0), now)
	}

	switch {
	case strings.Contains(q, "this month"):
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return rangeOf(first, first.AddDate(0, 1, -1))

	case strings.Contains(q, "last month"):
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
		return rangeOf(first, first.AddDate(0, 1, -1))

	case strings.Contains(q, "this week"):
		monday := startOfISOWeek(now)
		return rangeOf(monday, monday.AddDate(0, 0, 6))

	case strings.Contains(q, "last week"):
		monday := startOfISOWeek(now).AddDate(0, 0, -7)
		return rangeOf(monday, monday.AddDate(0, 0, 6))
	}

	return nil
}

func (p *Parser) extractActivityTypes(q string) []string {
	var types []string

	checks := []struct {
		name     string
		keywords []string
	}{
		{domain.TypeIssues, p.vocab.Issues},
		{domain.TypeMergeRequests, p.vocab.MergeRequests},
		{domain.TypeCommits, p.vocab.Commits},
		{domain.TypeReviews, p.vocab.Reviews},
	}

	for _, check := range checks {
		if containsAny(q, check.keywords) {
			types = append(types, check.name)
		}
	}

	return types
}

func (p *Parser) extractAggregationKind(q string, intent domain.Intent) string {
	if containsAny(q, p.vocab.Average) {
		return "average"
	}

	if intent == domain.IntentAggregation {
		return "total"
	}

	return ""
}

func (p *Parser) extractFilters(q string, activityTypes []string) domain.Filters {
	var filters domain.Filters

	if m := p.reMin.FindStringSubmatch(q); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			filters.MinValue = &n
		}
	}

	if m := p.reMax.FindStringSubmatch(q); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			filters.MaxValue = &n
		}
	}

	if m := p.reTop.FindStringSubmatch(q); m != nil {
		filters.Limit, _ = strconv.Atoi(m[1])
	} else if m := p.reLimit.FindStringSubmatch(q); m != nil {
		filters.Limit, _ = strconv.Atoi(m[1])
	}

	if len(activityTypes) > 0 {
		filters.SortBy = activityTypes[0]
	} else if containsAny(q, p.vocab.Total) {
		filters.SortBy = domain.TypeTotal
	}

	switch {
	case containsAny(q, p.vocab.Descending):
		filters.SortOrder = domain.SortDesc
	case containsAny(q, p.vocab.Ascending):
		filters.SortOrder = domain.SortAsc
	}

	return filters
}

func rangeOf(start, end time.Time) *domain.DateRange {
	return &domain.DateRange{
		Start: start.Format(domain.DateLayout),
		End:   end.Format(domain.DateLayout),
	}
}

func startOfISOWeek(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())

	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}

	return day.AddDate(0, 0, 1-weekday)
}

func containsAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}

	return false
}
