package query

import (
	"fmt"

	"github.com/macromill/activity-insights/internal/domain"
)

// insightRule is one (predicate, message) pair. Rules are evaluated in table
// order for every ordered pair of compared organizations; a rule only speaks
// when its strict inequality holds, so exact ties produce no insight.
type insightRule struct {
	applies func(a, b domain.OrgComparison) bool
	message func(a, b domain.OrgComparison) string
}

var insightRules = []insightRule{
	{
		applies: func(a, b domain.OrgComparison) bool { return a.MemberCount > b.MemberCount },
		message: func(a, b domain.OrgComparison) string {
			return fmt.Sprintf("%s has %d more members than %s",
				a.DisplayName, a.MemberCount-b.MemberCount, b.DisplayName)
		},
	},
	{
		applies: func(a, b domain.OrgComparison) bool { return a.Totals.Total() > b.Totals.Total() },
		message: func(a, b domain.OrgComparison) string {
			return fmt.Sprintf("%s leads %s by %d in total activity",
				a.DisplayName, b.DisplayName, a.Totals.Total()-b.Totals.Total())
		},
	},
	{
		applies: func(a, b domain.OrgComparison) bool {
			return averageTotal(a) > averageTotal(b)
		},
		message: func(a, b domain.OrgComparison) string {
			return fmt.Sprintf("%s averages %.1f activities per member, ahead of %s at %.1f",
				a.DisplayName, averageTotal(a), b.DisplayName, averageTotal(b))
		},
	},
	{
		applies: func(a, b domain.OrgComparison) bool { return a.Totals.Issues > b.Totals.Issues },
		message: func(a, b domain.OrgComparison) string {
			return fmt.Sprintf("%s leads in issues (%d vs %d)",
				a.DisplayName, a.Totals.Issues, b.Totals.Issues)
		},
	},
	{
		applies: func(a, b domain.OrgComparison) bool { return a.Totals.MergeRequests > b.Totals.MergeRequests },
		message: func(a, b domain.OrgComparison) string {
			return fmt.Sprintf("%s leads in merge requests (%d vs %d)",
				a.DisplayName, a.Totals.MergeRequests, b.Totals.MergeRequests)
		},
	},
	{
		applies: func(a, b domain.OrgComparison) bool { return a.Totals.Commits > b.Totals.Commits },
		message: func(a, b domain.OrgComparison) string {
			return fmt.Sprintf("%s leads in commits (%d vs %d)",
				a.DisplayName, a.Totals.Commits, b.Totals.Commits)
		},
	},
	{
		applies: func(a, b domain.OrgComparison) bool { return a.Totals.Reviews > b.Totals.Reviews },
		message: func(a, b domain.OrgComparison) string {
			return fmt.Sprintf("%s leads in reviews (%d vs %d)",
				a.DisplayName, a.Totals.Reviews, b.Totals.Reviews)
		},
	},
}

func averageTotal(c domain.OrgComparison) float64 {
	return c.Averages.Issues + c.Averages.MergeRequests + c.Averages.Commits + c.Averages.Reviews
}

// buildInsights runs the rule table over every pair of compared organizations
// in result order. For each pair the rule fires for whichever side satisfies
// the predicate; ties stay silent.
func buildInsights(comparisons []domain.OrgComparison) []string {
	insights := []string{}

	for i := 0; i < len(comparisons); i++ {
		for j := i + 1; j < len(comparisons); j++ {
			a, b := comparisons[i], comparisons[j]

			for _, rule := range insightRules {
				switch {
				case rule.applies(a, b):
					insights = append(insights, rule.message(a, b))
				case rule.applies(b, a):
					insights = append(insights, rule.message(b, a))
				}
			}
		}
	}

	return insights
}
