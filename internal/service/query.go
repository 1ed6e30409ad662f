package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/macromill/activity-insights/internal/aggregate"
	"github.com/macromill/activity-insights/internal/domain"
	"github.com/macromill/activity-insights/internal/query"
	"github.com/macromill/activity-insights/internal/repository"
	"github.com/macromill/activity-insights/pkg/logger/sl"
)

type QueryServiceImpl struct {
	store    repository.ActivityStore
	parser   *query.Parser
	executor *query.Executor
	orgs     []string
	log      *slog.Logger
}

var _ QueryService = (*QueryServiceImpl)(nil)

func NewQueryService(store repository.ActivityStore, parser *query.Parser, executor *query.Executor, orgs []string, log *slog.Logger) *QueryServiceImpl {
	return &QueryServiceImpl{
		store:    store,
		parser:   parser,
		executor: executor,
		orgs:     orgs,
		log:      log,
	}
}

// Run loads the stored records, parses the question and executes it.
// It always answers; any failure becomes a data result with a nil payload.
func (s *QueryServiceImpl) Run(ctx context.Context, text string) domain.QueryResult {
	if strings.TrimSpace(text) == "" {
		return query.ErrorResult(text, errors.New("query is empty"))
	}

	merged, err := s.store.LoadAllMerged(ctx, s.orgs, nil, nil)
	if err != nil {
		s.log.Error("failed to load activity data", sl.Err(err))

		return query.ErrorResult(text, err)
	}

	// Bucket payloads repeat contributors across time windows; fold them
	// into one record per (login, organization) before querying.
	records := aggregate.MergeByOrganization(merged.Records)

	parsed := s.parser.Parse(text, records)

	return s.executor.Execute(parsed, text, records)
}
