package main

import (
	"context"
	"log/slog"

	"github.com/macromill/activity-insights/internal/config"
	"github.com/macromill/activity-insights/internal/query"
	"github.com/macromill/activity-insights/internal/repository/filestore"
	"github.com/macromill/activity-insights/internal/service"
	"github.com/macromill/activity-insights/internal/source/github"
	"github.com/macromill/activity-insights/pkg/logger/slogpretty"
)

// app bundles the shared dependencies every subcommand needs. Construction
// is fatal on config errors, matching how the process should die at startup.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	store *filestore.Store
}

func newApp() *app {
	cfg := config.MustLoad()
	log := slogpretty.SetupLogger(cfg.Env)

	return &app{
		cfg:   cfg,
		log:   log,
		store: filestore.New(cfg.Storage.Dir, log),
	}
}

func (a *app) orgTokens() []query.OrgToken {
	tokens := make([]query.OrgToken, len(a.cfg.Organizations))
	for i, org := range a.cfg.Organizations {
		tokens[i] = query.OrgToken{
			Name:        org.Name,
			DisplayName: org.DisplayName,
			Aliases:     org.Aliases,
		}
	}

	return tokens
}

func (a *app) newFetchService(ctx context.Context) (service.FetchService, error) {
	src, err := github.New(ctx, a.cfg.GitHub, a.log)
	if err != nil {
		return nil, err
	}

	return service.NewFetchService(src, a.store, a.cfg.Organizations, a.cfg.GitHub.MinRemaining, a.log), nil
}

func (a *app) newQueryService() service.QueryService {
	parser := query.NewParser(query.DefaultVocabulary(), a.orgTokens())
	executor := query.NewExecutor(a.log)

	return service.NewQueryService(a.store, parser, executor, a.cfg.OrgNames(), a.log)
}
