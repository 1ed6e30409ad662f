// Package github implements the upstream source.Client against the GitHub
// REST API. It paginates everything, waits out rate limits, retries
// transient failures with capped backoff, and degrades a failing repository
// to zero events instead of failing the whole organization.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	gh "github.com/google/go-github/v61/github"
	"golang.org/x/oauth2"

	"github.com/macromill/activity-insights/internal/config"
	"github.com/macromill/activity-insights/internal/domain"
	"github.com/macromill/activity-insights/internal/source"
	"github.com/macromill/activity-insights/pkg/logger/sl"
)

const (
	perPage      = 100
	maxRateWait  = 2 * time.Minute
	firstBackoff = time.Second
)

// Client is the GitHub-backed activity source.
type Client struct {
	gh         *gh.Client
	log        *slog.Logger
	batchSize  int
	maxRetries int
}

var _ source.Client = (*Client)(nil)

// New builds a Client from the GitHub config section. An empty token yields
// an unauthenticated client; a base URL switches to an Enterprise host.
// BatchSize bounds concurrent per-repository calls; MaxRetries caps retries
// of transient non-rate-limit failures.
func New(ctx context.Context, cfg config.GitHub, log *slog.Logger) (*Client, error) {
	var httpClient *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := gh.NewClient(httpClient)

	if cfg.BaseURL != "" {
		var err error

		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url %q: %w", cfg.BaseURL, err)
		}
	}

	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &Client{
		gh:         client,
		log:        log,
		batchSize:  batchSize,
		maxRetries: maxRetries,
	}, nil
}

func (c *Client) ListMembers(ctx context.Context, org string) ([]source.Member, error) {
	opt := &gh.ListMembersOptions{ListOptions: gh.ListOptions{PerPage: perPage}}

	var members []source.Member

	for {
		var (
			users []*gh.User
			resp  *gh.Response
		)

		err := c.withRetry(ctx, func() (*gh.Response, error) {
			var err error
			users, resp, err = c.gh.Organizations.ListMembers(ctx, org, opt)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, u := range users {
			members = append(members, source.Member{
				Login:       u.GetLogin(),
				DisplayName: u.GetName(),
				AvatarURL:   u.GetAvatarURL(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return members, nil
}

func (c *Client) ListIssues(ctx context.Context, org string, start, end time.Time) ([]source.Event, error) {
	return c.collectFromRepos(ctx, org, func(ctx context.Context, repo string) ([]source.Event, error) {
		opt := &gh.IssueListByRepoOptions{
			State:       "all",
			Since:       start,
			ListOptions: gh.ListOptions{PerPage: perPage},
		}

		var events []source.Event

		for {
			var (
				issues []*gh.Issue
				resp   *gh.Response
			)

			err := c.withRetry(ctx, func() (*gh.Response, error) {
				var err error
				issues, resp, err = c.gh.Issues.ListByRepo(ctx, org, repo, opt)
				return resp, err
			})
			if err != nil {
				return nil, err
			}

			for _, issue := range issues {
				// The issues endpoint also lists pull requests.
				if issue.IsPullRequest() {
					continue
				}

				created := issue.GetCreatedAt().Time
				if inWindow(created, start, end) && issue.GetUser().GetLogin() != "" {
					events = append(events, source.Event{
						Login:      issue.GetUser().GetLogin(),
						OccurredAt: created,
					})
				}
			}

			if resp.NextPage == 0 {
				break
			}
			opt.Page = resp.NextPage
		}

		return events, nil
	})
}

func (c *Client) ListMergeRequestsAndReviews(ctx context.Context, org string, start, end time.Time) ([]source.Event, []source.Event, error) {
	var (
		mu      sync.Mutex
		reviews []source.Event
	)

	mergeRequests, err := c.collectFromRepos(ctx, org, func(ctx context.Context, repo string) ([]source.Event, error) {
		opt := &gh.PullRequestListOptions{
			State:       "all",
			Sort:        "created",
			Direction:   "desc",
			ListOptions: gh.ListOptions{PerPage: perPage},
		}

		var events []source.Event

		for {
			var (
				prs  []*gh.PullRequest
				resp *gh.Response
			)

			err := c.withRetry(ctx, func() (*gh.Response, error) {
				var err error
				prs, resp, err = c.gh.PullRequests.List(ctx, org, repo, opt)
				return resp, err
			})
			if err != nil {
				return nil, err
			}

			done := false

			for _, pr := range prs {
				created := pr.GetCreatedAt().Time
				if created.Before(start) {
					// Sorted descending by creation: everything after this
					// page is older than the window.
					done = true
					break
				}

				if !inWindow(created, start, end) {
					continue
				}

				if login := pr.GetUser().GetLogin(); login != "" {
					events = append(events, source.Event{Login: login, OccurredAt: created})
				}

				prReviews, err := c.listReviews(ctx, org, repo, pr.GetNumber(), start, end)
				if err != nil {
					c.log.Warn("failed to list reviews, counting zero",
						slog.String("org", org), slog.String("repo", repo),
						slog.Int("pr", pr.GetNumber()), sl.Err(err))

					continue
				}

				mu.Lock()
				reviews = append(reviews, prReviews...)
				mu.Unlock()
			}

			if done || resp.NextPage == 0 {
				break
			}
			opt.Page = resp.NextPage
		}

		return events, nil
	})
	if err != nil {
		return nil, nil, err
	}

	return mergeRequests, reviews, nil
}

func (c *Client) listReviews(ctx context.Context, org, repo string, number int, start, end time.Time) ([]source.Event, error) {
	opt := &gh.ListOptions{PerPage: perPage}

	var events []source.Event

	for {
		var (
			prReviews []*gh.PullRequestReview
			resp      *gh.Response
		)

		err := c.withRetry(ctx, func() (*gh.Response, error) {
			var err error
			prReviews, resp, err = c.gh.PullRequests.ListReviews(ctx, org, repo, number, opt)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, review := range prReviews {
			submitted := review.GetSubmittedAt().Time
			if inWindow(submitted, start, end) && review.GetUser().GetLogin() != "" {
				events = append(events, source.Event{
					Login:      review.GetUser().GetLogin(),
					OccurredAt: submitted,
				})
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return events, nil
}

func (c *Client) ListCommits(ctx context.Context, org string, start, end time.Time) ([]source.Event, error) {
	return c.collectFromRepos(ctx, org, func(ctx context.Context, repo string) ([]source.Event, error) {
		opt := &gh.CommitsListOptions{
			Since:       start,
			Until:       end,
			ListOptions: gh.ListOptions{PerPage: perPage},
		}

		var events []source.Event

		for {
			var (
				commits []*gh.RepositoryCommit
				resp    *gh.Response
			)

			err := c.withRetry(ctx, func() (*gh.Response, error) {
				var err error
				commits, resp, err = c.gh.Repositories.ListCommits(ctx, org, repo, opt)
				return resp, err
			})
			if err != nil {
				return nil, err
			}

			for _, commit := range commits {
				login := commit.GetAuthor().GetLogin()
				if login == "" {
					continue
				}

				events = append(events, source.Event{
					Login:      login,
					OccurredAt: commit.GetCommit().GetAuthor().GetDate().Time,
				})
			}

			if resp.NextPage == 0 {
				break
			}
			opt.Page = resp.NextPage
		}

		return events, nil
	})
}

func (c *Client) RateLimit(ctx context.Context) (domain.RateLimitStatus, error) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return domain.RateLimitStatus{}, err
	}

	core := limits.GetCore()

	return domain.RateLimitStatus{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		ResetAt:   core.Reset.Time,
	}, nil
}

// collectFromRepos runs fn for every repository of the organization in
// bounded batches: batchSize repositories fetch concurrently and each batch
// completes before the next starts, which throttles outbound connections.
// A repository whose fn fails contributes zero events and a warning.
func (c *Client) collectFromRepos(ctx context.Context, org string, fn func(ctx context.Context, repo string) ([]source.Event, error)) ([]source.Event, error) {
	repos, err := c.listRepos(ctx, org)
	if err != nil {
		return nil, err
	}

	perRepo := make([][]source.Event, len(repos))

	for batchStart := 0; batchStart < len(repos); batchStart += c.batchSize {
		batchEnd := batchStart + c.batchSize
		if batchEnd > len(repos) {
			batchEnd = len(repos)
		}

		var wg sync.WaitGroup

		for i := batchStart; i < batchEnd; i++ {
			wg.Add(1)

			go func(i int) {
				defer wg.Done()

				events, err := fn(ctx, repos[i])
				if err != nil {
					c.log.Warn("repository fetch failed, counting zero",
						slog.String("org", org), slog.String("repo", repos[i]), sl.Err(err))

					return
				}

				perRepo[i] = events
			}(i)
		}

		wg.Wait()

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	var all []source.Event
	for _, events := range perRepo {
		all = append(all, events...)
	}

	return all, nil
}

func (c *Client) listRepos(ctx context.Context, org string) ([]string, error) {
	opt := &gh.RepositoryListByOrgOptions{Type: "all", ListOptions: gh.ListOptions{PerPage: perPage}}

	var repos []string

	for {
		var (
			page []*gh.Repository
			resp *gh.Response
		)

		err := c.withRetry(ctx, func() (*gh.Response, error) {
			var err error
			page, resp, err = c.gh.Repositories.ListByOrg(ctx, org, opt)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, repo := range page {
			repos = append(repos, repo.GetName())
		}

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return repos, nil
}

// withRetry runs one API call, waiting out rate limits (retries do not count
// against the budget) and retrying transient failures with doubling backoff.
func (c *Client) withRetry(ctx context.Context, call func() (*gh.Response, error)) error {
	attempts := c.maxRetries
	backoff := firstBackoff

	for {
		resp, err := call()
		if err == nil {
			return nil
		}

		if waited := c.waitIfRateLimited(ctx, resp); waited {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			continue
		}

		attempts--
		if attempts <= 0 || ctx.Err() != nil {
			return err
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}

		if backoff < maxRateWait {
			backoff *= 2
		}
	}
}

// waitIfRateLimited sleeps until the reported reset when the response is a
// rate-limit rejection. Returns true when it waited and the call should be
// retried.
func (c *Client) waitIfRateLimited(ctx context.Context, resp *gh.Response) bool {
	if resp == nil || resp.Response == nil || !isRateLimitResponse(resp) {
		return false
	}

	wait := 5 * time.Second

	if v := resp.Response.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
	} else if !resp.Rate.Reset.Time.IsZero() {
		if until := time.Until(resp.Rate.Reset.Time); until > 0 {
			wait = until
		}
	}

	if wait > maxRateWait {
		wait = maxRateWait
	}

	c.log.Warn("rate limited, waiting", slog.Duration("wait", wait))

	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}

	return true
}

func isRateLimitResponse(resp *gh.Response) bool {
	code := resp.Response.StatusCode
	if code == http.StatusTooManyRequests {
		return true
	}

	// A 403 is only a rate limit when the quota is exhausted.
	return code == http.StatusForbidden && resp.Response.Header.Get("X-RateLimit-Remaining") == "0"
}

func inWindow(t time.Time, start, end time.Time) bool {
	if t.IsZero() {
		return false
	}

	return !t.Before(start) && !t.After(end)
}
