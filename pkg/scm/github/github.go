package github

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/google/go-github/v39/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/semaphore"

	"github.com/port-experimental/repo-team-mapper/pkg/scm"
)

type githubService struct {
	client    *github.Client
	maxWorker int
}

// NewClient create plain new github api client without token, change max
// worker in context.Value with scm.MaxWorkerKey as key
func NewClient(ctx context.Context) scm.Service {
	var maxWorker int
	var ok bool

	hc := &http.Client{
		Transport: newRateLimitTransport(http.DefaultTransport),
	}
	client := github.NewClient(hc)

	if maxWorker, ok = ctx.Value(scm.MaxWorkerKey).(int); !ok {
		maxWorker = 2 // fallback
	}

	return &githubService{
		client:    client,
		maxWorker: maxWorker,
	}
}

// NewClientWithToken create new github api client with token
func NewClientWithToken(ctx context.Context, token string) scm.Service {
	var maxWorker int
	var ok bool

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	hc := oauth2.NewClient(ctx, ts)
	hc.Transport = newRateLimitTransport(hc.Transport)
	client := github.NewClient(hc)

	if maxWorker, ok = ctx.Value(scm.MaxWorkerKey).(int); !ok {
		maxWorker = 2 // fallback
	}

	return &githubService{
		client:    client,
		maxWorker: maxWorker,
	}
}

// ListOrgRepositories return all repositories owned by the organization,
// forks included. Pages after the first are fetched concurrently, bounded by
// the service's max worker.
func (ghs *githubService) ListOrgRepositories(ctx context.Context, org string) ([]scm.Repository, error) {
	var m sync.Mutex
	var repos []scm.Repository
	var pageErr error

	sem := semaphore.NewWeighted(int64(ghs.maxWorker))

	gitRepos, resp, err := ghs.client.Repositories.ListByOrg(ctx, org, &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, translateError(err)
	}

	if len(gitRepos) == 0 {
		return nil, nil
	}

	repos = append(repos, convertRepositories(gitRepos)...)

	for page := resp.NextPage; page != 0 && page <= resp.LastPage; page++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		page := page // copy
		go func() {
			defer sem.Release(1)

			gitRepos, _, err := ghs.client.Repositories.ListByOrg(ctx, org, &github.RepositoryListByOrgOptions{
				ListOptions: github.ListOptions{PerPage: 100, Page: page},
			})
			if err != nil {
				// a dropped page means a partial listing, and the listing
				// seeds the durable work queue, so the whole call has to fail
				m.Lock()
				if pageErr == nil {
					pageErr = err
				}
				m.Unlock()
				return
			}

			// rather than switch mutex every append(), better to switch one time
			// so that it wont spent so much time on context switches
			m.Lock()
			repos = append(repos, convertRepositories(gitRepos)...)
			m.Unlock()
		}()
	}

	// wait
	if err := sem.Acquire(ctx, int64(ghs.maxWorker)); err != nil {
		return nil, err
	}

	if pageErr != nil {
		return nil, translateError(pageErr)
	}

	return repos, nil
}

// ListCommits return every default-branch commit of the repository that has a
// resolvable author email. Pagination is sequential, the commit order matters
// downstream for ranking tie-breaks.
func (ghs *githubService) ListCommits(ctx context.Context, repoID string) ([]scm.Commit, error) {
	var commits []scm.Commit

	owner, name, err := splitRepoID(repoID)
	if err != nil {
		return nil, err
	}

	opt := &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		gitCommits, resp, err := ghs.client.Repositories.ListCommits(ctx, owner, name, opt)
		if err != nil {
			if isEmptyRepository(err) {
				return nil, nil
			}
			return nil, translateError(err)
		}

		for _, gitCommit := range gitCommits {
			if gitCommit.Commit == nil || gitCommit.Commit.Author == nil {
				continue
			}
			email := gitCommit.Commit.Author.GetEmail()
			if email == "" {
				continue
			}
			commits = append(commits, scm.Commit{
				AuthorEmail: email,
				SHA:         gitCommit.GetSHA(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return commits, nil
}

func convertRepositories(gitRepos []*github.Repository) []scm.Repository {
	repos := make([]scm.Repository, 0, len(gitRepos))
	for _, gitRepo := range gitRepos {
		repos = append(repos, scm.Repository{
			FullName:      gitRepo.GetFullName(),
			URL:           gitRepo.GetCloneURL(),
			DefaultBranch: gitRepo.GetDefaultBranch(),
		})
	}
	return repos
}

func splitRepoID(repoID string) (owner, name string, err error) {
	parts := strings.SplitN(repoID, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		// malformed id, treat the same as a repository that is gone so the
		// caller does not retry it forever
		return "", "", scm.ErrNotFound
	}
	return parts[0], parts[1], nil
}

// translateError maps a github 404 to scm.ErrNotFound, everything else
// passes through as-is and is retryable from the caller's point of view
func translateError(err error) error {
	if ghErr, ok := err.(*github.ErrorResponse); ok {
		if ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
			return scm.ErrNotFound
		}
	}
	return err
}

// isEmptyRepository reports the 409 github answers when listing commits of a
// repository without any
func isEmptyRepository(err error) bool {
	ghErr, ok := err.(*github.ErrorResponse)
	return ok && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusConflict
}
