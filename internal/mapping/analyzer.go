package mapping

import (
	"context"
	"sort"
	"strings"

	"github.com/port-experimental/repo-team-mapper/pkg/scm"
)

// Committer is one (email, commit count) entry of a ranking
type Committer struct {
	Email   string
	Commits int
}

// Analyzer produces the top-committer ranking of one repository. A repo with
// no commits yields an empty ranking, not an error.
type Analyzer interface {
	TopCommitters(ctx context.Context, repoID string, limit int) ([]Committer, error)
}

type apiAnalyzer struct {
	svc scm.Service
}

// newAPIAnalyzer ranks committers from the host's commit listing api
func newAPIAnalyzer(svc scm.Service) Analyzer {
	return &apiAnalyzer{svc: svc}
}

func (a *apiAnalyzer) TopCommitters(ctx context.Context, repoID string, limit int) ([]Committer, error) {
	commits, err := a.svc.ListCommits(ctx, repoID)
	if err != nil {
		return nil, err
	}
	return rankCommitters(commits, limit), nil
}

// rankCommitters aggregates commit counts per author email and keeps the top
// limit entries. Emails compare case-insensitive, the first-seen spelling is
// reported. Order is count descending, ties stay in first-seen order.
func rankCommitters(commits []scm.Commit, limit int) []Committer {
	counts := make(map[string]int)
	spelling := make(map[string]string)
	var order []string

	for _, commit := range commits {
		key := strings.ToLower(commit.AuthorEmail)
		if key == "" {
			continue
		}
		if _, ok := counts[key]; !ok {
			order = append(order, key)
			spelling[key] = commit.AuthorEmail
		}
		counts[key]++
	}

	ranking := make([]Committer, 0, len(order))
	for _, key := range order {
		ranking = append(ranking, Committer{
			Email:   spelling[key],
			Commits: counts[key],
		})
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Commits > ranking[j].Commits
	})

	if limit > 0 && len(ranking) > limit {
		ranking = ranking[:limit]
	}
	return ranking
}
