package mapping

import (
	"testing"

	"github.com/port-experimental/repo-team-mapper/pkg/scm"
)

func commitsOf(pairs ...string) []scm.Commit {
	commits := make([]scm.Commit, 0, len(pairs))
	for i, email := range pairs {
		commits = append(commits, scm.Commit{AuthorEmail: email, SHA: string(rune('a' + i))})
	}
	return commits
}

func TestRankCommittersOrder(t *testing.T) {
	commits := commitsOf(
		"b@x.com", "a@x.com", "a@x.com", "b@x.com", "a@x.com",
	)

	ranking := rankCommitters(commits, 5)
	if len(ranking) != 2 {
		t.Fatalf("expected 2 committers, got %d", len(ranking))
	}
	if ranking[0].Email != "a@x.com" || ranking[0].Commits != 3 {
		t.Fatalf("expected a@x.com with 3 commits first, got %+v", ranking[0])
	}
	if ranking[1].Email != "b@x.com" || ranking[1].Commits != 2 {
		t.Fatalf("expected b@x.com with 2 commits second, got %+v", ranking[1])
	}
}

func TestRankCommittersCaseInsensitive(t *testing.T) {
	commits := commitsOf("Anna@X.com", "anna@x.com", "b@x.com")

	ranking := rankCommitters(commits, 5)
	if len(ranking) != 2 {
		t.Fatalf("case variants must aggregate, got %d entries", len(ranking))
	}
	// first-seen spelling is what gets reported
	if ranking[0].Email != "Anna@X.com" || ranking[0].Commits != 2 {
		t.Fatalf("expected Anna@X.com with 2 commits, got %+v", ranking[0])
	}
}

func TestRankCommittersTieFirstSeen(t *testing.T) {
	commits := commitsOf("b@x.com", "a@x.com", "a@x.com", "b@x.com")

	ranking := rankCommitters(commits, 5)
	if ranking[0].Email != "b@x.com" {
		t.Fatalf("ties must keep first-seen order, got %+v", ranking)
	}
}

func TestRankCommittersLimit(t *testing.T) {
	commits := commitsOf("a@x.com", "b@x.com", "c@x.com", "d@x.com")

	ranking := rankCommitters(commits, 2)
	if len(ranking) != 2 {
		t.Fatalf("expected ranking capped at 2, got %d", len(ranking))
	}
}

func TestRankCommittersEmpty(t *testing.T) {
	if ranking := rankCommitters(nil, 5); len(ranking) != 0 {
		t.Fatalf("empty history must rank empty, got %+v", ranking)
	}
}
