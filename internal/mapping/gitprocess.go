package mapping

import (
	"context"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/rs/zerolog/log"

	"github.com/port-experimental/repo-team-mapper/pkg/scm"
)

// cloneAnalyzer ranks committers by cloning the repository and walking the
// default-branch log locally. Spares the commit listing api on big orgs where
// per-commit pagination is rate-prohibitive.
type cloneAnalyzer struct {
	storageType string
	storagePath string
	token       string
}

func newCloneAnalyzer(storageType, storagePath, token string) Analyzer {
	return &cloneAnalyzer{
		storageType: storageType,
		storagePath: storagePath,
		token:       token,
	}
}

func (ca *cloneAnalyzer) TopCommitters(ctx context.Context, repoID string, limit int) ([]Committer, error) {
	var storer storage.Storer
	var wt billy.Filesystem
	var repoPath string

	cloneURL := "https://github.com/" + repoID + ".git"

	if ca.storageType == memoryStorage {
		wt = memfs.New()
		storer = memory.NewStorage()
	} else {
		repoPath = path.Join(ca.storagePath, "github.com", repoID)
		wt = osfs.New(repoPath)
		dot, _ := wt.Chroot(".git")
		storer = filesystem.NewStorage(dot, cache.NewObjectLRUDefault())
	}

	var auth transport.AuthMethod
	if ca.token != "" {
		auth = &githttp.BasicAuth{Username: "x-access-token", Password: ca.token}
	}

	clonedRepository, err := git.CloneContext(ctx, storer, wt, &git.CloneOptions{
		URL:          cloneURL,
		Auth:         auth,
		SingleBranch: true,
	})
	switch err {
	case nil:
	case transport.ErrEmptyRemoteRepository:
		return nil, nil
	case transport.ErrRepositoryNotFound:
		return nil, scm.ErrNotFound
	case git.ErrRepositoryAlreadyExists:
		// only reachable with a disk clone from a previous session, open and
		// pull instead
		clonedRepository, err = git.PlainOpen(repoPath)
		if err != nil {
			return nil, err
		}

		worktree, err := clonedRepository.Worktree()
		if err != nil {
			return nil, err
		}

		err = worktree.PullContext(ctx, &git.PullOptions{
			RemoteName: "origin",
			Auth:       auth,
		})
		if err != nil && err != git.NoErrAlreadyUpToDate {
			return nil, err
		}
	default:
		return nil, err
	}

	head, err := clonedRepository.Head()
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			// unborn default branch, nothing committed yet
			return nil, nil
		}
		return nil, err
	}

	commitIter, err := clonedRepository.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, err
	}

	var commits []scm.Commit
	err = commitIter.ForEach(func(commit *object.Commit) error {
		commits = append(commits, scm.Commit{
			AuthorEmail: commit.Author.Email,
			SHA:         commit.Hash.String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Str("repo", repoID).Int("commits", len(commits)).
		Msg("walked clone history")

	return rankCommitters(commits, limit), nil
}
