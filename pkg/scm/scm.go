package scm

import (
	"context"
	"errors"
)

// MaxWorkerKey is the context key to use with golang.org/x/net/context's
// WithValue function to associate an int value with a context.
var MaxWorkerKey = struct{}{}

// ErrNotFound is returned when a queried repository no longer exists upstream.
var ErrNotFound = errors.New("scm: repository not found")

// Service is the capability interface for a source-control host
type Service interface {
	// ListOrgRepositories return all repositories owned by the organization
	ListOrgRepositories(ctx context.Context, org string) ([]Repository, error)
	// ListCommits return the exhaustive default-branch commit list of a
	// repository, oldest page first within the host's ordering
	ListCommits(ctx context.Context, repoID string) ([]Commit, error)
}
