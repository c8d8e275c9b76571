package mapping

import (
	"context"
	"errors"

	"github.com/port-experimental/repo-team-mapper/pkg/scm"
)

const (
	statusMapped   = "mapped"
	statusUnmapped = "unmapped"
	statusFailed   = "failed"
	statusRetry    = "retry"
)

// outcome is the terminal state of one repository's pipeline run
type outcome struct {
	repoID string
	team   string
	status string
	err    error
}

// terminal reports whether the repository is done for queue purposes.
// Retryable failures stay queued for the next run.
func (o outcome) terminal() bool {
	return o.status != statusRetry
}

// processRepo runs one repository through analyze, resolve, assign. Strictly
// sequential, the stages of one repository never interleave.
func (m *mapper) processRepo(ctx context.Context, repoID string) outcome {
	ranking, err := m.analyzer.TopCommitters(ctx, repoID, m.config.TopCommitters)
	if errors.Is(err, scm.ErrNotFound) {
		// gone upstream, retrying forever would not bring it back
		return outcome{repoID: repoID, status: statusFailed, err: err}
	}
	if err != nil {
		return outcome{repoID: repoID, status: statusRetry, err: err}
	}

	team, err := m.resolveTeam(ctx, ranking)
	if err != nil {
		return outcome{repoID: repoID, status: statusRetry, err: err}
	}

	if err := m.assignTeam(ctx, repoID, team); err != nil {
		return outcome{repoID: repoID, status: statusRetry, err: err}
	}

	if team == "" {
		return outcome{repoID: repoID, status: statusUnmapped}
	}
	return outcome{repoID: repoID, team: team, status: statusMapped}
}
