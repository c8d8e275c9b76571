package mapping

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/port-experimental/repo-team-mapper/pkg/catalog"
)

// resolveTeam walks the ranking in order and returns the first team of the
// first committer that has any team assigned. First-match, not best-match: a
// lower-ranked committer is never considered once an earlier one matches.
// Returns "" when nobody resolves, which is a valid outcome.
func (m *mapper) resolveTeam(ctx context.Context, ranking []Committer) (string, error) {
	for _, committer := range ranking {
		user, err := m.catalog.FindUserByEmail(ctx, committer.Email)
		if errors.Is(err, catalog.ErrNotFound) {
			log.Debug().Str("email", committer.Email).
				Msg("no catalog user for committer")
			continue
		}
		if err != nil {
			return "", err
		}

		if len(user.Teams) > 0 {
			return user.Teams[0], nil
		}

		log.Debug().Str("email", committer.Email).
			Msg("catalog user has no teams assigned")
	}

	return "", nil
}
