package mapping

import (
	"context"
	"strings"

	"github.com/port-experimental/repo-team-mapper/pkg/catalog"
)

// assignTeam upserts the repository entity's team relation. An empty team
// leaves the catalog untouched and is still a successful outcome. The write
// leans on the catalog's upsert+merge semantics, so repeating it after a
// crash converges to the same state.
func (m *mapper) assignTeam(ctx context.Context, repoID, team string) error {
	if team == "" {
		return nil
	}

	// the catalog keys repository entities without the org prefix
	identifier := strings.TrimPrefix(repoID, m.config.Organization+"/")

	return m.catalog.UpsertEntity(ctx, m.config.Catalog.Blueprint, catalog.Entity{
		Identifier: identifier,
		Relations: map[string]interface{}{
			m.config.Catalog.RepoTeamRelation: []string{team},
		},
	})
}
