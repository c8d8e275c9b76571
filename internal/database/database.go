package database

import (
	"context"
	"time"
)

// Mapping is one per-repository outcome row. A repo gets exactly one row, the
// latest run wins.
type Mapping struct {
	RepoName string
	Team     string
	Status   string
	MappedAt time.Time
}

func (db *databaseConnection) UpsertMapping(ctx context.Context,
	repoName, team, status string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO mappings (
			repo_name, team, status, mapped_at
		)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (repo_name) DO UPDATE SET
			team = excluded.team,
			status = excluded.status,
			mapped_at = excluded.mapped_at`,
		repoName, team, status, time.Now())
	return err
}

func (db *databaseConnection) GetMapping(ctx context.Context,
	repoName string) (Mapping, error) {
	var m Mapping
	err := db.conn.QueryRowContext(ctx,
		`SELECT repo_name, team, status, mapped_at FROM mappings
		WHERE repo_name = ? LIMIT 1`,
		repoName).Scan(&m.RepoName, &m.Team, &m.Status, &m.MappedAt)
	return m, err
}
