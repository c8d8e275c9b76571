package database

import (
	"context"
	"database/sql"

	// for database/sql
	_ "github.com/mattn/go-sqlite3"
)

type databaseConnection struct {
	conn *sql.DB
}

// Service is the main interface for database package
type Service interface {
	Initialize() error
	Close()

	UpsertMapping(ctx context.Context, repoName, team, status string) error
	GetMapping(ctx context.Context, repoName string) (Mapping, error)
}

// NewDatabase create a new connection to database
func NewDatabase(dbURI string) (Service, error) {
	conn, err := sql.Open("sqlite3", dbURI)

	return &databaseConnection{
		conn: conn,
	}, err
}

func (dbc *databaseConnection) Initialize() error {
	_, err := dbc.conn.Exec(`
		CREATE TABLE IF NOT EXISTS mappings(
			id INTEGER PRIMARY KEY,
			repo_name VARCHAR(255) UNIQUE NOT NULL,
			team VARCHAR(255),
			status VARCHAR(16) NOT NULL,
			mapped_at TIMESTAMP
		);
	`)
	return err
}

func (dbc *databaseConnection) Close() {
	dbc.conn.Close()
}
