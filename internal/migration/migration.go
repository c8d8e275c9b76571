package migration

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/port-experimental/repo-team-mapper/pkg/catalog"
)

// Catalog is the slice of the catalog api the migration touches
type Catalog interface {
	ListEntities(ctx context.Context, blueprint string) ([]catalog.Entity, error)
	GetEntity(ctx context.Context, blueprint, identifier string) (*catalog.Entity, error)
	UpdateEntity(ctx context.Context, blueprint, identifier string, patch catalog.Patch) error
}

// Migrator is the one-off backfill copying team relation values into the
// flat multi-value team property after a catalog model change.
type Migrator struct {
	catalog  Catalog
	relation string
	property string
}

// New create a migrator reading from relation and writing to property
func New(c Catalog, relation, property string) *Migrator {
	return &Migrator{
		catalog:  c,
		relation: relation,
		property: property,
	}
}

// Run backfills every entity of the blueprint. A broken entity is logged and
// skipped, it never stops the rest of the migration.
func (m *Migrator) Run(ctx context.Context, blueprint string) error {
	log.Info().Str("blueprint", blueprint).Msg("starting team migration")

	entities, err := m.catalog.ListEntities(ctx, blueprint)
	if err != nil {
		return err
	}

	if len(entities) == 0 {
		log.Warn().Str("blueprint", blueprint).
			Msg("no entities found, nothing to migrate")
		return nil
	}

	migrated := 0
	for _, entity := range entities {
		ok, err := m.migrateEntity(ctx, blueprint, entity.Identifier)
		if err != nil {
			log.Error().Err(err).Str("entity", entity.Identifier).
				Msg("failed to migrate entity")
			continue
		}
		if ok {
			migrated++
		}
	}

	log.Info().Str("blueprint", blueprint).
		Int("entities", len(entities)).Int("migrated", migrated).
		Msg("finished team migration")
	return nil
}

// migrateEntity patches one entity, reporting whether a write happened.
// Entities without the team relation are skipped.
func (m *Migrator) migrateEntity(ctx context.Context, blueprint, identifier string) (bool, error) {
	full, err := m.catalog.GetEntity(ctx, blueprint, identifier)
	if err != nil {
		return false, err
	}

	teams := catalog.Strings(full.Relations[m.relation])
	if len(teams) == 0 {
		log.Debug().Str("entity", identifier).
			Msg("no team relation data, skipping")
		return false, nil
	}

	err = m.catalog.UpdateEntity(ctx, blueprint, identifier, catalog.Patch{
		Properties: map[string]interface{}{m.property: teams},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
