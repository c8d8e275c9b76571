package cmd

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/port-experimental/repo-team-mapper/internal/mapping"
	"github.com/port-experimental/repo-team-mapper/internal/migration"
	"github.com/port-experimental/repo-team-mapper/pkg/catalog"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate blueprint_identifier",
	Short: "Migrate team relations into a flat team property",
	Long: `One-off backfill after a catalog model change. For every entity of the given
blueprint, reads the team relation and writes its value(s) into the multi-value
team property.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runMigrate,
}

func runMigrate(_ *cobra.Command, args []string) {
	conf, err := mapping.ParseConfig(confPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to parse config file")
		os.Exit(1)
	}

	blueprint := args[0]

	client := catalog.New(catalog.Options{
		BaseURL:          conf.Catalog.BaseURL,
		ClientID:         conf.Catalog.ClientID,
		ClientSecret:     conf.Catalog.ClientSecret,
		UserTeamProperty: conf.Catalog.UserTeamProperty,
	})

	m := migration.New(client, conf.Catalog.RepoTeamRelation, conf.Catalog.UserTeamProperty)
	if err := m.Run(context.Background(), blueprint); err != nil {
		log.Error().Err(err).Str("blueprint", blueprint).Msg("migration failed")
		os.Exit(1)
	}
}
