package cmd

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/port-experimental/repo-team-mapper/internal/mapping"
)

func init() {
	rootCmd.AddCommand(mapCmd)
}

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Map repositories to owning teams",
	Long: `Walk the remaining-work queue of organization repositories, rank top committers
per repository, and upsert the first resolvable team into the catalog. Progress
survives restarts through the state file.`,
	Run: runMap,
}

func runMap(_ *cobra.Command, _ []string) {
	conf, err := mapping.ParseConfig(confPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to parse config file")
		os.Exit(1)
	}

	m, err := mapping.New(conf)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize")
		os.Exit(1)
	}
	defer m.Close()

	if err := m.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("mapping run failed")
		os.Exit(1)
	}
}
