package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "repo-team-mapper",
	Short: "repo-team-mapper assigns owning teams to repository entities in a catalog",
	Long: `Maps source-control repositories to owning teams by looking at who commits to
them, then syncs that ownership into the catalog. Also ships a one-off entity
migration for moving team relations into a flat property.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

var (
	confPath string
	silent   bool
	verbose  bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&confPath, "config", "c", "mapper.toml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&silent, "silent", "s", false, "silent, only error or panic output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "more verbose for debug output")
	cobra.OnInitialize(func() {
		// init logger
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

		if silent && verbose {
			log.Error().Msg("choose only one of silent or verbose output")
			os.Exit(1)
		}

		zerolog.SetGlobalLevel(zerolog.InfoLevel)

		if silent {
			zerolog.SetGlobalLevel(zerolog.ErrorLevel)
		}

		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}

		if _, err := os.Stat(confPath); os.IsNotExist(err) {
			log.Error().Err(err).Msg("config file not exists!")
			os.Exit(1)
		}
	})
}

// Execute root cobra executor
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("")
		os.Exit(1)
	}
}
