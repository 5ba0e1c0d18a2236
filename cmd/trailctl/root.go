package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trailhub/trailhub/internal/config"
)

// cli carries settings resolved once per invocation.
type cli struct {
	v          *viper.Viper
	configFile string
	cfg        config.Config
	log        zerolog.Logger
}

// Commands that never touch a store skip configuration loading.
var offlineCommands = map[string]bool{
	"version": true,
	"schema":  true,
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:   "trailctl",
		Short: "trailctl operates a trailhub deployment",
		Long: `trailctl runs maintenance tasks against the stores and services the
trailhub API uses: schema migration, trail log export and import, one-off
cache refreshes and normalizer dry runs.

Settings come from the environment, a .env file and the YAML file named by
--config or TRAILHUB_CONFIG.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.load,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "YAML settings file (default: $TRAILHUB_CONFIG)")
	flags.String("store", "", "store driver: postgres, sqlite or memory")
	flags.String("sqlite-path", "", "SQLite database file")
	_ = c.v.BindPFlag(config.KeyStoreDriver, flags.Lookup("store"))
	_ = c.v.BindPFlag(config.KeySQLitePath, flags.Lookup("sqlite-path"))

	root.AddCommand(
		newVersionCmd(),
		newSchemaCmd(),
		newMigrateCmd(c),
		newNormalizeCmd(c),
		newTrailLogCmd(c),
		newRefreshCmd(c),
		newTokenCmd(c),
	)
	return root
}

func (c *cli) load(cmd *cobra.Command, _ []string) error {
	c.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		With().
		Timestamp().
		Logger()

	if offlineCommands[cmd.Name()] {
		return nil
	}

	var err error
	if c.configFile != "" {
		if err = config.ReadFile(c.v, c.configFile); err != nil {
			return err
		}
		c.cfg, err = config.Load(c.v)
	} else {
		c.cfg, err = config.FromEnvironment(c.v)
	}
	return err
}
