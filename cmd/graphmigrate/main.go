package main

import (
	"fmt"
	"os"

	"github.com/dfryer1193/graphmigrate/internal/config"
	"github.com/dfryer1193/graphmigrate/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type options struct {
	hosts      []string
	configPath string
	profile    string
	port       int
	ssl        bool
	username   string
	password   string
	maxVersion int
	logLevel   string
	ledgerDSN  string
}

func main() {
	env, err := config.ParseEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := newRootCmd(&options{}, env)
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("graphmigrate failed")
		os.Exit(1)
	}
}

func newRootCmd(opts *options, env config.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "graphmigrate",
		Short:         "Apply versioned gremlin migrations to a DSE graph",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.complete(cmd, env); err != nil {
				return err
			}
			cmd.SilenceUsage = true
			logging.Init(opts.logLevel, os.Stderr)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringSliceVarP(&opts.hosts, "hosts", "H", nil, "Comma separated list of contact points (required)")
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Path to the configuration file")
	flags.StringVarP(&opts.profile, "profile", "m", "", "Profile whose options are used to create the graph")
	flags.IntVarP(&opts.port, "port", "p", 9042, "Native protocol port")
	flags.BoolVarP(&opts.ssl, "ssl", "s", false, "Connect with TLS")
	flags.StringVarP(&opts.username, "username", "u", "", "Username (or set GRAPHMIGRATE_USERNAME)")
	flags.StringVarP(&opts.password, "password", "P", "", "Password (or set GRAPHMIGRATE_PASSWORD)")
	flags.IntVarP(&opts.maxVersion, "max-version", "v", 0, "Highest migration version to apply, 0 for all")
	flags.StringVar(&opts.logLevel, "log-level", env.LogLevel, "Log level: trace, debug, info, warn, error, off")

	rootCmd.AddCommand(statusCmd(opts))
	rootCmd.AddCommand(serveCmd(opts))
	rootCmd.AddCommand(dropCmd(opts))

	return rootCmd
}

// complete fills unset credentials from the environment and validates the
// flag combination.
func (o *options) complete(cmd *cobra.Command, env config.Env) error {
	if !cmd.Flags().Changed("username") {
		o.username = env.Username
	}
	if !cmd.Flags().Changed("password") {
		o.password = env.Password
	}
	o.ledgerDSN = env.LedgerDSN

	if len(o.hosts) == 0 {
		return fmt.Errorf("--hosts is required")
	}
	if o.username != "" && o.password == "" {
		return fmt.Errorf("--username requires --password")
	}
	if o.port <= 0 || o.port > 65535 {
		return fmt.Errorf("invalid port number: %d", o.port)
	}
	if o.maxVersion < 0 {
		return fmt.Errorf("--max-version must not be negative")
	}
	return nil
}

func runMigrate(cmd *cobra.Command, opts *options) error {
	a, err := newApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.manager.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
