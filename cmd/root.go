package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sushantshinde2401/bookkeeper/internal/config"
	"github.com/sushantshinde2401/bookkeeper/internal/logging"
)

var (
	flagServer   string
	flagDB       string
	flagEnvFile  string
	flagLogLevel string
)

// cfg is filled before any command runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bookkeeper",
	Short: "Company, vendor, expense and bank ledgers",
	Long: "A bookkeeping ledger server with terminal and browser screens. Screens delete " +
		"optimistically and stay in sync with each other through shared signals.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadFromEnv(flagEnvFile)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("server") {
			loaded.ServerURL = flagServer
		}
		if flags.Changed("db") {
			loaded.DBPath = flagDB
		}
		if flags.Changed("log-level") {
			loaded.LogLevel = flagLogLevel
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "http://localhost:8888", "Server address")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "bookkeeper.db", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Environment file to load")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func Execute() error {
	return rootCmd.Execute()
}

// consoleLogger is the logger of commands that do not own the terminal.
func consoleLogger() *zap.Logger {
	logger, err := logging.NewConsole(cfg.LogLevel)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
