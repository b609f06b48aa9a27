package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sushantshinde2401/bookkeeper/internal/client"
	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/logging"
	"github.com/sushantshinde2401/bookkeeper/internal/syncsignal"
	"github.com/sushantshinde2401/bookkeeper/internal/tui"
)

var (
	tuiLedger  string
	tuiLogFile string
	tuiExport  string
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		start := ledger.Ledger(tuiLedger)
		if !ledger.ValidLedger(start) {
			return fmt.Errorf("%w: %q", ledger.ErrUnknownLedger, tuiLedger)
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = tuiLogFile
		}

		logger, err := logging.NewFile(cfg.LogFile, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer logger.Sync()

		serverAddr, stop, err := ensureServer(cmd, logger)
		if err != nil {
			return err
		}
		defer stop()

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
		defer cancel()

		c := client.New(serverAddr)
		logger.Info("tui started", zap.String("server", serverAddr), zap.String("ledger", string(start)))
		return tui.Run(ctx, tui.Options{
			Backend:         c,
			Signals:         syncsignal.New(client.NewSignalStore(c, logger), logger),
			Logger:          logger,
			PollInterval:    cfg.PollInterval,
			RefreshInterval: cfg.RefreshInterval,
			PageSize:        cfg.PageSize,
			Currency:        cfg.Currency,
			ExportDir:       tuiExport,
			StartLedger:     start,
		})
	},
}

func init() {
	tuiCmd.Flags().StringVar(&tuiLedger, "ledger", string(ledger.LedgerCompany), "Ledger tab to open (company, vendor, expense, bank)")
	tuiCmd.Flags().StringVar(&tuiLogFile, "log-file", "bookkeeper-tui.log", "File receiving TUI logs")
	tuiCmd.Flags().StringVar(&tuiExport, "export-dir", "", "Directory for CSV exports (default: working directory)")
	rootCmd.AddCommand(tuiCmd)
}
