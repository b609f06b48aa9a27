package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sushantshinde2401/bookkeeper/internal/config"
	"github.com/sushantshinde2401/bookkeeper/internal/server"
	"github.com/sushantshinde2401/bookkeeper/internal/store"
	"github.com/sushantshinde2401/bookkeeper/internal/syncsignal"
	"github.com/sushantshinde2401/bookkeeper/internal/syncsignal/kafkasignal"
)

var (
	serveAddr          string
	serveSignalBackend string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.ListenAddr = serveAddr
		}
		if cmd.Flags().Changed("signal-backend") {
			cfg.SignalBackend = serveSignalBackend
		}

		logger := consoleLogger()
		defer logger.Sync()

		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		signals, closeSignals, err := openSignalHub(st, logger)
		if err != nil {
			return err
		}
		defer closeSignals()

		logger.Info("starting server",
			zap.String("addr", cfg.ListenAddr),
			zap.String("db", cfg.DBPath),
			zap.String("signals", cfg.SignalBackend))
		srv := server.New(st, signals, cfg.ListenAddr, logger)
		return srv.ListenAndServe()
	},
}

// openSignalHub builds the store behind /api/v1/signals.
func openSignalHub(st *store.Store, logger *zap.Logger) (syncsignal.Store, func(), error) {
	switch cfg.SignalBackend {
	case config.SignalBackendMemory:
		return syncsignal.NewMemoryStore(), func() {}, nil
	case config.SignalBackendKafka:
		ks, err := kafkasignal.New(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka signal hub: %w", err)
		}
		return ks, func() {
			if err := ks.Close(); err != nil {
				logger.Warn("close kafka signal hub", zap.Error(err))
			}
		}, nil
	default:
		return syncsignal.NewNotifyingStore(st.Signals()), func() {}, nil
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8888", "Listen address")
	serveCmd.Flags().StringVar(&serveSignalBackend, "signal-backend", config.SignalBackendSQLite, "Sync signal hub: sqlite, memory or kafka")
	rootCmd.AddCommand(serveCmd)
}
