package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sushantshinde2401/bookkeeper/internal/client"
	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/syncsignal"
)

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Trigger or watch the sync signals screens reload on",
}

// signalKey accepts a ledger name or a raw key.
func signalKey(arg string) string {
	if l := ledger.Ledger(arg); ledger.ValidLedger(l) {
		return ledger.SyncKey(l)
	}
	return arg
}

var signalTriggerCmd = &cobra.Command{
	Use:   "trigger <ledger|key>",
	Short: "Tell every open screen of a ledger family to reload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := consoleLogger()
		defer logger.Sync()

		key := signalKey(args[0])
		store := client.NewSignalStore(client.New(cfg.ServerURL), logger)
		syncsignal.New(store, logger).Trigger(context.Background(), key)

		value, err := store.Get(context.Background(), key)
		if err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", key, value)
		return nil
	},
}

var signalWatchCmd = &cobra.Command{
	Use:   "watch <ledger|key>",
	Short: "Print a line each time a ledger family changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := consoleLogger()
		defer logger.Sync()

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		key := signalKey(args[0])
		ch := syncsignal.New(client.NewSignalStore(client.New(cfg.ServerURL), logger), logger)
		sub := ch.Subscribe(ctx, key, func() {
			fmt.Printf("%s %s changed\n", time.Now().Format(time.TimeOnly), key)
		}, cfg.PollInterval)
		defer sub.Close()

		fmt.Printf("Watching %s (Ctrl+C to stop)\n", key)
		<-ctx.Done()
		return nil
	},
}

func init() {
	signalCmd.AddCommand(signalTriggerCmd, signalWatchCmd)
	rootCmd.AddCommand(signalCmd)
}
