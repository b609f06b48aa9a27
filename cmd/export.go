package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sushantshinde2401/bookkeeper/internal/client"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the visible entries of a ledger as CSV",
	Long:  "Export writes the same rows a screen would show for the given filters, search and sort, with running balances. Use --out - for stdout.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := listController(context.Background(), client.New(cfg.ServerURL))
		if err != nil {
			return err
		}

		path := exportOut
		if path == "" {
			path = ctrl.ExportName(time.Now())
		}
		var w io.Writer = os.Stdout
		if path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		if err := ctrl.ExportCSV(w); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if path != "-" {
			fmt.Printf("Exported %d entries to %s\n", len(ctrl.Lines()), path)
		}
		return nil
	},
}

func init() {
	addListFlags(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: <ledger>-ledger-<time>.csv)")
	rootCmd.AddCommand(exportCmd)
}
