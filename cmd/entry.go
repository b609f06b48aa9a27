package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sushantshinde2401/bookkeeper/internal/client"
	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/mutation"
	"github.com/sushantshinde2401/bookkeeper/internal/screen"
	"github.com/sushantshinde2401/bookkeeper/internal/syncsignal"
	"github.com/sushantshinde2401/bookkeeper/internal/view"
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Manage ledger entries",
}

// entry add
var (
	entryLedger      string
	entryType        string
	entryDate        string
	entryParticulars string
	entryVoucherType string
	entryVoucherNo   string
	entryParty       string
	entryCategory    string
	entryDebit       string
	entryCredit      string
)

var entryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an entry to a ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := ledger.ParseDate(entryDate)
		if err != nil {
			return err
		}
		debit, err := ledger.ParseAmount(entryDebit)
		if err != nil {
			return fmt.Errorf("debit: %w", err)
		}
		credit, err := ledger.ParseAmount(entryCredit)
		if err != nil {
			return fmt.Errorf("credit: %w", err)
		}

		e := &ledger.Entry{
			Ledger:      ledger.Ledger(entryLedger),
			EntryType:   entryType,
			Date:        date,
			Particulars: entryParticulars,
			VoucherType: entryVoucherType,
			VoucherNo:   entryVoucherNo,
			Party:       entryParty,
			Category:    entryCategory,
			Debit:       debit,
			Credit:      credit,
		}
		if err := e.Validate(); err != nil {
			return err
		}

		ctx := context.Background()
		c := client.New(cfg.ServerURL)
		created, err := c.CreateEntry(ctx, e)
		if err != nil {
			return err
		}
		syncsignal.New(client.NewSignalStore(c, nil), nil).Trigger(ctx, ledger.SyncKey(created.Ledger))

		fmt.Printf("Entry created: %s [%s] %s %s debit %s credit %s\n",
			created.ID, created.Ledger, created.Date, created.Particulars,
			ledger.FormatAmount(created.Debit, cfg.Currency), ledger.FormatAmount(created.Credit, cfg.Currency))
		return nil
	},
}

// entry list
var (
	listLedger      string
	listParty       string
	listFrom        string
	listTo          string
	listSearch      string
	listSort        string
	listDesc        bool
	listExpenseOnly bool
)

// listController loads a ledger into a controller configured from the list
// flags. export shares it.
func listController(ctx context.Context, c *client.Client) (*screen.Controller, error) {
	l := ledger.Ledger(listLedger)
	if !ledger.ValidLedger(l) {
		return nil, fmt.Errorf("%w: %q", ledger.ErrUnknownLedger, listLedger)
	}
	from, err := ledger.ParseDate(listFrom)
	if err != nil {
		return nil, err
	}
	to, err := ledger.ParseDate(listTo)
	if err != nil {
		return nil, err
	}

	ctrl := screen.New(l, screen.Options{Source: c})
	if _, err := ctrl.Load(ctx, client.ListFilter{Party: listParty, From: from, To: to}); err != nil {
		return nil, err
	}
	ctrl.SetSearch(listSearch)
	if listExpenseOnly {
		ctrl.ToggleExpenseSourced()
	}
	if listSort != "" {
		known := slices.ContainsFunc(ctrl.Columns(), func(c screen.Column) bool { return c.Key == listSort })
		if !known {
			return nil, fmt.Errorf("unknown sort column %q for the %s ledger", listSort, l)
		}
		spec := ctrl.ToggleSort(listSort)
		if listDesc && spec.Dir == view.Asc {
			ctrl.ToggleSort(listSort)
		}
	}
	return ctrl, nil
}

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the entries of a ledger with running balances",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(cfg.ServerURL)
		ctrl, err := listController(context.Background(), c)
		if err != nil {
			return err
		}

		lines := ctrl.Lines()
		if len(lines) == 0 {
			fmt.Println("No entries found.")
			return nil
		}

		fmt.Printf("%-36s %-10s %-30s %14s %14s %15s\n", "ID", "DATE", "PARTICULARS", "DEBIT", "CREDIT", "BALANCE")
		fmt.Printf("%-36s %-10s %-30s %14s %14s %15s\n", "----", "----", "-----------", "-----", "------", "-------")
		for _, line := range lines {
			e := line.Entry
			particulars := e.Particulars
			if len(particulars) > 28 {
				particulars = particulars[:28] + ".."
			}
			fmt.Printf("%-36s %-10s %-30s %14s %14s %15s\n",
				e.ID, e.Date, particulars,
				ledger.FormatAmount(e.Debit, cfg.Currency),
				ledger.FormatAmount(e.Credit, cfg.Currency),
				ledger.FormatAmount(line.RunningBalance, cfg.Currency))
		}
		s := view.Summarize(lines)
		fmt.Printf("\n%d entries, closing balance %s\n", s.Count, ledger.FormatAmount(s.Closing, cfg.Currency))
		return nil
	},
}

// entry delete
var (
	deleteLedger string
	deleteType   string
)

var entryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry and notify open screens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := consoleLogger()
		defer logger.Sync()

		c := client.New(cfg.ServerURL)
		signals := syncsignal.New(client.NewSignalStore(c, logger), logger)
		coord := mutation.New(c, signals, logger)

		e := ledger.Entry{ID: args[0], Ledger: ledger.Ledger(deleteLedger), EntryType: deleteType}
		r, err := coord.Delete(context.Background(), e, nil)
		if err != nil {
			return err
		}
		switch r.Outcome {
		case mutation.Committed:
			fmt.Printf("Entry %s deleted\n", e.ID)
			return nil
		case mutation.Reconciling:
			fmt.Printf("Entry %s was already deleted\n", e.ID)
			return nil
		default:
			logger.Debug("delete failed", zap.Error(r.Err))
			return errors.New(r.Message())
		}
	},
}

func init() {
	entryAddCmd.Flags().StringVar(&entryLedger, "ledger", "", "Ledger (company, vendor, expense, bank)")
	entryAddCmd.Flags().StringVar(&entryType, "type", "", "Vendor entry type (service, payment, adjustment)")
	entryAddCmd.Flags().StringVar(&entryDate, "date", "", "Date (YYYY-MM-DD)")
	entryAddCmd.Flags().StringVar(&entryParticulars, "particulars", "", "Particulars")
	entryAddCmd.Flags().StringVar(&entryVoucherType, "voucher-type", "", "Voucher type (Sales, Receipt, Payment...)")
	entryAddCmd.Flags().StringVar(&entryVoucherNo, "voucher-no", "", "Voucher number")
	entryAddCmd.Flags().StringVar(&entryParty, "party", "", "Client or vendor name")
	entryAddCmd.Flags().StringVar(&entryCategory, "category", "", "Expense type")
	entryAddCmd.Flags().StringVar(&entryDebit, "debit", "", "Debit amount")
	entryAddCmd.Flags().StringVar(&entryCredit, "credit", "", "Credit amount")
	entryAddCmd.MarkFlagRequired("ledger")
	entryAddCmd.MarkFlagRequired("particulars")

	addListFlags(entryListCmd)

	entryDeleteCmd.Flags().StringVar(&deleteLedger, "ledger", "", "Ledger the entry belongs to")
	entryDeleteCmd.Flags().StringVar(&deleteType, "type", "", "Vendor entry type (service, payment, adjustment)")
	entryDeleteCmd.MarkFlagRequired("ledger")

	entryCmd.AddCommand(entryAddCmd, entryListCmd, entryDeleteCmd)
	rootCmd.AddCommand(entryCmd)
}

// addListFlags registers the ledger selection flags shared by list and export.
func addListFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&listLedger, "ledger", string(ledger.LedgerCompany), "Ledger (company, vendor, expense, bank)")
	cmd.Flags().StringVar(&listParty, "party", "", "Only entries of this client or vendor")
	cmd.Flags().StringVar(&listFrom, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&listTo, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&listSearch, "search", "", "Free-text search")
	cmd.Flags().StringVar(&listSort, "sort", "", "Sort column ("+strings.Join(sortKeys(), ", ")+")")
	cmd.Flags().BoolVar(&listDesc, "desc", false, "Sort descending")
	cmd.Flags().BoolVar(&listExpenseOnly, "expense-only", false, "Bank ledger: only entries mirrored from expenses")
}

func sortKeys() []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range ledger.AllLedgers {
		for _, c := range screen.ColumnsFor(l) {
			if !seen[c.Key] {
				seen[c.Key] = true
				out = append(out, c.Key)
			}
		}
	}
	return out
}
