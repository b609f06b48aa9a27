package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpen_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "books", "ledger.db")
	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())
	assert.FileExists(t, path)
}

func TestStore_CreateAndListEntries(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	for _, e := range []ledger.Entry{
		{Ledger: ledger.LedgerCompany, Date: ledger.NewDate(2024, 1, 10), Particulars: "Invoice 1", Party: "Acme", Debit: decimal.NewFromInt(100)},
		{Ledger: ledger.LedgerCompany, Date: ledger.NewDate(2024, 2, 10), Particulars: "Receipt 1", Party: "Acme", Credit: decimal.NewFromInt(40)},
		{Ledger: ledger.LedgerCompany, Particulars: "Undated", Party: "Other", Debit: decimal.NewFromInt(5)},
	} {
		e := e
		require.NoError(t, st.CreateEntry(ctx, &e))
		assert.NotEmpty(t, e.ID)
	}

	all, err := st.ListEntries(ctx, EntryFilter{Ledger: ledger.LedgerCompany})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Receipt 1", all[0].Particulars)
	assert.Equal(t, "Invoice 1", all[1].Particulars)
	assert.Equal(t, "Undated", all[2].Particulars)
	assert.True(t, all[0].Credit.Equal(decimal.NewFromInt(40)))

	acme, err := st.ListEntries(ctx, EntryFilter{Ledger: ledger.LedgerCompany, Party: "acme"})
	require.NoError(t, err)
	assert.Len(t, acme, 2)

	feb, err := st.ListEntries(ctx, EntryFilter{Ledger: ledger.LedgerCompany, From: ledger.NewDate(2024, 2, 1)})
	require.NoError(t, err)
	require.Len(t, feb, 1)
	assert.Equal(t, "Receipt 1", feb[0].Particulars)
}

func TestStore_CreateEntryValidates(t *testing.T) {
	st := openTestStore(t)

	err := st.CreateEntry(context.Background(), &ledger.Entry{Ledger: ledger.LedgerVendor, Particulars: "x", EntryType: "bogus"})
	assert.ErrorIs(t, err, ledger.ErrInvalidEntryType)

	err = st.CreateEntry(context.Background(), &ledger.Entry{Ledger: ledger.LedgerBank})
	assert.ErrorIs(t, err, ledger.ErrEmptyParticulars)
}

func TestStore_ExpenseIsMirroredToBank(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	exp := ledger.Entry{
		Ledger:      ledger.LedgerExpense,
		Date:        ledger.NewDate(2024, 3, 1),
		Particulars: "Office rent",
		Category:    "Rent",
		Debit:       decimal.NewFromInt(2500),
	}
	require.NoError(t, st.CreateEntry(ctx, &exp))

	bank, err := st.ListEntries(ctx, EntryFilter{Ledger: ledger.LedgerBank})
	require.NoError(t, err)
	require.Len(t, bank, 1)
	assert.True(t, bank[0].IsExpenseSourced())
	assert.True(t, bank[0].Credit.Equal(decimal.NewFromInt(2500)))
	assert.True(t, bank[0].Debit.IsZero())

	require.NoError(t, st.DeleteEntry(ctx, ledger.LedgerExpense, "", exp.ID))

	bank, err = st.ListEntries(ctx, EntryFilter{Ledger: ledger.LedgerBank})
	require.NoError(t, err)
	assert.Empty(t, bank)
}

func TestStore_DeleteEntry(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	e := ledger.Entry{Ledger: ledger.LedgerVendor, EntryType: ledger.EntryTypePayment, Particulars: "Paid", Credit: decimal.NewFromInt(10)}
	require.NoError(t, st.CreateEntry(ctx, &e))

	err := st.DeleteEntry(ctx, ledger.LedgerVendor, ledger.EntryTypeService, e.ID)
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound, "entry type must match")

	err = st.DeleteEntry(ctx, ledger.LedgerCompany, "", e.ID)
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound, "ledger must match")

	require.NoError(t, st.DeleteEntry(ctx, ledger.LedgerVendor, ledger.EntryTypePayment, e.ID))

	_, err = st.GetEntry(ctx, ledger.LedgerVendor, e.ID)
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)

	err = st.DeleteEntry(ctx, ledger.LedgerVendor, "", e.ID)
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)

	assert.ErrorIs(t, st.DeleteEntry(ctx, ledger.LedgerVendor, "", ""), ledger.ErrMissingID)
}

func TestStore_Signals(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	kv := st.Signals()

	v, err := kv.Get(ctx, ledger.SyncKeyVendor)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, kv.Set(ctx, ledger.SyncKeyVendor, "1"))
	require.NoError(t, kv.Set(ctx, ledger.SyncKeyVendor, "2"))

	v, err = kv.Get(ctx, ledger.SyncKeyVendor)
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}
