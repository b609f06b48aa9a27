package mutation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/syncsignal"
)

type fakeDeleter struct {
	mu    sync.Mutex
	err   error
	calls []string
	// hold, when set, blocks DeleteEntry until closed.
	hold chan struct{}
}

func (f *fakeDeleter) DeleteEntry(_ context.Context, kind ledger.Kind, id string) error {
	if f.hold != nil {
		<-f.hold
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, string(kind)+"/"+id)
	return f.err
}

func (f *fakeDeleter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type sliceList struct {
	entries  []ledger.Entry
	restores int
}

func (l *sliceList) Remove(id string) (ledger.Entry, bool) {
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return e, true
		}
	}
	return ledger.Entry{}, false
}

func (l *sliceList) Restore(e ledger.Entry) {
	l.restores++
	l.entries = InsertByDate(l.entries, e)
}

func (l *sliceList) IDs() []string {
	ids := make([]string, len(l.entries))
	for i, e := range l.entries {
		ids[i] = e.ID
	}
	return ids
}

type userErr string

func (e userErr) Error() string       { return string(e) }
func (e userErr) UserMessage() string { return string(e) }

func bankEntry(id string, day int) ledger.Entry {
	return ledger.Entry{
		ID:          id,
		Ledger:      ledger.LedgerBank,
		Date:        ledger.NewDate(2024, time.March, day),
		Particulars: "entry " + id,
		Debit:       decimal.NewFromInt(10),
	}
}

// newestFirst returns three bank entries dated 3, 2 and 1 March.
func newestFirst() *sliceList {
	return &sliceList{entries: []ledger.Entry{bankEntry("c", 3), bankEntry("b", 2), bankEntry("a", 1)}}
}

func newCoordinator(d Deleter) (*Coordinator, *syncsignal.NotifyingStore) {
	store := syncsignal.NewMemoryStore()
	return New(d, syncsignal.New(store, nil), nil), store
}

func countSetsOf(t *testing.T, store *syncsignal.NotifyingStore, key string) func() int {
	t.Helper()
	var mu sync.Mutex
	n := 0
	stop, err := store.Watch(context.Background(), key, func(string) {
		mu.Lock()
		n++
		mu.Unlock()
	})
	require.NoError(t, err)
	t.Cleanup(stop)
	return func() int {
		mu.Lock()
		defer mu.Unlock()
		return n
	}
}

func TestDelete_Committed(t *testing.T) {
	d := &fakeDeleter{}
	c, store := newCoordinator(d)
	triggers := countSetsOf(t, store, ledger.SyncKeyExpenseBank)
	list := newestFirst()

	r, err := c.Delete(context.Background(), bankEntry("b", 2), list)
	require.NoError(t, err)

	assert.Equal(t, Committed, r.Outcome)
	assert.Equal(t, "b", r.Entry.ID)
	assert.NoError(t, r.Err)
	assert.Empty(t, r.Message())
	assert.Equal(t, []string{"c", "a"}, list.IDs())
	assert.Zero(t, list.restores)
	assert.Equal(t, []string{"bank-ledger/b"}, d.Calls())
	assert.Equal(t, 1, triggers())
	assert.False(t, c.InFlight(bankEntry("b", 2)))
}

func TestDelete_NetworkErrorRollsBack(t *testing.T) {
	d := &fakeDeleter{err: fmt.Errorf("%w: connection refused", ledger.ErrRemote)}
	c, store := newCoordinator(d)
	triggers := countSetsOf(t, store, ledger.SyncKeyExpenseBank)
	list := newestFirst()

	r, err := c.Delete(context.Background(), bankEntry("b", 2), list)
	require.NoError(t, err)

	assert.Equal(t, RolledBack, r.Outcome)
	assert.ErrorIs(t, r.Err, ledger.ErrRemote)
	assert.Equal(t, GenericFailure, r.Message())
	assert.Equal(t, []string{"c", "b", "a"}, list.IDs(), "restored in date-descending position")
	assert.Equal(t, 1, list.restores)
	assert.Zero(t, triggers())
}

func TestDelete_ServerMessageIsSurfaced(t *testing.T) {
	c, _ := newCoordinator(&fakeDeleter{err: userErr("ledger is locked for audit")})
	list := newestFirst()

	r, err := c.Delete(context.Background(), bankEntry("c", 3), list)
	require.NoError(t, err)
	assert.Equal(t, RolledBack, r.Outcome)
	assert.Equal(t, "ledger is locked for audit", r.Message())
	assert.Equal(t, []string{"c", "b", "a"}, list.IDs())
}

func TestDelete_NotFoundReconciles(t *testing.T) {
	d := &fakeDeleter{err: fmt.Errorf("delete: %w", ledger.ErrEntryNotFound)}
	c, store := newCoordinator(d)
	triggers := countSetsOf(t, store, ledger.SyncKeyExpenseBank)
	list := newestFirst()

	r, err := c.Delete(context.Background(), bankEntry("a", 1), list)
	require.NoError(t, err)

	assert.Equal(t, Reconciling, r.Outcome)
	assert.Equal(t, []string{"c", "b"}, list.IDs(), "not re-inserted")
	assert.Zero(t, list.restores)
	assert.Zero(t, triggers())
	assert.False(t, c.InFlight(bankEntry("a", 1)))
}

func TestDelete_MissingIDNeverCallsServer(t *testing.T) {
	d := &fakeDeleter{}
	c, _ := newCoordinator(d)
	list := newestFirst()

	e := bankEntry("", 2)
	_, err := c.Delete(context.Background(), e, list)
	assert.ErrorIs(t, err, ledger.ErrMissingID)
	assert.Empty(t, d.Calls())
	assert.Equal(t, []string{"c", "b", "a"}, list.IDs())
}

func TestDelete_UnknownKind(t *testing.T) {
	d := &fakeDeleter{}
	c, _ := newCoordinator(d)

	_, err := c.Delete(context.Background(), ledger.Entry{ID: "v1", Ledger: ledger.LedgerVendor}, nil)
	assert.ErrorIs(t, err, ledger.ErrUnknownKind)
	assert.Empty(t, d.Calls())
}

func TestDelete_VendorRoutesByEntryType(t *testing.T) {
	d := &fakeDeleter{}
	c, store := newCoordinator(d)
	triggers := countSetsOf(t, store, ledger.SyncKeyVendor)

	e := ledger.Entry{ID: "v1", Ledger: ledger.LedgerVendor, EntryType: ledger.EntryTypePayment}
	r, err := c.Delete(context.Background(), e, nil)
	require.NoError(t, err)
	assert.Equal(t, Committed, r.Outcome)
	assert.Equal(t, []string{"vendor-payment/v1"}, d.Calls())
	assert.Equal(t, 1, triggers())
}

func TestBegin_RemovesBeforeCommitAndGuardsInFlight(t *testing.T) {
	d := &fakeDeleter{hold: make(chan struct{})}
	c, _ := newCoordinator(d)
	list := newestFirst()
	e := bankEntry("b", 2)

	p, err := c.Begin(e, list)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, list.IDs(), "removed before the server answers")
	assert.True(t, c.InFlight(e))

	_, err = c.Begin(e, list)
	assert.ErrorIs(t, err, ledger.ErrDeleteInFlight)

	done := make(chan Result, 1)
	go func() { done <- p.Commit(context.Background()) }()
	close(d.hold)

	r := <-done
	p.Settle(list, r)
	p.Settle(list, r)
	assert.Equal(t, Committed, r.Outcome)
	assert.False(t, c.InFlight(e))

	_, err = c.Begin(e, list)
	assert.NoError(t, err, "a settled entry can be deleted again")
}

func TestDelete_NilSignalsStillCommits(t *testing.T) {
	c := New(&fakeDeleter{}, nil, nil)
	r, err := c.Delete(context.Background(), bankEntry("a", 1), nil)
	require.NoError(t, err)
	assert.Equal(t, Committed, r.Outcome)
}

func TestInsertByDate(t *testing.T) {
	undated := ledger.Entry{ID: "u"}
	base := []ledger.Entry{bankEntry("c", 3), bankEntry("a", 1), undated}

	got := InsertByDate(append([]ledger.Entry(nil), base...), bankEntry("b", 2))
	assert.Equal(t, "b", got[1].ID)

	got = InsertByDate(append([]ledger.Entry(nil), base...), bankEntry("d", 4))
	assert.Equal(t, "d", got[0].ID)

	got = InsertByDate(append([]ledger.Entry(nil), base...), bankEntry("a2", 1))
	assert.Equal(t, "a2", got[2].ID, "same date goes after existing entries of that day")

	got = InsertByDate(append([]ledger.Entry(nil), base...), ledger.Entry{ID: "u2"})
	assert.Equal(t, "u2", got[3].ID)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "committed", Committed.String())
	assert.Equal(t, "rolled back", RolledBack.String())
	assert.Equal(t, "reconciling", Reconciling.String())
	assert.Equal(t, "unknown", Outcome(0).String())
}
