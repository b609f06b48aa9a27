package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/server"
	"github.com/sushantshinde2401/bookkeeper/internal/store"
	"github.com/sushantshinde2401/bookkeeper/internal/syncsignal"
)

func newBackend(t *testing.T) *Client {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ts := httptest.NewServer(server.New(st, nil, "", nil).Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL)
}

func fakeServer(t *testing.T, status int, body string) *Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return New(ts.URL)
}

func TestClient_CreateListDelete(t *testing.T) {
	ctx := context.Background()
	c := newBackend(t)

	created, err := c.CreateEntry(ctx, &ledger.Entry{
		Ledger:      ledger.LedgerVendor,
		EntryType:   ledger.EntryTypeAdjustment,
		Date:        ledger.NewDate(2024, 5, 2),
		Particulars: "Rate correction",
		Party:       "Speedy",
		Credit:      decimal.RequireFromString("75.25"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := c.GetEntry(ctx, ledger.LedgerVendor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rate correction", got.Particulars)

	entries, err := c.ListEntries(ctx, ledger.LedgerVendor, ListFilter{Party: "Speedy", From: ledger.NewDate(2024, 1, 1)})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "75.25", entries[0].Credit.String())

	err = c.DeleteEntry(ctx, ledger.KindVendorService, created.ID)
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound, "wrong vendor entry type")

	require.NoError(t, c.DeleteEntry(ctx, ledger.KindVendorAdjustment, created.ID))

	err = c.DeleteEntry(ctx, ledger.KindVendorAdjustment, created.ID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.True(t, apiErr.NotFound())
}

func TestClient_DeleteValidatesLocally(t *testing.T) {
	c := New("http://127.0.0.1:1")

	assert.ErrorIs(t, c.DeleteEntry(context.Background(), ledger.KindBank, ""), ledger.ErrMissingID)
	assert.ErrorIs(t, c.DeleteEntry(context.Background(), ledger.Kind("nope"), "x"), ledger.ErrUnknownKind)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		notFound bool
		message  string
	}{
		{"http 404", http.StatusNotFound, `{"status":"error","message":"entry not found"}`, true, "entry not found"},
		{"status error with not found text", http.StatusOK, `{"status":"error","message":"Record Not Found"}`, true, "Record Not Found"},
		{"status error", http.StatusOK, `{"status":"error","message":"ledger locked"}`, false, "ledger locked"},
		{"status error without message", http.StatusOK, `{"status":"error"}`, false, "request was not successful"},
		{"plain 500", http.StatusInternalServerError, `boom`, false, "boom"},
		{"empty 502", http.StatusBadGateway, ``, false, "Bad Gateway"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := fakeServer(t, tc.status, tc.body)
			err := c.DeleteEntry(context.Background(), ledger.KindCompany, "abc")

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.message, apiErr.Message)
			assert.Equal(t, tc.notFound, errors.Is(err, ledger.ErrEntryNotFound))
			assert.ErrorIs(t, err, ledger.ErrRemote)
		})
	}
}

func TestClient_NetworkErrorIsRemote(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.URL
	ts.Close()

	err := New(addr).DeleteEntry(context.Background(), ledger.KindExpense, "abc")
	assert.ErrorIs(t, err, ledger.ErrRemote)
	assert.NotErrorIs(t, err, ledger.ErrEntryNotFound)
}

func TestClient_DeleteRoutesVendorKinds(t *testing.T) {
	var gotPath, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer ts.Close()
	c := New(ts.URL)

	require.NoError(t, c.DeleteEntry(context.Background(), ledger.KindVendorPayment, "v1"))
	assert.Equal(t, "/api/v1/vendor-ledger/v1", gotPath)
	assert.Equal(t, "entry_type=payment", gotQuery)

	require.NoError(t, c.DeleteEntry(context.Background(), ledger.KindBank, "b1"))
	assert.Equal(t, "/api/v1/bank-ledger/b1", gotPath)
	assert.Empty(t, gotQuery)
}

func TestSignalStore_SharedThroughServer(t *testing.T) {
	ctx := context.Background()
	c := newBackend(t)
	var _ syncsignal.Store = NewSignalStore(c, nil)

	tabA := syncsignal.New(NewSignalStore(c, nil), nil)
	tabB := syncsignal.New(NewSignalStore(c, nil), nil)

	var fired atomic.Int32
	sub := tabB.Subscribe(ctx, ledger.SyncKeyClient, func() { fired.Add(1) }, time.Hour)
	defer sub.Close()

	// The websocket may connect after the first trigger; the poll catches up.
	tabA.Trigger(ctx, ledger.SyncKeyClient)
	assert.Eventually(t, func() bool {
		if fired.Load() > 0 {
			return true
		}
		sub.Check(ctx)
		return fired.Load() > 0
	}, 3*time.Second, 20*time.Millisecond)

	v, err := NewSignalStore(c, nil).Get(ctx, ledger.SyncKeyClient)
	require.NoError(t, err)
	assert.NotEmpty(t, v)
}

func TestSignalStore_WatchPushesValues(t *testing.T) {
	ctx := context.Background()
	c := newBackend(t)
	s := NewSignalStore(c, nil)

	got := make(chan string, 8)
	stop, err := s.Watch(ctx, ledger.SyncKeyVendor, func(v string) {
		select {
		case got <- v:
		default:
		}
	})
	require.NoError(t, err)
	defer stop()

	var received string
	require.Eventually(t, func() bool {
		if err := s.Set(ctx, ledger.SyncKeyVendor, time.Now().Format(time.RFC3339Nano)); err != nil {
			return false
		}
		select {
		case received = <-got:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
	assert.NotEmpty(t, received)

	stop()
	stop()
}
