package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/store"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ts := httptest.NewServer(New(st, nil, "", nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestServer_EntryLifecycle(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/api/v1/vendor-ledger"

	status, env := do(t, "POST", base, map[string]any{
		"entry_type":  "service",
		"date":        "2024-04-01",
		"particulars": "Transport service",
		"party":       "Speedy",
		"debit":       1200.5,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var created ledger.Entry
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "1200.5", created.Debit.String())

	status, env = do(t, "GET", base+"?party=speedy", nil)
	require.Equal(t, http.StatusOK, status)
	var list []ledger.Entry
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "2024-04-01", list[0].Date.String())

	status, env = do(t, "DELETE", base+"/"+created.ID+"?entry_type=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "error", env.Status)

	status, env = do(t, "DELETE", base+"/"+created.ID+"?entry_type=service", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", env.Status)

	status, env = do(t, "DELETE", base+"/"+created.ID+"?entry_type=service", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "error", env.Status)
	assert.Contains(t, env.Message, "not found")
}

func TestServer_CreateRejectsInvalidEntries(t *testing.T) {
	ts := newTestServer(t)

	status, env := do(t, "POST", ts.URL+"/api/v1/company-ledger", map[string]any{"particulars": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "error", env.Status)

	status, _ = do(t, "POST", ts.URL+"/api/v1/company-ledger", map[string]any{"particulars": "x", "debit": "abc"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, "POST", ts.URL+"/api/v1/company-ledger", map[string]any{"particulars": "x", "date": "31/12/2024"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServer_ListEmptyLedger(t *testing.T) {
	ts := newTestServer(t)

	status, env := do(t, "GET", ts.URL+"/api/v1/bank-ledger", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestServer_SignalsGetPutWatch(t *testing.T) {
	ts := newTestServer(t)
	key := ledger.SyncKeyExpenseBank
	sigURL := ts.URL + "/api/v1/signals/" + key

	status, env := do(t, "GET", sigURL, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"key":"ledger-sync:expense-bank","value":""}`, string(env.Data))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(sigURL, "http")+"/watch", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	// The watch is registered asynchronously; keep publishing until it lands.
	got := make(chan string, 1)
	go func() {
		_, data, err := conn.Read(ctx)
		if err == nil {
			got <- string(data)
		}
	}()

	var received string
	require.Eventually(t, func() bool {
		status, _ := do(t, "PUT", sigURL, map[string]string{"value": time.Now().Format(time.RFC3339Nano)})
		if status != http.StatusOK {
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

	status, _ = do(t, "PUT", sigURL, map[string]string{"value": ""})
	assert.Equal(t, http.StatusBadRequest, status)
}
