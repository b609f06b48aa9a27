package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noRedirect(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

func TestServer_Pages(t *testing.T) {
	ts := httptest.NewServer(NewServer("", "http://api", nil).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	c := &http.Client{CheckRedirect: noRedirect}
	resp, err = c.Get(ts.URL + "/ledger/bank")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/?ledger=bank", resp.Header.Get("Location"))

	resp, err = c.Get(ts.URL + "/ledger/payroll")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_TUIArgs(t *testing.T) {
	s := NewServer("", "http://api:8888", nil)

	r := httptest.NewRequest(http.MethodGet, "/ws?ledger=vendor", nil)
	assert.Equal(t, []string{"--server", "http://api:8888", "--ledger", "vendor"}, s.tuiArgs(r))

	r = httptest.NewRequest(http.MethodGet, "/ws?ledger=../../etc", nil)
	assert.Equal(t, []string{"--server", "http://api:8888"}, s.tuiArgs(r))
}

func TestServer_WebSocketBridgesPTY(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	s := NewServer("", "http://api", nil)
	s.command = func() (string, []string, error) {
		return "/bin/sh", []string{"-c", `echo "started $2"; read line; echo "got $line"`, "sh"}, nil
	}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var out strings.Builder
	readUntil := func(want string) {
		for !strings.Contains(out.String(), want) {
			_, data, err := conn.Read(ctx)
			require.NoError(t, err, "output so far: %q", out.String())
			out.Write(data)
		}
	}

	readUntil("started http://api")
	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, []byte("hello\r")))
	readUntil("got hello")
}

func TestParseUint16(t *testing.T) {
	assert.Equal(t, uint16(80), parseUint16("", 80))
	assert.Equal(t, uint16(120), parseUint16("120", 80))
	assert.Equal(t, uint16(24), parseUint16("70000", 24))
}
