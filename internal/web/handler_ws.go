package web

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/creack/pty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
)

type resizeMsg struct {
	Type string `json:"type"`
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

func selfCommand() (string, []string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", nil, err
	}
	return exe, []string{"tui"}, nil
}

// tuiArgs are the arguments appended to the TUI command for a connection.
func (s *Server) tuiArgs(r *http.Request) []string {
	args := []string{"--server", s.apiAddr}
	if l := ledger.Ledger(r.URL.Query().Get("ledger")); ledger.ValidLedger(l) {
		args = append(args, "--ledger", string(l))
	}
	return args
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	log := s.logger.With(zap.String("terminal", uuid.NewString()))
	cols := parseUint16(r.URL.Query().Get("cols"), 80)
	rows := parseUint16(r.URL.Query().Get("rows"), 24)

	exe, lead, err := s.command()
	if err != nil {
		log.Error("find executable", zap.Error(err))
		conn.Close(websocket.StatusInternalError, "cannot find executable")
		return
	}

	cmd := exec.Command(exe, append(lead, s.tuiArgs(r)...)...)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color", "COLORTERM=truecolor")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		log.Error("pty start", zap.Error(err))
		conn.Close(websocket.StatusInternalError, "failed to start pty")
		return
	}
	log.Info("terminal started", zap.Int("pid", cmd.Process.Pid), zap.Uint16("cols", cols), zap.Uint16("rows", rows))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	cleanup := func() {
		cancel()
		ptmx.Close()
		if cmd.Process != nil {
			cmd.Process.Kill()
			cmd.Wait()
		}
		log.Info("terminal closed")
	}
	defer once.Do(cleanup)

	// PTY -> WebSocket (binary frames to avoid UTF-8 validation issues)
	go func() {
		buf := make([]byte, 32*1024)
		for {
			n, err := ptmx.Read(buf)
			if err != nil {
				log.Debug("pty read", zap.Error(err))
				once.Do(cleanup)
				conn.Close(websocket.StatusNormalClosure, "process exited")
				return
			}
			if err := conn.Write(ctx, websocket.MessageBinary, buf[:n]); err != nil {
				log.Debug("ws write", zap.Error(err))
				once.Do(cleanup)
				return
			}
		}
	}()

	// WebSocket -> PTY
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Debug("ws read", zap.Error(err))
			return
		}

		if strings.HasPrefix(string(data), "{") {
			var resize resizeMsg
			if json.Unmarshal(data, &resize) == nil && resize.Type == "resize" {
				pty.Setsize(ptmx, &pty.Winsize{Rows: resize.Rows, Cols: resize.Cols})
				continue
			}
		}

		if _, err := ptmx.Write(data); err != nil {
			return
		}
	}
}

func parseUint16(s string, def uint16) uint16 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return def
	}
	return uint16(v)
}
