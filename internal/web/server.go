package web

import (
	_ "embed"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
)

//go:embed static/index.html
var indexHTML []byte

// Server serves the web terminal UI. Every websocket runs its own TUI
// process against apiAddr, so each browser tab is an independent session
// that stays in sync with the others through the API's signals.
type Server struct {
	addr    string
	apiAddr string
	logger  *zap.Logger
	router  chi.Router

	// command returns the executable and leading arguments used to start
	// a TUI. Tests replace it.
	command func() (string, []string, error)
}

// NewServer creates a web terminal server.
func NewServer(addr, apiAddr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:    addr,
		apiAddr: apiAddr,
		logger:  logger,
		router:  r,
		command: selfCommand,
	}

	r.Get("/", s.handleIndex)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/ledger/{ledger}", s.handleLedger)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return s
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleLedger opens a terminal on one ledger tab, e.g. /ledger/bank.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	l := ledger.Ledger(chi.URLParam(r, "ledger"))
	if !ledger.ValidLedger(l) {
		http.Error(w, "unknown ledger", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, "/?"+url.Values{"ledger": {string(l)}}.Encode(), http.StatusFound)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the web terminal server.
func (s *Server) ListenAndServe() error {
	s.logger.Info("web terminal listening", zap.String("addr", s.addr), zap.String("api", s.apiAddr))
	return http.ListenAndServe(s.addr, s.router)
}
