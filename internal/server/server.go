package server

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/store"
	"github.com/sushantshinde2401/bookkeeper/internal/syncsignal"
)

type Server struct {
	store   *store.Store
	signals syncsignal.Store
	logger  *zap.Logger
	router  chi.Router
	addr    string
}

// New builds the API. signals is the hub behind /api/v1/signals; nil uses the
// store's signal table with in-process notifications.
func New(st *store.Store, signals syncsignal.Store, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if signals == nil {
		signals = syncsignal.NewNotifyingStore(st.Signals())
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	s := &Server{store: st, signals: signals, logger: logger, router: r, addr: addr}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(w, http.StatusOK, "ok", nil)
	})

	r.Route("/api/v1", func(r chi.Router) {
		for _, l := range ledger.AllLedgers {
			r.Route("/"+string(l)+"-ledger", func(r chi.Router) {
				r.Get("/", s.listEntries(l))
				r.Post("/", s.createEntry(l))
				r.Get("/{id}", s.getEntry(l))
				r.Delete("/{id}", s.deleteEntry(l))
			})
		}

		// Sync signals
		r.Get("/signals/{key}", s.getSignal)
		r.Put("/signals/{key}", s.putSignal)
		r.Get("/signals/{key}/watch", s.watchSignal)
	})

	return s
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("bookkeeper server listening", zap.String("addr", s.addr))
	return http.ListenAndServe(s.addr, s.router)
}

func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("bookkeeper server listening", zap.String("addr", ln.Addr().String()))
	return http.Serve(ln, s.router)
}

func (s *Server) Handler() http.Handler {
	return s.router
}
